package ops

import (
	"regexp"
	"strconv"
	"strings"
)

// PageRange is an inclusive 1-based page interval
type PageRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

var rangePattern = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// ParseRanges reads "1-3, 5, 8-9" into ranges. A bare number is a one page range;
// parts that are neither are dropped.
func ParseRanges(expr string) []PageRange {
	var ranges []PageRange
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if m := rangePattern.FindStringSubmatch(part); m != nil {
			from, _ := strconv.Atoi(m[1])
			to, _ := strconv.Atoi(m[2])
			ranges = append(ranges, PageRange{From: from, To: to})
			continue
		}
		if n, ok := leadingInt(part); ok {
			ranges = append(ranges, PageRange{From: n, To: n})
		}
	}
	return ranges
}

// ParsePages reads "1, 4, 7" into page numbers, dropping parts that are not numbers
func ParsePages(expr string) []int {
	var pages []int
	for _, part := range strings.Split(expr, ",") {
		if n, ok := leadingInt(strings.TrimSpace(part)); ok {
			pages = append(pages, n)
		}
	}
	return pages
}

// leadingInt parses the leading decimal digits of s, so "12abc" reads as 12
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// inBounds keeps the pages within [1,total] in their given order
func inBounds(pages []int, total int) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 && p <= total {
			out = append(out, p)
		}
	}
	return out
}

// expandRanges clamps each range to [1,total] and returns the covered pages,
// de-duplicated in first occurrence order
func expandRanges(ranges []PageRange, total int) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, r := range ranges {
		from := max(1, r.From)
		to := min(total, r.To)
		for p := from; p <= to; p++ {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	return pages
}

func allPages(total int) []int {
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
