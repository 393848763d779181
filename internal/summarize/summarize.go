// Package summarize builds an extractive summary of a document from word frequencies.
package summarize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

const (
	minSentenceLength = 20
	minSummary        = 5
	maxSummary        = 20
	keywordCount      = 15
)

var (
	wordPattern     = regexp.MustCompile(`\b[a-z]{4,}\b`)
	sentenceBreaks  = regexp.MustCompile(`[.!?]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	numberFormatter = message.NewPrinter(language.English)
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`that this with from have been will would could should their there
		about which when what were your they some other than then also into more only each very just`) {
		stopWords[w] = struct{}{}
	}
}

// Keyword is a word and the number of times it occurs outside the stop list
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Summary is the result of summarizing a document
type Summary struct {
	Pages     int       `json:"pages"`
	Words     int       `json:"words"`
	Sentences int       `json:"sentences"`
	Key       []string  `json:"key_sentences"`
	Keywords  []Keyword `json:"keywords"`
}

type scored struct {
	index int
	text  string
	score float64
}

// Summarize scores every sentence by the average frequency of its words and
// keeps the best ones in document order
func Summarize(pages []string) *Summary {
	full := strings.Join(pages, "\n\n")

	var sentences []string
	for _, s := range sentenceBreaks.Split(whitespaceRuns.ReplaceAllString(full, " "), -1) {
		if s = strings.TrimSpace(s); utf8.RuneCountInString(s) > minSentenceLength {
			sentences = append(sentences, s)
		}
	}

	words := wordPattern.FindAllString(strings.ToLower(full), -1)
	freq := make(map[string]int)
	var order []string
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}

	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		sentWords := wordPattern.FindAllString(strings.ToLower(s), -1)
		sum := 0
		for _, w := range sentWords {
			sum += freq[w]
		}
		ranked[i] = scored{index: i, text: s, score: float64(sum) / float64(max(len(sentWords), 1))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	count := summaryCount(len(sentences))
	top := ranked[:min(count, len(ranked))]
	sort.Slice(top, func(i, j int) bool { return top[i].index < top[j].index })

	key := make([]string, len(top))
	for i, s := range top {
		key[i] = s.text
	}

	keywords := make([]Keyword, len(order))
	for i, w := range order {
		keywords[i] = Keyword{Word: w, Count: freq[w]}
	}
	sort.SliceStable(keywords, func(i, j int) bool { return keywords[i].Count > keywords[j].Count })
	if len(keywords) > keywordCount {
		keywords = keywords[:keywordCount]
	}

	return &Summary{
		Pages:     len(pages),
		Words:     len(words),
		Sentences: len(sentences),
		Key:       key,
		Keywords:  keywords,
	}
}

// summaryCount is ten percent of the sentences, clamped to [5, 20]
func summaryCount(sentences int) int {
	return min(max(minSummary, sentences/10), maxSummary)
}

// Format renders the summary as the plain-text report
func (s *Summary) Format() string {
	var b strings.Builder
	b.WriteString("📄 Document Statistics\n")
	numberFormatter.Fprintf(&b, "   Pages: %d\n", s.Pages)
	numberFormatter.Fprintf(&b, "   Total words: %d\n", s.Words)
	numberFormatter.Fprintf(&b, "   Sentences: %d\n", s.Sentences)
	b.WriteString("\n")
	fmt.Fprintf(&b, "📝 Key Summary (%d key sentences):\n\n", summaryCount(s.Sentences))

	for i, sentence := range s.Key {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s.", i+1, sentence)
	}

	b.WriteString("\n\n---\n\nTop Keywords: ")
	for i, k := range s.Keywords {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%d)", k.Word, k.Count)
	}
	return b.String()
}

// PDF extracts the text of a document and returns its formatted summary
func PDF(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	pages, err := pdf.ExtractPagesWithProgress(data, progress, 60)
	if err != nil {
		return nil, err
	}
	progress.Report(70)

	summary := Summarize(pages)
	progress.Report(85)

	text := summary.Format()
	progress.Report(100)

	return &pdf.Blob{ContentType: pdf.ContentTypeText, Data: []byte(text)}, nil
}
