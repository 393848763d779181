package convert

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

const (
	htmlMargin     = 20
	htmlLineHeight = 7
	htmlTitleSize  = 16
	htmlTitleGap   = 12
)

var htmlBodyStyle = textStyle{size: 11, line: htmlLineHeight}

// htmlBlock is a run of text from one block element
type htmlBlock struct {
	level int
	text  string
}

// HTMLToPDF lays out the document title and the text of each block element on A4 pages.
// A document without text becomes a single blank page.
func HTMLToPDF(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	progress.Report(20)

	title := collapse(textOf(find(root, atom.Title)))
	blocks := htmlBlocks(find(root, atom.Body))
	progress.Report(40)

	w := newPageWriter(htmlMargin)
	if title != "" {
		w.title(title, htmlTitleSize, htmlTitleGap)
	}
	for i, b := range blocks {
		style := htmlBodyStyle
		if hs, ok := headingStyles[b.level]; ok {
			style = hs
			style.line = htmlLineHeight
		}
		w.block(b.text, style)
		progress.Step(i+1, len(blocks), 40, 95)
	}

	blob, err := w.output()
	if err != nil {
		return nil, err
	}
	progress.Report(100)
	return blob, nil
}

// htmlBlocks flattens the body into blocks. Loose inline text between block
// elements becomes its own paragraph.
func htmlBlocks(body *html.Node) []htmlBlock {
	if body == nil {
		return nil
	}

	var (
		blocks  []htmlBlock
		pending strings.Builder
	)
	emit := func(level int, text string) {
		if text = collapse(text); text != "" {
			blocks = append(blocks, htmlBlock{level: level, text: text})
		}
	}
	flush := func() {
		emit(0, pending.String())
		pending.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			pending.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				flush()
				emit(int(n.Data[1]-'0'), textOf(n))
				return
			case atom.P, atom.Pre, atom.Blockquote, atom.Dt, atom.Dd, atom.Caption, atom.Figcaption:
				flush()
				emit(0, textOf(n))
				return
			case atom.Li:
				flush()
				emit(0, "- "+collapse(textOf(n)))
				return
			case atom.Tr:
				flush()
				emit(0, rowText(n))
				return
			case atom.Br:
				pending.WriteString(" ")
				return
			case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer,
				atom.Nav, atom.Aside, atom.Ul, atom.Ol, atom.Dl, atom.Table, atom.Form, atom.Hr:
				flush()
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				flush()
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	flush()

	return blocks
}

func rowText(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, collapse(textOf(c)))
		}
	}
	return strings.Join(cells, " | ")
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
