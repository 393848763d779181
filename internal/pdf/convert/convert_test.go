package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/testutil"
)

func TestToText(t *testing.T) {
	data := testutil.PDFWithText(t, "Alpha page", "Beta page")

	var last int
	blob, err := ToText(data, func(p int) { last = p })
	require.NoError(t, err)

	text := string(blob.Data)
	assert.True(t, strings.HasPrefix(text, "--- Page 1 ---\n"))
	assert.Contains(t, text, "\n\n--- Page 2 ---\n")
	assert.Contains(t, text, "Alpha")
	assert.Contains(t, text, "Beta")
	assert.Equal(t, 100, last)
	assert.Equal(t, pdf.ContentTypeText, blob.ContentType)
}

func TestToTextRejectsGarbage(t *testing.T) {
	_, err := ToText([]byte("not a pdf"), nil)
	assert.Error(t, err)
}

func TestDocxRoundTrip(t *testing.T) {
	in := []Paragraph{
		{Level: 1, Text: "Report"},
		{Text: "First line\nsecond line"},
		{Level: 3, Text: "Details & <notes>"},
	}
	data, err := WriteDocx(in)
	require.NoError(t, err)

	out, err := ReadDocx(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadDocxRejectsNonZip(t *testing.T) {
	_, err := ReadDocx([]byte("plain text"))
	assert.ErrorIs(t, err, pdf.ErrInvalidOptions)
}

func TestToWord(t *testing.T) {
	data := testutil.PDFWithText(t, "Quarterly numbers", "Closing remarks")

	var reports []int
	blob, err := ToWord(data, func(p int) { reports = append(reports, p) })
	require.NoError(t, err)
	assert.Equal(t, pdf.ContentTypeDOCX, blob.ContentType)

	paragraphs, err := ReadDocx(blob.Data)
	require.NoError(t, err)
	require.Len(t, paragraphs, 2)
	assert.Contains(t, paragraphs[0].Text, "Quarterly")
	assert.Contains(t, paragraphs[1].Text, "Closing")

	require.NotEmpty(t, reports)
	assert.Equal(t, 80, reports[len(reports)-2])
	assert.Equal(t, 100, reports[len(reports)-1])
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 4": 4,
		"Title":     1,
		"Subtitle":  2,
		"Heading9":  0,
		"Normal":    0,
		"":          0,
	}
	for style, want := range tests {
		assert.Equal(t, want, headingLevel(style), style)
	}
}

func TestHTMLBlocks(t *testing.T) {
	src := `<html><head><title>Doc</title><style>p{}</style></head><body>
		loose text
		<h2>Section</h2>
		<p>Para <b>one</b></p>
		<ul><li>item</li></ul>
		<table><tr><td>a</td><td>b</td></tr></table>
		<script>var x = 1;</script>
	</body></html>`
	root, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)

	blocks := htmlBlocks(find(root, atom.Body))
	assert.Equal(t, []htmlBlock{
		{text: "loose text"},
		{level: 2, text: "Section"},
		{text: "Para one"},
		{text: "- item"},
		{text: "a | b"},
	}, blocks)
}

func TestHTMLToPDF(t *testing.T) {
	src := "<html><head><title>Hello</title></head><body><p>" + strings.Repeat("Lorem ipsum dolor sit amet. ", 400) + "</p></body></html>"

	blob, err := HTMLToPDF([]byte(src), nil)
	require.NoError(t, err)
	assert.True(t, pdf.HasPDFHeader(blob.Data))

	pages, err := pdf.CountPages(blob.Data)
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
}

func TestHTMLToPDFEmpty(t *testing.T) {
	var reports []int
	blob, err := HTMLToPDF([]byte("<html><body>   </body></html>"), func(p int) { reports = append(reports, p) })
	require.NoError(t, err)

	pages, err := pdf.CountPages(blob.Data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Equal(t, 100, reports[len(reports)-1])
}

func TestWordToPDF(t *testing.T) {
	data, err := WriteDocx([]Paragraph{{Level: 1, Text: "Title"}, {Text: "Body text"}})
	require.NoError(t, err)

	blob, err := WordToPDF(data, nil)
	require.NoError(t, err)

	pages, err := pdf.ExtractPages(blob.Data)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "Body")
}

func TestMarkdownToPDF(t *testing.T) {
	var last int
	blob, err := MarkdownToPDF([]byte("# Heading\n\nSome *markdown* text.\n\n- one\n- two\n"), func(p int) { last = p })
	require.NoError(t, err)
	assert.True(t, pdf.HasPDFHeader(blob.Data))
	assert.Equal(t, 100, last)
}
