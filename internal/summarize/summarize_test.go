package summarize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/testutil"
)

func TestSummaryCount(t *testing.T) {
	tests := []struct {
		sentences int
		want      int
	}{
		{0, 5},
		{3, 5},
		{59, 5},
		{60, 6},
		{150, 15},
		{200, 20},
		{1000, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, summaryCount(tt.sentences), "sentences=%d", tt.sentences)
	}
}

func TestSummarizeSentences(t *testing.T) {
	pages := []string{
		"Short one. This sentence mentions rockets and rockets again!   Tiny?",
		"Another sentence about rockets and fuel... The weather today was fairly pleasant.",
	}
	s := Summarize(pages)

	assert.Equal(t, 2, s.Pages)
	assert.Equal(t, 3, s.Sentences)
	assert.Equal(t, []string{
		"This sentence mentions rockets and rockets again",
		"Another sentence about rockets and fuel",
		"The weather today was fairly pleasant",
	}, s.Key)
}

func TestSummarizeCountsCharactersNotBytes(t *testing.T) {
	s := Summarize([]string{"ééééé ééééé. Это тест. 日本語のテキストです. Ça reste une très belle journée."})

	assert.Equal(t, 1, s.Sentences)
	assert.Equal(t, []string{"Ça reste une très belle journée"}, s.Key)
}

func TestSummarizeWordsAndKeywords(t *testing.T) {
	s := Summarize([]string{"Data data DATA with that from model model pipeline"})

	// stop words still count towards the total
	assert.Equal(t, 9, s.Words)
	assert.Equal(t, []Keyword{
		{Word: "data", Count: 3},
		{Word: "model", Count: 2},
		{Word: "pipeline", Count: 1},
	}, s.Keywords)
}

func TestSummarizeKeepsBestInDocumentOrder(t *testing.T) {
	var pages []string
	for i := 0; i < 8; i++ {
		stem := strings.Repeat(string(rune('f'+i)), 4)
		pages = append(pages, fmt.Sprintf("%[1]sa %[1]sb %[1]sc %[1]sd %[1]se.", stem))
	}
	pages = append(pages, "Important engine engine engine engine details.")
	pages = append([]string{"Important engine engine engine overview."}, pages...)

	s := Summarize(pages)
	require.Len(t, s.Key, 5)
	assert.Equal(t, "Important engine engine engine overview", s.Key[0])
	assert.Equal(t, "Important engine engine engine engine details", s.Key[4])
}

func TestKeywordsCapped(t *testing.T) {
	var words []string
	for c := 'a'; c <= 't'; c++ {
		words = append(words, strings.Repeat(string(c), 4))
	}
	s := Summarize([]string{strings.Join(words, " ")})
	assert.Len(t, s.Keywords, 15)
	assert.Equal(t, "aaaa", s.Keywords[0].Word)
}

func TestFormat(t *testing.T) {
	s := &Summary{
		Pages:     3,
		Words:     12345,
		Sentences: 2,
		Key:       []string{"First key sentence here", "Second key sentence here"},
		Keywords:  []Keyword{{Word: "alpha", Count: 4}, {Word: "beta", Count: 2}},
	}

	want := "📄 Document Statistics\n" +
		"   Pages: 3\n" +
		"   Total words: 12,345\n" +
		"   Sentences: 2\n" +
		"\n" +
		"📝 Key Summary (5 key sentences):\n\n" +
		"1. First key sentence here.\n\n" +
		"2. Second key sentence here.\n\n" +
		"---\n\n" +
		"Top Keywords: alpha (4), beta (2)"
	assert.Equal(t, want, s.Format())
}

func TestPDF(t *testing.T) {
	data := testutil.PDFWithText(t, "The telescope observed distant galaxies overnight. The telescope recorded spectra.")

	var reports []int
	blob, err := PDF(data, func(p int) { reports = append(reports, p) })
	require.NoError(t, err)

	assert.Equal(t, pdf.ContentTypeText, blob.ContentType)
	assert.Contains(t, string(blob.Data), "Pages: 1")
	assert.Contains(t, string(blob.Data), "Top Keywords: ")
	assert.Equal(t, []int{60, 70, 85, 100}, reports)
}

func TestPDFReportsEachPage(t *testing.T) {
	data := testutil.PDFWithText(t,
		"The first page talks about orbital mechanics.",
		"The second page talks about launch windows.",
		"The third page talks about fuel margins.",
		"The fourth page talks about recovery plans.",
	)

	var reports []int
	_, err := PDF(data, func(p int) { reports = append(reports, p) })
	require.NoError(t, err)

	assert.Equal(t, []int{15, 30, 45, 60, 70, 85, 100}, reports)
}
