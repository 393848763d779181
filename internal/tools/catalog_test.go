package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLoads(t *testing.T) {
	catalog := Catalog()
	require.NotEmpty(t, catalog)
	assert.Equal(t, "merge-pdf", catalog[0].Slug)

	for _, tool := range catalog {
		_, hasRunner := runners[tool.Slug]
		assert.Equal(t, tool.Implemented, hasRunner, "runner registration for %s", tool.Slug)
	}
}

func TestCatalogIsACopy(t *testing.T) {
	c := Catalog()
	c[0].Name = "changed"
	assert.Equal(t, "Merge PDF", Catalog()[0].Name)
}

func TestBySlug(t *testing.T) {
	tool, err := BySlug("sign-pdf")
	require.NoError(t, err)
	assert.Equal(t, "Sign PDF", tool.Name)
	assert.Equal(t, "edit", tool.Category)

	_, err = BySlug("nope")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		category string
		want     []string
	}{
		{"name match ignores case", "MERGE", "", []string{"merge-pdf"}},
		{"description match", "burst", "all", []string{"split-pdf"}},
		{"category only", "", "security", []string{"protect-pdf", "unlock-pdf", "redact-pdf"}},
		{"query within category", "png", "convert-from", []string{"pdf-to-png"}},
		{"no match", "spreadsheet wizardry", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tool := range Filter(tt.query, tt.category) {
				got = append(got, tool.Slug)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterEmptyReturnsAll(t *testing.T) {
	assert.Len(t, Filter("", "all"), len(Catalog()))
	assert.Len(t, Filter("", ""), len(Catalog()))
}

func TestCategories(t *testing.T) {
	cats := Categories()
	require.NotEmpty(t, cats)
	for _, c := range cats {
		assert.NotEmpty(t, c.Label)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c.Color)
	}
}

func TestResultName(t *testing.T) {
	tests := []struct {
		template string
		input    string
		want     string
	}{
		{"compressed-{name}", "/tmp/report.pdf", "compressed-report.pdf"},
		{"{base}-images.zip", "scan.final.pdf", "scan.final-images.zip"},
		{"merged.pdf", "a.pdf", "merged.pdf"},
		{"signed-{name}", "", "signed-document.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tool{Result: tt.template}.ResultName(tt.input))
	}
}
