package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/testutil"
)

type fakeEngine struct {
	text   string
	err    error
	inputs []Input
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, in Input) (string, error) {
	f.inputs = append(f.inputs, in)
	return f.text, f.err
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		lang    string
		want    []string
		wantErr bool
	}{
		{"eng", []string{"eng"}, false},
		{"eng+fra", []string{"eng", "fra"}, false},
		{" chi_sim ", []string{"chi_sim"}, false},
		{"", nil, true},
		{"en", nil, true},
		{"eng+", nil, true},
		{"../etc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got, err := ParseLanguage(tt.lang)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, pdf.ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecognizeImage(t *testing.T) {
	engine := &fakeEngine{text: "  hello world \n"}
	doc := pdf.Document{Name: "scan.png", Data: testutil.PNG(t, 20, 10)}

	var reports []int
	blob, err := Recognize(context.Background(), engine, doc, Options{Language: "eng+deu"}, func(p int) {
		reports = append(reports, p)
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", string(blob.Data))
	assert.Equal(t, pdf.ContentTypeText, blob.ContentType)
	assert.Equal(t, []int{10, 100}, reports)
	require.Len(t, engine.inputs, 1)
	assert.Equal(t, []string{"eng", "deu"}, engine.inputs[0].Languages)
	assert.Equal(t, doc.Data, engine.inputs[0].Image)
}

func TestRecognizeEngineError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("no tessdata")}
	doc := pdf.Document{Name: "scan.png", Data: testutil.PNG(t, 4, 4)}

	_, err := Recognize(context.Background(), engine, doc, Options{Language: "eng"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tessdata")
}

func TestRecognizeRejectsBadLanguage(t *testing.T) {
	engine := &fakeEngine{}
	doc := pdf.Document{Name: "scan.png", Data: testutil.PNG(t, 4, 4)}

	_, err := Recognize(context.Background(), engine, doc, Options{Language: "x"}, nil)
	assert.ErrorIs(t, err, pdf.ErrInvalidOptions)
	assert.Empty(t, engine.inputs)
}

func TestRecognizePDFPages(t *testing.T) {
	engine := &fakeEngine{text: "text"}
	doc := pdf.Document{Name: "doc.pdf", Data: testutil.PDF(t, 3)}

	blob, err := Recognize(context.Background(), engine, doc, Options{Language: "eng", Pages: []int{1, 3}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "--- Page 1 ---\ntext\n\n--- Page 3 ---\ntext", string(blob.Data))
	require.Len(t, engine.inputs, 2)
	assert.Equal(t, 144, engine.inputs[0].DPI)
	assert.True(t, len(engine.inputs[0].Image) > 8)
}

func TestRecognizePDFDefaultsToFirstPage(t *testing.T) {
	engine := &fakeEngine{text: "only"}
	doc := pdf.Document{Name: "doc.pdf", Data: testutil.PDF(t, 2)}

	blob, err := Recognize(context.Background(), engine, doc, Options{Language: "eng"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "only", string(blob.Data))
	assert.Len(t, engine.inputs, 1)
}

func TestRecognizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &fakeEngine{text: "x"}
	doc := pdf.Document{Name: "doc.pdf", Data: testutil.PDF(t, 1)}
	_, err := Recognize(ctx, engine, doc, Options{Language: "eng"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
