package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a3tai/pdf-tools/internal/pdf"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:sz w:val="24"/></w:rPr></w:rPrDefault>
<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="384" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>
<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

// Paragraph is one block of a Word document. Level is 1-6 for headings and 0 for body text.
type Paragraph struct {
	Level int
	Text  string
}

// ToWord writes the text of every page into a DOCX document, one paragraph per page
func ToWord(data []byte, progress pdf.ProgressFunc) (*pdf.Blob, error) {
	pages, err := pdf.ExtractPages(data)
	if err != nil {
		return nil, err
	}

	var paragraphs []Paragraph
	for i, text := range pages {
		for _, block := range strings.Split(text, "\n\n") {
			if block = strings.TrimSpace(block); block != "" {
				paragraphs = append(paragraphs, Paragraph{Text: block})
			}
		}
		progress.Step(i+1, len(pages), 0, 80)
	}

	out, err := WriteDocx(paragraphs)
	if err != nil {
		return nil, err
	}
	progress.Report(100)

	return &pdf.Blob{ContentType: pdf.ContentTypeDOCX, Data: out}, nil
}

// WriteDocx packages paragraphs as a WordprocessingML document
func WriteDocx(paragraphs []Paragraph) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="` + wordNamespace + `"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString("<w:p>")
		if p.Level > 0 {
			fmt.Fprintf(&body, `<w:pPr><w:pStyle w:val="Heading%d"/></w:pPr>`, p.Level)
		}
		for i, line := range strings.Split(p.Text, "\n") {
			body.WriteString("<w:r>")
			if i > 0 {
				body.WriteString("<w:br/>")
			}
			body.WriteString(`<w:t xml:space="preserve">`)
			if err := xml.EscapeText(&body, []byte(line)); err != nil {
				return nil, err
			}
			body.WriteString("</w:t></w:r>")
		}
		body.WriteString("</w:p>")
	}
	body.WriteString("<w:sectPr/></w:body></w:document>")

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", body.Bytes()},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish DOCX: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadDocx returns the non-empty paragraphs of word/document.xml with their heading level
func ReadDocx(data []byte) ([]Paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a DOCX file: %v", pdf.ErrInvalidOptions, err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: DOCX has no word/document.xml", pdf.ErrInvalidOptions)
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	return parseDocumentXML(rc)
}

func parseDocumentXML(r io.Reader) ([]Paragraph, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []Paragraph
		current    *Paragraph
		text       strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				current = &Paragraph{}
				text.Reset()
			case "pStyle":
				if current != nil {
					current.Level = headingLevel(attr(t, "val"))
				}
			case "t":
				inText = true
			case "tab":
				text.WriteString("\t")
			case "br", "cr":
				text.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current != nil {
					current.Text = strings.TrimSpace(text.String())
					if current.Text != "" {
						paragraphs = append(paragraphs, *current)
					}
				}
				current = nil
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return paragraphs, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// headingLevel maps a paragraph style id such as "Heading2" or "Title" to a level
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch s {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if n, ok := strings.CutPrefix(s, "heading"); ok {
		if level, err := strconv.Atoi(n); err == nil && level >= 1 && level <= 6 {
			return level
		}
	}
	return 0
}
