package descriptions

import (
	"fmt"
	"sort"
	"strings"
)

// Descriptions for the file tools that sit next to the catalog tools

const (
	PDFReadFileDescription = `Extract readable text from a PDF inside the configured directory.

**When to use:** Need the text of a document for analysis, search or summarizing by the model itself.

**Examples:**
• "Read contracts/lease.pdf and list the termination clauses"
• "Get the text of manual.pdf to answer a question about setup"

**Best practices:** Check content_type in the response. "scanned_images" means the pages carry no text layer, run pdf_ocr_pdf instead.`

	PDFValidateFileDescription = `Check that a file is a PDF the tools can open.

**When to use:** Before running a tool on a file of unknown origin, or to explain why a tool failed.

**Examples:**
• "Is upload-17.pdf a valid PDF?"`

	PDFStatsFileDescription = `Get page count, size, dates and document info (title, author, producer) of a PDF.

**When to use:** Planning page ranges for split, remove or organize, or checking whether a file is encrypted before unlock.

**Examples:**
• "How many pages does report.pdf have?"
• "Is statement.pdf password protected?"`

	PDFSearchDirectoryDescription = `Find input files (PDF, images, DOCX, HTML, Markdown) below a directory, with optional fuzzy matching on the name.

**When to use:** The user names a document loosely ("the March invoice") or you need paths to pass to a tool.

**Examples:**
• "Find invoice march" with query "invoice march"
• List everything in scans/ by setting directory only`

	PDFServerInfoDescription = `Get server version, configured directories, host resources, available tools and usage guidance.

**When to use:** At the start of a session to learn where inputs are read from and results are written to.`

	PDFListToolsDescription = `List the PDF tools in the catalog, optionally filtered by a search term and category.

**When to use:** Discover which tool fits a request ("make it smaller" is compress-pdf) and which ones are not available yet.`

	UsageGuide = `Usage guidance:
• Paths are relative to the configured directory or absolute paths inside it.
• Catalog tools take "paths" (array) and an optional "options" object, and write their result to the output directory.
• Text results (pdf-to-text, ocr-pdf, summarize-pdf) are also returned inline.
• Page numbers in options are 1-based.
• Use pdf_stats_file to get the page count before choosing page ranges.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_read_file":        PDFReadFileDescription,
	"pdf_validate_file":    PDFValidateFileDescription,
	"pdf_stats_file":       PDFStatsFileDescription,
	"pdf_search_directory": PDFSearchDirectoryDescription,
	"pdf_server_info":      PDFServerInfoDescription,
	"pdf_list_tools":       PDFListToolsDescription,
}

// OptionsHelp documents the options object accepted by each catalog tool, keyed by slug
var OptionsHelp = map[string]string{
	"merge-pdf":      `No options. Files are merged in the order of "paths".`,
	"split-pdf":      `mode: "ranges" | "extract" | "all" | "burst" (default all). expr: "1-3, 7" for ranges and burst, "2, 5" for extract. ranges: [{"from":1,"to":3}]. pages: [2,5]. Burst returns a zip with one PDF per page.`,
	"remove-pages":   `pages: [2, 4] or expr: "2, 4". Removing every page is an error.`,
	"organize-pages": `order: [3, 1, 2] or expr: "3, 1, 2". Pages may repeat; unlisted pages are dropped.`,
	"rotate-pdf":     `angle: 90 | 180 | 270 (default 90), added to the current rotation. pages: [1, 3] (default all).`,
	"compress-pdf":   `level: "low" | "medium" | "high" | "lossless" (default medium). Lossy levels re-render pages as JPEG.`,
	"repair-pdf":     `No options.`,
	"jpg-to-pdf":     `pageSize: "fit" | "a4" | "letter" (default fit). orientation: "portrait" | "landscape" | "auto". margin: points.`,
	"png-to-pdf":     `pageSize: "fit" | "a4" | "letter" (default fit). orientation: "portrait" | "landscape" | "auto". margin: points.`,
	"word-to-pdf":    `No options.`,
	"html-to-pdf":    `No options.`,
	"markdown-to-pdf": `No options.`,
	"pdf-to-jpg":     `quality: 0..1 (default 0.85). scale: render scale, 1 is 72 dpi (default 2).`,
	"pdf-to-png":     `scale: render scale, 1 is 72 dpi (default 2).`,
	"pdf-to-text":    `No options.`,
	"pdf-to-word":    `No options.`,
	"add-watermark":  `text (default CONFIDENTIAL), fontSize (60), opacity 0..1 (0.15), rotation degrees (-45), color {"r":0.5,"g":0.5,"b":0.5}.`,
	"page-numbers":   `position: "bottom-center" | "bottom-left" | "bottom-right" | "top-center" | "top-left" | "top-right". fontSize (12). startNumber (1). format: "number" | "page-of-total".`,
	"annotate-pdf":   `annotations: [{"text":"Approved","page":1,"x":72,"y":72,"fontSize":14,"color":{"r":1,"g":0,"b":0}}]. x and y are points from the top-left corner.`,
	"sign-pdf":       `Pass the signature image with "signature_path". page (1), x, y, width, height in points from the top-left; omit width and height for the default spot. allPages: true stamps every page.`,
	"protect-pdf":    `password (required), ownerPassword (defaults to password), permissions: "all" | "print" | "none".`,
	"unlock-pdf":     `password: the document password.`,
	"ocr-pdf":        `language: "eng", "deu", "eng+fra"... (default from server config). pages: [1, 2] for PDFs (default first page).`,
	"summarize-pdf":  `No options.`,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// CatalogToolDescription builds the MCP description of a catalog tool
func CatalogToolDescription(slug, summary string, inputs []string, multiFile bool) string {
	var b strings.Builder
	b.WriteString(summary)
	files := "one file"
	if multiFile {
		files = "one or more files"
	}
	fmt.Fprintf(&b, "\n\n**Input:** %s (%s).", files, strings.Join(inputs, ", "))
	if help, ok := OptionsHelp[slug]; ok {
		b.WriteString("\n\n**Options:** ")
		b.WriteString(help)
	}
	return b.String()
}

// GetAllToolNames returns the names of the file tools in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
