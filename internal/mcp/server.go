package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/pdf-tools/internal/config"
	"github.com/a3tai/pdf-tools/internal/descriptions"
	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

// inlineTextLimit caps how much of a text result is echoed back to the client
const inlineTextLimit = 64 * 1024

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	dispatcher *tools.Dispatcher
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, dispatcher *tools.Dispatcher) (*Server, error) {
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		dispatcher: dispatcher,
		mcpServer:  mcpServer,
	}

	s.registerFileTools()
	s.registerCatalogTools()

	return s, nil
}

// ToolName is the MCP tool name of a catalog slug
func ToolName(slug string) string {
	return "pdf_" + strings.ReplaceAll(slug, "-", "_")
}

// registerFileTools registers the helpers that inspect files without producing output
func (s *Server) registerFileTools() {
	pathArg := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the PDF file, relative to the configured directory or absolute inside it"),
	)

	s.mcpServer.AddTool(mcp.NewTool("pdf_read_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_read_file")),
		pathArg,
	), s.handlePDFReadFile)

	s.mcpServer.AddTool(mcp.NewTool("pdf_validate_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_validate_file")),
		pathArg,
	), s.handlePDFValidateFile)

	s.mcpServer.AddTool(mcp.NewTool("pdf_stats_file",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_stats_file")),
		pathArg,
	), s.handlePDFStatsFile)

	s.mcpServer.AddTool(mcp.NewTool("pdf_search_directory",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_search_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
	), s.handlePDFSearchDirectory)

	s.mcpServer.AddTool(mcp.NewTool("pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handlePDFServerInfo)

	s.mcpServer.AddTool(mcp.NewTool("pdf_list_tools",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_list_tools")),
		mcp.WithString("query",
			mcp.Description("Search term matched against tool names and descriptions"),
		),
		mcp.WithString("category",
			mcp.Description("Category key: organize, optimize, convert-to, convert-from, edit, security, intelligence"),
		),
	), s.handlePDFListTools)
}

// registerCatalogTools exposes every implemented catalog tool
func (s *Server) registerCatalogTools() {
	for _, tool := range tools.Catalog() {
		if !tool.Implemented {
			continue
		}

		pathsDesc := "Path of the input file"
		if tool.MultiFile {
			pathsDesc = "Paths of the input files, processed in order"
		}
		opts := []mcp.ToolOption{
			mcp.WithDescription(descriptions.CatalogToolDescription(tool.Slug, tool.Description, tool.Inputs, tool.MultiFile)),
			mcp.WithArray("paths",
				mcp.Required(),
				mcp.Description(pathsDesc),
				mcp.WithStringItems(),
			),
			mcp.WithObject("options",
				mcp.Description("Tool options, see the tool description"),
			),
		}
		if tool.Slug == "sign-pdf" {
			opts = append(opts, mcp.WithString("signature_path",
				mcp.Description("Path of the signature image (PNG or JPEG)"),
			))
		}

		s.mcpServer.AddTool(mcp.NewTool(ToolName(tool.Slug), opts...), s.catalogHandler(tool))
	}
}

func (s *Server) catalogHandler(tool tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths, err := request.RequireStringSlice("paths")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		files, err := s.pdfService.LoadDocuments(paths)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		options, err := optionsArgument(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		req := tools.Request{Files: files, Options: options}
		if sigPath := request.GetString("signature_path", ""); sigPath != "" {
			sig, err := s.pdfService.LoadDocument(sigPath)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			req.Signature = &sig
		}

		start := time.Now()
		blob, err := s.dispatcher.Run(ctx, tool.Slug, req, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool.Name, err)), nil
		}

		output, err := s.pdfService.WriteOutput(blob)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		logx.Log.Debug().Str("tool", tool.Slug).Str("output", output).Int64("size", blob.Size()).Msg("mcp tool finished")
		return mcp.NewToolResultText(formatToolRunResult(tool, blob, output, time.Since(start))), nil
	}
}

// optionsArgument accepts the options as a JSON object or a JSON string
func optionsArgument(args map[string]any) (json.RawMessage, error) {
	raw, ok := args["options"]
	if !ok || raw == nil {
		return nil, nil
	}
	if str, ok := raw.(string); ok {
		str = strings.TrimSpace(str)
		if str == "" {
			return nil, nil
		}
		if !json.Valid([]byte(str)) {
			return nil, fmt.Errorf("%w: options is not valid JSON", pdf.ErrInvalidOptions)
		}
		return json.RawMessage(str), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pdf.ErrInvalidOptions, err)
	}
	return data, nil
}

// Handler functions
func (s *Server) handlePDFReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFReadFile(pdf.PDFReadFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Successfully read PDF: %s\n", result.Path)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	responseText += fmt.Sprintf("Size: %d bytes\n", result.Size)
	responseText += fmt.Sprintf("Content Type: %s\n", result.ContentType)
	responseText += fmt.Sprintf("Has Images: %t\n", result.HasImages)
	if result.HasImages {
		responseText += fmt.Sprintf("Image Count: %d\n", result.ImageCount)
	}

	switch result.ContentType {
	case "scanned_images":
		responseText += "\n🔍 RECOMMENDATION: This PDF appears to contain scanned images with little or no extractable text. Use 'pdf_ocr_pdf' to recognize the text.\n"
	case "mixed":
		responseText += "\n💡 INFO: This PDF contains both text and images. Text inside the images is not included, 'pdf_ocr_pdf' can recognize it.\n"
	case "no_content":
		responseText += "\n⚠️  WARNING: This PDF appears to have no readable content or images.\n"
	}

	responseText += "\nContent:\n"
	responseText += result.Content

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFValidateFile(pdf.PDFValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable", result.Path)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handlePDFStatsFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PDFStatsFile(pdf.PDFStatsFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPDFStatsFileResult(result)), nil
}

func (s *Server) handlePDFSearchDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	req := pdf.PDFSearchDirectoryRequest{
		Directory: request.GetString("directory", s.config.PDFDirectory),
		Query:     request.GetString("query", ""),
	}
	if req.Directory == "" {
		req.Directory = s.config.PDFDirectory
	}

	result, err := s.pdfService.PDFSearchDirectory(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.TotalCount == 0 {
		responseText := fmt.Sprintf("No input files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
		return mcp.NewToolResultText(responseText), nil
	}

	return mcp.NewToolResultText(formatPDFSearchDirectoryResult(result)), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.pdfService.PDFServerInfo(ctx, pdf.PDFServerInfoRequest{
		ServerName:    s.config.ServerName,
		Version:       s.config.Version,
		Tools:         availableTools(),
		UsageGuidance: descriptions.UsageGuide,
	})
	return mcp.NewToolResultText(formatPDFServerInfoResult(result)), nil
}

func (s *Server) handlePDFListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	category := request.GetString("category", "")

	found := tools.Filter(query, category)
	if len(found) == 0 {
		return mcp.NewToolResultText("No tools match the given filter"), nil
	}
	return mcp.NewToolResultText(formatToolList(found)), nil
}

// availableTools describes the registered MCP tools for server info
func availableTools() []pdf.ToolInfo {
	var infos []pdf.ToolInfo
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		infos = append(infos, pdf.ToolInfo{
			Name:        name,
			Description: firstLine(desc),
			Usage:       "Inspect files without writing output",
			Parameters:  fileToolParameters[name],
		})
	}
	for _, tool := range tools.Catalog() {
		if !tool.Implemented {
			continue
		}
		params := "paths (required)"
		if _, ok := descriptions.OptionsHelp[tool.Slug]; ok {
			params += ", options"
		}
		if tool.Slug == "sign-pdf" {
			params += ", signature_path"
		}
		infos = append(infos, pdf.ToolInfo{
			Name:        ToolName(tool.Slug),
			Description: tool.Description,
			Usage:       fmt.Sprintf("Writes %s to the output directory", tool.Output),
			Parameters:  params,
		})
	}
	return infos
}

var fileToolParameters = map[string]string{
	"pdf_read_file":        "path (required)",
	"pdf_validate_file":    "path (required)",
	"pdf_stats_file":       "path (required)",
	"pdf_search_directory": "directory, query",
	"pdf_server_info":      "none",
	"pdf_list_tools":       "query, category",
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Formatting functions
func formatToolRunResult(tool tools.Tool, blob *pdf.Blob, output string, elapsed time.Duration) string {
	text := fmt.Sprintf("✅ %s finished in %s\n", tool.Name, elapsed.Round(time.Millisecond))
	text += fmt.Sprintf("📄 Output: %s\n", output)
	text += fmt.Sprintf("📏 Size: %d bytes\n", blob.Size())

	if strings.HasPrefix(blob.ContentType, "text/plain") {
		content, truncated := cutText(blob.Data, inlineTextLimit)
		text += "\nContent:\n" + content
		if truncated {
			text += fmt.Sprintf("\n\n... truncated, the full text is in %s", output)
		}
	}
	return text
}

// cutText returns at most limit bytes of data without splitting a rune.
// Invalid bytes are replaced with U+FFFD.
func cutText(data []byte, limit int) (string, bool) {
	if len(data) <= limit {
		return strings.ToValidUTF8(string(data), "\uFFFD"), false
	}
	cut := limit
	for cut > 0 && limit-cut < utf8.UTFMax && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return strings.ToValidUTF8(string(data[:cut]), "\uFFFD"), true
}

func formatToolList(found []tools.Tool) string {
	text := fmt.Sprintf("🛠️  %d tool(s):\n", len(found))
	for _, tool := range found {
		text += fmt.Sprintf("\n• %s [%s]\n", tool.Name, tool.Category)
		text += fmt.Sprintf("  %s\n", tool.Description)
		if tool.Implemented {
			text += fmt.Sprintf("  MCP tool: %s\n", ToolName(tool.Slug))
		} else {
			text += "  Not available yet\n"
		}
	}
	return text
}

func formatPDFSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s (%s)\n", i+1, file.Name, file.Kind)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func formatPDFStatsFileResult(result *pdf.PDFStatsFileResult) string {
	text := "PDF File Statistics\n"
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Modified: %s\n", result.ModifiedDate)
	text += fmt.Sprintf("Encrypted: %t\n", result.Encrypted)

	if result.Title != "" {
		text += fmt.Sprintf("Title: %s\n", result.Title)
	}
	if result.Author != "" {
		text += fmt.Sprintf("Author: %s\n", result.Author)
	}
	if result.Subject != "" {
		text += fmt.Sprintf("Subject: %s\n", result.Subject)
	}
	if result.Producer != "" {
		text += fmt.Sprintf("Producer: %s\n", result.Producer)
	}
	if result.Creator != "" {
		text += fmt.Sprintf("Creator: %s\n", result.Creator)
	}

	return text
}

func formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	if result.Host.CPUs > 0 {
		text += fmt.Sprintf("🖥️  Host: %d CPUs, %d MB of %d MB memory available\n",
			result.Host.CPUs, result.Host.MemoryAvailable/(1024*1024), result.Host.MemoryTotal/(1024*1024))
	}
	text += "\n"

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d input files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No input files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Handler returns the streamable HTTP transport for mounting under /mcp
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// Run serves the protocol over stdin and stdout until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	logx.Log.Debug().
		Str("directory", s.config.PDFDirectory).
		Str("output", s.config.OutputDirectory).
		Msg("starting MCP server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
