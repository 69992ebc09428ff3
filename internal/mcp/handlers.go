package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/app"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/ops"
	"github.com/hpungsan/remixer/internal/remix"
	"github.com/hpungsan/remixer/internal/social"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app    *app.App
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a, logger: a.Logger.Named("mcp")}
}

// ResolveRequest represents the arguments for post_resolve.
type ResolveRequest struct {
	Post string `json:"post"`
}

// RemixRequest represents the arguments for content_remix.
type RemixRequest struct {
	OutputType string `json:"output_type"`
	InputText  string `json:"input_text,omitempty"`
	PostURL    string `json:"post_url,omitempty"`
	Save       bool   `json:"save,omitempty"`
}

// RemixResponse is the content_remix result.
type RemixResponse struct {
	Result   string             `json:"result"`
	Parsed   *remix.Output      `json:"parsed"`
	Source   *social.Resolution `json:"source,omitempty"`
	SavedIDs []string           `json:"saved_ids,omitempty"`
}

// PDFRequest represents the arguments for pdf_extract.
type PDFRequest struct {
	Base64File string `json:"base64_file"`
}

// StoreRequest represents the arguments for saved_store.
type StoreRequest struct {
	Content        string  `json:"content"`
	IsThread       bool    `json:"is_thread,omitempty"`
	ThreadPosition *int    `json:"thread_position,omitempty"`
	Title          *string `json:"title,omitempty"`
	Kind           string  `json:"kind,omitempty"`
	SourceURL      *string `json:"source_url,omitempty"`
}

// ListRequest represents the arguments for saved_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// IDRequest represents the arguments for saved_fetch and saved_delete.
type IDRequest struct {
	ID string `json:"id"`
}

// UpdateRequest represents the arguments for saved_update.
type UpdateRequest struct {
	ID             string  `json:"id"`
	Content        *string `json:"content,omitempty"`
	IsThread       *bool   `json:"is_thread,omitempty"`
	ThreadPosition *int    `json:"thread_position,omitempty"`
	Title          *string `json:"title,omitempty"`
}

// ExportRequest represents the arguments for saved_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for saved_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// HandleResolve handles the post_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ResolveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	res, err := h.app.Resolver.Resolve(ctx, input.Post)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(res)
}

// HandleRemix handles the content_remix tool call.
func (h *Handlers) HandleRemix(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[RemixRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	outputType, err := remix.ParseOutputType(input.OutputType)
	if err != nil {
		return errorResult(err), nil
	}

	var resp RemixResponse
	text := input.InputText
	if input.PostURL != "" {
		res, err := h.app.Resolver.Resolve(ctx, input.PostURL)
		if err != nil {
			return h.errorResult(err), nil
		}
		resp.Source = res
		text = joinSource(res.Text, text)
	}

	resp.Result, err = h.app.Invoker.Remix(ctx, text, outputType)
	if err != nil {
		return h.errorResult(err), nil
	}
	resp.Parsed = remix.Parse(resp.Result, outputType)

	if input.Save && !resp.Parsed.Malformed {
		var sourceURL *string
		if input.PostURL != "" {
			sourceURL = &input.PostURL
		}
		saved, err := ops.SaveRemix(ctx, h.app.Items, h.app.Config, ops.SaveRemixInput{
			Output:    resp.Parsed,
			SourceURL: sourceURL,
		})
		if err != nil {
			return h.errorResult(err), nil
		}
		resp.SavedIDs = saved.IDs
	}

	return successResult(resp)
}

// joinSource puts resolved post text ahead of any user text.
func joinSource(postText, inputText string) string {
	if inputText == "" {
		return postText
	}
	return postText + "\n\n" + inputText
}

// HandlePDF handles the pdf_extract tool call.
func (h *Handlers) HandlePDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[PDFRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	text, err := h.app.Invoker.ExtractPDF(ctx, input.Base64File)
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(map[string]string{"result": text})
}

// HandleStore handles the saved_store tool call.
func (h *Handlers) HandleStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[StoreRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Save(ctx, h.app.Items, h.app.Config, ops.SaveInput{
		Content:        input.Content,
		IsThread:       input.IsThread,
		ThreadPosition: input.ThreadPosition,
		Title:          input.Title,
		Kind:           input.Kind,
		SourceURL:      input.SourceURL,
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the saved_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.List(ctx, h.app.Items, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetch handles the saved_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Fetch(ctx, h.app.Items, ops.FetchInput{ID: input.ID})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the saved_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[UpdateRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Update(ctx, h.app.Items, h.app.Config, ops.UpdateInput{
		ID:             input.ID,
		Content:        input.Content,
		IsThread:       input.IsThread,
		ThreadPosition: input.ThreadPosition,
		Title:          input.Title,
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the saved_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[IDRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Delete(ctx, h.app.Items, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the saved_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Export(ctx, h.app.Items, h.app.Config, ops.ExportInput{
		Path:       input.Path,
		ExportsDir: h.app.ExportsDir(),
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the saved_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := bindArgs[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Import(ctx, h.app.Items, h.app.Config, ops.ImportInput{
		Path:       input.Path,
		Mode:       ops.ImportMode(input.Mode),
		ExportsDir: h.app.ExportsDir(),
	})
	if err != nil {
		return h.errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult logs server-side failures before building the result.
func (h *Handlers) errorResult(err error) *mcp.CallToolResult {
	if rErr, ok := errors.As(err); !ok || rErr.Status >= 500 {
		h.logger.Error("tool call failed", zap.Error(err))
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		if rErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
