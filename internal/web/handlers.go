package web

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/app"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
	"github.com/hpungsan/remixer/internal/ops"
	"github.com/hpungsan/remixer/internal/remix"
	"github.com/hpungsan/remixer/internal/social"
)

// Handlers contains HTTP route handlers for the remix API.
type Handlers struct {
	app      *app.App
	logger   *zap.Logger
	renderer *Renderer
	version  string
}

// HandlePost handles GET /api/tweets/{id}: the raw post lookup payload.
func (h *Handlers) HandlePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.logger.Debug("fetching post", zap.String("id", id))

	payload, err := h.app.Fetcher.Post(r.Context(), id)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderRawJSON(w, payload)
}

// HandleConversation handles GET /api/tweets/conversation/{id}: the raw
// conversation search payload.
func (h *Handlers) HandleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.logger.Debug("fetching conversation", zap.String("id", id))

	payload, err := h.app.Fetcher.Conversation(r.Context(), id)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderRawJSON(w, payload)
}

// HandleThread handles GET /api/threads/{id}: the post's text, joined with
// the rest of its thread when there is one.
func (h *Handlers) HandleThread(w http.ResponseWriter, r *http.Request) {
	res, err := h.app.Resolver.Resolve(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, res)
}

// remixRequest is the POST /api/remix body.
type remixRequest struct {
	InputText  string `json:"inputText"`
	OutputType string `json:"outputType"`

	// PostURL, when set, is resolved to thread text that becomes the input.
	// InputText, if also set, is appended after it.
	PostURL string `json:"postUrl,omitempty"`

	// Save stores the parsed output as saved items. Malformed output is
	// returned unsaved.
	Save bool `json:"save,omitempty"`
}

// remixResponse is the POST /api/remix result. Result is the raw generated
// text; Parsed is its validated view, flagged malformed rather than failing.
type remixResponse struct {
	Result   string             `json:"result"`
	Parsed   *remix.Output      `json:"parsed"`
	Source   *social.Resolution `json:"source,omitempty"`
	SavedIDs []string           `json:"savedIds,omitempty"`
}

// HandleRemix handles POST /api/remix.
func (h *Handlers) HandleRemix(w http.ResponseWriter, r *http.Request) {
	var req remixRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderError(w, h.logger, err)
		return
	}

	outputType, err := remix.ParseOutputType(req.OutputType)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	input := req.InputText
	var source *social.Resolution
	if strings.TrimSpace(req.PostURL) != "" {
		source, err = h.app.Resolver.Resolve(r.Context(), req.PostURL)
		if err != nil {
			renderError(w, h.logger, err)
			return
		}
		input = source.Text
		if extra := strings.TrimSpace(req.InputText); extra != "" {
			input += "\n\n" + extra
		}
	}

	raw, err := h.app.Invoker.Remix(r.Context(), input, outputType)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	resp := remixResponse{
		Result: raw,
		Parsed: remix.Parse(raw, outputType),
		Source: source,
	}
	if resp.Parsed.Malformed {
		h.logger.Warn("generated output did not match the requested shape",
			zap.String("output_type", string(outputType)),
			zap.String("problem", resp.Parsed.Problem),
		)
	}

	if req.Save && !resp.Parsed.Malformed {
		var sourceURL *string
		if req.PostURL != "" {
			sourceURL = &req.PostURL
		}
		saved, err := ops.SaveRemix(r.Context(), h.app.Items, h.app.Config, ops.SaveRemixInput{
			Output:    resp.Parsed,
			SourceURL: sourceURL,
		})
		if err != nil {
			renderError(w, h.logger, err)
			return
		}
		resp.SavedIDs = saved.IDs
	}

	renderJSON(w, http.StatusOK, resp)
}

// HandleProcessPDF handles POST /api/process-pdf.
func (h *Handlers) HandleProcessPDF(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Base64File string `json:"base64File"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		renderError(w, h.logger, err)
		return
	}

	text, err := h.app.Invoker.ExtractPDF(r.Context(), req.Base64File)
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"result": text})
}

// HandleListSaved handles GET /api/saved.
func (h *Handlers) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.app.Items, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// saveRequest is the POST /api/saved body.
type saveRequest struct {
	Content        string  `json:"content"`
	IsThread       bool    `json:"isThread"`
	ThreadPosition *int    `json:"threadPosition"`
	Title          *string `json:"title"`
	Kind           string  `json:"kind"`
	SourceURL      *string `json:"sourceUrl"`
}

// HandleSave handles POST /api/saved.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderError(w, h.logger, err)
		return
	}

	out, err := ops.Save(r.Context(), h.app.Items, h.app.Config, ops.SaveInput{
		Content:        req.Content,
		IsThread:       req.IsThread,
		ThreadPosition: req.ThreadPosition,
		Title:          req.Title,
		Kind:           req.Kind,
		SourceURL:      req.SourceURL,
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusCreated, out)
}

// HandleFetchSaved handles GET /api/saved/{id}.
func (h *Handlers) HandleFetchSaved(w http.ResponseWriter, r *http.Request) {
	it, err := ops.Fetch(r.Context(), h.app.Items, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, it)
}

// updateRequest is the PATCH /api/saved/{id} body. Absent fields are left
// unchanged.
type updateRequest struct {
	Content        *string `json:"content"`
	IsThread       *bool   `json:"isThread"`
	ThreadPosition *int    `json:"threadPosition"`
	Title          *string `json:"title"`
}

// HandleUpdateSaved handles PATCH /api/saved/{id}.
func (h *Handlers) HandleUpdateSaved(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		renderError(w, h.logger, err)
		return
	}

	it, err := ops.Update(r.Context(), h.app.Items, h.app.Config, ops.UpdateInput{
		ID:             r.PathValue("id"),
		Content:        req.Content,
		IsThread:       req.IsThread,
		ThreadPosition: req.ThreadPosition,
		Title:          req.Title,
	})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, it)
}

// HandleDeleteSaved handles DELETE /api/saved/{id}.
func (h *Handlers) HandleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.app.Items, ops.DeleteInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandlePreview handles GET /api/saved/{id}/preview: the item's content
// rendered from Markdown into an HTML page.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	it, err := ops.Fetch(r.Context(), h.app.Items, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, h.logger, err)
		return
	}

	h.renderer.renderPage(w, h.logger, "preview", PreviewPageData{
		Title:        displayTitle(it),
		Version:      h.version,
		Kind:         it.Kind,
		CreatedAt:    it.CreatedAt,
		RenderedHTML: renderMarkdown(it.Content),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DB.PingContext(r.Context()); err != nil {
		renderError(w, h.logger, errors.NewInternal(err))
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       h.version,
		"cachedEntries": h.app.Cache.Len(),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// displayTitle returns the item's title, or a snippet of its content.
func displayTitle(it *item.SavedItem) string {
	if it.Title != nil && *it.Title != "" {
		return *it.Title
	}
	return item.Snippet(it.Content, 60)
}
