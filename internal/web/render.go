package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/errors"
)

// maxBodyBytes bounds JSON request bodies. PDFs arrive base64 encoded, so
// this sits above the default decoded PDF cap.
const maxBodyBytes = 48 << 20

// PreviewPageData is the template data for the saved item preview page.
type PreviewPageData struct {
	Title        string
	Version      string
	Kind         string
	CreatedAt    int64
	RenderedHTML template.HTML
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	pages := map[string]string{
		"preview": "preview.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		templates[name] = template.Must(template.New(file).Funcs(funcMap).ParseFS(templateFS, file))
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, logger *zap.Logger, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		logger.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logger.Error("template execution error", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// errorBody is the JSON error envelope. Rate limit errors also carry
// isRateLimit and resetTime (minutes until the upstream window resets).
type errorBody struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	IsRateLimit bool   `json:"isRateLimit,omitempty"`
	ResetTime   *int   `json:"resetTime,omitempty"`
}

// renderError writes err as a JSON error response and logs it.
func renderError(w http.ResponseWriter, logger *zap.Logger, err error) {
	rErr, ok := errors.As(err)
	if !ok {
		rErr = errors.NewInternal(err)
	}

	body := errorBody{Error: rErr.Message, Code: string(rErr.Code)}
	if minutes, ok := errors.WaitMinutes(rErr); ok {
		body.IsRateLimit = true
		body.ResetTime = &minutes
	}

	if rErr.Status >= 500 {
		logger.Error("request failed", zap.String("code", body.Code), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.String("code", body.Code), zap.String("error", rErr.Message))
	}

	renderJSON(w, rErr.Status, body)
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderRawJSON writes an already encoded payload.
func renderRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.NewContentTooLarge(int(tooLarge.Limit), int(tooLarge.Limit)+1)
		case stderrors.Is(err, io.EOF):
			return errors.NewInvalidRequest("request body is required")
		default:
			return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
		}
	}
	return nil
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
