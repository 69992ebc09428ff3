// Package remix turns source text into generated tweets or blog posts.
//
// The generation backend is a Generator port; the Invoker builds the prompt,
// makes exactly one call and returns the raw text. Callers parse the text
// with Parse, which reports shape problems instead of failing.
package remix

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/logging"
	"github.com/hpungsan/remixer/internal/metrics"
)

// BlockType discriminates content blocks.
type BlockType string

const (
	BlockText BlockType = "text"
	BlockPDF  BlockType = "pdf"
)

// Block is one content block sent to or returned by a Generator.
type Block struct {
	Type BlockType
	Text string

	// Data is the base64 payload of a BlockPDF.
	Data string
}

// TextBlock returns a text block.
func TextBlock(s string) Block {
	return Block{Type: BlockText, Text: s}
}

// Generator is a one-shot generation call.
type Generator interface {
	Generate(ctx context.Context, blocks []Block) ([]Block, error)
}

// DefaultMaxPDFBytes caps decoded PDF uploads.
const DefaultMaxPDFBytes = 32 << 20

// Invoker runs remix and PDF extraction requests against a Generator.
type Invoker struct {
	gen         Generator
	maxPDFBytes int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// Option customizes an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(inv *Invoker) { inv.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(inv *Invoker) { inv.metrics = m }
}

// WithMaxPDFBytes caps decoded PDF size. Non-positive values keep the default.
func WithMaxPDFBytes(n int) Option {
	return func(inv *Invoker) {
		if n > 0 {
			inv.maxPDFBytes = n
		}
	}
}

// NewInvoker creates an Invoker over gen.
func NewInvoker(gen Generator, opts ...Option) *Invoker {
	inv := &Invoker{
		gen:         gen,
		maxPDFBytes: DefaultMaxPDFBytes,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Remix generates output of type t from inputText and returns the raw text.
// The text is expected, not guaranteed, to be JSON in the shape the prompt
// asks for.
func (inv *Invoker) Remix(ctx context.Context, inputText string, t OutputType) (string, error) {
	if strings.TrimSpace(inputText) == "" {
		return "", errors.NewInvalidRequest("inputText is required")
	}
	t, err := ParseOutputType(string(t))
	if err != nil {
		return "", err
	}

	inv.logger.Info("sending remix request",
		zap.String("output_type", string(t)),
		zap.Int("input_chars", len(inputText)),
	)

	text, err := inv.generate(ctx, []Block{TextBlock(BuildPrompt(t, inputText))})
	if err != nil {
		inv.metrics.RemixCall(string(t), "error")
		return "", err
	}
	inv.metrics.RemixCall(string(t), "ok")
	return text, nil
}

// ExtractPDF returns the text content of a base64 encoded PDF. A data URL
// prefix ("data:application/pdf;base64,") is accepted and stripped.
func (inv *Invoker) ExtractPDF(ctx context.Context, base64File string) (string, error) {
	data := strings.TrimSpace(base64File)
	if i := strings.Index(data, ";base64,"); i >= 0 && strings.HasPrefix(data, "data:") {
		data = data[i+len(";base64,"):]
	}
	if data == "" {
		return "", errors.NewInvalidRequest("base64File is required")
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", errors.NewInvalidRequest("base64File is not valid base64")
	}
	if len(decoded) > inv.maxPDFBytes {
		return "", errors.NewContentTooLarge(inv.maxPDFBytes, len(decoded))
	}

	inv.logger.Info("sending pdf extraction request", zap.Int("pdf_bytes", len(decoded)))

	text, err := inv.generate(ctx, []Block{
		{Type: BlockPDF, Data: data},
		TextBlock(pdfInstruction),
	})
	if err != nil {
		inv.metrics.RemixCall("pdf", "error")
		return "", err
	}
	inv.metrics.RemixCall("pdf", "ok")
	return text, nil
}

// generate makes the call and returns the first text block.
func (inv *Invoker) generate(ctx context.Context, blocks []Block) (string, error) {
	out, err := inv.gen.Generate(ctx, blocks)
	if err != nil {
		inv.logger.Error("generation call failed", zap.Error(err))
		if _, ok := errors.As(err); ok {
			return "", err
		}
		return "", errors.NewInternal(err)
	}

	for _, b := range out {
		if b.Type == BlockText {
			return b.Text, nil
		}
	}
	inv.logger.Warn("generation returned no text block", zap.Int("blocks", len(out)))
	return "", errors.NewMalformedResponse("Received unexpected response format from API")
}
