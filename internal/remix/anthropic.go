package remix

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hpungsan/remixer/internal/errors"
)

// Generation defaults.
const (
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 1024
)

// AnthropicConfig configures the Anthropic generator.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Anthropic implements Generator with the Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic generator. Extra request options are
// passed to the SDK client (tests point it at a local server).
func NewAnthropic(cfg AnthropicConfig, opts ...option.RequestOption) *Anthropic {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)...)
	return &Anthropic{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Generate sends blocks as a single user message.
func (a *Anthropic) Generate(ctx context.Context, blocks []Block) ([]Block, error) {
	content := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case BlockText:
			content = append(content, anthropic.NewTextBlock(b.Text))
		case BlockPDF:
			content = append(content, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: b.Data}))
		default:
			return nil, fmt.Errorf("unsupported block type %q", b.Type)
		}
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(content...),
		},
	})
	if err != nil {
		return nil, apiError(err)
	}

	out := make([]Block, 0, len(message.Content))
	for _, c := range message.Content {
		if c.Type == "text" {
			out = append(out, TextBlock(c.Text))
		}
	}
	return out, nil
}

// apiError maps SDK errors onto the error taxonomy.
func apiError(err error) error {
	var apiErr *anthropic.Error
	if !stderrors.As(err, &apiErr) {
		return errors.NewUpstreamError("Anthropic", 0)
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		return errors.NewRateLimitExceeded(retryAfterMinutes(apiErr.Response))
	}
	return errors.NewUpstreamError("Anthropic", apiErr.StatusCode)
}

// retryAfterMinutes reads a retry-after header in seconds, rounded up.
func retryAfterMinutes(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("retry-after"))
	if err != nil || secs <= 0 {
		return 0
	}
	return int(math.Ceil(float64(secs) / 60))
}
