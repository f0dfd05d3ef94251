package extract

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/pkg/anthropic"
)

const (
	defaultVisionModel     = "claude-sonnet-4-5-20250929"
	defaultVisionMaxTokens = 4096
	defaultMediaType       = "image/jpeg"
)

// VisionExtractor reads bills with the Anthropic vision API instead of the
// hosted workflow. Useful when the workflow is down or a bill needs a
// second opinion.
type VisionExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewVisionExtractor creates a VisionExtractor. Zero-valued config fields
// fall back to defaults.
func NewVisionExtractor(client anthropic.Client, cfg config.AnthropicConfig) *VisionExtractor {
	model := cfg.Model
	if model == "" {
		model = defaultVisionModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultVisionMaxTokens
	}
	return &VisionExtractor{client: client, model: model, maxTokens: maxTokens}
}

// ExtractBill sends the bill image with the extraction prompt and returns
// the model's text answer.
func (v *VisionExtractor) ExtractBill(ctx context.Context, filename string, content io.Reader, prompt string) (any, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read bill %s", filename)
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	resp, err := v.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     v.model,
		MaxTokens: v.maxTokens,
		System:    "You are a medical billing assistant. Respond with JSON only.",
		Messages: []anthropic.Message{
			{
				Role: "user",
				Content: []anthropic.ContentBlock{
					anthropic.ImageBlock(mediaTypeFor(filename), data),
					anthropic.TextBlock(prompt),
				},
			},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: vision call for %s", filename)
	}
	resp.Usage.LogUsage(v.model, "bill_extraction")

	if resp.Text == "" {
		return nil, eris.Errorf("extract: vision model returned no text for %s", filename)
	}
	return resp.Text, nil
}

func mediaTypeFor(filename string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if !strings.HasPrefix(mt, "image/") {
		return defaultMediaType
	}
	return mt
}
