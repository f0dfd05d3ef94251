package extract

import (
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/feever-health/feever/internal/config"
	"github.com/feever-health/feever/internal/dify"
	"github.com/feever-health/feever/pkg/anthropic"
)

// Extractor reads a bill image and returns the raw model answer, which
// ParseBill turns into structured line items.
type Extractor interface {
	ExtractBill(ctx context.Context, filename string, content io.Reader, prompt string) (any, error)
}

// DefaultPrompt is used when the caller supplies no extraction prompt.
const DefaultPrompt = `Analyze this medical bill. Return JSON with "charges" (array of {description, amount}) and "deductions" (array of {description, amount}).`

// NewExtractor builds the configured extraction provider.
func NewExtractor(cfg config.ExtractConfig, difyCfg config.DifyConfig, anthropicCfg config.AnthropicConfig) (Extractor, error) {
	switch cfg.Provider {
	case "", "dify":
		client, err := dify.NewClient(difyCfg)
		if err != nil {
			return nil, eris.Wrap(err, "extract: dify provider")
		}
		return client, nil
	case "anthropic":
		if anthropicCfg.Key == "" {
			return nil, eris.New("extract: anthropic provider requires anthropic.key")
		}
		return NewVisionExtractor(anthropic.NewClient(anthropicCfg.Key), anthropicCfg), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}
