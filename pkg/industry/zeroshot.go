package industry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Prediction holds candidate labels sorted by descending score.
type Prediction struct {
	Labels []string
	Scores []float64
}

// ZeroShot assigns each text a ranking over the given labels without
// task-specific training.
type ZeroShot interface {
	Predict(ctx context.Context, texts, labels []string) ([]Prediction, error)
}

// Config controls which zero-shot provider is built and how.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	Endpoint   string
	MaxBatch   int
	HTTPClient *http.Client
}

var (
	ErrUnsupportedProvider = errors.New("unsupported zero-shot provider")
	ErrMissingAPIKey       = errors.New("zero-shot classification requires an API key (set classifier.api_key in config or HF_API_TOKEN)")
	ErrProviderDisabled    = errors.New("zero-shot classification is disabled")
)

const (
	defaultProvider = "huggingface"
	defaultModel    = "valhalla/distilbart-mnli-12-3"
	defaultMaxBatch = 16
)

// NewZeroShot builds a concrete ZeroShot implementation based on the provided config.
// Callers treat any error as "capability unavailable".
func NewZeroShot(cfg Config) (ZeroShot, error) {
	cfg.Provider = strings.TrimSpace(strings.ToLower(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = defaultProvider
	}

	switch cfg.Provider {
	case "huggingface", "hf":
		return newHuggingFace(cfg)
	case "keyword":
		return NewKeywordModel(), nil
	case "none", "off":
		return nil, ErrProviderDisabled
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
