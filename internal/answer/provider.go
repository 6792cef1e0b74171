package answer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tbourn/go-inline-answer-bot/internal/config"
)

// Provider is implemented by every answer source.
type Provider interface {
	Answer(ctx context.Context, question string) (string, error)
}

var (
	_ Provider = (*Perplexity)(nil)
	_ Provider = Echo{}
)

// FromConfig builds the provider selected by ANSWER_PROVIDER.
func FromConfig(cfg config.AnswerConfig, httpClient *http.Client) (Provider, error) {
	switch cfg.Provider {
	case "perplexity", "":
		return NewPerplexity(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "echo":
		return Echo{Delay: cfg.EchoWait}, nil
	default:
		return nil, fmt.Errorf("answer: unknown provider %q", cfg.Provider)
	}
}
