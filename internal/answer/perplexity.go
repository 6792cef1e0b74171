// Package answer implements the Answer Providers: a Perplexity chat
// completions client and a deterministic echo provider for development.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-inline-answer-bot/internal/observability"
)

const (
	// DefaultBaseURL is the public Perplexity API.
	DefaultBaseURL = "https://api.perplexity.ai"
	// DefaultModel is used when no model is configured.
	DefaultModel = "sonar"

	systemPrompt = "You are a helpful assistant. Reply only in plain text. Do not use markdown or links."

	maxErrorBody = 512
)

// ErrMissingAPIKey is returned by Answer when no key is configured.
var ErrMissingAPIKey = errors.New("answer: perplexity api key not configured")

// Perplexity answers questions through the OpenAI-compatible
// /chat/completions endpoint. Deadlines come from the caller's context.
type Perplexity struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
}

// NewPerplexity returns a client with defaults for empty baseURL/model.
func NewPerplexity(httpClient *http.Client, baseURL, apiKey, model string) *Perplexity {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Perplexity{
		HTTPClient: httpClient,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     float64       `json:"temperature"`
	MaxTokens       int           `json:"max_tokens"`
	Stream          bool          `json:"stream"`
	ReturnCitations bool          `json:"return_citations"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Answer *string `json:"answer"`
}

// Answer sends question and returns the reply text.
//
// The reply is taken from choices[0].message.content; failing that, from a
// top-level "answer" field; failing both, the raw body is returned as is.
// Non-2xx statuses are errors carrying the status and a body excerpt.
func (p *Perplexity) Answer(ctx context.Context, question string) (string, error) {
	if p.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	ctx, span := observability.Tracer("answer/Perplexity").Start(ctx, "Answer",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("llm.model", p.Model)),
	)
	defer span.End()

	body, err := json.Marshal(chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("answer/perplexity: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("answer/perplexity: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("answer/perplexity: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("answer/perplexity: reading response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("answer/perplexity: HTTP %d: %s", resp.StatusCode, excerpt(raw))
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return extract(raw), nil
}

func extract(raw []byte) string {
	var r chatResponse
	if err := json.Unmarshal(raw, &r); err == nil {
		if len(r.Choices) > 0 && r.Choices[0].Message.Content != nil {
			return *r.Choices[0].Message.Content
		}
		if r.Answer != nil {
			return *r.Answer
		}
	}
	return string(raw)
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
