// Package genai is the boundary to the external text generation service.
// One prompt goes in, one completion comes out; every failure surfaces as
// apperr.ErrSummarization.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
)

// Summarizer turns a prompt into generated text.
type Summarizer interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

var errEmptyCompletion = errors.New("response has no candidate text")

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GeminiClient calls the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	http   *resty.Client
	model  string
	tracer trace.Tracer
	logger zerolog.Logger
}

func NewGeminiClient(cfg Config, logger zerolog.Logger) *GeminiClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(isTransient)

	return &GeminiClient{
		http:   client,
		model:  cfg.Model,
		tracer: otel.Tracer("mediflow/genai"),
		logger: logger.With().Str("component", "gemini").Logger(),
	}
}

// isTransient retries transport failures, throttling and upstream 5xx.
func isTransient(r *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
}

func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "gemini.generateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("genai.model", c.model),
			attribute.Int("genai.prompt_length", len(prompt)),
		))
	defer span.End()

	start := time.Now()
	text, status, err := c.call(ctx, prompt)
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		c.logger.Error().Err(err).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("text generation failed")
		return "", apperr.Summarization(err)
	}

	c.logger.Info().
		Int("prompt_length", len(prompt)).
		Int("completion_length", len(text)).
		Dur("latency", time.Since(start)).
		Msg("text generated")
	return text, nil
}

func (c *GeminiClient) call(ctx context.Context, prompt string) (string, int, error) {
	body := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetPathParam("model", c.model).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", 0, fmt.Errorf("call gemini: %w", err)
	}
	if resp.IsError() {
		return "", resp.StatusCode(), fmt.Errorf("gemini returned %s: %s", resp.Status(), truncate(resp.String(), 512))
	}

	// The body is decoded whatever Content-Type the server declares.
	var out generateResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", resp.StatusCode(), fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
		return "", resp.StatusCode(), errEmptyCompletion
	}
	return out.Candidates[0].Content.Parts[0].Text, resp.StatusCode(), nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
