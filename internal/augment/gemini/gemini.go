// Package gemini augments reviews with the Google Generative Language
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	serviceName = "gemini"
)

// ErrNoCandidates is returned when the API answers 200 without usable text.
var ErrNoCandidates = errors.New("gemini: response contained no text")

// Doer sends an HTTP request. *httpclient.CircuitBreakerClient and
// *httpclient.Client satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client is an augment.Augmenter backed by Gemini.
type Client struct {
	http     Doer
	endpoint string
	apiKey   string
	logger   *slog.Logger
}

// New creates a Gemini client. An API key is required.
func New(cfg Config, doer Doer, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:     doer,
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model),
		apiKey:   cfg.APIKey,
		logger:   logger,
	}, nil
}

// Augment issues the response, summary and actions prompts concurrently.
// The first failure cancels the others.
func (c *Client) Augment(ctx context.Context, rating int, text string) (domain.Augmentation, error) {
	var aug domain.Augmentation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := c.generate(gctx, responsePrompt(rating, text), responseConfig)
		if err != nil {
			return fmt.Errorf("generate response: %w", err)
		}
		aug.Response = out
		return nil
	})
	g.Go(func() error {
		out, err := c.generate(gctx, summaryPrompt(text), summaryConfig)
		if err != nil {
			return fmt.Errorf("generate summary: %w", err)
		}
		aug.Summary = out
		return nil
	})
	g.Go(func() error {
		out, err := c.generate(gctx, actionsPrompt(rating, text), actionsConfig)
		if err != nil {
			return fmt.Errorf("generate actions: %w", err)
		}
		aug.Actions = out
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.WarnContext(ctx, "gemini augmentation failed",
			slog.Int("rating", rating),
			slog.String("error", err.Error()),
		)
		return domain.Augmentation{}, err
	}
	return aug, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, prompt string, gc generationConfig) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: gc,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, cand := range out.Candidates {
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}
	return "", ErrNoCandidates
}
