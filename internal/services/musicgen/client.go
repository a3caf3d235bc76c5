// Package musicgen provides the client for the hosted music-generation
// service used by the optional music follow-up stage.
package musicgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"minuet/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings for the music-generation API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Request describes a generation job. Field names follow the provider's
// wire format.
type Request struct {
	Prompt       string  `json:"prompt"`
	Style        string  `json:"style,omitempty"`
	Title        string  `json:"title,omitempty"`
	CustomMode   bool    `json:"customMode"`
	Instrumental bool    `json:"instrumental"`
	Model        string  `json:"model"`
	NegativeTags string  `json:"negativeTags,omitempty"`
	StyleWeight  float64 `json:"styleWeight,omitempty"`
}

// Result reports the generated track.
type Result struct {
	AudioURL string `json:"audioUrl"`
	Audio    string `json:"audio"`
	Title    string `json:"title,omitempty"`
}

// URL returns whichever audio location the provider populated.
func (r Result) URL() string {
	if r.AudioURL != "" {
		return r.AudioURL
	}
	return r.Audio
}

// Client talks to the music-generation API. Failures are tagged with
// services.ErrService; the follow-up stage is best effort and never gates
// entry readiness.
type Client struct {
	cfg        Config
	httpClient *http.Client
	maxElapsed time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxRetryTime bounds the total retry window.
func WithMaxRetryTime(d time.Duration) Option {
	return func(c *Client) {
		c.maxElapsed = d
	}
}

// NewClient constructs a music-generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		maxElapsed: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.suno.ai/v1"
	}
	return client
}

// Generate submits a job and returns the track location. Client errors (4xx)
// are permanent; server errors and network failures are retried with
// exponential backoff until the retry window closes.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	if c.cfg.APIKey == "" {
		return Result{}, services.Wrap(services.ErrService, "music", "generate", "api key required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, services.Wrap(services.ErrService, "music", "generate", "prompt required", nil)
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	encoded, err := json.Marshal(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrService, "music", "generate", "encode request", err)
	}

	var result Result
	var lastErr error
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate", bytes.NewReader(encoded))
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = err
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("music generate: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return lastErr
		}
		if resp.StatusCode >= http.StatusBadRequest {
			lastErr = fmt.Errorf("music generate: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			return backoff.Permanent(lastErr)
		}

		var parsed Result
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("music generate: decode response: %w", err)
			return backoff.Permanent(lastErr)
		}
		if parsed.URL() == "" {
			lastErr = fmt.Errorf("music generate: response missing audio url")
			return backoff.Permanent(lastErr)
		}
		result = parsed
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return Result{}, services.Wrap(services.ErrService, "music", "generate", "", lastErr)
	}
	return result, nil
}

// Download fetches the generated track to dest using a temp file so partial
// downloads never appear at the final path.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrService, "music", "download", "new request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrService, "music", "download", "http error", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrService, "music", "download", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrService, "music", "download", "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".music-*")
	if err != nil {
		return services.Wrap(services.ErrService, "music", "download", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrService, "music", "download", "write audio", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrService, "music", "download", "close temp file", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrService, "music", "download", "finalize audio", err)
	}
	return nil
}
