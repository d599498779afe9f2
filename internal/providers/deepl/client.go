// Package deepl provides a translation provider backed by the DeepL REST API.
package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardflow/internal/config"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultBaseURL     = "https://api-free.deepl.com/v2/translate"
)

// Client translates text through DeepL's v2 translate endpoint.
type Client struct {
	cfg        config.Provider
	httpClient *http.Client
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

// NewClient constructs a DeepL client from the provider settings.
func NewClient(cfg config.Provider, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Provider{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Name identifies this provider in board configuration.
func (c *Client) Name() string { return "deepl" }

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

// Translate converts text between the two languages. DeepL expects uppercase
// ISO 639-1 codes and returns one translation per input text.
func (c *Client) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("deepl translate: text required")
	}
	if fromLang == "" || toLang == "" {
		return "", errors.New("deepl translate: source and target languages required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("deepl translate: api key required")
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", strings.ToUpper(fromLang))
	form.Set("target_lang", strings.ToUpper(toLang))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl request: new request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deepl request: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepl request: http %d: %s", resp.StatusCode, summarizeBody(body))
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("deepl request: decode response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return "", errors.New("deepl translate: empty translations")
	}
	translated := strings.TrimSpace(parsed.Translations[0].Text)
	if translated == "" {
		return "", errors.New("deepl translate: empty translated text")
	}
	return translated, nil
}

// HealthCheck verifies the API key works with a minimal request.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("deepl health: api key required")
	}
	if _, err := c.Translate(ctx, "hello", "en", "de"); err != nil {
		return fmt.Errorf("deepl health: %w", err)
	}
	return nil
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
