package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cardflow/internal/config"
	"cardflow/internal/language"
)

const (
	jsonResponseType      = "json_object"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
)

const systemPrompt = `You are a professional translator. Translate the user's text from the named source language to the named target language. Preserve meaning, tone, and formatting. Respond with JSON only, in the form {"translation": "<translated text>"} with no additional keys or commentary.`

// Client translates text through an OpenAI-compatible chat completion API.
type Client struct {
	cfg        config.Provider
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
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

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an LLM translation client from the provider settings.
func NewClient(cfg config.Provider, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Provider{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
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
func (c *Client) Name() string { return "llm" }

// Translate converts text between the two languages. Transient HTTP failures
// (timeouts, 429, 5xx) are retried with exponential backoff, honoring
// Retry-After when the server sends one.
func (c *Client) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("llm translate: text required")
	}
	if fromLang == "" || toLang == "" {
		return "", errors.New("llm translate: source and target languages required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm translate: api key required")
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(text, fromLang, toLang)},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.completionContentWithRetry(ctx, payload)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := decodeModelJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("llm translate: parse payload: %w", err)
	}
	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		return "", errors.New("llm translate: model returned empty translation")
	}
	return translated, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	if _, err := c.Translate(ctx, "hello", "en", "fr"); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	return nil
}

func buildUserPrompt(text, fromLang, toLang string) string {
	from := language.DisplayName(fromLang)
	to := language.DisplayName(toLang)
	return fmt.Sprintf("Source language: %s\nTarget language: %s\n\nText:\n%s", from, to, text)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendChatRequestOnce(ctx, payload)
		if err == nil {
			return content, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return "", err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return "", fmt.Errorf("llm translate: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			return content, nil
		}
	}
	return "", errors.New("llm request: empty content")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// decodeModelJSON decodes JSON from a model response, tolerating code fences
// and stray prose around the object.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return directErr
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return err
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
