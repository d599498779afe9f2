package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// apiClient is a thin JSON client for the daemon HTTP API.
type apiClient struct {
	base   string
	token  string
	userID string
	http   *http.Client
}

func newAPIClient(base, token, userID string) *apiClient {
	return &apiClient{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		userID: userID,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *apiClient) post(path string, payload, out any) error {
	return c.do(http.MethodPost, path, payload, out)
}

func (c *apiClient) patch(path string, payload, out any) error {
	return c.do(http.MethodPatch, path, payload, out)
}

func (c *apiClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *apiClient) do(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapConnectError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func wrapConnectError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `cardflowd`", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}
