package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cardflow/internal/config"
)

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestTranslateReturnsModelText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		messages, _ := req["messages"].([]any)
		if len(messages) != 2 {
			t.Fatalf("expected system and user messages, got %d", len(messages))
		}
		user, _ := messages[1].(map[string]any)
		content, _ := user["content"].(string)
		if !strings.Contains(content, "Guten Tag") {
			t.Fatalf("user prompt missing source text: %q", content)
		}
		if err := json.NewEncoder(w).Encode(completionResponse(`{"translation":"Good day"}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(config.Provider{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Translate(context.Background(), "Guten Tag", "de", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Good day" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateHandlesCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := completionResponse("```json\n{\"translation\":\"Good day\"}\n```")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(config.Provider{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	got, err := client.Translate(context.Background(), "Guten Tag", "de", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Good day" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err := json.NewEncoder(w).Encode(completionResponse(`{"translation":"Good day"}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		config.Provider{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)
	got, err := client.Translate(context.Background(), "Guten Tag", "de", "en")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "Good day" {
		t.Fatalf("unexpected translation %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
}

func TestTranslateDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(config.Provider{APIKey: "bad", BaseURL: server.URL, Model: "demo-model"})
	if _, err := client.Translate(context.Background(), "Guten Tag", "de", "en"); err == nil {
		t.Fatal("expected error for unauthorized request")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retries, got %d calls", calls.Load())
	}
}

func TestTranslateHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if err := json.NewEncoder(w).Encode(completionResponse(`{"translation":"Good day"}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		config.Provider{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)
	if _, err := client.Translate(context.Background(), "Guten Tag", "de", "en"); err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected retry after 429, got %d calls", calls.Load())
	}
}

func TestTranslateRequiresInput(t *testing.T) {
	client := NewClient(config.Provider{APIKey: "test", Model: "demo-model"})
	if _, err := client.Translate(context.Background(), "", "de", "en"); err == nil {
		t.Fatal("expected error for empty text")
	}
	if _, err := client.Translate(context.Background(), "hello", "", "en"); err == nil {
		t.Fatal("expected error for missing source language")
	}

	missingKey := NewClient(config.Provider{Model: "demo-model"})
	if _, err := missingKey.Translate(context.Background(), "hello", "de", "en"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
