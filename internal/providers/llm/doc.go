// Package llm provides a chat-completion translation provider for any
// OpenAI-compatible endpoint (OpenRouter by default).
//
// # Translation Logic
//
// The client sends the source text with a structured prompt naming the source
// and target languages and requesting JSON output of the form
// {"translation": "..."}. Code fences and stray prose around the JSON object
// are tolerated, since models frequently wrap their output despite the
// response_format hint.
//
// # Configuration
//
// Requires api_key and model; base_url and timeout are optional.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honoring the server's Retry-After header when present. Context cancellation
// aborts retries immediately. Provider-level failures after retry exhaustion
// surface to the pipeline, which records them on the step; manual text entry
// is the user-facing fallback.
package llm
