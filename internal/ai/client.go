// Package ai wraps the configured text-generation provider behind a single
// Analyze call. Provider errors never escape this package: every failure
// path reports failed=true, and the orchestrator falls back to rule-based
// classification.
package ai

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/settings"
	"github.com/good-yellow-bee/firewatch/internal/stats"
)

// Call timeouts per provider kind. The self-hosted path gets longer since
// local models are routinely slower than the hosted API.
const (
	cloudCallTimeout = 45 * time.Second
	localCallTimeout = 2 * time.Minute
)

// clientKey identifies the provider configuration a cached client was built
// for. A mismatch on any field forces a rebuild.
type clientKey struct {
	provider settings.Provider
	token    string
	model    string
	endpoint string
}

// Client calls the configured AI provider and parses its response. Safe for
// concurrent use; outbound calls run concurrently while client-cache and
// counter mutation serialize on the mutex.
type Client struct {
	mu        sync.Mutex
	cached    llms.Model
	cachedKey clientKey

	calls *stats.Counter
}

// NewClient creates an adapter that tracks call attempts in the given
// counter.
func NewClient(calls *stats.Counter) *Client {
	return &Client{calls: calls}
}

// Analyze sends the prompt to the configured provider and extracts a
// structured result from the response. Returns the parsed result (nil when
// extraction failed), the raw response text for diagnostics, and a failed
// flag. The call counter is incremented before the request and decremented
// again when the request itself errors, so it reflects only calls that were
// not locally known to have failed outright.
func (c *Client) Analyze(ctx context.Context, cfg settings.Settings, prompt string) (*Result, string, bool) {
	key := clientKey{
		provider: cfg.AIProvider,
		token:    cfg.AIAPIKey,
		model:    cfg.AIModel,
		endpoint: cfg.LocalEndpointURL,
	}

	var timeout time.Duration
	switch key.provider {
	case settings.ProviderOpenAI:
		timeout = cloudCallTimeout
	case settings.ProviderOllama:
		timeout = localCallTimeout
	default:
		// Disabled or unknown provider: fail without attempting a call.
		return nil, "", true
	}

	model, err := c.client(key)
	if err != nil {
		log.Printf("ai: init %s client: %v", key.provider, err)
		return nil, "", true
	}

	c.calls.Inc()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(callCtx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	metrics.AICallDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		// The attempt failed outright; take it back out of the counter and
		// drop the cached client in case the session itself went bad.
		c.calls.Dec()
		c.invalidate()
		metrics.AICallsTotal.WithLabelValues("failed").Inc()
		log.Printf("ai: %s call failed: %v", key.provider, err)
		return nil, "", true
	}

	raw := responseText(resp)
	if raw == "" {
		// Safety filter or truncation left us with nothing usable. Hand
		// back a placeholder the orchestrator can record, but flag the
		// attempt as failed so it is not treated as authoritative.
		metrics.AICallsTotal.WithLabelValues("failed").Inc()
		return &Result{
			Severity: "WARNING",
			Summary:  "AI provider returned no usable content (possibly filtered or truncated)",
		}, "", true
	}

	result, err := ExtractResult(raw)
	if err != nil {
		metrics.AICallsTotal.WithLabelValues("failed").Inc()
		log.Printf("ai: parse %s response: %v", key.provider, err)
		return nil, raw, true
	}

	metrics.AICallsTotal.WithLabelValues("ok").Inc()
	return result, raw, false
}

// client returns the cached provider client, rebuilding it when the
// configuration key changed since the last initialization.
func (c *Client) client(key clientKey) (llms.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.cachedKey == key {
		return c.cached, nil
	}

	model, err := buildClient(key)
	if err != nil {
		return nil, err
	}

	c.cached = model
	c.cachedKey = key
	return model, nil
}

// invalidate drops the cached client so the next call rebuilds it.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.cachedKey = clientKey{}
	c.mu.Unlock()
}

// buildClient is a package variable so tests can substitute a fake model.
var buildClient = func(key clientKey) (llms.Model, error) {
	switch key.provider {
	case settings.ProviderOpenAI:
		return openai.New(
			openai.WithToken(key.token),
			openai.WithModel(key.model),
		)
	case settings.ProviderOllama:
		opts := []ollama.Option{ollama.WithServerURL(key.endpoint)}
		if key.model != "" {
			opts = append(opts, ollama.WithModel(key.model))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q", key.provider)
	}
}

// responseText pulls the first choice's content out of a provider response.
func responseText(resp *llms.ContentResponse) string {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return ""
	}
	return resp.Choices[0].Content
}
