package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/universal-data-connector/backend/internal/utils"
)

// OpenAICompatClient talks to any OpenAI-compatible chat completions
// endpoint (vLLM, llama.cpp, OpenAI itself).
type OpenAICompatClient struct {
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Logger      zerolog.Logger

	history History

	cacheMu    sync.Mutex
	cacheStore map[uint64]promptCacheEntry
}

type promptCacheEntry struct {
	value string
	exp   time.Time
}

const promptCacheTTL = 60 * time.Second

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

func NewOpenAICompatClient(baseURL, model, apiKey string, maxTokens int, temperature float64, logger zerolog.Logger) *OpenAICompatClient {
	return &OpenAICompatClient{
		BaseURL:     baseURL,
		Model:       model,
		APIKey:      apiKey,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Logger:      logger,
		cacheStore:  map[uint64]promptCacheEntry{},
	}
}

func (c *OpenAICompatClient) ModelName() string { return c.Model }

func (c *OpenAICompatClient) UsageStats() UsageStats { return c.history.Stats(c.Model) }

// Query calls the backend and resolves every outcome, including timeouts
// and malformed replies, to a CallRecord appended to the history.
func (c *OpenAICompatClient) Query(ctx context.Context, prompt string) CallRecord {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		rec := CallRecord{
			Status:    CallError,
			Model:     c.Model,
			Message:   fmt.Sprintf("Query failed: %s", err),
			ErrorType: errorType(err),
			Timestamp: time.Now().UTC(),
		}
		c.history.Append(rec)
		c.Logger.Error().Err(err).Msg("llm call failed")
		return rec
	}

	rec := CallRecord{
		Status:   CallSuccess,
		Response: text,
		Model:    c.Model,
		Tokens: TokenUsage{
			Input:  estimateTokens(prompt, 1.5),
			Output: estimateTokens(text, 1.5),
		},
		Timestamp: time.Now().UTC(),
	}
	rec.Tokens.Total = rec.Tokens.Input + rec.Tokens.Output
	c.history.Append(rec)
	return rec
}

func (c *OpenAICompatClient) complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", errors.New("LLM_BASE_URL is not set")
	}
	if strings.TrimSpace(c.Model) == "" {
		return "", errors.New("LLM_MODEL is not set")
	}

	key := utils.HashStringToUint64(prompt)
	if v, ok := c.cacheGet(key); ok {
		return v, nil
	}

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	payload := struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature,omitempty"`
		MaxTokens   int     `json:"max_tokens,omitempty"`
		Messages    []msg   `json:"messages"`
	}{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Messages:    []msg{{Role: "user", Content: prompt}},
	}

	b, _ := json.Marshal(payload)
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	timeout := 45 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errors.New("llm request timed out")
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", errors.New("llm request timed out")
		}
		return "", errors.New("llm request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			if d := extractRetryAfter(resp.Header.Get("Retry-After")); d > 0 {
				return "", RateLimitError{RetryAfter: d}
			}
			return "", RateLimitError{}
		}
		return "", fmt.Errorf("llm http error: %s: %v", resp.Status, errBody)
	}

	var res struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("empty llm response")
	}
	answer := res.Choices[0].Message.Content
	c.cacheSet(key, answer)
	return answer, nil
}

func (c *OpenAICompatClient) cacheGet(key uint64) (string, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if e, ok := c.cacheStore[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(c.cacheStore, key)
	}
	return "", false
}

func (c *OpenAICompatClient) cacheSet(key uint64, value string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheStore[key] = promptCacheEntry{value: value, exp: time.Now().Add(promptCacheTTL)}
}

func extractRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(header); err == nil {
		return d
	}
	return 0
}

func errorType(err error) string {
	var rl RateLimitError
	if errors.As(err, &rl) {
		return "RateLimitError"
	}
	return "BackendError"
}
