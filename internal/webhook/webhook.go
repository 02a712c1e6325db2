// Package webhook keeps a file-backed registry of subscriber URLs and
// dispatches events to them asynchronously.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventQueryExecuted fires after every /api/query execution.
const EventQueryExecuted = "query.executed"

type Registration struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Events       []string `json:"events"`
	CreatedAt    string   `json:"created_at"`
	LastFired    string   `json:"last_triggered,omitempty"`
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Active       bool     `json:"active"`
}

type Service struct {
	Enabled    bool
	File       string
	Timeout    time.Duration
	MaxRetries int
	Logger     zerolog.Logger

	mu    sync.Mutex
	hooks map[string]*Registration
}

func NewService(enabled bool, file string, timeout time.Duration, maxRetries int, logger zerolog.Logger) *Service {
	s := &Service{
		Enabled:    enabled,
		File:       file,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		Logger:     logger,
		hooks:      map[string]*Registration{},
	}
	s.load()
	return s
}

func (s *Service) load() {
	b, err := os.ReadFile(s.File)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Error().Err(err).Msg("failed to read webhooks file")
		}
		return
	}
	if err := json.Unmarshal(b, &s.hooks); err != nil {
		s.Logger.Error().Err(err).Msg("failed to decode webhooks file")
		s.hooks = map[string]*Registration{}
	}
}

// save is called with s.mu held.
func (s *Service) save() {
	b, err := json.MarshalIndent(s.hooks, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.File, b, 0o644); err != nil {
		s.Logger.Error().Err(err).Msg("failed to write webhooks file")
	}
}

func (s *Service) Register(url string, events []string) Registration {
	reg := &Registration{
		ID:        uuid.NewString(),
		URL:       url,
		Events:    events,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Active:    true,
	}

	s.mu.Lock()
	s.hooks[reg.ID] = reg
	s.save()
	s.mu.Unlock()

	s.Logger.Info().Str("id", reg.ID).Strs("events", events).Msg("registered webhook")
	return *reg
}

func (s *Service) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[id]; !ok {
		return false
	}
	delete(s.hooks, id)
	s.save()
	return true
}

func (s *Service) List() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Registration, 0, len(s.hooks))
	for _, reg := range s.hooks {
		out = append(out, *reg)
	}
	return out
}

// Notify dispatches the event to every active subscriber in the
// background. The caller is never blocked on subscriber I/O.
func (s *Service) Notify(event string, payload map[string]any) {
	if !s.Enabled {
		return
	}

	s.mu.Lock()
	targets := make([]*Registration, 0, len(s.hooks))
	for _, reg := range s.hooks {
		if reg.Active && subscribed(reg.Events, event) {
			targets = append(targets, reg)
		}
	}
	s.mu.Unlock()

	body, err := json.Marshal(map[string]any{
		"event":     event,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      payload,
	})
	if err != nil {
		return
	}

	for _, reg := range targets {
		go s.deliver(reg.ID, reg.URL, body)
	}
}

func (s *Service) deliver(id, url string, body []byte) {
	client := &http.Client{Timeout: s.Timeout}

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			cancel()
			lastErr = err
			break
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 300 {
			s.recordResult(id, true)
			return
		}
		lastErr = nil
	}
	if lastErr != nil {
		s.Logger.Warn().Err(lastErr).Str("webhook", id).Msg("webhook delivery failed")
	}
	s.recordResult(id, false)
}

func (s *Service) recordResult(id string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, exists := s.hooks[id]
	if !exists {
		return
	}
	reg.LastFired = time.Now().UTC().Format(time.RFC3339)
	if ok {
		reg.SuccessCount++
	} else {
		reg.FailureCount++
	}
	s.save()
}

func subscribed(events []string, event string) bool {
	for _, e := range events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}
