// Package auth manages API keys backed by a JSON file.
package auth

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type KeyInfo struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	LastUsed  string `json:"last_used,omitempty"`
	Active    bool   `json:"active"`
}

type Service struct {
	Enabled  bool
	KeysFile string
	Logger   zerolog.Logger

	mu   sync.Mutex
	keys map[string]KeyInfo
}

func NewService(enabled bool, keysFile string, logger zerolog.Logger) *Service {
	s := &Service{
		Enabled:  enabled,
		KeysFile: keysFile,
		Logger:   logger,
		keys:     map[string]KeyInfo{},
	}
	s.load()
	return s
}

func (s *Service) load() {
	b, err := os.ReadFile(s.KeysFile)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Error().Err(err).Msg("failed to read api keys file")
		}
		return
	}
	if err := json.Unmarshal(b, &s.keys); err != nil {
		s.Logger.Error().Err(err).Msg("failed to decode api keys file")
		s.keys = map[string]KeyInfo{}
	}
}

// save is called with s.mu held.
func (s *Service) save() {
	b, err := json.MarshalIndent(s.keys, "", "  ")
	if err != nil {
		s.Logger.Error().Err(err).Msg("failed to encode api keys")
		return
	}
	if err := os.WriteFile(s.KeysFile, b, 0o600); err != nil {
		s.Logger.Error().Err(err).Msg("failed to write api keys file")
	}
}

// Generate issues a new key and persists the registry.
func (s *Service) Generate(name string) (string, KeyInfo) {
	key := "uk_" + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	info := KeyInfo{
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Active:    true,
	}

	s.mu.Lock()
	s.keys[key] = info
	s.save()
	s.mu.Unlock()

	s.Logger.Info().Str("name", name).Msg("generated api key")
	return key, info
}

// Validate reports whether the key is known and active, stamping
// last-used on success. Always true when auth is disabled.
func (s *Service) Validate(key string) bool {
	if !s.Enabled {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.keys[key]
	if !ok || !info.Active {
		return false
	}
	info.LastUsed = time.Now().UTC().Format(time.RFC3339)
	s.keys[key] = info
	s.save()
	return true
}

// List returns key metadata without the secrets themselves.
func (s *Service) List() []KeyInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]KeyInfo, 0, len(s.keys))
	for _, info := range s.keys {
		out = append(out, info)
	}
	return out
}
