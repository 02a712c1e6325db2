package ai

import (
	"context"
	"strings"
	"time"
)

// CannedGateway is the fail-soft substitute used when no backend
// credential is configured. It keyword-matches stock replies so the
// complex path still resolves deterministically.
type CannedGateway struct {
	Model   string
	history History
}

func NewCannedGateway() *CannedGateway {
	return &CannedGateway{Model: "canned-v1"}
}

// Checked in order; first prompt substring match wins.
var cannedReplies = []struct {
	marker string
	reply  string
}{
	{"greeting", "I'm a helpful voice assistant. How can I help you today?"},
	{"how are you", "I'm doing well, thank you for asking! How can I assist you?"},
	{"ready", "Yes, I'm ready to help! What would you like to know?"},
}

const cannedDefault = "That's an interesting question. Based on our data, I can help you with customer, ticket, and analytics information."

func (g *CannedGateway) ModelName() string { return g.Model }

func (g *CannedGateway) UsageStats() UsageStats { return g.history.Stats(g.Model) }

func (g *CannedGateway) Query(ctx context.Context, prompt string) CallRecord {
	promptLower := strings.ToLower(prompt)

	response := cannedDefault
	for _, c := range cannedReplies {
		if strings.Contains(promptLower, c.marker) {
			response = c.reply
			break
		}
	}

	rec := CallRecord{
		Status:   CallSuccess,
		Response: response,
		Model:    g.Model,
		Tokens: TokenUsage{
			Input:  estimateTokens(prompt, 1.3),
			Output: estimateTokens(response, 1.3),
		},
		Timestamp: time.Now().UTC(),
	}
	rec.Tokens.Total = rec.Tokens.Input + rec.Tokens.Output
	g.history.Append(rec)
	return rec
}
