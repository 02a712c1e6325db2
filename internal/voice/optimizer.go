// Package voice shapes data responses for short, speakable answers.
package voice

import (
	"fmt"

	"github.com/universal-data-connector/backend/internal/models"
)

// Trend compares the endpoints of a newest-first series and reports the
// percent change of the newest point against the oldest. Fewer than two
// points means no trend, reported as an empty string.
func Trend(points []models.MetricPoint) string {
	if len(points) < 2 {
		return ""
	}
	recent := points[0].Value
	older := points[len(points)-1].Value

	switch {
	case recent > older:
		if older == 0 {
			return "Up 0.0%"
		}
		return fmt.Sprintf("Up %.1f%%", (recent-older)/older*100)
	case recent < older:
		if older == 0 {
			return "Down 0.0%"
		}
		return fmt.Sprintf("Down %.1f%%", (older-recent)/older*100)
	default:
		return "Stable"
	}
}

// PriorityBreakdown counts tickets per known priority level.
func PriorityBreakdown(tickets []models.Ticket) map[string]int {
	summary := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, t := range tickets {
		if _, ok := summary[t.Priority]; ok {
			summary[t.Priority]++
		}
	}
	return summary
}

// StatusBreakdown counts customers per known status.
func StatusBreakdown(customers []models.Customer) map[string]int {
	summary := map[string]int{"active": 0, "inactive": 0}
	for _, c := range customers {
		if _, ok := summary[c.Status]; ok {
			summary[c.Status]++
		}
	}
	return summary
}

// SummarizeIfLarge collapses oversized result sets into a single summary
// record so a voice reply stays short.
func SummarizeIfLarge(data []any, threshold int) []any {
	if threshold <= 0 || len(data) <= threshold {
		return data
	}
	return []any{map[string]any{
		"summary": fmt.Sprintf("%d records found. Showing first %d.", len(data), threshold),
	}}
}

// MakeConcise truncates long string fields for voice output.
func MakeConcise(data []map[string]any, maxChars int) []map[string]any {
	concise := make([]map[string]any, 0, len(data))
	for _, item := range data {
		out := make(map[string]any, len(item))
		for k, v := range item {
			if s, ok := v.(string); ok && len(s) > maxChars {
				out[k] = s[:maxChars] + "..."
			} else {
				out[k] = v
			}
		}
		concise = append(concise, out)
	}
	return concise
}

// ContextMessage builds the "showing X of Y" phrase used in list metadata.
func ContextMessage(returned, total int) string {
	switch {
	case returned == 0:
		return "No results found"
	case returned == total:
		return fmt.Sprintf("Showing all %d results", returned)
	default:
		return fmt.Sprintf("Showing %d of %d results", returned, total)
	}
}
