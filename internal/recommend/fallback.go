package recommend

import (
	"fmt"
	"time"
)

var fallbackScores = []float64{0.8, 0.75, 0.7}

// fallbackCandidates proposes the same time of day on each of the next three days
func fallbackCandidates(original time.Time) []validCandidate {
	out := make([]validCandidate, 0, len(fallbackScores))
	for i, score := range fallbackScores {
		days := i + 1
		out = append(out, validCandidate{
			proposed:  original.AddDate(0, 0, days).UTC(),
			score:     score,
			reasoning: fmt.Sprintf("Same time %d day(s) later. Weather typically improves over time.", days),
		})
	}
	return out
}
