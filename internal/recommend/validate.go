package recommend

import (
	"math"
	"time"
)

const (
	MinOffset = 24 * time.Hour
	MaxOffset = 7 * 24 * time.Hour
)

// Candidate is a proposal as returned by a Generator
type Candidate struct {
	ProposedTime string
	Score        float64
	Reasoning    string
}

type validCandidate struct {
	proposed  time.Time
	score     float64
	reasoning string
}

// rejection reasons, used for logging
const (
	rejectUnparsable = "unparsable"
	rejectPast       = "in the past"
	rejectTooClose   = "within 24h of original"
	rejectTooFar     = "more than 7 days after original"
	rejectBefore     = "before original"
)

func checkCandidate(c Candidate, original, now time.Time) (validCandidate, string) {
	proposed, err := time.Parse(time.RFC3339, c.ProposedTime)
	if err != nil {
		return validCandidate{}, rejectUnparsable
	}
	if proposed.Before(now) {
		return validCandidate{}, rejectPast
	}

	diff := proposed.Sub(original)
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	switch {
	// exactly MinOffset is accepted; the +1 day fallback sits on it
	case abs < MinOffset:
		return validCandidate{}, rejectTooClose
	case diff > MaxOffset:
		return validCandidate{}, rejectTooFar
	case diff < 0:
		return validCandidate{}, rejectBefore
	}

	return validCandidate{
		proposed:  proposed.UTC(),
		score:     NormalizeScore(c.Score),
		reasoning: c.Reasoning,
	}, ""
}

// NormalizeScore maps a model score onto [0,1]. Values above 1 up to 100 are read as percentages.
func NormalizeScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s <= 1:
		return s
	case s <= 100:
		return s / 100
	default:
		return 1
	}
}
