package domain

import "time"

type MatchType string

const (
	// Audio channel.
	MatchInTimeRange   MatchType = "matched_in_time_range"
	MatchDailyFallback MatchType = "matched_daily_fallback"

	// Email channel.
	MatchPerfect        MatchType = "perfect_match"
	MatchHighConfidence MatchType = "high_confidence_match"
	MatchPartial        MatchType = "partial_match"
	MatchSplitExecution MatchType = "split_execution"

	MatchNone MatchType = "no_match"
)

// MatchCandidate is a potential pairing of one order (or an ordered group
// of orders, for split execution) with one piece of evidence. Candidates
// are working state: only the winning one per order survives into the
// final record.
type MatchCandidate struct {
	Channel    EvidenceChannel `json:"channel"`
	Type       MatchType       `json:"type"`
	OrderIDs   []string        `json:"order_ids"`
	EvidenceID string          `json:"evidence_id"`

	RawScore   int     `json:"raw_score"`
	Confidence float64 `json:"confidence"`

	// TimeDelta is the distance between evidence and order timestamps,
	// used for tie-breaking and fallback notes.
	TimeDelta time.Duration `json:"time_delta"`

	Notes         []string      `json:"notes,omitempty"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// OrderIDLess imposes the deterministic order used for tie-breaking and
// output ordering: numeric when both identifiers are plain digit strings,
// lexicographic otherwise.
func OrderIDLess(a, b string) bool {
	if digitsOnly(a) && digitsOnly(b) && len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Covers reports whether the candidate includes the given order.
func (m MatchCandidate) Covers(orderID string) bool {
	for _, id := range m.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}
