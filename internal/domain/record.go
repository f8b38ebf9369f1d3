package domain

type Disposition string

const (
	DispositionMatched   Disposition = "matched"
	DispositionUnmatched Disposition = "unmatched"
	DispositionFlagged   Disposition = "flagged"
)

// ReconciliationRecord is the final per-order output of a surveillance
// run: exactly one per order, keyed by normalized order ID, never revised
// afterward. A new run supersedes, it does not patch.
type ReconciliationRecord struct {
	OrderID  string      `json:"order_id"`
	ClientID string      `json:"client_id"`
	Status   OrderStatus `json:"order_status"`

	Channel    EvidenceChannel `json:"matched_channel"`
	MatchType  MatchType       `json:"match_type"`
	EvidenceID string          `json:"evidence_id,omitempty"`

	// GroupOrderIDs lists every order fulfilling the same instruction when
	// the chosen match is a split execution.
	GroupOrderIDs []string `json:"group_order_ids,omitempty"`

	Confidence      float64     `json:"confidence_score"`
	Disposition     Disposition `json:"disposition"`
	RequiresAudit   bool        `json:"requires_audit"`
	UnmatchedReason string      `json:"unmatched_reason,omitempty"`

	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}
