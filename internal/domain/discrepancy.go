package domain

type DiscrepancyKind string

const (
	DiscrepancyPrice    DiscrepancyKind = "PRICE"
	DiscrepancyQuantity DiscrepancyKind = "QUANTITY"
	DiscrepancySymbol   DiscrepancyKind = "SYMBOL"
	DiscrepancyTiming   DiscrepancyKind = "TIMING"
	DiscrepancyStatus   DiscrepancyKind = "STATUS"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Discrepancy is an attribute-level mismatch between instructed and
// executed values. The explanation always embeds both raw values verbatim
// so the audit trail never degrades to "mismatch found".
//
// Informational marks notes recorded for completeness that carry no
// compliance weight, e.g. a CMP instruction matched against the executed
// price.
type Discrepancy struct {
	OrderID       string          `json:"order_id"`
	Kind          DiscrepancyKind `json:"kind"`
	Severity      Severity        `json:"severity"`
	Channel       EvidenceChannel `json:"channel"`
	Instructed    string          `json:"instructed"`
	Executed      string          `json:"executed"`
	Explanation   string          `json:"explanation"`
	Informational bool            `json:"informational"`
}
