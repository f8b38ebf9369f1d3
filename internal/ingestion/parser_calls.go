package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neowealth/tradesurveil/internal/domain"
)

// callPayload mirrors the transcription pipeline's call-candidate export.
type callPayload struct {
	CallID       string `json:"call_id"`
	ClientID     string `json:"client_id"`
	MobileNumber string `json:"mobile_number"`
	Recording    string `json:"recording"`
	CallStart    string `json:"call_start"`
	CallEnd      string `json:"call_end"`
}

// ParseCallsJSON parses a call-candidate export. Every entry must carry
// a call identifier, a client identifier and a valid time interval.
func ParseCallsJSON(data []byte) ([]domain.CallCandidate, error) {
	var payload []callPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode calls: %w", err)
	}

	calls := make([]domain.CallCandidate, 0, len(payload))
	for i, p := range payload {
		if p.CallID == "" || p.ClientID == "" {
			return nil, fmt.Errorf("call %d: missing call or client identifier", i)
		}
		start, err := parseEvidenceTime(p.CallStart)
		if err != nil {
			return nil, fmt.Errorf("call %s start: %w", p.CallID, err)
		}
		end, err := parseEvidenceTime(p.CallEnd)
		if err != nil {
			return nil, fmt.Errorf("call %s end: %w", p.CallID, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("call %s: end precedes start", p.CallID)
		}
		calls = append(calls, domain.CallCandidate{
			CallID:       p.CallID,
			ClientID:     p.ClientID,
			MobileNumber: p.MobileNumber,
			Recording:    p.Recording,
			CallStart:    start,
			CallEnd:      end,
		})
	}
	return calls, nil
}

func parseEvidenceTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return parseOrderTime(s)
}
