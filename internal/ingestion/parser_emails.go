package ingestion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/domain"
)

// instructionPayload mirrors the email extraction export. Numeric
// fields arrive as whatever the extractor pulled out of free text, so
// they are decoded raw and parsed leniently below.
type instructionPayload struct {
	GroupID    string          `json:"group_id"`
	ClientCode string          `json:"client_code"`
	Symbol     string          `json:"symbol"`
	BuySell    string          `json:"buy_sell"`
	Quantity   json.RawMessage `json:"quantity"`
	Value      json.RawMessage `json:"value"`
	Price      json.RawMessage `json:"price"`
	OrderTime  string          `json:"order_time"`
	MessageIDs []string        `json:"message_ids"`
}

// ParseInstructionsJSON parses an email-instruction export. A malformed
// quantity, value or price never fails the parse; the field is dropped
// so the matcher can skip that criterion.
func ParseInstructionsJSON(data []byte) ([]domain.EmailInstruction, error) {
	var payload []instructionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode instructions: %w", err)
	}

	insts := make([]domain.EmailInstruction, 0, len(payload))
	for i, p := range payload {
		if p.ClientCode == "" {
			return nil, fmt.Errorf("instruction %d: missing client code", i)
		}
		inst := domain.EmailInstruction{
			GroupID:    p.GroupID,
			ClientID:   p.ClientCode,
			Symbol:     p.Symbol,
			Side:       parseSide(p.BuySell),
			MessageIDs: p.MessageIDs,
		}
		if inst.GroupID == "" {
			inst.GroupID = fmt.Sprintf("%s_%s_%d", p.ClientCode, p.Symbol, i)
		}

		if qty, ok := parseRawInt(p.Quantity); ok {
			inst.Quantity = qty
			inst.HasQuantity = true
		}
		if val, ok := parseRawDecimal(p.Value); ok {
			inst.Value = val
			inst.HasValue = true
		}
		if isMarketPrice(p.Price) {
			inst.PriceIsMarket = true
		} else if price, ok := parseRawDecimal(p.Price); ok {
			inst.Price = price
			inst.HasPrice = true
		}
		if p.OrderTime != "" {
			if t, err := parseOrderTime(p.OrderTime); err == nil {
				inst.ReceivedAt = t
				inst.HasTime = true
			}
		}

		insts = append(insts, inst)
	}
	return insts, nil
}

// rawString flattens a raw JSON scalar to its text form.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var quoted string
	if json.Unmarshal(raw, &quoted) == nil {
		return strings.TrimSpace(quoted)
	}
	return s
}

func parseRawInt(raw json.RawMessage) (int64, bool) {
	s := strings.ReplaceAll(rawString(raw), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	// Extractors occasionally emit integral quantities as floats.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

func parseRawDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(rawString(raw), ",", "")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func isMarketPrice(raw json.RawMessage) bool {
	switch strings.ToUpper(rawString(raw)) {
	case "CMP", "MARKET", "MARKET PRICE", "CURRENT MARKET PRICE", "AT MARKET":
		return true
	}
	return false
}
