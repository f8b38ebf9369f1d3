package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EvidenceChannel string

const (
	ChannelAudio EvidenceChannel = "audio"
	ChannelEmail EvidenceChannel = "email"
	ChannelNone  EvidenceChannel = "none"
)

// CallCandidate links a call recording to a client. Produced upstream by
// the transcription pipeline and its mobile-number directory lookup;
// read-only input to the engine.
type CallCandidate struct {
	CallID       string    `json:"call_id"`
	ClientID     string    `json:"client_id"`
	MobileNumber string    `json:"mobile_number"`
	Recording    string    `json:"recording"`
	CallStart    time.Time `json:"call_start"`
	CallEnd      time.Time `json:"call_end"`
}

// CallDay returns the call's calendar day in YYYY-MM-DD form.
func (c CallCandidate) CallDay() string {
	return c.CallStart.Format("2006-01-02")
}

// EmailInstruction is one logical trading instruction extracted from an
// email thread by the upstream NLP service. Fields are untrusted and may
// be partial: Quantity and Value are zero when absent, price can be the
// "current market price" sentinel instead of a number.
type EmailInstruction struct {
	GroupID  string `json:"group_id"`
	ClientID string `json:"client_id"`
	Symbol   string `json:"symbol"`
	Side     Side   `json:"side"`

	Quantity    int64           `json:"quantity"`
	HasQuantity bool            `json:"has_quantity"`
	Value       decimal.Decimal `json:"value"`
	HasValue    bool            `json:"has_value"`

	Price         decimal.Decimal `json:"price"`
	HasPrice      bool            `json:"has_price"`
	PriceIsMarket bool            `json:"price_is_market"`

	ReceivedAt time.Time `json:"received_at"`
	HasTime    bool      `json:"has_time"`

	MessageIDs []string `json:"message_ids,omitempty"`
}

// InstructionDay returns the instruction's calendar day in YYYY-MM-DD form.
func (e EmailInstruction) InstructionDay() string {
	return e.ReceivedAt.Format("2006-01-02")
}
