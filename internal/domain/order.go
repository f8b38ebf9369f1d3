package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusComplete  OrderStatus = "complete"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order is one row from the day's order book. Immutable once ingested;
// the engine only annotates it by attaching a ReconciliationRecord.
type Order struct {
	OrderID  string          `json:"order_id"`
	ClientID string          `json:"client_id"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	HasPrice bool            `json:"has_price"`
	PlacedAt time.Time       `json:"placed_at"`
	Status   OrderStatus     `json:"status"`
}

// TradingDay returns the order's calendar day in YYYY-MM-DD form.
func (o Order) TradingDay() string {
	return o.PlacedAt.Format("2006-01-02")
}

// Executed reports whether the order completed on the exchange.
func (o Order) Executed() bool {
	return o.Status == StatusComplete
}
