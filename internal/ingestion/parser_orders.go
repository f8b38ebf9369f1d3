package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/domain"
)

// Order-book export timestamp layouts, tried in order.
var orderTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02-01-2006 15:04:05",
}

// ParseOrderBookCSV parses the OMS order-book export. Columns are
// located by header name so extra columns and reordering are tolerated.
//
// Required headers:
//
//	NorenOrderID,ClientID,Symbol,Qty,Price,BuySell,Status,OrgTimeStamp
func ParseOrderBookCSV(data []byte) ([]domain.Order, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"NorenOrderID", "ClientID", "Symbol", "Qty", "Price", "BuySell", "Status", "OrgTimeStamp"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	var orders []domain.Order
	lineNum := 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		field := func(name string) string {
			idx := cols[name]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		orderID := field("NorenOrderID")
		clientID := field("ClientID")
		if orderID == "" || clientID == "" {
			return nil, fmt.Errorf("line %d: missing order or client identifier", lineNum)
		}

		qty, err := strconv.ParseInt(field("Qty"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d qty: %w", lineNum, err)
		}
		if qty < 0 {
			return nil, fmt.Errorf("line %d qty: negative quantity %d", lineNum, qty)
		}

		placedAt, err := parseOrderTime(field("OrgTimeStamp"))
		if err != nil {
			return nil, fmt.Errorf("line %d timestamp: %w", lineNum, err)
		}

		order := domain.Order{
			OrderID:  orderID,
			ClientID: clientID,
			Symbol:   field("Symbol"),
			Side:     parseSide(field("BuySell")),
			Quantity: qty,
			PlacedAt: placedAt,
			Status:   parseStatus(field("Status")),
		}

		// Market orders ship with an empty price column.
		if priceStr := field("Price"); priceStr != "" {
			price, err := decimal.NewFromString(priceStr)
			if err != nil {
				return nil, fmt.Errorf("line %d price: %w", lineNum, err)
			}
			order.Price = price
			order.HasPrice = true
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func parseOrderTime(s string) (time.Time, error) {
	for _, layout := range orderTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseSide(s string) domain.Side {
	switch strings.ToUpper(s) {
	case "B", "BUY":
		return domain.SideBuy
	case "S", "SELL":
		return domain.SideSell
	default:
		return domain.Side(strings.ToUpper(s))
	}
}

func parseStatus(s string) domain.OrderStatus {
	switch strings.ToUpper(s) {
	case "COMPLETE", "COMPLETED", "FILLED":
		return domain.StatusComplete
	case "CANCELED", "CANCELLED":
		return domain.StatusCancelled
	case "REJECTED":
		return domain.StatusRejected
	default:
		return domain.OrderStatus(strings.ToLower(s))
	}
}
