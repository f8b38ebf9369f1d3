package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/domain"
)

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// BulkInsert stores the day's orders, skipping IDs already present.
func (r *OrderRepo) BulkInsert(orders []domain.Order) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO orders
		(order_id, client_id, symbol, side, quantity, price, placed_at, trading_day, status)
		VALUES (?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range orders {
		o := &orders[i]
		var price any
		if o.HasPrice {
			price = o.Price.String()
		}
		res, err := stmt.Exec(
			o.OrderID, o.ClientID, o.Symbol, string(o.Side), o.Quantity, price,
			o.PlacedAt.Format(time.RFC3339), o.TradingDay(), string(o.Status),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", o.OrderID, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ListByDay returns all orders for a trading day (YYYY-MM-DD), sorted by
// order ID for stable output.
func (r *OrderRepo) ListByDay(day string) ([]domain.Order, error) {
	rows, err := r.db.Query(
		`SELECT order_id, client_id, symbol, side, quantity, price, placed_at, status
		 FROM orders WHERE trading_day = ? ORDER BY order_id`, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *OrderRepo) Count() (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&n)
	return n, err
}

// TradingDays lists the distinct days present in the order book, newest
// first.
func (r *OrderRepo) TradingDays() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT trading_day FROM orders ORDER BY trading_day DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func scanOrders(rows *sql.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, status, placedAt string
		var price sql.NullString
		if err := rows.Scan(&o.OrderID, &o.ClientID, &o.Symbol, &side, &o.Quantity, &price, &placedAt, &status); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		if t, err := time.Parse(time.RFC3339, placedAt); err == nil {
			o.PlacedAt = t
		}
		if price.Valid {
			if p, err := decimal.NewFromString(price.String); err == nil {
				o.Price = p
				o.HasPrice = true
			}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
