package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/domain"
)

// EvidenceRepo stores the two evidence streams and the ingestion ledger
// used for file-hash deduplication.
type EvidenceRepo struct {
	db *sql.DB
}

func NewEvidenceRepo(db *sql.DB) *EvidenceRepo {
	return &EvidenceRepo{db: db}
}

func (r *EvidenceRepo) ReportExistsByHash(hash string) (bool, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM evidence_reports WHERE file_hash = ?", hash).Scan(&n)
	return n > 0, err
}

func (r *EvidenceRepo) InsertReport(id, kind, hash string, recordCount int, ingestedAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO evidence_reports (id, kind, file_hash, record_count, ingested_at) VALUES (?,?,?,?,?)`,
		id, kind, hash, recordCount, ingestedAt.Format(time.RFC3339),
	)
	return err
}

func (r *EvidenceRepo) BulkInsertCalls(calls []domain.CallCandidate) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO call_candidates
		(call_id, client_id, mobile_number, recording, call_start, call_end, call_day)
		VALUES (?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range calls {
		c := &calls[i]
		res, err := stmt.Exec(
			c.CallID, c.ClientID, c.MobileNumber, c.Recording,
			c.CallStart.Format(time.RFC3339), c.CallEnd.Format(time.RFC3339), c.CallDay(),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", c.CallID, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *EvidenceRepo) BulkInsertInstructions(insts []domain.EmailInstruction) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO email_instructions
		(group_id, client_id, symbol, side, quantity, value, price, price_is_market,
		 received_at, instruction_day, message_ids)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range insts {
		e := &insts[i]
		var qty, value, price, receivedAt any
		if e.HasQuantity {
			qty = e.Quantity
		}
		if e.HasValue {
			value = e.Value.String()
		}
		if e.HasPrice {
			price = e.Price.String()
		}
		if e.HasTime {
			receivedAt = e.ReceivedAt.Format(time.RFC3339)
		}
		res, err := stmt.Exec(
			e.GroupID, e.ClientID, e.Symbol, string(e.Side), qty, value, price,
			boolToInt(e.PriceIsMarket), receivedAt, e.InstructionDay(),
			strings.Join(e.MessageIDs, ","),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", e.GroupID, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// CallsByDay returns all call candidates for a calendar day.
func (r *EvidenceRepo) CallsByDay(day string) ([]domain.CallCandidate, error) {
	rows, err := r.db.Query(
		`SELECT call_id, client_id, mobile_number, recording, call_start, call_end
		 FROM call_candidates WHERE call_day = ? ORDER BY call_id`, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.CallCandidate
	for rows.Next() {
		var c domain.CallCandidate
		var start, end string
		if err := rows.Scan(&c.CallID, &c.ClientID, &c.MobileNumber, &c.Recording, &start, &end); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			c.CallStart = t
		}
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			c.CallEnd = t
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// InstructionsByDay returns all email instructions for a calendar day.
func (r *EvidenceRepo) InstructionsByDay(day string) ([]domain.EmailInstruction, error) {
	rows, err := r.db.Query(
		`SELECT group_id, client_id, symbol, side, quantity, value, price,
		        price_is_market, received_at, message_ids
		 FROM email_instructions WHERE instruction_day = ? ORDER BY group_id`, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insts []domain.EmailInstruction
	for rows.Next() {
		var e domain.EmailInstruction
		var side, msgIDs string
		var qty sql.NullInt64
		var value, price, receivedAt sql.NullString
		var isMarket int
		if err := rows.Scan(&e.GroupID, &e.ClientID, &e.Symbol, &side, &qty, &value, &price, &isMarket, &receivedAt, &msgIDs); err != nil {
			return nil, err
		}
		e.Side = domain.Side(side)
		e.PriceIsMarket = isMarket != 0
		if qty.Valid {
			e.Quantity = qty.Int64
			e.HasQuantity = true
		}
		if value.Valid {
			if v, err := decimal.NewFromString(value.String); err == nil {
				e.Value = v
				e.HasValue = true
			}
		}
		if price.Valid {
			if p, err := decimal.NewFromString(price.String); err == nil {
				e.Price = p
				e.HasPrice = true
			}
		}
		if receivedAt.Valid {
			if t, err := time.Parse(time.RFC3339, receivedAt.String); err == nil {
				e.ReceivedAt = t
				e.HasTime = true
			}
		}
		if msgIDs != "" {
			e.MessageIDs = strings.Split(msgIDs, ",")
		}
		insts = append(insts, e)
	}
	return insts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
