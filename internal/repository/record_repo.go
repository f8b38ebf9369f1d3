package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/neowealth/tradesurveil/internal/domain"
)

// RecordRepo persists surveillance runs and their per-order output.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Run is one stored engine execution.
type Run struct {
	ID         string          `json:"id"`
	TradingDay string          `json:"trading_day"`
	StartedAt  time.Time       `json:"started_at"`
	Summary    json.RawMessage `json:"summary"`
}

// InsertRun stores the run header, its summary and the unmatched
// instruction reasons.
func (r *RecordRepo) InsertRun(id, tradingDay string, startedAt time.Time, summary, unmatched any) error {
	sumJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	unmJSON, err := json.Marshal(unmatched)
	if err != nil {
		return fmt.Errorf("marshal unmatched: %w", err)
	}
	_, err = r.db.Exec(
		`INSERT INTO surveillance_runs (id, trading_day, started_at, summary, unmatched_instructions)
		 VALUES (?,?,?,?,?)`,
		id, tradingDay, startedAt.Format(time.RFC3339), string(sumJSON), string(unmJSON),
	)
	return err
}

// LatestRun returns the most recent run for a trading day, or nil.
func (r *RecordRepo) LatestRun(tradingDay string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, trading_day, started_at, summary FROM surveillance_runs
		 WHERE trading_day = ? ORDER BY started_at DESC, id DESC LIMIT 1`, tradingDay,
	)
	var run Run
	var startedAt, summary string
	if err := row.Scan(&run.ID, &run.TradingDay, &startedAt, &summary); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		run.StartedAt = t
	}
	run.Summary = json.RawMessage(summary)
	return &run, nil
}

// BulkInsertRecords stores a run's records along with their
// discrepancies, in one transaction.
func (r *RecordRepo) BulkInsertRecords(runID string, records []domain.ReconciliationRecord) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	recStmt, err := tx.Prepare(
		`INSERT INTO reconciliation_records
		(run_id, order_id, client_id, order_status, channel, match_type, evidence_id,
		 group_order_ids, confidence, disposition, requires_audit, unmatched_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare records: %w", err)
	}
	defer recStmt.Close()

	discStmt, err := tx.Prepare(
		`INSERT INTO discrepancies
		(run_id, order_id, kind, severity, channel, instructed, executed, explanation, informational)
		VALUES (?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare discrepancies: %w", err)
	}
	defer discStmt.Close()

	inserted := 0
	for i := range records {
		rec := &records[i]
		if _, err := recStmt.Exec(
			runID, rec.OrderID, rec.ClientID, string(rec.Status), string(rec.Channel),
			string(rec.MatchType), rec.EvidenceID, strings.Join(rec.GroupOrderIDs, ","),
			rec.Confidence, string(rec.Disposition), boolToInt(rec.RequiresAudit),
			rec.UnmatchedReason,
		); err != nil {
			return inserted, fmt.Errorf("insert record %s: %w", rec.OrderID, err)
		}
		inserted++

		for _, d := range rec.Discrepancies {
			if _, err := discStmt.Exec(
				runID, d.OrderID, string(d.Kind), string(d.Severity), string(d.Channel),
				d.Instructed, d.Executed, d.Explanation, boolToInt(d.Informational),
			); err != nil {
				return inserted, fmt.Errorf("insert discrepancy for %s: %w", rec.OrderID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	Channel       string
	Disposition   string
	RequiresAudit *bool
	Page          int
	Limit         int
}

// ListRecords returns a run's records plus the total count for paging.
func (r *RecordRepo) ListRecords(runID string, f RecordFilter) ([]domain.ReconciliationRecord, int, error) {
	where := " WHERE run_id = ?"
	args := []any{runID}
	if f.Channel != "" {
		where += " AND channel = ?"
		args = append(args, f.Channel)
	}
	if f.Disposition != "" {
		where += " AND disposition = ?"
		args = append(args, f.Disposition)
	}
	if f.RequiresAudit != nil {
		where += " AND requires_audit = ?"
		args = append(args, boolToInt(*f.RequiresAudit))
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM reconciliation_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	query := `SELECT order_id, client_id, order_status, channel, match_type, evidence_id,
	                 group_order_ids, confidence, disposition, requires_audit, unmatched_reason
	          FROM reconciliation_records` + where + " ORDER BY order_id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	for i := range records {
		discs, err := r.discrepanciesFor(runID, records[i].OrderID)
		if err != nil {
			return nil, 0, err
		}
		records[i].Discrepancies = discs
	}
	return records, total, nil
}

// GetRecord returns one order's record within a run, or nil.
func (r *RecordRepo) GetRecord(runID, orderID string) (*domain.ReconciliationRecord, error) {
	rows, err := r.db.Query(
		`SELECT order_id, client_id, order_status, channel, match_type, evidence_id,
		        group_order_ids, confidence, disposition, requires_audit, unmatched_reason
		 FROM reconciliation_records WHERE run_id = ? AND order_id = ?`, runID, orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := records[0]
	if rec.Discrepancies, err = r.discrepanciesFor(runID, orderID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DiscrepancyFilter narrows discrepancy listings.
type DiscrepancyFilter struct {
	Kind     string
	Severity string
	OrderID  string
}

func (r *RecordRepo) ListDiscrepancies(runID string, f DiscrepancyFilter) ([]domain.Discrepancy, error) {
	where := " WHERE run_id = ?"
	args := []any{runID}
	if f.Kind != "" {
		where += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.Severity != "" {
		where += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if f.OrderID != "" {
		where += " AND order_id = ?"
		args = append(args, f.OrderID)
	}

	rows, err := r.db.Query(
		`SELECT order_id, kind, severity, channel, instructed, executed, explanation, informational
		 FROM discrepancies`+where+" ORDER BY order_id, kind", args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDiscrepancies(rows)
}

// SeveritySummary counts a run's discrepancies by severity.
func (r *RecordRepo) SeveritySummary(runID string) (map[string]int, error) {
	rows, err := r.db.Query(
		"SELECT severity, COUNT(*) FROM discrepancies WHERE run_id = ? GROUP BY severity", runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		out[sev] = n
	}
	return out, rows.Err()
}

func (r *RecordRepo) discrepanciesFor(runID, orderID string) ([]domain.Discrepancy, error) {
	return r.ListDiscrepancies(runID, DiscrepancyFilter{OrderID: orderID})
}

func scanRecords(rows *sql.Rows) ([]domain.ReconciliationRecord, error) {
	var records []domain.ReconciliationRecord
	for rows.Next() {
		var rec domain.ReconciliationRecord
		var status, channel, matchType, disposition, groupIDs string
		var evidenceID, reason sql.NullString
		var audit int
		if err := rows.Scan(
			&rec.OrderID, &rec.ClientID, &status, &channel, &matchType, &evidenceID,
			&groupIDs, &rec.Confidence, &disposition, &audit, &reason,
		); err != nil {
			return nil, err
		}
		rec.Status = domain.OrderStatus(status)
		rec.Channel = domain.EvidenceChannel(channel)
		rec.MatchType = domain.MatchType(matchType)
		rec.Disposition = domain.Disposition(disposition)
		rec.RequiresAudit = audit != 0
		rec.EvidenceID = evidenceID.String
		rec.UnmatchedReason = reason.String
		if groupIDs != "" {
			rec.GroupOrderIDs = strings.Split(groupIDs, ",")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanDiscrepancies(rows *sql.Rows) ([]domain.Discrepancy, error) {
	var discs []domain.Discrepancy
	for rows.Next() {
		var d domain.Discrepancy
		var kind, severity, channel string
		var informational int
		if err := rows.Scan(&d.OrderID, &kind, &severity, &channel, &d.Instructed, &d.Executed, &d.Explanation, &informational); err != nil {
			return nil, err
		}
		d.Kind = domain.DiscrepancyKind(kind)
		d.Severity = domain.Severity(severity)
		d.Channel = domain.EvidenceChannel(channel)
		d.Informational = informational != 0
		discs = append(discs, d)
	}
	return discs, rows.Err()
}
