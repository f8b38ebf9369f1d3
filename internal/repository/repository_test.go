package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/domain"
)

func newTestDB(t *testing.T) *OrderRepo {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOrderRepo(db)
}

func testOrder(id, client string, qty int64, price string, placed time.Time) domain.Order {
	o := domain.Order{
		OrderID:  id,
		ClientID: client,
		Symbol:   "RELIANCE",
		Side:     domain.SideBuy,
		Quantity: qty,
		PlacedAt: placed,
		Status:   domain.StatusComplete,
	}
	if price != "" {
		o.Price = decimal.RequireFromString(price)
		o.HasPrice = true
	}
	return o
}

func TestOrderRoundTrip(t *testing.T) {
	repo := newTestDB(t)
	placed := time.Date(2025, 8, 5, 9, 47, 12, 0, time.UTC)

	orders := []domain.Order{
		testOrder("1001", "NEOWM00101", 5000, "185.5", placed),
		testOrder("1002", "NEOWM00101", 300, "", placed.Add(time.Hour)),
	}
	inserted, err := repo.BulkInsert(orders)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}

	// Re-ingesting the same orders is a no-op.
	inserted, err = repo.BulkInsert(orders)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("reinsert must skip existing rows, inserted %d", inserted)
	}

	got, err := repo.ListByDay("2025-08-05")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(got))
	}
	if !got[0].HasPrice || got[0].Price.String() != "185.5" {
		t.Fatalf("price lost in round trip: %+v", got[0])
	}
	if got[1].HasPrice {
		t.Fatal("unpriced order came back priced")
	}
	if !got[0].PlacedAt.Equal(placed) {
		t.Fatalf("timestamp lost: %v", got[0].PlacedAt)
	}
}

func TestEvidenceRoundTrip(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewEvidenceRepo(db)

	exists, err := repo.ReportExistsByHash("abc123")
	if err != nil || exists {
		t.Fatalf("fresh hash: exists=%v err=%v", exists, err)
	}
	if err := repo.InsertReport("r1", "emails", "abc123", 2, time.Now().UTC()); err != nil {
		t.Fatalf("insert report: %v", err)
	}
	exists, err = repo.ReportExistsByHash("abc123")
	if err != nil || !exists {
		t.Fatalf("stored hash: exists=%v err=%v", exists, err)
	}

	received := time.Date(2025, 8, 5, 9, 30, 0, 0, time.UTC)
	insts := []domain.EmailInstruction{
		{
			GroupID:    "G1",
			ClientID:   "NEOWM00101",
			Symbol:     "RELIANCE",
			Side:       domain.SideBuy,
			ReceivedAt: received,
			HasTime:    true,
			// Quantity and price deliberately absent.
			PriceIsMarket: true,
			MessageIDs:    []string{"<a@x>", "<b@x>"},
		},
	}
	if _, err := repo.BulkInsertInstructions(insts); err != nil {
		t.Fatalf("insert instructions: %v", err)
	}

	got, err := repo.InstructionsByDay("2025-08-05")
	if err != nil {
		t.Fatalf("list instructions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(got))
	}
	e := got[0]
	if e.HasQuantity || e.HasPrice {
		t.Fatalf("absent numerics must stay absent: %+v", e)
	}
	if !e.PriceIsMarket {
		t.Fatal("CMP flag lost")
	}
	if len(e.MessageIDs) != 2 {
		t.Fatalf("message IDs lost: %v", e.MessageIDs)
	}
}

func TestRunRecordsAndFilters(t *testing.T) {
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewRecordRepo(db)

	started := time.Date(2025, 8, 6, 18, 0, 0, 0, time.UTC)
	if err := repo.InsertRun("run-1", "2025-08-05", started, map[string]int{"orders": 2}, nil); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	records := []domain.ReconciliationRecord{
		{
			OrderID:     "1001",
			ClientID:    "NEOWM00101",
			Status:      domain.StatusComplete,
			Channel:     domain.ChannelEmail,
			MatchType:   domain.MatchPerfect,
			EvidenceID:  "G1",
			Confidence:  100,
			Disposition: domain.DispositionMatched,
		},
		{
			OrderID:         "1002",
			ClientID:        "NEOWM00102",
			Status:          domain.StatusComplete,
			Channel:         domain.ChannelNone,
			MatchType:       domain.MatchNone,
			Disposition:     domain.DispositionUnmatched,
			RequiresAudit:   true,
			UnmatchedReason: "no audio or email evidence",
			Discrepancies: []domain.Discrepancy{
				{
					OrderID:     "1002",
					Kind:        domain.DiscrepancyQuantity,
					Severity:    domain.SeverityCritical,
					Channel:     domain.ChannelEmail,
					Instructed:  "1731271",
					Executed:    "1731",
					Explanation: "Quantity Mismatch",
				},
			},
		},
	}
	if _, err := repo.BulkInsertRecords("run-1", records); err != nil {
		t.Fatalf("insert records: %v", err)
	}

	run, err := repo.LatestRun("2025-08-05")
	if err != nil || run == nil {
		t.Fatalf("latest run: %v %v", run, err)
	}
	if run.ID != "run-1" || !run.StartedAt.Equal(started) {
		t.Fatalf("unexpected run %+v", run)
	}

	audit := true
	got, total, err := repo.ListRecords("run-1", RecordFilter{RequiresAudit: &audit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].OrderID != "1002" {
		t.Fatalf("audit filter: total=%d records=%+v", total, got)
	}
	if len(got[0].Discrepancies) != 1 {
		t.Fatalf("record must carry its discrepancies, got %+v", got[0])
	}

	rec, err := repo.GetRecord("run-1", "1001")
	if err != nil || rec == nil {
		t.Fatalf("get record: %v %v", rec, err)
	}
	if rec.MatchType != domain.MatchPerfect {
		t.Fatalf("match type = %s", rec.MatchType)
	}

	discs, err := repo.ListDiscrepancies("run-1", DiscrepancyFilter{Severity: "CRITICAL"})
	if err != nil {
		t.Fatalf("list discrepancies: %v", err)
	}
	if len(discs) != 1 || discs[0].OrderID != "1002" {
		t.Fatalf("severity filter: %+v", discs)
	}

	sums, err := repo.SeveritySummary("run-1")
	if err != nil || sums["CRITICAL"] != 1 {
		t.Fatalf("severity summary: %v %v", sums, err)
	}
}
