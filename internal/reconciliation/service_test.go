package reconciliation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
	"github.com/neowealth/tradesurveil/internal/normalize"
	"github.com/neowealth/tradesurveil/internal/repository"
)

func newTestService(t *testing.T) (*Service, *repository.OrderRepo, *repository.EvidenceRepo, *repository.RecordRepo) {
	t.Helper()
	db, err := repository.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orders := repository.NewOrderRepo(db)
	evidence := repository.NewEvidenceRepo(db)
	records := repository.NewRecordRepo(db)

	cfg := config.Default()
	engine := NewEngine(cfg.Matching, normalize.New(cfg.Normalize), zerolog.Nop())
	return NewService(engine, orders, evidence, records, zerolog.Nop()), orders, evidence, records
}

func TestRunDayEndToEnd(t *testing.T) {
	svc, orderRepo, evidenceRepo, recordRepo := newTestService(t)
	in := sampleInputs()

	if _, err := orderRepo.BulkInsert(in.Orders); err != nil {
		t.Fatalf("seed orders: %v", err)
	}
	if _, err := evidenceRepo.BulkInsertCalls(in.Calls); err != nil {
		t.Fatalf("seed calls: %v", err)
	}
	if _, err := evidenceRepo.BulkInsertInstructions(in.Instructions); err != nil {
		t.Fatalf("seed instructions: %v", err)
	}

	report, err := svc.RunDay(context.Background(), "2025-08-05")
	if err != nil {
		t.Fatalf("run day: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected a run ID")
	}
	if report.Summary.Orders != len(in.Orders) {
		t.Fatalf("summary orders = %d, want %d", report.Summary.Orders, len(in.Orders))
	}

	run, err := recordRepo.LatestRun("2025-08-05")
	if err != nil || run == nil {
		t.Fatalf("stored run: %v %v", run, err)
	}
	if run.ID != report.RunID {
		t.Fatalf("run ID mismatch: %s vs %s", run.ID, report.RunID)
	}

	records, total, err := recordRepo.ListRecords(run.ID, repository.RecordFilter{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if total != len(in.Orders) || len(records) != len(in.Orders) {
		t.Fatalf("stored %d records, want %d", total, len(in.Orders))
	}

	// The unevidenced executed order must come back flagged for audit.
	rec, err := recordRepo.GetRecord(run.ID, "105900")
	if err != nil || rec == nil {
		t.Fatalf("get record: %v %v", rec, err)
	}
	if !rec.RequiresAudit || rec.Disposition != domain.DispositionUnmatched {
		t.Fatalf("unexpected audit state: %+v", rec)
	}
}

func TestRunDayValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RunDay(ctx, "05-08-2025"); err == nil {
		t.Fatal("malformed trading day must fail")
	}
	if _, err := svc.RunDay(ctx, "2025-08-05"); err == nil {
		t.Fatal("a day with no orders must fail")
	}
}
