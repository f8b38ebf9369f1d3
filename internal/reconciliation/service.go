package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/domain"
	"github.com/neowealth/tradesurveil/internal/repository"
)

// Service loads a trading day's inputs, runs the engine and persists
// the outcome as a surveillance run.
type Service struct {
	engine   *Engine
	orders   *repository.OrderRepo
	evidence *repository.EvidenceRepo
	records  *repository.RecordRepo
	log      zerolog.Logger
}

func NewService(engine *Engine, orders *repository.OrderRepo, evidence *repository.EvidenceRepo, records *repository.RecordRepo, log zerolog.Logger) *Service {
	return &Service{
		engine:   engine,
		orders:   orders,
		evidence: evidence,
		records:  records,
		log:      log.With().Str("component", "reconciliation").Logger(),
	}
}

// RunReport is what a completed run returns to the caller.
type RunReport struct {
	RunID                 string                        `json:"run_id"`
	TradingDay            string                        `json:"trading_day"`
	StartedAt             time.Time                     `json:"started_at"`
	Summary               Summary                       `json:"summary"`
	Records               []domain.ReconciliationRecord `json:"records"`
	UnmatchedInstructions []UnmatchedInstruction        `json:"unmatched_instructions,omitempty"`
}

// RunDay reconciles one trading day end to end.
func (s *Service) RunDay(ctx context.Context, tradingDay string) (*RunReport, error) {
	if _, err := time.Parse("2006-01-02", tradingDay); err != nil {
		return nil, fmt.Errorf("invalid trading day %q: %w", tradingDay, err)
	}

	orders, err := s.orders.ListByDay(tradingDay)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("no orders for trading day %s", tradingDay)
	}
	calls, err := s.evidence.CallsByDay(tradingDay)
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}
	insts, err := s.evidence.InstructionsByDay(tradingDay)
	if err != nil {
		return nil, fmt.Errorf("load instructions: %w", err)
	}

	s.log.Info().
		Str("trading_day", tradingDay).
		Int("orders", len(orders)).
		Int("calls", len(calls)).
		Int("instructions", len(insts)).
		Msg("starting reconciliation run")

	startedAt := time.Now().UTC()
	result, err := s.engine.Reconcile(ctx, Inputs{Orders: orders, Calls: calls, Instructions: insts})
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := s.records.InsertRun(runID, tradingDay, startedAt, result.Summary, result.UnmatchedInstructions); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}
	stored, err := s.records.BulkInsertRecords(runID, result.Records)
	if err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}

	s.log.Info().
		Str("run_id", runID).
		Int("records", stored).
		Int("flagged", result.Summary.Flagged).
		Msg("reconciliation run stored")

	return &RunReport{
		RunID:                 runID,
		TradingDay:            tradingDay,
		StartedAt:             startedAt,
		Summary:               result.Summary,
		Records:               result.Records,
		UnmatchedInstructions: result.UnmatchedInstructions,
	}, nil
}

// LatestRun returns the stored header of a day's newest run, or nil.
func (s *Service) LatestRun(tradingDay string) (*repository.Run, error) {
	return s.records.LatestRun(tradingDay)
}
