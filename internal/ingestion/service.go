package ingestion

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/repository"
)

// Kinds of evidence files the service accepts.
const (
	KindOrders = "orders"
	KindCalls  = "calls"
	KindEmails = "emails"
)

// IngestResult is returned from a successful ingestion.
type IngestResult struct {
	ReportID          string `json:"report_id"`
	Kind              string `json:"kind"`
	RecordsIngested   int    `json:"records_ingested"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	AlreadyIngested   bool   `json:"already_ingested,omitempty"`
}

// Service parses uploaded order-book and evidence files and stores
// their records. Re-uploads of an identical file are no-ops.
type Service struct {
	orders   *repository.OrderRepo
	evidence *repository.EvidenceRepo
	log      zerolog.Logger
}

func NewService(orders *repository.OrderRepo, evidence *repository.EvidenceRepo, log zerolog.Logger) *Service {
	return &Service{
		orders:   orders,
		evidence: evidence,
		log:      log.With().Str("component", "ingestion").Logger(),
	}
}

// Ingest parses one uploaded file of the given kind and stores its
// records. kind must be one of: orders, calls, emails.
func (s *Service) Ingest(data []byte, kind string) (*IngestResult, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(data))
	exists, err := s.evidence.ReportExistsByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("check hash: %w", err)
	}
	if exists {
		return &IngestResult{Kind: kind, AlreadyIngested: true}, nil
	}

	var parsed, inserted int
	switch kind {
	case KindOrders:
		orders, err := ParseOrderBookCSV(data)
		if err != nil {
			return nil, fmt.Errorf("parse order book: %w", err)
		}
		parsed = len(orders)
		if inserted, err = s.orders.BulkInsert(orders); err != nil {
			return nil, fmt.Errorf("insert orders: %w", err)
		}
	case KindCalls:
		calls, err := ParseCallsJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse calls: %w", err)
		}
		parsed = len(calls)
		if inserted, err = s.evidence.BulkInsertCalls(calls); err != nil {
			return nil, fmt.Errorf("insert calls: %w", err)
		}
	case KindEmails:
		insts, err := ParseInstructionsJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse instructions: %w", err)
		}
		parsed = len(insts)
		if inserted, err = s.evidence.BulkInsertInstructions(insts); err != nil {
			return nil, fmt.Errorf("insert instructions: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported kind: %s", kind)
	}

	reportID := uuid.NewString()
	if err := s.evidence.InsertReport(reportID, kind, hash, parsed, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	s.log.Info().
		Str("report_id", reportID).
		Str("kind", kind).
		Int("records", parsed).
		Int("new", inserted).
		Msg("file ingested")

	return &IngestResult{
		ReportID:          reportID,
		Kind:              kind,
		RecordsIngested:   inserted,
		DuplicatesSkipped: parsed - inserted,
	}, nil
}
