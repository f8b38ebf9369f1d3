package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/ingestion"
	"github.com/neowealth/tradesurveil/internal/reconciliation"
	"github.com/neowealth/tradesurveil/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	orderRepo *repository.OrderRepo,
	recordRepo *repository.RecordRepo,
	ingestSvc *ingestion.Service,
	reconSvc *reconciliation.Service,
	log zerolog.Logger,
) http.Handler {
	h := &Handlers{
		orderRepo:  orderRepo,
		recordRepo: recordRepo,
		ingestSvc:  ingestSvc,
		reconSvc:   reconSvc,
		log:        log.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Ingestion. kind is one of: orders, calls, emails.
		r.Post("/ingest/{kind}", h.IngestFile)

		// Runs.
		r.Post("/reconcile", h.Reconcile)
		r.Get("/runs/{day}", h.GetRun)
		r.Get("/runs/{day}/records", h.ListRecords)
		r.Get("/runs/{day}/records/{orderID}", h.GetRecord)
		r.Get("/runs/{day}/discrepancies", h.ListDiscrepancies)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
