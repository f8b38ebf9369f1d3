package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/ingestion"
	"github.com/neowealth/tradesurveil/internal/reconciliation"
	"github.com/neowealth/tradesurveil/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	orderRepo  *repository.OrderRepo
	recordRepo *repository.RecordRepo
	ingestSvc  *ingestion.Service
	reconSvc   *reconciliation.Service
	log        zerolog.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}

// latestRunFor resolves a day path param to its newest stored run.
func (h *Handlers) latestRunFor(w http.ResponseWriter, r *http.Request) *repository.Run {
	day := chi.URLParam(r, "day")
	run, err := h.recordRepo.LatestRun(day)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if run == nil {
		h.writeError(w, http.StatusNotFound, "no run for trading day "+day)
		return nil
	}
	return run
}

// --- IngestFile ---

func (h *Handlers) IngestFile(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	result, err := h.ingestSvc.Ingest(data, kind)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// --- Reconcile ---

func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TradingDay string `json:"trading_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TradingDay == "" {
		h.writeError(w, http.StatusBadRequest, "trading_day is required")
		return
	}

	report, err := h.reconSvc.RunDay(r.Context(), req.TradingDay)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// --- GetRun ---

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run := h.latestRunFor(w, r)
	if run == nil {
		return
	}
	severities, err := h.recordRepo.SeveritySummary(run.ID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run":                     run,
		"discrepancy_by_severity": severities,
	})
}

// --- ListRecords ---

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	run := h.latestRunFor(w, r)
	if run == nil {
		return
	}

	q := r.URL.Query()
	filter := repository.RecordFilter{
		Channel:       q.Get("channel"),
		Disposition:   q.Get("disposition"),
		RequiresAudit: parseBool(q.Get("requires_audit")),
		Page:          parseIntDefault(q.Get("page"), 1),
		Limit:         parseIntDefault(q.Get("limit"), 50),
	}

	records, total, err := h.recordRepo.ListRecords(run.ID, filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"records": records,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// --- GetRecord ---

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	run := h.latestRunFor(w, r)
	if run == nil {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	record, err := h.recordRepo.GetRecord(run.ID, orderID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		h.writeError(w, http.StatusNotFound, "order not found in run")
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// --- ListDiscrepancies ---

func (h *Handlers) ListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	run := h.latestRunFor(w, r)
	if run == nil {
		return
	}

	q := r.URL.Query()
	filter := repository.DiscrepancyFilter{
		Kind:     q.Get("kind"),
		Severity: q.Get("severity"),
		OrderID:  q.Get("order_id"),
	}

	discs, err := h.recordRepo.ListDiscrepancies(run.ID, filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":        run.ID,
		"discrepancies": discs,
		"total":         len(discs),
	})
}

// --- GetDashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := h.orderRepo.TradingDays()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	totalOrders, err := h.orderRepo.Count()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type dayEntry struct {
		TradingDay string          `json:"trading_day"`
		Run        *repository.Run `json:"run,omitempty"`
	}
	entries := make([]dayEntry, 0, len(days))
	for _, day := range days {
		run, err := h.recordRepo.LatestRun(day)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries = append(entries, dayEntry{TradingDay: day, Run: run})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"total_orders": totalOrders,
		"trading_days": entries,
	})
}
