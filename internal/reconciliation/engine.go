// Package reconciliation hosts the evidence reconciliation engine: a pure
// function from one trading day's orders, call candidates and email
// instructions to one ReconciliationRecord per order.
package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
	"github.com/neowealth/tradesurveil/internal/matching"
	"github.com/neowealth/tradesurveil/internal/normalize"
)

// Inputs is the in-memory snapshot the engine reconciles. The engine
// never mutates it.
type Inputs struct {
	Orders       []domain.Order
	Calls        []domain.CallCandidate
	Instructions []domain.EmailInstruction
}

// UnmatchedInstruction records an email instruction that failed a
// mandatory criterion, with the reason kept for the audit trail.
type UnmatchedInstruction struct {
	GroupID  string `json:"group_id"`
	ClientID string `json:"client_id"`
	Reason   string `json:"reason"`
}

// Summary counts one run's outcomes.
type Summary struct {
	Orders                int `json:"orders"`
	MatchedAudio          int `json:"matched_audio"`
	MatchedEmail          int `json:"matched_email"`
	Unmatched             int `json:"unmatched"`
	Flagged               int `json:"flagged"`
	RequiresAudit         int `json:"requires_audit"`
	Discrepancies         int `json:"discrepancies"`
	UnmatchedInstructions int `json:"unmatched_instructions"`
}

// Result is a full engine run: exactly one record per input order, sorted
// by normalized order ID so identical inputs yield identical output.
type Result struct {
	Records               []domain.ReconciliationRecord `json:"records"`
	UnmatchedInstructions []UnmatchedInstruction        `json:"unmatched_instructions,omitempty"`
	Summary               Summary                       `json:"summary"`
}

// Engine reconciles orders against both evidence channels. It holds only
// immutable configuration; runs share no state and reading the wall clock
// is left to callers, so re-running identical inputs is idempotent.
type Engine struct {
	cfg      config.Matching
	norm     *normalize.Normalizer
	audio    *matching.AudioMatcher
	email    *matching.EmailMatcher
	analyzer *matching.Analyzer
	log      zerolog.Logger
}

func NewEngine(cfg config.Matching, norm *normalize.Normalizer, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		norm:     norm,
		audio:    matching.NewAudioMatcher(cfg.Audio),
		email:    matching.NewEmailMatcher(cfg),
		analyzer: matching.NewAnalyzer(cfg),
		log:      log,
	}
}

// Reconcile runs the full pipeline: structural validation, identifier
// normalization, per-client matching fan-out, then a single aggregation
// pass that reads all evidence before writing any final field.
func (e *Engine) Reconcile(ctx context.Context, in Inputs) (*Result, error) {
	if err := validateInputs(in); err != nil {
		return nil, err
	}

	orders, calls, insts := e.normalizeSnapshot(in)

	clients := groupClients(orders)
	perClient := make([]clientResult, len(clients))

	g, ctx := errgroup.WithContext(ctx)
	for i := range clients {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perClient[i] = e.reconcileClient(clients[i], orders, calls, insts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, cr := range perClient {
		res.Records = append(res.Records, cr.records...)
		res.UnmatchedInstructions = append(res.UnmatchedInstructions, cr.unmatched...)
	}
	sort.Slice(res.Records, func(i, j int) bool {
		return domain.OrderIDLess(res.Records[i].OrderID, res.Records[j].OrderID)
	})
	sort.Slice(res.UnmatchedInstructions, func(i, j int) bool {
		return res.UnmatchedInstructions[i].GroupID < res.UnmatchedInstructions[j].GroupID
	})

	res.Summary = summarize(res)
	e.log.Info().
		Int("orders", res.Summary.Orders).
		Int("matched_audio", res.Summary.MatchedAudio).
		Int("matched_email", res.Summary.MatchedEmail).
		Int("unmatched", res.Summary.Unmatched).
		Int("requires_audit", res.Summary.RequiresAudit).
		Msg("reconciliation run complete")

	return res, nil
}

type clientResult struct {
	records   []domain.ReconciliationRecord
	unmatched []UnmatchedInstruction
}

// reconcileClient matches one client's orders against both channels and
// aggregates the winners. Candidate selection for an order always
// completes before its discrepancy analysis begins.
func (e *Engine) reconcileClient(clientID string, orders []domain.Order, calls []domain.CallCandidate, insts []domain.EmailInstruction) clientResult {
	var cr clientResult

	clientOrders := make([]domain.Order, 0, 8)
	for _, o := range orders {
		if o.ClientID == clientID {
			clientOrders = append(clientOrders, o)
		}
	}

	ordersByID := make(map[string]domain.Order, len(clientOrders))
	for _, o := range clientOrders {
		ordersByID[o.OrderID] = o
	}

	instByGroup := make(map[string]domain.EmailInstruction)
	emailBest := make(map[string]domain.MatchCandidate)
	for _, inst := range insts {
		if inst.ClientID != clientID {
			continue
		}
		instByGroup[inst.GroupID] = inst
		cand, reason, ok := e.email.Match(inst, clientOrders)
		if !ok {
			cr.unmatched = append(cr.unmatched, UnmatchedInstruction{
				GroupID:  inst.GroupID,
				ClientID: inst.ClientID,
				Reason:   reason,
			})
			continue
		}
		for _, id := range cand.OrderIDs {
			if cur, exists := emailBest[id]; !exists || betterCandidate(cand, cur) {
				emailBest[id] = cand
			}
		}
	}

	for _, order := range clientOrders {
		var audioCand *domain.MatchCandidate
		if c, ok := e.audio.Match(order, calls, len(clientOrders)); ok {
			audioCand = &c
		}
		var emailCand *domain.MatchCandidate
		if c, ok := emailBest[order.OrderID]; ok {
			emailCand = &c
		}

		cr.records = append(cr.records, e.aggregate(order, audioCand, emailCand, instByGroup, ordersByID))
	}
	return cr
}

// aggregate merges the two channels for one order: higher confidence
// wins, email wins ties for its richer instructed detail.
func (e *Engine) aggregate(order domain.Order, audio, email *domain.MatchCandidate, instByGroup map[string]domain.EmailInstruction, ordersByID map[string]domain.Order) domain.ReconciliationRecord {
	rec := domain.ReconciliationRecord{
		OrderID:  order.OrderID,
		ClientID: order.ClientID,
		Status:   order.Status,
	}

	chosen := email
	if chosen == nil || (audio != nil && audio.Confidence > chosen.Confidence) {
		chosen = audio
	}

	if chosen == nil {
		rec.Channel = domain.ChannelNone
		rec.MatchType = domain.MatchNone
		rec.Disposition = domain.DispositionUnmatched
		rec.UnmatchedReason = fmt.Sprintf(
			"no audio or email evidence for client %s on %s", order.ClientID, order.TradingDay(),
		)
		// Only completed orders are highlighted: a cancelled order's
		// missing evidence is not itself a compliance gap.
		rec.RequiresAudit = order.Executed()
		return rec
	}

	rec.Channel = chosen.Channel
	rec.MatchType = chosen.Type
	rec.EvidenceID = chosen.EvidenceID
	rec.Confidence = chosen.Confidence
	if chosen.Type == domain.MatchSplitExecution {
		rec.GroupOrderIDs = chosen.OrderIDs
	}

	var inst *domain.EmailInstruction
	if chosen.Channel == domain.ChannelEmail {
		if found, ok := instByGroup[chosen.EvidenceID]; ok {
			inst = &found
		}
	}
	group := make([]domain.Order, 0, len(chosen.OrderIDs))
	for _, id := range chosen.OrderIDs {
		if o, ok := ordersByID[id]; ok {
			group = append(group, o)
		}
	}
	if len(group) == 0 {
		group = []domain.Order{order}
	}
	rec.Discrepancies = e.analyzer.Analyze(*chosen, inst, group)

	rec.Disposition = domain.DispositionMatched
	for _, d := range rec.Discrepancies {
		if d.Informational {
			continue
		}
		if d.Kind == domain.DiscrepancyStatus || d.Severity == domain.SeverityCritical {
			rec.Disposition = domain.DispositionFlagged
		}
		if d.Severity == domain.SeverityCritical {
			rec.RequiresAudit = true
		}
	}
	return rec
}

// betterCandidate applies the instruction-side tie-break when several
// instructions claim the same order.
func betterCandidate(a, b domain.MatchCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.TimeDelta != b.TimeDelta {
		return a.TimeDelta < b.TimeDelta
	}
	return a.EvidenceID < b.EvidenceID
}

// normalizeSnapshot copies the inputs with canonical identifiers so the
// matchers can compare exact strings.
func (e *Engine) normalizeSnapshot(in Inputs) ([]domain.Order, []domain.CallCandidate, []domain.EmailInstruction) {
	orders := make([]domain.Order, len(in.Orders))
	for i, o := range in.Orders {
		o.OrderID = e.norm.OrderID(o.OrderID)
		o.ClientID = e.norm.ClientCode(o.ClientID)
		o.Symbol = e.norm.Symbol(o.Symbol)
		o.Side = domain.Side(strings.ToUpper(string(o.Side)))
		orders[i] = o
	}
	calls := make([]domain.CallCandidate, len(in.Calls))
	for i, c := range in.Calls {
		c.ClientID = e.norm.ClientCode(c.ClientID)
		calls[i] = c
	}
	insts := make([]domain.EmailInstruction, len(in.Instructions))
	for i, inst := range in.Instructions {
		inst.ClientID = e.norm.ClientCode(inst.ClientID)
		inst.Symbol = e.norm.Symbol(inst.Symbol)
		inst.Side = domain.Side(strings.ToUpper(string(inst.Side)))
		insts[i] = inst
	}
	return orders, calls, insts
}

// validateInputs rejects structurally invalid input before matching
// begins. Evidence-quality problems never abort a run; a missing order
// identifier does.
func validateInputs(in Inputs) error {
	seen := make(map[string]struct{}, len(in.Orders))
	for i, o := range in.Orders {
		if strings.TrimSpace(o.OrderID) == "" {
			return fmt.Errorf("order %d: missing order identifier", i)
		}
		if strings.TrimSpace(o.ClientID) == "" {
			return fmt.Errorf("order %s: missing client identifier", o.OrderID)
		}
		if o.Quantity < 0 {
			return fmt.Errorf("order %s: negative quantity %d", o.OrderID, o.Quantity)
		}
		if o.PlacedAt.IsZero() {
			return fmt.Errorf("order %s: missing timestamp", o.OrderID)
		}
		if _, dup := seen[o.OrderID]; dup {
			return fmt.Errorf("order %s: duplicate order identifier", o.OrderID)
		}
		seen[o.OrderID] = struct{}{}
	}
	return nil
}

func groupClients(orders []domain.Order) []string {
	set := make(map[string]struct{})
	for _, o := range orders {
		set[o.ClientID] = struct{}{}
	}
	clients := make([]string, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	sort.Strings(clients)
	return clients
}

func summarize(res *Result) Summary {
	s := Summary{
		Orders:                len(res.Records),
		UnmatchedInstructions: len(res.UnmatchedInstructions),
	}
	for _, r := range res.Records {
		switch r.Channel {
		case domain.ChannelAudio:
			s.MatchedAudio++
		case domain.ChannelEmail:
			s.MatchedEmail++
		default:
			s.Unmatched++
		}
		if r.Disposition == domain.DispositionFlagged {
			s.Flagged++
		}
		if r.RequiresAudit {
			s.RequiresAudit++
		}
		s.Discrepancies += len(r.Discrepancies)
	}
	return s
}
