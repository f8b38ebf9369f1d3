package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
)

// EmailMatcher scores a grouped email instruction against every order for
// the same client and day. Inputs are expected to be normalized already.
type EmailMatcher struct {
	cfg config.Matching
}

func NewEmailMatcher(cfg config.Matching) *EmailMatcher {
	return &EmailMatcher{cfg: cfg}
}

// Match returns the best candidate for the instruction over the client's
// orders, or ok=false with an explicit reason so the instruction is never
// silently dropped.
func (m *EmailMatcher) Match(inst domain.EmailInstruction, orders []domain.Order) (domain.MatchCandidate, string, bool) {
	clientOrders := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.ClientID == inst.ClientID {
			clientOrders = append(clientOrders, o)
		}
	}
	if len(clientOrders) == 0 {
		return domain.MatchCandidate{}, fmt.Sprintf("client code %s not found in order book", inst.ClientID), false
	}

	sideSeen := false
	var best *scoredOrder
	for i := range clientOrders {
		o := clientOrders[i]
		if o.Side == inst.Side {
			sideSeen = true
		}
		s := m.scoreOne(inst, o)
		if best == nil || betterScore(s, *best) {
			tmp := s
			best = &tmp
		}
	}
	if !sideSeen {
		return domain.MatchCandidate{}, fmt.Sprintf("no %s order for client %s — direction mismatch", inst.Side, inst.ClientID), false
	}

	single := m.candidateFromSingle(inst, *best)

	// Split execution: when the single best is not perfect, a group of
	// same-symbol same-side orders summing to the instructed quantity can
	// outscore it.
	if best.result.Percent < m.cfg.Email.PerfectBand {
		if split, ok := m.trySplit(inst, clientOrders); ok && split.Confidence > single.Confidence {
			return split, "", true
		}
	}

	if best.result.Percent < m.cfg.Email.PartialBand {
		return domain.MatchCandidate{}, fmt.Sprintf(
			"no order reached the partial-match threshold for %s/%s (best %.1f%%)",
			inst.ClientID, inst.Symbol, best.result.Percent,
		), false
	}
	return single, "", true
}

type scoredOrder struct {
	order  domain.Order
	input  rubricInput
	result rubricResult
}

func (m *EmailMatcher) scoreOne(inst domain.EmailInstruction, o domain.Order) scoredOrder {
	in := rubricInput{
		ClientMatch: o.ClientID == inst.ClientID,
		SideMatch:   o.Side == inst.Side,
	}

	if inst.Symbol != "" && o.Symbol != "" {
		in.SymbolApplicable = true
		in.SymbolMatch = symbolsMatch(inst.Symbol, o.Symbol)
	}

	if qty, ok := m.instructedQty(inst, o); ok {
		in.QuantityApplicable = true
		in.QuantityMatch = absInt64(qty-o.Quantity) <= m.cfg.QuantityTolerance
	}

	if inst.PriceIsMarket && o.HasPrice {
		in.PriceApplicable = true
		in.PriceIsCMP = true
	} else if inst.HasPrice && o.HasPrice {
		in.PriceApplicable = true
		in.PriceMatch = priceWithin(inst.Price, o.Price, m.cfg.PriceTolerance)
	}

	if inst.HasTime {
		in.TimeApplicable = true
		in.TimeDelta = absDuration(o.PlacedAt.Sub(inst.ReceivedAt))
	}

	return scoredOrder{order: o, input: in, result: scoreRubric(in, m.cfg.Email)}
}

func (m *EmailMatcher) candidateFromSingle(inst domain.EmailInstruction, s scoredOrder) domain.MatchCandidate {
	cand := domain.MatchCandidate{
		Channel:    domain.ChannelEmail,
		Type:       m.bandType(s.result.Percent),
		OrderIDs:   []string{s.order.OrderID},
		EvidenceID: inst.GroupID,
		RawScore:   s.result.RawScore,
		Confidence: s.result.Percent,
		TimeDelta:  s.input.TimeDelta,
	}
	if s.input.PriceIsCMP {
		cand.Notes = append(cand.Notes, fmt.Sprintf("Price: CMP vs executed price %s", s.order.Price.String()))
	}
	return cand
}

func (m *EmailMatcher) bandType(percent float64) domain.MatchType {
	switch {
	case percent >= m.cfg.Email.PerfectBand:
		return domain.MatchPerfect
	case percent >= m.cfg.Email.HighBand:
		return domain.MatchHighConfidence
	default:
		return domain.MatchPartial
	}
}

// trySplit looks for an ordered group of same-symbol, same-side orders
// whose quantities sum to the instructed quantity and whose
// quantity-weighted average price sits within tolerance of the instructed
// price, then scores the aggregate through the same rubric.
func (m *EmailMatcher) trySplit(inst domain.EmailInstruction, clientOrders []domain.Order) (domain.MatchCandidate, bool) {
	var group []domain.Order
	for _, o := range clientOrders {
		if o.Side == inst.Side && symbolsMatch(inst.Symbol, o.Symbol) {
			group = append(group, o)
		}
	}
	if len(group) < 2 {
		return domain.MatchCandidate{}, false
	}
	sort.Slice(group, func(i, j int) bool {
		if !group[i].PlacedAt.Equal(group[j].PlacedAt) {
			return group[i].PlacedAt.Before(group[j].PlacedAt)
		}
		return domain.OrderIDLess(group[i].OrderID, group[j].OrderID)
	})

	instQty, ok := m.instructedQty(inst, group[0])
	if !ok {
		return domain.MatchCandidate{}, false
	}

	var totalQty int64
	weighted := decimal.Zero
	priced := true
	minDelta := time.Duration(-1)
	ids := make([]string, 0, len(group))
	for _, o := range group {
		totalQty += o.Quantity
		if o.HasPrice {
			weighted = weighted.Add(o.Price.Mul(decimal.NewFromInt(o.Quantity)))
		} else {
			priced = false
		}
		ids = append(ids, o.OrderID)
		if inst.HasTime {
			d := absDuration(o.PlacedAt.Sub(inst.ReceivedAt))
			if minDelta < 0 || d < minDelta {
				minDelta = d
			}
		}
	}
	if absInt64(totalQty-instQty) > m.cfg.SplitQtyTolerance || totalQty == 0 {
		return domain.MatchCandidate{}, false
	}

	in := rubricInput{
		ClientMatch:        true,
		SideMatch:          true,
		SymbolApplicable:   true,
		SymbolMatch:        true,
		QuantityApplicable: true,
		QuantityMatch:      true,
	}
	var avgPrice decimal.Decimal
	if priced {
		avgPrice = weighted.Div(decimal.NewFromInt(totalQty))
		if inst.PriceIsMarket {
			in.PriceApplicable = true
			in.PriceIsCMP = true
		} else if inst.HasPrice {
			in.PriceApplicable = true
			in.PriceMatch = priceWithin(inst.Price, avgPrice, m.cfg.PriceTolerance)
			if !in.PriceMatch {
				return domain.MatchCandidate{}, false
			}
		}
	}
	if inst.HasTime && minDelta >= 0 {
		in.TimeApplicable = true
		in.TimeDelta = minDelta
	}

	res := scoreRubric(in, m.cfg.Email)
	cand := domain.MatchCandidate{
		Channel:    domain.ChannelEmail,
		Type:       domain.MatchSplitExecution,
		OrderIDs:   ids,
		EvidenceID: inst.GroupID,
		RawScore:   res.RawScore,
		Confidence: res.Percent,
		TimeDelta:  in.TimeDelta,
		Notes: []string{fmt.Sprintf(
			"Split execution: %d orders totalling %d against instructed %d",
			len(ids), totalQty, instQty,
		)},
	}
	if in.PriceIsCMP {
		cand.Notes = append(cand.Notes, fmt.Sprintf("Price: CMP vs executed average price %s", avgPrice.String()))
	}
	return cand, true
}

// instructedQty resolves the instruction's quantity, deriving an implied
// quantity from a monetary value when the client asked for "worth X"
// instead of a share count.
func (m *EmailMatcher) instructedQty(inst domain.EmailInstruction, o domain.Order) (int64, bool) {
	return resolveQty(inst, o)
}

// betterScore orders candidates by score, then time proximity, then
// lowest order identifier, so ties resolve deterministically.
func betterScore(a, b scoredOrder) bool {
	if a.result.RawScore != b.result.RawScore {
		return a.result.RawScore > b.result.RawScore
	}
	da, db := tieDelta(a), tieDelta(b)
	if da != db {
		return da < db
	}
	return domain.OrderIDLess(a.order.OrderID, b.order.OrderID)
}

func tieDelta(s scoredOrder) time.Duration {
	if !s.input.TimeApplicable {
		return time.Duration(1<<63 - 1)
	}
	return s.input.TimeDelta
}

// symbolsMatch compares canonical symbols, tolerating exchange suffixes
// such as MANAPPURAM vs MANAPPURAM-EQ.
func symbolsMatch(instructed, executed string) bool {
	if instructed == executed {
		return true
	}
	if instructed == "" || executed == "" {
		return false
	}
	return strings.Contains(executed, instructed) || strings.Contains(instructed, executed)
}

func priceWithin(a, b decimal.Decimal, tol float64) bool {
	return a.Sub(b).Abs().Cmp(decimal.NewFromFloat(tol)) <= 0
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
