package matching

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
)

// Analyzer compares a winning candidate's instructed values against the
// executed order and classifies every mismatch by kind and severity.
// Explanations carry both raw values so the audit trail stands on its own.
type Analyzer struct {
	cfg config.Matching
}

func NewAnalyzer(cfg config.Matching) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze produces the discrepancy list for a chosen match. inst is nil
// for audio evidence, which carries no instructed attributes beyond
// timing. For split executions the instructed values are compared against
// the group aggregate.
func (a *Analyzer) Analyze(cand domain.MatchCandidate, inst *domain.EmailInstruction, orders []domain.Order) []domain.Discrepancy {
	if len(orders) == 0 {
		return nil
	}
	primary := orders[0]
	var discs []domain.Discrepancy

	if inst != nil {
		discs = append(discs, a.analyzeInstructed(cand, *inst, orders)...)
	}

	if cand.Type == domain.MatchDailyFallback {
		discs = append(discs, domain.Discrepancy{
			OrderID:    primary.OrderID,
			Kind:       domain.DiscrepancyTiming,
			Severity:   domain.SeverityLow,
			Channel:    cand.Channel,
			Instructed: cand.EvidenceID,
			Executed:   primary.PlacedAt.Format("15:04:05"),
			Explanation: fmt.Sprintf(
				"Timing — call %s matched outside the tight window, %.0f seconds from order %s",
				cand.EvidenceID, cand.TimeDelta.Seconds(), primary.OrderID,
			),
			Informational: true,
		})
	}

	// Clear evidence against an order that never completed.
	for _, o := range orders {
		if o.Status == domain.StatusCancelled || o.Status == domain.StatusRejected {
			discs = append(discs, domain.Discrepancy{
				OrderID:    o.OrderID,
				Kind:       domain.DiscrepancyStatus,
				Severity:   domain.SeverityMedium,
				Channel:    cand.Channel,
				Instructed: string(cand.Channel) + " evidence present",
				Executed:   string(o.Status),
				Explanation: fmt.Sprintf(
					"Status — order %s is %s despite %s evidence of the instruction",
					o.OrderID, o.Status, cand.Channel,
				),
			})
		}
	}

	return discs
}

func (a *Analyzer) analyzeInstructed(cand domain.MatchCandidate, inst domain.EmailInstruction, orders []domain.Order) []domain.Discrepancy {
	primary := orders[0]
	var discs []domain.Discrepancy

	execQty, execPrice, hasExecPrice := aggregate(orders)

	// Quantity.
	if instQty, ok := resolveQty(inst, primary); ok {
		diff := absInt64(instQty - execQty)
		if diff > a.cfg.QuantityTolerance {
			discs = append(discs, domain.Discrepancy{
				OrderID:    primary.OrderID,
				Kind:       domain.DiscrepancyQuantity,
				Severity:   a.quantitySeverity(instQty, execQty),
				Channel:    cand.Channel,
				Instructed: fmt.Sprintf("%d", instQty),
				Executed:   fmt.Sprintf("%d", execQty),
				Explanation: fmt.Sprintf(
					"Quantity Mismatch — Instruction: %d, Order: %d", instQty, execQty,
				),
			})
		}
	}

	// Price.
	switch {
	case inst.PriceIsMarket && hasExecPrice:
		discs = append(discs, domain.Discrepancy{
			OrderID:    primary.OrderID,
			Kind:       domain.DiscrepancyPrice,
			Severity:   domain.SeverityLow,
			Channel:    cand.Channel,
			Instructed: "CMP",
			Executed:   execPrice.String(),
			Explanation: fmt.Sprintf(
				"Price — Instruction: CMP, Order: %s", execPrice.String(),
			),
			Informational: true,
		})
	case inst.HasPrice && hasExecPrice:
		if !priceWithin(inst.Price, execPrice, a.cfg.PriceTolerance) {
			discs = append(discs, domain.Discrepancy{
				OrderID:    primary.OrderID,
				Kind:       domain.DiscrepancyPrice,
				Severity:   a.priceSeverity(inst.Price, execPrice),
				Channel:    cand.Channel,
				Instructed: inst.Price.String(),
				Executed:   execPrice.String(),
				Explanation: fmt.Sprintf(
					"Price Mismatch — Instruction: %s, Order: %s",
					inst.Price.String(), execPrice.String(),
				),
			})
		}
	}

	// Symbol: client, side and quantity already aligned enough to match,
	// so a differing instrument is a possible wrong-instrument execution.
	if inst.Symbol != "" && primary.Symbol != "" && !symbolsMatch(inst.Symbol, primary.Symbol) {
		discs = append(discs, domain.Discrepancy{
			OrderID:    primary.OrderID,
			Kind:       domain.DiscrepancySymbol,
			Severity:   domain.SeverityHigh,
			Channel:    cand.Channel,
			Instructed: inst.Symbol,
			Executed:   primary.Symbol,
			Explanation: fmt.Sprintf(
				"Symbol Mismatch — Instruction: %s, Order: %s", inst.Symbol, primary.Symbol,
			),
		})
	}

	// Timing beyond the decay window.
	if inst.HasTime {
		delta := absDuration(primary.PlacedAt.Sub(inst.ReceivedAt))
		if delta > a.cfg.Email.TimeZeroWindow {
			discs = append(discs, domain.Discrepancy{
				OrderID:    primary.OrderID,
				Kind:       domain.DiscrepancyTiming,
				Severity:   domain.SeverityLow,
				Channel:    cand.Channel,
				Instructed: inst.ReceivedAt.Format("15:04:05"),
				Executed:   primary.PlacedAt.Format("15:04:05"),
				Explanation: fmt.Sprintf(
					"Timing — instruction at %s, order executed %s later",
					inst.ReceivedAt.Format("15:04:05"), delta,
				),
			})
		}
	}

	return discs
}

// quantitySeverity scales with relative magnitude. A ratio beyond the
// typo guard is a likely data-entry error, not merely a discrepancy.
func (a *Analyzer) quantitySeverity(instructed, executed int64) domain.Severity {
	lo, hi := instructed, executed
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo <= 0 {
		return domain.SeverityHigh
	}
	ratio := float64(hi) / float64(lo)
	switch {
	case ratio > a.cfg.TypoRatio:
		return domain.SeverityCritical
	case ratio > 1.5:
		return domain.SeverityHigh
	case ratio > 1.1:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func (a *Analyzer) priceSeverity(instructed, executed decimal.Decimal) domain.Severity {
	if instructed.IsZero() {
		return domain.SeverityMedium
	}
	pct, _ := executed.Sub(instructed).Abs().Div(instructed.Abs()).Float64()
	switch {
	case pct > 0.05:
		return domain.SeverityHigh
	case pct > 0.01:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// aggregate sums group quantity and computes the quantity-weighted
// average price for split executions; a single order degenerates to its
// own values.
func aggregate(orders []domain.Order) (int64, decimal.Decimal, bool) {
	var qty int64
	weighted := decimal.Zero
	priced := false
	for _, o := range orders {
		qty += o.Quantity
		if o.HasPrice {
			weighted = weighted.Add(o.Price.Mul(decimal.NewFromInt(o.Quantity)))
			priced = true
		}
	}
	if !priced || qty == 0 {
		return qty, decimal.Zero, false
	}
	return qty, weighted.Div(decimal.NewFromInt(qty)), true
}

func resolveQty(inst domain.EmailInstruction, o domain.Order) (int64, bool) {
	if inst.HasQuantity {
		return inst.Quantity, true
	}
	if !inst.HasValue {
		return 0, false
	}
	var price decimal.Decimal
	switch {
	case inst.HasPrice && !inst.PriceIsMarket && inst.Price.IsPositive():
		price = inst.Price
	case o.HasPrice && o.Price.IsPositive():
		price = o.Price
	default:
		return 0, false
	}
	return inst.Value.Div(price).Round(0).IntPart(), true
}
