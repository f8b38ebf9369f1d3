package matching

import (
	"math"
	"time"

	"github.com/neowealth/tradesurveil/internal/config"
)

// rubricInput is the comparison outcome for one instruction/order pair.
// Criteria with no usable instructed value are marked inapplicable and
// drop out of the denominator instead of failing the pair.
type rubricInput struct {
	ClientMatch bool
	SideMatch   bool

	SymbolApplicable bool
	SymbolMatch      bool

	QuantityApplicable bool
	QuantityMatch      bool

	PriceApplicable bool
	PriceMatch      bool
	PriceIsCMP      bool

	TimeApplicable bool
	TimeDelta      time.Duration
}

type rubricResult struct {
	RawScore    int
	Denominator int
	Percent     float64
}

// scoreRubric is the weighted-sum classifier behind email matching: a
// pure function from comparison outcomes to a score. Client code and side
// are mandatory; failing either zeroes the result outright. The percent
// is raw points over the points attainable for the applicable criteria,
// so it is bounded to [0,100] regardless of which fields were usable.
func scoreRubric(in rubricInput, cfg config.EmailMatching) rubricResult {
	denom := cfg.ClientPoints + cfg.SidePoints
	if in.SymbolApplicable {
		denom += cfg.SymbolPoints
	}
	if in.QuantityApplicable {
		denom += cfg.QuantityPoints
	}
	if in.PriceApplicable {
		denom += cfg.PricePoints
	}
	if in.TimeApplicable {
		denom += cfg.TimePoints
	}

	if !in.ClientMatch || !in.SideMatch {
		return rubricResult{RawScore: 0, Denominator: denom, Percent: 0}
	}

	score := cfg.ClientPoints + cfg.SidePoints
	if in.SymbolApplicable && in.SymbolMatch {
		score += cfg.SymbolPoints
	}
	if in.QuantityApplicable && in.QuantityMatch {
		score += cfg.QuantityPoints
	}
	if in.PriceApplicable {
		switch {
		case in.PriceIsCMP:
			score += cfg.CMPPoints
		case in.PriceMatch:
			score += cfg.PricePoints
		}
	}
	if in.TimeApplicable {
		score += timePoints(in.TimeDelta, cfg)
	}

	return rubricResult{
		RawScore:    score,
		Denominator: denom,
		Percent:     toPercent(score, denom),
	}
}

// timePoints grants the full weight inside the proximity window and
// decays linearly to zero at the outer window.
func timePoints(delta time.Duration, cfg config.EmailMatching) int {
	if delta < 0 {
		delta = -delta
	}
	if delta <= cfg.TimeFullWindow {
		return cfg.TimePoints
	}
	if delta >= cfg.TimeZeroWindow {
		return 0
	}
	span := cfg.TimeZeroWindow - cfg.TimeFullWindow
	frac := 1 - float64(delta-cfg.TimeFullWindow)/float64(span)
	return int(math.Round(float64(cfg.TimePoints) * frac))
}

// toPercent converts raw points to a percentage rounded to one decimal.
func toPercent(score, denom int) float64 {
	if score <= 0 || denom <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(denom)*1000) / 10
}
