package matching

import (
	"fmt"
	"sort"
	"time"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
)

// AudioMatcher links an order to call evidence with a two-stage temporal
// policy: a tight window around the call interval first, then any call
// for the same client on the same day. Desks often execute well after the
// call, so the daily fallback trades temporal precision for coverage
// while staying distinguishable by tag.
type AudioMatcher struct {
	cfg config.AudioMatching
}

func NewAudioMatcher(cfg config.AudioMatching) *AudioMatcher {
	return &AudioMatcher{cfg: cfg}
}

// Match returns the best audio candidate for the order given the client's
// calls for the order's day. clientOrderCount drives the dynamic window:
// high-frequency clients get a narrower window than quiet ones. ok=false
// means the order is audio-unmatched.
func (m *AudioMatcher) Match(order domain.Order, calls []domain.CallCandidate, clientOrderCount int) (domain.MatchCandidate, bool) {
	day := order.TradingDay()
	var dayCalls []domain.CallCandidate
	for _, c := range calls {
		if c.ClientID == order.ClientID && c.CallDay() == day {
			dayCalls = append(dayCalls, c)
		}
	}
	if len(dayCalls) == 0 {
		return domain.MatchCandidate{}, false
	}

	window := m.windowFor(clientOrderCount)

	var inWindow []domain.CallCandidate
	for _, c := range dayCalls {
		if !c.CallStart.After(order.PlacedAt.Add(window)) && !c.CallEnd.Before(order.PlacedAt.Add(-window)) {
			inWindow = append(inWindow, c)
		}
	}

	if len(inWindow) > 0 {
		best := closestCall(inWindow, order.PlacedAt)
		return domain.MatchCandidate{
			Channel:    domain.ChannelAudio,
			Type:       domain.MatchInTimeRange,
			OrderIDs:   []string{order.OrderID},
			EvidenceID: best.CallID,
			Confidence: m.cfg.TightConfidence,
			TimeDelta:  callDelta(best, order.PlacedAt),
			Notes: []string{fmt.Sprintf(
				"Matched within ±%s: %s", window, joinCallIDs(inWindow),
			)},
		}, true
	}

	best := closestCall(dayCalls, order.PlacedAt)
	delta := callDelta(best, order.PlacedAt)
	return domain.MatchCandidate{
		Channel:    domain.ChannelAudio,
		Type:       domain.MatchDailyFallback,
		OrderIDs:   []string{order.OrderID},
		EvidenceID: best.CallID,
		Confidence: m.cfg.FallbackConfidence,
		TimeDelta:  delta,
		Notes: []string{fmt.Sprintf(
			"Matched with daily fallback: %s (%.0f seconds away)", best.CallID, delta.Seconds(),
		)},
	}, true
}

func (m *AudioMatcher) windowFor(clientOrderCount int) time.Duration {
	switch {
	case m.cfg.HighOrders > 0 && clientOrderCount >= m.cfg.HighOrders:
		return m.cfg.HighWindow
	case m.cfg.NormalOrders > 0 && clientOrderCount >= m.cfg.NormalOrders:
		return m.cfg.TightWindow
	default:
		return m.cfg.LowWindow
	}
}

// callDelta is the distance from the order timestamp to the nearest edge
// of the call interval; zero when the order falls inside the call.
func callDelta(c domain.CallCandidate, at time.Time) time.Duration {
	if !at.Before(c.CallStart) && !at.After(c.CallEnd) {
		return 0
	}
	ds := absDuration(at.Sub(c.CallStart))
	de := absDuration(at.Sub(c.CallEnd))
	if ds < de {
		return ds
	}
	return de
}

// closestCall picks deterministically: smallest delta, then earliest
// start, then call ID.
func closestCall(calls []domain.CallCandidate, at time.Time) domain.CallCandidate {
	sorted := append([]domain.CallCandidate(nil), calls...)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := callDelta(sorted[i], at), callDelta(sorted[j], at)
		if di != dj {
			return di < dj
		}
		if !sorted[i].CallStart.Equal(sorted[j].CallStart) {
			return sorted[i].CallStart.Before(sorted[j].CallStart)
		}
		return sorted[i].CallID < sorted[j].CallID
	})
	return sorted[0]
}

func joinCallIDs(calls []domain.CallCandidate) string {
	out := ""
	for i, c := range calls {
		if i > 0 {
			out += ","
		}
		out += c.CallID
	}
	return out
}
