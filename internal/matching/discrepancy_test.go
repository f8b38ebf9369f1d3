package matching

import (
	"strings"
	"testing"
	"time"

	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/domain"
)

func analyzeOne(t *testing.T, inst domain.EmailInstruction, orders ...domain.Order) []domain.Discrepancy {
	t.Helper()
	a := NewAnalyzer(config.Default().Matching)
	cand := domain.MatchCandidate{
		Channel:    domain.ChannelEmail,
		EvidenceID: inst.GroupID,
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	cand.OrderIDs = ids
	return a.Analyze(cand, &inst, orders)
}

func findKind(discs []domain.Discrepancy, kind domain.DiscrepancyKind) *domain.Discrepancy {
	for i := range discs {
		if discs[i].Kind == kind {
			return &discs[i]
		}
	}
	return nil
}

func TestQuantityTypoGuard(t *testing.T) {
	// 1731271 instructed vs 1731 executed is a three-orders-of-magnitude
	// gap, a near-certain data-entry error.
	inst := testInstruction("G1", "NEOWM00412", "RELIANCE", domain.SideBuy, 1731271, "2940.10", at(11, 45))
	order := testOrder("401", "NEOWM00412", "RELIANCE", domain.SideBuy, 1731, "2940.10", at(12, 5))

	discs := analyzeOne(t, inst, order)
	d := findKind(discs, domain.DiscrepancyQuantity)
	if d == nil {
		t.Fatal("expected a quantity discrepancy")
	}
	if d.Severity != domain.SeverityCritical {
		t.Fatalf("severity = %s, want %s", d.Severity, domain.SeverityCritical)
	}
	if !strings.Contains(d.Explanation, "1731271") || !strings.Contains(d.Explanation, "1731") {
		t.Fatalf("explanation must carry both raw values, got %q", d.Explanation)
	}
}

func TestQuantitySeverityLadder(t *testing.T) {
	a := NewAnalyzer(config.Default().Matching)
	cases := []struct {
		instructed, executed int64
		want                 domain.Severity
	}{
		{1000, 950, domain.SeverityLow},
		{1000, 800, domain.SeverityMedium},
		{1000, 500, domain.SeverityHigh},
		{1000000, 100, domain.SeverityCritical},
	}
	for _, c := range cases {
		if got := a.quantitySeverity(c.instructed, c.executed); got != c.want {
			t.Fatalf("quantitySeverity(%d, %d) = %s, want %s", c.instructed, c.executed, got, c.want)
		}
	}
}

func TestPriceMismatchSeverity(t *testing.T) {
	inst := testInstruction("G1", "NEOWM00101", "RELIANCE", domain.SideBuy, 100, "1850", at(10, 0))
	order := testOrder("101", "NEOWM00101", "RELIANCE", domain.SideBuy, 100, "1910", at(10, 30))

	discs := analyzeOne(t, inst, order)
	d := findKind(discs, domain.DiscrepancyPrice)
	if d == nil {
		t.Fatal("expected a price discrepancy")
	}
	// 60 on 1850 is 3.2%: material but below the 5% high bar.
	if d.Severity != domain.SeverityMedium {
		t.Fatalf("severity = %s, want %s", d.Severity, domain.SeverityMedium)
	}
	if d.Instructed != "1850" || d.Executed != "1910" {
		t.Fatalf("verbatim values lost: instructed=%q executed=%q", d.Instructed, d.Executed)
	}
}

func TestCMPNoteIsInformational(t *testing.T) {
	inst := testInstruction("G1", "NEOWM00330", "ENERGYINF", domain.SideSell, 12000, "CMP", at(11, 0))
	order := testOrder("301", "NEOWM00330", "ENERGYINF", domain.SideSell, 12000, "128.75", at(11, 20))

	discs := analyzeOne(t, inst, order)
	d := findKind(discs, domain.DiscrepancyPrice)
	if d == nil {
		t.Fatal("expected a CMP price note")
	}
	if !d.Informational {
		t.Fatal("CMP execution is expected behavior, the note must be informational")
	}
	if d.Instructed != "CMP" {
		t.Fatalf("instructed = %q, want CMP", d.Instructed)
	}
}

func TestStatusDiscrepancyOnCancelledOrder(t *testing.T) {
	inst := testInstruction("G1", "NEOWM00601", "INFY", domain.SideBuy, 250, "1820", at(10, 30))
	order := testOrder("601", "NEOWM00601", "INFY", domain.SideBuy, 250, "1820", at(10, 55))
	order.Status = domain.StatusCancelled

	discs := analyzeOne(t, inst, order)
	d := findKind(discs, domain.DiscrepancyStatus)
	if d == nil {
		t.Fatal("expected a status discrepancy for evidence against a cancelled order")
	}
	if d.Severity != domain.SeverityMedium {
		t.Fatalf("severity = %s, want %s", d.Severity, domain.SeverityMedium)
	}
}

func TestSplitGroupComparedAsAggregate(t *testing.T) {
	inst := testInstruction("G2", "NEOWM00217", "BLUEJET", domain.SideBuy, 100000, "310", at(9, 55))
	discs := analyzeOne(t, inst,
		testOrder("201", "NEOWM00217", "BLUEJET", domain.SideBuy, 40000, "310", at(10, 2)),
		testOrder("202", "NEOWM00217", "BLUEJET", domain.SideBuy, 35000, "310", at(10, 6)),
		testOrder("203", "NEOWM00217", "BLUEJET", domain.SideBuy, 25000, "310", at(10, 11)),
	)
	if d := findKind(discs, domain.DiscrepancyQuantity); d != nil {
		t.Fatalf("aggregate quantity matches, got spurious discrepancy %+v", d)
	}
	if d := findKind(discs, domain.DiscrepancyPrice); d != nil {
		t.Fatalf("weighted average price matches, got spurious discrepancy %+v", d)
	}
}

func TestDailyFallbackTimingNote(t *testing.T) {
	a := NewAnalyzer(config.Default().Matching)
	order := testOrder("702", "NEOWM00555", "TATASTEEL", domain.SideSell, 800, "166.10", at(13, 44))
	cand := domain.MatchCandidate{
		Channel:    domain.ChannelAudio,
		Type:       domain.MatchDailyFallback,
		OrderIDs:   []string{order.OrderID},
		EvidenceID: "CALL-2",
		TimeDelta:  29 * time.Minute,
	}

	discs := a.Analyze(cand, nil, []domain.Order{order})
	d := findKind(discs, domain.DiscrepancyTiming)
	if d == nil {
		t.Fatal("expected a timing note for a daily fallback")
	}
	if !d.Informational {
		t.Fatal("fallback timing note must be informational")
	}
}
