package portfolio

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestBuildScalesToCashReserve(t *testing.T) {
	alloc := Build(10000, []Candidate{
		{Symbol: "AAPL", Percentage: 60, Price: 150},
		{Symbol: "MSFT", Percentage: 40, Price: 300},
	}, 10)

	if len(alloc.Positions) != 2 {
		t.Fatalf("positions = %d", len(alloc.Positions))
	}
	aapl, msft := alloc.Positions[0], alloc.Positions[1]
	if aapl.AllocationPercentage != 54 || msft.AllocationPercentage != 36 {
		t.Fatalf("scaled percentages = %v / %v, want 54 / 36", aapl.AllocationPercentage, msft.AllocationPercentage)
	}
	if aapl.AllocationAmount != 5400 || aapl.SharesToBuy != 36 {
		t.Fatalf("AAPL amount=%v shares=%v", aapl.AllocationAmount, aapl.SharesToBuy)
	}
	if msft.AllocationAmount != 3600 || msft.SharesToBuy != 12 {
		t.Fatalf("MSFT amount=%v shares=%v", msft.AllocationAmount, msft.SharesToBuy)
	}
	if alloc.CashReserve != 1000 {
		t.Fatalf("cash reserve = %v, want 1000", alloc.CashReserve)
	}
}

func TestBuildBelowCapUnchanged(t *testing.T) {
	alloc := Build(5000, []Candidate{{Symbol: "KO", Percentage: 20, Price: 60}}, 10)
	p := alloc.Positions[0]
	if p.AllocationPercentage != 20 || p.AllocationAmount != 1000 || p.SharesToBuy != 16 {
		t.Fatalf("unexpected position %+v", p)
	}
	if alloc.CashReserve != 4000 || alloc.ScaledBy != 1 {
		t.Fatalf("cash=%v scaled=%v", alloc.CashReserve, alloc.ScaledBy)
	}
}

func TestBuildEdgeCases(t *testing.T) {
	empty := Build(2500, nil, 10)
	if len(empty.Positions) != 0 || empty.CashReserve != 2500 {
		t.Fatalf("empty candidates: %+v", empty)
	}

	zero := Build(0, []Candidate{{Symbol: "AAPL", Percentage: 50, Price: 150}}, 10)
	if zero.Positions[0].AllocationAmount != 0 || zero.Positions[0].SharesToBuy != 0 || zero.CashReserve != 0 {
		t.Fatalf("zero budget: %+v", zero)
	}

	skipped := Build(1000, []Candidate{
		{Symbol: "NOPE", Percentage: 30, Price: 0},
		{Symbol: "KO", Percentage: 30, Price: 50},
	}, 10)
	if skipped.Positions[0].Status != models.StatusSkippedNoPrice || skipped.Positions[0].SharesToBuy != 0 {
		t.Fatalf("non-positive price not skipped: %+v", skipped.Positions[0])
	}
	if skipped.TotalAmount != 300 || skipped.CashReserve != 700 {
		t.Fatalf("skipped amount leaked into totals: total=%v cash=%v", skipped.TotalAmount, skipped.CashReserve)
	}
}

func TestBuildFractional(t *testing.T) {
	alloc := Build(1000, []Candidate{{Symbol: "BTC-USD", Percentage: 50, Price: 60000, Fractional: true}}, 10)
	if got := alloc.Positions[0].SharesToBuy; got != 0.008333 {
		t.Fatalf("fractional shares = %v, want 0.008333", got)
	}
}

func TestBuildNeverExceedsCap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		budget := math.Round(rng.Float64()*1e6*100) / 100
		floor := float64(rng.Intn(50))
		n := rng.Intn(9)
		cands := make([]Candidate, n)
		for j := range cands {
			cands[j] = Candidate{
				Symbol:     string(rune('A' + j)),
				Percentage: rng.Float64() * 60,
				Price:      rng.Float64()*500 - 20,
			}
		}

		a := Build(budget, cands, floor)
		limit := budget * (100 - floor) / 100
		if a.TotalAmount > limit+1e-6 {
			t.Fatalf("case %d: allocated %v > cap %v", i, a.TotalAmount, limit)
		}

		again := Build(budget, cands, floor)
		if !reflect.DeepEqual(a, again) {
			t.Fatalf("case %d: allocation not deterministic", i)
		}
	}
}

func TestConfidenceWeighted(t *testing.T) {
	cands := ConfidenceWeighted([]Signal{
		{Symbol: "AAPL", Confidence: 0.8},
		{Symbol: "MSFT", Confidence: 0.8},
	}, map[string]*float64{"AAPL": ptr(200)}, 20)

	if len(cands) != 2 {
		t.Fatalf("candidates = %d", len(cands))
	}
	if cands[0].Percentage != 40 || cands[1].Percentage != 40 {
		t.Fatalf("percentages = %v, %v", cands[0].Percentage, cands[1].Percentage)
	}
	if cands[0].Price != 200 || cands[0].Estimated {
		t.Fatalf("quoted price not used: %+v", cands[0])
	}
	if cands[1].Price != DefaultEstimatedPrice || !cands[1].Estimated {
		t.Fatalf("missing price not estimated: %+v", cands[1])
	}

	alloc := Build(10000, cands, 20)
	if alloc.Positions[1].Status != models.StatusEstimatedPrice {
		t.Fatalf("status = %q", alloc.Positions[1].Status)
	}
}

func TestFromPlanPrefersFetchedPrice(t *testing.T) {
	plan := models.TradingPlan{SelectedStocks: []models.StockAllocation{
		{Symbol: "AAPL", AllocationPercentage: 30, CurrentPrice: 100, CompanyName: "Apple"},
		{Symbol: "ETH-USD", AllocationPercentage: 10, CurrentPrice: 3000},
		{Symbol: ""},
	}}
	cands := FromPlan(plan, map[string]*float64{"AAPL": ptr(150), "ETH-USD": nil}, func(s string) bool { return s == "ETH-USD" })
	if len(cands) != 2 {
		t.Fatalf("candidates = %d", len(cands))
	}
	if cands[0].Price != 150 || cands[0].Plan.CompanyName != "Apple" {
		t.Fatalf("AAPL candidate = %+v", cands[0])
	}
	if cands[1].Price != 3000 || !cands[1].Fractional {
		t.Fatalf("ETH candidate = %+v", cands[1])
	}
}

func TestReconcileScenario(t *testing.T) {
	asOf := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	holdings := []models.Holding{{Symbol: "AAPL", Shares: 36, Invested: 5400}}
	s := Reconcile(10000, holdings, map[string]*float64{"AAPL": ptr(180)}, asOf)

	p := s.Positions[0]
	if p.CurrentValue != 6480 || p.PnL != 1080 || p.PnLPct != 20 {
		t.Fatalf("position = %+v", p)
	}
	if s.TotalInvested != 5400 || s.TotalCurrentValue != 6480 || s.TotalPnL != 1080 || s.TotalPnLPct != 20 {
		t.Fatalf("totals = %+v", s)
	}
	if s.RemainingBudget != 4600 {
		t.Fatalf("remaining = %v", s.RemainingBudget)
	}
}

func TestReconcileMissingPriceAndZeroInvested(t *testing.T) {
	holdings := []models.Holding{
		{Symbol: "AAPL", Shares: 10, Invested: 1500},
		{Symbol: "GONE", Shares: 5, Invested: 500},
		{Symbol: "FREE", Shares: 0, Invested: 0, Target: 300},
	}
	s := Reconcile(3000, holdings, map[string]*float64{"AAPL": ptr(150), "GONE": nil, "FREE": ptr(20)}, time.Unix(0, 0))

	if s.Positions[1].Status != models.StatusNoPriceData || s.Positions[1].PnL != 0 || s.Positions[1].PriceNow != nil {
		t.Fatalf("missing price position = %+v", s.Positions[1])
	}
	if s.Positions[2].PnLPct != 0 {
		t.Fatalf("zero invested pnl_pct = %v", s.Positions[2].PnLPct)
	}
	if s.TotalPnL != 0 || s.TotalInvested != 2000 || s.RemainingBudget != 1000 {
		t.Fatalf("totals = %+v", s)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	holdings := []models.Holding{
		{Symbol: "AAPL", Shares: 36, Invested: 5400},
		{Symbol: "MSFT", Shares: 12, Invested: 3600},
		{Symbol: "X", Shares: 3, Invested: 33.33},
	}
	prices := map[string]*float64{"AAPL": ptr(181.37), "MSFT": ptr(287.1)}
	asOf := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	first, _ := json.Marshal(Reconcile(10000, holdings, prices, asOf))
	second, _ := json.Marshal(Reconcile(10000, holdings, prices, asOf))
	if !bytes.Equal(first, second) {
		t.Fatalf("summaries differ:\n%s\n%s", first, second)
	}
}

func TestDecideThresholds(t *testing.T) {
	summary := models.PortfolioSummary{
		RemainingBudget: 1000,
		Positions: []models.PositionSummary{
			{Symbol: "LOSS", Shares: 10, PnLPct: -6},
			{Symbol: "MID", Shares: 10, PnLPct: 8},
			{Symbol: "WIN", Shares: 10, PnLPct: 16},
		},
	}
	got := Decide(summary, nil, Thresholds{StopLossPct: 5, TakeProfitPct: 15})
	want := []models.Action{models.ActionSell, models.ActionHold, models.ActionSell}
	for i, d := range got {
		if d.Action != want[i] {
			t.Fatalf("%s: action %s, want %s", d.Symbol, d.Action, want[i])
		}
	}
}

func TestDecideBuyCappedByRemainingBudget(t *testing.T) {
	summary := models.PortfolioSummary{
		RemainingBudget: 1000,
		Positions: []models.PositionSummary{
			{Symbol: "A", Shares: 0},
			{Symbol: "B", Shares: 0},
			{Symbol: "C", Shares: 0},
			{Symbol: "D", Shares: 0},
		},
	}
	holdings := []models.Holding{
		{Symbol: "A", Target: 600},
		{Symbol: "B", Target: 600},
		{Symbol: "C", Target: 400},
		{Symbol: "D", Target: 0},
	}
	got := Decide(summary, holdings, Thresholds{StopLossPct: 5, TakeProfitPct: 15})
	want := []models.Action{models.ActionBuy, models.ActionHold, models.ActionBuy, models.ActionHold}
	for i, d := range got {
		if d.Action != want[i] {
			t.Fatalf("%s: action %s, want %s (%s)", d.Symbol, d.Action, want[i], d.Reason)
		}
	}
	if got[0].Amount != 600 || got[2].Amount != 400 {
		t.Fatalf("buy amounts = %v, %v", got[0].Amount, got[2].Amount)
	}
}
