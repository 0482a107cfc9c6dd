package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/extract"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage"
)

func rebalanceDeps(research *stubResearch, store storage.Store) Deps {
	return Deps{
		Config:   testConfig(),
		Research: research,
		Store:    store,
		Now:      func() time.Time { return testNow },
	}
}

func storedRecord(t *testing.T, email string, at time.Time, positions []models.StockAllocation, withAllocation bool) models.TradingRecord {
	t.Helper()
	response, err := extract.FormatResponse(models.PlanEnvelope{TradingPlan: models.TradingPlan{SelectedStocks: positions}}, consts.DBSaved)
	if err != nil {
		t.Fatalf("FormatResponse: %v", err)
	}
	rec := models.TradingRecord{
		UserEmail:       email,
		UserPreferences: models.UserPreferences{Email: email, Budget: 10000},
		Response:        response,
		Timestamp:       at,
	}
	if withAllocation {
		rec.Allocation = &models.Allocation{Budget: 10000, Positions: positions}
	}
	return rec
}

func TestRebalanceDecides(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	positions := []models.StockAllocation{
		{Symbol: "AAPL", CurrentPrice: 150, AllocationAmount: 5400, SharesToBuy: 36},
		{Symbol: "MSFT", CurrentPrice: 0, AllocationAmount: 3600, SharesToBuy: 0, Status: models.StatusSkippedNoPrice},
	}
	if err := store.SaveTradingRecord(ctx, storedRecord(t, "ada@example.com", testNow.Add(-24*time.Hour), positions, true)); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	research := &stubResearch{records: map[string]models.ResearchRecord{
		"AAPL": {LatestPrice: price(180)},
		"MSFT": {LatestPrice: price(300)},
	}}

	r, err := NewRebalance(ctx, rebalanceDeps(research, store))
	if err != nil {
		t.Fatalf("NewRebalance: %v", err)
	}
	s, err := r.Run(ctx, "ada@example.com", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Status() != consts.StatusCompleted {
		t.Fatalf("status = %s (skipped %q)", s.Status(), s.Skipped)
	}

	aapl := s.Summary.Positions[0]
	if aapl.CurrentValue != 6480 || aapl.PnL != 1080 || aapl.PnLPct != 20 {
		t.Fatalf("AAPL summary = %+v", aapl)
	}
	if s.Summary.RemainingBudget != 4600 {
		t.Fatalf("remaining = %v", s.Summary.RemainingBudget)
	}
	if s.Decisions[0].Action != models.ActionSell {
		t.Fatalf("AAPL at take-profit: %+v", s.Decisions[0])
	}
	if s.Decisions[1].Action != models.ActionBuy || s.Decisions[1].Amount != 3600 {
		t.Fatalf("unfilled MSFT: %+v", s.Decisions[1])
	}

	rec, err := store.GetTradingRecord(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetTradingRecord: %v", err)
	}
	if rec.InvestAnalysis == nil || rec.AnalyzedAt == nil || !rec.AnalyzedAt.Equal(testNow) {
		t.Fatalf("analysis not saved: %+v", rec)
	}
	if len(rec.Decisions) != 2 || len(rec.DataFetched) != 2 {
		t.Fatalf("decisions=%d research=%d", len(rec.Decisions), len(rec.DataFetched))
	}
}

func TestRebalanceUsesStoredPlanWithoutAllocation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	positions := []models.StockAllocation{{Symbol: "KO", CurrentPrice: 100, AllocationAmount: 1000, SharesToBuy: 10}}
	if err := store.SaveTradingRecord(ctx, storedRecord(t, "ko@example.com", testNow.Add(-48*time.Hour), positions, false)); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	research := &stubResearch{records: map[string]models.ResearchRecord{"KO": {LatestPrice: price(90)}}}

	r, err := NewRebalance(ctx, rebalanceDeps(research, store))
	if err != nil {
		t.Fatalf("NewRebalance: %v", err)
	}
	s, err := r.Run(ctx, "ko@example.com", false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Holdings[0].Shares != 10 || s.Holdings[0].Invested != 1000 {
		t.Fatalf("holdings = %+v", s.Holdings)
	}
	if d := s.Decisions[0]; d.Action != models.ActionSell || !strings.HasPrefix(d.Reason, "stop-loss") {
		t.Fatalf("KO down 10%%: %+v", d)
	}
}

func TestRebalanceSkips(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	recent := storedRecord(t, "recent@example.com", testNow.Add(-time.Hour), []models.StockAllocation{{Symbol: "AAPL"}}, true)
	if err := store.SaveTradingRecord(ctx, recent); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	if err := store.SaveTradingRecord(ctx, models.TradingRecord{UserEmail: "empty@example.com", Timestamp: testNow.Add(-48 * time.Hour)}); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	noSymbols := models.TradingRecord{UserEmail: "nosym@example.com", Response: "no plan here", Timestamp: testNow.Add(-48 * time.Hour)}
	if err := store.SaveTradingRecord(ctx, noSymbols); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}

	research := &stubResearch{}
	r, err := NewRebalance(ctx, rebalanceDeps(research, store))
	if err != nil {
		t.Fatalf("NewRebalance: %v", err)
	}

	for email, want := range map[string]string{
		"missing@example.com": SkipNoRecord,
		"empty@example.com":   SkipNoResponse,
		"nosym@example.com":   SkipNoSymbols,
		"recent@example.com":  "minimum is 12h0m0s",
	} {
		s, err := r.Run(ctx, email, false)
		if err != nil {
			t.Fatalf("%s: %v", email, err)
		}
		if s.Status() != consts.StatusSkipped || !strings.Contains(s.Skipped, want) {
			t.Fatalf("%s: status=%s skipped=%q, want %q", email, s.Status(), s.Skipped, want)
		}
	}
	if len(research.asked) != 0 {
		t.Fatalf("skipped runs fetched research: %v", research.asked)
	}

	s, err := r.Run(ctx, "recent@example.com", true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if s.Skipped != "" || s.Status() != consts.StatusCompleted {
		t.Fatalf("forced run skipped: %q", s.Skipped)
	}
}

func TestRebalanceCancelled(t *testing.T) {
	store := storage.NewMemoryStore()
	r, err := NewRebalance(context.Background(), rebalanceDeps(&stubResearch{}, store))
	if err != nil {
		t.Fatalf("NewRebalance: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Run(ctx, "ada@example.com", false); err == nil {
		t.Fatalf("cancelled run returned no error")
	}
}
