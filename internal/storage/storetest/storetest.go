// Package storetest runs the same behavioural checks against every Store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage"
)

func record(email, response string, at time.Time) models.TradingRecord {
	return models.TradingRecord{
		UserEmail: email,
		UserPreferences: models.UserPreferences{
			Email:  email,
			Query:  "dividend stocks",
			Budget: 10000,
			Risk:   models.RiskLow,
			Mode:   models.ModeVirtual,
		},
		Response:  response,
		Timestamp: at,
		Allocation: &models.Allocation{
			Budget:      10000,
			Positions:   []models.StockAllocation{{Symbol: "KO", AllocationAmount: 900, SharesToBuy: 15, CurrentPrice: 60}},
			TotalAmount: 900,
			CashReserve: 9100,
			ScaledBy:    1,
		},
	}
}

// Run exercises s. The store must be empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)

	if _, err := s.GetTradingRecord(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetTradingRecord missing: err = %v, want ErrNotFound", err)
	}
	if err := s.SaveAnalysis(ctx, "nobody@example.com", models.Analysis{At: at}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("SaveAnalysis missing: err = %v, want ErrNotFound", err)
	}

	if err := s.SaveTradingRecord(ctx, record("a@example.com", "first", at)); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	if err := s.SaveTradingRecord(ctx, record("a@example.com", "second", at.Add(time.Hour))); err != nil {
		t.Fatalf("SaveTradingRecord overwrite: %v", err)
	}
	if err := s.SaveTradingRecord(ctx, record("b@example.com", "other", at)); err != nil {
		t.Fatalf("SaveTradingRecord b: %v", err)
	}

	got, err := s.GetTradingRecord(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetTradingRecord: %v", err)
	}
	if got.Response != "second" || !got.Timestamp.Equal(at.Add(time.Hour)) {
		t.Fatalf("record not overwritten: %+v", got)
	}
	if got.Allocation == nil || got.Allocation.Positions[0].Symbol != "KO" || got.UserPreferences.Budget != 10000 {
		t.Fatalf("record fields lost: %+v", got)
	}

	emails, err := s.ListUserEmails(ctx)
	if err != nil {
		t.Fatalf("ListUserEmails: %v", err)
	}
	if len(emails) != 2 || emails[0] != "a@example.com" || emails[1] != "b@example.com" {
		t.Fatalf("emails = %v", emails)
	}

	price := 61.5
	analysis := models.Analysis{
		Summary: models.PortfolioSummary{
			Budget:    10000,
			Positions: []models.PositionSummary{{Symbol: "KO", Shares: 15, PriceNow: &price, Status: models.StatusPriced}},
		},
		Decisions: []models.Decision{{Symbol: "KO", Action: models.ActionHold, Reason: "within thresholds"}},
		Research:  []models.ResearchRecord{{Ticker: "KO"}},
		At:        at.Add(2 * time.Hour),
	}
	if err := s.SaveAnalysis(ctx, "a@example.com", analysis); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	got, err = s.GetTradingRecord(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetTradingRecord after analysis: %v", err)
	}
	if got.InvestAnalysis == nil || *got.InvestAnalysis.Positions[0].PriceNow != 61.5 {
		t.Fatalf("analysis not saved: %+v", got.InvestAnalysis)
	}
	if len(got.Decisions) != 1 || len(got.DataFetched) != 1 || got.Response != "second" {
		t.Fatalf("analysis fields: %+v", got)
	}
	if !got.SnapshotAt().Equal(at.Add(2 * time.Hour)) {
		t.Fatalf("snapshot time = %v", got.SnapshotAt())
	}

	u1, err := s.EnsureUser(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	u2, err := s.EnsureUser(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("EnsureUser again: %v", err)
	}
	if u1.ID == "" || u1.ID != u2.ID {
		t.Fatalf("user ids differ: %q vs %q", u1.ID, u2.ID)
	}

	pid := uuid.NewString()
	if err := s.SavePortfolio(ctx, models.PortfolioDoc{ID: pid, UserID: u1.ID, UserEmail: "a@example.com", Budget: 10000, CreatedAt: at}); err != nil {
		t.Fatalf("SavePortfolio: %v", err)
	}
	if err := s.SaveTrade(ctx, models.TradeDoc{ID: uuid.NewString(), PortfolioID: pid, UserEmail: "a@example.com", Timestamp: at}); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}
}
