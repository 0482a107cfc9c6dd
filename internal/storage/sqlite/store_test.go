package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	storetest.Run(t, s)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := models.TradingRecord{UserEmail: "c@example.com", Response: "plan", Timestamp: time.Unix(1700000000, 0).UTC()}
	if err := s.SaveTradingRecord(context.Background(), rec); err != nil {
		t.Fatalf("SaveTradingRecord: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.GetTradingRecord(context.Background(), "c@example.com")
	if err != nil {
		t.Fatalf("GetTradingRecord: %v", err)
	}
	if got.Response != "plan" {
		t.Fatalf("response = %q", got.Response)
	}
}

func TestTradeRequiresPortfolio(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.SaveTrade(context.Background(), models.TradeDoc{PortfolioID: "missing", UserEmail: "x@example.com"}); err == nil {
		t.Fatalf("trade without portfolio accepted")
	}
}
