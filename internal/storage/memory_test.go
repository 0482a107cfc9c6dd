package storage_test

import (
	"testing"

	"github.com/dyike/CortexFolio/internal/storage"
	"github.com/dyike/CortexFolio/internal/storage/storetest"
)

func TestMemoryStore(t *testing.T) {
	s := storage.NewMemoryStore()
	storetest.Run(t, s)
	if got := len(s.Portfolios("a@example.com")); got != 1 {
		t.Fatalf("portfolios = %d", got)
	}
	if got := len(s.Trades("a@example.com")); got != 1 {
		t.Fatalf("trades = %d", got)
	}
}
