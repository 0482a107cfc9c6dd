package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("skipping mongo store test: MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := fmt.Sprintf("cortexfolio_test_%d", time.Now().UnixNano())
	s, err := Open(ctx, uri, db)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close()
	}()
	storetest.Run(t, s)
}
