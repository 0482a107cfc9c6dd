// Package storage persists trading records, portfolios, trades and users.
package storage

import (
	"context"
	"errors"

	"github.com/dyike/CortexFolio/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the document store. Trading records are keyed by user email and
// overwritten on every save.
type Store interface {
	SaveTradingRecord(ctx context.Context, rec models.TradingRecord) error
	GetTradingRecord(ctx context.Context, email string) (*models.TradingRecord, error)
	ListUserEmails(ctx context.Context) ([]string, error)
	// SaveAnalysis updates the analysis fields of an existing record.
	SaveAnalysis(ctx context.Context, email string, a models.Analysis) error
	SavePortfolio(ctx context.Context, doc models.PortfolioDoc) error
	SaveTrade(ctx context.Context, doc models.TradeDoc) error
	EnsureUser(ctx context.Context, email string) (models.UserDoc, error)
	Close() error
}
