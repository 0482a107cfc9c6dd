// Package mongo stores documents in the trading_bot, portfolios, trades and
// users collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/storage"
)

const (
	collTradingBot = "trading_bot"
	collPortfolios = "portfolios"
	collTrades     = "trades"
	collUsers      = "users"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := &Store{client: client, db: client.Database(database), now: time.Now}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		collTradingBot: {Keys: bson.D{{Key: "user_email", Value: 1}}, Options: options.Index().SetUnique(true)},
		collUsers:      {Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		collPortfolios: {Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "created_at", Value: -1}}},
		collTrades:     {Keys: bson.D{{Key: "portfolio_id", Value: 1}}},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("create %s index: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) SaveTradingRecord(ctx context.Context, rec models.TradingRecord) error {
	_, err := s.db.Collection(collTradingBot).ReplaceOne(ctx,
		bson.M{"user_email": rec.UserEmail},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert trading record: %w", err)
	}
	return nil
}

func (s *Store) GetTradingRecord(ctx context.Context, email string) (*models.TradingRecord, error) {
	var rec models.TradingRecord
	err := s.db.Collection(collTradingBot).FindOne(ctx, bson.M{"user_email": email}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trading record: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListUserEmails(ctx context.Context) ([]string, error) {
	values, err := s.db.Collection(collTradingBot).Distinct(ctx, "user_email", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	emails := make([]string, 0, len(values))
	for _, v := range values {
		if email, ok := v.(string); ok && email != "" {
			emails = append(emails, email)
		}
	}
	sort.Strings(emails)
	return emails, nil
}

func (s *Store) SaveAnalysis(ctx context.Context, email string, a models.Analysis) error {
	res, err := s.db.Collection(collTradingBot).UpdateOne(ctx,
		bson.M{"user_email": email},
		bson.M{"$set": bson.M{
			"invest_analysis": a.Summary,
			"decisions":       a.Decisions,
			"data_fetched":    a.Research,
			"analyzed_at":     a.At,
		}},
	)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SavePortfolio(ctx context.Context, doc models.PortfolioDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := s.db.Collection(collPortfolios).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

func (s *Store) SaveTrade(ctx context.Context, doc models.TradeDoc) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := s.db.Collection(collTrades).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *Store) EnsureUser(ctx context.Context, email string) (models.UserDoc, error) {
	now := s.now().UTC()
	var u models.UserDoc
	err := s.db.Collection(collUsers).FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{
			"$set":         bson.M{"last_updated": now},
			"$setOnInsert": bson.M{"_id": uuid.NewString(), "created_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return models.UserDoc{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

var _ storage.Store = (*Store)(nil)
