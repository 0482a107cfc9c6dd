package models

import "time"

// TradingRecord is the per-user document in the trading_bot collection.
type TradingRecord struct {
	UserEmail       string            `json:"user_email" bson:"user_email"`
	UserPreferences UserPreferences   `json:"user_preferences" bson:"user_preferences"`
	Response        string            `json:"response" bson:"response"`
	Timestamp       time.Time         `json:"timestamp" bson:"timestamp"`
	Allocation      *Allocation       `json:"allocation,omitempty" bson:"allocation,omitempty"`
	InvestAnalysis  *PortfolioSummary `json:"invest_analysis,omitempty" bson:"invest_analysis,omitempty"`
	Decisions       []Decision        `json:"decisions,omitempty" bson:"decisions,omitempty"`
	DataFetched     []ResearchRecord  `json:"data_fetched,omitempty" bson:"data_fetched,omitempty"`
	AnalyzedAt      *time.Time        `json:"analyzed_at,omitempty" bson:"analyzed_at,omitempty"`
}

type UserDoc struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	LastUpdated time.Time `json:"last_updated" bson:"last_updated"`
}

type Order struct {
	Symbol         string  `json:"symbol" bson:"symbol"`
	Action         string  `json:"action" bson:"action"`
	Quantity       float64 `json:"quantity" bson:"quantity"`
	EstimatedPrice float64 `json:"estimated_price" bson:"estimated_price"`
	EstimatedValue float64 `json:"estimated_value" bson:"estimated_value"`
	OrderType      string  `json:"order_type" bson:"order_type"`
	Status         string  `json:"status" bson:"status"`
}

const (
	OrderFilled        = "filled"
	OrderPendingBroker = "pending_broker"
)

type PortfolioDoc struct {
	ID          string            `json:"id" bson:"_id"`
	UserID      string            `json:"user_id" bson:"user_id"`
	UserEmail   string            `json:"user_email" bson:"user_email"`
	Allocation  []StockAllocation `json:"portfolio_allocation" bson:"portfolio_allocation"`
	Orders      []Order           `json:"orders" bson:"orders"`
	CashReserve float64           `json:"cash_reserve" bson:"cash_reserve"`
	Budget      float64           `json:"budget" bson:"budget"`
	Strategy    string            `json:"strategy" bson:"strategy"`
	RiskLevel   string            `json:"risk_level" bson:"risk_level"`
	Mode        string            `json:"mode" bson:"mode"`
	Status      string            `json:"status" bson:"status"`
	CreatedAt   time.Time         `json:"created_at" bson:"created_at"`
}

type TradeDoc struct {
	ID          string    `json:"id" bson:"_id"`
	PortfolioID string    `json:"portfolio_id" bson:"portfolio_id"`
	UserEmail   string    `json:"user_email" bson:"user_email"`
	Orders      []Order   `json:"trade_results" bson:"trade_results"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// Analysis is one rebalance result written onto a user's trading record.
type Analysis struct {
	Summary   PortfolioSummary `json:"summary" bson:"summary"`
	Decisions []Decision       `json:"decisions" bson:"decisions"`
	Research  []ResearchRecord `json:"research" bson:"research"`
	At        time.Time        `json:"at" bson:"at"`
}

// Apply copies the analysis onto the record.
func (r *TradingRecord) Apply(a Analysis) {
	summary := a.Summary
	at := a.At
	r.InvestAnalysis = &summary
	r.Decisions = a.Decisions
	r.DataFetched = a.Research
	r.AnalyzedAt = &at
}

// SnapshotAt is the time of the latest analysis, or of the plan when none exists.
func (r TradingRecord) SnapshotAt() time.Time {
	if r.AnalyzedAt != nil {
		return *r.AnalyzedAt
	}
	return r.Timestamp
}
