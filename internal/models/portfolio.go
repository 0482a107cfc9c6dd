package models

import "time"

const (
	StatusAllocated      = "allocated"
	StatusSkippedNoPrice = "skipped: no price"
	StatusEstimatedPrice = "estimated price"
	StatusPriced         = "priced"
	StatusNoPriceData    = "no price data"
)

// Holding is a persisted position used as reconciliation input.
type Holding struct {
	Symbol   string  `json:"symbol" bson:"symbol"`
	Shares   float64 `json:"shares" bson:"shares"`
	Invested float64 `json:"invested" bson:"invested"`
	// Target is the plan's allocation amount, used for BUY decisions on unfilled positions.
	Target float64 `json:"target" bson:"target"`
}

type PositionSummary struct {
	Symbol       string    `json:"symbol" bson:"symbol"`
	Invested     float64   `json:"invested" bson:"invested"`
	Shares       float64   `json:"shares" bson:"shares"`
	PriceNow     *float64  `json:"price_now" bson:"price_now"`
	CurrentValue float64   `json:"current_value" bson:"current_value"`
	PnL          float64   `json:"pnl" bson:"pnl"`
	PnLPct       float64   `json:"pnl_pct" bson:"pnl_pct"`
	Status       string    `json:"status" bson:"status"`
	AsOf         time.Time `json:"as_of" bson:"as_of"`
}

type PortfolioSummary struct {
	Budget            float64           `json:"budget" bson:"budget"`
	TotalInvested     float64           `json:"total_invested" bson:"total_invested"`
	TotalCurrentValue float64           `json:"total_current_value" bson:"total_current_value"`
	TotalPnL          float64           `json:"total_pnl" bson:"total_pnl"`
	TotalPnLPct       float64           `json:"total_pnl_pct" bson:"total_pnl_pct"`
	RemainingBudget   float64           `json:"remaining_budget" bson:"remaining_budget"`
	Positions         []PositionSummary `json:"positions" bson:"positions"`
	AsOf              time.Time         `json:"as_of" bson:"as_of"`
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type Decision struct {
	Symbol string  `json:"symbol" bson:"symbol"`
	Action Action  `json:"action" bson:"action"`
	PnLPct float64 `json:"pnl_pct" bson:"pnl_pct"`
	Amount float64 `json:"amount,omitempty" bson:"amount,omitempty"`
	Reason string  `json:"reason" bson:"reason"`
}

// Allocation is the Allocation Builder's output.
type Allocation struct {
	Budget      float64           `json:"budget" bson:"budget"`
	Positions   []StockAllocation `json:"positions" bson:"positions"`
	TotalAmount float64           `json:"total_amount" bson:"total_amount"`
	CashReserve float64           `json:"cash_reserve" bson:"cash_reserve"`
	ScaledBy    float64           `json:"scaled_by" bson:"scaled_by"`
}

// Holdings converts allocated positions into reconciliation input.
func (a Allocation) Holdings() []Holding {
	out := make([]Holding, 0, len(a.Positions))
	for _, p := range a.Positions {
		invested := p.AllocationAmount
		if p.CurrentPrice > 0 {
			invested = p.SharesToBuy * p.CurrentPrice
		}
		if p.SharesToBuy == 0 {
			invested = 0
		}
		out = append(out, Holding{
			Symbol:   p.Symbol,
			Shares:   p.SharesToBuy,
			Invested: invested,
			Target:   p.AllocationAmount,
		})
	}
	return out
}
