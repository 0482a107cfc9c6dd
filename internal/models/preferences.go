package models

import (
	"fmt"
	"net/mail"
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type ExecutionMode string

const (
	ModeVirtual ExecutionMode = "virtual"
	ModeLive    ExecutionMode = "live"
)

type Strategy string

const (
	StrategyDayTrading Strategy = "day_trading"
	StrategySwing      Strategy = "swing"
	StrategyLongTerm   Strategy = "long_term"
	StrategyScalping   Strategy = "scalping"
)

type Market string

const (
	MarketStocks Market = "stocks"
	MarketCrypto Market = "crypto"
	MarketForex  Market = "forex"
	MarketETF    Market = "etf"
)

// UserPreferences is the request that drives one trading run.
type UserPreferences struct {
	Email            string        `json:"email" bson:"email"`
	Query            string        `json:"query" bson:"query"`
	Budget           float64       `json:"budget" bson:"budget"`
	Stocks           []string      `json:"stocks,omitempty" bson:"stocks,omitempty"`
	Risk             RiskLevel     `json:"risk" bson:"risk"`
	Mode             ExecutionMode `json:"mode" bson:"mode"`
	Strategy         Strategy      `json:"strategy,omitempty" bson:"strategy,omitempty"`
	StopLoss         *float64      `json:"stop_loss,omitempty" bson:"stop_loss,omitempty"`
	TakeProfit       *float64      `json:"take_profit,omitempty" bson:"take_profit,omitempty"`
	MaxDrawdown      *float64      `json:"max_drawdown,omitempty" bson:"max_drawdown,omitempty"`
	Leverage         float64       `json:"leverage,omitempty" bson:"leverage,omitempty"`
	TradeFrequency   string        `json:"trade_frequency,omitempty" bson:"trade_frequency,omitempty"`
	Notifications    string        `json:"notifications,omitempty" bson:"notifications,omitempty"`
	PreferredMarkets []Market      `json:"preferred_markets,omitempty" bson:"preferred_markets,omitempty"`
	Sanctions        []string      `json:"sanctions,omitempty" bson:"sanctions,omitempty"`
}

// Normalize fills defaults in place.
func (p *UserPreferences) Normalize() {
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Query = strings.TrimSpace(p.Query)
	if p.Risk == "" {
		p.Risk = RiskMedium
	}
	if p.Mode == "" {
		p.Mode = ModeVirtual
	}
	if p.Strategy == "" {
		p.Strategy = StrategySwing
	}
	if p.Leverage == 0 {
		p.Leverage = 1
	}
	if p.Notifications == "" {
		p.Notifications = "none"
	}
	if len(p.PreferredMarkets) == 0 {
		p.PreferredMarkets = []Market{MarketStocks}
	}
	for i, s := range p.Stocks {
		p.Stocks[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	for i, s := range p.Sanctions {
		p.Sanctions[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

func (p UserPreferences) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return fmt.Errorf("invalid email %q", p.Email)
	}
	if p.Budget <= 0 {
		return fmt.Errorf("budget must be positive")
	}
	switch p.Risk {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("invalid risk %q", p.Risk)
	}
	switch p.Mode {
	case ModeVirtual, ModeLive:
	default:
		return fmt.Errorf("invalid mode %q", p.Mode)
	}
	switch p.Strategy {
	case "", StrategyDayTrading, StrategySwing, StrategyLongTerm, StrategyScalping:
	default:
		return fmt.Errorf("invalid strategy %q", p.Strategy)
	}
	for name, v := range map[string]*float64{"stop_loss": p.StopLoss, "take_profit": p.TakeProfit, "max_drawdown": p.MaxDrawdown} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%s must be within 0..100", name)
		}
	}
	if p.Leverage != 0 && p.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1")
	}
	switch p.TradeFrequency {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("invalid trade_frequency %q", p.TradeFrequency)
	}
	switch p.Notifications {
	case "", "email", "sms", "push", "none":
	default:
		return fmt.Errorf("invalid notifications %q", p.Notifications)
	}
	for _, m := range p.PreferredMarkets {
		switch m {
		case MarketStocks, MarketCrypto, MarketForex, MarketETF:
		default:
			return fmt.Errorf("invalid market %q", m)
		}
	}
	return nil
}

func (p UserPreferences) WantsMarket(m Market) bool {
	for _, v := range p.PreferredMarkets {
		if v == m {
			return true
		}
	}
	return false
}

func (p UserPreferences) IsSanctioned(symbol string) bool {
	for _, s := range p.Sanctions {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

// StopLossOr returns the user's stop-loss percentage or def.
func (p UserPreferences) StopLossOr(def float64) float64 {
	if p.StopLoss != nil {
		return *p.StopLoss
	}
	return def
}

func (p UserPreferences) TakeProfitOr(def float64) float64 {
	if p.TakeProfit != nil {
		return *p.TakeProfit
	}
	return def
}
