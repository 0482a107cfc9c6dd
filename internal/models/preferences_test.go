package models

import "testing"

func TestNormalizeDefaults(t *testing.T) {
	p := UserPreferences{Email: " Trader@Example.com ", Budget: 1000, Stocks: []string{" aapl", "msft"}}
	p.Normalize()

	if p.Email != "trader@example.com" {
		t.Fatalf("email = %q", p.Email)
	}
	if p.Risk != RiskMedium || p.Mode != ModeVirtual || p.Strategy != StrategySwing {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.Leverage != 1 || p.Notifications != "none" {
		t.Fatalf("leverage/notifications defaults not applied: %+v", p)
	}
	if len(p.PreferredMarkets) != 1 || p.PreferredMarkets[0] != MarketStocks {
		t.Fatalf("preferred markets = %v", p.PreferredMarkets)
	}
	if p.Stocks[0] != "AAPL" || p.Stocks[1] != "MSFT" {
		t.Fatalf("stocks = %v", p.Stocks)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	bad := 120.0
	cases := map[string]UserPreferences{
		"missing email": {Budget: 10, Risk: RiskLow, Mode: ModeVirtual},
		"zero budget":   {Email: "a@b.co", Risk: RiskLow, Mode: ModeVirtual},
		"bad risk":      {Email: "a@b.co", Budget: 10, Risk: "extreme", Mode: ModeVirtual},
		"bad mode":      {Email: "a@b.co", Budget: 10, Risk: RiskLow, Mode: "paper"},
		"stop loss":     {Email: "a@b.co", Budget: 10, Risk: RiskLow, Mode: ModeVirtual, StopLoss: &bad},
		"leverage":      {Email: "a@b.co", Budget: 10, Risk: RiskLow, Mode: ModeVirtual, Leverage: 0.5},
		"market":        {Email: "a@b.co", Budget: 10, Risk: RiskLow, Mode: ModeVirtual, PreferredMarkets: []Market{"bonds"}},
	}
	for name, p := range cases {
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestRiskParameterFallbacks(t *testing.T) {
	sl := 5.0
	p := UserPreferences{StopLoss: &sl}
	if got := p.StopLossOr(8); got != 5 {
		t.Fatalf("StopLossOr = %v", got)
	}
	if got := p.TakeProfitOr(20); got != 20 {
		t.Fatalf("TakeProfitOr = %v", got)
	}
}

func TestResearchRecordPriceFallsBackToSeries(t *testing.T) {
	r := ResearchRecord{
		Ticker:    "AAPL",
		YahooData: &PriceSeries{Bars: []PriceBar{{Close: 170}, {Close: 175}}},
	}
	p := r.Price()
	if p == nil || *p != 175 {
		t.Fatalf("Price = %v, want 175", p)
	}

	r.LatestPrice = &Quote{Price: 180}
	if p := r.Price(); p == nil || *p != 180 {
		t.Fatalf("Price = %v, want latest quote 180", p)
	}

	if p := (ResearchRecord{Ticker: "X"}).Price(); p != nil {
		t.Fatalf("Price without data = %v, want nil", *p)
	}
}
