package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/models"
)

// DefaultEstimatedPrice is assumed for fallback candidates without a quote.
const DefaultEstimatedPrice = 100.0

var hundred = decimal.NewFromInt(100)

// Candidate is one instrument proposed for allocation.
type Candidate struct {
	Symbol     string
	Percentage float64
	Price      float64
	// Fractional allows non-integer share counts (crypto and other divisible assets).
	Fractional bool
	// Plan carries the model's fields (company, targets, reasoning) through to the output.
	Plan models.StockAllocation
	// Estimated marks a price that was assumed rather than quoted.
	Estimated bool
}

// Build turns percentages into amounts and share counts.
//
// When the percentages add up to more than 100-reservePct they are all
// scaled by the same factor so the cash reserve is preserved. Candidates
// without a positive price are kept with zero shares and their amount is
// excluded from the totals.
func Build(budget float64, candidates []Candidate, reservePct float64) models.Allocation {
	b := decimal.NewFromFloat(budget)
	if b.IsNegative() {
		b = decimal.Zero
	}
	reserve := decimal.NewFromFloat(reservePct)
	if reserve.IsNegative() {
		reserve = decimal.Zero
	}
	if reserve.GreaterThan(hundred) {
		reserve = hundred
	}
	capPct := hundred.Sub(reserve)

	sum := decimal.Zero
	for _, c := range candidates {
		if c.Percentage > 0 {
			sum = sum.Add(decimal.NewFromFloat(c.Percentage))
		}
	}

	factor := decimal.NewFromInt(1)
	if sum.GreaterThan(capPct) {
		// truncated so the scaled sum never exceeds the cap
		factor = capPct.DivRound(sum, 16).Truncate(12)
	}

	out := models.Allocation{
		Budget:    b.InexactFloat64(),
		Positions: make([]models.StockAllocation, 0, len(candidates)),
		ScaledBy:  factor.InexactFloat64(),
	}

	total := decimal.Zero
	for _, c := range candidates {
		pct := decimal.Zero
		if c.Percentage > 0 {
			pct = decimal.NewFromFloat(c.Percentage).Mul(factor)
		}
		amount := b.Mul(pct).Div(hundred).Truncate(2)
		price := decimal.NewFromFloat(c.Price)

		pos := c.Plan
		pos.Symbol = c.Symbol
		pos.AllocationPercentage = pct.Round(6).InexactFloat64()
		pos.AllocationAmount = amount.InexactFloat64()
		pos.CurrentPrice = c.Price

		if !price.IsPositive() {
			pos.SharesToBuy = 0
			pos.Status = models.StatusSkippedNoPrice
			out.Positions = append(out.Positions, pos)
			continue
		}

		shares := amount.Div(price)
		if c.Fractional {
			shares = shares.Truncate(6)
		} else {
			shares = shares.Floor()
		}
		pos.SharesToBuy = shares.InexactFloat64()
		pos.Status = models.StatusAllocated
		if c.Estimated {
			pos.Status = models.StatusEstimatedPrice
		}
		total = total.Add(amount)
		out.Positions = append(out.Positions, pos)
	}

	out.TotalAmount = total.InexactFloat64()
	out.CashReserve = b.Sub(total).InexactFloat64()
	return out
}

// Signal is a per-symbol conviction used by the fallback allocation.
type Signal struct {
	Symbol     string
	Confidence float64
	Reasoning  string
}

// ConfidenceWeighted splits the investable share of the budget across
// signals in proportion to their confidence. Symbols without a known
// price are assigned DefaultEstimatedPrice.
func ConfidenceWeighted(signals []Signal, prices map[string]*float64, reservePct float64) []Candidate {
	if len(signals) == 0 {
		return nil
	}
	capPct := hundred.Sub(decimal.NewFromFloat(reservePct))
	if capPct.IsNegative() {
		capPct = decimal.Zero
	}

	totalConf := decimal.Zero
	for _, s := range signals {
		if s.Confidence > 0 {
			totalConf = totalConf.Add(decimal.NewFromFloat(s.Confidence))
		}
	}
	n := decimal.NewFromInt(int64(len(signals)))

	out := make([]Candidate, 0, len(signals))
	for _, s := range signals {
		weight := decimal.NewFromInt(1).Div(n)
		if totalConf.IsPositive() {
			weight = decimal.Zero
			if s.Confidence > 0 {
				weight = decimal.NewFromFloat(s.Confidence).Div(totalConf)
			}
		}
		c := Candidate{
			Symbol:     s.Symbol,
			Percentage: capPct.Mul(weight).Truncate(8).InexactFloat64(),
			Plan: models.StockAllocation{
				ConfidenceScore: s.Confidence,
				Reasoning:       s.Reasoning,
			},
		}
		if p, ok := prices[s.Symbol]; ok && p != nil && *p > 0 {
			c.Price = *p
		} else {
			c.Price = DefaultEstimatedPrice
			c.Estimated = true
		}
		out = append(out, c)
	}
	return out
}

// FromPlan converts the model's selected stocks into candidates, preferring
// freshly fetched prices over the model's quoted ones.
func FromPlan(plan models.TradingPlan, prices map[string]*float64, fractional func(symbol string) bool) []Candidate {
	out := make([]Candidate, 0, len(plan.SelectedStocks))
	for _, s := range plan.SelectedStocks {
		if s.Symbol == "" {
			continue
		}
		price := s.CurrentPrice
		if p, ok := prices[s.Symbol]; ok && p != nil && *p > 0 {
			price = *p
		}
		c := Candidate{
			Symbol:     s.Symbol,
			Percentage: s.AllocationPercentage,
			Price:      price,
			Plan:       s,
		}
		if fractional != nil {
			c.Fractional = fractional(s.Symbol)
		}
		out = append(out, c)
	}
	return out
}
