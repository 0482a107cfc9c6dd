package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/models"
)

// Reconcile values prior holdings at the given prices. A nil or missing
// price leaves the position at cost with status "no price data".
// The output depends only on its inputs, so identical calls produce
// identical summaries.
func Reconcile(budget float64, holdings []models.Holding, prices map[string]*float64, asOf time.Time) models.PortfolioSummary {
	asOf = asOf.UTC()
	summary := models.PortfolioSummary{
		Budget:    budget,
		Positions: make([]models.PositionSummary, 0, len(holdings)),
		AsOf:      asOf,
	}

	totalInvested := decimal.Zero
	totalValue := decimal.Zero

	for _, h := range holdings {
		invested := decimal.NewFromFloat(h.Invested)
		shares := decimal.NewFromFloat(h.Shares)
		pos := models.PositionSummary{
			Symbol:   h.Symbol,
			Invested: h.Invested,
			Shares:   h.Shares,
			AsOf:     asOf,
		}

		price, ok := prices[h.Symbol]
		if !ok || price == nil {
			pos.Status = models.StatusNoPriceData
			pos.CurrentValue = h.Invested
			totalInvested = totalInvested.Add(invested)
			totalValue = totalValue.Add(invested)
			summary.Positions = append(summary.Positions, pos)
			continue
		}

		p := *price
		pos.PriceNow = &p
		value := shares.Mul(decimal.NewFromFloat(p))
		pnl := value.Sub(invested)
		pos.Status = models.StatusPriced
		pos.CurrentValue = value.Round(6).InexactFloat64()
		pos.PnL = pnl.Round(6).InexactFloat64()
		pos.PnLPct = percentOf(pnl, invested)

		totalInvested = totalInvested.Add(invested)
		totalValue = totalValue.Add(value)
		summary.Positions = append(summary.Positions, pos)
	}

	totalPnL := totalValue.Sub(totalInvested)
	summary.TotalInvested = totalInvested.Round(6).InexactFloat64()
	summary.TotalCurrentValue = totalValue.Round(6).InexactFloat64()
	summary.TotalPnL = totalPnL.Round(6).InexactFloat64()
	summary.TotalPnLPct = percentOf(totalPnL, totalInvested)
	summary.RemainingBudget = decimal.NewFromFloat(budget).Sub(totalInvested).Round(6).InexactFloat64()
	return summary
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(6).InexactFloat64()
}
