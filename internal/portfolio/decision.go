package portfolio

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexFolio/internal/models"
)

// Thresholds are percentages; a non-positive value disables that rule.
type Thresholds struct {
	StopLossPct   float64
	TakeProfitPct float64
}

// Decide classifies every reconciled position as BUY, SELL or HOLD.
// BUY spend is capped cumulatively at the summary's remaining budget,
// in position order.
func Decide(summary models.PortfolioSummary, holdings []models.Holding, th Thresholds) []models.Decision {
	targets := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		targets[h.Symbol] = h.Target
	}

	remaining := decimal.NewFromFloat(summary.RemainingBudget)
	used := decimal.Zero

	out := make([]models.Decision, 0, len(summary.Positions))
	for _, pos := range summary.Positions {
		d := models.Decision{Symbol: pos.Symbol, Action: models.ActionHold, PnLPct: pos.PnLPct}

		switch {
		case pos.Shares > 0 && th.StopLossPct > 0 && pos.PnLPct <= -th.StopLossPct:
			d.Action = models.ActionSell
			d.Reason = fmt.Sprintf("stop-loss: %.2f%% <= -%.2f%%", pos.PnLPct, th.StopLossPct)
		case pos.Shares > 0 && th.TakeProfitPct > 0 && pos.PnLPct >= th.TakeProfitPct:
			d.Action = models.ActionSell
			d.Reason = fmt.Sprintf("take-profit: %.2f%% >= %.2f%%", pos.PnLPct, th.TakeProfitPct)
		case pos.Shares == 0 && targets[pos.Symbol] > 0:
			target := decimal.NewFromFloat(targets[pos.Symbol])
			if used.Add(target).LessThanOrEqual(remaining) {
				used = used.Add(target)
				d.Action = models.ActionBuy
				d.Amount = target.InexactFloat64()
				d.Reason = "unfilled plan target within remaining budget"
			} else {
				d.Reason = "unfilled plan target exceeds remaining budget"
			}
		default:
			d.Reason = "within thresholds"
		}
		out = append(out, d)
	}
	return out
}
