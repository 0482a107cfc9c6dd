package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
)

func statusBadge(status string) string {
	switch status {
	case consts.StatusCompleted:
		return okStyle.Render(status)
	case consts.StatusDegraded, consts.StatusSkipped:
		return warnStyle.Render(status)
	default:
		return errorStyle.Render(status)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cell
		})
}

func money(v float64) string { return fmt.Sprintf("$%.2f", v) }

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func renderWarnings(b *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	b.WriteString("\n" + sectionStyle.Render("Warnings") + "\n")
	for _, w := range warnings {
		b.WriteString(warnStyle.Render("  ! "+w) + "\n")
	}
}

func renderTrade(st *graph.TradingState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Trading plan for %s", st.Prefs.Email)) + "\n")
	fmt.Fprintf(&b, "run %s  status %s  mode %s\n\n", dimStyle.Render(st.RunID), statusBadge(st.Status()), st.Prefs.Mode)

	t := newTable("Symbol", "Alloc %", "Amount", "Shares", "Price", "Target", "Stop", "Status")
	for _, p := range st.Allocation.Positions {
		status := p.Status
		if status == "" {
			status = "-"
		}
		t.Row(p.Symbol, pct(p.AllocationPercentage), money(p.AllocationAmount),
			fmt.Sprintf("%g", p.SharesToBuy), money(p.CurrentPrice),
			money(p.TargetPrice), money(p.StopLossPrice), status)
	}
	b.WriteString(t.Render() + "\n")
	fmt.Fprintf(&b, "budget %s  invested %s  cash reserve %s\n",
		money(st.Allocation.Budget), money(st.Allocation.TotalAmount), money(st.Allocation.CashReserve))

	if len(st.Orders) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Orders") + "\n")
		for _, o := range st.Orders {
			fmt.Fprintf(&b, "  %s %g %s @ %s (%s)\n", o.Action, o.Quantity, o.Symbol, money(o.EstimatedPrice), o.Status)
		}
	}
	renderWarnings(&b, st.Warnings)
	return b.String()
}

func renderRebalance(st *graph.RebalanceState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Rebalance for %s", st.Email)) + "\n")
	fmt.Fprintf(&b, "status %s", statusBadge(st.Status()))
	if st.Skipped != "" {
		fmt.Fprintf(&b, "  reason: %s\n", st.Skipped)
		return b.String()
	}
	b.WriteString("\n\n")

	t := newTable("Symbol", "Shares", "Invested", "Price", "Value", "PnL", "PnL %", "Action")
	actions := make(map[string]models.Decision, len(st.Decisions))
	for _, d := range st.Decisions {
		actions[d.Symbol] = d
	}
	for _, p := range st.Summary.Positions {
		priceNow := "n/a"
		if p.PriceNow != nil {
			priceNow = money(*p.PriceNow)
		}
		action := "-"
		if d, ok := actions[p.Symbol]; ok {
			action = string(d.Action)
		}
		t.Row(p.Symbol, fmt.Sprintf("%g", p.Shares), money(p.Invested), priceNow,
			money(p.CurrentValue), money(p.PnL), pct(p.PnLPct), action)
	}
	b.WriteString(t.Render() + "\n")
	s := st.Summary
	fmt.Fprintf(&b, "value %s  pnl %s (%s)  remaining %s\n",
		money(s.TotalCurrentValue), money(s.TotalPnL), pct(s.TotalPnLPct), money(s.RemainingBudget))

	if len(st.Decisions) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Decisions") + "\n")
		for _, d := range st.Decisions {
			line := fmt.Sprintf("  %s %s: %s", d.Action, d.Symbol, d.Reason)
			if d.Amount > 0 {
				line += " " + money(d.Amount)
			}
			b.WriteString(line + "\n")
		}
	}
	renderWarnings(&b, st.Warnings)
	return b.String()
}

func renderBatch(items []service.BatchItem) string {
	if len(items) == 0 {
		return dimStyle.Render("no stored users")
	}
	t := newTable("User", "Status", "Detail")
	for _, it := range items {
		detail := it.Reason
		if it.Error != "" {
			detail = it.Error
		}
		t.Row(it.Email, statusBadge(it.Status), detail)
	}
	return t.Render()
}

func yesNo(v *bool) string {
	if v == nil {
		return "?"
	}
	if *v {
		return "yes"
	}
	return "no"
}

func renderResearch(rep models.ResearchReport, warnings []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Research: "+rep.Query) + "\n")
	if len(rep.ExtractedTools) > 0 {
		fmt.Fprintf(&b, "tools found: %s\n\n", strings.Join(rep.ExtractedTools, ", "))
	}

	t := newTable("Service", "Pricing", "API", "Real-time", "Website")
	for _, c := range rep.Companies {
		t.Row(c.Name, c.PricingModel, yesNo(c.APIAvailable), yesNo(c.RealTimeData), c.Website)
	}
	b.WriteString(t.Render() + "\n\n")
	b.WriteString(sectionStyle.Render("Recommendations") + "\n")
	b.WriteString(rep.Analysis + "\n")
	renderWarnings(&b, warnings)
	return b.String()
}

func configured(ok bool) string {
	if ok {
		return okStyle.Render("configured")
	}
	return dimStyle.Render("not configured")
}

func renderConfig(cfg config.Config, path string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CortexFolio configuration") + "\n")
	rows := [][2]string{
		{"Override file", path},
		{"Data directory", cfg.DataDir},
		{"LLM", fmt.Sprintf("%s / %s", cfg.LLMProvider, cfg.LLMModel)},
		{"LLM API key", configured(cfg.RequireChatModel() == nil)},
		{"Structured output", fmt.Sprintf("%t", cfg.StructuredOutput)},
		{"Store", cfg.StoreDriver},
		{"HTTP address", cfg.HTTPAddr},
		{"Cron", fmt.Sprintf("%t (%s, min age %s)", cfg.CronEnabled, cfg.CronSpec, cfg.CronMinSnapshotAge)},
		{"Cash reserve", pct(cfg.CashReservePct)},
		{"Stop loss / take profit", fmt.Sprintf("%s / %s", pct(cfg.DefaultStopLossPct), pct(cfg.DefaultTakeProfitPct))},
		{"Max single position", pct(cfg.MaxSinglePositionPct)},
		{"Polygon", configured(cfg.PolygonAPIKey != "")},
		{"Yahoo", fmt.Sprintf("%t", cfg.YahooEnabled)},
		{"Reddit", configured(cfg.RedditClientID != "" && cfg.RedditSecret != "")},
		{"Longport", configured(cfg.LongportConfigured())},
		{"Firecrawl", configured(cfg.RequireFirecrawl() == nil)},
		{"Articles feed", configured(cfg.RequireArticles() == nil)},
		{"Eino debug", fmt.Sprintf("%t (port %d)", cfg.EinoDebugEnabled, cfg.EinoDebugPort)},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-24s %s\n", r[0]+":", r[1])
	}
	return b.String()
}

// credentialWarnings lists the integrations that are off for lack of
// credentials.
func credentialWarnings(cfg config.Config) []string {
	var out []string
	for _, err := range []error{cfg.RequireChatModel(), cfg.RequireFirecrawl(), cfg.RequireArticles(), cfg.RequireStore()} {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	if cfg.PolygonAPIKey == "" && !cfg.YahooEnabled && !cfg.LongportConfigured() {
		out = append(out, "no price provider configured")
	}
	if cfg.RedditClientID == "" || cfg.RedditSecret == "" {
		out = append(out, "Reddit credentials not configured; sentiment will be empty")
	}
	return out
}
