package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/pkg/utils"
)

func reportsDir(dataDir string) string {
	return filepath.Join(dataDir, "reports")
}

func researchMarkdown(rep models.ResearchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Financial research: %s\n\n", rep.Query)
	if len(rep.ExtractedTools) > 0 {
		b.WriteString("## Tools mentioned\n\n")
		for _, t := range rep.ExtractedTools {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	b.WriteString("## Services\n\n| Service | Pricing | API | Real-time | Website |\n|---|---|---|---|---|\n")
	for _, c := range rep.Companies {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", c.Name, c.PricingModel, yesNo(c.APIAvailable), yesNo(c.RealTimeData), c.Website)
	}
	b.WriteString("\n## Recommendations\n\n")
	b.WriteString(rep.Analysis + "\n")
	return b.String()
}

func tradeMarkdown(st *graph.TradingState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Trading plan for %s\n\n", st.Prefs.Email)
	fmt.Fprintf(&b, "- run: %s\n- status: %s\n- mode: %s\n- budget: %s\n- cash reserve: %s\n\n",
		st.RunID, st.Status(), st.Prefs.Mode, money(st.Allocation.Budget), money(st.Allocation.CashReserve))
	b.WriteString("| Symbol | Alloc % | Amount | Shares | Price | Target | Stop |\n|---|---|---|---|---|---|---|\n")
	for _, p := range st.Allocation.Positions {
		fmt.Fprintf(&b, "| %s | %s | %s | %g | %s | %s | %s |\n", p.Symbol, pct(p.AllocationPercentage),
			money(p.AllocationAmount), p.SharesToBuy, money(p.CurrentPrice), money(p.TargetPrice), money(p.StopLossPrice))
	}
	if len(st.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range st.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	b.WriteString("\n## Model response\n\n")
	b.WriteString(st.Response + "\n")
	return b.String()
}

func saveReport(dataDir, kind, subject, content string) (string, error) {
	return utils.WriteMarkdown(reportsDir(dataDir), utils.ReportFileName(kind, subject, time.Now()), content)
}
