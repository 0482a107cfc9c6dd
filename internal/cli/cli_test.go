package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/service"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "cortexfolio "+Version) {
		t.Fatalf("output = %q", out)
	}
}

func TestRebalanceNeedsExactlyOneTarget(t *testing.T) {
	if _, err := execute(t, "rebalance"); err == nil || !strings.Contains(err.Error(), "exactly one") {
		t.Fatalf("no target err = %v", err)
	}
	if _, err := execute(t, "rebalance", "--all", "--email", "a@example.com"); err == nil {
		t.Fatalf("both targets accepted")
	}
}

func TestTradeRejectsInvalidFlags(t *testing.T) {
	_, err := execute(t, "trade", "--email", "a@example.com", "--budget=-5")
	if err == nil || !strings.Contains(err.Error(), "budget") {
		t.Fatalf("err = %v", err)
	}
}

func TestParseTickers(t *testing.T) {
	got, err := parseTickers(" aapl, msft brk.b,AAPL ")
	if err != nil {
		t.Fatalf("parseTickers: %v", err)
	}
	want := []string{"AAPL", "MSFT", "BRK.B"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
	if _, err := parseTickers("AAPL, $$$"); err == nil {
		t.Fatalf("invalid ticker accepted")
	}
	if got, _ := parseTickers(""); len(got) != 0 {
		t.Fatalf("empty input gave %v", got)
	}
}

func TestPromptValidators(t *testing.T) {
	if validateEmail("not-an-email") == nil || validateEmail("a@example.com") != nil {
		t.Fatalf("email validator wrong")
	}
	if validateBudget("0") == nil || validateBudget("abc") == nil || validateBudget("2500.50") != nil {
		t.Fatalf("budget validator wrong")
	}
}

func TestRenderTrade(t *testing.T) {
	st := &graph.TradingState{
		RunID:    "run-1",
		Prefs:    models.UserPreferences{Email: "a@example.com", Mode: models.ModeVirtual},
		DBStatus: consts.DBSaved,
		Allocation: models.Allocation{
			Budget:      1000,
			TotalAmount: 900,
			CashReserve: 100,
			Positions: []models.StockAllocation{
				{Symbol: "AAPL", AllocationPercentage: 90, AllocationAmount: 900, SharesToBuy: 6, CurrentPrice: 150},
			},
		},
		Orders:   []models.Order{{Symbol: "AAPL", Action: "BUY", Quantity: 6, EstimatedPrice: 150, Status: "filled"}},
		Warnings: []string{"reddit: rate limited"},
	}
	out := renderTrade(st)
	for _, want := range []string{"a@example.com", "AAPL", "$900.00", "cash reserve $100.00", "BUY 6 AAPL", "reddit: rate limited"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRebalanceSkipped(t *testing.T) {
	out := renderRebalance(&graph.RebalanceState{Email: "a@example.com", Skipped: graph.SkipNoRecord})
	if !strings.Contains(out, consts.StatusSkipped) || !strings.Contains(out, graph.SkipNoRecord) {
		t.Fatalf("render = %s", out)
	}
}

func TestRenderBatch(t *testing.T) {
	out := renderBatch([]service.BatchItem{
		{Email: "a@example.com", Status: consts.StatusCompleted},
		{Email: "b@example.com", Status: consts.StatusFailed, Error: "disk on fire"},
	})
	if !strings.Contains(out, "b@example.com") || !strings.Contains(out, "disk on fire") {
		t.Fatalf("render = %s", out)
	}
}

func TestCredentialWarnings(t *testing.T) {
	cfg := config.Config{LLMProvider: "deepseek", StoreDriver: "memory"}
	warnings := credentialWarnings(cfg)
	joined := strings.Join(warnings, "\n")
	for _, want := range []string{"llm provider", "FIRECRAWL_API_KEY", "URL_ARTICLES", "no price provider"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("warnings missing %q: %v", want, warnings)
		}
	}

	cfg.DeepSeekAPIKey = "k"
	cfg.FirecrawlAPIKey = "k"
	cfg.ArticlesURL = "https://example.com/feed"
	cfg.YahooEnabled = true
	cfg.RedditClientID, cfg.RedditSecret = "id", "secret"
	if w := credentialWarnings(cfg); len(w) != 0 {
		t.Fatalf("fully configured still warns: %v", w)
	}
}

func TestResearchMarkdown(t *testing.T) {
	api := true
	md := researchMarkdown(models.ResearchReport{
		Query:          "market data apis",
		ExtractedTools: []string{"Polygon"},
		Companies: []models.CompanyInfo{{
			Name:              "Polygon",
			Website:           "https://polygon.example",
			FinancialAnalysis: models.FinancialAnalysis{PricingModel: "Freemium", APIAvailable: &api},
		}},
		Analysis: "Use Polygon.",
	})
	for _, want := range []string{"# Financial research: market data apis", "| Polygon | Freemium | yes | ? | https://polygon.example |", "Use Polygon."} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}
