package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/dataflows"
	"github.com/dyike/CortexFolio/internal/extract"
	"github.com/dyike/CortexFolio/internal/llm"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/result"
	"github.com/dyike/CortexFolio/pkg/utils"
)

const (
	maxSuggestedTickers = 5
	maxPlanStocks       = 8
	webSnippetLen       = 1000
)

var defaultTickers = []string{"AAPL", "MSFT", "GOOGL"}

type TradingState struct {
	RunID       string
	Prefs       models.UserPreferences
	User        models.UserDoc
	Tickers     []string
	Research    []models.ResearchRecord
	Web         []models.WebPage
	Plan        models.TradingPlan
	RawPlan     string
	Fallback    bool
	Allocation  models.Allocation
	Orders      []models.Order
	PortfolioID string
	DBStatus    string
	Response    string
	Warnings    []string
}

func (s *TradingState) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Status is completed unless a step had to degrade.
func (s *TradingState) Status() string {
	if s.Fallback || s.DBStatus != consts.DBSaved {
		return consts.StatusDegraded
	}
	return consts.StatusCompleted
}

// TradingAgent turns user preferences into a persisted plan and allocation:
// load_preferences -> research -> web_context -> plan -> allocate ->
// virtual|live -> persist.
type TradingAgent struct {
	deps   Deps
	runner *Runner[TradingState]
}

func NewTradingAgent(ctx context.Context, deps Deps) (*TradingAgent, error) {
	if err := require(consts.TradingAgent, map[string]bool{
		"chat model": deps.Chat == nil,
		"research":   deps.Research == nil,
		"store":      deps.Store == nil,
	}); err != nil {
		return nil, err
	}
	a := &TradingAgent{deps: deps}
	r, err := Pipeline[TradingState]{
		Name: consts.TradingAgent,
		Before: []Step[TradingState]{
			{Name: consts.NodePreferences, Run: a.loadPreferences},
			{Name: consts.NodeResearch, Run: a.research},
			{Name: consts.NodeWebContext, Run: a.webContext},
			{Name: consts.NodePlan, Run: a.plan},
			{Name: consts.NodeAllocate, Run: a.allocate},
		},
		Branch: &Branch[TradingState]{
			Choose: func(_ context.Context, s *TradingState) (string, error) {
				if s.Prefs.Mode == models.ModeLive {
					return consts.NodeLive, nil
				}
				return consts.NodeVirtual, nil
			},
			Arms: []Step[TradingState]{
				{Name: consts.NodeVirtual, Run: a.fillVirtual},
				{Name: consts.NodeLive, Run: a.recordLive},
			},
		},
		After: []Step[TradingState]{
			{Name: consts.NodePersist, Run: a.persist},
		},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	a.runner = r
	return a, nil
}

// Run plans for prefs. An empty runID is replaced by a fresh one.
func (a *TradingAgent) Run(ctx context.Context, runID string, prefs models.UserPreferences, handlers ...callbacks.Handler) (*TradingState, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	return a.runner.Run(a.deps.paced(ctx), &TradingState{RunID: runID, Prefs: prefs}, handlers...)
}

func (a *TradingAgent) loadPreferences(ctx context.Context, s *TradingState) error {
	s.Prefs.Normalize()
	if err := s.Prefs.Validate(); err != nil {
		return result.Wrap(result.KindPrecondition, consts.NodePreferences, err)
	}

	user, err := a.deps.Store.EnsureUser(ctx, s.Prefs.Email)
	if err != nil {
		a.deps.logger().Warn("ensure user failed", zap.String("user", s.Prefs.Email), zap.Error(err))
		s.warn("users: %v", err)
	}
	s.User = user

	if len(s.Prefs.Stocks) > 0 {
		s.Tickers = allowed(s.Prefs, s.Prefs.Stocks, maxPlanStocks)
	}
	if len(s.Tickers) == 0 {
		s.Tickers = allowed(s.Prefs, a.suggestTickers(ctx, s), maxSuggestedTickers)
	}
	if len(s.Tickers) == 0 {
		s.Tickers = allowed(s.Prefs, defaultTickers, maxSuggestedTickers)
	}
	return nil
}

// allowed upper-cases, de-duplicates and drops sanctioned tickers.
func allowed(p models.UserPreferences, tickers []string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] || p.IsSanctioned(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func (a *TradingAgent) suggestTickers(ctx context.Context, s *TradingState) []string {
	if s.Prefs.Query == "" {
		return nil
	}
	msgs, err := llm.TickerSuggestionPrompt.Messages(ctx, map[string]any{"query": s.Prefs.Query})
	if err != nil {
		s.warn("suggest tickers: %v", err)
		return nil
	}
	text, err := llm.Text(ctx, a.deps.Chat, msgs)
	if err != nil {
		s.warn("suggest tickers: %v", err)
		return nil
	}
	tickers, err := extract.StringList(text)
	if err != nil {
		s.warn("suggest tickers: %v", err)
		return nil
	}
	return tickers
}

func (a *TradingAgent) research(ctx context.Context, s *TradingState) error {
	records, err := a.deps.Research.Research(ctx, s.Tickers)
	s.Research = records
	return err
}

func (a *TradingAgent) webContext(ctx context.Context, s *TradingState) error {
	if a.deps.Web == nil || s.Prefs.Query == "" {
		return nil
	}
	for _, q := range []dataflows.SearchQuery{dataflows.MarketDataQuery(s.Prefs.Query), dataflows.EconomicDataQuery(s.Prefs.Query)} {
		if err := dataflows.Pace(ctx); err != nil {
			return err
		}
		pages, err := a.deps.Web.Search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.warn("web search %q: %v", q.Query, err)
			continue
		}
		for _, p := range pages {
			p.Markdown = utils.Truncate(p.Markdown, webSnippetLen)
			s.Web = append(s.Web, p)
		}
	}
	return nil
}

// researchDigest is the compact per-ticker view given to the model.
type researchDigest struct {
	Ticker      string    `json:"ticker"`
	LatestPrice *float64  `json:"latest_price"`
	Closes      []float64 `json:"recent_closes,omitempty"`
	Reddit      []string  `json:"reddit_posts,omitempty"`
	Articles    []string  `json:"articles,omitempty"`
}

func digest(records []models.ResearchRecord) string {
	out := make([]researchDigest, 0, len(records))
	for _, r := range records {
		d := researchDigest{Ticker: r.Ticker, LatestPrice: r.Price()}
		series := r.PolygonData
		if series == nil || len(series.Bars) == 0 {
			series = r.YahooData
		}
		if series != nil {
			bars := series.Bars
			if len(bars) > 10 {
				bars = bars[len(bars)-10:]
			}
			for _, b := range bars {
				d.Closes = append(d.Closes, b.Close)
			}
		}
		for _, p := range r.RedditSentiment {
			line := fmt.Sprintf("[%d] %s", p.Score, p.Title)
			for _, c := range p.Comments {
				c.Body = utils.Truncate(c.Body, 200)
				line += " | " + c.Body
			}
			d.Reddit = append(d.Reddit, line)
		}
		for i, art := range r.Articles {
			if i == 5 {
				break
			}
			d.Articles = append(d.Articles, art.Title)
		}
		out = append(out, d)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return string(data)
}

func webDigest(pages []models.WebPage) string {
	if len(pages) == 0 {
		return "none"
	}
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "- %s (%s)\n%s\n", p.Title, p.URL, strings.TrimSpace(p.Description+"\n"+p.Markdown))
	}
	return b.String()
}

func markets(p models.UserPreferences) string {
	names := make([]string, 0, len(p.PreferredMarkets))
	for _, m := range p.PreferredMarkets {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func (a *TradingAgent) planVars(s *TradingState) map[string]any {
	cfg := a.deps.Config
	return map[string]any{
		"query":        s.Prefs.Query,
		"budget":       s.Prefs.Budget,
		"risk":         string(s.Prefs.Risk),
		"strategy":     string(s.Prefs.Strategy),
		"markets":      markets(s.Prefs),
		"mode":         string(s.Prefs.Mode),
		"stocks":       strings.Join(s.Tickers, ", "),
		"research":     digest(s.Research),
		"web":          webDigest(s.Web),
		"now":          a.deps.now().Format("2006-01-02T15:04:05Z07:00"),
		"max_position": cfg.MaxSinglePositionPct,
		"cash_reserve": cfg.CashReservePct,
		"stop_loss":    s.Prefs.StopLossOr(cfg.DefaultStopLossPct),
		"take_profit":  s.Prefs.TakeProfitOr(cfg.DefaultTakeProfitPct),
		"max_total":    100 - cfg.CashReservePct,
		"sanctions":    strings.Join(s.Prefs.Sanctions, ", "),
	}
}

func (a *TradingAgent) plan(ctx context.Context, s *TradingState) error {
	msgs, err := llm.TradingPlanPrompt.Messages(ctx, a.planVars(s))
	if err != nil {
		return err
	}
	env, raw, err := llm.Decode[models.PlanEnvelope](ctx, a.deps.jsonModel(), "trading_plan", msgs)
	s.RawPlan = raw
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.deps.logger().Warn("plan unavailable, using fallback allocation",
			zap.String("user", s.Prefs.Email), zap.String("kind", string(result.KindOf(err))), zap.Error(err))
		s.warn("plan: %v", err)
		return nil
	}

	plan := env.TradingPlan
	kept := plan.SelectedStocks[:0]
	for _, st := range plan.SelectedStocks {
		st.Symbol = strings.ToUpper(strings.TrimSpace(st.Symbol))
		if st.Symbol == "" || s.Prefs.IsSanctioned(st.Symbol) {
			continue
		}
		kept = append(kept, st)
		if len(kept) == maxPlanStocks {
			break
		}
	}
	plan.SelectedStocks = kept
	s.Plan = plan
	return nil
}

func isFractional(symbol string) bool {
	return strings.HasSuffix(symbol, "-USD") || strings.HasSuffix(symbol, "-USDT")
}

// fallbackSignals weighs each researched ticker by how much data backs it.
func fallbackSignals(records []models.ResearchRecord) []portfolio.Signal {
	out := make([]portfolio.Signal, 0, len(records))
	for _, r := range records {
		conf := 0.5
		if r.Price() != nil {
			conf += 0.25
		}
		if len(r.RedditSentiment) > 0 {
			conf += 0.25
		}
		out = append(out, portfolio.Signal{
			Symbol:     r.Ticker,
			Confidence: conf,
			Reasoning:  "fallback allocation: model plan unavailable",
		})
	}
	return out
}

func (a *TradingAgent) allocate(_ context.Context, s *TradingState) error {
	cfg := a.deps.Config
	prices := models.PriceMap(s.Research)

	var cands []portfolio.Candidate
	if !s.Plan.Empty() {
		cands = portfolio.FromPlan(s.Plan, prices, isFractional)
	} else {
		s.Fallback = true
		cands = portfolio.ConfidenceWeighted(fallbackSignals(s.Research), prices, cfg.CashReservePct)
		for i := range cands {
			cands[i].Fractional = isFractional(cands[i].Symbol)
		}
	}

	alloc := portfolio.Build(s.Prefs.Budget, cands, cfg.CashReservePct)
	stop := decimal.NewFromFloat(s.Prefs.StopLossOr(cfg.DefaultStopLossPct))
	take := decimal.NewFromFloat(s.Prefs.TakeProfitOr(cfg.DefaultTakeProfitPct))
	hundred := decimal.NewFromInt(100)
	for i := range alloc.Positions {
		p := &alloc.Positions[i]
		if p.CurrentPrice <= 0 {
			continue
		}
		price := decimal.NewFromFloat(p.CurrentPrice)
		if p.TargetPrice <= 0 {
			p.TargetPrice = price.Mul(hundred.Add(take)).Div(hundred).Round(2).InexactFloat64()
		}
		if p.StopLossPrice <= 0 {
			p.StopLossPrice = price.Mul(hundred.Sub(stop)).Div(hundred).Round(2).InexactFloat64()
		}
	}
	s.Allocation = alloc
	return nil
}

func orders(alloc models.Allocation, status string) []models.Order {
	var out []models.Order
	for _, p := range alloc.Positions {
		if p.SharesToBuy <= 0 || p.CurrentPrice <= 0 {
			continue
		}
		out = append(out, models.Order{
			Symbol:         p.Symbol,
			Action:         string(models.ActionBuy),
			Quantity:       p.SharesToBuy,
			EstimatedPrice: p.CurrentPrice,
			EstimatedValue: decimal.NewFromFloat(p.SharesToBuy).Mul(decimal.NewFromFloat(p.CurrentPrice)).Round(2).InexactFloat64(),
			OrderType:      "market",
			Status:         status,
		})
	}
	return out
}

// fillVirtual paper-fills every order at its current price.
func (a *TradingAgent) fillVirtual(_ context.Context, s *TradingState) error {
	s.Orders = orders(s.Allocation, models.OrderFilled)
	return nil
}

// recordLive records order intents; no broker is contacted.
func (a *TradingAgent) recordLive(_ context.Context, s *TradingState) error {
	s.Orders = orders(s.Allocation, models.OrderPendingBroker)
	return nil
}

// finalPlan is the plan as persisted: the model's plan with the computed
// allocation, or a synthesized one when the fallback was used.
func (a *TradingAgent) finalPlan(s *TradingState) models.TradingPlan {
	cfg := a.deps.Config
	plan := s.Plan
	if s.Fallback {
		plan = models.TradingPlan{
			Status:    "fallback",
			Strategy:  string(s.Prefs.Strategy),
			RiskLevel: string(s.Prefs.Risk),
			UserQuery: s.Prefs.Query,
			RiskManagement: models.RiskManagement{
				MaxSinglePosition:     cfg.MaxSinglePositionPct,
				CashReservePercentage: cfg.CashReservePct,
				StopLossPercentage:    s.Prefs.StopLossOr(cfg.DefaultStopLossPct),
				TakeProfitPercentage:  s.Prefs.TakeProfitOr(cfg.DefaultTakeProfitPct),
				PositionSizingMethod:  "confidence_weighted",
				RebalanceFrequency:    "monthly",
			},
		}
	}
	plan.Timestamp = a.deps.now().Format("2006-01-02T15:04:05Z07:00")
	plan.TotalBudget = s.Prefs.Budget
	plan.SelectedStocks = s.Allocation.Positions
	plan.ExecutionPlan.ExecutionMode = string(s.Prefs.Mode)
	return plan
}

func (a *TradingAgent) persist(ctx context.Context, s *TradingState) error {
	now := a.deps.now()
	plan := a.finalPlan(s)
	s.Plan = plan

	portfolioStatus := consts.PortfolioActive
	if s.Prefs.Mode == models.ModeLive {
		portfolioStatus = consts.PortfolioPending
	}
	s.PortfolioID = uuid.NewString()
	s.DBStatus = consts.DBSaved

	err := a.deps.Store.SavePortfolio(ctx, models.PortfolioDoc{
		ID:          s.PortfolioID,
		UserID:      s.User.ID,
		UserEmail:   s.Prefs.Email,
		Allocation:  s.Allocation.Positions,
		Orders:      s.Orders,
		CashReserve: s.Allocation.CashReserve,
		Budget:      s.Prefs.Budget,
		Strategy:    string(s.Prefs.Strategy),
		RiskLevel:   string(s.Prefs.Risk),
		Mode:        string(s.Prefs.Mode),
		Status:      portfolioStatus,
		CreatedAt:   now,
	})
	if err == nil {
		err = a.deps.Store.SaveTrade(ctx, models.TradeDoc{
			ID:          uuid.NewString(),
			PortfolioID: s.PortfolioID,
			UserEmail:   s.Prefs.Email,
			Orders:      s.Orders,
			Timestamp:   now,
		})
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.DBStatus = consts.DBFailed
		s.warn("portfolio: %v", err)
	}

	response, err := extract.FormatResponse(models.PlanEnvelope{TradingPlan: plan}, s.DBStatus)
	if err != nil {
		return err
	}
	s.Response = response

	alloc := s.Allocation
	if err := a.deps.Store.SaveTradingRecord(ctx, models.TradingRecord{
		UserEmail:       s.Prefs.Email,
		UserPreferences: s.Prefs,
		Response:        response,
		Timestamp:       now,
		Allocation:      &alloc,
		DataFetched:     s.Research,
	}); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.deps.logger().Error("save trading record failed", zap.String("user", s.Prefs.Email), zap.Error(err))
		s.DBStatus = consts.DBFailed
		s.warn("trading record: %v", err)
		if s.Response, err = extract.FormatResponse(models.PlanEnvelope{TradingPlan: plan}, s.DBStatus); err != nil {
			return err
		}
	}
	return nil
}
