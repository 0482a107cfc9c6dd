package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/consts"
	"github.com/dyike/CortexFolio/internal/extract"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/storage"
)

const (
	SkipNoRecord    = "no trading record"
	SkipNoResponse  = "trading record has no plan response"
	SkipNoSymbols   = "no symbols in stored plan"
	skipTooRecentFm = "latest snapshot is %s old, minimum is %s"
)

type RebalanceState struct {
	Email     string
	Force     bool
	Record    *models.TradingRecord
	Symbols   []string
	Research  []models.ResearchRecord
	Holdings  []models.Holding
	Summary   models.PortfolioSummary
	Decisions []models.Decision
	DBStatus  string
	Skipped   string
	Warnings  []string
}

func (s *RebalanceState) Halted() bool { return s.Skipped != "" }

func (s *RebalanceState) Status() string {
	switch {
	case s.Skipped != "":
		return consts.StatusSkipped
	case s.DBStatus != consts.DBSaved:
		return consts.StatusDegraded
	default:
		return consts.StatusCompleted
	}
}

// Rebalance reconciles a user's stored allocation against fresh prices:
// load_record -> extract_symbols -> research -> reconcile -> decide ->
// save_analysis. Missing preconditions end the run as skipped.
type Rebalance struct {
	deps   Deps
	runner *Runner[RebalanceState]
}

func NewRebalance(ctx context.Context, deps Deps) (*Rebalance, error) {
	if err := require(consts.Rebalance, map[string]bool{
		"research": deps.Research == nil,
		"store":    deps.Store == nil,
	}); err != nil {
		return nil, err
	}
	r := &Rebalance{deps: deps}
	runner, err := Pipeline[RebalanceState]{
		Name: consts.Rebalance,
		Before: []Step[RebalanceState]{
			{Name: consts.NodeLoadRecord, Run: r.loadRecord},
			{Name: consts.NodeExtractSymbols, Run: r.extractSymbols},
			{Name: consts.NodeResearch, Run: r.research},
			{Name: consts.NodeReconcile, Run: r.reconcile},
			{Name: consts.NodeDecide, Run: r.decide},
			{Name: consts.NodeSaveAnalysis, Run: r.save},
		},
	}.Compile(ctx)
	if err != nil {
		return nil, err
	}
	r.runner = runner
	return r, nil
}

// Run rebalances one user. force ignores the minimum snapshot age.
func (r *Rebalance) Run(ctx context.Context, email string, force bool, handlers ...callbacks.Handler) (*RebalanceState, error) {
	return r.runner.Run(r.deps.paced(ctx), &RebalanceState{Email: email, Force: force}, handlers...)
}

func (r *Rebalance) loadRecord(ctx context.Context, s *RebalanceState) error {
	rec, err := r.deps.Store.GetTradingRecord(ctx, s.Email)
	if errors.Is(err, storage.ErrNotFound) {
		s.Skipped = SkipNoRecord
		return nil
	}
	if err != nil {
		return err
	}
	s.Record = rec
	if rec.Response == "" {
		s.Skipped = SkipNoResponse
		return nil
	}

	minAge := r.deps.Config.CronMinSnapshotAge
	if age := r.deps.now().Sub(rec.SnapshotAt()); !s.Force && minAge > 0 && age < minAge {
		s.Skipped = fmt.Sprintf(skipTooRecentFm, age.Truncate(time.Second), minAge)
	}
	return nil
}

// storedPlan reads the plan embedded in the record's response text.
func storedPlan(rec *models.TradingRecord) (models.TradingPlan, bool) {
	var env models.PlanEnvelope
	if err := extract.Into(rec.Response, &env); err != nil {
		return models.TradingPlan{}, false
	}
	return env.TradingPlan, true
}

func (r *Rebalance) extractSymbols(_ context.Context, s *RebalanceState) error {
	s.Symbols = extract.Symbols(s.Record.Response)
	if len(s.Symbols) == 0 && s.Record.Allocation != nil {
		for _, p := range s.Record.Allocation.Positions {
			s.Symbols = append(s.Symbols, p.Symbol)
		}
	}
	if len(s.Symbols) == 0 {
		s.Skipped = SkipNoSymbols
	}
	return nil
}

func (r *Rebalance) research(ctx context.Context, s *RebalanceState) error {
	records, err := r.deps.Research.Research(ctx, s.Symbols)
	s.Research = records
	return err
}

// holdings prefers the stored allocation, then the positions of the stored
// plan. Symbols with neither become empty holdings.
func holdings(rec *models.TradingRecord, symbols []string) []models.Holding {
	var source []models.Holding
	if rec.Allocation != nil {
		source = rec.Allocation.Holdings()
	} else if plan, ok := storedPlan(rec); ok {
		source = models.Allocation{Positions: plan.SelectedStocks}.Holdings()
	}
	bySymbol := make(map[string]models.Holding, len(source))
	for _, h := range source {
		bySymbol[h.Symbol] = h
	}

	out := make([]models.Holding, 0, len(symbols))
	for _, sym := range symbols {
		h, ok := bySymbol[sym]
		if !ok {
			h = models.Holding{Symbol: sym}
		}
		out = append(out, h)
	}
	return out
}

func (r *Rebalance) reconcile(_ context.Context, s *RebalanceState) error {
	budget := s.Record.UserPreferences.Budget
	if budget <= 0 && s.Record.Allocation != nil {
		budget = s.Record.Allocation.Budget
	}
	s.Holdings = holdings(s.Record, s.Symbols)
	s.Summary = portfolio.Reconcile(budget, s.Holdings, models.PriceMap(s.Research), r.deps.now())
	return nil
}

func (r *Rebalance) decide(_ context.Context, s *RebalanceState) error {
	cfg := r.deps.Config
	prefs := s.Record.UserPreferences
	s.Decisions = portfolio.Decide(s.Summary, s.Holdings, portfolio.Thresholds{
		StopLossPct:   prefs.StopLossOr(cfg.DefaultStopLossPct),
		TakeProfitPct: prefs.TakeProfitOr(cfg.DefaultTakeProfitPct),
	})
	return nil
}

func (r *Rebalance) save(ctx context.Context, s *RebalanceState) error {
	err := r.deps.Store.SaveAnalysis(ctx, s.Email, models.Analysis{
		Summary:   s.Summary,
		Decisions: s.Decisions,
		Research:  s.Research,
		At:        s.Summary.AsOf,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.deps.logger().Error("save analysis failed", zap.String("user", s.Email), zap.Error(err))
		s.DBStatus = consts.DBFailed
		s.Warnings = append(s.Warnings, fmt.Sprintf("analysis: %v", err))
		return nil
	}
	s.DBStatus = consts.DBSaved
	return nil
}
