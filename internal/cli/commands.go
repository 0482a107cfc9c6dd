package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/internal/debug"
	"github.com/dyike/CortexFolio/internal/graph"
	"github.com/dyike/CortexFolio/internal/metrics"
	"github.com/dyike/CortexFolio/internal/models"
	"github.com/dyike/CortexFolio/internal/scheduler"
	"github.com/dyike/CortexFolio/internal/server"
	"github.com/dyike/CortexFolio/internal/service"
	"github.com/dyike/CortexFolio/pkg/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var cron, einoDebug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the optional rebalance schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			cfg := mgr.Get()
			if addr == "" {
				addr = cfg.HTTPAddr
			}
			if einoDebug {
				cfg.EinoDebugEnabled = true
			}

			// The debugger has to be initialised before the graphs compile.
			dbg := debug.NewEinoDebugger(cfg, logger)
			if err := dbg.Initialize(ctx); err != nil {
				return err
			}

			collector, err := metrics.New()
			if err != nil {
				return err
			}
			rt, err := app.NewRuntime(ctx, mgr,
				app.WithBuilder(app.NewBuilder(logger, collector)),
				app.WithLogger(logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			current := func() *service.Service { return rt.Engine().Service }

			if cron || cfg.CronEnabled {
				sched := scheduler.New(logger, ctx)
				if _, err := sched.Add("rebalance", cfg.CronSpec, func(ctx context.Context) error {
					items, err := current().RebalanceAll(ctx)
					logger.Info("scheduled rebalance", zap.Int("users", len(items)))
					return err
				}); err != nil {
					return fmt.Errorf("schedule rebalance %q: %w", cfg.CronSpec, err)
				}
				sched.Start()
				defer sched.Stop()
			}

			engine := server.New(current, server.Options{Debug: cfg.Debug, Logger: logger, Metrics: collector})
			return server.Run(ctx, engine, addr, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config http_addr)")
	cmd.Flags().BoolVar(&cron, "cron", false, "Enable the rebalance schedule even if cron_enabled is false")
	cmd.Flags().BoolVar(&einoDebug, "eino-debug", false, "Start the eino visual debugger")
	return cmd
}

type tradeFlags struct {
	prefs       models.UserPreferences
	stopLoss    float64
	takeProfit  float64
	markets     []string
	interactive bool
	asJSON      bool
	save        bool
}

func newTradeCmd(opts *rootOptions) *cobra.Command {
	f := &tradeFlags{}

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Run the trading agent once",
		Long: `Build a trading plan and allocation for one user.
Example: cortexfolio trade --email me@example.com --budget 10000 --stocks AAPL,MSFT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := f.preferences(cmd)
			if err != nil {
				return err
			}

			e, _, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.Service.Trade(cmd.Context(), prefs)
			if err != nil {
				return fmt.Errorf("trading run failed: %w", err)
			}
			if f.save {
				path, err := saveReport(e.Config.DataDir, "trade", prefs.Email, tradeMarkdown(st))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("saved "+path))
			}
			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTrade(st))
			return nil
		},
	}

	p := &f.prefs
	cmd.Flags().StringVar(&p.Email, "email", "", "User email")
	cmd.Flags().Float64Var(&p.Budget, "budget", 0, "Budget to allocate")
	cmd.Flags().StringVar(&p.Query, "query", "", "Free-form request for the planner")
	cmd.Flags().StringSliceVar(&p.Stocks, "stocks", nil, "Tickers to consider (comma separated)")
	cmd.Flags().StringSliceVar(&p.Sanctions, "sanctions", nil, "Tickers to exclude")
	cmd.Flags().StringSliceVar(&f.markets, "markets", nil, "Preferred markets (stocks, crypto, forex, etf)")
	cmd.Flags().StringVar((*string)(&p.Risk), "risk", string(models.RiskMedium), "Risk level (low, medium, high)")
	cmd.Flags().StringVar((*string)(&p.Mode), "mode", string(models.ModeVirtual), "Execution mode (virtual, live)")
	cmd.Flags().StringVar((*string)(&p.Strategy), "strategy", string(models.StrategySwing), "Strategy (day_trading, swing, long_term, scalping)")
	cmd.Flags().Float64Var(&f.stopLoss, "stop-loss", 0, "Stop-loss percentage")
	cmd.Flags().Float64Var(&f.takeProfit, "take-profit", 0, "Take-profit percentage")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Ask for the preferences interactively")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the run state as JSON")
	cmd.Flags().BoolVar(&f.save, "save", false, "Also write a markdown report under <data_dir>/reports")
	return cmd
}

// preferences merges flags and, when asked, interactive answers, then
// validates the result.
func (f *tradeFlags) preferences(cmd *cobra.Command) (models.UserPreferences, error) {
	prefs := f.prefs
	for _, m := range f.markets {
		prefs.PreferredMarkets = append(prefs.PreferredMarkets, models.Market(strings.ToLower(strings.TrimSpace(m))))
	}
	if cmd.Flags().Changed("stop-loss") {
		v := f.stopLoss
		prefs.StopLoss = &v
	}
	if cmd.Flags().Changed("take-profit") {
		v := f.takeProfit
		prefs.TakeProfit = &v
	}
	if f.interactive {
		var err error
		if prefs, err = PromptForPreferences(prefs); err != nil {
			return prefs, err
		}
	}
	prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return prefs, fmt.Errorf("invalid preferences: %w", err)
	}
	return prefs, nil
}

func newRebalanceCmd(opts *rootOptions) *cobra.Command {
	var email string
	var all, force, asJSON bool

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Reconcile stored allocations against current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (email == "") == !all {
				return fmt.Errorf("exactly one of --email or --all is required")
			}
			e, _, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			if all {
				items, err := e.Service.RebalanceAll(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, items)
				}
				fmt.Fprintln(out, renderBatch(items))
				return nil
			}

			st, err := e.Service.Rebalance(cmd.Context(), email, force)
			if err != nil {
				return fmt.Errorf("rebalance failed: %w", err)
			}
			if asJSON {
				return writeJSON(out, st)
			}
			fmt.Fprintln(out, renderRebalance(st))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Rebalance a single user")
	cmd.Flags().BoolVar(&all, "all", false, "Rebalance every stored user")
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the minimum snapshot age (single user only)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newResearchCmd(opts *rootOptions) *cobra.Command {
	var asJSON, save bool

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Research financial data services for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.Service.Research(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("research failed: %w", err)
			}
			if save {
				path, err := saveReport(e.Config.DataDir, "research", st.Report.Query, researchMarkdown(st.Report))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("saved "+path))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), st.Report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResearch(st.Report, st.Warnings))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "Also write a markdown report under <data_dir>/reports")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var articles, agent bool
	var term, symbol string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the financial chatbot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if articles && agent {
				return fmt.Errorf("--articles and --agent cannot be combined")
			}
			e, _, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			msg := strings.Join(args, " ")
			var st *graph.ChatState
			switch {
			case articles:
				st, err = e.Service.ChatWithArticles(cmd.Context(), graph.ChatRequest{Message: msg, EconomicTerm: term, Symbol: symbol})
			case agent:
				st, err = e.Service.ChatWithAgent(cmd.Context(), msg)
			default:
				st, err = e.Service.Chat(cmd.Context(), msg)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Response)
			for _, w := range st.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render("warning: "+w))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&articles, "articles", false, "Answer with the economic news feed in context")
	cmd.Flags().BoolVar(&agent, "agent", false, "Let the model call market data tools")
	cmd.Flags().StringVar(&term, "term", "", "Economic term to filter articles by (with --articles)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Ticker to filter articles by (with --articles)")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := opts.load()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderConfig(mgr.Get(), mgr.Path()))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and report missing credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := opts.load()
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			out := cmd.OutOrStdout()
			if err := cfg.Validate(); err != nil {
				fmt.Fprintln(out, errorStyle.Render("invalid: "+err.Error()))
				return err
			}
			warnings := credentialWarnings(cfg)
			for _, w := range warnings {
				fmt.Fprintln(out, warnStyle.Render("! "+w))
			}
			if len(warnings) == 0 {
				fmt.Fprintln(out, okStyle.Render("configuration is valid"))
			} else {
				fmt.Fprintf(out, "configuration is valid with %d warnings; some workflows will be unavailable\n", len(warnings))
			}
			return nil
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cortexfolio %s\n", Version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
