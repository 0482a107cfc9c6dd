// Package cli provides the command-line interface for CortexFolio
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/logging"
	"github.com/dyike/CortexFolio/pkg/app"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// Run starts the CLI application
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
	logLevel   string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "cortexfolio",
		Short: "CortexFolio - LLM-assisted portfolio planning",
		Long: `CortexFolio builds stock allocations from market research and a chat model,
keeps them in storage, and rebalances them on a schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Override file path (default <data_dir>/cortexfolio.json)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTradeCmd(opts),
		newRebalanceCmd(opts),
		newResearchCmd(opts),
		newChatCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads the layered configuration and builds the process logger.
func (o *rootOptions) load() (*config.Manager, *zap.Logger, error) {
	base := config.DefaultConfig()
	if o.debug {
		base.Debug = true
	}
	if o.logLevel != "" {
		base.LogLevel = o.logLevel
	}

	logger, err := logging.New(logging.Options{Level: base.LogLevel, Encoding: base.LogEncoding, Debug: base.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	mgrOpts := []config.ManagerOption{config.WithInitialConfig(base), config.WithLogger(logger)}
	if o.configPath != "" {
		mgrOpts = append(mgrOpts, config.WithConfigPath(o.configPath))
	}
	mgr, err := config.NewManager(mgrOpts...)
	if err != nil {
		return nil, nil, err
	}
	return mgr, logger, nil
}

// engine builds a one-shot engine for commands that run a single workflow.
func (o *rootOptions) engine(ctx context.Context) (*app.Engine, *zap.Logger, error) {
	mgr, logger, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	e, err := app.NewBuilder(logger, nil)(ctx, mgr.Get())
	if err != nil {
		return nil, nil, err
	}
	return e, logger, nil
}
