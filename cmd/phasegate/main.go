// phasegate: phase-gated lifecycle tracking for features, bugs and tasks.
//
// Every work item gets a ledger entry and a folder of phase documents.
// Moves through planning → refinement → implementation → testing →
// complete are checked by per-type gates.
//
// Usage:
//
//	phasegate init                 # Create the ledger in the current project
//	phasegate add "Login fails" -t bug
//	phasegate check bug-001 --watch
//	phasegate advance bug-001
//	phasegate serve                # Start MCP server (stdio transport)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/config"
	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/logging"
	"github.com/HendryAvila/phasegate/internal/server"
	"github.com/HendryAvila/phasegate/internal/telemetry"
)

// skipStack marks commands that run without a project (version, help).
const skipStack = "phasegate/skip-stack"

// errGateBlocked is returned when a gate rejects a move, so the process
// exits non-zero after the verdict has been printed.
var errGateBlocked = errors.New("gate rejected the transition")

// app carries global flags and the resolved dependencies for one run.
type app struct {
	root      string
	logLevel  string
	logFormat string
	jsonOut   bool

	out io.Writer

	logger *zap.Logger
	stack  *server.Stack
}

func main() {
	if err := execute(); err != nil {
		if !errors.Is(err, errGateBlocked) {
			fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
			if hint := features.Hint(err); hint != "" {
				fmt.Fprintln(os.Stderr, mutedStyle.Render("Hint: "+hint))
			}
		}
		os.Exit(1)
	}
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	defer a.close(context.Background())
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "phasegate",
		Short: "Phase-gated lifecycle tracking for features, bugs and tasks",
		Long: `phasegate keeps a ledger of work items and a folder of markdown
documents for each one. An item moves one phase at a time:

  planning → refinement → implementation → testing → complete

and each move is checked by a gate for its type before it is recorded.

Examples:
  phasegate init
  phasegate add "Checkout flow"
  phasegate add "Login fails" --type bug
  phasegate check feature-001 --watch
  phasegate advance feature-001
  phasegate repair`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.root, "root", "", "Project root (default: nearest directory with .phasegate, else cwd)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json (overrides config)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newCheckCmd(a),
		newAdvanceCmd(a),
		newRemoveCmd(a),
		newRepairCmd(a),
		newMetricsCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves the root, loads config, builds the logger and telemetry,
// and wires the core.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipStack] == "true" || cmd.Name() == "help" {
		return nil
	}

	root := a.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		root = ledger.FindRoot(wd)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.logger = logger

	if err := telemetry.Init(cmd.Context(), "phasegate", server.Version, telemetry.Options{
		Enabled: cfg.Telemetry.Enabled,
		Stdout:  cfg.Telemetry.Stdout,
	}); err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	}

	st, err := server.Build(root, cfg, logger)
	if err != nil {
		return err
	}
	a.stack = st
	logger.Debug("project resolved", zap.String("root", root))
	return nil
}

// close releases whatever setup acquired. Safe when setup did not run.
func (a *app) close(ctx context.Context) {
	if a.stack != nil {
		a.stack.Close()
	}
	telemetry.Shutdown(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
