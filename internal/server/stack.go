package server

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/config"
	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/history"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
	"github.com/HendryAvila/phasegate/internal/repair"
	"github.com/HendryAvila/phasegate/internal/scaffold"
	"github.com/HendryAvila/phasegate/internal/telemetry"
	"github.com/HendryAvila/phasegate/internal/templates"
	"github.com/HendryAvila/phasegate/internal/transition"
)

// Stack holds the wired core for one project. Both the CLI and the MCP
// server run on top of it.
type Stack struct {
	Layout    ledger.Layout
	Store     ledger.Store
	Bus       *events.Bus
	Collector *metrics.Collector
	Features  *features.Service
	Repairer  *repair.Repairer

	// History is nil when the journal is disabled or failed to open.
	History *history.Store

	logger *zap.Logger
}

// Build resolves every dependency for the project at root.
//
// The history journal is optional. It is opened only for an initialized
// project, and if it cannot be opened the stack is still fully functional
// and a warning is logged.
func Build(root string, cfg *config.Config, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	layout := cfg.Layout(root)
	store := telemetry.WrapStore(ledger.NewFileStore())

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("creating template renderer: %w", err)
	}
	sc := scaffold.NewFolderScaffolder(renderer)
	mover := scaffold.FolderMover{}

	// --- Event bus ---

	bus := events.NewBus(logger)
	collector := metrics.NewCollector(store, logger, cfg.Metrics.Workers)
	bus.Register(collector)

	var hs *history.Store
	if cfg.History.Enabled && initialized(layout) {
		hs, err = history.Open(layout.HistoryPath())
		if err != nil {
			logger.Warn("history journal disabled", zap.Error(err))
			hs = nil
		} else {
			bus.Register(history.NewJournal(hs, logger))
		}
	}

	// --- Core services ---

	controller := transition.New(store, gates.Default(), bus, logger)
	svc := features.New(features.Deps{
		Store:      store,
		Scaffolder: sc,
		Docs:       sc,
		Mover:      mover,
		Controller: controller,
		Publisher:  bus,
		Logger:     logger,
	})

	return &Stack{
		Layout:    layout,
		Store:     store,
		Bus:       bus,
		Collector: collector,
		Features:  svc,
		Repairer:  repair.New(store, mover, bus, logger),
		History:   hs,
		logger:    logger,
	}, nil
}

// Close releases the history database. Safe to call more than once.
func (s *Stack) Close() {
	if s.History == nil {
		return
	}
	if err := s.History.Close(); err != nil {
		s.logger.Warn("history store close", zap.Error(err))
	}
	s.History = nil
}

// initialized reports whether the ledger exists, so that running a command
// outside a project leaves no files behind.
func initialized(layout ledger.Layout) bool {
	_, err := os.Stat(layout.LedgerPath())
	return err == nil
}
