package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/watch"
)

func parseTarget(s string) (ledger.Phase, error) {
	if s == "" {
		return "", nil
	}
	return ledger.ParsePhase(s)
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		to      string
		watchOn bool
	)
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Run the gate for a feature's next move without committing it",
		Long: `Run the gate for the move to --to (default: the next phase) and print
the verdict. Nothing is written.

With --watch the gate is re-run every time a markdown document in the
feature folder is saved, until interrupted.

Examples:
  phasegate check feature-001
  phasegate check bug-003 --to implementation --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(to)
			if err != nil {
				return err
			}
			id := args[0]
			if !watchOn {
				return a.runCheck(cmd.Context(), id, target)
			}
			return a.watchCheck(cmd.Context(), id, target)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target phase (default: next phase)")
	cmd.Flags().BoolVarP(&watchOn, "watch", "w", false, "Re-run the gate when documents change")
	return cmd
}

func (a *app) runCheck(ctx context.Context, id string, target ledger.Phase) error {
	st := a.stack
	o, err := st.Features.Check(ctx, st.Layout, id, target)
	if err != nil {
		return err
	}
	if a.jsonOut {
		if err := printJSON(a.out, o); err != nil {
			return err
		}
	} else {
		printOutcome(a.out, o, false)
	}
	if !o.Result.Valid() {
		return errGateBlocked
	}
	return nil
}

// watchCheck prints a verdict now and after every debounced burst of
// document writes. Gate failures do not stop the loop.
func (a *app) watchCheck(ctx context.Context, id string, target ledger.Phase) error {
	st := a.stack
	f, err := st.Store.Find(ctx, st.Layout, id)
	if err != nil {
		return err
	}

	rerun := func(ctx context.Context) {
		fmt.Fprintln(a.out, mutedStyle.Render("── "+time.Now().Format(time.TimeOnly)+" ──"))
		if err := a.runCheck(ctx, id, target); err != nil && !errors.Is(err, errGateBlocked) {
			a.logger.Warn("check failed", zap.String("feature", id), zap.Error(err))
		}
	}
	rerun(ctx)
	fmt.Fprintln(a.out, mutedStyle.Render("Watching "+st.Layout.FeaturePath(f.ID)+" (Ctrl-C to stop)"))

	return watch.Run(ctx, watch.Options{
		Dir:    st.Layout.FeaturePath(f.ID),
		Match:  watch.MarkdownOnly,
		Logger: a.logger,
	}, rerun)
}

func newAdvanceCmd(a *app) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Move a feature to its next phase if the gate passes",
		Long: `Run the gate for the move to --to (default: the next phase). When it
passes the ledger is updated and the document for the new phase is
scaffolded. When it fails nothing changes and the errors are listed.

Phases only move forward; --to may skip ahead and the gate for the
target phase decides. To move back use
  phasegate repair fix <id> --action set-phase --phase <phase>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(to)
			if err != nil {
				return err
			}
			st := a.stack
			res, err := st.Features.Advance(cmd.Context(), st.Layout, args[0], target)
			if err != nil {
				return err
			}
			if a.jsonOut {
				if err := printJSON(a.out, res); err != nil {
					return err
				}
			} else {
				printOutcome(a.out, res.Outcome, true)
				if res.Document != "" {
					fmt.Fprintf(a.out, "  %s %s\n", mutedStyle.Render("next document:"), res.Document)
				}
				if res.Advanced && res.To.IsTerminal() {
					fmt.Fprintln(a.out, passStyle.Render("  Feature completed."))
				}
			}
			if !res.Advanced {
				return errGateBlocked
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target phase (default: next phase)")
	return cmd
}
