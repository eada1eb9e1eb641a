package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/repair"
)

func newRepairCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Compare the ledger with the feature folders",
		Long: `List every place where the ledger and the folders disagree, with the
actions that can resolve each one. Nothing is changed; apply an action
with 'phasegate repair fix'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.stack
			rep, err := st.Repairer.Check(cmd.Context(), st.Layout)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, rep)
			}
			fmt.Fprintf(a.out, "%s ledger: %d  active: %d  removed: %d\n",
				mutedStyle.Render("scanned"), rep.LedgerCount, rep.ActiveCount, rep.RemovedCount)
			if rep.Consistent() {
				fmt.Fprintf(a.out, "%s Ledger and folders agree.\n", passStyle.Render(iconPass))
				return nil
			}
			for _, d := range rep.Divergences {
				fmt.Fprintf(a.out, "%s %-14s %s\n", warnStyle.Render(iconWarn), d.ID, boldStyle.Render(string(d.Kind)))
				fmt.Fprintf(a.out, "  %s\n", d.Hint)
				for _, act := range d.Actions {
					fmt.Fprintf(a.out, "  %s phasegate repair fix %s --action %s\n", mutedStyle.Render("$"), d.ID, act)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(newRepairFixCmd(a))
	return cmd
}

func newRepairFixCmd(a *app) *cobra.Command {
	var action, phase string
	cmd := &cobra.Command{
		Use:   "fix <id>",
		Short: "Apply one repair action to one id",
		Long: `Actions:
  drop-entry      remove a ledger entry whose folder is gone or already removed
  adopt-folder    add a ledger entry for an untracked folder
  restore-folder  move a removed folder back to the active root
  set-phase       move a feature to any phase, backwards included (needs --phase)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := repair.ParseAction(action)
			if err != nil {
				return err
			}
			req := repair.FixRequest{ID: args[0], Action: act}
			if act == repair.SetPhase {
				if req.Phase, err = ledger.ParsePhase(phase); err != nil {
					return err
				}
			}

			st := a.stack
			res, err := st.Repairer.Fix(cmd.Context(), st.Layout, req)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, res)
			}
			fmt.Fprintf(a.out, "%s %s\n", passStyle.Render(iconPass), res.Message)
			if res.Feature != nil {
				printFeature(a.out, res.Feature, "")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&action, "action", "a", "", "drop-entry, adopt-folder, restore-folder or set-phase")
	cmd.Flags().StringVar(&phase, "phase", "", "Target phase for set-phase")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}
