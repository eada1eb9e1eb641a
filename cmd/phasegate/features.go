package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger and work directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.stack
			if err := st.Features.Init(cmd.Context(), st.Layout); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Initialized phasegate in %s\n", passStyle.Render(iconPass), st.Layout.Root)
			fmt.Fprintf(a.out, "  %s %s\n", mutedStyle.Render("active: "), st.Layout.ActivePath())
			fmt.Fprintf(a.out, "  %s %s\n", mutedStyle.Render("removed:"), st.Layout.RemovedPath())
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		typ         string
		externalID  string
		description string
		rollback    bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Open a new feature, bug or task",
		Long: `Add a ledger entry and scaffold its folder with a planning document.

If scaffolding fails the entry is kept so that the folder can be created by
hand or adopted with ` + "`phasegate repair`" + `. With --rollback the entry is
removed instead.

Examples:
  phasegate add "Checkout flow"
  phasegate add "Login fails" --type bug --external-id JIRA-42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.stack
			res, err := st.Features.Open(cmd.Context(), st.Layout, ledger.AddParams{
				Title:       strings.Join(args, " "),
				Type:        ledger.FeatureType(typ),
				ExternalID:  externalID,
				Description: description,
			}, rollback)
			if err != nil {
				var se *features.ScaffoldError
				if errors.As(err, &se) && !se.RolledBack && !a.jsonOut {
					fmt.Fprintf(a.out, "%s %s is in the ledger but its folder could not be created\n",
						warnStyle.Render(iconWarn), se.Feature.ID)
				}
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, res)
			}
			fmt.Fprintf(a.out, "%s Opened %s\n", passStyle.Render(iconPass), res.Feature.ID)
			printFeature(a.out, res.Feature, res.Path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(ledger.TypeFeature), "Work item type: feature, bug, task")
	cmd.Flags().StringVar(&externalID, "external-id", "", "Tracker reference (e.g. JIRA-42)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Short description")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Remove the ledger entry if the folder cannot be created")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var typ, phase string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List features in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := features.ListFilter{Type: ledger.FeatureType(typ)}
			if phase != "" {
				p, err := ledger.ParsePhase(phase)
				if err != nil {
					return err
				}
				filter.Phase = p
			}
			if filter.Type != "" {
				if err := ledger.ValidateType(filter.Type); err != nil {
					return err
				}
			}

			st := a.stack
			list, err := st.Features.List(cmd.Context(), st.Layout, filter)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, mutedStyle.Render("No features found."))
				return nil
			}
			for _, f := range list {
				fmt.Fprintf(a.out, "%-14s %-8s %s  %s\n",
					f.ID, f.Type, phaseStyle(f.Phase).Render(fmt.Sprintf("%-15s", f.Phase)), f.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Filter by type")
	cmd.Flags().StringVarP(&phase, "phase", "p", "", "Filter by phase")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one feature with its phase history and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.stack
			d, err := st.Features.Show(cmd.Context(), st.Layout, args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, d)
			}
			printFeature(a.out, d.Feature, d.Path)
			if d.Feature.Description != "" {
				fmt.Fprintf(a.out, "\n%s\n", d.Feature.Description)
			}
			fmt.Fprintln(a.out, "\n"+boldStyle.Render("History"))
			printHistory(a.out, d.Feature.PhaseHistory)
			if d.Next != "" {
				fmt.Fprintf(a.out, "\n%s %s\n", mutedStyle.Render("next:"), d.Next)
			}
			if m := d.Metrics; m != nil {
				fmt.Fprintln(a.out, "\n"+boldStyle.Render("Metrics"))
				fmt.Fprintf(a.out, "  artifacts: %d files, %d words\n", m.ArtifactFiles, m.ArtifactWords)
				if m.TasksTotal > 0 {
					fmt.Fprintf(a.out, "  tasks:     %d/%d done\n", m.TasksDone, m.TasksTotal)
				}
				if m.Done {
					fmt.Fprintf(a.out, "  cycle:     %.2fh\n", m.CycleTimeHours)
				}
			}
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var title, externalID, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a feature's title, external id or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var edit ledger.MetadataEdit
			if cmd.Flags().Changed("title") {
				edit.Title = &title
			}
			if cmd.Flags().Changed("external-id") {
				edit.ExternalID = &externalID
			}
			if cmd.Flags().Changed("description") {
				edit.Description = &description
			}
			if edit.Title == nil && edit.ExternalID == nil && edit.Description == nil {
				return fmt.Errorf("%w: nothing to edit: pass --title, --external-id or --description", ledger.ErrValidationFailed)
			}

			st := a.stack
			f, err := st.Features.Edit(cmd.Context(), st.Layout, args[0], edit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, f)
			}
			fmt.Fprintf(a.out, "%s Updated %s\n", passStyle.Render(iconPass), f.ID)
			printFeature(a.out, f, "")
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&externalID, "external-id", "", "New external id (empty clears it)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (empty clears it)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Move a feature's folder to the removed root and drop its ledger entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.stack
			res, err := st.Features.Withdraw(cmd.Context(), st.Layout, args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(a.out, res)
			}
			fmt.Fprintf(a.out, "%s Removed %s\n", passStyle.Render(iconPass), res.Feature.ID)
			fmt.Fprintf(a.out, "  %s %s\n", mutedStyle.Render("folder:"), res.Path)
			return nil
		},
	}
}
