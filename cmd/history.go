package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pic/internal/config"
	"pic/internal/ledger"
	"pic/internal/tui"
)

var (
	historyLimit   int
	historyOutputs bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List conversion runs recorded in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		if cfg.LedgerPath == "" {
			return errors.New("no ledger configured, pass --ledger or set ledger in pic.yaml")
		}

		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, historyDimStyle.Render("no runs recorded"))
			return nil
		}

		for i, run := range runs {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s %s\n",
				historyRunStyle.Render(run.StartedAt.Local().Format(time.DateTime)),
				historyTransformStyle.Render(run.Transform),
			)
			fmt.Fprintf(out, "  %s %s -> %s\n", historyBulletStyle.Render("-"),
				historyValueStyle.Render(run.SourceDir), historyValueStyle.Render(run.TargetDir))
			status := fmt.Sprintf("%d/%d converted, %d failed, %d cleaned up",
				run.Converted, run.Total, run.Failed, run.Cleaned)
			if run.FinishedAt.IsZero() {
				status += " (unfinished)"
			}
			fmt.Fprintf(out, "  %s %s\n", historyBulletStyle.Render("-"), historyDimStyle.Render(status))

			if !historyOutputs {
				continue
			}
			outputs, err := store.Outputs(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, o := range outputs {
				if o.Err != "" {
					fmt.Fprintf(out, "    %s %s %s\n", historyBulletStyle.Render("x"),
						historyValueStyle.Render(filepath.Base(o.Source)), historyErrStyle.Render(o.Err))
					continue
				}
				fmt.Fprintf(out, "    %s %s -> %s\n", historyBulletStyle.Render("-"),
					historyValueStyle.Render(filepath.Base(o.Source)), historyValueStyle.Render(filepath.Base(o.Output)))
			}
		}
		return nil
	},
}

var (
	historyRunStyle       = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	historyTransformStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	historyValueStyle     = lipgloss.NewStyle().Foreground(tui.ColorInk)
	historyDimStyle       = lipgloss.NewStyle().Foreground(tui.ColorDim)
	historyBulletStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	historyErrStyle       = lipgloss.NewStyle().Foreground(tui.ColorError)
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "show at most this many runs (0 for all)")
	historyCmd.Flags().BoolVar(&historyOutputs, "outputs", false, "list the images of every run")

	rootCmd.AddCommand(historyCmd)
}
