package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridetally/ridetally/internal/report"
)

// ─── Week Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(newWeekCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	newWeekCmd.Flags().BoolP("yes", "y", false, "Confirm clearing every ride of this week")
	historyCmd.Flags().IntP("limit", "n", 10, "Number of weeks to show (0 = all)")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

// ─── new-week ───────────────────────────────────────────────────────────────

var newWeekCmd = &cobra.Command{
	Use:   "new-week",
	Short: "Archive this week and start a new one",
	Long: `Archive this week's totals and clear every ride, including an open one.
Rules and quality rates are kept. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: withApp(runNewWeek),
}

func runNewWeek(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		fmt.Fprintln(out, "This clears every ride recorded this week. Re-run with --yes to confirm.")
		return nil
	}
	archive, err := a.tracker.NewWeek()
	if err != nil {
		return err
	}
	if archive != nil {
		fmt.Fprintf(out, "📦 Week archived (%d trips, %s).\n", archive.TotalTrips, archive.Status)
	}
	fmt.Fprintln(out, "✅ New week started.")
	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived weeks",
	Args:  cobra.NoArgs,
	RunE:  withApp(runHistory),
}

func runHistory(cmd *cobra.Command, args []string, a *app) error {
	limit, _ := cmd.Flags().GetInt("limit")
	archives, err := a.tracker.Archives(limit)
	if err != nil {
		return err
	}
	return report.History(cmd.OutOrStdout(), archives, now(), a.tracker.Location())
}

// ─── export ─────────────────────────────────────────────────────────────────

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export this week's data as JSON",
	Args:  cobra.NoArgs,
	RunE:  withApp(runExport),
}

func runExport(cmd *cobra.Command, args []string, a *app) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return a.tracker.Export(cmd.OutOrStdout())
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := a.tracker.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✅ Exported to %s\n", path)
	return nil
}

// ─── import ─────────────────────────────────────────────────────────────────

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace this week's data from an export",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runImport),
}

func runImport(cmd *cobra.Command, args []string, a *app) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	snap, err := a.tracker.Import(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d rides. %s\n", snap.TotalTrips, report.Verdict(snap.Status))
	return nil
}
