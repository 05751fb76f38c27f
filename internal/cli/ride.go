package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridetally/ridetally/internal/domain"
	"github.com/ridetally/ridetally/internal/report"
)

// ─── Ride Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(endCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(ridesCmd)
	rootCmd.AddCommand(peakCmd)

	endCmd.Flags().StringP("pay", "p", "", "Payment method: cash, card or mixed")
	endCmd.Flags().Float64P("fare", "f", 0, "Total fare")
	endCmd.Flags().Float64P("cash", "c", 0, "Cash part (mixed payments)")

	peakCmd.Flags().String("at", "", "Time to classify (RFC3339, default now)")
}

// ─── start ──────────────────────────────────────────────────────────────────

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a ride",
	Long:  `Open a ride at the current time. If a ride is already open nothing changes.`,
	Args:  cobra.NoArgs,
	RunE:  withApp(runStart),
}

func runStart(cmd *cobra.Command, args []string, a *app) error {
	open, started, err := a.tracker.StartRide()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	loc := a.tracker.Location()
	if !started {
		fmt.Fprintf(out, "⚠️  A ride is already open since %s.\n", open.Start.In(loc).Format("15:04:05"))
		return nil
	}
	peak := "off-peak"
	if domain.IsPeak(open.Start, loc) {
		peak = "peak"
	}
	fmt.Fprintf(out, "🚗 Ride started at %s (%s).\n", open.Start.In(loc).Format("15:04:05"), peak)
	return nil
}

// ─── end ────────────────────────────────────────────────────────────────────

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the open ride",
	Long: `Close the open ride and record how it was paid.

  cash / card : --fare is required and must be greater than zero
  mixed       : --cash is required; --fare is the total and defaults to the cash part`,
	Args: cobra.NoArgs,
	RunE: withApp(runEnd),
}

func runEnd(cmd *cobra.Command, args []string, a *app) error {
	ride, err := a.tracker.EndRide(completionFromFlags(cmd))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if ride == nil {
		fmt.Fprintln(out, "No ride in progress. Use 'ridetally start' first.")
		return nil
	}

	period := "regular"
	if ride.IsPeak {
		period = "peak"
	}
	fmt.Fprintf(out, "✅ Ride recorded: %.1f min, fare %s (cash %s / card %s), %s.\n",
		float64(ride.DurationSec)/60, report.Money(*ride.Fare),
		report.Money(ride.CashAmount()), report.Money(ride.CardAmount()), period)

	snap := a.tracker.Dashboard()
	fmt.Fprintf(out, "   %d / %d trips, %.2f h, %s peak. %s\n",
		snap.TotalTrips, snap.RequiredTrips, snap.TotalHours, report.Percent(snap.PeakTripsPercent), report.Verdict(snap.Status))
	return nil
}

// completionFromFlags reads --pay, --fare and --cash. Unset amounts are blank.
// The tracker validates the payment method once it knows a ride is open.
func completionFromFlags(cmd *cobra.Command) domain.Completion {
	pay, _ := cmd.Flags().GetString("pay")
	c := domain.Completion{Payment: domain.PaymentMethod(pay)}
	if cmd.Flags().Changed("fare") {
		v, _ := cmd.Flags().GetFloat64("fare")
		c.Fare = &v
	}
	if cmd.Flags().Changed("cash") {
		v, _ := cmd.Flags().GetFloat64("cash")
		c.Cash = &v
	}
	return c
}

// ─── status ─────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show this week's eligibility dashboard",
	Args:  cobra.NoArgs,
	RunE:  withApp(runStatus),
}

func runStatus(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	if err := report.Summary(out, a.tracker.Dashboard(), a.tracker.Location()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, report.OpenRideLine(a.tracker.OpenRide(), now(), a.tracker.Location()))
	return nil
}

// ─── report ─────────────────────────────────────────────────────────────────

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the full weekly report",
	Args:  cobra.NoArgs,
	RunE:  withApp(runReport),
}

func runReport(cmd *cobra.Command, args []string, a *app) error {
	return report.Render(cmd.OutOrStdout(), a.tracker.Dashboard(), a.tracker.Rides(), a.tracker.Location())
}

// ─── rides ──────────────────────────────────────────────────────────────────

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "List this week's rides, newest first",
	Args:  cobra.NoArgs,
	RunE:  withApp(runRides),
}

func runRides(cmd *cobra.Command, args []string, a *app) error {
	out := cmd.OutOrStdout()
	rides := a.tracker.Rides()
	if len(rides) == 0 {
		fmt.Fprintln(out, "No rides recorded this week.")
		return nil
	}
	loc := a.tracker.Location()
	fmt.Fprintf(out, "Rides this week (%d):\n", len(rides))
	for i, r := range rides {
		mark := " "
		if r.IsPeak {
			mark = "★"
		}
		fare := "-"
		if r.Fare != nil {
			fare = report.Money(*r.Fare)
		}
		fmt.Fprintf(out, "  %2d. %s %s  %5.1f min  %-5s %s\n",
			i+1, mark, r.Start.In(loc).Format("Mon 15:04"), float64(r.DurationSec)/60, r.Payment, fare)
	}
	return nil
}

// ─── peak ───────────────────────────────────────────────────────────────────

var peakCmd = &cobra.Command{
	Use:   "peak",
	Short: "Check whether a time falls in a peak window",
	Args:  cobra.NoArgs,
	RunE:  withApp(runPeak),
}

func runPeak(cmd *cobra.Command, args []string, a *app) error {
	loc := a.tracker.Location()
	t := now()
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		t = parsed
	}
	t = t.In(loc)

	out := cmd.OutOrStdout()
	if domain.IsPeak(t, loc) {
		fmt.Fprintf(out, "✅ %s is in a peak window.\n", t.Format("Mon 2006-01-02 15:04"))
	} else {
		fmt.Fprintf(out, "— %s is off-peak.\n", t.Format("Mon 2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "Peak windows on %s:", t.Weekday())
	for _, w := range domain.PeakWindows(t.Weekday()) {
		fmt.Fprintf(out, " %s", w)
	}
	fmt.Fprintln(out)
	return nil
}
