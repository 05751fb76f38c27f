package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridetally/ridetally/internal/domain"
	"github.com/ridetally/ridetally/internal/report"
)

// ─── settings ───────────────────────────────────────────────────────────────

// settingFlags maps each flag to its field in the settings form.
var settingFlags = []struct {
	name  string
	usage string
	field func(f *domain.SettingsForm) **float64
}{
	{"min-hours", "Minimum weekly hours", func(f *domain.SettingsForm) **float64 { return &f.MinHours }},
	{"min-trips", "Base trip requirement", func(f *domain.SettingsForm) **float64 { return &f.MinTrips }},
	{"min-peak", "Minimum peak-trip share (%)", func(f *domain.SettingsForm) **float64 { return &f.MinPeakTripsPercent }},
	{"incentive", "Incentive per trip", func(f *domain.SettingsForm) **float64 { return &f.IncentivePerTrip }},
	{"acceptance", "Official acceptance rate (%)", func(f *domain.SettingsForm) **float64 { return &f.Acceptance }},
	{"cancel", "Official cancellation rate (%)", func(f *domain.SettingsForm) **float64 { return &f.Cancel }},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	for _, sf := range settingFlags {
		settingsCmd.Flags().String(sf.name, "", sf.usage+` (pass "" to clear)`)
	}
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the incentive rules and quality rates",
	Long: `Without flags, print the current settings. Each flag overrides one value
and the rest keep their current value. Pass an empty string to clear a value:
a cleared rule counts as 0, a cleared rate counts as "not entered".`,
	Args: cobra.NoArgs,
	RunE: withApp(runSettings),
}

func runSettings(cmd *cobra.Command, args []string, a *app) error {
	st := a.tracker.State()
	form := domain.FormFrom(st.Rules, st.Stats)

	changed := false
	for _, sf := range settingFlags {
		if !cmd.Flags().Changed(sf.name) {
			continue
		}
		raw, _ := cmd.Flags().GetString(sf.name)
		v, err := parseOptionalFloat(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", sf.name, err)
		}
		*sf.field(&form) = v
		changed = true
	}

	out := cmd.OutOrStdout()
	if changed {
		snap, err := a.tracker.SaveSettings(form)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "✅ Settings saved.")
		st = a.tracker.State()
		printSettings(cmd, st)
		fmt.Fprintf(out, "\n%s\n", report.Verdict(snap.Status))
		return nil
	}
	printSettings(cmd, st)
	return nil
}

func printSettings(cmd *cobra.Command, st domain.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Minimum hours:       %s\n", report.Number(st.Rules.MinHours))
	fmt.Fprintf(out, "  Base trips:          %d\n", st.Rules.MinTrips)
	fmt.Fprintf(out, "  Minimum peak share:  %s%%\n", report.Number(st.Rules.MinPeakTripsPercent))
	fmt.Fprintf(out, "  Incentive per trip:  %s\n", report.Money(st.Rules.IncentivePerTrip))
	fmt.Fprintf(out, "  Acceptance rate:     %s\n", report.Metric(st.Stats.Acceptance))
	fmt.Fprintf(out, "  Cancellation rate:   %s\n", report.Metric(st.Stats.Cancel))
}

// parseOptionalFloat parses a form value; blank means nil.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return &v, nil
}
