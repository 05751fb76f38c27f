// Package report renders the eligibility snapshot for people: the full
// weekly report, a short dashboard, status hints and the archive history.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ridetally/ridetally/internal/domain"
)

// ─── Formatting ─────────────────────────────────────────────────────────────

// Money formats an amount with thousands separators and two decimals.
func Money(v float64) string { return humanize.FormatFloat("#,###.##", v) }

// Percent formats a percentage with one decimal.
func Percent(v float64) string { return fmt.Sprintf("%.1f%%", v) }

// Metric formats an entered quality metric, or "not entered".
func Metric(v *float64) string {
	if v == nil {
		return "not entered"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// Number formats a rule value without trailing zeros.
func Number(v float64) string { return humanize.Ftoa(v) }

func check(ok bool) string {
	if ok {
		return "✅ met"
	}
	return "❌ not met"
}

// WeekText describes the week range in loc.
func WeekText(w domain.WeekRange, loc *time.Location) string {
	return fmt.Sprintf("Week: Monday %s to Sunday %s",
		w.Start.In(loc).Format("2006-01-02"), w.End.In(loc).Format("2006-01-02"))
}

// ─── Hints ──────────────────────────────────────────────────────────────────

// Hints are the one-line status messages shown next to each dashboard card.
type Hints struct {
	RequiredTrips  string `json:"requiredTrips"`
	RemainingTrips string `json:"remainingTrips,omitempty"`
	Hours          string `json:"hours"`
	Peak           string `json:"peak"`
	Quality        string `json:"quality"`
	IncomeBoost    string `json:"incomeBoost"`
	Verdict        string `json:"verdict"`
}

// HintsFor derives the status hints from a snapshot.
func HintsFor(s domain.Snapshot) Hints {
	var h Hints

	if s.TotalHours > 0 {
		h.RequiredTrips = fmt.Sprintf("About %d trips required (%d base + %s per hour over %s hours).",
			s.RequiredTrips, s.Rules.MinTrips, Number(domain.ExtraTripsPerHour), Number(s.Rules.MinHours))
	} else {
		h.RequiredTrips = "Record some rides to calculate the progressive requirement."
	}

	switch {
	case s.TotalTrips > 0 && s.TotalTrips >= s.RequiredTrips:
		h.RemainingTrips = "✅ Current trip count meets the progressive requirement."
	case s.TotalHours > 0:
		h.RemainingTrips = fmt.Sprintf("About %d more trips needed if your hours stay the same.", s.RemainingTrips)
	}

	switch {
	case s.Checks.Hours:
		h.Hours = "✅ Minimum working hours reached."
	case s.TotalHours > 0:
		h.Hours = "⚠ Below the minimum hours, there is still time to work more."
	default:
		h.Hours = "Waiting for rides to count hours."
	}

	switch {
	case s.TotalTrips == 0:
		h.Peak = "Waiting for rides to compute the peak share."
	case s.Checks.Peak:
		h.Peak = "✅ Peak trip share meets the requirement."
	default:
		h.Peak = "⚠ Peak trip share is below the requirement, focus on peak hours."
	}

	var parts []string
	switch {
	case s.Stats.Acceptance == nil:
		parts = append(parts, "Enter your official acceptance rate.")
	case s.Checks.Acceptance:
		parts = append(parts, fmt.Sprintf("✅ Acceptance is at least %s%%.", Number(domain.MinAcceptancePercent)))
	default:
		parts = append(parts, fmt.Sprintf("⚠ Acceptance is below %s%%, try to decline fewer requests.", Number(domain.MinAcceptancePercent)))
	}
	switch {
	case s.Stats.Cancel == nil:
		parts = append(parts, "Enter your official cancellation rate.")
	case s.Checks.Cancel:
		parts = append(parts, fmt.Sprintf("✅ Cancellation is at most %s%%.", Number(domain.MaxCancelPercent)))
	default:
		parts = append(parts, fmt.Sprintf("⚠ Cancellation is above %s%%, avoid cancelling rides.", Number(domain.MaxCancelPercent)))
	}
	h.Quality = strings.Join(parts, " ")

	if s.IncomeBoostPercent != nil {
		h.IncomeBoost = fmt.Sprintf("Effective income boost so far: %s.", Percent(*s.IncomeBoostPercent))
	} else {
		h.IncomeBoost = "Enter ride fares to see the income boost the incentive would add."
	}

	h.Verdict = Verdict(s.Status)
	return h
}

// Verdict is the one-line eligibility badge.
func Verdict(status domain.EligibilityStatus) string {
	switch status {
	case domain.StatusEligible:
		return "🚀 Eligible for the incentive (based on the data entered)."
	case domain.StatusNotEligible:
		return "Some conditions are not met yet. Review the details."
	default:
		return "Waiting for this week's ride data."
	}
}

// ─── Summary ────────────────────────────────────────────────────────────────

// Summary writes the short dashboard.
func Summary(w io.Writer, s domain.Snapshot, loc *time.Location) error {
	h := HintsFor(s)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, WeekText(s.Week, loc))
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Trips\t%d / %d required\t%s\n", s.TotalTrips, s.RequiredTrips, h.RemainingTrips)
	fmt.Fprintf(tw, "Hours\t%.2f / %s\t%s\n", s.TotalHours, Number(s.Rules.MinHours), h.Hours)
	fmt.Fprintf(tw, "Peak trips\t%s / %s%%\t%s\n", Percent(s.PeakTripsPercent), Number(s.Rules.MinPeakTripsPercent), h.Peak)
	fmt.Fprintf(tw, "Acceptance\t%s\t\n", Metric(s.Stats.Acceptance))
	fmt.Fprintf(tw, "Cancellation\t%s\t\n", Metric(s.Stats.Cancel))
	fmt.Fprintf(tw, "Fare income\t%s\t\n", Money(s.TotalFare))
	fmt.Fprintf(tw, "Incentive\t%s\t%s\n", Money(s.TotalIncentive), h.IncomeBoost)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, h.Quality)
	fmt.Fprintln(tw, h.Verdict)
	return tw.Flush()
}

// ─── Full Report ────────────────────────────────────────────────────────────

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"money":  Money,
	"pct":    Percent,
	"metric": Metric,
	"num":    Number,
	"check":  check,
	"inc":    func(i int) int { return i + 1 },
}).Parse(`Weekly incentive report
{{.Week}}

Trips	{{.Snap.TotalTrips}}
Hours worked	{{printf "%.2f" .Snap.TotalHours}}
Fare income	{{money .Snap.TotalFare}}
  cash	{{money .Snap.TotalCash}}
  card	{{money .Snap.TotalCard}}
Incentive (if eligible)	{{money .Snap.TotalIncentive}}
Income boost	{{.Boost}}
Peak trips	{{.Snap.PeakTripsCount}} ({{pct .Snap.PeakTripsPercent}})
Peak time	{{pct .Snap.PeakTimePercent}}

Conditions
Hours >= {{num .Snap.Rules.MinHours}}	{{check .Snap.Checks.Hours}}	now {{printf "%.2f" .Snap.TotalHours}}
Trips >= {{.Snap.RequiredTrips}} (at least {{.Snap.Rules.MinTrips}})	{{check .Snap.Checks.Trips}}	now {{.Snap.TotalTrips}}
Peak trips >= {{num .Snap.Rules.MinPeakTripsPercent}}%	{{check .Snap.Checks.Peak}}	now {{pct .Snap.PeakTripsPercent}}
Acceptance >= {{num .MinAcceptance}}%	{{check .Snap.Checks.Acceptance}}	now {{metric .Snap.Stats.Acceptance}}
Cancellation <= {{num .MaxCancel}}%	{{check .Snap.Checks.Cancel}}	now {{metric .Snap.Stats.Cancel}}

{{.Verdict}}

Rides
{{if .Rides}}#	Start	End	Minutes	Fare	Cash	Card	Period
{{range $i, $r := .Rides}}{{inc $i}}	{{$r.Start}}	{{$r.End}}	{{$r.Minutes}}	{{$r.Fare}}	{{$r.Cash}}	{{$r.Card}}	{{$r.Period}}
{{end}}{{else}}No rides recorded this week.
{{end}}`))

type reportData struct {
	Week          string
	Snap          domain.Snapshot
	Boost         string
	MinAcceptance float64
	MaxCancel     float64
	Verdict       string
	Rides         []rideRow
}

type rideRow struct {
	Start, End, Minutes, Fare, Cash, Card, Period string
}

// Render writes the full weekly report. Rides are listed newest first.
func Render(w io.Writer, s domain.Snapshot, rides []domain.Ride, loc *time.Location) error {
	data := reportData{
		Week:          WeekText(s.Week, loc),
		Snap:          s,
		Boost:         "-",
		MinAcceptance: domain.MinAcceptancePercent,
		MaxCancel:     domain.MaxCancelPercent,
		Verdict:       reportVerdict(s.Status),
	}
	if s.IncomeBoostPercent != nil {
		data.Boost = Percent(*s.IncomeBoostPercent)
	}
	for _, r := range domain.SortedRides(rides) {
		data.Rides = append(data.Rides, newRideRow(r, loc))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := reportTmpl.Execute(tw, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return tw.Flush()
}

func reportVerdict(status domain.EligibilityStatus) string {
	switch status {
	case domain.StatusEligible:
		return "✅ Every condition entered is met; the incentive should be due this week."
	case domain.StatusNotEligible:
		return "❌ Not every condition is met yet. Keep this report for reference when reviewing with the platform."
	default:
		return "Waiting for this week's ride data."
	}
}

func newRideRow(r domain.Ride, loc *time.Location) rideRow {
	row := rideRow{
		Start:   r.Start.In(loc).Format("Mon 01-02 15:04"),
		End:     r.End.In(loc).Format("Mon 01-02 15:04"),
		Minutes: fmt.Sprintf("%.1f", float64(r.DurationSec)/60),
		Fare:    "-",
		Cash:    Money(r.CashAmount()),
		Card:    Money(r.CardAmount()),
		Period:  "regular",
	}
	if r.Fare != nil {
		row.Fare = Money(*r.Fare)
	}
	if r.IsPeak {
		row.Period = "peak"
	}
	return row
}

// ─── History ────────────────────────────────────────────────────────────────

// History lists archived weeks with their age relative to now.
func History(w io.Writer, archives []domain.WeekArchive, now time.Time, loc *time.Location) error {
	if len(archives) == 0 {
		_, err := fmt.Fprintln(w, "No archived weeks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWeek\tTrips\tHours\tFare\tIncentive\tStatus\tArchived")
	for _, a := range archives {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\t%s\t%s\n",
			shortID(a.ID),
			a.Week.Start.In(loc).Format("2006-01-02"),
			a.TotalTrips,
			a.TotalHours,
			Money(a.TotalFare),
			Money(a.TotalIncentive),
			a.Status,
			humanize.RelTime(a.ArchivedAt, now, "ago", "from now"),
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// OpenRideLine describes the ride in progress.
func OpenRideLine(open *domain.OpenRide, now time.Time, loc *time.Location) string {
	if open == nil {
		return "No ride in progress."
	}
	return fmt.Sprintf("Ride in progress since %s (started %s).",
		open.Start.In(loc).Format("15:04:05"),
		humanize.RelTime(open.Start, now, "ago", "from now"))
}
