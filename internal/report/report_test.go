package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ridetally/ridetally/internal/domain"
)

func f64(v float64) *float64 { return &v }

var monday = time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

func mustRide(t *testing.T, start time.Time, d time.Duration, c domain.Completion) domain.Ride {
	t.Helper()
	r, err := domain.NewRide(start, start.Add(d), c, time.UTC)
	if err != nil {
		t.Fatalf("NewRide() error: %v", err)
	}
	return r
}

// ─── Formatting ─────────────────────────────────────────────────────────────

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"money", Money(1234.5), "1,234.50"},
		{"money zero", Money(0), "0.00"},
		{"percent", Percent(73.456), "73.5%"},
		{"metric nil", Metric(nil), "not entered"},
		{"metric", Metric(f64(72.5)), "72.50%"},
		{"number int", Number(25), "25"},
		{"number frac", Number(1.5), "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestWeekText(t *testing.T) {
	got := WeekText(domain.WeekOf(monday.Add(48*time.Hour)), time.UTC)
	want := "Week: Monday 2024-01-08 to Sunday 2024-01-14"
	if got != want {
		t.Errorf("WeekText() = %q, want %q", got, want)
	}
}

// ─── Hints ──────────────────────────────────────────────────────────────────

func TestHintsFor_NoRides(t *testing.T) {
	s := domain.ComputeDashboard(nil, domain.DefaultRules(), domain.QualityStats{}, monday)
	h := HintsFor(s)

	if !strings.HasPrefix(h.RequiredTrips, "Record some rides") {
		t.Errorf("RequiredTrips = %q", h.RequiredTrips)
	}
	if h.RemainingTrips != "" {
		t.Errorf("RemainingTrips = %q, want empty", h.RemainingTrips)
	}
	if !strings.HasPrefix(h.Hours, "Waiting") || !strings.HasPrefix(h.Peak, "Waiting") {
		t.Errorf("Hours = %q, Peak = %q", h.Hours, h.Peak)
	}
	if !strings.Contains(h.Quality, "acceptance rate") || !strings.Contains(h.Quality, "cancellation rate") {
		t.Errorf("Quality = %q", h.Quality)
	}
	if h.Verdict != Verdict(domain.StatusPending) {
		t.Errorf("Verdict = %q", h.Verdict)
	}
}

func TestHintsFor_InProgress(t *testing.T) {
	rides := []domain.Ride{
		mustRide(t, monday, 2*time.Hour, domain.Completion{Payment: domain.PaymentCard, Fare: f64(100)}),
		mustRide(t, monday.Add(-9*time.Hour), time.Hour, domain.Completion{Payment: domain.PaymentCash, Fare: f64(50)}),
	}
	stats := domain.QualityStats{Acceptance: f64(60), Cancel: f64(5)}
	s := domain.ComputeDashboard(rides, domain.DefaultRules(), stats, monday)
	h := HintsFor(s)

	if !strings.Contains(h.RequiredTrips, "About 35 trips required") {
		t.Errorf("RequiredTrips = %q", h.RequiredTrips)
	}
	if !strings.Contains(h.RemainingTrips, "About 33 more trips") {
		t.Errorf("RemainingTrips = %q", h.RemainingTrips)
	}
	if !strings.HasPrefix(h.Hours, "⚠") {
		t.Errorf("Hours = %q", h.Hours)
	}
	// 01:00 Monday is off-peak, 10:00 is peak: 50% < 70%.
	if !strings.HasPrefix(h.Peak, "⚠") {
		t.Errorf("Peak = %q", h.Peak)
	}
	if !strings.Contains(h.Quality, "Acceptance is below 65%") || !strings.Contains(h.Quality, "Cancellation is at most 10%") {
		t.Errorf("Quality = %q", h.Quality)
	}
	if !strings.Contains(h.IncomeBoost, "4.0%") {
		t.Errorf("IncomeBoost = %q", h.IncomeBoost)
	}
}

func TestHintsFor_TripsMet(t *testing.T) {
	rules := domain.Rules{MinHours: 0, MinTrips: 1, MinPeakTripsPercent: 0, IncentivePerTrip: 1}
	rides := []domain.Ride{
		mustRide(t, monday, 20*time.Minute, domain.Completion{Payment: domain.PaymentCard, Fare: f64(10)}),
	}
	s := domain.ComputeDashboard(rides, rules, domain.QualityStats{}, monday)
	// 1/3 hour over 0 requires 1 + ceil(0.5) = 2 trips.
	if s.RequiredTrips != 2 {
		t.Fatalf("RequiredTrips = %d, want 2", s.RequiredTrips)
	}
	rides = append(rides, mustRide(t, monday.Add(time.Hour), 0, domain.Completion{Payment: domain.PaymentCard, Fare: f64(10)}))
	s = domain.ComputeDashboard(rides, rules, domain.QualityStats{}, monday)
	if h := HintsFor(s); !strings.HasPrefix(h.RemainingTrips, "✅") {
		t.Errorf("RemainingTrips = %q", h.RemainingTrips)
	}
}

// ─── Rendering ──────────────────────────────────────────────────────────────

func TestRender(t *testing.T) {
	rides := []domain.Ride{
		mustRide(t, monday, 30*time.Minute, domain.Completion{Payment: domain.PaymentMixed, Fare: f64(1200), Cash: f64(200)}),
		mustRide(t, monday.Add(2*time.Hour), 15*time.Minute, domain.Completion{Payment: domain.PaymentCash, Fare: f64(45)}),
	}
	s := domain.ComputeDashboard(rides, domain.DefaultRules(), domain.QualityStats{Acceptance: f64(90)}, monday)

	var buf bytes.Buffer
	if err := Render(&buf, s, rides, time.UTC); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Weekly incentive report",
		"Week: Monday 2024-01-08 to Sunday 2024-01-14",
		"1,245.00",
		"Acceptance >= 65%",
		"now 90.00%",
		"now not entered",
		"❌ Not every condition is met",
		"Mon 01-08 10:00",
		"peak",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Newest first: the 12:00 ride is row 1.
	i12 := strings.Index(out, "Mon 01-08 12:00")
	i10 := strings.Index(out, "Mon 01-08 10:00")
	if i12 < 0 || i10 < 0 || i12 > i10 {
		t.Errorf("rides not listed newest first:\n%s", out)
	}
}

func TestRender_NoRides(t *testing.T) {
	s := domain.ComputeDashboard(nil, domain.DefaultRules(), domain.QualityStats{}, monday)
	var buf bytes.Buffer
	if err := Render(&buf, s, nil, time.UTC); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No rides recorded this week.") {
		t.Errorf("report:\n%s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	rides := []domain.Ride{
		mustRide(t, monday, time.Hour, domain.Completion{Payment: domain.PaymentCard, Fare: f64(80)}),
	}
	s := domain.ComputeDashboard(rides, domain.DefaultRules(), domain.QualityStats{}, monday)
	var buf bytes.Buffer
	if err := Summary(&buf, s, time.UTC); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"1 / 35 required", "1.00 / 25", "100.0% / 70%", "80.00", Verdict(domain.StatusNotEligible)} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestHistory(t *testing.T) {
	now := monday.AddDate(0, 0, 14)
	archives := []domain.WeekArchive{{
		ID:         "0f8c2a4e-9b7d-4c1e-8a3f-5d6e7f8a9b0c",
		ArchivedAt: now.Add(-3 * 24 * time.Hour),
		Week:       domain.WeekOf(monday),
		TotalTrips: 41,
		TotalHours: 27.25,
		TotalFare:  2310,
		Status:     domain.StatusEligible,
	}}
	var buf bytes.Buffer
	if err := History(&buf, archives, now, time.UTC); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"0f8c2a4e", "2024-01-08", "41", "2,310.00", "eligible", "3 days ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	History(&buf, nil, now, time.UTC)
	if !strings.Contains(buf.String(), "No archived weeks.") {
		t.Errorf("empty history = %q", buf.String())
	}
}

func TestOpenRideLine(t *testing.T) {
	if got := OpenRideLine(nil, monday, time.UTC); got != "No ride in progress." {
		t.Errorf("OpenRideLine(nil) = %q", got)
	}
	got := OpenRideLine(&domain.OpenRide{Start: monday}, monday.Add(10*time.Minute), time.UTC)
	if !strings.Contains(got, "10:00:00") || !strings.Contains(got, "10 minutes ago") {
		t.Errorf("OpenRideLine() = %q", got)
	}
}
