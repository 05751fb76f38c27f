package observability

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ridetally/ridetally/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Metrics Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrPaymentRequired, "payment_required"},
		{domain.ErrUnknownPayment, "unknown_payment"},
		{domain.ErrFareRequired, "fare_required"},
		{domain.ErrCashRequired, "cash_required"},
		{domain.ErrCashExceedsFare, "cash_exceeds_fare"},
		{fmt.Errorf("end ride: %w", domain.ErrFareRequired), "fare_required"},
		{domain.ErrEndBeforeStart, "other"},
		{nil, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RejectionReason(tt.err); got != tt.want {
				t.Errorf("RejectionReason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestObserveRejection_IncrementsReason(t *testing.T) {
	c := RideRejections.WithLabelValues("cash_required")
	before := testutil.ToFloat64(c)
	ObserveRejection(domain.ErrCashRequired)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("rejected_total{cash_required} = %v, want %v", got, before+1)
	}
}

func TestObserveRide_CountsByPayment(t *testing.T) {
	c := RidesRecorded.WithLabelValues("card")
	before := testutil.ToFloat64(c)
	ObserveRide(domain.Ride{Payment: domain.PaymentCard})
	ObserveRide(domain.Ride{Payment: domain.PaymentCard})
	if got := testutil.ToFloat64(c); got != before+2 {
		t.Errorf("recorded_total{card} = %v, want %v", got, before+2)
	}
}

func TestObserveSnapshot_SetsGauges(t *testing.T) {
	before := testutil.ToFloat64(Recomputations)
	ObserveSnapshot(domain.Snapshot{
		TotalTrips:       41,
		RequiredTrips:    38,
		TotalHours:       26.5,
		PeakTripsPercent: 73.2,
		TotalFare:        1234.5,
		TotalIncentive:   123,
		Checks:           domain.Checks{Hours: true, Trips: true, Peak: true, Acceptance: true, Cancel: false},
		Status:           domain.StatusNotEligible,
	})

	if got := testutil.ToFloat64(Recomputations); got != before+1 {
		t.Errorf("recomputations_total = %v, want %v", got, before+1)
	}
	gauges := []struct {
		name string
		got  float64
		want float64
	}{
		{"trips", testutil.ToFloat64(WeekTrips), 41},
		{"required_trips", testutil.ToFloat64(WeekRequiredTrips), 38},
		{"hours", testutil.ToFloat64(WeekHours), 26.5},
		{"peak_trips_percent", testutil.ToFloat64(WeekPeakTripsPercent), 73.2},
		{"fare", testutil.ToFloat64(WeekFare), 1234.5},
		{"incentive", testutil.ToFloat64(WeekIncentive), 123},
		{"check{hours}", testutil.ToFloat64(EligibilityCheck.WithLabelValues("hours")), 1},
		{"check{cancel}", testutil.ToFloat64(EligibilityCheck.WithLabelValues("cancel")), 0},
		{"eligible", testutil.ToFloat64(Eligible), 0},
	}
	for _, g := range gauges {
		if g.got != g.want {
			t.Errorf("%s = %v, want %v", g.name, g.got, g.want)
		}
	}
}
