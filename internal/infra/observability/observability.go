// Package observability exposes ridetally's Prometheus metrics.
//
// Counters track user actions (rides recorded, rejected completions, week
// resets); gauges mirror the latest eligibility snapshot so a local
// dashboard or node exporter can chart progress through the week.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ridetally/ridetally/internal/domain"
)

const namespace = "ridetally"

// ─── Ride Metrics ───────────────────────────────────────────────────────────

// RidesRecorded counts completed rides by payment method.
var RidesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rides",
	Name:      "recorded_total",
	Help:      "Total rides recorded, by payment method.",
}, []string{"payment"})

// RideRejections counts ride completions refused by validation.
var RideRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "rides",
	Name:      "rejected_total",
	Help:      "Total ride completions rejected by validation, by reason.",
}, []string{"reason"})

// WeekResets counts new-week resets.
var WeekResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "resets_total",
	Help:      "Total new-week resets.",
})

// ─── Snapshot Metrics ───────────────────────────────────────────────────────

// Recomputations counts eligibility recomputations.
var Recomputations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "engine",
	Name:      "recomputations_total",
	Help:      "Total eligibility snapshot recomputations.",
})

// WeekTrips tracks trips recorded this week.
var WeekTrips = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "trips",
	Help:      "Trips recorded this week.",
})

// WeekRequiredTrips tracks the progressive trip requirement.
var WeekRequiredTrips = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "required_trips",
	Help:      "Trips required given the hours worked.",
})

// WeekHours tracks hours worked this week.
var WeekHours = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "hours",
	Help:      "Hours worked this week (sum of ride durations).",
})

// WeekPeakTripsPercent tracks the share of peak trips.
var WeekPeakTripsPercent = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "peak_trips_percent",
	Help:      "Share of this week's trips started in a peak window.",
})

// WeekFare tracks base fare income this week.
var WeekFare = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "fare",
	Help:      "Base fare income this week.",
})

// WeekIncentive tracks the incentive earned if eligible.
var WeekIncentive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "week",
	Name:      "incentive",
	Help:      "Incentive pay this week if all conditions hold.",
})

// EligibilityCheck tracks each condition (1 = met).
var EligibilityCheck = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "eligibility",
	Name:      "check",
	Help:      "Whether each eligibility condition is met (1) or not (0).",
}, []string{"condition"})

// Eligible tracks the overall verdict (1 = eligible).
var Eligible = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "eligibility",
	Name:      "eligible",
	Help:      "Whether the driver currently qualifies for the incentive.",
})

// ObserveSnapshot publishes a freshly computed snapshot.
func ObserveSnapshot(s domain.Snapshot) {
	Recomputations.Inc()
	WeekTrips.Set(float64(s.TotalTrips))
	WeekRequiredTrips.Set(float64(s.RequiredTrips))
	WeekHours.Set(s.TotalHours)
	WeekPeakTripsPercent.Set(s.PeakTripsPercent)
	WeekFare.Set(s.TotalFare)
	WeekIncentive.Set(s.TotalIncentive)

	EligibilityCheck.WithLabelValues("hours").Set(boolGauge(s.Checks.Hours))
	EligibilityCheck.WithLabelValues("trips").Set(boolGauge(s.Checks.Trips))
	EligibilityCheck.WithLabelValues("peak").Set(boolGauge(s.Checks.Peak))
	EligibilityCheck.WithLabelValues("acceptance").Set(boolGauge(s.Checks.Acceptance))
	EligibilityCheck.WithLabelValues("cancel").Set(boolGauge(s.Checks.Cancel))
	Eligible.Set(boolGauge(s.Eligible()))
}

// ObserveRide counts a recorded ride.
func ObserveRide(r domain.Ride) {
	RidesRecorded.WithLabelValues(string(r.Payment)).Inc()
}

// ObserveRejection counts a refused completion under a short reason label.
func ObserveRejection(err error) {
	RideRejections.WithLabelValues(RejectionReason(err)).Inc()
}

// RejectionReason maps a validation error to a stable label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, domain.ErrUnknownPayment):
		return "unknown_payment"
	case errors.Is(err, domain.ErrFareRequired):
		return "fare_required"
	case errors.Is(err, domain.ErrCashRequired):
		return "cash_required"
	case errors.Is(err, domain.ErrCashExceedsFare):
		return "cash_exceeds_fare"
	default:
		return "other"
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
