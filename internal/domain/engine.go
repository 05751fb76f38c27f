package domain

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Eligibility Engine ─────────────────────────────────────────────────────

// Quality thresholds are fixed by the platform and are deliberately not
// part of Rules.
const (
	MinAcceptancePercent = 65.0
	MaxCancelPercent     = 10.0
)

// ExtraTripsPerHour is how many trips each hour beyond Rules.MinHours adds
// to the requirement.
const ExtraTripsPerHour = 1.5

// EligibilityStatus is the overall verdict.
type EligibilityStatus string

const (
	StatusPending     EligibilityStatus = "pending" // no rides yet
	StatusEligible    EligibilityStatus = "eligible"
	StatusNotEligible EligibilityStatus = "not_eligible"
)

// Checks are the five independent eligibility conditions.
type Checks struct {
	Hours      bool `json:"okHours"`
	Trips      bool `json:"okTrips"`
	Peak       bool `json:"okPeak"`
	Acceptance bool `json:"okAcceptance"`
	Cancel     bool `json:"okCancel"`
}

// All reports whether every condition holds.
func (c Checks) All() bool {
	return c.Hours && c.Trips && c.Peak && c.Acceptance && c.Cancel
}

// Snapshot is everything derived from (rides, rules, stats) at one moment.
type Snapshot struct {
	Week WeekRange `json:"week"`

	TotalTrips   int     `json:"totalTrips"`
	TotalSeconds int64   `json:"totalSeconds"`
	TotalHours   float64 `json:"totalHours"`
	TotalFare    float64 `json:"totalFare"`
	TotalCash    float64 `json:"totalCash"`
	TotalCard    float64 `json:"totalCard"`

	Rules Rules        `json:"rules"` // normalized
	Stats QualityStats `json:"stats"`

	RequiredTrips  int `json:"requiredTrips"`
	RemainingTrips int `json:"remainingTrips"`

	PeakTripsCount   int     `json:"peakTripsCount"`
	PeakTripsPercent float64 `json:"peakTripsPercent"`
	PeakTimeSeconds  int64   `json:"peakTimeSeconds"`
	PeakTimePercent  float64 `json:"peakTimePercent"`

	TotalIncentive     float64  `json:"totalIncentive"`
	IncomeBoostPercent *float64 `json:"incomeBoostPercent"` // nil until there is fare income

	Checks Checks            `json:"checks"`
	Status EligibilityStatus `json:"status"`
}

// Eligible reports whether the driver currently qualifies.
func (s Snapshot) Eligible() bool { return s.Status == StatusEligible }

// RequiredTrips applies the progressive requirement: every hour worked past
// minHours demands 1.5 more trips, and a partial hour still costs a whole trip.
func RequiredTrips(totalHours float64, rules Rules) int {
	rules = rules.normalized()
	if totalHours <= rules.MinHours {
		return rules.MinTrips
	}
	extra := math.Ceil((totalHours - rules.MinHours) * ExtraTripsPerHour)
	return rules.MinTrips + int(extra)
}

// ComputeDashboard derives the full snapshot from scratch. It is pure: the
// inputs are only read, and the same inputs always give the same snapshot.
func ComputeDashboard(rides []Ride, rules Rules, stats QualityStats, now time.Time) Snapshot {
	rules = rules.normalized()

	var (
		totalSeconds, peakSeconds int64
		peakCount                 int
		fare, cash, card          = decimal.Zero, decimal.Zero, decimal.Zero
	)
	for _, r := range rides {
		a := r.normalized()
		totalSeconds += a.seconds
		fare = fare.Add(a.fare)
		cash = cash.Add(a.cash)
		card = card.Add(a.card)
		if a.peak {
			peakCount++
			peakSeconds += a.seconds
		}
	}

	totalTrips := len(rides)
	totalHours := float64(totalSeconds) / 3600
	totalFare := fare.InexactFloat64()

	s := Snapshot{
		Week:            WeekOf(now),
		TotalTrips:      totalTrips,
		TotalSeconds:    totalSeconds,
		TotalHours:      totalHours,
		TotalFare:       totalFare,
		TotalCash:       cash.InexactFloat64(),
		TotalCard:       card.InexactFloat64(),
		Rules:           rules,
		Stats:           QualityStats{Acceptance: cloneFloat(stats.Acceptance), Cancel: cloneFloat(stats.Cancel)},
		PeakTripsCount:  peakCount,
		PeakTimeSeconds: peakSeconds,
		TotalIncentive:  float64(totalTrips) * rules.IncentivePerTrip,
	}

	s.RequiredTrips = RequiredTrips(totalHours, rules)
	s.RemainingTrips = max(0, s.RequiredTrips-totalTrips)

	if totalTrips > 0 {
		s.PeakTripsPercent = float64(peakCount) / float64(totalTrips) * 100
	}
	if totalSeconds > 0 {
		s.PeakTimePercent = float64(peakSeconds) / float64(totalSeconds) * 100
	}
	if totalFare > 0 {
		boost := s.TotalIncentive / totalFare * 100
		s.IncomeBoostPercent = &boost
	}

	s.Checks = Checks{
		Hours:      totalHours >= rules.MinHours,
		Trips:      totalTrips >= s.RequiredTrips && totalTrips >= rules.MinTrips,
		Peak:       s.PeakTripsPercent >= rules.MinPeakTripsPercent,
		Acceptance: stats.Acceptance != nil && *stats.Acceptance >= MinAcceptancePercent,
		Cancel:     stats.Cancel != nil && *stats.Cancel <= MaxCancelPercent,
	}

	switch {
	case totalTrips == 0:
		s.Status = StatusPending
	case s.Checks.All():
		s.Status = StatusEligible
	default:
		s.Status = StatusNotEligible
	}
	return s
}

// SortedRides returns a copy of rides, newest start first.
func SortedRides(rides []Ride) []Ride {
	out := make([]Ride, len(rides))
	copy(out, rides)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.After(out[j].Start)
	})
	return out
}
