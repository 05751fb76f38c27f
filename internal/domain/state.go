package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// ─── Rules & Quality Metrics ────────────────────────────────────────────────

// Rules are the user-configurable incentive thresholds.
type Rules struct {
	MinHours            float64 `json:"minHours"`
	MinTrips            int     `json:"minTrips"`
	MinPeakTripsPercent float64 `json:"minPeakTripsPercent"`
	IncentivePerTrip    float64 `json:"incentivePerTrip"`
}

// DefaultRules returns the platform's published thresholds.
func DefaultRules() Rules {
	return Rules{
		MinHours:            25,
		MinTrips:            35,
		MinPeakTripsPercent: 70,
		IncentivePerTrip:    3,
	}
}

// normalized resolves NaN and infinities to 0.
func (r Rules) normalized() Rules {
	return Rules{
		MinHours:            finiteOrZero(r.MinHours),
		MinTrips:            r.MinTrips,
		MinPeakTripsPercent: finiteOrZero(r.MinPeakTripsPercent),
		IncentivePerTrip:    finiteOrZero(r.IncentivePerTrip),
	}
}

// QualityStats are the two percentages the platform reports to the driver.
// A nil field means "not entered yet", which is different from 0%.
type QualityStats struct {
	Acceptance *float64 `json:"acceptance"`
	Cancel     *float64 `json:"cancel"`
}

// ─── State ──────────────────────────────────────────────────────────────────

// State is the aggregate root: everything that is persisted and exported.
type State struct {
	Rules Rules        `json:"rules"`
	Stats QualityStats `json:"stats"`
	Rides []Ride       `json:"rides"`
}

// DefaultState is what a fresh install (or an unreadable record) starts with.
func DefaultState() State {
	return State{
		Rules: DefaultRules(),
		Rides: []Ride{},
	}
}

// Clone returns a deep copy so callers can't reach into the owner's slices
// or pointers.
func (s State) Clone() State {
	out := State{
		Rules: s.Rules,
		Stats: QualityStats{
			Acceptance: cloneFloat(s.Stats.Acceptance),
			Cancel:     cloneFloat(s.Stats.Cancel),
		},
		Rides: make([]Ride, len(s.Rides)),
	}
	for i, r := range s.Rides {
		r.Fare = cloneFloat(r.Fare)
		r.CashPart = cloneFloat(r.CashPart)
		r.CardPart = cloneFloat(r.CardPart)
		out.Rides[i] = r
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// EncodeState serializes State as the compact persisted record.
func EncodeState(s State) ([]byte, error) {
	if s.Rides == nil {
		s.Rides = []Ride{}
	}
	return json.Marshal(s)
}

// EncodeStatePretty serializes State for export: same shape, two-space indent.
func EncodeStatePretty(s State) ([]byte, error) {
	if s.Rides == nil {
		s.Rides = []Ride{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// DecodeState parses a persisted or exported record. Each top-level field
// falls back to its default on its own when absent or malformed. The
// returned State is always usable; a non-nil error only reports what was
// discarded, so callers may log it and carry on.
func DecodeState(data []byte) (State, error) {
	state := DefaultState()

	var raw struct {
		Rules json.RawMessage `json:"rules"`
		Stats json.RawMessage `json:"stats"`
		Rides json.RawMessage `json:"rides"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return state, fmt.Errorf("decode state: %w", err)
	}

	var problems []string

	if present(raw.Rules) {
		var rules Rules
		if err := json.Unmarshal(raw.Rules, &rules); err != nil {
			problems = append(problems, "rules: "+err.Error())
		} else {
			state.Rules = rules
		}
	}

	if present(raw.Stats) {
		var stats QualityStats
		if err := json.Unmarshal(raw.Stats, &stats); err != nil {
			problems = append(problems, "stats: "+err.Error())
		} else {
			state.Stats = stats
		}
	}

	if present(raw.Rides) {
		var rides []Ride
		if err := json.Unmarshal(raw.Rides, &rides); err != nil {
			problems = append(problems, "rides: "+err.Error())
		} else if rides != nil {
			state.Rides = rides
		}
	}

	if len(problems) > 0 {
		return state, fmt.Errorf("decode state: defaulted %v", problems)
	}
	return state, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// ─── Settings Form ──────────────────────────────────────────────────────────

// SettingsForm is the settings screen as submitted. Every field is optional:
// a blank rule becomes 0, a blank metric becomes "not entered".
type SettingsForm struct {
	MinHours            *float64 `json:"minHours"`
	MinTrips            *float64 `json:"minTrips"`
	MinPeakTripsPercent *float64 `json:"minPeakTripsPercent"`
	IncentivePerTrip    *float64 `json:"incentivePerTrip"`
	Acceptance          *float64 `json:"acceptance"`
	Cancel              *float64 `json:"cancel"`
}

// FormFrom prefills a form with the current values.
func FormFrom(r Rules, s QualityStats) SettingsForm {
	minTrips := float64(r.MinTrips)
	return SettingsForm{
		MinHours:            cloneFloat(&r.MinHours),
		MinTrips:            &minTrips,
		MinPeakTripsPercent: cloneFloat(&r.MinPeakTripsPercent),
		IncentivePerTrip:    cloneFloat(&r.IncentivePerTrip),
		Acceptance:          cloneFloat(s.Acceptance),
		Cancel:              cloneFloat(s.Cancel),
	}
}

// Validate rejects negative values and percentages above 100.
func (f SettingsForm) Validate() error {
	check := func(name string, v *float64, max float64) error {
		if v == nil {
			return nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 || *v > max {
			return fmt.Errorf("%w: %s = %v", ErrInvalidSetting, name, *v)
		}
		return nil
	}
	for _, c := range []struct {
		name string
		v    *float64
		max  float64
	}{
		{"minHours", f.MinHours, math.MaxFloat64},
		{"minTrips", f.MinTrips, math.MaxInt32},
		{"minPeakTripsPercent", f.MinPeakTripsPercent, 100},
		{"incentivePerTrip", f.IncentivePerTrip, math.MaxFloat64},
		{"acceptance", f.Acceptance, 100},
		{"cancel", f.Cancel, 100},
	} {
		if err := check(c.name, c.v, c.max); err != nil {
			return err
		}
	}
	return nil
}

// Apply turns the form into rules and quality metrics.
func (f SettingsForm) Apply() (Rules, QualityStats) {
	orZero := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	rules := Rules{
		MinHours:            orZero(f.MinHours),
		MinTrips:            int(math.Round(orZero(f.MinTrips))),
		MinPeakTripsPercent: orZero(f.MinPeakTripsPercent),
		IncentivePerTrip:    orZero(f.IncentivePerTrip),
	}
	stats := QualityStats{
		Acceptance: cloneFloat(f.Acceptance),
		Cancel:     cloneFloat(f.Cancel),
	}
	return rules, stats
}
