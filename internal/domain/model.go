// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring — rides, incentive rules, the peak schedule and
// the eligibility engine. It depends on nothing but the standard library and
// decimal arithmetic.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Ride Types ─────────────────────────────────────────────────────────────

// Ride is one completed trip. It is built once by NewRide and never changed;
// DurationSec and IsPeak are stored, not recomputed.
type Ride struct {
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	DurationSec int64         `json:"durationSec"`
	Fare        *float64      `json:"fare"`
	Payment     PaymentMethod `json:"payment"`
	CashPart    *float64      `json:"cashPart"`
	CardPart    *float64      `json:"cardPart"`
	IsPeak      bool          `json:"isPeak"`
}

// OpenRide is the ride currently in progress. It exists between a start and
// the matching end and is never part of State.
type OpenRide struct {
	Start time.Time `json:"start"`
}

// Completion holds what the driver enters when a ride ends.
// Fare and Cash are nil when left blank.
type Completion struct {
	Payment PaymentMethod `json:"payment"`
	Fare    *float64      `json:"fare"`
	Cash    *float64      `json:"cash"`
}

// NewRide validates a completion and builds the stored ride.
func NewRide(start, end time.Time, c Completion, loc *time.Location) (Ride, error) {
	if _, err := ParsePaymentMethod(string(c.Payment)); err != nil {
		return Ride{}, err
	}

	var fare, cashPart, cardPart float64
	switch c.Payment {
	case PaymentCash, PaymentCard:
		if !positive(c.Fare) {
			return Ride{}, ErrFareRequired
		}
		fare = *c.Fare
		if c.Payment == PaymentCash {
			cashPart = fare
		} else {
			cardPart = fare
		}

	case PaymentMixed:
		if !positive(c.Cash) {
			return Ride{}, ErrCashRequired
		}
		cashPart = *c.Cash
		// A blank fare on a mixed ride means only the cash was income.
		if !positive(c.Fare) {
			fare = cashPart
		} else {
			fare = *c.Fare
			if cashPart > fare {
				return Ride{}, ErrCashExceedsFare
			}
			cardPart = decimal.NewFromFloat(fare).Sub(decimal.NewFromFloat(cashPart)).InexactFloat64()
		}
	}

	return Ride{
		Start:       start,
		End:         end,
		DurationSec: durationSeconds(start, end),
		Fare:        &fare,
		Payment:     c.Payment,
		CashPart:    &cashPart,
		CardPart:    &cardPart,
		IsPeak:      IsPeak(start, loc),
	}, nil
}

// durationSeconds rounds to the nearest second and clamps at zero.
func durationSeconds(start, end time.Time) int64 {
	secs := math.Round(end.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	return int64(secs)
}

// positive reports a finite amount above zero.
func positive(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0
}

// splitTolerance is half a cent.
const splitTolerance = 0.005

// ValidateRide checks the invariants of a stored ride. Rides built by
// NewRide always pass; this is for rides coming from outside.
func ValidateRide(r Ride) error {
	if r.End.Before(r.Start) {
		return ErrEndBeforeStart
	}
	if r.DurationSec < 0 {
		return ErrNegativeDuration
	}
	for _, v := range []*float64{r.Fare, r.CashPart, r.CardPart} {
		if v != nil && (*v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return ErrNegativeAmount
		}
	}
	if r.Payment != "" && !r.Payment.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPayment, r.Payment)
	}
	if r.Fare != nil && r.CashPart != nil && r.CardPart != nil {
		sum := decimal.NewFromFloat(*r.CashPart).Add(decimal.NewFromFloat(*r.CardPart))
		diff := sum.Sub(decimal.NewFromFloat(*r.Fare)).Abs()
		if diff.GreaterThan(decimal.NewFromFloat(splitTolerance)) {
			return fmt.Errorf("%w: %s + %s != %s", ErrSplitMismatch,
				decimal.NewFromFloat(*r.CashPart), decimal.NewFromFloat(*r.CardPart), decimal.NewFromFloat(*r.Fare))
		}
	}
	return nil
}

// ─── Normalized amounts ─────────────────────────────────────────────────────

// rideAmounts is a ride with every missing or invalid number resolved to 0.
// The engine aggregates these and never looks at the raw pointers.
type rideAmounts struct {
	seconds int64
	fare    decimal.Decimal
	cash    decimal.Decimal
	card    decimal.Decimal
	peak    bool
}

func (r Ride) normalized() rideAmounts {
	fare := amount(r.Fare)

	cash := decimal.Zero
	switch {
	case r.CashPart != nil:
		cash = amount(r.CashPart)
	case r.Payment == PaymentCash:
		cash = fare
	}

	// Cash rides contribute nothing to card even without a cardPart.
	card := decimal.Zero
	switch {
	case r.CardPart != nil:
		card = amount(r.CardPart)
	case r.Payment == PaymentCard:
		card = fare
	}

	return rideAmounts{
		seconds: r.DurationSec,
		fare:    fare,
		cash:    cash,
		card:    card,
		peak:    r.IsPeak,
	}
}

// CashAmount is the cash share the engine counts for this ride.
func (r Ride) CashAmount() float64 { return r.normalized().cash.InexactFloat64() }

// CardAmount is the card share the engine counts for this ride.
func (r Ride) CardAmount() float64 { return r.normalized().card.InexactFloat64() }

func amount(v *float64) decimal.Decimal {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ─── Week Archive ───────────────────────────────────────────────────────────

// WeekArchive is a closed week, kept when the driver starts a new one.
type WeekArchive struct {
	ID             string            `json:"id"`
	ArchivedAt     time.Time         `json:"archived_at"`
	Week           WeekRange         `json:"week"`
	TotalTrips     int               `json:"total_trips"`
	TotalHours     float64           `json:"total_hours"`
	TotalFare      float64           `json:"total_fare"`
	TotalIncentive float64           `json:"total_incentive"`
	Status         EligibilityStatus `json:"status"`
	Payload        []byte            `json:"-"` // exported State at archive time
}
