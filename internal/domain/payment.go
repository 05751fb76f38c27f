package domain

import (
	"encoding/json"
	"fmt"
)

// ─── Payment Types ──────────────────────────────────────────────────────────
// These live in domain because the payment split is a core business rule.

// PaymentMethod is how the rider paid for a trip.
// The zero value means "not recorded" and serializes as JSON null.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentMixed PaymentMethod = "mixed"
)

// ParsePaymentMethod maps user input to a PaymentMethod.
// An empty string yields ErrPaymentRequired.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard, PaymentMixed:
		return PaymentMethod(s), nil
	case "":
		return "", ErrPaymentRequired
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPayment, s)
	}
}

// Valid reports whether p is one of the known methods.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentCard || p == PaymentMixed
}

// MarshalJSON writes the empty method as null.
func (p PaymentMethod) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts a string or null.
func (p *PaymentMethod) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PaymentMethod(s)
	return nil
}
