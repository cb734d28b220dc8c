package policies

import (
	"errors"
	"fmt"

	"opalestay/internal/domain/shared/failure"
)

// BookingAction is what a one-click link lets the owner do.
type BookingAction string

const (
	ActionAccept BookingAction = "accept"
	ActionRefuse BookingAction = "refuse"
)

var ErrInvalidActionToken = fmt.Errorf("%w: action token is invalid or expired", failure.ErrValidation)

var ErrUnknownAction = errors.New("policies: unknown booking action")

type ActionClaims struct {
	BookingID string
	Action    BookingAction
}

// ActionTokens signs and verifies one-click booking links.
type ActionTokens interface {
	Issue(claims ActionClaims) (string, error)
	Verify(token string) (ActionClaims, error)
}

func ParseBookingAction(raw string) (BookingAction, error) {
	switch a := BookingAction(raw); a {
	case ActionAccept, ActionRefuse:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}
