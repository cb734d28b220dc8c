package booking

import (
	"fmt"
	"time"

	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
)

var ErrCheckInInPast = fmt.Errorf("%w: booking: check-in date is in the past", failure.ErrValidation)

func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	if daterange.Day(dr.CheckIn).Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}
