package dto

import (
	"time"

	"opalestay/internal/domain/calendar"
	"opalestay/internal/domain/shared/daterange"
)

type BlockedPeriod struct {
	ID        string    `json:"id"`
	Property  string    `json:"property"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type BlockedPeriodCollection struct {
	Property string          `json:"property"`
	Items    []BlockedPeriod `json:"items"`
}

// Availability answers whether a stay can be booked and lists what is in the way.
type Availability struct {
	Property         string           `json:"property"`
	Start            string           `json:"start"`
	End              string           `json:"end"`
	Available        bool             `json:"available"`
	BlockedConflicts []BlockedPeriod  `json:"blocked_conflicts"`
	BookingConflicts []BookingSummary `json:"booking_conflicts"`
}

type DisabledDates struct {
	Property                string                      `json:"property"`
	DisabledDates           []string                    `json:"disabled_dates"`
	AvailableDepartureDates []string                    `json:"available_departure_dates"`
	Skipped                 []calendar.IntegrityWarning `json:"skipped,omitempty"`
}

type UnblockResult struct {
	Property     string          `json:"property"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	DeletedCount int             `json:"deleted_count"`
	CreatedCount int             `json:"created_count"`
	Residuals    []BlockedPeriod `json:"residuals"`
	Message      string          `json:"message,omitempty"`
}

func MapBlockedPeriod(p *calendar.BlockedPeriod) BlockedPeriod {
	if p == nil {
		return BlockedPeriod{}
	}
	return BlockedPeriod{
		ID:        string(p.ID),
		Property:  string(p.Property),
		Start:     daterange.Format(p.Range.Start),
		End:       daterange.Format(p.Range.End),
		Reason:    p.Reason,
		CreatedAt: p.CreatedAt,
	}
}

func MapBlockedPeriods(periods []*calendar.BlockedPeriod) []BlockedPeriod {
	out := make([]BlockedPeriod, 0, len(periods))
	for _, p := range periods {
		out = append(out, MapBlockedPeriod(p))
	}
	return out
}
