package calendar

import "time"

type CalendarBlocked struct {
	Property string    `json:"property"`
	PeriodID string    `json:"period_id"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.Property }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }
func (e CalendarBlocked) PropertyKey() string   { return e.Property }

type CalendarReleased struct {
	Property string    `json:"property"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Deleted  int       `json:"deleted"`
	Created  int       `json:"created"`
	At       time.Time `json:"at"`
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.Property }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }
func (e CalendarReleased) PropertyKey() string   { return e.Property }
