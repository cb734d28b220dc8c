package calendar

import (
	"fmt"
	"strings"

	"opalestay/internal/domain/shared/daterange"
)

// Residuals returns what is left of blocked once release is carved out of it: nothing
// when release covers it, one range when release clips an end, two when release sits
// strictly inside. A non-overlapping release leaves blocked untouched.
func Residuals(blocked, release daterange.Closed) []daterange.Closed {
	if !blocked.Overlaps(release) {
		return []daterange.Closed{blocked}
	}
	out := make([]daterange.Closed, 0, 2)
	if blocked.Start.Before(release.Start) {
		out = append(out, daterange.Closed{Start: blocked.Start, End: daterange.AddDays(release.Start, -1)})
	}
	if blocked.End.After(release.End) {
		out = append(out, daterange.Closed{Start: daterange.AddDays(release.End, 1), End: blocked.End})
	}
	return out
}

// ResidualFailure names a residual period that could not be written after its parent
// was deleted.
type ResidualFailure struct {
	ParentID PeriodID
	Range    daterange.Closed
	Reason   string
	Err      error
}

func (f ResidualFailure) Error() string {
	return fmt.Sprintf("residual %s of period %s: %v", f.Range, f.ParentID, f.Err)
}

func (f ResidualFailure) Unwrap() error { return f.Err }

// SplitError reports an unblock that was rolled back because a residual could not be
// written. Failures names the residual that failed; nothing of the unblock is stored.
type SplitError struct {
	Failures []ResidualFailure
}

func (e *SplitError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return ErrPartialSplit.Error() + ": " + strings.Join(parts, "; ")
}

func (e *SplitError) Is(target error) bool { return target == ErrPartialSplit }

func (e *SplitError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}
