package booking

import "github.com/clinic/reserve/pkg/model"

// TimeSpan is the temporal footprint of a reservation: either a single
// instant (outpatient and special appointments) or a half-open range
// [start, end) (visit and rehab appointments). Dates are "2006-01-02" and
// clock times "15:04" strings; both are zero-padded, so lexical comparison
// is chronological and no parsing is needed.
type TimeSpan struct {
	Date    string
	instant bool
	at      string
	start   string
	end     string
}

// Instant builds the span of a point-in-time reservation.
func Instant(date, at string) TimeSpan {
	return TimeSpan{Date: date, instant: true, at: at}
}

// Range builds the span of an interval reservation. Callers are expected
// to have validated start < end.
func Range(date, start, end string) TimeSpan {
	return TimeSpan{Date: date, start: start, end: end}
}

// Overlaps reports whether two spans collide. Spans on different dates
// never overlap. An instant collides with a range when it falls inside
// [start, end): the start boundary is included, the end boundary is not.
// Two ranges collide only on a strict overlap, so back-to-back ranges
// sharing a boundary do not conflict.
func (s TimeSpan) Overlaps(o TimeSpan) bool {
	if s.Date != o.Date {
		return false
	}
	switch {
	case s.instant && o.instant:
		return s.at == o.at
	case s.instant:
		return o.start <= s.at && s.at < o.end
	case o.instant:
		return s.start <= o.at && o.at < s.end
	default:
		return s.start < o.end && s.end > o.start
	}
}

// spanOf derives an appointment's span from its kind: visit and rehab
// records occupy a range, outpatient and special records an instant. The
// kind decides the branch, not whichever fields happen to be populated, so
// a record mid-edit with leftovers from a previous kind still maps to the
// right footprint. Records missing their kind's fields (possible for
// special appointments, whose time is optional) report ok == false.
func spanOf(a *model.Appointment) (TimeSpan, bool) {
	switch a.ReservationType {
	case model.ReservationVisit, model.ReservationRehab:
		if !a.HasRange() {
			return TimeSpan{}, false
		}
		return Range(a.Date, a.StartTimeRange, a.EndTimeRange), true
	default:
		if !a.HasTime() {
			return TimeSpan{}, false
		}
		return Instant(a.Date, a.Time), true
	}
}

// blockedSpan projects a blocked slot onto a single calendar date. All-day
// slots block every instant and range of the date; timed slots behave like
// a visit-style range with the same half-open semantics.
func blockedSpan(b *model.BlockedSlot, date string) (TimeSpan, bool) {
	if !b.CoversDate(date) {
		return TimeSpan{}, false
	}
	if b.AllDay() {
		return Range(date, "00:00", "24:00"), true
	}
	return Range(date, b.StartTime, b.EndTime), true
}
