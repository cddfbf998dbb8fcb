// Package window derives the active order window in Monday-aligned weeks.
package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/ltvrank/internal/domain/model"
)

// EventTimeLayout is the event_time format, e.g. 2017-01-06T12:46:46.384000+00:00.
// A trailing Z is accepted in place of the offset.
const EventTimeLayout = "2006-01-02T15:04:05.999999Z07:00"

const (
	day         = 24 * time.Hour
	daysPerWeek = 7

	secondsEnd    = len("2006-01-02T15:04:05")
	maxFracDigits = 6
)

// ErrFraction reports an event_time without 1 to 6 fractional second digits.
var ErrFraction = errors.New("event_time needs 1 to 6 fractional second digits")

// ParseEventTime parses an event_time value keeping its own UTC offset.
// Fractional seconds are required.
func ParseEventTime(s string) (time.Time, error) {
	if n := fracDigits(s); n < 1 || n > maxFracDigits {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, ErrFraction)
	}
	return time.Parse(EventTimeLayout, s)
}

func fracDigits(s string) int {
	if len(s) <= secondsEnd || s[secondsEnd] != '.' {
		return 0
	}
	n := 0
	for _, c := range s[secondsEnd+1:] {
		if c < '0' || c > '9' {
			break
		}
		n++
	}
	return n
}

// WeekStart moves t back to the Monday of its week in t's own offset.
// Time of day is kept.
func WeekStart(t time.Time) time.Time {
	sinceMonday := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -sinceMonday)
}

// Span returns the number of Monday-aligned weeks from earliest to latest, never
// less than one.
func Span(earliest, latest time.Time) int {
	d := WeekStart(latest).Sub(WeekStart(earliest))
	days := int64(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	weeks := int(days/daysPerWeek) + 1
	if weeks < 1 {
		return 1
	}
	return weeks
}

// Bounds returns the earliest and latest ORDER event times.
func Bounds(records []model.Record) (earliest, latest time.Time, err error) {
	found := false
	for _, rec := range records {
		if rec.Type != model.TypeOrder {
			continue
		}
		text, terr := rec.Require(model.FieldEventTime, rec.EventTime, model.ErrMissingField)
		if errors.Is(terr, model.ErrInvalidField) {
			return time.Time{}, time.Time{}, model.NewRecordError(rec, model.FieldEventTime, model.ErrMalformedTimestamp, nil)
		}
		if terr != nil {
			return time.Time{}, time.Time{}, terr
		}
		ts, perr := ParseEventTime(text)
		if perr != nil {
			return time.Time{}, time.Time{}, model.NewRecordError(rec, model.FieldEventTime, model.ErrMalformedTimestamp, perr)
		}
		if !found || ts.Before(earliest) {
			earliest = ts
		}
		if !found || ts.After(latest) {
			latest = ts
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, model.ErrNoOrders
	}
	return earliest, latest, nil
}

// Weeks derives the window length in weeks from all ORDER records.
func Weeks(records []model.Record) (int, error) {
	earliest, latest, err := Bounds(records)
	if err != nil {
		return 0, err
	}
	return Span(earliest, latest), nil
}
