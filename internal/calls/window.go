package calls

import (
	"fmt"
	"strings"
	"time"
)

// Named time ranges accepted by the list and stats queries.
const (
	RangeAll       = "all"
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeWeek      = "week"
	RangeCustom    = "custom"
)

// Window is an inclusive range over called_at. A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool { return w.From.IsZero() && w.To.IsZero() }

// Contains reports whether t lies within [From, To].
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// ResolveWindow turns a named range into concrete bounds relative to now in loc.
//
//   - today: local midnight .. now
//   - yesterday: previous local midnight .. last instant before today's midnight
//   - week: now minus 7 calendar days .. now
//   - custom: from/to, each optional; a bare date as "to" covers that whole day
//   - "" / all: unbounded
func ResolveWindow(name, from, to string, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RangeAll:
		return Window{}, nil
	case RangeToday:
		return Window{From: midnight, To: now}, nil
	case RangeYesterday:
		return Window{From: midnight.AddDate(0, 0, -1), To: midnight.Add(-time.Nanosecond)}, nil
	case RangeWeek:
		return Window{From: now.AddDate(0, 0, -7), To: now}, nil
	case RangeCustom:
		var w Window
		var err error
		if strings.TrimSpace(from) != "" {
			if w.From, err = parseBound(from, loc, false); err != nil {
				return Window{}, fmt.Errorf("%w: from: %v", ErrInvalidArgument, err)
			}
		}
		if strings.TrimSpace(to) != "" {
			if w.To, err = parseBound(to, loc, true); err != nil {
				return Window{}, fmt.Errorf("%w: to: %v", ErrInvalidArgument, err)
			}
		}
		if !w.From.IsZero() && !w.To.IsZero() && w.To.Before(w.From) {
			return Window{}, fmt.Errorf("%w: to is before from", ErrInvalidArgument)
		}
		return w, nil
	default:
		return Window{}, fmt.Errorf("%w: unknown time range %q", ErrInvalidArgument, name)
	}
}

const dateLayout = "2006-01-02"

func parseBound(v string, loc *time.Location, endOfDay bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD, got %q", v)
	}
	if endOfDay {
		return d.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return d, nil
}
