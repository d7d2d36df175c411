// Package session evaluates the optimal trading session window: the
// fixed daily London-session slot (01:00-10:30 America/New_York) during
// which the methodology considers trades admissible.
package session

import (
	"fmt"
	"time"

	"confluence-coach/internal/config"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time within a day, date-independent.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// MinuteOfDay returns the time as minutes from midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// WindowStatus is the result of evaluating a clock time against the
// session window. Exactly one of Remaining/UntilStart is meaningful,
// selected by InWindow.
type WindowStatus struct {
	InWindow    bool
	Now         time.Time // in the reference zone
	WindowStart TimeOfDay
	WindowEnd   TimeOfDay
	Remaining   time.Duration // time left in the window, when InWindow
	UntilStart  time.Duration // time to the next window open, when !InWindow
	SessionName string
}

// Clock evaluates instants against the session window in a fixed
// reference zone. Evaluation is pure; callers re-evaluate on a timer.
type Clock struct {
	location *time.Location
	start    TimeOfDay
	end      TimeOfDay
}

// NewClock creates a clock for the methodology's fixed window:
// 01:00-10:30 in America/New_York.
func NewClock() *Clock {
	c, err := NewClockWithConfig(config.SessionConfig{
		Timezone:    "America/New_York",
		StartHour:   1,
		StartMinute: 0,
		EndHour:     10,
		EndMinute:   30,
	})
	if err != nil {
		// The IANA name is compile-time fixed; a failure here means a
		// broken zoneinfo installation. Fall back to UTC rather than
		// refusing to start.
		c = &Clock{
			location: time.UTC,
			start:    TimeOfDay{Hour: 1},
			end:      TimeOfDay{Hour: 10, Minute: 30},
		}
	}
	return c
}

// NewClockWithConfig creates a clock from session configuration.
func NewClockWithConfig(cfg config.SessionConfig) (*Clock, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading session timezone %q: %w", cfg.Timezone, err)
	}
	return &Clock{
		location: loc,
		start:    TimeOfDay{Hour: cfg.StartHour, Minute: cfg.StartMinute},
		end:      TimeOfDay{Hour: cfg.EndHour, Minute: cfg.EndMinute},
	}, nil
}

// Status evaluates t against the session window. The window is a cyclic
// daily interval on minute-of-day, inclusive at both boundaries.
func (c *Clock) Status(t time.Time) WindowStatus {
	local := t.In(c.location)
	nowMin := local.Hour()*60 + local.Minute()
	startMin := c.start.MinuteOfDay()
	endMin := c.end.MinuteOfDay()

	status := WindowStatus{
		Now:         local,
		WindowStart: c.start,
		WindowEnd:   c.end,
		SessionName: SessionName(local),
	}

	if nowMin >= startMin && nowMin <= endMin {
		status.InWindow = true
		remaining := endMin - nowMin
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = time.Duration(remaining) * time.Minute
		return status
	}

	var until int
	if nowMin < startMin {
		until = startMin - nowMin
	} else {
		// Past today's window; wrap to tomorrow's open.
		until = (minutesPerDay - nowMin) + startMin
	}
	status.UntilStart = time.Duration(until) * time.Minute
	return status
}

// InWindow reports whether t falls inside the session window.
func (c *Clock) InWindow(t time.Time) bool {
	return c.Status(t).InWindow
}

// Location returns the clock's reference zone.
func (c *Clock) Location() *time.Location {
	return c.location
}

// SessionName names the FX market session active at t (already in the
// reference zone). Overlap hours report the London side since that is
// the session the methodology trades.
func SessionName(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 1 && hour < 10:
		return "London Session"
	case hour >= 10 && hour < 12:
		return "London/NY Overlap"
	case hour >= 12 && hour < 17:
		return "New York Session"
	case hour >= 17 && hour < 20:
		return "Asian Session (Early)"
	default:
		return "Asian Session"
	}
}

// FormatCountdown renders a duration as "Hh Mm" for the session widget.
func FormatCountdown(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
