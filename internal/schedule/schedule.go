// Package schedule computes when the next cycle is due.
//
// Two mutually exclusive modes exist. Interval mode is a fixed delay
// relative to the previous cycle's start, so long-running cycles shift
// every later boundary forward. Calendar mode anchors runs to weekday
// and time-of-day combinations; the next run is the earliest future
// combination.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Mode int

const (
	ModeInterval Mode = iota + 1
	ModeCalendar
)

func (m Mode) String() string {
	switch m {
	case ModeInterval:
		return "interval"
	case ModeCalendar:
		return "calendar"
	default:
		return "unknown"
	}
}

// Plan is an immutable schedule. Next is a pure function of its
// arguments: calling it twice with the same inputs yields the same
// instant.
type Plan struct {
	mode  Mode
	every time.Duration
	times []cron.Schedule
}

func NewInterval(every time.Duration) (*Plan, error) {
	if every <= 0 {
		return nil, fmt.Errorf("interval must be > 0, got %v", every)
	}
	return &Plan{mode: ModeInterval, every: every}, nil
}

// NewCalendar builds one cron schedule per time-of-day, each covering
// all configured weekdays, and resolves Next as the minimum over them.
func NewCalendar(days []time.Weekday, times []string) (*Plan, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("calendar schedule needs at least one weekday")
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("calendar schedule needs at least one time of day")
	}

	dow := weekdayField(days)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	scheds := make([]cron.Schedule, 0, len(times))
	for _, t := range times {
		h, m, err := ParseHHMM(t)
		if err != nil {
			return nil, err
		}
		sched, err := parser.Parse(fmt.Sprintf("%d %d * * %s", m, h, dow))
		if err != nil {
			return nil, fmt.Errorf("time %q: %w", t, err)
		}
		scheds = append(scheds, sched)
	}
	return &Plan{mode: ModeCalendar, times: scheds}, nil
}

func (p *Plan) Mode() Mode { return p.mode }

func (p *Plan) Every() time.Duration { return p.every }

// Next returns the next run instant, strictly after now.
//
// Interval mode: lastStart + every; a zero lastStart (no cycle has run
// yet) means "due now". Calendar mode ignores lastStart entirely.
func (p *Plan) Next(lastStart, now time.Time) time.Time {
	if p.mode == ModeInterval {
		if lastStart.IsZero() {
			return now
		}
		return lastStart.Add(p.every)
	}

	var next time.Time
	for _, s := range p.times {
		c := s.Next(now)
		if next.IsZero() || c.Before(next) {
			next = c
		}
	}
	return next
}

// ParseHHMM validates a 24-hour "HH:mm" string.
func ParseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// ParseWeekday accepts full English weekday names, case-insensitive,
// plus the common three-letter abbreviations.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
}

// weekdayField renders a sorted, deduplicated cron day-of-week field
// (Sunday=0).
func weekdayField(days []time.Weekday) string {
	seen := map[time.Weekday]bool{}
	nums := make([]int, 0, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		nums = append(nums, int(d))
	}
	sort.Ints(nums)

	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
