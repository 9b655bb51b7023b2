// Package condition implements the time-window gate attached to content
// items. A condition decides, for one user at one moment, whether enough
// time has passed for an item to be available.
package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyukudan/dripgate/internal/domain/enrolment"
)

// Mode selects which rule gates the item.
type Mode string

const (
	// ModeEnrolmentDays unlocks a fixed duration after first enrolment.
	ModeEnrolmentDays Mode = "coursedays"
	// ModeCourseStartDays unlocks a fixed duration after the course start.
	ModeCourseStartDays Mode = "coursestartdays"
	// ModeSubscriptionDays unlocks after enough cumulative active
	// subscription time, gaps excluded.
	ModeSubscriptionDays Mode = "subscriptiondays"
	// ModeDateRange unlocks between two fixed dates.
	ModeDateRange Mode = "daterange"
)

type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
)

const (
	daySecs  = 86400
	weekSecs = 604800
)

// TypeTag marks a dripgate condition inside an item's availability JSON.
const TypeTag = "dripcontent"

// Structure is the flat wire form stored in an item's availability column.
// Unix-second timestamps; zero means absent.
type Structure struct {
	Type             string   `json:"type"`
	Mode             string   `json:"mode"`
	Unit             string   `json:"unit"`
	Value            int      `json:"value"`
	FromDate         int64    `json:"fromdate,omitempty"`
	ToDate           int64    `json:"todate,omitempty"`
	EnrolmentMethods []string `json:"enrolmentmethods,omitempty"`
}

// Facts bundles the per-user data a mode may need. Zero values mean the
// fact is absent.
type Facts struct {
	FirstEnrolment time.Time
	CourseStart    time.Time
	Periods        []enrolment.Period
}

// Condition is immutable after construction; reconfiguration builds a new
// instance from a fresh Structure.
type Condition struct {
	mode             Mode
	unit             Unit
	value            int
	fromDate         time.Time
	toDate           time.Time
	enrolmentMethods []string
}

// New builds a condition from authored data, falling back to defaults for
// anything malformed: unknown mode or unit defaults, negative values clamp
// to zero, non-positive dates become absent. It never fails; stored data
// from older plugin versions must keep evaluating.
func New(s Structure) *Condition {
	c := &Condition{
		mode:  Mode(s.Mode),
		unit:  Unit(s.Unit),
		value: s.Value,
	}
	switch c.mode {
	case ModeEnrolmentDays, ModeCourseStartDays, ModeSubscriptionDays, ModeDateRange:
	default:
		c.mode = ModeEnrolmentDays
	}
	switch c.unit {
	case UnitDays, UnitWeeks, UnitMonths:
	default:
		c.unit = UnitDays
	}
	if c.value < 0 {
		c.value = 0
	}
	if s.FromDate > 0 {
		c.fromDate = time.Unix(s.FromDate, 0).UTC()
	}
	if s.ToDate > 0 {
		c.toDate = time.Unix(s.ToDate, 0).UTC()
	}
	for _, m := range s.EnrolmentMethods {
		if m != "" {
			c.enrolmentMethods = append(c.enrolmentMethods, m)
		}
	}
	return c
}

// Parse decodes a serialized condition with the same lenient fallbacks as
// New. It fails only when the payload is not valid JSON at all.
func Parse(data []byte) (*Condition, error) {
	var s Structure
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}
	return New(s), nil
}

// Save produces the wire form. Fields irrelevant to the active mode are
// omitted: dates are only written for daterange conditions.
func (c *Condition) Save() Structure {
	s := Structure{
		Type:  TypeTag,
		Mode:  string(c.mode),
		Unit:  string(c.unit),
		Value: c.value,
	}
	if c.mode == ModeDateRange {
		if !c.fromDate.IsZero() {
			s.FromDate = c.fromDate.Unix()
		}
		if !c.toDate.IsZero() {
			s.ToDate = c.toDate.Unix()
		}
	}
	if len(c.enrolmentMethods) > 0 {
		s.EnrolmentMethods = append([]string(nil), c.enrolmentMethods...)
	}
	return s
}

// Validate reports authoring-time configuration faults. Evaluation stays
// lenient regardless; callers decide whether to surface these.
func (c *Condition) Validate() error {
	if c.mode == ModeDateRange && c.fromDate.IsZero() && c.toDate.IsZero() {
		return errors.New("date range condition has neither a from nor a to date")
	}
	return nil
}

func (c *Condition) Mode() Mode                 { return c.mode }
func (c *Condition) Unit() Unit                 { return c.unit }
func (c *Condition) Value() int                 { return c.value }
func (c *Condition) EnrolmentMethods() []string { return c.enrolmentMethods }

// UserIndependent reports whether the verdict is the same for every user in
// the course, letting a batch pass evaluate the condition once per item.
func (c *Condition) UserIndependent() bool {
	return c.mode == ModeDateRange || c.mode == ModeCourseStartDays
}

// IsUnlocked decides whether the gate is open at now. The result is never
// negated here; negation belongs to the caller. A missing required fact
// means locked, not an error.
func (c *Condition) IsUnlocked(now time.Time, f Facts) bool {
	switch c.mode {
	case ModeEnrolmentDays:
		if f.FirstEnrolment.IsZero() {
			return false
		}
		return !now.Before(addDuration(f.FirstEnrolment, c.value, c.unit))
	case ModeCourseStartDays:
		if f.CourseStart.IsZero() {
			return false
		}
		return !now.Before(addDuration(f.CourseStart, c.value, c.unit))
	case ModeSubscriptionDays:
		return c.activeTime(now, f.Periods) >= c.requiredTime()
	case ModeDateRange:
		if !c.fromDate.IsZero() && now.Before(c.fromDate) {
			return false
		}
		if !c.toDate.IsZero() && now.After(c.toDate) {
			return false
		}
		return true
	}
	return false
}

// Remaining reports how long until the gate opens. ok is false when the
// answer cannot be determined, e.g. the user never enrolled.
func (c *Condition) Remaining(now time.Time, f Facts) (time.Duration, bool) {
	switch c.mode {
	case ModeEnrolmentDays:
		if f.FirstEnrolment.IsZero() {
			return 0, false
		}
		return clampDur(addDuration(f.FirstEnrolment, c.value, c.unit).Sub(now)), true
	case ModeCourseStartDays:
		if f.CourseStart.IsZero() {
			return 0, false
		}
		return clampDur(addDuration(f.CourseStart, c.value, c.unit).Sub(now)), true
	case ModeSubscriptionDays:
		return clampDur(c.requiredTime() - c.activeTime(now, f.Periods)), true
	case ModeDateRange:
		if !c.fromDate.IsZero() && now.Before(c.fromDate) {
			return c.fromDate.Sub(now), true
		}
		return 0, true
	}
	return 0, false
}

// activeTime sums the merged active subscription intervals up to now,
// honouring the enrolment method filter. An active open-ended or
// future-dated period is cut off at now; a suspended period ends at its
// recorded end, or collapses to nothing when it has none.
func (c *Condition) activeTime(now time.Time, periods []enrolment.Period) time.Duration {
	var spans []Interval
	for _, p := range periods {
		if !c.matchesMethod(p.Method) {
			continue
		}
		start := p.Start
		var end time.Time
		if p.Active {
			if p.End.IsZero() || p.End.After(now) {
				end = now
			} else {
				end = p.End
			}
		} else if !p.End.IsZero() {
			end = p.End
		} else {
			end = start
		}
		if end.After(start) {
			spans = append(spans, Interval{Start: start, End: end})
		}
	}

	var total time.Duration
	for _, iv := range Merge(spans) {
		total += iv.Duration()
	}
	return total
}

func (c *Condition) matchesMethod(method string) bool {
	if len(c.enrolmentMethods) == 0 {
		return true
	}
	for _, m := range c.enrolmentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// requiredTime is the subscription-mode threshold. It approximates a month
// as 30 days, unlike addDuration which is calendar-accurate; the original
// system carried this asymmetry and it is kept as observed behaviour.
func (c *Condition) requiredTime() time.Duration {
	switch c.unit {
	case UnitMonths:
		return time.Duration(c.value) * 30 * daySecs * time.Second
	case UnitWeeks:
		return time.Duration(c.value) * weekSecs * time.Second
	default:
		return time.Duration(c.value) * daySecs * time.Second
	}
}

// addDuration shifts a timestamp forward by value units. Days and weeks add
// fixed seconds; months add calendar months with the day-of-month clamped
// into shorter months (Jan 31 + 1 month = Feb 28).
func addDuration(t time.Time, value int, unit Unit) time.Time {
	switch unit {
	case UnitMonths:
		return addMonths(t, value)
	case UnitWeeks:
		return t.Add(time.Duration(value) * weekSecs * time.Second)
	default:
		return t.Add(time.Duration(value) * daySecs * time.Second)
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	months := int(m) - 1 + n
	y += months / 12
	month := time.Month(months%12 + 1)
	if last := daysIn(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDur(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
