package condition

import (
	"fmt"
	"time"
)

const dateFormat = "2 January 2006"

// Describe returns a short human description of the gate, for task logs and
// notification bodies.
func (c *Condition) Describe() string {
	switch c.mode {
	case ModeEnrolmentDays:
		return fmt.Sprintf("available %d %s after first enrolment", c.value, c.unit)
	case ModeCourseStartDays:
		return fmt.Sprintf("available %d %s after the course start", c.value, c.unit)
	case ModeSubscriptionDays:
		return fmt.Sprintf("available after %d %s of active subscription", c.value, c.unit)
	case ModeDateRange:
		switch {
		case !c.fromDate.IsZero() && !c.toDate.IsZero():
			return fmt.Sprintf("available from %s until %s",
				c.fromDate.Format(dateFormat), c.toDate.Format(dateFormat))
		case !c.fromDate.IsZero():
			return fmt.Sprintf("available from %s", c.fromDate.Format(dateFormat))
		case !c.toDate.IsZero():
			return fmt.Sprintf("available until %s", c.toDate.Format(dateFormat))
		}
	}
	return ""
}

// FormatRemaining renders a remaining duration the way users read it:
// months and days past 30 days, then days and hours, then hours alone.
// Months here are the display approximation of 30 days.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return ""
	}

	days := int(d / (daySecs * time.Second))
	hours := int(d%(daySecs*time.Second)) / int(time.Hour)

	switch {
	case days > 30:
		months := days / 30
		rest := days % 30
		if rest > 0 {
			return fmt.Sprintf("%d months %d days", months, rest)
		}
		return fmt.Sprintf("%d months", months)
	case days > 0:
		if hours > 0 {
			return fmt.Sprintf("%d days %d hours", days, hours)
		}
		return fmt.Sprintf("%d days", days)
	default:
		return fmt.Sprintf("%d hours", hours)
	}
}
