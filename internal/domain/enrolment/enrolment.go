package enrolment

import "time"

// Period is one enrolment of a user in a course. A zero End means the
// enrolment is open-ended. Suspended periods keep their recorded bounds but
// never count as active subscription time past their end.
type Period struct {
	Start  time.Time
	End    time.Time
	Active bool
	Method string
}
