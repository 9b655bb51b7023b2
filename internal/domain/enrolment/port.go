package enrolment

import (
	"context"
	"time"

	"github.com/hyukudan/dripgate/internal/domain/user"
)

// Repo reads enrolment state from the platform tables.
type Repo interface {
	// FirstEnrolment returns the earliest enrolment start of the user in
	// the course, restricted to the given methods when non-empty. The zero
	// time means the user was never enrolled.
	FirstEnrolment(ctx context.Context, courseID, userID int64, methods []string) (time.Time, error)

	// Periods returns every enrolment period of the user in the course,
	// restricted to the given methods when non-empty, ordered by start.
	Periods(ctx context.Context, courseID, userID int64, methods []string) ([]Period, error)

	// EnrolledUsers returns every user enrolled in the course.
	EnrolledUsers(ctx context.Context, courseID int64) ([]*user.User, error)
}
