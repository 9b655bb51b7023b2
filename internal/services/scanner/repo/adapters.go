// Package repo adapts the domain ports to the narrow views the scanner
// usecase needs.
package repo

import (
	"context"
	"time"

	"github.com/hyukudan/dripgate/internal/domain/course"
	"github.com/hyukudan/dripgate/internal/domain/enrolment"
	"github.com/hyukudan/dripgate/internal/domain/item"
	"github.com/hyukudan/dripgate/internal/domain/notification"
	"github.com/hyukudan/dripgate/internal/domain/user"
)

type Items struct{ R item.Repo }
type Enrolments struct{ R enrolment.Repo }
type Courses struct{ R course.Repo }
type Store struct{ R notification.Repo }

func (a Items) FindGated(ctx context.Context) ([]*item.Item, error) {
	return a.R.FindGated(ctx)
}

func (a Enrolments) FirstEnrolment(ctx context.Context, courseID, userID int64, methods []string) (time.Time, error) {
	return a.R.FirstEnrolment(ctx, courseID, userID, methods)
}

func (a Enrolments) Periods(ctx context.Context, courseID, userID int64, methods []string) ([]enrolment.Period, error) {
	return a.R.Periods(ctx, courseID, userID, methods)
}

func (a Enrolments) EnrolledUsers(ctx context.Context, courseID int64) ([]*user.User, error) {
	return a.R.EnrolledUsers(ctx, courseID)
}

func (a Courses) GetByID(ctx context.Context, id int64) (*course.Course, error) {
	return a.R.GetByID(ctx, id)
}

func (a Store) TryClaim(ctx context.Context, userID, itemID int64, at time.Time) (bool, error) {
	return a.R.TryClaim(ctx, userID, itemID, at)
}

func (a Store) Exists(ctx context.Context, userID, itemID int64) (bool, error) {
	return a.R.Exists(ctx, userID, itemID)
}
