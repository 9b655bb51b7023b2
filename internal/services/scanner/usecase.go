// Package scanner implements the periodic unlock pass: it re-evaluates
// every gated item for every enrolled user, claims each newly unlocked
// (user, item) pair exactly once, and hands claimed pairs to delivery.
package scanner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hyukudan/dripgate/internal/domain/condition"
	"github.com/hyukudan/dripgate/internal/domain/course"
	"github.com/hyukudan/dripgate/internal/domain/item"
	"github.com/hyukudan/dripgate/internal/domain/notification"
	"github.com/hyukudan/dripgate/internal/domain/user"
	"github.com/hyukudan/dripgate/internal/obs"
	"github.com/hyukudan/dripgate/internal/services/scanner/repo"
)

// Report aggregates one pass. Claims made before a later failure stay
// permanent; a pass is never rolled back.
type Report struct {
	Courses  int
	Items    int
	Notified int
	Skipped  int
	Errors   int
}

// Deliverer sends the unlock notification for a freshly claimed pair.
type Deliverer interface {
	Deliver(ctx context.Context, to *user.User, it *item.Item) error
}

type Usecase struct {
	Items      repo.Items
	Enrolments repo.Enrolments
	Courses    repo.Courses
	Store      repo.Store
	Dispatch   Deliverer
	Clock      notification.Clock
	Log        *zap.Logger
}

func NewUC(items repo.Items, enrolments repo.Enrolments, courses repo.Courses,
	store repo.Store, dispatch Deliverer, clock notification.Clock, log *zap.Logger) *Usecase {
	return &Usecase{
		Items:      items,
		Enrolments: enrolments,
		Courses:    courses,
		Store:      store,
		Dispatch:   dispatch,
		Clock:      clock,
		Log:        log,
	}
}

// Scan runs one full pass. Per-course and per-item failures are counted and
// logged but never abort the pass; only failing to enumerate the gated
// items at all is fatal.
func (u *Usecase) Scan(ctx context.Context) (Report, error) {
	tr := otel.Tracer("scanner.uc")
	ctx, span := tr.Start(ctx, "scanner.pass")
	defer span.End()

	items, err := u.Items.FindGated(ctx)
	if err != nil {
		span.RecordError(err)
		return Report{}, fmt.Errorf("find gated items: %w", err)
	}
	rep := Report{Items: len(items)}
	if len(items) == 0 {
		return rep, nil
	}

	// Group by course so enrolled users are fetched once per course, not
	// once per item.
	byCourse := make(map[int64][]*item.Item)
	var courseIDs []int64
	for _, it := range items {
		if _, ok := byCourse[it.CourseID]; !ok {
			courseIDs = append(courseIDs, it.CourseID)
		}
		byCourse[it.CourseID] = append(byCourse[it.CourseID], it)
	}
	rep.Courses = len(courseIDs)

	for _, courseID := range courseIDs {
		_, cspan := tr.Start(ctx, "scanner.course",
			trace.WithAttributes(attribute.Int64("course.id", courseID)),
		)
		if err := u.scanCourse(ctx, courseID, byCourse[courseID], &rep); err != nil {
			rep.Errors++
			cspan.RecordError(err)
			obs.WithTrace(ctx, u.Log).Warn("course pass failed",
				zap.Int64("course_id", courseID), zap.Error(err))
		}
		cspan.End()
	}

	span.SetAttributes(
		attribute.Int("pass.items", rep.Items),
		attribute.Int("pass.courses", rep.Courses),
		attribute.Int("pass.notified", rep.Notified),
		attribute.Int("pass.errors", rep.Errors),
	)
	return rep, nil
}

func (u *Usecase) scanCourse(ctx context.Context, courseID int64, items []*item.Item, rep *Report) error {
	crs, err := u.Courses.GetByID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}
	users, err := u.Enrolments.EnrolledUsers(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list enrolled users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	now := u.Clock.Now().UTC()
	for _, it := range items {
		if err := u.scanItem(ctx, now, crs, it, users, rep); err != nil {
			rep.Errors++
			obs.WithTrace(ctx, u.Log).Warn("item pass failed",
				zap.Int64("course_id", courseID),
				zap.Int64("item_id", it.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (u *Usecase) scanItem(ctx context.Context, now time.Time, crs *course.Course,
	it *item.Item, users []*user.User, rep *Report) error {
	cond := it.Condition
	if cond == nil {
		return nil
	}

	// Date-range and course-start gates read the same for every user, so
	// one verdict covers the whole course.
	allUnlocked := false
	if cond.UserIndependent() {
		if !cond.IsUnlocked(now, condition.Facts{CourseStart: crs.StartDate}) {
			return nil
		}
		allUnlocked = true
	}

	for _, usr := range users {
		seen, err := u.Store.Exists(ctx, usr.ID, it.ID)
		if err != nil {
			return fmt.Errorf("check notification for user %d: %w", usr.ID, err)
		}
		if seen {
			rep.Skipped++
			continue
		}

		if !allUnlocked {
			facts, err := u.factsFor(ctx, cond, crs, usr.ID)
			if err != nil {
				return fmt.Errorf("gather facts for user %d: %w", usr.ID, err)
			}
			if !cond.IsUnlocked(now, facts) {
				continue
			}
		}

		claimed, err := u.Store.TryClaim(ctx, usr.ID, it.ID, now)
		if err != nil {
			return fmt.Errorf("claim notification for user %d: %w", usr.ID, err)
		}
		if !claimed {
			// Lost the race to a parallel worker or an overlapping pass.
			rep.Skipped++
			continue
		}

		// The claim is permanent from here on. A failed delivery is
		// logged and never retried, so one unlock cannot spam a user.
		if err := u.Dispatch.Deliver(ctx, usr, it); err != nil {
			rep.Errors++
			obs.WithTrace(ctx, u.Log).Warn("delivery failed",
				zap.Int64("user_id", usr.ID),
				zap.Int64("item_id", it.ID),
				zap.Error(err))
			continue
		}
		rep.Notified++
	}
	return nil
}

// factsFor fetches only what the condition's mode will read.
func (u *Usecase) factsFor(ctx context.Context, cond *condition.Condition,
	crs *course.Course, userID int64) (condition.Facts, error) {
	f := condition.Facts{CourseStart: crs.StartDate}
	switch cond.Mode() {
	case condition.ModeEnrolmentDays:
		first, err := u.Enrolments.FirstEnrolment(ctx, crs.ID, userID, cond.EnrolmentMethods())
		if err != nil {
			return f, fmt.Errorf("first enrolment: %w", err)
		}
		f.FirstEnrolment = first
	case condition.ModeSubscriptionDays:
		periods, err := u.Enrolments.Periods(ctx, crs.ID, userID, cond.EnrolmentMethods())
		if err != nil {
			return f, fmt.Errorf("enrolment periods: %w", err)
		}
		f.Periods = periods
	}
	return f, nil
}
