package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hyukudan/dripgate/internal/domain/enrolment"
	"github.com/hyukudan/dripgate/internal/domain/user"
)

var _ enrolment.Repo = (*EnrolmentRepoImpl)(nil)

type EnrolmentRepoImpl struct{ db *DB }

func NewEnrolmentRepo(db *DB) *EnrolmentRepoImpl { return &EnrolmentRepoImpl{db: db} }

const (
	// An empty method array means every enrolment method counts.
	qFirstEnrolment = `
SELECT MIN(ue.time_start)
FROM user_enrolments ue
JOIN enrolment_methods em ON em.id = ue.enrol_id
WHERE em.course_id = $1
  AND ue.user_id = $2
  AND (cardinality($3::text[]) = 0 OR em.method = ANY($3));
`

	qPeriods = `
SELECT ue.time_start, ue.time_end, ue.status = 0, em.method
FROM user_enrolments ue
JOIN enrolment_methods em ON em.id = ue.enrol_id
WHERE em.course_id = $1
  AND ue.user_id = $2
  AND (cardinality($3::text[]) = 0 OR em.method = ANY($3))
ORDER BY ue.time_start;
`

	qEnrolledUsers = `
SELECT DISTINCT u.id, u.first_name, u.last_name, u.email
FROM users u
JOIN user_enrolments ue ON ue.user_id = u.id
JOIN enrolment_methods em ON em.id = ue.enrol_id
WHERE em.course_id = $1
ORDER BY u.id;
`
)

func (r *EnrolmentRepoImpl) FirstEnrolment(ctx context.Context, courseID, userID int64, methods []string) (time.Time, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var first *time.Time
	if err := r.db.Pool.QueryRow(ctx, qFirstEnrolment, courseID, userID, textArray(methods)).Scan(&first); err != nil {
		return time.Time{}, fmt.Errorf("query first enrolment: %w", err)
	}
	return timeOrZero(first), nil
}

func (r *EnrolmentRepoImpl) Periods(ctx context.Context, courseID, userID int64, methods []string) ([]enrolment.Period, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qPeriods, courseID, userID, textArray(methods))
	if err != nil {
		return nil, fmt.Errorf("query enrolment periods: %w", err)
	}
	defer rows.Close()

	var out []enrolment.Period
	for rows.Next() {
		var (
			p   enrolment.Period
			end *time.Time
		)
		if err := rows.Scan(&p.Start, &end, &p.Active, &p.Method); err != nil {
			return nil, fmt.Errorf("scan enrolment period: %w", err)
		}
		p.End = timeOrZero(end)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *EnrolmentRepoImpl) EnrolledUsers(ctx context.Context, courseID int64) ([]*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qEnrolledUsers, courseID)
	if err != nil {
		return nil, fmt.Errorf("query enrolled users: %w", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// textArray keeps a nil slice from reaching pgx as a NULL array.
func textArray(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
