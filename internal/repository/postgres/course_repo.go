package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hyukudan/dripgate/internal/domain/course"
)

var _ course.Repo = (*CourseRepoImpl)(nil)

type CourseRepoImpl struct{ db *DB }

func NewCourseRepo(db *DB) *CourseRepoImpl { return &CourseRepoImpl{db: db} }

const qCourseByID = `
SELECT id, fullname, start_date
FROM courses
WHERE id = $1;
`

func (r *CourseRepoImpl) GetByID(ctx context.Context, id int64) (*course.Course, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		c     course.Course
		start *time.Time
	)
	if err := r.db.Pool.QueryRow(ctx, qCourseByID, id).Scan(&c.ID, &c.FullName, &start); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	c.StartDate = timeOrZero(start)
	return &c, nil
}
