package postgres

import (
	"context"
	"fmt"

	"github.com/hyukudan/dripgate/internal/domain/condition"
	"github.com/hyukudan/dripgate/internal/domain/item"
)

var _ item.Repo = (*ItemRepoImpl)(nil)

type ItemRepoImpl struct{ db *DB }

func NewItemRepo(db *DB) *ItemRepoImpl { return &ItemRepoImpl{db: db} }

const qGatedItems = `
SELECT ci.id, ci.course_id, ci.name, ci.availability, c.fullname
FROM content_items ci
JOIN courses c ON c.id = ci.course_id
WHERE ci.visible = TRUE
  AND ci.availability @> '{"type":"dripcontent"}'
ORDER BY ci.course_id, ci.id;
`

func (r *ItemRepoImpl) FindGated(ctx context.Context) ([]*item.Item, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qGatedItems)
	if err != nil {
		return nil, fmt.Errorf("query gated items: %w", err)
	}
	defer rows.Close()

	var out []*item.Item
	for rows.Next() {
		var (
			it           item.Item
			availability []byte
		)
		if err := rows.Scan(&it.ID, &it.CourseID, &it.Name, &availability, &it.CourseName); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		cond, err := condition.Parse(availability)
		if err != nil {
			// Undecodable availability JSON; the item stays out of the
			// scan rather than failing the whole pass.
			continue
		}
		it.Condition = cond
		out = append(out, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
