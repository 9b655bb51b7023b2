package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hyukudan/dripgate/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const (
	qNotifClaim = `
INSERT INTO unlock_notifications (user_id, item_id, time_created)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, item_id) DO NOTHING;
`
	qNotifExists = `
SELECT 1 FROM unlock_notifications WHERE user_id = $1 AND item_id = $2;
`
	qNotifSweepAge = `
DELETE FROM unlock_notifications WHERE time_created < $1;
`
	qNotifSweepOrphans = `
DELETE FROM unlock_notifications n
WHERE NOT EXISTS (SELECT 1 FROM content_items ci WHERE ci.id = n.item_id);
`
)

// TryClaim relies on the unique (user_id, item_id) index: the insert that
// hits the conflict reports zero affected rows, so exactly one concurrent
// caller ever sees claimed=true.
func (r *NotificationRepoImpl) TryClaim(ctx context.Context, userID, itemID int64, at time.Time) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifClaim, userID, itemID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepoImpl) Exists(ctx context.Context, userID, itemID int64) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qNotifExists, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("query notification: %w", err)
	}
	return oneRow(rows), nil
}

func (r *NotificationRepoImpl) SweepBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifSweepAge, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep notifications by age: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepoImpl) SweepOrphans(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifSweepOrphans)
	if err != nil {
		return 0, fmt.Errorf("sweep orphaned notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
