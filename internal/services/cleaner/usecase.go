// Package cleaner implements the retention sweep over unlock notification
// records: age-based deletion plus orphan cleanup for items that no longer
// exist.
package cleaner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyukudan/dripgate/internal/domain/notification"
)

// DefaultRetentionDays is applied when the setting is missing or negative.
const DefaultRetentionDays = 90

// Store is the slice of the notification repo the sweep needs.
type Store interface {
	SweepBefore(ctx context.Context, cutoff time.Time) (int64, error)
	SweepOrphans(ctx context.Context) (int64, error)
}

type SweepReport struct {
	Expired  int64
	Orphaned int64
}

type Usecase struct {
	Store         Store
	Clock         notification.Clock
	RetentionDays int
	Log           *zap.Logger
}

func NewUC(store Store, clock notification.Clock, retentionDays int, log *zap.Logger) *Usecase {
	if retentionDays < 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Usecase{Store: store, Clock: clock, RetentionDays: retentionDays, Log: log}
}

// Sweep runs one cleanup pass. Retention 0 keeps records forever; the
// orphan cleanup runs regardless.
func (u *Usecase) Sweep(ctx context.Context) (SweepReport, error) {
	var rep SweepReport

	if u.RetentionDays > 0 {
		cutoff := u.Clock.Now().UTC().Add(-time.Duration(u.RetentionDays) * 24 * time.Hour)
		n, err := u.Store.SweepBefore(ctx, cutoff)
		if err != nil {
			return rep, fmt.Errorf("age sweep: %w", err)
		}
		rep.Expired = n
	} else {
		u.Log.Debug("age-based cleanup disabled (retention is 0)")
	}

	n, err := u.Store.SweepOrphans(ctx)
	if err != nil {
		return rep, fmt.Errorf("orphan sweep: %w", err)
	}
	rep.Orphaned = n
	return rep, nil
}
