package notification

import (
	"context"
	"time"
)

// Repo owns the unlock notification records. TryClaim is the only write
// path for new records; the sweeps are the only deleters.
type Repo interface {
	// TryClaim atomically records the intent to notify the pair. Exactly
	// one of any number of concurrent callers observes claimed=true; the
	// rest observe false. Losing the race is normal control flow, not an
	// error.
	TryClaim(ctx context.Context, userID, itemID int64, at time.Time) (claimed bool, err error)

	// Exists reports whether the pair has already been claimed. A stale
	// read only causes a redundant TryClaim, never a double notification.
	Exists(ctx context.Context, userID, itemID int64) (bool, error)

	// SweepBefore deletes records created before the cutoff and returns
	// how many were removed.
	SweepBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// SweepOrphans deletes records whose item no longer exists.
	SweepOrphans(ctx context.Context) (int64, error)
}

// Sender hands a message to the delivery channel. Fire-and-forget from the
// caller's perspective; the channel's own guarantees are its business.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
