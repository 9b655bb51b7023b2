package scanner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyukudan/dripgate/internal/domain/item"
	"github.com/hyukudan/dripgate/internal/domain/notification"
	"github.com/hyukudan/dripgate/internal/domain/user"
)

// Notification methods, mirroring the admin setting.
const (
	MethodNone  = "none"
	MethodEmail = "email"
	MethodPopup = "popup"
	MethodBoth  = "both"
)

// Dispatcher builds the unlock message and hands it to the sender. It runs
// only after the pair was claimed; delivery failures surface as errors to
// the caller, which logs them and moves on. There is no retry here: a pair
// that fails to deliver stays a silent miss rather than becoming repeat
// mail on every later pass.
type Dispatcher struct {
	Out      notification.Sender
	Method   string
	SiteName string
	BaseURL  string
	Log      *zap.Logger
}

var _ Deliverer = (*Dispatcher)(nil)

func (d *Dispatcher) Deliver(ctx context.Context, to *user.User, it *item.Item) error {
	if d.Method == MethodNone {
		return nil
	}
	// The popup channel belongs to the host platform; popup and both still
	// go out as mail from here, with the configured method on record.
	d.Log.Debug("dispatching unlock notification",
		zap.String("method", d.Method),
		zap.Int64("user_id", to.ID),
		zap.Int64("item_id", it.ID),
	)

	subject := fmt.Sprintf("New content available: %s", it.Name)
	body := fmt.Sprintf(
		"Hello %s!\n\n%q in %q is now available to you.\n\nOpen it here: %s\n\n— %s",
		to.FullName(), it.Name, it.CourseName, d.itemURL(it), d.SiteName,
	)

	if err := d.Out.Send(ctx, to.Email, subject, body); err != nil {
		return fmt.Errorf("send unlock notification: %w", err)
	}
	return nil
}

func (d *Dispatcher) itemURL(it *item.Item) string {
	return fmt.Sprintf("%s/course/%d/item/%d", strings.TrimRight(d.BaseURL, "/"), it.CourseID, it.ID)
}
