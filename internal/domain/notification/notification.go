package notification

import "time"

// Record is the persisted fact that a user was notified about an item
// becoming available. Unique per (user, item); once it exists the pair is
// settled for good.
type Record struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ItemID      int64     `json:"item_id"`
	TimeCreated time.Time `json:"time_created"`
}
