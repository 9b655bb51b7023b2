package item

import "context"

type Repo interface {
	// FindGated returns every visible item whose availability carries a
	// dripgate condition, ordered by course. Items whose stored condition
	// cannot be decoded are skipped.
	FindGated(ctx context.Context) ([]*Item, error)
}
