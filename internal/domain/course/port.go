package course

import "context"

type Repo interface {
	GetByID(ctx context.Context, id int64) (*Course, error)
}
