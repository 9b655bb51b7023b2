package course

import "time"

type Course struct {
	ID        int64
	FullName  string
	StartDate time.Time
}
