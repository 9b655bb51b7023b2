package item

import "github.com/hyukudan/dripgate/internal/domain/condition"

// Item is a content item carrying a gating condition.
type Item struct {
	ID         int64
	CourseID   int64
	Name       string
	CourseName string
	Condition  *condition.Condition
}
