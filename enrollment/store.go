package enrollment

import (
	"context"

	"github.com/xraph/enroll/id"
)

// Store is the persistence interface for enrollments.
type Store interface {
	// AddIfAbsent inserts the enrollment unless the (user, course) pair
	// already exists. It returns true when a row was inserted and false
	// when the pair was already present; the false case is not an error.
	AddIfAbsent(ctx context.Context, e *Enrollment) (bool, error)

	Exists(ctx context.Context, userID id.UserID, courseID id.CourseID) (bool, error)
	ListForUser(ctx context.Context, userID id.UserID) ([]*Enrollment, error)
	ListForCourse(ctx context.Context, courseID id.CourseID) ([]*Enrollment, error)
}
