package progress

import (
	"context"

	"github.com/xraph/enroll/id"
)

// Store is the persistence interface for course progress.
type Store interface {
	// MarkLectureComplete adds the lecture to the completion set for the
	// pair, creating the progress record on first use. Adding a lecture
	// that is already present is a no-op.
	MarkLectureComplete(ctx context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*Progress, error)

	Get(ctx context.Context, userID id.UserID, courseID id.CourseID) (*Progress, error)

	// SetCompleted flips the course-level completion flag.
	SetCompleted(ctx context.Context, userID id.UserID, courseID id.CourseID, completed bool) error
}
