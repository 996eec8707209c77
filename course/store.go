package course

import (
	"context"

	"github.com/xraph/enroll/id"
)

// Store is the persistence interface for courses and their ratings.
type Store interface {
	Create(ctx context.Context, c *Course) error
	Get(ctx context.Context, courseID id.CourseID) (*Course, error)
	Update(ctx context.Context, c *Course) error
	Delete(ctx context.Context, courseID id.CourseID) error

	// List returns published courses only. Drafts are visible through
	// ListByEducator.
	List(ctx context.Context) ([]*Course, error)
	ListByEducator(ctx context.Context, educatorID id.UserID) ([]*Course, error)

	// UpsertRating replaces the user's existing rating for the course if
	// one exists, otherwise adds it.
	UpsertRating(ctx context.Context, courseID id.CourseID, r Rating) error
	ListRatings(ctx context.Context, courseID id.CourseID) ([]Rating, error)
}
