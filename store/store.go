package store

import (
	"context"
	"time"

	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	"github.com/xraph/enroll/user"
)

// Store is the unified storage interface for all enrollment entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// User methods
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, userID id.UserID) (*user.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error)
	UpdateUser(ctx context.Context, u *user.User) error
	DeleteUser(ctx context.Context, userID id.UserID) error

	// Course methods
	CreateCourse(ctx context.Context, c *course.Course) error
	GetCourse(ctx context.Context, courseID id.CourseID) (*course.Course, error)
	UpdateCourse(ctx context.Context, c *course.Course) error
	DeleteCourse(ctx context.Context, courseID id.CourseID) error
	ListCourses(ctx context.Context) ([]*course.Course, error)
	ListCoursesByEducator(ctx context.Context, educatorID id.UserID) ([]*course.Course, error)
	UpsertRating(ctx context.Context, courseID id.CourseID, r course.Rating) error
	ListRatings(ctx context.Context, courseID id.CourseID) ([]course.Rating, error)

	// Purchase methods
	CreatePurchase(ctx context.Context, p *purchase.Purchase) error
	GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error)
	GetPurchaseByCorrelationID(ctx context.Context, correlationID string) (*purchase.Purchase, error)
	CompareAndSetPurchaseStatus(ctx context.Context, purchaseID id.PurchaseID, expected, next purchase.Status) (bool, error)
	SetPurchaseCorrelationID(ctx context.Context, purchaseID id.PurchaseID, correlationID string) error
	GetPendingPurchaseForPair(ctx context.Context, userID id.UserID, courseID id.CourseID) (*purchase.Purchase, error)
	ListStalePendingPurchases(ctx context.Context, cutoff time.Time, limit int) ([]*purchase.Purchase, error)
	ListPurchasesByUser(ctx context.Context, userID id.UserID) ([]*purchase.Purchase, error)
	ListPurchasesByCourse(ctx context.Context, courseID id.CourseID) ([]*purchase.Purchase, error)

	// Enrollment methods
	AddEnrollmentIfAbsent(ctx context.Context, e *enrollment.Enrollment) (bool, error)
	EnrollmentExists(ctx context.Context, userID id.UserID, courseID id.CourseID) (bool, error)
	ListEnrollmentsForUser(ctx context.Context, userID id.UserID) ([]*enrollment.Enrollment, error)
	ListEnrollmentsForCourse(ctx context.Context, courseID id.CourseID) ([]*enrollment.Enrollment, error)

	// Progress methods
	MarkLectureComplete(ctx context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*progress.Progress, error)
	GetProgress(ctx context.Context, userID id.UserID, courseID id.CourseID) (*progress.Progress, error)
	SetProgressCompleted(ctx context.Context, userID id.UserID, courseID id.CourseID, completed bool) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
