package purchase

import (
	"context"
	"time"

	"github.com/xraph/enroll/id"
)

// Store is the persistence interface for purchase ledger entries.
type Store interface {
	Create(ctx context.Context, p *Purchase) error
	Get(ctx context.Context, purchaseID id.PurchaseID) (*Purchase, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*Purchase, error)

	// CompareAndSetStatus transitions the entry from expected to next and
	// reports whether the swap happened. A false return with a nil error
	// means the entry was found but its status was not expected; callers
	// re-read to find out what it is now. This is the only status write.
	CompareAndSetStatus(ctx context.Context, purchaseID id.PurchaseID, expected, next Status) (bool, error)

	// SetCorrelationID attaches the gateway session identifier after the
	// session is created. Only valid while the entry is pending.
	SetCorrelationID(ctx context.Context, purchaseID id.PurchaseID, correlationID string) error

	// GetPendingForPair returns the pending entry for (user, course) if
	// one exists, ErrNotFound otherwise.
	GetPendingForPair(ctx context.Context, userID id.UserID, courseID id.CourseID) (*Purchase, error)

	// ListStalePending returns pending entries created before cutoff, for
	// the reconciliation sweep.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*Purchase, error)

	ListByUser(ctx context.Context, userID id.UserID) ([]*Purchase, error)
	ListByCourse(ctx context.Context, courseID id.CourseID) ([]*Purchase, error)
}
