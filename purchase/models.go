// Package purchase defines the purchase ledger entry and its state
// machine.
//
// A purchase is created pending and takes exactly one terminal
// transition, to completed or failed. The only mutation path is the
// store's CompareAndSetStatus; there is no way to write a status
// unconditionally.
package purchase

import (
	"time"

	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

// Status is the purchase lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status admits no further transition.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Purchase is one ledger entry. Amount is the price snapshot taken at
// creation from the course's list price and discount; it never changes
// afterwards, regardless of later course edits.
type Purchase struct {
	types.Entity
	ID       id.PurchaseID `json:"id"`
	UserID   id.UserID     `json:"user_id"`
	CourseID id.CourseID   `json:"course_id"`
	Amount   types.Money   `json:"amount"`
	Status   Status        `json:"status"`

	// CorrelationID is the payment gateway's identifier for the checkout
	// session tied to this entry. Gateway notifications carry it back so
	// the reconciler can find the entry.
	CorrelationID string `json:"correlation_id,omitempty"`

	// CompletedAt is set on the terminal transition, for either outcome.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}
