// Package enrollment defines the (user, course) membership set.
package enrollment

import (
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

// Enrollment records that a user holds access to a course. The
// (UserID, CourseID) pair is unique; adding an existing pair is a
// no-op, never an error and never a duplicate row.
type Enrollment struct {
	types.Entity
	ID       id.EnrollmentID `json:"id"`
	UserID   id.UserID       `json:"user_id"`
	CourseID id.CourseID     `json:"course_id"`

	// PurchaseID links back to the ledger entry whose completion created
	// this enrollment, when there is one.
	PurchaseID id.PurchaseID `json:"purchase_id,omitempty"`
}
