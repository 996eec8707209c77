// Package gateway abstracts the payment provider the purchase engine
// charges through.
package gateway

import (
	"context"

	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/types"
)

// Outcome is the terminal result a notification reports for a session.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// CheckoutRequest carries everything the provider needs to open a
// hosted checkout session for one purchase.
type CheckoutRequest struct {
	PurchaseID  id.PurchaseID
	UserID      id.UserID
	CourseID    id.CourseID
	Amount      types.Money
	CourseTitle string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider's handle for an opened session.
// CorrelationID is stored on the purchase entry and comes back on
// notifications.
type CheckoutSession struct {
	CorrelationID string
	URL           string
}

// Notification is a provider event normalized to what the reconciler
// needs: which session, and which way it went.
type Notification struct {
	CorrelationID string
	Outcome       Outcome

	// EventID is the provider's event identifier, for logging.
	EventID string
	// Raw is the provider event type string, for logging.
	Raw string
}

// SessionState is the provider's current view of a session, used by the
// sweep worker to resolve entries whose notification never arrived.
type SessionState struct {
	CorrelationID string
	Settled       bool
	Outcome       Outcome
}

// Gateway is the payment provider surface the engine depends on.
type Gateway interface {
	// CreateCheckoutSession opens a hosted checkout session. Failures
	// here leave the purchase entry pending; the engine never rolls it
	// back.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// VerifyAndParse authenticates a raw notification body against the
	// provider's signature scheme and normalizes it. Events the engine
	// does not act on return (nil, nil).
	VerifyAndParse(payload []byte, headers map[string]string) (*Notification, error)

	// LookupSession asks the provider for the current state of a session.
	LookupSession(ctx context.Context, correlationID string) (*SessionState, error)
}
