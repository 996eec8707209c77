package enroll

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("enroll: not found")
	ErrAlreadyExists = errors.New("enroll: already exists")
	ErrInvalidInput  = errors.New("enroll: invalid input")

	// User errors
	ErrUserNotFound = errors.New("enroll: user not found")

	// Course errors
	ErrCourseNotFound    = errors.New("enroll: course not found")
	ErrCourseUnpublished = errors.New("enroll: course is not published")
	ErrInvalidPrice      = errors.New("enroll: invalid price or discount")
	ErrNotCourseEducator = errors.New("enroll: user is not the course educator")

	// Purchase errors
	ErrPurchaseNotFound      = errors.New("enroll: purchase not found")
	ErrUnknownPurchase       = errors.New("enroll: notification references unknown purchase")
	ErrAlreadyEnrolled       = errors.New("enroll: user already enrolled in course")
	ErrPurchasePending       = errors.New("enroll: a pending purchase already exists for this course")
	ErrTerminalStateConflict = errors.New("enroll: purchase already in a different terminal state")

	// Gateway errors
	ErrGatewayUnavailable          = errors.New("enroll: payment gateway unavailable")
	ErrUnauthenticatedNotification = errors.New("enroll: notification failed signature verification")

	// Progress/rating errors
	ErrProgressNotFound = errors.New("enroll: course progress not found")
	ErrInvalidRating    = errors.New("enroll: rating must be between 1 and 5")
	ErrNotEnrolled      = errors.New("enroll: user is not enrolled in course")

	// Store errors
	ErrStoreNotReady     = errors.New("enroll: store not ready")
	ErrStoreClosed       = errors.New("enroll: store is closed")
	ErrMigrationFailed   = errors.New("enroll: migration failed")
	ErrTransactionFailed = errors.New("enroll: transaction failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("enroll: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
// These are surfaced to initiating callers as rejected requests, never retried.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrPurchaseNotFound) ||
		errors.Is(err, ErrProgressNotFound)
}

// IsConflict returns true if the error indicates the request contradicts
// existing state. Redelivery never resolves these: they are acknowledged
// to the sender and logged for operator visibility.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyEnrolled) ||
		errors.Is(err, ErrPurchasePending) ||
		errors.Is(err, ErrTerminalStateConflict)
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried. Signature verification is stateless, so a rejected
// notification may still succeed when the gateway redelivers it.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrUnauthenticatedNotification) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
