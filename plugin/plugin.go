// Package plugin provides an extensible plugin system for the
// enrollment engine. Plugins hook into lifecycle events to extend
// functionality without touching the purchase state machine.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Course lifecycle hooks
// ──────────────────────────────────────────────────

// OnCourseCreated is called when a new course is created.
type OnCourseCreated interface {
	Plugin
	OnCourseCreated(ctx context.Context, course interface{}) error
}

// OnCoursePublished is called when a course is published.
type OnCoursePublished interface {
	Plugin
	OnCoursePublished(ctx context.Context, course interface{}) error
}

// OnCourseRated is called when a user rates a course.
type OnCourseRated interface {
	Plugin
	OnCourseRated(ctx context.Context, courseID, userID string, score int) error
}

// ──────────────────────────────────────────────────
// Identity hooks
// ──────────────────────────────────────────────────

// OnUserSynced is called when an identity provider event is applied to
// the local user mirror.
type OnUserSynced interface {
	Plugin
	OnUserSynced(ctx context.Context, eventType string, user interface{}) error
}

// ──────────────────────────────────────────────────
// Purchase lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchaseInitiated is called when a pending ledger entry is created.
type OnPurchaseInitiated interface {
	Plugin
	OnPurchaseInitiated(ctx context.Context, p interface{}) error
}

// OnPurchaseCompleted is called after a pending entry transitions to
// completed.
type OnPurchaseCompleted interface {
	Plugin
	OnPurchaseCompleted(ctx context.Context, p interface{}) error
}

// OnPurchaseFailed is called after a pending entry transitions to
// failed.
type OnPurchaseFailed interface {
	Plugin
	OnPurchaseFailed(ctx context.Context, p interface{}) error
}

// OnTerminalConflict is called when a notification reports the terminal
// state opposite to the one already recorded. The recorded state is
// never overwritten.
type OnTerminalConflict interface {
	Plugin
	OnTerminalConflict(ctx context.Context, p interface{}, reported string) error
}

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

// OnEnrollmentCreated is called when a new enrollment row is inserted.
// It does not fire for idempotent re-adds of an existing pair.
type OnEnrollmentCreated interface {
	Plugin
	OnEnrollmentCreated(ctx context.Context, e interface{}) error
}

// OnLectureCompleted is called when a lecture is newly marked complete.
type OnLectureCompleted interface {
	Plugin
	OnLectureCompleted(ctx context.Context, userID, courseID, lectureID string) error
}

// ──────────────────────────────────────────────────
// Notification and sweep hooks
// ──────────────────────────────────────────────────

// OnNotificationRejected is called when a gateway or identity
// notification fails authentication.
type OnNotificationRejected interface {
	Plugin
	OnNotificationRejected(ctx context.Context, source string, reason error) error
}

// OnSweepCompleted is called after each reconciliation sweep pass.
type OnSweepCompleted interface {
	Plugin
	OnSweepCompleted(ctx context.Context, scanned, resolved int, elapsed time.Duration) error
}
