// Package audithook bridges enrollment lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import
// any particular audit backend. Callers inject a RecorderFunc adapter
// at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/enroll/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnCourseCreated        = (*Extension)(nil)
	_ plugin.OnCoursePublished      = (*Extension)(nil)
	_ plugin.OnCourseRated          = (*Extension)(nil)
	_ plugin.OnUserSynced           = (*Extension)(nil)
	_ plugin.OnPurchaseInitiated    = (*Extension)(nil)
	_ plugin.OnPurchaseCompleted    = (*Extension)(nil)
	_ plugin.OnPurchaseFailed       = (*Extension)(nil)
	_ plugin.OnTerminalConflict     = (*Extension)(nil)
	_ plugin.OnEnrollmentCreated    = (*Extension)(nil)
	_ plugin.OnLectureCompleted     = (*Extension)(nil)
	_ plugin.OnNotificationRejected = (*Extension)(nil)
	_ plugin.OnSweepCompleted       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges enrollment lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Course lifecycle hooks
// ──────────────────────────────────────────────────

// OnCourseCreated implements plugin.OnCourseCreated.
func (e *Extension) OnCourseCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionCourseCreated, SeverityInfo, OutcomeSuccess,
		ResourceCourse, "", CategoryCatalog, nil,
		"event", "course_created",
	)
}

// OnCoursePublished implements plugin.OnCoursePublished.
func (e *Extension) OnCoursePublished(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionCoursePublished, SeverityInfo, OutcomeSuccess,
		ResourceCourse, "", CategoryCatalog, nil,
		"event", "course_published",
	)
}

// OnCourseRated implements plugin.OnCourseRated.
func (e *Extension) OnCourseRated(ctx context.Context, courseID, userID string, score int) error {
	return e.record(ctx, ActionCourseRated, SeverityInfo, OutcomeSuccess,
		ResourceCourse, courseID, CategoryCatalog, nil,
		"user_id", userID,
		"score", score,
	)
}

// ──────────────────────────────────────────────────
// Identity hooks
// ──────────────────────────────────────────────────

// OnUserSynced implements plugin.OnUserSynced.
func (e *Extension) OnUserSynced(ctx context.Context, eventType string, _ interface{}) error {
	return e.record(ctx, ActionUserSynced, SeverityInfo, OutcomeSuccess,
		ResourceUser, "", CategoryIdentity, nil,
		"provider_event", eventType,
	)
}

// ──────────────────────────────────────────────────
// Purchase lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchaseInitiated implements plugin.OnPurchaseInitiated.
func (e *Extension) OnPurchaseInitiated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionPurchaseInitiated, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, "", CategoryPayment, nil,
		"event", "purchase_initiated",
	)
}

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (e *Extension) OnPurchaseCompleted(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionPurchaseCompleted, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, "", CategoryPayment, nil,
		"event", "purchase_completed",
	)
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed.
func (e *Extension) OnPurchaseFailed(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionPurchaseFailed, SeverityWarning, OutcomeFailure,
		ResourcePurchase, "", CategoryPayment, nil,
		"event", "purchase_failed",
	)
}

// OnTerminalConflict implements plugin.OnTerminalConflict.
// A conflicting terminal report is the strongest signal of gateway or
// integration trouble this system sees, so it audits at critical.
func (e *Extension) OnTerminalConflict(ctx context.Context, _ interface{}, reported string) error {
	return e.record(ctx, ActionTerminalConflict, SeverityCritical, OutcomeFailure,
		ResourcePurchase, "", CategoryPayment, nil,
		"reported_outcome", reported,
	)
}

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

// OnEnrollmentCreated implements plugin.OnEnrollmentCreated.
func (e *Extension) OnEnrollmentCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionEnrollmentCreated, SeverityInfo, OutcomeSuccess,
		ResourceEnrollment, "", CategoryAccess, nil,
		"event", "enrollment_created",
	)
}

// OnLectureCompleted implements plugin.OnLectureCompleted.
func (e *Extension) OnLectureCompleted(ctx context.Context, userID, courseID, lectureID string) error {
	return e.record(ctx, ActionLectureCompleted, SeverityInfo, OutcomeSuccess,
		ResourceProgress, lectureID, CategoryAccess, nil,
		"user_id", userID,
		"course_id", courseID,
	)
}

// ──────────────────────────────────────────────────
// Notification and sweep hooks
// ──────────────────────────────────────────────────

// OnNotificationRejected implements plugin.OnNotificationRejected.
func (e *Extension) OnNotificationRejected(ctx context.Context, source string, reason error) error {
	return e.record(ctx, ActionNotificationRejected, SeverityWarning, OutcomeFailure,
		ResourceNotification, "", CategoryIntegration, reason,
		"source", source,
	)
}

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (e *Extension) OnSweepCompleted(ctx context.Context, scanned, resolved int, elapsed time.Duration) error {
	return e.record(ctx, ActionSweepCompleted, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, "", CategoryPayment, nil,
		"scanned", scanned,
		"resolved", resolved,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
