// Package observability provides a metrics extension that records
// enrollment lifecycle event counts through an injected MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/enroll/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnCourseCreated        = (*MetricsExtension)(nil)
	_ plugin.OnCoursePublished      = (*MetricsExtension)(nil)
	_ plugin.OnCourseRated          = (*MetricsExtension)(nil)
	_ plugin.OnUserSynced           = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseInitiated    = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseCompleted    = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseFailed       = (*MetricsExtension)(nil)
	_ plugin.OnTerminalConflict     = (*MetricsExtension)(nil)
	_ plugin.OnEnrollmentCreated    = (*MetricsExtension)(nil)
	_ plugin.OnLectureCompleted     = (*MetricsExtension)(nil)
	_ plugin.OnNotificationRejected = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track purchase metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	CourseCreated   Counter
	CoursePublished Counter
	CourseRated     Counter

	// Identity metrics
	UserSynced Counter

	// Purchase metrics
	PurchaseInitiated Counter
	PurchaseCompleted Counter
	PurchaseFailed    Counter
	TerminalConflicts Counter

	// Enrollment metrics
	EnrollmentCreated Counter
	LectureCompleted  Counter

	// Notification metrics
	NotificationRejected Counter

	// Sweep metrics
	SweepScanned  Counter
	SweepResolved Counter
	SweepLatency  Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Catalog metrics
		CourseCreated:   factory.Counter("enroll.course.created"),
		CoursePublished: factory.Counter("enroll.course.published"),
		CourseRated:     factory.Counter("enroll.course.rated"),

		// Identity metrics
		UserSynced: factory.Counter("enroll.user.synced"),

		// Purchase metrics
		PurchaseInitiated: factory.Counter("enroll.purchase.initiated"),
		PurchaseCompleted: factory.Counter("enroll.purchase.completed"),
		PurchaseFailed:    factory.Counter("enroll.purchase.failed"),
		TerminalConflicts: factory.Counter("enroll.purchase.terminal_conflicts"),

		// Enrollment metrics
		EnrollmentCreated: factory.Counter("enroll.enrollment.created"),
		LectureCompleted:  factory.Counter("enroll.lecture.completed"),

		// Notification metrics
		NotificationRejected: factory.Counter("enroll.notification.rejected"),

		// Sweep metrics
		SweepScanned:  factory.Counter("enroll.sweep.scanned"),
		SweepResolved: factory.Counter("enroll.sweep.resolved"),
		SweepLatency:  factory.Histogram("enroll.sweep.latency_ms"),

		// Error metrics
		StoreErrors:  factory.Counter("enroll.store.errors"),
		PluginErrors: factory.Counter("enroll.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Course lifecycle hooks
// ──────────────────────────────────────────────────

// OnCourseCreated implements plugin.OnCourseCreated.
func (m *MetricsExtension) OnCourseCreated(_ context.Context, _ interface{}) error {
	m.CourseCreated.Inc()
	return nil
}

// OnCoursePublished implements plugin.OnCoursePublished.
func (m *MetricsExtension) OnCoursePublished(_ context.Context, _ interface{}) error {
	m.CoursePublished.Inc()
	return nil
}

// OnCourseRated implements plugin.OnCourseRated.
func (m *MetricsExtension) OnCourseRated(_ context.Context, _, _ string, _ int) error {
	m.CourseRated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Identity hooks
// ──────────────────────────────────────────────────

// OnUserSynced implements plugin.OnUserSynced.
func (m *MetricsExtension) OnUserSynced(_ context.Context, _ string, _ interface{}) error {
	m.UserSynced.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Purchase lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchaseInitiated implements plugin.OnPurchaseInitiated.
func (m *MetricsExtension) OnPurchaseInitiated(_ context.Context, _ interface{}) error {
	m.PurchaseInitiated.Inc()
	return nil
}

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (m *MetricsExtension) OnPurchaseCompleted(_ context.Context, _ interface{}) error {
	m.PurchaseCompleted.Inc()
	return nil
}

// OnPurchaseFailed implements plugin.OnPurchaseFailed.
func (m *MetricsExtension) OnPurchaseFailed(_ context.Context, _ interface{}) error {
	m.PurchaseFailed.Inc()
	return nil
}

// OnTerminalConflict implements plugin.OnTerminalConflict.
func (m *MetricsExtension) OnTerminalConflict(_ context.Context, _ interface{}, _ string) error {
	m.TerminalConflicts.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Enrollment hooks
// ──────────────────────────────────────────────────

// OnEnrollmentCreated implements plugin.OnEnrollmentCreated.
func (m *MetricsExtension) OnEnrollmentCreated(_ context.Context, _ interface{}) error {
	m.EnrollmentCreated.Inc()
	return nil
}

// OnLectureCompleted implements plugin.OnLectureCompleted.
func (m *MetricsExtension) OnLectureCompleted(_ context.Context, _, _, _ string) error {
	m.LectureCompleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Notification and sweep hooks
// ──────────────────────────────────────────────────

// OnNotificationRejected implements plugin.OnNotificationRejected.
func (m *MetricsExtension) OnNotificationRejected(_ context.Context, _ string, _ error) error {
	m.NotificationRejected.Inc()
	return nil
}

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, scanned, resolved int, elapsed time.Duration) error {
	m.SweepScanned.Add(float64(scanned))
	m.SweepResolved.Add(float64(resolved))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
