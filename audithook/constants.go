package audithook

// Action constants for audit events.
const (
	// Course actions
	ActionCourseCreated   = "course.created"
	ActionCoursePublished = "course.published"
	ActionCourseRated     = "course.rated"

	// Identity actions
	ActionUserSynced = "user.synced"

	// Purchase actions
	ActionPurchaseInitiated = "purchase.initiated"
	ActionPurchaseCompleted = "purchase.completed"
	ActionPurchaseFailed    = "purchase.failed"
	ActionTerminalConflict  = "purchase.terminal_conflict"

	// Enrollment actions
	ActionEnrollmentCreated = "enrollment.created"
	ActionLectureCompleted  = "lecture.completed"

	// Notification actions
	ActionNotificationRejected = "notification.rejected"
	ActionSweepCompleted       = "sweep.completed"
)

// Resource constants for audit events.
const (
	ResourceCourse       = "course"
	ResourceUser         = "user"
	ResourcePurchase     = "purchase"
	ResourceEnrollment   = "enrollment"
	ResourceProgress     = "progress"
	ResourceNotification = "notification"
)

// Category constants for audit events.
const (
	CategoryCatalog     = "catalog"
	CategoryIdentity    = "identity"
	CategoryPayment     = "payment"
	CategoryAccess      = "access"
	CategoryIntegration = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
