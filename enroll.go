package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/gateway"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/identity"
	"github.com/xraph/enroll/plugin"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	"github.com/xraph/enroll/store"
	"github.com/xraph/enroll/types"
	"github.com/xraph/enroll/user"
)

// Engine is the course purchase and enrollment engine.
type Engine struct {
	store    store.Store
	gateway  gateway.Gateway
	verifier *identity.Verifier
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Checkout redirect targets
	successURL string
	cancelURL  string

	checkoutTimeout time.Duration

	// Background sweep worker
	stopChan chan struct{}
	wg       sync.WaitGroup

	sweepInterval  time.Duration
	staleThreshold time.Duration
	sweepBatchSize int
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		stopChan:        make(chan struct{}),
		checkoutTimeout: 10 * time.Second,
		sweepInterval:   5 * time.Minute,
		staleThreshold:  30 * time.Minute,
		sweepBatchSize:  100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithGateway sets the payment gateway adapter.
func WithGateway(g gateway.Gateway) Option {
	return func(e *Engine) {
		e.gateway = g
	}
}

// WithIdentityVerifier sets the identity provider webhook verifier.
func WithIdentityVerifier(v *identity.Verifier) Option {
	return func(e *Engine) {
		e.verifier = v
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCheckoutURLs sets the redirect targets for hosted checkout sessions.
func WithCheckoutURLs(successURL, cancelURL string) Option {
	return func(e *Engine) {
		e.successURL = successURL
		e.cancelURL = cancelURL
	}
}

// WithCheckoutTimeout bounds the outbound checkout session call during
// purchase initiation. On expiry the pending entry stays and the sweep
// resolves it.
func WithCheckoutTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.checkoutTimeout = d
	}
}

// WithSweepConfig configures the stale-purchase reconciliation sweep.
func WithSweepConfig(interval, staleThreshold time.Duration, batchSize int) Option {
	return func(e *Engine) {
		e.sweepInterval = interval
		e.staleThreshold = staleThreshold
		e.sweepBatchSize = batchSize
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start reconciliation sweep when a gateway is wired
	if e.gateway != nil && e.sweepInterval > 0 {
		e.wg.Add(1)
		go e.sweepWorker(ctx)
	}

	e.logger.Info("enroll engine started",
		"sweep_interval", e.sweepInterval,
		"stale_threshold", e.staleThreshold,
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Course Management
// ──────────────────────────────────────────────────

// CreateCourse creates a new course owned by an educator.
func (e *Engine) CreateCourse(ctx context.Context, c *course.Course) error {
	if c.Title == "" || c.EducatorID.IsNil() {
		return ErrInvalidInput
	}
	if err := validatePricing(c); err != nil {
		return err
	}
	if _, err := e.store.GetUser(ctx, c.EducatorID); err != nil {
		return err
	}

	if c.ID.IsNil() {
		c.ID = id.NewCourseID()
	}
	c.Entity = types.NewEntity()
	for ci := range c.Chapters {
		if c.Chapters[ci].ID.IsNil() {
			c.Chapters[ci].ID = id.NewChapterID()
		}
		for li := range c.Chapters[ci].Lectures {
			if c.Chapters[ci].Lectures[li].ID.IsNil() {
				c.Chapters[ci].Lectures[li].ID = id.NewLectureID()
			}
		}
	}

	if err := e.store.CreateCourse(ctx, c); err != nil {
		return err
	}

	e.plugins.EmitCourseCreated(ctx, c)
	return nil
}

// UpdateCourse replaces course content. Only the owning educator may update.
func (e *Engine) UpdateCourse(ctx context.Context, educatorID id.UserID, c *course.Course) error {
	existing, err := e.store.GetCourse(ctx, c.ID)
	if err != nil {
		return err
	}
	if existing.EducatorID != educatorID {
		return ErrNotCourseEducator
	}
	if err := validatePricing(c); err != nil {
		return err
	}

	c.EducatorID = existing.EducatorID
	c.Entity = existing.Entity
	c.Touch()
	return e.store.UpdateCourse(ctx, c)
}

// SetCoursePublished flips a course's published flag. Only the owning
// educator may publish or unpublish.
func (e *Engine) SetCoursePublished(ctx context.Context, educatorID id.UserID, courseID id.CourseID, published bool) error {
	c, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if c.EducatorID != educatorID {
		return ErrNotCourseEducator
	}
	if c.Published == published {
		return nil
	}

	c.Published = published
	c.Touch()
	if err := e.store.UpdateCourse(ctx, c); err != nil {
		return err
	}

	if published {
		e.plugins.EmitCoursePublished(ctx, c)
	}
	return nil
}

// DeleteCourse removes a course. Only the owning educator may delete.
func (e *Engine) DeleteCourse(ctx context.Context, educatorID id.UserID, courseID id.CourseID) error {
	c, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if c.EducatorID != educatorID {
		return ErrNotCourseEducator
	}
	return e.store.DeleteCourse(ctx, courseID)
}

// ListCourses returns all published courses.
func (e *Engine) ListCourses(ctx context.Context) ([]*course.Course, error) {
	return e.store.ListCourses(ctx)
}

// ListEducatorCourses returns all courses owned by an educator,
// published or not.
func (e *Engine) ListEducatorCourses(ctx context.Context, educatorID id.UserID) ([]*course.Course, error) {
	return e.store.ListCoursesByEducator(ctx, educatorID)
}

// GetCourseForUser returns a course as the given user may see it.
// Lecture URLs outside free previews are stripped unless the user is
// enrolled or owns the course. Unpublished courses are visible only to
// their educator.
func (e *Engine) GetCourseForUser(ctx context.Context, courseID id.CourseID, userID id.UserID) (*course.Course, error) {
	c, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.EducatorID == userID {
		return c, nil
	}
	if !c.Published {
		return nil, ErrCourseNotFound
	}

	enrolled := false
	if !userID.IsNil() {
		enrolled, err = e.store.EnrollmentExists(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
	}
	if !enrolled {
		// Stores may return shared pointers; never strip in place.
		c = c.Clone()
		c.StripLockedLectureURLs()
	}
	return c, nil
}

// ──────────────────────────────────────────────────
// User Sync
// ──────────────────────────────────────────────────

// HandleIdentityNotification verifies a raw identity provider payload
// and mirrors the account change into the user store. Verification
// happens before any decoding; rejected payloads mutate nothing.
func (e *Engine) HandleIdentityNotification(ctx context.Context, payload []byte, headers map[string]string) error {
	if e.verifier == nil {
		return fmt.Errorf("enroll: no identity verifier configured: %w", ErrInvalidInput)
	}

	ev, err := e.verifier.VerifyAndParse(payload, headers)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			err = fmt.Errorf("%s: %w", err.Error(), ErrUnauthenticatedNotification)
		}
		e.plugins.EmitNotificationRejected(ctx, "identity", err)
		e.logger.Warn("identity notification rejected", "error", err)
		return err
	}

	switch ev.Type {
	case identity.EventUserCreated:
		u := &user.User{
			Entity:     types.NewEntity(),
			ID:         id.NewUserID(),
			ExternalID: ev.User.ExternalID,
			Email:      ev.User.Email,
			Name:       ev.User.Name,
			ImageURL:   ev.User.ImageURL,
		}
		if err := e.store.CreateUser(ctx, u); err != nil {
			// Redelivered create events fall through to an update.
			if !errors.Is(err, ErrAlreadyExists) {
				return err
			}
			return e.applyUserUpdate(ctx, ev)
		}
		e.plugins.EmitUserSynced(ctx, string(ev.Type), u)
		return nil

	case identity.EventUserUpdated:
		return e.applyUserUpdate(ctx, ev)

	case identity.EventUserDeleted:
		u, err := e.store.GetUserByExternalID(ctx, ev.User.ExternalID)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		if err := e.store.DeleteUser(ctx, u.ID); err != nil {
			return err
		}
		e.plugins.EmitUserSynced(ctx, string(ev.Type), u)
		return nil
	}

	e.logger.Debug("identity event ignored", "type", ev.Type)
	return nil
}

func (e *Engine) applyUserUpdate(ctx context.Context, ev *identity.Event) error {
	u, err := e.store.GetUserByExternalID(ctx, ev.User.ExternalID)
	if err != nil {
		return err
	}
	u.Email = ev.User.Email
	u.Name = ev.User.Name
	u.ImageURL = ev.User.ImageURL
	u.Touch()
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return err
	}
	e.plugins.EmitUserSynced(ctx, string(ev.Type), u)
	return nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	return e.store.GetUser(ctx, userID)
}

// ──────────────────────────────────────────────────
// Purchase Initiation
// ──────────────────────────────────────────────────

// InitiatePurchase opens a checkout session for a (user, course) pair.
// The charge amount is the course's current discounted price, frozen on
// the ledger entry at creation; later catalog edits never reprice an
// in-flight purchase. A gateway failure leaves the pending entry in
// place for the reconciliation sweep.
func (e *Engine) InitiatePurchase(ctx context.Context, userID id.UserID, courseID id.CourseID) (*purchase.Purchase, *gateway.CheckoutSession, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, nil, err
	}
	c, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	if !c.Published {
		return nil, nil, ErrCourseUnpublished
	}
	if err := validatePricing(c); err != nil {
		return nil, nil, err
	}

	enrolled, err := e.store.EnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if enrolled {
		return nil, nil, ErrAlreadyEnrolled
	}

	if existing, err := e.store.GetPendingPurchaseForPair(ctx, userID, courseID); err == nil {
		return existing, nil, ErrPurchasePending
	} else if !IsNotFound(err) {
		return nil, nil, err
	}

	p := &purchase.Purchase{
		Entity:   types.NewEntity(),
		ID:       id.NewPurchaseID(),
		UserID:   userID,
		CourseID: courseID,
		Amount:   c.CurrentPrice(),
		Status:   purchase.StatusPending,
	}
	if err := e.store.CreatePurchase(ctx, p); err != nil {
		return nil, nil, err
	}
	e.plugins.EmitPurchaseInitiated(ctx, p)

	if e.gateway == nil {
		return p, nil, ErrGatewayUnavailable
	}

	cctx, cancel := context.WithTimeout(ctx, e.checkoutTimeout)
	defer cancel()

	session, err := e.gateway.CreateCheckoutSession(cctx, gateway.CheckoutRequest{
		PurchaseID:  p.ID,
		UserID:      userID,
		CourseID:    courseID,
		Amount:      p.Amount,
		CourseTitle: c.Title,
		SuccessURL:  e.successURL,
		CancelURL:   e.cancelURL,
	})
	if err != nil {
		// The pending entry stays; the sweep or a retry picks it up.
		e.logger.Warn("checkout session creation failed",
			"purchase_id", p.ID,
			"error", err,
		)
		return p, nil, err
	}

	if err := e.store.SetPurchaseCorrelationID(ctx, p.ID, session.CorrelationID); err != nil {
		return p, nil, err
	}
	p.CorrelationID = session.CorrelationID

	return p, session, nil
}

// GetPurchase retrieves a purchase ledger entry by ID.
func (e *Engine) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	return e.store.GetPurchase(ctx, purchaseID)
}

// ListUserPurchases returns a user's purchase history, newest first.
func (e *Engine) ListUserPurchases(ctx context.Context, userID id.UserID) ([]*purchase.Purchase, error) {
	return e.store.ListPurchasesByUser(ctx, userID)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// HandleGatewayNotification verifies a raw payment provider payload and
// applies its outcome to the referenced purchase. Delivery is
// at-least-once and possibly reordered, so every path through here is
// idempotent.
func (e *Engine) HandleGatewayNotification(ctx context.Context, payload []byte, headers map[string]string) error {
	if e.gateway == nil {
		return ErrGatewayUnavailable
	}

	n, err := e.gateway.VerifyAndParse(payload, headers)
	if err != nil {
		e.plugins.EmitNotificationRejected(ctx, "gateway", err)
		e.logger.Warn("gateway notification rejected", "error", err)
		return err
	}
	if n == nil {
		return nil
	}

	return e.reconcile(ctx, n.CorrelationID, n.Outcome)
}

// reconcile drives the purchase state machine for one verified outcome.
// The compare-and-set on the store is the serialization point: however
// many deliveries race, exactly one performs the pending-to-terminal
// transition.
func (e *Engine) reconcile(ctx context.Context, correlationID string, outcome gateway.Outcome) error {
	p, err := e.store.GetPurchaseByCorrelationID(ctx, correlationID)
	if err != nil {
		if IsNotFound(err) {
			e.logger.Warn("notification for unknown purchase", "correlation_id", correlationID)
			return fmt.Errorf("enroll: correlation id %q: %w", correlationID, ErrUnknownPurchase)
		}
		return err
	}

	next := purchase.StatusFailed
	if outcome == gateway.OutcomeSucceeded {
		next = purchase.StatusCompleted
	}

	if p.Status == next {
		e.logger.Debug("duplicate terminal notification",
			"purchase_id", p.ID,
			"status", p.Status,
		)
		return nil
	}
	if p.Status.IsTerminal() {
		return e.rejectConflict(ctx, p, next)
	}

	swapped, err := e.store.CompareAndSetPurchaseStatus(ctx, p.ID, purchase.StatusPending, next)
	if err != nil {
		return err
	}
	if !swapped {
		// Lost the race; re-read to find out who won.
		cur, err := e.store.GetPurchase(ctx, p.ID)
		if err != nil {
			return err
		}
		if cur.Status == next {
			return nil
		}
		return e.rejectConflict(ctx, cur, next)
	}

	// Re-read rather than mutating the entry the store handed back; with
	// pointer-sharing backends that object is live shared state.
	p, err = e.store.GetPurchase(ctx, p.ID)
	if err != nil {
		return err
	}

	if next == purchase.StatusCompleted {
		if err := e.grantEnrollment(ctx, p); err != nil {
			return err
		}
		e.plugins.EmitPurchaseCompleted(ctx, p)
	} else {
		e.plugins.EmitPurchaseFailed(ctx, p)
	}

	e.logger.Info("purchase reconciled",
		"purchase_id", p.ID,
		"status", p.Status,
	)
	return nil
}

// rejectConflict handles a terminal report that contradicts the entry's
// recorded terminal state. The first terminal outcome wins and is never
// overwritten; the conflict is surfaced loudly for operators.
func (e *Engine) rejectConflict(ctx context.Context, p *purchase.Purchase, reported purchase.Status) error {
	e.plugins.EmitTerminalConflict(ctx, p, string(reported))
	e.logger.Warn("conflicting terminal notification",
		"purchase_id", p.ID,
		"recorded", p.Status,
		"reported", reported,
	)
	return fmt.Errorf("enroll: purchase %s is %s, reported %s: %w",
		p.ID, p.Status, reported, ErrTerminalStateConflict)
}

// grantEnrollment adds the (user, course) pair if absent. Re-adds from
// redelivered notifications are silent no-ops and fire no hook.
func (e *Engine) grantEnrollment(ctx context.Context, p *purchase.Purchase) error {
	en := &enrollment.Enrollment{
		Entity:     types.NewEntity(),
		ID:         id.NewEnrollmentID(),
		UserID:     p.UserID,
		CourseID:   p.CourseID,
		PurchaseID: p.ID,
	}
	added, err := e.store.AddEnrollmentIfAbsent(ctx, en)
	if err != nil {
		return err
	}
	if added {
		e.plugins.EmitEnrollmentCreated(ctx, en)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation Sweep
// ──────────────────────────────────────────────────

// sweepWorker periodically resolves pending purchases whose
// notification never arrived by asking the gateway directly.
func (e *Engine) sweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.runSweep(ctx)
		}
	}
}

func (e *Engine) runSweep(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-e.staleThreshold)

	stale, err := e.store.ListStalePendingPurchases(ctx, cutoff, e.sweepBatchSize)
	if err != nil {
		e.logger.Error("sweep listing failed", "error", err)
		return
	}

	resolved := 0
	for _, p := range stale {
		if p.CorrelationID == "" {
			// No session was ever opened; nothing to ask the gateway.
			continue
		}
		state, err := e.gateway.LookupSession(ctx, p.CorrelationID)
		if err != nil {
			e.logger.Warn("sweep session lookup failed",
				"purchase_id", p.ID,
				"error", err,
			)
			continue
		}
		if !state.Settled {
			continue
		}
		if err := e.reconcile(ctx, p.CorrelationID, state.Outcome); err != nil {
			e.logger.Warn("sweep reconcile failed",
				"purchase_id", p.ID,
				"error", err,
			)
			continue
		}
		resolved++
	}

	elapsed := time.Since(start)
	e.plugins.EmitSweepCompleted(ctx, len(stale), resolved, elapsed)

	e.logger.Debug("sweep completed",
		"scanned", len(stale),
		"resolved", resolved,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Enrollment & Progress
// ──────────────────────────────────────────────────

// EnrolledCourses returns the courses a user is enrolled in.
func (e *Engine) EnrolledCourses(ctx context.Context, userID id.UserID) ([]*course.Course, error) {
	enrollments, err := e.store.ListEnrollmentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	courses := make([]*course.Course, 0, len(enrollments))
	for _, en := range enrollments {
		c, err := e.store.GetCourse(ctx, en.CourseID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// MarkLectureComplete records a lecture as completed for an enrolled
// user. Re-marking is a no-op. When every lecture in the course is
// complete, the progress record's completion flag is set.
func (e *Engine) MarkLectureComplete(ctx context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*progress.Progress, error) {
	c, err := e.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lid, err := id.ParseAny(lectureID)
	if err != nil || !c.HasLecture(lid) {
		return nil, fmt.Errorf("enroll: lecture %q: %w", lectureID, ErrNotFound)
	}
	if err := e.requireEnrolled(ctx, userID, courseID); err != nil {
		return nil, err
	}

	p, err := e.store.MarkLectureComplete(ctx, userID, courseID, lectureID)
	if err != nil {
		return nil, err
	}
	e.plugins.EmitLectureCompleted(ctx, userID.String(), courseID.String(), lectureID)

	if !p.Completed && len(p.LectureIDs) >= c.LectureCount() {
		if err := e.store.SetProgressCompleted(ctx, userID, courseID, true); err != nil {
			return nil, err
		}
		p.Completed = true
	}
	return p, nil
}

// GetProgress returns a user's progress in a course.
func (e *Engine) GetProgress(ctx context.Context, userID id.UserID, courseID id.CourseID) (*progress.Progress, error) {
	return e.store.GetProgress(ctx, userID, courseID)
}

// RateCourse records a 1-5 rating from an enrolled user, replacing any
// earlier rating from the same user.
func (e *Engine) RateCourse(ctx context.Context, userID id.UserID, courseID id.CourseID, score int) error {
	if score < 1 || score > 5 {
		return ErrInvalidRating
	}
	if _, err := e.store.GetCourse(ctx, courseID); err != nil {
		return err
	}
	if err := e.requireEnrolled(ctx, userID, courseID); err != nil {
		return err
	}

	if err := e.store.UpsertRating(ctx, courseID, course.Rating{UserID: userID, Score: score}); err != nil {
		return err
	}
	e.plugins.EmitCourseRated(ctx, courseID.String(), userID.String(), score)
	return nil
}

// CourseRatings returns all ratings recorded for a course.
func (e *Engine) CourseRatings(ctx context.Context, courseID id.CourseID) ([]course.Rating, error) {
	return e.store.ListRatings(ctx, courseID)
}

func (e *Engine) requireEnrolled(ctx context.Context, userID id.UserID, courseID id.CourseID) error {
	enrolled, err := e.store.EnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotEnrolled
	}
	return nil
}

// ──────────────────────────────────────────────────
// Educator Dashboard
// ──────────────────────────────────────────────────

// CourseEnrollments pairs a course with its enrolled students.
type CourseEnrollments struct {
	Course   *course.Course
	Students []*user.User
}

// EducatorDashboard summarizes an educator's catalog: completed-purchase
// earnings per currency and the student roster per course.
type EducatorDashboard struct {
	TotalEnrollments int
	Earnings         []types.Money
	Courses          []CourseEnrollments
}

// Dashboard builds the educator dashboard from the educator's courses.
func (e *Engine) Dashboard(ctx context.Context, educatorID id.UserID) (*EducatorDashboard, error) {
	courses, err := e.store.ListCoursesByEducator(ctx, educatorID)
	if err != nil {
		return nil, err
	}

	d := &EducatorDashboard{}
	earnings := map[string]int64{}

	for _, c := range courses {
		purchases, err := e.store.ListPurchasesByCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range purchases {
			if p.Status == purchase.StatusCompleted {
				earnings[p.Amount.Currency] += p.Amount.Amount
			}
		}

		enrollments, err := e.store.ListEnrollmentsForCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		ce := CourseEnrollments{Course: c}
		for _, en := range enrollments {
			u, err := e.store.GetUser(ctx, en.UserID)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return nil, err
			}
			ce.Students = append(ce.Students, u)
		}
		d.TotalEnrollments += len(ce.Students)
		d.Courses = append(d.Courses, ce)
	}

	currencies := make([]string, 0, len(earnings))
	for cur := range earnings {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)
	for _, cur := range currencies {
		d.Earnings = append(d.Earnings, types.Money{Amount: earnings[cur], Currency: cur})
	}
	return d, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func validatePricing(c *course.Course) error {
	if c.ListPrice.Amount < 0 || c.ListPrice.Currency == "" {
		return ErrInvalidPrice
	}
	if c.DiscountPercent < 0 || c.DiscountPercent > 100 {
		return ErrInvalidPrice
	}
	return nil
}
