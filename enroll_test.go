package enroll_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	enroll "github.com/xraph/enroll"
	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/gateway"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/identity"
	"github.com/xraph/enroll/purchase"
	"github.com/xraph/enroll/store/memory"
	"github.com/xraph/enroll/types"
	"github.com/xraph/enroll/user"
)

// ──────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────

// fakeGateway is a deterministic in-memory payment provider. Payloads
// are "correlationID outcome" strings authenticated by a Test-Signature
// header.
type fakeGateway struct {
	mu        sync.Mutex
	counter   int
	createErr error
	sessions  map[string]gateway.SessionState
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]gateway.SessionState{}}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.counter++
	corr := fmt.Sprintf("cs_test_%d", g.counter)
	g.sessions[corr] = gateway.SessionState{CorrelationID: corr}
	return &gateway.CheckoutSession{
		CorrelationID: corr,
		URL:           "https://checkout.test/" + corr,
	}, nil
}

func (g *fakeGateway) VerifyAndParse(payload []byte, headers map[string]string) (*gateway.Notification, error) {
	if headers["Test-Signature"] != "valid" {
		return nil, fmt.Errorf("fake gateway: bad signature: %w", enroll.ErrUnauthenticatedNotification)
	}
	parts := strings.Fields(string(payload))
	if len(parts) != 2 {
		return nil, nil
	}
	return &gateway.Notification{
		CorrelationID: parts[0],
		Outcome:       gateway.Outcome(parts[1]),
		EventID:       "evt_test",
	}, nil
}

func (g *fakeGateway) LookupSession(_ context.Context, correlationID string) (*gateway.SessionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.sessions[correlationID]
	if !ok {
		return nil, enroll.ErrNotFound
	}
	return &state, nil
}

// slowGateway blocks checkout session creation until the caller's
// context expires.
type slowGateway struct {
	*fakeGateway
}

func (g *slowGateway) CreateCheckoutSession(ctx context.Context, _ gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (g *fakeGateway) settle(correlationID string, outcome gateway.Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[correlationID] = gateway.SessionState{
		CorrelationID: correlationID,
		Settled:       true,
		Outcome:       outcome,
	}
}

func notify(t *testing.T, e *enroll.Engine, correlationID string, outcome gateway.Outcome) error {
	t.Helper()
	payload := []byte(correlationID + " " + string(outcome))
	return e.HandleGatewayNotification(context.Background(), payload, map[string]string{"Test-Signature": "valid"})
}

type fixture struct {
	engine  *enroll.Engine
	store   *memory.Store
	gateway *fakeGateway

	educator *user.User
	student  *user.User
	course   *course.Course
}

func newFixture(t *testing.T, opts ...enroll.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	gw := newFakeGateway()
	opts = append([]enroll.Option{enroll.WithGateway(gw)}, opts...)
	e := enroll.New(st, opts...)

	educator := &user.User{Entity: types.NewEntity(), ID: id.NewUserID(), ExternalID: "idp_edu", Email: "edu@test.dev", Name: "Grace Hopper"}
	student := &user.User{Entity: types.NewEntity(), ID: id.NewUserID(), ExternalID: "idp_stu", Email: "stu@test.dev", Name: "Alan Kay"}
	if err := st.CreateUser(ctx, educator); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateUser(ctx, student); err != nil {
		t.Fatal(err)
	}

	c := &course.Course{
		Title:           "Distributed Systems",
		EducatorID:      educator.ID,
		ListPrice:       types.USD(100_00),
		DiscountPercent: 20,
		Chapters: []course.Chapter{{
			Order: 1,
			Title: "Foundations",
			Lectures: []course.Lecture{
				{Order: 1, Title: "Clocks", URL: "https://videos.test/clocks", DurationMin: 12, FreePreview: true},
				{Order: 2, Title: "Consensus", URL: "https://videos.test/consensus", DurationMin: 45},
			},
		}},
	}
	if err := e.CreateCourse(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := e.SetCoursePublished(ctx, educator.ID, c.ID, true); err != nil {
		t.Fatal(err)
	}
	c, err := st.GetCourse(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{engine: e, store: st, gateway: gw, educator: educator, student: student, course: c}
}

func (f *fixture) enrollStudent(t *testing.T) *purchase.Purchase {
	t.Helper()
	p, _, err := f.engine.InitiatePurchase(context.Background(), f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, err = f.store.GetPurchase(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded); err != nil {
		t.Fatal(err)
	}
	return p
}

// ──────────────────────────────────────────────────
// Purchase initiation
// ──────────────────────────────────────────────────

func TestInitiatePurchase_FreezesDiscountedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, session, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Amount.Equal(types.USD(80_00)) {
		t.Errorf("Amount = %v, want $80.00", p.Amount)
	}
	if p.Status != purchase.StatusPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
	if session == nil || session.URL == "" {
		t.Fatal("expected a checkout session")
	}

	// A later catalog edit must not reprice the in-flight purchase.
	f.course.DiscountPercent = 0
	if err := f.engine.UpdateCourse(ctx, f.educator.ID, f.course); err != nil {
		t.Fatal(err)
	}
	got, err := f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(types.USD(80_00)) {
		t.Errorf("frozen Amount changed to %v after catalog edit", got.Amount)
	}
}

func TestInitiatePurchase_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unpublished course", func(t *testing.T) {
		if err := f.engine.SetCoursePublished(ctx, f.educator.ID, f.course.ID, false); err != nil {
			t.Fatal(err)
		}
		_, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
		if !errors.Is(err, enroll.ErrCourseUnpublished) {
			t.Errorf("err = %v, want ErrCourseUnpublished", err)
		}
		if err := f.engine.SetCoursePublished(ctx, f.educator.ID, f.course.ID, true); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := f.engine.InitiatePurchase(ctx, id.NewUserID(), f.course.ID)
		if !enroll.IsNotFound(err) {
			t.Errorf("err = %v, want not-found", err)
		}
	})

	t.Run("second pending purchase", func(t *testing.T) {
		first, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
		if err != nil {
			t.Fatal(err)
		}
		existing, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
		if !errors.Is(err, enroll.ErrPurchasePending) {
			t.Fatalf("err = %v, want ErrPurchasePending", err)
		}
		if existing == nil || existing.ID != first.ID {
			t.Error("conflict should surface the existing pending entry")
		}
	})
}

func TestInitiatePurchase_AlreadyEnrolled(t *testing.T) {
	f := newFixture(t)
	f.enrollStudent(t)

	_, _, err := f.engine.InitiatePurchase(context.Background(), f.student.ID, f.course.ID)
	if !errors.Is(err, enroll.ErrAlreadyEnrolled) {
		t.Fatalf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestInitiatePurchase_GatewayFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.createErr = enroll.ErrGatewayUnavailable

	p, session, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if !errors.Is(err, enroll.ErrGatewayUnavailable) {
		t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
	}
	if session != nil {
		t.Error("no session expected on gateway failure")
	}
	if p == nil {
		t.Fatal("the pending entry must be returned")
	}

	got, err := f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != purchase.StatusPending {
		t.Errorf("Status = %q, want pending (no rollback)", got.Status)
	}
}

func TestInitiatePurchase_CheckoutCallIsBounded(t *testing.T) {
	f := newFixture(t,
		enroll.WithGateway(&slowGateway{fakeGateway: newFakeGateway()}),
		enroll.WithCheckoutTimeout(20*time.Millisecond),
	)
	ctx := context.Background()

	start := time.Now()
	p, session, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("checkout call was not bounded by the configured timeout")
	}
	if session != nil {
		t.Error("no session expected on checkout timeout")
	}
	if p == nil {
		t.Fatal("the pending entry must be returned")
	}

	got, err := f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != purchase.StatusPending {
		t.Errorf("Status = %q, want pending (no rollback)", got.Status)
	}
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

func TestReconcile_SucceededGrantsEnrollmentOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, err = f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded); err != nil {
		t.Fatal(err)
	}

	got, err := f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != purchase.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	enrolled, err := f.store.EnrollmentExists(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !enrolled {
		t.Fatal("enrollment not granted")
	}

	// Redelivery of the same terminal outcome is a silent no-op.
	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded); err != nil {
		t.Fatalf("duplicate delivery: err = %v, want nil", err)
	}
	enrollments, err := f.store.ListEnrollmentsForUser(ctx, f.student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(enrollments) != 1 {
		t.Errorf("enrollments = %d, want exactly 1", len(enrollments))
	}
}

// completionHook captures the entry passed to OnPurchaseCompleted.
type completionHook struct {
	mu   sync.Mutex
	seen *purchase.Purchase
}

func (h *completionHook) Name() string { return "completion-hook" }

func (h *completionHook) OnPurchaseCompleted(_ context.Context, p interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen, _ = p.(*purchase.Purchase)
	return nil
}

func TestReconcile_HooksSeeTheStoredTerminalEntry(t *testing.T) {
	hook := &completionHook{}
	f := newFixture(t, enroll.WithPlugin(hook))
	ctx := context.Background()

	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, err = f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded); err != nil {
		t.Fatal(err)
	}

	hook.mu.Lock()
	seen := hook.seen
	hook.mu.Unlock()
	if seen == nil {
		t.Fatal("OnPurchaseCompleted not called")
	}
	if seen.Status != purchase.StatusCompleted {
		t.Errorf("hook saw Status = %q, want the stored completed entry", seen.Status)
	}
	if seen.CompletedAt == nil {
		t.Error("hook saw CompletedAt = nil, want the store's timestamp")
	}
}

func TestReconcile_FailedDoesNotEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, _ = f.store.GetPurchase(ctx, p.ID)

	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeFailed); err != nil {
		t.Fatal(err)
	}

	got, _ := f.store.GetPurchase(ctx, p.ID)
	if got.Status != purchase.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	enrolled, _ := f.store.EnrollmentExists(ctx, f.student.ID, f.course.ID)
	if enrolled {
		t.Error("failed purchase must not enroll")
	}
}

func TestReconcile_TerminalConflictNeverOverwrites(t *testing.T) {
	tests := []struct {
		name    string
		first   gateway.Outcome
		second  gateway.Outcome
		settled purchase.Status
	}{
		{"succeeded then failed", gateway.OutcomeSucceeded, gateway.OutcomeFailed, purchase.StatusCompleted},
		{"failed then succeeded", gateway.OutcomeFailed, gateway.OutcomeSucceeded, purchase.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
			if err != nil {
				t.Fatal(err)
			}
			p, _ = f.store.GetPurchase(ctx, p.ID)

			if err := notify(t, f.engine, p.CorrelationID, tt.first); err != nil {
				t.Fatal(err)
			}
			err = notify(t, f.engine, p.CorrelationID, tt.second)
			if !errors.Is(err, enroll.ErrTerminalStateConflict) {
				t.Fatalf("err = %v, want ErrTerminalStateConflict", err)
			}

			got, _ := f.store.GetPurchase(ctx, p.ID)
			if got.Status != tt.settled {
				t.Errorf("Status = %q, want %q (first terminal wins)", got.Status, tt.settled)
			}
		})
	}
}

func TestReconcile_UnknownCorrelation(t *testing.T) {
	f := newFixture(t)
	err := notify(t, f.engine, "cs_never_issued", gateway.OutcomeSucceeded)
	if !errors.Is(err, enroll.ErrUnknownPurchase) {
		t.Fatalf("err = %v, want ErrUnknownPurchase", err)
	}
}

func TestReconcile_UnauthenticatedMutatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, _ = f.store.GetPurchase(ctx, p.ID)

	payload := []byte(p.CorrelationID + " " + string(gateway.OutcomeSucceeded))
	err = f.engine.HandleGatewayNotification(ctx, payload, map[string]string{"Test-Signature": "forged"})
	if !errors.Is(err, enroll.ErrUnauthenticatedNotification) {
		t.Fatalf("err = %v, want ErrUnauthenticatedNotification", err)
	}

	got, _ := f.store.GetPurchase(ctx, p.ID)
	if got.Status != purchase.StatusPending {
		t.Errorf("Status = %q, want pending untouched", got.Status)
	}
	enrolled, _ := f.store.EnrollmentExists(ctx, f.student.ID, f.course.ID)
	if enrolled {
		t.Error("rejected notification must not enroll")
	}
}

func TestReconcile_ConcurrentDeliveriesSingleEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, _ = f.store.GetPurchase(ctx, p.ID)

	const deliveries = 16
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded)
		}()
	}
	wg.Wait()

	got, _ := f.store.GetPurchase(ctx, p.ID)
	if got.Status != purchase.StatusCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	enrollments, err := f.store.ListEnrollmentsForUser(ctx, f.student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(enrollments) != 1 {
		t.Errorf("enrollments = %d, want exactly 1 under %d racing deliveries", len(enrollments), deliveries)
	}
}

// ──────────────────────────────────────────────────
// Reconciliation sweep
// ──────────────────────────────────────────────────

func TestSweep_ResolvesStalePending(t *testing.T) {
	f := newFixture(t, enroll.WithSweepConfig(10*time.Millisecond, time.Minute, 100))
	ctx := context.Background()

	p, session, err := f.engine.InitiatePurchase(ctx, f.student.ID, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}

	// Age the entry past the stale threshold and settle the session on
	// the provider side without delivering a notification.
	stale, err := f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	f.gateway.settle(session.CorrelationID, gateway.OutcomeSucceeded)

	if err := f.engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer f.engine.Stop() //nolint:errcheck // test shutdown

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := f.store.GetPurchase(ctx, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status == purchase.StatusCompleted {
			enrolled, err := f.store.EnrollmentExists(ctx, f.student.ID, f.course.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !enrolled {
				t.Fatal("sweep completed the purchase without enrolling")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweep did not resolve the stale pending purchase")
}

// ──────────────────────────────────────────────────
// Courses
// ──────────────────────────────────────────────────

func TestCreateCourse_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := &course.Course{
		Title:           "Overdiscounted",
		EducatorID:      f.educator.ID,
		ListPrice:       types.USD(50_00),
		DiscountPercent: 120,
	}
	if err := f.engine.CreateCourse(ctx, bad); !errors.Is(err, enroll.ErrInvalidPrice) {
		t.Errorf("err = %v, want ErrInvalidPrice", err)
	}

	noEducator := &course.Course{Title: "Orphan", ListPrice: types.USD(10_00)}
	if err := f.engine.CreateCourse(ctx, noEducator); !errors.Is(err, enroll.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSetCoursePublished_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	err := f.engine.SetCoursePublished(context.Background(), f.student.ID, f.course.ID, false)
	if !errors.Is(err, enroll.ErrNotCourseEducator) {
		t.Fatalf("err = %v, want ErrNotCourseEducator", err)
	}
}

func TestGetCourseForUser_StripsLockedLectureURLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.engine.GetCourseForUser(ctx, f.course.ID, f.student.ID)
	if err != nil {
		t.Fatal(err)
	}
	lectures := c.Chapters[0].Lectures
	if lectures[0].URL == "" {
		t.Error("free preview URL stripped for non-enrolled user")
	}
	if lectures[1].URL != "" {
		t.Error("locked lecture URL leaked to non-enrolled user")
	}

	f.enrollStudent(t)
	c, err = f.engine.GetCourseForUser(ctx, f.course.ID, f.student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Chapters[0].Lectures[1].URL == "" {
		t.Error("locked lecture URL missing for enrolled user")
	}
}

func TestGetCourseForUser_StrippingDoesNotMutateStoredCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A non-enrolled view returns a stripped copy.
	c, err := f.engine.GetCourseForUser(ctx, f.course.ID, f.student.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Chapters[0].Lectures[1].URL != "" {
		t.Fatal("locked lecture URL leaked to non-enrolled user")
	}

	// The stored course and the educator's view keep the URL.
	stored, err := f.store.GetCourse(ctx, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Chapters[0].Lectures[1].URL == "" {
		t.Error("non-enrolled view stripped the stored course")
	}
	edu, err := f.engine.GetCourseForUser(ctx, f.course.ID, f.educator.ID)
	if err != nil {
		t.Fatal(err)
	}
	if edu.Chapters[0].Lectures[1].URL == "" {
		t.Error("locked lecture URL missing for educator after a non-enrolled view")
	}
}

// ──────────────────────────────────────────────────
// Progress & ratings
// ──────────────────────────────────────────────────

func TestMarkLectureComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lectures := f.course.Chapters[0].Lectures

	_, err := f.engine.MarkLectureComplete(ctx, f.student.ID, f.course.ID, lectures[0].ID.String())
	if !errors.Is(err, enroll.ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}

	f.enrollStudent(t)

	p, err := f.engine.MarkLectureComplete(ctx, f.student.ID, f.course.ID, lectures[0].ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.LectureIDs) != 1 || p.Completed {
		t.Errorf("after one lecture: ids=%d completed=%v", len(p.LectureIDs), p.Completed)
	}

	// Re-marking is a no-op.
	p, err = f.engine.MarkLectureComplete(ctx, f.student.ID, f.course.ID, lectures[0].ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.LectureIDs) != 1 {
		t.Errorf("re-mark added a duplicate: ids=%d", len(p.LectureIDs))
	}

	p, err = f.engine.MarkLectureComplete(ctx, f.student.ID, f.course.ID, lectures[1].ID.String())
	if err != nil {
		t.Fatal(err)
	}
	if !p.Completed {
		t.Error("course not flagged complete after final lecture")
	}

	_, err = f.engine.MarkLectureComplete(ctx, f.student.ID, f.course.ID, id.New("lec").String())
	if !enroll.IsNotFound(err) {
		t.Errorf("unknown lecture: err = %v, want not-found", err)
	}
}

func TestRateCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.RateCourse(ctx, f.student.ID, f.course.ID, 6); !errors.Is(err, enroll.ErrInvalidRating) {
		t.Errorf("err = %v, want ErrInvalidRating", err)
	}
	if err := f.engine.RateCourse(ctx, f.student.ID, f.course.ID, 4); !errors.Is(err, enroll.ErrNotEnrolled) {
		t.Errorf("err = %v, want ErrNotEnrolled", err)
	}

	f.enrollStudent(t)

	if err := f.engine.RateCourse(ctx, f.student.ID, f.course.ID, 4); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.RateCourse(ctx, f.student.ID, f.course.ID, 5); err != nil {
		t.Fatal(err)
	}

	ratings, err := f.engine.CourseRatings(ctx, f.course.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ratings) != 1 {
		t.Fatalf("ratings = %d, want 1 (upsert)", len(ratings))
	}
	if ratings[0].Score != 5 {
		t.Errorf("Score = %d, want the replacing 5", ratings[0].Score)
	}
}

// ──────────────────────────────────────────────────
// Dashboard
// ──────────────────────────────────────────────────

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enrollStudent(t)

	d, err := f.engine.Dashboard(ctx, f.educator.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalEnrollments != 1 {
		t.Errorf("TotalEnrollments = %d, want 1", d.TotalEnrollments)
	}
	if len(d.Earnings) != 1 || !d.Earnings[0].Equal(types.USD(80_00)) {
		t.Errorf("Earnings = %v, want [$80.00]", d.Earnings)
	}
	if len(d.Courses) != 1 || len(d.Courses[0].Students) != 1 {
		t.Fatalf("roster shape wrong: %+v", d.Courses)
	}
	if d.Courses[0].Students[0].ID != f.student.ID {
		t.Error("roster lists the wrong student")
	}
}

func TestDashboard_EarningsSortedByCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enrollStudent(t)

	eur := &course.Course{
		Title:      "Queueing Theory",
		EducatorID: f.educator.ID,
		ListPrice:  types.EUR(50_00),
	}
	if err := f.engine.CreateCourse(ctx, eur); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.SetCoursePublished(ctx, f.educator.ID, eur.ID, true); err != nil {
		t.Fatal(err)
	}
	p, _, err := f.engine.InitiatePurchase(ctx, f.student.ID, eur.ID)
	if err != nil {
		t.Fatal(err)
	}
	p, err = f.store.GetPurchase(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := notify(t, f.engine, p.CorrelationID, gateway.OutcomeSucceeded); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		d, err := f.engine.Dashboard(ctx, f.educator.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Earnings) != 2 {
			t.Fatalf("Earnings = %v, want two currencies", d.Earnings)
		}
		if !d.Earnings[0].Equal(types.EUR(50_00)) || !d.Earnings[1].Equal(types.USD(80_00)) {
			t.Fatalf("Earnings = %v, want [eur 50.00, usd 80.00] in currency order", d.Earnings)
		}
	}
}

// ──────────────────────────────────────────────────
// Identity sync
// ──────────────────────────────────────────────────

var identityKey = []byte("engine-identity-test-key-0123456")

func signIdentity(t *testing.T, payload []byte) map[string]string {
	t.Helper()
	msgID := "msg_engine_test"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, identityKey)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, ts, payload)
	return map[string]string{
		"Svix-Id":        msgID,
		"Svix-Timestamp": ts,
		"Svix-Signature": "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}
}

func TestHandleIdentityNotification_Lifecycle(t *testing.T) {
	verifier, err := identity.NewVerifier("whsec_" + base64.StdEncoding.EncodeToString(identityKey))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, enroll.WithIdentityVerifier(verifier))
	ctx := context.Background()

	created := []byte(`{"type":"user.created","data":{"id":"idp_ada","first_name":"Ada","last_name":"Lovelace","image_url":"https://img.test/ada.png","email_addresses":[{"email_address":"ada@test.dev"}]}}`)
	if err := f.engine.HandleIdentityNotification(ctx, created, signIdentity(t, created)); err != nil {
		t.Fatal(err)
	}
	u, err := f.store.GetUserByExternalID(ctx, "idp_ada")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Ada Lovelace" || u.Email != "ada@test.dev" {
		t.Errorf("synced user = %+v", u)
	}

	updated := []byte(`{"type":"user.updated","data":{"id":"idp_ada","first_name":"Ada","last_name":"King","email_addresses":[{"email_address":"countess@test.dev"}]}}`)
	if err := f.engine.HandleIdentityNotification(ctx, updated, signIdentity(t, updated)); err != nil {
		t.Fatal(err)
	}
	u, err = f.store.GetUserByExternalID(ctx, "idp_ada")
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Ada King" || u.Email != "countess@test.dev" {
		t.Errorf("updated user = %+v", u)
	}

	deleted := []byte(`{"type":"user.deleted","data":{"id":"idp_ada"}}`)
	if err := f.engine.HandleIdentityNotification(ctx, deleted, signIdentity(t, deleted)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.GetUserByExternalID(ctx, "idp_ada"); !enroll.IsNotFound(err) {
		t.Errorf("err = %v, want not-found after delete", err)
	}
}

func TestHandleIdentityNotification_RejectsForgedPayload(t *testing.T) {
	verifier, err := identity.NewVerifier("whsec_" + base64.StdEncoding.EncodeToString(identityKey))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, enroll.WithIdentityVerifier(verifier))
	ctx := context.Background()

	payload := []byte(`{"type":"user.created","data":{"id":"idp_mallory","email_addresses":[{"email_address":"mallory@test.dev"}]}}`)
	headers := signIdentity(t, payload)
	headers["Svix-Signature"] = "v1,Zm9yZ2VkIHNpZ25hdHVyZQ=="

	err = f.engine.HandleIdentityNotification(ctx, payload, headers)
	if !errors.Is(err, enroll.ErrUnauthenticatedNotification) {
		t.Fatalf("err = %v, want ErrUnauthenticatedNotification", err)
	}
	if _, err := f.store.GetUserByExternalID(ctx, "idp_mallory"); !enroll.IsNotFound(err) {
		t.Error("rejected payload must not create a user")
	}
}
