package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/enroll"
	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	"github.com/xraph/enroll/types"
	"github.com/xraph/enroll/user"
)

type Store struct {
	mu sync.RWMutex

	// User storage
	users map[string]*user.User

	// Course storage; ratings are keyed by course then user
	courses map[string]*course.Course
	ratings map[string]map[string]course.Rating

	// Purchase ledger storage
	purchases map[string]*purchase.Purchase

	// Enrollment storage, keyed by "user:course" pair
	enrollments map[string]*enrollment.Enrollment

	// Progress storage, keyed by "user:course" pair
	progresses map[string]*progress.Progress
}

func New() *Store {
	return &Store{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		ratings:     make(map[string]map[string]course.Rating),
		purchases:   make(map[string]*purchase.Purchase),
		enrollments: make(map[string]*enrollment.Enrollment),
		progresses:  make(map[string]*progress.Progress),
	}
}

func pairKey(userID id.UserID, courseID id.CourseID) string {
	return userID.String() + ":" + courseID.String()
}

// User Store implementation
func (s *Store) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; exists {
		return enroll.ErrAlreadyExists
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[userID.String()]; ok {
		return u, nil
	}
	return nil, enroll.ErrUserNotFound
}

func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ExternalID == externalID {
			return u, nil
		}
	}
	return nil, enroll.ErrUserNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID.String()]; !exists {
		return enroll.ErrUserNotFound
	}
	s.users[u.ID.String()] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID.String())
	return nil
}

// Course Store implementation
func (s *Store) CreateCourse(_ context.Context, c *course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.courses[c.ID.String()]; exists {
		return enroll.ErrAlreadyExists
	}
	s.courses[c.ID.String()] = c
	return nil
}

func (s *Store) GetCourse(_ context.Context, courseID id.CourseID) (*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.courses[courseID.String()]; ok {
		return c, nil
	}
	return nil, enroll.ErrCourseNotFound
}

func (s *Store) UpdateCourse(_ context.Context, c *course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.courses[c.ID.String()]; !exists {
		return enroll.ErrCourseNotFound
	}
	s.courses[c.ID.String()] = c
	return nil
}

func (s *Store) DeleteCourse(_ context.Context, courseID id.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.courses, courseID.String())
	delete(s.ratings, courseID.String())
	return nil
}

func (s *Store) ListCourses(_ context.Context) ([]*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*course.Course, 0)
	for _, c := range s.courses {
		if c.Published {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *Store) ListCoursesByEducator(_ context.Context, educatorID id.UserID) ([]*course.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*course.Course, 0)
	for _, c := range s.courses {
		if c.EducatorID.String() == educatorID.String() {
			result = append(result, c)
		}
	}
	return result, nil
}

func (s *Store) UpsertRating(_ context.Context, courseID id.CourseID, r course.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.courses[courseID.String()]; !exists {
		return enroll.ErrCourseNotFound
	}
	byUser, ok := s.ratings[courseID.String()]
	if !ok {
		byUser = make(map[string]course.Rating)
		s.ratings[courseID.String()] = byUser
	}
	byUser[r.UserID.String()] = r
	return nil
}

func (s *Store) ListRatings(_ context.Context, courseID id.CourseID) ([]course.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]course.Rating, 0)
	for _, r := range s.ratings[courseID.String()] {
		result = append(result, r)
	}
	return result, nil
}

// Purchase Store implementation
func (s *Store) CreatePurchase(_ context.Context, p *purchase.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.purchases[p.ID.String()]; exists {
		return enroll.ErrAlreadyExists
	}
	s.purchases[p.ID.String()] = p
	return nil
}

func (s *Store) GetPurchase(_ context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.purchases[purchaseID.String()]; ok {
		return p, nil
	}
	return nil, enroll.ErrPurchaseNotFound
}

func (s *Store) GetPurchaseByCorrelationID(_ context.Context, correlationID string) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.purchases {
		if p.CorrelationID == correlationID {
			return p, nil
		}
	}
	return nil, enroll.ErrPurchaseNotFound
}

// CompareAndSetPurchaseStatus swaps the status under the store lock so
// concurrent callers serialize on the same entry.
func (s *Store) CompareAndSetPurchaseStatus(_ context.Context, purchaseID id.PurchaseID, expected, next purchase.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[purchaseID.String()]
	if !ok {
		return false, enroll.ErrPurchaseNotFound
	}
	if p.Status != expected {
		return false, nil
	}
	p.Status = next
	if next.IsTerminal() {
		now := time.Now()
		p.CompletedAt = &now
	}
	p.Touch()
	return true, nil
}

func (s *Store) SetPurchaseCorrelationID(_ context.Context, purchaseID id.PurchaseID, correlationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[purchaseID.String()]
	if !ok {
		return enroll.ErrPurchaseNotFound
	}
	p.CorrelationID = correlationID
	p.Touch()
	return nil
}

func (s *Store) GetPendingPurchaseForPair(_ context.Context, userID id.UserID, courseID id.CourseID) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.purchases {
		if p.Status == purchase.StatusPending &&
			p.UserID.String() == userID.String() &&
			p.CourseID.String() == courseID.String() {
			return p, nil
		}
	}
	return nil, enroll.ErrNotFound
}

func (s *Store) ListStalePendingPurchases(_ context.Context, cutoff time.Time, limit int) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*purchase.Purchase, 0)
	for _, p := range s.purchases {
		if p.Status == purchase.StatusPending && p.CreatedAt.Before(cutoff) {
			result = append(result, p)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (s *Store) ListPurchasesByUser(_ context.Context, userID id.UserID) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*purchase.Purchase, 0)
	for _, p := range s.purchases {
		if p.UserID.String() == userID.String() {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *Store) ListPurchasesByCourse(_ context.Context, courseID id.CourseID) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*purchase.Purchase, 0)
	for _, p := range s.purchases {
		if p.CourseID.String() == courseID.String() {
			result = append(result, p)
		}
	}
	return result, nil
}

// Enrollment Store implementation
func (s *Store) AddEnrollmentIfAbsent(_ context.Context, e *enrollment.Enrollment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(e.UserID, e.CourseID)
	if _, exists := s.enrollments[key]; exists {
		return false, nil
	}
	s.enrollments[key] = e
	return true, nil
}

func (s *Store) EnrollmentExists(_ context.Context, userID id.UserID, courseID id.CourseID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.enrollments[pairKey(userID, courseID)]
	return exists, nil
}

func (s *Store) ListEnrollmentsForUser(_ context.Context, userID id.UserID) ([]*enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*enrollment.Enrollment, 0)
	for _, e := range s.enrollments {
		if e.UserID.String() == userID.String() {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *Store) ListEnrollmentsForCourse(_ context.Context, courseID id.CourseID) ([]*enrollment.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*enrollment.Enrollment, 0)
	for _, e := range s.enrollments {
		if e.CourseID.String() == courseID.String() {
			result = append(result, e)
		}
	}
	return result, nil
}

// Progress Store implementation
func (s *Store) MarkLectureComplete(_ context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*progress.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(userID, courseID)
	p, ok := s.progresses[key]
	if !ok {
		p = &progress.Progress{
			Entity:   types.NewEntity(),
			ID:       id.NewProgressID(),
			UserID:   userID,
			CourseID: courseID,
		}
		s.progresses[key] = p
	}
	if !p.HasLecture(lectureID) {
		p.LectureIDs = append(p.LectureIDs, lectureID)
		p.Touch()
	}
	return p, nil
}

func (s *Store) GetProgress(_ context.Context, userID id.UserID, courseID id.CourseID) (*progress.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.progresses[pairKey(userID, courseID)]; ok {
		return p, nil
	}
	return nil, enroll.ErrProgressNotFound
}

func (s *Store) SetProgressCompleted(_ context.Context, userID id.UserID, courseID id.CourseID, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progresses[pairKey(userID, courseID)]
	if !ok {
		return enroll.ErrProgressNotFound
	}
	p.Completed = completed
	p.Touch()
	return nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}
