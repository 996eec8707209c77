package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	enroll "github.com/xraph/enroll"
	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	enrollstore "github.com/xraph/enroll/store"
	"github.com/xraph/enroll/user"
)

// compile-time interface check
var _ enrollstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("enroll/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("enroll/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", userID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	m := new(userModel)
	err := s.sdb.NewSelect(m).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrUserNotFound
		}
		return nil, err
	}
	return fromUserModel(m)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	res, err := s.sdb.NewDelete((*userModel)(nil)).
		Where("id = ?", userID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrUserNotFound
	}
	return nil
}

// ==================== Course Store ====================

func (s *Store) CreateCourse(ctx context.Context, c *course.Course) error {
	m := toCourseModel(c)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCourse(ctx context.Context, courseID id.CourseID) (*course.Course, error) {
	m := new(courseModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", courseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrCourseNotFound
		}
		return nil, err
	}
	return fromCourseModel(m)
}

func (s *Store) UpdateCourse(ctx context.Context, c *course.Course) error {
	m := toCourseModel(c)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrCourseNotFound
	}
	return nil
}

func (s *Store) DeleteCourse(ctx context.Context, courseID id.CourseID) error {
	res, err := s.sdb.NewDelete((*courseModel)(nil)).
		Where("id = ?", courseID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrCourseNotFound
	}
	return nil
}

func (s *Store) ListCourses(ctx context.Context) ([]*course.Course, error) {
	var models []courseModel
	err := s.sdb.NewSelect(&models).
		Where("published = ?", true).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return coursesFromModels(models)
}

func (s *Store) ListCoursesByEducator(ctx context.Context, educatorID id.UserID) ([]*course.Course, error) {
	var models []courseModel
	err := s.sdb.NewSelect(&models).
		Where("educator_id = ?", educatorID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return coursesFromModels(models)
}

func (s *Store) UpsertRating(ctx context.Context, courseID id.CourseID, r course.Rating) error {
	m := &ratingModel{
		Key:      ratingKey(courseID.String(), r.UserID.String()),
		CourseID: courseID.String(),
		UserID:   r.UserID.String(),
		Score:    r.Score,
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(key) DO UPDATE SET score = EXCLUDED.score").
		Exec(ctx)
	return err
}

func (s *Store) ListRatings(ctx context.Context, courseID id.CourseID) ([]course.Rating, error) {
	var models []ratingModel
	err := s.sdb.NewSelect(&models).
		Where("course_id = ?", courseID.String()).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]course.Rating, 0, len(models))
	for i := range models {
		userID, err := id.ParseUserID(models[i].UserID)
		if err != nil {
			return nil, err
		}
		result = append(result, course.Rating{UserID: userID, Score: models[i].Score})
	}
	return result, nil
}

// ==================== Purchase Store ====================

func (s *Store) CreatePurchase(ctx context.Context, p *purchase.Purchase) error {
	m := toPurchaseModel(p)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	m := new(purchaseModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", purchaseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrPurchaseNotFound
		}
		return nil, err
	}
	return fromPurchaseModel(m)
}

func (s *Store) GetPurchaseByCorrelationID(ctx context.Context, correlationID string) (*purchase.Purchase, error) {
	m := new(purchaseModel)
	err := s.sdb.NewSelect(m).
		Where("correlation_id = ?", correlationID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrPurchaseNotFound
		}
		return nil, err
	}
	return fromPurchaseModel(m)
}

// CompareAndSetPurchaseStatus filters on both id and expected status, so the
// swap is atomic at the row level. A zero row count is disambiguated with a
// re-select: missing row means not found, present row means a lost race.
func (s *Store) CompareAndSetPurchaseStatus(ctx context.Context, purchaseID id.PurchaseID, expected, next purchase.Status) (bool, error) {
	t := now()
	updates := s.sdb.NewUpdate((*purchaseModel)(nil)).
		Set("status = ?", string(next)).
		Set("updated_at = ?", t).
		Where("id = ?", purchaseID.String()).
		Where("status = ?", string(expected))
	if next.IsTerminal() {
		updates = updates.Set("completed_at = ?", t)
	}

	res, err := updates.Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		if _, err := s.GetPurchase(ctx, purchaseID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) SetPurchaseCorrelationID(ctx context.Context, purchaseID id.PurchaseID, correlationID string) error {
	res, err := s.sdb.NewUpdate((*purchaseModel)(nil)).
		Set("correlation_id = ?", correlationID).
		Set("updated_at = ?", now()).
		Where("id = ?", purchaseID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrPurchaseNotFound
	}
	return nil
}

func (s *Store) GetPendingPurchaseForPair(ctx context.Context, userID id.UserID, courseID id.CourseID) (*purchase.Purchase, error) {
	m := new(purchaseModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID.String()).
		Where("course_id = ?", courseID.String()).
		Where("status = ?", string(purchase.StatusPending)).
		OrderExpr("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrNotFound
		}
		return nil, err
	}
	return fromPurchaseModel(m)
}

func (s *Store) ListStalePendingPurchases(ctx context.Context, cutoff time.Time, limit int) ([]*purchase.Purchase, error) {
	var models []purchaseModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", string(purchase.StatusPending)).
		Where("created_at < ?", cutoff).
		OrderExpr("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return purchasesFromModels(models)
}

func (s *Store) ListPurchasesByUser(ctx context.Context, userID id.UserID) ([]*purchase.Purchase, error) {
	var models []purchaseModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return purchasesFromModels(models)
}

func (s *Store) ListPurchasesByCourse(ctx context.Context, courseID id.CourseID) ([]*purchase.Purchase, error) {
	var models []purchaseModel
	err := s.sdb.NewSelect(&models).
		Where("course_id = ?", courseID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return purchasesFromModels(models)
}

// ==================== Enrollment Store ====================

// AddEnrollmentIfAbsent relies on the unique (user_id, course_id) index.
// An insert that conflicts affects zero rows, which is the absent=false
// signal, not a failure.
func (s *Store) AddEnrollmentIfAbsent(ctx context.Context, e *enrollment.Enrollment) (bool, error) {
	m := toEnrollmentModel(e)
	res, err := s.sdb.NewInsert(m).
		OnConflict("(user_id, course_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) EnrollmentExists(ctx context.Context, userID id.UserID, courseID id.CourseID) (bool, error) {
	m := new(enrollmentModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID.String()).
		Where("course_id = ?", courseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ListEnrollmentsForUser(ctx context.Context, userID id.UserID) ([]*enrollment.Enrollment, error) {
	var models []enrollmentModel
	err := s.sdb.NewSelect(&models).
		Where("user_id = ?", userID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return enrollmentsFromModels(models)
}

func (s *Store) ListEnrollmentsForCourse(ctx context.Context, courseID id.CourseID) ([]*enrollment.Enrollment, error) {
	var models []enrollmentModel
	err := s.sdb.NewSelect(&models).
		Where("course_id = ?", courseID.String()).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return enrollmentsFromModels(models)
}

// ==================== Progress Store ====================

func (s *Store) MarkLectureComplete(ctx context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*progress.Progress, error) {
	p, err := s.GetProgress(ctx, userID, courseID)
	if errors.Is(err, enroll.ErrProgressNotFound) {
		fresh := &progress.Progress{
			ID:         id.NewProgressID(),
			UserID:     userID,
			CourseID:   courseID,
			LectureIDs: []string{lectureID},
		}
		fresh.CreatedAt = now()
		fresh.UpdatedAt = fresh.CreatedAt

		res, insErr := s.sdb.NewInsert(toProgressModel(fresh)).
			OnConflict("(user_id, course_id) DO NOTHING").
			Exec(ctx)
		if insErr != nil {
			return nil, insErr
		}
		rows, insErr := res.RowsAffected()
		if insErr != nil {
			return nil, insErr
		}
		if rows > 0 {
			return fresh, nil
		}
		// Lost the insert race; fall through to the update path.
		p, err = s.GetProgress(ctx, userID, courseID)
	}
	if err != nil {
		return nil, err
	}

	if p.HasLecture(lectureID) {
		return p, nil
	}
	p.LectureIDs = append(p.LectureIDs, lectureID)
	p.UpdatedAt = now()

	m := toProgressModel(p)
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) GetProgress(ctx context.Context, userID id.UserID, courseID id.CourseID) (*progress.Progress, error) {
	m := new(progressModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID.String()).
		Where("course_id = ?", courseID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, enroll.ErrProgressNotFound
		}
		return nil, err
	}
	return fromProgressModel(m)
}

func (s *Store) SetProgressCompleted(ctx context.Context, userID id.UserID, courseID id.CourseID, completed bool) error {
	res, err := s.sdb.NewUpdate((*progressModel)(nil)).
		Set("completed = ?", completed).
		Set("updated_at = ?", now()).
		Where("user_id = ?", userID.String()).
		Where("course_id = ?", courseID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return enroll.ErrProgressNotFound
	}
	return nil
}

// ==================== Helpers ====================

func coursesFromModels(models []courseModel) ([]*course.Course, error) {
	result := make([]*course.Course, len(models))
	for i := range models {
		c, err := fromCourseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func purchasesFromModels(models []purchaseModel) ([]*purchase.Purchase, error) {
	result := make([]*purchase.Purchase, len(models))
	for i := range models {
		p, err := fromPurchaseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func enrollmentsFromModels(models []enrollmentModel) ([]*enrollment.Enrollment, error) {
	result := make([]*enrollment.Enrollment, len(models))
	for i := range models {
		e, err := fromEnrollmentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
