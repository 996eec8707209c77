package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	enroll "github.com/xraph/enroll"
	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	enrollstore "github.com/xraph/enroll/store"
	"github.com/xraph/enroll/user"
)

// Collection name constants.
const (
	colUsers       = "enroll_users"
	colCourses     = "enroll_courses"
	colRatings     = "enroll_ratings"
	colPurchases   = "enroll_purchases"
	colEnrollments = "enroll_enrollments"
	colProgress    = "enroll_progress"
)

// compile-time interface check
var _ enrollstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all enrollment collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("enroll/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return enroll.ErrAlreadyExists
		}
		return fmt.Errorf("enroll/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrUserNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"external_id": externalID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrUserNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get user by external id: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: update user: %w", err)
	}
	if res.MatchedCount() == 0 {
		return enroll.ErrUserNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID id.UserID) error {
	_, err := s.mdb.NewDelete((*userModel)(nil)).
		Filter(bson.M{"_id": userID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: delete user: %w", err)
	}
	return nil
}

// ==================== Course Store ====================

func (s *Store) CreateCourse(ctx context.Context, c *course.Course) error {
	m := toCourseModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: create course: %w", err)
	}
	return nil
}

func (s *Store) GetCourse(ctx context.Context, courseID id.CourseID) (*course.Course, error) {
	var m courseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": courseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrCourseNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get course: %w", err)
	}
	return fromCourseModel(&m)
}

func (s *Store) UpdateCourse(ctx context.Context, c *course.Course) error {
	m := toCourseModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: update course: %w", err)
	}
	if res.MatchedCount() == 0 {
		return enroll.ErrCourseNotFound
	}
	return nil
}

func (s *Store) DeleteCourse(ctx context.Context, courseID id.CourseID) error {
	res, err := s.mdb.NewDelete((*courseModel)(nil)).
		Filter(bson.M{"_id": courseID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: delete course: %w", err)
	}
	if res.DeletedCount() == 0 {
		return enroll.ErrCourseNotFound
	}
	_, err = s.mdb.NewDelete((*ratingModel)(nil)).
		Filter(bson.M{"course_id": courseID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: delete course ratings: %w", err)
	}
	return nil
}

func (s *Store) ListCourses(ctx context.Context) ([]*course.Course, error) {
	var models []courseModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{"published": true}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: list courses: %w", err)
	}

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

func (s *Store) ListCoursesByEducator(ctx context.Context, educatorID id.UserID) ([]*course.Course, error) {
	var models []courseModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{"educator_id": educatorID.String()}).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: list courses by educator: %w", err)
	}

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

func (s *Store) UpsertRating(ctx context.Context, courseID id.CourseID, r course.Rating) error {
	key := ratingKey(courseID.String(), r.UserID.String())
	_, err := s.mdb.NewUpdate((*ratingModel)(nil)).
		Filter(bson.M{"_id": key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":       key,
			"course_id": courseID.String(),
			"user_id":   r.UserID.String(),
			"score":     r.Score,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: upsert rating: %w", err)
	}
	return nil
}

func (s *Store) ListRatings(ctx context.Context, courseID id.CourseID) ([]course.Rating, error) {
	var models []ratingModel

	err := s.mdb.NewFind(&models).
		Filter(bson.M{"course_id": courseID.String()}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: list ratings: %w", err)
	}

	result := make([]course.Rating, len(models))
	for i, m := range models {
		userID, err := id.ParseUserID(m.UserID)
		if err != nil {
			return nil, err
		}
		result[i] = course.Rating{UserID: userID, Score: m.Score}
	}
	return result, nil
}

// ==================== Purchase Store ====================

func (s *Store) CreatePurchase(ctx context.Context, p *purchase.Purchase) error {
	m := toPurchaseModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: create purchase: %w", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	var m purchaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": purchaseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get purchase: %w", err)
	}
	return fromPurchaseModel(&m)
}

func (s *Store) GetPurchaseByCorrelationID(ctx context.Context, correlationID string) (*purchase.Purchase, error) {
	var m purchaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"correlation_id": correlationID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get purchase by correlation id: %w", err)
	}
	return fromPurchaseModel(&m)
}

// CompareAndSetPurchaseStatus filters on both id and expected status, so
// the swap is atomic at the document level. MatchedCount distinguishes a
// lost race from a missing entry.
func (s *Store) CompareAndSetPurchaseStatus(ctx context.Context, purchaseID id.PurchaseID, expected, next purchase.Status) (bool, error) {
	t := now()
	update := s.mdb.NewUpdate((*purchaseModel)(nil)).
		Filter(bson.M{"_id": purchaseID.String(), "status": string(expected)}).
		Set("status", string(next)).
		Set("updated_at", t)
	if next.IsTerminal() {
		update = update.Set("completed_at", t)
	}

	res, err := update.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("enroll/mongo: compare and set purchase status: %w", err)
	}
	if res.MatchedCount() == 0 {
		// Either the entry is gone or its status changed underneath us.
		var m purchaseModel
		findErr := s.mdb.NewFind(&m).
			Filter(bson.M{"_id": purchaseID.String()}).
			Scan(ctx)
		if findErr != nil {
			if isNoDocuments(findErr) {
				return false, enroll.ErrPurchaseNotFound
			}
			return false, fmt.Errorf("enroll/mongo: compare and set recheck: %w", findErr)
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) SetPurchaseCorrelationID(ctx context.Context, purchaseID id.PurchaseID, correlationID string) error {
	res, err := s.mdb.NewUpdate((*purchaseModel)(nil)).
		Filter(bson.M{"_id": purchaseID.String()}).
		Set("correlation_id", correlationID).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: set purchase correlation id: %w", err)
	}
	if res.MatchedCount() == 0 {
		return enroll.ErrPurchaseNotFound
	}
	return nil
}

func (s *Store) GetPendingPurchaseForPair(ctx context.Context, userID id.UserID, courseID id.CourseID) (*purchase.Purchase, error) {
	var m purchaseModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"user_id":   userID.String(),
			"course_id": courseID.String(),
			"status":    string(purchase.StatusPending),
		}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get pending purchase for pair: %w", err)
	}
	return fromPurchaseModel(&m)
}

func (s *Store) ListStalePendingPurchases(ctx context.Context, cutoff time.Time, limit int) ([]*purchase.Purchase, error) {
	var models []purchaseModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(purchase.StatusPending),
			"created_at": bson.M{"$lt": cutoff},
		}).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("enroll/mongo: list stale pending purchases: %w", err)
	}

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

func (s *Store) ListPurchasesByUser(ctx context.Context, userID id.UserID) ([]*purchase.Purchase, error) {
	return s.listPurchases(ctx, bson.M{"user_id": userID.String()})
}

func (s *Store) ListPurchasesByCourse(ctx context.Context, courseID id.CourseID) ([]*purchase.Purchase, error) {
	return s.listPurchases(ctx, bson.M{"course_id": courseID.String()})
}

func (s *Store) listPurchases(ctx context.Context, filter bson.M) ([]*purchase.Purchase, error) {
	var models []purchaseModel

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: list purchases: %w", err)
	}

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

// ==================== Enrollment Store ====================

// AddEnrollmentIfAbsent relies on the unique (user_id, course_id) index;
// a duplicate key error is the absent=false signal, not a failure.
func (s *Store) AddEnrollmentIfAbsent(ctx context.Context, e *enrollment.Enrollment) (bool, error) {
	m := toEnrollmentModel(e)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("enroll/mongo: add enrollment: %w", err)
	}
	return true, nil
}

func (s *Store) EnrollmentExists(ctx context.Context, userID id.UserID, courseID id.CourseID) (bool, error) {
	var m enrollmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID.String(), "course_id": courseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("enroll/mongo: enrollment exists: %w", err)
	}
	return true, nil
}

func (s *Store) ListEnrollmentsForUser(ctx context.Context, userID id.UserID) ([]*enrollment.Enrollment, error) {
	return s.listEnrollments(ctx, bson.M{"user_id": userID.String()})
}

func (s *Store) ListEnrollmentsForCourse(ctx context.Context, courseID id.CourseID) ([]*enrollment.Enrollment, error) {
	return s.listEnrollments(ctx, bson.M{"course_id": courseID.String()})
}

func (s *Store) listEnrollments(ctx context.Context, filter bson.M) ([]*enrollment.Enrollment, error) {
	var models []enrollmentModel

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: list enrollments: %w", err)
	}

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

// ==================== Progress Store ====================

func (s *Store) MarkLectureComplete(ctx context.Context, userID id.UserID, courseID id.CourseID, lectureID string) (*progress.Progress, error) {
	t := now()
	_, err := s.mdb.NewUpdate((*progressModel)(nil)).
		Filter(bson.M{"user_id": userID.String(), "course_id": courseID.String()}).
		SetUpdate(bson.M{
			"$addToSet": bson.M{"lecture_ids": lectureID},
			"$set":      bson.M{"updated_at": t},
			"$setOnInsert": bson.M{
				"_id":        id.NewProgressID().String(),
				"user_id":    userID.String(),
				"course_id":  courseID.String(),
				"completed":  false,
				"created_at": t,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("enroll/mongo: mark lecture complete: %w", err)
	}
	return s.GetProgress(ctx, userID, courseID)
}

func (s *Store) GetProgress(ctx context.Context, userID id.UserID, courseID id.CourseID) (*progress.Progress, error) {
	var m progressModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID.String(), "course_id": courseID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, enroll.ErrProgressNotFound
		}
		return nil, fmt.Errorf("enroll/mongo: get progress: %w", err)
	}
	return fromProgressModel(&m)
}

func (s *Store) SetProgressCompleted(ctx context.Context, userID id.UserID, courseID id.CourseID, completed bool) error {
	res, err := s.mdb.NewUpdate((*progressModel)(nil)).
		Filter(bson.M{"user_id": userID.String(), "course_id": courseID.String()}).
		Set("completed", completed).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("enroll/mongo: set progress completed: %w", err)
	}
	if res.MatchedCount() == 0 {
		return enroll.ErrProgressNotFound
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all enrollment collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "external_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		colCourses: {
			{Keys: bson.D{{Key: "educator_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colRatings: {
			{Keys: bson.D{{Key: "course_id", Value: 1}}},
		},
		colPurchases: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "correlation_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colEnrollments: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "course_id", Value: 1}}},
		},
		colProgress: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
