package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/enroll/course"
	"github.com/xraph/enroll/enrollment"
	"github.com/xraph/enroll/id"
	"github.com/xraph/enroll/progress"
	"github.com/xraph/enroll/purchase"
	"github.com/xraph/enroll/types"
	"github.com/xraph/enroll/user"
)

// ==================== User models ====================

type userModel struct {
	grove.BaseModel `grove:"table:enroll_users"`

	ID         string            `grove:"id,pk"`
	ExternalID string            `grove:"external_id"`
	Email      string            `grove:"email"`
	Name       string            `grove:"name"`
	ImageURL   string            `grove:"image_url"`
	Metadata   map[string]string `grove:"metadata,type:json"`
	CreatedAt  time.Time         `grove:"created_at"`
	UpdatedAt  time.Time         `grove:"updated_at"`
}

func toUserModel(u *user.User) *userModel {
	return &userModel{
		ID:         u.ID.String(),
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		ImageURL:   u.ImageURL,
		Metadata:   u.Metadata,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func fromUserModel(m *userModel) (*user.User, error) {
	userID, err := id.ParseUserID(m.ID)
	if err != nil {
		return nil, err
	}

	return &user.User{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         userID,
		ExternalID: m.ExternalID,
		Email:      m.Email,
		Name:       m.Name,
		ImageURL:   m.ImageURL,
		Metadata:   m.Metadata,
	}, nil
}

// ==================== Course models ====================

type courseModel struct {
	grove.BaseModel `grove:"table:enroll_courses"`

	ID              string            `grove:"id,pk"`
	Title           string            `grove:"title"`
	Description     string            `grove:"description"`
	Thumbnail       string            `grove:"thumbnail"`
	EducatorID      string            `grove:"educator_id"`
	ListPriceCents  int64             `grove:"list_price_cents"`
	ListPriceCur    string            `grove:"list_price_cur"`
	DiscountPercent int               `grove:"discount_percent"`
	Published       bool              `grove:"published"`
	Chapters        json.RawMessage   `grove:"chapters,type:json"`
	Metadata        map[string]string `grove:"metadata,type:json"`
	CreatedAt       time.Time         `grove:"created_at"`
	UpdatedAt       time.Time         `grove:"updated_at"`
}

type ratingModel struct {
	grove.BaseModel `grove:"table:enroll_ratings"`

	Key      string `grove:"key,pk"`
	CourseID string `grove:"course_id"`
	UserID   string `grove:"user_id"`
	Score    int    `grove:"score"`
}

func ratingKey(courseID, userID string) string {
	return courseID + ":" + userID
}

func toCourseModel(c *course.Course) *courseModel {
	chapters, _ := json.Marshal(c.Chapters) //nolint:errcheck // best-effort

	return &courseModel{
		ID:              c.ID.String(),
		Title:           c.Title,
		Description:     c.Description,
		Thumbnail:       c.Thumbnail,
		EducatorID:      c.EducatorID.String(),
		ListPriceCents:  c.ListPrice.Amount,
		ListPriceCur:    c.ListPrice.Currency,
		DiscountPercent: c.DiscountPercent,
		Published:       c.Published,
		Chapters:        chapters,
		Metadata:        c.Metadata,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func fromCourseModel(m *courseModel) (*course.Course, error) {
	courseID, err := id.ParseCourseID(m.ID)
	if err != nil {
		return nil, err
	}
	educatorID, err := id.ParseUserID(m.EducatorID)
	if err != nil {
		return nil, err
	}

	var chapters []course.Chapter
	if len(m.Chapters) > 0 {
		_ = json.Unmarshal(m.Chapters, &chapters) //nolint:errcheck // best-effort
	}

	return &course.Course{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              courseID,
		Title:           m.Title,
		Description:     m.Description,
		Thumbnail:       m.Thumbnail,
		EducatorID:      educatorID,
		ListPrice:       types.Money{Amount: m.ListPriceCents, Currency: m.ListPriceCur},
		DiscountPercent: m.DiscountPercent,
		Published:       m.Published,
		Chapters:        chapters,
		Metadata:        m.Metadata,
	}, nil
}

// ==================== Purchase models ====================

type purchaseModel struct {
	grove.BaseModel `grove:"table:enroll_purchases"`

	ID            string            `grove:"id,pk"`
	UserID        string            `grove:"user_id"`
	CourseID      string            `grove:"course_id"`
	AmountCents   int64             `grove:"amount_cents"`
	AmountCur     string            `grove:"amount_cur"`
	Status        string            `grove:"status"`
	CorrelationID string            `grove:"correlation_id"`
	CompletedAt   *time.Time        `grove:"completed_at"`
	Metadata      map[string]string `grove:"metadata,type:json"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

func toPurchaseModel(p *purchase.Purchase) *purchaseModel {
	return &purchaseModel{
		ID:            p.ID.String(),
		UserID:        p.UserID.String(),
		CourseID:      p.CourseID.String(),
		AmountCents:   p.Amount.Amount,
		AmountCur:     p.Amount.Currency,
		Status:        string(p.Status),
		CorrelationID: p.CorrelationID,
		CompletedAt:   p.CompletedAt,
		Metadata:      p.Metadata,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromPurchaseModel(m *purchaseModel) (*purchase.Purchase, error) {
	purchaseID, err := id.ParsePurchaseID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	courseID, err := id.ParseCourseID(m.CourseID)
	if err != nil {
		return nil, err
	}

	return &purchase.Purchase{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            purchaseID,
		UserID:        userID,
		CourseID:      courseID,
		Amount:        types.Money{Amount: m.AmountCents, Currency: m.AmountCur},
		Status:        purchase.Status(m.Status),
		CorrelationID: m.CorrelationID,
		CompletedAt:   m.CompletedAt,
		Metadata:      m.Metadata,
	}, nil
}

// ==================== Enrollment models ====================

type enrollmentModel struct {
	grove.BaseModel `grove:"table:enroll_enrollments"`

	ID         string    `grove:"id,pk"`
	UserID     string    `grove:"user_id"`
	CourseID   string    `grove:"course_id"`
	PurchaseID string    `grove:"purchase_id"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toEnrollmentModel(e *enrollment.Enrollment) *enrollmentModel {
	m := &enrollmentModel{
		ID:        e.ID.String(),
		UserID:    e.UserID.String(),
		CourseID:  e.CourseID.String(),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if !e.PurchaseID.IsNil() {
		m.PurchaseID = e.PurchaseID.String()
	}
	return m
}

func fromEnrollmentModel(m *enrollmentModel) (*enrollment.Enrollment, error) {
	enrollmentID, err := id.ParseEnrollmentID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	courseID, err := id.ParseCourseID(m.CourseID)
	if err != nil {
		return nil, err
	}

	e := &enrollment.Enrollment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       enrollmentID,
		UserID:   userID,
		CourseID: courseID,
	}
	if m.PurchaseID != "" {
		purchaseID, pErr := id.ParsePurchaseID(m.PurchaseID)
		if pErr != nil {
			return nil, pErr
		}
		e.PurchaseID = purchaseID
	}
	return e, nil
}

// ==================== Progress models ====================

type progressModel struct {
	grove.BaseModel `grove:"table:enroll_progress"`

	ID         string          `grove:"id,pk"`
	UserID     string          `grove:"user_id"`
	CourseID   string          `grove:"course_id"`
	Completed  bool            `grove:"completed"`
	LectureIDs json.RawMessage `grove:"lecture_ids,type:json"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toProgressModel(p *progress.Progress) *progressModel {
	lectureIDs, _ := json.Marshal(p.LectureIDs) //nolint:errcheck // best-effort

	return &progressModel{
		ID:         p.ID.String(),
		UserID:     p.UserID.String(),
		CourseID:   p.CourseID.String(),
		Completed:  p.Completed,
		LectureIDs: lectureIDs,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func fromProgressModel(m *progressModel) (*progress.Progress, error) {
	progressID, err := id.ParseProgressID(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(m.UserID)
	if err != nil {
		return nil, err
	}
	courseID, err := id.ParseCourseID(m.CourseID)
	if err != nil {
		return nil, err
	}

	var lectureIDs []string
	if len(m.LectureIDs) > 0 {
		_ = json.Unmarshal(m.LectureIDs, &lectureIDs) //nolint:errcheck // best-effort
	}

	return &progress.Progress{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         progressID,
		UserID:     userID,
		CourseID:   courseID,
		Completed:  m.Completed,
		LectureIDs: lectureIDs,
	}, nil
}
