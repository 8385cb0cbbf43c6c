// internal/services/enrollment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnhub/learnhub-backend/internal/models"
)

var (
	ErrAlreadyEnrolled = errors.New("user is already enrolled")
	ErrItemNotFound    = errors.New("item not found")
	ErrPaidItem        = errors.New("paid items require checkout")
)

// ItemRef is the tagged reference to a purchasable item (Class or Course).
type ItemRef struct {
	Kind models.ItemKind `json:"item_type"`
	ID   uuid.UUID       `json:"item_id"`
}

// enrollmentStore is the persistence capability behind grant/revoke. Add and
// Remove are idempotent set operations: repeating either is a no-op.
type enrollmentStore interface {
	Add(ctx context.Context, userID uuid.UUID, item ItemRef) error
	Remove(ctx context.Context, userID uuid.UUID, item ItemRef) error
	Exists(ctx context.Context, userID uuid.UUID, item ItemRef) (bool, error)
}

// itemCatalog answers whether an item exists and carries a price.
type itemCatalog interface {
	IsPaid(ctx context.Context, item ItemRef) (bool, error)
}

// EnrollmentService mutates the user<->item enrollment relation. The webhook
// pipeline calls Grant/Revoke (silent no-ops when already in the target
// state); the interactive enroll path rejects duplicates instead.
type EnrollmentService struct {
	db      *gorm.DB
	store   enrollmentStore
	catalog itemCatalog
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{
		db:      db,
		store:   &gormEnrollmentStore{db: db},
		catalog: &gormItemCatalog{db: db},
	}
}

// Grant adds the enrollment row for (user, item). Granting access already
// held is a no-op, never an error.
func (s *EnrollmentService) Grant(ctx context.Context, userID uuid.UUID, item ItemRef) error {
	return s.store.Add(ctx, userID, item)
}

// Revoke removes the enrollment row for (user, item). Revoking access not
// held is a no-op, never an error.
func (s *EnrollmentService) Revoke(ctx context.Context, userID uuid.UUID, item ItemRef) error {
	return s.store.Remove(ctx, userID, item)
}

func (s *EnrollmentService) IsEnrolled(ctx context.Context, userID uuid.UUID, item ItemRef) (bool, error) {
	return s.store.Exists(ctx, userID, item)
}

// Enroll is the interactive path for free items. Paid items must go through
// checkout and arrive via the payment webhook; duplicates are a client error
// here, unlike on the webhook path.
func (s *EnrollmentService) Enroll(ctx context.Context, userID uuid.UUID, item ItemRef) error {
	isPaid, err := s.catalog.IsPaid(ctx, item)
	if err != nil {
		return err
	}
	if isPaid {
		return ErrPaidItem
	}

	enrolled, err := s.store.Exists(ctx, userID, item)
	if err != nil {
		return err
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	return s.store.Add(ctx, userID, item)
}

// MyEnrollments returns the caller's enrollment rows, newest first.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, userID uuid.UUID) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}
	return enrollments, nil
}

// Library is the resolved view of a user's enrollments: the actual class and
// course records they can access.
type Library struct {
	Classes []models.Class  `json:"classes"`
	Courses []models.Course `json:"courses"`
}

// MyLibrary resolves the caller's enrollments to the underlying items.
// Enrollments pointing at since-deleted items are silently omitted.
func (s *EnrollmentService) MyLibrary(ctx context.Context, userID uuid.UUID) (*Library, error) {
	enrollments, err := s.MyEnrollments(ctx, userID)
	if err != nil {
		return nil, err
	}

	var classIDs, courseIDs []uuid.UUID
	for _, e := range enrollments {
		switch e.ItemType {
		case models.ItemKindClass:
			classIDs = append(classIDs, e.ItemID)
		case models.ItemKindCourse:
			courseIDs = append(courseIDs, e.ItemID)
		}
	}

	library := &Library{Classes: []models.Class{}, Courses: []models.Course{}}
	if len(classIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Where("id IN ?", classIDs).
			Find(&library.Classes).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch enrolled classes: %w", err)
		}
	}
	if len(courseIDs) > 0 {
		if err := s.db.WithContext(ctx).
			Preload("Sessions", func(db *gorm.DB) *gorm.DB {
				return db.Order("sort_order ASC")
			}).
			Where("id IN ?", courseIDs).
			Find(&library.Courses).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch enrolled courses: %w", err)
		}
	}
	return library, nil
}

type gormItemCatalog struct {
	db *gorm.DB
}

func (s *gormItemCatalog) IsPaid(ctx context.Context, item ItemRef) (bool, error) {
	switch item.Kind {
	case models.ItemKindClass:
		var class models.Class
		if err := s.db.WithContext(ctx).First(&class, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrItemNotFound
			}
			return false, fmt.Errorf("database error: %w", err)
		}
		return class.IsPaid, nil
	case models.ItemKindCourse:
		var course models.Course
		if err := s.db.WithContext(ctx).First(&course, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, ErrItemNotFound
			}
			return false, fmt.Errorf("database error: %w", err)
		}
		return course.IsPaid, nil
	default:
		return false, fmt.Errorf("unknown item kind: %s", item.Kind)
	}
}

type gormEnrollmentStore struct {
	db *gorm.DB
}

func (s *gormEnrollmentStore) Add(ctx context.Context, userID uuid.UUID, item ItemRef) error {
	enrollment := models.Enrollment{
		UserID:   userID,
		ItemType: item.Kind,
		ItemID:   item.ID,
	}

	// ON CONFLICT DO NOTHING keeps replayed grants idempotent at the
	// persistence layer, without a prior read.
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&enrollment).Error; err != nil {
		return fmt.Errorf("failed to grant enrollment: %w", err)
	}
	return nil
}

func (s *gormEnrollmentStore) Remove(ctx context.Context, userID uuid.UUID, item ItemRef) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, item.Kind, item.ID).
		Delete(&models.Enrollment{}).Error; err != nil {
		return fmt.Errorf("failed to revoke enrollment: %w", err)
	}
	return nil
}

func (s *gormEnrollmentStore) Exists(ctx context.Context, userID uuid.UUID, item ItemRef) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, item.Kind, item.ID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}
