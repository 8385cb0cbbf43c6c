// internal/services/course_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/learnhub/learnhub-backend/internal/database"
	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

var ErrSessionNotFound = errors.New("session not found")

type CourseService struct {
	db        *gorm.DB
	lifecycle *AssetLifecycle
	cache     *redis.Client
}

type CreateCourseRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IsPaid      bool     `json:"is_paid"`
	Price       float64  `json:"price" validate:"min=0"`
	ProductRef  string   `json:"product_ref"`
	Image       string   `json:"image"`
	Tags        []string `json:"tags,omitempty"`
}

type UpdateCourseRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	IsPaid      *bool    `json:"is_paid,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	ProductRef  *string  `json:"product_ref,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type CreateSessionRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=255"`
	Order     int    `json:"order" validate:"min=0"`
	Video     string `json:"video" validate:"required"`
	Thumbnail string `json:"thumbnail"`
}

type UpdateSessionRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Order     *int    `json:"order,omitempty" validate:"omitempty,min=0"`
	Video     *string `json:"video,omitempty"`
	Thumbnail *string `json:"thumbnail,omitempty"`
}

// SessionPosition is one entry of a bulk reorder.
type SessionPosition struct {
	SessionID uuid.UUID `json:"session_id" validate:"required"`
	Order     int       `json:"order" validate:"min=0"`
}

func NewCourseService(db *gorm.DB, lifecycle *AssetLifecycle, cache *redis.Client) *CourseService {
	return &CourseService{
		db:        db,
		lifecycle: lifecycle,
		cache:     cache,
	}
}

func (s *CourseService) CreateCourse(ctx context.Context, req *CreateCourseRequest) (*models.Course, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.IsPaid && req.ProductRef == "" {
		return nil, ErrProductRefRequired
	}

	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		IsPaid:      req.IsPaid,
		Price:       req.Price,
		ProductRef:  req.ProductRef,
		Tags:        req.Tags,
	}
	course.Image = req.Image
	if course.Image == "" {
		course.Image = models.DefaultCourseImage
	}

	var uploaded []AssetRef
	if ref, ok := AssetRefFromURL(course.Image, AssetKindImage); ok {
		uploaded = append(uploaded, ref)
	}

	err := s.lifecycle.Create(ctx, uploaded, func() error {
		return s.db.WithContext(ctx).Create(course).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.invalidateCache(ctx)
	return course, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id uuid.UUID, req *UpdateCourseRequest) (*models.Course, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var replaced, uploaded []AssetRef

	if req.Image != nil && *req.Image != course.Image {
		if ref, ok := AssetRefFromURL(course.Image, AssetKindImage); ok {
			replaced = append(replaced, ref)
		}
		if ref, ok := AssetRefFromURL(*req.Image, AssetKindImage); ok {
			uploaded = append(uploaded, ref)
		}
		course.Image = *req.Image
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.IsPaid != nil {
		course.IsPaid = *req.IsPaid
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.ProductRef != nil {
		course.ProductRef = *req.ProductRef
	}
	if req.Tags != nil {
		course.Tags = req.Tags
	}

	if course.IsPaid && course.ProductRef == "" {
		return nil, ErrProductRefRequired
	}

	err := s.lifecycle.Update(ctx, replaced, uploaded, func() error {
		return s.db.WithContext(ctx).Save(&course).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.invalidateCache(ctx)
	return &course, nil
}

// DeleteCourse removes the course and cascades over its sessions: session
// assets first, then the session rows in bulk, then the course's own image.
// Every asset delete is best-effort and independent.
func (s *CourseService) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	var sessions []models.Session
	if err := s.db.WithContext(ctx).Where("course_id = ?", id).Find(&sessions).Error; err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&course).Error; err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.lifecycle.Cleanup(ctx, SessionAssetRefs(sessions))

	if err := s.db.WithContext(ctx).Where("course_id = ?", id).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	if ref, ok := AssetRefFromURL(course.Image, AssetKindImage); ok {
		s.lifecycle.Cleanup(ctx, []AssetRef{ref})
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *CourseService) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sessions.sort_order ASC")
		}).
		First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &course, nil
}

func (s *CourseService) ListCourses(ctx context.Context, params utils.PaginationParams) ([]models.Course, int64, error) {
	cacheKey := fmt.Sprintf("catalog:courses:%d:%d:%s:%s:%s:%s",
		params.Page, params.Limit, params.Sort, params.Order, params.Category, params.Search)

	type cached struct {
		Courses []models.Course `json:"courses"`
		Total   int64           `json:"total"`
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var hit cached
			if json.Unmarshal(raw, &hit) == nil {
				return hit.Courses, hit.Total, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Course{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?", "%"+params.Search+"%", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	allowedSortFields := []string{"created_at", "title", "price"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var courses []models.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch courses: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(cached{Courses: courses, Total: total}); err == nil {
			s.cache.Set(ctx, cacheKey, raw, catalogCacheTTL)
		}
	}

	return courses, total, nil
}

func (s *CourseService) CreateSession(ctx context.Context, courseID uuid.UUID, req *CreateSessionRequest) (*models.Session, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	session := &models.Session{
		CourseID:  courseID,
		Title:     req.Title,
		SortOrder: req.Order,
		Video:     req.Video,
		Thumbnail: req.Thumbnail,
	}

	var uploaded []AssetRef
	if ref, ok := AssetRefFromURL(session.Video, AssetKindVideo); ok {
		uploaded = append(uploaded, ref)
	}
	if ref, ok := AssetRefFromURL(session.Thumbnail, AssetKindImage); ok {
		uploaded = append(uploaded, ref)
	}

	err := s.lifecycle.Create(ctx, uploaded, func() error {
		return s.db.WithContext(ctx).Create(session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (s *CourseService) UpdateSession(ctx context.Context, sessionID uuid.UUID, req *UpdateSessionRequest) (*models.Session, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var replaced, uploaded []AssetRef

	if req.Video != nil && *req.Video != session.Video {
		if ref, ok := AssetRefFromURL(session.Video, AssetKindVideo); ok {
			replaced = append(replaced, ref)
		}
		if ref, ok := AssetRefFromURL(*req.Video, AssetKindVideo); ok {
			uploaded = append(uploaded, ref)
		}
		session.Video = *req.Video
	}
	if req.Thumbnail != nil && *req.Thumbnail != session.Thumbnail {
		if ref, ok := AssetRefFromURL(session.Thumbnail, AssetKindImage); ok {
			replaced = append(replaced, ref)
		}
		if ref, ok := AssetRefFromURL(*req.Thumbnail, AssetKindImage); ok {
			uploaded = append(uploaded, ref)
		}
		session.Thumbnail = *req.Thumbnail
	}

	if req.Title != nil {
		session.Title = *req.Title
	}
	if req.Order != nil {
		session.SortOrder = *req.Order
	}

	err := s.lifecycle.Update(ctx, replaced, uploaded, func() error {
		return s.db.WithContext(ctx).Save(&session).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return &session, nil
}

func (s *CourseService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&session).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.lifecycle.Cleanup(ctx, SessionAssetRefs([]models.Session{session}))
	return nil
}

// ReorderSessions rewrites the sort positions of a course's sessions in one
// transaction so a partial reorder never persists.
func (s *CourseService) ReorderSessions(ctx context.Context, courseID uuid.UUID, positions []SessionPosition) error {
	if len(positions) == 0 {
		return nil
	}

	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, pos := range positions {
			result := tx.Model(&models.Session{}).
				Where("id = ? AND course_id = ?", pos.SessionID, courseID).
				Update("sort_order", pos.Order)
			if result.Error != nil {
				return fmt.Errorf("failed to reorder session %s: %w", pos.SessionID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrSessionNotFound, pos.SessionID)
			}
		}
		return nil
	})
}

func (s *CourseService) invalidateCache(ctx context.Context) {
	invalidateCatalogCache(ctx, s.cache, "catalog:courses:*")
}
