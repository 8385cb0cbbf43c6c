// internal/services/class_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

var ErrProductRefRequired = errors.New("paid items require a product reference")

const catalogCacheTTL = 5 * time.Minute

type ClassService struct {
	db        *gorm.DB
	lifecycle *AssetLifecycle
	cache     *redis.Client
}

type CreateClassRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	IsPaid      bool     `json:"is_paid"`
	Price       float64  `json:"price" validate:"min=0"`
	ProductRef  string   `json:"product_ref"`
	Image       string   `json:"image"`
	Video       string   `json:"video"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateClassRequest uses pointer fields: a field absent from the payload is
// never treated as changed, even when the stored value is empty.
type UpdateClassRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	IsPaid      *bool    `json:"is_paid,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,min=0"`
	ProductRef  *string  `json:"product_ref,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Video       *string  `json:"video,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func NewClassService(db *gorm.DB, lifecycle *AssetLifecycle, cache *redis.Client) *ClassService {
	return &ClassService{
		db:        db,
		lifecycle: lifecycle,
		cache:     cache,
	}
}

func (s *ClassService) CreateClass(ctx context.Context, req *CreateClassRequest) (*models.Class, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if req.IsPaid && req.ProductRef == "" {
		return nil, ErrProductRefRequired
	}

	class := &models.Class{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		IsPaid:      req.IsPaid,
		Price:       req.Price,
		ProductRef:  req.ProductRef,
		Video:       req.Video,
		Tags:        req.Tags,
	}
	class.Image = req.Image
	if class.Image == "" {
		class.Image = models.DefaultClassImage
	}

	// Assets referenced by the payload were already uploaded out-of-band;
	// note them so a failed insert rolls the uploads back.
	var uploaded []AssetRef
	if ref, ok := AssetRefFromURL(class.Image, AssetKindImage); ok {
		uploaded = append(uploaded, ref)
	}
	if ref, ok := AssetRefFromURL(class.Video, AssetKindVideo); ok {
		uploaded = append(uploaded, ref)
	}

	err := s.lifecycle.Create(ctx, uploaded, func() error {
		return s.db.WithContext(ctx).Create(class).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}

	s.invalidateCache(ctx)
	return class, nil
}

func (s *ClassService) UpdateClass(ctx context.Context, id uuid.UUID, req *UpdateClassRequest) (*models.Class, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var class models.Class
	if err := s.db.WithContext(ctx).First(&class, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var replaced, uploaded []AssetRef

	if req.Image != nil && *req.Image != class.Image {
		if ref, ok := AssetRefFromURL(class.Image, AssetKindImage); ok {
			replaced = append(replaced, ref)
		}
		if ref, ok := AssetRefFromURL(*req.Image, AssetKindImage); ok {
			uploaded = append(uploaded, ref)
		}
		class.Image = *req.Image
	}
	if req.Video != nil && *req.Video != class.Video {
		if ref, ok := AssetRefFromURL(class.Video, AssetKindVideo); ok {
			replaced = append(replaced, ref)
		}
		if ref, ok := AssetRefFromURL(*req.Video, AssetKindVideo); ok {
			uploaded = append(uploaded, ref)
		}
		class.Video = *req.Video
	}

	if req.Title != nil {
		class.Title = *req.Title
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Category != nil {
		class.Category = *req.Category
	}
	if req.IsPaid != nil {
		class.IsPaid = *req.IsPaid
	}
	if req.Price != nil {
		class.Price = *req.Price
	}
	if req.ProductRef != nil {
		class.ProductRef = *req.ProductRef
	}
	if req.Tags != nil {
		class.Tags = req.Tags
	}

	if class.IsPaid && class.ProductRef == "" {
		return nil, ErrProductRefRequired
	}

	err := s.lifecycle.Update(ctx, replaced, uploaded, func() error {
		return s.db.WithContext(ctx).Save(&class).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update class: %w", err)
	}

	s.invalidateCache(ctx)
	return &class, nil
}

func (s *ClassService) DeleteClass(ctx context.Context, id uuid.UUID) error {
	var class models.Class
	if err := s.db.WithContext(ctx).First(&class, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&class).Error; err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}

	// Record is gone; asset cleanup is best-effort from here.
	var refs []AssetRef
	if ref, ok := AssetRefFromURL(class.Image, AssetKindImage); ok {
		refs = append(refs, ref)
	}
	if ref, ok := AssetRefFromURL(class.Video, AssetKindVideo); ok {
		refs = append(refs, ref)
	}
	s.lifecycle.Cleanup(ctx, refs)

	s.invalidateCache(ctx)
	return nil
}

func (s *ClassService) GetClass(ctx context.Context, id uuid.UUID) (*models.Class, error) {
	var class models.Class
	if err := s.db.WithContext(ctx).First(&class, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &class, nil
}

func (s *ClassService) ListClasses(ctx context.Context, params utils.PaginationParams) ([]models.Class, int64, error) {
	cacheKey := fmt.Sprintf("catalog:classes:%d:%d:%s:%s:%s:%s",
		params.Page, params.Limit, params.Sort, params.Order, params.Category, params.Search)

	type cached struct {
		Classes []models.Class `json:"classes"`
		Total   int64          `json:"total"`
	}

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var hit cached
			if json.Unmarshal(raw, &hit) == nil {
				return hit.Classes, hit.Total, nil
			}
		}
	}

	query := s.db.WithContext(ctx).Model(&models.Class{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Search != "" {
		query = query.Where("title ILIKE ? OR description ILIKE ?", "%"+params.Search+"%", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count classes: %w", err)
	}

	allowedSortFields := []string{"created_at", "title", "price"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var classes []models.Class
	if err := query.Find(&classes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch classes: %w", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(cached{Classes: classes, Total: total}); err == nil {
			s.cache.Set(ctx, cacheKey, raw, catalogCacheTTL)
		}
	}

	return classes, total, nil
}

// invalidateCache drops every cached class listing. Best-effort: a cold or
// unreachable cache only costs a database round trip.
func (s *ClassService) invalidateCache(ctx context.Context) {
	invalidateCatalogCache(ctx, s.cache, "catalog:classes:*")
}

func invalidateCatalogCache(ctx context.Context, cache *redis.Client, pattern string) {
	if cache == nil {
		return
	}

	iter := cache.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := cache.Del(ctx, iter.Val()).Err(); err != nil {
			logrus.WithError(err).WithField("key", iter.Val()).Warn("Failed to invalidate catalog cache key")
		}
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).Warn("Catalog cache invalidation scan failed")
	}
}
