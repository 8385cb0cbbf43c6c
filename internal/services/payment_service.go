// internal/services/payment_service.go
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/learnhub/learnhub-backend/internal/config"
	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

var ErrItemNotPurchasable = errors.New("item is not purchasable")

// PaymentService issues checkout URLs and serves transaction listings. The
// actual payment happens on the processor's hosted page; order state comes
// back through the IPN webhook and the ledger.
type PaymentService struct {
	db          *gorm.DB
	config      *config.Config
	enrollments *EnrollmentService
}

type CheckoutRequest struct {
	ItemType models.ItemKind `json:"item_type" validate:"required,oneof=class course"`
	ItemID   uuid.UUID       `json:"item_id" validate:"required"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// checkoutCustomData rides through the processor unmodifed and comes back on
// the IPN, tying the order to the purchasing user and item.
type checkoutCustomData struct {
	UserID   string          `json:"user_id"`
	ItemType models.ItemKind `json:"item_type"`
	ItemID   string          `json:"item_id"`
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, enrollments *EnrollmentService) *PaymentService {
	return &PaymentService{
		db:          db,
		config:      cfg,
		enrollments: enrollments,
	}
}

// CreateCheckoutURL validates that the caller can buy the item and returns
// the processor checkout URL for it.
func (s *PaymentService) CreateCheckoutURL(ctx context.Context, userID uuid.UUID, req *CheckoutRequest) (*CheckoutResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	item := ItemRef{Kind: req.ItemType, ID: req.ItemID}
	productRef, err := s.purchasableProductRef(ctx, item)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, item)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	checkoutURL, err := BuildCheckoutURL(s.config.Payment, productRef, user.Email, checkoutCustomData{
		UserID:   userID.String(),
		ItemType: item.Kind,
		ItemID:   item.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutResponse{CheckoutURL: checkoutURL}, nil
}

// BuildCheckoutURL renders the hosted checkout link: product page plus the
// payer email, the opaque custom blob and the fixed return URLs.
func BuildCheckoutURL(cfg config.PaymentConfig, productRef, email string, custom checkoutCustomData) (string, error) {
	blob, err := json.Marshal(custom)
	if err != nil {
		return "", fmt.Errorf("failed to encode custom data: %w", err)
	}

	q := url.Values{}
	q.Set("email", email)
	q.Set("custom", base64.StdEncoding.EncodeToString(blob))
	if cfg.ThankYouURL != "" {
		q.Set("thankyou_url", cfg.ThankYouURL)
	}
	if cfg.CancelURL != "" {
		q.Set("cancel_url", cfg.CancelURL)
	}

	return fmt.Sprintf("%s/%s?%s", cfg.CheckoutBaseURL, url.PathEscape(productRef), q.Encode()), nil
}

// purchasableProductRef checks the item exists, is paid and carries a
// processor product reference.
func (s *PaymentService) purchasableProductRef(ctx context.Context, item ItemRef) (string, error) {
	var isPaid bool
	var productRef string

	switch item.Kind {
	case models.ItemKindClass:
		var class models.Class
		if err := s.db.WithContext(ctx).First(&class, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrItemNotFound
			}
			return "", fmt.Errorf("database error: %w", err)
		}
		isPaid, productRef = class.IsPaid, class.ProductRef
	case models.ItemKindCourse:
		var course models.Course
		if err := s.db.WithContext(ctx).First(&course, item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrItemNotFound
			}
			return "", fmt.Errorf("database error: %w", err)
		}
		isPaid, productRef = course.IsPaid, course.ProductRef
	default:
		return "", fmt.Errorf("unknown item kind: %s", item.Kind)
	}

	if !isPaid || productRef == "" {
		return "", ErrItemNotPurchasable
	}
	return productRef, nil
}

// GetPaymentHistory lists the caller's own ledger records.
func (s *PaymentService) GetPaymentHistory(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.PaymentTransaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PaymentTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.PaymentTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}

// ListTransactions is the admin view over the whole ledger.
func (s *PaymentService) ListTransactions(ctx context.Context, params utils.PaginationParams) ([]models.PaymentTransaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PaymentTransaction{}).Preload("User")

	if params.Search != "" {
		query = query.Where("order_id ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status", "order_id"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var transactions []models.PaymentTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}
