// internal/services/ledger_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/learnhub/learnhub-backend/internal/models"
)

type PaymentEventKind string

const (
	PaymentEventPayment       PaymentEventKind = "payment"
	PaymentEventRefund        PaymentEventKind = "refund"
	PaymentEventChargeback    PaymentEventKind = "chargeback"
	PaymentEventPaymentMissed PaymentEventKind = "payment_missed"
	PaymentEventOther         PaymentEventKind = "other"
)

// EventKindFromIPN maps the processor's event names onto ledger event kinds.
// Unrecognized names map to "other" and are recorded but never change
// entitlement.
func EventKindFromIPN(event string) PaymentEventKind {
	switch event {
	case "on_payment":
		return PaymentEventPayment
	case "on_refund":
		return PaymentEventRefund
	case "on_chargeback":
		return PaymentEventChargeback
	case "on_payment_missed":
		return PaymentEventPaymentMissed
	default:
		return PaymentEventOther
	}
}

// PaymentEvent is one verified processor notification.
type PaymentEvent struct {
	Kind        PaymentEventKind
	OrderID     string
	ProductRef  string
	Email       string
	Amount      float64
	Currency    string
	BillingType string
	Raw         map[string]string
}

var (
	ErrUnknownProduct = errors.New("no item matches the product reference")
	ErrUnknownUser    = errors.New("no user matches the payer email")
	ErrMissingOrderID = errors.New("event carries no order id")
)

// transactionStore persists ledger records keyed by order id. Find returns
// (nil, nil) when no record exists. Save upserts on the order id so duplicate
// deliveries collapse into one row.
type transactionStore interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	Save(ctx context.Context, tx *models.PaymentTransaction) error
}

// itemResolver maps processor-side references onto platform records.
type itemResolver interface {
	ResolveProduct(ctx context.Context, productRef string) (ItemRef, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// entitlementEngine is the grant/revoke side-effect the ledger triggers after
// its own record is durable.
type entitlementEngine interface {
	Grant(ctx context.Context, userID uuid.UUID, item ItemRef) error
	Revoke(ctx context.Context, userID uuid.UUID, item ItemRef) error
}

// LedgerService applies verified payment notifications to entitlement state,
// exactly once per financial event. OrderID is the idempotency key; the
// record upsert happens before the grant so the ledger row is the durable
// proof of entitlement even when the grant step is retried.
//
// No ordering is assumed between concurrent notifications for one order id:
// the per-row upsert gives last-writer-wins, and a refund racing its payment
// may land in write order rather than event order. That window is inherent
// to asynchronous delivery and deliberately not closed here.
type LedgerService struct {
	transactions transactionStore
	catalog      itemResolver
	entitlements entitlementEngine
}

func NewLedgerService(db *gorm.DB, enrollments *EnrollmentService) *LedgerService {
	return &LedgerService{
		transactions: &gormTransactionStore{db: db},
		catalog:      &gormItemResolver{db: db},
		entitlements: enrollments,
	}
}

// ApplyPaymentEvent runs the full reconciliation pipeline for one event.
// Resolution misses return typed errors; the webhook handler logs and drops
// them, because the processor cannot fix an unknown product or payer by
// retrying.
func (s *LedgerService) ApplyPaymentEvent(ctx context.Context, evt PaymentEvent) error {
	if evt.OrderID == "" {
		return ErrMissingOrderID
	}

	item, err := s.catalog.ResolveProduct(ctx, evt.ProductRef)
	if err != nil {
		return err
	}

	user, err := s.catalog.FindUserByEmail(ctx, evt.Email)
	if err != nil {
		return err
	}

	switch evt.Kind {
	case PaymentEventPayment:
		return s.applyPayment(ctx, evt, user, item)
	case PaymentEventRefund:
		return s.applyReversal(ctx, evt, user, item, models.TransactionStatusRefunded)
	case PaymentEventChargeback:
		return s.applyReversal(ctx, evt, user, item, models.TransactionStatusChargebacked)
	case PaymentEventPaymentMissed:
		return s.recordPaymentMissed(ctx, evt)
	default:
		logrus.WithFields(logrus.Fields{
			"order_id": evt.OrderID,
			"kind":     evt.Kind,
		}).Info("Ignoring payment event with no entitlement effect")
		return nil
	}
}

func (s *LedgerService) applyPayment(ctx context.Context, evt PaymentEvent, user *models.User, item ItemRef) error {
	existing, err := s.transactions.FindByOrderID(ctx, evt.OrderID)
	if err != nil {
		return err
	}

	if existing != nil && existing.Status == models.TransactionStatusCompleted {
		logrus.WithField("order_id", evt.OrderID).Info("Duplicate payment notification, already completed")
		return nil
	}

	now := time.Now()
	record := existing
	if record == nil {
		record = &models.PaymentTransaction{OrderID: evt.OrderID}
	}
	record.ItemType = item.Kind
	record.ItemID = item.ID
	record.UserID = user.ID
	record.Amount = evt.Amount
	record.Currency = evt.Currency
	record.BillingType = evt.BillingType
	record.Status = models.TransactionStatusCompleted
	record.PaidAt = &now
	record.Payload = rawToJSONB(evt.Raw)
	record.AppendAudit(string(evt.Kind), rawToJSONB(evt.Raw))

	if err := s.transactions.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to persist transaction: %w", err)
	}

	if err := s.entitlements.Grant(ctx, user.ID, item); err != nil {
		return fmt.Errorf("failed to grant access for order %s: %w", evt.OrderID, err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  evt.OrderID,
		"user_id":   user.ID,
		"item_type": item.Kind,
		"item_id":   item.ID,
	}).Info("Payment applied, access granted")
	return nil
}

func (s *LedgerService) applyReversal(ctx context.Context, evt PaymentEvent, user *models.User, item ItemRef, status models.TransactionStatus) error {
	existing, err := s.transactions.FindByOrderID(ctx, evt.OrderID)
	if err != nil {
		return err
	}

	now := time.Now()
	record := existing
	if record == nil {
		// Out-of-order or processor-only event: keep the pipeline moving by
		// creating the record anyway. Auditors see a reversal with no paid_at
		// and an orphan marker on the trail.
		record = &models.PaymentTransaction{
			OrderID:     evt.OrderID,
			ItemType:    item.Kind,
			ItemID:      item.ID,
			UserID:      user.ID,
			Amount:      evt.Amount,
			Currency:    evt.Currency,
			BillingType: evt.BillingType,
			Payload:     rawToJSONB(evt.Raw),
		}
		record.AppendAudit("orphan_"+string(evt.Kind), rawToJSONB(evt.Raw))
		logrus.WithFields(logrus.Fields{
			"order_id": evt.OrderID,
			"kind":     evt.Kind,
		}).Warn("Reversal received with no prior completed transaction")
	} else {
		record.AppendAudit(string(evt.Kind), rawToJSONB(evt.Raw))
	}
	record.Status = status
	record.RefundedAt = &now

	if err := s.transactions.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to persist transaction: %w", err)
	}

	if err := s.entitlements.Revoke(ctx, user.ID, item); err != nil {
		return fmt.Errorf("failed to revoke access for order %s: %w", evt.OrderID, err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": evt.OrderID,
		"status":   status,
		"user_id":  user.ID,
	}).Info("Reversal applied, access revoked")
	return nil
}

// recordPaymentMissed keeps the event visible on the audit trail without
// touching entitlement. Subscription dunning is out of scope.
func (s *LedgerService) recordPaymentMissed(ctx context.Context, evt PaymentEvent) error {
	existing, err := s.transactions.FindByOrderID(ctx, evt.OrderID)
	if err != nil {
		return err
	}
	if existing == nil {
		logrus.WithField("order_id", evt.OrderID).Warn("payment_missed for unknown order, logged only")
		return nil
	}

	existing.AppendAudit(string(evt.Kind), rawToJSONB(evt.Raw))
	if err := s.transactions.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to persist transaction: %w", err)
	}
	return nil
}

func rawToJSONB(raw map[string]string) models.JSONB {
	out := make(models.JSONB, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

type gormTransactionStore struct {
	db *gorm.DB
}

func (s *gormTransactionStore) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &tx, nil
}

func (s *gormTransactionStore) Save(ctx context.Context, tx *models.PaymentTransaction) error {
	// Single-row upsert keyed by order_id; duplicate deliveries racing each
	// other collapse into one record with last-writer-wins semantics.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(tx).Error
}

// gormItemResolver dispatches product lookups over the item kinds in fixed
// order (class first, then course) instead of runtime type inspection.
type gormItemResolver struct {
	db *gorm.DB
}

func (r *gormItemResolver) ResolveProduct(ctx context.Context, productRef string) (ItemRef, error) {
	if productRef == "" {
		return ItemRef{}, ErrUnknownProduct
	}

	type lookup struct {
		kind models.ItemKind
		find func() (uuid.UUID, bool, error)
	}

	lookups := []lookup{
		{models.ItemKindClass, func() (uuid.UUID, bool, error) {
			var class models.Class
			err := r.db.WithContext(ctx).Where("product_ref = ?", productRef).First(&class).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, false, nil
			}
			return class.ID, err == nil, err
		}},
		{models.ItemKindCourse, func() (uuid.UUID, bool, error) {
			var course models.Course
			err := r.db.WithContext(ctx).Where("product_ref = ?", productRef).First(&course).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, false, nil
			}
			return course.ID, err == nil, err
		}},
	}

	for _, l := range lookups {
		id, found, err := l.find()
		if err != nil {
			return ItemRef{}, fmt.Errorf("database error: %w", err)
		}
		if found {
			return ItemRef{Kind: l.kind, ID: id}, nil
		}
	}

	return ItemRef{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productRef)
}

func (r *gormItemResolver) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrUnknownUser
	}

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, email)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}
