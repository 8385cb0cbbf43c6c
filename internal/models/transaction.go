// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTransaction is the ledger record for one processor order. OrderID is
// the idempotency key: at most one row exists per order, and replayed
// notifications for the same order collapse into it. A completed row is never
// recreated, only transitioned to refunded/chargebacked. Rows are never
// deleted.
type PaymentTransaction struct {
	BaseModel
	OrderID     string            `json:"order_id" gorm:"size:100;not null;uniqueIndex"`
	ItemType    ItemKind          `json:"item_type" gorm:"type:varchar(20);not null;index"`
	ItemID      uuid.UUID         `json:"item_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Amount      float64           `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency    string            `json:"currency" gorm:"size:3;not null"`
	BillingType string            `json:"billing_type" gorm:"size:50"`
	Status      TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaidAt      *time.Time        `json:"paid_at"`
	RefundedAt  *time.Time        `json:"refunded_at"`
	Payload     JSONB             `json:"payload" gorm:"type:jsonb"`
	AuditTrail  JSONBArray        `json:"audit_trail" gorm:"type:jsonb"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// AppendAudit records one raw processor event on the transaction's trail.
func (t *PaymentTransaction) AppendAudit(kind string, payload map[string]interface{}) {
	entry := map[string]interface{}{
		"kind":        kind,
		"payload":     payload,
		"recorded_at": time.Now().UTC().Format(time.RFC3339),
	}
	t.AuditTrail = append(t.AuditTrail, entry)
}
