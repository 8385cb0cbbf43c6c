// internal/models/enrollment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment is one row per (user, item) pair; the composite unique index is
// what makes grant idempotent — a replayed grant collapses into the existing
// row instead of creating a duplicate. No soft delete here: a revoked then
// re-granted pair must be able to reuse the index slot, so removes are hard
// deletes.
type Enrollment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_item"`
	ItemType  ItemKind  `json:"item_type" gorm:"type:varchar(20);not null;uniqueIndex:idx_enrollment_user_item"`
	ItemID    uuid.UUID `json:"item_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_item;index"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
