// internal/models/class.go
package models

import (
	"github.com/lib/pq"
)

// DefaultClassImage and DefaultCourseImage are placeholder values that never
// refer to a real hosted asset and are skipped by all cleanup flows.
const (
	DefaultClassImage  = "default-class.jpg"
	DefaultCourseImage = "default-course.jpg"
)

// Class is a single standalone lesson: one optional video plus a cover image.
type Class struct {
	BaseModel
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	IsPaid      bool           `json:"is_paid" gorm:"default:false;index"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);default:0"`
	ProductRef  string         `json:"product_ref" gorm:"size:100;index"`
	Image       string         `json:"image" gorm:"size:512;default:'default-class.jpg'"`
	Video       string         `json:"video" gorm:"size:512"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`

	// Relationships
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"polymorphic:Item;polymorphicValue:class"`
}
