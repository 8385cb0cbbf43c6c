// internal/models/course.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Course is an ordered collection of Sessions behind a single purchase.
type Course struct {
	BaseModel
	Title       string         `json:"title" gorm:"size:255;not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"size:100;index"`
	IsPaid      bool           `json:"is_paid" gorm:"default:false;index"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);default:0"`
	ProductRef  string         `json:"product_ref" gorm:"size:100;index"`
	Image       string         `json:"image" gorm:"size:512;default:'default-course.jpg'"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`

	// Relationships. Sessions are owned by the course and removed with it.
	Sessions    []Session    `json:"sessions,omitempty" gorm:"foreignKey:CourseID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"polymorphic:Item;polymorphicValue:course"`
}

// Session belongs to exactly one Course. SortOrder drives display sequencing
// and is rewritten in bulk when an admin reorders the course.
type Session struct {
	BaseModel
	CourseID  uuid.UUID `json:"course_id" gorm:"type:uuid;not null;index"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	SortOrder int       `json:"order" gorm:"column:sort_order;index"`
	Video     string    `json:"video" gorm:"size:512;not null"`
	Thumbnail string    `json:"thumbnail" gorm:"size:512"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
