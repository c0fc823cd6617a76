package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultTemplateSlug is assigned to orders whose template cannot be derived
// from checkout metadata (simplified checkout, sync-repaired orders).
const DefaultTemplateSlug = "basic"

// Template is a catalog item for a salon website design. Read-mostly.
type Template struct {
	ID       uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name     string          `json:"name" gorm:"size:255;not null"`
	Slug     string          `json:"slug" gorm:"uniqueIndex;size:100;not null"`
	Category string          `json:"category" gorm:"size:100;index"`
	Price    decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Features string          `json:"features" gorm:"type:text"` // JSON array
	Active   bool            `json:"active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
