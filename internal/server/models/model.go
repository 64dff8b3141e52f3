package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/openpaas/groupd/uid"
)

// Modelable is satisfied by all structs that embed Model.
type Modelable interface {
	IsAModel()
}

type Model struct {
	ID uid.ID
	// CreatedAt and UpdatedAt are maintained by gorm.
	// See https://gorm.io/docs/conventions.html#Timestamp-Tracking
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}

func (Model) IsAModel() {}

// BeforeCreate sets an ID if one does not already exist. The ID is generated
// here instead of a `gorm:"default"` tag because not all supported databases
// can generate snowflakes.
func (m *Model) BeforeCreate(_ *gorm.DB) error {
	if m.ID == 0 {
		m.ID = uid.New()
	}

	return nil
}
