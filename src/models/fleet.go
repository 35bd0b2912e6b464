package models

import (
	"astraion/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BusType struct {
	ID         uuid.UUID   `gorm:"type:uuid;primarykey" json:"id"`
	Name       string      `json:"name"`
	SeatsCount int         `json:"seats_count"`
	SeatMap    types.JSONB `json:"seat_map,omitempty"`
}

func (b *BusType) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Bus struct {
	ID        uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	Plate     string    `gorm:"uniqueIndex" json:"plate"`
	Label     string    `json:"label,omitempty"`
	BusTypeID uuid.UUID `gorm:"type:uuid" json:"bus_type_id"`
	Active    bool      `gorm:"default:true" json:"active"`

	BusType BusType `json:"bus_type,omitempty"`
}

func (b *Bus) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

type Chauffeur struct {
	ID     uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone,omitempty"`
	Active bool      `gorm:"default:true" json:"active"`
}

func (c *Chauffeur) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
