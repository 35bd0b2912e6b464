package models

import (
	"astraion/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Reservation struct {
	ID              uuid.UUID               `gorm:"type:uuid;primarykey" json:"id"`
	TripID          uuid.UUID               `gorm:"type:uuid;index" json:"trip_id"`
	Quantity        int                     `json:"quantity"`
	ContactClientID *uuid.UUID              `gorm:"type:uuid" json:"contact_client_id,omitempty"`
	Status          types.ReservationStatus `gorm:"default:'HOLD'" json:"status"`
	Notes           string                  `json:"notes,omitempty"`
	CreatedBy       string                  `json:"created_by,omitempty"`
	UpdatedBy       string                  `json:"updated_by,omitempty"`

	Trip          Trip             `json:"trip,omitempty"`
	ContactClient *Client          `json:"contact_client,omitempty"`
	Assignments   []SeatAssignment `json:"assignments,omitempty"`

	types.Timestamps
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
