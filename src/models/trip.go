package models

import (
	"astraion/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Trip struct {
	ID            uuid.UUID        `gorm:"type:uuid;primarykey" json:"id"`
	TripDate      time.Time        `json:"trip_date"`
	Origin        string           `json:"origin"`
	Destination   string           `json:"destination"`
	DepartureTime *string          `json:"departure_time,omitempty"`
	ReturnTime    *string          `json:"return_time,omitempty"`
	Price         float32          `json:"price"`
	BusID         uuid.UUID        `gorm:"type:uuid" json:"bus_id"`
	ChauffeurID   *uuid.UUID       `gorm:"type:uuid" json:"chauffeur_id,omitempty"`
	Status        types.TripStatus `gorm:"default:'DRAFT'" json:"status"`
	Notes         string           `json:"notes,omitempty"`

	Bus       Bus        `json:"bus,omitempty"`
	Chauffeur *Chauffeur `json:"chauffeur,omitempty"`
	Seats     []TripSeat `json:"seats,omitempty"`

	types.Timestamps
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TripSeat is one unit of a trip's fixed seat inventory. The inventory
// is created with the trip and its size never changes afterwards, even
// if the bus is swapped.
type TripSeat struct {
	ID      uuid.UUID `gorm:"type:uuid;primarykey" json:"id"`
	TripID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_trip_seat_no;index" json:"trip_id"`
	SeatNo  int       `gorm:"uniqueIndex:idx_trip_seat_no" json:"seat_no"`
	Blocked bool      `json:"blocked"`
	Note    string    `json:"note,omitempty"`
}

func (s *TripSeat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
