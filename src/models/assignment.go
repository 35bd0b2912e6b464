package models

import (
	"astraion/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeatAssignment binds one seat number of a trip to one reservation.
// The unique index over (trip_id, seat_no) is the last line of defense
// against double-booking when two writers race past the per-trip lock.
type SeatAssignment struct {
	ID                uuid.UUID              `gorm:"type:uuid;primarykey" json:"id"`
	TripID            uuid.UUID              `gorm:"type:uuid;uniqueIndex:idx_trip_assignment_seat;index" json:"trip_id"`
	SeatNo            int                    `gorm:"uniqueIndex:idx_trip_assignment_seat" json:"seat_no"`
	ReservationID     uuid.UUID              `gorm:"type:uuid;index" json:"reservation_id"`
	PassengerClientID *uuid.UUID             `gorm:"type:uuid" json:"passenger_client_id,omitempty"`
	FirstName         string                 `json:"first_name,omitempty"`
	LastName          string                 `json:"last_name,omitempty"`
	Phone             string                 `json:"phone,omitempty"`
	PassportID        string                 `json:"passport_id,omitempty"`
	Status            types.AssignmentStatus `gorm:"default:'BOOKED'" json:"status"`

	Reservation     Reservation `json:"-"`
	PassengerClient *Client     `json:"passenger_client,omitempty"`

	// No soft delete here: a released seat must drop out of the
	// unique index immediately so the number can be rebound.
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

func (a *SeatAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
