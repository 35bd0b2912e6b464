package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type TripStatus string

const (
	TRIP_DRAFT     TripStatus = "DRAFT"
	TRIP_OPEN      TripStatus = "OPEN"
	TRIP_CLOSED    TripStatus = "CLOSED"
	TRIP_CANCELLED TripStatus = "CANCELLED"
)

type ReservationStatus string

const (
	RESERVATION_HOLD      ReservationStatus = "HOLD"
	RESERVATION_TENTATIVE ReservationStatus = "TENTATIVE"
	RESERVATION_CONFIRMED ReservationStatus = "CONFIRMED"
	RESERVATION_CANCELLED ReservationStatus = "CANCELLED"
	RESERVATION_NO_SHOW   ReservationStatus = "NO_SHOW"
)

type AssignmentStatus string

const (
	ASSIGNMENT_BOOKED     AssignmentStatus = "BOOKED"
	ASSIGNMENT_CHECKED_IN AssignmentStatus = "CHECKED_IN"
)

// ChangeEvent is the unit handed to the Change Notifier after a
// successful mutation. Channel is a socket.io room name.
type ChangeEvent struct {
	Channel string         `json:"channel"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

const (
	EVENT_SEAT_ASSIGNED       = "seat.assigned"
	EVENT_SEAT_RELEASED       = "seat.released"
	EVENT_SEAT_UPDATED        = "seat.updated"
	EVENT_RESERVATION_UPDATED = "reservation.updated"
	EVENT_CLIENT_UPDATED      = "client.updated"
	EVENT_DATA_CHANGED        = "data.changed"
)

type CreateTripRequestBody struct {
	TripDate      string     `json:"trip_date" binding:"required,tripdate"`
	Origin        string     `json:"origin" binding:"required"`
	Destination   string     `json:"destination" binding:"required"`
	DepartureTime *string    `json:"departure_time,omitempty"`
	ReturnTime    *string    `json:"return_time,omitempty"`
	Price         float32    `json:"price,omitempty"`
	BusID         uuid.UUID  `json:"bus" binding:"required"`
	ChauffeurID   *uuid.UUID `json:"chauffeur,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Publish       bool       `json:"publish,omitempty"`
}

type CreateReservationRequestBody struct {
	Quantity        int        `json:"quantity" binding:"required,gt=0"`
	ContactClientID *uuid.UUID `json:"contact_client_id,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

type AdjustReservationRequestBody struct {
	Quantity        *int       `json:"quantity,omitempty" binding:"omitempty,gte=0"`
	Status          *string    `json:"status,omitempty" binding:"omitempty,oneof=HOLD TENTATIVE CONFIRMED CANCELLED NO_SHOW"`
	ContactClientID *uuid.UUID `json:"contact_client_id,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

type UpdateAssignmentRequestBody struct {
	SeatNo            *int       `json:"seat_no,omitempty" binding:"omitempty,gt=0"`
	FirstName         *string    `json:"first_name,omitempty"`
	LastName          *string    `json:"last_name,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	PassportID        *string    `json:"passport_id,omitempty"`
	PassengerClientID *uuid.UUID `json:"passenger_client_id,omitempty"`
}

type UpdateTripSeatRequestBody struct {
	Blocked *bool   `json:"blocked,omitempty"`
	Note    *string `json:"note,omitempty"`
}

type UpdateTripStatusRequestBody struct {
	Status string `json:"status" binding:"required,oneof=DRAFT OPEN CLOSED CANCELLED"`
}

type CreateClientRequestBody struct {
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	Email       string  `json:"email,omitempty" binding:"omitempty,email"`
	PassportID  string  `json:"passport_id,omitempty"`
	Nationality string  `json:"nationality,omitempty"`
	BirthDate   *string `json:"birth_date,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
