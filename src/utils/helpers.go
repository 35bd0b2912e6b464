package utils

import (
	"astraion/src/common"
	"astraion/src/config"
	"astraion/src/db"
	"astraion/src/models"
	"astraion/src/types"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// InitializeSeats creates the trip's fixed seat inventory, numbered
// 1..capacity. It refuses to run twice for the same trip: capacity is
// fixed at creation and never adjusted later.
func InitializeSeats(tx *gorm.DB, tripId uuid.UUID, capacity int) error {
	if capacity < 1 {
		return fmt.Errorf("invalid seat capacity %d for trip [%s]", capacity, tripId)
	}
	var existing int64
	if err := tx.Model(&models.TripSeat{}).Where("trip_id = ?", tripId).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fmt.Errorf("seats already initialized for trip [%s]", tripId)
	}
	seats := make([]models.TripSeat, 0, capacity)
	for i := 1; i <= capacity; i++ {
		seats = append(seats, models.TripSeat{TripID: tripId, SeatNo: i})
	}
	return tx.Create(&seats).Error
}

// CreateNewTrip persists the trip and its seat inventory atomically.
// Capacity comes from the assigned bus's type at this moment; swapping
// the bus later does not resize the inventory.
func CreateNewTrip(params *types.CreateTripRequestBody) (uuid.UUID, error) {
	tripDate, err := time.Parse(config.DATE_PARSE_FORMAT, params.TripDate)
	if err != nil {
		return uuid.Nil, err
	}
	status := types.TRIP_DRAFT
	if params.Publish {
		status = types.TRIP_OPEN
	}
	var tripId uuid.UUID
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var bus models.Bus
		if err := tx.Where(&models.Bus{ID: params.BusID}).Preload("BusType").First(&bus).Error; err != nil {
			return err
		}
		trip := models.Trip{
			TripDate:      tripDate,
			Origin:        params.Origin,
			Destination:   params.Destination,
			DepartureTime: params.DepartureTime,
			ReturnTime:    params.ReturnTime,
			Price:         params.Price,
			BusID:         bus.ID,
			ChauffeurID:   params.ChauffeurID,
			Status:        status,
			Notes:         params.Notes,
		}
		if err := tx.Create(&trip).Error; err != nil {
			return err
		}
		if err := InitializeSeats(tx, trip.ID, bus.BusType.SeatsCount); err != nil {
			return err
		}
		tripId = trip.ID
		return nil
	})
	if err != nil {
		log.Printf("CreateNewTrip failed: %s\n", err.Error())
		return uuid.Nil, err
	}
	common.Publish(types.ChangeEvent{
		Channel: common.ChannelDashboard,
		Event:   types.EVENT_DATA_CHANGED,
		Payload: map[string]any{},
	})
	return tripId, nil
}

func GetTrip(id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	db := db.GetDb()
	if err := db.Where(&models.Trip{ID: id}).Preload("Bus").Preload("Bus.BusType").First(&trip).Error; err != nil {
		return nil, errors.New("trip not found")
	}
	return &trip, nil
}

// GetTripSeats returns the canonical seat inventory plus the current
// assignments, both in ascending seat order.
func GetTripSeats(tripId uuid.UUID) ([]models.TripSeat, []models.SeatAssignment, error) {
	db := db.GetDb()
	var seats []models.TripSeat
	err := db.
		Where(&models.TripSeat{TripID: tripId}).
		Order("seat_no asc").
		Find(&seats).
		Error
	if err != nil {
		return nil, nil, err
	}
	if len(seats) == 0 {
		return nil, nil, errors.New("trip not found")
	}
	var assignments []models.SeatAssignment
	err = db.
		Where(&models.SeatAssignment{TripID: tripId}).
		Order("seat_no asc").
		Find(&assignments).
		Error
	if err != nil {
		return nil, nil, err
	}
	return seats, assignments, nil
}

// UpdateTripSeat toggles the blocked flag or edits the note of one
// inventory seat. Blocking a currently assigned seat is refused, the
// assigned set must stay a subset of the unblocked set.
func UpdateTripSeat(tripId uuid.UUID, seatNo int, params *types.UpdateTripSeatRequestBody) (*models.TripSeat, error) {
	mu := lockTrip(tripId)
	defer mu.Unlock()

	var seat models.TripSeat
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.TripSeat{TripID: tripId, SeatNo: seatNo}).First(&seat).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrSeatInvalid
			}
			return err
		}
		if params.Blocked != nil && *params.Blocked && !seat.Blocked {
			var bound int64
			err := tx.
				Model(&models.SeatAssignment{}).
				Where("trip_id = ? AND seat_no = ?", tripId, seatNo).
				Count(&bound).
				Error
			if err != nil {
				return err
			}
			if bound > 0 {
				return types.ErrSeatConflict
			}
		}
		if params.Blocked != nil {
			seat.Blocked = *params.Blocked
		}
		if params.Note != nil {
			seat.Note = *params.Note
		}
		return tx.Save(&seat).Error
	})
	if err != nil {
		log.Printf("UpdateTripSeat failed for Trip [%s] seat %d: %s\n", tripId, seatNo, err.Error())
		return nil, err
	}
	common.Publish(
		types.ChangeEvent{
			Channel: common.TripChannel(tripId),
			Event:   types.EVENT_SEAT_UPDATED,
			Payload: map[string]any{"trip_id": tripId.String(), "seat_no": seatNo, "blocked": seat.Blocked},
		},
		types.ChangeEvent{
			Channel: common.ChannelDashboard,
			Event:   types.EVENT_DATA_CHANGED,
			Payload: map[string]any{},
		},
	)
	return &seat, nil
}

func UpdateTripStatus(id uuid.UUID, newStatus types.TripStatus) error {
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.Trip{}).
			Where("id = ?", id).
			Update("status", newStatus)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("trip not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	common.Publish(types.ChangeEvent{
		Channel: common.ChannelDashboard,
		Event:   types.EVENT_DATA_CHANGED,
		Payload: map[string]any{},
	})
	return nil
}

// CloseExpiredTrips moves OPEN trips whose date has passed to CLOSED.
// Runs from the scheduler.
func CloseExpiredTrips() {
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.Trip{}).
			Where("status = ? AND trip_date < ?", types.TRIP_OPEN, time.Now().Truncate(24*time.Hour)).
			Update("status", types.TRIP_CLOSED).
			Error
	})
	if err != nil {
		log.Printf("Error while closing expired trips: %s\n", err.Error())
	}
}

// TripManifest returns one row per canonical seat of the trip, empty
// seats included, with inline passenger fields preferred over the
// linked client's details.
func TripManifest(tripId uuid.UUID) ([][]string, error) {
	db := db.GetDb()
	var seats []models.TripSeat
	err := db.
		Where(&models.TripSeat{TripID: tripId}).
		Order("seat_no asc").
		Find(&seats).
		Error
	if err != nil {
		return nil, err
	}
	if len(seats) == 0 {
		return nil, errors.New("trip not found")
	}
	var assignments []models.SeatAssignment
	err = db.
		Where(&models.SeatAssignment{TripID: tripId}).
		Preload("PassengerClient").
		Preload("PassengerClient.Phones").
		Find(&assignments).
		Error
	if err != nil {
		return nil, err
	}
	bySeat := make(map[int]models.SeatAssignment, len(assignments))
	for _, a := range assignments {
		bySeat[a.SeatNo] = a
	}

	rows := [][]string{{"Seat", "FirstName", "LastName", "Phone", "PassportID", "Status"}}
	for _, seat := range seats {
		a, ok := bySeat[seat.SeatNo]
		if !ok {
			rows = append(rows, []string{fmt.Sprintf("%d", seat.SeatNo), "", "", "", "", ""})
			continue
		}
		firstName := a.FirstName
		lastName := a.LastName
		phone := a.Phone
		passport := a.PassportID
		if client := a.PassengerClient; client != nil {
			if firstName == "" {
				firstName = client.FirstName
			}
			if lastName == "" {
				lastName = client.LastName
			}
			if passport == "" {
				passport = client.PassportID
			}
			if phone == "" {
				for _, p := range client.Phones {
					phone = p.E164
					if p.IsPrimary {
						break
					}
				}
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", seat.SeatNo), firstName, lastName, phone, passport, string(a.Status),
		})
	}
	return rows, nil
}

func ManifestFilename(trip *models.Trip) string {
	base := slug.Make(fmt.Sprintf("manifest %s %s %s", trip.TripDate.Format(config.DATE_PARSE_FORMAT), trip.Destination, trip.ID))
	return fmt.Sprintf("%s.csv", base)
}

func CreateNewClient(params *types.CreateClientRequestBody) (uuid.UUID, error) {
	client := models.Client{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		PassportID:  params.PassportID,
		Nationality: params.Nationality,
		Notes:       params.Notes,
		IsActive:    true,
	}
	if params.BirthDate != nil {
		birthDate, err := time.Parse(config.DATE_PARSE_FORMAT, *params.BirthDate)
		if err != nil {
			return uuid.Nil, err
		}
		client.BirthDate = &birthDate
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		activity := models.ActivityEvent{
			EventType: "client.created",
			ClientID:  &client.ID,
		}
		return tx.Create(&activity).Error
	})
	if err != nil {
		log.Printf("CreateNewClient failed: %s\n", err.Error())
		return uuid.Nil, err
	}
	common.Publish(
		types.ChangeEvent{
			Channel: common.ChannelClients,
			Event:   types.EVENT_CLIENT_UPDATED,
			Payload: map[string]any{"client_id": client.ID.String()},
		},
		types.ChangeEvent{
			Channel: common.ChannelDashboard,
			Event:   types.EVENT_DATA_CHANGED,
			Payload: map[string]any{},
		},
	)
	return client.ID, nil
}
