package utils

import (
	"astraion/src/common"
	"astraion/src/db"
	"astraion/src/models"
	"astraion/src/types"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All seat allocation for a single trip runs under one mutex: the
// free-seat scan and the subsequent binds must be atomic with respect
// to other allocation attempts on the same trip. Different trips
// proceed in parallel. The unique index on (trip_id, seat_no) catches
// writers outside this process; see mapConflict.
var tripLocks sync.Map

func lockTrip(tripId uuid.UUID) *sync.Mutex {
	v, _ := tripLocks.LoadOrStore(tripId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

func mapConflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.ErrConcurrencyConflict
	}
	return err
}

// FreeSeats returns the seat numbers of a trip that are not blocked
// and not currently assigned, in ascending order.
func FreeSeats(tx *gorm.DB, tripId uuid.UUID) ([]int, error) {
	assigned := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.SeatAssignment{}).
		Select("seat_no").
		Where("trip_id = ?", tripId)
	var seats []int
	err := tx.
		Model(&models.TripSeat{}).
		Where("trip_id = ? AND blocked = ?", tripId, false).
		Where("seat_no NOT IN (?)", assigned).
		Order("seat_no asc").
		Pluck("seat_no", &seats).
		Error
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// IsAssignable reports whether a seat number can receive a binding.
// excludeAssignment skips that assignment's own current binding so a
// move to the seat it already occupies is a no-op rather than a
// conflict.
func IsAssignable(tx *gorm.DB, tripId uuid.UUID, seatNo int, excludeAssignment *uuid.UUID) error {
	var seat models.TripSeat
	err := tx.
		Where(&models.TripSeat{TripID: tripId, SeatNo: seatNo}).
		First(&seat).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrSeatInvalid
		}
		return err
	}
	if seat.Blocked {
		return types.ErrSeatInvalid
	}
	q := tx.
		Model(&models.SeatAssignment{}).
		Where("trip_id = ? AND seat_no = ?", tripId, seatNo)
	if excludeAssignment != nil {
		q = q.Where("id <> ?", *excludeAssignment)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return types.ErrSeatConflict
	}
	return nil
}

// reconcile adjusts a reservation's ledger footprint to `want` seats.
// Growth binds the lowest free seat numbers in ascending order and
// binds as many as exist, reporting the shortfall; shrink releases the
// highest-numbered assignments first so low numbers are kept. The
// caller decides whether a shortfall is an error.
func reconcile(tx *gorm.DB, res *models.Reservation, want int) (events []types.ChangeEvent, shortfall int, err error) {
	var current int64
	err = tx.
		Model(&models.SeatAssignment{}).
		Where(&models.SeatAssignment{ReservationID: res.ID}).
		Count(&current).
		Error
	if err != nil {
		return nil, 0, err
	}

	need := want - int(current)
	tripChannel := common.TripChannel(res.TripID)

	if need > 0 {
		free, err := FreeSeats(tx, res.TripID)
		if err != nil {
			return nil, 0, err
		}
		take := need
		if take > len(free) {
			take = len(free)
		}
		for _, seatNo := range free[:take] {
			assignment := models.SeatAssignment{
				TripID:        res.TripID,
				SeatNo:        seatNo,
				ReservationID: res.ID,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return nil, 0, mapConflict(err)
			}
			events = append(events, types.ChangeEvent{
				Channel: tripChannel,
				Event:   types.EVENT_SEAT_ASSIGNED,
				Payload: map[string]any{"trip_id": res.TripID.String(), "seat_no": seatNo},
			})
		}
		shortfall = need - take
	} else if need < 0 {
		var victims []models.SeatAssignment
		err := tx.
			Where(&models.SeatAssignment{ReservationID: res.ID}).
			Order("seat_no desc").
			Limit(-need).
			Find(&victims).
			Error
		if err != nil {
			return nil, 0, err
		}
		for _, victim := range victims {
			if err := tx.Delete(&models.SeatAssignment{}, "id = ?", victim.ID).Error; err != nil {
				return nil, 0, err
			}
			events = append(events, types.ChangeEvent{
				Channel: tripChannel,
				Event:   types.EVENT_SEAT_RELEASED,
				Payload: map[string]any{"trip_id": res.TripID.String(), "seat_no": victim.SeatNo},
			})
		}
	}
	return events, shortfall, nil
}

// AllocationResult is what reservation mutations hand back to the
// HTTP layer: the reservation id and its full seat footprint after
// the call, ascending.
type AllocationResult struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	AssignedSeats []int     `json:"assigned_seats"`
}

func assignedSeatNumbers(tx *gorm.DB, resId uuid.UUID) ([]int, error) {
	seats := []int{}
	err := tx.
		Model(&models.SeatAssignment{}).
		Where(&models.SeatAssignment{ReservationID: resId}).
		Order("seat_no asc").
		Pluck("seat_no", &seats).
		Error
	return seats, err
}

func reservationClientIds(tx *gorm.DB, res *models.Reservation) []string {
	ids := []string{}
	if res.ContactClientID != nil {
		ids = append(ids, res.ContactClientID.String())
	}
	var passengerIds []uuid.UUID
	err := tx.
		Model(&models.SeatAssignment{}).
		Where("reservation_id = ? AND passenger_client_id IS NOT NULL", res.ID).
		Pluck("passenger_client_id", &passengerIds).
		Error
	if err != nil {
		log.Printf("Error collecting passenger clients for Reservation [%s]: %s\n", res.ID, err.Error())
	}
	for _, id := range passengerIds {
		ids = append(ids, id.String())
	}
	return ids
}

// reservationEvents builds the reservation.updated fan-out: always to
// the trip channel, to the clients channel when a client is referenced,
// and a coarse dashboard ping.
func reservationEvents(tx *gorm.DB, res *models.Reservation) []types.ChangeEvent {
	clientIds := reservationClientIds(tx, res)
	payload := map[string]any{
		"trip_id":        res.TripID.String(),
		"reservation_id": res.ID.String(),
		"status":         res.Status,
		"client_ids":     clientIds,
	}
	events := []types.ChangeEvent{{
		Channel: common.TripChannel(res.TripID),
		Event:   types.EVENT_RESERVATION_UPDATED,
		Payload: payload,
	}}
	if len(clientIds) > 0 {
		events = append(events, types.ChangeEvent{
			Channel: common.ChannelClients,
			Event:   types.EVENT_RESERVATION_UPDATED,
			Payload: payload,
		})
	}
	events = append(events, types.ChangeEvent{
		Channel: common.ChannelDashboard,
		Event:   types.EVENT_DATA_CHANGED,
		Payload: map[string]any{},
	})
	return events
}

// CreateReservation persists a reservation and allocates its seats in
// one transaction. Without override a shortfall rolls the whole thing
// back, reservation row included, and reports InsufficientCapacity;
// with override the reservation keeps whatever could be bound, which
// may be nothing on a full trip.
func CreateReservation(tripId uuid.UUID, params *types.CreateReservationRequestBody, override bool, actor string) (*AllocationResult, error) {
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", params.Quantity)
	}
	mu := lockTrip(tripId)
	defer mu.Unlock()

	var result AllocationResult
	var events []types.ChangeEvent
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var trip models.Trip
		if err := tx.Where(&models.Trip{ID: tripId}).First(&trip).Error; err != nil {
			return err
		}
		if trip.Status == types.TRIP_CANCELLED {
			return fmt.Errorf("trip [%s] is cancelled", tripId)
		}
		reservation := models.Reservation{
			TripID:          tripId,
			Quantity:        params.Quantity,
			ContactClientID: params.ContactClientID,
			Notes:           params.Notes,
			Status:          types.RESERVATION_HOLD,
			CreatedBy:       actor,
			UpdatedBy:       actor,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return err
		}
		seatEvents, shortfall, err := reconcile(tx, &reservation, params.Quantity)
		if err != nil {
			return err
		}
		if shortfall > 0 && !override {
			return types.ErrInsufficientCapacity
		}
		seats, err := assignedSeatNumbers(tx, reservation.ID)
		if err != nil {
			return err
		}
		activity := models.ActivityEvent{
			EventType: "reservation.created",
			ClientID:  params.ContactClientID,
			Data: types.JSONB{
				"trip_id":        tripId.String(),
				"reservation_id": reservation.ID.String(),
				"quantity":       params.Quantity,
				"assigned":       len(seats),
			},
		}
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}
		result = AllocationResult{ReservationID: reservation.ID, AssignedSeats: seats}
		events = append(seatEvents, reservationEvents(tx, &reservation)...)
		return nil
	})
	if err != nil {
		log.Printf("CreateReservation failed for Trip [%s]: %s\n", tripId, err.Error())
		return nil, mapConflict(err)
	}
	common.Publish(events...)
	return &result, nil
}

// AdjustReservation applies quantity/status/contact/notes changes.
// The call is all-or-nothing: a growth shortfall without override
// rolls back every change, leaving the prior assignments untouched.
func AdjustReservation(resId uuid.UUID, params *types.AdjustReservationRequestBody, override bool, actor string) (*AllocationResult, error) {
	var probe models.Reservation
	db := db.GetDb()
	if err := db.Select("id", "trip_id").Where(&models.Reservation{ID: resId}).First(&probe).Error; err != nil {
		return nil, err
	}
	mu := lockTrip(probe.TripID)
	defer mu.Unlock()

	var result AllocationResult
	var events []types.ChangeEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		var res models.Reservation
		if err := tx.Where(&models.Reservation{ID: resId}).First(&res).Error; err != nil {
			return err
		}

		cancelling := false
		if params.Status != nil {
			newStatus := types.ReservationStatus(*params.Status)
			if res.Status == types.RESERVATION_CANCELLED && newStatus != types.RESERVATION_CANCELLED {
				return errors.New("a cancelled reservation cannot be reopened")
			}
			cancelling = newStatus == types.RESERVATION_CANCELLED
			res.Status = newStatus
		}
		if params.ContactClientID != nil {
			res.ContactClientID = params.ContactClientID
		}
		if params.Notes != nil {
			res.Notes = *params.Notes
		}
		res.UpdatedBy = actor

		if params.Quantity != nil && !cancelling {
			if res.Status == types.RESERVATION_CANCELLED {
				return errors.New("cannot change quantity of a cancelled reservation")
			}
			res.Quantity = *params.Quantity
			seatEvents, shortfall, err := reconcile(tx, &res, *params.Quantity)
			if err != nil {
				return err
			}
			if shortfall > 0 && !override {
				return types.ErrInsufficientCapacity
			}
			events = append(events, seatEvents...)
		}
		if cancelling {
			seatEvents, _, err := reconcile(tx, &res, 0)
			if err != nil {
				return err
			}
			events = append(events, seatEvents...)
		}

		if err := tx.Save(&res).Error; err != nil {
			return err
		}
		seats, err := assignedSeatNumbers(tx, res.ID)
		if err != nil {
			return err
		}
		result = AllocationResult{ReservationID: res.ID, AssignedSeats: seats}
		events = append(events, reservationEvents(tx, &res)...)
		return nil
	})
	if err != nil {
		log.Printf("AdjustReservation failed for Reservation [%s]: %s\n", resId, err.Error())
		events = nil
		return nil, mapConflict(err)
	}
	common.Publish(events...)
	return &result, nil
}

// CancelReservation releases every assignment and marks the
// reservation CANCELLED. Cancelling twice is a no-op.
func CancelReservation(resId uuid.UUID, actor string) (*AllocationResult, error) {
	status := string(types.RESERVATION_CANCELLED)
	return AdjustReservation(resId, &types.AdjustReservationRequestBody{Status: &status}, false, actor)
}

// MoveSeat rebinds an assignment to a new seat number on the same
// trip. The record keeps its identity, passenger fields and
// reservation link; observers see the old number released and the new
// one assigned.
func MoveSeat(assignmentId uuid.UUID, newSeatNo int) (*models.SeatAssignment, error) {
	db := db.GetDb()
	var probe models.SeatAssignment
	if err := db.Select("id", "trip_id").Where(&models.SeatAssignment{ID: assignmentId}).First(&probe).Error; err != nil {
		return nil, err
	}
	mu := lockTrip(probe.TripID)
	defer mu.Unlock()

	var moved models.SeatAssignment
	var events []types.ChangeEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		var assignment models.SeatAssignment
		if err := tx.Where(&models.SeatAssignment{ID: assignmentId}).First(&assignment).Error; err != nil {
			return err
		}
		if assignment.SeatNo == newSeatNo {
			moved = assignment
			return nil
		}
		if err := IsAssignable(tx, assignment.TripID, newSeatNo, &assignment.ID); err != nil {
			return err
		}
		oldSeatNo := assignment.SeatNo
		assignment.SeatNo = newSeatNo
		if err := tx.Save(&assignment).Error; err != nil {
			return mapConflict(err)
		}
		moved = assignment

		tripChannel := common.TripChannel(assignment.TripID)
		events = append(events,
			types.ChangeEvent{
				Channel: tripChannel,
				Event:   types.EVENT_SEAT_RELEASED,
				Payload: map[string]any{"trip_id": assignment.TripID.String(), "seat_no": oldSeatNo},
			},
			types.ChangeEvent{
				Channel: tripChannel,
				Event:   types.EVENT_SEAT_ASSIGNED,
				Payload: map[string]any{"trip_id": assignment.TripID.String(), "seat_no": newSeatNo},
			},
		)
		var res models.Reservation
		if err := tx.Where(&models.Reservation{ID: assignment.ReservationID}).First(&res).Error; err != nil {
			return err
		}
		events = append(events, reservationEvents(tx, &res)...)
		return nil
	})
	if err != nil {
		log.Printf("MoveSeat failed for Assignment [%s]: %s\n", assignmentId, err.Error())
		return nil, err
	}
	common.Publish(events...)
	return &moved, nil
}

// UpdateAssignmentPassenger edits the inline passenger fields of a
// ledger entry in place, optionally moving the seat in the same call.
func UpdateAssignmentPassenger(assignmentId uuid.UUID, params *types.UpdateAssignmentRequestBody) (*models.SeatAssignment, error) {
	if params.SeatNo != nil {
		if _, err := MoveSeat(assignmentId, *params.SeatNo); err != nil {
			return nil, err
		}
	}
	db := db.GetDb()
	var updated models.SeatAssignment
	var events []types.ChangeEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		var assignment models.SeatAssignment
		if err := tx.Where(&models.SeatAssignment{ID: assignmentId}).First(&assignment).Error; err != nil {
			return err
		}
		if params.FirstName != nil {
			assignment.FirstName = *params.FirstName
		}
		if params.LastName != nil {
			assignment.LastName = *params.LastName
		}
		if params.Phone != nil {
			assignment.Phone = *params.Phone
		}
		if params.PassportID != nil {
			assignment.PassportID = *params.PassportID
		}
		if params.PassengerClientID != nil {
			assignment.PassengerClientID = params.PassengerClientID
		}
		if err := tx.Save(&assignment).Error; err != nil {
			return err
		}
		updated = assignment
		var res models.Reservation
		if err := tx.Where(&models.Reservation{ID: assignment.ReservationID}).First(&res).Error; err != nil {
			return err
		}
		events = reservationEvents(tx, &res)
		return nil
	})
	if err != nil {
		log.Printf("UpdateAssignmentPassenger failed for Assignment [%s]: %s\n", assignmentId, err.Error())
		return nil, err
	}
	common.Publish(events...)
	return &updated, nil
}
