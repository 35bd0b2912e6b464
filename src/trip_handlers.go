package main

import (
	"astraion/src/db"
	"astraion/src/models"
	"astraion/src/types"
	"astraion/src/utils"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func tripHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/trips", func(ctx *gin.Context) {
			var trips []models.Trip
			db := db.GetDb()
			if err := db.
				Preload("Bus").
				Preload("Bus.BusType").
				Order("trip_date desc").
				Limit(100).
				Find(&trips).
				Error; err != nil {
				log.Printf("Error retrieving Trips: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": trips, "count": len(trips)})
		}).
		GET("/trips/:id", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			trip, err := utils.GetTrip(tripId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": trip})
		}).
		POST("/trips", func(ctx *gin.Context) {
			var body types.CreateTripRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := utils.CreateNewTrip(&body)
			if err != nil {
				log.Printf("error creating trip: %s", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		}).
		PATCH("/trips/:id/status", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateTripStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.UpdateTripStatus(tripId, types.TripStatus(body.Status)); err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/trips/:id/seats", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seats, assignments, err := utils.GetTripSeats(tripId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"seats": seats, "assignments": assignments})
		}).
		PATCH("/trips/:id/seats/:seatNo", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seatNo, err := strconv.Atoi(ctx.Params.ByName("seatNo"))
			if err != nil || seatNo < 1 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat number"})
				return
			}
			var body types.UpdateTripSeatRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seat, err := utils.UpdateTripSeat(tripId, seatNo, &body)
			if err != nil {
				switch {
				case errors.Is(err, types.ErrSeatInvalid):
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				case errors.Is(err, types.ErrSeatConflict):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": seat})
		}).
		POST("/trips/:id/reserve", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := ctx.GetString("username")
			result, err := utils.CreateReservation(tripId, &body, managerOverride(ctx), actor)
			if err != nil {
				switch {
				case errors.Is(err, types.ErrInsufficientCapacity), errors.Is(err, types.ErrConcurrencyConflict):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, gorm.ErrRecordNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
				case errors.Is(err, types.ErrSeatConflict), errors.Is(err, types.ErrSeatInvalid):
					// The engine picked these seats itself, a refusal
					// here is an internal consistency problem.
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": "allocation consistency error"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"reservation_id": result.ReservationID,
				"assigned_seats": result.AssignedSeats,
			})
		}).
		GET("/trips/:id/manifest", func(ctx *gin.Context) {
			tripId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			trip, err := utils.GetTrip(tripId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			rows, err := utils.TripManifest(tripId)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.Header("Content-Type", "text/csv")
			ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", utils.ManifestFilename(trip)))
			w := csv.NewWriter(ctx.Writer)
			if err := w.WriteAll(rows); err != nil {
				log.Printf("Error writing manifest for Trip [%s]: %s\n", tripId, err.Error())
			}
		})
	return g
}
