package main

import (
	"astraion/src/db"
	"astraion/src/models"
	"astraion/src/types"
	"astraion/src/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/reservations/:id", func(ctx *gin.Context) {
			resId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var reservation models.Reservation
			db := db.GetDb()
			err = db.
				Where(&models.Reservation{ID: resId}).
				Preload("Trip").
				Preload("ContactClient").
				Preload("Assignments", func(db *gorm.DB) *gorm.DB {
					return db.Order("seat_no asc")
				}).
				First(&reservation).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": reservation})
		}).
		PATCH("/reservations/:id", func(ctx *gin.Context) {
			resId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.AdjustReservationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := ctx.GetString("username")
			result, err := utils.AdjustReservation(resId, &body, managerOverride(ctx), actor)
			if err != nil {
				switch {
				case errors.Is(err, types.ErrInsufficientCapacity), errors.Is(err, types.ErrConcurrencyConflict):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, gorm.ErrRecordNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"reservation_id": result.ReservationID,
				"assigned_seats": result.AssignedSeats,
			})
		}).
		PUT("/reservations/:id/cancel", func(ctx *gin.Context) {
			resId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := ctx.GetString("username")
			if _, err := utils.CancelReservation(resId, actor); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
