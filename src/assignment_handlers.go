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

func assignmentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/assignments/:id", func(ctx *gin.Context) {
			assignmentId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var assignment models.SeatAssignment
			db := db.GetDb()
			err = db.
				Where(&models.SeatAssignment{ID: assignmentId}).
				Preload("PassengerClient").
				First(&assignment).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": assignment})
		}).
		PATCH("/assignments/:id", func(ctx *gin.Context) {
			assignmentId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateAssignmentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			assignment, err := utils.UpdateAssignmentPassenger(assignmentId, &body)
			if err != nil {
				switch {
				case errors.Is(err, types.ErrSeatConflict), errors.Is(err, types.ErrConcurrencyConflict):
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				case errors.Is(err, types.ErrSeatInvalid):
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				case errors.Is(err, gorm.ErrRecordNotFound):
					ctx.JSON(http.StatusNotFound, gin.H{"error": "assignment not found"})
				default:
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				}
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": assignment})
		})
	return g
}
