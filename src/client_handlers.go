package main

import (
	"astraion/src/db"
	"astraion/src/models"
	"astraion/src/types"
	"astraion/src/utils"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func clientHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/clients", func(ctx *gin.Context) {
			var clients []models.Client
			db := db.GetDb()
			if err := db.
				Where(&models.Client{IsActive: true}).
				Order("last_name asc, first_name asc").
				Limit(100).
				Find(&clients).
				Error; err != nil {
				log.Printf("Error retrieving Clients: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": clients, "count": len(clients)})
		}).
		GET("/clients/:id", func(ctx *gin.Context) {
			clientId, err := uuid.Parse(ctx.Params.ByName("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var client models.Client
			db := db.GetDb()
			err = db.
				Where(&models.Client{ID: clientId}).
				Preload("Phones").
				First(&client).
				Error
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": client})
		}).
		POST("/clients", func(ctx *gin.Context) {
			var body types.CreateClientRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := utils.CreateNewClient(&body)
			if err != nil {
				log.Printf("error creating client: %s", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"id": id})
		})
	return g
}
