package boot

import (
	"astraion/src/db"
	"astraion/src/lib"
	"astraion/src/models"
	"astraion/src/utils"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.BusType{},
		&models.Bus{},
		&models.Chauffeur{},
		&models.Client{},
		&models.Phone{},
		&models.ActivityEvent{},
		&models.Trip{},
		&models.TripSeat{},
		&models.Reservation{},
		&models.SeatAssignment{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go lib.KafkaCreateTopics("trip-events")
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	id, err := lib.CreateCronJob(utils.CloseExpiredTrips, 1*time.Hour)
	if err != nil {
		log.Printf("Error scheduling trip close job: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled trip close job: %s\n", *id)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}
