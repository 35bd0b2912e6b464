package main

import (
	"astraion/src/config"
	"astraion/src/db"
	"astraion/src/middlewares"
	"astraion/src/models"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ApiTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func (s *ApiTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open("file:api?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	err = conn.AutoMigrate(
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
	s.Require().NoError(err)
	s.db = conn
	db.NewDB(conn)

	registerValidators()
	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware)
	tripHandlers(authorized)
	reservationHandlers(authorized)
	assignmentHandlers(authorized)
	clientHandlers(authorized)
	s.router = router

	token, err := generateJWT("tester")
	s.Require().NoError(err)
	s.token = token
}

func (s *ApiTestSuite) request(method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *ApiTestSuite) newBus(capacity int) uuid.UUID {
	busType := models.BusType{Name: fmt.Sprintf("type-%s", uuid.NewString()[:8]), SeatsCount: capacity}
	s.Require().NoError(s.db.Create(&busType).Error)
	bus := models.Bus{Plate: uuid.NewString(), BusTypeID: busType.ID, Active: true}
	s.Require().NoError(s.db.Create(&bus).Error)
	return bus.ID
}

func (s *ApiTestSuite) createTrip(capacity int) string {
	busId := s.newBus(capacity)
	w := s.request(http.MethodPost, "/api/v1/trips", gin.H{
		"trip_date":   time.Now().AddDate(0, 0, 14).Format(config.DATE_PARSE_FORMAT),
		"origin":      "Kutaisi",
		"destination": "Mestia",
		"bus":         busId,
		"publish":     true,
	}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return gjson.Get(w.Body.String(), "id").String()
}

func (s *ApiTestSuite) TestPingRoute() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
}

func (s *ApiTestSuite) TestRequestsWithoutTokenAreRejected() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ApiTestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	w := s.request(http.MethodGet, "/api/v1/trips", nil, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *ApiTestSuite) TestCreateTripRejectsPastDates() {
	busId := s.newBus(4)
	w := s.request(http.MethodPost, "/api/v1/trips", gin.H{
		"trip_date":   "2020-01-01",
		"origin":      "Kutaisi",
		"destination": "Mestia",
		"bus":         busId,
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ApiTestSuite) TestTripLifecycleOverHttp() {
	tripId := s.createTrip(4)

	w := s.request(http.MethodGet, fmt.Sprintf("/api/v1/trips/%s", tripId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("OPEN", gjson.Get(w.Body.String(), "data.status").String())

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/trips/%s/seats", tripId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(4, gjson.Get(w.Body.String(), "seats.#").Int())

	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/trips/%s/status", tripId), gin.H{"status": "CLOSED"}, nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *ApiTestSuite) TestReserveAndAdjustOverHttp() {
	tripId := s.createTrip(3)

	w := s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 2}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := w.Body.String()
	resId := gjson.Get(body, "reservation_id").String()
	s.Equal(int64(1), gjson.Get(body, "assigned_seats.0").Int())
	s.Equal(int64(2), gjson.Get(body, "assigned_seats.1").Int())

	// growing past capacity without the override header is refused
	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/reservations/%s", resId), gin.H{"quantity": 5}, nil)
	s.Equal(http.StatusConflict, w.Code)

	// with the override header the grow keeps what could be bound
	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/reservations/%s", resId), gin.H{"quantity": 5},
		map[string]string{"X-Manager-Override": "true"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.EqualValues(3, gjson.Get(w.Body.String(), "assigned_seats.#").Int())

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%s", resId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("HOLD", gjson.Get(w.Body.String(), "data.status").String())

	w = s.request(http.MethodPut, fmt.Sprintf("/api/v1/reservations/%s/cancel", resId), nil, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%s", resId), nil, nil)
	s.Equal("CANCELLED", gjson.Get(w.Body.String(), "data.status").String())
	s.EqualValues(0, gjson.Get(w.Body.String(), "data.assignments.#").Int())
}

func (s *ApiTestSuite) TestOverbookOverHttp() {
	tripId := s.createTrip(2)

	w := s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 2}, nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 1}, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 1},
		map[string]string{"X-Manager-Override": "true"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.EqualValues(0, gjson.Get(w.Body.String(), "assigned_seats.#").Int())
}

func (s *ApiTestSuite) TestSeatMoveOverHttp() {
	tripId := s.createTrip(4)

	w := s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 1}, nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	resId := gjson.Get(w.Body.String(), "reservation_id").String()

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/reservations/%s", resId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	assignmentId := gjson.Get(w.Body.String(), "data.assignments.0.id").String()

	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%s", assignmentId),
		gin.H{"seat_no": 3, "first_name": "Irakli"}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.EqualValues(3, gjson.Get(w.Body.String(), "data.seat_no").Int())
	s.Equal("Irakli", gjson.Get(w.Body.String(), "data.first_name").String())

	// a move to a nonexistent seat is a client error
	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/assignments/%s", assignmentId), gin.H{"seat_no": 42}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ApiTestSuite) TestBlockSeatOverHttp() {
	tripId := s.createTrip(3)

	w := s.request(http.MethodPatch, fmt.Sprintf("/api/v1/trips/%s/seats/2", tripId), gin.H{"blocked": true}, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.True(gjson.Get(w.Body.String(), "data.blocked").Bool())

	w = s.request(http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/reserve", tripId), gin.H{"quantity": 2}, nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(int64(1), gjson.Get(w.Body.String(), "assigned_seats.0").Int())
	s.Equal(int64(3), gjson.Get(w.Body.String(), "assigned_seats.1").Int())

	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/trips/%s/seats/1", tripId), gin.H{"blocked": true}, nil)
	s.Equal(http.StatusConflict, w.Code, "blocking an assigned seat is refused")

	w = s.request(http.MethodPatch, fmt.Sprintf("/api/v1/trips/%s/seats/99", tripId), gin.H{"blocked": true}, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ApiTestSuite) TestManifestOverHttp() {
	tripId := s.createTrip(2)

	w := s.request(http.MethodGet, fmt.Sprintf("/api/v1/trips/%s/manifest", tripId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("text/csv", w.Header().Get("Content-Type"))
	s.Contains(w.Header().Get("Content-Disposition"), "attachment; filename=manifest-")
	s.Contains(w.Body.String(), "Seat,FirstName,LastName,Phone,PassportID,Status")
}

func (s *ApiTestSuite) TestClientEndpoints() {
	w := s.request(http.MethodPost, "/api/v1/clients", gin.H{
		"first_name": "Tamar",
		"last_name":  "Gelashvili",
		"email":      "tamar@example.com",
	}, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	clientId := gjson.Get(w.Body.String(), "id").String()

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/clients/%s", clientId), nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Tamar", gjson.Get(w.Body.String(), "data.first_name").String())

	w = s.request(http.MethodGet, "/api/v1/clients", nil, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.GreaterOrEqual(gjson.Get(w.Body.String(), "count").Int(), int64(1))

	w = s.request(http.MethodPost, "/api/v1/clients", gin.H{"first_name": "NoLastName"}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}
