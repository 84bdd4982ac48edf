package controller

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"appointmenthub_backend/internal/model"
)

func futureDate() string {
	return time.Now().AddDate(0, 0, 14).Format("2006-01-02")
}

func TestCreateBookingFreezesTotals(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	req := authedRequest(t, "POST", "/api/bookings", fiber.Map{
		"service_id":   service.ID,
		"booking_date": futureDate(),
		"start_time":   "10:00",
		"end_time":     "11:00",
	}, client)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	booking := body["booking"].(map[string]interface{})
	assert.Equal(t, 65.00, booking["total_amount"])
	assert.Equal(t, 0.0, booking["advance_payment_amount"])
	assert.Equal(t, "pending", booking["status"])
	assert.Equal(t, "unpaid", booking["payment_status"])

	var count int64
	db.Model(&model.Booking{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateBookingDuplicateSlotConflicts(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	first := createTestUser(t, db, model.RoleClient, "")
	second := createTestUser(t, db, model.RoleClient, "")

	payload := fiber.Map{
		"service_id":   service.ID,
		"booking_date": futureDate(),
		"start_time":   "10:00",
		"end_time":     "11:00",
	}

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookings", payload, first), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "POST", "/api/bookings", payload, second), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// The rejected attempt must not leave a row behind
	var count int64
	db.Model(&model.Booking{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCreateBookingPersonsOutOfRange(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store) // min=1 max=1
	client := createTestUser(t, db, model.RoleClient, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookings", fiber.Map{
		"service_id":        service.ID,
		"booking_date":      futureDate(),
		"start_time":        "10:00",
		"end_time":          "11:00",
		"number_of_persons": 3,
	}, client), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateBookingRejectsPast(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookings", fiber.Map{
		"service_id":   service.ID,
		"booking_date": time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
		"start_time":   "10:00",
		"end_time":     "11:00",
	}, client), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCancelBookingGuards(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingPending,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	resp, err := app.Test(authedRequest(t, "POST", "/api/bookings/"+booking.ID+"/cancel", nil, client), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A cancelled booking cannot be cancelled again
	resp, err = app.Test(authedRequest(t, "POST", "/api/bookings/"+booking.ID+"/cancel", nil, client), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestConfirmBookingOnlyPending(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingPending,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	// Clients cannot confirm at all
	resp, err := app.Test(authedRequest(t, "POST", "/api/bookings/"+booking.ID+"/confirm", nil, client), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(authedRequest(t, "POST", "/api/bookings/"+booking.ID+"/confirm", nil, manager), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Confirming twice conflicts
	resp, err = app.Test(authedRequest(t, "POST", "/api/bookings/"+booking.ID+"/confirm", nil, manager), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestClientRescheduleForcesStatus(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingConfirmed,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	resp, err := app.Test(authedRequest(t, "PUT", "/api/bookings/"+booking.ID, fiber.Map{
		"booking_date": time.Now().AddDate(0, 0, 21).Format("2006-01-02"),
		"start_time":   "15:00",
		"end_time":     "16:00",
	}, client), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingRescheduled, reloaded.Status)
	assert.Equal(t, "15:00", reloaded.StartTime)
}

func TestClientCannotSetStatuses(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingPending,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	resp, err := app.Test(authedRequest(t, "PUT", "/api/bookings/"+booking.ID, fiber.Map{
		"status": "confirmed",
	}, client), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestLockForUpdateEmitsRowLocks(t *testing.T) {
	// DryRun renders SQL without touching a server, so a Postgres handle can
	// be opened against a non-existent host.
	db, err := gorm.Open(postgres.Open("host=localhost user=test dbname=test"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	count, err := conflictingSlotCount(db, "svc-1", time.Now(), "10:00", "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var bookings []model.Booking
	tx := lockForUpdate(db).Where("service_id = ?", "svc-1").Find(&bookings)
	require.NoError(t, tx.Error)
	assert.Contains(t, tx.Statement.SQL.String(), "FOR UPDATE")
}

func TestLockForUpdateSkipsSQLite(t *testing.T) {
	db := setupTestDB(t)

	var bookings []model.Booking
	tx := lockForUpdate(db.Session(&gorm.Session{DryRun: true})).Find(&bookings)
	require.NoError(t, tx.Error)
	assert.NotContains(t, tx.Statement.SQL.String(), "FOR UPDATE")
}

func TestManagerCannotMoveCancelledBooking(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingCancelled,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	resp, err := app.Test(authedRequest(t, "PUT", "/api/bookings/"+booking.ID, fiber.Map{
		"booking_date": time.Now().AddDate(0, 0, 21).Format("2006-01-02"),
	}, manager), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingCancelled, reloaded.Status)
	assert.Equal(t, "10:00", reloaded.StartTime)
}

func TestManagerRescheduleForcesStatus(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:      store.ID,
		ClientUserID: client.ID,
		ServiceID:    service.ID,
		BookingDate:  time.Now().AddDate(0, 0, 7),
		StartTime:    "10:00",
		EndTime:      "11:00",
		Status:       model.BookingConfirmed,
		TotalAmount:  65,
	}
	require.NoError(t, db.Create(booking).Error)

	resp, err := app.Test(authedRequest(t, "PUT", "/api/bookings/"+booking.ID, fiber.Map{
		"booking_date": time.Now().AddDate(0, 0, 21).Format("2006-01-02"),
		"start_time":   "14:00",
		"end_time":     "15:00",
	}, manager), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingRescheduled, reloaded.Status)
	assert.Equal(t, "14:00", reloaded.StartTime)
}

func TestSubscribeConflictsWhenActive(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)

	plan := &model.SubscriptionPlan{
		Name:        "Professional " + randomSuffix(),
		PriceAmount: 49,
		Currency:    "eur",
		Interval:    model.PlanIntervalMonth,
		IsActive:    true,
	}
	require.NoError(t, db.Create(plan).Error)

	resp, err := app.Test(authedRequest(t, "POST", "/api/stores/"+store.ID+"/subscribe", fiber.Map{
		"plan_id": plan.ID,
	}, manager), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var reloaded model.Store
	require.NoError(t, db.First(&reloaded, "id = ?", store.ID).Error)
	require.NotNil(t, reloaded.CurrentSubscriptionPlanID)
	assert.Equal(t, plan.ID, *reloaded.CurrentSubscriptionPlanID)

	// A second subscription while one is running conflicts
	resp, err = app.Test(authedRequest(t, "POST", "/api/stores/"+store.ID+"/subscribe", fiber.Map{
		"plan_id": plan.ID,
	}, manager), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}
