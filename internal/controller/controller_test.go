package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/utils/jwt"
)

var testDBCounter int

// setupTestDB opens a fresh in-memory database and installs it as the
// global session used by the handlers.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBCounter++
	dsn := fmt.Sprintf("file:controller_test_%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Store{},
		&model.Service{},
		&model.Booking{},
		&model.Payment{},
		&model.SubscriptionPlan{},
		&model.Subscription{},
		&model.Notification{},
		&model.Calendar{},
		&model.CalendarSlot{},
		&model.WebhookEvent{},
	))

	database.DB = db
	return db
}

// setupTestApp wires the routes exercised by the handler tests with the same
// middleware chain the server uses.
func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	api := app.Group("/api", middleware.Transaction())

	api.Post("/stripe-webhook", StripeWebhook)
	api.Post("/easysms-webhook", EasySMSWebhook)

	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Post("/bookings", CreateBooking)
	protected.Get("/bookings", ListBookings)
	protected.Put("/bookings/:id", UpdateBooking)
	protected.Post("/bookings/:id/cancel", CancelBooking)
	protected.Post("/bookings/:id/confirm",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), ConfirmBooking)
	protected.Post("/stores/:store_id/subscribe",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), Subscribe)
	protected.Post("/subscriptions/:id/cancel",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), CancelSubscription)

	return app
}

func createTestUser(t *testing.T, db *gorm.DB, role model.UserRole, storeID string) *model.User {
	t.Helper()
	user := &model.User{
		FirstName:   "Test",
		LastName:    string(role),
		Email:       fmt.Sprintf("%s-%s@example.com", role, randomSuffix()),
		PhoneNumber: "6912345678",
		Role:        role,
		StoreID:     storeID,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

var suffixCounter int

func randomSuffix() string {
	suffixCounter++
	return fmt.Sprintf("%d", suffixCounter)
}

func createTestStore(t *testing.T, db *gorm.DB, manager *model.User) *model.Store {
	t.Helper()
	store := &model.Store{
		Name:          "Test Salon " + randomSuffix(),
		Slug:          "test-salon-" + randomSuffix(),
		ManagerUserID: manager.ID,
		StripeEnabled: true,
		IsActive:      true,
	}
	require.NoError(t, db.Create(store).Error)
	require.NoError(t, db.Model(manager).Update("store_id", store.ID).Error)
	manager.StoreID = store.ID
	return store
}

func createTestService(t *testing.T, db *gorm.DB, store *model.Store) *model.Service {
	t.Helper()
	service := &model.Service{
		StoreID:         store.ID,
		Name:            "Haircut",
		DurationMinutes: 60,
		MinPersons:      1,
		MaxPersons:      1,
		PriceType:       model.PriceTypeFixed,
		BasePriceAmount: 65.00,
	}
	require.NoError(t, db.Create(service).Error)
	return service
}

func authedRequest(t *testing.T, method, target string, body interface{}, user *model.User) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	if user != nil {
		token, err := jwt.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}
