package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/model"
)

const testWebhookSecret = "whsec_test"

// postStripeEvent posts a payload with a valid Stripe signature header.
func postStripeEvent(t *testing.T, app *fiber.App, payload string) int {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest("POST", "/api/stripe-webhook", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, signature))

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func seedBookingWithPayment(t *testing.T, db *gorm.DB, total, advance float64, intentID string) (*model.Booking, *model.Payment) {
	t.Helper()

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	service := createTestService(t, db, store)
	client := createTestUser(t, db, model.RoleClient, "")

	booking := &model.Booking{
		StoreID:              store.ID,
		ClientUserID:         client.ID,
		ServiceID:            service.ID,
		BookingDate:          time.Now().AddDate(0, 0, 7),
		StartTime:            "10:00",
		EndTime:              "11:00",
		Status:               model.BookingConfirmed,
		TotalAmount:          total,
		AdvancePaymentAmount: advance,
		PaymentStatus:        model.BookingUnpaid,
	}
	require.NoError(t, db.Create(booking).Error)

	payment := &model.Payment{
		StoreID:               store.ID,
		UserID:                client.ID,
		BookingID:             &booking.ID,
		StripePaymentIntentID: intentID,
		Amount:                advance,
		Currency:              "eur",
		Status:                model.PaymentPending,
	}
	require.NoError(t, db.Create(payment).Error)

	return booking, payment
}

func paymentIntentEvent(eventID, eventType, intentID string) string {
	return fmt.Sprintf(`{
		"id": "%s",
		"type": "%s",
		"api_version": "2022-11-15",
		"data": {
			"object": {
				"id": "%s",
				"object": "payment_intent",
				"latest_charge": {"id": "ch_%s"}
			}
		}
	}`, eventID, eventType, intentID, intentID)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	setupTestDB(t)
	app := setupTestApp(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	req := httptest.NewRequest("POST", "/api/stripe-webhook",
		bytes.NewBufferString(`{"id":"evt_1","type":"payment_intent.succeeded"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStripeWebhookPartialThenPaid(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	booking, _ := seedBookingWithPayment(t, db, 100, 30, "pi_adv")

	// Advance payment succeeds: 30 of 100 covered
	status := postStripeEvent(t, app, paymentIntentEvent("evt_1", "payment_intent.succeeded", "pi_adv"))
	require.Equal(t, fiber.StatusOK, status)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingPartial, reloaded.PaymentStatus)

	var payment model.Payment
	require.NoError(t, db.First(&payment, "stripe_payment_intent_id = ?", "pi_adv").Error)
	assert.Equal(t, model.PaymentSucceeded, payment.Status)
	assert.Equal(t, "ch_pi_adv", payment.StripeChargeID)

	// Remainder succeeds: coverage reaches the total
	rest := &model.Payment{
		StoreID:               booking.StoreID,
		UserID:                booking.ClientUserID,
		BookingID:             &booking.ID,
		StripePaymentIntentID: "pi_rest",
		Amount:                70,
		Currency:              "eur",
		Status:                model.PaymentPending,
	}
	require.NoError(t, db.Create(rest).Error)

	status = postStripeEvent(t, app, paymentIntentEvent("evt_2", "payment_intent.succeeded", "pi_rest"))
	require.Equal(t, fiber.StatusOK, status)

	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingPaid, reloaded.PaymentStatus)
}

func TestStripeWebhookFailedPayment(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	booking, _ := seedBookingWithPayment(t, db, 100, 30, "pi_fail")

	status := postStripeEvent(t, app, paymentIntentEvent("evt_f1", "payment_intent.payment_failed", "pi_fail"))
	require.Equal(t, fiber.StatusOK, status)

	var payment model.Payment
	require.NoError(t, db.First(&payment, "stripe_payment_intent_id = ?", "pi_fail").Error)
	assert.Equal(t, model.PaymentFailed, payment.Status)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingUnpaid, reloaded.PaymentStatus)
}

func TestStripeWebhookRedeliveryIsIgnored(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	booking, _ := seedBookingWithPayment(t, db, 100, 30, "pi_dup")

	payload := paymentIntentEvent("evt_dup", "payment_intent.succeeded", "pi_dup")
	require.Equal(t, fiber.StatusOK, postStripeEvent(t, app, payload))
	require.Equal(t, fiber.StatusOK, postStripeEvent(t, app, payload))

	// Only one webhook event row and unchanged booking state
	var events int64
	db.Model(&model.WebhookEvent{}).Count(&events)
	assert.Equal(t, int64(1), events)

	var reloaded model.Booking
	require.NoError(t, db.First(&reloaded, "id = ?", booking.ID).Error)
	assert.Equal(t, model.BookingPartial, reloaded.PaymentStatus)
}

func TestEasySMSWebhookUpdatesNotification(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t)

	manager := createTestUser(t, db, model.RoleStoreManager, "")
	store := createTestStore(t, db, manager)
	client := createTestUser(t, db, model.RoleClient, "")

	notification := &model.Notification{
		StoreID:           store.ID,
		RecipientUserID:   client.ID,
		Type:              model.NotificationSMS,
		Body:              "reminder",
		Status:            model.NotificationSent,
		ExternalMessageID: "msg-42",
	}
	require.NoError(t, db.Create(notification).Error)

	req := authedRequest(t, "POST", "/api/easysms-webhook", fiber.Map{
		"message_id": "msg-42",
		"status":     "delivered",
	}, nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var reloaded model.Notification
	require.NoError(t, db.First(&reloaded, "id = ?", notification.ID).Error)
	assert.Equal(t, model.NotificationDelivered, reloaded.Status)
}

func TestEasySMSWebhookUnknownMessageStillOK(t *testing.T) {
	setupTestDB(t)
	app := setupTestApp(t)

	req := authedRequest(t, "POST", "/api/easysms-webhook", fiber.Map{
		"message_id": "missing",
		"status":     "failed",
	}, nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
