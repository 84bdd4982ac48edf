package controller

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/easysms"
	"appointmenthub_backend/pkg/policy"
)

type CreatePaymentIntentInput struct {
	PaymentType string `json:"payment_type"` // advance | full
}

func paymentScope(db *gorm.DB, c *fiber.Ctx) *gorm.DB {
	claims := middleware.CurrentUser(c)
	switch claims.Role {
	case model.RoleAdmin:
		return db
	case model.RoleStoreManager:
		return db.Where("store_id = ?", claims.StoreID)
	default:
		return db.Where("user_id = ?", claims.UserID)
	}
}

func ListPayments(c *fiber.Ctx) error {
	var payments []model.Payment
	err := paymentScope(database.FromCtx(c), c).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load payments",
		})
	}

	return c.JSON(fiber.Map{
		"payments": payments,
	})
}

func GetPayment(c *fiber.Ctx) error {
	var payment model.Payment
	err := paymentScope(database.FromCtx(c), c).
		Preload("Booking").
		First(&payment, "payments.id = ?", c.Params("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Payment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load payment",
		})
	}

	return c.JSON(fiber.Map{
		"payment": payment,
	})
}

// CreateBookingPaymentIntent creates a Stripe payment intent for a booking's
// advance or full amount and records a pending payment.
func CreateBookingPaymentIntent(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	booking, errResp := loadVisibleBooking(c)
	if booking == nil {
		return errResp
	}

	var store model.Store
	if err := db.First(&store, "id = ?", booking.StoreID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}
	if !store.StripeEnabled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Store has not enabled online payments",
		})
	}
	if booking.Service == nil || !booking.Service.PaymentEnabled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Service does not accept online payments",
		})
	}

	input := new(CreatePaymentIntentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	amount := booking.TotalAmount
	if input.PaymentType == "advance" {
		if booking.AdvancePaymentAmount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Booking has no advance payment",
			})
		}
		amount = booking.AdvancePaymentAmount
	} else if input.PaymentType != "" && input.PaymentType != "full" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payment_type must be advance or full",
		})
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount * 100)),
		Currency: stripe.String(string(stripe.CurrencyEUR)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("booking_id", booking.ID)
	params.AddMetadata("store_id", booking.StoreID)

	pi, err := paymentintent.New(params)
	if err != nil {
		log.Printf("Stripe payment intent error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create payment intent",
		})
	}

	payment := model.Payment{
		StoreID:               booking.StoreID,
		UserID:                claims.UserID,
		BookingID:             &booking.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                amount,
		Currency:              "eur",
		Status:                model.PaymentPending,
		PaymentMethod:         "card",
	}
	if err := db.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record payment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Payment intent created",
		"client_secret": pi.ClientSecret,
		"payment":       payment,
	})
}

// CreateSubscriptionPaymentIntent creates a payment intent for a store
// subscription invoice.
func CreateSubscriptionPaymentIntent(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var subscription model.Subscription
	err := db.Preload("Plan").First(&subscription, "id = ?", c.Params("id")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subscription not found",
		})
	}

	if !policy.CanAccessStore(claims.Role, claims.StoreID, subscription.StoreID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
	if subscription.Plan == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Subscription has no plan",
		})
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(subscription.Plan.PriceAmount * 100)),
		Currency: stripe.String(string(stripe.CurrencyEUR)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("subscription_id", subscription.ID)
	params.AddMetadata("store_id", subscription.StoreID)

	pi, err := paymentintent.New(params)
	if err != nil {
		log.Printf("Stripe payment intent error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create payment intent",
		})
	}

	payment := model.Payment{
		StoreID:               subscription.StoreID,
		UserID:                claims.UserID,
		SubscriptionID:        &subscription.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                subscription.Plan.PriceAmount,
		Currency:              "eur",
		Status:                model.PaymentPending,
		PaymentMethod:         "card",
	}
	if err := db.Create(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record payment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Payment intent created",
		"client_secret": pi.ClientSecret,
		"payment":       payment,
	})
}

// RefundPayment refunds a succeeded payment through Stripe. A provider
// failure is recorded locally, not surfaced as a transport error.
func RefundPayment(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var payment model.Payment
	if err := db.First(&payment, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Payment not found",
		})
	}
	if !policy.CanAccessStore(claims.Role, claims.StoreID, payment.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
	if payment.Status != model.PaymentSucceeded {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only succeeded payments can be refunded",
		})
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	_, err := refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(payment.StripePaymentIntentID),
	})

	refunded := err == nil
	if refunded {
		payment.Status = model.PaymentRefunded
		if payment.BookingID != nil {
			if updateErr := db.Model(&model.Booking{}).
				Where("id = ?", *payment.BookingID).
				Update("payment_status", model.BookingRefunded).Error; updateErr != nil {
				log.Printf("Could not update booking payment status: %v", updateErr)
			}
		}
	} else {
		log.Printf("Stripe refund error for payment %s: %v", payment.ID, err)
	}

	if saveErr := db.Save(&payment).Error; saveErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update payment",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Refund processed",
		"refunded": refunded,
		"payment":  payment,
	})
}

// StripeWebhook verifies and applies Stripe events. Redeliveries are detected
// through the webhook event table and acknowledged without reprocessing.
func StripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), webhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	db := database.FromCtx(c)

	first, err := model.RecordWebhookEvent(db, "stripe", event.ID, string(event.Type))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record webhook event",
		})
	}
	if !first {
		return c.JSON(fiber.Map{
			"message": "Event already processed",
		})
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		if err := handlePaymentIntentEvent(db, event); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process event",
			})
		}
	case "charge.dispute.created":
		if err := handleDisputeEvent(db, event); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process event",
			})
		}
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		if err := handleSubscriptionEvent(db, event); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not process event",
			})
		}
	default:
		log.Printf("Unhandled Stripe event type: %s", event.Type)
	}

	return c.JSON(fiber.Map{
		"message": "Event processed",
	})
}

func handlePaymentIntentEvent(db *gorm.DB, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return err
	}

	var payment model.Payment
	if err := db.First(&payment, "stripe_payment_intent_id = ?", pi.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("No payment for intent %s, ignoring", pi.ID)
			return nil
		}
		return err
	}

	chargeID := ""
	if pi.LatestCharge != nil {
		chargeID = pi.LatestCharge.ID
	}

	payment.ApplyStripeEvent(string(event.Type), chargeID)
	if err := db.Save(&payment).Error; err != nil {
		return err
	}

	if payment.BookingID != nil {
		if err := syncBookingPaymentStatus(db, *payment.BookingID); err != nil {
			return err
		}
		if payment.Status == model.PaymentSucceeded {
			sendPaymentConfirmation(db, &payment)
		}
	}
	return nil
}

func handleDisputeEvent(db *gorm.DB, event stripe.Event) error {
	var dispute stripe.Dispute
	if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
		return err
	}
	if dispute.PaymentIntent == nil {
		return nil
	}

	var payment model.Payment
	if err := db.First(&payment, "stripe_payment_intent_id = ?", dispute.PaymentIntent.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	payment.ApplyStripeEvent(string(event.Type), "")
	if err := db.Save(&payment).Error; err != nil {
		return err
	}

	if payment.BookingID != nil {
		return db.Model(&model.Booking{}).
			Where("id = ?", *payment.BookingID).
			Update("payment_status", model.BookingRefunded).Error
	}
	return nil
}

func handleSubscriptionEvent(db *gorm.DB, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return err
	}

	var subscription model.Subscription
	if err := db.First(&subscription, "stripe_subscription_id = ?", stripeSub.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("No subscription for %s, ignoring", stripeSub.ID)
			return nil
		}
		return err
	}

	subscription.ApplyStripeEvent(string(event.Type), string(stripeSub.Status))
	if err := db.Save(&subscription).Error; err != nil {
		return err
	}

	if !subscription.IsCurrent() {
		return db.Model(&model.Store{}).
			Where("id = ? AND current_subscription_plan_id = ?", subscription.StoreID, subscription.PlanID).
			Update("current_subscription_plan_id", nil).Error
	}
	return nil
}

// syncBookingPaymentStatus recomputes a booking's payment status from its
// succeeded payments: full coverage means paid, anything smaller partial.
func syncBookingPaymentStatus(db *gorm.DB, bookingID string) error {
	var booking model.Booking
	if err := db.First(&booking, "id = ?", bookingID).Error; err != nil {
		return err
	}

	var paidTotal float64
	err := db.Model(&model.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, model.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paidTotal).Error
	if err != nil {
		return err
	}

	status := model.BookingUnpaid
	if paidTotal >= booking.TotalAmount && booking.TotalAmount > 0 {
		status = model.BookingPaid
	} else if paidTotal > 0 {
		status = model.BookingPartial
	}

	return db.Model(&booking).Update("payment_status", status).Error
}

// sendPaymentConfirmation notifies the client about a received payment.
// Failures are logged, never propagated to the webhook response.
func sendPaymentConfirmation(db *gorm.DB, payment *model.Payment) {
	var booking model.Booking
	err := db.Preload("Client").Preload("Service").Preload("Store").
		First(&booking, "id = ?", *payment.BookingID).Error
	if err != nil || booking.Client == nil || booking.Service == nil || booking.Store == nil {
		return
	}

	body := easysms.Render(easysms.TemplatePaymentConfirmation, map[string]string{
		"client_name":  booking.Client.FullName(),
		"amount":       formatAmount(payment.Amount),
		"currency":     "EUR",
		"service_name": booking.Service.Name,
		"store_name":   booking.Store.Name,
	})

	notification := model.Notification{
		StoreID:         booking.StoreID,
		RecipientUserID: booking.ClientUserID,
		BookingID:       &booking.ID,
		Type:            model.NotificationEmail,
		Subject:         "Payment received",
		Body:            body,
		Status:          model.NotificationSent,
	}

	if easysms.GlobalService != nil {
		result, sendErr := easysms.GlobalService.SendEmail(booking.Client.Email, notification.Subject, body)
		if sendErr != nil {
			log.Printf("Could not send payment confirmation: %v", sendErr)
			notification.MarkFailed()
		} else {
			notification.MarkDelivered(result.MessageID)
		}
	}

	if err := db.Create(&notification).Error; err != nil {
		log.Printf("Could not record payment confirmation: %v", err)
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
