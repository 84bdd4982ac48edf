package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/easysms"
	"appointmenthub_backend/pkg/policy"
)

type CreateNotificationInput struct {
	RecipientUserID string `json:"recipient_user_id" validate:"required"`
	BookingID       string `json:"booking_id"`
	Type            string `json:"type" validate:"required"`
	Subject         string `json:"subject"`
	Body            string `json:"body" validate:"required"`
}

type DeliveryReportInput struct {
	MessageID string `json:"message_id" validate:"required"`
	Status    string `json:"status" validate:"required"` // delivered | failed
}

func notificationScope(db *gorm.DB, c *fiber.Ctx) *gorm.DB {
	claims := middleware.CurrentUser(c)
	switch claims.Role {
	case model.RoleAdmin:
		return db
	case model.RoleStoreManager:
		return db.Where("store_id = ?", claims.StoreID)
	default:
		return db.Where("recipient_user_id = ?", claims.UserID)
	}
}

func ListNotifications(c *fiber.Ctx) error {
	var notifications []model.Notification
	err := notificationScope(database.FromCtx(c), c).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load notifications",
		})
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
	})
}

func GetNotification(c *fiber.Ctx) error {
	var notification model.Notification
	err := notificationScope(database.FromCtx(c), c).
		First(&notification, "notifications.id = ?", c.Params("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Notification not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load notification",
		})
	}

	return c.JSON(fiber.Map{
		"notification": notification,
	})
}

// CreateNotification dispatches a custom message to a recipient. A provider
// failure marks the record failed but still persists it.
func CreateNotification(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if !policy.Can(claims.Role, policy.ActionCreate, policy.ResourceNotification) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	input := new(CreateNotificationInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.RecipientUserID == "" || input.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipient_user_id and body are required",
		})
	}

	notificationType, ok := model.ParseNotificationType(input.Type)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type must be email or sms",
		})
	}

	db := database.FromCtx(c)

	var recipient model.User
	if err := db.First(&recipient, "id = ?", input.RecipientUserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Recipient not found",
		})
	}

	storeID := claims.StoreID
	var bookingID *string
	if input.BookingID != "" {
		var booking model.Booking
		if err := db.First(&booking, "id = ?", input.BookingID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Booking not found",
			})
		}
		if !policy.CanAccessStore(claims.Role, claims.StoreID, booking.StoreID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		bookingID = &booking.ID
		storeID = booking.StoreID
	}
	if storeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "booking_id is required for admin notifications",
		})
	}

	notification := model.Notification{
		StoreID:         storeID,
		RecipientUserID: recipient.ID,
		BookingID:       bookingID,
		Type:            notificationType,
		Subject:         input.Subject,
		Body:            input.Body,
		Status:          model.NotificationSent,
	}

	dispatchNotification(&notification, &recipient)

	if err := db.Create(&notification).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record notification",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Notification sent",
		"notification": notification,
	})
}

// SendBookingConfirmation dispatches the confirmation template for a booking.
func SendBookingConfirmation(c *fiber.Ctx) error {
	return sendBookingTemplate(c, "Booking confirmation", easysmsTemplate("confirmation"))
}

// SendBookingReminder dispatches the reminder template for a booking.
func SendBookingReminder(c *fiber.Ctx) error {
	return sendBookingTemplate(c, "Booking reminder", easysmsTemplate("reminder"))
}

// EasySMSWebhook receives delivery reports and updates notification statuses.
// Unknown message ids are acknowledged so the provider stops retrying.
func EasySMSWebhook(c *fiber.Ctx) error {
	input := new(DeliveryReportInput)
	if err := c.BodyParser(input); err != nil || input.MessageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message_id is required",
		})
	}

	var status model.NotificationStatus
	switch input.Status {
	case "delivered":
		status = model.NotificationDelivered
	case "failed":
		status = model.NotificationFailed
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "status must be delivered or failed",
		})
	}

	db := database.FromCtx(c)

	result := db.Model(&model.Notification{}).
		Where("external_message_id = ?", input.MessageID).
		Update("status", status)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update notification",
		})
	}
	if result.RowsAffected == 0 {
		log.Printf("Delivery report for unknown message id %s", input.MessageID)
	}

	return c.JSON(fiber.Map{
		"message": "Report processed",
	})
}

func easysmsTemplate(name string) string {
	switch name {
	case "reminder":
		return easysms.TemplateBookingReminder
	case "cancellation":
		return easysms.TemplateBookingCancellation
	default:
		return easysms.TemplateBookingConfirmation
	}
}

// sendBookingTemplate renders a booking template and dispatches it to the
// booking's client. Manager/admin only, scoped to the booking's store.
func sendBookingTemplate(c *fiber.Ctx, subject, template string) error {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var booking model.Booking
	err := db.Preload("Client").Preload("Service").Preload("Store").
		First(&booking, "id = ?", c.Params("id")).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Booking not found",
		})
	}
	if !policy.CanAccessStore(claims.Role, claims.StoreID, booking.StoreID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
	if booking.Client == nil || booking.Service == nil || booking.Store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Booking is missing related records",
		})
	}

	body := easysms.Render(template, map[string]string{
		"client_name":  booking.Client.FullName(),
		"service_name": booking.Service.Name,
		"store_name":   booking.Store.Name,
		"booking_date": booking.BookingDate.Format("2006-01-02"),
		"start_time":   booking.StartTime,
	})

	notification := model.Notification{
		StoreID:         booking.StoreID,
		RecipientUserID: booking.ClientUserID,
		BookingID:       &booking.ID,
		Type:            model.NotificationSMS,
		Subject:         subject,
		Body:            body,
		Status:          model.NotificationSent,
	}
	if booking.Client.PhoneNumber == "" {
		notification.Type = model.NotificationEmail
	}

	dispatchNotification(&notification, booking.Client)

	if err := db.Create(&notification).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record notification",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Notification sent",
		"notification": notification,
	})
}

// dispatchNotification sends the message through EasySMS and marks the record
// delivered or failed. Without a configured provider the record stays sent.
func dispatchNotification(notification *model.Notification, recipient *model.User) {
	if easysms.GlobalService == nil {
		return
	}

	var result *easysms.SendResult
	var err error
	if notification.Type == model.NotificationSMS {
		result, err = easysms.GlobalService.SendSMS(recipient.PhoneNumber, notification.Body)
	} else {
		result, err = easysms.GlobalService.SendEmail(recipient.Email, notification.Subject, notification.Body)
	}

	if err != nil {
		log.Printf("Could not dispatch notification: %v", err)
		notification.MarkFailed()
		return
	}
	notification.MarkDelivered(result.MessageID)
}
