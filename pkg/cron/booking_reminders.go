// pkg/cron/booking_reminders.go
package cron

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/easysms"
)

var (
	lastReminderRun time.Time
	reminderMutex   sync.Mutex
)

func InitBookingReminderCron() {
	c := cron.New()

	// Every day at 09:00
	_, err := c.AddFunc("0 9 * * *", func() {
		reminderMutex.Lock()
		defer reminderMutex.Unlock()

		if time.Since(lastReminderRun) < 23*time.Hour {
			log.Printf("Booking reminders already sent today, skipping...")
			return
		}

		sendBookingReminders()
		lastReminderRun = time.Now()
	})

	if err != nil {
		log.Printf("Could not initialize booking reminder cron: %v", err)
		return
	}

	c.Start()
	log.Printf("Booking reminder cron initialized successfully")
}

func sendBookingReminders() {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	log.Printf("Sending booking reminders for date: %s", tomorrow)

	var bookings []model.Booking
	err := database.DB.
		Preload("Client").
		Preload("Service").
		Preload("Store").
		Where("booking_date = ? AND status IN ?", tomorrow,
			[]model.BookingStatus{model.BookingPending, model.BookingConfirmed}).
		Find(&bookings).Error

	if err != nil {
		log.Printf("Error fetching bookings for reminders: %v", err)
		return
	}

	log.Printf("Found %d bookings for tomorrow", len(bookings))

	for _, booking := range bookings {
		if booking.Client == nil || booking.Service == nil || booking.Store == nil {
			continue
		}

		body := easysms.Render(easysms.TemplateBookingReminder, map[string]string{
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
			Subject:         "Booking reminder",
			Body:            body,
			Status:          model.NotificationSent,
		}

		if booking.Client.PhoneNumber == "" {
			notification.Type = model.NotificationEmail
		}

		if easysms.GlobalService != nil {
			var result *easysms.SendResult
			var sendErr error
			if notification.Type == model.NotificationSMS {
				result, sendErr = easysms.GlobalService.SendSMS(booking.Client.PhoneNumber, body)
			} else {
				result, sendErr = easysms.GlobalService.SendEmail(booking.Client.Email, notification.Subject, body)
			}
			if sendErr != nil {
				log.Printf("Error sending reminder for booking %s: %v", booking.ID, sendErr)
				notification.MarkFailed()
			} else {
				notification.MarkDelivered(result.MessageID)
			}
		}

		if err := database.DB.Create(&notification).Error; err != nil {
			log.Printf("Error recording reminder notification: %v", err)
		}
	}

	log.Printf("Booking reminders done, %d bookings processed", len(bookings))
}
