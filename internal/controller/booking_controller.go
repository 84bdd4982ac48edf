package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/policy"
)

type CreateBookingInput struct {
	ServiceID       string  `json:"service_id" validate:"required"`
	BookingDate     string  `json:"booking_date" validate:"required"` // YYYY-MM-DD
	StartTime       string  `json:"start_time" validate:"required"`   // HH:MM
	EndTime         string  `json:"end_time" validate:"required"`     // HH:MM
	NumberOfPersons int     `json:"number_of_persons"`
	DurationHours   float64 `json:"duration_hours"`
	Notes           string  `json:"notes"`
}

type UpdateBookingInput struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	BookingDate   *string `json:"booking_date"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Notes         *string `json:"notes"`
}

// lockForUpdate takes row locks where the database supports them. SQLite has
// no row locks; its single writer already serializes conflicting inserts.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// conflictingSlotCount loads and locks the pending or confirmed bookings that
// occupy the same service slot, so two requests racing for one slot serialize
// on the row locks. The locking clause only survives a Find, not a Count.
func conflictingSlotCount(db *gorm.DB, serviceID string, date time.Time, startTime, excludeID string) (int, error) {
	query := lockForUpdate(db).
		Where("service_id = ? AND booking_date = ? AND start_time = ? AND status IN ?",
			serviceID, date, startTime,
			[]model.BookingStatus{model.BookingPending, model.BookingConfirmed})
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var conflicting []model.Booking
	if err := query.Find(&conflicting).Error; err != nil {
		return 0, err
	}
	return len(conflicting), nil
}

// bookingScope narrows a booking query to what the caller may see.
func bookingScope(db *gorm.DB, c *fiber.Ctx) *gorm.DB {
	claims := middleware.CurrentUser(c)
	switch claims.Role {
	case model.RoleAdmin:
		return db
	case model.RoleStoreManager:
		return db.Where("store_id = ?", claims.StoreID)
	default:
		return db.Where("client_user_id = ?", claims.UserID)
	}
}

func ListBookings(c *fiber.Ctx) error {
	var bookings []model.Booking
	err := bookingScope(database.FromCtx(c), c).
		Preload("Service").
		Order("booking_date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load bookings",
		})
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
	})
}

func ListStoreBookings(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var bookings []model.Booking
	err := database.FromCtx(c).
		Preload("Service").
		Preload("Client").
		Where("store_id = ?", storeID).
		Order("booking_date DESC, start_time DESC").
		Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load bookings",
		})
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
	})
}

// BookingsCalendar returns bookings in a date range for calendar views.
func BookingsCalendar(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and to query parameters are required (YYYY-MM-DD)",
		})
	}
	if _, err := time.Parse("2006-01-02", from); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid from date",
		})
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid to date",
		})
	}

	var bookings []model.Booking
	err := bookingScope(database.FromCtx(c), c).
		Preload("Service").
		Where("booking_date BETWEEN ? AND ?", from, to).
		Order("booking_date ASC, start_time ASC").
		Find(&bookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load bookings",
		})
	}

	return c.JSON(fiber.Map{
		"bookings": bookings,
	})
}

func GetBooking(c *fiber.Ctx) error {
	booking, errResp := loadVisibleBooking(c)
	if booking == nil {
		return errResp
	}

	return c.JSON(fiber.Map{
		"booking": booking,
	})
}

// CreateBooking validates the request, locks the slot and freezes the price.
func CreateBooking(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)

	input := new(CreateBookingInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.ServiceID == "" || input.BookingDate == "" || input.StartTime == "" || input.EndTime == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "service_id, booking_date, start_time and end_time are required",
		})
	}

	bookingDate, err := time.Parse("2006-01-02", input.BookingDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid booking_date, expected YYYY-MM-DD",
		})
	}
	startTime, err := time.Parse("15:04", input.StartTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid start_time, expected HH:MM",
		})
	}
	if _, err := time.Parse("15:04", input.EndTime); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid end_time, expected HH:MM",
		})
	}

	db := database.FromCtx(c)

	var service model.Service
	if err := db.First(&service, "id = ?", input.ServiceID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Service not found",
		})
	}

	persons := input.NumberOfPersons
	if persons <= 0 {
		persons = 1
	}
	if persons < service.MinPersons || persons > service.MaxPersons {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "number_of_persons is out of range for this service",
		})
	}

	start := time.Date(bookingDate.Year(), bookingDate.Month(), bookingDate.Day(),
		startTime.Hour(), startTime.Minute(), 0, 0, time.Local)
	if !start.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking must be in the future",
		})
	}

	// Lock conflicting rows so two clients cannot take the same slot at once.
	conflicts, err := conflictingSlotCount(db, service.ID, bookingDate, input.StartTime, "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check availability",
		})
	}
	if conflicts > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This time slot is already booked",
		})
	}

	total := service.CalculateTotalPrice(persons, input.DurationHours)
	advance := service.CalculateAdvancePayment(total)

	booking := model.Booking{
		StoreID:              service.StoreID,
		ClientUserID:         claims.UserID,
		ServiceID:            service.ID,
		BookingDate:          bookingDate,
		StartTime:            input.StartTime,
		EndTime:              input.EndTime,
		NumberOfPersons:      persons,
		Status:               model.BookingPending,
		TotalAmount:          total,
		AdvancePaymentAmount: advance,
		PaymentStatus:        model.BookingUnpaid,
		Notes:                input.Notes,
	}

	if err := db.Create(&booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create booking",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Booking created",
		"booking": booking,
	})
}

// UpdateBooking: managers and admins manage statuses; clients may only
// reschedule their own upcoming bookings.
func UpdateBooking(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)

	booking, errResp := loadVisibleBooking(c)
	if booking == nil {
		return errResp
	}

	input := new(UpdateBookingInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	db := database.FromCtx(c)

	if claims.Role == model.RoleClient {
		if input.Status != nil || input.PaymentStatus != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Clients cannot change booking statuses",
			})
		}

		rescheduling := input.BookingDate != nil || input.StartTime != nil || input.EndTime != nil
		if rescheduling {
			if !booking.CanBeRescheduled() {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Booking can no longer be rescheduled",
				})
			}
			if errResp := applyReschedule(c, booking, input); errResp != nil {
				return errResp
			}
			booking.Status = model.BookingRescheduled
		}
		if input.Notes != nil {
			booking.Notes = *input.Notes
		}
	} else {
		// Date changes go through the same guard as client reschedules;
		// an explicit status in the same request still wins afterwards.
		if input.BookingDate != nil || input.StartTime != nil || input.EndTime != nil {
			if !booking.CanBeRescheduled() {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Booking can no longer be rescheduled",
				})
			}
			if errResp := applyReschedule(c, booking, input); errResp != nil {
				return errResp
			}
			booking.Status = model.BookingRescheduled
		}
		if input.Status != nil {
			status, ok := model.ParseBookingStatus(*input.Status)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid status",
				})
			}
			booking.Status = status
		}
		if input.PaymentStatus != nil {
			paymentStatus, ok := model.ParseBookingPaymentStatus(*input.PaymentStatus)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid payment_status",
				})
			}
			booking.PaymentStatus = paymentStatus
		}
		if input.Notes != nil {
			booking.Notes = *input.Notes
		}
	}

	if err := db.Save(booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update booking",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Booking updated",
		"booking": booking,
	})
}

// CancelBooking cancels a pending or confirmed future booking.
func CancelBooking(c *fiber.Ctx) error {
	booking, errResp := loadVisibleBooking(c)
	if booking == nil {
		return errResp
	}

	if !booking.CanBeCancelled() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Booking can no longer be cancelled",
		})
	}

	booking.Status = model.BookingCancelled
	if err := database.FromCtx(c).Save(booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel booking",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Booking cancelled",
		"booking": booking,
	})
}

// ConfirmBooking moves a pending booking to confirmed. Manager/admin only.
func ConfirmBooking(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	booking, errResp := loadVisibleBooking(c)
	if booking == nil {
		return errResp
	}

	if booking.Status != model.BookingPending {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only pending bookings can be confirmed",
		})
	}

	booking.Status = model.BookingConfirmed
	if err := database.FromCtx(c).Save(booking).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not confirm booking",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Booking confirmed",
		"booking": booking,
	})
}

// applyReschedule validates and applies new date/time fields on a booking.
// Returns a response when the request was already answered.
func applyReschedule(c *fiber.Ctx, booking *model.Booking, input *UpdateBookingInput) error {
	newDate := booking.BookingDate
	newStart := booking.StartTime
	newEnd := booking.EndTime

	if input.BookingDate != nil {
		parsed, err := time.Parse("2006-01-02", *input.BookingDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid booking_date, expected YYYY-MM-DD",
			})
		}
		newDate = parsed
	}
	if input.StartTime != nil {
		if _, err := time.Parse("15:04", *input.StartTime); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid start_time, expected HH:MM",
			})
		}
		newStart = *input.StartTime
	}
	if input.EndTime != nil {
		if _, err := time.Parse("15:04", *input.EndTime); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid end_time, expected HH:MM",
			})
		}
		newEnd = *input.EndTime
	}

	start, _ := time.Parse("15:04", newStart)
	when := time.Date(newDate.Year(), newDate.Month(), newDate.Day(),
		start.Hour(), start.Minute(), 0, 0, time.Local)
	if !when.After(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Booking must be in the future",
		})
	}

	db := database.FromCtx(c)

	conflicts, err := conflictingSlotCount(db, booking.ServiceID, newDate, newStart, booking.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check availability",
		})
	}
	if conflicts > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This time slot is already booked",
		})
	}

	booking.BookingDate = newDate
	booking.StartTime = newStart
	booking.EndTime = newEnd
	return nil
}

// loadVisibleBooking fetches the :id booking within the caller's scope.
// Returns (nil, response) when the request was already answered.
func loadVisibleBooking(c *fiber.Ctx) (*model.Booking, error) {
	var booking model.Booking
	err := bookingScope(database.FromCtx(c), c).
		Preload("Service").
		First(&booking, "bookings.id = ?", c.Params("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Booking not found",
			})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load booking",
		})
	}
	return &booking, nil
}
