package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
)

// DashboardStats returns headline numbers scoped to the caller's role.
func DashboardStats(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	switch claims.Role {
	case model.RoleAdmin:
		var stores, users, bookings int64
		var revenue float64
		db.Model(&model.Store{}).Count(&stores)
		db.Model(&model.User{}).Count(&users)
		db.Model(&model.Booking{}).Count(&bookings)
		db.Model(&model.Payment{}).
			Where("status = ?", model.PaymentSucceeded).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&revenue)

		return c.JSON(fiber.Map{
			"total_stores":   stores,
			"total_users":    users,
			"total_bookings": bookings,
			"total_revenue":  revenue,
		})

	case model.RoleStoreManager:
		var bookings, pending, upcoming int64
		var revenue float64
		today := time.Now().Format("2006-01-02")
		db.Model(&model.Booking{}).Where("store_id = ?", claims.StoreID).Count(&bookings)
		db.Model(&model.Booking{}).
			Where("store_id = ? AND status = ?", claims.StoreID, model.BookingPending).
			Count(&pending)
		db.Model(&model.Booking{}).
			Where("store_id = ? AND booking_date >= ? AND status IN ?", claims.StoreID, today,
				[]model.BookingStatus{model.BookingPending, model.BookingConfirmed}).
			Count(&upcoming)
		db.Model(&model.Payment{}).
			Where("store_id = ? AND status = ?", claims.StoreID, model.PaymentSucceeded).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&revenue)

		return c.JSON(fiber.Map{
			"total_bookings":    bookings,
			"pending_bookings":  pending,
			"upcoming_bookings": upcoming,
			"total_revenue":     revenue,
		})

	default:
		var bookings, upcoming int64
		var spent float64
		today := time.Now().Format("2006-01-02")
		db.Model(&model.Booking{}).Where("client_user_id = ?", claims.UserID).Count(&bookings)
		db.Model(&model.Booking{}).
			Where("client_user_id = ? AND booking_date >= ? AND status IN ?", claims.UserID, today,
				[]model.BookingStatus{model.BookingPending, model.BookingConfirmed}).
			Count(&upcoming)
		db.Model(&model.Payment{}).
			Where("user_id = ? AND status = ?", claims.UserID, model.PaymentSucceeded).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&spent)

		return c.JSON(fiber.Map{
			"total_bookings":    bookings,
			"upcoming_bookings": upcoming,
			"total_spent":       spent,
		})
	}
}

type bookingBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// BookingAnalytics returns daily booking counts for the requested window
// (default the last 30 days).
func BookingAnalytics(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	from, to := analyticsWindow(c)

	query := database.FromCtx(c).Model(&model.Booking{}).
		Select("CAST(booking_date AS date) as date, COUNT(*) as count").
		Where("booking_date BETWEEN ? AND ?", from, to).
		Group("CAST(booking_date AS date)").
		Order("date ASC")
	if claims.Role == model.RoleStoreManager {
		query = query.Where("store_id = ?", claims.StoreID)
	}

	var buckets []bookingBucket
	if err := query.Scan(&buckets).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load analytics",
		})
	}

	return c.JSON(fiber.Map{
		"from":     from,
		"to":       to,
		"bookings": buckets,
	})
}

type revenueBucket struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// RevenueAnalytics returns daily succeeded payment totals for the window.
func RevenueAnalytics(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	from, to := analyticsWindow(c)

	query := database.FromCtx(c).Model(&model.Payment{}).
		Select("CAST(created_at AS date) as date, COALESCE(SUM(amount), 0) as amount").
		Where("status = ? AND created_at BETWEEN ? AND ?", model.PaymentSucceeded, from, to+" 23:59:59").
		Group("CAST(created_at AS date)").
		Order("date ASC")
	if claims.Role == model.RoleStoreManager {
		query = query.Where("store_id = ?", claims.StoreID)
	}

	var buckets []revenueBucket
	if err := query.Scan(&buckets).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load analytics",
		})
	}

	return c.JSON(fiber.Map{
		"from":    from,
		"to":      to,
		"revenue": buckets,
	})
}

func analyticsWindow(c *fiber.Ctx) (string, string) {
	to := c.Query("to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}
	from := c.Query("from")
	if from == "" {
		from = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	return from, to
}
