package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/policy"
)

type ServiceInput struct {
	Name                 string  `json:"name" validate:"required"`
	Description          string  `json:"description"`
	DurationMinutes      int     `json:"duration_minutes" validate:"required,min=1"`
	MinPersons           int     `json:"min_persons"`
	MaxPersons           int     `json:"max_persons"`
	PriceType            string  `json:"price_type" validate:"required"`
	BasePriceAmount      float64 `json:"base_price_amount" validate:"required,min=0"`
	PaymentEnabled       bool    `json:"payment_enabled"`
	AdvancePaymentType   string  `json:"advance_payment_type"`
	AdvancePaymentAmount float64 `json:"advance_payment_amount"`
	IsRecurring          bool    `json:"is_recurring"`
	RecurringInterval    string  `json:"recurring_interval"`
}

type CalculatePriceInput struct {
	NumberOfPersons int     `json:"number_of_persons"`
	DurationHours   float64 `json:"duration_hours"`
}

// ListStoreServices is public: services offered by a store.
func ListStoreServices(c *fiber.Ctx) error {
	var services []model.Service
	err := database.FromCtx(c).
		Where("store_id = ?", c.Params("store_id")).
		Find(&services).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load services",
		})
	}

	return c.JSON(fiber.Map{
		"services": services,
	})
}

func GetService(c *fiber.Ctx) error {
	var service model.Service
	if err := database.FromCtx(c).First(&service, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Service not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load service",
		})
	}

	return c.JSON(fiber.Map{
		"service": service,
	})
}

func CreateService(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.Can(claims.Role, policy.ActionCreate, policy.ResourceService) ||
		!policy.CanAccessStore(claims.Role, claims.StoreID, storeID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var store model.Store
	if err := db.First(&store, "id = ?", storeID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	input := new(ServiceInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	service, errResp := buildService(c, input, &model.Service{StoreID: store.ID})
	if service == nil {
		return errResp
	}

	if err := db.Create(service).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create service",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Service created",
		"service": service,
	})
}

func UpdateService(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var service model.Service
	if err := db.First(&service, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Service not found",
		})
	}

	if !policy.CanAccessStore(claims.Role, claims.StoreID, service.StoreID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	input := new(ServiceInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	updated, errResp := buildService(c, input, &service)
	if updated == nil {
		return errResp
	}

	if err := db.Save(updated).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update service",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Service updated",
		"service": updated,
	})
}

// DeleteService refuses to delete a service with pending or confirmed bookings.
func DeleteService(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var service model.Service
	if err := db.First(&service, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Service not found",
		})
	}

	if !policy.CanAccessStore(claims.Role, claims.StoreID, service.StoreID) ||
		claims.Role == model.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var activeBookings int64
	err := db.Model(&model.Booking{}).
		Where("service_id = ? AND status IN ?", service.ID,
			[]model.BookingStatus{model.BookingPending, model.BookingConfirmed}).
		Count(&activeBookings).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check bookings",
		})
	}
	if activeBookings > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Service has active bookings",
		})
	}

	if err := db.Delete(&service).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete service",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Service deleted",
	})
}

// CalculateServicePrice is public: quotes total, advance and remaining amounts.
func CalculateServicePrice(c *fiber.Ctx) error {
	var service model.Service
	if err := database.FromCtx(c).First(&service, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Service not found",
		})
	}

	input := new(CalculatePriceInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
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

	total := service.CalculateTotalPrice(persons, input.DurationHours)
	advance := service.CalculateAdvancePayment(total)
	remaining := total - advance
	if remaining < 0 {
		remaining = 0
	}

	return c.JSON(fiber.Map{
		"total_amount":     total,
		"advance_payment":  advance,
		"remaining_amount": remaining,
		"currency":         "eur",
	})
}

// buildService validates a ServiceInput onto a service row.
// Returns (nil, response) when the request was already answered.
func buildService(c *fiber.Ctx, input *ServiceInput, service *model.Service) (*model.Service, error) {
	if input.Name == "" || input.DurationMinutes <= 0 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and duration_minutes are required",
		})
	}

	priceType, ok := model.ParsePriceType(input.PriceType)
	if !ok {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid price_type",
		})
	}

	minPersons := input.MinPersons
	if minPersons <= 0 {
		minPersons = 1
	}
	maxPersons := input.MaxPersons
	if maxPersons <= 0 {
		maxPersons = minPersons
	}
	if maxPersons < minPersons {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "max_persons cannot be smaller than min_persons",
		})
	}

	service.Name = input.Name
	service.Description = input.Description
	service.DurationMinutes = input.DurationMinutes
	service.MinPersons = minPersons
	service.MaxPersons = maxPersons
	service.PriceType = priceType
	service.BasePriceAmount = input.BasePriceAmount
	service.PaymentEnabled = input.PaymentEnabled

	if input.PaymentEnabled {
		advanceType, ok := model.ParseAdvancePaymentType(input.AdvancePaymentType)
		if input.AdvancePaymentType != "" && !ok {
			return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid advance_payment_type",
			})
		}
		if ok {
			if input.AdvancePaymentAmount < 0 ||
				(advanceType == model.AdvancePaymentPercent && input.AdvancePaymentAmount > 100) {
				return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid advance_payment_amount",
				})
			}
			service.AdvancePaymentType = advanceType
			service.AdvancePaymentAmount = input.AdvancePaymentAmount
		}
	} else {
		service.AdvancePaymentType = ""
		service.AdvancePaymentAmount = 0
	}

	service.IsRecurring = input.IsRecurring
	if input.IsRecurring {
		interval, ok := model.ParseRecurringInterval(input.RecurringInterval)
		if !ok {
			return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid recurring_interval",
			})
		}
		service.RecurringInterval = interval
	} else {
		service.RecurringInterval = ""
	}

	return service, nil
}
