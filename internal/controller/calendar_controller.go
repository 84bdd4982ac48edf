package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/calendly"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/policy"
)

type CreateCalendarInput struct {
	Name                    string `json:"name" validate:"required"`
	CalendlyEventTypeID     string `json:"calendly_event_type_id"`
	CalendlyOrganizationURL string `json:"calendly_organization_url"`
}

// newCalendlyClient is replaced in tests to point at a fake server.
var newCalendlyClient = func(apiKey string) *calendly.Client {
	return calendly.NewClient(apiKey, "")
}

func ListStoreCalendars(c *fiber.Ctx) error {
	var calendars []model.Calendar
	err := database.FromCtx(c).
		Where("store_id = ?", c.Params("store_id")).
		Find(&calendars).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load calendars",
		})
	}

	return c.JSON(fiber.Map{
		"calendars": calendars,
	})
}

func CreateCalendar(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
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

	input := new(CreateCalendarInput)
	if err := c.BodyParser(input); err != nil || input.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	calendar := model.Calendar{
		StoreID:                 store.ID,
		Name:                    input.Name,
		CalendlyEventTypeID:     input.CalendlyEventTypeID,
		CalendlyOrganizationURL: input.CalendlyOrganizationURL,
		IsActive:                true,
	}
	if err := db.Create(&calendar).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create calendar",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Calendar created",
		"calendar": calendar,
	})
}

func ListCalendarSlots(c *fiber.Ctx) error {
	db := database.FromCtx(c)

	var calendar model.Calendar
	if err := db.First(&calendar, "id = ?", c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Calendar not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load calendar",
		})
	}

	var slots []model.CalendarSlot
	err := db.Where("calendar_id = ?", calendar.ID).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load slots",
		})
	}

	return c.JSON(fiber.Map{
		"calendar": calendar,
		"slots":    slots,
	})
}

// SyncCalendlyCalendars pulls the store's Calendly event types and mirrors
// them as calendars. Existing calendars are matched by event type id.
func SyncCalendlyCalendars(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("store_id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
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
	if store.CalendlyAPIKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Store has no Calendly API key",
		})
	}

	client := newCalendlyClient(store.CalendlyAPIKey)

	user, err := client.CurrentUser()
	if err != nil {
		log.Printf("Calendly user lookup failed for store %s: %v", store.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not reach Calendly",
		})
	}

	eventTypes, err := client.EventTypes(user.URI)
	if err != nil {
		log.Printf("Calendly event types failed for store %s: %v", store.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not load Calendly event types",
		})
	}

	synced := 0
	for _, et := range eventTypes {
		if !et.Active {
			continue
		}

		var calendar model.Calendar
		err := db.Where("store_id = ? AND calendly_event_type_id = ?", store.ID, et.URI).
			First(&calendar).Error
		if err == gorm.ErrRecordNotFound {
			calendar = model.Calendar{
				StoreID:                 store.ID,
				Name:                    et.Name,
				CalendlyEventTypeID:     et.URI,
				CalendlyOrganizationURL: user.CurrentOrganization,
				IsActive:                true,
			}
			if err := db.Create(&calendar).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Could not create calendar",
				})
			}
		} else if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not sync calendars",
			})
		} else {
			calendar.Name = et.Name
			calendar.IsActive = true
			if err := db.Save(&calendar).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Could not sync calendars",
				})
			}
		}
		synced++
	}

	return c.JSON(fiber.Map{
		"message": "Calendars synced",
		"synced":  synced,
	})
}
