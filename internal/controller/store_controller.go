package controller

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/policy"
	"appointmenthub_backend/pkg/utils/storage"
)

type CreateStoreInput struct {
	Name          string   `json:"name" validate:"required"`
	ManagerUserID string   `json:"manager_user_id" validate:"required"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	PostalCode    string   `json:"postal_code"`
	Country       string   `json:"country"`
	PhoneNumber   string   `json:"phone_number"`
	Email         string   `json:"email"`
	Website       string   `json:"website"`
	Description   string   `json:"description"`
	Slug          string   `json:"slug"`
	Photos        []string `json:"photos"`
}

type UpdateStoreInput struct {
	Name           *string         `json:"name"`
	Address        *string         `json:"address"`
	City           *string         `json:"city"`
	PostalCode     *string         `json:"postal_code"`
	Country        *string         `json:"country"`
	PhoneNumber    *string         `json:"phone_number"`
	Email          *string         `json:"email"`
	Website        *string         `json:"website"`
	Description    *string         `json:"description"`
	CalendlyAPIKey *string         `json:"calendly_api_key"`
	StripeEnabled  *bool           `json:"stripe_enabled"`
	IsActive       *bool           `json:"is_active"`
	BusinessHours  json.RawMessage `json:"business_hours"`
}

type StorePhotoInput struct {
	URL string `json:"url" validate:"required"`
}

// ListStores is the public storefront directory: active stores only.
func ListStores(c *fiber.Ctx) error {
	var stores []model.Store
	if err := database.FromCtx(c).Where("is_active = ?", true).Find(&stores).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load stores",
		})
	}

	return c.JSON(fiber.Map{
		"stores": stores,
	})
}

// GetStoreBySlug returns the public store page with its services.
func GetStoreBySlug(c *fiber.Ctx) error {
	var store model.Store
	err := database.FromCtx(c).
		Preload("Services").
		Where("slug = ? AND is_active = ?", c.Params("slug"), true).
		First(&store).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Store not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load store",
		})
	}

	return c.JSON(fiber.Map{
		"store":    store,
		"services": store.Services,
	})
}

// CreateStore is admin only: assigns a store manager and reserves the slug.
func CreateStore(c *fiber.Ctx) error {
	input := new(CreateStoreInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Name == "" || input.ManagerUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and manager_user_id are required",
		})
	}

	db := database.FromCtx(c)

	var manager model.User
	if err := db.First(&manager, "id = ?", input.ManagerUserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Manager user not found",
		})
	}
	if manager.Role != model.RoleStoreManager {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Manager must have the store_manager role",
		})
	}
	if manager.StoreID != "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Manager is already assigned to a store",
		})
	}

	storeSlug := input.Slug
	if storeSlug == "" {
		storeSlug = slug.Make(input.Name)
	} else {
		storeSlug = slug.Make(storeSlug)
	}

	var existing model.Store
	if err := db.Where("slug = ?", storeSlug).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Slug already in use",
		})
	}

	store := model.Store{
		Name:          input.Name,
		Slug:          storeSlug,
		Address:       input.Address,
		City:          input.City,
		PostalCode:    input.PostalCode,
		Country:       input.Country,
		PhoneNumber:   input.PhoneNumber,
		Email:         input.Email,
		Website:       input.Website,
		Description:   input.Description,
		ManagerUserID: manager.ID,
		IsActive:      true,
	}
	if len(input.Photos) > 0 {
		if err := store.SetPhotos(input.Photos); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid photos",
			})
		}
	}

	if err := db.Create(&store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create store",
		})
	}

	if err := db.Model(&manager).Update("store_id", store.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not assign manager",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Store created",
		"store":   store,
	})
}

// UpdateStore lets admins update any store and managers their own.
func UpdateStore(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("id")

	if !policy.Can(claims.Role, policy.ActionUpdate, policy.ResourceStore) ||
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

	input := new(UpdateStoreInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.Name != nil {
		store.Name = *input.Name
	}
	if input.Address != nil {
		store.Address = *input.Address
	}
	if input.City != nil {
		store.City = *input.City
	}
	if input.PostalCode != nil {
		store.PostalCode = *input.PostalCode
	}
	if input.Country != nil {
		store.Country = *input.Country
	}
	if input.PhoneNumber != nil {
		store.PhoneNumber = *input.PhoneNumber
	}
	if input.Email != nil {
		store.Email = *input.Email
	}
	if input.Website != nil {
		store.Website = *input.Website
	}
	if input.Description != nil {
		store.Description = *input.Description
	}
	if input.CalendlyAPIKey != nil {
		store.CalendlyAPIKey = *input.CalendlyAPIKey
	}
	if input.StripeEnabled != nil {
		store.StripeEnabled = *input.StripeEnabled
	}
	if input.BusinessHours != nil {
		store.BusinessHours = datatypes.JSON(input.BusinessHours)
	}
	// Only admins may deactivate a store
	if input.IsActive != nil && claims.Role == model.RoleAdmin {
		store.IsActive = *input.IsActive
	}

	if err := db.Save(&store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Store updated",
		"store":   store,
	})
}

// DeleteStore is admin only; tenant rows cascade and the manager is released.
func DeleteStore(c *fiber.Ctx) error {
	db := database.FromCtx(c)

	var store model.Store
	if err := db.First(&store, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	if err := db.Model(&model.User{}).
		Where("id = ?", store.ManagerUserID).
		Update("store_id", "").Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not release manager",
		})
	}

	if err := db.Select("Services", "Calendars", "Bookings", "Payments", "Subscriptions", "Notifications").
		Delete(&store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete store",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Store deleted",
	})
}

// MyStore returns the manager's own store with services and calendars,
// including fields hidden from the public payload.
func MyStore(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	if claims.StoreID == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No store assigned",
		})
	}

	var store model.Store
	err := database.FromCtx(c).
		Preload("Services").
		Preload("Calendars").
		First(&store, "id = ?", claims.StoreID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	return c.JSON(fiber.Map{
		"store":            store,
		"services":         store.Services,
		"calendars":        store.Calendars,
		"calendly_api_key": store.CalendlyAPIKey,
	})
}

// AddStorePhoto appends a photo URL to the store gallery.
func AddStorePhoto(c *fiber.Ctx) error {
	store, errResp := loadOwnedStore(c)
	if store == nil {
		return errResp
	}

	input := new(StorePhotoInput)
	if err := c.BodyParser(input); err != nil || input.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	if err := store.AddPhoto(input.URL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid photo URL",
		})
	}

	if err := database.FromCtx(c).Save(store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Photo added",
		"photos":  store.Photos(),
	})
}

// RemoveStorePhoto removes a photo URL from the store gallery.
func RemoveStorePhoto(c *fiber.Ctx) error {
	store, errResp := loadOwnedStore(c)
	if store == nil {
		return errResp
	}

	input := new(StorePhotoInput)
	if err := c.BodyParser(input); err != nil || input.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	if err := store.RemovePhoto(input.URL); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid photo URL",
		})
	}

	if err := database.FromCtx(c).Save(store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Photo removed",
		"photos":  store.Photos(),
	})
}

// UploadStorePhoto accepts a multipart image, optimizes it and stores it on S3.
func UploadStorePhoto(c *fiber.Ctx) error {
	store, errResp := loadOwnedStore(c)
	if store == nil {
		return errResp
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "photo file is required",
		})
	}

	url, err := storage.UploadStorePhoto(file, store.ID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := store.AddPhoto(url); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record photo",
		})
	}
	if err := database.FromCtx(c).Save(store).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update store",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Photo uploaded",
		"url":     url,
		"photos":  store.Photos(),
	})
}

// loadOwnedStore fetches the :id store and enforces manager/admin ownership.
// Returns (nil, response) when the request was already answered.
func loadOwnedStore(c *fiber.Ctx) (*model.Store, error) {
	claims := middleware.CurrentUser(c)
	storeID := c.Params("id")

	if !policy.CanAccessStore(claims.Role, claims.StoreID, storeID) || claims.Role == model.RoleClient {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	var store model.Store
	if err := database.FromCtx(c).First(&store, "id = ?", storeID).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Store not found",
		})
	}

	return &store, nil
}
