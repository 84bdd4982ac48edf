package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/database"
)

type CreateUserInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	Age         *int   `json:"age"`
	Role        string `json:"role" validate:"required"`
}

type UpdateUserInput struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	Age         *int    `json:"age"`
	Role        *string `json:"role"`
	StoreID     *string `json:"store_id"`
}

// ListUsers: admins see everyone; managers see the clients who have booked
// at their store.
func ListUsers(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	db := database.FromCtx(c)

	var users []model.User
	switch claims.Role {
	case model.RoleAdmin:
		if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not load users",
			})
		}
	case model.RoleStoreManager:
		err := db.
			Where("role = ? AND id IN (?)", model.RoleClient,
				db.Session(&gorm.Session{NewDB: true}).
					Model(&model.Booking{}).
					Select("client_user_id").
					Where("store_id = ?", claims.StoreID)).
			Order("created_at DESC").
			Find(&users).Error
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not load users",
			})
		}
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	return c.JSON(fiber.Map{
		"users": users,
	})
}

// CreateUser is admin only: provisions accounts of any role.
func CreateUser(c *fiber.Ctx) error {
	input := new(CreateUserInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Email == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "first_name, last_name, email and password are required",
		})
	}

	role, ok := model.ParseUserRole(input.Role)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid role",
		})
	}

	db := database.FromCtx(c)

	var existing model.User
	if err := db.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already exists",
		})
	}

	user := model.User{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Address:     input.Address,
		Age:         input.Age,
		Role:        role,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	if err := db.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created",
		"user":    user,
	})
}

func GetUser(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	userID := c.Params("id")

	if claims.Role == model.RoleClient && claims.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var user model.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	// Managers may only look up their own clients
	if claims.Role == model.RoleStoreManager && claims.UserID != userID {
		var bookings int64
		db.Model(&model.Booking{}).
			Where("client_user_id = ? AND store_id = ?", user.ID, claims.StoreID).
			Count(&bookings)
		if bookings == 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

// UpdateUser applies a role-scoped allow-list: clients edit their own profile
// fields, admins may additionally change role and store assignment.
func UpdateUser(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	userID := c.Params("id")

	if claims.Role != model.RoleAdmin && claims.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var user model.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	input := new(UpdateUserInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.PhoneNumber != nil {
		user.PhoneNumber = *input.PhoneNumber
	}
	if input.Address != nil {
		user.Address = *input.Address
	}
	if input.Age != nil {
		user.Age = input.Age
	}
	if input.Email != nil && *input.Email != user.Email {
		var existing model.User
		if err := db.Where("email = ?", *input.Email).First(&existing).Error; err == nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already exists",
			})
		}
		user.Email = *input.Email
	}
	if input.Password != nil {
		if len(*input.Password) < 6 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Password must be at least 6 characters",
			})
		}
		if err := user.SetPassword(*input.Password); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not hash password",
			})
		}
	}

	// Admin-only fields
	if claims.Role == model.RoleAdmin {
		if input.Role != nil {
			role, ok := model.ParseUserRole(*input.Role)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid role",
				})
			}
			user.Role = role
		}
		if input.StoreID != nil {
			user.StoreID = *input.StoreID
		}
	} else if input.Role != nil || input.StoreID != nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only admins can change role or store assignment",
		})
	}

	if err := db.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User updated",
		"user":    user,
	})
}

// DeleteUser lets admins remove any account and clients delete their own.
func DeleteUser(c *fiber.Ctx) error {
	claims := middleware.CurrentUser(c)
	userID := c.Params("id")

	if claims.Role != model.RoleAdmin && claims.UserID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}

	db := database.FromCtx(c)

	var user model.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if user.Role == model.RoleStoreManager && user.StoreID != "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Manager is still assigned to a store",
		})
	}

	if err := db.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User deleted",
	})
}
