package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"appointmenthub_backend/pkg/database"
)

// Transaction wraps each request in a database transaction. The transaction is
// placed in locals under "db" and committed only when the handler returns no
// error and a non-error status. Controllers read it via database.FromCtx.
func Transaction() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tx := database.GetDB().Begin()
		if tx.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not start transaction",
			})
		}

		c.Locals("db", tx)

		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()

		err := c.Next()

		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			tx.Rollback()
			return err
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			log.Printf("Transaction commit failed: %v", commitErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not persist changes",
			})
		}

		return nil
	}
}
