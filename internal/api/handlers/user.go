package handlers

import (
	"time"

	"tasktracker/internal/models"
	"tasktracker/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AccountLister is the read side of the credential store.
type AccountLister interface {
	List() ([]models.Account, error)
}

// UserHandler serves the admin account listing.
type UserHandler struct {
	Accounts AccountLister
}

// accountView leaves the password hash out.
type accountView struct {
	Email     string      `json:"email"`
	FirstName string      `json:"firstName"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
}

// GetAllAccounts is admin only; the route applies RequireRole.
func (h *UserHandler) GetAllAccounts(c *fiber.Ctx) error {
	accounts, err := h.Accounts.List()
	if err != nil {
		logger.ErrorLogger.Error("Error listing accounts", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching accounts")
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{
			Email:     a.Email,
			FirstName: a.FirstName,
			Role:      a.Role,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		})
	}
	return c.JSON(views)
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}
