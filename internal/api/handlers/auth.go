package handlers

import (
	"tasktracker/internal/middleware"
	"tasktracker/internal/models"
	"tasktracker/internal/service"
	"tasktracker/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth *service.AuthService
}

type signUpRequest struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FirstName string      `json:"firstName"`
	Role      models.Role `json:"role"`
}

type signInRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type verifyOTPRequest struct {
	Email   string         `json:"email"`
	Role    models.Role    `json:"role"`
	Purpose models.Purpose `json:"purpose"`
	Code    string         `json:"code"`
}

type forgotPasswordRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type resetPasswordRequest struct {
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	Code        string      `json:"code"`
	NewPassword string      `json:"newPassword"`
}

func badRequest(c *fiber.Ctx, err error, where string) error {
	logger.ErrorLogger.Error("Bad request in "+where, zap.Error(err))
	return fail(c, fiber.StatusBadRequest, "Bad request")
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err, "signup")
	}
	err := h.Auth.SignUp(c.UserContext(), service.SignUpInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		Role:      req.Role,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": "User created successfully."})
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err, "signin")
	}
	challenge, err := h.Auth.SignIn(c.UserContext(), req.Email, req.Password, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}

func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err, "verify-otp")
	}
	session, err := h.Auth.VerifyOTP(c.UserContext(), service.VerifyOTPInput{
		Email:   req.Email,
		Role:    req.Role,
		Purpose: req.Purpose,
		Code:    req.Code,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(session)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err, "forgot-password")
	}
	challenge, err := h.Auth.ForgotPassword(c.UserContext(), req.Email, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err, "reset-password")
	}
	err := h.Auth.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		Email:       req.Email,
		Role:        req.Role,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "message": "Password updated successfully."})
}

// Me returns the account behind the bearer token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	email, role := middleware.SessionFrom(c)
	user, err := h.Auth.Profile(email, role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}
