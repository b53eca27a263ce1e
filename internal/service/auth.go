package service

import (
	"context"
	"errors"
	"time"

	"tasktracker/internal/apperror"
	"tasktracker/internal/models"
	"tasktracker/internal/notify"
	"tasktracker/internal/repository"
	"tasktracker/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AccountRepository is the part of the credential store the auth flows use.
type AccountRepository interface {
	Get(email string, role models.Role) (models.Account, error)
	Create(email string, role models.Role, firstName, password string) (models.Account, error)
	SetPassword(email string, role models.Role, newPassword string) error
	VerifyPassword(email string, role models.Role, password string) bool
}

type AuthConfig struct {
	// DevMode allows the code to be returned in the response when it was not emailed.
	DevMode bool
	// RequireDelivery fails sign-in and forgot-password when the email was not sent.
	RequireDelivery bool
}

type AuthService struct {
	accounts AccountRepository
	otps     *OTPIssuer
	sessions *SessionIssuer
	gateway  notify.Gateway
	cfg      AuthConfig
	validate *validator.Validate
}

// NewAuthService wires the auth flows. validate is the shared instance; nil gets a fresh one.
func NewAuthService(accounts AccountRepository, otps *OTPIssuer, sessions *SessionIssuer, gateway notify.Gateway, validate *validator.Validate, cfg AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		accounts: accounts,
		otps:     otps,
		sessions: sessions,
		gateway:  gateway,
		cfg:      cfg,
		validate: validate,
	}
}

// OTPChallenge is returned once a code has been issued.
type OTPChallenge struct {
	OTPSent          bool   `json:"otpSent"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
	EmailSent        bool   `json:"emailSent"`
	DevOTP           string `json:"devOtp,omitempty"`
}

type Session struct {
	Token     string            `json:"token"`
	User      models.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"-"`
}

type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	Role      models.Role
}

type VerifyOTPInput struct {
	Email   string
	Role    models.Role
	Purpose models.Purpose
	Code    string
}

type ResetPasswordInput struct {
	Email       string
	Role        models.Role
	Code        string
	NewPassword string
}

func resolveRole(role models.Role) (models.Role, error) {
	if role == "" {
		return models.RoleUser, nil
	}
	if !role.Valid() {
		return "", apperror.Validation("Unsupported role.")
	}
	return role, nil
}

func (a *AuthService) checkEmail(email string) error {
	if err := a.validate.Var(email, "required,email"); err != nil {
		return apperror.Validation("Enter a valid email address")
	}
	return nil
}

func (a *AuthService) checkCode(code string) error {
	if err := a.validate.Var(code, "len=6,numeric"); err != nil {
		return apperror.Validation("OTP must be 6 digits")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < 6 {
		return apperror.Validation("Password must be at least 6 characters long")
	}
	return nil
}

func (a *AuthService) SignUp(ctx context.Context, in SignUpInput) error {
	role, err := resolveRole(in.Role)
	if err != nil {
		return err
	}
	if err := a.checkEmail(in.Email); err != nil {
		return err
	}
	if err := checkPassword(in.Password); err != nil {
		return err
	}
	if in.FirstName == "" {
		return apperror.Validation("First name is required")
	}

	account, err := a.accounts.Create(in.Email, role, in.FirstName, in.Password)
	if errors.Is(err, repository.ErrAccountExists) {
		return apperror.Conflict("Account already exists for this email.", err)
	}
	if err != nil {
		return apperror.Internal("Error creating account", err)
	}

	logger.AuditLogger.Info("Account created", zap.String("email", account.Email), zap.String("role", string(role)))
	return nil
}

// SignIn checks the password and, on success, issues a login code.
func (a *AuthService) SignIn(ctx context.Context, email, password string, role models.Role) (OTPChallenge, error) {
	role, err := resolveRole(role)
	if err != nil {
		return OTPChallenge{}, err
	}
	if err := a.checkEmail(email); err != nil {
		return OTPChallenge{}, err
	}
	if password == "" {
		return OTPChallenge{}, apperror.Validation("Password is required")
	}

	if _, err := a.accounts.Get(email, role); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			logger.SecurityLogger.Warn("Sign-in for unknown account", zap.String("email", models.NormalizeEmail(email)), zap.String("role", string(role)))
			return OTPChallenge{}, apperror.Unauthorized("Account not found for this role.", err)
		}
		return OTPChallenge{}, apperror.Internal("Error loading account", err)
	}
	if !a.accounts.VerifyPassword(email, role, password) {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", models.NormalizeEmail(email)), zap.String("role", string(role)))
		return OTPChallenge{}, apperror.Unauthorized("Invalid credentials.", nil)
	}

	return a.challenge(ctx, email, role, models.PurposeLogin)
}

// ForgotPassword issues a reset code. Unlike SignIn an unknown account is NotFound.
func (a *AuthService) ForgotPassword(ctx context.Context, email string, role models.Role) (OTPChallenge, error) {
	role, err := resolveRole(role)
	if err != nil {
		return OTPChallenge{}, err
	}
	if err := a.checkEmail(email); err != nil {
		return OTPChallenge{}, err
	}

	if _, err := a.accounts.Get(email, role); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return OTPChallenge{}, apperror.NotFound("Account not found for this role.", err)
		}
		return OTPChallenge{}, apperror.Internal("Error loading account", err)
	}

	return a.challenge(ctx, email, role, models.PurposeReset)
}

func (a *AuthService) challenge(ctx context.Context, email string, role models.Role, purpose models.Purpose) (OTPChallenge, error) {
	normalized := models.NormalizeEmail(email)
	code, _, err := a.otps.Issue(ctx, normalized, role, purpose)
	if err != nil {
		return OTPChallenge{}, apperror.Internal("Error issuing OTP", err)
	}

	res := notify.Deliver(ctx, a.gateway, notify.OTPMessage{
		To:        normalized,
		Role:      role,
		Purpose:   purpose,
		Code:      code,
		ExpiresIn: a.otps.TTL(),
	})
	if a.cfg.RequireDelivery && !res.Sent {
		if res.Reason == notify.ReasonNotConfigured {
			return OTPChallenge{}, apperror.DeliveryUnavailable("Email delivery not configured. Set SMTP_* values in .env.")
		}
		return OTPChallenge{}, apperror.DeliveryUnavailable("Failed to send OTP email. Check SMTP settings.")
	}

	ch := OTPChallenge{
		OTPSent:          true,
		ExpiresInSeconds: int(a.otps.TTL() / time.Second),
		EmailSent:        res.Sent,
	}
	if a.cfg.DevMode && !res.Sent {
		ch.DevOTP = code
	}
	return ch, nil
}

func otpFailure(err error) error {
	switch {
	case errors.Is(err, ErrOTPNotRequested):
		return apperror.Unauthorized("No OTP requested for this account.", err)
	case errors.Is(err, ErrOTPExpired):
		return apperror.Unauthorized("OTP expired. Please request a new one.", err)
	case errors.Is(err, ErrOTPMismatch):
		return apperror.Unauthorized("Invalid OTP. Please try again.", err)
	default:
		return apperror.Internal("Error verifying OTP", err)
	}
}

// VerifyOTP consumes a code and mints a session token for the account.
func (a *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (Session, error) {
	role, err := resolveRole(in.Role)
	if err != nil {
		return Session{}, err
	}
	purpose := in.Purpose
	if purpose == "" {
		purpose = models.PurposeLogin
	}
	if !purpose.Valid() {
		return Session{}, apperror.Validation("Invalid OTP purpose")
	}
	if err := a.checkEmail(in.Email); err != nil {
		return Session{}, err
	}
	if err := a.checkCode(in.Code); err != nil {
		return Session{}, err
	}

	account, err := a.accounts.Get(in.Email, role)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return Session{}, apperror.Unauthorized("Account not found for this role.", err)
		}
		return Session{}, apperror.Internal("Error loading account", err)
	}

	if err := a.otps.Verify(ctx, account.Email, role, purpose, in.Code); err != nil {
		return Session{}, otpFailure(err)
	}

	token, expiresAt, err := a.sessions.Issue(account.Email, role)
	if err != nil {
		return Session{}, apperror.Internal("Error generating token", err)
	}

	logger.AuditLogger.Info("Session issued", zap.String("email", account.Email), zap.String("role", string(role)))
	return Session{Token: token, User: account.Public(), ExpiresAt: expiresAt}, nil
}

// ResetPassword checks a reset code and replaces the password.
func (a *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	role, err := resolveRole(in.Role)
	if err != nil {
		return err
	}
	if err := a.checkEmail(in.Email); err != nil {
		return err
	}
	if err := a.checkCode(in.Code); err != nil {
		return err
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return err
	}

	account, err := a.accounts.Get(in.Email, role)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperror.NotFound("Account not found for this role.", err)
		}
		return apperror.Internal("Error loading account", err)
	}

	if err := a.otps.Verify(ctx, account.Email, role, models.PurposeReset, in.Code); err != nil {
		return otpFailure(err)
	}

	if err := a.accounts.SetPassword(account.Email, role, in.NewPassword); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperror.NotFound("Account not found for this role.", err)
		}
		return apperror.Internal("Error updating password", err)
	}

	logger.AuditLogger.Info("Password reset", zap.String("email", account.Email), zap.String("role", string(role)))
	return nil
}

// Profile returns the public part of an account.
func (a *AuthService) Profile(email string, role models.Role) (models.PublicUser, error) {
	account, err := a.accounts.Get(email, role)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return models.PublicUser{}, apperror.NotFound("Account not found for this role.", err)
		}
		return models.PublicUser{}, apperror.Internal("Error loading account", err)
	}
	return account.Public(), nil
}
