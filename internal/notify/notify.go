package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktracker/internal/models"
	"tasktracker/pkg/logger"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("email delivery not configured")

// Reasons reported when a code could not be delivered.
const (
	ReasonNotConfigured = "Email not configured"
	ReasonSendFailed    = "Email send failed"
)

// OTPMessage is what the gateway needs to deliver a code.
type OTPMessage struct {
	To        string
	Role      models.Role
	Purpose   models.Purpose
	Code      string
	ExpiresIn time.Duration
}

func (m OTPMessage) Subject() string {
	if m.Purpose == models.PurposeReset {
		return "Reset your Task Tracker password"
	}
	return "Your Task Tracker sign-in code"
}

func (m OTPMessage) Body() string {
	minutes := int(m.ExpiresIn.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("Your %s OTP is %s. It expires in %d minutes.", m.Role, m.Code, minutes)
}

// Gateway delivers one-time codes to their owner.
type Gateway interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// Result is the outcome of a delivery attempt. Failures never propagate as errors.
type Result struct {
	Sent   bool
	Reason string
}

// Deliver sends msg through g and folds any failure into Result. A nil gateway
// reports ReasonNotConfigured.
func Deliver(ctx context.Context, g Gateway, msg OTPMessage) Result {
	if g == nil {
		return Result{Sent: false, Reason: ReasonNotConfigured}
	}
	if err := g.SendOTP(ctx, msg); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return Result{Sent: false, Reason: ReasonNotConfigured}
		}
		logger.ErrorLogger.Error("Error sending OTP email",
			zap.String("purpose", string(msg.Purpose)),
			zap.String("role", string(msg.Role)),
			zap.Error(err),
		)
		return Result{Sent: false, Reason: ReasonSendFailed}
	}
	return Result{Sent: true}
}
