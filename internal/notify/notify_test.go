package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"tasktracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayFunc func(ctx context.Context, msg OTPMessage) error

func (f gatewayFunc) SendOTP(ctx context.Context, msg OTPMessage) error { return f(ctx, msg) }

func TestDeliver(t *testing.T) {
	msg := OTPMessage{To: "a@x.com", Role: models.RoleUser, Purpose: models.PurposeLogin, Code: "123456", ExpiresIn: 10 * time.Minute}

	tests := []struct {
		name    string
		gateway Gateway
		want    Result
	}{
		{name: "nil gateway", gateway: nil, want: Result{Reason: ReasonNotConfigured}},
		{name: "sent", gateway: gatewayFunc(func(context.Context, OTPMessage) error { return nil }), want: Result{Sent: true}},
		{name: "send fails", gateway: gatewayFunc(func(context.Context, OTPMessage) error { return errors.New("dial tcp: refused") }), want: Result{Reason: ReasonSendFailed}},
		{name: "not configured", gateway: gatewayFunc(func(context.Context, OTPMessage) error { return ErrNotConfigured }), want: Result{Reason: ReasonNotConfigured}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Deliver(context.Background(), tt.gateway, msg))
		})
	}
}

func TestOTPMessage_Text(t *testing.T) {
	login := OTPMessage{Role: models.RoleAdmin, Purpose: models.PurposeLogin, Code: "042424", ExpiresIn: 10 * time.Minute}
	reset := OTPMessage{Role: models.RoleUser, Purpose: models.PurposeReset, Code: "111111", ExpiresIn: 10 * time.Minute}

	assert.Equal(t, "Your Task Tracker sign-in code", login.Subject())
	assert.Equal(t, "Your admin OTP is 042424. It expires in 10 minutes.", login.Body())
	assert.Equal(t, "Reset your Task Tracker password", reset.Subject())
}

func TestNewSMTPGateway_RequiresCredentials(t *testing.T) {
	_, err := NewSMTPGateway(SMTPConfig{Host: "smtp.example.com", Port: 587})
	assert.ErrorIs(t, err, ErrNotConfigured)

	g, err := NewSMTPGateway(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "no-reply@tasktracker.local"})
	require.NoError(t, err)
	assert.NotNil(t, g)
}
