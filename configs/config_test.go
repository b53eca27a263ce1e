package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	for _, key := range []string{"PORT", "JWT_SECRET", "JWT_EXPIRES_IN", "OTP_TTL", "OTP_DEV_MODE", "OTP_REQUIRE_DELIVERY", "SYNC_MODE", "FROM_EMAIL", "SMTP_FROM", "SMTP_USER"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "5002")

	cfg := LoadConfig()

	assert.Equal(t, 5002, cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.False(t, cfg.OTPDevMode)
	assert.True(t, cfg.OTPRequireDelivery)
	assert.Equal(t, "no-reply@tasktracker.local", cfg.FromEmail)
}

func TestLoadConfig_DevModeRelaxesDelivery(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("OTP_DEV_MODE", "true")
	t.Setenv("OTP_REQUIRE_DELIVERY", "")
	t.Setenv("SYNC_MODE", "RELAY")
	t.Setenv("JWT_EXPIRES_IN", "90m")
	t.Setenv("OTP_TTL", "120")

	cfg := LoadConfig()

	assert.True(t, cfg.OTPDevMode)
	assert.False(t, cfg.OTPRequireDelivery)
	assert.Equal(t, "relay", cfg.SyncMode)
	assert.Equal(t, 90*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
}

func TestGetInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_PORT", "not-a-number")
	assert.Equal(t, 42, getInt("SOME_PORT", 42))
}
