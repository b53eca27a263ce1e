package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/pkg/crypto"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"

	"go.uber.org/zap"
)

const otpDigits = 6

var (
	ErrOTPNotRequested = errors.New("no OTP requested")
	ErrOTPExpired      = errors.New("OTP expired")
	ErrOTPMismatch     = errors.New("OTP mismatch")
)

// OTPIssuer issues and checks one-time codes. Per (email, role, purpose) the
// lifecycle is absent -> issued -> verified | expired | overwritten.
type OTPIssuer struct {
	mu       sync.Mutex
	store    repository.OTPStore
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

type OTPOption func(*OTPIssuer)

func WithOTPClock(now func() time.Time) OTPOption {
	return func(o *OTPIssuer) { o.now = now }
}

func WithCodeGenerator(gen func() (string, error)) OTPOption {
	return func(o *OTPIssuer) { o.generate = gen }
}

func NewOTPIssuer(store repository.OTPStore, ttl time.Duration, opts ...OTPOption) *OTPIssuer {
	o := &OTPIssuer{
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		generate: func() (string, error) { return crypto.GenerateNumericCode(otpDigits) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OTPIssuer) TTL() time.Duration { return o.ttl }

// Issue creates a fresh code for the key, replacing any live one.
func (o *OTPIssuer) Issue(ctx context.Context, email string, role models.Role, purpose models.Purpose) (string, time.Time, error) {
	code, err := o.generate()
	if err != nil {
		return "", time.Time{}, err
	}
	key := repository.NewOTPKey(email, role, purpose)

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if sweeper, ok := o.store.(interface{ Sweep(time.Time) int }); ok {
		sweeper.Sweep(now)
	}
	expiresAt := now.Add(o.ttl)
	if err := o.store.Put(ctx, key, repository.OTPRecord{Code: code, ExpiresAt: expiresAt}, o.ttl); err != nil {
		return "", time.Time{}, err
	}

	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	logger.AuditLogger.Info("OTP issued",
		zap.String("email", key.Email),
		zap.String("role", string(role)),
		zap.String("purpose", string(purpose)),
	)
	return code, expiresAt, nil
}

// Verify consumes the code on success. A mismatch keeps the record so the
// caller may retry until expiry; an expired record is removed.
func (o *OTPIssuer) Verify(ctx context.Context, email string, role models.Role, purpose models.Purpose, code string) error {
	key := repository.NewOTPKey(email, role, purpose)

	o.mu.Lock()
	defer o.mu.Unlock()

	rec, ok, err := o.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		metrics.OTPVerifications.WithLabelValues("not_requested").Inc()
		return ErrOTPNotRequested
	}
	if o.now().After(rec.ExpiresAt) {
		if err := o.store.Delete(ctx, key); err != nil {
			return err
		}
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		logger.SecurityLogger.Warn("OTP mismatch",
			zap.String("email", key.Email),
			zap.String("role", string(role)),
			zap.String("purpose", string(purpose)),
		)
		return ErrOTPMismatch
	}
	if err := o.store.Delete(ctx, key); err != nil {
		return err
	}
	metrics.OTPVerifications.WithLabelValues("ok").Inc()
	return nil
}
