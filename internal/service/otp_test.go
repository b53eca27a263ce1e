package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tasktracker/internal/models"
	"tasktracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequenceCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", fmt.Errorf("no more codes")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func TestOTPIssuer_RoundTripIsSingleUse(t *testing.T) {
	ctx := context.Background()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute)

	code, expiresAt, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	require.NoError(t, issuer.Verify(ctx, "A@x.com ", models.RoleUser, models.PurposeLogin, code))
	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, code), ErrOTPNotRequested)
}

func TestOTPIssuer_NotRequested(t *testing.T) {
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute)
	err := issuer.Verify(context.Background(), "a@x.com", models.RoleUser, models.PurposeLogin, "123456")
	assert.ErrorIs(t, err, ErrOTPNotRequested)
}

func TestOTPIssuer_ExpiredThenNotRequested(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute,
		WithOTPClock(clock.Now), WithCodeGenerator(sequenceCodes("123456")))

	code, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	clock.Advance(10*time.Minute + time.Second)

	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, code), ErrOTPExpired)
	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, code), ErrOTPNotRequested)
}

func TestOTPIssuer_ValidAtExactExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute,
		WithOTPClock(clock.Now), WithCodeGenerator(sequenceCodes("123456")))

	code, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	assert.NoError(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, code))
}

func TestOTPIssuer_MismatchKeepsRecord(t *testing.T) {
	ctx := context.Background()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute, WithCodeGenerator(sequenceCodes("123456")))

	_, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, "654321"), ErrOTPMismatch)
	assert.NoError(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, "123456"))
}

func TestOTPIssuer_ReissueInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute, WithCodeGenerator(sequenceCodes("111111", "222222")))

	first, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)
	second, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, first), ErrOTPMismatch)
	assert.NoError(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, second))
}

func TestOTPIssuer_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute, WithCodeGenerator(sequenceCodes("111111")))

	code, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeReset, code), ErrOTPNotRequested)
	assert.ErrorIs(t, issuer.Verify(ctx, "a@x.com", models.RoleAdmin, models.PurposeLogin, code), ErrOTPNotRequested)
}

func TestOTPIssuer_ConcurrentVerifySucceedsOnce(t *testing.T) {
	ctx := context.Background()
	issuer := NewOTPIssuer(repository.NewMemoryOTPStore(), 10*time.Minute, WithCodeGenerator(sequenceCodes("123456")))
	_, _, err := issuer.Issue(ctx, "a@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if issuer.Verify(ctx, "a@x.com", models.RoleUser, models.PurposeLogin, "123456") == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestOTPIssuer_SweepsExpiredRecords(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := repository.NewMemoryOTPStore()
	issuer := NewOTPIssuer(store, time.Minute, WithOTPClock(clock.Now), WithCodeGenerator(sequenceCodes("111111", "222222")))

	_, _, err := issuer.Issue(ctx, "old@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, _, err = issuer.Issue(ctx, "new@x.com", models.RoleUser, models.PurposeLogin)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
}
