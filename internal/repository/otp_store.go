package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tasktracker/internal/models"

	"github.com/go-redis/redis/v8"
)

// OTPKey identifies at most one live code.
type OTPKey struct {
	Email   string
	Role    models.Role
	Purpose models.Purpose
}

func NewOTPKey(email string, role models.Role, purpose models.Purpose) OTPKey {
	return OTPKey{Email: models.NormalizeEmail(email), Role: role, Purpose: purpose}
}

func (k OTPKey) String() string {
	return k.Email + ":" + string(k.Role) + ":" + string(k.Purpose)
}

type OTPRecord struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPStore holds ephemeral codes. Put overwrites any record under the same key.
type OTPStore interface {
	Put(ctx context.Context, key OTPKey, rec OTPRecord, ttl time.Duration) error
	Get(ctx context.Context, key OTPKey) (OTPRecord, bool, error)
	Delete(ctx context.Context, key OTPKey) error
}

// MemoryOTPStore keeps codes for the lifetime of the process.
type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[OTPKey]OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{records: make(map[OTPKey]OTPRecord)}
}

func (m *MemoryOTPStore) Put(_ context.Context, key OTPKey, rec OTPRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = rec
	return nil
}

func (m *MemoryOTPStore) Get(_ context.Context, key OTPKey) (OTPRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	return rec, ok, nil
}

func (m *MemoryOTPStore) Delete(_ context.Context, key OTPKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// Sweep drops records that expired before now and reports how many went.
func (m *MemoryOTPStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, rec := range m.records {
		if now.After(rec.ExpiresAt) {
			delete(m.records, k)
			n++
		}
	}
	return n
}

func (m *MemoryOTPStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// RedisOTPStore keeps codes in Redis. Keys outlive the code by grace so that a
// late verify still reports "expired" rather than "not requested".
type RedisOTPStore struct {
	client *redis.Client
	prefix string
	grace  time.Duration
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client, prefix: "tasktracker:otp:", grace: 10 * time.Minute}
}

func (r *RedisOTPStore) Put(ctx context.Context, key OTPKey, rec OTPRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key.String(), data, ttl+r.grace).Err()
}

func (r *RedisOTPStore) Get(ctx context.Context, key OTPKey) (OTPRecord, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return OTPRecord{}, false, nil
	}
	if err != nil {
		return OTPRecord{}, false, err
	}
	var rec OTPRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return OTPRecord{}, false, err
	}
	return rec, true, nil
}

func (r *RedisOTPStore) Delete(ctx context.Context, key OTPKey) error {
	return r.client.Del(ctx, r.prefix+key.String()).Err()
}
