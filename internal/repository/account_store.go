package repository

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tasktracker/internal/models"
	"tasktracker/pkg/crypto"
	"tasktracker/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Persister reads and writes the whole serialized credential store.
type Persister interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// FilePersister keeps the store in a single JSON document on disk.
type FilePersister struct {
	Path string
}

func (f FilePersister) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Write replaces the file atomically through a temp file + rename.
func (f FilePersister) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

type accountKey struct {
	email string
	role  models.Role
}

func newAccountKey(email string, role models.Role) accountKey {
	return accountKey{email: models.NormalizeEmail(email), role: role}
}

type accountFile struct {
	Users []models.Account `json:"users"`
}

// AccountStore maps (normalized email, role) to an account. Every mutation
// rewrites the whole persisted document, so only one process may own the file.
type AccountStore struct {
	mu        sync.RWMutex
	persister Persister
	hasher    PasswordHasher
	now       func() time.Time

	accounts map[accountKey]models.Account
	order    []accountKey
	// unknown holds persisted records with a role this build does not serve.
	// They are unreachable but written back on every persist.
	unknown []models.Account
	loaded  bool
}

type AccountStoreOption func(*AccountStore)

func WithHasher(h PasswordHasher) AccountStoreOption {
	return func(s *AccountStore) { s.hasher = h }
}

func WithAccountClock(now func() time.Time) AccountStoreOption {
	return func(s *AccountStore) { s.now = now }
}

func NewAccountStore(p Persister, opts ...AccountStoreOption) *AccountStore {
	s := &AccountStore{
		persister: p,
		hasher:    crypto.NewBcryptHasher(0),
		now:       time.Now,
		accounts:  make(map[accountKey]models.Account),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted accounts. A missing or corrupt document is replaced
// by the default accounts; only a failure to write that reseed is returned.
func (s *AccountStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *AccountStore) ensureLoaded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.loadLocked()
}

func (s *AccountStore) loadLocked() error {
	s.loaded = true
	s.accounts = make(map[accountKey]models.Account)
	s.order = nil
	s.unknown = nil

	raw, err := s.persister.Read()
	if err == nil {
		err = s.decode(raw)
	}
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.SystemLogger.Warn("Credential store unreadable, reseeding defaults", zap.Error(err))
		}
		s.accounts = make(map[accountKey]models.Account)
		s.order = nil
		s.unknown = nil
		if _, err := s.seedAccounts(); err != nil {
			return err
		}
		return s.persistLocked()
	}

	changed, err := s.seedAccounts()
	if err != nil {
		return err
	}
	if changed {
		return s.persistLocked()
	}
	logger.SystemLogger.Info("Credential store loaded", zap.Int("accounts", len(s.order)))
	return nil
}

func (s *AccountStore) decode(raw []byte) error {
	var f accountFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	for _, a := range f.Users {
		if a.Email == "" {
			continue
		}
		if a.Role == "" {
			a.Role = models.RoleUser
		}
		if !a.Role.Valid() {
			logger.SystemLogger.Warn("Keeping account with unknown role out of lookups",
				zap.String("email", a.Email), zap.String("role", string(a.Role)))
			s.unknown = append(s.unknown, a)
			continue
		}
		key := newAccountKey(a.Email, a.Role)
		a.Email = key.email
		s.insert(key, a)
	}
	return nil
}

func (s *AccountStore) insert(key accountKey, a models.Account) {
	if _, ok := s.accounts[key]; !ok {
		s.order = append(s.order, key)
	}
	s.accounts[key] = a
}

func (s *AccountStore) remove(key accountKey) {
	delete(s.accounts, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *AccountStore) persistLocked() error {
	f := accountFile{Users: make([]models.Account, 0, len(s.order)+len(s.unknown))}
	for _, key := range s.order {
		f.Users = append(f.Users, s.accounts[key])
	}
	f.Users = append(f.Users, s.unknown...)
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := s.persister.Write(data); err != nil {
		logger.ErrorLogger.Error("Error persisting credential store", zap.Error(err))
		return err
	}
	return nil
}

func (s *AccountStore) Get(email string, role models.Role) (models.Account, error) {
	if err := s.ensureLoaded(); err != nil {
		return models.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[newAccountKey(email, role)]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return a, nil
}

// Create fails with ErrAccountExists when the (email, role) pair is taken and
// leaves the existing record untouched.
func (s *AccountStore) Create(email string, role models.Role, firstName, password string) (models.Account, error) {
	if err := s.ensureLoaded(); err != nil {
		return models.Account{}, err
	}
	key := newAccountKey(email, role)

	s.mu.RLock()
	_, exists := s.accounts[key]
	s.mu.RUnlock()
	if exists {
		return models.Account{}, ErrAccountExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return models.Account{}, ErrAccountExists
	}
	a := models.Account{
		Email:        key.email,
		FirstName:    firstName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	s.insert(key, a)
	if err := s.persistLocked(); err != nil {
		s.remove(key)
		return models.Account{}, err
	}
	return a, nil
}

func (s *AccountStore) SetPassword(email string, role models.Role, newPassword string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	key := newAccountKey(email, role)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.accounts[key]
	if !ok {
		return ErrAccountNotFound
	}
	updated := prev
	now := s.now().UTC()
	updated.PasswordHash = hash
	updated.UpdatedAt = &now
	s.accounts[key] = updated
	if err := s.persistLocked(); err != nil {
		s.accounts[key] = prev
		return err
	}
	return nil
}

func (s *AccountStore) VerifyPassword(email string, role models.Role, password string) bool {
	a, err := s.Get(email, role)
	if err != nil {
		return false
	}
	return s.hasher.Compare(a.PasswordHash, password)
}

// List returns the accounts in creation order.
func (s *AccountStore) List() ([]models.Account, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.accounts[key])
	}
	return out, nil
}
