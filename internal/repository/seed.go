package repository

import (
	"time"

	"tasktracker/internal/models"

	"github.com/google/uuid"
)

type defaultAccount struct {
	Email     string
	FirstName string
	Role      models.Role
	Password  string
}

// defaultAccounts are created on first start and re-added whenever they go missing.
var defaultAccounts = []defaultAccount{
	{Email: "member@tasktracker.io", FirstName: "Team Member", Role: models.RoleUser, Password: "password123"},
	{Email: "admin@tasktracker.io", FirstName: "Admin", Role: models.RoleAdmin, Password: "admin123"},
}

// seedAccounts adds every default account missing from s.accounts. Caller holds s.mu.
func (s *AccountStore) seedAccounts() (bool, error) {
	changed := false
	for _, d := range defaultAccounts {
		key := newAccountKey(d.Email, d.Role)
		if _, ok := s.accounts[key]; ok {
			continue
		}
		hash, err := s.hasher.Hash(d.Password)
		if err != nil {
			return changed, err
		}
		s.insert(key, models.Account{
			Email:        key.email,
			FirstName:    d.FirstName,
			Role:         d.Role,
			PasswordHash: hash,
			CreatedAt:    s.now().UTC(),
		})
		changed = true
	}
	return changed, nil
}

// DefaultTasks is the board a fresh process starts with.
func DefaultTasks(now time.Time) []models.Task {
	return []models.Task{
		{ID: uuid.NewString(), Title: "Design login screen", Status: models.StatusToDo, Priority: models.PriorityMedium, Participant: "You", DateAdded: now},
		{ID: uuid.NewString(), Title: "Wireframe dashboard", Status: models.StatusInProgress, Priority: models.PriorityHigh, Participant: "Team", DateAdded: now},
		{ID: uuid.NewString(), Title: "Sync task board", Status: models.StatusClosed, Priority: models.PriorityLow, Participant: "You", DateAdded: now},
	}
}
