package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Purpose keeps codes for different flows from colliding.
type Purpose string

const (
	PurposeLogin Purpose = "login"
	PurposeReset Purpose = "reset"
)

func (p Purpose) Valid() bool {
	return p == PurposeLogin || p == PurposeReset
}

// NormalizeEmail returns the lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Account is unique per (normalized email, role).
type Account struct {
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// PublicUser is the part of an account that leaves the server.
type PublicUser struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	Role      Role   `json:"role"`
}

func (a Account) Public() PublicUser {
	return PublicUser{Email: a.Email, FirstName: a.FirstName, Role: a.Role}
}

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To do"
	StatusInProgress TaskStatus = "In progress"
	StatusClosed     TaskStatus = "Closed"
	StatusFrozen     TaskStatus = "Frozen"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusClosed, StatusFrozen:
		return true
	default:
		return false
	}
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is a board card. The id is serialized as "_id" for the SPA.
type Task struct {
	ID          string       `json:"_id"`
	Title       string       `json:"title"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Participant string       `json:"participant"`
	DateAdded   time.Time    `json:"dateAdded"`
	Deadline    *time.Time   `json:"deadline"`
}

// TaskInput carries the fields accepted on create.
type TaskInput struct {
	Title       string       `json:"title" validate:"required"`
	Status      TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority    TaskPriority `json:"priority" validate:"omitempty,task_priority"`
	Participant string       `json:"participant"`
	Deadline    NullTime     `json:"deadline"`
}

// TaskPatch is a partial update: nil pointers and unset Deadline mean "no change".
type TaskPatch struct {
	Title       *string       `json:"title"`
	Status      *TaskStatus   `json:"status" validate:"omitempty,task_status"`
	Priority    *TaskPriority `json:"priority" validate:"omitempty,task_priority"`
	Participant *string       `json:"participant"`
	Deadline    NullTime      `json:"deadline"`
}

// NullTime tells an absent JSON field apart from an explicit null.
type NullTime struct {
	Set  bool
	Time *time.Time
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func (n *NullTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Time = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("deadline must be a string or null: %w", err)
	}
	if raw == "" {
		n.Time = nil
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			n.Time = &t
			return nil
		}
	}
	return fmt.Errorf("invalid deadline %q", raw)
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if n.Time == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time)
}
