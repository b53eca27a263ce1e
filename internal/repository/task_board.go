package repository

import (
	"errors"
	"sync"
	"time"

	"tasktracker/internal/models"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskTitleRequired = errors.New("title is required")
)

// TaskBoard is the authoritative in-memory task list. Order is significant:
// it is the order clients render and reorder.
type TaskBoard struct {
	mu    sync.RWMutex
	tasks []models.Task
	newID func() string
	now   func() time.Time
}

type TaskBoardOption func(*TaskBoard)

func WithTaskIDs(newID func() string) TaskBoardOption {
	return func(b *TaskBoard) { b.newID = newID }
}

func WithTaskClock(now func() time.Time) TaskBoardOption {
	return func(b *TaskBoard) { b.now = now }
}

func NewTaskBoard(seed []models.Task, opts ...TaskBoardOption) *TaskBoard {
	b := &TaskBoard{
		tasks: cloneTasks(seed),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func cloneTasks(in []models.Task) []models.Task {
	out := make([]models.Task, len(in))
	copy(out, in)
	return out
}

func (b *TaskBoard) List() []models.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneTasks(b.tasks)
}

// Create appends a task with a fresh id; status and priority default to "To do" / "Low".
func (b *TaskBoard) Create(in models.TaskInput) (models.Task, error) {
	if in.Title == "" {
		return models.Task{}, ErrTaskTitleRequired
	}
	task := models.Task{
		ID:          b.newID(),
		Title:       in.Title,
		Status:      in.Status,
		Priority:    in.Priority,
		Participant: in.Participant,
		DateAdded:   b.now().UTC(),
		Deadline:    in.Deadline.Time,
	}
	if task.Status == "" {
		task.Status = models.StatusToDo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityLow
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, task)
	return task, nil
}

// Patch merges only the fields present in p into the task with id.
func (b *TaskBoard) Patch(id string, p models.TaskPatch) (models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return models.Task{}, ErrTaskNotFound
	}
	t := &b.tasks[i]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Participant != nil {
		t.Participant = *p.Participant
	}
	if p.Deadline.Set {
		t.Deadline = p.Deadline.Time
	}
	return *t, nil
}

// Replace adopts tasks wholesale. Last writer wins.
func (b *TaskBoard) Replace(tasks []models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = cloneTasks(tasks)
}

// Move sets the status of task id and, when index is non-nil, repositions it
// at that index (clamped to the list bounds). It returns the resulting list.
func (b *TaskBoard) Move(id string, status models.TaskStatus, index *int) ([]models.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return nil, ErrTaskNotFound
	}
	task := b.tasks[i]
	if status != "" {
		task.Status = status
	}
	if index == nil {
		b.tasks[i] = task
		return cloneTasks(b.tasks), nil
	}

	rest := append(b.tasks[:i:i], b.tasks[i+1:]...)
	dst := *index
	if dst < 0 {
		dst = 0
	}
	if dst > len(rest) {
		dst = len(rest)
	}
	moved := make([]models.Task, 0, len(rest)+1)
	moved = append(moved, rest[:dst]...)
	moved = append(moved, task)
	moved = append(moved, rest[dst:]...)
	b.tasks = moved
	return cloneTasks(b.tasks), nil
}

func (b *TaskBoard) indexOf(id string) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
