package repository

import (
	"fmt"
	"testing"
	"time"

	"tasktracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestBoard(seed ...models.Task) *TaskBoard {
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return NewTaskBoard(seed, WithTaskIDs(seqIDs()), WithTaskClock(func() time.Time { return fixed }))
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestTaskBoard_CreateAppliesDefaults(t *testing.T) {
	board := newTestBoard()

	task, err := board.Create(models.TaskInput{Title: "Write docs"})
	require.NoError(t, err)

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, models.StatusToDo, task.Status)
	assert.Equal(t, models.PriorityLow, task.Priority)
	assert.Nil(t, task.Deadline)
	assert.Equal(t, []string{"t1"}, ids(board.List()))
}

func TestTaskBoard_CreateWithoutTitleDoesNotAppend(t *testing.T) {
	board := newTestBoard(models.Task{ID: "seed", Title: "x"})

	_, err := board.Create(models.TaskInput{Participant: "You"})
	assert.ErrorIs(t, err, ErrTaskTitleRequired)
	assert.Len(t, board.List(), 1)
}

func TestTaskBoard_PatchIsPartialMerge(t *testing.T) {
	board := newTestBoard(models.Task{ID: "a", Title: "Design", Status: models.StatusToDo, Priority: models.PriorityHigh, Participant: "Team"})

	status := models.StatusInProgress
	task, err := board.Patch("a", models.TaskPatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, task.Status)
	assert.Equal(t, "Design", task.Title)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, "Team", task.Participant)
	assert.Equal(t, task, board.List()[0])
}

func TestTaskBoard_PatchDeadline(t *testing.T) {
	deadline := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	board := newTestBoard(models.Task{ID: "a", Title: "x", Deadline: &deadline})

	task, err := board.Patch("a", models.TaskPatch{Title: strPtr("y")})
	require.NoError(t, err)
	require.NotNil(t, task.Deadline, "an absent deadline is left alone")

	task, err = board.Patch("a", models.TaskPatch{Deadline: models.NullTime{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, task.Deadline, "an explicit null clears it")
}

func TestTaskBoard_PatchUnknown(t *testing.T) {
	board := newTestBoard()
	_, err := board.Patch("missing", models.TaskPatch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskBoard_ListIsACopy(t *testing.T) {
	board := newTestBoard(models.Task{ID: "a", Title: "x"})
	list := board.List()
	list[0].Title = "mutated"
	assert.Equal(t, "x", board.List()[0].Title)
}

func TestTaskBoard_ReplaceIsLastWriteWins(t *testing.T) {
	board := newTestBoard(models.Task{ID: "a"}, models.Task{ID: "b"})

	board.Replace([]models.Task{{ID: "b"}, {ID: "a", Status: models.StatusClosed}})
	board.Replace([]models.Task{{ID: "a"}, {ID: "b", Status: models.StatusFrozen}})

	list := board.List()
	assert.Equal(t, []string{"a", "b"}, ids(list))
	assert.Equal(t, models.StatusFrozen, list[1].Status)
}

func TestTaskBoard_Move(t *testing.T) {
	seed := []models.Task{
		{ID: "a", Status: models.StatusToDo},
		{ID: "b", Status: models.StatusToDo},
		{ID: "c", Status: models.StatusToDo},
	}
	idx := func(i int) *int { return &i }

	tests := []struct {
		name   string
		id     string
		index  *int
		want   []string
		status models.TaskStatus
	}{
		{name: "to end", id: "a", index: idx(2), want: []string{"b", "c", "a"}},
		{name: "to front", id: "c", index: idx(0), want: []string{"c", "a", "b"}},
		{name: "clamped", id: "a", index: idx(99), want: []string{"b", "c", "a"}},
		{name: "negative clamped", id: "b", index: idx(-3), want: []string{"b", "a", "c"}},
		{name: "status only", id: "b", index: nil, want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newTestBoard(seed...)

			list, err := board.Move(tt.id, models.StatusInProgress, tt.index)
			require.NoError(t, err)

			assert.Equal(t, tt.want, ids(list))
			assert.Equal(t, list, board.List())
			for _, task := range list {
				if task.ID == tt.id {
					assert.Equal(t, models.StatusInProgress, task.Status)
				} else {
					assert.Equal(t, models.StatusToDo, task.Status)
				}
			}
		})
	}

	_, err := newTestBoard(seed...).Move("zzz", models.StatusClosed, nil)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDefaultTasks(t *testing.T) {
	tasks := DefaultTasks(time.Now())
	require.Len(t, tasks, 3)
	assert.NotEqual(t, tasks[0].ID, tasks[1].ID)
	assert.Equal(t, models.StatusInProgress, tasks[1].Status)
}
