package handlers

import (
	"errors"

	"tasktracker/internal/models"
	"tasktracker/internal/repository"
	"tasktracker/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TaskBoard is the task state the REST surface reads and mutates.
type TaskBoard interface {
	List() []models.Task
	Create(in models.TaskInput) (models.Task, error)
	Patch(id string, p models.TaskPatch) (models.Task, error)
}

// TaskHandler serves /api/tasks.
type TaskHandler struct {
	Board    TaskBoard
	Validate *validator.Validate
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	return c.JSON(h.Board.List())
}

func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var in models.TaskInput
	if err := parseBody(c, &in); err != nil {
		return badRequest(c, err, "create task")
	}
	if err := h.Validate.Struct(in); err != nil {
		return respondValidation(c, err)
	}

	task, err := h.Board.Create(in)
	if errors.Is(err, repository.ErrTaskTitleRequired) {
		return fail(c, fiber.StatusBadRequest, "Title is required")
	}
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Task created", zap.String("task_id", task.ID))
	return c.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask merges the supplied fields into one task.
func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	id := c.Params("id")

	var patch models.TaskPatch
	if err := parseBody(c, &patch); err != nil {
		return badRequest(c, err, "update task")
	}
	if err := h.Validate.Struct(patch); err != nil {
		return respondValidation(c, err)
	}

	task, err := h.Board.Patch(id, patch)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}
	if err != nil {
		return respondError(c, err)
	}

	logger.AuditLogger.Info("Task updated", zap.String("task_id", task.ID))
	return c.JSON(task)
}
