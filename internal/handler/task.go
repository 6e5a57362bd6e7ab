package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/middleware"
	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/validate"
)

// TaskStore is the persistence surface the task endpoints need.
// *repository.TaskRepo satisfies it; tests supply an in-memory
// implementation.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id uint64) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id uint64) error
	Stats(ctx context.Context, ownerID uint64) (model.TaskStats, error)
}

// TaskHandler implements the owner-scoped task endpoints. Every
// operation on a single task follows the same sequence: load the task
// by id (404 when absent), compare its owner against the caller (403
// on mismatch), and only then read or mutate. The owner id always
// comes from the verified identity in the request context, never from
// the payload.
type TaskHandler struct {
	Tasks TaskStore
	Cache *middleware.TaskCache // may be nil; Bust is a no-op then
}

func NewTaskHandler(tasks TaskStore, cache *middleware.TaskCache) *TaskHandler {
	if tasks == nil {
		panic("nil task store passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: tasks, Cache: cache}
}

// ----- DTOs -----

type createTaskReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Completed   bool   `json:"completed"`
}

// updateTaskReq uses pointer fields so an omitted field can be told
// apart from an explicit zero value. Nil fields are left untouched.
type updateTaskReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool   `json:"completed"`
}

// List handles GET /v1/tasks. Returns the caller's tasks newest first;
// an empty list when there are none.
func (h *TaskHandler) List(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.Tasks.ListByOwner(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, tasks)
}

// Stats handles GET /v1/tasks/stats.
func (h *TaskHandler) Stats(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Tasks.Stats(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, stats)
}

// Get handles GET /v1/tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, status, msg := h.loadOwned(ctx, id, ownerID)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, t)
}

// Create handles POST /v1/tasks. The owner is always the caller.
func (h *TaskHandler) Create(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if errs := validate.Struct(req); errs != nil {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := &model.Task{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if err := h.Tasks.Create(ctx, t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create task failed"})
	}
	log.Printf("tasks: created task id=%d owner=%d", t.ID, ownerID)
	h.Cache.Bust(ctx, ownerID)
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /v1/tasks/:id. Only the provided fields are
// merged into the record; omitted fields keep their stored values.
func (h *TaskHandler) Update(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	var req updateTaskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == nil && req.Description == nil && req.Completed == nil {
		return validationFailed(c, []validate.FieldError{
			{Field: "", Message: "at least one field must be provided"},
		})
	}
	if req.Title != nil {
		trimmed := strings.TrimSpace(*req.Title)
		req.Title = &trimmed
		// omitempty would treat a provided-but-empty title as absent,
		// so the emptiness check has to happen here.
		if trimmed == "" {
			return validationFailed(c, []validate.FieldError{
				{Field: "title", Message: "title must not be empty"},
			})
		}
	}
	if errs := validate.Struct(req); errs != nil {
		return validationFailed(c, errs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, status, msg := h.loadOwned(ctx, id, ownerID)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if err := h.Tasks.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			// Deleted between the ownership check and the write.
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update task failed"})
	}
	log.Printf("tasks: updated task id=%d owner=%d", t.ID, ownerID)
	h.Cache.Bust(ctx, ownerID)
	return c.JSON(http.StatusOK, t)
}

// Toggle handles PATCH /v1/tasks/:id/toggle.
func (h *TaskHandler) Toggle(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, status, msg := h.loadOwned(ctx, id, ownerID)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	t.Completed = !t.Completed
	if err := h.Tasks.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update task failed"})
	}
	log.Printf("tasks: toggled task id=%d owner=%d completed=%v", t.ID, ownerID, t.Completed)
	h.Cache.Bust(ctx, ownerID)
	return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /v1/tasks/:id. Hard delete; a second delete of
// the same id gets 404.
func (h *TaskHandler) Delete(c echo.Context) error {
	ownerID, err := middleware.CurrentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	_, status, msg := h.loadOwned(ctx, id, ownerID)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	if err := h.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete task failed"})
	}
	log.Printf("tasks: deleted task id=%d owner=%d", id, ownerID)
	h.Cache.Bust(ctx, ownerID)
	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted"})
}

// loadOwned fetches a task and enforces ownership. On failure it
// returns the HTTP status and message to respond with: 404 when the
// task does not exist, 403 when it exists but belongs to someone else.
func (h *TaskHandler) loadOwned(ctx context.Context, id, ownerID uint64) (*model.Task, int, string) {
	t, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, http.StatusNotFound, "task not found"
		}
		return nil, http.StatusInternalServerError, "database error"
	}
	if t.OwnerID != ownerID {
		log.Printf("tasks: user %d attempted access to task %d owned by %d", ownerID, id, t.OwnerID)
		return nil, http.StatusForbidden, "forbidden"
	}
	return t, 0, ""
}
