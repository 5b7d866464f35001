package ai

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vidyaverse/core/internal/pkg/pagination"
	"github.com/vidyaverse/core/internal/pkg/response"
	"github.com/vidyaverse/core/internal/pkg/taskqueue"
)

// GET /ai/tasks  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)
	taskType := c.Query("type")
	statusStr := c.Query("status")

	var taskTypePtr *string
	var statusPtr *taskqueue.TaskStatus

	if taskType != "" {
		taskTypePtr = &taskType
	}
	if statusStr != "" {
		s := taskqueue.TaskStatus(statusStr)
		statusPtr = &s
	}

	tasks, total, err := h.svc.taskSvc.List(c.Request.Context(), q.Page, q.Size, taskTypePtr, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPages,
		Size:        q.Size,
		HasNextPage: q.Page < totalPages,
	})
}

// GET /ai/tasks/:id  [auth]
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// DELETE /ai/tasks/:id  [auth]
func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.svc.taskSvc.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// DELETE /ai/tasks?before=<unix_ms>  [auth]
func (h *Handler) batchDeleteTasks(c *gin.Context) {
	beforeStr := c.Query("before")
	var before int64
	if beforeStr != "" {
		if v, err := strconv.ParseInt(beforeStr, 10, 64); err == nil {
			before = v
		}
	}
	if err := h.svc.taskSvc.DeleteCompleted(c.Request.Context(), before); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// POST /ai/tasks/:id/cancel  [auth]
func (h *Handler) cancelTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	if task.Status == taskqueue.TaskCompleted ||
		task.Status == taskqueue.TaskFailed ||
		task.Status == taskqueue.TaskCancelled {
		response.BadRequest(c, "Task has already finished and cannot be cancelled")
		return
	}
	if task.Status == taskqueue.TaskRunning {
		if err := h.svc.taskSvc.UpdateStatus(c.Request.Context(), task.ID, taskqueue.TaskCancelled, nil, "cancelled by user"); err != nil {
			response.InternalError(c, err)
			return
		}
		response.NoContent(c)
		return
	}
	if err := h.svc.taskSvc.Cancel(c.Request.Context(), task.ID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// POST /ai/tasks/:id/retry  [auth]
func (h *Handler) retryTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil || task == nil {
		response.NotFound(c)
		return
	}
	if task.Status != taskqueue.TaskFailed && task.Status != taskqueue.TaskCancelled {
		response.BadRequest(c, "Only failed or cancelled tasks can be retried")
		return
	}

	var payload AnalysisPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		response.BadRequest(c, "invalid task payload")
		return
	}

	newTask, err := h.svc.EnqueueAnalysis(c.Request.Context(), payload.BookID)
	if err != nil {
		if errors.Is(err, errBookNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, newTask)
}

// POST /ai/analyses/task  [auth]
func (h *Handler) createAnalysisTask(c *gin.Context) {
	var dto analyzeTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	bookID := strings.TrimSpace(dto.BookID)
	if bookID == "" {
		bookID = strings.TrimSpace(dto.BookIDLegacy)
	}
	if bookID == "" {
		response.BadRequest(c, "bookId is required")
		return
	}

	task, err := h.svc.EnqueueAnalysis(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, errBookNotFound) {
			response.NotFoundMsg(c, "Book not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, task)
}

// GET /ai/analyses/task?book_id=  [auth]
func (h *Handler) getAnalysisTask(c *gin.Context) {
	bookID := strings.TrimSpace(c.Query("book_id"))
	if bookID == "" {
		response.BadRequest(c, "book_id is required")
		return
	}

	tasks, _, err := h.svc.taskSvc.List(c.Request.Context(), 1, 100, strPtr(TaskTypeAnalysis), nil)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	for _, t := range tasks {
		if t.DedupKey == bookID {
			response.OK(c, t)
			return
		}
	}
	response.NotFound(c)
}

func strPtr(s string) *string { return &s }

// GET /ai/tasks/group/:groupKey  [auth]
func (h *Handler) getTasksByGroup(c *gin.Context) {
	groupKey := c.Param("groupKey")
	if groupKey == "" {
		response.BadRequest(c, "group id is required")
		return
	}
	q := pagination.FromContext(c)

	all, _, err := h.svc.taskSvc.List(c.Request.Context(), 1, 1000, nil, nil)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	var filtered []*taskqueue.Task
	for _, t := range all {
		if t.GroupKey == groupKey {
			filtered = append(filtered, t)
		}
	}

	total := int64(len(filtered))
	start := (q.Page - 1) * q.Size
	end := start + q.Size
	if start >= len(filtered) {
		filtered = []*taskqueue.Task{}
	} else {
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[start:end]
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, filtered, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPages,
		Size:        q.Size,
		HasNextPage: q.Page < totalPages,
	})
}

// DELETE /ai/tasks/group/:groupKey  [auth]
func (h *Handler) cancelTasksByGroup(c *gin.Context) {
	groupKey := c.Param("groupKey")
	if groupKey == "" {
		response.BadRequest(c, "group id is required")
		return
	}

	all, _, err := h.svc.taskSvc.List(c.Request.Context(), 1, 1000, nil, nil)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	cancelled := 0
	for _, t := range all {
		if t.GroupKey != groupKey {
			continue
		}
		switch t.Status {
		case taskqueue.TaskPending:
			if err := h.svc.taskSvc.Cancel(c.Request.Context(), t.ID); err == nil {
				cancelled++
			}
		case taskqueue.TaskRunning:
			if err := h.svc.taskSvc.UpdateStatus(c.Request.Context(), t.ID, taskqueue.TaskCancelled, nil, "cancelled by group"); err == nil {
				cancelled++
			}
		}
	}

	response.OK(c, gin.H{"cancelled": cancelled})
}
