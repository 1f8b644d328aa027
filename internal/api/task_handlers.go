package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/storage"
)

// checkAssignee verifies that the assignee exists and belongs to the task's
// tenant. Cross-tenant assignment is a client error, not a permission one.
func (s *RESTServer) checkAssignee(ctx context.Context, assigneeID, tenantID uuid.UUID) error {
	assignee, err := s.store.GetUser(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errors.New("assignee not found")
		}
		return err
	}
	if assignee.TenantID == nil || *assignee.TenantID != tenantID {
		return errors.New("assignee must belong to the same tenant")
	}
	return nil
}

// HandleCreateTask creates a task under a project. The task inherits the
// project's tenant.
func (s *RESTServer) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	var req struct {
		ProjectID   uuid.UUID                    `json:"projectId"`
		Title       string                       `json:"title" validate:"required,min=1,max=200"`
		Description string                       `json:"description" validate:"max=2000"`
		Status      string                       `json:"status" validate:"oneof=todo|in_progress|completed"`
		Priority    string                       `json:"priority" validate:"oneof=low|medium|high"`
		AssignedTo  models.Optional[uuid.UUID]   `json:"assignedTo"`
		DueDate     models.Optional[models.Date] `json:"dueDate"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Nested routes carry the project in the path
	if v := chi.URLParam(r, "id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid project id")
			return
		}
		req.ProjectID = id
	}

	if req.ProjectID == uuid.Nil {
		s.respondError(w, http.StatusBadRequest, "projectId is required")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	if err := auth.Authorize(p, auth.ScopeResource(auth.KindTask, project.TenantID), auth.OpCreate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	task := &models.Task{
		TenantModel: models.TenantModel{TenantID: project.TenantID},
		ProjectID:   project.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusTodo,
		Priority:    models.PriorityMedium,
	}
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}
	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}

	if req.AssignedTo.Set && req.AssignedTo.Valid {
		if err := s.checkAssignee(ctx, req.AssignedTo.Value, project.TenantID); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		task.AssignedTo = req.AssignedTo.Ptr()
	}
	if req.DueDate.Set && req.DueDate.Valid {
		due := req.DueDate.Value.Time
		task.DueDate = &due
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.audit(r, p, "task.create", "task", task.ID, &task.TenantID)

	s.respondData(w, http.StatusCreated, task)
}

// taskFilterFromQuery builds the shared filter pieces of the task list
// endpoints from query parameters.
func taskFilterFromQuery(r *http.Request) (storage.TaskFilter, error) {
	filter := storage.TaskFilter{
		Search:     r.URL.Query().Get("search"),
		Pagination: parsePagination(r),
	}

	if v := r.URL.Query().Get("projectId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("invalid projectId filter")
		}
		filter.ProjectID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			return filter, errors.New("invalid status filter")
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.Valid() {
			return filter, errors.New("invalid priority filter")
		}
		filter.Priority = &priority
	}
	if v := r.URL.Query().Get("assignedTo"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errors.New("invalid assignedTo filter")
		}
		filter.AssignedTo = &id
	}

	return filter, nil
}

// HandleListTasks lists tasks, scoped to the principal's tenant and ordered
// by priority, then due date, then recency.
func (s *RESTServer) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)

	filter, err := taskFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if p.IsSuperAdmin() {
		filter.TenantSubdomain = r.URL.Query().Get("tenant")
	} else {
		filter.TenantID = p.TenantID
	}

	tasks, total, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: tasks, Total: total})
}

// HandleListAllTasks lists tasks across all tenants, optionally filtered by
// tenant subdomain. Reserved for super_admin.
func (s *RESTServer) HandleListAllTasks(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	if !p.IsSuperAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	filter, err := taskFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.TenantSubdomain = r.URL.Query().Get("tenant")

	tasks, total, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: tasks, Total: total})
}

// HandleListProjectTasks lists the tasks of one project
func (s *RESTServer) HandleListProjectTasks(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	if err := auth.Authorize(p, auth.ScopeResource(auth.KindTask, project.TenantID), auth.OpRead); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	filter, err := taskFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.ProjectID = &project.ID

	tasks, total, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: tasks, Total: total})
}

// HandleUpdateTask updates a task. Any member of the owning tenant may move
// a task; assignedTo and dueDate distinguish null (clear) from absent (keep).
func (s *RESTServer) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	if err := auth.Authorize(p, auth.TaskResource(task.TenantID), auth.OpUpdate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Title       *string                      `json:"title"`
		Description *string                      `json:"description"`
		Status      *string                      `json:"status"`
		Priority    *string                      `json:"priority"`
		AssignedTo  models.Optional[uuid.UUID]   `json:"assignedTo"`
		DueDate     models.Optional[models.Date] `json:"dueDate"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			s.respondError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		task.Status = status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		if !priority.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		task.Priority = priority
	}
	if req.AssignedTo.Set {
		if req.AssignedTo.Valid {
			if err := s.checkAssignee(ctx, req.AssignedTo.Value, task.TenantID); err != nil {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			task.AssignedTo = req.AssignedTo.Ptr()
		} else {
			task.AssignedTo = nil
		}
	}
	if req.DueDate.Set {
		if req.DueDate.Valid {
			due := req.DueDate.Value.Time
			task.DueDate = &due
		} else {
			task.DueDate = nil
		}
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	s.audit(r, p, "task.update", "task", task.ID, &task.TenantID)

	s.respondData(w, http.StatusOK, task)
}

// HandleUpdateTaskStatus moves a task between lifecycle states
func (s *RESTServer) HandleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	if err := auth.Authorize(p, auth.TaskResource(task.TenantID), auth.OpUpdate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=todo|in_progress|completed"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task.Status = models.TaskStatus(req.Status)

	if err := s.store.UpdateTask(ctx, task); err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	s.audit(r, p, "task.status", "task", task.ID, &task.TenantID)

	s.respondData(w, http.StatusOK, task)
}

// HandleDeleteTask deletes a task. Tenant admins and super_admin only.
func (s *RESTServer) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	if err := auth.Authorize(p, auth.TaskResource(task.TenantID), auth.OpDelete); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		s.respondOpError(w, r, err, "task not found")
		return
	}

	s.audit(r, p, "task.delete", "task", id, &task.TenantID)

	s.respondMessage(w, http.StatusOK, "task deleted")
}
