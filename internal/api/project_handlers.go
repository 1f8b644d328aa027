package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/quota"
	"github.com/taskhive/taskhive-server/internal/storage"
)

// HandleCreateProject creates a project, subject to the tenant's
// max_projects quota. The owning tenant comes from the principal, never
// from the client; only a super_admin may target another tenant.
func (s *RESTServer) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	var req struct {
		Name        string     `json:"name" validate:"required,min=1,max=200"`
		Description string     `json:"description" validate:"max=2000"`
		TenantID    *uuid.UUID `json:"tenantId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tenantID uuid.UUID
	switch {
	case p.IsSuperAdmin() && req.TenantID != nil:
		tenantID = *req.TenantID
	case p.TenantID != nil:
		tenantID = *p.TenantID
	default:
		s.respondError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	if err := auth.Authorize(p, auth.ScopeResource(auth.KindProject, tenantID), auth.OpCreate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}
	defer tx.Rollback()

	tenant, err := tx.GetTenant(ctx, tenantID)
	if err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	if err := quota.NewEnforcer(tx).CheckProjectQuota(ctx, tenant); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	project := &models.Project{
		TenantModel: models.TenantModel{TenantID: tenantID},
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatusActive,
		CreatedBy:   p.UserID,
	}

	if err := tx.CreateProject(ctx, project); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	if err := tx.Commit(); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.audit(r, p, "project.create", "project", project.ID, &tenantID)

	s.respondData(w, http.StatusCreated, project)
}

// HandleListProjects lists projects, scoped to the principal's tenant. A
// super_admin sees all tenants and may filter by tenant subdomain.
func (s *RESTServer) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)

	filter := storage.ProjectFilter{
		Search:     r.URL.Query().Get("search"),
		Pagination: parsePagination(r),
	}

	if p.IsSuperAdmin() {
		filter.TenantSubdomain = r.URL.Query().Get("tenant")
	} else {
		filter.TenantID = p.TenantID
	}

	if v := r.URL.Query().Get("status"); v != "" {
		status := models.ProjectStatus(v)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}

	projects, total, err := s.store.ListProjects(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: projects, Total: total})
}

// HandleUpdateProject updates a project. The creator, a tenant_admin of the
// owning tenant, or a super_admin may update; fields are set-if-provided.
func (s *RESTServer) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	if err := auth.Authorize(p, auth.ProjectResource(project.TenantID, project.CreatedBy), auth.OpUpdate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			s.respondError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		status := models.ProjectStatus(*req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		project.Status = status
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	s.audit(r, p, "project.update", "project", project.ID, &project.TenantID)

	s.respondData(w, http.StatusOK, project)
}

// HandleDeleteProject deletes a project and its tasks. Tenant admins and
// super_admin only.
func (s *RESTServer) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	if err := auth.Authorize(p, auth.ProjectResource(project.TenantID, project.CreatedBy), auth.OpDelete); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		s.respondOpError(w, r, err, "project not found")
		return
	}

	s.audit(r, p, "project.delete", "project", id, &project.TenantID)

	s.respondMessage(w, http.StatusOK, "project deleted")
}
