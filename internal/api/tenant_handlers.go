package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/storage"
	"github.com/taskhive/taskhive-server/internal/validation"
)

// HandleListTenants lists tenants with optional status/plan filters.
// Reserved for super_admin.
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	if !p.IsSuperAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	filter := storage.TenantFilter{Pagination: parsePagination(r)}

	if v := r.URL.Query().Get("status"); v != "" {
		status := models.TenantStatus(v)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("plan"); v != "" {
		plan := models.SubscriptionPlan(v)
		if !plan.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid plan filter")
			return
		}
		filter.Plan = &plan
	}

	tenants, total, err := s.store.ListTenants(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "tenants not found")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: tenants, Total: total})
}

// HandleCreateTenant creates a tenant. Reserved for super_admin; tenant
// self-service goes through /auth/register-tenant.
func (s *RESTServer) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	if !p.IsSuperAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Name        string `json:"name" validate:"required,min=2,max=100"`
		Subdomain   string `json:"subdomain" validate:"required,subdomain"`
		Plan        string `json:"subscriptionPlan" validate:"oneof=free|pro|enterprise"`
		Status      string `json:"status" validate:"oneof=active|suspended|trial"`
		MaxUsers    int    `json:"maxUsers"`
		MaxProjects int    `json:"maxProjects"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan := models.SubscriptionPlan(req.Plan)
	if req.Plan == "" {
		plan = models.PlanFree
	}
	status := models.TenantStatus(req.Status)
	if req.Status == "" {
		status = models.TenantStatusActive
	}

	// Plan defaults apply unless explicitly overridden
	limits := s.config.Plans.Limits(plan)
	if req.MaxUsers > 0 {
		limits.MaxUsers = req.MaxUsers
	}
	if req.MaxProjects > 0 {
		limits.MaxProjects = req.MaxProjects
	}

	tenant := &models.Tenant{
		Name:        req.Name,
		Subdomain:   req.Subdomain,
		Status:      status,
		Plan:        plan,
		MaxUsers:    limits.MaxUsers,
		MaxProjects: limits.MaxProjects,
	}

	if err := s.store.CreateTenant(r.Context(), tenant); err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	s.audit(r, p, "tenant.create", "tenant", tenant.ID, &tenant.ID)

	s.respondData(w, http.StatusCreated, tenant)
}

// HandleGetTenant returns a tenant with live resource counts
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.Authorize(p, auth.TenantResource(id), auth.OpRead); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	counts, err := s.store.GetTenantCounts(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	s.respondData(w, http.StatusOK, models.TenantWithCounts{Tenant: *tenant, Counts: counts})
}

// HandleUpdateTenant updates a tenant. A tenant_admin may rename its own
// tenant; every other field is super_admin only.
func (s *RESTServer) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.Authorize(p, auth.TenantResource(id), auth.OpUpdate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Name        *string `json:"name" validate:"min=2,max=100"`
		Subdomain   *string `json:"subdomain"`
		Status      *string `json:"status"`
		Plan        *string `json:"subscriptionPlan"`
		MaxUsers    *int    `json:"maxUsers"`
		MaxProjects *int    `json:"maxProjects"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !p.IsSuperAdmin() {
		if req.Subdomain != nil || req.Status != nil || req.Plan != nil ||
			req.MaxUsers != nil || req.MaxProjects != nil {
			s.respondError(w, http.StatusForbidden, "only the tenant name may be changed")
			return
		}
	}

	tenant, err := s.store.GetTenant(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			s.respondError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		tenant.Name = *req.Name
	}
	if req.Subdomain != nil {
		if !validation.ValidSubdomain(*req.Subdomain) {
			s.respondError(w, http.StatusBadRequest, "invalid subdomain")
			return
		}
		tenant.Subdomain = *req.Subdomain
	}
	if req.Status != nil {
		status := models.TenantStatus(*req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status")
			return
		}
		tenant.Status = status
	}
	if req.Plan != nil {
		plan := models.SubscriptionPlan(*req.Plan)
		if !plan.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid subscription plan")
			return
		}
		tenant.Plan = plan

		// Moving plans re-derives the caps unless the patch overrides them
		limits := s.config.Plans.Limits(plan)
		if req.MaxUsers == nil {
			tenant.MaxUsers = limits.MaxUsers
		}
		if req.MaxProjects == nil {
			tenant.MaxProjects = limits.MaxProjects
		}
	}
	if req.MaxUsers != nil {
		tenant.MaxUsers = *req.MaxUsers
	}
	if req.MaxProjects != nil {
		tenant.MaxProjects = *req.MaxProjects
	}

	if err := s.store.UpdateTenant(ctx, tenant); err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	s.audit(r, p, "tenant.update", "tenant", tenant.ID, &tenant.ID)

	s.respondData(w, http.StatusOK, tenant)
}

// HandleDeleteTenant deletes a tenant. Reserved for super_admin.
func (s *RESTServer) HandleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	if !p.IsSuperAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := s.store.DeleteTenant(r.Context(), id); err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	s.audit(r, p, "tenant.delete", "tenant", id, &id)

	s.respondMessage(w, http.StatusOK, "tenant deleted")
}
