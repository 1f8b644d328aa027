package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/auth"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/quota"
	"github.com/taskhive/taskhive-server/internal/storage"
	"github.com/taskhive/taskhive-server/internal/validation"
	"github.com/taskhive/taskhive-server/pkg/crypto"
)

// HandleCreateUser creates a user within a tenant, subject to the tenant's
// max_users quota. The quota check and the insert share one transaction.
func (s *RESTServer) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.Authorize(p, auth.ScopeResource(auth.KindUser, tenantID), auth.OpCreate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		FullName string `json:"fullName" validate:"max=200"`
		Role     string `json:"role" validate:"oneof=tenant_admin|user"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
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

	if err := quota.NewEnforcer(tx).CheckUserQuota(ctx, tenant); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	user := &models.User{
		TenantID:     &tenantID,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}

	if err := tx.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "user with this email already exists")
			return
		}
		s.respondOpError(w, r, err, "")
		return
	}

	if err := tx.Commit(); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.audit(r, p, "user.create", "user", user.ID, &tenantID)

	s.respondData(w, http.StatusCreated, user)
}

// HandleListUsers lists users of a tenant
func (s *RESTServer) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)

	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	if err := auth.Authorize(p, auth.ScopeResource(auth.KindUser, tenantID), auth.OpRead); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	filter := storage.UserFilter{
		TenantID:   &tenantID,
		Search:     r.URL.Query().Get("search"),
		Pagination: parsePagination(r),
	}

	if v := r.URL.Query().Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		filter.Role = &role
	}

	users, total, err := s.store.ListUsers(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: users, Total: total})
}

// HandleListAllUsers lists users across all tenants, optionally filtered by
// tenant subdomain. Reserved for super_admin.
func (s *RESTServer) HandleListAllUsers(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	if !p.IsSuperAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	filter := storage.UserFilter{
		TenantSubdomain: r.URL.Query().Get("tenant"),
		Search:          r.URL.Query().Get("search"),
		Pagination:      parsePagination(r),
	}

	if v := r.URL.Query().Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		filter.Role = &role
	}

	users, total, err := s.store.ListUsers(r.Context(), filter)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.respondData(w, http.StatusOK, listResponse{Items: users, Total: total})
}

// HandleUpdateUser updates a user. Admins of the owning tenant may change
// any field; a regular user may change only their own full name and
// password.
func (s *RESTServer) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "user not found")
		return
	}

	if err := auth.Authorize(p, auth.UserResource(user.TenantID, user.ID), auth.OpUpdate); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	var req struct {
		Email    *string `json:"email"`
		FullName *string `json:"fullName"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
		IsActive *bool   `json:"isActive"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	admin := p.IsSuperAdmin() || p.Role == models.RoleTenantAdmin
	if !admin && (req.Email != nil || req.Role != nil || req.IsActive != nil) {
		s.respondError(w, http.StatusForbidden, "only full name and password may be changed")
		return
	}

	if req.Email != nil {
		if !validation.ValidEmail(*req.Email) {
			s.respondError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		user.Email = *req.Email
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			s.respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := crypto.HashPassword(*req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			s.respondError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		if role != models.RoleTenantAdmin && role != models.RoleUser {
			s.respondError(w, http.StatusBadRequest, "invalid role")
			return
		}
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		s.respondOpError(w, r, err, "user not found")
		return
	}

	s.audit(r, p, "user.update", "user", user.ID, user.TenantID)

	s.respondData(w, http.StatusOK, user)
}

// HandleDeleteUser deletes a user. Tasks assigned to them are unassigned in
// the same transaction, so nothing is left pointing at a dangling id.
// Deleting your own account is denied by the guard.
func (s *RESTServer) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		s.respondOpError(w, r, err, "user not found")
		return
	}

	if err := auth.Authorize(p, auth.UserResource(user.TenantID, user.ID), auth.OpDelete); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		s.respondOpError(w, r, err, "")
		return
	}
	defer tx.Rollback()

	if err := tx.UnassignUserTasks(ctx, id); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	if err := tx.DeleteUser(ctx, id); err != nil {
		s.respondOpError(w, r, err, "user not found")
		return
	}

	if err := tx.Commit(); err != nil {
		s.respondOpError(w, r, err, "")
		return
	}

	s.audit(r, p, "user.delete", "user", id, user.TenantID)

	s.respondMessage(w, http.StatusOK, "user deleted")
}
