package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/storage"
	"github.com/taskhive/taskhive-server/pkg/crypto"
)

// HandleRegisterTenant creates a tenant together with its first tenant_admin
// in a single transaction. Any failure rolls the whole registration back.
func (s *RESTServer) HandleRegisterTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenantName" validate:"required,min=2,max=100"`
		Subdomain  string `json:"subdomain" validate:"required,subdomain"`
		Email      string `json:"email" validate:"required,email"`
		Password   string `json:"password" validate:"required,min=8"`
		FullName   string `json:"fullName" validate:"max=200"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	ctx := r.Context()

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin registration transaction")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}
	defer tx.Rollback()

	limits := s.config.Plans.Limits(models.PlanFree)
	tenant := &models.Tenant{
		Name:        req.TenantName,
		Subdomain:   req.Subdomain,
		Status:      models.TenantStatusActive,
		Plan:        models.PlanFree,
		MaxUsers:    limits.MaxUsers,
		MaxProjects: limits.MaxProjects,
	}

	if err := tx.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "subdomain already taken")
			return
		}
		log.Error().Err(err).Msg("Registration failed creating tenant")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	admin := &models.User{
		TenantID:     &tenant.ID,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         models.RoleTenantAdmin,
		IsActive:     true,
	}

	if err := tx.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.respondError(w, http.StatusConflict, "email already in use")
			return
		}
		log.Error().Err(err).Msg("Registration failed creating admin user")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Registration failed on commit")
		s.respondError(w, http.StatusBadRequest, "registration failed")
		return
	}

	s.audit(r, nil, "tenant.register", "tenant", tenant.ID, &tenant.ID)

	s.respondData(w, http.StatusCreated, map[string]interface{}{
		"tenant": tenant,
		"user":   admin,
	})
}

// HandleLogin authenticates a user. The tenant is selected by tenantId or
// tenantSubdomain (tenantId wins when both are present); omitting both
// reaches only system-level accounts.
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string     `json:"email" validate:"required,email"`
		Password        string     `json:"password" validate:"required"`
		TenantID        *uuid.UUID `json:"tenantId"`
		TenantSubdomain string     `json:"tenantSubdomain"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()

	var tenant *models.Tenant
	var err error
	switch {
	case req.TenantID != nil:
		tenant, err = s.store.GetTenant(ctx, *req.TenantID)
	case req.TenantSubdomain != "":
		tenant, err = s.store.GetTenantBySubdomain(ctx, req.TenantSubdomain)
	}
	if err != nil {
		s.respondOpError(w, r, err, "tenant not found")
		return
	}

	var tenantID *uuid.UUID
	if tenant != nil {
		tenantID = &tenant.ID
	}

	user, err := s.store.GetUserByEmail(ctx, tenantID, req.Email)
	if err != nil {
		// Same response as a bad password; never reveal which
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsActive {
		s.respondError(w, http.StatusForbidden, "account is disabled")
		return
	}

	if tenant != nil && tenant.Status == models.TenantStatusSuspended {
		s.respondError(w, http.StatusForbidden, "tenant is suspended")
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate token")
		s.respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	s.audit(r, nil, "auth.login", "user", user.ID, user.TenantID)

	s.respondData(w, http.StatusOK, map[string]interface{}{
		"user":      user,
		"token":     token,
		"expiresIn": int(s.auth.TokenTTL().Seconds()),
	})
}

// HandleGetCurrentUser returns the authenticated principal with a tenant
// summary when one applies.
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)
	ctx := r.Context()

	user, err := s.store.GetUser(ctx, p.UserID)
	if err != nil {
		s.respondOpError(w, r, err, "user not found")
		return
	}

	data := map[string]interface{}{"user": user}

	if user.TenantID != nil {
		tenant, err := s.store.GetTenant(ctx, *user.TenantID)
		if err == nil {
			data["tenant"] = tenant
		}
	}

	s.respondData(w, http.StatusOK, data)
}

// HandleLogout records the logout for the audit trail. Tokens are stateless
// and expire naturally; nothing is revoked server-side.
func (s *RESTServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p := s.principalFrom(r)

	s.audit(r, p, "auth.logout", "user", p.UserID, p.TenantID)

	s.respondMessage(w, http.StatusOK, "logged out")
}
