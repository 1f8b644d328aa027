package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health and readiness
	r.Get("/healthz", s.HandleHealth)
	r.Get("/readyz", s.HandleReady)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register-tenant", s.HandleRegisterTenant)
		r.Post("/login", s.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Post("/logout", s.HandleLogout)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Tenants
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", s.HandleListTenants)
			r.Post("/", s.HandleCreateTenant)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetTenant)
				r.Put("/", s.HandleUpdateTenant)
				r.Delete("/", s.HandleDeleteTenant)
			})
			// Tenant-scoped user management
			r.Route("/{tenantId}/users", func(r chi.Router) {
				r.Get("/", s.HandleListUsers)
				r.Post("/", s.HandleCreateUser)
			})
		})

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Get("/all", s.HandleListAllUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.HandleListProjects)
			r.Post("/", s.HandleCreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.HandleUpdateProject)
				r.Delete("/", s.HandleDeleteProject)
				r.Get("/tasks", s.HandleListProjectTasks)
				r.Post("/tasks", s.HandleCreateTask)
			})
		})

		// Tasks
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.HandleListTasks)
			r.Get("/all", s.HandleListAllTasks)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.HandleUpdateTask)
				r.Patch("/status", s.HandleUpdateTaskStatus)
				r.Delete("/", s.HandleDeleteTask)
			})
		})
	})
}
