package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive-server/internal/config"
	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/pkg/crypto"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies embedded migrations in filename order. Applied versions
// are tracked in schema_migrations, so reruns are no-ops.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		script, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, string(script)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)",
			name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		log.Info().Str("version", name).Msg("Applied migration")
	}

	return nil
}

// Seed populates the default super_admin and a demo tenant once, gated by a
// flag row in app_state.
func (s *PostgresStore) Seed(ctx context.Context, plans config.PlansConfig) error {
	var seeded string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = 'seeded'",
	).Scan(&seeded)
	if err == nil && seeded == "true" {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check seed state: %w", err)
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin1234"
	}
	hash, err := crypto.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	txStore, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer txStore.Rollback()

	admin := &models.User{
		Email:        "admin@taskhive.local",
		FullName:     "System Administrator",
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
	}
	if err := txStore.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}

	limits := plans.Limits(models.PlanFree)
	demo := &models.Tenant{
		Name:        "Demo Workspace",
		Subdomain:   "demo",
		Status:      models.TenantStatusTrial,
		Plan:        models.PlanFree,
		MaxUsers:    limits.MaxUsers,
		MaxProjects: limits.MaxProjects,
	}
	if err := txStore.CreateTenant(ctx, demo); err != nil {
		return fmt.Errorf("seed demo tenant: %w", err)
	}

	demoAdmin := &models.User{
		TenantID:     &demo.ID,
		Email:        "admin@demo.taskhive.local",
		FullName:     "Demo Admin",
		PasswordHash: hash,
		Role:         models.RoleTenantAdmin,
		IsActive:     true,
	}
	if err := txStore.CreateUser(ctx, demoAdmin); err != nil {
		return fmt.Errorf("seed demo admin: %w", err)
	}

	pgTx := txStore.(*PostgresStore)
	if _, err := pgTx.getDB().ExecContext(ctx,
		"INSERT INTO app_state (key, value) VALUES ('seeded', 'true')",
	); err != nil {
		return fmt.Errorf("mark seeded: %w", err)
	}

	if err := txStore.Commit(); err != nil {
		return err
	}

	log.Info().
		Str("admin", admin.Email).
		Str("tenant", demo.Subdomain).
		Msg("Seeded initial data")

	return nil
}
