package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-server/internal/models"
	"github.com/taskhive/taskhive-server/internal/storage"
)

// memStore is an in-memory storage.Store for handler tests. Transactions are
// pass-through; the semantics under test are the handlers', not the
// database's.
type memStore struct {
	mu sync.Mutex

	tenants  map[uuid.UUID]*models.Tenant
	users    map[uuid.UUID]*models.User
	projects map[uuid.UUID]*models.Project
	tasks    map[uuid.UUID]*models.Task
	audits   []*models.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		tenants:  make(map[uuid.UUID]*models.Tenant),
		users:    make(map[uuid.UUID]*models.User),
		projects: make(map[uuid.UUID]*models.Project),
		tasks:    make(map[uuid.UUID]*models.Task),
	}
}

func (m *memStore) BeginTx(ctx context.Context) (storage.Store, error) { return m, nil }
func (m *memStore) Commit() error                                      { return nil }
func (m *memStore) Rollback() error                                    { return nil }
func (m *memStore) Ping(ctx context.Context) error                     { return nil }
func (m *memStore) Close() error                                       { return nil }

func paginate[T any](items []T, p storage.Pagination, defaultLimit int) []T {
	limit, offset := p.Normalize(defaultLimit)
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Tenants

func (m *memStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tenants {
		if strings.EqualFold(t.Subdomain, tenant.Subdomain) {
			return storage.ErrDuplicateKey
		}
	}

	tenant.ID = uuid.New()
	tenant.CreatedAt = time.Now()
	tenant.UpdatedAt = tenant.CreatedAt
	cp := *tenant
	m.tenants[tenant.ID] = &cp
	return nil
}

func (m *memStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tenants {
		if strings.EqualFold(t.Subdomain, subdomain) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[tenant.ID]; !ok {
		return storage.ErrNotFound
	}
	tenant.UpdatedAt = time.Now()
	cp := *tenant
	m.tenants[tenant.ID] = &cp
	return nil
}

func (m *memStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.tenants, id)
	return nil
}

func (m *memStore) ListTenants(ctx context.Context, filter storage.TenantFilter) ([]*models.TenantWithCounts, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.TenantWithCounts
	for _, t := range m.tenants {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Plan != nil && t.Plan != *filter.Plan {
			continue
		}
		out = append(out, &models.TenantWithCounts{Tenant: *t, Counts: m.countsLocked(t.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	return paginate(out, filter.Pagination, 20), total, nil
}

func (m *memStore) GetTenantCounts(ctx context.Context, id uuid.UUID) (models.TenantCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countsLocked(id), nil
}

func (m *memStore) countsLocked(tenantID uuid.UUID) models.TenantCounts {
	var c models.TenantCounts
	for _, u := range m.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			c.Users++
		}
	}
	for _, p := range m.projects {
		if p.TenantID == tenantID {
			c.Projects++
		}
	}
	for _, t := range m.tasks {
		if t.TenantID == tenantID {
			c.Tasks++
		}
	}
	return c
}

// Users

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) != email {
			continue
		}
		if (u.TenantID == nil) != (user.TenantID == nil) {
			continue
		}
		if u.TenantID == nil || *u.TenantID == *user.TenantID {
			return storage.ErrDuplicateKey
		}
	}

	user.ID = uuid.New()
	user.Email = email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, tenantID *uuid.UUID, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) != email {
			continue
		}
		if tenantID == nil && u.TenantID == nil {
			cp := *u
			return &cp, nil
		}
		if tenantID != nil && u.TenantID != nil && *u.TenantID == *tenantID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) UpdateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) UnassignUserTasks(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		if t.AssignedTo != nil && *t.AssignedTo == userID {
			t.AssignedTo = nil
		}
	}
	return nil
}

func (m *memStore) ListUsers(ctx context.Context, filter storage.UserFilter) ([]*models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.User
	for _, u := range m.users {
		if filter.TenantID != nil && (u.TenantID == nil || *u.TenantID != *filter.TenantID) {
			continue
		}
		if filter.TenantSubdomain != "" {
			if u.TenantID == nil || !m.tenantMatchesLocked(*u.TenantID, filter.TenantSubdomain) {
				continue
			}
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Search != "" && !containsFold(u.Email, filter.Search) && !containsFold(u.FullName, filter.Search) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	return paginate(out, filter.Pagination, 20), total, nil
}

func (m *memStore) CountUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, u := range m.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) tenantMatchesLocked(tenantID uuid.UUID, subdomain string) bool {
	t, ok := m.tenants[tenantID]
	return ok && strings.EqualFold(t.Subdomain, subdomain)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Projects

func (m *memStore) CreateProject(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	project.ID = uuid.New()
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *memStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProject(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[project.ID]; !ok {
		return storage.ErrNotFound
	}
	project.UpdatedAt = time.Now()
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *memStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.projects, id)
	for tid, t := range m.tasks {
		if t.ProjectID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *memStore) ListProjects(ctx context.Context, filter storage.ProjectFilter) ([]*models.Project, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Project
	for _, p := range m.projects {
		if filter.TenantID != nil && p.TenantID != *filter.TenantID {
			continue
		}
		if filter.TenantSubdomain != "" && !m.tenantMatchesLocked(p.TenantID, filter.TenantSubdomain) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !containsFold(p.Name, filter.Search) && !containsFold(p.Description, filter.Search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	return paginate(out, filter.Pagination, 20), total, nil
}

func (m *memStore) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, p := range m.projects {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// Tasks

func (m *memStore) CreateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task.ID = uuid.New()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memStore) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) UpdateTask(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[task.ID]; !ok {
		return storage.ErrNotFound
	}
	task.UpdatedAt = time.Now()
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m *memStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memStore) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*models.Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Task
	for _, t := range m.tasks {
		if filter.TenantID != nil && t.TenantID != *filter.TenantID {
			continue
		}
		if filter.TenantSubdomain != "" && !m.tenantMatchesLocked(t.TenantID, filter.TenantSubdomain) {
			continue
		}
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Search != "" && !containsFold(t.Title, filter.Search) && !containsFold(t.Description, filter.Search) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}

	// Priority first, then earliest due date with nulls last, then recency
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := int64(len(out))
	return paginate(out, filter.Pagination, 50), total, nil
}

// Audit

func (m *memStore) CreateAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	cp := *entry
	m.audits = append(m.audits, &cp)
	return nil
}

func (m *memStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	actions := make([]string, 0, len(m.audits))
	for _, e := range m.audits {
		actions = append(actions, e.Action)
	}
	return actions
}
