package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/taskhive/taskhive-server/internal/models"
)

func TestAuthorize(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	adminID := uuid.New()
	memberID := uuid.New()
	otherID := uuid.New()

	superAdmin := &Principal{UserID: uuid.New(), Role: models.RoleSuperAdmin}
	tenantAdmin := &Principal{UserID: adminID, TenantID: &tenantA, Role: models.RoleTenantAdmin}
	member := &Principal{UserID: memberID, TenantID: &tenantA, Role: models.RoleUser}

	tests := []struct {
		name    string
		p       *Principal
		res     Resource
		op      Operation
		allowed bool
	}{
		{"nil principal", nil, TenantResource(tenantA), OpRead, false},

		{"super admin reads any tenant", superAdmin, TenantResource(tenantA), OpRead, true},
		{"super admin deletes any tenant", superAdmin, TenantResource(tenantB), OpDelete, true},
		{"super admin manages users anywhere", superAdmin, UserResource(&tenantB, otherID), OpCreate, true},

		{"tenant admin reads own tenant", tenantAdmin, TenantResource(tenantA), OpRead, true},
		{"tenant admin updates own tenant", tenantAdmin, TenantResource(tenantA), OpUpdate, true},
		{"tenant admin denied other tenant", tenantAdmin, TenantResource(tenantB), OpRead, false},
		{"tenant admin creates users", tenantAdmin, ScopeResource(KindUser, tenantA), OpCreate, true},
		{"tenant admin deletes other user", tenantAdmin, UserResource(&tenantA, otherID), OpDelete, true},
		{"tenant admin cannot delete self", tenantAdmin, UserResource(&tenantA, adminID), OpDelete, false},
		{"tenant admin denied cross-tenant user", tenantAdmin, UserResource(&tenantB, otherID), OpDelete, false},
		{"tenant admin denied system user", tenantAdmin, UserResource(nil, otherID), OpUpdate, false},

		{"member reads own tenant", member, TenantResource(tenantA), OpRead, true},
		{"member reads projects", member, ScopeResource(KindProject, tenantA), OpRead, true},
		{"member denied other tenant read", member, ScopeResource(KindProject, tenantB), OpRead, false},
		{"member creates projects", member, ScopeResource(KindProject, tenantA), OpCreate, true},
		{"member creates tasks", member, ScopeResource(KindTask, tenantA), OpCreate, true},
		{"member cannot create users", member, ScopeResource(KindUser, tenantA), OpCreate, false},
		{"member updates own project", member, ProjectResource(tenantA, memberID), OpUpdate, true},
		{"member cannot update foreign project", member, ProjectResource(tenantA, otherID), OpUpdate, false},
		{"member updates any task in tenant", member, TaskResource(tenantA), OpUpdate, true},
		{"member updates own user record", member, UserResource(&tenantA, memberID), OpUpdate, true},
		{"member cannot update other users", member, UserResource(&tenantA, otherID), OpUpdate, false},
		{"member cannot delete projects", member, ProjectResource(tenantA, memberID), OpDelete, false},
		{"member cannot delete tasks", member, TaskResource(tenantA), OpDelete, false},
		{"member cannot delete users", member, UserResource(&tenantA, memberID), OpDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.p, tt.res, tt.op)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}
