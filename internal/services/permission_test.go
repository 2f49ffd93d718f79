package services

import (
	"testing"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionCreate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPermissionService(db)

	tenant := createTestTenant(t, db, "acme", 0)

	perm, err := svc.Create(tenant.ID, "report:read", "查看报表", "report", models.ActionRead, "")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, perm.TenantID)

	// 租户内编码重复
	_, err = svc.Create(tenant.ID, "report:read", "重复权限", "report", models.ActionRead, "")
	assert.Equal(t, apperrors.CodePermissionCodeExists, apperrors.CodeOf(err))

	// 跨租户可以重码
	other := createTestTenant(t, db, "other", 0)
	_, err = svc.Create(other.ID, "report:read", "查看报表", "report", models.ActionRead, "")
	assert.NoError(t, err)
}

func TestPermissionDelete_CleansRoleBindings(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPermissionService(db)
	roleService := NewRoleService(db)

	tenant := createTestTenant(t, db, "acme", 0)

	perm, err := svc.Create(tenant.ID, "report:read", "查看报表", "report", models.ActionRead, "")
	require.NoError(t, err)

	role, err := roleService.Create(tenant.ID, "ROLE_AUDITOR", "审计员", "")
	require.NoError(t, err)
	require.NoError(t, roleService.AssignPermissions(tenant.ID, role.ID, []uint{perm.ID}))

	require.NoError(t, svc.Delete(tenant.ID, perm.ID))

	var count int64
	db.Model(&models.RolePermission{}).Where("permission_id = ?", perm.ID).Count(&count)
	assert.Zero(t, count)

	_, err = svc.GetByID(tenant.ID, perm.ID)
	assert.Equal(t, apperrors.CodePermissionNotFound, apperrors.CodeOf(err))
}

func TestPermissionGetByTenant_Ordered(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPermissionService(db)

	tenant := createTestTenant(t, db, "acme", 0)

	perms, err := svc.GetByTenant(tenant.ID)
	require.NoError(t, err)
	require.Len(t, perms, 11)

	// 按 resource, action 排序
	for i := 1; i < len(perms); i++ {
		prev, cur := perms[i-1], perms[i]
		if prev.Resource == cur.Resource {
			assert.LessOrEqual(t, prev.Action, cur.Action)
		} else {
			assert.Less(t, prev.Resource, cur.Resource)
		}
	}
}
