package access

import (
	"net/http"
	"testing"

	"endurancy-platform/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	a, err := New(&config.Config{})
	require.NoError(t, err)

	cases := []struct {
		role, path, method string
		allowed            bool
	}{
		{"admin", "/api/organizations", http.MethodPost, true},
		{"org_admin", "/api/organizations", http.MethodPost, false},
		{"org_admin", "/api/pre-cadastro/42/converter", http.MethodPost, false},
		{"admin", "/api/pre-cadastro/42/converter", http.MethodPost, true},
		{"hr", "/api/etiquetas/7", http.MethodDelete, true},
		{"affiliate", "/api/affiliates/materials/3/download", http.MethodGet, true},
		{"doctor", "/api/tarefas/1/comentarios", http.MethodPost, true},
		{"doctor", "/api/profile", http.MethodPut, true},
		{"patient", "/api/tarefas", http.MethodGet, false},
		{"patient", "/api/affiliates/me", http.MethodGet, true},
		{"patient", "/api/affiliates/9/redemptions", http.MethodPost, true},
		{"patient", "/api/affiliates/9/level", http.MethodPut, false},
		{"shipping", "/api/expedicao/shipments-by-state", http.MethodGet, true},
		{"finance", "/api/expedicao/shipments", http.MethodGet, false},
		{"", "/api/profile", http.MethodGet, false},
	}

	for _, tc := range cases {
		ok, err := a.Allowed(tc.role, tc.path, tc.method)
		require.NoError(t, err)
		require.Equal(t, tc.allowed, ok, "%s %s %s", tc.role, tc.method, tc.path)
	}
}

func TestRoles(t *testing.T) {
	require.True(t, IsStaff(RoleDoctor))
	require.True(t, IsStaff(RoleOrgAdmin))
	require.False(t, IsStaff(RolePatient))
	require.False(t, IsStaff(RoleAffiliate))
	require.False(t, IsStaff("wizard"))

	require.Equal(t, "/dashboard", DashboardPath(RoleAdmin))
	require.Equal(t, "/patient/dashboard", DashboardPath(RolePatient))
}

func TestMembersCannotBroadcast(t *testing.T) {
	a, err := New(&config.Config{})
	require.NoError(t, err)

	ok, err := a.Allowed(RolePatient, "/api/notifications/broadcast", http.MethodPost)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = a.Allowed(RolePatient, "/api/notifications/123/read", http.MethodPatch)
	require.NoError(t, err)
	require.True(t, ok)
}
