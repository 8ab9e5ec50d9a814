package user

import (
	"context"
	"testing"

	"endurancy-platform/pkg/errutil"
	"endurancy-platform/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	db := testutil.NewTestDB(t, &User{})
	return NewService(ServiceParams{DB: db, IDs: testutil.NewIDs(t)})
}

func ptr(s string) *string { return &s }

func TestCreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	u, err := svc.Create(ctx, CreateRequest{OrganizationID: "org-1", Name: "Dra. Helena", Email: " Helena@Clinica.com.br ", Password: "correct-horse", Role: "doctor"})
	require.NoError(t, err)
	require.Equal(t, "helena@clinica.com.br", u.Email)
	require.Equal(t, "helena", u.Username)
	require.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err = svc.Create(ctx, CreateRequest{Name: "Dup", Email: "helena@clinica.com.br", Password: "another-pass", Role: "doctor"})
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	_, err = svc.Create(ctx, CreateRequest{Name: "Bad", Email: "bad@clinica.com.br", Password: "another-pass", Role: "wizard"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	got, err := svc.Authenticate(ctx, "HELENA@clinica.com.br", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)

	_, err = svc.Authenticate(ctx, "helena@clinica.com.br", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@clinica.com.br", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	u, err := svc.Create(ctx, CreateRequest{Name: "Paciente", Email: "p@x.com", Password: "old-password", Role: "patient"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{Phone: ptr("+55 11 99999-0000"), Bio: ptr("Olá")})
	require.NoError(t, err)
	require.Equal(t, "Paciente", updated.Name)
	require.Equal(t, "Olá", updated.Bio)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{AvatarURL: ptr("not a url")})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	err = svc.ChangePassword(ctx, u.ID, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	err = svc.ChangePassword(ctx, u.ID, ChangePasswordRequest{CurrentPassword: "old-password", NewPassword: "short"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, ChangePasswordRequest{CurrentPassword: "old-password", NewPassword: "new-password"}))
	_, err = svc.Authenticate(ctx, "p@x.com", "new-password")
	require.NoError(t, err)
}
