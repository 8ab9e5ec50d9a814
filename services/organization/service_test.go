package organization

import (
	"context"
	"testing"

	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	db := testutil.NewTestDB(t, &Organization{})
	return NewService(ServiceParams{DB: db, IDs: testutil.NewIDs(t)})
}

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	org, err := svc.Create(ctx, CreateRequest{Name: "Associação Flor de Cânhamo", Type: TypeAssociation})
	require.NoError(t, err)
	require.Equal(t, "associacao-flor-de-canhamo", org.Slug)
	require.Equal(t, StatusActive, org.Status)

	_, err = svc.Create(ctx, CreateRequest{Name: "Associação Flor de Cânhamo", Type: TypeClinic})
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	_, err = svc.Create(ctx, CreateRequest{Name: "X", Type: "spaceship"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestListAndUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, name := range []string{"Clínica Norte", "Clínica Sul", "Farmácia Centro"} {
		typ := TypeClinic
		if name == "Farmácia Centro" {
			typ = TypePharmacy
		}
		_, err := svc.Create(ctx, CreateRequest{Name: name, Type: typ})
		require.NoError(t, err)
	}

	data, info, err := svc.List(ctx, ListRequest{Type: TypeClinic}, pagination.Pagination{Limit: 1})
	require.NoError(t, err)
	require.Len(t, data, 1)
	require.True(t, info.HasMore)

	data, info, err = svc.List(ctx, ListRequest{Type: TypeClinic}, pagination.Pagination{Limit: 1, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, data, 1)
	require.False(t, info.HasMore)

	data, _, err = svc.List(ctx, ListRequest{Query: "farm"}, pagination.Pagination{})
	require.NoError(t, err)
	require.Len(t, data, 1)

	updated, err := svc.UpdateStatus(ctx, data[0].ID, UpdateStatusRequest{Status: StatusSuspended})
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, updated.Status)

	_, err = svc.UpdateStatus(ctx, "missing", UpdateStatusRequest{Status: StatusArchived})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}
