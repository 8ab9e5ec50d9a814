package module

import (
	"context"
	"errors"
	"testing"

	"endurancy-platform/pkg/cache"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/rediskey"
	"endurancy-platform/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeFlags struct {
	off map[string]bool
	err error
}

func (f fakeFlags) ModuleEnabled(_ context.Context, _, moduleKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.off[moduleKey], nil
}

func newService(t *testing.T, flags fakeFlags) (*Service, *cache.MemoryStore) {
	t.Helper()
	db := testutil.NewTestDB(t, Models()...)
	store := cache.NewMemoryStore()
	return NewService(ServiceParams{DB: db, IDs: testutil.NewIDs(t), Cache: store, Flags: flags}), store
}

func TestCatalogIsCachedAndInvalidated(t *testing.T) {
	s, store := newService(t, fakeFlags{})
	ctx := context.Background()

	added, err := s.Seed(ctx, DefaultCatalog())
	require.NoError(t, err)
	require.Equal(t, len(DefaultCatalog()), added)
	added, err = s.Seed(ctx, DefaultCatalog())
	require.NoError(t, err)
	require.Zero(t, added)

	catalog, err := s.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, len(DefaultCatalog()))
	require.Equal(t, "pacientes", catalog[0].Key)
	_, ok, _ := store.Get(ctx, rediskey.ModuleCatalogKey)
	require.True(t, ok)

	m, err := s.CreateModule(ctx, CreateModuleRequest{Key: "Laboratório Analítico", Name: "Laboratório", SortOrder: 5})
	require.NoError(t, err)
	require.Equal(t, "laboratorio-analitico", m.Key)
	_, ok, _ = store.Get(ctx, rediskey.ModuleCatalogKey)
	require.False(t, ok)

	catalog, err = s.Catalog(ctx)
	require.NoError(t, err)
	require.Equal(t, m.ID, catalog[0].ID)

	_, err = s.CreateModule(ctx, CreateModuleRequest{Key: "pacientes", Name: "Dup"})
	require.True(t, errutil.Is(err, errutil.StatusConflict))
}

func TestPlans(t *testing.T) {
	s, _ := newService(t, fakeFlags{})
	ctx := context.Background()

	a, err := s.CreateModule(ctx, CreateModuleRequest{Key: "tarefas", Name: "Tarefas"})
	require.NoError(t, err)
	b, err := s.CreateModule(ctx, CreateModuleRequest{Key: "expedicao", Name: "Expedição"})
	require.NoError(t, err)

	_, err = s.CreatePlan(ctx, CreatePlanRequest{ModuleID: a.ID, Name: "Mensal", BillingPeriod: "weekly"})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
	_, err = s.CreatePlan(ctx, CreatePlanRequest{ModuleID: "missing", Name: "Mensal", BillingPeriod: BillingMonthly})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	p, err := s.CreatePlan(ctx, CreatePlanRequest{ModuleID: a.ID, Name: "Mensal", BillingPeriod: BillingMonthly, PriceCents: 9900})
	require.NoError(t, err)
	require.Equal(t, "BRL", p.Currency)
	_, err = s.CreatePlan(ctx, CreatePlanRequest{ModuleID: b.ID, Name: "Anual", BillingPeriod: BillingYearly, PriceCents: 99000, Currency: "usd"})
	require.NoError(t, err)

	all, err := s.Plans(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, p.ID, all[0].ID)

	onlyA, err := s.Plans(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
}

func TestSubscriptions(t *testing.T) {
	s, _ := newService(t, fakeFlags{off: map[string]bool{"expedicao": true}})
	ctx := context.Background()

	tarefas, err := s.CreateModule(ctx, CreateModuleRequest{Key: "tarefas", Name: "Tarefas"})
	require.NoError(t, err)
	expedicao, err := s.CreateModule(ctx, CreateModuleRequest{Key: "expedicao", Name: "Expedição"})
	require.NoError(t, err)
	p1, err := s.CreatePlan(ctx, CreatePlanRequest{ModuleID: tarefas.ID, Name: "Mensal", BillingPeriod: BillingMonthly, PriceCents: 100})
	require.NoError(t, err)
	p2, err := s.CreatePlan(ctx, CreatePlanRequest{ModuleID: expedicao.ID, Name: "Mensal", BillingPeriod: BillingMonthly, PriceCents: 100})
	require.NoError(t, err)

	_, err = s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: "missing"})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	_, err = s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: p1.ID})
	require.NoError(t, err)
	_, err = s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: p1.ID})
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	mods, err := s.OrganizationModules(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, mods, 1)

	_, err = s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: p2.ID})
	require.NoError(t, err)
	mods, err = s.OrganizationModules(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, mods, 1, "flag switched off hides expedicao")
	require.Equal(t, "tarefas", mods[0].Module.Key)

	other, err := s.OrganizationModules(ctx, "org-2")
	require.NoError(t, err)
	require.Empty(t, other)

	require.NoError(t, s.Unsubscribe(ctx, "org-1", tarefas.ID))
	require.True(t, errutil.Is(s.Unsubscribe(ctx, "org-1", tarefas.ID), errutil.StatusNotFound))
	mods, err = s.OrganizationModules(ctx, "org-1")
	require.NoError(t, err)
	require.Empty(t, mods)

	again, err := s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: p1.ID})
	require.NoError(t, err)
	require.Equal(t, SubscriptionActive, again.Status)
	require.Nil(t, again.CancelledAt)
}

func TestFlagFailureKeepsModule(t *testing.T) {
	s, _ := newService(t, fakeFlags{err: errors.New("flagsmith down")})
	ctx := context.Background()

	m, err := s.CreateModule(ctx, CreateModuleRequest{Key: "tarefas", Name: "Tarefas"})
	require.NoError(t, err)
	p, err := s.CreatePlan(ctx, CreatePlanRequest{ModuleID: m.ID, Name: "Mensal", BillingPeriod: BillingMonthly})
	require.NoError(t, err)
	_, err = s.Subscribe(ctx, "org-1", SubscribeRequest{PlanID: p.ID})
	require.NoError(t, err)

	mods, err := s.OrganizationModules(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, mods, 1)
}
