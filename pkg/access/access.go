package access

import (
	_ "embed"
	"fmt"

	"endurancy-platform/pkg/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var defaultModel string

//go:embed policy.csv
var defaultPolicy string

var Module = fx.Module("access",
	fx.Provide(New),
)

type Authorizer interface {
	Allowed(role, path, method string) (bool, error)
}

type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// New loads the RBAC model and policy from ACCESS_CONTROL.MODEL/POLICY when
// set, falling back to the embedded defaults.
func New(cfg *config.Config) (Authorizer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.AccessControl.Model != "" {
		m, err = model.NewModelFromFile(cfg.AccessControl.Model)
	} else {
		m, err = model.NewModelFromString(defaultModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var e *casbin.SyncedEnforcer
	if cfg.AccessControl.Policy != "" {
		e, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.AccessControl.Policy))
	} else {
		e, err = casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(defaultPolicy))
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin policy: %w", err)
	}

	zap.L().Info("[Access] policy loaded", zap.Int("policies", len(mustPolicies(e))))
	return &Enforcer{enforcer: e}, nil
}

func mustPolicies(e *casbin.SyncedEnforcer) [][]string {
	p, _ := e.GetPolicy()
	return p
}

func (e *Enforcer) Allowed(role, path, method string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return e.enforcer.Enforce(role, path, method)
}
