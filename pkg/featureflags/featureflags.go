package featureflags

import (
	"context"
	"fmt"

	"endurancy-platform/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

type FeatureFlag interface {
	// ModuleEnabled reports whether the module is switched on for the
	// organization. Unknown flags and an unconfigured Flagsmith count as on.
	ModuleEnabled(ctx context.Context, organizationID, moduleKey string) (bool, error)
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return &featureflag{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithAnalytics(),
	}
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func FlagName(moduleKey string) string {
	return fmt.Sprintf("module_%s", moduleKey)
}

func Identity(organizationID string) string {
	return fmt.Sprintf("org_%s", organizationID)
}

func (s *featureflag) ModuleEnabled(ctx context.Context, organizationID, moduleKey string) (bool, error) {
	if s.client == nil {
		return true, nil
	}

	flags, err := s.client.GetIdentityFlags(Identity(organizationID), []*flagsmith.Trait{
		{TraitKey: "organization_id", TraitValue: organizationID},
	})
	if err != nil {
		return false, err
	}

	flag, err := flags.GetFlag(FlagName(moduleKey))
	if err != nil {
		zap.L().Debug("module flag not defined", zap.String("module", moduleKey), zap.Error(err))
		return true, nil
	}
	return flag.Enabled, nil
}
