package config

import (
	"os"

	"endurancy-platform/pkg/hashistack/secretmanager"

	"go.uber.org/fx"
)

// Source selects where the Config comes from. REMOTE_CONFIG_PROVIDER switches
// to the remote key/value store, which needs Vault for secrets. Otherwise
// config.yaml and the environment are read, with Vault secrets overlaid when
// VAULT_ADDR is set.
func Source() fx.Option {
	if _, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		return fx.Options(secretmanager.Module, RemoteModule)
	}
	if _, ok := os.LookupEnv("VAULT_ADDR"); ok {
		return fx.Options(secretmanager.Module, Module)
	}
	return Module
}
