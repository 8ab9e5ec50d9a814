package secretmanager

import (
	"context"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault-client-go"
	"github.com/hashicorp/vault-client-go/schema"
	"go.uber.org/fx"
)

// Module provides a Vault client configured from VAULT_* environment
// variables. config.LoadConfig picks it up as an optional dependency.
var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// ProvideVault authenticates with VAULT_TOKEN, or with AppRole when
// VAULT_ROLE_ID and VAULT_SECRET_ID are set (the deployed case).
func ProvideVault() (*vault.Client, error) {
	client, err := vault.New(
		vault.WithEnvironment(),
		vault.WithRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}

	if token, ok := os.LookupEnv("VAULT_TOKEN"); ok {
		return client, client.SetToken(token)
	}

	roleID, secretID := os.Getenv("VAULT_ROLE_ID"), os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return client, nil
	}

	resp, err := client.Auth.AppRoleLogin(context.Background(), schema.AppRoleLoginRequest{
		RoleId:   roleID,
		SecretId: secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("vault approle login: %w", err)
	}
	if err := client.SetToken(resp.Auth.ClientToken); err != nil {
		return nil, err
	}
	return client, nil
}
