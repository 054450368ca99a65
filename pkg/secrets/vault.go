package secrets

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

type (
	// VaultConfig contains the settings used to connect to Vault.
	VaultConfig struct {
		// Address is the URL of the Vault server
		Address string

		// Token authenticates directly when set
		Token string

		// Username and Password log in through the userpass auth method when no token is set
		Username string
		Password string

		// Logger receives authentication and lookup messages (defaults to discarding)
		Logger *slog.Logger
	}

	// Vault is a Store reading HashiCorp Vault KV (version 1) secrets.
	Vault struct {
		client *api.Client
		logger *slog.Logger
	}
)

// NewVault creates an authenticated Vault store.
//
// A configured token is used as is. Otherwise, when a username is configured, the
// store logs in through auth/userpass/login/<username>. Without either, a token
// from the VAULT_TOKEN environment variable is required.
func NewVault(ctx context.Context, cfg VaultConfig) (*Vault, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	apiCfg := api.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, errors.Wrap(apiCfg.Error, "failed to configure vault client")
	}

	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vault client")
	}

	switch {
	case cfg.Token != "":
		client.SetToken(cfg.Token)
		logger.Debug("Using vault token", "address", apiCfg.Address)

	case cfg.Username != "":
		secret, err := client.Logical().WriteWithContext(ctx, "auth/userpass/login/"+cfg.Username, map[string]any{
			"password": cfg.Password,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to log in to vault as %s", cfg.Username)
		}

		if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
			return nil, errors.Errorf("vault login as %s returned no token", cfg.Username)
		}

		client.SetToken(secret.Auth.ClientToken)
		logger.Info("Logged in to vault", "address", apiCfg.Address, "username", cfg.Username)

	case client.Token() == "":
		return nil, errors.New("vault requires a token or a username and password")
	}

	return &Vault{client: client, logger: logger}, nil
}

// Secrets reads the KV (version 1) secret at backend/path. Non-string values are
// rendered with fmt.Sprint.
func (v *Vault) Secrets(ctx context.Context, backend, path string) (map[string]string, error) {
	secret, err := v.client.KVv1(backend).Get(ctx, path)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%s/%s", backend, path)
		}

		return nil, errors.Wrapf(err, "failed to read vault secret %s/%s", backend, path)
	}

	values := make(map[string]string, len(secret.Data))
	for k, val := range secret.Data {
		if s, ok := val.(string); ok {
			values[k] = s
			continue
		}
		values[k] = fmt.Sprint(val)
	}

	v.logger.Debug("Fetched vault secrets", "backend", backend, "path", path, "keys", len(values))
	return values, nil
}
