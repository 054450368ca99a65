package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/jwizard/dbmigrator/pkg/config"
	"github.com/jwizard/dbmigrator/pkg/secrets"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testParams returns command params loading the real config and reading secrets
// from the provided store.
func testParams(store secrets.Store) commandParams {
	return commandParams{
		Loader: config.LoadOrDefault,
		Logger: discardLogger(),
		Secrets: func(context.Context, secrets.VaultConfig) (secrets.Store, error) {
			return store, nil
		},
	}
}
