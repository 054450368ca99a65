// Package secrets retrieves the database connection settings from a key-value
// secret store.
//
// The Store interface returns the string-keyed map found at a backend and path.
// Vault reads a HashiCorp Vault KV (version 1) mount and authenticates with a
// token or with userpass credentials. Static serves a fixed map and is meant for
// tests and local runs.
//
// # Usage Example
//
//	store, err := secrets.NewVault(ctx, secrets.VaultConfig{
//		Address:  "http://localhost:8761",
//		Username: "migrator",
//		Password: os.Getenv("VAULT_PASSWORD"),
//		Logger:   logger,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	values, err := store.Secrets(ctx, "jwizard", "common")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	host := values["V_DB_HOST"]
package secrets
