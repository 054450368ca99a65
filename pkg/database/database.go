// Package database connects to the PostgreSQL server migrations run against.
//
// Connection parameters are read from the secret store under the V_DB_* keys and
// assembled into a postgres:// URL. WithTx runs a migration batch in a single
// transaction that is committed only when the batch succeeds.
package database

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Secret keys holding the connection parameters.
const (
	KeyHost     = "V_DB_HOST"
	KeyPort     = "V_DB_PORT"
	KeyUsername = "V_DB_USERNAME"
	KeyPassword = "V_DB_PASSWORD"
	KeyName     = "V_DB_NAME"

	// DefaultPort is used when the secrets carry no port
	DefaultPort = 5432
)

type (
	// Params are the connection parameters of a PostgreSQL database.
	Params struct {
		Host     string
		Port     int
		Username string
		Password string
		Name     string
	}

	// Beginner starts transactions. It is satisfied by *pgx.Conn and *pgxpool.Pool.
	Beginner interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	}
)

// ParamsFromSecrets reads connection parameters from a secrets map.
//
// V_DB_HOST, V_DB_USERNAME and V_DB_NAME are required. V_DB_PORT defaults to
// 5432 and V_DB_PASSWORD may be empty.
func ParamsFromSecrets(values map[string]string) (Params, error) {
	p := Params{
		Host:     strings.TrimSpace(values[KeyHost]),
		Port:     DefaultPort,
		Username: values[KeyUsername],
		Password: values[KeyPassword],
		Name:     strings.TrimSpace(values[KeyName]),
	}

	var missing []string
	for _, required := range []struct{ key, value string }{
		{KeyHost, p.Host},
		{KeyUsername, p.Username},
		{KeyName, p.Name},
	} {
		if required.value == "" {
			missing = append(missing, required.key)
		}
	}

	if len(missing) > 0 {
		return Params{}, errors.Errorf("missing database secrets: %s", strings.Join(missing, ", "))
	}

	if raw := strings.TrimSpace(values[KeyPort]); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Params{}, errors.Errorf("invalid %s: %q", KeyPort, raw)
		}
		p.Port = port
	}

	return p, nil
}

// DSN renders the parameters as a postgres:// URL with escaped credentials.
//
// Example:
//
//	Params{Host: "db", Port: 5432, Username: "app", Password: "p@ss", Name: "jwizard"}.DSN()
//	// postgres://app:p%40ss@db:5432/jwizard
func (p Params) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.Username, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Name,
	}

	return u.String()
}

// Redacted renders the DSN with the password masked, for logging.
func (p Params) Redacted() string {
	if p.Password == "" {
		return p.DSN()
	}

	masked := p
	masked.Password = "xxxxx"
	return masked.DSN()
}

// Connect opens a connection and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return conn, nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, in which case fn's error is returned.
func WithTx(ctx context.Context, db Beginner, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db, fn)
}
