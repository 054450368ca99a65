package secrets

import (
	"context"
	"maps"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no secret exists at the requested backend and path.
var ErrNotFound = errors.New("secret not found")

type (
	// Store returns the secrets found at a backend (mount) and path.
	Store interface {
		Secrets(ctx context.Context, backend, path string) (map[string]string, error)
	}

	// Static is a Store backed by fixed maps keyed by "<backend>/<path>".
	Static map[string]map[string]string
)

// Secrets returns a copy of the map registered for backend and path.
func (s Static) Secrets(ctx context.Context, backend, path string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values, ok := s[backend+"/"+path]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s/%s", backend, path)
	}

	return maps.Clone(values), nil
}
