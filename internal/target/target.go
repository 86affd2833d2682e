// Package target abstracts where archived image payloads end up. Concrete
// targets register themselves by name; main selects one via config.
package target

import (
	"context"
	"fmt"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
)

// Target stores one image payload under a key.
type Target interface {
	// Store consumes src in a single pass and persists it under key.
	Store(ctx context.Context, key string, src *stream.Resized) error

	// Name returns the target identifier (e.g. "swift", "azure").
	Name() string
}

// Deps are the collaborator handles a target factory may need. Object is the
// connection manager's lazy object-storage accessor, so the swift target
// inherits memoization and dry-run interception for free.
type Deps struct {
	Cfg    config.Config
	Object func(context.Context) (osapi.ObjectStorage, error)
}

// Factory creates a target instance from its deps.
type Factory func(Deps) (Target, error)

var registry = map[string]Factory{}

// Register binds a target name to its factory.
func Register(name string, f Factory) {
	registry[name] = f
}

// New returns a target instance by name.
func New(name string, deps Deps) (Target, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("archive target not found: %s", name)
	}
	return f(deps)
}
