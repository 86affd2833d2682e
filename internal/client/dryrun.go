package client

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

// DryRunObjectStorage lets the rest of the system run unmodified against
// object storage while suppressing all state-mutating effects. Reads forward
// to the live connection; writes log what would have happened and succeed
// without touching the store. Callers cannot tell it apart by interface
// shape, only by observing that mutations do not persist.
type DryRunObjectStorage struct {
	live osapi.ObjectStorage
}

var _ osapi.ObjectStorage = (*DryRunObjectStorage)(nil)

func NewDryRunObjectStorage(live osapi.ObjectStorage) *DryRunObjectStorage {
	return &DryRunObjectStorage{live: live}
}

func (d *DryRunObjectStorage) GetAccount(ctx context.Context) (*osapi.Account, error) {
	return d.live.GetAccount(ctx)
}

func (d *DryRunObjectStorage) GetContainer(ctx context.Context, name string) (*osapi.Container, error) {
	return d.live.GetContainer(ctx, name)
}

func (d *DryRunObjectStorage) GetObject(ctx context.Context, container, name string) (io.ReadCloser, error) {
	return d.live.GetObject(ctx, container, name)
}

func (d *DryRunObjectStorage) HeadObject(ctx context.Context, container, name string) (map[string]string, error) {
	return d.live.HeadObject(ctx, container, name)
}

func (d *DryRunObjectStorage) PutContainer(_ context.Context, name string) error {
	log.Debug().Str("action", "dry_run").Str("container", name).Msg("suppressed put container")
	return nil
}

func (d *DryRunObjectStorage) PutObject(_ context.Context, container, name string, content io.Reader) error {
	// Drain the payload so upstream producers see normal consumption.
	n, _ := io.Copy(io.Discard, content)
	log.Debug().Str("action", "dry_run").Str("container", container).Str("object", name).
		Int64("bytes", n).Msg("suppressed put object")
	return nil
}

func (d *DryRunObjectStorage) DeleteObject(_ context.Context, container, name string) error {
	log.Debug().Str("action", "dry_run").Str("container", container).Str("object", name).
		Msg("suppressed delete object")
	return nil
}
