// Package client owns the lazily-created, memoized connections to the four
// OpenStack services and the multi-step backup operations that span them.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/poll"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
)

// ImageChunkSize is the fixed read size image downloads are re-chunked to.
const ImageChunkSize = 1_000_000

// Typed domain failures surfaced by the poll loops. The caller decides
// whether they are fatal for the process; nothing below main exits.
var (
	ErrSnapshotFailed   = errors.New("snapshot entered error state")
	ErrVolumeCopyFailed = errors.New("volume copy entered error state")
)

// Manager is the single point of access to the service connections. Each
// connection is created on first need and reused thereafter; the mutex guards
// the check-then-create path so concurrent callers cannot double-dial.
type Manager struct {
	cfg      *config.Config
	factory  osapi.Factory
	interval time.Duration

	mu      sync.Mutex
	block   osapi.BlockStorage
	image   osapi.ImageStorage
	object  osapi.ObjectStorage
	compute osapi.Compute
}

// NewManager builds a manager over cfg. factory performs the actual
// authentication handshakes; in production it is the gophercloud-backed
// osapi/openstack.Factory.
func NewManager(cfg *config.Config, factory osapi.Factory) *Manager {
	return &Manager{cfg: cfg, factory: factory, interval: cfg.PollInterval}
}

// BlockStorage returns the cached block-storage client, dialing on first use.
func (m *Manager) BlockStorage(ctx context.Context) (osapi.BlockStorage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block == nil {
		log.Info().Str("action", "connect").Str("service", "block-storage").Msg("creating client")
		c, err := m.factory.BlockStorage(ctx)
		if err != nil {
			return nil, fmt.Errorf("block-storage client: %w", err)
		}
		m.block = c
	}
	return m.block, nil
}

// ImageStorage returns the cached image-storage client, dialing on first use.
func (m *Manager) ImageStorage(ctx context.Context) (osapi.ImageStorage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.image == nil {
		log.Info().Str("action", "connect").Str("service", "image-storage").Msg("creating client")
		c, err := m.factory.ImageStorage(ctx)
		if err != nil {
			return nil, fmt.Errorf("image-storage client: %w", err)
		}
		m.image = c
	}
	return m.image, nil
}

// ObjectStorage returns the cached object-storage client, dialing on first
// use. In dry-run mode the freshly created client is wrapped exactly once, at
// creation time, so every later caller sees the interception wrapper.
func (m *Manager) ObjectStorage(ctx context.Context) (osapi.ObjectStorage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.object == nil {
		log.Info().Str("action", "connect").Str("service", "object-storage").
			Bool("dry_run", m.cfg.DryRun).Msg("creating client")
		c, err := m.factory.ObjectStorage(ctx)
		if err != nil {
			return nil, fmt.Errorf("object-storage client: %w", err)
		}
		if m.cfg.DryRun {
			c = NewDryRunObjectStorage(c)
		}
		m.object = c
	}
	return m.object, nil
}

// Compute returns the cached compute client, dialing on first use.
func (m *Manager) Compute(ctx context.Context) (osapi.Compute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.compute == nil {
		log.Info().Str("action", "connect").Str("service", "compute").Msg("creating client")
		c, err := m.factory.Compute(ctx)
		if err != nil {
			return nil, fmt.Errorf("compute client: %w", err)
		}
		m.compute = c
	}
	return m.compute, nil
}

// ProvideSnapshot creates a forced snapshot of the volume (force allows
// snapshotting in-use volumes) and waits until it is available. A snapshot
// that reaches the error state fails the operation with ErrSnapshotFailed.
func (m *Manager) ProvideSnapshot(ctx context.Context, volumeID, name string) (*osapi.Snapshot, error) {
	block, err := m.BlockStorage(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := block.CreateSnapshot(ctx, volumeID, name, true)
	if err != nil {
		return nil, fmt.Errorf("create snapshot of %s: %w", volumeID, err)
	}
	if snap.Status == osapi.StatusAvailable {
		return snap, nil
	}

	err = poll.Wait(ctx, m.interval, func(ctx context.Context) (bool, error) {
		log.Info().Str("action", "snapshot_poll").Str("snapshot", snap.ID).
			Str("status", string(snap.Status)).Msg("waiting for snapshot")
		cur, err := block.GetSnapshot(ctx, snap.ID)
		if err != nil {
			return false, err // transient: logged by poll, retried
		}
		snap = cur
		switch cur.Status {
		case osapi.StatusAvailable:
			return true, nil
		case osapi.StatusError:
			log.Error().Str("action", "snapshot_poll").Str("snapshot", snap.ID).
				Msg("snapshot entered error state")
			return false, poll.Fatal(fmt.Errorf("snapshot %s: %w", snap.ID, ErrSnapshotFailed))
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CopyVolume materializes a new volume from the snapshot, sized to match, and
// waits until it is available. The error state fails the operation with
// ErrVolumeCopyFailed instead of polling forever.
func (m *Manager) CopyVolume(ctx context.Context, snap *osapi.Snapshot) (*osapi.Volume, error) {
	block, err := m.BlockStorage(ctx)
	if err != nil {
		return nil, err
	}

	vol, err := block.CreateVolume(ctx, snap.Size, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("create volume from snapshot %s: %w", snap.ID, err)
	}
	if vol.Status == osapi.StatusAvailable {
		return vol, nil
	}

	err = poll.Wait(ctx, m.interval, func(ctx context.Context) (bool, error) {
		log.Info().Str("action", "volume_poll").Str("volume", vol.ID).
			Str("status", string(vol.Status)).Msg("waiting for volume copy")
		cur, err := block.GetVolume(ctx, vol.ID)
		if err != nil {
			return false, err
		}
		vol = cur
		switch cur.Status {
		case osapi.StatusAvailable:
			return true, nil
		case osapi.StatusError:
			log.Error().Str("action", "volume_poll").Str("volume", vol.ID).
				Msg("volume copy entered error state")
			return false, poll.Fatal(fmt.Errorf("volume %s: %w", vol.ID, ErrVolumeCopyFailed))
		default:
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}
	return vol, nil
}

// MakeImage uploads the volume to the image service as a bootable artifact
// (container format "bare", disk format "raw", forced). Cinder answers as
// soon as the image record exists; the payload transfer continues server-side.
func (m *Manager) MakeImage(ctx context.Context, name string, vol *osapi.Volume) (*osapi.Image, error) {
	block, err := m.BlockStorage(ctx)
	if err != nil {
		return nil, err
	}
	img, err := block.UploadVolumeAsImage(ctx, vol.ID, name, "bare", "raw", true)
	if err != nil {
		return nil, fmt.Errorf("upload volume %s as image: %w", vol.ID, err)
	}
	log.Info().Str("action", "make_image").Str("volume", vol.ID).
		Str("image", img.ID).Str("name", name).Msg("image upload requested")
	return img, nil
}

// CleanSnapshot deletes the snapshot. Fire-and-forget: deletion completion is
// not polled.
func (m *Manager) CleanSnapshot(ctx context.Context, snap *osapi.Snapshot) error {
	block, err := m.BlockStorage(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("action", "clean_snapshot").Str("snapshot", snap.ID).Msg("deleting snapshot")
	if err := block.DeleteSnapshot(ctx, snap.ID); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// CleanVolume deletes a copy volume once its image has been secured.
func (m *Manager) CleanVolume(ctx context.Context, vol *osapi.Volume) error {
	block, err := m.BlockStorage(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("action", "clean_volume").Str("volume", vol.ID).Msg("deleting copy volume")
	if err := block.DeleteVolume(ctx, vol.ID); err != nil {
		return fmt.Errorf("delete volume %s: %w", vol.ID, err)
	}
	return nil
}

// DownloadImage fetches the image payload and returns it re-chunked into
// ImageChunkSize reads. The caller consumes and closes the returned stream.
func (m *Manager) DownloadImage(ctx context.Context, imageID string) (*stream.Resized, error) {
	img, err := m.ImageStorage(ctx)
	if err != nil {
		return nil, err
	}
	body, length, err := img.DownloadImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("download image %s: %w", imageID, err)
	}
	log.Info().Str("action", "download_image").Str("image", imageID).
		Int64("bytes", length).Msg("image stream open")
	return stream.NewResized(body, length, ImageChunkSize), nil
}

// Check dials all four services and exercises one read per service that
// supports it. Used by the check command to validate credentials end to end.
func (m *Manager) Check(ctx context.Context) error {
	if _, err := m.BlockStorage(ctx); err != nil {
		return err
	}
	if _, err := m.ImageStorage(ctx); err != nil {
		return err
	}
	obj, err := m.ObjectStorage(ctx)
	if err != nil {
		return err
	}
	if _, err := obj.GetAccount(ctx); err != nil {
		return fmt.Errorf("object-storage account: %w", err)
	}
	comp, err := m.Compute(ctx)
	if err != nil {
		return err
	}
	if err := comp.Ping(ctx); err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	return nil
}
