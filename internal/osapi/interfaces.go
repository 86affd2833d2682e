// Package osapi defines narrow capability interfaces over the four OpenStack
// services this operator talks to. Keep them small and focused on what we
// actually call so they stay mockable; the gophercloud-backed implementations
// live in osapi/openstack, in-memory fakes for tests in fake.go.
package osapi

import (
	"context"
	"io"
)

// BlockStorage covers the Cinder calls used by the backup workflow.
type BlockStorage interface {
	CreateSnapshot(ctx context.Context, volumeID, name string, force bool) (*Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error

	CreateVolume(ctx context.Context, size int, snapshotID string) (*Volume, error)
	GetVolume(ctx context.Context, id string) (*Volume, error)
	DeleteVolume(ctx context.Context, id string) error

	// UploadVolumeAsImage turns a volume into an image-service artifact.
	UploadVolumeAsImage(ctx context.Context, volumeID, imageName, containerFormat, diskFormat string, force bool) (*Image, error)
}

// ImageStorage covers the Glance calls used by the download path.
type ImageStorage interface {
	GetImage(ctx context.Context, id string) (*Image, error)
	// DownloadImage returns the raw payload stream and its total length in bytes.
	// The caller owns the ReadCloser.
	DownloadImage(ctx context.Context, id string) (io.ReadCloser, int64, error)
}

// ObjectStorage covers the Swift calls used by the archive target. The split
// between read and write methods matters: dry-run mode suppresses exactly the
// write set (PutContainer, PutObject, DeleteObject).
type ObjectStorage interface {
	GetAccount(ctx context.Context) (*Account, error)
	GetContainer(ctx context.Context, name string) (*Container, error)
	GetObject(ctx context.Context, container, name string) (io.ReadCloser, error)
	HeadObject(ctx context.Context, container, name string) (map[string]string, error)

	PutContainer(ctx context.Context, name string) error
	PutObject(ctx context.Context, container, name string, content io.Reader) error
	DeleteObject(ctx context.Context, container, name string) error
}

// Compute is held for connectivity checks only; no backup operation
// orchestrates Nova beyond authenticating against it.
type Compute interface {
	Ping(ctx context.Context) error
}

// Factory constructs authenticated service clients. Each call performs the
// network authentication handshake; memoization is the connection manager's
// job, not the factory's.
type Factory interface {
	BlockStorage(ctx context.Context) (BlockStorage, error)
	ImageStorage(ctx context.Context) (ImageStorage, error)
	ObjectStorage(ctx context.Context) (ObjectStorage, error)
	Compute(ctx context.Context) (Compute, error)
}
