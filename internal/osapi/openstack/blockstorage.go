package openstack

import (
	"context"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/snapshots"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumes"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

type blockStorage struct {
	sc *gophercloud.ServiceClient
}

var _ osapi.BlockStorage = (*blockStorage)(nil)

func (b *blockStorage) CreateSnapshot(ctx context.Context, volumeID, name string, force bool) (*osapi.Snapshot, error) {
	s, err := snapshots.Create(ctx, b.sc, snapshots.CreateOpts{
		VolumeID: volumeID,
		Name:     name,
		Force:    force,
	}).Extract()
	if err != nil {
		return nil, err
	}
	return snapshotFromSDK(s), nil
}

func (b *blockStorage) GetSnapshot(ctx context.Context, id string) (*osapi.Snapshot, error) {
	s, err := snapshots.Get(ctx, b.sc, id).Extract()
	if err != nil {
		return nil, err
	}
	return snapshotFromSDK(s), nil
}

func (b *blockStorage) DeleteSnapshot(ctx context.Context, id string) error {
	return snapshots.Delete(ctx, b.sc, id).ExtractErr()
}

func (b *blockStorage) CreateVolume(ctx context.Context, size int, snapshotID string) (*osapi.Volume, error) {
	v, err := volumes.Create(ctx, b.sc, volumes.CreateOpts{
		Size:       size,
		SnapshotID: snapshotID,
	}, nil).Extract()
	if err != nil {
		return nil, err
	}
	return volumeFromSDK(v), nil
}

func (b *blockStorage) GetVolume(ctx context.Context, id string) (*osapi.Volume, error) {
	v, err := volumes.Get(ctx, b.sc, id).Extract()
	if err != nil {
		return nil, err
	}
	return volumeFromSDK(v), nil
}

func (b *blockStorage) DeleteVolume(ctx context.Context, id string) error {
	return volumes.Delete(ctx, b.sc, id, nil).ExtractErr()
}

func (b *blockStorage) UploadVolumeAsImage(ctx context.Context, volumeID, imageName, containerFormat, diskFormat string, force bool) (*osapi.Image, error) {
	vi, err := volumes.UploadImage(ctx, b.sc, volumeID, volumes.UploadImageOpts{
		ImageName:       imageName,
		ContainerFormat: containerFormat,
		DiskFormat:      diskFormat,
		Force:           force,
	}).Extract()
	if err != nil {
		return nil, err
	}
	return &osapi.Image{ID: vi.ImageID, Name: vi.ImageName}, nil
}

func snapshotFromSDK(s *snapshots.Snapshot) *osapi.Snapshot {
	return &osapi.Snapshot{
		ID:       s.ID,
		VolumeID: s.VolumeID,
		Name:     s.Name,
		Size:     s.Size,
		Status:   osapi.Status(s.Status),
	}
}

func volumeFromSDK(v *volumes.Volume) *osapi.Volume {
	return &osapi.Volume{
		ID:     v.ID,
		Name:   v.Name,
		Size:   v.Size,
		Status: osapi.Status(v.Status),
	}
}
