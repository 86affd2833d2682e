package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
)

func testConfig() *config.Config {
	return &config.Config{PollInterval: time.Millisecond}
}

func newTestManager(cfg *config.Config) (*Manager, *osapi.FakeFactory) {
	f := osapi.NewFakeFactory()
	return NewManager(cfg, f), f
}

func TestManager_AccessorsAreMemoized(t *testing.T) {
	m, f := newTestManager(testConfig())
	ctx := context.Background()

	b1, err := m.BlockStorage(ctx)
	require.NoError(t, err)
	b2, err := m.BlockStorage(ctx)
	require.NoError(t, err)
	require.Same(t, b1.(*osapi.FakeBlockStorage), b2.(*osapi.FakeBlockStorage))
	require.Equal(t, 1, f.BlockDials, "second call must not re-authenticate")

	_, _ = m.ImageStorage(ctx)
	_, _ = m.ImageStorage(ctx)
	require.Equal(t, 1, f.ImageDials)

	_, _ = m.Compute(ctx)
	_, _ = m.Compute(ctx)
	require.Equal(t, 1, f.ComputeDials)

	_, _ = m.ObjectStorage(ctx)
	_, _ = m.ObjectStorage(ctx)
	require.Equal(t, 1, f.ObjectDials)
}

func TestManager_DialErrorIsNotCached(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.BlockErr = errors.New("keystone unreachable")

	_, err := m.BlockStorage(context.Background())
	require.ErrorContains(t, err, "keystone unreachable")

	// Next call dials again once the endpoint is back.
	f.BlockErr = nil
	_, err = m.BlockStorage(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, f.BlockDials)
}

func TestManager_DryRunWrapsObjectStorageOnce(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true
	m, f := newTestManager(cfg)
	ctx := context.Background()

	o1, err := m.ObjectStorage(ctx)
	require.NoError(t, err)
	require.IsType(t, &DryRunObjectStorage{}, o1)

	o2, err := m.ObjectStorage(ctx)
	require.NoError(t, err)
	require.Same(t, o1.(*DryRunObjectStorage), o2.(*DryRunObjectStorage), "wrapping happens at creation, not per call")
	require.Equal(t, 1, f.ObjectDials)
}

func TestManager_LiveModeDoesNotWrap(t *testing.T) {
	m, _ := newTestManager(testConfig())

	o, err := m.ObjectStorage(context.Background())
	require.NoError(t, err)
	require.IsType(t, &osapi.FakeObjectStorage{}, o)
}

func TestProvideSnapshot_PollsUntilAvailable(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Block.SnapshotStatuses = []osapi.Status{
		osapi.StatusCreating, osapi.StatusCreating, osapi.StatusAvailable,
	}

	snap, err := m.ProvideSnapshot(context.Background(), "vol-src", "nightly")
	require.NoError(t, err)
	require.Equal(t, osapi.StatusAvailable, snap.Status)
	require.Equal(t, "vol-src", snap.VolumeID)
	require.Equal(t, 3, f.Block.SnapshotGets(), "one fetch per scripted status")

	require.Len(t, f.Block.CreatedSnapshots, 1)
	require.Equal(t, "nightly", f.Block.CreatedSnapshots[0].Name)
}

func TestProvideSnapshot_ErrorStatusIsFatal(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Block.SnapshotStatuses = []osapi.Status{osapi.StatusCreating, osapi.StatusError}

	snap, err := m.ProvideSnapshot(context.Background(), "vol-src", "nightly")
	require.ErrorIs(t, err, ErrSnapshotFailed)
	require.Nil(t, snap)
}

func TestProvideSnapshot_TransientFetchErrorDoesNotAbort(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Block.SnapshotStatuses = []osapi.Status{
		osapi.StatusCreating, osapi.StatusCreating, osapi.StatusAvailable,
	}
	f.Block.SnapshotGetErrs = map[int]error{2: errors.New("503 from cinder")}

	snap, err := m.ProvideSnapshot(context.Background(), "vol-src", "nightly")
	require.NoError(t, err, "a momentary fetch failure must not abort the wait")
	require.Equal(t, osapi.StatusAvailable, snap.Status)
	require.Equal(t, 3, f.Block.SnapshotGets())
}

func TestCopyVolume_CarriesSizeAndSnapshotID(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Block.SnapshotSize = 42

	snap, err := m.ProvideSnapshot(context.Background(), "vol-src", "nightly")
	require.NoError(t, err)
	require.Equal(t, 42, snap.Size)

	vol, err := m.CopyVolume(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, osapi.StatusAvailable, vol.Status)
	require.Equal(t, 42, vol.Size)

	require.Len(t, f.Block.CreatedVolumes, 1)
	require.Equal(t, osapi.CreateVolumeCall{Size: 42, SnapshotID: snap.ID}, f.Block.CreatedVolumes[0])
}

func TestCopyVolume_ErrorStatusIsFatal(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Block.VolumeStatuses = []osapi.Status{osapi.StatusCreating, osapi.StatusError}

	vol, err := m.CopyVolume(context.Background(), &osapi.Snapshot{ID: "snap-1", Size: 10})
	require.ErrorIs(t, err, ErrVolumeCopyFailed)
	require.Nil(t, vol)
}

func TestMakeImage_AlwaysBareRawForced(t *testing.T) {
	m, f := newTestManager(testConfig())

	img, err := m.MakeImage(context.Background(), "backup-image", &osapi.Volume{ID: "vol-9"})
	require.NoError(t, err)
	require.NotEmpty(t, img.ID)

	require.Len(t, f.Block.UploadCalls, 1)
	call := f.Block.UploadCalls[0]
	require.Equal(t, "vol-9", call.VolumeID)
	require.Equal(t, "bare", call.ContainerFormat)
	require.Equal(t, "raw", call.DiskFormat)
	require.True(t, call.Force)
}

func TestCleanSnapshotAndVolume(t *testing.T) {
	m, f := newTestManager(testConfig())

	require.NoError(t, m.CleanSnapshot(context.Background(), &osapi.Snapshot{ID: "snap-7"}))
	require.Equal(t, []string{"snap-7"}, f.Block.DeletedSnapshots)

	require.NoError(t, m.CleanVolume(context.Background(), &osapi.Volume{ID: "vol-7"}))
	require.Equal(t, []string{"vol-7"}, f.Block.DeletedVolumes)
}

func TestDownloadImage_ReturnsResizedStream(t *testing.T) {
	m, f := newTestManager(testConfig())
	payload := bytes.Repeat([]byte{0xAB}, 2_500_000)
	f.Image.Payloads["img-1"] = payload

	rs, err := m.DownloadImage(context.Background(), "img-1")
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()

	require.Equal(t, int64(len(payload)), rs.Len())
	require.Equal(t, ImageChunkSize, rs.ChunkSize())

	var sizes []int
	for {
		chunk, err := rs.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
	}
	require.Equal(t, []int{1_000_000, 1_000_000, 500_000}, sizes)
}

func TestDownloadImage_UnknownImage(t *testing.T) {
	m, _ := newTestManager(testConfig())

	_, err := m.DownloadImage(context.Background(), "missing")
	require.Error(t, err)
	var nf *osapi.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCheck_TouchesAllFourServices(t *testing.T) {
	m, f := newTestManager(testConfig())

	require.NoError(t, m.Check(context.Background()))
	require.Equal(t, 1, f.BlockDials)
	require.Equal(t, 1, f.ImageDials)
	require.Equal(t, 1, f.ObjectDials)
	require.Equal(t, 1, f.ComputeDials)
	require.Equal(t, 1, f.Comp.PingCalls)
}

func TestCheck_ReportsComputeFailure(t *testing.T) {
	m, f := newTestManager(testConfig())
	f.Comp.PingErr = errors.New("nova down")

	err := m.Check(context.Background())
	require.ErrorContains(t, err, "nova down")
}
