package backup

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/client"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
)

// recordingTarget captures what Run hands to the archive step.
type recordingTarget struct {
	key     string
	payload []byte
	err     error
	calls   int
}

func (r *recordingTarget) Name() string { return "recording" }

func (r *recordingTarget) Store(_ context.Context, key string, src *stream.Resized) error {
	r.calls++
	r.key = key
	if r.err != nil {
		return r.err
	}
	p, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	r.payload = p
	return nil
}

func setup(cfg *config.Config) (*client.Manager, *osapi.FakeFactory, *recordingTarget) {
	f := osapi.NewFakeFactory()
	return client.NewManager(cfg, f), f, &recordingTarget{}
}

func TestRun_FullWorkflow(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond}
	mgr, f, tgt := setup(&cfg)

	payload := []byte("raw image bytes")
	// The fake uploads img-1 for the first UploadVolumeAsImage call.
	f.Image.Payloads["img-1"] = payload

	res, err := Run(context.Background(), cfg, mgr, tgt, Options{
		VolumeID:     "vol-src",
		SnapshotName: "nightly",
		Key:          "volumes/vol-src/run-1",
	})
	require.NoError(t, err)

	require.Equal(t, "snap-1", res.SnapshotID)
	require.Equal(t, "vol-1", res.CopyVolumeID)
	require.Equal(t, "img-1", res.ImageID)
	require.Equal(t, "volumes/vol-src/run-1", res.Key)
	require.Equal(t, int64(len(payload)), res.Bytes)

	// The consumed snapshot was cleaned up, the copy volume kept.
	require.Equal(t, []string{"snap-1"}, f.Block.DeletedSnapshots)
	require.Empty(t, f.Block.DeletedVolumes)

	require.Equal(t, 1, tgt.calls)
	require.Equal(t, payload, tgt.payload)
}

func TestRun_DeleteCopyVolumeFlag(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond, DeleteCopyVolume: true}
	mgr, f, tgt := setup(&cfg)
	f.Image.Payloads["img-1"] = []byte("x")

	_, err := Run(context.Background(), cfg, mgr, tgt, Options{VolumeID: "vol-src"})
	require.NoError(t, err)
	require.Equal(t, []string{"vol-1"}, f.Block.DeletedVolumes)
}

func TestRun_DerivesNamesAndKey(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond}
	mgr, f, tgt := setup(&cfg)
	f.Image.Payloads["img-1"] = []byte("x")

	_, err := Run(context.Background(), cfg, mgr, tgt, Options{VolumeID: "vol-src"})
	require.NoError(t, err)

	require.Len(t, f.Block.CreatedSnapshots, 1)
	require.Contains(t, f.Block.CreatedSnapshots[0].Name, "backup-")
	require.Contains(t, tgt.key, "volumes/vol-src/")

	// Image name defaults to the snapshot name.
	require.Equal(t, f.Block.CreatedSnapshots[0].Name, f.Block.UploadCalls[0].ImageName)
}

func TestRun_EmptyVolumeID(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond}
	mgr, _, tgt := setup(&cfg)

	_, err := Run(context.Background(), cfg, mgr, tgt, Options{})
	require.ErrorContains(t, err, "volume id is empty")
	require.Zero(t, tgt.calls)
}

func TestRun_SnapshotFailureStopsTheRun(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond}
	mgr, f, tgt := setup(&cfg)
	f.Block.SnapshotStatuses = []osapi.Status{osapi.StatusError}

	_, err := Run(context.Background(), cfg, mgr, tgt, Options{VolumeID: "vol-src"})
	require.ErrorIs(t, err, client.ErrSnapshotFailed)
	require.Empty(t, f.Block.CreatedVolumes, "no copy volume after a failed snapshot")
	require.Zero(t, tgt.calls)
}

func TestRun_ArchiveFailureSurfaces(t *testing.T) {
	cfg := config.Config{PollInterval: time.Millisecond}
	mgr, f, tgt := setup(&cfg)
	f.Image.Payloads["img-1"] = []byte("x")
	tgt.err = io.ErrUnexpectedEOF

	_, err := Run(context.Background(), cfg, mgr, tgt, Options{VolumeID: "vol-src"})
	require.ErrorContains(t, err, "archive to recording")
}
