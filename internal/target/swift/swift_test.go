package swift

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/client"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/target"
)

func newSwiftTarget(t *testing.T, store osapi.ObjectStorage) target.Target {
	t.Helper()
	tgt, err := target.New("swift", target.Deps{
		Cfg: config.Config{ArchiveContainer: "backups"},
		Object: func(context.Context) (osapi.ObjectStorage, error) {
			return store, nil
		},
	})
	require.NoError(t, err)
	return tgt
}

func TestStore_SegmentsAndManifest(t *testing.T) {
	store := osapi.NewFakeObjectStorage()
	tgt := newSwiftTarget(t, store)

	payload := bytes.Repeat([]byte{0x5A}, 10) // 3 segments at chunk size 4
	src := stream.NewResized(bytes.NewReader(payload), int64(len(payload)), 4)

	require.NoError(t, tgt.Store(context.Background(), "volumes/vol-1/backup-1", src))

	require.Equal(t, []string{
		"volumes/vol-1/backup-1/manifest",
		"volumes/vol-1/backup-1/segments/00000000",
		"volumes/vol-1/backup-1/segments/00000001",
		"volumes/vol-1/backup-1/segments/00000002",
	}, store.ObjectNames("backups"))

	// Segments reassemble to the original payload.
	var joined []byte
	for i := 0; i < 3; i++ {
		rc, err := store.GetObject(context.Background(), "backups", SegmentName("volumes/vol-1/backup-1", i))
		require.NoError(t, err)
		part, err := io.ReadAll(rc)
		require.NoError(t, err)
		joined = append(joined, part...)
	}
	require.Equal(t, payload, joined)

	// Manifest carries totals and the payload digest.
	rc, err := store.GetObject(context.Background(), "backups", ManifestName("volumes/vol-1/backup-1"))
	require.NoError(t, err)
	var man Manifest
	require.NoError(t, json.NewDecoder(rc).Decode(&man))
	require.Equal(t, int64(10), man.Bytes)
	require.Equal(t, 4, man.ChunkSize)
	require.Equal(t, 3, man.Segments)
	sum := sha256.Sum256(payload)
	require.Equal(t, hex.EncodeToString(sum[:]), man.SHA256)
}

func TestStore_EmptyStreamStillWritesManifest(t *testing.T) {
	store := osapi.NewFakeObjectStorage()
	tgt := newSwiftTarget(t, store)

	src := stream.NewResized(bytes.NewReader(nil), 0, 4)
	require.NoError(t, tgt.Store(context.Background(), "volumes/vol-2/backup-1", src))

	require.Equal(t, []string{"volumes/vol-2/backup-1/manifest"}, store.ObjectNames("backups"))
}

func TestStore_DryRunLeavesTheStoreUntouched(t *testing.T) {
	live := osapi.NewFakeObjectStorage()
	tgt := newSwiftTarget(t, client.NewDryRunObjectStorage(live))

	payload := bytes.Repeat([]byte{1}, 8)
	src := stream.NewResized(bytes.NewReader(payload), int64(len(payload)), 4)

	require.NoError(t, tgt.Store(context.Background(), "volumes/vol-3/backup-1", src))
	require.Zero(t, live.PutObjectCalls)
	require.Zero(t, live.PutContainerCalls)
	require.Empty(t, live.Objects)
}

func TestNew_UnknownTarget(t *testing.T) {
	_, err := target.New("tape", target.Deps{})
	require.ErrorContains(t, err, "archive target not found")
}
