// Package backup runs the volume backup workflow end to end:
// snapshot -> copy volume -> image -> clean snapshot -> download -> archive.
package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/client"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/target"
)

// Options controls naming for one backup run. Empty fields get derived
// defaults based on a fresh run id.
type Options struct {
	// VolumeID: the source volume to back up (required).
	VolumeID string
	// SnapshotName: display name for the snapshot (default: backup-<run id>).
	SnapshotName string
	// ImageName: name of the produced image (default: the snapshot name).
	ImageName string
	// Key: archive key (default: volumes/<volume>/<timestamp>-<short run id>).
	Key string
}

// Result reports what the run produced.
type Result struct {
	SnapshotID   string
	CopyVolumeID string
	ImageID      string
	Key          string
	Bytes        int64
	Timestamp    time.Time
}

// Run executes the backup workflow against mgr and archives the image payload
// into tgt. The copy volume is left behind unless cfg.DeleteCopyVolume is set
// (restores may want to reuse it).
func Run(ctx context.Context, cfg config.Config, mgr *client.Manager, tgt target.Target, opt Options) (Result, error) {
	var res Result

	volID := strings.TrimSpace(opt.VolumeID)
	if volID == "" {
		return res, fmt.Errorf("backup: volume id is empty (provide BACKUP_VOLUME_ID or CLI arg)")
	}

	ts := time.Now().UTC()
	runID := uuid.NewString()

	snapName := strings.TrimSpace(opt.SnapshotName)
	if snapName == "" {
		snapName = "backup-" + runID
	}
	imageName := strings.TrimSpace(opt.ImageName)
	if imageName == "" {
		imageName = snapName
	}
	key := strings.TrimSpace(opt.Key)
	if key == "" {
		key = fmt.Sprintf("volumes/%s/%s-%s", volID, ts.Format("2006-01-02T15-04-05Z"), runID[:8])
	}

	start := time.Now()
	log.Info().Str("action", "backup").Str("volume", volID).Str("snapshot_name", snapName).
		Str("target", tgt.Name()).Str("key", key).Bool("dry_run", cfg.DryRun).Msg("starting backup")

	snap, err := mgr.ProvideSnapshot(ctx, volID, snapName)
	if err != nil {
		log.Error().Err(err).Str("action", "backup").Str("volume", volID).Msg("snapshot failed")
		return res, fmt.Errorf("provide snapshot: %w", err)
	}
	res.SnapshotID = snap.ID

	vol, err := mgr.CopyVolume(ctx, snap)
	if err != nil {
		log.Error().Err(err).Str("action", "backup").Str("snapshot", snap.ID).Msg("volume copy failed")
		return res, fmt.Errorf("copy volume: %w", err)
	}
	res.CopyVolumeID = vol.ID

	img, err := mgr.MakeImage(ctx, imageName, vol)
	if err != nil {
		log.Error().Err(err).Str("action", "backup").Str("volume", vol.ID).Msg("image upload failed")
		return res, fmt.Errorf("make image: %w", err)
	}
	res.ImageID = img.ID

	// The snapshot is consumed once the copy exists; its deletion failing
	// must not fail the backup.
	if err := mgr.CleanSnapshot(ctx, snap); err != nil {
		log.Warn().Err(err).Str("action", "backup").Str("snapshot", snap.ID).
			Msg("snapshot cleanup failed, continuing")
	}

	src, err := mgr.DownloadImage(ctx, img.ID)
	if err != nil {
		log.Error().Err(err).Str("action", "backup").Str("image", img.ID).Msg("image download failed")
		return res, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = src.Close() }()
	res.Bytes = src.Len()

	if err := tgt.Store(ctx, key, src); err != nil {
		log.Error().Err(err).Str("action", "backup").Str("target", tgt.Name()).
			Str("key", key).Msg("archive failed")
		return res, fmt.Errorf("archive to %s: %w", tgt.Name(), err)
	}

	if cfg.DeleteCopyVolume {
		if err := mgr.CleanVolume(ctx, vol); err != nil {
			log.Warn().Err(err).Str("action", "backup").Str("volume", vol.ID).
				Msg("copy volume cleanup failed, continuing")
		}
	}

	res.Key = key
	res.Timestamp = ts

	log.Info().Str("action", "backup").Str("volume", volID).Str("image", img.ID).
		Str("key", key).Int64("bytes", res.Bytes).
		Dur("elapsed_ms", time.Since(start)).Msg("backup OK")
	return res, nil
}
