package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/backup"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/client"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/config"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/logx"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi/openstack"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/target"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/util"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/version"

	_ "github.com/Chapsvision-dev/openstack-volume-backup/internal/target/azure"
	_ "github.com/Chapsvision-dev/openstack-volume-backup/internal/target/swift"
)

// Test seams — overridden in unit tests. Keep signatures in sync with packages.
var (
	loadConfig func() (config.Config, error)                                                                              = config.Load
	newFactory func(cfg *config.Config) osapi.Factory                                                                     = func(cfg *config.Config) osapi.Factory { return openstack.NewFactory(cfg) }
	newTarget  func(name string, deps target.Deps) (target.Target, error)                                                 = target.New
	backupRun  func(context.Context, config.Config, *client.Manager, target.Target, backup.Options) (backup.Result, error) = backup.Run
	exit       func(int)                                                                                                  = os.Exit
)

const usage = `
Usage:
  operator backup   [volumeID] [snapshotName]
  operator download [imageID] [localFile]
  operator check
  operator version | --version | -v
  operator help    | --help    | -h

Notes:
  - You can also set env vars:
      BACKUP_VOLUME_ID, BACKUP_SNAPSHOT_NAME, DOWNLOAD_IMAGE_ID, DOWNLOAD_TARGET
  - OpenStack credentials come from the usual OS_* variables (OS_AUTH_URL,
    OS_USERNAME, OS_PASSWORD, OS_PROJECT_NAME, OS_REGION_NAME).
  - Archive target is selected with ARCHIVE_TARGET (swift|azure, default: swift).
  - DRY_RUN=true rehearses a run without writing to object storage.
`

// main wires CLI -> config -> connection manager -> workflow.
// Exit codes: 0 success, 1 runtime error, 2 usage error.
func main() {
	_ = godotenv.Load() // best-effort
	logx.InitFromEnv()

	args := os.Args[1:]
	if len(args) < 1 {
		fmt.Print(usage)
		exit(2)
	}
	action := strings.ToLower(args[0])

	// Handle version command
	if action == "version" || action == "--version" || action == "-v" {
		fmt.Printf("openstack-volume-backup %s\n", version.Info())
		exit(0)
	}

	// Handle help command
	if action == "help" || action == "--help" || action == "-h" {
		fmt.Print(usage)
		exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("config error")
		exit(1)
	}

	mgr := client.NewManager(&cfg, newFactory(&cfg))
	ctx := withSignals(context.Background())

	switch action {
	case "backup":
		volumeID := pickArgOrEnv(2, "BACKUP_VOLUME_ID", "")
		snapName := pickArgOrEnv(3, "BACKUP_SNAPSHOT_NAME", "")

		tgt, err := newTarget(cfg.ArchiveTarget, target.Deps{Cfg: cfg, Object: mgr.ObjectStorage})
		if err != nil {
			log.Error().Err(err).Str("target", cfg.ArchiveTarget).Msg("archive target init error")
			exit(1)
		}

		res, err := backupRun(ctx, cfg, mgr, tgt, backup.Options{
			VolumeID:     volumeID,
			SnapshotName: snapName,
		})
		if err != nil {
			log.Error().Err(err).Str("action", "backup").Str("volume", volumeID).Msg("backup failed")
			exit(1)
		}
		log.Info().
			Str("action", "backup").
			Str("volume", volumeID).
			Str("image", res.ImageID).
			Str("target", cfg.ArchiveTarget).
			Str("key", res.Key).
			Int64("bytes", res.Bytes).
			Msg("volume backup OK")

	case "download":
		imageID := pickArgOrEnv(2, "DOWNLOAD_IMAGE_ID", "")
		local := pickArgOrEnv(3, "DOWNLOAD_TARGET", "./image.raw")

		start := time.Now()
		sum, size, err := runDownload(ctx, mgr, imageID, local)
		if err != nil {
			log.Error().Err(err).Str("action", "download").Str("image", imageID).Msg("download failed")
			exit(1)
		}
		log.Info().
			Str("action", "download").
			Str("image", imageID).
			Str("local", local).
			Str("sha256", sum).
			Int64("bytes", size).
			Dur("elapsed_ms", time.Since(start)).
			Msg("download OK")

	case "check":
		if err := mgr.Check(ctx); err != nil {
			log.Error().Err(err).Str("action", "check").Msg("connectivity check failed")
			exit(1)
		}
		log.Info().Str("action", "check").Msg("all services reachable")

	default:
		fmt.Print(usage)
		exit(2)
	}
}

// runDownload streams the image into a local file and reports its checksum.
func runDownload(ctx context.Context, mgr *client.Manager, imageID, local string) (string, int64, error) {
	if strings.TrimSpace(imageID) == "" {
		return "", 0, fmt.Errorf("download: image id is empty (provide DOWNLOAD_IMAGE_ID or CLI arg)")
	}

	src, err := mgr.DownloadImage(ctx, imageID)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(local)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warn().Err(cerr).Str("file", local).Msg("closing downloaded file failed")
		}
	}()

	return util.SHA256Copy(out, src)
}

func pickArgOrEnv(idx int, env string, def string) string {
	if len(os.Args) > idx && os.Args[idx] != "" {
		return os.Args[idx]
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	return def
}

func withSignals(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()
	return ctx
}
