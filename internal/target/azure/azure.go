// Package azure archives image payloads to Azure Blob Storage as an offsite
// target. Uploads stream block by block; the blob is validated by listing
// afterwards since a one-pass stream cannot be re-read for comparison.
package azure

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/retry"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/target"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/util"
)

type Target struct {
	client    *azblob.Client
	container string
	ro        retry.Options
	dryRun    bool
}

func (t *Target) Name() string { return "azure" }

// Store uploads the stream as a block blob under key. In dry-run mode the
// stream is drained and nothing leaves the process; the object-storage
// interception wrapper cannot cover an offsite target, so the check lives
// here.
func (t *Target) Store(ctx context.Context, key string, src *stream.Resized) error {
	key = normalizeKey(key)

	if t.dryRun {
		n, err := io.Copy(io.Discard, src)
		if err != nil {
			return err
		}
		log.Info().Str("action", "azure_store").Str("container", t.container).Str("key", key).
			Int64("bytes", n).Msg("dry run, upload suppressed")
		return nil
	}

	upStart := time.Now()
	hr := util.NewHashReader(src)
	_, err := t.client.UploadStream(ctx, t.container, key, hr, &azblob.UploadStreamOptions{
		BlockSize: int64(src.ChunkSize()),
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	log.Info().Str("action", "azure_store").Str("container", t.container).Str("key", key).
		Int64("bytes", hr.Size()).Str("sha256", hr.Sum()).
		Dur("elapsed_ms", time.Since(upStart)).Msg("upload OK")

	// Post-upload validation.
	size := hr.Size()
	listStart := time.Now()
	attempt := 0
	validateOnce := func(ctx context.Context) error {
		attempt++
		found, remoteSize, err := t.findBlobSize(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("action", "azure_validate").Str("container", t.container).
				Str("key", key).Int("attempt", attempt).Msg("attempt failed")
			return err
		}
		if !found {
			return fmt.Errorf("uploaded blob not found at %q", key)
		}
		if remoteSize != size {
			return fmt.Errorf("size mismatch: local=%d, remote=%d", size, remoteSize)
		}
		return nil
	}
	if err := retry.Do(ctx, t.ro, t.isRetryable, validateOnce); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	log.Debug().Str("action", "azure_validate").Str("container", t.container).Str("key", key).
		Int("attempts", attempt).Dur("elapsed_ms", time.Since(listStart)).Msg("validation OK (size)")
	return nil
}

func normalizeKey(k string) string {
	return strings.TrimPrefix(k, "/")
}

func init() {
	target.Register("azure", func(deps target.Deps) (target.Target, error) {
		client, err := newClientFromConfig(deps.Cfg)
		if err != nil {
			return nil, err
		}
		return &Target{
			client:    client,
			container: deps.Cfg.Azure.Container,
			ro:        deps.Cfg.RetryOptions(),
			dryRun:    deps.Cfg.DryRun,
		}, nil
	})
}
