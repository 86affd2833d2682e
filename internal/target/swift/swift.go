// Package swift archives image payloads into the same cloud's object store,
// one object per stream chunk plus a JSON manifest. Uploads go through the
// osapi.ObjectStorage capability, so dry-run mode suppresses them
// transparently.
package swift

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chapsvision-dev/openstack-volume-backup/internal/osapi"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/retry"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/stream"
	"github.com/Chapsvision-dev/openstack-volume-backup/internal/target"
)

// Manifest is written as "<key>/manifest" after all segments are stored.
type Manifest struct {
	Key       string    `json:"key"`
	Bytes     int64     `json:"bytes"`
	ChunkSize int       `json:"chunk_size"`
	Segments  int       `json:"segments"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentName returns the object name of segment i under key.
func SegmentName(key string, i int) string {
	return fmt.Sprintf("%s/segments/%08d", key, i)
}

// ManifestName returns the manifest object name under key.
func ManifestName(key string) string {
	return key + "/manifest"
}

type Target struct {
	object    func(context.Context) (osapi.ObjectStorage, error)
	container string
	ro        retry.Options
}

func (t *Target) Name() string { return "swift" }

// Store uploads src as fixed-size segments followed by a manifest. The
// container put is unconditional: Swift's PUT container is idempotent.
func (t *Target) Store(ctx context.Context, key string, src *stream.Resized) error {
	conn, err := t.object(ctx)
	if err != nil {
		return err
	}
	if err := conn.PutContainer(ctx, t.container); err != nil {
		return fmt.Errorf("ensure container %q: %w", t.container, err)
	}

	start := time.Now()
	h := sha256.New()
	segments := 0
	var written int64

	for {
		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read image stream: %w", err)
		}
		_, _ = h.Write(chunk)
		name := SegmentName(key, segments)

		uploadOnce := func(ctx context.Context) error {
			return conn.PutObject(ctx, t.container, name, bytes.NewReader(chunk))
		}
		if err := retry.Do(ctx, t.ro, nil, uploadOnce); err != nil {
			return fmt.Errorf("upload segment %s: %w", name, err)
		}

		written += int64(len(chunk))
		segments++
		log.Debug().Str("action", "swift_segment").Str("container", t.container).
			Str("object", name).Int("bytes", len(chunk)).Msg("segment stored")
	}

	man := Manifest{
		Key:       key,
		Bytes:     written,
		ChunkSize: src.ChunkSize(),
		Segments:  segments,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(man)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	putManifest := func(ctx context.Context) error {
		return conn.PutObject(ctx, t.container, ManifestName(key), bytes.NewReader(payload))
	}
	if err := retry.Do(ctx, t.ro, nil, putManifest); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}

	log.Info().Str("action", "swift_store").Str("container", t.container).Str("key", key).
		Int("segments", segments).Int64("bytes", written).Str("sha256", man.SHA256).
		Dur("elapsed_ms", time.Since(start)).Msg("archive OK")
	return nil
}

func init() {
	target.Register("swift", func(deps target.Deps) (target.Target, error) {
		if deps.Object == nil {
			return nil, fmt.Errorf("swift: object-storage accessor is required")
		}
		return &Target{
			object:    deps.Object,
			container: deps.Cfg.ArchiveContainer,
			ro:        deps.Cfg.RetryOptions(),
		}, nil
	})
}
