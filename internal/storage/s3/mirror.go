package s3

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

// Layout maps a component code to its path below the mirror prefix.
type Layout func(code string) (string, error)

// MirrorSource implements port.DocumentSource over a bucket prefix holding
// a copy of one corpus.
type MirrorSource struct {
	storage port.ObjectStorage
	bucket  string
	prefix  string
	layout  Layout
}

// NewMirrorSource creates a source reading {prefix}{path} from bucket.
func NewMirrorSource(storage port.ObjectStorage, bucket, prefix string, layout Layout) *MirrorSource {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &MirrorSource{storage: storage, bucket: bucket, prefix: prefix, layout: layout}
}

func (m *MirrorSource) Name() string { return string(domain.SourceS3) }

func (m *MirrorSource) List(ctx context.Context) ([]string, error) {
	keys, err := m.storage.ListKeys(ctx, m.bucket, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("listing s3://%s/%s: %w", m.bucket, m.prefix, err)
	}
	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		rel := strings.TrimPrefix(k, m.prefix)
		if source.IsComponentFile(rel) {
			paths = append(paths, rel)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MirrorSource) PathFor(code string) (string, error) {
	return m.layout(code)
}

func (m *MirrorSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	return m.storage.Download(ctx, m.bucket, m.prefix+strings.TrimPrefix(path, "/"))
}

// Key returns the object key for a relative path.
func (m *MirrorSource) Key(path string) string {
	return m.prefix + strings.TrimPrefix(path, "/")
}
