package source

import (
	"context"
	"fmt"
	"log"
	"time"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
)

// CommitDateLayout is the rendering of every resolved modification date.
const CommitDateLayout = domain.DateLayout

// FormatCommitDate converts an RFC 3339 timestamp into YYYY-MM-DD. Values
// that do not parse are returned empty.
func FormatCommitDate(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(CommitDateLayout)
}

// CachedResolver puts a DateCache in front of a CommitDateResolver. Misses
// from single-file lookups are remembered; rate-limit failures are not.
type CachedResolver struct {
	resolver port.CommitDateResolver
	cache    port.DateCache
	prefix   string
}

// NewCachedResolver wraps resolver. prefix namespaces the cache keys, so one
// cache can serve several repositories.
func NewCachedResolver(resolver port.CommitDateResolver, cache port.DateCache, prefix string) *CachedResolver {
	return &CachedResolver{resolver: resolver, cache: cache, prefix: prefix}
}

func (c *CachedResolver) key(fileName string) string {
	return c.prefix + ":" + fileName
}

// Cached returns the remembered date without any remote call.
func (c *CachedResolver) Cached(ctx context.Context, fileName string) (string, bool) {
	date, found, err := c.cache.Get(ctx, c.key(fileName))
	if err != nil {
		log.Printf("source.CachedResolver: cache read for %s failed: %v", fileName, err)
		return "", false
	}
	return date, found
}

func (c *CachedResolver) CommitDate(ctx context.Context, fileName string) (string, error) {
	if date, found := c.Cached(ctx, fileName); found {
		return date, nil
	}
	date, err := c.resolver.CommitDate(ctx, fileName)
	if err != nil {
		return "", err
	}
	c.put(ctx, fileName, date)
	return date, nil
}

// CommitDates resolves the files missing from the cache in one batch and
// returns the known dates for all of them.
func (c *CachedResolver) CommitDates(ctx context.Context, fileNames []string) (map[string]string, error) {
	out := make(map[string]string, len(fileNames))
	var pending []string
	for _, name := range fileNames {
		date, found := c.Cached(ctx, name)
		switch {
		case found && date != "":
			out[name] = date
		case !found:
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	fetched, err := c.resolver.CommitDates(ctx, pending)
	for name, date := range fetched {
		if date == "" {
			continue
		}
		out[name] = date
		c.put(ctx, name, date)
	}
	if err != nil {
		return out, fmt.Errorf("resolving %d commit dates: %w", len(pending), err)
	}
	return out, nil
}

func (c *CachedResolver) put(ctx context.Context, fileName, date string) {
	if err := c.cache.Put(ctx, c.key(fileName), date); err != nil {
		log.Printf("source.CachedResolver: cache write for %s failed: %v", fileName, err)
	}
}
