package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
)

// FallbackSource tries sources in order, skipping those with open circuits.
// All sources in a chain must share the same path layout. It implements
// port.DocumentSource.
type FallbackSource struct {
	sources  []port.DocumentSource
	circuits []*Circuit
}

// NewFallbackSource creates a FallbackSource from an ordered list of sources.
func NewFallbackSource(sources ...port.DocumentSource) *FallbackSource {
	circuits := make([]*Circuit, len(sources))
	for i := range circuits {
		circuits[i] = &Circuit{}
	}
	return &FallbackSource{sources: sources, circuits: circuits}
}

func (f *FallbackSource) Name() string {
	names := make([]string, len(f.sources))
	for i, s := range f.sources {
		names[i] = s.Name()
	}
	return strings.Join(names, "|")
}

// PathFor uses the first source's layout.
func (f *FallbackSource) PathFor(code string) (string, error) {
	if len(f.sources) == 0 {
		return "", domain.ErrDocumentUnavailable
	}
	return f.sources[0].PathFor(code)
}

// List returns the listing of the first source able to enumerate itself.
func (f *FallbackSource) List(ctx context.Context) ([]string, error) {
	for _, s := range f.sources {
		paths, err := s.List(ctx)
		if errors.Is(err, domain.ErrListingUnsupported) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", s.Name(), err)
		}
		return paths, nil
	}
	return nil, domain.ErrListingUnsupported
}

func (f *FallbackSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, s := range f.sources {
		if resetAt, open := f.circuits[i].IsOpen(now); open {
			log.Printf("source.FallbackSource: skipping %s (circuit open until %s)", s.Name(), resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		data, err := s.Fetch(ctx, path)
		if err == nil {
			return data, nil
		}

		log.Printf("source.FallbackSource: %s failed for %s: %v", s.Name(), path, err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			f.circuits[i].Trip(rlErr, now)
			resetAt := now.Add(rlErr.RetryAfter)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all sources rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all sources failed: %w", lastErr)
}
