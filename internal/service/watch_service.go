package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

const defaultDebounce = 500 * time.Millisecond

// WatchService re-compares a code whenever its file changes in either set.
type WatchService struct {
	watcher  port.FileWatcher
	pool     *ComparisonPool
	set1     LocatingSource
	set2     LocatingSource
	debounce time.Duration
}

// NewWatchService creates a new WatchService. Changes arriving within
// debounce of each other are compared together.
func NewWatchService(watcher port.FileWatcher, pool *ComparisonPool, set1, set2 LocatingSource, debounce time.Duration) *WatchService {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &WatchService{watcher: watcher, pool: pool, set1: set1, set2: set2, debounce: debounce}
}

// Run watches dirs until ctx is done and hands every new record to handle.
func (s *WatchService) Run(ctx context.Context, handle func(domain.ComparisonRecord), dirs ...string) error {
	events, err := s.watcher.Watch(ctx, dirs...)
	if err != nil {
		return err
	}
	log.Printf("service.WatchService: watching %s", strings.Join(dirs, ", "))

	pending := make(map[string]struct{})
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation == port.FileDeleted {
				log.Printf("service.WatchService: %s removed", ev.Path)
				continue
			}
			pending[strings.ToUpper(source.CodeFromPath(ev.Path))] = struct{}{}
			timer.Reset(s.debounce)
		case <-timer.C:
			s.compare(ctx, drain(pending), handle)
		}
	}
}

func (s *WatchService) compare(ctx context.Context, codes []string, handle func(domain.ComparisonRecord)) {
	pairs, err := PairCodes(s.set1, s.set2, codes)
	if err != nil {
		log.Printf("service.WatchService: %v", err)
		return
	}
	for _, m := range pairs.Missing {
		log.Printf("service.WatchService: %s missing from set1=%t set2=%t", m.CCDCode, m.MissingFromSet1, m.MissingFromSet2)
	}
	for _, outcome := range s.pool.Run(ctx, pairs.Pairs) {
		if outcome.Err != nil {
			log.Printf("service.WatchService: %s: %v", outcome.Pair.Code, outcome.Err)
		}
		handle(outcome.Record(uuid.Nil))
	}
}

func drain(pending map[string]struct{}) []string {
	codes := make([]string, 0, len(pending))
	for c := range pending {
		codes = append(codes, c)
		delete(pending, c)
	}
	sort.Strings(codes)
	return codes
}
