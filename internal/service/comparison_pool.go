package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ccdsync/internal/cache"
	"ccdsync/internal/comparison"
	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

// modifiedDatePath holds the set-1 modification date inside a document.
const modifiedDatePath = "_chem_comp.pdbx_modified_date"

// PoolConfig holds settings for the comparison pool.
type PoolConfig struct {
	Workers int
}

// ComparisonPool compares file pairs on a fixed number of workers. The
// engine, caches and sources are shared read-only by every worker.
type ComparisonPool struct {
	engine *comparison.Engine
	docs   *cache.DocumentCache
	set1   port.DocumentSource
	set2   port.DocumentSource
	dates  port.CommitDateResolver
	cfg    PoolConfig
}

// NewComparisonPool creates a new ComparisonPool. dates may be nil, in which
// case set-2 dates are left empty.
func NewComparisonPool(
	engine *comparison.Engine,
	docs *cache.DocumentCache,
	set1, set2 port.DocumentSource,
	dates port.CommitDateResolver,
	cfg PoolConfig,
) *ComparisonPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &ComparisonPool{engine: engine, docs: docs, set1: set1, set2: set2, dates: dates, cfg: cfg}
}

// Start feeds pairs to the workers and returns the channel outcomes arrive
// on. The channel is closed once every pair has an outcome or ctx is done.
func (p *ComparisonPool) Start(ctx context.Context, pairs []domain.FilePair) <-chan domain.PairOutcome {
	jobs := make(chan domain.FilePair)
	results := make(chan domain.PairOutcome, p.cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pair := range jobs {
				outcome := p.compare(ctx, pair)
				select {
				case results <- outcome:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, pair := range pairs {
			select {
			case jobs <- pair:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	log.Printf("service.ComparisonPool: started (pairs=%d, workers=%d)", len(pairs), p.cfg.Workers)
	return results
}

// Run compares every pair and returns the outcomes in completion order.
func (p *ComparisonPool) Run(ctx context.Context, pairs []domain.FilePair) []domain.PairOutcome {
	out := make([]domain.PairOutcome, 0, len(pairs))
	for outcome := range p.Start(ctx, pairs) {
		out = append(out, outcome)
	}
	return out
}

func (p *ComparisonPool) compare(ctx context.Context, pair domain.FilePair) domain.PairOutcome {
	outcome := domain.PairOutcome{Pair: pair}

	textA, err := p.set1.Fetch(ctx, pair.A.Path)
	if err != nil {
		outcome.Err = fmt.Errorf("fetching %s from %s: %w", pair.A.Path, p.set1.Name(), err)
		return outcome
	}
	textB, err := p.set2.Fetch(ctx, pair.B.Path)
	if err != nil {
		outcome.Err = fmt.Errorf("fetching %s from %s: %w", pair.B.Path, p.set2.Name(), err)
		return outcome
	}

	docA := p.docs.Parse(textA)
	docB := p.docs.Parse(textB)
	res := p.engine.Compare(docA, docB)
	outcome.Result = &res

	outcome.DateA, _ = docA.Lookup(modifiedDatePath)
	outcome.DateB = p.set2Date(ctx, pair.Code)
	return outcome
}

func (p *ComparisonPool) set2Date(ctx context.Context, code string) string {
	if p.dates == nil {
		return ""
	}
	date, err := p.dates.CommitDate(ctx, source.FileName(code))
	if err != nil {
		if !source.IsRateLimited(err) {
			log.Printf("service.ComparisonPool: commit date for %s: %v", code, err)
		}
		return ""
	}
	return date
}
