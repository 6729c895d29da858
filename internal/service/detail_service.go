package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"ccdsync/internal/cache"
	"ccdsync/internal/comparison"
	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

// checkpointEvery is how many rows are processed between checkpoints.
const checkpointEvery = 100

// LocatingSource is a document source that can find a code under several
// candidate layouts.
type LocatingSource interface {
	port.DocumentSource
	Locator
}

// DetailInput is the DTO for building a detailed differences report.
type DetailInput struct {
	Input  string
	Output string
	Resume bool
}

// DetailResult summarizes one detailed report.
type DetailResult struct {
	Rows            int
	WithDifferences int
	Unlocated       int
	Resumed         int
	Output          string
}

// checkpoint is persisted next to the output so an interrupted report can
// resume.
type checkpoint struct {
	ProcessedIndices []int                         `json:"processed_indices"`
	TotalProcessed   int                           `json:"total_processed"`
	Records          map[int]domain.DetailedRecord `json:"records"`
}

// DetailService explains the differences behind non-identical rows of a
// results file.
type DetailService struct {
	engine  *comparison.Engine
	docs    *cache.DocumentCache
	set1    LocatingSource
	set2    LocatingSource
	workers int
}

// NewDetailService creates a new DetailService over two local sets.
func NewDetailService(engine *comparison.Engine, docs *cache.DocumentCache, set1, set2 LocatingSource, workers int) *DetailService {
	if workers <= 0 {
		workers = 1
	}
	return &DetailService{engine: engine, docs: docs, set1: set1, set2: set2, workers: workers}
}

// Build writes the detailed report for input.Input to input.Output.
// Identical rows pass through unchanged. The checkpoint is removed once the
// report is complete.
func (s *DetailService) Build(ctx context.Context, input *DetailInput) (*DetailResult, error) {
	table, err := csvexport.ReadFile(input.Input)
	if err != nil {
		return nil, err
	}
	records := table.Records()
	res := &DetailResult{Rows: len(records), Output: input.Output}

	cpPath := csvexport.CheckpointName(input.Output)
	cp := &checkpoint{Records: make(map[int]domain.DetailedRecord)}
	if input.Resume {
		loaded, err := loadCheckpoint(cpPath)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			cp = loaded
			res.Resumed = len(cp.Records)
			log.Printf("service.DetailService: resuming, %d rows already processed", res.Resumed)
		}
	}

	var pending []int
	for i := range records {
		if records[i].HasDifferences() {
			res.WithDifferences++
		}
		if _, done := cp.Records[i]; !done {
			pending = append(pending, i)
		}
	}
	log.Printf("service.DetailService: %d rows, %d with differences, %d to process",
		res.Rows, res.WithDifferences, len(pending))

	for start := 0; start < len(pending); start += checkpointEvery {
		chunk := pending[start:min(start+checkpointEvery, len(pending))]
		detailed := make([]domain.DetailedRecord, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for j, idx := range chunk {
			g.Go(func() error {
				detailed[j] = s.detail(gctx, records[idx])
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("building details: %w", err)
		}

		for j, idx := range chunk {
			cp.Records[idx] = detailed[j]
		}
		if err := saveCheckpoint(cpPath, cp); err != nil {
			log.Printf("service.DetailService: %v", err)
		}
	}

	out := make([]domain.DetailedRecord, len(records))
	for i := range records {
		out[i] = cp.Records[i]
		if out[i].Note != "" {
			res.Unlocated++
		}
	}
	if err := writeDetailedFile(input.Output, out); err != nil {
		return nil, err
	}
	if err := os.Remove(cpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("service.DetailService: removing checkpoint: %v", err)
	}
	log.Printf("service.DetailService: detailed report written to %s", input.Output)
	return res, nil
}

// detail returns the differences of one row. Rows without differences are
// returned as they are.
func (s *DetailService) detail(ctx context.Context, rec domain.ComparisonRecord) domain.DetailedRecord {
	out := domain.DetailedRecord{Record: rec}
	if !rec.HasDifferences() {
		return out
	}

	pathA, okA := s.set1.Locate(source.Set1Candidates(rec.CCDCode))
	pathB, okB := s.set2.Locate(source.Set2Candidates(rec.CCDCode))
	switch {
	case !okA && !okB:
		out.Note = "file not found in either set"
		return out
	case !okA:
		out.Note = "file not found in set 1"
		return out
	case !okB:
		out.Note = "file not found in set 2"
		return out
	}

	textA, err := s.set1.Fetch(ctx, pathA)
	if err != nil {
		out.Note = err.Error()
		return out
	}
	textB, err := s.set2.Fetch(ctx, pathB)
	if err != nil {
		out.Note = err.Error()
		return out
	}

	var units []domain.ComparisonUnit
	for _, u := range domain.AllUnits {
		if rec.Verdict(u) == domain.VerdictDifferent {
			units = append(units, u)
		}
	}
	out.Differences = s.engine.Diff(s.docs.Parse(textA), s.docs.Parse(textB), units...)
	return out
}

func loadCheckpoint(path string) (*checkpoint, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", path, err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", path, err)
	}
	if cp.Records == nil {
		cp.Records = make(map[int]domain.DetailedRecord)
	}
	return &cp, nil
}

func saveCheckpoint(path string, cp *checkpoint) error {
	cp.ProcessedIndices = cp.ProcessedIndices[:0]
	for idx := range cp.Records {
		cp.ProcessedIndices = append(cp.ProcessedIndices, idx)
	}
	sort.Ints(cp.ProcessedIndices)
	cp.TotalProcessed = len(cp.ProcessedIndices)

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	return nil
}

func writeDetailedFile(path string, recs []domain.DetailedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := csvexport.WriteDetailed(f, recs); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
