package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ccdsync/internal/cache"
	"ccdsync/internal/comparison"
	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
	"ccdsync/internal/xlsxexport"
)

// progressEvery is how many outcomes pass between progress log lines.
const progressEvery = 500

// Preparer readies a mode's sources before pairs are discovered, e.g. by
// downloading both sets.
type Preparer interface {
	Prepare(ctx context.Context, codes []string) error
}

// Sources bundles the corpora one run mode reads from. Dates and Prepare are
// optional.
type Sources struct {
	Set1    port.DocumentSource
	Set2    port.DocumentSource
	Dates   port.CommitDateResolver
	Prepare Preparer
}

// CompareInput is the DTO for starting a comparison run.
type CompareInput struct {
	Mode  domain.RunMode
	Codes []string
	Limit int
	// Output is the results CSV path. Empty skips writing report files.
	Output       string
	XLSX         bool
	DownloadOnly bool
}

// ComparisonConfig holds run settings.
type ComparisonConfig struct {
	Workers       int
	Bucket        string
	ReportPrefix  string
	PresignExpiry int64
}

// ComparisonService defines the comparison run contract.
type ComparisonService interface {
	Compare(ctx context.Context, input *CompareInput) (*domain.RunReport, error)
	GetRun(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error)
	ListRuns(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error)
	ListRecords(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error)
	ListMissing(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error)
	AnalyzeRun(ctx context.Context, runID uuid.UUID) (*domain.Analysis, error)
	ExportRun(ctx context.Context, runID uuid.UUID) (*domain.ComparisonRun, []domain.ComparisonRecord, error)
}

type comparisonService struct {
	runRepo     port.ComparisonRunRepository
	recordRepo  port.ComparisonRecordRepository
	missingRepo port.MissingFileRepository
	engine      *comparison.Engine
	docs        *cache.DocumentCache
	sources     map[domain.RunMode]Sources
	storage     port.ObjectStorage
	email       port.EmailSender
	cfg         ComparisonConfig
}

// NewComparisonService creates a new ComparisonService implementation. The
// repositories, storage and email sender may be nil; runs are then kept in
// memory only, reports stay local and no summary is sent.
func NewComparisonService(
	runRepo port.ComparisonRunRepository,
	recordRepo port.ComparisonRecordRepository,
	missingRepo port.MissingFileRepository,
	engine *comparison.Engine,
	docs *cache.DocumentCache,
	sources map[domain.RunMode]Sources,
	storage port.ObjectStorage,
	emailSender port.EmailSender,
	cfg ComparisonConfig,
) ComparisonService {
	return &comparisonService{
		runRepo:     runRepo,
		recordRepo:  recordRepo,
		missingRepo: missingRepo,
		engine:      engine,
		docs:        docs,
		sources:     sources,
		storage:     storage,
		email:       emailSender,
		cfg:         cfg,
	}
}

func (s *comparisonService) Compare(ctx context.Context, input *CompareInput) (*domain.RunReport, error) {
	src, ok := s.sources[input.Mode]
	if !ok {
		return nil, fmt.Errorf("%q: %w", input.Mode, domain.ErrInvalidMode)
	}

	if src.Prepare != nil {
		if err := src.Prepare.Prepare(ctx, input.Codes); err != nil {
			return nil, fmt.Errorf("preparing %s mode: %w", input.Mode, err)
		}
		if input.DownloadOnly {
			log.Printf("service.ComparisonService.Compare: download finished, comparison skipped")
			return &domain.RunReport{Run: domain.ComparisonRun{Mode: input.Mode, Status: domain.RunStatusCompleted}}, nil
		}
	}

	pairs, err := s.discover(ctx, src, input)
	if err != nil {
		return nil, err
	}

	run := &domain.ComparisonRun{
		ID:           uuid.New(),
		Mode:         input.Mode,
		Status:       domain.RunStatusRunning,
		TotalPairs:   len(pairs.Pairs),
		MissingFiles: len(pairs.Missing),
		StartedAt:    time.Now().UTC(),
	}
	if s.runRepo != nil {
		if err := s.runRepo.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("creating run: %w", err)
		}
	}
	log.Printf("service.ComparisonService.Compare: run %s mode=%s pairs=%d missing=%d",
		run.ID, run.Mode, run.TotalPairs, run.MissingFiles)

	dates := prefetchDates(ctx, src.Dates, pairs.Pairs)

	pool := NewComparisonPool(s.engine, s.docs, src.Set1, src.Set2, dates, PoolConfig{Workers: s.cfg.Workers})
	records := make([]domain.ComparisonRecord, 0, len(pairs.Pairs))
	for outcome := range pool.Start(ctx, pairs.Pairs) {
		if outcome.Err != nil {
			log.Printf("service.ComparisonService.Compare: %s: %v", outcome.Pair.Code, outcome.Err)
		}
		rec := outcome.Record(run.ID)
		run.Tally(&rec)
		records = append(records, rec)
		if n := len(records); n%progressEvery == 0 {
			log.Printf("service.ComparisonService.Compare: compared %d/%d", n, run.TotalPairs)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CCDCode < records[j].CCDCode })

	report := &domain.RunReport{Records: records, Missing: pairs.Missing}
	if err := ctx.Err(); err != nil {
		s.finish(context.WithoutCancel(ctx), run, domain.RunStatusFailed)
		report.Run = *run
		return report, fmt.Errorf("run %s interrupted: %w", run.ID, err)
	}

	if err := s.persist(ctx, run, report); err != nil {
		s.finish(ctx, run, domain.RunStatusFailed)
		return nil, err
	}

	location, err := s.writeReports(ctx, run, report, input)
	if err != nil {
		s.finish(ctx, run, domain.RunStatusFailed)
		return nil, err
	}

	s.finish(ctx, run, domain.RunStatusCompleted)
	report.Run = *run
	s.notify(ctx, run, location)
	return report, nil
}

func (s *comparisonService) discover(ctx context.Context, src Sources, input *CompareInput) (PairSet, error) {
	if len(input.Codes) > 0 {
		ps, err := PairCodes(src.Set1, src.Set2, input.Codes)
		if err != nil {
			return PairSet{}, err
		}
		return ps.FilterCodes(nil, input.Limit), nil
	}
	ps, err := DiscoverPairs(ctx, src.Set1, src.Set2)
	if errors.Is(err, domain.ErrListingUnsupported) {
		return PairSet{}, fmt.Errorf("%s mode cannot enumerate its sources: %w", input.Mode, domain.ErrNoCodes)
	}
	if err != nil {
		return PairSet{}, err
	}
	return ps.FilterCodes(nil, input.Limit), nil
}

// prefetchDates resolves the set-2 dates of every pair in batches. The
// returned resolver only answers from that result: once a batch has been
// attempted, workers make no per-file calls.
func prefetchDates(ctx context.Context, dates port.CommitDateResolver, pairs []domain.FilePair) port.CommitDateResolver {
	if dates == nil {
		return nil
	}
	if len(pairs) == 0 {
		return prefetchedDates(nil)
	}
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = source.FileName(p.Code)
	}
	start := time.Now()
	found, err := dates.CommitDates(ctx, names)
	if err != nil {
		log.Printf("service.prefetchDates: %v", err)
	}
	log.Printf("service.prefetchDates: %d/%d dates known (%s)", len(found), len(names), time.Since(start).Round(time.Millisecond))
	return prefetchedDates(found)
}

// prefetchedDates is a port.CommitDateResolver over a finished batch.
type prefetchedDates map[string]string

func (p prefetchedDates) CommitDates(_ context.Context, fileNames []string) (map[string]string, error) {
	out := make(map[string]string, len(fileNames))
	for _, name := range fileNames {
		if date, ok := p[name]; ok {
			out[name] = date
		}
	}
	return out, nil
}

func (p prefetchedDates) CommitDate(_ context.Context, fileName string) (string, error) {
	return p[fileName], nil
}

func (s *comparisonService) persist(ctx context.Context, run *domain.ComparisonRun, report *domain.RunReport) error {
	if s.recordRepo != nil {
		if err := s.recordRepo.CreateBatch(ctx, report.Records); err != nil {
			return fmt.Errorf("storing records of run %s: %w", run.ID, err)
		}
	}
	if s.missingRepo != nil && len(report.Missing) > 0 {
		if err := s.missingRepo.CreateBatch(ctx, run.ID, report.Missing); err != nil {
			return fmt.Errorf("storing missing files of run %s: %w", run.ID, err)
		}
	}
	return nil
}

// writeReports writes the result files and uploads the results CSV. It
// returns where the report can be found.
func (s *comparisonService) writeReports(ctx context.Context, run *domain.ComparisonRun, report *domain.RunReport, input *CompareInput) (string, error) {
	if input.Output == "" {
		return "", nil
	}
	if dir := filepath.Dir(input.Output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	var buf bytes.Buffer
	w := csvexport.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		return "", fmt.Errorf("writing results header: %w", err)
	}
	if err := w.WriteRecords(report.Records); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("writing results: %w", err)
	}
	if err := os.WriteFile(input.Output, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", input.Output, err)
	}
	log.Printf("service.ComparisonService: results written to %s", input.Output)

	if len(report.Missing) > 0 {
		if err := writeMissingFile(csvexport.MissingName(input.Output), report.Missing); err != nil {
			return "", err
		}
	}

	if input.XLSX {
		analysis := Analyze(report.Records)
		path := strings.TrimSuffix(input.Output, filepath.Ext(input.Output)) + ".xlsx"
		rep := xlsxexport.Report{Records: report.Records, Missing: report.Missing, Analysis: &analysis}
		if err := xlsxexport.WriteFile(path, rep); err != nil {
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("service.ComparisonService: workbook written to %s", path)
	}

	location := input.Output
	if s.storage != nil && s.cfg.Bucket != "" {
		uploaded, err := s.upload(ctx, run, filepath.Base(input.Output), buf.Bytes())
		if err != nil {
			log.Printf("service.ComparisonService: upload of run %s failed: %v", run.ID, err)
		} else {
			location = uploaded
		}
	}
	return location, nil
}

func writeMissingFile(path string, missing []domain.MissingFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := csvexport.WriteMissing(f, missing); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("service.ComparisonService: %d missing files written to %s", len(missing), path)
	return f.Close()
}

func (s *comparisonService) upload(ctx context.Context, run *domain.ComparisonRun, name string, data []byte) (string, error) {
	key := s.cfg.ReportPrefix + run.ID.String() + "/" + name
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: "text/csv",
		Size:        int64(len(data)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	if s.cfg.PresignExpiry > 0 {
		url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
		if err == nil {
			return url, nil
		}
		log.Printf("service.ComparisonService: presigning %s: %v", key, err)
	}
	return out.Location, nil
}

func (s *comparisonService) finish(ctx context.Context, run *domain.ComparisonRun, status domain.RunStatus) {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	if s.runRepo == nil {
		return
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		log.Printf("service.ComparisonService: updating run %s: %v", run.ID, err)
	}
}

func (s *comparisonService) notify(ctx context.Context, run *domain.ComparisonRun, location string) {
	if s.email == nil {
		return
	}
	if err := s.email.SendRunSummary(ctx, run, location); err != nil {
		log.Printf("service.ComparisonService: sending summary of run %s: %v", run.ID, err)
	}
}

func (s *comparisonService) GetRun(ctx context.Context, id uuid.UUID) (*domain.ComparisonRun, error) {
	if s.runRepo == nil {
		return nil, domain.ErrDatabaseDisabled
	}
	return s.runRepo.GetByID(ctx, id)
}

func (s *comparisonService) ListRuns(ctx context.Context, offset, limit int) ([]domain.ComparisonRun, int, error) {
	if s.runRepo == nil {
		return nil, 0, domain.ErrDatabaseDisabled
	}
	return s.runRepo.List(ctx, offset, limit)
}

func (s *comparisonService) ListRecords(ctx context.Context, runID uuid.UUID, filter domain.RecordFilter) ([]domain.ComparisonRecord, int, error) {
	if s.runRepo == nil || s.recordRepo == nil {
		return nil, 0, domain.ErrDatabaseDisabled
	}
	if _, err := s.runRepo.GetByID(ctx, runID); err != nil {
		return nil, 0, err
	}
	return s.recordRepo.ListByRun(ctx, runID, filter)
}

func (s *comparisonService) ListMissing(ctx context.Context, runID uuid.UUID) ([]domain.MissingFile, error) {
	if s.runRepo == nil || s.missingRepo == nil {
		return nil, domain.ErrDatabaseDisabled
	}
	if _, err := s.runRepo.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.missingRepo.ListByRun(ctx, runID)
}

func (s *comparisonService) AnalyzeRun(ctx context.Context, runID uuid.UUID) (*domain.Analysis, error) {
	if s.runRepo == nil || s.recordRepo == nil {
		return nil, domain.ErrDatabaseDisabled
	}
	if _, err := s.runRepo.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	records, err := s.recordRepo.ListAllByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading records of run %s: %w", runID, err)
	}
	a := Analyze(records)
	return &a, nil
}

// ExportRun returns a run with every record it produced, in code order.
func (s *comparisonService) ExportRun(ctx context.Context, runID uuid.UUID) (*domain.ComparisonRun, []domain.ComparisonRecord, error) {
	if s.runRepo == nil || s.recordRepo == nil {
		return nil, nil, domain.ErrDatabaseDisabled
	}
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.recordRepo.ListAllByRun(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading records of run %s: %w", runID, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CCDCode < records[j].CCDCode })
	return run, records, nil
}
