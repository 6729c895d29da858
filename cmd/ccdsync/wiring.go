package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"

	"ccdsync/internal/cache"
	"ccdsync/internal/comparison"
	"ccdsync/internal/config"
	"ccdsync/internal/correlation"
	"ccdsync/internal/domain"
	"ccdsync/internal/email/noop"
	"ccdsync/internal/email/ses"
	"ccdsync/internal/port"
	"ccdsync/internal/repository/postgres"
	"ccdsync/internal/service"
	"ccdsync/internal/source"
	"ccdsync/internal/source/github"
	"ccdsync/internal/source/local"
	"ccdsync/internal/source/wwpdb"
	s3storage "ccdsync/internal/storage/s3"
)

// app holds the shared dependencies of one command invocation.
type app struct {
	cfg     *config.Config
	engine  *comparison.Engine
	docs    *cache.DocumentCache
	dates   cache.DateStore
	github  *github.Client
	storage port.ObjectStorage
	db      *sqlx.DB
}

// newApp builds the dependencies every comparing command needs.
func newApp(cfg *config.Config) (*app, error) {
	if cfg.Compare.CorrelationTable == "" {
		return nil, fmt.Errorf("no correlation table configured (--table or CCDSYNC_COMPARE_CORRELATION_TABLE): %w", domain.ErrInvalidCorrelationTable)
	}
	table, err := correlation.Load(cfg.Compare.CorrelationTable, correlation.Columns{
		A:        cfg.Compare.ColumnA,
		B:        cfg.Compare.ColumnB,
		SameName: cfg.Compare.ColumnSameName,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("ccdsync: %d correlation entries loaded from %s", table.Len(), cfg.Compare.CorrelationTable)

	dates, err := cache.NewDateStore(cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("opening date cache: %w", err)
	}

	a := &app{
		cfg:    cfg,
		engine: comparison.NewEngine(table),
		docs:   cache.NewDocumentCache(cfg.Cache.DocumentEntries),
		dates:  dates,
		github: github.NewClient(&cfg.Sources, cfg.Compare.DateBatchSize),
	}
	if a.storage, err = openStorage(cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the date cache and the database.
func (a *app) Close() {
	if a.dates != nil {
		if err := a.dates.Close(); err != nil {
			log.Printf("ccdsync: closing date cache: %v", err)
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func openStorage(cfg *config.Config) (port.ObjectStorage, error) {
	if !cfg.S3.Enabled {
		return nil, nil
	}
	storage, err := s3storage.NewStore(context.Background(), &cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}
	return storage, nil
}

// resolver returns the cached set-2 commit-date resolver.
func (a *app) resolver() port.CommitDateResolver {
	return source.NewCachedResolver(a.github, a.dates, a.github.Repo())
}

// localSets returns the two local directories as sources.
func localSets(cfg *config.Config) (*local.Source, *local.Source) {
	return local.NewSource("set1", cfg.Compare.Set1Dir, local.ArchiveLayout),
		local.NewSource("set2", cfg.Compare.Set2Dir, local.MonomerLayout)
}

func (a *app) localSets() (*local.Source, *local.Source) {
	return localSets(a.cfg)
}

// onlineSets returns the remote sources, preferring the S3 mirror when one
// is configured.
func (a *app) onlineSets() (port.DocumentSource, port.DocumentSource) {
	set1 := port.DocumentSource(wwpdb.NewSource(&a.cfg.Sources))
	set2 := port.DocumentSource(a.github)
	if strings.EqualFold(a.cfg.Sources.Mirror, "s3") && a.storage != nil {
		bucket := a.cfg.S3.Bucket
		set1 = source.NewFallbackSource(s3storage.NewMirrorSource(a.storage, bucket, a.cfg.S3.Set1Prefix, source.WWPDBPath), set1)
		set2 = source.NewFallbackSource(s3storage.NewMirrorSource(a.storage, bucket, a.cfg.S3.Set2Prefix, local.MonomerLayout), set2)
	}
	return set1, set2
}

// downloadService mirrors both sets into the local directories.
func (a *app) downloadService(archiveDir string) *service.DownloadService {
	return service.NewDownloadService(wwpdb.NewDownloader(&a.cfg.Sources), a.github, service.DownloadConfig{
		ArchiveDir: archiveDir,
		Set1Dir:    a.cfg.Compare.Set1Dir,
		Set2Dir:    a.cfg.Compare.Set2Dir,
		Workers:    a.cfg.Compare.Workers,
	})
}

// sources maps every run mode to its corpora. dates may be nil.
func (a *app) sources(dates port.CommitDateResolver, archiveDir string) map[domain.RunMode]service.Sources {
	set1, set2 := a.localSets()
	online1, online2 := a.onlineSets()
	return map[domain.RunMode]service.Sources{
		domain.ModeLocal:    {Set1: set1, Set2: set2, Dates: dates},
		domain.ModeDownload: {Set1: set1, Set2: set2, Dates: dates, Prepare: a.downloadService(archiveDir)},
		domain.ModeOnline:   {Set1: online1, Set2: online2, Dates: dates},
	}
}

// comparisonService wires the run service, with persistence when the
// database is enabled.
func (a *app) comparisonService(dates port.CommitDateResolver, archiveDir string) (service.ComparisonService, error) {
	var (
		runRepo     port.ComparisonRunRepository
		recordRepo  port.ComparisonRecordRepository
		missingRepo port.MissingFileRepository
	)
	db, err := postgres.Open(context.Background(), &a.cfg.DB)
	switch {
	case errors.Is(err, domain.ErrDatabaseDisabled):
		log.Printf("ccdsync: database disabled, runs are not stored")
	case err != nil:
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	default:
		a.db = db
		runRepo = postgres.NewComparisonRunRepo(db)
		recordRepo = postgres.NewComparisonRecordRepo(db)
		missingRepo = postgres.NewMissingFileRepo(db)
	}

	sender, err := newEmailSender(&a.cfg.Email)
	if err != nil {
		return nil, err
	}

	return service.NewComparisonService(
		runRepo, recordRepo, missingRepo,
		a.engine, a.docs, a.sources(dates, archiveDir),
		a.storage, sender,
		service.ComparisonConfig{
			Workers:       a.cfg.Compare.Workers,
			Bucket:        a.bucket(),
			ReportPrefix:  a.cfg.S3.ReportPrefix,
			PresignExpiry: a.cfg.S3.PresignExpiry,
		},
	), nil
}

func (a *app) bucket() string {
	if a.storage == nil {
		return ""
	}
	return a.cfg.S3.Bucket
}

func newEmailSender(cfg *config.EmailConfig) (port.EmailSender, error) {
	if !strings.EqualFold(cfg.Provider, "ses") {
		return noop.NewNoopSender(), nil
	}
	sender, err := ses.NewSender(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
	}
	return sender, nil
}
