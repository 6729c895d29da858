// Command backfill imports an existing results CSV, and its missing-files
// report when present, into the run history as one completed run.
// Usage: go run ./cmd/backfill <results.csv> [mode]
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"ccdsync/internal/config"
	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return errors.New("usage: backfill <results.csv> [local|download|online]")
	}
	path := os.Args[1]
	mode := domain.ModeLocal
	if len(os.Args) > 2 {
		m, ok := domain.ValidRunModes[os.Args[2]]
		if !ok {
			return fmt.Errorf("%q: %w", os.Args[2], domain.ErrInvalidMode)
		}
		mode = m
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	table, err := csvexport.ReadFile(path)
	if err != nil {
		return err
	}
	missing, err := csvexport.ReadMissingFile(csvexport.MissingName(path))
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	finished := info.ModTime().UTC()
	run := &domain.ComparisonRun{
		ID:           uuid.New(),
		Mode:         mode,
		Status:       domain.RunStatusRunning,
		MissingFiles: len(missing),
		StartedAt:    finished,
	}
	records := table.Records()
	for i := range records {
		records[i].RunID = run.ID
		run.Tally(&records[i])
	}
	run.TotalPairs = len(records)

	runRepo := postgres.NewComparisonRunRepo(db)
	if err := runRepo.Create(ctx, run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	if err := postgres.NewComparisonRecordRepo(db).CreateBatch(ctx, records); err != nil {
		return fmt.Errorf("importing records: %w", err)
	}
	if len(missing) > 0 {
		if err := postgres.NewMissingFileRepo(db).CreateBatch(ctx, run.ID, missing); err != nil {
			return fmt.Errorf("importing missing files: %w", err)
		}
	}

	run.Status = domain.RunStatusCompleted
	run.FinishedAt = &finished
	if err := runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	log.Printf("Backfill complete: run %s with %d records and %d missing files", run.ID, len(records), len(missing))
	return nil
}
