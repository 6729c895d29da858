package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/port"
	"ccdsync/internal/source"
)

const (
	defaultDateBatch = 50
	// individualSample is how many single-file calls are tried before
	// committing to the individual fallback.
	individualSample = 10
	// individualThreshold is the share of batch misses above which the
	// individual fallback runs.
	individualThreshold = 0.1
)

// RefetchResult summarizes one refetch pass.
type RefetchResult struct {
	Rows       int
	Requested  int
	Fetched    int
	Updated    int
	Unresolved int
	Output     string
}

// RefetchService re-resolves set-2 dates in an existing results file.
type RefetchService struct {
	resolver  port.CommitDateResolver
	batchSize int
	now       func() time.Time
}

// NewRefetchService creates a new RefetchService. resolver should not
// remember misses, so that earlier failures are retried.
func NewRefetchService(resolver port.CommitDateResolver, batchSize int) *RefetchService {
	if batchSize <= 0 {
		batchSize = defaultDateBatch
	}
	return &RefetchService{resolver: resolver, batchSize: batchSize, now: time.Now}
}

// RefetchFile reads the results at input, refetches dates and writes the
// table to output. An empty output derives {stem}_refetched_{timestamp}.
func (s *RefetchService) RefetchFile(ctx context.Context, input, output string) (*RefetchResult, error) {
	table, err := csvexport.ReadFile(input)
	if err != nil {
		return nil, err
	}
	res, err := s.Refetch(ctx, table)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = csvexport.RefetchedName(input, s.now())
	}
	if err := table.WriteFile(output); err != nil {
		return nil, err
	}
	res.Output = output
	log.Printf("service.RefetchService: %d of %d requested dates updated, written to %s", res.Updated, res.Requested, output)
	return res, nil
}

// Refetch updates the set-2 date of every row whose date is empty or today.
// Rows keep their date when no new one is found.
func (s *RefetchService) Refetch(ctx context.Context, table *csvexport.Table) (*RefetchResult, error) {
	if !table.HasColumn(csvexport.ColCCP4Date) {
		table.Header = append(table.Header, csvexport.ColCCP4Date)
	}
	today := s.now().Format(domain.DateLayout)

	rowsByName := make(map[string][]map[string]string)
	var names []string
	for _, row := range table.Rows {
		code := strings.TrimSpace(row[csvexport.ColCode])
		if code == "" {
			continue
		}
		current := strings.TrimSpace(row[csvexport.ColCCP4Date])
		if current != "" && current != today {
			continue
		}
		name := source.FileName(code)
		if _, seen := rowsByName[name]; !seen {
			names = append(names, name)
		}
		rowsByName[name] = append(rowsByName[name], row)
	}

	res := &RefetchResult{Rows: len(table.Rows), Requested: len(names)}
	log.Printf("service.RefetchService: %d of %d rows need a date (missing or %s)", len(names), len(table.Rows), today)
	if len(names) == 0 {
		return res, nil
	}

	dates := s.fetchBatches(ctx, names)
	fetched := len(dates)
	missing := len(names) - fetched
	if missing > 0 && (fetched == 0 || float64(missing) > float64(len(names))*individualThreshold) {
		log.Printf("service.RefetchService: batch missed %d of %d dates, trying individual calls", missing, len(names))
		s.fetchIndividually(ctx, names, dates)
	}
	res.Fetched = len(dates)

	for name, rows := range rowsByName {
		date, ok := dates[name]
		if !ok || date == "" {
			res.Unresolved++
			continue
		}
		for _, row := range rows {
			row[csvexport.ColCCP4Date] = date
		}
		res.Updated++
	}
	return res, ctx.Err()
}

func (s *RefetchService) fetchBatches(ctx context.Context, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for start := 0; start < len(names); start += s.batchSize {
		end := min(start+s.batchSize, len(names))
		got, err := s.resolver.CommitDates(ctx, names[start:end])
		for name, date := range got {
			if date != "" {
				out[name] = date
			}
		}
		if err != nil {
			log.Printf("service.RefetchService: batch %d-%d: %v", start, end, err)
			if source.IsRateLimited(err) || ctx.Err() != nil {
				break
			}
		}
	}
	log.Printf("service.RefetchService: batch calls resolved %d of %d dates", len(out), len(names))
	return out
}

// fetchIndividually resolves the names missing from dates one by one. A
// sample is tried first; the rest only runs when the sample saw a date or
// every sampled file was simply unknown.
func (s *RefetchService) fetchIndividually(ctx context.Context, names []string, dates map[string]string) {
	var pending []string
	for _, n := range names {
		if dates[n] == "" {
			pending = append(pending, n)
		}
	}

	sample := pending[:min(individualSample, len(pending))]
	found, notFound, failures := 0, 0, 0
	for _, name := range sample {
		date, err := s.resolver.CommitDate(ctx, name)
		switch {
		case err != nil:
			failures++
			log.Printf("service.RefetchService: %s: %v", name, err)
		case date == "":
			notFound++
		default:
			dates[name] = date
			found++
		}
	}
	if found == 0 && (failures > 0 || notFound == 0) {
		log.Printf("service.RefetchService: individual calls failing (%d errors in sample), dates left unresolved", failures)
		return
	}

	for _, name := range pending[len(sample):] {
		if ctx.Err() != nil {
			return
		}
		date, err := s.resolver.CommitDate(ctx, name)
		if err != nil {
			if source.IsRateLimited(err) {
				log.Printf("service.RefetchService: rate limited, stopping individual calls: %v", err)
				return
			}
			log.Printf("service.RefetchService: %s: %v", name, err)
			continue
		}
		if date != "" {
			dates[name] = date
		}
	}
}

// String renders the result for command output.
func (r *RefetchResult) String() string {
	return fmt.Sprintf("rows=%d requested=%d fetched=%d updated=%d unresolved=%d output=%s",
		r.Rows, r.Requested, r.Fetched, r.Updated, r.Unresolved, r.Output)
}
