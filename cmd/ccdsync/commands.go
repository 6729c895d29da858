package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"ccdsync/internal/config"
	"ccdsync/internal/csvexport"
	"ccdsync/internal/domain"
	"ccdsync/internal/handler"
	"ccdsync/internal/router"
	"ccdsync/internal/service"
	"ccdsync/internal/watch"
	"ccdsync/internal/xlsxexport"
)

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// CompareCmd runs one comparison.
type CompareCmd struct {
	Mode         string   `name:"mode" short:"m" help:"Run mode: local, download or online" enum:"local,download,online" default:"local"`
	Codes        []string `name:"codes" short:"c" help:"Only compare these component codes" sep:","`
	Limit        int      `name:"limit" short:"n" help:"Compare at most this many pairs"`
	Output       string   `name:"output" short:"o" help:"Results CSV path; defaults to CCDSYNC_COMPARE_OUTPUT" type:"path"`
	Timestamp    bool     `name:"timestamp" help:"Append a timestamp to the output name"`
	XLSX         bool     `name:"xlsx" help:"Also write an .xlsx workbook with results, missing files and analysis"`
	DownloadOnly bool     `name:"download-only" help:"In download mode, stop after downloading"`
	NoDates      bool     `name:"no-dates" help:"Do not resolve set 2 commit dates"`
	ArchiveDir   string   `name:"archive-dir" help:"Where the components archive is stored in download mode" default:"." type:"path"`
}

func (c *CompareCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var dates = a.resolver()
	if c.NoDates {
		dates = nil
	}
	svc, err := a.comparisonService(dates, c.ArchiveDir)
	if err != nil {
		return err
	}

	output := c.Output
	if output == "" {
		output = cfg.Compare.Output
	}
	if c.Timestamp {
		output = csvexport.TimestampedName(output, time.Now())
	}

	start := time.Now()
	report, err := svc.Compare(ctx, &service.CompareInput{
		Mode:         domain.RunMode(c.Mode),
		Codes:        c.Codes,
		Limit:        c.Limit,
		Output:       output,
		XLSX:         c.XLSX,
		DownloadOnly: c.DownloadOnly,
	})
	if err != nil {
		return err
	}
	if c.DownloadOnly {
		return nil
	}

	run := report.Run
	fmt.Printf("Compared %s pairs in %s: %s identical, %s different, %s errors, %s missing files\n",
		humanize.Comma(int64(run.TotalPairs)), time.Since(start).Round(time.Second),
		humanize.Comma(int64(run.Identical)), humanize.Comma(int64(run.Different)),
		humanize.Comma(int64(run.Errors)), humanize.Comma(int64(run.MissingFiles)))
	fmt.Printf("Results written to %s\n", output)
	return nil
}

// DownloadCmd mirrors both sets locally.
type DownloadCmd struct {
	Codes      []string `name:"codes" short:"c" help:"Only fetch these set 2 codes" sep:","`
	ArchiveDir string   `name:"archive-dir" help:"Where the components archive is stored" default:"." type:"path"`
}

func (c *DownloadCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.downloadService(c.ArchiveDir).Download(ctx, c.Codes)
	if err != nil {
		return err
	}
	fmt.Printf("Set 1: %s components (%s new) in %s\n",
		humanize.Comma(int64(len(res.Split.Paths))), humanize.Comma(int64(res.Split.Written)), cfg.Compare.Set1Dir)
	fmt.Printf("Set 2: %s new, %s existing, %s failed in %s\n",
		humanize.Comma(int64(res.Set2Written)), humanize.Comma(int64(res.Set2Existing)),
		humanize.Comma(int64(res.Set2Failed)), cfg.Compare.Set2Dir)
	return nil
}

// RefetchCmd refetches set 2 dates in a results file.
type RefetchCmd struct {
	Input  string `arg:"" help:"Results CSV" type:"existingfile"`
	Output string `name:"output" short:"o" help:"Output CSV; defaults to <input>_refetched_<timestamp>.csv" type:"path"`
}

func (c *RefetchCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// The raw client is used so that earlier misses are retried.
	res, err := service.NewRefetchService(a.github, cfg.Compare.DateBatchSize).RefetchFile(ctx, c.Input, c.Output)
	if err != nil {
		return err
	}
	fmt.Println(res.String())
	return nil
}

// AnalyzeCmd summarizes a results file.
type AnalyzeCmd struct {
	Input    string `arg:"" help:"Results CSV" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Write the text report here instead of stdout" type:"path"`
	Workbook string `name:"workbook" help:"Also write the results and analysis as an .xlsx workbook" type:"path"`
}

func (c *AnalyzeCmd) Run(cfg *config.Config) error {
	table, err := csvexport.ReadFile(c.Input)
	if err != nil {
		return err
	}
	records := table.Records()
	analysis := service.Analyze(records)

	out := os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", c.Output, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := service.WriteAnalysisReport(out, &analysis); err != nil {
		return fmt.Errorf("writing analysis: %w", err)
	}

	if c.Workbook != "" {
		missing, err := csvexport.ReadMissingFile(csvexport.MissingName(c.Input))
		if err != nil {
			return err
		}
		rep := xlsxexport.Report{Records: records, Missing: missing, Analysis: &analysis}
		if err := xlsxexport.WriteFile(c.Workbook, rep); err != nil {
			return fmt.Errorf("writing %s: %w", c.Workbook, err)
		}
		log.Printf("ccdsync: workbook written to %s", c.Workbook)
	}
	return nil
}

// DetailCmd writes the detailed differences report.
type DetailCmd struct {
	Input    string `arg:"" help:"Results CSV" type:"existingfile"`
	Output   string `name:"output" short:"o" help:"Detailed CSV; defaults to <input>_detailed.csv" type:"path"`
	NoResume bool   `name:"no-resume" help:"Ignore an existing checkpoint"`
}

func (c *DetailCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	output := c.Output
	if output == "" {
		output = strings.TrimSuffix(c.Input, filepath.Ext(c.Input)) + "_detailed.csv"
	}
	set1, set2 := a.localSets()
	res, err := service.NewDetailService(a.engine, a.docs, set1, set2, cfg.Compare.Workers).Build(ctx, &service.DetailInput{
		Input:  c.Input,
		Output: output,
		Resume: !c.NoResume,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s rows, %s with differences, %s not located; written to %s\n",
		humanize.Comma(int64(res.Rows)), humanize.Comma(int64(res.WithDifferences)),
		humanize.Comma(int64(res.Unlocated)), res.Output)
	return nil
}

// LocateCmd finds one component in both local sets.
type LocateCmd struct {
	Code    string `arg:"" help:"Component code"`
	CopyDir string `name:"copy-to" help:"Copy the found files into this directory" type:"path"`
}

func (c *LocateCmd) Run(cfg *config.Config) error {
	set1, set2 := localSets(cfg)
	if c.CopyDir != "" {
		if err := os.MkdirAll(c.CopyDir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", c.CopyDir, err)
		}
	}
	loc, err := service.Locate(context.Background(), set1, set2, c.Code, c.CopyDir)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  set 1: %s\n  set 2: %s\n", loc.Code, orNotFound(loc.Set1), orNotFound(loc.Set2))
	for _, p := range loc.Copies {
		fmt.Printf("  copied to %s\n", p)
	}
	return nil
}

func orNotFound(p string) string {
	if p == "" {
		return "not found"
	}
	return p
}

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Port string `name:"port" help:"Listen address; defaults to CCDSYNC_SERVER_PORT"`
}

func (c *ServeCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.comparisonService(a.resolver(), ".")
	if err != nil {
		return err
	}

	comparisonH := handler.NewComparisonHandler(svc)
	healthH := handler.NewHealthHandler(a.db, version)
	r := router.Setup(comparisonH, healthH, cfg.CORS.AllowedOrigins)

	addr := cfg.Server.Port
	if c.Port != "" {
		addr = c.Port
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// WatchCmd re-compares components whenever their local files change.
type WatchCmd struct {
	Debounce time.Duration `name:"debounce" help:"Wait this long for further changes before comparing" default:"500ms"`
	NoDates  bool          `name:"no-dates" help:"Do not resolve set 2 commit dates"`
}

func (c *WatchCmd) Run(cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := watch.NewFSNotifyWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	var dates = a.resolver()
	if c.NoDates {
		dates = nil
	}
	set1, set2 := a.localSets()
	pool := service.NewComparisonPool(a.engine, a.docs, set1, set2, dates, service.PoolConfig{Workers: cfg.Compare.Workers})

	w := csvexport.NewWriter(os.Stdout)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.Flush()
	handle := func(rec domain.ComparisonRecord) {
		if err := w.WriteRecords([]domain.ComparisonRecord{rec}); err != nil {
			log.Printf("ccdsync: writing %s: %v", rec.CCDCode, err)
		}
		w.Flush()
	}

	return service.NewWatchService(watcher, pool, set1, set2, c.Debounce).
		Run(ctx, handle, cfg.Compare.Set1Dir, cfg.Compare.Set2Dir)
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("ccdsync %s\n", version)
	return nil
}
