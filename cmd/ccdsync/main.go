// Command ccdsync compares the wwPDB chemical component dictionary with the
// CCP4 monomer library.
package main

import (
	"log"

	"github.com/alecthomas/kong"

	"ccdsync/internal/config"
	"ccdsync/internal/logging"
)

const version = "0.4.0"

// CLI defines the command-line interface.
var CLI struct {
	Table   string `name:"table" short:"t" help:"Correlation table (.csv or .xlsx); overrides CCDSYNC_COMPARE_CORRELATION_TABLE" type:"path"`
	Workers int    `name:"workers" short:"w" help:"Number of comparison workers; overrides CCDSYNC_COMPARE_WORKERS"`
	Set1Dir string `name:"set1-dir" help:"Local set 1 (wwPDB) directory" type:"path"`
	Set2Dir string `name:"set2-dir" help:"Local set 2 (monomer library) directory" type:"path"`

	Compare  CompareCmd  `cmd:"" help:"Compare both sets and write the results report"`
	Download DownloadCmd `cmd:"" help:"Download both sets into the local directories"`
	Refetch  RefetchCmd  `cmd:"" name:"refetch-dates" help:"Refetch missing or suspicious set 2 dates in a results file"`
	Analyze  AnalyzeCmd  `cmd:"" help:"Summarize a results file"`
	Detail   DetailCmd   `cmd:"" help:"Explain the differences behind non-identical rows"`
	Locate   LocateCmd   `cmd:"" help:"Find a component file in both local sets"`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API"`
	Watch    WatchCmd    `cmd:"" help:"Re-compare components whenever their files change"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("ccdsync"),
		kong.Description("Structural comparison of wwPDB CCD and CCP4 monomer library entries"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyGlobals(cfg)
	logging.Setup(cfg.Log)

	err = ctx.Run(cfg)
	ctx.FatalIfErrorf(err)
}

// applyGlobals lets global flags override the environment.
func applyGlobals(cfg *config.Config) {
	if CLI.Table != "" {
		cfg.Compare.CorrelationTable = CLI.Table
	}
	if CLI.Workers > 0 {
		cfg.Compare.Workers = CLI.Workers
	}
	if CLI.Set1Dir != "" {
		cfg.Compare.Set1Dir = CLI.Set1Dir
	}
	if CLI.Set2Dir != "" {
		cfg.Compare.Set2Dir = CLI.Set2Dir
	}
}
