package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/go-photocopy/photocopy/internal/applog"
	"github.com/go-photocopy/photocopy/internal/config"
	"github.com/go-photocopy/photocopy/internal/geocoder"
	"github.com/go-photocopy/photocopy/internal/photocopy"
	"github.com/go-photocopy/photocopy/internal/progress"
)

func main() {
	cfg := config.Default()

	var (
		configPath   string
		rollbackPath string
		minDateStr   string
		maxDateStr   string
		allowedExts  string
		logLevel     string
		logFile      string
	)

	pflag.StringVarP(&configPath, "config", "c", "", "Path to a TOML configuration file; only --source, --destination and --allowed-extensions override it")
	pflag.StringVarP(&cfg.Source, "source", "s", "", "Source directory to scan")
	pflag.StringVarP(&cfg.Destination, "destination", "d", "", "Destination root directory")
	pflag.StringVarP(&cfg.Template, "template", "t", cfg.Template, "Destination path template")
	pflag.StringVarP((*string)(&cfg.Mode), "mode", "m", string(cfg.Mode), "Copy or Move")
	pflag.BoolVar(&cfg.DryRun, "dry-run", false, "Plan the run without touching the filesystem")
	pflag.BoolVar(&cfg.EnableRollback, "enable-rollback", false, "Write a transaction log so the run can be rolled back")
	pflag.BoolVar(&cfg.CalculateChecksums, "calculate-checksums", false, "Compute a SHA-256 checksum for every file")
	pflag.StringVar((*string)(&cfg.DuplicateHandling), "duplicate-handling", string(cfg.DuplicateHandling), "None, SkipDuplicates, or RenameNumbered")
	pflag.StringVar(&cfg.DuplicatesFormat, "duplicates-format", cfg.DuplicatesFormat, "Collision suffix template, e.g. _{number}")
	pflag.StringVar(&allowedExts, "allowed-extensions", "", "Comma-separated list of allowed extensions (empty means all)")
	pflag.StringVar(&minDateStr, "min-date", "", "Earliest capture date to include, YYYY-MM-DD")
	pflag.StringVar(&maxDateStr, "max-date", "", "Latest capture date to include (inclusive), YYYY-MM-DD")
	pflag.BoolVar(&cfg.SkipExisting, "skip-existing", false, "Skip a file whose destination already exists")
	pflag.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing destination instead of disambiguating")
	pflag.StringVar((*string)(&cfg.RelatedFileMode), "related-file-mode", string(cfg.RelatedFileMode), "None, Strict, or Loose")
	pflag.StringVar(&cfg.GazetteerPath, "gazetteer", "", "Path to a GeoNames-format gazetteer file for reverse geocoding")
	pflag.Int64Var(&cfg.MinimumPopulation, "minimum-population", 0, "Minimum population for a gazetteer place to be admitted")
	pflag.IntVarP(&cfg.Parallelism, "parallelism", "p", 1, "Number of files enriched or executed concurrently")
	pflag.StringVar(&logLevel, "log-level", "info", "Logging level")
	pflag.StringVar(&logFile, "log-file", "", "Optional rotating log file path")
	pflag.StringVar(&rollbackPath, "rollback", "", "Path to a transaction log to roll back instead of running")

	pflag.Parse()

	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "photocopy: %v\n", err)
			os.Exit(1)
		}
		cfg = mergeFlagsOverFile(fileCfg, cfg)
	} else if err := parseDates(&cfg, minDateStr, maxDateStr); err != nil {
		fmt.Fprintf(os.Stderr, "photocopy: %v\n", err)
		os.Exit(1)
	}

	if allowedExts != "" {
		cfg.AllowedExtensions = splitCSV(allowedExts)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := applog.New(applog.Config{FilePath: logFile, Level: level, ConsoleOutput: true})

	ctx := context.Background()

	if rollbackPath != "" {
		result, err := photocopy.New(log, nil, nil).Rollback(rollbackPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "photocopy: rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back transaction %s: %d operations reverted, %d directories removed\n",
			result.TransactionID, result.OperationsReverted, result.DirectoriesRemoved)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "photocopy: %v\n", err)
		os.Exit(1)
	}

	var geo *geocoder.Geocoder
	if cfg.GazetteerPath != "" {
		geo = geocoder.New(cfg.MinimumPopulation, log)
		if err := geo.Initialize(cfg.GazetteerPath); err != nil {
			log.Warn().Err(err).Msg("geocoder disabled for this run")
		}
	}

	orc := photocopy.New(log, geo, progress.LogReporter{Log: log})
	result, err := orc.Run(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "photocopy: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("processed %d, skipped %d, failed %d\n", result.Processed, result.Skipped, result.Failed)
	if result.TransactionLogPath != "" {
		fmt.Printf("transaction log: %s\n", result.TransactionLogPath)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func parseDates(cfg *config.Run, minDateStr, maxDateStr string) error {
	cfg.MinDateStr = minDateStr
	cfg.MaxDateStr = maxDateStr
	return cfg.ParseDates()
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// mergeFlagsOverFile keeps the file-loaded configuration as the base. Since
// pflag does not expose "was this flag set" without a FlagSet reference
// here, only source/destination from the CLI override it, and only when
// non-empty; every other field comes from the file.
func mergeFlagsOverFile(fileCfg, cliCfg config.Run) config.Run {
	merged := fileCfg
	if cliCfg.Source != "" {
		merged.Source = cliCfg.Source
	}
	if cliCfg.Destination != "" {
		merged.Destination = cliCfg.Destination
	}
	return merged
}
