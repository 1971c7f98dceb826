package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-shelves/config"
	"github.com/aluiziolira/go-scrape-shelves/models"
	"github.com/aluiziolira/go-scrape-shelves/pipeline"
	"github.com/aluiziolira/go-scrape-shelves/scraper"
	"github.com/aluiziolira/go-scrape-shelves/store/sqlite"
)

func main() {
	defaultCfg := config.DefaultConfig()
	dbDefault := defaultCfg.DBPath
	if value, ok := config.EnvString("SHELFSYNC_DB"); ok {
		dbDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SHELFSYNC_BASE_URL"); ok {
		baseURLDefault = value
	}
	perPageDefault := defaultCfg.PerPage
	if value, ok, err := config.EnvInt("SHELFSYNC_PER_PAGE"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SHELFSYNC_PER_PAGE: %v\n", err)
		os.Exit(1)
	} else if ok {
		perPageDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SHELFSYNC_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	timeoutDefault := defaultCfg.IngestTimeout
	if value, ok, err := config.EnvDuration("SHELFSYNC_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SHELFSYNC_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		timeoutDefault = value
	}

	profileRef := flag.String("profile", "", "Profile URL to ingest (e.g. https://www.goodreads.com/user/show/123-jane)")
	username := flag.String("user", "", "Stored username to read; defaults to the ingested user")
	status := flag.String("status", "", "List stored books with this reading status")
	exportFile := flag.String("export", "", "Export the stored library to this file")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Export format: csv, json, or dual")
	dbPath := flag.String("db", dbDefault, "SQLite database path")
	baseURL := flag.String("base-url", baseURLDefault, "Goodreads base URL")
	perPage := flag.Int("per-page", perPageDefault, "Feed entries requested per ingestion")
	defaultShelf := flag.String("default-shelf", defaultCfg.DefaultShelf, "Status for entries with no shelf and no finish date")
	timeout := flag.Duration("timeout", timeoutDefault, "Deadline for ingest and reconcile")
	rps := flag.Float64("rps", defaultCfg.RequestsPerSec, "Maximum requests per second to the site (0 disables throttling)")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.DBPath = *dbPath
	cfg.PerPage = *perPage
	cfg.DefaultShelf = *defaultShelf
	cfg.IngestTimeout = *timeout
	cfg.RequestsPerSec = *rps
	cfg.RespectRobotsTxt = *respectRobots
	cfg.OutputFile = *exportFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.MetricsAddr = *metricsAddr
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *profileRef == "" && *username == "" {
		fmt.Fprintln(os.Stderr, "one of -profile or -user is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, *profileRef, *username, models.ReadingStatus(*status)); err != nil {
		slog.Error("shelfsync failed", slog.String("kind", pipeline.ErrorKind(err)), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, profileRef, username string, status models.ReadingStatus) error {
	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		return fmt.Errorf("initialise fetcher: %w", err)
	}

	st, err := sqlite.Open(cfg.DBPath, slog.Default())
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := pipeline.NewMetrics(fetcher.Metrics.Registry)
	reconciler, err := pipeline.NewReconciler(st, cfg.BookCacheSize, metrics)
	if err != nil {
		return err
	}
	service := pipeline.NewService(pipeline.NewIngestor(fetcher, cfg, metrics), reconciler, st, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(fetcher.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	if profileRef != "" {
		ingestCtx, cancel := context.WithTimeout(ctx, cfg.IngestTimeout)
		start := time.Now()
		result := service.IngestAndPersist(ingestCtx, profileRef)
		cancel()

		printIngestResult(result, time.Since(start))
		if !result.Success {
			return errors.New(result.Error)
		}
		if username == "" {
			username = result.Username
		}
	}

	switch {
	case status != "":
		books, err := service.FetchBooksByStatus(ctx, username, status)
		if err != nil {
			return err
		}
		printBooks(username, status, books)
	case cfg.OutputFile != "":
		return export(ctx, service, cfg, username)
	case profileRef == "":
		summary, err := service.FetchSnapshotSummary(ctx, username)
		if err != nil {
			return fmt.Errorf("load %s: %w", username, err)
		}
		printSummary(summary)
	}
	return nil
}

func export(ctx context.Context, service *pipeline.Service, cfg *config.Config, username string) error {
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return err
	}

	n, err := service.ExportLibrary(ctx, username, writer)
	if closeErr := writer.Close(); closeErr != nil {
		slog.Error("close writer", slog.Any("error", closeErr))
	}
	if err != nil {
		return err
	}
	if n > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	fmt.Printf("Exported %d records for %s to %s\n", n, username, cfg.OutputFile)
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

const separator = "--------------------------------------------------"

func printIngestResult(result pipeline.IngestResult, duration time.Duration) {
	fmt.Println("\n" + separator)
	if result.Success {
		fmt.Println("Ingestion complete")
	} else {
		fmt.Println("Ingestion failed")
	}
	fmt.Printf("  Message:   %s\n", result.Message)
	if result.Username != "" {
		fmt.Printf("  Username:  %s\n", result.Username)
	}
	if result.Success {
		fmt.Printf("  User id:   %s\n", result.UserID)
		fmt.Printf("  Books:     %d\n", result.BookCount)
	}
	if result.Error != "" {
		fmt.Printf("  Error:     %s\n", result.Error)
	}
	fmt.Printf("  Duration:  %v\n", duration.Round(time.Millisecond))
	fmt.Println(separator)
}

func printSummary(summary *pipeline.Summary) {
	counts := map[models.ReadingStatus]int{}
	for _, ub := range summary.Books {
		counts[ub.Status]++
	}

	fmt.Println("\n" + separator)
	fmt.Printf("Library of %s\n", summary.User.Username)
	if summary.User.Name != nil {
		fmt.Printf("  Name:              %s\n", *summary.User.Name)
	}
	fmt.Printf("  Scraped at:        %s\n", summary.User.ScrapedAt.Format(time.RFC3339))
	fmt.Printf("  Total books:       %d\n", summary.TotalBooks)
	fmt.Printf("  Read:              %d\n", counts[models.StatusRead])
	fmt.Printf("  Currently reading: %d\n", counts[models.StatusCurrentlyReading])
	fmt.Printf("  To read:           %d\n", counts[models.StatusToRead])
	fmt.Println(separator)
}

func printBooks(username string, status models.ReadingStatus, books []*models.UserBook) {
	fmt.Printf("%d %s books for %s\n", len(books), status, username)
	for _, ub := range books {
		rating := "-"
		if ub.Rating != nil {
			rating = fmt.Sprintf("%d/5", *ub.Rating)
		}
		fmt.Printf("  %-50s  %-30s  %s\n", ub.Book.Title, ub.Book.Author, rating)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
