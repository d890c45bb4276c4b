package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/config"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

const usage = "expected 'export', 'import' or 'analytics-export' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	analyticsCmd := flag.NewFlagSet("analytics-export", flag.ExitOnError)
	from := analyticsCmd.String("from", "", "first day, YYYY-MM-DD")
	to := analyticsCmd.String("to", "", "last day, YYYY-MM-DD")
	shortcode := analyticsCmd.String("shortcode", "", "limit to one link (default: all links)")
	format := analyticsCmd.String("format", "json", "json, csv or yaml")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to db")
	}
	defer repo.Close()

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		if err := doExport(ctx, repo, os.Stdout); err != nil {
			logger.WithError(err).Fatal("export failed")
		}
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		if err := doImport(ctx, repo, *importFile, logger); err != nil {
			logger.WithError(err).Fatal("import failed")
		}
	case "analytics-export":
		_ = analyticsCmd.Parse(os.Args[2:])
		if *from == "" || *to == "" {
			analyticsCmd.PrintDefaults()
			os.Exit(1)
		}
		svc := services.NewAnalyticsService(repo, nil, logger)
		if err := doAnalyticsExport(ctx, svc, os.Stdout, *shortcode, *from, *to, *format); err != nil {
			logger.WithError(err).Fatal("analytics export failed")
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func doExport(ctx context.Context, repo ports.LinkRepository, w io.Writer) error {
	links, err := repo.Dump(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(links)
}

func doImport(ctx context.Context, repo ports.LinkRepository, filename string, logger logrus.FieldLogger) error {
	logger = logging.OrNop(logger)
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}

	count := 0
	for i := range links {
		l := &links[i]
		log := logger.WithField("shortcode", l.Shortcode)
		if l.DeletedAt != nil {
			log.Debug("skipping deleted link")
			continue
		}
		existing, err := repo.GetByShortcode(ctx, l.Shortcode)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Info("skipping existing code")
			continue
		}

		if err := repo.Create(ctx, l); err != nil {
			log.WithError(err).Warn("failed to import link")
			continue
		}
		count++
	}
	logger.WithField("count", count).Info("import finished")
	return nil
}

func doAnalyticsExport(ctx context.Context, svc ports.AnalyticsService, w io.Writer, shortcode, from, to, format string) error {
	export, err := svc.ExportAnalytics(ctx, shortcode, from, to, format)
	if err != nil {
		return err
	}
	return svc.EncodeExport(w, export, format)
}
