package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"fintech_reviews/internal/adapters/feed"
	"fintech_reviews/internal/adapters/observability"
	"fintech_reviews/internal/adapters/sentiment"
	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
	"fintech_reviews/internal/shared"
	"fintech_reviews/internal/storage/sqlstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("reviewctl")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reviewctl",
		Usage: "Load, verify and report on banking app reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "Store driver (mysql, postgres, sqlite); overrides STORE_DRIVER",
				EnvVars: []string{"STORE_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Store DSN; overrides STORE_DSN",
				EnvVars: []string{"STORE_DSN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Create tables, indexes and the statistics view if missing",
				Action: schemaCommand,
			},
			{
				Name:   "load",
				Usage:  "Normalize, enrich and load reviews from a CSV, JSON or JSONL file",
				Action: loadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Input file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Source for records that name none (defaults to the first configured source)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Reviews per load transaction",
						Value: app.DefaultBatchSize,
					},
				},
			},
			{
				Name:   "report",
				Usage:  "Print satisfaction drivers and pain points as JSON",
				Action: reportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Only this source",
					},
				},
			},
			{
				Name:   "verify",
				Usage:  "Print per-source totals from the review_statistics view",
				Action: verifyCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	log.Logger = observability.NewLogger(os.Getenv("APP_ENV"), c.String("log-level"))
	return nil
}

// config reads the shared configuration and applies the global flags on top.
func config(c *cli.Context) (shared.Config, error) {
	cfg, err := shared.Load()
	if err != nil {
		return shared.Config{}, err
	}
	if c.IsSet("driver") {
		cfg.StoreDriver = c.String("driver")
	}
	if c.IsSet("dsn") {
		cfg.StoreDSN = c.String("dsn")
	}
	return cfg, nil
}

func openStore(c *cli.Context, cfg shared.Config) (*sqlstore.Repo, error) {
	d, err := sqlstore.ParseDialect(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	return sqlstore.Open(c.Context, d, cfg.StoreDSN)
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func schemaCommand(c *cli.Context) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	repo, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "schema ok (%s)\n", cfg.StoreDriver)
	return nil
}

func loadCommand(c *cli.Context) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	sources, err := shared.LoadSources(cfg.SourcesFile)
	if err != nil {
		return err
	}
	fallback := sources[0]
	if name := c.String("source"); name != "" {
		s, ok := shared.FindSource(sources, name)
		if !ok {
			s = domain.Source{Name: name}
		}
		fallback = s
	}
	catalog, err := app.LoadThemeCatalog(cfg.ThemeCatalog)
	if err != nil {
		return err
	}

	raw, err := feed.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	repo, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	enricher, err := app.NewEnricher(sentiment.NewLexiconScorer(nil),
		app.WithPoolSize(cfg.EnrichWorkers),
		app.WithTopKeywords(cfg.KeywordsTopN),
		app.WithCatalog(catalog),
	)
	if err != nil {
		return err
	}
	defer enricher.Release()

	svc := app.NewIngestionService(repo, nil, nil,
		app.NewNormalizer(app.WithMinTextLength(cfg.MinTextLength)),
		enricher,
		app.NewLoader(repo, app.WithBatchSize(c.Int("batch-size")), app.WithLoadWorkers(cfg.LoadWorkers)),
	)
	if err := svc.Prepare(c.Context); err != nil {
		return err
	}

	reps, err := svc.RunMixed(c.Context, raw, sources, fallback)
	if perr := printJSON(c, reps); perr != nil && err == nil {
		err = perr
	}
	return err
}

func reportCommand(c *cli.Context) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	catalog, err := app.LoadThemeCatalog(cfg.ThemeCatalog)
	if err != nil {
		return err
	}
	repo, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	q := app.NewQueryService(repo, app.NewAggregator(catalog, 0), nil, 0)
	if name := c.String("source"); name != "" {
		rep, err := q.SourceReport(c.Context, name)
		if err != nil {
			return err
		}
		return printJSON(c, rep)
	}
	rep, err := q.Overview(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, rep)
}

func verifyCommand(c *cli.Context) error {
	cfg, err := config(c)
	if err != nil {
		return err
	}
	repo, err := openStore(c, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	totals, err := app.NewQueryService(repo, nil, nil, 0).Totals(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, totals)
}
