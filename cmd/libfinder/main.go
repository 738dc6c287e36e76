package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kevinmichaelchen/libfinder/internal/api"
	"github.com/kevinmichaelchen/libfinder/internal/config"
	"github.com/kevinmichaelchen/libfinder/internal/database"
	"github.com/kevinmichaelchen/libfinder/internal/github"
	"github.com/kevinmichaelchen/libfinder/internal/llm"
	"github.com/kevinmichaelchen/libfinder/internal/log"
	"github.com/kevinmichaelchen/libfinder/internal/models"
	"github.com/kevinmichaelchen/libfinder/internal/pipeline"
	"github.com/kevinmichaelchen/libfinder/internal/store"
	"github.com/kevinmichaelchen/libfinder/internal/surrealdb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:          "libfinder",
		Short:        "Find GitHub libraries for a language and a use case",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd(), searchCmd(), migrateCmd(), historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the logger every command needs.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.UseSurreal() {
		logger.Info("using SurrealDB store", zap.String("url", cfg.SurrealURL))
		db, err := surrealdb.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := database.NewDatabase(ctx, cfg.DBURL, logger)
	if err != nil {
		return nil, err
	}
	return store.NewRelational(db), nil
}

func newPipeline(cfg *config.Config, logger *zap.Logger) *pipeline.Pipeline {
	gh := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken).
		WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout})
	ai := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	if cfg.LLMAPIKey == "" {
		logger.Warn("no LLM API key configured; term expansion and analysis are disabled")
	}

	return pipeline.New(pipeline.Deps{
		Searcher: gh,
		Readmes:  gh,
		Terms:    ai,
		Analyzer: ai,
		Logger:   logger,
	}, pipeline.Options{
		ExpandTerms: cfg.ExpandTerms,
		Timeout:     cfg.UpstreamTimeout,
		Limit:       cfg.FanoutLimit,
	})
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.InitSchema(ctx); err != nil {
				return err
			}

			handler := api.NewHandler(newPipeline(cfg, logger), st, logger)
			srv := api.NewServer(cfg.Addr(), cfg.AllowedOrigins(), handler, logger)

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down: %w", err)
			}
			return <-errc
		},
	}
}

func searchCmd() *cobra.Command {
	var language, example string

	cmd := &cobra.Command{
		Use:   "search [description]",
		Short: "Run one search and print the ranked results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			req := models.SearchRequest{Language: language, Description: args[0]}
			if example != "" {
				req.Example = &example
			}

			results, err := newPipeline(cfg, logger).Search(ctx, req)
			if err != nil {
				var apiErr *github.APIError
				if errors.As(err, &apiErr) && apiErr.RateLimited() {
					return fmt.Errorf("GitHub rate limit exceeded (remaining %q): %w", apiErr.RateLimitRemaining, err)
				}
				return err
			}

			if len(results) == 0 {
				fmt.Println("No results found")
				return nil
			}

			fmt.Printf("Top %d %s libraries for %q:\n\n", len(results), language, args[0])
			for i, r := range results {
				fmt.Printf("%d. %s  ★ %d  forks %d\n", i+1, r.FullName, r.Stars, r.Forks)
				fmt.Printf("   %s\n", r.URL)
				if r.Description != "" {
					fmt.Printf("   %s\n", r.Description)
				}
				if len(r.Topics) > 0 {
					fmt.Printf("   Topics: %s\n", strings.Join(r.Topics, ", "))
				}
				if a := r.Analysis; a != nil {
					fmt.Printf("   Open source: %t  Complexity: %d/5  %s\n",
						a.IsOpenSource, a.IntegrationComplexity, a.ComplexityReason)
					if a.Pricing != nil {
						price := string(a.Pricing.Type)
						if a.Pricing.StartingPrice != nil {
							price += " from " + *a.Pricing.StartingPrice
						}
						fmt.Printf("   Pricing: %s\n", price)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Programming language (required)")
	cmd.Flags().StringVarP(&example, "example", "e", "", "Example library to search near")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Schema initialized")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			searches, err := st.RecentSearches(ctx, limit)
			if err != nil {
				return err
			}
			if len(searches) == 0 {
				fmt.Println("No searches recorded")
				return nil
			}
			for _, s := range searches {
				line := fmt.Sprintf("%s  %-12s %s", s.CreatedAt.Format(time.DateTime), s.Language, s.Description)
				if s.Example != nil {
					line += fmt.Sprintf("  (like %s)", *s.Example)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of searches")
	return cmd
}
