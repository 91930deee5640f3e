// cmd/codeatlas/index.go
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/telliott/codeatlas/internal/cache"
	"github.com/telliott/codeatlas/internal/config"
	"github.com/telliott/codeatlas/internal/embedding"
	"github.com/telliott/codeatlas/internal/indexer"
	"github.com/telliott/codeatlas/internal/metrics"
	"github.com/telliott/codeatlas/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var indexDryRun bool

func init() {
	indexCmd.Flags().BoolVar(&indexDryRun, "dry-run", false, "Extract and chunk only, skip embedding and storage")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("path not found: %s", absPath)
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var opts []indexer.Option

	if !indexDryRun {
		apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
		if apiKey == "" {
			return fmt.Errorf("%s environment variable not set (use --dry-run to skip embedding)", cfg.Embedding.APIKeyEnv)
		}
		opts = append(opts, indexer.WithEmbedder(embedding.NewVoyageClient(apiKey, cfg.Embedding.Model)))

		qdrantStore, err := store.NewQdrantStore(qdrantHost(cfg.Storage.QdrantURL))
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		defer qdrantStore.Close()
		opts = append(opts, indexer.WithStore(qdrantStore))

		if cfg.Storage.RedisURL != "" {
			redisCache, err := cache.NewRedisCache(cfg.Storage.RedisURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: Redis unavailable, change tracking disabled: %v\n", err)
			} else {
				defer redisCache.Close()
				opts = append(opts, indexer.WithCache(redisCache))
			}
		}
	}

	if cfg.Logging.MetricsPath != "" {
		metricsLog, err := metrics.NewLogger(cfg.Logging.MetricsPath)
		if err != nil {
			return fmt.Errorf("failed to open metrics log: %w", err)
		}
		defer metricsLog.Close()
		opts = append(opts, indexer.WithMetrics(metricsLog))
	}

	idx, err := indexer.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}

	fmt.Printf("Indexing %s...\n", absPath)

	stats, err := idx.Run(context.Background(), absPath)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files processed: %d\n", stats.FilesProcessed)
	fmt.Printf("  Files skipped:   %d\n", stats.FilesSkipped)
	fmt.Printf("  Symbols found:   %d\n", stats.SymbolsFound)
	fmt.Printf("  Chunks created:  %d\n", stats.ChunksCreated)

	if len(stats.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(stats.Errors))
		for _, e := range stats.Errors {
			fmt.Printf("    - %v\n", e)
		}
	}

	return nil
}

func qdrantHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}
