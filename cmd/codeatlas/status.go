// cmd/codeatlas/status.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telliott/codeatlas/internal/cache"
	"github.com/telliott/codeatlas/internal/config"
	"github.com/telliott/codeatlas/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	qdrantStore, err := store.NewQdrantStore(qdrantHost(cfg.Storage.QdrantURL))
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant at %s: %w", cfg.Storage.QdrantURL, err)
	}
	defer qdrantStore.Close()

	ctx := context.Background()

	count, err := qdrantStore.Count(ctx, cfg.Storage.Collection)
	if err != nil {
		fmt.Println("No index found. Run 'codeatlas index <path>' to create one.")
		return nil
	}

	fmt.Println("Index Status:")
	fmt.Printf("  Collection: %s\n", cfg.Storage.Collection)
	fmt.Printf("  Records:    %d\n", count)

	if cfg.Storage.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Storage.RedisURL)
		if err == nil {
			defer redisCache.Close()
			if version, err := redisCache.IndexVersion(ctx, cfg.Storage.Collection); err == nil {
				fmt.Printf("  Version:    %d\n", version)
			}
		}
	}

	return nil
}
