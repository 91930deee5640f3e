// cmd/codeatlas/chunks.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telliott/codeatlas/internal/config"
	"github.com/telliott/codeatlas/internal/language"
	"github.com/telliott/codeatlas/internal/parser"
	"github.com/telliott/codeatlas/internal/pipeline"
	"github.com/telliott/codeatlas/internal/structure"
)

var chunksCmd = &cobra.Command{
	Use:   "chunks [file]",
	Short: "Chunk a single file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

var chunksJSON bool

func init() {
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := language.Default()
	selector, err := parser.NewSelector(registry)
	if err != nil {
		return err
	}

	coord, err := pipeline.New(registry, selector, structure.NewExtractor(), cfg.Chunking)
	if err != nil {
		return err
	}

	res, err := coord.Index(context.Background(), path, content)
	if err != nil {
		return err
	}

	if chunksJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("%s: %d chunks\n", path, len(res.Chunks))
	for _, ch := range res.Chunks {
		flags := ""
		if ch.Oversized {
			flags += " oversized"
		}
		if ch.Degraded {
			flags += " degraded"
		}
		fmt.Printf("  [%d] units %d-%d, %d tokens, overlap %d bytes%s\n",
			ch.Index, ch.StartUnit, ch.EndUnit, ch.TokenCount, len(ch.Overlap), flags)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	return nil
}
