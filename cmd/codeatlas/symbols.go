// cmd/codeatlas/symbols.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telliott/codeatlas/internal/language"
	"github.com/telliott/codeatlas/internal/parser"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [file]",
	Short: "Extract symbols from a single file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

var symbolsJSON bool

func init() {
	symbolsCmd.Flags().BoolVar(&symbolsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(symbolsCmd)
}

func runSymbols(cmd *cobra.Command, args []string) error {
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	registry := language.Default()
	lang, known := registry.Resolve(path)
	if !known {
		return fmt.Errorf("unrecognized file type: %s", path)
	}

	selector, err := parser.NewSelector(registry)
	if err != nil {
		return err
	}

	symbols, backend, err := selector.SelectAndParse(context.Background(), lang, content)
	if err != nil {
		return err
	}

	if symbolsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(symbols)
	}

	fmt.Printf("%s (%s via %s): %d symbols\n", path, lang, backend, len(symbols))
	for _, s := range symbols {
		loc := fmt.Sprintf("%d-%d", s.StartLine, s.EndLine)
		if s.Parent != "" {
			fmt.Printf("  %-10s %-8s %s.%s\n", loc, s.Kind, s.Parent, s.Name)
		} else {
			fmt.Printf("  %-10s %-8s %s\n", loc, s.Kind, s.Name)
		}
	}

	return nil
}
