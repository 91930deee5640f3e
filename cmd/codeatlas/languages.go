// cmd/codeatlas/languages.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telliott/codeatlas/internal/language"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and their backends",
	Run:   runLanguages,
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(cmd *cobra.Command, args []string) {
	registry := language.Default()

	fmt.Printf("%-12s %-28s %s\n", "LANGUAGE", "MATCHES", "BACKENDS")
	for _, d := range registry.Descriptors() {
		matches := append([]string{}, d.Extensions...)
		matches = append(matches, d.Filenames...)
		fmt.Printf("%-12s %-28s %s\n",
			d.Language,
			strings.Join(matches, " "),
			strings.Join(d.Backends, " > "))
	}
}
