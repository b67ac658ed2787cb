package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a discover -> parse -> resolve -> graph pass and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := runPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		fmt.Printf("crates: %d\nfunctions: %d\ntypes: %d\nactors: %d\ncalls: %d\nviolations: %d\n",
			len(result.Symbols.Crates), len(result.Symbols.Functions), len(result.Symbols.Types),
			len(result.Symbols.Actors), len(result.Symbols.Calls), len(result.Violations))
		return nil
	},
}
