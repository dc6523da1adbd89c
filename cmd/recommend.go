package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/profscope/internal/pipeline"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recompute the study plan from stored history",
	Long: "Re-aggregates every stored exam under the current policy and prints a fresh\n" +
		"study plan without classifying anything new.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadPipelineConfig(cmd)
		if err != nil {
			return err
		}

		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		// No classification happens here, so no provider is needed.
		p := pipeline.New(nil, nil, bank, cfg)

		res, err := p.Recommend(cmd.Context())
		if res == nil {
			return err
		}

		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}

		printSummary(res.Stats)
		fmt.Println()
		fmt.Print(res.Plan.Render())
		return nil
	},
}
