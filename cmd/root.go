package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/profscope/internal/memory"
	"github.com/abhisek/profscope/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "profscope",
	Short: "Exam trend profiler and study planner",
	Long: "Profscope ingests past exam papers, classifies every question by topic and\n" +
		"cognitive complexity, tracks cross-exam trends, and tells you exactly what\n" +
		"to study: a hit list, a safe zone, and a drop list.",
}

// Execute runs the root command under ctx so an in-flight analysis can
// be cancelled between pipeline stages.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PROFSCOPE_DB env var)")
	rootCmd.PersistentFlags().String("policy", "", "Path to a YAML policy file overriding weighting/strategy defaults")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then PROFSCOPE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, memory.EnsureDir(p)
	}
	return memory.DefaultDBPath()
}

// openBank opens the durable memory bank for this invocation.
func openBank(cmd *cobra.Command) (*memory.SQLiteBank, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	return memory.Open(dbPath)
}

// loadPipelineConfig resolves the run configuration: defaults, overlaid
// with the --policy file when given.
func loadPipelineConfig(cmd *cobra.Command) (pipeline.Config, error) {
	path, _ := cmd.Flags().GetString("policy")
	if path == "" {
		return pipeline.DefaultConfig(), nil
	}
	return pipeline.LoadConfig(path)
}
