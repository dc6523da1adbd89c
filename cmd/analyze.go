package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/profscope/internal/classify"
	"github.com/abhisek/profscope/internal/exam"
	"github.com/abhisek/profscope/internal/llm"
	"github.com/abhisek/profscope/internal/pipeline"
	"github.com/abhisek/profscope/internal/trend"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze exam papers and produce a study plan",
	Long: "Reads one or more plain-text exam files, classifies every question by topic\n" +
		"and complexity tier, merges the results with stored history, and prints a\n" +
		"prioritized study plan. Each file becomes one exam record.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, _ := cmd.Flags().GetString("date")
		var administered time.Time
		if date != "" {
			var err error
			administered, err = time.Parse("2006-01-02", date)
			if err != nil {
				return fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", date, err)
			}
		}

		cfg, err := loadPipelineConfig(cmd)
		if err != nil {
			return err
		}

		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		llmCfg := llm.ConfigFromEnv()
		if err := llmCfg.Validate(); err != nil {
			if discovered, ok := llm.DiscoverConfig(); ok {
				llmCfg = discovered
			} else {
				return fmt.Errorf("no model provider configured: %w", err)
			}
		}

		provider, err := llm.NewProvider(ctx, llmCfg, bank)
		if err != nil {
			return err
		}

		docs := make([]exam.Document, 0, len(args))
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read exam file: %w", err)
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			docs = append(docs, exam.Document{
				ExamID:           name,
				Title:            name,
				DateAdministered: administered,
				Content:          string(content),
			})
		}

		p := pipeline.New(
			exam.TextExtractor{},
			classify.NewLLMClassifier(provider, cfg.Classify),
			bank,
			cfg,
		)

		res, err := p.Analyze(ctx, docs)
		if res == nil {
			return err
		}

		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		if res.Degraded {
			fmt.Fprintln(os.Stderr, "warning: history was not durably updated; results are for this session only")
		}

		printSummary(res.Stats)
		fmt.Println()
		fmt.Print(res.Plan.Render())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("date", "", "Date the exam was administered (YYYY-MM-DD)")
}

func printSummary(stats *trend.Result) {
	sum := trend.Summarize(stats.Stats, 5)
	fmt.Printf("Analyzed %d topic(s) over %d exam(s), %d question(s) total.\n",
		sum.TotalTopics, len(stats.ExamIDs), sum.TotalQuestions)
	if sum.TotalQuestions > 0 {
		fmt.Printf("Cognitive split: %d lower-order / %d higher-order.\n", sum.LowerOrder, sum.HigherOrder)
	}
	if len(sum.TopTopics) > 0 {
		fmt.Println("Top topics:")
		for _, tc := range sum.TopTopics {
			fmt.Printf("  %-30s %d\n", tc.Topic, tc.Count)
		}
	}
}
