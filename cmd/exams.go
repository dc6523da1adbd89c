package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/profscope/internal/memory"
)

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "List analyzed exams",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		records, err := bank.ListExams(cmd.Context(), memory.Filter{Limit: limit})
		if err != nil {
			return fmt.Errorf("list exams: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No exams analyzed yet.")
			return nil
		}

		fmt.Printf("%-24s  %-30s  %-10s  %-9s  %s\n",
			"Exam", "Title", "Date", "Questions", "Status")
		fmt.Println(strings.Repeat("─", 90))

		for _, rec := range records {
			date := "-"
			if !rec.DateAdministered.IsZero() {
				date = rec.DateAdministered.Format("2006-01-02")
			}
			status := "complete"
			if rec.PartiallyClassified {
				status = "partial"
			}
			id := rec.ExamID
			if len(id) > 24 {
				id = id[:24]
			}
			title := rec.Title
			if len(title) > 30 {
				title = title[:30]
			}
			fmt.Printf("%-24s  %-30s  %-10s  %-9d  %s\n",
				id, title, date, len(rec.Questions), status)
		}
		return nil
	},
}

func init() {
	examsCmd.Flags().Int("limit", 0, "Max exams to list (0 = all)")
}
