package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/profscope/internal/llm"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect model calls made during classification",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		calls, err := bank.ListLLMCalls(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(calls) == 0 {
			fmt.Println("No model calls recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-18s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 104))

		for _, c := range calls {
			ok := "✓"
			if !c.Success {
				ok = "✗"
			}
			model := c.Model
			if len(model) > 28 {
				model = model[:28]
			}
			fmt.Printf("%-5d  %-19s  %-18s  %-28s  %-6d  %-6d  %-7d  %s\n",
				c.ID,
				c.Timestamp.Local().Format("2006-01-02 15:04:05"),
				c.Purpose,
				model,
				c.InputTokens,
				c.OutputTokens,
				c.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request/response for one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		c, err := bank.GetLLMCall(cmd.Context(), id)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("call %d not found", id)
		}

		sep := strings.Repeat("─", 60)

		fmt.Printf("ID:        %d\n", c.ID)
		fmt.Printf("Time:      %s\n", c.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Provider:  %s\n", c.Provider)
		fmt.Printf("Model:     %s\n", c.Model)
		fmt.Printf("Purpose:   %s\n", c.Purpose)
		fmt.Printf("Tokens:    %d in / %d out\n", c.InputTokens, c.OutputTokens)
		fmt.Printf("Latency:   %dms\n", c.LatencyMs)
		fmt.Printf("Success:   %v\n", c.Success)
		if c.ErrorMessage != "" {
			fmt.Printf("Error:     %s\n", c.ErrorMessage)
		}

		fmt.Println()
		fmt.Println(sep)
		fmt.Println("REQUEST")
		fmt.Println(sep)
		if c.RequestBody != "" {
			fmt.Println(c.RequestBody)
		} else {
			fmt.Println("(not captured)")
		}

		fmt.Println(sep)
		fmt.Println("RESPONSE")
		fmt.Println(sep)
		if c.ResponseBody != "" {
			fmt.Println(c.ResponseBody)
		} else {
			fmt.Println("(not captured)")
		}

		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		bank, err := openBank(cmd)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer bank.Close()

		calls, err := bank.ListLLMCalls(cmd.Context(), 0)
		if err != nil {
			return err
		}

		if len(calls) == 0 {
			fmt.Println("No model calls recorded.")
			return nil
		}

		type agg struct {
			calls    int
			in, out  int
			failures int
		}
		byModel := make(map[string]*agg)
		for _, c := range calls {
			a, ok := byModel[c.Model]
			if !ok {
				a = &agg{}
				byModel[c.Model] = a
			}
			a.calls++
			a.in += c.InputTokens
			a.out += c.OutputTokens
			if !c.Success {
				a.failures++
			}
		}

		fmt.Printf("%-32s  %-6s  %-10s  %-10s  %-6s  %s\n",
			"Model", "Calls", "In", "Out", "Fail", "Est. cost")
		fmt.Println(strings.Repeat("─", 84))

		var totalCost float64
		costKnown := true
		for model, a := range byModel {
			costStr := "unknown"
			if c := llm.LookupCost(model); c != nil {
				cost := c.Cost(a.in, a.out)
				totalCost += cost
				costStr = fmt.Sprintf("$%.4f", cost)
			} else {
				costKnown = false
			}
			fmt.Printf("%-32s  %-6d  %-10d  %-10d  %-6d  %s\n",
				model, a.calls, a.in, a.out, a.failures, costStr)
		}

		if costKnown {
			fmt.Printf("\nTotal estimated cost: $%.4f\n", totalCost)
		}
		return nil
	},
}

func init() {
	llmListCmd.Flags().Int("limit", 50, "Max calls to list")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
