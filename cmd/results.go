package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siteqa/siteqa/internal/models"
	"github.com/siteqa/siteqa/internal/output"
	"github.com/siteqa/siteqa/internal/stats"
)

var resultFormat string

var resultsCmd = &cobra.Command{
	Use:     "results",
	Aliases: []string{"result"},
	Short:   "Manage stored test results",
	Long: `List, inspect, and delete stored test results.

Running bare 'siteqa results' is the same as 'siteqa results list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return resultsListRun()
	},
}

var resultsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List test results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resultsListRun()
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <result-id>",
	Short: "Show a test result in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resultsShowRun(args[0])
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:     "delete <result-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a test result",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resultsDeleteRun(args[0])
	},
}

var resultsSummarizeCmd = &cobra.Command{
	Use:   "summarize <result-id>",
	Short: "Summarize a test result with Claude",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resultsSummarizeRun(args[0])
	},
}

func init() {
	resultsShowCmd.Flags().StringVar(&resultFormat, "format", "text", "Output format: text, json, markdown")

	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
	resultsCmd.AddCommand(resultsSummarizeCmd)
	rootCmd.AddCommand(resultsCmd)
}

func resultsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	results, err := s.ListResults(ctx)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		ui.Info("No test results yet. Use 'siteqa run <url>' to run a test.")
		return nil
	}

	table := ui.Table([]string{"ID", "Website", "Status", "Duration", "Bugs", "Recs", "Shots", "When"})
	for _, r := range results {
		_ = table.Append([]string{
			shortID(r.ID),
			r.WebsiteURL,
			output.StatusColor(string(r.Status)),
			r.Duration,
			fmt.Sprintf("%d", len(r.Bugs)),
			fmt.Sprintf("%d", len(r.Recommendations)),
			fmt.Sprintf("%d", len(r.Screenshots)),
			timeAgo(r.CreatedAt),
		})
	}
	_ = table.Render()

	sum := stats.Summarize(results)
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "  %d runs: %s passed, %s failed, %d processing (%d%% pass rate)\n",
		sum.Total,
		output.Green(fmt.Sprintf("%d", sum.Passed)),
		output.Red(fmt.Sprintf("%d", sum.Failed)),
		sum.Processing,
		sum.PassRate,
	)
	return nil
}

func resultsShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	result, err := s.GetResult(context.Background(), id)
	if err != nil {
		return err
	}

	switch resultFormat {
	case "text":
		renderResult(result)
		return nil
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "markdown":
		renderResultMarkdown(result)
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: text, json, markdown)", resultFormat)
	}
}

func resultsDeleteRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if err := s.DeleteResult(context.Background(), id); err != nil {
		return err
	}

	ui.Success("Deleted test result %s", output.Cyan(id))
	return nil
}

func resultsSummarizeRun(id string) error {
	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	result, err := s.GetResult(ctx, id)
	if err != nil {
		return err
	}

	ui.VerboseLog("Summarizing result %s with %s", id, result.WebsiteURL)

	summary, err := client.SummarizeResult(ctx, result)
	if err != nil {
		return fmt.Errorf("summarize result: %w", err)
	}

	fmt.Fprintln(ui.Out, summary)
	return nil
}

// renderResult prints a full test result in the detail format shared
// by 'run' and 'results show'.
func renderResult(r *models.TestResult) {
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(r.ID), output.StatusColor(string(r.Status)))
	fmt.Fprintf(ui.Out, "  Website:   %s\n", r.WebsiteURL)
	fmt.Fprintf(ui.Out, "  Duration:  %s (%s)\n", r.Duration, r.Browser)
	fmt.Fprintf(ui.Out, "  Started:   %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	if r.CompletedAt != nil {
		fmt.Fprintf(ui.Out, "  Completed: %s\n", r.CompletedAt.Format("2006-01-02 15:04:05"))
	}

	if len(r.Bugs) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Bugs (%d):\n", len(r.Bugs))
		for _, b := range r.Bugs {
			fmt.Fprintf(ui.Out, "    [%s] %s\n", output.SeverityColor(b.Severity), b.Title)
			if b.Description != "" {
				fmt.Fprintf(ui.Out, "        %s\n", b.Description)
			}
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Recommendations (%d):\n", len(r.Recommendations))
		for _, rec := range r.Recommendations {
			fmt.Fprintf(ui.Out, "    [%s/%s] %s\n", output.ImpactColor(string(rec.Impact)), rec.Category, rec.Title)
			if rec.Description != "" {
				fmt.Fprintf(ui.Out, "        %s\n", rec.Description)
			}
		}
	}

	if len(r.Screenshots) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Screenshots (%d):\n", len(r.Screenshots))
		for _, shot := range r.Screenshots {
			fmt.Fprintf(ui.Out, "    %s  %s\n", shot.URL, shot.Caption)
		}
	}

	if ui.Verbose && len(r.Logs) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Logs (%d):\n", len(r.Logs))
		for _, line := range r.Logs {
			fmt.Fprintf(ui.Out, "    %s\n", line)
		}
	}
}

func renderResultMarkdown(r *models.TestResult) {
	fmt.Fprintf(ui.Out, "# Test Result: %s\n", r.WebsiteURL)
	fmt.Fprintln(ui.Out)
	fmt.Fprintf(ui.Out, "- **ID**: %s\n", r.ID)
	fmt.Fprintf(ui.Out, "- **Status**: %s\n", r.Status)
	fmt.Fprintf(ui.Out, "- **Duration**: %s (%s)\n", r.Duration, r.Browser)
	fmt.Fprintf(ui.Out, "- **Started**: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

	if len(r.Bugs) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "## Bugs")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Severity | Title | Description |")
		fmt.Fprintln(ui.Out, "|----------|-------|-------------|")
		for _, b := range r.Bugs {
			fmt.Fprintf(ui.Out, "| %s | %s | %s |\n", b.Severity, b.Title, b.Description)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "## Recommendations")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Impact | Category | Title | Description |")
		fmt.Fprintln(ui.Out, "|--------|----------|-------|-------------|")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s |\n", rec.Impact, rec.Category, rec.Title, rec.Description)
		}
	}

	if len(r.Screenshots) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "## Screenshots")
		fmt.Fprintln(ui.Out)
		for _, shot := range r.Screenshots {
			fmt.Fprintf(ui.Out, "- [%s](%s)\n", shot.Caption, shot.URL)
		}
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
