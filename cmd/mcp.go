package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/siteqa/siteqa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This allows Claude Code to run website tests and query stored results
natively. Configure in Claude Code with:

  {
    "mcpServers": {
      "siteqa": { "command": "siteqa", "args": ["mcp"] }
    }
  }

Available tools: siteqa_run_test, siteqa_get_result, siteqa_list_results,
siteqa_delete_result, siteqa_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		r, err := getRunner()
		if err != nil {
			return err
		}

		srv := mcpserver.NewServer(s, r)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
