package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/siteqa/siteqa/internal/engine"
)

var (
	runUsername         string
	runPassword         string
	runRequirements     []string
	runRequirementsFile string
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Run an AI-generated test against a website",
	Long: `Generate and execute a browser test for the given URL.

The test engine writes a Playwright script for the site, runs it, and
siteqa stores the result: status, logs, bugs, recommendations, and
screenshots. The command blocks until the run completes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runUsername, "username", "", "Login username for the site")
	runCmd.Flags().StringVar(&runPassword, "password", "", "Login password for the site")
	runCmd.Flags().StringArrayVar(&runRequirements, "requirement", nil, "Test requirement as key=value (repeatable)")
	runCmd.Flags().StringVar(&runRequirementsFile, "requirements-file", "", "YAML file with test requirements")
	rootCmd.AddCommand(runCmd)
}

func runRun(url string) error {
	r, err := getRunner()
	if err != nil {
		return err
	}

	req := engine.TestRequest{URL: url}

	if runUsername != "" || runPassword != "" {
		req.Credentials = &engine.Credentials{Username: runUsername, Password: runPassword}
	}

	reqs, err := buildRequirements()
	if err != nil {
		return err
	}
	req.TestRequirements = reqs

	ui.Info("Running test against %s ...", url)

	result, err := r.Run(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out)
	renderResult(result)
	return nil
}

// buildRequirements merges --requirements-file and --requirement flags,
// with individual flags taking precedence over file entries.
func buildRequirements() (map[string]any, error) {
	reqs := make(map[string]any)

	if runRequirementsFile != "" {
		data, err := os.ReadFile(runRequirementsFile)
		if err != nil {
			return nil, fmt.Errorf("read requirements file: %w", err)
		}
		if err := yaml.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("parse requirements file: %w", err)
		}
	}

	for _, kv := range runRequirements {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid requirement %q: expected key=value", kv)
		}
		reqs[key] = value
	}

	if len(reqs) == 0 {
		return nil, nil
	}
	return reqs, nil
}
