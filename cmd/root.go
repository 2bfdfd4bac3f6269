package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siteqa/siteqa/internal/artifacts"
	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/output"
	"github.com/siteqa/siteqa/internal/runner"
	"github.com/siteqa/siteqa/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "siteqa",
	Short: "AI-powered website testing",
	Long: `siteqa runs AI-generated browser tests against websites.
It asks a test engine to write a Playwright script for a URL, executes it,
and stores the outcome: bugs found, recommendations, logs, and screenshots.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/siteqa/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "siteqa")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SITEQA")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "siteqa")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "siteqa.db"))
	viper.SetDefault("engine.base_url", "http://localhost:5000")
	viper.SetDefault("engine.timeout_seconds", 300)
	viper.SetDefault("screenshots.dir", "uploads/screenshots")
	viper.SetDefault("screenshots.url_prefix", "/uploads/screenshots")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// The store is initialized lazily so config/version commands
	// can run without a db.
}

// rootRun handles `siteqa` with no subcommand: show stored results.
func rootRun(cmd *cobra.Command) error {
	if _, err := getStore(); err != nil {
		return cmd.Help()
	}
	return resultsListRun()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(rootCmd.Context()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// getEngine builds the test engine client from config.
func getEngine() *engine.Client {
	baseURL := viper.GetString("engine.base_url")
	timeout := time.Duration(viper.GetInt("engine.timeout_seconds")) * time.Second
	return engine.NewClient(baseURL, timeout)
}

// getSaver builds the screenshot saver from config.
func getSaver() *artifacts.Saver {
	return artifacts.NewSaver(
		viper.GetString("screenshots.dir"),
		viper.GetString("screenshots.url_prefix"),
	)
}

// getRunner wires the full test pipeline: engine, store, screenshots.
func getRunner() (*runner.Runner, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}
	return runner.New(getEngine(), s, getSaver()), nil
}
