package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yuzuwvle/yuzuwhale/internal/config"
	"github.com/yuzuwvle/yuzuwhale/internal/digest"
	"github.com/yuzuwvle/yuzuwhale/internal/llm"
	"github.com/yuzuwvle/yuzuwhale/internal/pipeline"
	"github.com/yuzuwvle/yuzuwhale/internal/server"
	"github.com/yuzuwvle/yuzuwhale/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "yuzuwhale",
	Short:        "AI news sync for the Yuzu Whale site",
	Long:         "yuzuwhale pulls AI news from RSS feeds, summarizes each entry in Chinese with an LLM, and upserts the results into the news table.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path, os.Getenv)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("yuzuwhale", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/yuzuwhale/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds. Credentials are read from the environment or .env.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Sink:")
		fmt.Printf("  Kind: %s\n", cfg.Sink.Kind)
		switch cfg.Sink.Kind {
		case config.SinkSupabase:
			fmt.Printf("  URL: %s\n", cfg.Sink.SupabaseURL)
			fmt.Printf("  Service role key: %s\n", config.Mask(cfg.Sink.SupabaseKey))
		case config.SinkPostgres:
			fmt.Printf("  Database URL: %s\n", config.Mask(cfg.Sink.DatabaseURL))
		case config.SinkSQLite:
			fmt.Printf("  Path: %s\n", store.SQLitePath(cfg))
		}
		if err := cfg.ValidateSink(); err != nil {
			fmt.Printf("  Problem: %v\n", err)
		}

		fmt.Println("\nSummarization:")
		fmt.Printf("  Base URL: %s\n", cfg.Summarization.BaseURL)
		fmt.Printf("  Model: %s\n", cfg.Summarization.Model)
		fmt.Printf("  API key: %s\n", config.Mask(cfg.Summarization.APIKey))
		fmt.Printf("  Timeout: %ds\n", cfg.Summarization.TimeoutSeconds)

		fmt.Printf("\nFeeds (%d items each, full text %v):\n", cfg.ItemsPerFeed, cfg.FetchFullText)
		for _, s := range cfg.Sources {
			fmt.Printf("  %s %s  %s\n", s.Emoji, s.Name, s.URL)
		}
		return nil
	},
}

// --- sync command ---

var dryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch feeds, summarize new entries and upsert them",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Everything is checked before the first network call.
		if err := cfg.ValidateSync(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sink, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer sink.Close()

		pipe := pipeline.FromConfig(cfg, sink)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx)
		} else {
			result, err = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if verbose {
			for _, s := range result.Skipped {
				fmt.Printf("  skipped %s (%s): %v\n", s.URL, s.Source, s.Reason)
			}
		}
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Summarize but do not write anything")
}

// --- digest command ---

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print a short daily focus built from the latest news",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var provider llm.Provider
		summ := cfg.Summarization
		if openai := llm.NewOpenAIProvider(summ.BaseURL, summ.APIKey, summ.Model,
			time.Duration(summ.TimeoutSeconds)*time.Second); openai.IsConfigured() {
			provider = openai
		}

		if cfg.ValidateSink() != nil || !storeReachable(ctx) {
			log.Println("News store is not reachable, skipping digest")
			return nil
		}
		reader, err := openStore(ctx)
		if err != nil {
			log.Printf("Opening store: %v", err)
			return nil
		}
		defer reader.Close()

		records, err := reader.List(ctx, digest.MaxItems)
		if err != nil {
			log.Printf("Listing news: %v", err)
			return nil
		}

		if text := digest.NewGenerator(provider).Generate(ctx, records); text != "" {
			fmt.Println(text)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local news site",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSink(); err != nil {
			return err
		}
		reader, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer reader.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(reader, storeReachable, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

var reachability = store.NewReachability(time.Minute)

// storeReachable reports whether the configured remote store resolves.
// Local sinks are always reachable.
func storeReachable(ctx context.Context) bool {
	if cfg.Sink.Kind != config.SinkSupabase {
		return true
	}
	return reachability.Reachable(ctx, cfg.Sink.SupabaseURL)
}

func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg)
}
