package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"entitymatch/internal/config"
	"entitymatch/internal/pipeline"
	"entitymatch/internal/tui"
)

var (
	cfgPath string
	workers int
	reuse   bool
	topK    int
)

var rootCmd = &cobra.Command{
	Use:   "entitymatch",
	Short: "Trigram TF-IDF fuzzy entity matching",
	Long: `Builds a character trigram TF-IDF index over a master table and matches
candidate records to their most similar master record.`,
	SilenceUsage: true,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Fit the vectorizer on the master table and write the index table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *pipeline.Service, _ *config.AppConfig) error {
			summary, err := svc.BuildIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d records (%d trigrams, persisted=%t) in %s\n",
				summary.Records, summary.Vocabulary, summary.Persisted, summary.Duration)
			return nil
		})
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match the candidate table against the master records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *pipeline.Service, _ *config.AppConfig) error {
			summary, err := svc.MatchEntities(ctx)
			if err != nil {
				return err
			}
			printMatchSummary(summary)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the index and match candidates in one go",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *pipeline.Service, _ *config.AppConfig) error {
			if _, err := svc.BuildIndex(ctx); err != nil {
				return err
			}
			summary, err := svc.MatchEntities(ctx)
			if err != nil {
				return err
			}
			printMatchSummary(summary)
			return nil
		})
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Interactively search the master records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *pipeline.Service, cfg *config.AppConfig) error {
			lookup, err := svc.Lookup(ctx)
			if err != nil {
				return err
			}
			k := cfg.Matcher.TopK
			if topK > 0 {
				k = topK
			}
			_, err = tea.NewProgram(tui.New(lookup, k), tea.WithAltScreen()).Run()
			return err
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "entitymatch.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Default configuration written to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (uses ./entitymatch.yaml or ~/.config/entitymatch/config.yaml if not provided)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of matching workers (overrides config)")

	matchCmd.Flags().BoolVar(&reuse, "reuse", false, "Reuse the persisted vectorizer and matrix instead of refitting")
	lookupCmd.Flags().IntVarP(&topK, "top", "k", 0, "Number of matches to show")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(indexCmd, matchCmd, runCmd, lookupCmd, configCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	if cfgPath == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(cfgPath)
}

// withService loads the config, wires storage and runs fn.
func withService(ctx context.Context, fn func(context.Context, *pipeline.Service, *config.AppConfig) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if workers > 0 {
		cfg.Matcher.Workers = workers
	}
	if reuse {
		cfg.Matcher.ReuseArtifacts = true
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	artifacts, err := openArtifacts(ctx, cfg)
	if err != nil {
		return err
	}

	svc := pipeline.NewService(provider, artifacts, cfg, logger.WithField("service", "entitymatch"))
	if err := fn(ctx, svc, cfg); err != nil {
		logger.WithError(err).Error("Step failed")
		return err
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}
	return logger, nil
}

func printMatchSummary(s *pipeline.MatchSummary) {
	fmt.Printf("Matched %d candidates against %d master records in %s\n", s.Candidates, s.Master, s.Duration)
	fmt.Printf("  exact: %d  no overlap: %d  mean score: %.3f  reused artifacts: %t\n",
		s.Exact, s.NoOverlap, s.MeanScore, s.Reused)
}
