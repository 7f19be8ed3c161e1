package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"jarstrings/internal/config"
	"jarstrings/internal/discovery"
	"jarstrings/internal/jar"
	"jarstrings/internal/session"
	"jarstrings/internal/strtable"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jarstrings",
	Short: "Find and rewrite string literals in JAR files",
	Long: `jarstrings scans every class in a JAR for string constants loaded by
ldc instructions, lets you search them, and writes a new JAR with edited
strings. Class names, member names and every other entry stay untouched.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Resolve(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err = setupLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $"+config.EnvPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func setupLogger(level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func sessionOptions() (session.Options, error) {
	mode, err := config.ParseMode(cfg.Scan.Mode)
	if err != nil {
		return session.Options{}, err
	}
	policy := session.PolicyFail
	if cfg.Save.OnError == config.OnErrorSkip {
		policy = session.PolicySkip
	}
	return session.Options{
		Discovery: discovery.Options{
			Include: cfg.Scan.Include,
			Exclude: cfg.Scan.Exclude,
			Mode:    mode,
			Logger:  logger,
		},
		Workers: cfg.Save.Workers,
		OnError: policy,
		Logger:  logger,
	}, nil
}

// openSession fetches the archive at url and runs discovery, printing
// progress to stderr.
func openSession(ctx context.Context, url string) (*session.Session, *jar.Archive, error) {
	data, err := jar.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	a, err := jar.Open(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", url, err)
	}
	logger.Debug("archive opened", "url", url, "bytes", a.Size(), "entries", len(a.Entries()))
	opts, err := sessionOptions()
	if err != nil {
		return nil, nil, err
	}
	s := session.New(opts)

	progress := discovery.SinkFuncs{
		OnProgress: func(done, total int) {
			if done == total || done%100 == 0 {
				fmt.Fprintf(os.Stderr, "\rscanning %d/%d classes", done, total)
			}
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	stats, err := s.Load(ctx, a, progress)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(os.Stderr, "found %d strings in %d classes (%d skipped)\n", stats.Strings, stats.Classes, stats.Skipped)
	return s, a, nil
}

func filterRows(s *session.Session, q strtable.Query) (session.FilterResult, error) {
	res, err := s.Filter(q)
	if err != nil {
		return res, err
	}
	logger.Debug("filter", "query", q.Text, "matched", len(res.Rows), "total", res.Total, "took", res.Took)
	return res, nil
}
