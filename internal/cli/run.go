package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forPelevin/annoset/internal/config"
	"github.com/forPelevin/annoset/internal/logging"
	"github.com/forPelevin/annoset/internal/pipeline"
	"github.com/spf13/cobra"
)

// session is what every project command runs against.
type session struct {
	cfg *config.Config
	p   *pipeline.Pipeline
}

func openSession(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")
	project, _ := cmd.Flags().GetString("project")
	level, _ := cmd.Flags().GetString("log-level")

	// Flags win over the environment, which wins over the file.
	cfg, resolved, exists, err := config.LoadWithOverrides(configPath, config.Overrides{
		ProjectPath: project,
		LogLevel:    level,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		logging.String("path", resolved),
		logging.Bool("exists", exists),
		logging.String("project", cfg.Project.Path),
		logging.String("backend", cfg.Index.Backend),
	)

	p, err := pipeline.Open(pipeline.FromConfig(cfg, logger))
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, p: p}, nil
}

func (s *session) Close() error { return s.p.Close() }

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// withSession opens the project, runs fn and releases the adapters.
func withSession(fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		return fn(ctx, cmd, s, args)
	}
}

func threadsFlag(cmd *cobra.Command, fallback int) int {
	if cmd.Flags().Changed("threads") {
		n, _ := cmd.Flags().GetInt("threads")
		return n
	}
	return fallback
}
