package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quiz-portal-client/internal/config"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "quiz-client",
		Short:        "Client for the quiz portal: author, take and review timed quizzes",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port for the browser bridge (serve)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")

	cmd.AddCommand(
		NewLoginCmd(&configPath),
		NewRegisterCmd(&configPath),
		NewLogoutCmd(&configPath),
		NewWhoAmICmd(&configPath),
		NewJoinCmd(&configPath),
		NewTakeCmd(&configPath),
		NewQuizCmd(&configPath),
		NewHistoryCmd(&configPath),
		NewResultCmd(&configPath),
		NewLeaderboardCmd(&configPath),
		NewServeCmd(&configPath, &port),
		NewMigrateCmd(&configPath),
	)
	return cmd
}

// withRuntime loads config, wires the client and runs fn with it.
func withRuntime(configPath *string, fn func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		rt, err := newRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, cmd, rt, args)
	}
}
