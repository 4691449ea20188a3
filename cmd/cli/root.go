package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	api "miinplanner-backend/cmd/api"
	"miinplanner-backend/pkg/config"
	"miinplanner-backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the miinplanner command tree
func NewRootCommand() *cobra.Command {
	e := &env{}
	var storeDriver string

	root := &cobra.Command{
		Use:           "miinplanner",
		Short:         "MiinPlanner backend",
		Long:          "MiinPlanner backend: the planner API server and task space maintenance tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.cfg = config.Load()
			if storeDriver != "" {
				e.cfg.StoreDriver = storeDriver
			}
			log, err := logger.New(e.cfg.Env, e.cfg.LogLevel)
			if err != nil {
				return err
			}
			e.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&storeDriver, "store", "", "override STORE_DRIVER (firestore, postgres or sqlite)")

	root.AddCommand(newServeCommand(e), newSpaceCommand(e))
	return root
}

func newServeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, reminder scheduler and notification worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := api.NewServer(ctx, e.cfg, e.log)
			if err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			return srv.Run(ctx)
		},
	}
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
