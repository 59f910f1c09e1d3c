package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/governed-notebook/routes"
	"go.uber.org/zap"
)

// NewServeCommand creates the HTTP gateway command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP",
		Long: `Serve one governed session over HTTP for the notebook hub.

POST /api/v1/cells executes a cell. The /api/v1/audit endpoints read the
session user's execution history. Requests need a bearer token signed with
KERNEL_TOKEN_SECRET whose subject is the session user.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, rootOpts)
		},
	}
}

func serve(cmd *cobra.Command, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer closeDeps(context.Background(), deps, cmd.ErrOrStderr())

	cfg := deps.Config.Server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("kernel gateway listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	deps.Logger.Info("shutting down kernel gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "graceful shutdown failed", err)
	}
	return nil
}
