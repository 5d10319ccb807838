package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storewise/storewise/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the question-answering API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			srv := server.New(rt.pipeline, cfg.Listen, logger)
			return srv.ListenAndServe(ctx)
		},
	}
}
