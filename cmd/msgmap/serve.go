package main

import (
	"os"
	"os/signal"
	"syscall"

	"msgmap/internal/platform"

	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		port     int
		headless bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the embedded NATS server, message consumers and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform.InitLogger(a.cfg.Flags.LogLevel)
			platform.InitMetrics()

			if cmd.Flags().Changed("port") {
				a.cfg.HTTPSrvCfg.Port = port
			}
			if cmd.Flags().Changed("headless") {
				a.cfg.Flags.Headless = headless
			}

			// the schema must load before anything starts
			reg, err := a.registry()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return platform.Run(ctx, a.cfg, reg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (overrides MSGMAP_HTTP_PORT)")
	cmd.Flags().BoolVar(&headless, "headless", false, "disable the HTTP API")
	return cmd
}
