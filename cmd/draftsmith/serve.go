package main

import (
	"github.com/spf13/cobra"

	"github.com/ajfletch/draftsmith/internal/pipeline"
	"github.com/ajfletch/draftsmith/internal/server"
)

func serveCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.cfg.Server.Addr
			}
			pipe := pipeline.New(app.provider, app.telemetry, newLogger("[PIPELINE] "))
			srv := server.New(app.provider, app.ingestor, pipe, app.lib, app.telemetry, newLogger("[HTTP] "))
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
