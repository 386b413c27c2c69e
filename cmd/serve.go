// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/server"
)

var webAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway controller and its HTTP API",
	Long: `Run the full gateway: open the link to the radio board, decode and track
the fleet, and serve the JSON API plus the websocket event stream.

Examples:
  # Serial gateway with the default config
  botgate serve --port /dev/ttyACM0

  # Remote gateway over a websocket tunnel
  botgate serve --url wss://gateway.example/link --username admin`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&webAddress, "web-address", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if webAddress != "" {
		cfg.Web.Address = webAddress
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	gwAddr, err := cfg.GatewayAddress()
	if err != nil {
		return err
	}
	swarmID, err := cfg.SwarmID()
	if err != nil {
		return err
	}

	conn, desc, err := openConnection(cfg)
	if err != nil {
		return err
	}
	logger.Info("link open", "connection", desc)

	ctrl := gateway.New(gateway.Config{
		Address:         gwAddr,
		SwarmID:         swarmID,
		CalibrationPath: cfg.Gateway.CalibrationPath,
	}, conn, logger)
	srv := server.New(cfg.Web.Address, ctrl, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- ctrl.Run(ctx) }()
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		stop()
		// Let both loops wind down before reporting.
		<-errCh
		<-errCh
		return nil
	case err := <-errCh:
		stop()
		<-errCh
		return err
	}
}
