package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phantomx-ai/phantomx/internal/auth"
	"github.com/phantomx-ai/phantomx/internal/config"
	"github.com/phantomx-ai/phantomx/internal/logger"
	"github.com/phantomx-ai/phantomx/internal/server"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the PhantomX HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log := logger.New(cfg.Logging, "phantomx")

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		authz, err := auth.NewFromConfig(cfg.Auth)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}

		a, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}

		srv := server.New(cfg, authz, a.pipeline, log)

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting PhantomX", logger.Fields("addr", addr, "auth", authz.Enabled(), "storage", cfg.Storage.Backend))
			errCh <- srv.Start(addr)
		}()

		select {
		case err = <-errCh:
		case <-ctx.Done():
			log.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.WithError(serr).Warn("http shutdown")
		}
		a.close(shutdownCtx, log)
		return err
	},
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.Options{ConfigFile: path, EnvFile: envFile})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
