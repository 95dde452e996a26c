package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/jwtgate/config"
	"github.com/layer-3/jwtgate/internal/app"
	"github.com/layer-3/jwtgate/internal/log"
)

var serveFlags struct {
	config    string
	port      int
	captcha   bool
	plaintext bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveFlags.config)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Port = serveFlags.port
		}
		if flags.Changed("captcha") {
			cfg.Captcha = serveFlags.captcha
		}
		if flags.Changed("plaintext") {
			cfg.Plaintext = serveFlags.plaintext
		}

		logger := log.New("gateway", !cfg.Production()).Level(log.ParseLevel(cfg.LogLevel))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gateway, err := app.New(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("init gateway: %w", err)
		}
		defer gateway.Close()

		srv := &http.Server{
			Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Port),
			Handler:      gateway.Router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlags.config, "config", "c", "", "path to a TOML config file")
	f.IntVarP(&serveFlags.port, "port", "p", 8000, "listen port")
	f.BoolVar(&serveFlags.captcha, "captcha", false, "require a captcha challenge on login")
	f.BoolVar(&serveFlags.plaintext, "plaintext", false, "compare passwords verbatim (testing only)")

	rootCmd.AddCommand(serveCmd)
}
