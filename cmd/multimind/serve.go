package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dheena017/multimind/pkg/api"
	"github.com/dheena017/multimind/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		addr   string
		budget float64
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Starts the HTTP API. Set server.token_hash in config.yaml (or
MULTIMIND_TOKEN_HASH) to a hash from "multimind token hash" to require a
bearer token. The panel file is reloaded when it changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(budget)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if a.cfg.Server.TokenHash == "" {
				logger.Warn("API auth disabled; set server.token_hash to require a bearer token")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch {
				if _, err := os.Stat(a.cfg.PanelPath); err == nil {
					go func() {
						err := config.Watch(ctx, a.cfg.PanelPath, 250*time.Millisecond, logger, func(p *config.PanelConfig) {
							a.engine.SetPanel(a.aliases.ResolvePanel(p))
						})
						if err != nil {
							logger.Warn("panel watcher stopped", zap.Error(err))
						}
					}()
				}
			}

			srv := &http.Server{
				Addr: addr,
				Handler: api.NewHandler(api.Deps{
					Engine:    a.engine,
					TokenHash: a.cfg.Server.TokenHash,
					Logger:    logger,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", zap.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return a.engine.SaveLedger()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8787)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "max estimated spend in USD per query (0 = unlimited)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the panel file when it changes")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API bearer token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash [token]",
		Short: "Print the bcrypt hash to store as server.token_hash",
		Long:  "Hashes the token given as an argument, or read from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return errors.New("token must not be empty")
			}
			hash, err := api.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}
