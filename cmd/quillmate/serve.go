package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillmate/plugin/ai/session"
	"github.com/hrygo/quillmate/server/middleware"
	apiv1 "github.com/hrygo/quillmate/server/router/api/v1"
)

// requestsPerMinute bounds API requests per caller.
const requestsPerMinute = 120

var serveViper = viper.New()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the companion API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(serveViper)
		if err != nil {
			return err
		}
		if p.Secret == "" {
			return errors.New("secret is required to sign owner tokens")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, p)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.registry.WarmTaskClient(ctx, p.Task.RequireCharacter); err != nil {
			return errors.Wrap(err, "failed to prepare the task client")
		}

		sweeper := session.NewSweeper(a.sessions, p.Session.SweepInterval)
		sweeper.Start(ctx)
		defer sweeper.Stop()

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.GET("/healthz", func(c echo.Context) error {
			return c.String(http.StatusOK, "ok")
		})
		apiv1.NewAPIV1Service(p.Secret, a.companion, middleware.NewRateLimiter(requestsPerMinute, requestsPerMinute/4)).RegisterRoutes(e)

		addr := fmt.Sprintf("%s:%d", p.Addr, p.Port)
		errCh := make(chan error, 1)
		go func() {
			slog.Info("quillmate listening", "addr", addr, "mode", p.Mode, "driver", p.Driver, "redis", p.UsesRedis())
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "address of server")
	serveCmd.Flags().Int("port", 8081, "port of server")
	serveCmd.Flags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	serveCmd.Flags().String("data", ".", "data directory")
	serveCmd.Flags().String("driver", "sqlite", "database driver")
	serveCmd.Flags().String("dsn", "", "database source name")
	for _, name := range []string{"addr", "port", "mode", "data", "driver", "dsn"} {
		_ = serveViper.BindPFlag(name, serveCmd.Flags().Lookup(name))
	}
}
