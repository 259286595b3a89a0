package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/handler"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/fakeapi"
)

const shutdownTimeout = 10 * time.Second

// listenAndServe runs srv until ctx is cancelled, then shuts it down gracefully.
func listenAndServe(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local view server",
		Long: `serve exposes the client as JSON pages on localhost: /login, /transactions,
/budgets and the dashboard at /, behind the session stored by "mybudget login".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = cfg.Port
			}
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      handler.NewRouter(application),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			return listenAndServe(cmd.Context(), srv, application.Logger.With(zap.String("api_url", cfg.APIURL)))
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "port of the view server")
	return cmd
}

func statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show client counters from a running view server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf("http://localhost:%d", cfg.Port)
			}

			var m domain.ClientMetrics
			if err := fetchStatus(cmd.Context(), strings.TrimSuffix(addr, "/")+"/status", &m); err != nil {
				application.Logger.Debug("view server unreachable, showing local counters", zap.Error(err))
				m = *application.Metrics.Snapshot()
			}
			if format == jsonOutputFormat {
				return outputJSON(m)
			}

			t := createStyledTable("COUNTER", "VALUE")
			t.Row("api requests", fmt.Sprint(m.APIRequests))
			for kind, n := range m.APIErrors {
				t.Row("api errors ("+kind+")", fmt.Sprint(n))
			}
			t.Row("logins", fmt.Sprint(m.SessionLogins))
			t.Row("logouts", fmt.Sprint(m.SessionLogouts))
			t.Row("revoked sessions", fmt.Sprint(m.SessionRevoked))
			t.Row("stale results", fmt.Sprint(m.StaleResults))
			t.Row("category cache hit rate", fmt.Sprintf("%.0f%%", m.CategoryCacheRate*100))
			fmt.Println(t)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "view server URL (default: http://localhost:<port>)")
	return cmd
}

func fetchStatus(ctx context.Context, url string, out *domain.ClientMetrics) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fakeAPICmd() *cobra.Command {
	var (
		addr  string
		seeds []string
	)
	cmd := &cobra.Command{
		Use:    "fake-api",
		Short:  "Run an in-memory budgeting API for local development",
		Hidden: true,
		Example: `  mybudget fake-api --addr :8000 --seed alice:correct-horse
  mybudget --api-url http://localhost:8000/api login -u alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := application.Logger.Named("fakeapi")
			api := fakeapi.New(logger)
			for _, seed := range seeds {
				user, pass, ok := strings.Cut(seed, ":")
				if !ok || user == "" || pass == "" {
					return fmt.Errorf("invalid --seed %q (want user:password)", seed)
				}
				if _, err := api.SeedUser(user, pass); err != nil {
					return fmt.Errorf("seed %s: %w", user, err)
				}
				logger.Info("user seeded", zap.String("username", user))
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			return listenAndServe(cmd.Context(), srv, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().StringArrayVar(&seeds, "seed", nil, "user:password to create at start, repeatable")
	return cmd
}
