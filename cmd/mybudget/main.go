// Command mybudget is the client of the budgeting API: a CLI over the same
// session, forms and views as the local view server it can start.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/app"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/config"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
)

var (
	cfgFile string
	version = "dev"

	// set by initConfig for every command that needs the client
	cfg            *config.Config
	application    *app.App
	shutdownTracer func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "mybudget",
		Short: "Personal budgeting from the terminal",
		Long: `mybudget talks to the budgeting API: sign in, record income and
expenses, and follow your budgets per category and period.`,
		Version:            version,
		SilenceUsage:       true,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: closeApp,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/mybudget/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "budgeting API base URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", tableOutputFormat, "output format: table or json")

	_ = viper.BindPFlag(config.KeyAPIURL, rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(fakeAPICmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// annotationSession marks commands that need a signed-in session.
const annotationSession = "session"

func requiresSession(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationSession] == "required" {
			return true
		}
	}
	return false
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.LogLevel)
	logger.Debug("configuration loaded",
		zap.String("api_url", cfg.APIURL),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
	)

	shutdownTracer, err = observability.InitTracer(cfg.OTLPEndpoint, "mybudget")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	application, err = app.New(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	if requiresSession(cmd) && !application.Sessions.IsAuthenticated() {
		return errors.New("not signed in, run: mybudget login -u <username>")
	}
	return nil
}

func closeApp(*cobra.Command, []string) error {
	if shutdownTracer != nil {
		_ = shutdownTracer(context.Background())
	}
	if application != nil {
		application.Close()
	}
	return nil
}
