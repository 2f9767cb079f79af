package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sembiance/webrouter"
	exchange "github.com/Sembiance/webrouter/webrouter-exchange"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "webrouter",
	Short:         "Serve text, JSON, file and template routes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server with the demo routes",
	RunE:  runServe,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the registered route table and exit",
	RunE:  runRoutes,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	serveCmd.Flags().String("host", "", "address to bind")
	serveCmd.Flags().Int("port", 0, "port to listen on")
	serveCmd.Flags().Duration("idle-timeout", 0, "close keep-alive connections idle this long (0 = never)")
	serveCmd.Flags().String("templates", "", "directory holding the templates")
	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(serveCmd, routesCmd)
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, flag := range map[string]string{
		"host":         "host",
		"port":         "port",
		"idle_timeout": "idle-timeout",
		"templates":    "templates",
		"metrics.addr": "metrics-addr",
	} {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// setup builds the router from the resolved config. A non-empty uploadDir replaces
// the configured one.
func setup(cmd *cobra.Command, ctx context.Context, reg prometheus.Registerer, uploadDir string) (*webrouter.Router, *Config, error) {
	v := newViper()
	if err := bindFlags(v, cmd); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(v, configFile)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	opts := webrouter.Options{
		UploadDir:        cfg.Uploads.Dir,
		MaxFieldsSize:    cfg.Uploads.MaxFieldsSize,
		MaxFileSize:      cfg.Uploads.MaxFileSize,
		StripExtensions:  cfg.Uploads.StripExtensions,
		DisableCache:     cfg.DisableCache,
		Logger:           logger,
		LogRequestsLevel: cfg.Log.Requests,
		Metrics:          reg,
		Database:         cfg.databaseConfiguration(),
	}
	if uploadDir != "" {
		opts.UploadDir = uploadDir
	}
	if key, ok := exchange.KeyFromEnvironment(); ok {
		opts.CookieSecret = key
	}

	router, err := webrouter.NewInlineRouter(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	registerDemoRoutes(router, cfg.Templates)
	return router, cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()
	router, cfg, err := setup(cmd, ctx, reg, "")
	if err != nil {
		return err
	}
	defer router.Close()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, router.Logger, cfg.Metrics.Addr, reg)
	}

	fmt.Println("Tests:")
	fmt.Printf("\thttp://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("\thttp://%s:%d/testjson\n", cfg.Host, cfg.Port)

	return router.Listen(cfg.Port, cfg.Host, cfg.IdleTimeout)
}

func runRoutes(cmd *cobra.Command, _ []string) error {
	// nothing is uploaded while listing, so the upload dir only lives for this call
	uploadDir, err := os.MkdirTemp("", "webrouter-routes-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(uploadDir)

	router, _, err := setup(cmd, context.Background(), nil, uploadDir)
	if err != nil {
		return err
	}
	defer router.Close()
	router.Routes.PrintTree(cmd.OutOrStdout())
	return nil
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}
