package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/handler"
	appI18n "github.com/kagehq/kage/internal/i18n"
	"github.com/kagehq/kage/internal/llm"
	"github.com/kagehq/kage/internal/llm/prompts"
	"github.com/kagehq/kage/internal/metrics"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/report"
	"github.com/kagehq/kage/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kage",
		Short: "Psychometric assessment scoring and trait profiles",
	}

	serve := serveCmd()
	root.AddCommand(serve, scoreCmd(), catalogCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `kage --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "kage.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default report language (en, ja)")
	f.Bool("narrative", false, "Enable LLM narrative summaries (?narrative=1)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptPersonal), "Narrative prompt variant (personal, recruiter, coach)")
	f.Int("report-cache-size", 512, "Number of built reports kept in memory")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kage")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/kage")
	v.AddConfigPath("/etc/kage")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.RecordCatalogChecksum(cat.Checksum()); err != nil {
		return fmt.Errorf("record catalog checksum: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metrics.NewPrometheusObserver("kage", reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	cfg := model.ServerConfig{
		Lang:            lang,
		Narrative:       v.GetBool("narrative"),
		PromptVariant:   strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant"))),
		ReportCacheSize: v.GetInt("report-cache-size"),
	}

	opts := report.Options{CacheSize: cfg.ReportCacheSize, Observer: obs}
	if cfg.Narrative {
		narrator, err := newNarrator(cmd.Context(), v, cfg.PromptVariant)
		if err != nil {
			return err
		}
		opts.Narrator = narrator
	}
	svc, err := report.New(db, cat, opts)
	if err != nil {
		return fmt.Errorf("create report service: %w", err)
	}

	h := handler.New(db, cat, svc, obs, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"narrative", cfg.Narrative,
		"instruments", len(cat.Instruments()),
		"catalog_checksum", cat.Checksum(),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newNarrator connects to the LLM endpoint used for narrative summaries.
func newNarrator(ctx context.Context, v *viper.Viper, variant string) (*llm.Client, error) {
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using personal", "variant", variant)
		variant = string(prompts.PromptPersonal)
	}
	if err := prompts.Load(prompts.TemplateFS); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	client := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		prompts.PromptVariant(variant),
	)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"), "variant", variant)
	return client, nil
}
