package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/api"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/config"
	"github.com/pdf-tools/backend/internal/session"
	"github.com/pdf-tools/backend/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Starts the PDF Tools page and session API.

Settings come from the XML config file, which is created with defaults on
first run. PORT and PDFTOOLS_* environment variables override the file.`,
		Example: `  # Start with pdftools.config in the working directory
  pdftools serve

  # Custom config and port
  pdftools serve --config /etc/pdftools/pdftools.config --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger := newLogger(cfg, os.Stderr)
			slog.SetDefault(logger)

			return runServer(cmd.Context(), cfg, configPath, logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")

	return cmd
}

func runServer(ctx context.Context, cfg *config.AppConfig, configPath string, logger *slog.Logger) error {
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	sessions := session.NewManager(session.Config{
		MaxSessions:  cfg.Processing.MaxSessions,
		ProcessDelay: cfg.ProcessDelay(),
		Catalog:      cat,
		Logger:       logger,
	})
	defer sessions.CloseAll()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.CleanupIdleSessions(cfg.SessionTimeout()); n > 0 {
					logger.Info("idle sessions removed", "count", n, "active", sessions.Len())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Catalog:  cat,
		Sessions: sessions,
		Upload: api.UploadSettings{
			Accept:   cfg.Upload.AcceptFilter,
			Multiple: cfg.Upload.AllowMultiple,
		},
		StreamTimeout: cfg.StreamTimeout(),
		Version:       Version,
		Logger:        logger,
	}))

	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "err", err)
			embeddedMode = false
		}
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(os.Stdout, cfg, configPath, cat.Len(), embeddedMode)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("PDF Tools available", "addr", server.Addr, "url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "err", err)
			return err
		}
		logger.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}
	return cat, nil
}

func newLogger(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Advanced.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func printBanner(w io.Writer, cfg *config.AppConfig, configPath string, tools int, embedded bool) {
	mode := "API only"
	if embedded {
		mode = "Embedded page"
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║           PDF Tools Server                                ║\n")
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Version:    %-45s║\n", Version)
	fmt.Fprintf(w, "║  Build Time: %-45s║\n", BuildTime)
	fmt.Fprintf(w, "║  Mode:       %-45s║\n", mode)
	fmt.Fprintf(w, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║  Config:    %-46s║\n", configPath)
	fmt.Fprintf(w, "║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Fprintf(w, "║  Tools:     %-46d║\n", tools)
	fmt.Fprintf(w, "║  Delay:     %-46s║\n", cfg.ProcessDelay())
	fmt.Fprintf(w, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(w, "\n")
}
