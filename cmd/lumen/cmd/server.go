package cmd

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
	"github.com/spf13/cobra"

	"github.com/lumenjournal/lumen/api"
	"github.com/lumenjournal/lumen/auth"
	"github.com/lumenjournal/lumen/config"
	"github.com/lumenjournal/lumen/docstore"
	boltstore "github.com/lumenjournal/lumen/docstore/bolt"
	"github.com/lumenjournal/lumen/docstore/memory"
	notionstore "github.com/lumenjournal/lumen/docstore/notion"
	"github.com/lumenjournal/lumen/upload"
	"github.com/lumenjournal/lumen/web"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the journal server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := newLogger(cfg.Log)

		gate, err := buildGate(cfg, logger)
		if err != nil {
			return err
		}

		store, closeStore, err := buildStore(cfg)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore()
		}

		sink, err := buildSink(cfg)
		if err != nil {
			return err
		}

		webHandler, err := web.Handler()
		if err != nil {
			return err
		}

		a := api.New(gate, store,
			api.WithLogger(logger),
			api.WithUploads(sink, upload.Limits{
				MaxBytes:  cfg.Upload.MaxFileSize,
				ImageExts: cfg.ImageExtensionList(),
				VideoExts: cfg.VideoExtensionList(),
			}),
			api.WithBaseURL(cfg.Server.BaseURL),
			api.WithUploadDir(cfg.Upload.Dir),
			api.WithWeb(webHandler),
		)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		logger.Info("server started",
			"addr", server.Addr,
			"store", cfg.Store.Backend,
			"environment", cfg.Server.Environment,
			"password_configured", cfg.Auth.AccessPassword != "",
		)
		if cfg.Auth.AccessPassword == "" {
			logger.Warn("no access password configured; all protected paths refuse requests")
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func buildGate(cfg *config.Config, logger *slog.Logger) (*auth.Gate, error) {
	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		// config.Validate rejects this in production.
		logger.Warn("no signing key configured; using the development fallback key")
		signingKey = auth.DevSigningKey()
	}
	codec, err := auth.NewTokenCodec(signingKey, cfg.SessionLifetime())
	if err != nil {
		return nil, fmt.Errorf("building token codec: %w", err)
	}

	cookie := auth.CookieTransport{Production: cfg.IsProduction()}
	var transport auth.SessionTransport = cookie
	if cfg.Auth.Transport == "mirrored" {
		transport = auth.MirroredTransport{CookieTransport: cookie}
	}

	return auth.NewGate(auth.NewCredentials(cfg.Auth.AccessPassword), codec, transport), nil
}

func buildStore(cfg *config.Config) (docstore.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "notion":
		return notionstore.New(cfg.Store.NotionAPIKey, cfg.Store.NotionDatabaseID), nil, nil
	case "local":
		if err := os.MkdirAll(cfg.Store.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := boltstore.Open(cfg.Store.DataDir + "/moments.db")
		if err != nil {
			return nil, nil, fmt.Errorf("opening local store: %w", err)
		}
		return s, s.Close, nil
	case "memory":
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildSink(cfg *config.Config) (upload.Sink, error) {
	if cfg.Upload.ToNotion {
		if cfg.Store.NotionAPIKey == "" {
			return nil, fmt.Errorf("upload.to_notion requires NOTION_API_KEY")
		}
		return upload.NewNotionSink(cfg.Store.NotionAPIKey), nil
	}
	return upload.NewDiskSink(cfg.Upload.Dir)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
