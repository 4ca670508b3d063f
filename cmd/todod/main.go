// Package main is the entry point for the todod server.
//
// todod serves a single-page todo list and a JSON API backed by a SQLite
// file. Configuration is read from an optional YAML file, TODOD_*
// environment variables, and CLI flags, in increasing order of precedence.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/maruel/todod/internal/config"
	"github.com/maruel/todod/internal/server"
	"github.com/maruel/todod/internal/server/ipgeo"
	"github.com/maruel/todod/internal/server/ratelimit"
	"github.com/maruel/todod/internal/storage"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "todod: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	fs := flag.CommandLine
	version := fs.Bool("version", false, "Print version and exit")
	configPath := fs.String("config", "", "YAML configuration file (default: todod.yaml next to the executable, ignored if missing)")
	fs.String("http", "", "Address to listen on (default 127.0.0.1:8001)")
	fs.String("db", "", "SQLite database file; relative paths are resolved next to the executable (default todos.db)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	slog.SetDefault(newLogger(colorable.NewColorable(os.Stderr), ll, !isatty.IsTerminal(os.Stderr.Fd()), underSystemd))

	if *configPath == "" {
		dir, err := config.ExecutableDir()
		if err != nil {
			return fmt.Errorf("failed to locate executable: %w", err)
		}
		*configPath = filepath.Join(dir, "todod.yaml")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := overrideFromFlags(fs, cfg); err != nil {
		return err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	ll.Set(level)

	dbPath, err := config.ResolveDBPath(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	store, err := storage.NewTodoStore(storage.Config{Path: dbPath})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.InfoContext(ctx, "Database ready", "path", store.Path())

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	srvCfg := &server.Config{
		Version:             buildVersion,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		Limiters: ratelimit.New(
			ratelimit.TierConfig{PerMinute: cfg.RateLimits.Read.PerMinute, Burst: cfg.RateLimits.Read.Burst},
			ratelimit.TierConfig{PerMinute: cfg.RateLimits.Write.PerMinute, Burst: cfg.RateLimits.Write.Burst},
		),
	}
	defer func() { _ = srvCfg.Close() }()
	if cfg.GeoDB != "" {
		srvCfg.IPGeo, err = ipgeo.Open(cfg.GeoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		slog.InfoContext(ctx, "IP geolocation enabled", "db", cfg.GeoDB)
	}

	router, err := server.NewRouter(store, srvCfg)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTP,
		Handler:           router,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.HTTP, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	// Wait for either context cancellation or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// overrideFromFlags copies the flags explicitly set on the command line into
// cfg and validates the result.
func overrideFromFlags(fs *flag.FlagSet, cfg *config.Config) error {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "http":
			cfg.HTTP = v
		case "db":
			cfg.DB = v
		case "log-level":
			cfg.LogLevel = v
		case "geo-db":
			cfg.GeoDB = v
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level slog.Leveler, noColor, underSystemd bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:     noColor,
		ReplaceAttr: replaceAttr(underSystemd),
	}))
}

// replaceAttr drops zero values and localhost IPs, and the timestamp when
// journald already adds one.
func replaceAttr(underSystemd bool) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		if a.Key == "ip" {
			if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
				return slog.Attr{}
			}
		}
		skip := false
		switch t := a.Value.Any().(type) {
		case string:
			skip = t == ""
		case bool:
			skip = !t
		case uint64:
			skip = t == 0
		case int64:
			skip = t == 0
		case float64:
			skip = t == 0
		case time.Time:
			skip = t.IsZero()
		case time.Duration:
			skip = t == 0
		case nil:
			skip = true
		}
		if skip {
			return slog.Attr{}
		}
		return a
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("todod %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected. Binaries started by
// "go run" are not watched.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	if strings.Contains(exe, "go-build") {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
