package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/vilaca/branch-dashboard/internal/config"
	"github.com/vilaca/branch-dashboard/internal/dashboard"
	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
	"github.com/vilaca/branch-dashboard/internal/fixture"
	"github.com/vilaca/branch-dashboard/internal/live"
	applog "github.com/vilaca/branch-dashboard/internal/logger"
	"github.com/vilaca/branch-dashboard/internal/service"
	"github.com/vilaca/branch-dashboard/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "branch-dashboard",
		Short:         "Branch build status dashboard",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (default $CONFIG_FILE or "+config.DefaultConfigFile+")")

	root.AddCommand(newServeCmd(&configPath), newListCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// loadBranches reads the override fixture if configured, otherwise the bundled one.
// Skipped records are logged; an unreadable document is returned as an error.
func loadBranches(cfg *config.Config, loc *time.Location, logger *slog.Logger) ([]domain.Branch, error) {
	var (
		res fixture.Result
		err error
	)
	if cfg.HasFixtureOverride() {
		res, err = fixture.LoadFile(cfg.Fixture.Path, loc)
	} else {
		res, err = fixture.Default(loc)
	}
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	for _, skipped := range res.Skipped {
		logger.Warn("skipping fixture record", "index", skipped.Index, "id", skipped.ID, "reason", skipped.Err)
	}
	logger.Info("fixture loaded", "branches", len(res.Branches), "skipped", len(res.Skipped), "override", cfg.HasFixtureOverride())

	return res.Branches, nil
}

// buildServer wires up all dependencies and returns the configured HTTP handler
// and a cleanup func releasing the per-user state.
// This is the composition root where all dependencies are created and injected.
func buildServer(cfg *config.Config, branches []domain.Branch, loc *time.Location, logger *slog.Logger) (http.Handler, func(), error) {
	hub := live.NewHub(logger)

	workspaces, err := service.NewWorkspaces(service.WorkspacesConfig{
		Records:         branches,
		Sentinel:        cfg.Fixture.RefreshSentinel,
		NotificationTTL: cfg.Notifications.TTL,
		IdleTTL:         cfg.Session.TTL,
		MaxEntries:      cfg.Workspaces.MaxEntries,
		Publisher:       hub,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, err
	}

	handler := dashboard.NewHandler(dashboard.HandlerConfig{
		Renderer: dashboard.NewHTMLRenderer(loc),
		Logger:   logger,
		Gate: session.NewGate(session.Options{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		}, logger),
		Workspaces: workspaces,
		Engine:     filter.NewEngine(loc),
		Live:       hub,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(applog.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	handler.RegisterRoutes(r)

	cleanup := func() {
		hub.Close()
		workspaces.Close()
	}
	return r, cleanup, nil
}
