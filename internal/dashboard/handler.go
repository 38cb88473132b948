package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
	"github.com/vilaca/branch-dashboard/internal/service"
	"github.com/vilaca/branch-dashboard/internal/session"
)

// ParamAuthorQuery narrows the author selector; it does not filter branches.
const ParamAuthorQuery = "authorQuery"

// LoginFailedMessage is shown when either credential field is empty.
const LoginFailedMessage = "Please enter both username and password"

// Handler handles HTTP requests for the dashboard.
type Handler struct {
	renderer   Renderer
	logger     *slog.Logger
	gate       SessionGate
	workspaces WorkspaceProvider
	engine     *filter.Engine
	live       LiveEndpoint
}

// SessionGate admits users and guards the authenticated routes.
type SessionGate interface {
	Login(w http.ResponseWriter, username, password string) (domain.Session, bool)
	Logout(w http.ResponseWriter)
	Hydrate(r *http.Request) domain.Session
	Require(next http.Handler) http.Handler
}

// WorkspaceProvider returns the per-user state.
type WorkspaceProvider interface {
	Get(owner string) (*service.Workspace, error)
	Drop(owner string)
}

// LiveEndpoint upgrades requests to the notification push channel.
type LiveEndpoint interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	Renderer   Renderer
	Logger     *slog.Logger
	Gate       SessionGate
	Workspaces WorkspaceProvider
	Engine     *filter.Engine
	Live       LiveEndpoint // optional
}

// NewHandler creates a new Handler with injected dependencies.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = filter.NewEngine(nil)
	}
	return &Handler{
		renderer:   cfg.Renderer,
		logger:     logger,
		gate:       cfg.Gate,
		workspaces: cfg.Workspaces,
		engine:     engine,
		live:       cfg.Live,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.handleHealth)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require)

		r.Get("/", h.handleDashboard)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/notifications/{id}/dismiss", h.handleDismiss)

		r.Get("/api/branches", h.handleBranchesAPI)
		r.Get("/api/authors", h.handleAuthorsAPI)
		r.Get("/api/notifications", h.handleNotificationsAPI)
		r.Delete("/api/notifications/{id}", h.handleDismissAPI)
		r.Post("/api/refresh", h.handleRefreshAPI)

		if h.live != nil {
			r.Get("/ws", h.live.HandleWS)
		}
	})
}

// handleHealth serves the health check endpoint.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.renderer.RenderHealth(w); err != nil {
		h.logger.Error("failed to render health", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// handleLoginPage shows the login form, or sends signed-in users to the dashboard.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.gate.Hydrate(r).Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, http.StatusOK, LoginView{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, LoginView{Error: LoginFailedMessage})
		return
	}
	username := r.PostForm.Get("username")

	s, ok := h.gate.Login(w, username, r.PostForm.Get("password"))
	if !ok {
		h.renderLogin(w, http.StatusBadRequest, LoginView{Username: username, Error: LoginFailedMessage})
		return
	}

	h.logger.Info("user signed in", "user", s.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s := h.gate.Hydrate(r); s.Authenticated {
		h.workspaces.Drop(s.Username)
		h.logger.Info("user signed out", "user", s.Username)
	}
	h.gate.Logout(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleDashboard renders the filtered branch list.
// Invalid criteria render the unfiltered list with the error and status 400.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	status := http.StatusOK
	query := r.URL.Query()
	view := DashboardView{Username: s.Username, AuthorQuery: query.Get(ParamAuthorQuery)}

	criteria, err := filter.ParseCriteria(query)
	if err != nil {
		status = http.StatusBadRequest
		view.Error = "Invalid filter: " + err.Error()
		criteria = filter.Cleared()
	}

	all := ws.Store.Branches()
	res := h.engine.Evaluate(all, criteria)

	view.Criteria = criteria
	view.Branches = res.Branches
	view.Summary = res.Summary
	view.Authors = filter.FilterAuthors(filter.UniqueAuthors(all), view.AuthorQuery)
	view.Notifications = ws.Notifications.List()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.RenderDashboard(w, view); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
	}
}

// handleRefresh toggles the sentinel branch and returns to the dashboard with the same filters.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	changed := ws.Refresh()
	h.logger.Debug("refresh simulated", "user", ws.Owner, "changed", changed)

	http.Redirect(w, r, returnURL(r), http.StatusSeeOther)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ws.Notifications.Dismiss(chi.URLParam(r, "id"))
	http.Redirect(w, r, returnURL(r), http.StatusSeeOther)
}

// branchesResponse is the body of GET /api/branches.
type branchesResponse struct {
	Branches []domain.Branch `json:"branches"`
	Summary  filter.Summary  `json:"summary"`
}

func (h *Handler) handleBranchesAPI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.engine.Evaluate(ws.Store.Branches(), criteria)
	h.writeJSON(w, http.StatusOK, branchesResponse{Branches: res.Branches, Summary: res.Summary})
}

func (h *Handler) handleAuthorsAPI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	authors := filter.FilterAuthors(filter.UniqueAuthors(ws.Store.Branches()), r.URL.Query().Get(ParamAuthorQuery))
	h.writeJSON(w, http.StatusOK, map[string][]string{"authors": authors})
}

func (h *Handler) handleNotificationsAPI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string][]domain.Notification{"notifications": ws.Notifications.List()})
}

// handleDismissAPI answers 204 whether or not the id was still queued.
func (h *Handler) handleDismissAPI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ws.Notifications.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// refreshResponse is the body of POST /api/refresh.
type refreshResponse struct {
	Changed       bool                  `json:"changed"`
	Notifications []domain.Notification `json:"notifications"`
}

func (h *Handler) handleRefreshAPI(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	changed := ws.Refresh()
	h.writeJSON(w, http.StatusOK, refreshResponse{Changed: changed, Notifications: ws.Notifications.List()})
}

// workspace resolves the caller's workspace, writing a 500 on failure.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*service.Workspace, bool) {
	s := session.FromContext(r.Context())
	ws, err := h.workspaces.Get(s.Username)
	if err != nil {
		h.logger.Error("failed to get workspace", "user", s.Username, "error", err)
		if errors.Is(err, service.ErrNoOwner) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil, false
	}
	return ws, true
}

// returnURL rebuilds the dashboard URL from the posted "return" query.
// Only valid criteria survive, so the redirect never leaves the dashboard.
func returnURL(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return "/"
	}
	values, err := url.ParseQuery(r.PostForm.Get("return"))
	if err != nil {
		return "/"
	}
	criteria, err := filter.ParseCriteria(values)
	if err != nil {
		return "/"
	}
	return dashboardURL(criteria)
}

func (h *Handler) renderLogin(w http.ResponseWriter, status int, view LoginView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.RenderLogin(w, view); err != nil {
		h.logger.Error("failed to render login", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
