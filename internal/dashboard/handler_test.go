package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
	"github.com/vilaca/branch-dashboard/internal/service"
	"github.com/vilaca/branch-dashboard/internal/session"
)

// mockRenderer is a test double for Renderer that keeps the last view.
type mockRenderer struct {
	healthErr     error
	lastLogin     *LoginView
	lastDashboard *DashboardView
}

func (m *mockRenderer) RenderLogin(w io.Writer, view LoginView) error {
	m.lastLogin = &view
	_, err := w.Write([]byte("mock login"))
	return err
}

func (m *mockRenderer) RenderDashboard(w io.Writer, view DashboardView) error {
	m.lastDashboard = &view
	_, err := w.Write([]byte("mock dashboard"))
	return err
}

func (m *mockRenderer) RenderHealth(w io.Writer) error {
	if m.healthErr != nil {
		return m.healthErr
	}
	_, err := w.Write([]byte(`{"status":"ok"}`))
	return err
}

// mockWorkspaces is a test double for WorkspaceProvider.
type mockWorkspaces struct {
	getFunc func(owner string) (*service.Workspace, error)
	dropped []string
}

func (m *mockWorkspaces) Get(owner string) (*service.Workspace, error) {
	return m.getFunc(owner)
}

func (m *mockWorkspaces) Drop(owner string) {
	m.dropped = append(m.dropped, owner)
}

func fixtureBranches() []domain.Branch {
	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	return []domain.Branch{
		{ID: "1", Name: "main", Author: "Sarah Chen", LastCommit: ts, CommitMessage: "Merge release", Status: domain.StatusSuccess, Protected: true, BuildURL: "https://ci/1"},
		{ID: "2", Name: "feature/payment-gateway", Author: "Michael Rodriguez", LastCommit: ts.Add(-24 * time.Hour), CommitMessage: "Add Stripe", Status: domain.StatusBuilding},
		{ID: "3", Name: "bugfix/login", Author: "Emily Johnson", LastCommit: ts.Add(-48 * time.Hour), CommitMessage: "Fix redirect", Status: domain.StatusFailed},
	}
}

type testEnv struct {
	router     chi.Router
	renderer   *mockRenderer
	workspaces *service.Workspaces
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ws, err := service.NewWorkspaces(service.WorkspacesConfig{
		Records:         fixtureBranches(),
		NotificationTTL: time.Minute,
		MaxEntries:      100,
	})
	require.NoError(t, err)
	t.Cleanup(ws.Close)

	renderer := &mockRenderer{}
	h := NewHandler(HandlerConfig{
		Renderer:   renderer,
		Gate:       session.NewGate(session.Options{}, nil),
		Workspaces: ws,
		Engine:     filter.NewEngine(time.UTC),
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	return &testEnv{router: r, renderer: renderer, workspaces: ws}
}

// do sends a request as user (anonymous when empty).
func (e *testEnv) do(method, target, user string, body url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if user != "" {
		req.AddCookie(&http.Cookie{Name: "user", Value: session.EncodeToken(user)})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// TestHandleHealth tests the health check endpoint.
func TestHandleHealth(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	rec := env.do(http.MethodGet, "/api/health", "", nil)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleHealth_RenderError(t *testing.T) {
	env := newTestEnv(t)
	env.renderer.healthErr = errors.New("render failed")

	rec := env.do(http.MethodGet, "/api/health", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials set cookie and redirect", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(http.MethodPost, "/login", "", url.Values{"username": {"alice"}, "password": {"x"}})

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		user, err := session.DecodeToken(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, "alice", user)
	})

	t.Run("empty field re-renders with 400", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(http.MethodPost, "/login", "", url.Values{"username": {""}, "password": {"x"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
		require.NotNil(t, env.renderer.lastLogin)
		assert.Equal(t, LoginFailedMessage, env.renderer.lastLogin.Error)
	})

	t.Run("signed-in visit to login redirects home", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(http.MethodGet, "/login", "alice", nil)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})
}

func TestLogout_ExpiresCookieAndDropsWorkspace(t *testing.T) {
	// Arrange
	drops := &mockWorkspaces{getFunc: func(string) (*service.Workspace, error) { return nil, nil }}
	h := NewHandler(HandlerConfig{
		Renderer:   &mockRenderer{},
		Gate:       session.NewGate(session.Options{}, nil),
		Workspaces: drops,
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "user", Value: session.EncodeToken("alice")})
	rec := httptest.NewRecorder()

	// Act
	r.ServeHTTP(rec, req)

	// Assert
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
	assert.Equal(t, []string{"alice"}, drops.dropped)
}

func TestDashboard_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	page := env.do(http.MethodGet, "/", "", nil)
	api := env.do(http.MethodGet, "/api/branches", "", nil)

	assert.Equal(t, http.StatusSeeOther, page.Code)
	assert.Equal(t, "/login", page.Header().Get("Location"))
	assert.Equal(t, http.StatusUnauthorized, api.Code)
}

func TestDashboard_AppliesCriteria(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	rec := env.do(http.MethodGet, "/?status=failed&authorQuery=em", "alice", nil)

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	view := env.renderer.lastDashboard
	require.NotNil(t, view)
	assert.Equal(t, "alice", view.Username)
	require.Len(t, view.Branches, 1)
	assert.Equal(t, "bugfix/login", view.Branches[0].Name)
	assert.Equal(t, 1, view.Summary.Total)
	assert.Equal(t, []string{"Emily Johnson"}, view.Authors)
	assert.Equal(t, "em", view.AuthorQuery)
}

func TestDashboard_InvalidCriteria(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/?from=yesterday", "alice", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	view := env.renderer.lastDashboard
	require.NotNil(t, view)
	assert.NotEmpty(t, view.Error)
	assert.Len(t, view.Branches, 3, "falls back to the unfiltered list")
}

func TestRefresh_TogglesAndRedirectsWithFilters(t *testing.T) {
	// Arrange
	env := newTestEnv(t)

	// Act
	rec := env.do(http.MethodPost, "/refresh", "alice", url.Values{"return": {"status=success&q=pay"}})

	// Assert
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?q=pay&status=success", rec.Header().Get("Location"))

	ws, err := env.workspaces.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, ws.Store.Branches()[1].Status)
	list := ws.Notifications.List()
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationSuccess, list[0].Type)
}

func TestRefresh_IsPerUser(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodPost, "/api/refresh", "alice", nil)
	rec := env.do(http.MethodGet, "/api/branches?q=payment", "bob", nil)

	var body branchesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Branches, 1)
	assert.Equal(t, domain.StatusBuilding, body.Branches[0].Status)
}

func TestBranchesAPI(t *testing.T) {
	env := newTestEnv(t)

	ok := env.do(http.MethodGet, "/api/branches?protected=1", "alice", nil)
	bad := env.do(http.MethodGet, "/api/branches?status=queued", "alice", nil)

	assert.Equal(t, http.StatusOK, ok.Code)
	var body branchesResponse
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &body))
	require.Len(t, body.Branches, 1)
	assert.Equal(t, "main", body.Branches[0].Name)
	assert.Equal(t, filter.Summary{Total: 1, Success: 1, Protected: 1}, body.Summary)

	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Contains(t, bad.Body.String(), "error")
}

func TestAuthorsAPI(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/authors?authorQuery=CHEN", "alice", nil)

	assert.JSONEq(t, `{"authors":["Sarah Chen"]}`, rec.Body.String())
}

func TestNotificationsAPI_ListAndDismiss(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/refresh", "alice", nil)

	var listed map[string][]domain.Notification
	rec := env.do(http.MethodGet, "/api/notifications", "alice", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed["notifications"], 1)
	id := listed["notifications"][0].ID

	// Act
	first := env.do(http.MethodDelete, "/api/notifications/"+id, "alice", nil)
	again := env.do(http.MethodDelete, "/api/notifications/"+id, "alice", nil)

	// Assert
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusNoContent, again.Code, "unknown id is a no-op")
	ws, err := env.workspaces.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, ws.Notifications.Len())
}

func TestDismissForm(t *testing.T) {
	env := newTestEnv(t)
	ws, err := env.workspaces.Get("alice")
	require.NoError(t, err)
	id := ws.Notifications.Info("hello")

	rec := env.do(http.MethodPost, "/notifications/"+id+"/dismiss", "alice", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 0, ws.Notifications.Len())
}

func TestWorkspaceError(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Renderer: &mockRenderer{},
		Gate:     session.NewGate(session.Options{}, nil),
		Workspaces: &mockWorkspaces{getFunc: func(string) (*service.Workspace, error) {
			return nil, errors.New("cache closed")
		}},
	})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.AddCookie(&http.Cookie{Name: "user", Value: session.EncodeToken("alice")})
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
