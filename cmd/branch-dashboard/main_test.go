package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilaca/branch-dashboard/internal/config"
	"github.com/vilaca/branch-dashboard/internal/fixture"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Defaults()
	res, err := fixture.Default(time.UTC)
	require.NoError(t, err)

	handler, cleanup, err := buildServer(&cfg, res.Branches, time.UTC, quietLogger())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildServer_Health(t *testing.T) {
	// Arrange
	srv := newTestServer(t)

	// Act
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestBuildServer_LoginRefreshLogout(t *testing.T) {
	// Arrange
	srv := newTestServer(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	// Act: anonymous visit lands on the login page
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)

	// Act: sign in and refresh
	resp, err = client.PostForm(srv.URL+"/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Welcome, alice")
	assert.Contains(t, string(body), "Branches (10)")

	resp, err = client.PostForm(srv.URL+"/refresh", url.Values{"return": {"q=payment"}})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	// Assert
	assert.Equal(t, "q=payment", resp.Request.URL.RawQuery)
	assert.Contains(t, string(body), "Branches (1)")
	assert.Contains(t, string(body), `class="status-badge success"`)
	assert.Contains(t, string(body), "Branches refreshed successfully")

	// Act: logout returns to the login page and the dashboard is closed again
	resp, err = client.PostForm(srv.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp, err = client.Get(srv.URL + "/api/branches")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func runList(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("FIXTURE_PATH", "")
	t.Setenv("DASHBOARD_TIMEZONE", "UTC")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"list"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand_FiltersFixture(t *testing.T) {
	out, err := runList(t, "--status", "failed")

	require.NoError(t, err)
	assert.Contains(t, out, "bugfix/login-redirect")
	assert.Contains(t, out, "feature/search-api")
	assert.NotContains(t, out, "feature/payment-gateway")
	assert.Contains(t, out, "2 branches: 0 success, 2 failed, 0 building, 0 protected")
}

func TestListCommand_ProtectedAndAuthor(t *testing.T) {
	out, err := runList(t, "--protected", "--author", "Michael Rodriguez")

	require.NoError(t, err)
	assert.Contains(t, out, "develop")
	assert.Contains(t, out, "release/v2.1.0")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "2 branches: 2 success, 0 failed, 0 building, 2 protected"))
}

func TestListCommand_InvalidFilter(t *testing.T) {
	_, err := runList(t, "--from", "15/01/2024")

	assert.Error(t, err)
}
