package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
)

// TestHTMLRenderer_RenderHealth tests the health check rendering.
// Follows AAA (Arrange, Act, Assert) pattern.
func TestHTMLRenderer_RenderHealth(t *testing.T) {
	// Arrange
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}

	// Act
	err := renderer.RenderHealth(buf)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, buf.String())
}

func TestHTMLRenderer_RenderLogin(t *testing.T) {
	// Arrange
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}

	// Act
	err := renderer.RenderLogin(buf, LoginView{Username: `<bob>`, Error: LoginFailedMessage})

	// Assert
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "Demo mode: Use any credentials to login")
	assert.Contains(t, out, LoginFailedMessage)
	assert.Contains(t, out, `value="&lt;bob&gt;"`)
	assert.NotContains(t, out, "<bob>")
}

func dashboardView() DashboardView {
	branches := fixtureBranches()
	return DashboardView{
		Username: "alice",
		Criteria: filter.Cleared(),
		Branches: branches,
		Summary:  filter.Summarize(branches),
		Authors:  filter.UniqueAuthors(branches),
		Notifications: []domain.Notification{{
			ID:        "n-1",
			Message:   "Branches refreshed successfully",
			Type:      domain.NotificationSuccess,
			ExpiresAt: time.Date(2024, 1, 15, 14, 30, 4, 0, time.UTC),
		}},
	}
}

func TestHTMLRenderer_RenderDashboard(t *testing.T) {
	// Arrange
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}

	// Act
	err := renderer.RenderDashboard(buf, dashboardView())

	// Assert
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Welcome, alice")
	assert.Contains(t, out, "Branches (3)")
	assert.Contains(t, out, "Jan 15, 2024, 2:30 PM")
	assert.Contains(t, out, `id="toast-n-1"`)
	assert.Contains(t, out, `action="/notifications/n-1/dismiss"`)
	assert.Contains(t, out, `href="/?author=Emily+Johnson"`)
	assert.Contains(t, out, "Clear all filters")
	assert.Contains(t, out, `class="status-badge building"`)
}

func TestHTMLRenderer_BuildLinkOnlyForSuccess(t *testing.T) {
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}

	require.NoError(t, renderer.RenderDashboard(buf, dashboardView()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `<a href="https://ci/1"`))
	assert.Contains(t, out, `<span class="build-link inactive" title="Build building">Building...</span>`)
	assert.Contains(t, out, `<span class="build-link inactive" title="Build failed">Build failed</span>`)
}

func TestHTMLRenderer_EmptyState(t *testing.T) {
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}
	view := dashboardView()
	view.Branches = []domain.Branch{}
	view.Summary = filter.Summary{}

	require.NoError(t, renderer.RenderDashboard(buf, view))

	assert.Contains(t, buf.String(), "Branches (0)")
	assert.Contains(t, buf.String(), "No branches found matching your filters")
	assert.NotContains(t, buf.String(), "branches-table")
}

func TestHTMLRenderer_PreservesCriteria(t *testing.T) {
	renderer := NewHTMLRenderer(time.UTC)
	buf := &bytes.Buffer{}
	from, err := filter.ParseDate("2024-01-02")
	require.NoError(t, err)
	view := dashboardView()
	view.Criteria = filter.Criteria{
		Search:        `"quoted"`,
		Author:        "Sarah Chen",
		DateFrom:      from,
		Status:        filter.StatusFilter(domain.StatusFailed),
		ProtectedOnly: true,
	}

	require.NoError(t, renderer.RenderDashboard(buf, view))

	out := buf.String()
	assert.Contains(t, out, `value="&quot;quoted&quot;"`)
	assert.Contains(t, out, `name="from" value="2024-01-02"`)
	assert.Contains(t, out, `<option value="failed" selected>`)
	assert.Contains(t, out, `value="1" checked`)
	assert.Contains(t, out, "Sarah Chen ▾")
}

func TestFormatCommitTime_UsesLocation(t *testing.T) {
	ts := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "Jan 16, 2024, 1:30 AM", formatCommitTime(ts, time.FixedZone("UTC+2", 2*60*60)))
}
