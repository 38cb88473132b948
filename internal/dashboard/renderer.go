package dashboard

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
)

// Renderer handles rendering responses to HTTP clients.
type Renderer interface {
	RenderLogin(w io.Writer, view LoginView) error
	RenderDashboard(w io.Writer, view DashboardView) error
	RenderHealth(w io.Writer) error
}

// LoginView is the model of the login page.
type LoginView struct {
	Username string
	Error    string
}

// DashboardView is the model of the branch dashboard page.
type DashboardView struct {
	Username      string
	Criteria      filter.Criteria
	Branches      []domain.Branch
	Summary       filter.Summary
	Authors       []string // already narrowed by AuthorQuery
	AuthorQuery   string
	Notifications []domain.Notification
	Error         string
}

// HTMLRenderer implements Renderer for HTML responses.
type HTMLRenderer struct {
	loc *time.Location
}

// NewHTMLRenderer creates a renderer that shows timestamps in loc.
func NewHTMLRenderer(loc *time.Location) *HTMLRenderer {
	if loc == nil {
		loc = time.Local
	}
	return &HTMLRenderer{loc: loc}
}

func (r *HTMLRenderer) RenderHealth(w io.Writer) error {
	_, err := w.Write([]byte(`{"status":"ok"}`))
	return err
}

func (r *HTMLRenderer) RenderLogin(w io.Writer, view LoginView) error {
	var sb strings.Builder

	sb.WriteString(htmlHead("Login", "Sign in to the branch dashboard"))
	sb.WriteString(`
<body>
	<div class="login card">
		<h1>GitHub Branches Dashboard</h1>
		<p class="meta-text">Sign in to view branch status</p>
`)
	if view.Error != "" {
		sb.WriteString(fmt.Sprintf(`		<div class="error-banner" role="alert">%s</div>
`, escapeHTML(view.Error)))
	}
	sb.WriteString(fmt.Sprintf(`		<form method="POST" action="/login">
			<label for="username">Username</label>
			<input id="username" name="username" type="text" autocomplete="username" value="%s" autofocus>
			<label for="password">Password</label>
			<input id="password" name="password" type="password" autocomplete="current-password">
			<button class="button" type="submit">Sign in</button>
		</form>
		<p class="meta-text">Demo mode: Use any credentials to login</p>
	</div>
`, escapeHTML(view.Username)))
	sb.WriteString(themeToggleScript())
	sb.WriteString(`
</body>
</html>`)

	_, err := w.Write([]byte(sb.String()))
	return err
}

func (r *HTMLRenderer) RenderDashboard(w io.Writer, view DashboardView) error {
	var sb strings.Builder

	sb.WriteString(htmlHead("Branches", ""))
	sb.WriteString(`
<body>
	<div class="container">
		<div class="nav-header">
			<h1>🌿 GitHub Branches Dashboard</h1>
		</div>
		`)
	sb.WriteString(buildNavigation(view.Username))
	sb.WriteString("\n")
	sb.WriteString(r.buildToasts(view.Notifications))

	if view.Error != "" {
		sb.WriteString(fmt.Sprintf(`		<div class="error-banner" role="alert">%s</div>
`, escapeHTML(view.Error)))
	}

	sb.WriteString(r.buildSummary(view.Summary))
	sb.WriteString(r.buildFilters(view))
	sb.WriteString(r.buildBranchesTable(view.Branches))

	sb.WriteString(`
	</div>
`)
	sb.WriteString(htmlFooter())

	_, err := w.Write([]byte(sb.String()))
	return err
}

func (r *HTMLRenderer) buildToasts(notifications []domain.Notification) string {
	var sb strings.Builder

	sb.WriteString(`		<div class="toasts" id="toasts" aria-live="polite">
`)
	for _, n := range notifications {
		sb.WriteString(fmt.Sprintf(`			<div class="toast %s" id="toast-%s" role="status" data-expires="%s">
				<span>%s</span>
				<form method="POST" action="/notifications/%s/dismiss"><button type="submit" aria-label="Dismiss">✕</button></form>
			</div>
`,
			escapeHTML(string(n.Type)),
			escapeHTML(n.ID),
			n.ExpiresAt.UTC().Format(time.RFC3339Nano),
			escapeHTML(n.Message),
			url.PathEscape(n.ID),
		))
	}
	sb.WriteString(`		</div>
`)

	return sb.String()
}

func (r *HTMLRenderer) buildSummary(s filter.Summary) string {
	cards := []struct {
		label string
		value int
		class string
	}{
		{"Total Branches", s.Total, ""},
		{"Successful", s.Success, "success"},
		{"Failed", s.Failed, "failed"},
		{"Building", s.Building, "building"},
		{"Protected", s.Protected, ""},
	}

	var sb strings.Builder
	sb.WriteString(`		<div class="summary">
`)
	for _, c := range cards {
		sb.WriteString(fmt.Sprintf(`			<div class="card %s"><div class="meta-text">%s</div><div class="value">%d</div></div>
`, c.class, c.label, c.value))
	}
	sb.WriteString(`		</div>
`)
	return sb.String()
}

func (r *HTMLRenderer) buildFilters(view DashboardView) string {
	c := view.Criteria
	var sb strings.Builder

	sb.WriteString(`		<div class="card">
			<form id="filters" class="filters" method="GET" action="/">
`)
	sb.WriteString(fmt.Sprintf(`				<div class="filter-group">
					<label for="search">Search</label>
					<input id="search" type="search" name="%s" value="%s" placeholder="Branch name or commit message">
				</div>
`, filter.ParamSearch, escapeHTML(c.Search)))

	sb.WriteString(r.buildAuthorDropdown(view))

	sb.WriteString(fmt.Sprintf(`				<div class="filter-group">
					<label for="from">From</label>
					<input id="from" type="date" name="%s" value="%s">
				</div>
				<div class="filter-group">
					<label for="to">To</label>
					<input id="to" type="date" name="%s" value="%s">
				</div>
`, filter.ParamDateFrom, c.DateFrom.String(), filter.ParamDateTo, c.DateTo.String()))

	sb.WriteString(fmt.Sprintf(`				<div class="filter-group">
					<label for="status">Status</label>
					<select id="status" name="%s">
`, filter.ParamStatus))
	type option struct {
		value filter.StatusFilter
		label string
	}
	options := []option{{filter.StatusAll, "All Statuses"}}
	for _, st := range domain.Statuses {
		options = append(options, option{filter.StatusFilter(st), strings.ToUpper(string(st[:1])) + string(st[1:])})
	}
	current := c.Status
	if current == "" {
		current = filter.StatusAll
	}
	for _, o := range options {
		selected := ""
		if o.value == current {
			selected = " selected"
		}
		sb.WriteString(fmt.Sprintf(`						<option value="%s"%s>%s</option>
`, o.value, selected, o.label))
	}
	sb.WriteString(`					</select>
				</div>
`)

	checked := ""
	if c.ProtectedOnly {
		checked = " checked"
	}
	sb.WriteString(fmt.Sprintf(`				<div class="filter-group checkbox">
					<input id="protected" type="checkbox" name="%s" value="1"%s>
					<label for="protected">Protected only</label>
				</div>
				<button class="button" type="submit">Apply</button>
				<a class="button secondary" href="/">Clear all filters</a>
			</form>
			<form method="POST" action="/refresh" style="margin-top: 15px;">
				<input type="hidden" name="return" value="%s">
				<button class="button" type="submit">⟳ Refresh</button>
			</form>
		</div>
`, filter.ParamProtected, checked, escapeHTML(c.Query().Encode())))

	return sb.String()
}

// buildAuthorDropdown renders the author selector with its nested search box.
// Each option is a link carrying the rest of the current criteria.
func (r *HTMLRenderer) buildAuthorDropdown(view DashboardView) string {
	c := view.Criteria
	var sb strings.Builder

	label := "All Authors"
	if c.Author != "" {
		label = c.Author
	}

	sb.WriteString(fmt.Sprintf(`				<div class="filter-group">
					<label>Author</label>
					<input type="hidden" name="%s" value="%s">
					<div class="dropdown">
						<button class="dropdown-toggle" type="button" aria-haspopup="listbox">%s ▾</button>
						<div class="dropdown-panel" role="listbox">
							<input class="dropdown-search" type="search" name="%s" value="%s" placeholder="Search authors...">
`, filter.ParamAuthor, escapeHTML(c.Author), escapeHTML(label), ParamAuthorQuery, escapeHTML(view.AuthorQuery)))

	all := c
	all.Author = ""
	sb.WriteString(fmt.Sprintf(`							<a href="%s"%s>All Authors</a>
`, escapeHTML(dashboardURL(all)), selectedClass(c.Author == "")))

	for _, author := range view.Authors {
		pick := c
		pick.Author = author
		sb.WriteString(fmt.Sprintf(`							<a href="%s" data-author="%s"%s>%s</a>
`, escapeHTML(dashboardURL(pick)), escapeHTML(author), selectedClass(c.Author == author), escapeHTML(author)))
	}
	if len(view.Authors) == 0 {
		sb.WriteString(`							<div class="meta-text">No authors found</div>
`)
	}

	sb.WriteString(`						</div>
					</div>
				</div>
`)
	return sb.String()
}

func (r *HTMLRenderer) buildBranchesTable(branches []domain.Branch) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`		<div class="card">
			<h2>Branches (%d)</h2>
`, len(branches)))

	if len(branches) == 0 {
		sb.WriteString(`			<div class="empty">No branches found matching your filters</div>
		</div>
`)
		return sb.String()
	}

	sb.WriteString(`			<table id="branches-table">
				<thead>
					<tr>
						<th>Branch</th>
						<th>Author</th>
						<th>Last Commit</th>
						<th>Status</th>
						<th>Ahead / Behind</th>
						<th>Build</th>
					</tr>
				</thead>
				<tbody>
`)
	for _, b := range branches {
		protected := ""
		if b.Protected {
			protected = `<span class="protected-badge" title="Protected branch">🔒 protected</span>`
		}
		sb.WriteString(fmt.Sprintf(`					<tr data-id="%s" data-status="%s">
						<td><strong>%s</strong>%s</td>
						<td>%s<div class="meta-text">%s</div></td>
						<td>%s<div class="meta-text">%s</div></td>
						<td>%s</td>
						<td><span class="ahead">↑%d</span> <span class="behind">↓%d</span></td>
						<td>%s</td>
					</tr>
`,
			escapeHTML(b.ID),
			escapeHTML(string(b.Status)),
			escapeHTML(b.Name), protected,
			escapeHTML(b.Author), escapeHTML(b.AuthorEmail),
			escapeHTML(b.CommitMessage), escapeHTML(formatCommitTime(b.LastCommit, r.loc)),
			statusBadge(b.Status),
			b.Ahead, b.Behind,
			buildLink(b),
		))
	}
	sb.WriteString(`				</tbody>
			</table>
		</div>
`)

	return sb.String()
}

func dashboardURL(c filter.Criteria) string {
	if q := c.Query().Encode(); q != "" {
		return "/?" + q
	}
	return "/"
}

func selectedClass(selected bool) string {
	if selected {
		return ` class="selected"`
	}
	return ""
}
