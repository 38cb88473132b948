package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

// commitTimeLayout renders timestamps as "Jan 15, 2024, 2:30 PM".
const commitTimeLayout = "Jan 2, 2006, 3:04 PM"

// htmlHead returns the common HTML head section with proper meta tags.
func htmlHead(title, description string) string {
	if description == "" {
		description = "Monitor branch build status across your repository"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0, viewport-fit=cover">
	<meta name="description" content="%s">
	<meta name="author" content="Branch Dashboard">

	<!-- Favicon -->
	<link rel="icon" type="image/svg+xml" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='0.9em' font-size='90'>🌿</text></svg>">

	<title>%s - GitHub Branches Dashboard</title>
	%s
</head>`, escapeHTML(description), escapeHTML(title), commonCSS())
}

// commonCSS returns the shared CSS styles used across all pages.
func commonCSS() string {
	return `<style>
		/* CSS Variables for theming */
		:root {
			--bg-primary: #f5f5f5;
			--bg-secondary: white;
			--text-primary: #333;
			--text-secondary: #666;
			--link-color: #0066cc;
			--button-bg: #0066cc;
			--button-hover: #0052a3;
			--border-color: #e0e0e0;
			--shadow: rgba(0,0,0,0.1);
			--success-bg: #d4edda;
			--success-text: #155724;
			--failed-bg: #f8d7da;
			--failed-text: #721c24;
			--building-bg: #fff3cd;
			--building-text: #856404;
			--info-bg: #d1ecf1;
			--info-text: #0c5460;
		}

		[data-theme="dark"] {
			--bg-primary: #1a1a1a;
			--bg-secondary: #2d2d2d;
			--text-primary: #e0e0e0;
			--text-secondary: #b0b0b0;
			--link-color: #4d9fff;
			--button-bg: #4d9fff;
			--button-hover: #3d89ef;
			--border-color: #404040;
			--shadow: rgba(0,0,0,0.3);
			--success-bg: #1e4620;
			--success-text: #90ee90;
			--failed-bg: #4a1a1a;
			--failed-text: #ff6b6b;
			--building-bg: #4a3a1a;
			--building-text: #ffd966;
			--info-bg: #1a3a4a;
			--info-text: #5dade2;
		}

		* {
			box-sizing: border-box;
			margin: 0;
			padding: 0;
		}

		body {
			font-family: system-ui, -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
			padding: 20px;
			background: var(--bg-primary);
			color: var(--text-primary);
			transition: background-color 0.3s, color 0.3s;
			line-height: 1.6;
		}

		.container {
			max-width: 1200px;
			margin: 0 auto;
		}

		h1 {
			margin-bottom: 10px;
			font-size: 2rem;
			font-weight: 600;
		}

		h2 {
			font-size: 1.5rem;
			font-weight: 600;
			margin-bottom: 10px;
		}

		/* Navigation */
		.nav {
			margin-bottom: 30px;
			display: flex;
			align-items: center;
			gap: 15px;
			flex-wrap: wrap;
		}

		.nav .welcome {
			margin-left: auto;
			color: var(--text-secondary);
		}

		.button, .theme-toggle {
			padding: 8px 16px;
			background: var(--button-bg);
			color: white;
			border: none;
			border-radius: 4px;
			cursor: pointer;
			font-size: 14px;
			font-weight: 500;
			text-decoration: none;
			transition: background-color 0.3s, transform 0.1s;
		}

		.button:hover, .theme-toggle:hover {
			background: var(--button-hover);
		}

		.button:active, .theme-toggle:active {
			transform: scale(0.98);
		}

		.button.secondary {
			background: transparent;
			color: var(--link-color);
			border: 1px solid var(--border-color);
		}

		.card {
			background: var(--bg-secondary);
			padding: 20px;
			border-radius: 8px;
			box-shadow: 0 2px 4px var(--shadow);
			margin-bottom: 20px;
		}

		/* Status Badges */
		.status-badge {
			padding: 4px 10px;
			border-radius: 4px;
			font-size: 12px;
			font-weight: 500;
			text-transform: uppercase;
			display: inline-block;
		}

		.status-badge.success {
			background: var(--success-bg);
			color: var(--success-text);
		}

		.status-badge.failed {
			background: var(--failed-bg);
			color: var(--failed-text);
		}

		.status-badge.building {
			background: var(--building-bg);
			color: var(--building-text);
		}

		.protected-badge {
			font-size: 12px;
			color: var(--text-secondary);
			margin-left: 6px;
		}

		a {
			color: var(--link-color);
			transition: opacity 0.2s;
		}

		a:hover {
			opacity: 0.8;
		}

		.build-link.inactive {
			color: var(--text-secondary);
			cursor: not-allowed;
		}

		.empty {
			text-align: center;
			padding: 40px;
			color: var(--text-secondary);
			font-size: 16px;
		}

		.meta-text {
			color: var(--text-secondary);
			font-size: 14px;
		}

		.error-banner {
			background: var(--failed-bg);
			color: var(--failed-text);
			padding: 10px 14px;
			border-radius: 4px;
			margin-bottom: 15px;
		}

		/* Summary */
		.summary {
			display: grid;
			grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
			gap: 15px;
			margin-bottom: 20px;
		}

		.summary .card {
			margin-bottom: 0;
		}

		.summary .value {
			font-size: 1.8rem;
			font-weight: 600;
		}

		/* Filters */
		.filters {
			display: flex;
			flex-wrap: wrap;
			gap: 15px;
			align-items: flex-end;
		}

		.filter-group {
			display: flex;
			flex-direction: column;
			gap: 5px;
			min-width: 180px;
		}

		.filter-group label {
			font-size: 12px;
			font-weight: 500;
			color: var(--text-secondary);
			text-transform: uppercase;
		}

		.filter-group input, .filter-group select, .dropdown-toggle {
			padding: 8px 12px;
			border: 1px solid var(--border-color);
			border-radius: 4px;
			font-size: 14px;
			background: var(--bg-primary);
			color: var(--text-primary);
		}

		.filter-group input:focus, .filter-group select:focus {
			outline: none;
			border-color: var(--link-color);
		}

		.filter-group.checkbox {
			flex-direction: row;
			align-items: center;
			min-width: auto;
		}

		/* Author dropdown */
		.dropdown {
			position: relative;
		}

		.dropdown-toggle {
			width: 100%;
			text-align: left;
			cursor: pointer;
		}

		.dropdown-panel {
			display: none;
			position: absolute;
			top: 100%;
			left: 0;
			z-index: 100;
			min-width: 240px;
			max-height: 300px;
			overflow-y: auto;
			background: var(--bg-secondary);
			border: 1px solid var(--border-color);
			border-radius: 4px;
			box-shadow: 0 4px 12px var(--shadow);
			padding: 8px;
		}

		.dropdown.open .dropdown-panel {
			display: block;
		}

		.dropdown-panel input {
			width: 100%;
			margin-bottom: 6px;
		}

		.dropdown-panel a {
			display: block;
			padding: 6px 8px;
			text-decoration: none;
			color: var(--text-primary);
			border-radius: 4px;
		}

		.dropdown-panel a:hover, .dropdown-panel a.selected {
			background: var(--bg-primary);
		}

		/* Table */
		table {
			width: 100%;
			border-collapse: collapse;
		}

		th, td {
			padding: 10px 12px;
			text-align: left;
			border-bottom: 1px solid var(--border-color);
			vertical-align: top;
		}

		th {
			font-size: 12px;
			text-transform: uppercase;
			color: var(--text-secondary);
		}

		.ahead { color: var(--success-text); }
		.behind { color: var(--failed-text); }

		/* Toasts */
		.toasts {
			position: fixed;
			top: 20px;
			right: 20px;
			display: flex;
			flex-direction: column;
			gap: 10px;
			z-index: 1000;
		}

		.toast {
			display: flex;
			gap: 12px;
			align-items: center;
			padding: 12px 16px;
			border-radius: 6px;
			box-shadow: 0 4px 12px var(--shadow);
			min-width: 260px;
		}

		.toast.success { background: var(--success-bg); color: var(--success-text); }
		.toast.error { background: var(--failed-bg); color: var(--failed-text); }
		.toast.warning { background: var(--building-bg); color: var(--building-text); }
		.toast.info { background: var(--info-bg); color: var(--info-text); }

		.toast form { margin-left: auto; }

		.toast button {
			background: none;
			border: none;
			cursor: pointer;
			font-size: 16px;
			color: inherit;
		}

		/* Login */
		.login {
			max-width: 400px;
			margin: 80px auto;
		}

		.login form {
			display: flex;
			flex-direction: column;
			gap: 12px;
		}

		.login input {
			padding: 10px 12px;
			border: 1px solid var(--border-color);
			border-radius: 4px;
			font-size: 14px;
			background: var(--bg-primary);
			color: var(--text-primary);
		}
	</style>`
}

// themeToggleScript returns the common theme toggle JavaScript.
func themeToggleScript() string {
	return `<script>
		function toggleTheme() {
			const html = document.documentElement;
			const currentTheme = html.getAttribute('data-theme');
			const newTheme = currentTheme === 'dark' ? 'light' : 'dark';
			html.setAttribute('data-theme', newTheme);
			localStorage.setItem('theme', newTheme);
			updateToggleButton(newTheme);
		}

		function updateToggleButton(theme) {
			const button = document.querySelector('.theme-toggle');
			if (button) {
				button.textContent = theme === 'dark' ? '☀️ Light Mode' : '🌙 Dark Mode';
				button.setAttribute('aria-label', theme === 'dark' ? 'Switch to light mode' : 'Switch to dark mode');
			}
		}

		// Initialize theme from localStorage
		(function() {
			const savedTheme = localStorage.getItem('theme') || 'light';
			document.documentElement.setAttribute('data-theme', savedTheme);
			updateToggleButton(savedTheme);
		})();
	</script>`
}

// filterScript submits the filter form on change and drives the author dropdown.
// Any click outside an open dropdown closes it.
func filterScript() string {
	return `<script>
		(function() {
			const form = document.getElementById('filters');
			if (form) {
				form.querySelectorAll('select, input[type=date], input[type=checkbox]').forEach(function(el) {
					el.addEventListener('change', function() { form.submit(); });
				});
			}

			document.querySelectorAll('.dropdown').forEach(function(dropdown) {
				const toggle = dropdown.querySelector('.dropdown-toggle');
				const search = dropdown.querySelector('.dropdown-search');
				toggle.addEventListener('click', function(e) {
					e.preventDefault();
					dropdown.classList.toggle('open');
					if (dropdown.classList.contains('open') && search) {
						search.focus();
					}
				});
				if (search) {
					search.addEventListener('input', function() {
						const term = search.value.toLowerCase();
						dropdown.querySelectorAll('[data-author]').forEach(function(option) {
							const name = option.getAttribute('data-author').toLowerCase();
							option.style.display = name.includes(term) ? '' : 'none';
						});
					});
					search.addEventListener('keydown', function(e) {
						if (e.key === 'Enter') { e.preventDefault(); }
					});
				}
			});

			document.addEventListener('mousedown', function(e) {
				document.querySelectorAll('.dropdown.open').forEach(function(dropdown) {
					if (!dropdown.contains(e.target)) {
						dropdown.classList.remove('open');
					}
				});
			});
		})();
	</script>`
}

// toastScript expires server-rendered toasts, renders pushed ones and dismisses without a reload.
func toastScript() string {
	return `<script>
		(function() {
			const container = document.getElementById('toasts');
			if (!container) return;

			function scheduleExpiry(el) {
				const expires = Date.parse(el.getAttribute('data-expires'));
				if (isNaN(expires)) return;
				setTimeout(function() { el.remove(); }, Math.max(0, expires - Date.now()));
			}

			function bindDismiss(el) {
				const form = el.querySelector('form');
				if (!form) return;
				form.addEventListener('submit', function(e) {
					e.preventDefault();
					fetch('/api/notifications/' + encodeURIComponent(el.id.replace('toast-', '')), { method: 'DELETE' });
					el.remove();
				});
			}

			function addToast(n) {
				if (document.getElementById('toast-' + n.id)) return;
				const el = document.createElement('div');
				el.id = 'toast-' + n.id;
				el.className = 'toast ' + n.type;
				el.setAttribute('role', 'status');
				el.setAttribute('data-expires', n.expiresAt);
				const text = document.createElement('span');
				text.textContent = n.message;
				el.appendChild(text);
				const form = document.createElement('form');
				form.innerHTML = '<button type="submit" aria-label="Dismiss">✕</button>';
				el.appendChild(form);
				container.appendChild(el);
				bindDismiss(el);
				scheduleExpiry(el);
			}

			container.querySelectorAll('.toast').forEach(function(el) {
				bindDismiss(el);
				scheduleExpiry(el);
			});

			if (!('WebSocket' in window)) return;
			const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
			const socket = new WebSocket(proto + location.host + '/ws');
			socket.addEventListener('message', function(e) {
				const msg = JSON.parse(e.data);
				if (msg.type === 'notification.added') {
					addToast(msg.payload);
				} else if (msg.type === 'notification.removed') {
					const el = document.getElementById('toast-' + msg.payload.id);
					if (el) el.remove();
				}
			});
		})();
	</script>`
}

// htmlFooter returns the common HTML footer with all scripts.
func htmlFooter() string {
	return themeToggleScript() + filterScript() + toastScript() + `
</body>
</html>`
}

// buildNavigation returns the navigation bar with the signed-in user and logout.
func buildNavigation(username string) string {
	return fmt.Sprintf(`<div class="nav">
			<a href="/">Branches</a>
			<a href="/api/branches">API (JSON)</a>
			<button class="theme-toggle" onclick="toggleTheme()" aria-label="Toggle theme">🌙 Dark Mode</button>
			<span class="welcome">Welcome, %s</span>
			<form method="POST" action="/logout"><button class="button secondary" type="submit">Logout</button></form>
		</div>`, escapeHTML(username))
}

// escapeHTML escapes special HTML characters to prevent XSS.
func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}

// externalLink creates a safe external link with proper security attributes.
func externalLink(url, text string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`,
		escapeHTML(url), escapeHTML(text))
}

// buildLink renders the build URL as a link only for successful builds.
// Any other status gets an inert label.
func buildLink(b domain.Branch) string {
	if b.BuildLinkActive() {
		return `<span class="build-link">` + externalLink(b.BuildURL, "View Build →") + `</span>`
	}
	return fmt.Sprintf(`<span class="build-link inactive" title="Build %s">%s</span>`,
		escapeHTML(string(b.Status)), escapeHTML(statusLabel(b.Status)))
}

// statusBadge returns the colored badge for a build status.
func statusBadge(s domain.Status) string {
	return fmt.Sprintf(`<span class="status-badge %s">%s %s</span>`,
		escapeHTML(string(s)), statusIcon(s), escapeHTML(string(s)))
}

func statusIcon(s domain.Status) string {
	switch s {
	case domain.StatusSuccess:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusBuilding:
		return "⟳"
	default:
		return ""
	}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusFailed:
		return "Build failed"
	case domain.StatusBuilding:
		return "Building..."
	default:
		return "No build"
	}
}

// formatCommitTime renders t in loc using commitTimeLayout.
func formatCommitTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(commitTimeLayout)
}
