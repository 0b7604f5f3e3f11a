// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dash

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/foliogate/internal/ui/styles"
	"github.com/jeranaias/foliogate/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the dashboard.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	// Overlays replace the whole frame; they center themselves.
	if m.search.IsVisible() {
		return m.search.View()
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	header := m.renderHeader()
	body := m.renderBody()
	status := m.renderStatusBar()

	return m.theme.App.Render(
		lipgloss.JoinVertical(lipgloss.Left, header, body, status),
	)
}

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("foliogate")
	route := m.theme.HeaderMeta.Render(" " + m.routeLabel())
	return m.theme.Header.Render(title + route)
}

func (m *Model) routeLabel() string {
	switch {
	case m.route == RouteHome:
		return "home"
	case m.route == RouteAITools:
		return "ai tools"
	case m.route == RouteVideos:
		return "videos"
	case m.route == RouteBackendless:
		return "backendless"
	case m.route == RoutePrivacy:
		return "privacy"
	case m.route == RouteMessages:
		return "messages"
	case strings.HasPrefix(m.route, blogRoutePrefix):
		return "blog / " + strings.TrimPrefix(m.route, blogRoutePrefix)
	default:
		return m.route
	}
}

func (m *Model) renderBody() string {
	switch {
	case m.route == RouteHome:
		return lipgloss.JoinVertical(lipgloss.Left,
			m.renderStats(),
			m.renderPosts(),
		)

	case strings.HasPrefix(m.route, blogRoutePrefix):
		return m.renderPostDetail()

	case m.route == RouteMessages:
		return m.renderMessages()

	case m.route == RouteAITools:
		return m.renderStaticPage("AI Tools",
			"Experiments with local models, agents, and the chat assistant",
			"wired into this dashboard. Try `foliogate chat` from a shell.")

	case m.route == RouteVideos:
		return m.renderStaticPage("Videos",
			"Talk recordings and screencasts live on the public site;",
			"the terminal gets the listing only.")

	case m.route == RouteBackendless:
		return m.renderStaticPage("Backendless",
			"Notes on building sites that degrade gracefully when the",
			"backend is away. This dashboard is the counterexample.")

	case m.route == RoutePrivacy:
		return m.renderStaticPage("Privacy",
			"The gateway keeps no client data: no cookies, no tracking,",
			"no proxied payloads on disk. Counters are per-route only.")
	}

	return m.theme.EmptyState.Render("Nothing here")
}

// renderStaticPage renders a text-only page inside a card.
func (m *Model) renderStaticPage(title string, lines ...string) string {
	content := m.theme.CardTitle.Render(title) + "\n\n" +
		lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(strings.Join(lines, "\n"))
	return m.theme.Card.Width(m.contentWidth()).Render(content)
}

// =============================================================================
// WIDGETS
// =============================================================================

// renderStats renders the GitHub stats strip. Fail-soft: a failed load
// shows an empty strip, never an error.
func (m *Model) renderStats() string {
	title := m.theme.CardTitle.Render("GitHub")

	var body string
	switch {
	case m.statsTask.Loading():
		body = m.spinner.View() + " loading"

	default:
		stats, ok := m.statsTask.Value()
		if !ok {
			body = m.theme.EmptyState.Render("no stats")
			break
		}

		cells := []string{
			m.statCell("repos", util.IntToString(stats.PublicRepos)),
			m.statCell("stars", util.IntToString(stats.TotalStars)),
			m.statCell("followers", util.IntToString(stats.Followers)),
		}

		var langs []string
		for i, lang := range stats.TopLanguages {
			if i >= 3 {
				break
			}
			langs = append(langs, lang.Name)
		}
		if len(langs) > 0 {
			cells = append(cells, m.statCell("top", strings.Join(langs, ", ")))
		}

		body = strings.Join(cells, "   ")
	}

	return m.theme.Card.Width(m.contentWidth()).Render(title + "\n" + body)
}

func (m *Model) statCell(label, value string) string {
	return m.theme.StatValue.Render(value) + " " + m.theme.StatLabel.Render(label)
}

// renderPosts renders the blog listing.
func (m *Model) renderPosts() string {
	title := m.theme.CardTitle.Render("Blog")

	var body string
	switch {
	case m.postsTask.Loading():
		body = m.spinner.View() + " loading"

	default:
		posts, ok := m.postsTask.Value()
		if !ok || len(posts) == 0 {
			body = m.theme.EmptyState.Render("no posts")
			break
		}

		width := m.contentWidth() - 6
		var lines []string
		for i, post := range posts {
			line := util.TruncateWidth(post.Title, width-14)
			if post.Featured {
				line += " " + m.theme.InfoStyle.Render("[featured]")
			}
			meta := m.theme.ListMeta.Render(" " + post.Date)

			if i == m.selectedPost {
				lines = append(lines, m.theme.ListItemFocus.Width(width).Render(line+meta))
			} else {
				lines = append(lines, m.theme.ListItem.Render(line+meta))
			}
		}
		body = strings.Join(lines, "\n")
	}

	return m.theme.Card.Width(m.contentWidth()).Render(title + "\n" + body)
}

// renderPostDetail renders one post with its glamour-rendered content.
func (m *Model) renderPostDetail() string {
	if m.postTask.Loading() {
		return m.theme.Card.Width(m.contentWidth()).Render(m.spinner.View() + " loading " + m.detailSlug)
	}

	post, ok := m.postTask.Value()
	if !ok {
		return m.theme.Card.Width(m.contentWidth()).Render(
			m.theme.EmptyState.Render("post unavailable"))
	}

	title := m.theme.CardTitle.Render(post.Title)
	meta := m.theme.ListMeta.Render(post.Date + "  " + strings.Join(post.Tags, ", "))

	content := m.renderedPost
	if content == "" {
		content = post.Content
	}

	return m.theme.Card.Width(m.contentWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, meta, "", content))
}

// renderMessages renders the admin contact messages table.
func (m *Model) renderMessages() string {
	title := m.theme.CardTitle.Render("Contact Messages")

	var body string
	switch {
	case m.messagesTask.Loading():
		body = m.spinner.View() + " loading"

	default:
		messages, ok := m.messagesTask.Value()
		if !ok {
			body = m.theme.EmptyState.Render("messages unavailable")
			break
		}
		if len(messages) == 0 {
			body = m.theme.EmptyState.Render("no messages")
			break
		}

		width := m.contentWidth() - 6
		var lines []string
		for _, msg := range messages {
			from := m.theme.StatValue.Render(util.TruncateRunes(msg.Name, 20))
			email := m.theme.ListMeta.Render("<" + msg.Email + ">")
			subject := util.TruncateWidth(msg.Subject, width-40)
			lines = append(lines, from+" "+email+"  "+subject)
		}
		body = strings.Join(lines, "\n")
	}

	return m.theme.Card.Width(m.contentWidth()).Render(title + "\n" + body)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	var parts []string

	if m.dispatcher.Awaiting() {
		parts = append(parts, m.theme.ChordHint.Render("g ..."))
	}

	hints := []struct{ key, desc string }{
		{"C-k", "search"},
		{"?", "shortcuts"},
		{"g+key", "navigate"},
		{"q", "quit"},
	}
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}

	bar := strings.Join(parts, "  ")
	if m.width > 0 {
		return m.theme.StatusBar.Width(m.width - 2).Render(bar)
	}
	return m.theme.StatusBar.Render(bar)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 76
	}
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	return w
}
