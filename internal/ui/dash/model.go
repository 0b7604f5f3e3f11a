// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dash implements the terminal dashboard.
//
// The shell owns the event bus, the keyboard dispatcher, and the overlay
// components; widgets load their data through fetch tasks scoped to the
// current view, so switching views cancels whatever was in flight.
package dash

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/foliogate/internal/bus"
	"github.com/jeranaias/foliogate/internal/config"
	"github.com/jeranaias/foliogate/internal/fetch"
	"github.com/jeranaias/foliogate/internal/keymap"
	"github.com/jeranaias/foliogate/internal/ui/components"
	"github.com/jeranaias/foliogate/internal/ui/styles"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// =============================================================================
// ROUTES
// =============================================================================

// Navigation routes mirror the site pages.
const (
	RouteHome        = "/"
	RouteAITools     = "/ai-tools"
	RouteVideos      = "/videos"
	RouteBackendless = "/backendless"
	RoutePrivacy     = "/privacy"
	RouteMessages    = "/admin/messages"

	blogRoutePrefix = "/blog/"
)

// =============================================================================
// MESSAGES
// =============================================================================

// busEventMsg carries one bus event into the Update loop.
type busEventMsg struct {
	event bus.Event
}

// taskSettledMsg fires when a fetch task settles or is cancelled.
type taskSettledMsg struct {
	id string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the dashboard shell.
type Model struct {
	theme  *styles.Theme
	cfg    *config.Config
	client *upstream.Client

	dispatcher *keymap.Dispatcher
	events     *bus.Bus
	eventCh    <-chan bus.Event
	cancelSub  func()

	search *components.SearchDialog
	help   *components.HelpOverlay

	spinner spinner.Model

	route  string
	width  int
	height int

	// View-scoped fetch tasks. Nil when the owning view is not mounted.
	statsTask    *fetch.Task[upstream.GitHubStats]
	postsTask    *fetch.Task[[]upstream.BlogPost]
	postTask     *fetch.Task[upstream.BlogPost]
	messagesTask *fetch.Task[[]upstream.StoredMessage]

	selectedPost int
	detailSlug   string
	renderedPost string

	// adminUnlocked is set when the UI gate prompt succeeded before launch.
	// Cosmetic only; the admin secret itself never leaves the gateway.
	adminUnlocked bool

	quitting bool
}

// New creates the dashboard model.
func New(cfg *config.Config, client *upstream.Client, adminUnlocked bool) *Model {
	theme := styles.NewTheme(cfg.UI.Theme)

	events := bus.New(0)
	eventCh, cancelSub := events.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	debounce := cfg.UI.SearchDebounce()

	m := &Model{
		theme:         theme,
		cfg:           cfg,
		client:        client,
		dispatcher:    keymap.NewDispatcher(),
		events:        events,
		eventCh:       eventCh,
		cancelSub:     cancelSub,
		search:        components.NewSearchDialog(defaultCandidates(adminUnlocked), theme, debounce),
		help:          components.NewHelpOverlay(theme),
		spinner:       sp,
		route:         RouteHome,
		adminUnlocked: adminUnlocked,
	}

	return m
}

// Init starts the home view loads and the bus listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForEvent(),
		m.mountRoute(RouteHome),
	)
}

// waitForEvent blocks on the bus subscription and re-arms after each event.
func (m *Model) waitForEvent() tea.Cmd {
	ch := m.eventCh
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{event: ev}
	}
}

// awaitTask converts a task's Done channel into a bubbletea message.
func awaitTask[T any](t *fetch.Task[T]) tea.Cmd {
	return func() tea.Msg {
		<-t.Done()
		return taskSettledMsg{id: t.ID()}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.search.SetSize(msg.Width, msg.Height)
		m.help.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case busEventMsg:
		cmd := m.handleEvent(msg.event)
		return m, tea.Batch(cmd, m.waitForEvent())

	case taskSettledMsg:
		return m, m.handleSettled(msg.id)

	case components.SelectCandidateMsg:
		if msg.Candidate.Kind == "shortcut" {
			m.events.Publish(bus.Event{Type: bus.EventShowShortcuts})
		} else {
			m.events.Publish(bus.Event{Type: bus.EventNavigate, Target: msg.Candidate.Route})
		}
		return m, nil

	case spinner.TickMsg:
		if m.anyLoading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.search.IsVisible() {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey routes a key press through the global dispatcher first, then
// to whichever overlay or view owns the keyboard.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Hard quit is never swallowed by overlays.
	if keyStr == "ctrl+c" {
		return m.quit()
	}

	press := keyPressFrom(keyStr, m.search.InputFocused())
	result := m.dispatcher.Handle(press)

	switch result.Action {
	case keymap.ActionOpenSearch:
		m.events.Publish(bus.Event{Type: bus.EventOpenSearch})
		return m, nil
	case keymap.ActionShowShortcuts:
		m.events.Publish(bus.Event{Type: bus.EventShowShortcuts})
		return m, nil
	case keymap.ActionCloseModals:
		m.events.Publish(bus.Event{Type: bus.EventCloseModals})
		return m, nil
	case keymap.ActionNavigate:
		m.events.Publish(bus.Event{Type: bus.EventNavigate, Target: result.Target})
		return m, nil
	}

	if m.search.IsVisible() {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}

	if m.help.IsVisible() {
		// Overlay swallows everything except the dispatcher keys above.
		return m, nil
	}

	return m.handleViewKey(keyStr)
}

// handleViewKey handles keys owned by the current view.
func (m *Model) handleViewKey(keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case "q":
		return m.quit()

	case "up", "k":
		if m.route == RouteHome && m.selectedPost > 0 {
			m.selectedPost--
		}
		return m, nil

	case "down", "j":
		if m.route == RouteHome {
			if posts, ok := m.postsTask.Value(); ok && m.selectedPost < len(posts)-1 {
				m.selectedPost++
			}
		}
		return m, nil

	case "enter":
		if m.route == RouteHome {
			if posts, ok := m.postsTask.Value(); ok && m.selectedPost < len(posts) {
				slug := posts[m.selectedPost].Slug
				m.events.Publish(bus.Event{Type: bus.EventNavigate, Target: blogRoutePrefix + slug})
			}
		}
		return m, nil

	case "m":
		if m.adminUnlocked {
			m.events.Publish(bus.Event{Type: bus.EventNavigate, Target: RouteMessages})
		}
		return m, nil

	case "backspace":
		if strings.HasPrefix(m.route, blogRoutePrefix) || m.route == RouteMessages {
			m.events.Publish(bus.Event{Type: bus.EventNavigate, Target: RouteHome})
		}
		return m, nil
	}

	return m, nil
}

// handleEvent applies one bus event.
func (m *Model) handleEvent(ev bus.Event) tea.Cmd {
	switch ev.Type {
	case bus.EventOpenSearch:
		m.help.Hide()
		return m.search.Show()

	case bus.EventShowShortcuts:
		m.search.Hide()
		m.help.Toggle()
		return nil

	case bus.EventCloseModals:
		m.search.Hide()
		m.help.Hide()
		return nil

	case bus.EventNavigate:
		if ev.Target == RouteMessages && !m.adminUnlocked {
			return nil
		}
		m.search.Hide()
		m.help.Hide()
		return m.navigate(ev.Target)
	}

	return nil
}

// navigate switches views, cancelling the outgoing view's loads.
func (m *Model) navigate(route string) tea.Cmd {
	if route == m.route {
		return nil
	}

	m.unmountRoute()
	m.route = route
	return m.mountRoute(route)
}

// unmountRoute cancels every in-flight task of the current view.
// Cancellation guarantees no late write lands after the view is gone.
func (m *Model) unmountRoute() {
	if m.statsTask != nil {
		m.statsTask.Cancel()
		m.statsTask = nil
	}
	if m.postsTask != nil {
		m.postsTask.Cancel()
		m.postsTask = nil
	}
	if m.postTask != nil {
		m.postTask.Cancel()
		m.postTask = nil
	}
	if m.messagesTask != nil {
		m.messagesTask.Cancel()
		m.messagesTask = nil
	}
	m.selectedPost = 0
	m.detailSlug = ""
	m.renderedPost = ""
}

// mountRoute starts the loads for the incoming view.
func (m *Model) mountRoute(route string) tea.Cmd {
	client := m.client

	switch {
	case route == RouteHome:
		m.statsTask = fetch.Start(context.Background(), func(ctx context.Context) (upstream.GitHubStats, error) {
			raw, err := client.Stats(ctx)
			if err != nil {
				return upstream.GitHubStats{}, err
			}
			stats, err := upstream.ParseStats(raw)
			if err != nil {
				return upstream.GitHubStats{}, err
			}
			return *stats, nil
		})
		m.postsTask = fetch.Start(context.Background(), func(ctx context.Context) ([]upstream.BlogPost, error) {
			raw, err := client.Posts(ctx, upstream.BlogQuery{})
			if err != nil {
				return nil, err
			}
			return upstream.ParsePosts(raw)
		})
		return tea.Batch(awaitTask(m.statsTask), awaitTask(m.postsTask), m.spinner.Tick)

	case strings.HasPrefix(route, blogRoutePrefix):
		slug := strings.TrimPrefix(route, blogRoutePrefix)
		m.detailSlug = slug
		m.postTask = fetch.Start(context.Background(), func(ctx context.Context) (upstream.BlogPost, error) {
			raw, err := client.PostBySlug(ctx, slug)
			if err != nil {
				return upstream.BlogPost{}, err
			}
			post, err := upstream.ParsePost(raw)
			if err != nil {
				return upstream.BlogPost{}, err
			}
			return *post, nil
		})
		return tea.Batch(awaitTask(m.postTask), m.spinner.Tick)

	case route == RouteMessages:
		m.messagesTask = fetch.Start(context.Background(), func(ctx context.Context) ([]upstream.StoredMessage, error) {
			raw, err := client.Messages(ctx)
			if err != nil {
				return nil, err
			}
			return upstream.ParseMessages(raw)
		})
		return tea.Batch(awaitTask(m.messagesTask), m.spinner.Tick)
	}

	// Static pages load nothing.
	return nil
}

// handleSettled reacts to a task settling. Most widgets just re-render from
// Value; the blog detail pre-renders its markdown once.
func (m *Model) handleSettled(id string) tea.Cmd {
	if m.postTask != nil && m.postTask.ID() == id {
		if post, ok := m.postTask.Value(); ok {
			m.renderedPost = m.renderMarkdown(post.Content)
		}
	}
	return nil
}

// renderMarkdown renders post content with glamour, falling back to the
// raw text when rendering fails.
func (m *Model) renderMarkdown(content string) string {
	styleName := "dark"
	if !m.theme.IsDark {
		styleName = "light"
	}

	width := m.width - 8
	if width < 40 {
		width = 40
	}
	if width > 100 {
		width = 100
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// anyLoading reports whether any mounted task is still in flight.
func (m *Model) anyLoading() bool {
	return m.statsTask.Loading() ||
		m.postsTask.Loading() ||
		m.postTask.Loading() ||
		m.messagesTask.Loading()
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.unmountRoute()
	m.cancelSub()
	m.events.Close()
	return m, tea.Quit
}

// =============================================================================
// HELPERS
// =============================================================================

// keyPressFrom normalizes a bubbletea key string for the dispatcher.
func keyPressFrom(keyStr string, inputFocused bool) keymap.KeyPress {
	press := keymap.KeyPress{InputFocused: inputFocused}

	switch {
	case strings.HasPrefix(keyStr, "ctrl+"):
		press.Ctrl = true
		press.Key = strings.TrimPrefix(keyStr, "ctrl+")
	case strings.HasPrefix(keyStr, "alt+"):
		press.Key = strings.TrimPrefix(keyStr, "alt+")
	default:
		press.Key = keyStr
	}

	return press
}

// defaultCandidates builds the static search set: site pages, shortcuts,
// and the admin view when unlocked.
func defaultCandidates(adminUnlocked bool) []components.Candidate {
	candidates := []components.Candidate{
		{Title: "Home", Route: RouteHome, Kind: "page"},
		{Title: "AI Tools", Route: RouteAITools, Kind: "page"},
		{Title: "Videos", Route: RouteVideos, Kind: "page"},
		{Title: "Backendless", Route: RouteBackendless, Kind: "page"},
		{Title: "Privacy", Route: RoutePrivacy, Kind: "page"},
	}

	for _, s := range keymap.Shortcuts() {
		candidates = append(candidates, components.Candidate{
			Title: s.Description,
			Route: s.Keys,
			Kind:  "shortcut",
		})
	}

	if adminUnlocked {
		candidates = append(candidates, components.Candidate{
			Title: "Messages", Route: RouteMessages, Kind: "admin",
		})
	}

	return candidates
}
