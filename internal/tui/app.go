// Package tui is the full-screen room view: now playing, queue, members,
// and the activity feed, refreshed live from the session.
package tui

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/auxroom/auxroom/internal/core"
	auxerrors "github.com/auxroom/auxroom/internal/errors"
	"github.com/auxroom/auxroom/internal/feed"
	"github.com/auxroom/auxroom/internal/session"
	"github.com/auxroom/auxroom/internal/tui/components"
	"github.com/auxroom/auxroom/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowPlaying Panel = iota
	PanelQueue
	PanelMembers
	PanelActivity
)

// inputMode says what the text input at the bottom is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputChat
	inputReact
)

const maxFeedEvents = 100

// App holds the TUI application state
type App struct {
	Session *session.Session
	Feed    <-chan feed.Event
	Updates <-chan struct{}
	Theme   styles.Theme
	Refresh time.Duration
}

// Model is the main TUI model
type Model struct {
	app          *App
	width        int
	height       int
	focusedPanel Panel

	// State, refreshed from the session
	users    []core.User
	queue    []core.Track
	current  *core.Track
	state    *core.PlaybackState
	counts   map[string]int64
	hostName string
	isHost   bool
	events   []feed.Event

	// Components
	nowPlaying *components.NowPlaying
	queueView  *components.Queue
	members    *components.Members
	activity   *components.Activity

	// Overlays
	showHelp bool
	mode     inputMode
	input    textinput.Model

	// Error handling
	lastError   error
	errorExpiry time.Time // When to clear the error

	// Quit flag
	quitting bool
}

// NewModel creates a new TUI model
func NewModel(app *App) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		app:        app,
		nowPlaying: components.NewNowPlaying(app.Theme),
		queueView:  components.NewQueue(app.Theme),
		members:    components.NewMembers(app.Theme),
		activity:   components.NewActivity(app.Theme),
		input:      ti,
	}
	m.refreshData()
	return m
}

// refreshData pulls the latest room state out of the session.
func (m *Model) refreshData() {
	s := m.app.Session

	userMap := s.Users()
	users := make([]core.User, 0, len(userMap))
	hostName := ""
	for _, u := range userMap {
		users = append(users, u)
		if u.IsHost {
			hostName = u.Name
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	m.users = users
	m.hostName = hostName
	m.isHost = s.IsHost()
	m.queue = s.QueueTracks()
	m.current = s.CurrentTrack()
	m.counts = s.ReactionCounts()

	snap := s.Engine.Snapshot(time.Now())
	if snap.HasTrack() {
		m.state = &snap
	} else {
		m.state = nil
	}
}

// Messages
type tickMsg time.Time
type refreshMsg struct{}
type activityMsg feed.Event
type errMsg error

// Commands
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.app.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForUpdate() tea.Cmd {
	updates := m.app.Updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return refreshMsg{}
	}
}

func (m Model) waitForActivity() tea.Cmd {
	events := m.app.Feed
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return activityMsg(e)
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.waitForUpdate(),
		m.waitForActivity(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		// Position projection only needs a redraw, not a store read.
		if time.Now().After(m.errorExpiry) {
			m.lastError = nil
		}
		return m, m.tick()

	case refreshMsg:
		m.refreshData()
		return m, m.waitForUpdate()

	case activityMsg:
		m.events = append(m.events, feed.Event(msg))
		if len(m.events) > maxFeedEvents {
			m.events = m.events[len(m.events)-maxFeedEvents:]
		}
		return m, m.waitForActivity()

	case errMsg:
		if msg != nil {
			m.lastError = msg
			m.errorExpiry = time.Now().Add(5 * time.Second) // Show error for 5 seconds
		}
		return m, nil
	}

	if m.mode != inputNone {
		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		return m, inputCmd
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.mode != inputNone {
		return m.handleInputKeyPress(msg)
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "c":
		m.mode = inputChat
		m.input.Placeholder = "Say something..."
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "e":
		m.mode = inputReact
		m.input.Placeholder = "Emoji to send, e.g. 🔥"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "tab":
		m.focusedPanel = (m.focusedPanel + 1) % 4
		return m, nil

	case "shift+tab":
		m.focusedPanel = (m.focusedPanel + 3) % 4
		return m, nil
	}

	// Playback controls, host only; listeners get the permission error in
	// the status bar.
	switch msg.String() {
	case " ":
		return m, m.togglePlayPause()
	case "n":
		return m, m.nextTrack()
	case "p":
		return m, m.prevTrack()
	case "left":
		return m, m.seekBy(-5)
	case "right":
		return m, m.seekBy(5)
	case "r":
		m.refreshData()
		return m, nil
	}

	// Panel-specific keys
	switch m.focusedPanel {
	case PanelQueue:
		switch msg.String() {
		case "j", "down":
			m.queueView.ScrollDown()
		case "k", "up":
			m.queueView.ScrollUp()
		}
	case PanelMembers:
		switch msg.String() {
		case "j", "down":
			m.members.SelectNext()
		case "k", "up":
			m.members.SelectPrev()
		case "enter":
			return m, m.transferHost()
		}
	}

	return m, nil
}

func (m Model) handleInputKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = inputNone
		m.input.Blur()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = inputNone
		m.input.Blur()
		if text == "" {
			return m, nil
		}
		if mode == inputChat {
			return m, m.say(text)
		}
		return m, m.react(text)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	return m, inputCmd
}

func (m Model) say(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errMsg(m.app.Session.Say(ctx, text))
	}
}

func (m Model) react(emoji string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errMsg(m.app.Session.React(ctx, emoji))
	}
}

func (m Model) togglePlayPause() tea.Cmd {
	playing := m.state != nil && m.state.IsPlaying
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if playing {
			return errMsg(m.app.Session.Sync.Pause(ctx))
		}
		return errMsg(m.app.Session.Sync.Play(ctx))
	}
}

func (m Model) nextTrack() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := m.app.Session.Queue.Next(ctx)
		return errMsg(err)
	}
}

func (m Model) prevTrack() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := m.app.Session.Queue.Previous(ctx)
		return errMsg(err)
	}
}

func (m Model) seekBy(delta float64) tea.Cmd {
	pos := m.app.Session.Engine.Position() + delta
	if pos < 0 {
		pos = 0
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errMsg(m.app.Session.Sync.Seek(ctx, pos))
	}
}

func (m Model) transferHost() tea.Cmd {
	selected := m.members.Selected()
	if selected < 0 || selected >= len(m.users) {
		return nil
	}
	target := m.users[selected]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errMsg(m.app.Session.TransferHost(ctx, target.ID))
	}
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	// Main layout: two columns
	// Left: Now Playing (top), Queue (bottom)
	// Right: Members (top), Activity (bottom)

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 40 / 100
	bottomHeight := m.height - topHeight - 2

	nowPlaying := m.nowPlaying.Render(m.current, m.state, m.hostName, m.counts,
		leftWidth-2, topHeight-2, m.focusedPanel == PanelNowPlaying)
	currentID := ""
	if m.current != nil {
		currentID = m.current.ID
	}
	queueView := m.queueView.Render(m.queue, currentID,
		leftWidth-2, bottomHeight-2, m.focusedPanel == PanelQueue)
	membersView := m.members.Render(m.users, m.app.Session.Self().ID,
		rightWidth-2, topHeight-2, m.focusedPanel == PanelMembers)
	activityView := m.activity.Render(m.events,
		rightWidth-2, bottomHeight-2, m.focusedPanel == PanelActivity)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowPlaying, queueView)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, membersView, activityView)

	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)

	statusBar := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, main, statusBar)
}

func (m Model) renderStatusBar() string {
	theme := m.app.Theme

	if m.mode != inputNone {
		return lipgloss.NewStyle().
			Width(m.width).
			Padding(0, 1).
			Render(m.input.View())
	}

	role := "listening"
	if m.isHost {
		role = theme.Host.Render("hosting")
	}
	keys := "q:quit  ?:help  c:chat  e:react  tab:switch panel"
	if m.isHost {
		keys = "q:quit  ?:help  c:chat  e:react  space:play/pause  n/p:track  ←/→:seek  tab:switch panel"
	}
	status := theme.Dim.Render(keys) + "  " +
		theme.Muted.Render("["+m.app.Session.RoomID()+"] "+role)

	if m.lastError != nil {
		hint := auxerrors.GetSuggestion(m.lastError)
		text := "Error: " + m.lastError.Error()
		if hint != "" {
			text += " (" + hint + ")"
		}
		status = theme.Alert.Render(text)
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := "Auxroom UI - Keyboard Shortcuts"
	divider := styles.Repeat("═", len(title))

	help := `
  ` + title + `
  ` + divider + `

  Global
  ──────
  q, Ctrl+C    Quit
  ?            Toggle help
  c            Chat
  e            React
  Tab          Next panel
  Shift+Tab    Previous panel
  r            Refresh

  Playback (host only)
  ────────────────────
  Space        Play/Pause
  n            Next track
  p            Previous track
  ←/→          Seek 5s

  Queue Panel
  ───────────
  j/↓          Scroll down
  k/↑          Scroll up

  Members Panel
  ─────────────
  j/↓          Select next
  k/↑          Select previous
  Enter        Make host (host only)

  Press ? or Esc to close
`

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(m.app.Theme.BorderStyle.Render(help))
}

// Run starts the TUI application and blocks until it exits.
func Run(app *App) error {
	model := NewModel(app)
	p := tea.NewProgram(model, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
