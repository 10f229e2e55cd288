// Package tui provides the BubbleTea-based interactive message host.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/jmylchreest/bannerq/internal/config"
	"github.com/jmylchreest/bannerq/internal/message"
	"github.com/jmylchreest/bannerq/internal/scope"
	"github.com/jmylchreest/bannerq/internal/script"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeMain Mode = iota
	ModeCompose
	ModeLog
	ModeHelp
)

// bannerHeight is the number of lines reserved for the banner, border
// included.
const bannerHeight = 5

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg  *config.Config
	sess *session

	// Current mode
	mode Mode

	// Components
	queue list.Model
	log   viewport.Model
	input textinput.Model
	help  help.Model

	// State
	width  int
	height int
	ready  bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool
}

// queueItem wraps a queued message for the list component.
type queueItem struct {
	queued    script.Queued
	displayed bool
}

func (i queueItem) Title() string {
	title := i.queued.Label + "  " + i.queued.Properties.TitleTruncated(48)
	if i.displayed {
		return "▶ " + title
	}
	return title
}

func (i queueItem) Description() string {
	props := i.queued.Properties
	return fmt.Sprintf("[%s] %s - %s",
		props.Identifier,
		i.queued.Scope,
		humanize.Time(props.EnqueuedAt))
}

func (i queueItem) FilterValue() string {
	return i.queued.Label + " " + i.queued.Properties.Title
}

// New creates a new TUI model.
func New(cfg *config.Config, logger *slog.Logger) (Model, error) {
	return newModel(cfg, logger, time.Now)
}

func newModel(cfg *config.Config, logger *slog.Logger, now func() time.Time) (Model, error) {
	sess, err := newSession(cfg, logger, now)
	if err != nil {
		return Model{}, err
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Queue"
	l.SetShowStatusBar(true)
	l.SetStatusBarItemName("message", "messages")
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	input := textinput.New()
	input.Placeholder = "Banner title..."
	input.CharLimit = 200

	return Model{
		cfg:   cfg,
		sess:  sess,
		mode:  ModeMain,
		queue: l,
		input: input,
		help:  help.New(),
		keys:  DefaultKeyMap(),
	}, nil
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return nil
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// frameMsg advances animations and timers. wake is the deadline the tick
// was scheduled for.
type frameMsg struct {
	wake time.Time
}

// configMsg carries a reloaded configuration.
type configMsg struct {
	cfg *config.Config
}

// configErrMsg reports a config file that failed to reload.
type configErrMsg struct {
	err error
}

// lockMsg reports a screen lock state change.
type lockMsg struct {
	locked bool
}

// callMsg runs fn on the update goroutine for another goroutine. The
// result is sent on done unless the caller gave up first.
type callMsg struct {
	fn    func(*session) (any, error)
	state *atomic.Int32
	done  chan<- callResult
}

type callResult struct {
	value any
	err   error
}

const (
	callPending int32 = iota
	callClaimed
	callAbandoned
)

// claim marks the call as running. It fails once the caller abandoned it.
func (c callMsg) claim() bool {
	return c.state.CompareAndSwap(callPending, callClaimed)
}

// run executes the call against s if it was not abandoned.
func (c callMsg) run(s *session) bool {
	if !c.claim() {
		return false
	}
	value, err := c.fn(s)
	c.done <- callResult{value: value, err: err}
	return true
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Update component sizes
		m.queue.SetSize(msg.Width, max(msg.Height-bannerHeight-4, 3))
		m.log = viewport.New(msg.Width, max(msg.Height-3, 1))
		m.log.YPosition = 1
		m.input.Width = max(msg.Width-10, 10)
		return m.refresh()

	case frameMsg:
		if msg.wake.Equal(m.sess.tickAt) {
			m.sess.tickAt = time.Time{}
		}
		m.sess.advance()
		return m.refresh()

	case configMsg:
		m.cfg = msg.cfg
		m.sess.applyConfig(msg.cfg)
		return m.refresh(setStatus("Config reloaded", false))

	case configErrMsg:
		return m, setStatus("Config not reloaded: "+msg.err.Error(), true)

	case lockMsg:
		m.sess.lock.SetLocked(msg.locked)
		if msg.locked {
			return m.refresh(setStatus("Screen locked, messages suspended", false))
		}
		return m.refresh(setStatus("Screen unlocked", false))

	case callMsg:
		if !msg.run(m.sess) {
			return m, nil
		}
		return m.refresh()

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, setStatus("Session copied to clipboard", false)
	}

	return m, nil
}

// refresh rebuilds the queue list after the scheduler changed and makes
// sure a frame tick is pending while anything is animating or armed.
func (m Model) refresh(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	cmds = append(cmds, m.queue.SetItems(m.buildListItems()), m.scheduleTick())
	return m, tea.Batch(cmds...)
}

// scheduleTick returns a tick for the next wake-up unless an earlier one
// is already pending.
func (m Model) scheduleTick() tea.Cmd {
	wake, ok := m.sess.nextWake(m.cfg.Animation.Frame.Duration())
	if !ok {
		return nil
	}
	if !m.sess.tickAt.IsZero() && !wake.Before(m.sess.tickAt) {
		return nil
	}
	m.sess.tickAt = wake
	return tea.Tick(max(wake.Sub(m.sess.now()), 0), func(time.Time) tea.Msg {
		return frameMsg{wake: wake}
	})
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The title input swallows every key but its own.
	if m.mode == ModeCompose {
		return m.handleComposeKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeMain
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	// Mode-specific keys
	switch m.mode {
	case ModeMain:
		return m.handleMainKey(msg)
	case ModeLog:
		return m.handleLogKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeMain
		}
		return m, nil
	}

	return m, nil
}

// handleMainKey handles keys in the main view.
func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enqueue):
		return m.enqueue(scope.TypeWebContents.String(), "")
	case key.Matches(msg, m.keys.EnqueueNavigation):
		return m.enqueue(scope.TypeNavigation.String(), "")
	case key.Matches(msg, m.keys.EnqueueWindow):
		return m.enqueue(scope.TypeWindow.String(), "")

	case key.Matches(msg, m.keys.Compose):
		m.mode = ModeCompose
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Accept):
		return m.result(m.sess.primary(), "")
	case key.Matches(msg, m.keys.Dismiss):
		return m.result(m.sess.gesture(), "")
	case key.Matches(msg, m.keys.DismissAll):
		return m.result(m.sess.dismissAll(), "All messages dismissed")

	case key.Matches(msg, m.keys.Suspend):
		suspended, err := m.sess.toggleSuspend()
		if suspended {
			return m.result(err, "Messages suspended")
		}
		return m.result(err, "Messages resumed")

	case key.Matches(msg, m.keys.NextTab):
		return m.result(m.sess.switchTab(1), "")
	case key.Matches(msg, m.keys.PrevTab):
		return m.result(m.sess.switchTab(-1), "")
	case key.Matches(msg, m.keys.NewTab):
		return m.result(m.sess.newTab(), "")
	case key.Matches(msg, m.keys.CloseTab):
		return m.result(m.sess.closeTab(), "")
	case key.Matches(msg, m.keys.Navigate):
		return m.result(m.sess.navigate("link"), "Navigated "+m.sess.activeTab())
	case key.Matches(msg, m.keys.Reload):
		return m.result(m.sess.navigate("reload"), "Reloaded "+m.sess.activeTab())
	case key.Matches(msg, m.keys.MoveWindow):
		return m.result(m.sess.moveWindow(), "Moved "+m.sess.activeTab()+" to a new window")

	case key.Matches(msg, m.keys.Log):
		m.mode = ModeLog
		m.log.SetContent(m.renderLog())
		m.log.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.CopyScript):
		data, err := m.sess.runner.Script().Marshal()
		if err != nil {
			return m, setStatus(err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))
	}

	// Pass to list
	var cmd tea.Cmd
	m.queue, cmd = m.queue.Update(msg)
	return m, cmd
}

// handleComposeKey handles keys while typing a banner title.
func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeMain
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		title := strings.TrimSpace(m.input.Value())
		m.mode = ModeMain
		m.input.Blur()
		if title == "" {
			return m, nil
		}
		return m.enqueue(scope.TypeWebContents.String(), title)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleLogKey handles keys in the event log.
func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Log) {
		m.mode = ModeMain
		return m, nil
	}

	// Pass to viewport
	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) enqueue(scopeType, title string) (tea.Model, tea.Cmd) {
	label, err := m.sess.enqueueDemo(scopeType, title)
	return m.result(err, "Enqueued "+label)
}

// result refreshes after an action and reports err, or ok when set.
func (m Model) result(err error, ok string) (tea.Model, tea.Cmd) {
	switch {
	case err != nil:
		return m.refresh(setStatus(err.Error(), true))
	case ok != "":
		return m.refresh(setStatus(ok, false))
	default:
		return m.refresh()
	}
}

// buildListItems creates list items from the queue.
func (m Model) buildListItems() []list.Item {
	displayed, _ := m.sess.displayed()
	queued := m.sess.runner.Queue()
	items := make([]list.Item, len(queued))
	for i, q := range queued {
		items[i] = queueItem{queued: q, displayed: q.Label == displayed}
	}
	return items
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		err := copyText(text, m.cfg)
		return copyResultMsg{err: err}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeMain, ModeCompose:
		return m.viewMain()
	case ModeLog:
		return m.viewLog()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) viewMain() string {
	var s string
	s += m.renderTabs() + "\n"
	s += m.renderBanner() + "\n"
	s += m.queue.View()

	if m.mode == ModeCompose {
		s += "\nTitle: " + m.input.View()
	}

	// Status bar
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else if m.cfg.TUI.ShowHelp {
		mode := "main"
		if m.mode == ModeCompose {
			mode = "compose"
		}
		s += "\n" + m.buildKeybindBar(m.width, mode)
	}

	return s
}

func (m Model) viewLog() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render("Event Log")

	return header + "\n" + m.log.View() + "\n" + m.buildKeybindBar(m.width, "log")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	h := m.help
	h.ShowAll = true
	h.Width = m.width

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += h.View(m.keys) + "\n"

	s += "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")

	return s
}

// renderTabs renders the tab strip and the queue summary.
func (m Model) renderTabs() string {
	activeStyle := lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Foreground(lipgloss.Color("12"))
	inactiveStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	tabs := make([]string, len(m.sess.tabs))
	for i, name := range m.sess.tabs {
		if i == m.sess.active {
			tabs[i] = activeStyle.Render(name)
		} else {
			tabs[i] = inactiveStyle.Render(name)
		}
	}

	return strings.Join(tabs, inactiveStyle.Render(" │ ")) + "  " + inactiveStyle.Render(m.summary())
}

// summary describes the queue state in one line.
func (m Model) summary() string {
	d := m.sess.runner.Dispatcher()
	parts := []string{english.Plural(d.Len(), "message", "") + " queued"}

	var holders []string
	if m.sess.lock.Locked() {
		holders = append(holders, "screen lock")
	}
	holders = append(holders, m.sess.runner.Tokens()...)
	if d.IsSuspended() {
		if len(holders) > 0 {
			parts = append(parts, "suspended by "+english.WordSeries(holders, "and"))
		} else {
			parts = append(parts, "suspended")
		}
	}
	if !m.sess.lastEvent.IsZero() {
		parts = append(parts, "last change "+humanize.RelTime(m.sess.lastEvent, m.sess.now(), "ago", "from now"))
	}
	return strings.Join(parts, " · ")
}

// renderBanner renders the attached banner, offset and dimmed while it
// is sliding in or out.
func (m Model) renderBanner() string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	_, props, ok := m.sess.runner.Attached()
	if !ok {
		return lipgloss.NewStyle().
			Height(bannerHeight).
			Padding(1, 2).
			Render(dim.Render("No banner"))
	}

	titleStyle := lipgloss.NewStyle().Bold(true)
	buttonStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	description := props.Description
	if description == "" {
		description = dim.Render(props.Identifier.String())
	}
	content := titleStyle.Render(props.TitleTruncated(m.sess.maxTitleWidth)) + "\n" +
		description + "\n" +
		buttonStyle.Render("[ "+props.PrimaryButtonText+" ]") +
		dim.Render("  "+humanize.Time(props.EnqueuedAt))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1)

	if kind, p, ok := m.sess.animator.Progress(m.sess.now()); ok {
		slide := max(m.width/8, 1)
		switch kind {
		case message.AnimationEnter:
			box = box.MarginLeft(int((1 - p) * float64(slide)))
		case message.AnimationExit:
			box = box.MarginLeft(int(p * float64(slide))).
				BorderForeground(lipgloss.Color("8")).
				Faint(true)
		}
	}

	return box.Render(content)
}

// renderLog renders the session trace for the log viewport.
func (m Model) renderLog() string {
	var b strings.Builder
	if _, err := m.sess.runner.Trace().WriteTo(&b); err != nil {
		return err.Error()
	}
	return b.String()
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "main", "compose", "log"
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "main":
		// Priority order for main mode (most important first)
		binds = []keybind{
			{"q", "quit", 1},
			{"e", "enqueue", 2},
			{"enter", "accept", 3},
			{"d", "swipe", 4},
			{"?", "help", 5},
			{"s", "suspend", 6},
			{"tab", "next tab", 7},
			{"n", "navigate", 8},
			{"t", "new tab", 9},
			{"L", "log", 10},
			{"y", "copy", 11},
		}
	case "compose":
		binds = []keybind{
			{"enter", "enqueue", 1},
			{"esc", "cancel", 2},
		}
	case "log":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"j/k", "scroll", 3},
		}
	}

	// Build the bar, adding keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		plainItem := b.key + " " + b.desc
		testLen := len(result) + len(separator) + len(plainItem)
		if result != "" {
			testLen = len(stripANSI(result)) + len(separator) + len(plainItem)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// stripANSI removes ANSI escape codes for length calculation.
func stripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}
