package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/orchestrator"
	"github.com/five82/arenaview/internal/prefs"
	"github.com/five82/arenaview/internal/state"
)

// Commander applies art commands. *orchestrator.Orchestrator satisfies it.
type Commander interface {
	CycleArt(key card.Key, dir orchestrator.Direction) (state.Snapshot, bool)
	ResetArt(key card.Key) (state.Snapshot, bool)
}

// Zone selects which list has focus.
type Zone int

const (
	ZoneHand Zone = iota
	ZoneBattlefield
)

func (z Zone) String() string {
	if z == ZoneBattlefield {
		return "Battlefield"
	}
	return "Hand"
}

// Options configures the overlay.
type Options struct {
	// Updates delivers store snapshots, typically from state.Store.Subscribe.
	Updates   <-chan state.Snapshot
	Commands  Commander
	ThemeName string
	ShowStats bool
	PrefsPath string
	// Source is shown in the header, usually the tailed log path.
	Source string
}

// Model is the root Bubble Tea model.
type Model struct {
	updates   <-chan state.Snapshot
	commands  Commander
	prefsPath string
	source    string
	keys      keyMap

	theme     Theme
	showStats bool
	showHelp  bool
	width     int
	height    int
	ready     bool

	snapshot    state.Snapshot
	lastUpdated time.Time
	feedClosed  bool

	zone     Zone
	selected [2]int
	status   string

	detail viewport.Model
}

type snapshotMsg state.Snapshot

type feedClosedMsg struct{}

type commandResultMsg struct {
	command string
	key     card.Key
	changed bool
}

// New creates the overlay model.
func New(opts Options) Model {
	return Model{
		updates:   opts.Updates,
		commands:  opts.Commands,
		prefsPath: opts.PrefsPath,
		source:    opts.Source,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		showStats: opts.ShowStats,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, waitForSnapshot(m.updates))
}

func waitForSnapshot(ch <-chan state.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.detailSize()
		if !m.ready {
			m.detail = viewport.New(w, h)
			m.ready = true
		} else {
			m.detail.Width = w
			m.detail.Height = h
		}
		m.refreshDetail()
		return m, nil

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		m.refreshDetail()
		return m, waitForSnapshot(m.updates)

	case feedClosedMsg:
		m.feedClosed = true
		return m, nil

	case commandResultMsg:
		m.status = describeResult(msg)
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshDetail()

	case key.Matches(msg, m.keys.ToggleStats):
		m.showStats = !m.showStats
		m.savePrefs()
		m.refreshDetail()

	case key.Matches(msg, m.keys.SwitchZone):
		m.zone = 1 - m.zone
		m.refreshDetail()

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)

	case key.Matches(msg, m.keys.NextArt):
		return m, m.cycleCmd(orchestrator.Next)

	case key.Matches(msg, m.keys.PrevArt):
		return m, m.cycleCmd(orchestrator.Prev)

	case key.Matches(msg, m.keys.ResetArt):
		return m, m.resetCmd()

	case key.Matches(msg, m.keys.ScrollUp):
		m.detail.HalfPageUp()

	case key.Matches(msg, m.keys.ScrollDown):
		m.detail.HalfPageDown()
	}
	return m, nil
}

func (m Model) cycleCmd(dir orchestrator.Direction) tea.Cmd {
	k, ok := m.selectedKey()
	if !ok || m.commands == nil {
		return nil
	}
	commands := m.commands
	return func() tea.Msg {
		_, changed := commands.CycleArt(k, dir)
		return commandResultMsg{command: "cycle " + dir.String(), key: k, changed: changed}
	}
}

func (m Model) resetCmd() tea.Cmd {
	k, ok := m.selectedKey()
	if !ok || m.commands == nil {
		return nil
	}
	commands := m.commands
	return func() tea.Msg {
		_, changed := commands.ResetArt(k)
		return commandResultMsg{command: "reset", key: k, changed: changed}
	}
}

func describeResult(r commandResultMsg) string {
	if r.command == "reset" {
		if !r.changed {
			return "no art override on " + r.key.String()
		}
		return "art reset for " + r.key.String()
	}
	if !r.changed {
		return "no alternate art for " + r.key.String()
	}
	return "art " + r.command + " for " + r.key.String()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, ShowStats: m.showStats})
}

func (m Model) zoneKeys(z Zone) []card.Key {
	if z == ZoneBattlefield {
		return m.snapshot.Zones.Battlefield
	}
	return m.snapshot.Zones.Hand
}

func (m Model) selectedKey() (card.Key, bool) {
	keys := m.zoneKeys(m.zone)
	idx := m.selected[m.zone]
	if idx < 0 || idx >= len(keys) {
		return "", false
	}
	return keys[idx], true
}

func (m *Model) moveSelection(delta int) {
	n := len(m.zoneKeys(m.zone))
	if n == 0 {
		return
	}
	m.selected[m.zone] = min(max(m.selected[m.zone]+delta, 0), n-1)
	m.refreshDetail()
}

func (m *Model) clampSelection() {
	for _, z := range []Zone{ZoneHand, ZoneBattlefield} {
		n := len(m.zoneKeys(z))
		if m.selected[z] >= n {
			m.selected[z] = max(n-1, 0)
		}
	}
}
