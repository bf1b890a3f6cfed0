// Package tui implements the text user interface: a scrolling per-second
// reachability grid for every configured target, with a drill-down trace
// view for whichever target is currently selected.
package tui

import (
	"context"
	"log"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pingmesh/gridping/internal/engine"
	"github.com/pingmesh/gridping/internal/lookup"
	"github.com/pingmesh/gridping/internal/trace"
	"github.com/pingmesh/gridping/internal/tui/help"
	"github.com/pingmesh/gridping/internal/tui/logwindow"
	"github.com/pingmesh/gridping/internal/tui/nav"
	"github.com/pingmesh/gridping/internal/tui/sortselect"
	"github.com/pingmesh/gridping/internal/tui/table"
	"github.com/pingmesh/gridping/internal/tui/theme"
)

// repaintMsg signals that the engine finished a tick and rows should be
// re-rendered.
type repaintMsg struct{}

// Options controls display choices that are pure UI-collaborator concerns,
// never read by the engine.
type Options struct {
	// HideHops suppresses the trace/hop drill-down panel entirely.
	HideHops bool

	// ReverseScroll swaps which arrow key moves the scrollback offset
	// forward vs. backward in time.
	ReverseScroll bool

	// AltScreen renders in the terminal's alternate screen buffer.
	AltScreen bool
}

func (o *Options) hideHops() bool {
	return o != nil && o.HideHops
}

func (o *Options) reverseScroll() bool {
	return o != nil && o.ReverseScroll
}

// Model is the main text UI model. It owns no ping state itself; everything
// it displays is read from the Engine's target and trace tables.
type Model struct {
	eng   *engine.Engine
	th    *theme.Theme
	opts  *Options
	table *table.Model
	trace *table.Model
	sort  *sortselect.Model
	log   *logwindow.Model
	help  *help.Model

	screen   nav.Screen
	showLog  bool
	width    int
	height   int
	fullHelp bool
}

// New creates a new model bound to eng. th selects the color theme; pass
// &theme.Default for the standard look. opts may be nil for all defaults.
func New(eng *engine.Engine, th *theme.Theme, opts *Options) *Model {
	mainTable := table.New(th)
	return &Model{
		eng:    eng,
		th:     th,
		opts:   opts,
		table:  mainTable,
		trace:  table.New(th),
		sort:   sortselect.New(th, mainTable),
		log:    logwindow.New(),
		help:   help.New(th, defaultKeyMap),
		screen: nav.Main,
	}
}

// Init starts the model's background commands.
func (m *Model) Init() tea.Cmd {
	m.refreshRows()
	return tea.Batch(m.log.Init(), m.waitForRepaint())
}

func (m *Model) waitForRepaint() tea.Cmd {
	return func() tea.Msg {
		<-m.eng.Repaint
		return repaintMsg{}
	}
}

// Update processes an incoming message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.updateSizes()
	case repaintMsg:
		m.refreshRows()
		cmds = append(cmds, m.waitForRepaint())
	case nav.GoMsg:
		m.screen = msg.Screen
	}

	// Window resizes are already propagated with log/help space subtracted
	// by updateSizes; forwarding the raw size here would undo that.
	if _, isResize := msg.(tea.WindowSizeMsg); !isResize {
		switch m.screen {
		case nav.SortSelect:
			cmds = append(cmds, m.sort.Update(msg))
		default:
			cmds = append(cmds, m.table.Update(msg))
			cmds = append(cmds, m.trace.Update(msg))
		}
		if m.showLog {
			cmds = append(cmds, m.log.Update(msg))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.screen == nav.SortSelect {
		return nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, defaultKeyMap.Quit):
		m.eng.Stop()
		cmd = tea.Quit
	case key.Matches(msg, defaultKeyMap.Suspend):
		cmd = tea.Suspend
	case key.Matches(msg, defaultKeyMap.Log):
		m.showLog = !m.showLog
		m.updateSizes()
	case key.Matches(msg, defaultKeyMap.Help):
		m.fullHelp = !m.fullHelp
		m.help.SetFullHelp(m.fullHelp)
		m.updateSizes()
	case key.Matches(msg, defaultKeyMap.Up):
		m.selectTarget(m.eng.Selected() - 1)
	case key.Matches(msg, defaultKeyMap.Down):
		m.selectTarget(m.eng.Selected() + 1)
	case key.Matches(msg, defaultKeyMap.Left):
		m.scrollBack(m.scrollSign(1))
	case key.Matches(msg, defaultKeyMap.Right):
		m.scrollBack(m.scrollSign(-1))
	}
	return cmd
}

func (m *Model) scrollSign(sign int) int {
	if m.opts.reverseScroll() {
		return -sign
	}
	return sign
}

func (m *Model) selectTarget(i int) {
	n := m.eng.Targets.Len()
	if n == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	m.eng.SelectTarget(i)
	m.refreshRows()
}

func (m *Model) scrollBack(delta int) {
	d := m.eng.Delt() + delta
	if d < 0 {
		d = 0
	}
	m.eng.SetDelt(d)
	m.table.SetDelt(d)
	m.trace.SetDelt(d)
	m.refreshRows()
}

func (m *Model) updateSizes() {
	m.help.SetWidth(m.width)
	hh := m.help.GetHeight()
	mainHeight := m.height - hh
	if m.showLog {
		logHeight := mainHeight / 3
		m.log.SetSize(m.width, logHeight)
		mainHeight -= logHeight
	}
	sz := tea.WindowSizeMsg{Width: m.width, Height: mainHeight}
	m.table.Update(sz)
	m.trace.Update(sz)
	m.sort.Update(sz)
}

// refreshRows rebuilds the table contents from the engine's current target
// and trace state. Safe to call every tick; it only reads exported fields.
func (m *Model) refreshRows() {
	targets := m.eng.Targets.All()
	rows := make([]table.Row, len(targets))
	for i, t := range targets {
		rows[i] = table.Row{
			RowKey:      table.RowKey{Index: i + 1},
			DisplayHost: t.Name,
			Ring:        t.Ring,
			Stats:       t.Stats,
		}
	}
	m.table.SetRows(rows)

	sel := m.eng.Selected()
	nhop := m.eng.Trace.NHop()
	hopRows := make([]table.Row, 0, nhop)
	for k := 1; k <= nhop; k++ {
		hop := m.eng.Trace.Hop(k)
		host := "?"
		if ip := hop.IP(); ip != nil {
			host = lookup.Addr(ip)
		}
		if hop.DT() == trace.Unreachable {
			host += " (unreachable)"
		}
		hopRows = append(hopRows, table.Row{
			RowKey:      table.RowKey{Index: k, Group: m.selectedName(sel)},
			DisplayHost: host,
			Ring:        hop.Ring,
			Stats:       hop.Stats,
		})
	}
	m.trace.SetRows(hopRows)
}

func (m *Model) selectedName(i int) string {
	if i < 0 || i >= m.eng.Targets.Len() {
		return ""
	}
	return m.eng.Targets.At(i).Name
}

// View renders the current screen.
func (m *Model) View() string {
	if m.screen == nav.SortSelect {
		return m.sort.View()
	}
	panes := []string{m.table.View()}
	if !m.opts.hideHops() {
		panes = append(panes, m.trace.View())
	}
	if m.showLog {
		panes = append(panes, m.log.View())
	}
	panes = append(panes, m.help.View())
	return lipgloss.JoinVertical(lipgloss.Top, panes...)
}

// Run starts the engine and the bubbletea program together, blocking until
// the program exits.
func Run(ctx context.Context, eng *engine.Engine, th *theme.Theme, opts *Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(ctx)

	var progOpts []tea.ProgramOption
	if opts == nil || opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(New(eng, th, opts), progOpts...)
	_, err := p.Run()
	eng.Stop()
	cancel()
	if err != nil {
		log.Printf("tui: program exited with error: %v", err)
	}
	return err
}
