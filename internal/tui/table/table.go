// Package table implements a table for displaying a scrolling per-second
// reachability grid for a list of hosts or trace hops.
package table

import (
	"cmp"
	"fmt"
	"io"
	"log"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/pingmesh/gridping/internal/outcome"
	"github.com/pingmesh/gridping/internal/ring"
	"github.com/pingmesh/gridping/internal/stats"
	"github.com/pingmesh/gridping/internal/tui/help"
	"github.com/pingmesh/gridping/internal/tui/nav"
	"github.com/pingmesh/gridping/internal/tui/theme"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// Minimum width for columns determined fractionally.
	minColWidth = 10

	// Latency at which a grid cell displays at maximum heat.
	heatMaxMs = 250.0

	horizontalPadding = 1
)

var (
	defaultSort = []SortColumn{
		{ColumnID: ColIndex},
		{ColumnID: ColHost},
	}

	availSortColumns = []ColumnID{ColIndex, ColHost, ColAvgMs, ColJitter, ColPctLoss}
)

// SortColumn identifies a column to sort by.
type SortColumn struct {
	ColumnID
	Reverse bool
}

// ColumnID identifies a column.
type ColumnID int

// ColumnID values specified in the order they should appear in the table.
const (
	ColIndex ColumnID = iota
	ColHost
	ColResults
	ColAvgMs
	ColJitter
	ColPctLoss
)

func (c ColumnID) String() string {
	switch c {
	case ColIndex:
		return "ColIndex"
	case ColHost:
		return "ColHost"
	case ColResults:
		return "ColResults"
	case ColAvgMs:
		return "ColAvgMs"
	case ColJitter:
		return "ColJitter"
	case ColPctLoss:
		return "ColPctLoss"
	default:
		return fmt.Sprintf("(unknown:%d)", c)
	}
}

// Display returns a displayable title for this column.
func (c ColumnID) Display() string {
	spec := columnSpecs[slices.IndexFunc(columnSpecs, func(s columnSpec) bool { return s.ID == c })]
	return strings.TrimSpace(spec.Title)
}

// AvailColumns are the columns available for sorting.
func AvailColumns() []ColumnID {
	return append([]ColumnID{}, availSortColumns...)
}

// Describes a column.
type columnSpec struct {
	// ID is the column ID.
	ID ColumnID

	// Title is the title displayed at the top of the column.
	Title string

	// FixedWidth is fixed width for the column.
	FixedWidth int

	// ProportionalWidth, if nonzero, is the proportion of the available space
	// this column will use. (Minus the fixed width columns.)
	ProportionalWidth float64
}

var (
	columnSpecs = []columnSpec{
		{ID: ColIndex, Title: "#", FixedWidth: 3},
		{ID: ColHost, Title: "Host", ProportionalWidth: 2},
		{ID: ColResults, Title: "Grid", ProportionalWidth: 3},
		{ID: ColAvgMs, Title: "AvgMs", FixedWidth: 5},
		{ID: ColJitter, Title: "Jitter", FixedWidth: 6},
		{ID: ColPctLoss, Title: " Loss", FixedWidth: 5},
	}

	headerStyleBase = lipgloss.NewStyle().
			Padding(0, horizontalPadding)
	cellStyleBase = lipgloss.NewStyle().
			Padding(0, horizontalPadding)
)

// Row holds one line of the grid: a single target or trace hop and the ring
// and stats that back it.
type Row struct {
	RowKey

	// DisplayHost is the hostname or IP address to display.
	DisplayHost string

	// Ring is the per-second outcome history backing this row.
	Ring *ring.Ring

	// Stats is the running accumulator backing this row.
	Stats *stats.Stats
}

func (r Row) cells(delt int) map[ColumnID]any {
	st := r.Stats.Snapshot()
	return map[ColumnID]any{
		ColIndex:   r.Index,
		ColHost:    r.DisplayHost,
		ColResults: gridSource{ring: r.Ring, delt: delt},
		ColAvgMs:   st.Avg,
		ColJitter:  st.StdDev,
		ColPctLoss: lossPct(st),
	}
}

func lossPct(st stats.Snapshot) float64 {
	total := st.N + st.Lost
	if total == 0 {
		return 0
	}
	return 100 * float64(st.Lost) / float64(total)
}

func (r Row) sortKeys() map[ColumnID]any {
	st := r.Stats.Snapshot()
	return map[ColumnID]any{
		ColIndex: r.Index,
		ColHost:  r.DisplayHost,
		// Not sortable:
		// ColResults
		ColAvgMs:   st.Avg,
		ColJitter:  st.StdDev,
		ColPctLoss: lossPct(st),
	}
}

// gridSource carries what renderGrid needs to paint one row's history.
type gridSource struct {
	ring *ring.Ring
	delt int
}

// RowKey uniquely identifies a row.
type RowKey struct {
	// Group is used to group related rows, such as all the hops in a trace.
	Group string

	// Index is the numeric index of the row.
	Index int
}

// Model contains the table information.
type Model struct {
	theme         *theme.Theme
	ready         bool
	width, height int
	vp            viewport.Model
	colWidths     []int
	rows          []Row
	sortCols      []SortColumn
	delt          int
	help          *help.Model
}

// New makes an empty grid table with headers.
func New(th *theme.Theme) *Model {
	return &Model{
		theme:     th,
		colWidths: make([]int, len(columnSpecs)),
		sortCols:  append([]SortColumn{}, defaultSort...),
		help:      help.New(th, defaultKeyMap),
	}
}

func (t *Model) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = t.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		cmd = t.handleWindowSizeMsg(msg)
	}

	var vpCmd tea.Cmd
	t.vp, vpCmd = t.vp.Update(msg)
	return tea.Batch(cmd, vpCmd)
}

func (t *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	// Reset full help display after any keypress.
	origHelp := t.help.FullHelp()
	t.help.SetFullHelp(false)
	t.updateSizes()

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, defaultKeyMap.Quit):
		cmd = tea.Quit
	case key.Matches(msg, defaultKeyMap.Sort):
		cmd = nav.Go(nav.SortSelect)
	case key.Matches(msg, defaultKeyMap.Help):
		t.help.SetFullHelp(!origHelp)
		t.updateSizes()
	}

	return cmd
}

func (t *Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) tea.Cmd {
	t.width, t.height = msg.Width, msg.Height
	t.updateSizes()
	return nil
}

func (t *Model) updateSizes() {
	t.help.SetWidth(t.width)
	hh := t.help.GetHeight()
	if !t.ready {
		t.vp = viewport.New(t.width, t.height-hh-1)
		t.ready = true
	}
	t.vp.Width = t.width
	t.vp.Height = t.height - hh - 1
	t.recalcColumnWidths()
}

// Sort returns the current sort columns.
func (t *Model) Sort() []SortColumn {
	return append([]SortColumn{}, t.sortCols...)
}

// SetSort sets the columns to sort the table by. Use without args to restore
// the default.
func (t *Model) SetSort(cols ...SortColumn) {
	if len(cols) == 0 {
		t.sortCols = append([]SortColumn{}, defaultSort...)
		return
	}
	t.sortCols = cols
}

// SetDelt sets the scrollback offset applied to every ring read. UI-owned,
// per-spec: never read on a write path.
func (t *Model) SetDelt(delt int) {
	t.delt = delt
}

func cmpKey(a, b any, reverse bool) (res int) {
	defer func() {
		if reverse {
			res = -res
		}
	}()
	switch a := a.(type) {
	case int:
		b := b.(int)
		return cmp.Compare(a, b)
	case string:
		b := b.(string)
		return cmp.Compare(a, b)
	case float64:
		b := b.(float64)
		return cmp.Compare(a, b)
	}
	log.Panicf("Unhandled sort key type %T", a)
	return 0
}

func (t *Model) cmpRows(a, b Row) int {
	for _, col := range t.sortCols {
		keyA := a.sortKeys()[col.ColumnID]
		keyB := b.sortKeys()[col.ColumnID]
		if res := cmpKey(keyA, keyB, col.Reverse); res != 0 {
			return res
		}
	}
	return 0
}

func (t *Model) recalcColumnWidths() {
	fixedTot := 0
	propTot := 0.0
	for _, c := range columnSpecs {
		fixedTot += t.cellStyle().GetHorizontalPadding()
		if c.FixedWidth != 0 {
			fixedTot += c.FixedWidth
		} else {
			propTot += c.ProportionalWidth
		}
	}
	avail := float64(t.vp.Width - fixedTot)
	for i, c := range columnSpecs {
		if c.FixedWidth != 0 {
			t.colWidths[i] = c.FixedWidth
		} else {
			t.colWidths[i] = int(math.Round(c.ProportionalWidth / propTot * avail))
		}
	}
}

// SetRows replaces the full set of displayed rows.
func (t *Model) SetRows(rows []Row) {
	t.rows = rows
	t.UpdateRows()
}

// UpdateRows re-renders every row with the latest ring and stats data.
func (t *Model) UpdateRows() {
	if !t.ready {
		return
	}
	rows := append([]Row{}, t.rows...)
	slices.SortStableFunc(rows, t.cmpRows)
	lines := make([]string, len(rows))
	for i, r := range rows {
		// Collapse index numbers.
		if i > 0 && r.Index == rows[i-1].Index {
			r.Index = 0
		}
		lines[i] = t.renderRow(r)
	}
	t.vp.SetContent(strings.Join(lines, "\n"))
}

// Left-pads s out to i spaces. Enough spaces will be added to the left of s to make
// it length i; a longer s is cut to i-1 bytes followed by an ellipsis.
func lpad(i int, s string) string {
	n := i - len(s)
	if n < 0 {
		return s[:i-1] + "…"
	}
	return strings.Repeat(" ", n) + s
}

// Right-pads s out to i spaces. Enough spaces will be added to the right of s to make
// it length i; a longer s is cut to i-1 bytes followed by an ellipsis.
func rpad(i int, s string) string {
	n := i - len(s)
	if n < 0 {
		return s[:i-1] + "…"
	}
	return s + strings.Repeat(" ", n)
}

func (t *Model) renderRow(r Row) string {
	cells := r.cells(t.delt)
	var sb strings.Builder
	for i, c := range columnSpecs {
		// A special case for zero index numbers.
		if c.ID == ColIndex && cells[c.ID] == 0 {
			t.renderCell("", t.colWidths[i], &sb)
			continue
		}
		t.renderCell(cells[c.ID], t.colWidths[i], &sb)
	}
	return sb.String()
}

func (t *Model) renderCell(v any, width int, out io.StringWriter) {
	var s string
	switch v := v.(type) {
	case string:
		s = rpad(width, v)
	case int:
		s = lpad(width, strconv.Itoa(v))
	case float64:
		if v < 0 {
			s = lpad(width, "-")
		} else {
			s = lpad(width, fmt.Sprintf("%.1f", v))
		}
	case gridSource:
		s = t.renderGrid(width, v)
	}
	out.WriteString(t.cellStyle().Width(width + t.cellStyle().GetHorizontalPadding()).Render(s))
}

// renderGrid paints the rightmost width seconds of src's ring, most recent on the
// right, oldest on the left.
func (t *Model) renderGrid(width int, src gridSource) string {
	chars := make([]string, width)
	for i := 0; i < width; i++ {
		off := width - i - 1
		chars[i] = t.renderOutcome(src.ring.Get(off, src.delt))
	}
	return strings.Join(chars, "")
}

func (t *Model) renderOutcome(v outcome.Outcome) string {
	switch v {
	case outcome.NoPing:
		return t.theme.Text.Normal.
			Background(t.theme.Colors.NoPing).
			Render(" ")
	case outcome.Lost:
		return t.errStyle().Render("X")
	case outcome.Late:
		return t.errStyle().Render("L")
	}
	lo, hi, ok := outcome.Bucket(v)
	if !ok {
		return " "
	}
	frac := math.Min(1, (lo+hi)/2/heatMaxMs)
	return t.theme.Text.Normal.
		Foreground(t.theme.Heatmap.At(frac)).
		Render("█")
}

func (t *Model) headerView() string {
	var sb strings.Builder
	for i, c := range columnSpecs {
		width := t.colWidths[i]
		sb.WriteString(t.headerStyle().Width(width + 2*horizontalPadding).Render(rpad(width, c.Title)))
	}
	return sb.String()
}

func (t *Model) headerStyle() lipgloss.Style {
	return headerStyleBase.Inherit(t.theme.Text.Important).
		Foreground(t.theme.Colors.OnPrimary).
		Background(t.theme.Colors.Primary)
}

func (t *Model) cellStyle() lipgloss.Style {
	return cellStyleBase.Inherit(t.theme.Text.Normal)
}

func (t *Model) errStyle() lipgloss.Style {
	return t.theme.Text.Normal.
		Foreground(t.theme.Colors.OnError).
		Background(t.theme.Colors.Error)
}

func (t *Model) View() string {
	if !t.ready {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Top, t.headerView(), t.vp.View(), t.help.View())
}
