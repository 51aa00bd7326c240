package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"call-desk/internal/calls"
	"call-desk/internal/staff"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var errNoAPI = errors.New("no api client configured")

// Options configures the UI.
type Options struct {
	Context  context.Context
	API      API
	Store    *Store
	StaffID  string
	PollTick time.Duration
}

var (
	statusFilters = []string{"", string(calls.StatusOpen), string(calls.StatusInProgress), string(calls.StatusDone)}
	timeFilters   = []string{"", calls.RangeToday, calls.RangeYesterday, calls.RangeWeek}
)

// Model is the root Bubble Tea model.
type Model struct {
	ctx      context.Context
	api      API
	store    *Store
	staffID  string
	pollTick time.Duration

	keys     keyMap
	help     help.Model
	width    int
	height   int
	ready    bool
	showHelp bool

	snapshot Snapshot
	selected int

	statusIdx int
	timeIdx   int

	// custom overrides timeIdx with the from/to bounds typed at the prompt.
	custom   bool
	from, to string

	// assignee is "" for everyone, otherwise a staff id.
	assignee string

	editingRange bool
	rangeInput   textinput.Model

	// notice is the last update failure or hint, shown in the footer.
	notice string
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollInterval
	}
	store := opts.Store
	if store == nil {
		store = &Store{}
	}
	return Model{
		ctx:      ctx,
		api:      opts.API,
		store:    store,
		staffID:  opts.StaffID,
		pollTick: pollTick,
		keys:     defaultKeyMap(),
		help:     help.New(),
		snapshot: store.Snapshot(),

		rangeInput: newRangeInput(),
	}
}

func newRangeInput() textinput.Model {
	in := textinput.New()
	in.Prompt = "range> "
	in.Placeholder = "YYYY-MM-DD..YYYY-MM-DD"
	in.CharLimit = 64
	return in
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.pollTick), fetchSnapshotCmd(m.store))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchSnapshotCmd(m.store), tickCmd(m.pollTick))

	case snapshotMsg:
		m.setSnapshot(Snapshot(msg))
		return m, nil

	case updatedMsg:
		if msg.err != nil {
			// Undo locally first so a failed refetch cannot leave the edit on screen.
			m.notice = "update failed: " + msg.err.Error()
			m.replaceRow(msg.prev)
			return m, m.refetchCmd()
		}
		m.notice = ""
		m.replaceRow(msg.row)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.editingRange {
		return m.handleRangeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refetchCmd()
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.snapshot.Calls)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.CycleStatus):
		m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
		return m.applyFilter()
	case key.Matches(msg, m.keys.CycleTime):
		if m.custom {
			m.custom = false
			m.timeIdx = 0
		} else {
			m.timeIdx = (m.timeIdx + 1) % len(timeFilters)
		}
		return m.applyFilter()
	case key.Matches(msg, m.keys.CustomRange):
		m.editingRange = true
		m.rangeInput.SetValue("")
		if m.custom {
			m.rangeInput.SetValue(m.from + ".." + m.to)
		}
		return m, m.rangeInput.Focus()
	case key.Matches(msg, m.keys.ToggleMine):
		if m.staffID == "" {
			m.notice = "set staff_id in the config to filter by assignee"
			return m, nil
		}
		if m.assignee == m.staffID {
			m.assignee = ""
		} else {
			m.assignee = m.staffID
		}
		return m.applyFilter()
	case key.Matches(msg, m.keys.CycleStaff):
		m.assignee = nextAssignee(m.assignee, m.snapshot.Staff)
		return m.applyFilter()
	case key.Matches(msg, m.keys.MarkOpen):
		return m.setStatus(calls.StatusOpen)
	case key.Matches(msg, m.keys.MarkInProgress):
		return m.setStatus(calls.StatusInProgress)
	case key.Matches(msg, m.keys.MarkDone):
		return m.setStatus(calls.StatusDone)
	case key.Matches(msg, m.keys.CycleAssignee):
		return m.cycleAssignee()
	}
	return m, nil
}

// filter is the list query the current filter keys describe.
func (m Model) filter() Filter {
	f := Filter{Status: statusFilters[m.statusIdx], Time: timeFilters[m.timeIdx], AssignedTo: m.assignee}
	if m.custom {
		f.Time, f.From, f.To = calls.RangeCustom, m.from, m.to
	}
	return f
}

// handleRangeKey drives the custom range prompt. Enter applies, Esc cancels,
// everything else is typed into the input.
func (m Model) handleRangeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editingRange = false
		m.rangeInput.Blur()
		return m, nil
	case tea.KeyEnter:
		from, to, err := parseRange(m.rangeInput.Value())
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.editingRange = false
		m.rangeInput.Blur()
		m.notice = ""
		m.custom = from != "" || to != ""
		m.from, m.to = from, to
		if !m.custom {
			m.timeIdx = 0
		}
		return m.applyFilter()
	}
	var cmd tea.Cmd
	m.rangeInput, cmd = m.rangeInput.Update(msg)
	return m, cmd
}

// parseRange splits "from..to". Either side may be empty; a non-empty side
// must be a YYYY-MM-DD date or an RFC 3339 timestamp.
func parseRange(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", nil
	}
	from, to, ok := strings.Cut(raw, "..")
	if !ok {
		return "", "", fmt.Errorf("range must look like FROM..TO, got %q", raw)
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, v); err == nil {
			continue
		}
		if _, err := time.Parse(time.RFC3339, v); err != nil {
			return "", "", fmt.Errorf("bad range bound %q", v)
		}
	}
	return from, to, nil
}

// nextAssignee steps the list filter from everyone through each staff member
// and back.
func nextAssignee(cur string, profiles []staff.Profile) string {
	if len(profiles) == 0 {
		return ""
	}
	if cur == "" {
		return profiles[0].ID
	}
	for i, p := range profiles {
		if p.ID == cur {
			if i+1 < len(profiles) {
				return profiles[i+1].ID
			}
			return ""
		}
	}
	return ""
}

func (m Model) applyFilter() (tea.Model, tea.Cmd) {
	m.store.SetFilter(m.filter())
	m.selected = 0
	return m, m.refetchCmd()
}

func (m Model) selectedCall() (calls.CallWithDetails, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Calls) {
		return calls.CallWithDetails{}, false
	}
	return m.snapshot.Calls[m.selected], true
}

// setStatus mutates the row locally and sends the PATCH.
func (m Model) setStatus(s calls.TriageStatus) (tea.Model, tea.Cmd) {
	row, ok := m.selectedCall()
	if !ok || row.Status == s {
		return m, nil
	}
	prev := row
	row.Status = s
	m.replaceRow(row)
	return m, m.sendCmd(prev, Change{ID: row.ID, Status: s, UserID: m.staffID})
}

// cycleAssignee moves the selection through unassigned and every staff member.
func (m Model) cycleAssignee() (tea.Model, tea.Cmd) {
	row, ok := m.selectedCall()
	if !ok || len(m.snapshot.Staff) == 0 {
		return m, nil
	}
	prev := row
	next := 0 // index into staff; len(staff) means unassigned
	if row.AssignedTo != nil {
		next = len(m.snapshot.Staff)
		for i, p := range m.snapshot.Staff {
			if p.ID == *row.AssignedTo {
				next = i + 1
				break
			}
		}
	}

	ch := Change{ID: row.ID, UserID: m.staffID}
	if next >= len(m.snapshot.Staff) {
		row.AssignedTo = nil
		row.Profile = nil
		ch.Unassign = true
	} else {
		p := m.snapshot.Staff[next]
		id := p.ID
		row.AssignedTo = &id
		row.Profile = &calls.StaffRef{ID: p.ID, FullName: p.FullName, Email: p.Email}
		ch.AssignedTo = p.ID
	}
	m.replaceRow(row)
	return m, m.sendCmd(prev, ch)
}

func (m *Model) setSnapshot(s Snapshot) {
	m.snapshot = s
	if m.selected >= len(s.Calls) {
		m.selected = max(len(s.Calls)-1, 0)
	}
}

// replaceRow swaps in row by id on a private copy of the list and writes it
// through to the store, so the next tick does not undo it.
func (m *Model) replaceRow(row calls.CallWithDetails) {
	if row.ID == "" {
		return
	}
	m.store.ReplaceCall(row)
	rows := slices.Clone(m.snapshot.Calls)
	for i := range rows {
		if rows[i].ID == row.ID {
			rows[i] = row
			break
		}
	}
	m.snapshot.Calls = rows
}

// Messages

type tickMsg time.Time

type snapshotMsg Snapshot

type updatedMsg struct {
	prev calls.CallWithDetails
	row  calls.CallWithDetails
	err  error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) refetchCmd() tea.Cmd {
	ctx, store, api := m.ctx, m.store, m.api
	return func() tea.Msg {
		if api != nil {
			_ = Refresh(ctx, store, api)
		}
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) sendCmd(prev calls.CallWithDetails, ch Change) tea.Cmd {
	ctx, api := m.ctx, m.api
	return func() tea.Msg {
		if api == nil {
			return updatedMsg{prev: prev, err: errNoAPI}
		}
		row, err := api.UpdateCall(ctx, ch)
		return updatedMsg{prev: prev, row: row, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}
