// Package tui is the terminal front end: a month grid with a details pane
// and an add-event input.
package tui

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"calgrid/internal/calendar"
	"calgrid/internal/clock"
	"calgrid/internal/events"
	"calgrid/internal/jump"
	"calgrid/internal/locale"
	"calgrid/internal/viewmodel"
)

type mode int

const (
	modeGrid mode = iota
	modeInput
	modeJump
)

// submitDoneMsg fires when the simulated submit latency has elapsed. gen
// identifies the submission; a mismatch means it was cancelled.
type submitDoneMsg struct{ gen uint64 }

// after delivers msg once d has elapsed on c.
func after(c clock.Clock, d time.Duration, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		done := make(chan struct{})
		c.AfterFunc(d, func() { close(done) })
		<-done
		return msg
	}
}

// Model is the bubbletea model of the calendar.
type Model struct {
	state  viewmodel.State
	clock  clock.Clock
	delay  time.Duration
	labels *locale.Formatter
	jump   *jump.Parser

	keys      keyMap
	help      help.Model
	input     textinput.Model
	jumpInput textinput.Model
	mode      mode

	gen     uint64
	pending *viewmodel.Submission
	applied func(viewmodel.Submission)

	status string
	width  int
}

// Option configures a Model.
type Option func(*Model)

// WithDelay sets the simulated add-event latency.
func WithDelay(d time.Duration) Option {
	return func(m *Model) {
		if d < 0 {
			d = 0
		}
		m.delay = d
	}
}

// WithLocale sets the label formatter.
func WithLocale(f *locale.Formatter) Option {
	return func(m *Model) {
		if f != nil {
			m.labels = f
		}
	}
}

// WithEvents seeds the event store, e.g. with imported feed records.
func WithEvents(s events.Store) Option {
	return func(m *Model) { m.state.Events = s }
}

// OnApplied registers a callback run after a submission is applied.
func OnApplied(fn func(viewmodel.Submission)) Option {
	return func(m *Model) { m.applied = fn }
}

// New builds a Model starting at today's month with today selected.
func New(c clock.Clock, opts ...Option) Model {
	if c == nil {
		c = clock.Real()
	}

	in := textinput.New()
	in.Placeholder = "Add event"
	in.CharLimit = 200

	ji := textinput.New()
	ji.Placeholder = "next friday, 2024-03-05, in 2 weeks..."
	ji.Prompt = "go to: "

	m := Model{
		state:     viewmodel.New(c.Now()),
		clock:     c,
		delay:     viewmodel.DefaultSubmitDelay,
		labels:    locale.New(),
		jump:      jump.New(),
		keys:      defaultKeys(),
		help:      help.New(),
		input:     in,
		jumpInput: ji,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// State returns the current view-model state.
func (m Model) State() viewmodel.State { return m.state }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case submitDoneMsg:
		return m.completeSubmit(msg), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeJump:
			return m.updateJump(msg)
		default:
			return m.updateGrid(msg)
		}
	}
	return m, nil
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Left):
		m.state = m.state.MoveSelection(-1)
	case key.Matches(msg, m.keys.Right):
		m.state = m.state.MoveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.state = m.state.MoveSelection(-7)
	case key.Matches(msg, m.keys.Down):
		m.state = m.state.MoveSelection(7)
	case key.Matches(msg, m.keys.PrevMonth):
		m.state = m.state.Navigate(-1)
	case key.Matches(msg, m.keys.NextMonth):
		m.state = m.state.Navigate(1)
	case key.Matches(msg, m.keys.Today):
		m.state = m.state.Select(calendar.FromTime(m.clock.Now()))
	case key.Matches(msg, m.keys.Clear):
		m.state = m.state.ClearSelection()
	case key.Matches(msg, m.keys.Jump):
		m.mode = modeJump
		m.jumpInput.SetValue("")
		cmd := m.jumpInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Add):
		if m.state.Selected == nil {
			m.status = "Select a date first"
			return m, nil
		}
		m.mode = modeInput
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeGrid
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		return m.submit()
	}
	if m.state.Pending {
		// Input is frozen until the pending submission lands.
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.state = m.state.SetInput(m.input.Value())
	return m, cmd
}

func (m Model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeGrid
		m.jumpInput.Blur()
		return m, nil
	case tea.KeyEnter:
		d, err := m.jump.Resolve(m.jumpInput.Value(), m.clock.Now())
		if err != nil {
			if errors.Is(err, jump.ErrNoDate) {
				m.status = "No date found in " + strconv.Quote(m.jumpInput.Value())
			} else {
				m.status = err.Error()
			}
			return m, nil
		}
		m.state = m.state.Select(d)
		m.mode = modeGrid
		m.jumpInput.Blur()
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	return m, cmd
}

// submit starts the delayed add. Further submits are dropped until it lands.
func (m Model) submit() (tea.Model, tea.Cmd) {
	next, sub, ok := m.state.BeginSubmit()
	if !ok {
		if m.state.Pending {
			m.status = "Still adding the previous event"
		}
		return m, nil
	}
	m.state = next
	m.pending = &sub
	m.gen++
	return m, after(m.clock, m.delay, submitDoneMsg{gen: m.gen})
}

func (m Model) completeSubmit(msg submitDoneMsg) Model {
	if m.pending == nil || msg.gen != m.gen {
		return m
	}
	sub := *m.pending
	m.pending = nil
	m.state = m.state.CompleteSubmit(sub, events.NewID(sub.Date.Key()))
	m.input.SetValue("")
	if m.applied != nil {
		m.applied(sub)
	}
	return m
}

// quit drops a pending submission so it never applies after teardown.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.pending != nil {
		m.gen++
		m.pending = nil
		m.state = m.state.CancelSubmit()
	}
	return m, tea.Quit
}

// Run starts the program on the terminal until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
