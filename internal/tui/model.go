// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/staranto/tasksync/internal/mutation"
	"github.com/staranto/tasksync/internal/output"
	"github.com/staranto/tasksync/internal/query"
	"github.com/staranto/tasksync/internal/session"
	"github.com/staranto/tasksync/internal/tasks"
)

const (
	loadingMessage = "Loading..."
	refreshEvery   = time.Second
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f6be00"))
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c853"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5252"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c8f0")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5252"))
)

type (
	changedMsg struct{}
	errMsg     struct{ err error }
	tickMsg    time.Time
)

// Model is the bubbletea model for one session.
type Model struct {
	sess    *session.Session
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	changes chan struct{}
	errs    chan error
	unsubs  []func()

	cursor int
	err    error
	width  int
}

// New returns a model bound to sess. Call Close when the program exits.
func New(sess *session.Session) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		sess:    sess,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
		changes: make(chan struct{}, 1),
		errs:    make(chan error, 8),
	}

	// Session listeners can fire inside the session's critical sections, so
	// they only signal; the program loop does the work.
	m.unsubs = append(m.unsubs,
		sess.Subscribe(func() {
			select {
			case m.changes <- struct{}{}:
			default:
			}
		}),
		sess.OnError(func(mu mutation.Mutation, err error) {
			select {
			case m.errs <- fmt.Errorf("%s failed: %w", mu, err):
			default:
				log.WithError(err).Warn("dropped error notification")
			}
		}),
	)
	return m
}

// Close detaches the model from its session.
func (m *Model) Close() {
	for _, u := range m.unsubs {
		u()
	}
}

func waitForChange(c <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-c
		return changedMsg{}
	}
}

func waitForError(c <-chan error) tea.Cmd {
	return func() tea.Msg {
		return errMsg{err: <-c}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForChange(m.changes), waitForError(m.errs), tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case changedMsg:
		m.clampCursor()
		return m, waitForChange(m.changes)

	case errMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, waitForError(m.errs)

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Create):
		m.err = nil
		m.sess.SubmitCreate()

	case key.Matches(msg, m.keys.Pick):
		m.complete(int(msg.Runes[0] - '1'))

	case key.Matches(msg, m.keys.Complete):
		m.complete(m.cursor)

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		m.clampCursor()

	case key.Matches(msg, m.keys.Offline):
		m.sess.SetOffline(!m.sess.OfflineForced())

	case key.Matches(msg, m.keys.Refetch):
		m.err = nil
		return m.refetch()
	}
	return nil
}

// complete submits a completion for the item at index i of the list.
func (m *Model) complete(i int) {
	data, _ := m.sess.CurrentCollection()
	if i < 0 || i >= len(data) {
		return
	}
	it := data[i]
	if it.IsPlaceholder() {
		m.err = errors.New("that task is still being created")
		return
	}
	m.err = nil
	m.cursor = i
	m.sess.SubmitComplete(it.ID)
	m.clampCursor()
}

func (m *Model) refetch() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		_, err := sess.Refetch(context.Background())
		if err == nil || errors.Is(err, query.ErrDisabled) || tasks.IsCancelled(err) {
			return nil
		}
		return errMsg{err: fmt.Errorf("refetch failed: %w", err)}
	}
}

func (m *Model) clampCursor() {
	data, _ := m.sess.CurrentCollection()
	if m.cursor >= len(data) {
		m.cursor = len(data) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// busy reports whether the spinner should show.
func (m *Model) busy() bool {
	n := m.sess.PendingMutationCount()
	if m.sess.IsFetching() {
		n++
	}
	return n > 0 && m.sess.IsOnline()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString("  ")
	b.WriteString(m.statusLine())
	if m.busy() {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	data, ok := m.sess.CurrentCollection()
	switch {
	case !ok:
		b.WriteString(loadingMessage + "\n")
	case len(data) == 0:
		b.WriteString(output.EmptyMessage + "\n")
	default:
		for i, it := range data {
			b.WriteString(m.renderItem(i, it))
			b.WriteByte('\n')
		}
	}

	if at := m.sess.UpdatedAt(); !at.IsZero() {
		b.WriteString("\n" + dimStyle.Render("updated "+humanize.Time(at)) + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) statusLine() string {
	if m.sess.IsOnline() {
		return onlineStyle.Render("online")
	}
	return offlineStyle.Render(fmt.Sprintf("offline (%d pending)", m.sess.PendingMutationCount()))
}

func (m *Model) renderItem(i int, it tasks.Item) string {
	prefix := "  "
	if i == m.cursor {
		prefix = cursorStyle.Render("> ")
	}

	num := fmt.Sprintf("%d. ", i+1)
	if i >= 9 {
		num = "   "
	}

	if it.IsPlaceholder() {
		return prefix + num + pendingStyle.Render(it.Label+output.PendingSuffix)
	}
	return prefix + num + it.Label
}

// Run drives a bubbletea program over sess until the user quits or ctx is
// done.
func Run(ctx context.Context, sess *session.Session, opts ...tea.ProgramOption) error {
	m := New(sess)
	defer m.Close()

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
