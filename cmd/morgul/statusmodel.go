package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morguldev/morgul/internal/daemon"
)

type tickMsg time.Time

type refreshMsg struct {
	state *daemon.Status
	err   error
}

// dashModel is the bubbletea model behind `morgul status --watch`. It
// polls the daemon once a second and redraws.
type dashModel struct {
	client *daemon.Client
	port   uint16

	state  *daemon.Status
	err    error
	width  int
	height int
}

func newDashModel(client *daemon.Client, port uint16) dashModel {
	return dashModel{client: client, port: port, width: 80}
}

func (m dashModel) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashModel) fetchCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		st, err := client.Status()
		return refreshMsg{state: st, err: err}
	}
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tea.Batch(m.fetchCmd(), tickCmd())
	case refreshMsg:
		m.state = msg.state
		m.err = msg.err
	}
	return m, nil
}
