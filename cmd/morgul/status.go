package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morguldev/morgul/internal/daemon"
)

type statusCmd struct {
	Watch bool `short:"w" help:"Keep the status on screen and refresh it every second."`
}

func (s *statusCmd) Run(g *globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(cfg.UDPPort)
	if err != nil {
		return err
	}

	if s.Watch {
		m := newDashModel(client, cfg.UDPPort)
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		return err
	}

	st, err := client.Status()
	if err != nil {
		fmt.Println(renderDown(cfg.UDPPort))
		return nil
	}
	fmt.Println(renderStatus(st))
	return nil
}
