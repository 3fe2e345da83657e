package main

import (
	"fmt"

	"github.com/morguldev/morgul/internal/daemon"
)

type stopCmd struct{}

func (s *stopCmd) Run(g *globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(cfg.UDPPort)
	if err != nil {
		return err
	}
	if !client.IsRunning() {
		fmt.Printf("no receiver running on port %d\n", cfg.UDPPort)
		return nil
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Printf("receiver on port %d stopped\n", cfg.UDPPort)
	return nil
}
