package main

import (
	"fmt"

	"github.com/morguldev/morgul/internal/daemon"
)

type receiveCmd struct{}

func (r *receiveCmd) Run(g *globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	client, err := daemon.NewClient(cfg.UDPPort)
	if err != nil {
		return err
	}
	if client.IsRunning() {
		return fmt.Errorf("a receiver is already listening on port %d", cfg.UDPPort)
	}
	return daemon.Run(cfg)
}
