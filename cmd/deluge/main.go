// Command deluge floods one or two receiver hosts with detector-rate UDP
// traffic, armed by the same broadcast triggers a beamline would send.
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/morguldev/morgul/internal/deluge"
)

type cli struct {
	Target      string `arg:"" help:"First receiving host (IPv4)."`
	Target2     string `arg:"" optional:"" help:"Second receiving host; omit to send everything to the first."`
	TargetPort  uint16 `short:"t" default:"30000" help:"First destination port; stream i sends to port+i."`
	ToFirst     int    `short:"f" default:"9" help:"How many of the first nine streams go to the first host."`
	TriggerPort uint16 `default:"9999" help:"Broadcast port to listen for triggers on."`
}

func (c *cli) Run() error {
	target, err := netip.ParseAddr(c.Target)
	if err != nil {
		return fmt.Errorf("parse target: %w", err)
	}
	cfg := deluge.Config{
		Target:      target,
		TargetPort:  c.TargetPort,
		ToFirst:     c.ToFirst,
		TriggerPort: c.TriggerPort,
	}
	if c.Target2 != "" {
		t2, err := netip.ParseAddr(c.Target2)
		if err != nil {
			return fmt.Errorf("parse second target: %w", err)
		}
		cfg.Target2 = t2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return deluge.Run(ctx, cfg)
}

func main() {
	var c cli
	ctx := kong.Parse(&c,
		kong.Name("deluge"),
		kong.Description("Detector-scale UDP load generator."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
