package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/morguldev/morgul/internal/config"
)

type globals struct {
	Config string `short:"c" help:"Path to the receiver config file." type:"existingfile"`
	Port   uint16 `short:"p" help:"UDP port override."`
}

type cli struct {
	globals

	Receive receiveCmd `cmd:"" help:"Run the receiver daemon in the foreground."`
	Status  statusCmd  `cmd:"" help:"Show status of a running receiver."`
	Stop    stopCmd    `cmd:"" help:"Stop a running receiver."`
	Trigger triggerCmd `cmd:"" help:"Send an acquisition trigger."`
	Version versionCmd `cmd:"" help:"Show version information."`
}

// loadConfig resolves the effective config: an explicit --config path, a
// morgul.yaml in the working directory, or built-in defaults. --port wins
// over whatever the file says.
func (g *globals) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case g.Config != "":
		c, err := config.Parse(g.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		if _, err := os.Stat("morgul.yaml"); err == nil {
			c, err := config.Parse("morgul.yaml")
			if err != nil {
				return nil, err
			}
			cfg = c
		} else {
			cfg = config.Default()
		}
	}
	if g.Port != 0 {
		cfg.UDPPort = g.Port
	}
	return cfg, nil
}

func main() {
	var c cli
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"--help"}
	}
	parser, err := kong.New(&c,
		kong.Name("morgul"),
		kong.Description("UDP frame receiver for pixel detector modules."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		parser.FatalIfErrorf(err)
	}
	if err := ctx.Run(&c.globals); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
