package main

import (
	"fmt"

	"github.com/morguldev/morgul/internal/trigger"
)

type triggerCmd struct {
	Addr    string  `help:"Trigger target address." default:"255.255.255.255:9999"`
	Frames  uint64  `help:"Number of frames to acquire." default:"2000"`
	Exptime float32 `help:"Exposure time per frame in seconds." default:"0.001"`
}

func (t *triggerCmd) Run(g *globals) error {
	trig := trigger.Trigger{Frames: t.Frames, ExpTime: t.Exptime}
	if err := trigger.Send(t.Addr, trig); err != nil {
		return err
	}
	fmt.Printf("triggered %d frames at %gs exposure via %s\n", t.Frames, t.Exptime, t.Addr)
	return nil
}
