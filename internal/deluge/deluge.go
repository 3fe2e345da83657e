// Package deluge generates detector-scale UDP load: one sender goroutine
// per stream, all armed by broadcast triggers, each producing frames of 64
// packets paced by the trigger's exposure time.
package deluge

import (
	"context"
	"fmt"
	"log"
	"net/netip"
	"time"

	"github.com/morguldev/morgul/internal/netif"
	"github.com/morguldev/morgul/internal/trigger"
)

// streamsPerSource is how many UDP streams one interface address can
// sustain at full Jungfrau rate.
const streamsPerSource = 4

// streamsPerTarget is how many streams one receiving host takes before
// load spills to the second target.
const streamsPerTarget = 9

// Config configures a deluge run.
type Config struct {
	// Target is the first receiving host.
	Target netip.Addr
	// Target2 is the second receiving host; unset means everything goes
	// to Target.
	Target2 netip.Addr
	// TargetPort is the first destination port; stream i sends to
	// TargetPort+i.
	TargetPort uint16
	// ToFirst limits how many of the first streamsPerTarget streams go to
	// Target. Default streamsPerTarget.
	ToFirst int
	// TriggerPort is the broadcast port to listen for triggers on.
	TriggerPort uint16
	// SourcePrefix selects which local interfaces send (first IPv4
	// octet). Default 192.
	SourcePrefix byte
}

func (c *Config) applyDefaults() {
	if c.TargetPort == 0 {
		c.TargetPort = 30000
	}
	if c.ToFirst == 0 || c.ToFirst > streamsPerTarget {
		c.ToFirst = streamsPerTarget
	}
	if c.TriggerPort == 0 {
		c.TriggerPort = 9999
	}
	if c.SourcePrefix == 0 {
		c.SourcePrefix = 192
	}
	if !c.Target2.IsValid() {
		c.Target2 = c.Target
	}
}

// stream is one source-to-destination UDP flow.
type stream struct {
	source netip.Addr
	target netip.Addr
	port   uint16
}

// planStreams lays out streams across source addresses: streamsPerSource
// consecutive ports per source, and the first ToFirst streams to Target
// before spilling to Target2 in blocks of streamsPerTarget.
func planStreams(cfg Config, sources []netip.Addr) []stream {
	var streams []stream
	i := 0
	for _, src := range sources {
		for j := 0; j < streamsPerSource; j++ {
			// Offset into the repeating [Target x 9, Target2 x 9] cycle;
			// ToFirst shifts the boundary for the first block.
			idx := (i + streamsPerTarget - cfg.ToFirst) % (2 * streamsPerTarget)
			target := cfg.Target
			if idx >= streamsPerTarget {
				target = cfg.Target2
			}
			streams = append(streams, stream{
				source: src,
				target: target,
				port:   cfg.TargetPort + uint16(i),
			})
			i++
		}
	}
	return streams
}

// Run starts all senders and serves triggers until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	cfg.applyDefaults()

	sources, err := netif.AddrsWithPrefix(cfg.SourcePrefix)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no %d.* interfaces found; is the detector network up?", cfg.SourcePrefix)
	}

	streams := planStreams(cfg, sources)

	var chans []chan trigger.Trigger
	done := make(chan struct{}, len(streams))
	for _, st := range streams {
		log.Printf("deluge: starting %s -> %s:%d", st.source, st.target, st.port)
		ch := make(chan trigger.Trigger, 1)
		chans = append(chans, ch)
		s, err := newSender(st)
		if err != nil {
			return err
		}
		go s.run(ctx, ch, done)
	}

	l, err := trigger.Listen(cfg.TriggerPort)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	log.Printf("deluge: %d streams armed, waiting for triggers on :%d", len(streams), cfg.TriggerPort)

	return l.Run(ctx, func(trig trigger.Trigger) {
		start := time.Now()
		for _, ch := range chans {
			select {
			case ch <- trig:
			case <-ctx.Done():
				return
			}
		}
		// Barrier: the next trigger is not accepted until every stream
		// has finished this acquisition.
		for range chans {
			select {
			case <-done:
			case <-ctx.Done():
				return
			}
		}
		log.Printf("deluge: sent %d images on %d streams in %s",
			trig.Frames, len(chans), time.Since(start).Round(time.Millisecond))
	})
}
