package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/morguldev/morgul/internal/daemon"
	"github.com/morguldev/morgul/internal/ui"
)

func (m dashModel) View() string {
	var b strings.Builder
	if m.err != nil || m.state == nil {
		b.WriteString(renderDown(m.port))
	} else {
		b.WriteString(renderStatus(m.state))
	}
	b.WriteString("\n  press q to quit\n")
	return b.String()
}

func renderDown(port uint16) string {
	content := ui.Row("STATUS", ui.Dot(ui.StateDown)+" not running", "PORT", fmt.Sprintf("%d", port), ui.MaxWidth-4)
	return ui.Section("Receiver", content, ui.MaxWidth)
}

func renderStatus(st *daemon.Status) string {
	w := ui.MaxWidth - 4

	state := ui.Dot(ui.StateIdle) + " idle"
	if st.Acquiring {
		state = ui.Dot(ui.StateAcquiring) + " acquiring"
	}

	var rows []string
	rows = append(rows, ui.Row("STATUS", state, "PORT", fmt.Sprintf("%d", st.UDPPort), w))
	rows = append(rows, ui.Row("VERSION", st.Version, "UPTIME", formatDuration(time.Since(st.StartedAt)), w))
	rows = append(rows, ui.Row("PID", fmt.Sprintf("%d", st.PID), "", "", w))
	if st.StreamEndpoint != "" {
		rows = append(rows, ui.Row("STREAM", st.StreamEndpoint, "", "", w))
	}
	receiver := ui.Section("Receiver", strings.Join(rows, "\n"), ui.MaxWidth)

	rows = rows[:0]
	rows = append(rows, ui.Row("ACQUISITION", fmt.Sprintf("%d", st.AcquisitionIndex),
		"FRAMES", fmt.Sprintf("%d / %d total", st.CurrentFrames, st.TotalFrames), w))
	if st.DynamicRange != 0 {
		rows = append(rows, ui.Row("BITMODE", fmt.Sprintf("%d", st.DynamicRange),
			"SHAPE", fmt.Sprintf("%d x %d", st.Shape[0], st.Shape[1]), w))
	}
	if st.LastFrame != 0 {
		rows = append(rows, ui.Row("LAST FRAME", fmt.Sprintf("%d", st.LastFrame), "", "", w))
	}
	rows = append(rows, ui.Row("PACKETS", fmt.Sprintf("%d", st.PacketsSeen),
		"DROPPED", fmt.Sprintf("%d", st.PacketsDropped), w))
	frames := ui.Section("Frames", strings.Join(rows, "\n"), ui.MaxWidth)

	return receiver + "\n" + frames
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
