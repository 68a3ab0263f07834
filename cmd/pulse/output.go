package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/suykerbuyk/codepulse/internal/outbox"
)

var (
	sapphire = lipgloss.Color("#74c7ec")
	green    = lipgloss.Color("#a6e3a1")
	peach    = lipgloss.Color("#fab387")
	red      = lipgloss.Color("#f38ba8")
	subtext  = lipgloss.Color("#a6adc8")

	titleStyle     = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(subtext)
	celebrateStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	fireworkStyle  = lipgloss.NewStyle().Foreground(peach).Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(red)
	countdownStyle = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
	timerStyle     = lipgloss.NewStyle().
			Foreground(sapphire).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(subtext).
			Padding(0, 2)
)

func renderEvent(ev outbox.Event) string {
	switch ev.Effect {
	case outbox.EffectFireworks:
		return fireworkStyle.Render("★ " + ev.Message)
	case outbox.EffectSparkle:
		return celebrateStyle.Render("✦ " + ev.Message)
	default:
		return celebrateStyle.Render("✓ " + ev.Message)
	}
}

func renderNotice(n outbox.Notice) string {
	if n.Severity == outbox.Warning {
		return warnStyle.Render("! " + n.Message)
	}
	return mutedStyle.Render("· " + n.Message)
}

// printOutbox drains ob and writes one styled line per item.
func printOutbox(w io.Writer, ob *outbox.Outbox) {
	events, notices := ob.Drain()
	for _, ev := range events {
		fmt.Fprintln(w, renderEvent(ev))
	}
	for _, n := range notices {
		fmt.Fprintln(w, renderNotice(n))
	}
}

// hostReply is what `pulse hook` writes back for the host to render.
type hostReply struct {
	Events  []outbox.Event  `json:"events"`
	Notices []outbox.Notice `json:"notices"`
	Dropped int             `json:"dropped,omitempty"`
}

func writeReply(w io.Writer, ob *outbox.Outbox) error {
	events, notices := ob.Drain()
	if events == nil {
		events = []outbox.Event{}
	}
	if notices == nil {
		notices = []outbox.Notice{}
	}
	return json.NewEncoder(w).Encode(hostReply{Events: events, Notices: notices, Dropped: ob.Dropped()})
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
