package main

import (
	"fmt"
	"io"
	"sync"

	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/schema"
)

// eventPrinter writes rendered events to a writer. Streaming snapshots are
// skipped by the renderer, so only settled output reaches the terminal.
type eventPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	renderer core.Renderer
	// prefix tags lines with their session when several sessions share out.
	prefix bool
	// raw copies PTY output to out while the terminal is the visible surface.
	raw bool
}

func newEventPrinter(out io.Writer, renderer core.Renderer) *eventPrinter {
	return &eventPrinter{out: out, renderer: renderer}
}

func (p *eventPrinter) OnBlock(event schema.BlockEvent) {
	p.write(event.SessionID, p.renderer.FormatBlock(event))
}

func (p *eventPrinter) OnOutput(event schema.OutputEvent) {
	if !p.raw || len(event.Data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = p.out.Write(event.Data)
}

func (p *eventPrinter) OnStatus(event schema.StatusEvent) {
	p.write(event.SessionID, p.renderer.FormatStatus(event))
}

func (p *eventPrinter) OnReveal(event schema.RevealEvent) {
	p.write(event.SessionID, p.renderer.FormatReveal(event))
}

func (p *eventPrinter) OnSessionInfo(event schema.InfoEvent) {
	p.write(event.SessionID, p.renderer.FormatInfo(event))
}

func (p *eventPrinter) OnSession(schema.SessionEvent) {}

func (p *eventPrinter) write(id schema.SessionID, lines []string) {
	if len(lines) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		if p.prefix {
			_, _ = fmt.Fprintf(p.out, "[%s] %s\n", id, line)
			continue
		}
		_, _ = fmt.Fprintln(p.out, line)
	}
}
