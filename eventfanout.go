package hybridterm

import (
	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func newEventFanout(sinks ...core.EventSink) core.EventSink {
	out := make([]core.EventSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return eventFanout{sinks: out}
	}
}

func (f eventFanout) OnBlock(event schema.BlockEvent) {
	for _, sink := range f.sinks {
		sink.OnBlock(event)
	}
}

func (f eventFanout) OnOutput(event schema.OutputEvent) {
	for _, sink := range f.sinks {
		sink.OnOutput(event)
	}
}

func (f eventFanout) OnStatus(event schema.StatusEvent) {
	for _, sink := range f.sinks {
		sink.OnStatus(event)
	}
}

func (f eventFanout) OnReveal(event schema.RevealEvent) {
	for _, sink := range f.sinks {
		sink.OnReveal(event)
	}
}

func (f eventFanout) OnSessionInfo(event schema.InfoEvent) {
	for _, sink := range f.sinks {
		sink.OnSessionInfo(event)
	}
}

func (f eventFanout) OnSession(event schema.SessionEvent) {
	for _, sink := range f.sinks {
		sink.OnSession(event)
	}
}
