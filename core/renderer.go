package core

import "pkt.systems/hybridterm/schema"

// Renderer formats sink events into display lines for a line-oriented transport.
type Renderer interface {
	FormatBlock(event schema.BlockEvent) []string
	FormatStatus(event schema.StatusEvent) []string
	FormatReveal(event schema.RevealEvent) []string
	FormatInfo(event schema.InfoEvent) []string
}
