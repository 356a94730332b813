package core

import (
	"fmt"
	"strings"
	"time"

	"pkt.systems/hybridterm/internal/ansi"
	"pkt.systems/hybridterm/schema"
)

// blockAccumulator segments the output stream into blocks. It keeps at most
// one streaming block; everything else lives in the finalized history.
type blockAccumulator struct {
	history *blockHistory
	current *schema.Block
	raw     strings.Builder
	// echo is the first line of the last submitted command, expected once as
	// the shell's echo.
	echo string
}

// blockUpdate is a block state change for the sink.
type blockUpdate struct {
	Block   schema.Block
	Dropped bool
}

func newBlockAccumulator(maxBlocks int) *blockAccumulator {
	return &blockAccumulator{history: newBlockHistory(maxBlocks)}
}

// ingest appends a chunk to the streaming block of the given type. It returns
// the blocks finalized on the way (a type flip) and the new streaming
// snapshot. ok is false when the chunk was consumed as a command echo.
func (b *blockAccumulator) ingest(now time.Time, raw, clean string, typ schema.BlockType) (finalized []blockUpdate, snapshot schema.Block, ok bool) {
	if b.echo != "" {
		if strings.Contains(clean, b.echo) {
			b.echo = ""
			return nil, schema.Block{}, false
		}
		if strings.TrimSpace(clean) == "" {
			b.echo = ""
		}
	}
	if b.current != nil && b.current.Type != typ {
		if update, done := b.finalize(); done {
			finalized = append(finalized, update)
		}
	}
	if b.current == nil {
		b.current = &schema.Block{
			ID:          newBlockID(),
			Type:        typ,
			Timestamp:   now,
			IsStreaming: true,
		}
	}
	b.raw.WriteString(raw)
	b.current.Content = b.raw.String()
	return finalized, *b.current, true
}

// finalize freezes the streaming block. A block whose content is only
// whitespace once stripped is dropped instead of kept.
func (b *blockAccumulator) finalize() (blockUpdate, bool) {
	if b.current == nil {
		return blockUpdate{}, false
	}
	block := *b.current
	block.Content = b.raw.String()
	block.IsStreaming = false
	b.current = nil
	b.raw.Reset()
	if strings.TrimSpace(ansi.Strip(block.Content)) == "" {
		return blockUpdate{Block: block, Dropped: true}, true
	}
	b.history.Append(block)
	return blockUpdate{Block: block}, true
}

// submit finalizes the streaming block, records the command and arms echo
// suppression for its first line.
func (b *blockAccumulator) submit(now time.Time, text string) []blockUpdate {
	var updates []blockUpdate
	if update, done := b.finalize(); done {
		updates = append(updates, update)
	}
	cmd := schema.Block{
		ID:        newBlockID(),
		Type:      schema.BlockCommand,
		Content:   text,
		Timestamp: now,
	}
	b.history.Append(cmd)
	b.echo = echoToken(text)
	return append(updates, blockUpdate{Block: cmd})
}

// exit finalizes the streaming block and records the exit.
func (b *blockAccumulator) exit(now time.Time, code int) []blockUpdate {
	return b.appendFinal(now, schema.Block{
		Type:    schema.BlockSystem,
		Content: fmt.Sprintf("Process exited with code %d", code),
	})
}

// teammate records a message from a named teammate agent.
func (b *blockAccumulator) teammate(now time.Time, name, text string) []blockUpdate {
	return b.appendFinal(now, schema.Block{
		Type:         schema.BlockTeammate,
		Content:      text,
		TeammateName: name,
	})
}

func (b *blockAccumulator) appendFinal(now time.Time, block schema.Block) []blockUpdate {
	var updates []blockUpdate
	if update, done := b.finalize(); done {
		updates = append(updates, update)
	}
	block.ID = newBlockID()
	block.Timestamp = now
	b.history.Append(block)
	return append(updates, blockUpdate{Block: block})
}

// blocks returns the finalized history followed by the streaming block.
func (b *blockAccumulator) blocks() []schema.Block {
	out := b.history.Snapshot(0)
	if b.current != nil {
		cur := *b.current
		cur.Content = b.raw.String()
		out = append(out, cur)
	}
	return out
}

func (b *blockAccumulator) trimmed() int {
	return b.history.Trimmed()
}

func (b *blockAccumulator) streaming() bool {
	return b.current != nil
}

func echoToken(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if token := strings.TrimSpace(line); token != "" {
			return token
		}
	}
	return ""
}
