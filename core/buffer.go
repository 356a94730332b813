package core

import "pkt.systems/hybridterm/schema"

const defaultMaxBlocks = schema.DefaultMaxBlocks

// blockHistory stores finalized blocks in time order. When the history grows
// past maxBlocks the oldest blocks are trimmed.
type blockHistory struct {
	blocks    []schema.Block
	maxBlocks int
	trimmed   int
}

func newBlockHistory(maxBlocks int) *blockHistory {
	if maxBlocks <= 0 {
		maxBlocks = defaultMaxBlocks
	}
	return &blockHistory{maxBlocks: maxBlocks}
}

// Append adds finalized blocks, trimming from the front when over the limit.
func (h *blockHistory) Append(blocks ...schema.Block) {
	if len(blocks) == 0 {
		return
	}
	h.blocks = append(h.blocks, blocks...)
	if len(h.blocks) > h.maxBlocks {
		trim := len(h.blocks) - h.maxBlocks
		h.blocks = append([]schema.Block(nil), h.blocks[trim:]...)
		h.trimmed += trim
	}
}

// Trimmed returns how many blocks were dropped from the front so far.
func (h *blockHistory) Trimmed() int {
	return h.trimmed
}

// Snapshot returns a copy of the retained blocks. A positive limit returns
// only the newest limit blocks.
func (h *blockHistory) Snapshot(limit int) []schema.Block {
	total := len(h.blocks)
	if limit <= 0 || limit > total {
		limit = total
	}
	out := make([]schema.Block, limit)
	copy(out, h.blocks[total-limit:])
	return out
}
