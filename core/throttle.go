package core

import (
	"time"

	"golang.org/x/time/rate"

	"pkt.systems/hybridterm/schema"
)

// frameThrottle coalesces streaming block snapshots to at most one emission
// per frame. The trailing emission always carries the latest content.
type frameThrottle struct {
	interval time.Duration
	lastEmit time.Time
	pending  *schema.Block
	timer    timerSlot
	// emitted is the id of the block whose snapshot was last emitted.
	emitted schema.BlockID
}

// offer returns the snapshot to emit now, or false when it was queued for the
// frame boundary. needTimer is true when the caller must arm the trailing timer.
func (f *frameThrottle) offer(now time.Time, block schema.Block) (emit schema.Block, ok bool, needTimer bool) {
	if f.lastEmit.IsZero() || now.Sub(f.lastEmit) >= f.interval {
		f.pending = nil
		f.lastEmit = now
		f.emitted = block.ID
		return block, true, false
	}
	f.pending = &block
	return schema.Block{}, false, !f.timer.pending()
}

// wait is how long until the next frame boundary.
func (f *frameThrottle) wait(now time.Time) time.Duration {
	d := f.interval - now.Sub(f.lastEmit)
	if d < 0 {
		return 0
	}
	return d
}

// flush releases the queued snapshot at the frame boundary.
func (f *frameThrottle) flush(now time.Time) (schema.Block, bool) {
	if f.pending == nil {
		return schema.Block{}, false
	}
	block := *f.pending
	f.pending = nil
	f.lastEmit = now
	f.emitted = block.ID
	return block, true
}

// discard drops any queued snapshot, used when the block finalizes so a stale
// streaming snapshot can never follow the final one. It reports whether any
// snapshot of id reached the sink.
func (f *frameThrottle) discard(id schema.BlockID) bool {
	f.pending = nil
	f.timer.stop()
	return f.emitted == id
}

// infoThrottle merges extracted session info and propagates it at most once
// per interval. A trailing timer delivers whatever was merged meanwhile.
type infoThrottle struct {
	limiter *rate.Limiter
	merged  schema.SessionInfo
	dirty   bool
	timer   timerSlot
}

func newInfoThrottle(interval time.Duration) infoThrottle {
	return infoThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// merge folds a partial update into the merged state.
func (t *infoThrottle) merge(partial schema.SessionInfo) {
	t.merged = t.merged.Merge(partial)
	t.dirty = true
}

// take returns the merged info when it may be propagated at now. Otherwise it
// returns the delay after which the caller should retry.
func (t *infoThrottle) take(now time.Time) (schema.SessionInfo, bool, time.Duration) {
	if !t.dirty {
		return schema.SessionInfo{}, false, 0
	}
	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		return schema.SessionInfo{}, false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return schema.SessionInfo{}, false, delay
	}
	t.dirty = false
	return t.merged.Clone(), true, 0
}

// drain returns pending merged info regardless of the rate limit.
func (t *infoThrottle) drain() (schema.SessionInfo, bool) {
	t.timer.stop()
	if !t.dirty {
		return schema.SessionInfo{}, false
	}
	t.dirty = false
	return t.merged.Clone(), true
}
