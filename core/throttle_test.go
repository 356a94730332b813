package core

import (
	"testing"
	"time"

	"pkt.systems/hybridterm/schema"
)

func TestFrameThrottleCoalesces(t *testing.T) {
	f := frameThrottle{interval: 16 * time.Millisecond}
	block := schema.Block{ID: "b1", Content: "a"}
	if _, ok, _ := f.offer(epoch, block); !ok {
		t.Fatalf("expected leading emission")
	}
	block.Content = "ab"
	_, ok, needTimer := f.offer(epoch.Add(5*time.Millisecond), block)
	if ok || !needTimer {
		t.Fatalf("expected queued snapshot with timer request")
	}
	if wait := f.wait(epoch.Add(5 * time.Millisecond)); wait != 11*time.Millisecond {
		t.Fatalf("unexpected wait %s", wait)
	}
	block.Content = "abc"
	f.offer(epoch.Add(8*time.Millisecond), block)
	got, ok := f.flush(epoch.Add(16 * time.Millisecond))
	if !ok || got.Content != "abc" {
		t.Fatalf("expected latest content at the frame boundary, got %+v", got)
	}
	if _, ok := f.flush(epoch.Add(17 * time.Millisecond)); ok {
		t.Fatalf("nothing should be pending")
	}
}

func TestFrameThrottleDiscard(t *testing.T) {
	f := frameThrottle{interval: 16 * time.Millisecond}
	if f.discard("b1") {
		t.Fatalf("nothing was emitted yet")
	}
	f.offer(epoch, schema.Block{ID: "b1"})
	f.offer(epoch.Add(time.Millisecond), schema.Block{ID: "b1", Content: "x"})
	if !f.discard("b1") {
		t.Fatalf("expected b1 to be reported as emitted")
	}
	if _, ok := f.flush(epoch.Add(20 * time.Millisecond)); ok {
		t.Fatalf("discard must drop the pending snapshot")
	}
}

func TestInfoThrottle(t *testing.T) {
	th := newInfoThrottle(2 * time.Second)
	if _, ok, _ := th.take(epoch); ok {
		t.Fatalf("nothing merged yet")
	}
	model := "opus"
	th.merge(schema.SessionInfo{Model: &model})
	if _, ok, _ := th.take(epoch); !ok {
		t.Fatalf("expected first update to propagate")
	}
	tokens := int64(10)
	th.merge(schema.SessionInfo{InputTokens: &tokens})
	_, ok, delay := th.take(epoch.Add(time.Second))
	if ok || delay != time.Second {
		t.Fatalf("expected throttled update with 1s delay, got ok=%v delay=%s", ok, delay)
	}
	info, ok, _ := th.take(epoch.Add(2 * time.Second))
	if !ok || info.Model == nil || info.InputTokens == nil || *info.InputTokens != 10 {
		t.Fatalf("expected merged info after the interval, got %+v ok=%v", info, ok)
	}
	th.merge(schema.SessionInfo{InputTokens: &tokens})
	if _, ok := th.drain(); !ok {
		t.Fatalf("drain must release pending info")
	}
	if _, ok := th.drain(); ok {
		t.Fatalf("drain must be empty afterwards")
	}
}
