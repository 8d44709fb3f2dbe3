package game

import (
	"testing"

	"playerworld.gg/internal/protocol"
)

func TestInputBuffer_ExactThenFallback(t *testing.T) {
	b := newInputBuffer(30)

	if _, ok := b.pop(1); ok {
		t.Fatalf("empty buffer produced a frame")
	}

	b.push(0, protocol.InputMsg{SequenceID: 1})
	in, ok := b.pop(1)
	if !ok || in.SequenceID != 1 {
		t.Fatalf("scheduled frame: %+v %v", in, ok)
	}

	// The stream stalls; the last frame keeps being served.
	for tick := uint64(2); tick <= 5; tick++ {
		in, ok = b.pop(tick)
		if !ok || in.SequenceID != 1 {
			t.Fatalf("fallback at tick %d: %+v %v", tick, in, ok)
		}
	}
	if b.pending() != 0 {
		t.Fatalf("fallback left frames buffered: %d", b.pending())
	}
}

func TestInputBuffer_BurstDrainsOnePerTick(t *testing.T) {
	b := newInputBuffer(30)

	// Three frames arrive between two ticks; they slide into
	// consecutive slots instead of clobbering each other.
	b.push(10, protocol.InputMsg{SequenceID: 1})
	b.push(10, protocol.InputMsg{SequenceID: 2})
	b.push(10, protocol.InputMsg{SequenceID: 3})
	if b.pending() != 3 {
		t.Fatalf("burst collapsed: %d", b.pending())
	}

	for tick := uint64(11); tick <= 13; tick++ {
		in, ok := b.pop(tick)
		if !ok || in.SequenceID != uint64(tick-10) {
			t.Fatalf("tick %d served seq %d", tick, in.SequenceID)
		}
	}
}

func TestInputBuffer_WindowFullOverwritesFarEdge(t *testing.T) {
	b := newInputBuffer(4)

	for seq := uint64(1); seq <= 6; seq++ {
		b.push(0, protocol.InputMsg{SequenceID: seq})
	}
	// Slots 1..4 exist; the overflow landed on the far edge.
	if b.pending() != 4 {
		t.Fatalf("window grew past horizon: %d", b.pending())
	}
	in, _ := b.pop(4)
	if in.SequenceID != 6 {
		t.Fatalf("far edge holds seq %d, want the newest", in.SequenceID)
	}
}

func TestInputBuffer_PrunesStaleFrames(t *testing.T) {
	b := newInputBuffer(4)

	b.push(0, protocol.InputMsg{SequenceID: 1})
	// Far in the future: everything older than the horizon goes.
	b.push(100, protocol.InputMsg{SequenceID: 2})
	if b.pending() != 1 {
		t.Fatalf("stale frames kept: %d", b.pending())
	}
	if _, ok := b.frames[101]; !ok {
		t.Fatalf("fresh frame pruned")
	}
}
