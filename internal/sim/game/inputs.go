package game

import "playerworld.gg/internal/protocol"

// inputBuffer is a per-client ring of input frames keyed by the server
// tick they target, pruned to roughly one second of history. A frame
// arriving while its slot is taken slides forward, so a burst after
// jitter drains one per tick.
type inputBuffer struct {
	frames  map[uint64]protocol.InputMsg
	latest  protocol.InputMsg
	hasLast bool
	horizon uint64 // entries kept, ~tick_rate
}

func newInputBuffer(horizon int) *inputBuffer {
	if horizon < 1 {
		horizon = 1
	}
	return &inputBuffer{
		frames:  map[uint64]protocol.InputMsg{},
		horizon: uint64(horizon),
	}
}

func (b *inputBuffer) push(serverTick uint64, in protocol.InputMsg) {
	t := serverTick + 1
	for {
		if _, taken := b.frames[t]; !taken {
			break
		}
		if t >= serverTick+b.horizon {
			break // window full; overwrite the far edge
		}
		t++
	}
	b.frames[t] = in
	b.latest = in
	b.hasLast = true

	for k := range b.frames {
		if k+b.horizon < serverTick {
			delete(b.frames, k)
		}
	}
}

// pop returns the frame buffered for exactly this tick, or falls back to
// the most recent frame so a stalled input stream keeps the character in
// its last intent instead of freezing mid-air.
func (b *inputBuffer) pop(tick uint64) (protocol.InputMsg, bool) {
	if f, ok := b.frames[tick]; ok {
		delete(b.frames, tick)
		return f, true
	}
	if b.hasLast {
		return b.latest, true
	}
	return protocol.InputMsg{}, false
}

func (b *inputBuffer) pending() int { return len(b.frames) }
