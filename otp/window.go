package otp

import "math/bits"

// window is a fixed-memory sliding bitmap over a monotonic counter space,
// used to reject duplicate or too-old OTP counters per seed without an
// unbounded map. Grounded on database64128-swgp-go's packetseq.Receiver:
// same ring-of-uint64-blocks structure, minus the CRC framing (the caller
// here already knows which counter it's validating; there is no wire
// checksum to verify).
type window struct {
	last uint64
	ring [ringBlocks]uint64
}

const (
	blockBits  = bits.UintSize
	ringBlocks = 16
	windowSize = (ringBlocks - 1) * blockBits
)

// accept reports whether id is new (neither a duplicate nor behind the
// trailing edge of the window) and, if so, marks it seen.
func (w *window) accept(id uint64) bool {
	blockIndex := (id / blockBits) % ringBlocks
	bitIndex := id % blockBits

	switch {
	case id > w.last:
		lastBlockIndex := w.last / blockBits
		clear := int(id/blockBits - lastBlockIndex)
		if clear > ringBlocks {
			clear = ringBlocks
		}
		for i := 0; i < clear; i++ {
			lastBlockIndex = (lastBlockIndex + 1) % ringBlocks
			w.ring[lastBlockIndex] = 0
		}
		w.last = id
	case w.last-id >= windowSize:
		return false
	case w.ring[blockIndex]&(1<<bitIndex) != 0:
		return false
	}

	w.ring[blockIndex] |= 1 << bitIndex
	return true
}

// full reports whether the window has no room left to accept anything
// older than its current trailing edge — i.e. it is fully packed at the
// live edge, which is the closest observable proxy for "this seed's
// replay window is saturated" that the ring exposes without walking it.
func (w *window) full() bool {
	blockIndex := (w.last / blockBits) % ringBlocks
	return bits.OnesCount64(w.ring[blockIndex]) == blockBits
}
