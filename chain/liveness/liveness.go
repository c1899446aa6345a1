// Package liveness implements the per-validator block-signing ring buffer
// of §3, §4.5: a fixed-size bitset of length block_signing_window, updated
// once per block and queried for liveness against a missed-block
// threshold. Grounded on the teacher's istanbul snapshot bitmap bookkeeping
// (consensus/istanbul/backend/snapshot.go), generalized to a plain ring
// buffer rather than a vote-tally snapshot.
package liveness

import (
	"encoding/binary"
	"fmt"
)

// Tracker is a fixed-size bitset of length Window bits, one per block in
// the signing window, indexed by (height-1) mod Window.
type Tracker struct {
	Window uint16
	bits   []byte
}

// New constructs a tracker that initially assumes every slot signed (§4.5:
// "initial assumption: live").
func New(window uint16) *Tracker {
	t := &Tracker{Window: window, bits: make([]byte, (int(window)+7)/8)}
	for i := 0; i < int(window); i++ {
		t.setBit(i, true)
	}
	return t
}

func (t *Tracker) setBit(i int, v bool) {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	if v {
		t.bits[byteIdx] |= 1 << bitIdx
	} else {
		t.bits[byteIdx] &^= 1 << bitIdx
	}
}

func (t *Tracker) getBit(i int) bool {
	byteIdx := i / 8
	bitIdx := uint(i % 8)
	return t.bits[byteIdx]&(1<<bitIdx) != 0
}

// Update records whether the validator signed block height h (1-indexed),
// setting bit (h-1) mod Window to signed (§4.5).
func (t *Tracker) Update(h uint64, signed bool) {
	idx := int((h - 1) % uint64(t.Window))
	t.setBit(idx, signed)
}

// Zeros counts missed (unset) bits across the window.
func (t *Tracker) Zeros() int {
	zeros := 0
	for i := 0; i < int(t.Window); i++ {
		if !t.getBit(i) {
			zeros++
		}
	}
	return zeros
}

// IsLive reports whether the validator is live: zeros() < threshold (§4.5).
func (t *Tracker) IsLive(threshold int) bool {
	return t.Zeros() < threshold
}

// Encode serializes as (window:u16, bytes), the on-the-wire form of §4.5.
func (t *Tracker) Encode() []byte {
	out := make([]byte, 2+len(t.bits))
	binary.BigEndian.PutUint16(out, t.Window)
	copy(out[2:], t.bits)
	return out
}

// Decode reconstructs a Tracker from its Encode output, truncating bytes to
// the declared window's bit length (§4.5).
func Decode(b []byte) (*Tracker, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("liveness: short encoding")
	}
	window := binary.BigEndian.Uint16(b)
	want := (int(window) + 7) / 8
	if len(b)-2 < want {
		return nil, fmt.Errorf("liveness: encoding shorter than declared window")
	}
	t := &Tracker{Window: window, bits: append([]byte(nil), b[2:2+want]...)}
	return t, nil
}
