// Package sequence implements the repeat-offset state machine of spec
// §4.5 (the sequences themselves are carried by optparse.Sequence and
// frameformat.Seq),
// grounded on the offset1/offset2/offset3 rotation rules in the
// klauspost/compress zstd encoder (vendored copy retrieved alongside
// this pack) and adapted into the explicit rep[3] shape spec §3 names.
package sequence

import "errors"

// ErrInvalidRepcode is returned when a decoded sequence would drive a
// repcode below 1, violating the invariant in spec §4.5/§8.
var ErrInvalidRepcode = errors.New("sequence: repcode underflow")

// Repcodes holds the ordered triple of the three most recently used
// match offsets, per spec §3 "Repcode history".
type Repcodes struct {
	Rep0, Rep1, Rep2 uint32
}

// NewRepcodes returns the frame-initial triple (1, 4, 8), per spec
// §4.5.
func NewRepcodes() Repcodes {
	return Repcodes{Rep0: 1, Rep1: 4, Rep2: 8}
}

// Apply updates the repcode history for one emitted sequence and
// returns the actual back-reference distance, following spec §4.5
// exactly:
//
//   - offset >= 3: a literal offset; distance = offset-3, and the
//     triple shifts down with the new distance in front.
//   - offset in {0,1,2}: a repcode reference, adjusted by whether this
//     sequence carries zero literals (litLength == 0 lets repCode reach
//     3, meaning "rep0 minus one").
func (r *Repcodes) Apply(litLength, offset uint32) (distance uint32, err error) {
	if offset >= 3 {
		distance = offset - 3
		r.Rep2, r.Rep1, r.Rep0 = r.Rep1, r.Rep0, distance
		return distance, nil
	}

	repCode := offset
	if litLength == 0 {
		repCode++
	}

	switch repCode {
	case 0:
		distance = r.Rep0
	case 1:
		distance = r.Rep1
		r.Rep0, r.Rep1 = r.Rep1, r.Rep0
	case 2:
		distance = r.Rep2
		r.Rep0, r.Rep1, r.Rep2 = r.Rep2, r.Rep0, r.Rep1
	case 3:
		if r.Rep0 < 2 {
			return 0, ErrInvalidRepcode
		}
		distance = r.Rep0 - 1
		r.Rep0, r.Rep1, r.Rep2 = distance, r.Rep0, r.Rep1
	}

	if r.Rep0 < 1 || r.Rep1 < 1 || r.Rep2 < 1 {
		return 0, ErrInvalidRepcode
	}
	return distance, nil
}

// EncodeOffset computes the offsetCode a sequence emitter should write
// for a chosen distance, given whether it matches one of the current
// repcodes and the pending litLength. It is the encoder-side inverse
// of the distance selection Apply performs; callers choose the
// cheapest applicable form (prefer a repcode hit over a literal
// offset) before calling Apply to commit the update.
func (r Repcodes) EncodeOffset(litLength, distance uint32) (offsetCode uint32, isRepcode bool) {
	if litLength == 0 {
		// Apply bumps repCode by one here: codes 0-2 select rep1, rep2
		// and rep0-1, and rep0 itself has no repcode form.
		switch {
		case distance == r.Rep1:
			return 0, true
		case distance == r.Rep2:
			return 1, true
		case distance == r.Rep0-1 && r.Rep0 > 1:
			return 2, true
		default:
			return distance + 3, false
		}
	}
	switch {
	case distance == r.Rep0:
		return 0, true
	case distance == r.Rep1:
		return 1, true
	case distance == r.Rep2:
		return 2, true
	default:
		return distance + 3, false
	}
}
