// Package optparse implements zstd's optimal (btopt/btultra) match
// parser: the dynamic-programming pass that walks a block's binary
// tree matches and repcode candidates, prices every reachable
// (litLength, matchLength, offset) choice against the block's running
// entropy statistics, and traces back the cheapest path. Grounded
// directly on ZSTD1_compressBlock_opt_generic in
// original_source/zstd_opt.c, adapted from its mutable opt[]/matches[]
// C arrays into Go slices indexed the same way, and restructured
// around a shortPath flag instead of C's goto _shortestPath (Go's
// goto cannot jump into the scope of a later block-local variable the
// same way, so the "emit this match immediately" branch merges back
// into the common trace-back code via a boolean instead).
package optparse

import (
	"github.com/jmoiron/zstd1/internal/matchfinder"
	"github.com/jmoiron/zstd1/internal/sequence"
)

// OptNum bounds how far ahead the DP table can reach in one pass
// (ZSTD1_OPT_NUM); sufficient_len and the "large match, emit
// immediately" short-path both clamp against it.
const OptNum = 1 << 12

// Params configures one parse pass.
type Params struct {
	// TargetLength is the "good enough, stop searching" length; the
	// parser short-circuits once a match at least this long appears.
	TargetLength uint32
	// SearchLog caps how many binary-tree matches a single position's
	// query may report (1<<SearchLog); the tree descent itself is not
	// bounded by a comparison count.
	SearchLog uint32
	// OptLevel selects btopt (0) or btultra (2): see
	// State.MatchPrice and the "skip unpromising positions"
	// heuristic in Parse.
	OptLevel int
}

// Sequence is one emitted (litLength, offsetCode, matchLength) triple
// plus the literal bytes that precede it, ready for the sequence
// store / block emitter (spec §4.8).
type Sequence struct {
	Literals    []byte
	OffsetCode  uint32 // wire convention: 0-2 repcode (adjusted by ll0), >=3 means distance+3
	MatchLength uint32
}

type optEntry struct {
	price  uint32
	mlen   uint32
	off    uint32
	litlen uint32
	rep    [3]uint32
}

func repArray(r sequence.Repcodes) [3]uint32 { return [3]uint32{r.Rep0, r.Rep1, r.Rep2} }

// matchCandidate is a length/offsetCode pair in wire convention,
// merging repcode and binary-tree results into one increasing-length
// list the way ZSTD1_insertBtAndGetAllMatches does.
type matchCandidate struct {
	Length     uint32
	OffsetCode uint32
}

// queryMatches checks the repcode triple first (cheapest possible
// encoding, per spec §4.6 step 1), then the binary tree (step 3),
// returning candidates of strictly increasing length.
func queryMatches(win *matchfinder.Window, bst *matchfinder.BST, pos int, rep sequence.Repcodes, litlen, minLen, maxLen uint32, maxCompares int) []matchCandidate {
	var out []matchCandidate
	bestLen := minLen - 1

	candidates := [4]uint32{rep.Rep0, rep.Rep1, rep.Rep2, 0}
	nCandidates := 3
	if litlen == 0 && rep.Rep0 > 1 {
		candidates[3] = rep.Rep0 - 1
		nCandidates = 4
	}
	for i := 0; i < nCandidates; i++ {
		distance := candidates[i]
		if distance == 0 || int(distance) > pos {
			continue
		}
		l := win.MatchLengthAt(pos, pos-int(distance), int(maxLen))
		if l >= minLen && l > bestLen {
			bestLen = l
			offsetCode, _ := rep.EncodeOffset(litlen, distance)
			out = append(out, matchCandidate{Length: l, OffsetCode: offsetCode})
		}
	}

	btMatches := bst.InsertAndGetAllMatches(pos, bestLen+1, maxLen, maxCompares)
	for _, m := range btMatches {
		out = append(out, matchCandidate{Length: m.Length, OffsetCode: m.Offset + 3})
	}
	return out
}

// applyRepHistory computes what the repcode triple would become after
// emitting a sequence with this litLength/offsetCode, without
// mutating rep — the DP table carries a hypothetical history per
// candidate path, not the single committed one.
func applyRepHistory(rep sequence.Repcodes, litlen, offsetCode uint32) [3]uint32 {
	cp := rep
	_, _ = cp.Apply(litlen, offsetCode)
	return repArray(cp)
}

// Parse runs one optimal-parse pass over src, returning the emitted
// sequences, the final dangling literal run, and the repcode state to
// carry into the next block.
func Parse(state *State, win *matchfinder.Window, bst *matchfinder.BST, src []byte, rep sequence.Repcodes, p Params) (seqs []Sequence, trailingLiterals []byte, outRep sequence.Repcodes) {
	state.RescaleFreqs(src)

	n := len(src)
	ip := 0
	anchor := 0
	ilimit := n - 8
	if ilimit < 0 {
		ilimit = 0
	}

	sufficientLen := p.TargetLength
	if sufficientLen > OptNum-1 {
		sufficientLen = OptNum - 1
	}
	maxCompares := 1 << p.SearchLog
	if maxCompares <= 0 {
		maxCompares = 64
	}

	opt := make([]optEntry, OptNum)

	for ip < ilimit {
		litlen := uint32(ip - anchor)

		matches := queryMatches(win, bst, ip, rep, litlen, MinMatch, uint32(n-ip), maxCompares)
		if len(matches) == 0 {
			ip++
			continue
		}

		opt[0].rep = repArray(rep)
		opt[0].mlen = 1
		opt[0].litlen = litlen

		var bestMlen, bestOff, cur, lastPos uint32
		shortPath := false

		maxML := matches[len(matches)-1].Length
		if maxML >= sufficientLen {
			bestMlen = maxML
			bestOff = matches[len(matches)-1].OffsetCode
			cur = 0
			lastPos = 1
			shortPath = true
		} else {
			literalsPrice := state.fullLiteralsCost(src[anchor:ip])
			pos := uint32(0)
			for ; pos < MinMatch; pos++ {
				opt[pos].mlen = 1
				opt[pos].price = maxPrice
			}
			for _, m := range matches {
				repHistory := applyRepHistory(rep, litlen, m.OffsetCode)
				for ; pos <= m.Length; pos++ {
					price := literalsPrice + state.MatchPrice(m.OffsetCode, pos, p.OptLevel)
					opt[pos].mlen = pos
					opt[pos].off = m.OffsetCode
					opt[pos].litlen = litlen
					opt[pos].price = price
					opt[pos].rep = repHistory
				}
			}
			lastPos = pos - 1
		}

		if !shortPath {
		mainLoop:
			for cur = 1; cur <= lastPos; cur++ {
				inr := ip + int(cur)

				ll := opt[cur-1].litlen + 1
				if opt[cur-1].mlen != 1 {
					ll = 1
				}
				var litPrice int
				if cur > ll {
					litPrice = int(opt[cur-ll].price) + state.literalsContribution(src[inr-int(ll):inr])
				} else {
					litPrice = state.literalsContribution(src[anchor:inr])
				}
				if litPrice <= int(opt[cur].price) {
					opt[cur].mlen = 1
					opt[cur].off = 0
					opt[cur].litlen = ll
					opt[cur].price = uint32(litPrice)
					opt[cur].rep = opt[cur-1].rep
				}

				if inr > ilimit {
					continue
				}
				if cur == lastPos {
					break
				}
				if p.OptLevel == 0 && opt[cur+1].price <= opt[cur].price {
					continue
				}

				curLitlen := uint32(0)
				if opt[cur].mlen == 1 {
					curLitlen = opt[cur].litlen
				}
				var previousPrice uint32
				if cur > curLitlen {
					previousPrice = opt[cur-curLitlen].price
				}
				basePrice := previousPrice + state.fullLiteralsCost(src[inr-int(curLitlen):inr])

				curRep := sequence.Repcodes{Rep0: opt[cur].rep[0], Rep1: opt[cur].rep[1], Rep2: opt[cur].rep[2]}
				curMatches := queryMatches(win, bst, inr, curRep, curLitlen, MinMatch, uint32(n-inr), maxCompares)
				if len(curMatches) == 0 {
					continue
				}

				maxML2 := curMatches[len(curMatches)-1].Length
				if maxML2 >= sufficientLen || cur+maxML2 >= OptNum {
					bestMlen = maxML2
					bestOff = curMatches[len(curMatches)-1].OffsetCode
					lastPos = cur + 1
					shortPath = true
					break mainLoop
				}

				startML := uint32(MinMatch)
				for _, m := range curMatches {
					repHistory := applyRepHistory(curRep, curLitlen, m.OffsetCode)
					for mlen := m.Length; mlen >= startML; mlen-- {
						pos := cur + mlen
						price := basePrice + state.MatchPrice(m.OffsetCode, mlen, p.OptLevel)
						if pos > lastPos || price < opt[pos].price {
							for lastPos < pos {
								lastPos++
								opt[lastPos].price = maxPrice
							}
							opt[pos].mlen = mlen
							opt[pos].off = m.OffsetCode
							opt[pos].litlen = curLitlen
							opt[pos].price = price
							opt[pos].rep = repHistory
						} else if p.OptLevel == 0 {
							break
						}
					}
					startML = m.Length + 1
				}
			}

			if !shortPath {
				bestMlen = opt[lastPos].mlen
				bestOff = opt[lastPos].off
				cur = lastPos - bestMlen
			}
		}

		// Reverse traversal: walk predecessor pointers from cur,
		// swapping in the (mlen, off) selected at the end of the
		// chain so the forward emission pass below reads them in
		// stream order (spec §4.7 step e).
		selLen, selOff := bestMlen, bestOff
		pos := cur
		for {
			mlen := opt[pos].mlen
			off := opt[pos].off
			opt[pos].mlen = selLen
			opt[pos].off = selOff
			selLen, selOff = mlen, off
			if mlen > pos {
				break
			}
			pos -= mlen
		}

		for pos := uint32(0); pos < lastPos; {
			llen := uint32(ip - anchor)
			mlen := opt[pos].mlen
			off := opt[pos].off
			if mlen == 1 {
				ip++
				pos++
				continue
			}
			pos += mlen
			ip += int(mlen)

			if _, err := rep.Apply(llen, off); err != nil {
				// A corrupt DP path (repcode underflow) should never
				// happen for a price-consistent trace; treat as a
				// literal-only fallback rather than panicking on bad
				// input statistics.
				continue
			}

			state.UpdateStats(src[anchor:anchor+int(llen)], off, mlen)
			seqs = append(seqs, Sequence{
				Literals:    src[anchor : anchor+int(llen)],
				OffsetCode:  off,
				MatchLength: mlen,
			})
			anchor = ip
		}
		state.setLog2Prices()
	}

	return seqs, src[anchor:], rep
}
