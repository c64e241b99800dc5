package optparse

// MaxLit is the literal alphabet size (one byte).
const MaxLit = 255

// MaxLL, MaxML, MaxOff bound the symbol alphabets for the three
// sequence streams, matching the wire format's fixed code-table sizes.
const (
	MaxLL  = 35
	MaxML  = 52
	MaxOff = 31
)

const (
	litFreqAdd = 2 // scaling factor so litFreq adapts faster than length-symbol freqs
	freqDiv    = 4 // log-factor decay applied to previous-block stats
	maxPrice   = 1 << 30
)

// State carries the per-symbol frequency tables and log2-sum caches
// the price functions read, following optState_t in zstd_opt.c.
// It persists across blocks within one compression so sequence
// pricing improves as the stream's statistics stabilize (spec §4.7
// step 1: "Rescale frequencies from the previous block").
type State struct {
	litFreq    [MaxLit + 1]uint32
	litLenFreq [MaxLL + 1]uint32
	mlFreq     [MaxML + 1]uint32
	offFreq    [MaxOff + 1]uint32

	litSum, litLenSum, mlSum, offSum uint32

	log2litSum, log2litLenSum, log2mlSum, log2offSum uint32

	staticPrices bool
}

// RescaleFreqs reinitializes or decays the frequency tables at the
// start of a block, per ZSTD1_rescaleFreqs: a first call seeds from
// the raw input's byte histogram and flat length/offset priors; later
// calls halve (or quarter) the running counts so stale statistics fade
// without being discarded outright.
func (s *State) RescaleFreqs(src []byte) {
	s.staticPrices = false

	if s.litLenSum == 0 {
		if len(src) <= 1024 {
			s.staticPrices = true
		}
		for i := range s.litFreq {
			s.litFreq[i] = 0
		}
		for _, b := range src {
			s.litFreq[b]++
		}
		s.litSum = 0
		for i := range s.litFreq {
			s.litFreq[i] = 1 + (s.litFreq[i] >> freqDiv)
			s.litSum += s.litFreq[i]
		}

		for i := range s.litLenFreq {
			s.litLenFreq[i] = 1
		}
		s.litLenSum = MaxLL + 1
		for i := range s.mlFreq {
			s.mlFreq[i] = 1
		}
		s.mlSum = MaxML + 1
		for i := range s.offFreq {
			s.offFreq[i] = 1
		}
		s.offSum = MaxOff + 1
	} else {
		s.litSum = 0
		for i := range s.litFreq {
			s.litFreq[i] = 1 + (s.litFreq[i] >> (freqDiv + 1))
			s.litSum += s.litFreq[i]
		}
		s.litLenSum = 0
		for i := range s.litLenFreq {
			s.litLenFreq[i] = 1 + (s.litLenFreq[i] >> (freqDiv + 1))
			s.litLenSum += s.litLenFreq[i]
		}
		s.mlSum = 0
		for i := range s.mlFreq {
			s.mlFreq[i] = 1 + (s.mlFreq[i] >> freqDiv)
			s.mlSum += s.mlFreq[i]
		}
		s.offSum = 0
		for i := range s.offFreq {
			s.offFreq[i] = 1 + (s.offFreq[i] >> freqDiv)
			s.offSum += s.offFreq[i]
		}
	}

	s.setLog2Prices()
}

func (s *State) setLog2Prices() {
	s.log2litSum = highbit32(s.litSum + 1)
	s.log2litLenSum = highbit32(s.litLenSum + 1)
	s.log2mlSum = highbit32(s.mlSum + 1)
	s.log2offSum = highbit32(s.offSum + 1)
}

// rawLiteralsCost prices litLength literal bytes in isolation (not the
// litLength symbol itself), per ZSTD1_rawLiteralsCost.
func (s *State) rawLiteralsCost(literals []byte) uint32 {
	if s.staticPrices {
		return uint32(len(literals)) * 6
	}
	if len(literals) == 0 {
		return 0
	}
	cost := uint32(len(literals)) * s.log2litSum
	for _, b := range literals {
		cost -= highbit32(s.litFreq[b] + 1)
	}
	return cost
}

// litLengthPrice prices the litLength symbol alone.
func (s *State) litLengthPrice(litLength uint32) uint32 {
	if s.staticPrices {
		return highbit32(litLength + 1)
	}
	code := llCode(litLength)
	return llBits[code] + s.log2litLenSum - highbit32(s.litLenFreq[code]+1)
}

// fullLiteralsCost prices literal bytes plus the litLength symbol.
func (s *State) fullLiteralsCost(literals []byte) uint32 {
	return s.rawLiteralsCost(literals) + s.litLengthPrice(uint32(len(literals)))
}

// litLengthContribution returns cost(litLength) - cost(0), letting a
// caller add it to rawLiteralsCost to get a price comparable to a
// match ending at the same position (ZSTD1_litLengthContribution).
func (s *State) litLengthContribution(litLength uint32) int {
	if s.staticPrices {
		return int(highbit32(litLength + 1))
	}
	code := llCode(litLength)
	return int(llBits[code]) + int(highbit32(s.litLenFreq[0]+1)) - int(highbit32(s.litLenFreq[code]+1))
}

// literalsContribution prices a literal run comparably to a
// match-ending price at the same position.
func (s *State) literalsContribution(literals []byte) int {
	return int(s.rawLiteralsCost(literals)) + s.litLengthContribution(uint32(len(literals)))
}

// MatchPrice prices the (offset, matchLength) part of a sequence.
// optLevel distinguishes btopt (0) from btultra (2): below 2, long
// offsets (code >= 20) are penalized to favor decompression-cache
// locality, per ZSTD1_getMatchPrice.
func (s *State) MatchPrice(offsetValue, matchLength uint32, optLevel int) uint32 {
	offCode := offsetCode(offsetValue)
	mlBase := matchLength - MinMatch

	if s.staticPrices {
		return highbit32(mlBase+1) + 16 + offCode
	}

	price := offCode + s.log2offSum - highbit32(s.offFreq[offCode]+1)
	if optLevel < 2 && offCode >= 20 {
		price += (offCode - 19) * 2
	}

	mc := mlCode(mlBase)
	price += mlBits[mc] + s.log2mlSum - highbit32(s.mlFreq[mc]+1)
	return price
}

// UpdateStats folds one emitted sequence's symbols into the running
// frequency tables, per ZSTD1_updateStats.
func (s *State) UpdateStats(literals []byte, offsetValue, matchLength uint32) {
	for _, b := range literals {
		s.litFreq[b] += litFreqAdd
	}
	s.litSum += uint32(len(literals)) * litFreqAdd

	llc := llCode(uint32(len(literals)))
	s.litLenFreq[llc]++
	s.litLenSum++

	offC := offsetCode(offsetValue)
	s.offFreq[offC]++
	s.offSum++

	mc := mlCode(matchLength - MinMatch)
	s.mlFreq[mc]++
	s.mlSum++
}
