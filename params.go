package zstd1

import "github.com/jmoiron/zstd1/internal/optparse"

// CParams bundles the compression-strategy knobs spec §4.7 and §4.6
// expose, mirroring ZSTD_compressionParameters's window/search/target
// quintuple (minus the hashLog/chainLog fields internal/matchfinder
// fixes internally rather than exposing per spec's non-goal on
// supporting the fast/lazy strategies this module doesn't implement).
type CParams struct {
	// SearchLog caps how many binary-tree matches one match query may
	// report (1<<SearchLog); the tree descent itself is not bounded by
	// a comparison count.
	SearchLog uint32
	// TargetLength is the "good enough" match length that
	// short-circuits the optimal parser's DP search (spec §4.7 step b).
	TargetLength uint32
	// Btultra selects optLevel 2 (vs 0) in the price functions, per
	// spec §4.7's optLevel distinction.
	Btultra bool
}

func (p CParams) toOptParams() optparse.Params {
	level := 0
	if p.Btultra {
		level = 2
	}
	return optparse.Params{
		TargetLength: p.TargetLength,
		SearchLog:    p.SearchLog,
		OptLevel:     level,
	}
}

// levelTable maps a compression level (1..22, spec §6's `level`
// parameter) to concrete CParams, the way this module's teacher tunes
// its own algorithm with a small set of named constants (train.go's
// fsstSampleTarget/minCountNumerator/minCountDenominator) rather than a
// parsed config file — a fixed table of knobs picked once, not a
// runtime-configurable parameter surface.
var levelTable = map[int]CParams{
	1:  {SearchLog: 4, TargetLength: 8, Btultra: false},
	3:  {SearchLog: 5, TargetLength: 16, Btultra: false},
	6:  {SearchLog: 6, TargetLength: 32, Btultra: false},
	9:  {SearchLog: 7, TargetLength: 64, Btultra: false},
	12: {SearchLog: 8, TargetLength: 128, Btultra: true},
	16: {SearchLog: 9, TargetLength: 256, Btultra: true},
	19: {SearchLog: 10, TargetLength: 999, Btultra: true},
	22: {SearchLog: 10, TargetLength: 999, Btultra: true},
}

// MinLevel and MaxLevel bound the level parameter, per spec §6.
const (
	MinLevel = 1
	MaxLevel = 22
)

// paramsForLevel resolves a level to CParams, clamping to the nearest
// defined entry at or below it (matching ZSTD_getCParams's "round down
// to a known level" behaviour).
func paramsForLevel(level int) CParams {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	best := levelTable[MinLevel]
	for l := MinLevel; l <= level; l++ {
		if p, ok := levelTable[l]; ok {
			best = p
		}
	}
	return best
}
