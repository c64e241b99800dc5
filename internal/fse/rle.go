package fse

// BuildCTableRLE mirrors BuildDTableRLE on the encode side: a
// degenerate one-state table that costs zero bits per symbol and
// always transitions back to itself, used when every value in a
// stream is identical (spec §4.8 step 2's RLE mode).
func BuildCTableRLE(symbolValue uint8, maxSymbolValue int) *CTable {
	ct := &CTable{
		TableLog:   0,
		stateTable: []uint16{1},
		symbolTT:   make([]SymbolTransform, maxSymbolValue+1),
	}
	ct.symbolTT[symbolValue] = SymbolTransform{
		DeltaNbBits:    0,
		DeltaFindState: -1,
	}
	return ct
}
