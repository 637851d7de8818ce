// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "math/bits"

// Accuracy log bounds. minAccuracyLog is fixed by the wire format
// (accuracy_log = take(4) + 5); the maximum varies by table: literal
// and match length tables allow up to 9, offsets up to 8, and Huffman
// weights up to 6 (RFC 8878 §3.1.1.3.2.1.1, §4.2.1.2).
const (
	minAccuracyLog = 5

	maxLLAccuracyLog = 9
	maxMLAccuracyLog = 9
	maxOFAccuracyLog = 8
)

// fseEntry is one cell of a built FSE decoding table: which symbol this
// cell represents, how many bits to pull from the stream to compute the
// next state, and the base index of the next state (add the pulled bits
// to it directly).
type fseEntry struct {
	symbol   uint8
	numBits  uint8
	newState uint16
}

// fseTable is a fully built FSE decoding table, indexed by state.
type fseTable struct {
	accuracyLog uint8
	entries     []fseEntry
}

// parseNormalizedCounts reads a normalized probability distribution from
// a forward bit cursor, per RFC 8878 §4.1.1.
// maxSymbol bounds the alphabet (inclusive); maxAccuracyLog bounds the
// table size appropriate to the caller (literal length, match length,
// offset, or Huffman weight tables each have their own ceiling).
func parseNormalizedCounts(fr *forwardBitReader, maxSymbol int, maxAccuracyLog uint8) (norm []int16, accuracyLog uint8, err error) {
	v, err := fr.take(4)
	if err != nil {
		return nil, 0, err
	}
	accuracyLog = uint8(v) + minAccuracyLog
	if accuracyLog > maxAccuracyLog {
		return nil, 0, UnsupportedFeature("fse accuracy log out of range")
	}

	norm = make([]int16, maxSymbol+1)
	remaining := int32(1<<accuracyLog) + 1
	threshold := int32(1 << accuracyLog)
	nbBits := uint(accuracyLog) + 1
	charnum := 0
	previous0 := false
	gotTotal := int32(0)

	for remaining > 1 && charnum <= maxSymbol {
		if previous0 {
			n0 := charnum
			for {
				v16, perr := fr.peek(16)
				if perr != nil || v16&0xFFFF != 0xFFFF {
					break
				}
				fr.drop(16)
				n0 += 24
			}
			for {
				v2, terr := fr.take(2)
				if terr != nil {
					return nil, 0, terr
				}
				if v2 == 3 {
					n0 += 3
					continue
				}
				n0 += int(v2)
				break
			}
			if n0 > maxSymbol+1 {
				return nil, 0, CorruptedInput("fse zero-run overflows symbol table")
			}
			for charnum < n0 {
				norm[charnum] = 0
				charnum++
			}
			previous0 = false
			if charnum > maxSymbol {
				break
			}
		}

		max := (2*threshold - 1) - remaining
		peeked, perr := fr.peek(nbBits)
		if perr != nil {
			return nil, 0, perr
		}
		var count int32
		short := int32(peeked) & (threshold - 1)
		if short < max {
			count = short
			fr.drop(nbBits - 1)
		} else {
			long := int32(peeked) & (2*threshold - 1)
			count = long
			if count >= threshold {
				count -= max
			}
			fr.drop(nbBits)
		}
		count--
		if count < 0 {
			remaining += count
			gotTotal -= count
		} else {
			remaining -= count
			gotTotal += count
		}
		norm[charnum] = int16(count)
		charnum++
		previous0 = count == 0
		for remaining < threshold {
			nbBits--
			threshold >>= 1
		}
	}

	if charnum > maxSymbol+1 {
		return nil, 0, CorruptedInput("too many fse symbols")
	}
	if remaining != 1 {
		return nil, 0, CorruptedInput("fse probability sum did not terminate cleanly")
	}
	if gotTotal != 1<<accuracyLog {
		return nil, 0, CorruptedInput("fse normalized counts do not sum to table size")
	}
	return norm[:charnum], accuracyLog, nil
}

// tableStep is the odd/even co-prime stride used to spread symbols
// across an FSE table without clustering (RFC 8878 §4.1.1).
func tableStep(tableSize uint32) uint32 {
	return (tableSize >> 1) + (tableSize >> 3) + 3
}

// buildFSETable spreads a normalized distribution into a decode table
// and assigns (newState, numBits) to every cell, per RFC 8878 §4.1.1.
func buildFSETable(norm []int16, accuracyLog uint8) (*fseTable, error) {
	tableSize := uint32(1) << accuracyLog
	highThreshold := tableSize - 1

	symbols := make([]uint8, tableSize)

	for i, v := range norm {
		if v == -1 {
			symbols[highThreshold] = uint8(i)
			highThreshold--
		}
	}

	mask := tableSize - 1
	step := tableStep(tableSize)
	pos := uint32(0)
	for sym, v := range norm {
		for i := int16(0); i < v; i++ {
			symbols[pos] = uint8(sym)
			pos = (pos + step) & mask
			for pos > highThreshold {
				pos = (pos + step) & mask
			}
		}
	}
	if pos != 0 {
		return nil, CorruptedInput("fse symbol spread did not return to origin")
	}

	entries := make([]fseEntry, tableSize)
	occurrence := make([]uint16, len(norm))
	for i, v := range norm {
		if v == -1 {
			occurrence[i] = 1
		} else {
			occurrence[i] = uint16(v)
		}
	}
	for u, sym := range symbols {
		next := occurrence[sym]
		occurrence[sym] = next + 1
		numBits := accuracyLog - uint8(bits.Len16(next)-1)
		newState := (next << numBits) - uint16(tableSize)
		entries[u] = fseEntry{symbol: sym, numBits: numBits, newState: newState}
	}

	return &fseTable{accuracyLog: accuracyLog, entries: entries}, nil
}

// buildRLEFSETable builds a one-cell table that always emits symbol,
// used when a sequence field's compression mode is RLE_Mode (RFC 8878
// §3.1.1.3.2.1).
func buildRLEFSETable(symbol uint8) *fseTable {
	return &fseTable{accuracyLog: 0, entries: []fseEntry{{symbol: symbol, numBits: 0, newState: 0}}}
}

// fseState is the live cursor for one FSE-coded symbol stream.
type fseState struct {
	table *fseTable
	entry fseEntry
}

func (s *fseState) init(br *backwardBitReader, t *fseTable) error {
	s.table = t
	v := br.take(uint(t.accuracyLog))
	if int(v) >= len(t.entries) {
		return CorruptedInput("fse initial state out of range")
	}
	s.entry = t.entries[v]
	return nil
}

// symbol returns the symbol represented by the current state without
// consuming bits.
func (s *fseState) symbol() uint8 {
	return s.entry.symbol
}

// advance consumes numBits from the stream and transitions to the next
// state. It must not be called after the final symbol of a bounded
// stream has been emitted.
func (s *fseState) advance(br *backwardBitReader) error {
	low := br.take(uint(s.entry.numBits))
	idx := uint32(s.entry.newState) + uint32(low)
	if int(idx) >= len(s.table.entries) {
		return CorruptedInput("fse next state out of range")
	}
	s.entry = s.table.entries[idx]
	return nil
}

// decodeFSEStream drives a single FSE-coded symbol stream for exactly
// count symbols. The sequence and weight decoders call the lower-level
// state API directly so they can interleave several states over one
// bitstream; this bounded single-state form is the base case they are
// built from.
func decodeFSEStream(br *backwardBitReader, t *fseTable, count int) ([]uint8, error) {
	out := make([]uint8, 0, count)
	var st fseState
	if err := st.init(br, t); err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		out = append(out, st.symbol())
		if i == count-1 {
			break
		}
		if err := st.advance(br); err != nil {
			return nil, err
		}
	}
	return out, nil
}
