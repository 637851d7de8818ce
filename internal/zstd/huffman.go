// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// Huffman table limits fixed by RFC 8878: a literals Huffman table may
// have a table log (and therefore a maximum code length) of at most
// huffmanTableLogMax, and weight values are bounded by the same limit
// since weight w implies code length tableLog+1-w.
const (
	huffmanTableLogMax  = 11
	huffmanMaxSymbols   = 256
	huffmanMaxWeightLog = 6 // accuracy log ceiling for the weights' own FSE table
)

// huffmanEntry is one cell of a direct lookup-table Huffman decoder: the
// symbol that a tableLog-bit window decodes to, and how many of those
// bits the codeword actually occupies. A flat LUT indexed by tableLog
// peeked bits replaces a bit-by-bit walk of a prefix tree.
type huffmanEntry struct {
	symbol  uint8
	numBits uint8
}

// huffmanTable is a fully built direct-lookup Huffman decoding table.
type huffmanTable struct {
	tableLog uint8
	entries  []huffmanEntry
}

// readHuffmanTable parses a Huffman_Tree_Description (RFC 8878 §4.2.1) from
// the front of b and returns the built table plus the number of bytes of
// b it consumed.
func readHuffmanTable(b []byte) (*huffmanTable, int, error) {
	if len(b) == 0 {
		return nil, 0, NotEnoughBytes("huffman table header")
	}
	headerByte := b[0]

	var weights []uint8
	var consumed int

	if headerByte >= 128 {
		// Direct representation: headerByte-127 symbols, each weight
		// packed as a 4-bit nibble, two per byte, high nibble first.
		count := int(headerByte) - 127
		nbytes := (count + 1) / 2
		if len(b) < 1+nbytes {
			return nil, 0, NotEnoughBytes("direct huffman weights")
		}
		weights = make([]uint8, count)
		raw := b[1 : 1+nbytes]
		for i := 0; i < count; i++ {
			byteVal := raw[i/2]
			if i%2 == 0 {
				weights[i] = byteVal >> 4
			} else {
				weights[i] = byteVal & 0xF
			}
		}
		consumed = 1 + nbytes
	} else {
		// FSE-compressed representation: headerByte is the size in
		// bytes of the compressed weight stream that follows.
		size := int(headerByte)
		if len(b) < 1+size {
			return nil, 0, NotEnoughBytes("fse-compressed huffman weights")
		}
		compressed := b[1 : 1+size]
		fr := newForwardBitReader(compressed)
		norm, accLog, err := parseNormalizedCounts(fr, huffmanTableLogMax, huffmanMaxWeightLog)
		if err != nil {
			return nil, 0, err
		}
		fr.alignToByte()
		table, err := buildFSETable(norm, accLog)
		if err != nil {
			return nil, 0, err
		}
		br, err := newBackwardBitReader(compressed[fr.bytesConsumed():])
		if err != nil {
			return nil, 0, err
		}
		weights, err = decodeAlternatingFSE(br, table, huffmanMaxSymbols-1)
		if err != nil {
			return nil, 0, err
		}
		consumed = 1 + size
	}

	if len(weights) == 0 || len(weights) > huffmanMaxSymbols-1 {
		return nil, 0, CorruptedInput("huffman weight count out of range")
	}

	weightSum := 0
	for _, w := range weights {
		if w > huffmanTableLogMax {
			return nil, 0, CorruptedInput("huffman weight exceeds table log maximum")
		}
		if w > 0 {
			weightSum += 1 << (w - 1)
		}
	}
	if weightSum == 0 {
		return nil, 0, CorruptedInput("huffman weights sum to zero")
	}
	tableLog := bitLen(weightSum)
	total := 1 << tableLog
	remaining := total - weightSum
	if remaining <= 0 || remaining&(remaining-1) != 0 {
		return nil, 0, CorruptedInput("huffman last weight is not a power of two")
	}
	lastWeight := bitLen(remaining)
	weights = append(weights, uint8(lastWeight))

	table, err := buildHuffmanTable(weights, uint8(tableLog))
	if err != nil {
		return nil, 0, err
	}
	return table, consumed, nil
}

// bitLen returns 1 + floor(log2(v)) for v > 0.
func bitLen(v int) int {
	n := 0
	for v > 1 {
		v >>= 1
		n++
	}
	return n + 1
}

// buildHuffmanTable assigns canonical codes to weights (one per literal
// symbol, symbol value implied by slice index) and fills a direct
// lookup table of size 2^tableLog, per RFC 8878 §4.2.1. Codes are assigned
// in ascending weight order, symbols in natural order within a weight,
// so the longest codes occupy the numerically lowest values: a symbol
// of weight w spans 2^(w-1) consecutive table cells.
func buildHuffmanTable(weights []uint8, tableLog uint8) (*huffmanTable, error) {
	if tableLog == 0 || tableLog > huffmanTableLogMax {
		return nil, CorruptedInput("huffman table log out of range")
	}
	rankStart := make([]uint32, int(tableLog)+2)
	for _, w := range weights {
		if int(w) > int(tableLog) {
			return nil, CorruptedInput("huffman weight exceeds table log")
		}
		if w > 0 {
			rankStart[w] += uint32(1) << (w - 1)
		}
	}

	size := uint32(1) << tableLog
	next := uint32(0)
	for w := 1; w <= int(tableLog); w++ {
		span := rankStart[w]
		rankStart[w] = next
		next += span
	}
	if next != size {
		return nil, CorruptedInput("huffman weights violate the kraft equality")
	}

	entries := make([]huffmanEntry, size)
	for sym, w := range weights {
		if w == 0 {
			continue
		}
		span := uint32(1) << (w - 1)
		start := rankStart[w]
		rankStart[w] += span
		e := huffmanEntry{symbol: uint8(sym), numBits: tableLog + 1 - w}
		for i := start; i < start+span; i++ {
			entries[i] = e
		}
	}

	return &huffmanTable{tableLog: tableLog, entries: entries}, nil
}

// decode1X decodes a single Huffman-coded stream into exactly dstLen
// bytes.
func (t *huffmanTable) decode1X(src []byte, dstLen int) ([]byte, error) {
	br, err := newBackwardBitReader(src)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, dstLen)
	for len(out) < dstLen {
		peek := br.peek(uint(t.tableLog))
		e := t.entries[peek]
		if e.numBits == 0 {
			return nil, CorruptedInput("invalid huffman code")
		}
		br.drop(uint(e.numBits))
		out = append(out, e.symbol)
	}
	if err := br.finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// decode4X decodes the four-stream interleaved representation used for
// literals sections split four ways (RFC 8878 §4.2.2): a six-byte
// jump table gives the compressed size of the first three streams, the
// fourth runs to the end of src, and each stream decodes into
// dstEvery = ceil(dstLen/4) bytes except the last, which takes the
// remainder.
func (t *huffmanTable) decode4X(src []byte, dstLen int) ([]byte, error) {
	if len(src) < 6 {
		return nil, NotEnoughBytes("huffman 4-stream jump table")
	}
	s1 := int(src[0]) | int(src[1])<<8
	s2 := int(src[2]) | int(src[3])<<8
	s3 := int(src[4]) | int(src[5])<<8
	body := src[6:]
	if s1+s2+s3 > len(body) {
		return nil, CorruptedInput("huffman stream sizes overflow block")
	}
	streams := [4][]byte{
		body[0:s1],
		body[s1 : s1+s2],
		body[s1+s2 : s1+s2+s3],
		body[s1+s2+s3:],
	}

	dstEvery := (dstLen + 3) / 4
	out := make([]byte, 0, dstLen)
	for i, s := range streams {
		n := dstEvery
		if i == 3 {
			n = dstLen - 3*dstEvery
		}
		if n < 0 {
			return nil, CorruptedInput("huffman 4-stream sizing inconsistent")
		}
		part, err := t.decode1X(s, n)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}
