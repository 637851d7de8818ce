// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// decodingContext carries the state that persists across the blocks of
// a single frame: the growing output window, the repeat-offset triple,
// and the most recently built Huffman and sequence-symbol FSE tables
// (reused by Treeless literals sections and Repeat_Mode sequence
// symbols, RFC 8878 §3.1.1.3.1.1 and §3.1.1.3.2.1.1).
type decodingContext struct {
	out []byte

	repeatOffsets [3]uint32

	huffman     *huffmanTable
	haveHuffman bool

	llTable, ofTable, mlTable             *fseTable
	haveLLTable, haveOFTable, haveMLTable bool

	windowSize uint64
}

// newDecodingContext returns a context with the repeat-offset triple at
// its initial values (1, 4, 8), per RFC 8878 §3.1.1.5.
func newDecodingContext(windowSize uint64, sizeHint int) *decodingContext {
	return &decodingContext{
		out:           make([]byte, 0, sizeHint),
		repeatOffsets: [3]uint32{1, 4, 8},
		windowSize:    windowSize,
	}
}

func (c *decodingContext) setHuffmanTable(t *huffmanTable) {
	c.huffman = t
	c.haveHuffman = true
}

func (c *decodingContext) setLLTable(t *fseTable) { c.llTable = t; c.haveLLTable = true }
func (c *decodingContext) setOFTable(t *fseTable) { c.ofTable = t; c.haveOFTable = true }
func (c *decodingContext) setMLTable(t *fseTable) { c.mlTable = t; c.haveMLTable = true }

// window returns the logical sliding window: the suffix of out available
// as match-copy source, bounded by windowSize (RFC 8878 §3.1.1.1.2).
func (c *decodingContext) window() []byte {
	if uint64(len(c.out)) <= c.windowSize {
		return c.out
	}
	return c.out[uint64(len(c.out))-c.windowSize:]
}
