// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// decodeAlternatingFSE decodes an FSE-coded symbol stream whose length
// is not known up front: two independent decoder states are interleaved
// over the same backward bitstream, each emitting a symbol in turn,
// until the bitstream is exhausted; a stream that yields more than
// maxSymbols symbols is CorruptedInput. This is
// the scheme the wire format uses to encode Huffman weights (RFC 8878
// §4.2.1.2), since the number of weights is only known once decoding
// finishes.
func decodeAlternatingFSE(br *backwardBitReader, t *fseTable, maxSymbols int) ([]uint8, error) {
	var s0, s1 fseState
	if err := s0.init(br, t); err != nil {
		return nil, err
	}
	if err := s1.init(br, t); err != nil {
		return nil, err
	}

	// A state is final once the stream is exhausted and its next
	// transition would need bits it cannot have: it then contributes its
	// current symbol, followed by the other state's, and decoding ends.
	// A zero-bit transition keeps going off the drained stream, so the
	// end test is per state, not per stream.
	final := func(s *fseState) bool {
		return br.finished() && s.entry.numBits > 0
	}
	out := make([]uint8, 0, maxSymbols)
	for {
		if final(&s0) {
			out = append(out, s0.symbol(), s1.symbol())
			break
		}
		out = append(out, s0.symbol())
		if err := s0.advance(br); err != nil {
			return nil, err
		}
		if final(&s1) {
			out = append(out, s1.symbol(), s0.symbol())
			break
		}
		out = append(out, s1.symbol())
		if err := s1.advance(br); err != nil {
			return nil, err
		}
		if len(out) > maxSymbols {
			return nil, CorruptedInput("huffman weight stream does not terminate")
		}
	}
	if len(out) > maxSymbols {
		return nil, CorruptedInput("huffman weight stream does not terminate")
	}
	// A genuine truncation forces an overread, which finish rejects.
	if err := br.finish(); err != nil {
		return nil, err
	}
	return out, nil
}
