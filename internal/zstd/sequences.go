// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// sequence is one decoded (literal_length, match_length, offset) triple
// prior to repeat-offset resolution (RFC 8878 §3.1.1.3.2).
type sequence struct {
	literalLength uint32
	matchLength   uint32
	rawOffset     uint32
}

// symbolMode is a Symbol_Compression_Mode, one of four applied
// independently to each of the literal-length, offset, and match-length
// symbol streams (RFC 8878 §3.1.1.3.2.1).
type symbolMode uint8

const (
	modePredefined symbolMode = iota
	modeRLE
	modeFSECompressed
	modeRepeat
)

// decodeSequencesSection parses the Sequences_Section_Header and
// bitstream from the front of br, returning the decoded sequence
// triples (RFC 8878 §3.1.1.3.2). An empty result with no error means the
// block's content is the literals section alone.
func decodeSequencesSection(br *byteReader, ctx *decodingContext) ([]sequence, error) {
	b0, err := br.peek(1)
	if err != nil {
		return nil, err
	}
	var numSequences int
	switch {
	case b0[0] == 0:
		if _, err := br.consume(1); err != nil {
			return nil, err
		}
		return nil, nil
	case b0[0] < 128:
		v, err := br.consume(1)
		if err != nil {
			return nil, err
		}
		numSequences = int(v[0])
	case b0[0] < 255:
		v, err := br.consume(2)
		if err != nil {
			return nil, err
		}
		numSequences = (int(v[0])-128)<<8 + int(v[1])
	default:
		v, err := br.consume(3)
		if err != nil {
			return nil, err
		}
		numSequences = int(v[1]) + int(v[2])<<8 + 0x7F00
	}
	// Every sequence emits at least a three-byte match, so the 128 KiB
	// block bound also bounds how many sequences can be declared.
	if numSequences >= 1<<24 || numSequences > blockMaxDecompressedSize/3 {
		return nil, CorruptedInput("sequence count out of range")
	}

	modesByte, err := br.consume(1)
	if err != nil {
		return nil, err
	}
	llMode := symbolMode((modesByte[0] >> 6) & 0x3)
	ofMode := symbolMode((modesByte[0] >> 4) & 0x3)
	mlMode := symbolMode((modesByte[0] >> 2) & 0x3)
	if modesByte[0]&0x3 != 0 {
		return nil, UnsupportedFeature("sequence compression mode reserved bits set")
	}

	llTable, err := buildSequenceTable(br, ctx, llMode, predefinedLiteralLengthTable, maxLiteralsLengthCode, maxLLAccuracyLog, ctx.llTable, ctx.haveLLTable, ctx.setLLTable)
	if err != nil {
		return nil, err
	}
	ofTable, err := buildSequenceTable(br, ctx, ofMode, predefinedOffsetTable, maxOffsetCode, maxOFAccuracyLog, ctx.ofTable, ctx.haveOFTable, ctx.setOFTable)
	if err != nil {
		return nil, err
	}
	mlTable, err := buildSequenceTable(br, ctx, mlMode, predefinedMatchLengthTable, maxMatchLengthCode, maxMLAccuracyLog, ctx.mlTable, ctx.haveMLTable, ctx.setMLTable)
	if err != nil {
		return nil, err
	}

	rest, err := br.consume(br.remain())
	if err != nil {
		return nil, err
	}
	bbr, err := newBackwardBitReader(rest)
	if err != nil {
		return nil, err
	}

	var llState, ofState, mlState fseState
	if err := llState.init(bbr, llTable); err != nil {
		return nil, err
	}
	if err := ofState.init(bbr, ofTable); err != nil {
		return nil, err
	}
	if err := mlState.init(bbr, mlTable); err != nil {
		return nil, err
	}

	seqs := make([]sequence, 0, numSequences)
	for i := 0; i < numSequences; i++ {
		offsetCode := ofState.symbol()
		if offsetCode > maxOffsetCode {
			return nil, CorruptedInput("offset code out of range")
		}
		base, extraBits := offsetBaseline(offsetCode)
		rawOffset := base + bbr.take(uint(extraBits))

		mlCode := mlState.symbol()
		if int(mlCode) >= len(mlCodeTable) {
			return nil, CorruptedInput("match length code out of range")
		}
		mlEnt := mlCodeTable[mlCode]
		matchLength := mlEnt.baseline + uint32(bbr.take(uint(mlEnt.extra)))

		llCode := llState.symbol()
		if int(llCode) >= len(llCodeTable) {
			return nil, CorruptedInput("literal length code out of range")
		}
		llEnt := llCodeTable[llCode]
		literalLength := llEnt.baseline + uint32(bbr.take(uint(llEnt.extra)))

		seqs = append(seqs, sequence{literalLength: literalLength, matchLength: matchLength, rawOffset: uint32(rawOffset)})

		if i != numSequences-1 {
			if err := llState.advance(bbr); err != nil {
				return nil, err
			}
			if err := mlState.advance(bbr); err != nil {
				return nil, err
			}
			if err := ofState.advance(bbr); err != nil {
				return nil, err
			}
		}
	}

	if err := bbr.finish(); err != nil {
		return nil, err
	}
	return seqs, nil
}

// buildSequenceTable resolves one of the three per-block symbol tables
// (literal lengths, offsets, match lengths) according to its
// Symbol_Compression_Mode (RFC 8878 §3.1.1.3.2.1), threading the decoding
// context's cached table for Repeat_Mode and updating it for
// FSE_Compressed mode.
func buildSequenceTable(br *byteReader, ctx *decodingContext, mode symbolMode, predefined *fseTable, maxSymbol int, maxAccuracyLog uint8, cached *fseTable, haveCached bool, store func(*fseTable)) (*fseTable, error) {
	switch mode {
	case modePredefined:
		return predefined, nil
	case modeRLE:
		b, err := br.consume(1)
		if err != nil {
			return nil, err
		}
		if int(b[0]) > maxSymbol {
			return nil, CorruptedInput("rle sequence symbol out of range")
		}
		t := buildRLEFSETable(b[0])
		store(t)
		return t, nil
	case modeFSECompressed:
		remaining, err := br.peek(br.remain())
		if err != nil {
			return nil, err
		}
		fr := newForwardBitReader(remaining)
		norm, accLog, err := parseNormalizedCounts(fr, maxSymbol, maxAccuracyLog)
		if err != nil {
			return nil, err
		}
		fr.alignToByte()
		if err := br.skip(fr.bytesConsumed()); err != nil {
			return nil, err
		}
		t, err := buildFSETable(norm, accLog)
		if err != nil {
			return nil, err
		}
		store(t)
		return t, nil
	case modeRepeat:
		if !haveCached {
			return nil, CorruptedInput("repeat sequence mode with no prior table")
		}
		return cached, nil
	}
	return nil, UnsupportedFeature("unknown sequence symbol compression mode")
}
