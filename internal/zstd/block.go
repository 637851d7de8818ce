// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// blockKind is the Block_Type tag (RFC 8878 §3.1.1.2).
type blockKind uint8

const (
	blockRaw blockKind = iota
	blockRLE
	blockCompressed
	blockReserved
)

// blockMaxDecompressedSize bounds every block's regenerated size,
// independent of window size (RFC 8878 §3.1.1.2.3, Block_Maximum_Size).
const blockMaxDecompressedSize = 128 * 1024

// decodeBlockHeader reads the 3-byte Block_Header from the front of br
// (RFC 8878 §3.1.1.2).
func decodeBlockHeader(br *byteReader) (last bool, kind blockKind, size int, err error) {
	b, err := br.consume(3)
	if err != nil {
		return false, 0, 0, err
	}
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	last = v&0x1 != 0
	kind = blockKind((v >> 1) & 0x3)
	size = int(v >> 3)
	return last, kind, size, nil
}

// decodeBlock parses and applies a single block's content onto ctx's
// output buffer, consuming the block body (the 3-byte header has
// already been read by the caller) from br (RFC 8878 §3.1.1.4).
func decodeBlock(br *byteReader, ctx *decodingContext, kind blockKind, size int) error {
	switch kind {
	case blockRaw:
		if size > blockMaxDecompressedSize || uint64(size) > ctx.windowSize {
			return CorruptedInput("raw block exceeds maximum decompressed size")
		}
		body, err := br.consume(size)
		if err != nil {
			return err
		}
		ctx.out = append(ctx.out, body...)
		return nil

	case blockRLE:
		if size > blockMaxDecompressedSize || uint64(size) > ctx.windowSize {
			return CorruptedInput("rle block exceeds maximum decompressed size")
		}
		b, err := br.consume(1)
		if err != nil {
			return err
		}
		ctx.out = append(ctx.out, expandRLE(b[0], size)...)
		return nil

	case blockCompressed:
		if size > blockMaxDecompressedSize {
			return CorruptedInput("compressed block exceeds maximum block size")
		}
		blockBody, err := br.consume(size)
		if err != nil {
			return err
		}
		bbr := newByteReader(blockBody)

		literals, err := decodeLiteralsSection(bbr, ctx)
		if err != nil {
			return err
		}
		seqs, err := decodeSequencesSection(bbr, ctx)
		if err != nil {
			return err
		}
		return applySequences(ctx, literals, seqs, size)

	default:
		return UnsupportedFeature("reserved block type")
	}
}

// applySequences interleaves literal and match-copy spans onto ctx's
// output buffer per RFC 8878 §3.1.1.4 (sequence execution) and §3.1.1.5
// (repeat offsets), enforcing the per-block decompressed size bound.
func applySequences(ctx *decodingContext, literals []byte, seqs []sequence, compressedBlockSize int) error {
	litPos := 0
	produced := 0

	for _, s := range seqs {
		if litPos+int(s.literalLength) > len(literals) {
			return CorruptedInput("sequence literal length exceeds available literals")
		}
		ctx.out = append(ctx.out, literals[litPos:litPos+int(s.literalLength)]...)
		litPos += int(s.literalLength)
		produced += int(s.literalLength)

		effOffset, err := resolveOffset(ctx, s.rawOffset, s.literalLength)
		if err != nil {
			return err
		}

		if uint64(effOffset) > uint64(len(ctx.out)) {
			return CorruptedInput("effective offset exceeds decoded history")
		}
		if uint64(effOffset) > ctx.windowSize {
			return CorruptedInput("effective offset exceeds window size")
		}

		matchLen := int(s.matchLength)
		srcStart := len(ctx.out) - int(effOffset)
		for i := 0; i < matchLen; i++ {
			ctx.out = append(ctx.out, ctx.out[srcStart+i])
		}
		produced += matchLen

		if produced > blockMaxDecompressedSize || uint64(produced) > ctx.windowSize {
			return CorruptedInput("block exceeds maximum decompressed size")
		}
	}

	if litPos > len(literals) {
		return CorruptedInput("residual literal accounting inconsistent")
	}
	remainder := literals[litPos:]
	ctx.out = append(ctx.out, remainder...)
	produced += len(remainder)
	if produced > blockMaxDecompressedSize || uint64(produced) > ctx.windowSize {
		return CorruptedInput("block exceeds maximum decompressed size")
	}
	return nil
}

// resolveOffset applies the repeat-offset promotion rules of RFC 8878
// §3.1.1.5, mutating ctx's repeat-offset triple and returning the effective
// back-reference distance for this sequence.
func resolveOffset(ctx *decodingContext, rawOffset, literalLength uint32) (uint32, error) {
	o1, o2, o3 := ctx.repeatOffsets[0], ctx.repeatOffsets[1], ctx.repeatOffsets[2]

	var eff uint32
	switch {
	case rawOffset >= 4:
		eff = rawOffset - 3
		ctx.repeatOffsets = [3]uint32{eff, o1, o2}
	case literalLength > 0:
		switch rawOffset {
		case 1:
			eff = o1
		case 2:
			eff = o2
			ctx.repeatOffsets = [3]uint32{o2, o1, o3}
		case 3:
			eff = o3
			ctx.repeatOffsets = [3]uint32{o3, o1, o2}
		default:
			return 0, CorruptedInput("raw offset out of range")
		}
	default:
		switch rawOffset {
		case 1:
			eff = o2
			ctx.repeatOffsets = [3]uint32{o2, o1, o3}
		case 2:
			eff = o3
			ctx.repeatOffsets = [3]uint32{o3, o1, o2}
		case 3:
			if o1 == 0 {
				return 0, CorruptedInput("repeat-offset promotion underflows")
			}
			eff = o1 - 1
			ctx.repeatOffsets = [3]uint32{eff, o1, o2}
		default:
			return 0, CorruptedInput("raw offset out of range")
		}
	}
	if eff == 0 {
		return 0, CorruptedInput("effective offset is zero")
	}
	return eff, nil
}
