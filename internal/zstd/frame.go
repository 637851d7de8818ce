// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "github.com/cespare/xxhash/v2"

// FrameMagic is the little-endian magic number that begins every
// Zstandard data frame (RFC 8878 §3.1.1).
const FrameMagic = 0xFD2FB528

// The 16 magic numbers 0x184D2A50..0x184D2A5F are reserved for
// skippable frames (RFC 8878 §3.1.2).
const (
	skippableMagicMask = 0xFFFFFFF0
	skippableMagicLow  = 0x184D2A50
)

// maxWindowSize caps the window any frame may request; every size the
// input can derive is bounded by it, so downstream arithmetic fits in
// machine words.
const maxWindowSize = 1 << 30

// frameHeader holds the parsed fields of a Frame_Header (RFC 8878 §3.1.1.1).
type frameHeader struct {
	windowSize      uint64
	contentSize     uint64
	haveContentSize bool
	singleSegment   bool
	checksumFlag    bool
}

// readMagic reads the 4-byte little-endian magic number from the front
// of br without consuming it.
func readMagic(br *byteReader) (uint32, error) {
	b, err := br.peek(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// skipFrame consumes a skippable frame (magic already peeked, not yet
// consumed) and returns its total length in bytes, 8 plus its declared
// payload size (RFC 8878 §3.1.2).
func skipFrame(br *byteReader) (int, error) {
	if err := br.skip(4); err != nil {
		return 0, err
	}
	szBytes, err := br.consume(4)
	if err != nil {
		return 0, err
	}
	sz := int(szBytes[0]) | int(szBytes[1])<<8 | int(szBytes[2])<<16 | int(szBytes[3])<<24
	if err := br.skip(sz); err != nil {
		return 0, err
	}
	return 8 + sz, nil
}

// decodeFrame parses and fully decodes one frame (ordinary or
// skippable) from the front of input, returning the decoded bytes (nil
// for a skippable frame) and the number of input bytes consumed.
func decodeFrame(input []byte) ([]byte, int, error) {
	br := newByteReader(input)
	magic, err := readMagic(br)
	if err != nil {
		return nil, 0, err
	}
	if magic&skippableMagicMask == skippableMagicLow {
		n, err := skipFrame(br)
		return nil, n, err
	}
	if magic != FrameMagic {
		return nil, 0, UnexpectedMagic("expected zstd frame magic number")
	}
	if err := br.skip(4); err != nil {
		return nil, 0, err
	}

	hdr, err := parseFrameHeader(br)
	if err != nil {
		return nil, 0, err
	}

	// Preallocation trusts the declared content size only up to the
	// window bound; a larger claim still decodes, growing as it goes,
	// rather than allocating whatever the header asks for.
	sizeHint := 0
	if hdr.haveContentSize && hdr.contentSize <= maxWindowSize {
		sizeHint = int(hdr.contentSize)
	}
	ctx := newDecodingContext(hdr.windowSize, sizeHint)

	blockCount := 0
	for {
		last, kind, size, err := decodeBlockHeader(br)
		if err != nil {
			return nil, 0, err
		}
		if err := decodeBlock(br, ctx, kind, size); err != nil {
			return nil, 0, err
		}
		blockCount++
		if hdr.singleSegment && blockCount > 1 {
			return nil, 0, CorruptedInput("single segment frame has more than one block")
		}
		if last {
			break
		}
	}

	if hdr.haveContentSize && uint64(len(ctx.out)) != hdr.contentSize {
		return nil, 0, SizeMismatch("frame content size disagrees with decoded output length")
	}

	if hdr.checksumFlag {
		want, err := br.readU32()
		if err != nil {
			return nil, 0, err
		}
		got := uint32(xxhash.Sum64(ctx.out))
		if got != want {
			// The output and consumed count are returned alongside the
			// error: whether a mismatched checksum invalidates the data
			// is the caller's decision.
			return ctx.out, br.off, &ChecksumError{Got: got, Want: want}
		}
	}

	return ctx.out, br.off, nil
}

// walkBlocks skips over a frame's blocks by their stored size (the
// declared Block_Size, or the single byte of an RLE block), without
// running any entropy decoder, enforcing the same block-count
// invariant decodeFrame does for single-segment frames.
func walkBlocks(br *byteReader, singleSegment bool) error {
	blockCount := 0
	for {
		last, kind, size, err := decodeBlockHeader(br)
		if err != nil {
			return err
		}
		if kind == blockReserved {
			return UnsupportedFeature("reserved block type")
		}
		n := size
		if kind == blockRLE {
			n = 1
		}
		if err := br.skip(n); err != nil {
			return err
		}
		blockCount++
		if singleSegment && blockCount > 1 {
			return CorruptedInput("single segment frame has more than one block")
		}
		if last {
			break
		}
	}
	return nil
}

// ScanFrameLength reports how many bytes the next frame (data or
// skippable) at the front of input occupies, without running any
// entropy decoder: it parses the frame header and walks block headers,
// skipping each block's stored bytes rather than decoding them.
// This is what the concurrent multi-frame scanner uses to split work
// without paying for the entropy decode twice.
func ScanFrameLength(input []byte) (int, error) {
	br := newByteReader(input)
	magic, err := readMagic(br)
	if err != nil {
		return 0, err
	}
	if magic&skippableMagicMask == skippableMagicLow {
		return skipFrame(br)
	}
	if magic != FrameMagic {
		return 0, UnexpectedMagic("expected zstd frame magic number")
	}
	if err := br.skip(4); err != nil {
		return 0, err
	}
	hdr, err := parseFrameHeader(br)
	if err != nil {
		return 0, err
	}
	if err := walkBlocks(br, hdr.singleSegment); err != nil {
		return 0, err
	}
	if hdr.checksumFlag {
		if err := br.skip(4); err != nil {
			return 0, err
		}
	}
	return br.off, nil
}

// FrameInfo summarizes a frame's header without decoding its body; it
// backs the CLI's info command.
type FrameInfo struct {
	Skippable       bool
	WindowSize      uint64
	ContentSize     uint64
	HaveContentSize bool
	SingleSegment   bool
	ChecksumFlag    bool
	Length          int
}

// ScanFrameInfo parses the next frame's header (data or skippable) at
// the front of input and returns a summary plus the frame's total
// length, without running any entropy decoder.
func ScanFrameInfo(input []byte) (FrameInfo, error) {
	br := newByteReader(input)
	magic, err := readMagic(br)
	if err != nil {
		return FrameInfo{}, err
	}
	if magic&skippableMagicMask == skippableMagicLow {
		n, err := skipFrame(br)
		if err != nil {
			return FrameInfo{}, err
		}
		return FrameInfo{Skippable: true, Length: n}, nil
	}
	if magic != FrameMagic {
		return FrameInfo{}, UnexpectedMagic("expected zstd frame magic number")
	}
	if err := br.skip(4); err != nil {
		return FrameInfo{}, err
	}
	hdr, err := parseFrameHeader(br)
	if err != nil {
		return FrameInfo{}, err
	}
	if err := walkBlocks(br, hdr.singleSegment); err != nil {
		return FrameInfo{}, err
	}
	if hdr.checksumFlag {
		if err := br.skip(4); err != nil {
			return FrameInfo{}, err
		}
	}
	return FrameInfo{
		WindowSize:      hdr.windowSize,
		ContentSize:     hdr.contentSize,
		HaveContentSize: hdr.haveContentSize,
		SingleSegment:   hdr.singleSegment,
		ChecksumFlag:    hdr.checksumFlag,
		Length:          br.off,
	}, nil
}

// parseFrameHeader parses the Frame_Header_Descriptor and the fields it
// selects (RFC 8878 §3.1.1). The magic number must already have been
// consumed from br.
func parseFrameHeader(br *byteReader) (frameHeader, error) {
	descByte, err := br.consume(1)
	if err != nil {
		return frameHeader{}, err
	}
	desc := descByte[0]

	fcsFlag := desc >> 6
	singleSegment := desc&0x20 != 0
	reservedBit := desc&0x08 != 0
	checksumFlag := desc&0x04 != 0
	dictIDFlag := desc & 0x3

	if reservedBit {
		return frameHeader{}, UnsupportedFeature("frame header reserved bit set")
	}

	var hdr frameHeader
	hdr.singleSegment = singleSegment
	hdr.checksumFlag = checksumFlag

	if !singleSegment {
		wdByte, err := br.consume(1)
		if err != nil {
			return frameHeader{}, err
		}
		exponent := wdByte[0] >> 3
		mantissa := wdByte[0] & 0x7
		base := uint64(1) << (10 + exponent)
		add := (base / 8) * uint64(mantissa)
		hdr.windowSize = base + add
	}

	if dictIDFlag != 0 {
		var n int
		switch dictIDFlag {
		case 1:
			n = 1
		case 2:
			n = 2
		case 3:
			n = 4
		}
		if err := br.skip(n); err != nil {
			return frameHeader{}, err
		}
		return frameHeader{}, UnsupportedFeature("dictionary id present")
	}

	switch fcsFlag {
	case 0:
		if singleSegment {
			v, err := br.readU8()
			if err != nil {
				return frameHeader{}, err
			}
			hdr.contentSize = uint64(v)
			hdr.haveContentSize = true
		}
	case 1:
		v, err := br.readU16()
		if err != nil {
			return frameHeader{}, err
		}
		hdr.contentSize = uint64(v) + 256
		hdr.haveContentSize = true
	case 2:
		v, err := br.readU32()
		if err != nil {
			return frameHeader{}, err
		}
		hdr.contentSize = uint64(v)
		hdr.haveContentSize = true
	case 3:
		v, err := br.readU64()
		if err != nil {
			return frameHeader{}, err
		}
		hdr.contentSize = v
		hdr.haveContentSize = true
	}

	if singleSegment {
		hdr.windowSize = hdr.contentSize
	}
	if hdr.windowSize == 0 {
		return frameHeader{}, CorruptedInput("zero window size")
	}
	if hdr.windowSize > maxWindowSize {
		return frameHeader{}, UnsupportedFeature("window size exceeds this decoder's maximum")
	}
	if singleSegment && hdr.haveContentSize && hdr.windowSize < hdr.contentSize {
		return frameHeader{}, CorruptedInput("single segment window size smaller than content size")
	}

	return hdr, nil
}
