// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pzstd implements decompression of the Zstandard frame format
// (RFC 8878). The single-threaded entry points, Decode and DecodeFrame,
// operate on a complete in-memory input. Scanner, Decompressor, and
// Reader build a concurrent decompression pipeline on top of them:
// distinct frames in a multi-frame input are independent and may be
// decoded in parallel, with output reassembled in original order.
package pzstd

import "github.com/cosnicolaou/pzstd/internal/zstd"

// Decode decodes a complete byte sequence consisting of one or more
// concatenated Zstandard frames, returning the concatenation of every
// data frame's decoded output.
func Decode(input []byte) ([]byte, error) {
	return zstd.Decode(input)
}

// DecodeFrame decodes exactly one frame (data or skippable) from the
// front of input, returning its decoded output (nil for a skippable
// frame) and the number of bytes of input it consumed.
func DecodeFrame(input []byte) ([]byte, int, error) {
	return zstd.DecodeFrame(input)
}

// FrameInfo summarizes a frame's header without decoding its body; it
// backs the CLI's info command.
type FrameInfo = zstd.FrameInfo

// ScanFrameInfo parses the next frame's header (data or skippable) at
// the front of input and returns a summary plus the frame's total
// length, without decoding its body.
func ScanFrameInfo(input []byte) (FrameInfo, error) {
	return zstd.ScanFrameInfo(input)
}

// Error kinds returned by Decode, DecodeFrame, and the concurrent
// pipeline; re-exported from internal/zstd so callers can use errors.As
// without importing the internal package themselves.
type (
	// NotEnoughBytes is returned when a field is read past the end of
	// the supplied input.
	NotEnoughBytes = zstd.NotEnoughBytes
	// UnexpectedMagic is returned when a frame does not begin with a
	// recognized magic number.
	UnexpectedMagic = zstd.UnexpectedMagic
	// UnsupportedFeature is returned for syntactically valid input that
	// this decoder deliberately declines to interpret.
	UnsupportedFeature = zstd.UnsupportedFeature
	// CorruptedInput is returned when the input violates an invariant
	// of the wire format.
	CorruptedInput = zstd.CorruptedInput
	// SizeMismatch is returned when a declared size disagrees with the
	// number of bytes actually produced or consumed.
	SizeMismatch = zstd.SizeMismatch
	// ChecksumError is returned when a frame's trailing XXH64 content
	// checksum does not match its decoded output.
	ChecksumError = zstd.ChecksumError
)
