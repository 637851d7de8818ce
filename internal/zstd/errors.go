// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package zstd implements decompression of the Zstandard frame format
// (RFC 8878). It operates on complete, in-memory frames and has no
// dependency on any external codec.
package zstd

import "fmt"

// NotEnoughBytes is returned when a field is read past the end of the
// supplied input.
type NotEnoughBytes string

func (e NotEnoughBytes) Error() string {
	return "zstd: not enough bytes: " + string(e)
}

// UnexpectedMagic is returned when a frame does not begin with a
// recognized magic number (data frame or skippable frame).
type UnexpectedMagic string

func (e UnexpectedMagic) Error() string {
	return "zstd: unexpected magic number: " + string(e)
}

// UnsupportedFeature is returned for syntactically valid input that this
// decoder deliberately declines to interpret, such as dictionary-id
// frames or accuracy logs outside the range this decoder accepts.
type UnsupportedFeature string

func (e UnsupportedFeature) Error() string {
	return "zstd: unsupported feature: " + string(e)
}

// CorruptedInput is returned when the input violates an invariant of the
// wire format: a malformed probability table, a missing bitstream start
// marker, an out of range repeat offset, residual bits left in a
// bitstream that claims to be exhausted, and so on.
type CorruptedInput string

func (e CorruptedInput) Error() string {
	return "zstd: corrupted input: " + string(e)
}

// SizeMismatch is returned when a declared size (block regenerated size,
// block compressed size, or frame content size) disagrees with the
// number of bytes actually produced or consumed.
type SizeMismatch string

func (e SizeMismatch) Error() string {
	return "zstd: size mismatch: " + string(e)
}

// ChecksumError is a distinguished error: the frame decoded successfully
// but its trailing XXH64 content checksum does not match the decoded
// output. It is kept separate from CorruptedInput so that callers may
// choose to accept the output despite the mismatch.
type ChecksumError struct {
	Got, Want uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("zstd: content checksum mismatch: got %#08x, want %#08x", e.Got, e.Want)
}
