// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "encoding/binary"

// byteReader is a forward, little-endian reader over a fixed byte slice.
// It never allocates and never grows: callers peek and consume directly
// out of the window they were constructed over.
type byteReader struct {
	b   []byte
	off int
}

func newByteReader(b []byte) *byteReader {
	return &byteReader{b: b}
}

// remain returns the number of unconsumed bytes.
func (r *byteReader) remain() int {
	return len(r.b) - r.off
}

// peek returns the next n bytes without consuming them. It fails with
// NotEnoughBytes if fewer than n remain.
func (r *byteReader) peek(n int) ([]byte, error) {
	if r.remain() < n {
		return nil, NotEnoughBytes("need peek of length")
	}
	return r.b[r.off : r.off+n], nil
}

// consume advances the read cursor by n bytes and returns the skipped
// slice.
func (r *byteReader) consume(n int) ([]byte, error) {
	s, err := r.peek(n)
	if err != nil {
		return nil, err
	}
	r.off += n
	return s, nil
}

func (r *byteReader) skip(n int) error {
	_, err := r.consume(n)
	return err
}

func (r *byteReader) readU8() (uint8, error) {
	s, err := r.consume(1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (r *byteReader) readU16() (uint16, error) {
	s, err := r.consume(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (r *byteReader) readU32() (uint32, error) {
	s, err := r.consume(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (r *byteReader) readU64() (uint64, error) {
	s, err := r.consume(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(s), nil
}

// readUintLE reads an n-byte (n <= 8) little-endian unsigned integer,
// used for the frame header's variable-width content size field.
func (r *byteReader) readUintLE(n int) (uint64, error) {
	s, err := r.consume(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = (v << 8) | uint64(s[i])
	}
	return v, nil
}
