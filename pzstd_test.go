// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"bytes"
	"testing"
)

var magicLE = []byte{0x28, 0xB5, 0x2F, 0xFD}

// rawFrame builds a minimal single-segment, single raw-block frame
// whose content is exactly content (at most 255 bytes, the range of
// the one-byte content size field, which is all these tests need).
func rawFrame(content string) []byte {
	desc := byte(0x20) // fcsFlag=0, singleSegment=1
	fcs := byte(len(content))
	size := uint32(len(content))
	blockHdr := []byte{
		byte(1 | 0<<1 | size<<3),
		byte(size >> 5),
		byte(size >> 13),
	}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	return append(frame, content...)
}

func skippableFrame(payload []byte) []byte {
	sz := uint32(len(payload))
	hdr := []byte{0x50, 0x2A, 0x4D, 0x18, byte(sz), byte(sz >> 8), byte(sz >> 16), byte(sz >> 24)}
	return append(hdr, payload...)
}

func TestDecodeSingleFrame(t *testing.T) {
	out, err := Decode(rawFrame("hello"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, []byte("hello")) {
		t.Fatalf("got %q, want %q", out, "hello")
	}
}

func TestDecodeFrameReportsConsumed(t *testing.T) {
	frame := rawFrame("x")
	out, consumed, err := DecodeFrame(append(append([]byte{}, frame...), rawFrame("y")...))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if consumed != len(frame) {
		t.Fatalf("consumed: got %d, want %d", consumed, len(frame))
	}
	if !bytes.Equal(out, []byte("x")) {
		t.Fatalf("got %q, want %q", out, "x")
	}
}

func TestScanFrameInfoSkippable(t *testing.T) {
	fi, err := ScanFrameInfo(skippableFrame([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("ScanFrameInfo: %v", err)
	}
	if !fi.Skippable || fi.Length != 11 {
		t.Fatalf("got %+v", fi)
	}
}

func TestDecodeMultiFrameWithSkippable(t *testing.T) {
	input := append(append([]byte{}, skippableFrame([]byte{0xAA})...), rawFrame("world")...)
	out, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, []byte("world")) {
		t.Fatalf("got %q, want %q", out, "world")
	}
}
