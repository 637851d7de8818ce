// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"bytes"
	"testing"
)

var magicLE = []byte{0x28, 0xB5, 0x2F, 0xFD}

func TestDecodeFrameWrongMagic(t *testing.T) {
	input := []byte{0x28, 0xB5, 0x2F, 0xFE}
	_, _, err := decodeFrame(input)
	if _, ok := err.(UnexpectedMagic); !ok {
		t.Fatalf("expected UnexpectedMagic, got %T: %v", err, err)
	}
}

// TestDecodeFrameSmallestRaw decodes the smallest possible frame: a
// single-segment frame descriptor (1-byte content size), a single
// raw block holding one byte, and no checksum.
func TestDecodeFrameSmallestRaw(t *testing.T) {
	desc := byte(0x20) // fcsFlag=0, singleSegment=1
	fcs := byte(0x01)  // content size = 1
	// block header: last=1, type=Raw(0), size=1 -> v = 1 | 0<<1 | 1<<3 = 9
	blockHdr := []byte{0x09, 0x00, 0x00}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'A')

	out, consumed, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if consumed != len(frame) {
		t.Fatalf("consumed: got %d, want %d", consumed, len(frame))
	}
	if !bytes.Equal(out, []byte("A")) {
		t.Fatalf("got %q, want %q", out, "A")
	}
}

// TestDecodeFrameRLEBlock decodes a single-segment frame whose sole
// block is RLE-encoded, expanding to "BBBBB".
func TestDecodeFrameRLEBlock(t *testing.T) {
	desc := byte(0x20)
	fcs := byte(0x05)
	// last=1, type=RLE(1), size=5 -> v = 1 | 1<<1 | 5<<3 = 0x2B
	blockHdr := []byte{0x2B, 0x00, 0x00}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'B')

	out, consumed, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if consumed != len(frame) {
		t.Fatalf("consumed: got %d, want %d", consumed, len(frame))
	}
	if !bytes.Equal(out, []byte("BBBBB")) {
		t.Fatalf("got %q, want %q", out, "BBBBB")
	}
}

// TestDecodeFrameDictionaryRejected checks that a frame header
// declaring a dictionary ID is rejected as UnsupportedFeature rather
// than silently ignored: this decoder never had a dictionary to
// apply one against.
func TestDecodeFrameDictionaryRejected(t *testing.T) {
	desc := byte(0x01)     // fcsFlag=0, singleSegment=0, dictIDFlag=1
	windowDesc := byte(0x00) // exponent=0, mantissa=0
	dictID := byte(0x07)
	frame := append(append(append([]byte{}, magicLE...), desc, windowDesc), dictID)

	_, _, err := decodeFrame(frame)
	if _, ok := err.(UnsupportedFeature); !ok {
		t.Fatalf("expected UnsupportedFeature, got %T: %v", err, err)
	}
}

func TestDecodeFrameChecksumMismatch(t *testing.T) {
	desc := byte(0x24) // fcsFlag=0, singleSegment=1, checksumFlag set
	fcs := byte(0x05)
	blockHdr := []byte{0x2B, 0x00, 0x00}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'B')
	// An all-zero checksum will not match the real XXH64 of "BBBBB".
	frame = append(frame, 0x00, 0x00, 0x00, 0x00)

	_, _, err := decodeFrame(frame)
	if _, ok := err.(*ChecksumError); !ok {
		t.Fatalf("expected *ChecksumError, got %T: %v", err, err)
	}
}

func TestSkippableFrame(t *testing.T) {
	frame := []byte{0x50, 0x2A, 0x4D, 0x18, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}
	out, consumed, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil output for a skippable frame, got %v", out)
	}
	if consumed != 11 {
		t.Fatalf("consumed: got %d, want 11", consumed)
	}
}

func TestDecodeMultiFrame(t *testing.T) {
	skippable := []byte{0x50, 0x2A, 0x4D, 0x18, 0x03, 0x00, 0x00, 0x00, 0xAA, 0xBB, 0xCC}
	desc := byte(0x20)
	fcs := byte(0x01)
	blockHdr := []byte{0x09, 0x00, 0x00}
	raw := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	raw = append(raw, 'A')

	input := append(append([]byte{}, skippable...), raw...)
	out, err := Decode(input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, []byte("A")) {
		t.Fatalf("got %q, want %q", out, "A")
	}
}

// TestDecodeTruncatedFrame checks that every proper prefix of a valid
// frame fails cleanly rather than decoding, panicking, or looping.
func TestDecodeTruncatedFrame(t *testing.T) {
	desc := byte(0x20)
	fcs := byte(0x05)
	blockHdr := []byte{0x2B, 0x00, 0x00} // last, RLE, size 5
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'B')

	if _, _, err := decodeFrame(frame); err != nil {
		t.Fatalf("full frame must decode: %v", err)
	}
	for i := 1; i < len(frame); i++ {
		if _, err := Decode(frame[:i]); err == nil {
			t.Fatalf("prefix of %d bytes decoded without error", i)
		}
	}
}

// TestDecodeBitFlips checks that no single-bit corruption of the frame
// body reproduces the original output: each flip must either fail or
// decode to something else. Header bytes are excluded: the descriptor
// carries an unused bit and a single-segment flag whose flips yield a
// different but valid encoding of the same content.
func TestDecodeBitFlips(t *testing.T) {
	desc := byte(0x20)
	fcs := byte(0x08)
	blockHdr := []byte{0x41, 0x00, 0x00} // last, Raw, size 8
	header := append(append([]byte{}, magicLE...), desc, fcs)
	frame := append(append([]byte{}, header...), blockHdr...)
	frame = append(frame, "abcdefgh"...)

	want, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := len(header); i < len(frame); i++ {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), frame...)
			mut[i] ^= 1 << bit
			out, err := Decode(mut)
			if err == nil && bytes.Equal(out, want) {
				t.Fatalf("flipping bit %d of byte %d reproduced the original output", bit, i)
			}
		}
	}
}

func TestScanFrameLengthMatchesDecodeFrame(t *testing.T) {
	desc := byte(0x20)
	fcs := byte(0x05)
	blockHdr := []byte{0x2B, 0x00, 0x00}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'B')

	n, err := ScanFrameLength(frame)
	if err != nil {
		t.Fatalf("ScanFrameLength: %v", err)
	}
	if n != len(frame) {
		t.Fatalf("got %d, want %d", n, len(frame))
	}
}

func TestScanFrameInfo(t *testing.T) {
	desc := byte(0x20)
	fcs := byte(0x05)
	blockHdr := []byte{0x2B, 0x00, 0x00}
	frame := append(append(append([]byte{}, magicLE...), desc, fcs), blockHdr...)
	frame = append(frame, 'B')

	fi, err := ScanFrameInfo(frame)
	if err != nil {
		t.Fatalf("ScanFrameInfo: %v", err)
	}
	if fi.Skippable {
		t.Fatalf("expected a data frame")
	}
	if !fi.SingleSegment || !fi.HaveContentSize || fi.ContentSize != 5 {
		t.Fatalf("got %+v", fi)
	}
	if fi.Length != len(frame) {
		t.Fatalf("length: got %d, want %d", fi.Length, len(frame))
	}
}
