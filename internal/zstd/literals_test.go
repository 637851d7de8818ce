// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import (
	"bytes"
	"testing"
)

func TestDecodeLiteralsSectionRaw(t *testing.T) {
	// kind=Raw(0), sizeFormat=0 (1-byte header, 5-bit size): header =
	// (3<<3)|(0<<2)|0 = 0x18, followed by the 3 raw bytes "xyz".
	br := newByteReader([]byte{0x18, 'x', 'y', 'z'})
	ctx := newDecodingContext(1<<20, 0)
	out, err := decodeLiteralsSection(br, ctx)
	if err != nil {
		t.Fatalf("decodeLiteralsSection: %v", err)
	}
	if !bytes.Equal(out, []byte("xyz")) {
		t.Fatalf("got %q, want %q", out, "xyz")
	}
	if br.remain() != 0 {
		t.Fatalf("remain: got %d, want 0", br.remain())
	}
}

func TestDecodeLiteralsSectionRawLongSizeFormat(t *testing.T) {
	// kind=Raw(0), sizeFormat=3 (3-byte header, 20-bit size): header
	// bytes hold (3<<4)|(3<<2) = 0x3C, 0x00, 0x00 for a 3-byte size.
	br := newByteReader([]byte{0x3C, 0x00, 0x00, 'x', 'y', 'z'})
	ctx := newDecodingContext(1<<20, 0)
	out, err := decodeLiteralsSection(br, ctx)
	if err != nil {
		t.Fatalf("decodeLiteralsSection: %v", err)
	}
	if !bytes.Equal(out, []byte("xyz")) {
		t.Fatalf("got %q, want %q", out, "xyz")
	}
}

func TestDecodeLiteralsSectionRLE(t *testing.T) {
	// kind=RLE(1), sizeFormat=0: header = (4<<3)|(0<<2)|1 = 0x21,
	// followed by the single repeated byte 'Z'.
	br := newByteReader([]byte{0x21, 'Z'})
	ctx := newDecodingContext(1<<20, 0)
	out, err := decodeLiteralsSection(br, ctx)
	if err != nil {
		t.Fatalf("decodeLiteralsSection: %v", err)
	}
	if !bytes.Equal(out, []byte("ZZZZ")) {
		t.Fatalf("got %q, want %q", out, "ZZZZ")
	}
}

// TestDecodeLiteralsSectionCompressed exercises the single-stream
// Huffman-compressed path end to end: a 3-byte section header
// declaring a 3-symbol regenerated size and a 3-byte compressed body
// (a 2-byte direct-weights Huffman header plus a 1-byte payload),
// chosen so the resulting table and bitstream match the hand-derived
// ones in TestReadHuffmanTableDirectWeights / TestHuffmanDecode1X.
func TestDecodeLiteralsSectionCompressed(t *testing.T) {
	header := []byte{0x32, 0xC0, 0x00} // kind=2, sizeFormat=0, regSize=3, compSize=3
	body := []byte{0x81, 0x11, 0x31}   // huffman header (2 bytes) + 1-byte payload
	br := newByteReader(append(append([]byte(nil), header...), body...))
	ctx := newDecodingContext(1<<20, 0)

	out, err := decodeLiteralsSection(br, ctx)
	if err != nil {
		t.Fatalf("decodeLiteralsSection: %v", err)
	}
	want := []byte{2, 0, 1}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d]: got %d, want %d", i, out[i], want[i])
		}
	}
	if !ctx.haveHuffman {
		t.Fatalf("expected the huffman table to be cached on ctx")
	}
}

func TestDecodeLiteralsSectionTreelessRequiresPriorTable(t *testing.T) {
	// kind=Treeless(3), sizeFormat=0; no Huffman table has been set on
	// ctx yet, so the section must be rejected as corrupt.
	br := newByteReader([]byte{0x33, 0xC0, 0x00, 0xAA, 0xBB, 0xCC})
	ctx := newDecodingContext(1<<20, 0)
	if _, err := decodeLiteralsSection(br, ctx); err == nil {
		t.Fatalf("expected an error decoding treeless literals with no prior table")
	} else if _, ok := err.(CorruptedInput); !ok {
		t.Fatalf("expected CorruptedInput, got %T: %v", err, err)
	}
}
