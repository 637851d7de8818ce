// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// literalsKind is the Literals_Block_Type tag (RFC 8878 §3.1.1.3.1.1 "Literals
// section").
type literalsKind uint8

const (
	literalsRaw literalsKind = iota
	literalsRLE
	literalsCompressed
	literalsTreeless
)

// decodeLiteralsSection parses a Literals_Section_Header from the front
// of br, consumes the section, and returns the regenerated literal
// bytes (RFC 8878 §3.1.1.3.1). ctx supplies and
// receives the cached Huffman table used by Treeless/Compressed kinds.
func decodeLiteralsSection(br *byteReader, ctx *decodingContext) ([]byte, error) {
	head, err := br.peek(1)
	if err != nil {
		return nil, err
	}
	kind := literalsKind(head[0] & 0x3)
	sizeFormat := (head[0] >> 2) & 0x3

	switch kind {
	case literalsRaw, literalsRLE:
		var regeneratedSize int
		switch sizeFormat {
		case 0, 2: // size_format uses a single bit; 5-bit size.
			b, err := br.consume(1)
			if err != nil {
				return nil, err
			}
			regeneratedSize = int(b[0] >> 3)
		case 1: // 12-bit size.
			b, err := br.consume(2)
			if err != nil {
				return nil, err
			}
			v := uint32(b[0]) | uint32(b[1])<<8
			regeneratedSize = int(v >> 4)
		case 3: // 20-bit size.
			b, err := br.consume(3)
			if err != nil {
				return nil, err
			}
			v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
			regeneratedSize = int(v >> 4)
		}
		if regeneratedSize > blockMaxDecompressedSize {
			return nil, CorruptedInput("literals section exceeds maximum block size")
		}
		if kind == literalsRaw {
			body, err := br.consume(regeneratedSize)
			if err != nil {
				return nil, err
			}
			return append([]byte(nil), body...), nil
		}
		b, err := br.consume(1)
		if err != nil {
			return nil, err
		}
		return expandRLE(b[0], regeneratedSize), nil

	case literalsCompressed, literalsTreeless:
		var headerSize int
		var regBits, compBits uint
		streams := 4
		switch sizeFormat {
		case 0:
			headerSize, regBits, compBits, streams = 3, 10, 10, 1
		case 1:
			headerSize, regBits, compBits = 3, 10, 10
		case 2:
			headerSize, regBits, compBits = 4, 14, 14
		case 3:
			headerSize, regBits, compBits = 5, 18, 18
		}
		hdr, err := br.consume(headerSize)
		if err != nil {
			return nil, err
		}
		var v uint64
		for i := headerSize - 1; i >= 0; i-- {
			v = v<<8 | uint64(hdr[i])
		}
		regeneratedSize := int((v >> 4) & (uint64(1)<<regBits - 1))
		compressedSize := int((v >> (4 + regBits)) & (uint64(1)<<compBits - 1))
		if regeneratedSize > blockMaxDecompressedSize {
			return nil, CorruptedInput("literals section exceeds maximum block size")
		}

		body, err := br.consume(compressedSize)
		if err != nil {
			return nil, err
		}

		var table *huffmanTable
		payload := body
		if kind == literalsTreeless {
			if !ctx.haveHuffman {
				return nil, CorruptedInput("treeless literals with no prior huffman table")
			}
			table = ctx.huffman
		} else {
			t, consumed, err := readHuffmanTable(body)
			if err != nil {
				return nil, err
			}
			table = t
			payload = body[consumed:]
			ctx.setHuffmanTable(table)
		}

		if regeneratedSize == 0 {
			return nil, nil
		}

		if streams == 1 {
			out, err := table.decode1X(payload, regeneratedSize)
			if err != nil {
				return nil, err
			}
			return out, nil
		}
		out, err := table.decode4X(payload, regeneratedSize)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, UnsupportedFeature("unknown literals block type")
}
