// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"bufio"
	"context"
	"io"

	"github.com/cosnicolaou/pzstd/internal/zstd"
)

type scannerOpts struct {
	initialPeek int
	bufferSize  int
}

// ScannerOption represents an option to NewScanner.
type ScannerOption func(*scannerOpts)

// ScanInitialPeek sets the number of bytes the scanner first peeks at
// to parse a frame header; it doubles this amount as needed until a
// whole frame's length is known. It should only ever need adjusting if
// frame headers are unusually far from the front of the stream, which
// does not happen in conformant input.
func ScanInitialPeek(n int) ScannerOption {
	return func(o *scannerOpts) {
		o.initialPeek = n
	}
}

// ScanBufferSize sets the size of the underlying bufio.Reader used to
// buffer the input stream.
func ScanBufferSize(n int) ScannerOption {
	return func(o *scannerOpts) {
		o.bufferSize = n
	}
}

// Scanner splits a multi-frame Zstandard byte stream into its
// constituent frames (data or skippable) without decoding them, by
// parsing each frame's header and block sizes (zstd.ScanFrameLength)
// to determine exactly how many bytes it occupies. Unlike a bzip2
// stream, a zstd frame declares its own length, so no magic-number
// search over the frame body is required.
type Scanner struct {
	rd    *bufio.Reader
	peek  int
	frame []byte
	err   error
	done  bool
}

// NewScanner returns a new Scanner reading from rd.
func NewScanner(rd io.Reader, opts ...ScannerOption) *Scanner {
	o := scannerOpts{
		initialPeek: 18, // magic + frame header descriptor + window descriptor + largest dictionary id and content size fields
		bufferSize:  1 << 20,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Scanner{
		rd:   bufio.NewReaderSize(rd, o.bufferSize),
		peek: o.initialPeek,
	}
}

// Scan advances the scanner to the next frame, returning true if one
// was found. It returns false at end of stream or on the first error,
// available via Err.
func (sc *Scanner) Scan(ctx context.Context) bool {
	if sc.err != nil || sc.done {
		return false
	}
	select {
	case <-ctx.Done():
		sc.err = ctx.Err()
		return false
	default:
	}
	if _, err := sc.rd.Peek(1); err != nil {
		if err == io.EOF {
			sc.done = true
			return false
		}
		sc.err = err
		return false
	}

	peek := sc.peek
	for {
		buf, err := sc.rd.Peek(peek)
		eof := false
		switch err {
		case nil:
		case io.EOF:
			eof = true
		case bufio.ErrBufferFull:
			// The frame's headers span more than the current buffer; a
			// new, larger reader layered over the old one sees its
			// buffered bytes first, so nothing is lost.
			peek *= 2
			sc.rd = bufio.NewReaderSize(sc.rd, peek)
			continue
		default:
			sc.err = err
			return false
		}
		n, ferr := zstd.ScanFrameLength(buf)
		if ferr == nil {
			frame := make([]byte, n)
			if _, err := io.ReadFull(sc.rd, frame); err != nil {
				sc.err = err
				return false
			}
			sc.frame = frame
			return true
		}
		if _, ok := ferr.(zstd.NotEnoughBytes); ok && !eof {
			peek *= 2
			continue
		}
		sc.err = ferr
		return false
	}
}

// Frame returns the raw bytes of the frame found by the most recent
// call to Scan.
func (sc *Scanner) Frame() []byte {
	return sc.frame
}

// Err returns any error encountered by the scanner.
func (sc *Scanner) Err() error {
	return sc.err
}
