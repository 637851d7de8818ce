// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"context"
	"io"
)

type readerOpts struct {
	decOpts  []DecompressorOption
	scanOpts []ScannerOption
}

// ReaderOption represents an option to NewReader.
type ReaderOption func(o *readerOpts)

// ScannerOptions passes ScannerOptions to the underlying scanner
// created by NewReader.
func ScannerOptions(opts ...ScannerOption) ReaderOption {
	return func(o *readerOpts) {
		o.scanOpts = append(o.scanOpts, opts...)
	}
}

// DecompressionOptions passes DecompressorOptions to the underlying
// decompressor created by NewReader.
func DecompressionOptions(opts ...DecompressorOption) ReaderOption {
	return func(o *readerOpts) {
		o.decOpts = append(o.decOpts, opts...)
	}
}

// streamReader glues a Scanner to a Decompressor behind io.Reader: a
// single feed goroutine walks the input frame by frame and submits
// each one, while Read drains the reassembled output from the
// decompressor's pipe.
type streamReader struct {
	dc      *Decompressor
	feedErr chan error
	err     error
	drained bool
}

// NewReader returns an io.Reader that decompresses a stream of zstd
// frames read from rd, decoding independent frames concurrently.
func NewReader(ctx context.Context, rd io.Reader, opts ...ReaderOption) io.Reader {
	o := &readerOpts{}
	for _, fn := range opts {
		fn(o)
	}
	sr := &streamReader{
		dc:      NewDecompressor(ctx, o.decOpts...),
		feedErr: make(chan error, 1),
	}
	go sr.feed(ctx, NewScanner(rd, o.scanOpts...))
	return sr
}

// feed submits every frame the scanner finds, then shuts the
// decompressor down. Finish is always called, so readers blocked on
// the output pipe are guaranteed to be released; the first error from
// scanning, submission, or shutdown is reported once on feedErr.
func (sr *streamReader) feed(ctx context.Context, sc *Scanner) {
	var err error
	for sc.Scan(ctx) {
		if err = sr.dc.Append(sc.Frame()); err != nil {
			break
		}
	}
	if err == nil {
		err = sc.Err()
	}
	if err != nil {
		sr.dc.Cancel(err)
	}
	if ferr := sr.dc.Finish(); err == nil {
		err = ferr
	}
	sr.feedErr <- err
}

// Read implements io.Reader. A failure while scanning or submitting
// frames takes precedence over the pipe's EOF, so a short input never
// masquerades as a clean end of stream.
func (sr *streamReader) Read(buf []byte) (int, error) {
	n, err := sr.dc.Read(buf)
	if err == nil {
		return n, nil
	}
	if !sr.drained {
		sr.err = <-sr.feedErr
		sr.drained = true
	}
	if err == io.EOF && sr.err != nil {
		err = sr.err
	}
	return n, err
}
