// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
)

func multiFrameInput(n int) (input []byte, want []byte) {
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("frame-%03d;", i)
		input = append(input, rawFrame(content)...)
		want = append(want, content...)
		if i%3 == 0 {
			input = append(input, skippableFrame([]byte{byte(i)})...)
		}
	}
	return input, want
}

func TestReaderMultiFrame(t *testing.T) {
	ctx := context.Background()
	input, want := multiFrameInput(50)
	for _, concurrency := range []int{1, 2, 8} {
		rd := NewReader(ctx, bytes.NewReader(input),
			DecompressionOptions(ZstdConcurrency(concurrency)))
		got, err := io.ReadAll(rd)
		if err != nil {
			t.Fatalf("concurrency %d: ReadAll: %v", concurrency, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("concurrency %d: output mismatch: got %d bytes, want %d", concurrency, len(got), len(want))
		}
	}
}

func TestReaderProgress(t *testing.T) {
	ctx := context.Background()
	input, want := multiFrameInput(10)

	ch := make(chan Progress, 100)
	rd := NewReader(ctx, bytes.NewReader(input),
		DecompressionOptions(ZstdConcurrency(2), ZstdSendUpdates(ch)))
	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("output mismatch")
	}
	close(ch)
	next := uint64(1)
	for p := range ch {
		if p.Frame != next {
			t.Fatalf("out of order progress report: got frame %d, want %d", p.Frame, next)
		}
		next++
	}
}

func TestReaderCorruptInput(t *testing.T) {
	ctx := context.Background()
	input, _ := multiFrameInput(3)
	// A frame whose magic is off by one byte must surface an error from
	// the reader rather than silently truncating the stream.
	input = append(input, 0x28, 0xB5, 0x2F, 0xFE, 0x00, 0x00)

	rd := NewReader(ctx, bytes.NewReader(input))
	if _, err := io.ReadAll(rd); err == nil {
		t.Fatalf("expected an error from a corrupt trailing frame")
	}
}

func TestReaderCancelation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	input, _ := multiFrameInput(5)
	rd := NewReader(ctx, bytes.NewReader(input))
	if _, err := io.ReadAll(rd); err == nil {
		t.Fatalf("expected an error reading from a canceled reader")
	}
}
