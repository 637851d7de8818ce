// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pzstd

import (
	"container/heap"
	"context"
	"io"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosnicolaou/pzstd/internal/zstd"
)

type decompressorOpts struct {
	verbose     bool
	concurrency int
	progressCh  chan<- Progress
}

// DecompressorOption represents an option to NewDecompressor.
type DecompressorOption func(*decompressorOpts)

// ZstdVerbose controls verbose logging for decompression.
func ZstdVerbose(v bool) DecompressorOption {
	return func(o *decompressorOpts) {
		o.verbose = v
	}
}

// ZstdConcurrency sets the degree of concurrency to use, that is, the
// number of goroutines decoding frames in parallel.
func ZstdConcurrency(n int) DecompressorOption {
	return func(o *decompressorOpts) {
		o.concurrency = n
	}
}

// ZstdSendUpdates sets the channel for sending progress updates over.
func ZstdSendUpdates(ch chan<- Progress) DecompressorOption {
	return func(o *decompressorOpts) {
		o.progressCh = ch
	}
}

// Progress reports the progress of decompression. Each report pertains
// to a correctly ordered decompression event.
type Progress struct {
	Duration         time.Duration
	Frame            uint64
	Compressed, Size int
}

// Decompressor decompresses a sequence of independent zstd frames
// concurrently: it must be used with Scanner's frame
// slices passed to Append, decodes each frame in parallel, and
// reassembles the decoded output in original order.
type Decompressor struct {
	order uint64 // must be first for 64-bit alignment on 32-bit platforms.

	ctx        context.Context
	workWg     sync.WaitGroup
	doneWg     sync.WaitGroup
	workCh     chan *frameDesc
	doneCh     chan *frameDesc
	stopCh     chan struct{} // closed when assemble returns
	progressCh chan<- Progress
	prd        *io.PipeReader
	pwr        *io.PipeWriter

	heap    *frameHeap
	verbose bool
}

// NewDecompressor creates a new parallel Decompressor.
func NewDecompressor(ctx context.Context, opts ...DecompressorOption) *Decompressor {
	o := decompressorOpts{
		concurrency: runtime.GOMAXPROCS(-1),
	}
	for _, fn := range opts {
		fn(&o)
	}
	dc := &Decompressor{
		ctx:        ctx,
		doneCh:     make(chan *frameDesc, o.concurrency),
		workCh:     make(chan *frameDesc, o.concurrency),
		stopCh:     make(chan struct{}),
		progressCh: o.progressCh,
		heap:       &frameHeap{},
		verbose:    o.verbose,
	}
	dc.prd, dc.pwr = io.Pipe()
	heap.Init(dc.heap)
	dc.workWg.Add(o.concurrency)
	dc.doneWg.Add(1)
	for i := 0; i < o.concurrency; i++ {
		go func() {
			dc.worker(ctx, dc.workCh, dc.doneCh)
			dc.workWg.Done()
		}()
	}
	go func() {
		dc.assemble(ctx, dc.doneCh)
		dc.doneWg.Done()
	}()
	return dc
}

type frameDesc struct {
	order uint64
	frame []byte

	err      error
	data     []byte
	duration time.Duration
}

func (dc *Decompressor) trace(format string, args ...interface{}) {
	if dc.verbose {
		log.Printf(format, args...)
	}
}

func (fd *frameDesc) decompress() {
	start := time.Now()
	fd.data, fd.err = zstd.Decode(fd.frame)
	fd.duration = time.Since(start)
}

func (dc *Decompressor) worker(ctx context.Context, in <-chan *frameDesc, out chan<- *frameDesc) {
	for {
		select {
		case frame := <-in:
			if frame == nil {
				return
			}
			frame.decompress()
			// If the assembler has already shut down (an earlier frame
			// failed or its write side was closed), the result is
			// dropped rather than blocking Finish forever on a channel
			// nobody drains.
			select {
			case out <- frame:
			case <-dc.stopCh:
			case <-ctx.Done():
			}
		case <-ctx.Done():
			return
		}
	}
}

// Append submits a frame (as returned by Scanner.Frame) for concurrent
// decompression.
func (dc *Decompressor) Append(frame []byte) error {
	order := atomic.AddUint64(&dc.order, 1)
	select {
	case dc.workCh <- &frameDesc{order: order, frame: frame}:
	case <-dc.ctx.Done():
		return dc.ctx.Err()
	}
	return nil
}

// Cancel can be called to unblock any readers that are reading from
// this decompressor and/or the Finish method.
func (dc *Decompressor) Cancel(err error) {
	dc.pwr.CloseWithError(err)
}

// Finish must be called exactly once, after every frame has been
// submitted via Append, to wait for all outstanding decompression to
// finish and its output to be reassembled.
func (dc *Decompressor) Finish() error {
	var err error
	select {
	case <-dc.ctx.Done():
		err = dc.ctx.Err()
	default:
	}
	close(dc.workCh)
	dc.workWg.Wait()
	close(dc.doneCh)
	dc.doneWg.Wait()
	return err
}

type frameHeap []*frameDesc

func (h frameHeap) Len() int           { return len(h) }
func (h frameHeap) Less(i, j int) bool { return h[i].order < h[j].order }
func (h frameHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *frameHeap) Push(x interface{}) {
	*h = append(*h, x.(*frameDesc))
}

func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (dc *Decompressor) assemble(ctx context.Context, ch <-chan *frameDesc) {
	defer close(dc.stopCh)
	defer dc.pwr.Close()
	expected := uint64(1)
	for {
		select {
		case frame := <-ch:
			dc.trace("assemble: %v", frame)
			if frame != nil {
				heap.Push(dc.heap, frame)
			}
			for len(*dc.heap) > 0 {
				min := (*dc.heap)[0]
				if min.order != expected {
					break
				}
				heap.Remove(dc.heap, 0)
				expected++
				if min.err != nil {
					dc.pwr.CloseWithError(min.err)
					return
				}
				if _, err := dc.pwr.Write(min.data); err != nil {
					dc.pwr.CloseWithError(err)
					return
				}
				if dc.progressCh != nil {
					dc.progressCh <- Progress{
						Duration:   min.duration,
						Frame:      min.order,
						Compressed: len(min.frame),
						Size:       len(min.data),
					}
				}
			}
			if frame == nil && len(*dc.heap) == 0 {
				return
			}
		case <-ctx.Done():
			dc.pwr.CloseWithError(ctx.Err())
			return
		}
	}
}

// Read implements io.Reader on the decompressed stream.
func (dc *Decompressor) Read(buf []byte) (int, error) {
	return dc.prd.Read(buf)
}
