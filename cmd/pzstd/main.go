// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cosnicolaou/pzstd"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"golang.org/x/crypto/ssh/terminal"
)

type CommonFlags struct {
	Concurrency int  `subcmd:"concurrency,4,'concurrency for the decompression'"`
	Verbose     bool `subcmd:"verbose,false,verbose debug/trace information"`
}

type catFlags struct {
	CommonFlags
}

type unzipFlags struct {
	CommonFlags
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
}

type infoFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	defaultConcurrency := map[string]interface{}{
		"concurrency": runtime.GOMAXPROCS(-1),
	}

	catCmd := subcmd.NewCommand("cat",
		subcmd.MustRegisterFlagStruct(&catFlags{}, defaultConcurrency, nil),
		cat, subcmd.AtLeastNArguments(0))
	catCmd.Document(`decompress zstd files or stdin. Files may be local, on S3 or a URL.`)

	unzipCmd := subcmd.NewCommand("unzip",
		subcmd.MustRegisterFlagStruct(&unzipFlags{}, defaultConcurrency, nil),
		unzip, subcmd.ExactlyNumArguments(1))
	unzipCmd.Document(`decompress a zstd file.`)

	infoCmd := subcmd.NewCommand("info",
		subcmd.MustRegisterFlagStruct(&infoFlags{}, nil, nil),
		info, subcmd.AtLeastNArguments(1))
	infoCmd.Document(`print the frame headers of zstd files without decompressing their content.`)

	cmdSet = subcmd.NewCommandSet(catCmd, unzipCmd, infoCmd)
	cmdSet.Document(`decompress and inspect zstd files. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func progressBar(ctx context.Context, progressBarWr io.Writer, ch chan pzstd.Progress, size int64) {
	next := uint64(1)
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(progressBarWr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintf(progressBarWr, "\n")
				return
			}
			bar.Add(p.Compressed)
			if p.Frame != next {
				fmt.Fprintf(os.Stderr, "out of sequence frame %#v\n", p)
			}
			next++
		case <-ctx.Done():
			return
		}
	}
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			nil
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return f.Reader(ctx), info.Size(), f.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout,
			func(context.Context) error {
				return nil
			},
			nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func optsFromCommonFlags(cl *CommonFlags) (
	zOpts []pzstd.DecompressorOption, scanOpts []pzstd.ScannerOption) {

	zOpts = []pzstd.DecompressorOption{
		pzstd.ZstdConcurrency(cl.Concurrency),
		pzstd.ZstdVerbose(cl.Verbose),
	}
	return zOpts, nil
}

func cat(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*catFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	zOpts, scanOpts := optsFromCommonFlags(&cl.CommonFlags)

	if len(args) == 0 {
		rd := pzstd.NewReader(ctx, os.Stdin,
			pzstd.DecompressionOptions(zOpts...),
			pzstd.ScannerOptions(scanOpts...))
		_, err := io.Copy(os.Stdout, rd)
		return err
	}

	for _, inputFile := range args {
		rd, _, readerCleanup, err := openFileOrURL(ctx, inputFile)
		if err != nil {
			return err
		}
		defer readerCleanup(ctx)

		dc := pzstd.NewReader(ctx, rd,
			pzstd.DecompressionOptions(zOpts...),
			pzstd.ScannerOptions(scanOpts...))

		if _, err := io.Copy(os.Stdout, dc); err != nil {
			return err
		}
	}
	return nil
}

func optsFromUnzipFlags(cl *unzipFlags) (
	zOpts []pzstd.DecompressorOption,
	scanOpts []pzstd.ScannerOption,
	progressBarCh chan pzstd.Progress,
	isTTY bool) {

	zOpts, scanOpts = optsFromCommonFlags(&cl.CommonFlags)

	isTTY = terminal.IsTerminal(int(os.Stdout.Fd()))
	if cl.ProgressBar && (len(cl.OutputFile) > 0 || !isTTY) {
		ch := make(chan pzstd.Progress, cl.Concurrency)
		zOpts = append(zOpts, pzstd.ZstdSendUpdates(ch))
		progressBarCh = ch
	}
	return
}

func unzip(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*unzipFlags)

	zOpts, scanOpts, progressBarCh, isTTY := optsFromUnzipFlags(cl)

	rd, size, readerCleanup, err := openFileOrURL(ctx, args[0])
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	var (
		progressBarWg sync.WaitGroup
		progressBarWr = os.Stdout
	)

	if progressBarCh != nil {
		progressBarWg.Add(1)
		if !isTTY {
			progressBarWr = os.Stderr
		}
		go func() {
			progressBar(ctx, progressBarWr, progressBarCh, size)
			progressBarWg.Done()
		}()
	}

	dc := pzstd.NewReader(ctx, rd,
		pzstd.DecompressionOptions(zOpts...),
		pzstd.ScannerOptions(scanOpts...))

	errs := &errors.M{}
	_, err = io.Copy(wr, dc)
	errs.Append(err)
	errs.Append(writerCleanup(ctx))

	if progressBarCh != nil {
		close(progressBarCh)
		progressBarWg.Wait()
	}

	return errs.Err()
}

func info(ctx context.Context, values interface{}, args []string) error {
	errs := &errors.M{}
	for _, inputFile := range args {
		if err := infoOneFile(ctx, inputFile); err != nil {
			errs.Append(fmt.Errorf("%v: %w", inputFile, err))
		}
	}
	return errs.Err()
}

func infoOneFile(ctx context.Context, name string) error {
	rd, _, cleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	buf, err := io.ReadAll(rd)
	if err != nil {
		return err
	}

	frameNum := 0
	for len(buf) > 0 {
		fi, err := pzstd.ScanFrameInfo(buf)
		if err != nil {
			return err
		}
		if fi.Skippable {
			fmt.Printf("%v: frame %d: skippable frame, %d bytes\n", name, frameNum, fi.Length)
		} else {
			size := "unknown"
			if fi.HaveContentSize {
				size = fmt.Sprintf("%d", fi.ContentSize)
			}
			fmt.Printf("%v: frame %d: window size %d, content size %s, single segment %v, checksum %v\n",
				name, frameNum, fi.WindowSize, size, fi.SingleSegment, fi.ChecksumFlag)
		}
		buf = buf[fi.Length:]
		frameNum++
	}
	return nil
}
