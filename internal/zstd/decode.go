// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

import "errors"

// Decode decodes a complete input consisting of one or more
// concatenated Zstandard frames (data or skippable), returning the
// concatenation of every data frame's decoded output. Frames are
// independent; a multi-frame input has no shared state between frames.
//
// A *ChecksumError is returned together with the output decoded so far
// (the mismatching frame's included); every other error returns nil
// output.
func Decode(input []byte) ([]byte, error) {
	var out []byte
	for len(input) > 0 {
		decoded, consumed, err := decodeFrame(input)
		if err != nil {
			var ce *ChecksumError
			if errors.As(err, &ce) {
				return append(out, decoded...), err
			}
			return nil, err
		}
		out = append(out, decoded...)
		input = input[consumed:]
	}
	return out, nil
}

// DecodeFrame decodes exactly one frame (data or skippable) from the
// front of input, returning its decoded output (nil for a skippable
// frame) and the number of input bytes it consumed. As with Decode, a
// *ChecksumError accompanies the decoded output rather than replacing
// it.
func DecodeFrame(input []byte) ([]byte, int, error) {
	return decodeFrame(input)
}
