// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package zstd

// The tables in this file are fixed by RFC 8878 and must be embedded
// verbatim: a compressed sequence section may select "predefined" mode
// for any of its three symbol streams, in which case no probability
// table is read from the wire at all and these exact distributions
// apply (RFC 8878 §3.1.1.3.2.2).

const (
	predefinedLLAccuracyLog = 6
	predefinedMLAccuracyLog = 6
	predefinedOFAccuracyLog = 5

	maxLiteralsLengthCode = 35
	maxMatchLengthCode    = 52
	maxOffsetCode         = 31
)

var predefinedLiteralLengthTable = mustBuildTable(predefinedLiteralsLengthDistribution, predefinedLLAccuracyLog)
var predefinedMatchLengthTable = mustBuildTable(predefinedMatchLengthsDistribution, predefinedMLAccuracyLog)
var predefinedOffsetTable = mustBuildTable(predefinedOffsetCodeDistribution, predefinedOFAccuracyLog)

func mustBuildTable(norm []int16, accuracyLog uint8) *fseTable {
	t, err := buildFSETable(norm, accuracyLog)
	if err != nil {
		panic("zstd: internal error building predefined fse table: " + err.Error())
	}
	return t
}

var predefinedLiteralsLengthDistribution = []int16{
	4, 3, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2,
	2, 3, 2, 1, 1, 1, 1, 1,
	-1, -1, -1, -1,
}

var predefinedMatchLengthsDistribution = []int16{
	1, 4, 3, 2, 2, 2, 2, 2,
	2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, -1, -1,
	-1, -1, -1, -1, -1,
}

var predefinedOffsetCodeDistribution = []int16{
	1, 1, 1, 1, 1, 1, 2, 2,
	2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1,
	-1, -1, -1, -1, -1,
}

// llCodeTable maps a literal length code (0-35) to its baseline value
// and the count of extra raw bits that follow it in the bitstream
// (RFC 8878 §3.1.1.3.2.1.1).
var llCodeTable = [maxLiteralsLengthCode + 1]struct {
	baseline uint32
	extra    uint8
}{
	{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0},
	{8, 0}, {9, 0}, {10, 0}, {11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0},
	{16, 1}, {18, 1}, {20, 1}, {22, 1}, {24, 2}, {28, 2}, {32, 3}, {40, 3},
	{48, 4}, {64, 6}, {128, 7}, {256, 8}, {512, 9}, {1024, 10}, {2048, 11},
	{4096, 12}, {8192, 13}, {16384, 14}, {32768, 15}, {65536, 16},
}

// mlCodeTable maps a match length code (0-52) to its baseline (minimum
// match length is 3) and extra-bit count (RFC 8878 §3.1.1.3.2.1.2).
var mlCodeTable = [maxMatchLengthCode + 1]struct {
	baseline uint32
	extra    uint8
}{
	{3, 0}, {4, 0}, {5, 0}, {6, 0}, {7, 0}, {8, 0}, {9, 0}, {10, 0},
	{11, 0}, {12, 0}, {13, 0}, {14, 0}, {15, 0}, {16, 0}, {17, 0}, {18, 0},
	{19, 0}, {20, 0}, {21, 0}, {22, 0}, {23, 0}, {24, 0}, {25, 0}, {26, 0},
	{27, 0}, {28, 0}, {29, 0}, {30, 0}, {31, 0}, {32, 0}, {33, 0}, {34, 0},
	{35, 1}, {37, 1}, {39, 1}, {41, 1}, {43, 2}, {47, 2}, {51, 3}, {59, 3},
	{67, 4}, {83, 4}, {99, 5}, {131, 7}, {259, 8}, {515, 9}, {1027, 10},
	{2051, 11}, {4099, 12}, {8195, 13}, {16387, 14}, {32771, 15}, {65539, 16},
}

// offsetBaseline returns the baseline and extra-bit count for an offset
// code. Unlike literal/match lengths, offset codes have no fixed table:
// baseline is always 1<<code and extra is always code itself (RFC
// 8878 §3.1.1.3.2.1.3).
func offsetBaseline(code uint8) (baseline uint64, extra uint8) {
	return uint64(1) << code, code
}
