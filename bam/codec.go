// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bam

// bases is the BAM 4-bit sequence alphabet, indexed by nibble value.
var bases = [16]byte{
	'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V',
	'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N',
}

// maxQual is the lowest Phred score this extractor rejects (the highest it
// accepts is maxQual-1); a score at or above it almost certainly means the record boundary is wrong rather
// than that a base truly has an implausible quality, so the caller treats it
// as a parse failure and resynchronizes instead of emitting garbage.
const maxQual = 135

// decodeSeq unpacks lSeq 4-bit encoded bases from packed (which must be
// exactly (lSeq+1)/2 bytes) into their ASCII letters.
func decodeSeq(packed []byte, lSeq int) []byte {
	out := make([]byte, lSeq)
	for i := 0; i < lSeq; i++ {
		b := packed[i/2]
		var nib byte
		if i%2 == 0 {
			nib = b >> 4
		} else {
			nib = b & 0x0f
		}
		out[i] = bases[nib]
	}
	return out
}

// decodeQual converts lSeq raw Phred scores (from raw, which must be exactly
// lSeq bytes) into Phred+33 ASCII. It reports ok=false if any score is
// implausibly high, a strong signal that raw is not really quality data.
func decodeQual(raw []byte, lSeq int) (out []byte, ok bool) {
	out = make([]byte, lSeq)
	for i := 0; i < lSeq; i++ {
		q := raw[i]
		if q >= maxQual {
			return nil, false
		}
		out[i] = 33 + q
	}
	return out, true
}
