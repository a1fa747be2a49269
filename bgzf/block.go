// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bgzf

// MaxBlockSize is the largest permissible uncompressed BGZF block payload,
// per the BGZF specification (a block's ISIZE must fit in 16 bits).
const MaxBlockSize = 65535

// maxInflatedSize bounds the inflater's output buffer: a corrupted block
// that never reports StreamEnd must not be allowed to grow without limit.
const maxInflatedSize = 2 * MaxBlockSize

// gzip member framing constants, see RFC 1952 and the SAM/BAM spec's BGZF
// extension (the mandatory "BC" extra subfield).
const (
	id1 = 0x1f
	id2 = 0x8b
	cm  = 8 // CM: compression method, always DEFLATE for gzip/BGZF.
	flg = 4 // FLG.FEXTRA must be set; BGZF sets no other flag bits.

	// fixedHeaderLen is the length of the fixed ID1/ID2/CM/FLG/MTIME/XFL/OS
	// gzip header prefix, before the XLEN-prefixed extra field.
	fixedHeaderLen = 12
	// trailerLen is the length of the CRC32+ISIZE trailer.
	trailerLen = 8
	// scanWindow is the width of the lookahead window scan_next uses to
	// recognize a candidate header; it covers the fixed prefix plus the
	// "BC" subfield through its BSIZE field.
	scanWindow = 18
)

var gzipMagic = [4]byte{id1, id2, cm, flg}
var bcSubfieldID = [2]byte{'B', 'C'}
