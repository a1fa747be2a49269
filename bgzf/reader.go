// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bgzf implements a forward-only, salvage-oriented reader for the
// Blocked GNU Zip Format used by BAM. Unlike general-purpose BGZF readers
// (e.g. bíogo.bam's, which supports seeking to virtual offsets and caches
// blocks for random access) this one only ever moves forward through the
// stream: given a possibly corrupted file, it either reads the next block
// assuming the read head is exactly at a header (ReadNext), or scans
// forward for the next plausible header (ScanNext) after losing sync.
package bgzf

import (
	"bufio"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"
)

// BlockReader reads successive BGZF blocks from an underlying byte stream.
// It is not safe for concurrent use.
type BlockReader struct {
	r   *bufio.Reader
	off int64
}

// NewBlockReader returns a BlockReader reading from r.
func NewBlockReader(r io.Reader) *BlockReader {
	return &BlockReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Offset returns the current byte offset of the read head in the
// underlying stream.
func (br *BlockReader) Offset() int64 { return br.off }

// readFull reads exactly len(buf) bytes, or returns a BufferTerminated
// error reporting the offset at which the short read was detected.
func (br *BlockReader) readFull(buf []byte) error {
	start := br.off
	n, err := io.ReadFull(br.r, buf)
	br.off += int64(n)
	if err != nil {
		return newError(BufferTerminated, start, err)
	}
	return nil
}

// ReadNext assumes the read head is exactly at a BGZF member header. It
// returns the member's inflated payload, or an error if the header,
// subfield, checksum, or size are inconsistent.
func (br *BlockReader) ReadNext() ([]byte, error) {
	start := br.off
	xlen, bsize, err := br.readHeader()
	if err != nil {
		return nil, err
	}
	return br.readBody(start, xlen, bsize)
}

// readHeader reads and validates the fixed gzip prefix and the mandatory
// BC extra subfield, returning xlen and the declared BSIZE.
func (br *BlockReader) readHeader() (xlen, bsize int, err error) {
	start := br.off
	var prefix [fixedHeaderLen]byte
	if err := br.readFull(prefix[:]); err != nil {
		return 0, 0, err
	}
	if !bytes.Equal(prefix[:4], gzipMagic[:]) {
		return 0, 0, newError(BlockCorrupted, start, nil)
	}
	xlen = int(binary.LittleEndian.Uint16(prefix[10:12]))

	extra := make([]byte, xlen)
	if err := br.readFull(extra); err != nil {
		return 0, 0, err
	}
	if xlen < 6 || !bytes.Equal(extra[0:2], bcSubfieldID[:]) {
		return 0, 0, newError(BlockCorrupted, start, nil)
	}
	slen := binary.LittleEndian.Uint16(extra[2:4])
	if slen != 2 {
		return 0, 0, newError(BlockCorrupted, start, nil)
	}
	bsize = int(binary.LittleEndian.Uint16(extra[4:6]))
	return xlen, bsize, nil
}

// readBody reads the deflate payload and trailer following a validated
// header, starting at memberStart, and returns the verified, inflated
// payload.
func (br *BlockReader) readBody(memberStart int64, xlen, bsize int) ([]byte, error) {
	compressedLen := bsize - xlen - 19
	if compressedLen < 0 {
		return nil, newError(BlockCorrupted, memberStart, nil)
	}
	compressed := make([]byte, compressedLen)
	if err := br.readFull(compressed); err != nil {
		return nil, err
	}

	var trailer [trailerLen]byte
	if err := br.readFull(trailer[:]); err != nil {
		return nil, err
	}
	wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
	wantSize := binary.LittleEndian.Uint32(trailer[4:8])

	payload, err := inflate(compressed)
	if err != nil {
		return nil, newError(BlockCorrupted, memberStart, err)
	}
	if uint32(len(payload)) != wantSize {
		return nil, newError(InconsistentBlockSize, memberStart, nil)
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, newError(InconsistentChecksum, memberStart, nil)
	}
	return payload, nil
}

// inflate runs raw DEFLATE decompression (no zlib/gzip wrapper) over
// compressed, growing its output buffer as needed and refusing to exceed
// twice the maximum BGZF block size.
func inflate(compressed []byte) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	bufSize := 4 * len(compressed)
	if bufSize < 1024 {
		bufSize = 1024
	}
	out := make([]byte, 0, bufSize)
	chunk := make([]byte, bufSize)
	for {
		n, err := fr.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
			if len(out) > maxInflatedSize {
				return nil, io.ErrShortBuffer
			}
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ScanNext searches forward for the next plausible BGZF member header,
// returning its inflated payload once found. It is used to resynchronize
// after ReadNext (or record-level parsing downstream) detects corruption.
func (br *BlockReader) ScanNext() ([]byte, error) {
	var window [scanWindow]byte
	if err := br.readFull(window[:]); err != nil {
		return nil, err
	}

	for {
		memberStart := br.off - scanWindow
		if xlen, bsize, ok := plausibleHeader(window[:]); ok {
			// Consume the rest of the extra subfield area beyond the
			// first 6 bytes (SI1, SI2, SLEN, BSIZE) already in window.
			rest := make([]byte, xlen-6)
			if err := br.readFull(rest); err != nil {
				return nil, err
			}
			return br.readBody(memberStart, xlen, bsize)
		}

		shift := scanWindow
		for i := 1; i < scanWindow; i++ {
			if window[i] == id1 {
				shift = i
				break
			}
		}
		copy(window[:], window[shift:])
		if err := br.readFull(window[scanWindow-shift:]); err != nil {
			return nil, err
		}
	}
}

// plausibleHeader reports whether window (exactly scanWindow bytes, read
// with the candidate header at index 0) looks like a valid BGZF member
// header, returning its xlen and declared BSIZE if so.
func plausibleHeader(window []byte) (xlen, bsize int, ok bool) {
	if !bytes.Equal(window[0:4], gzipMagic[:]) {
		return 0, 0, false
	}
	if !bytes.Equal(window[12:14], bcSubfieldID[:]) {
		return 0, 0, false
	}
	xlen = int(binary.LittleEndian.Uint16(window[10:12]))
	bsize = int(binary.LittleEndian.Uint16(window[16:18]))
	if xlen < 6 || bsize <= xlen+19 {
		return 0, 0, false
	}
	return xlen, bsize, true
}
