// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bamtest generates synthetic BGZF blocks and BAM records for use in
// other packages' tests. It mirrors the teacher's internal/test_util.go and
// gentestdata.go helpers, but builds real BGZF members with compress/flate
// and hash/crc32 rather than shelling out to an external compressor.
package bamtest

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"math/rand"
	"testing"
)

// PredictableRandomData returns size bytes of deterministic pseudo-random
// data, so tests are reproducible without checking in binary fixtures.
func PredictableRandomData(size int) []byte {
	rnd := rand.New(rand.NewSource(42))
	buf := make([]byte, size)
	rnd.Read(buf)
	return buf
}

// bcXLen is the length of the mandatory BC extra subfield: 2 bytes SI1/SI2,
// 2 bytes SLEN, 2 bytes BSIZE.
const bcXLen = 6

// EncodeBlock compresses payload with raw DEFLATE and wraps it in a single,
// fully valid BGZF member: fixed gzip header, BC extra subfield, compressed
// data, and a CRC32/ISIZE trailer. The result is a byte-for-byte valid input
// to bgzf.BlockReader.ReadNext.
func EncodeBlock(t *testing.T, payload []byte) []byte {
	t.Helper()

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("bamtest: flate.NewWriter: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("bamtest: flate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("bamtest: flate close: %v", err)
	}
	cdata := compressed.Bytes()

	bsize := len(cdata) + bcXLen + 19

	var buf bytes.Buffer
	buf.Write([]byte{0x1f, 0x8b, 8, 4}) // ID1, ID2, CM, FLG.FEXTRA
	buf.Write([]byte{0, 0, 0, 0})       // MTIME, unset
	buf.WriteByte(0)                    // XFL
	buf.WriteByte(0xff)                 // OS, unspecified
	writeUint16(&buf, uint16(bcXLen))
	buf.WriteString("BC")
	writeUint16(&buf, 2) // SLEN
	writeUint16(&buf, uint16(bsize))
	buf.Write(cdata)
	writeUint32(&buf, crc32.ChecksumIEEE(payload))
	writeUint32(&buf, uint32(len(payload)))
	return buf.Bytes()
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
