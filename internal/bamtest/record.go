// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bamtest

import (
	"bytes"
	"encoding/binary"
)

// baseIndex maps an upper-case IUPAC base letter to its 4-bit BAM encoding.
var baseIndex = map[byte]byte{
	'=': 0, 'A': 1, 'C': 2, 'M': 3, 'G': 4, 'R': 5, 'S': 6, 'V': 7,
	'T': 8, 'W': 9, 'Y': 10, 'H': 11, 'K': 12, 'D': 13, 'B': 14, 'N': 15,
}

// Record describes one synthetic alignment record. Qual holds raw Phred
// scores (not ASCII); a nil Qual encodes the BAM "quality not stored"
// sentinel (every base 0xff).
type Record struct {
	Name  string
	RefID int32
	Pos   int32
	MapQ  uint8
	Flag  uint16
	Seq   string
	Qual  []byte
}

// EncodeRecord returns the wire bytes of a single BAM alignment record,
// including its leading block_size field.
func EncodeRecord(rec Record) []byte {
	lSeq := len(rec.Seq)
	lReadName := len(rec.Name) + 1 // NUL terminator

	packedSeq := packSeq(rec.Seq)
	qual := rec.Qual
	if qual == nil {
		qual = bytes.Repeat([]byte{0xff}, lSeq)
	}

	body := new(bytes.Buffer)
	writeI32(body, rec.RefID)
	writeI32(body, rec.Pos)
	body.WriteByte(byte(lReadName))
	body.WriteByte(rec.MapQ)
	writeU16(body, 0) // bin
	writeU16(body, 0) // n_cigar_op
	writeU16(body, rec.Flag)
	writeU32(body, uint32(lSeq))
	writeI32(body, -1) // next_refID
	writeI32(body, -1) // next_pos
	writeI32(body, 0)  // tlen
	body.WriteString(rec.Name)
	body.WriteByte(0)
	// no cigar ops
	body.Write(packedSeq)
	body.Write(qual)

	out := new(bytes.Buffer)
	writeU32(out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func packSeq(seq string) []byte {
	out := make([]byte, (len(seq)+1)/2)
	for i := 0; i < len(seq); i++ {
		nib := baseIndex[seq[i]]
		if i%2 == 0 {
			out[i/2] = nib << 4
		} else {
			out[i/2] |= nib
		}
	}
	return out
}

func writeI32(buf *bytes.Buffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// Header returns the bytes of a minimal BAM header block: magic, SAM header
// text, and an empty reference dictionary.
func Header(text string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("BAM\x01")
	writeU32(buf, uint32(len(text)))
	buf.WriteString(text)
	writeU32(buf, 0) // n_ref
	return buf.Bytes()
}
