// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bam implements a salvage-oriented BAM record extractor. It
// consumes the logical byte stream produced by a bgzf.BlockReader, parses
// variable-length alignment records that may span block boundaries, and
// emits FASTA or FASTQ. Any structural inconsistency abandons the current
// buffer and asks the block reader to resynchronize.
package bam

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/takaho/bamsalvage/bgzf"
)

// minRecordPrefix is the size of an alignment record's fixed prefix,
// including the leading block_size field itself.
const minRecordPrefix = 36

var bamMagic = [4]byte{'B', 'A', 'M', 1}

// Options configures a Run.
type Options struct {
	// Limit caps the number of sequences emitted; 0 means unlimited.
	Limit uint64
	// NoQual selects FASTA output instead of FASTQ.
	NoQual bool
	// Verbose enables periodic progress reporting to ProgressWriter.
	Verbose bool
	// ProgressWriter receives progress lines when Verbose is set. If nil,
	// progress reporting is skipped even when Verbose is true.
	ProgressWriter io.Writer
	// FileSize, if known, is used to report percentage-of-file-processed
	// in progress lines. 0 means unknown.
	FileSize int64
}

// Counters reports what a Run accomplished.
type Counters struct {
	NSequences       uint64
	NBlocks          uint64
	NCorruptedBlocks uint64
}

// Extractor drives a bgzf.BlockReader to produce FASTA/FASTQ records.
type Extractor struct {
	br       *bgzf.BlockReader
	buf      []byte
	scanmode bool
	counters Counters
}

// NewExtractor returns an Extractor reading BGZF-framed BAM from r.
func NewExtractor(r io.Reader) *Extractor {
	return &Extractor{br: bgzf.NewBlockReader(r)}
}

// Run executes the header phase and record loop, writing FASTA or FASTQ
// records to sink, until the input is exhausted, corruption forces an
// early abort, or opts.Limit sequences have been emitted.
func (e *Extractor) Run(sink io.Writer, opts Options) (Counters, error) {
	header, err := e.br.ScanNext()
	if err != nil {
		// A read failure during header parsing is a hard failure, not a
		// normal end of stream: there is nothing to resynchronize to yet.
		return e.counters, err
	}
	if len(header) < 4 || [4]byte{header[0], header[1], header[2], header[3]} != bamMagic {
		return e.counters, &Error{Kind: IncorrectMagicNumber}
	}

	if rest, ok := skipHeader(header); ok {
		e.buf = rest
		e.scanmode = false
	} else {
		e.buf = nil
		e.scanmode = true
	}

	for {
		if e.scanmode {
			payload, err := e.br.ScanNext()
			if err != nil {
				if isEndOfStream(err) {
					return e.counters, nil
				}
				e.counters.NCorruptedBlocks++
				continue
			}
			e.scanmode = false
			e.buf = payload
		} else {
			payload, err := e.br.ReadNext()
			if err != nil {
				if isEndOfStream(err) {
					return e.counters, nil
				}
				e.counters.NCorruptedBlocks++
				e.scanmode = true
				continue
			}
			e.buf = append(e.buf, payload...)
			e.counters.NBlocks++
		}

		for len(e.buf) >= minRecordPrefix && !e.scanmode {
			limitReached, err := e.parseOneRecord(sink, opts)
			if err != nil {
				return e.counters, err
			}
			if limitReached {
				return e.counters, nil
			}
		}
	}
}

// skipHeader attempts to consume the BAM header text and reference
// dictionary from payload (the first BGZF member's inflated bytes),
// returning the remaining bytes if the whole header was present. It is a
// best-effort convenience; if the header spans more than one block, ok is
// false and the caller resynchronizes on the first alignment record
// instead of guessing at a byte offset.
func skipHeader(payload []byte) (rest []byte, ok bool) {
	if len(payload) < 8 {
		return nil, false
	}
	lText := int(binary.LittleEndian.Uint32(payload[4:8]))
	pos := 8 + lText
	if pos+4 > len(payload) {
		return nil, false
	}
	nRef := binary.LittleEndian.Uint32(payload[pos : pos+4])
	pos += 4
	for i := uint32(0); i < nRef; i++ {
		if pos+4 > len(payload) {
			return nil, false
		}
		lName := int(binary.LittleEndian.Uint32(payload[pos : pos+4]))
		pos += 4 + lName + 4 // name (NUL-terminated) + l_ref
		if pos > len(payload) {
			return nil, false
		}
	}
	return payload[pos:], true
}

// isEndOfStream reports whether err is the block reader's BufferTerminated
// signal, which represents ordinary end of input rather than corruption.
func isEndOfStream(err error) bool {
	bgzfErr, ok := err.(*bgzf.Error)
	return ok && bgzfErr.Kind == bgzf.BufferTerminated
}

// parseOneRecord attempts to parse and emit exactly one alignment record
// from the front of e.buf, pulling additional blocks if necessary. It
// reports limitReached=true once opts.Limit sequences have been emitted.
// Any structural problem abandons the buffer and switches to scan mode
// rather than returning an error, so err is always nil.
func (e *Extractor) parseOneRecord(sink io.Writer, opts Options) (limitReached bool, err error) {
	blockSize := binary.LittleEndian.Uint32(e.buf[0:4])
	drainPos := 4 + int(blockSize)
	lReadName := int(e.buf[12])
	nCigarOp := int(binary.LittleEndian.Uint16(e.buf[16:18]))
	lSeq := int(binary.LittleEndian.Uint32(e.buf[20:24]))
	seqPtr := minRecordPrefix + lReadName + 4*nCigarOp
	seqLen := (lSeq + 1) / 2
	qualLen := 0
	if !opts.NoQual {
		qualLen = lSeq
	}
	minSize := seqPtr + seqLen + qualLen

	if drainPos <= minRecordPrefix || drainPos < minSize || lReadName < 3 {
		e.abandon()
		return false, nil
	}

	for len(e.buf) < drainPos || len(e.buf) < minSize {
		payload, err := e.br.ReadNext()
		if err != nil {
			// Per spec, a read failure while completing a record is
			// treated as end-of-stream-after-truncation, not corruption:
			// the outer loop's next scan_next call resolves whether the
			// stream has truly ended.
			e.scanmode = true
			return false, nil
		}
		e.buf = append(e.buf, payload...)
		e.counters.NBlocks++
	}

	name := e.buf[minRecordPrefix : minRecordPrefix+lReadName-1]
	seq := decodeSeq(e.buf[seqPtr:seqPtr+seqLen], lSeq)
	if len(seq) != lSeq {
		e.abandon()
		return false, nil
	}

	var qual []byte
	if !opts.NoQual {
		var ok bool
		qual, ok = decodeQual(e.buf[seqPtr+seqLen:seqPtr+seqLen+lSeq], lSeq)
		if !ok || len(qual) != lSeq {
			e.abandon()
			return false, nil
		}
	}

	if opts.NoQual {
		fmt.Fprintf(sink, ">%s\n%s\n", name, seq)
	} else {
		fmt.Fprintf(sink, "@%s\n%s\n+\n%s\n", name, seq, qual)
	}

	e.counters.NSequences++
	e.reportProgress(opts, name)

	n := copy(e.buf, e.buf[drainPos:])
	e.buf = e.buf[:n]

	if opts.Limit > 0 && e.counters.NSequences >= opts.Limit {
		return true, nil
	}
	return false, nil
}

// abandon discards the current buffer and requests resynchronization,
// counting the discarded data as a corrupted block.
func (e *Extractor) abandon() {
	e.buf = nil
	e.scanmode = true
	e.counters.NCorruptedBlocks++
}

func (e *Extractor) reportProgress(opts Options, name []byte) {
	if !opts.Verbose || opts.ProgressWriter == nil {
		return
	}
	if e.counters.NSequences == 0 || e.counters.NSequences%1000 != 0 {
		return
	}
	if opts.FileSize > 0 {
		pct := float64(e.br.Offset()) / float64(opts.FileSize) * 100
		fmt.Fprintf(opts.ProgressWriter, "%6.2f%%  sequences=%d blocks=%d corrupted=%d  %s\r",
			pct, e.counters.NSequences, e.counters.NBlocks, e.counters.NCorruptedBlocks, name)
		return
	}
	fmt.Fprintf(opts.ProgressWriter, "sequences=%d blocks=%d corrupted=%d  %s\r",
		e.counters.NSequences, e.counters.NBlocks, e.counters.NCorruptedBlocks, name)
}
