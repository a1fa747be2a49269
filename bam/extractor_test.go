// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"strings"
	"testing"

	"github.com/takaho/bamsalvage/internal/bamtest"
)

func TestRunEmptyValidBAM(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	stream.Write(bamtest.EncodeBlock(t, nil)) // EOF marker

	var sink bytes.Buffer
	counters, err := NewExtractor(&stream).Run(&sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.NSequences != 0 || counters.NCorruptedBlocks != 0 {
		t.Errorf("got %+v, want n_sequences=0 n_corrupted=0", counters)
	}
	if counters.NBlocks < 1 {
		t.Errorf("got n_blocks=%d, want >= 1", counters.NBlocks)
	}
	if sink.Len() != 0 {
		t.Errorf("expected no output, got %q", sink.String())
	}
}

func TestRunSingleRead(t *testing.T) {
	rec := bamtest.Record{Name: "r1", Seq: "ACGT", Qual: []byte{30, 30, 30, 30}}

	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(rec)))
	stream.Write(bamtest.EncodeBlock(t, nil))

	var sink bytes.Buffer
	counters, err := NewExtractor(&stream).Run(&sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.NSequences != 1 {
		t.Errorf("got n_sequences=%d, want 1", counters.NSequences)
	}
	want := "@r1\nACGT\n+\n????\n"
	if sink.String() != want {
		t.Errorf("got %q, want %q", sink.String(), want)
	}
}

func TestRunRejectsImplausibleQuality(t *testing.T) {
	bad := bamtest.Record{Name: "bad", Seq: "ACGT", Qual: []byte{10, 10, 135, 10}}
	good := bamtest.Record{Name: "good", Seq: "TTTT", Qual: []byte{20, 20, 20, 20}}

	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(bad)))
	stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(good)))
	stream.Write(bamtest.EncodeBlock(t, nil))

	var sink bytes.Buffer
	counters, err := NewExtractor(&stream).Run(&sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.NSequences != 1 {
		t.Errorf("got n_sequences=%d, want 1", counters.NSequences)
	}
	if counters.NCorruptedBlocks != 1 {
		t.Errorf("got n_corrupted=%d, want 1", counters.NCorruptedBlocks)
	}
	if !strings.Contains(sink.String(), "good") || strings.Contains(sink.String(), "bad") {
		t.Errorf("got %q, want only the good record", sink.String())
	}
}

func TestRunResyncsPastGarbage(t *testing.T) {
	first := bamtest.Record{Name: "first", Seq: "ACGT", Qual: []byte{20, 20, 20, 20}}
	second := bamtest.Record{Name: "second", Seq: "GGCC", Qual: []byte{20, 20, 20, 20}}

	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(first)))
	stream.Write(bytes.Repeat([]byte{0x00, 0x1f, 0xff}, 50)) // corruption
	stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(second)))
	stream.Write(bamtest.EncodeBlock(t, nil))

	var sink bytes.Buffer
	counters, err := NewExtractor(&stream).Run(&sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.NSequences != 2 {
		t.Errorf("got n_sequences=%d, want 2", counters.NSequences)
	}
	if counters.NCorruptedBlocks < 1 {
		t.Errorf("got n_corrupted=%d, want >= 1", counters.NCorruptedBlocks)
	}
	if !strings.Contains(sink.String(), "first") || !strings.Contains(sink.String(), "second") {
		t.Errorf("got %q, want both records", sink.String())
	}
}

func TestRunNoQualWithLimit(t *testing.T) {
	names := []string{"r1", "r2", "r3", "r4"}
	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	for _, n := range names {
		rec := bamtest.Record{Name: n, Seq: "ACGT", Qual: []byte{20, 20, 20, 20}}
		stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(rec)))
	}
	stream.Write(bamtest.EncodeBlock(t, nil))

	var sink bytes.Buffer
	counters, err := NewExtractor(&stream).Run(&sink, Options{NoQual: true, Limit: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.NSequences != 3 {
		t.Errorf("got n_sequences=%d, want 3", counters.NSequences)
	}
	if n := strings.Count(sink.String(), ">"); n != 3 {
		t.Errorf("got %d FASTA entries, want 3", n)
	}
	for _, line := range strings.Split(strings.TrimRight(sink.String(), "\n"), "\n") {
		if strings.HasPrefix(line, ">") {
			continue
		}
		if line != "ACGT" {
			t.Errorf("unexpected sequence line %q", line)
		}
	}
}

func TestRunRejectsBadMagic(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(bamtest.EncodeBlock(t, []byte("not a bam header at all")))

	_, err := NewExtractor(&stream).Run(&bytes.Buffer{}, Options{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	bamErr, ok := err.(*Error)
	if !ok || bamErr.Kind != IncorrectMagicNumber {
		t.Errorf("got %v, want IncorrectMagicNumber", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	rec := bamtest.Record{Name: "r1", Seq: "ACGT", Qual: []byte{30, 30, 30, 30}}
	build := func() []byte {
		var stream bytes.Buffer
		stream.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
		stream.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(rec)))
		stream.Write(bamtest.EncodeBlock(t, nil))
		return stream.Bytes()
	}

	var out1, out2 bytes.Buffer
	if _, err := NewExtractor(bytes.NewReader(build())).Run(&out1, Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := NewExtractor(bytes.NewReader(build())).Run(&out2, Options{}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out1.String() != out2.String() {
		t.Errorf("runs diverged: %q vs %q", out1.String(), out2.String())
	}
}
