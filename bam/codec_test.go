// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bam

import "testing"

func TestDecodeSeq(t *testing.T) {
	cases := []struct {
		name   string
		packed []byte
		lSeq   int
		want   string
	}{
		{"even length", []byte{0x12, 0x48}, 4, "ACGT"},
		{"odd length, trailing nibble discarded", []byte{0x12, 0x48, 0xf0}, 5, "ACGTN"},
		{"all N", []byte{0xff, 0xf0}, 3, "NNN"},
		{"empty", nil, 0, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := decodeSeq(c.packed, c.lSeq)
			if string(got) != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestDecodeQual(t *testing.T) {
	out, ok := decodeQual([]byte{30, 30, 30, 30}, 4)
	if !ok {
		t.Fatalf("expected ok")
	}
	if string(out) != "????" {
		t.Errorf("got %q, want %q", out, "????")
	}
}

func TestDecodeQualRejectsImplausibleScore(t *testing.T) {
	_, ok := decodeQual([]byte{10, 10, 135, 10}, 4)
	if ok {
		t.Fatalf("expected rejection at q=135")
	}
}

func TestDecodeQualAcceptsMaxPlausibleScore(t *testing.T) {
	_, ok := decodeQual([]byte{134}, 1)
	if !ok {
		t.Fatalf("expected q=134 to be accepted")
	}
}
