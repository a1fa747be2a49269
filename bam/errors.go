// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bam

import "fmt"

// Kind identifies a failure owned by the record extractor itself, as
// opposed to failures surfaced by the underlying bgzf.BlockReader (see
// bgzf.Kind) or by the CLI's file-open handling (an external collaborator,
// see cmd/bamsalvage).
type Kind int

const (
	// IncorrectMagicNumber indicates the first inflated block did not
	// start with the BAM\1 magic tag. Together with a failure to read that
	// first block (returned as the bgzf.Error), it is the only core-level
	// failure that aborts a run rather than being absorbed and
	// resynchronized past.
	IncorrectMagicNumber Kind = iota
)

func (k Kind) String() string {
	switch k {
	case IncorrectMagicNumber:
		return "incorrect magic number"
	default:
		return "unknown"
	}
}

// Error is returned by Run when the run must abort rather than resync.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("bam: %v", e.Kind)
}
