// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/takaho/bamsalvage/bgzf"
)

func inspectFile(ctx context.Context, name string) error {
	rd, _, readerCleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	br := bgzf.NewBlockReader(rd)
	block := 0
	for {
		offset := br.Offset()
		payload, err := br.ReadNext()
		if err != nil {
			if bgzfErr, ok := err.(*bgzf.Error); ok && bgzfErr.Kind == bgzf.BufferTerminated {
				break
			}
			return fmt.Errorf("%s: block %d at offset %d: %w", name, block, offset, err)
		}
		fmt.Printf("%s\tblock=%d\toffset=%d\tsize=%d\tcrc32=%08x\n",
			name, block, offset, len(payload), crc32.ChecksumIEEE(payload))
		block++
	}
	return nil
}

func runInspect(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	defer cancel()

	errs := &errors.M{}
	for _, arg := range args {
		errs.Append(inspectFile(ctx, arg))
	}
	return errs.Err()
}
