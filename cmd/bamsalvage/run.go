// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/takaho/bamsalvage/bam"
	"golang.org/x/crypto/ssh/terminal"
)

// progressWriter converts the extractor's carriage-return-terminated
// status lines into newline-terminated ones when stderr isn't a terminal,
// so redirecting progress to a log file doesn't produce one giant line.
type progressWriter struct {
	w   io.Writer
	tty bool
}

func (p progressWriter) Write(b []byte) (int, error) {
	if p.tty {
		return p.w.Write(b)
	}
	return p.w.Write(bytes.ReplaceAll(b, []byte("\r"), []byte("\n")))
}

func runSalvage(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*runFlags)

	if len(cl.Input) == 0 {
		return fmt.Errorf("bamsalvage: --input is required")
	}

	rd, size, readerCleanup, err := openFileOrURL(ctx, cl.Input)
	if err != nil {
		return err
	}
	cmdutil.HandleSignals(func() {
		readerCleanup(ctx)
		cancel()
	}, os.Interrupt)

	wr, writerCleanup, err := createFile(ctx, cl.Output)
	if err != nil {
		readerCleanup(ctx)
		return err
	}

	opts := bam.Options{
		Limit:    cl.Limit,
		NoQual:   cl.NoQual,
		Verbose:  cl.Verbose,
		FileSize: size,
	}
	if cl.Verbose {
		isTTY := terminal.IsTerminal(int(os.Stderr.Fd()))
		opts.ProgressWriter = progressWriter{w: os.Stderr, tty: isTTY}
	}

	counters, runErr := bam.NewExtractor(rd).Run(wr, opts)

	errs := &errors.M{}
	errs.Append(runErr)
	errs.Append(writerCleanup(ctx))
	errs.Append(readerCleanup(ctx))

	fmt.Fprintf(os.Stderr, "n_sequences=%d\nn_blocks=%d\nn_corrupted=%d\n",
		counters.NSequences, counters.NBlocks, counters.NCorruptedBlocks)

	return errs.Err()
}
