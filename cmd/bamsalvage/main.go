// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command bamsalvage streams through a possibly corrupted BAM file and
// emits as many valid reads as it can recover, in FASTA or FASTQ form.
package main

import (
	"context"

	"cloudeng.io/cmdutil/subcmd"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
)

type runFlags struct {
	Input   string `subcmd:"input,,'input BAM file; local path, s3:// URI, or http(s) URL'"`
	Output  string `subcmd:"output,,'output file, omit for stdout'"`
	Limit   uint64 `subcmd:"limit,0,'maximum number of sequences to emit, 0 for unlimited'"`
	NoQual  bool   `subcmd:"noqual,false,emit FASTA instead of FASTQ"`
	Verbose bool   `subcmd:"verbose,false,'print a progress line to stderr every 1000 sequences; per-incident diagnostics are not printed'"`
}

type inspectFlags struct{}

var cmdSet *subcmd.CommandSet

func init() {
	runCmd := subcmd.NewCommand("run",
		subcmd.MustRegisterFlagStruct(&runFlags{}, nil, nil),
		runSalvage, subcmd.ExactlyNumArguments(0))
	runCmd.Document(`salvage reads from a (possibly corrupted) BAM file, emitting FASTA or FASTQ.`)

	inspectCmd := subcmd.NewCommand("inspect",
		subcmd.MustRegisterFlagStruct(&inspectFlags{}, nil, nil),
		runInspect, subcmd.AtLeastNArguments(1))
	inspectCmd.Document(`print per-block BGZF diagnostics for one or more files, without parsing BAM records.`)

	cmdSet = subcmd.NewCommandSet(runCmd, inspectCmd)
	cmdSet.Document(`salvage reads from a corrupted BAM file, or inspect its BGZF block structure.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	cmdSet.MustDispatch(context.Background())
}
