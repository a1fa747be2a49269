// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.
package main_test

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/takaho/bamsalvage/internal/bamtest"
)

func bamsalvageCmd(args ...string) (string, error) {
	cmd := exec.Command("go", "run", ".")
	cmd.Args = append(cmd.Args, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func writeBAM(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(bamtest.EncodeBlock(t, bamtest.Header("")))
	for _, rec := range []bamtest.Record{
		{Name: "r1", Seq: "ACGT", Qual: []byte{30, 30, 30, 30}},
		{Name: "r2", Seq: "TTTT", Qual: []byte{20, 20, 20, 20}},
	} {
		buf.Write(bamtest.EncodeBlock(t, bamtest.EncodeRecord(rec)))
	}
	buf.Write(bamtest.EncodeBlock(t, nil))
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestRunCmd(t *testing.T) {
	tmpdir := t.TempDir()
	input := filepath.Join(tmpdir, "reads.bam")
	output := filepath.Join(tmpdir, "reads.fastq")
	writeBAM(t, input)

	out, err := bamsalvageCmd("run", "--input="+input, "--output="+output)
	if err != nil {
		t.Fatalf("run: %v: %v", out, err)
	}
	if !strings.Contains(out, "n_sequences=2") {
		t.Errorf("completion report missing n_sequences=2: %q", out)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "@r1\nACGT\n+\n????\n@r2\nTTTT\n+\n5555\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunCmdRejectsMissingInput(t *testing.T) {
	out, err := bamsalvageCmd("run")
	if err == nil || !strings.Contains(out, "--input is required") {
		t.Fatalf("missing or wrong error message: %v: %v", out, err)
	}
}

func TestInspectCmd(t *testing.T) {
	tmpdir := t.TempDir()
	input := filepath.Join(tmpdir, "reads.bam")
	writeBAM(t, input)

	out, err := bamsalvageCmd("inspect", input)
	if err != nil {
		t.Fatalf("inspect: %v: %v", out, err)
	}
	if n := strings.Count(out, "block="); n < 2 {
		t.Errorf("got %d block lines, want at least 2: %q", n, out)
	}
}
