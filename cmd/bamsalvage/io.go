// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/grailbio/base/file"
)

// openFileOrURL opens name for reading, returning its size if known (0
// otherwise), and a cleanup function that must be called once reading is
// complete. name may be a local path, an http(s) URL, or an s3:// URI (the
// latter via the s3 file.Implementation registered in main's init).
func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		size := resp.ContentLength
		if size < 0 {
			size = 0
		}
		return resp.Body, size, func(context.Context) error {
			return resp.Body.Close()
		}, nil
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return f.Reader(ctx), info.Size(), f.Close, nil
}

// createFile opens name for writing, or returns os.Stdout when name is
// empty. name may be a local path or an s3:// URI.
func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}
