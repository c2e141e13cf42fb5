// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/logship/internal/logging"
)

// FileOptions configures a File source.
type FileOptions struct {
	// Level is attached to every line. Default: info
	Level string

	// Follow keeps reading as the file grows, like tail -f.
	Follow bool

	// PollInterval is how often a followed file is checked for new data.
	// Default: 1s
	PollInterval time.Duration
}

// File reads lines from a file. The offset of the last complete line
// survives restarts of Serve, so a supervised restart resumes there.
type File struct {
	base
	path   string
	opts   FileOptions
	offset int64
}

// NewFile reads lines from path. The file's base name labels metrics and
// the logger field of every entry.
func NewFile(path string, sink Sink, opts FileOptions) *File {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	f := &File{path: path, opts: opts}
	f.init(filepath.Base(path), sink, opts.Level)
	return f
}

// Serve implements suture.Service.
func (f *File) Serve(ctx context.Context) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}
	defer file.Close()

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("%s: seek: %w", f, err)
	}
	br := bufio.NewReader(file)

	var ticker *time.Ticker
	if f.opts.Follow {
		ticker = time.NewTicker(f.opts.PollInterval)
		defer ticker.Stop()
	}

	// pending holds a line whose terminator has not been written yet.
	var pending string
	for {
		chunk, err := br.ReadString('\n')
		pending += chunk
		if err == nil {
			f.offset += int64(len(pending))
			f.emit(pending)
			pending = ""
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: read: %w", f, err)
		}

		if !f.opts.Follow {
			f.offset += int64(len(pending))
			f.emit(pending)
			f.finish()
			logger := logging.Direct()
			logger.Debug().Str("path", f.path).Int64("offset", f.offset).Msg("Source reached end of file")
			return suture.ErrDoNotRestart
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("%s: stat: %w", f, err)
		}
		if info.Size() < f.offset+int64(len(pending)) {
			logger := logging.Direct()
			logger.Info().Str("path", f.path).Msg("Source file truncated, reading from the start")
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("%s: seek: %w", f, err)
			}
			f.offset = 0
			pending = ""
			br.Reset(file)
		}
	}
}
