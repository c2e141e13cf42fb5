// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/thejerf/suture/v4"
)

// Stream reads lines from a reader such as os.Stdin.
//
// A blocking read cannot be interrupted, so the reader is drained by a
// single goroutine that outlives restarts of Serve.
type Stream struct {
	base
	r     io.Reader
	lines chan string
	err   error
	start sync.Once
}

// NewStream reads lines from r. name labels metrics and the logger field of
// every entry.
func NewStream(name string, r io.Reader, sink Sink, level string) *Stream {
	s := &Stream{r: r, lines: make(chan string, 64)}
	s.init(name, sink, level)
	return s
}

func (s *Stream) pump() {
	defer close(s.lines)
	br := bufio.NewReader(s.r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			s.lines <- line
		}
		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			return
		}
	}
}

// Serve implements suture.Service.
func (s *Stream) Serve(ctx context.Context) error {
	s.start.Do(func() { go s.pump() })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-s.lines:
			if !ok {
				s.finish()
				if s.err != nil {
					return fmt.Errorf("%s: %w: %w", s, s.err, suture.ErrDoNotRestart)
				}
				return suture.ErrDoNotRestart
			}
			s.emit(line)
		}
	}
}
