// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type received struct {
	text, level, logger string
}

// recordingSink collects every line it receives.
type recordingSink struct {
	mu    sync.Mutex
	lines []received
}

func (s *recordingSink) Receive(text, level, logger string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, received{text, level, logger})
}

func (s *recordingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.text
	}
	return out
}

func (s *recordingSink) waitFor(t *testing.T, want ...string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !slices.Equal(s.texts(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("lines = %q, want %q", s.texts(), want)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func writeFile(t *testing.T, path, content string, flag int) {
	t.Helper()
	f, err := os.OpenFile(path, flag|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func serveInBackground(ctx context.Context, svc suture.Service) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return errCh
}

func TestStreamReadsLines(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	s := NewStream("stdin", strings.NewReader("first\n\n  \nsecond\r\nlast"), sink, "warn")

	err := s.Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("Serve() error = %v, want ErrDoNotRestart", err)
	}
	if got := sink.texts(); !slices.Equal(got, []string{"first", "second", "last"}) {
		t.Errorf("lines = %q", got)
	}
	if sink.lines[0].level != "warn" || sink.lines[0].logger != "stdin" {
		t.Errorf("line = %+v, want level warn and logger stdin", sink.lines[0])
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after EOF")
	}
	if s.String() != "source:stdin" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	defer pw.Close()
	sink := &recordingSink{}
	s := NewStream("stdin", pr, sink, "")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveInBackground(ctx, s)

	if _, err := pw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	sink.waitFor(t, "hello")
	if sink.lines[0].level != "info" {
		t.Errorf("default level = %q, want info", sink.lines[0].level)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	select {
	case <-s.Done():
		t.Error("Done() closed before EOF")
	default:
	}
}

func TestFileReadsToEOF(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "one\ntwo\nthree", os.O_TRUNC)
	sink := &recordingSink{}
	f := NewFile(path, sink, FileOptions{Level: "error"})

	if err := f.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("Serve() error = %v, want ErrDoNotRestart", err)
	}
	if got := sink.texts(); !slices.Equal(got, []string{"one", "two", "three"}) {
		t.Errorf("lines = %q", got)
	}
	if sink.lines[0].logger != "app.log" || sink.lines[0].level != "error" {
		t.Errorf("line = %+v", sink.lines[0])
	}
	<-f.Done()
}

func TestFileMissing(t *testing.T) {
	t.Parallel()

	f := NewFile(filepath.Join(t.TempDir(), "missing.log"), &recordingSink{}, FileOptions{})
	if err := f.Serve(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Serve() error = %v, want ErrNotExist", err)
	}
}

func TestFileFollowWaitsForCompleteLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "start\n", os.O_TRUNC)
	sink := &recordingSink{}
	f := NewFile(path, sink, FileOptions{Follow: true, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveInBackground(ctx, f)
	sink.waitFor(t, "start")

	writeFile(t, path, "par", os.O_APPEND)
	time.Sleep(20 * time.Millisecond)
	if got := sink.texts(); len(got) != 1 {
		t.Fatalf("partial line emitted early: %q", got)
	}
	writeFile(t, path, "tial\nnext\n", os.O_APPEND)
	sink.waitFor(t, "start", "partial", "next")

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestFileRestartResumesAtOffset(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "a\nb\n", os.O_TRUNC)
	sink := &recordingSink{}
	f := NewFile(path, sink, FileOptions{Follow: true, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveInBackground(ctx, f)
	sink.waitFor(t, "a", "b")
	cancel()
	<-errCh

	writeFile(t, path, "c\n", os.O_APPEND)
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	serveInBackground(ctx, f)
	sink.waitFor(t, "a", "b", "c")
}

func TestFileFollowHandlesTruncation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	writeFile(t, path, "old line one\nold line two\n", os.O_TRUNC)
	sink := &recordingSink{}
	f := NewFile(path, sink, FileOptions{Follow: true, PollInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveInBackground(ctx, f)
	sink.waitFor(t, "old line one", "old line two")

	writeFile(t, path, "new\n", os.O_TRUNC)
	sink.waitFor(t, "old line one", "old line two", "new")
}
