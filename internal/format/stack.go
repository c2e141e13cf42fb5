// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package format

import (
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 32

// stacktrace renders the goroutine stack starting at the caller of
// Formatter.Format, skipping depth further frames.
func stacktrace(depth int) string {
	pcs := make([]uintptr, maxFrames)
	// runtime.Callers, stacktrace, Formatter.Format
	n := runtime.Callers(3+depth, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var lines []string
	for {
		frame, more := frames.Next()
		lines = append(lines, fmt.Sprintf("    at %s (%s:%d)", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}
