// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"empty", nil, ""},
		{"single string untouched", []any{"100%s done"}, "100%s done"},
		{"string verb", []any{"hello %s", "world"}, "hello world"},
		{"number verb", []any{"n=%d", "42"}, "n=42"},
		{"number verb float", []any{"n=%d", 1.5}, "n=1.5"},
		{"number verb not a number", []any{"n=%d", "abc"}, "n=NaN"},
		{"number verb bool", []any{"%d", true}, "1"},
		{"json verb", []any{"p=%j", point{1, 2}}, `p={"x":1,"y":2}`},
		{"object verb struct", []any{"%o", &point{1, 2}}, `point{"x":1,"y":2}`},
		{"object verb scalar", []any{"%o", 5}, "int<5>"},
		{"object verb map", []any{"%o", map[string]int{"a": 1}}, `Object{"a":1}`},
		{"escaped percent", []any{"100%% of %s", "runs"}, "100% of runs"},
		{"unknown verb kept", []any{"%x %s", "a"}, "%x a"},
		{"missing argument kept", []any{"%s and %s", "a"}, "a and %s"},
		{"remaining args joined", []any{"a %s", "b", "c", 4}, "a b c 4"},
		{"non-template first arg", []any{1, "two", nil}, "1 two null"},
		{"error argument", []any{"failed:", errors.New("boom")}, "failed: boom"},
		{"unencodable json falls back", []any{"%j", make(chan int)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Message(tt.args...)
			if tt.name == "unencodable json falls back" {
				if got == "" {
					t.Error("expected a fallback rendering")
				}
				return
			}
			if got != tt.want {
				t.Errorf("Message(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func fixedTime() string { return "2026-01-02T03:04:05.000Z" }

func TestFormatJSON(t *testing.T) {
	t.Parallel()

	f := New(Options{JSON: true, Timestamp: fixedTime})
	entry := f.Format("info", "db", "connected to %s", "primary")

	var rec Record
	if err := json.Unmarshal([]byte(entry), &rec); err != nil {
		t.Fatalf("entry is not JSON: %v (%s)", err, entry)
	}
	want := Record{Message: "connected to primary", Level: "info", Logger: "db", Timestamp: fixedTime()}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
	if !strings.Contains(entry, `"stacktrace":""`) {
		t.Errorf("expected empty stacktrace field: %s", entry)
	}
}

func TestFormatPlain(t *testing.T) {
	t.Parallel()

	f := New(Options{TraceLevels: []string{}})
	if got := f.Format("error", "", "plain", "text"); got != "plain text" {
		t.Errorf("Format() = %q, want %q", got, "plain text")
	}
}

func TestFormatStacktrace(t *testing.T) {
	t.Parallel()

	f := New(Options{Timestamp: fixedTime})

	got := f.Format("warn", "", "careful")
	lines := strings.Split(got, "\n")
	if lines[0] != "careful" {
		t.Fatalf("first line = %q, want message", lines[0])
	}
	if len(lines) < 2 || !strings.Contains(lines[1], "TestFormatStacktrace") {
		t.Errorf("expected trace to start at the caller, got:\n%s", got)
	}

	if got := f.Format("info", "", "quiet"); got != "quiet" {
		t.Errorf("info level should not capture a trace: %q", got)
	}
}

func TestFormatDepthSkipsFrames(t *testing.T) {
	t.Parallel()

	f := New(Options{Depth: 1})
	wrapper := func() string { return f.Format("trace", "", "deep") }

	got := wrapper()
	lines := strings.Split(got, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected a stack trace, got %q", got)
	}
	if !strings.Contains(lines[1], "TestFormatDepthSkipsFrames") || strings.Contains(lines[1], "func1") {
		t.Errorf("expected wrapper frame to be skipped, got %q", lines[1])
	}
}

func TestDefaultTimestamp(t *testing.T) {
	t.Parallel()

	f := New(Options{JSON: true, TraceLevels: []string{}})
	var rec Record
	if err := json.Unmarshal([]byte(f.FormatText("info", "app", "x")), &rec); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(rec.Timestamp, "Z") || len(rec.Timestamp) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("unexpected timestamp %q", rec.Timestamp)
	}
}
