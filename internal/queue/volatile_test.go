// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package queue

import (
	"fmt"
	"slices"
	"testing"
)

func pushAll(q Queue, entries ...string) {
	for _, e := range entries {
		q.Push(e)
	}
}

func TestVolatilePushEvictsOldest(t *testing.T) {
	t.Parallel()

	q := NewVolatile(5, true)
	pushAll(q, "1", "2", "3", "4", "5", "6", "7")

	want := []string{"3", "4", "5", "6", "7"}
	if got := q.FormBatch(); !slices.Equal(got, want) {
		t.Errorf("pending = %v, want %v", got, want)
	}
	if q.Evicted() != 2 {
		t.Errorf("Evicted() = %d, want 2", q.Evicted())
	}
}

func TestVolatilePushWithoutEviction(t *testing.T) {
	t.Parallel()

	q := NewVolatile(2, false)
	pushAll(q, "a", "b", "c")

	if q.Size() != 3 {
		t.Errorf("Size() = %d, want 3", q.Size())
	}
	if q.Evicted() != 0 {
		t.Errorf("Evicted() = %d, want 0", q.Evicted())
	}
}

func TestVolatileFormBatchIdempotent(t *testing.T) {
	t.Parallel()

	q := NewVolatile(10, true)
	pushAll(q, "a", "b")

	first := q.FormBatch()
	q.Push("c")
	second := q.FormBatch()

	if !slices.Equal(first, second) {
		t.Errorf("second FormBatch = %v, want %v", second, first)
	}
	if q.InFlightSize() != 2 || q.Size() != 1 {
		t.Errorf("inflight=%d pending=%d, want 2 and 1", q.InFlightSize(), q.Size())
	}

	q.Confirm()
	if got := q.FormBatch(); !slices.Equal(got, []string{"c"}) {
		t.Errorf("batch after confirm = %v, want [c]", got)
	}
}

func TestVolatileFormBatchEmpty(t *testing.T) {
	t.Parallel()

	q := NewVolatile(10, true)
	if got := q.FormBatch(); len(got) != 0 {
		t.Errorf("FormBatch on empty queue = %v", got)
	}
	if q.InFlightSize() != 0 {
		t.Error("expected nothing in flight")
	}
}

func TestVolatileFail(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		batch       []string
		pending     []string
		wantPending []string
		wantEvicted uint64
	}{
		{
			name:        "fits",
			capacity:    10,
			batch:       []string{"a", "b"},
			pending:     []string{"c"},
			wantPending: []string{"a", "b", "c"},
		},
		{
			name:        "drops from failed batch first",
			capacity:    4,
			batch:       []string{"a", "b", "c"},
			pending:     []string{"d", "e"},
			wantPending: []string{"c", "d", "e"},
			wantEvicted: 2,
		},
		{
			name:        "continues into pending",
			capacity:    2,
			batch:       []string{"a"},
			pending:     []string{"b", "c", "d"},
			wantPending: []string{"d"},
			wantEvicted: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := NewVolatile(tt.capacity, false)
			pushAll(q, tt.batch...)
			q.FormBatch()
			pushAll(q, tt.pending...)

			q.Fail()

			if q.InFlightSize() != 0 {
				t.Errorf("InFlightSize() = %d, want 0", q.InFlightSize())
			}
			if got := q.FormBatch(); !slices.Equal(got, tt.wantPending) {
				t.Errorf("pending = %v, want %v", got, tt.wantPending)
			}
			if q.Evicted() != tt.wantEvicted {
				t.Errorf("Evicted() = %d, want %d", q.Evicted(), tt.wantEvicted)
			}
		})
	}
}

func TestVolatileBoundedUnderRepeatedFailure(t *testing.T) {
	t.Parallel()

	const capacity = 5
	q := NewVolatile(capacity, false)
	for i := 0; i < 50; i++ {
		q.Push(fmt.Sprint(i))
		q.FormBatch()
		q.Push(fmt.Sprint(i) + "b")
		q.Fail()
		if total := q.Size() + q.InFlightSize(); total > capacity {
			t.Fatalf("iteration %d: %d entries held, capacity %d", i, total, capacity)
		}
	}
}

func TestVolatileDrainAll(t *testing.T) {
	t.Parallel()

	q := NewVolatile(10, true)
	pushAll(q, "a", "b")
	q.FormBatch()
	pushAll(q, "c")

	got := q.DrainAll()
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("DrainAll() = %v, want [a b c]", got)
	}
	if q.Size() != 0 || q.InFlightSize() != 0 {
		t.Error("expected queue to be empty after DrainAll")
	}
}
