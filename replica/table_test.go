// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package replica

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
)

func TestTableApply(t *testing.T) {
	table := NewTable(3)

	if err := table.Apply(Update{Index: 1, Position: Position{X: 5, Y: 5}}); err != nil {
		t.Fatalf("failed to apply: %s", err.Error())
	}

	want := []Position{{}, {X: 5, Y: 5}, {}}
	if got := table.Snapshot(); !reflect.DeepEqual(want, got) {
		t.Errorf("want=%v got=%v", want, got)
	}
}

func TestTableApplyIdempotent(t *testing.T) {
	u := Update{Index: 2, Position: Position{X: -1.5, Y: 7}}

	once := NewTable(4)
	_ = once.Apply(u)

	twice := NewTable(4)
	_ = twice.Apply(u)
	_ = twice.Apply(u)

	if !reflect.DeepEqual(once.Snapshot(), twice.Snapshot()) {
		t.Errorf("once=%v twice=%v", once.Snapshot(), twice.Snapshot())
	}
}

func TestTableApplyOutOfRange(t *testing.T) {
	initial := []Position{{X: 1, Y: 2}, {X: 3, Y: 4}}
	table := NewTableFrom(initial)

	for _, index := range []uint32{2, 3, 1000, math.MaxUint32} {
		err := table.Apply(Update{Index: index, Position: Position{X: 9, Y: 9}})
		if !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("index %d: expected invalid index, got %v", index, err)
		}
	}

	if got := table.Snapshot(); !reflect.DeepEqual(initial, got) {
		t.Errorf("table mutated: want=%v got=%v", initial, got)
	}
}

func TestTableTruncatedPayloadLeavesStateAlone(t *testing.T) {
	table := NewTable(2)
	before := table.Snapshot()

	payload := Encode(Update{Index: 1, Position: Position{X: 4, Y: 4}})
	for l := 0; l < SizeOfUpdate; l++ {
		u, err := Decode(payload[:l], table.Count())
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("len %d: expected truncated, got %v", l, err)
		}
		if err == nil {
			_ = table.Apply(u)
		}
	}

	if got := table.Snapshot(); !reflect.DeepEqual(before, got) {
		t.Errorf("table mutated: want=%v got=%v", before, got)
	}
}

func TestTableLossTolerance(t *testing.T) {
	table := NewTable(1)

	first := Encode(Update{Index: 0, Position: Position{X: 1, Y: 1}})
	second := Encode(Update{Index: 0, Position: Position{X: 2, Y: 2}})
	_ = first // dropped on the way

	u, err := Decode(second, table.Count())
	if err != nil {
		t.Fatalf("failed to decode: %s", err.Error())
	}
	_ = table.Apply(u)

	pos, _ := table.Position(0)
	if want := (Position{X: 2, Y: 2}); pos != want {
		t.Errorf("want=%v got=%v", want, pos)
	}
}

func TestTablePositionAndSet(t *testing.T) {
	table := NewTable(2)

	if err := table.Set(1, Position{X: 3, Y: 4}); err != nil {
		t.Fatalf("failed to set: %s", err.Error())
	}

	pos, err := table.Position(1)
	if err != nil {
		t.Fatalf("failed to get position: %s", err.Error())
	}
	if want := (Position{X: 3, Y: 4}); pos != want {
		t.Errorf("want=%v got=%v", want, pos)
	}

	for _, index := range []int{-1, 2} {
		if _, err := table.Position(index); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("position %d: expected invalid index, got %v", index, err)
		}
		if err := table.Set(index, Position{}); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("set %d: expected invalid index, got %v", index, err)
		}
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	const count = 4
	table := NewTable(count)

	wg := sync.WaitGroup{}
	for i := range count {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 1000 {
				_ = table.Apply(Update{Index: uint32(i), Position: Position{X: float32(j), Y: float32(j)}})
			}
		}()
		go func() {
			defer wg.Done()
			for range 1000 {
				_, _ = table.Position(i)
				_ = table.Snapshot()
			}
		}()
	}
	wg.Wait()

	for i := range count {
		pos, _ := table.Position(i)
		if want := (Position{X: 999, Y: 999}); pos != want {
			t.Errorf("entity %d: want=%v got=%v", i, want, pos)
		}
	}
}
