// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package replica

import (
	"fmt"
	"sync"
)

var _ = interface {
	Count() int
	Position(index int) (Position, error)
	Set(index int, pos Position) error
	Apply(u Update) error
	Snapshot() []Position
}((*Table)(nil))

// Table holds the positions of a fixed number of entities. One lock guards the whole table.
type Table struct {
	mx        sync.RWMutex
	positions []Position
}

// NewTable creates count entities, all at the origin.
func NewTable(count int) *Table {
	return &Table{
		positions: make([]Position, max(count, 0)),
	}
}

// NewTableFrom creates one entity per element of positions.
func NewTableFrom(positions []Position) *Table {
	return &Table{
		positions: append([]Position(nil), positions...),
	}
}

func (t *Table) Count() int {
	return len(t.positions)
}

func (t *Table) Position(index int) (Position, error) {
	if index < 0 || index >= len(t.positions) {
		return Position{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	t.mx.RLock()
	defer t.mx.RUnlock()

	return t.positions[index], nil
}

func (t *Table) Set(index int, pos Position) error {
	if index < 0 || index >= len(t.positions) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}

	t.mx.Lock()
	t.positions[index] = pos
	t.mx.Unlock()

	return nil
}

// Apply writes the update to its entity. An out of range index leaves the table untouched.
func (t *Table) Apply(u Update) error {
	if !validIndex(u.Index, len(t.positions)) {
		return fmt.Errorf("%w: %d, entity count is %d", ErrInvalidIndex, u.Index, len(t.positions))
	}

	t.mx.Lock()
	t.positions[u.Index] = u.Position
	t.mx.Unlock()

	return nil
}

// Snapshot returns a copy of all positions, indexed by entity.
func (t *Table) Snapshot() []Position {
	t.mx.RLock()
	defer t.mx.RUnlock()

	return append([]Position(nil), t.positions...)
}
