// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package replica

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Position is the location of an entity in view coordinates.
type Position struct {
	X float32
	Y float32
}

func (p Position) Add(dx, dy float32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Update carries the absolute position of one entity. Applying it is last-writer-wins
// and idempotent, so duplicated or lost datagrams never make peers drift apart.
//
// Wire layout, network byte order:
//
//	[0:4]  index uint32
//	[4:8]  x     float32 (IEEE-754 bits)
//	[8:12] y     float32 (IEEE-754 bits)
type Update struct {
	Index    uint32
	Position Position
}

const SizeOfUpdate = 4 + 4 + 4

// Put writes the record to buf, which must be at least SizeOfUpdate long.
func (u *Update) Put(buf []byte) int {
	binary.BigEndian.PutUint32(buf[0:4], u.Index)
	binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(u.Position.X))
	binary.BigEndian.PutUint32(buf[8:12], math.Float32bits(u.Position.Y))
	return SizeOfUpdate
}

// Get reads the record from buf, which must be at least SizeOfUpdate long.
func (u *Update) Get(buf []byte) int {
	u.Index = binary.BigEndian.Uint32(buf[0:4])
	u.Position.X = math.Float32frombits(binary.BigEndian.Uint32(buf[4:8]))
	u.Position.Y = math.Float32frombits(binary.BigEndian.Uint32(buf[8:12]))
	return SizeOfUpdate
}

func (u Update) String() string {
	return fmt.Sprintf("#%d(%g,%g)", u.Index, u.Position.X, u.Position.Y)
}

// Encode returns the wire record of the update.
func Encode(u Update) []byte {
	buf := make([]byte, SizeOfUpdate)
	u.Put(buf)
	return buf
}

// Decode parses a wire record and validates its index against the entity count.
// Bytes following the record are ignored.
func Decode(buf []byte, count int) (Update, error) {
	if len(buf) < SizeOfUpdate {
		return Update{}, fmt.Errorf("%w: got %d bytes, need %d", ErrTruncated, len(buf), SizeOfUpdate)
	}

	var u Update
	u.Get(buf)

	if !validIndex(u.Index, count) {
		return Update{}, fmt.Errorf("%w: %d, entity count is %d", ErrInvalidIndex, u.Index, count)
	}

	return u, nil
}

func validIndex(index uint32, count int) bool {
	return uint64(index) < uint64(max(count, 0))
}
