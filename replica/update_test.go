// Copyright (c) 2026 by Marko Gaćeša.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package replica

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestUpdateRoundTrip(t *testing.T) {
	const count = 8

	tests := []Update{
		{Index: 0, Position: Position{X: 0, Y: 0}},
		{Index: 1, Position: Position{X: 5, Y: 5}},
		{Index: 7, Position: Position{X: -123.456, Y: 1e-30}},
		{Index: 3, Position: Position{X: math.MaxFloat32, Y: -math.SmallestNonzeroFloat32}},
		{Index: 2, Position: Position{X: float32(math.Inf(1)), Y: float32(math.Inf(-1))}},
		{Index: 4, Position: Position{X: float32(math.Copysign(0, -1)), Y: 0.1}},
	}

	for _, u := range tests {
		buf := Encode(u)
		if len(buf) != SizeOfUpdate {
			t.Errorf("size: want=%d got=%d", SizeOfUpdate, len(buf))
		}

		clone, err := Decode(buf, count)
		if err != nil {
			t.Errorf("failed to decode %s: %s", u, err.Error())
			continue
		}

		if clone.Index != u.Index ||
			math.Float32bits(clone.Position.X) != math.Float32bits(u.Position.X) ||
			math.Float32bits(clone.Position.Y) != math.Float32bits(u.Position.Y) {
			t.Errorf("not equal: orig=%s clone=%s", u, clone)
		}
	}
}

func TestUpdateRoundTripNaN(t *testing.T) {
	nan := math.Float32frombits(0x7fc00001)
	u := Update{Index: 1, Position: Position{X: nan, Y: 2}}

	clone, err := Decode(Encode(u), 2)
	if err != nil {
		t.Fatalf("failed to decode: %s", err.Error())
	}

	if math.Float32bits(clone.Position.X) != 0x7fc00001 {
		t.Errorf("NaN payload not preserved: %x", math.Float32bits(clone.Position.X))
	}
}

func TestUpdateWireLayout(t *testing.T) {
	u := Update{Index: 0x01020304, Position: Position{X: 1, Y: -2}}

	want := []byte{
		0x01, 0x02, 0x03, 0x04, // index
		0x3f, 0x80, 0x00, 0x00, // 1.0
		0xc0, 0x00, 0x00, 0x00, // -2.0
	}

	if got := Encode(u); !bytes.Equal(want, got) {
		t.Errorf("want=% x got=% x", want, got)
	}
}

func TestDecodeErrors(t *testing.T) {
	const count = 4

	valid := Encode(Update{Index: 3, Position: Position{X: 1, Y: 1}})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrTruncated},
		{name: "one-byte", data: []byte{0}, wantErr: ErrTruncated},
		{name: "eleven-bytes", data: valid[:SizeOfUpdate-1], wantErr: ErrTruncated},
		{name: "index-equal-count", data: Encode(Update{Index: count}), wantErr: ErrInvalidIndex},
		{name: "index-max", data: Encode(Update{Index: math.MaxUint32}), wantErr: ErrInvalidIndex},
		{name: "valid", data: valid, wantErr: nil},
		{name: "trailing-bytes", data: append(append([]byte(nil), valid...), 0xff, 0xff), wantErr: nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.data, count)
			if test.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %s", err.Error())
				}
				return
			}

			if !errors.Is(err, test.wantErr) {
				t.Errorf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}

func TestDecodeZeroCount(t *testing.T) {
	_, err := Decode(Encode(Update{Index: 0}), 0)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected invalid index with no entities, got %v", err)
	}
}
