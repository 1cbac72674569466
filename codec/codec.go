// Copyright 2024 The DBSP-Go Authors
// This file is part of dbsp-go.
//
// dbsp-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// dbsp-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with dbsp-go. If not, see <http://www.gnu.org/licenses/>.

// Package codec gives operator checkpoint state (and any other value
// crossing a storage or wire boundary) a uniform serialize/deserialize
// contract, with a compressed variant for cold/infrequently-read state.
package codec

import (
	"bytes"
	"encoding/gob"
)

// Codec serializes and deserializes values of type T.
type Codec[T any] interface {
	Serialize(v T) ([]byte, error)
	Deserialize(data []byte) (T, error)
	// EstimateSize returns a cheap upper-bound byte estimate for v,
	// without necessarily serializing it, for use in flush/threshold
	// accounting (overlay.ShouldFlush and friends).
	EstimateSize(v T) int
}

// GobCodec is the default codec: encoding/gob, the teacher's convention
// for internal-only serialization where schema evolution is not a
// concern.
type GobCodec[T any] struct{}

func NewGobCodec[T any]() GobCodec[T] { return GobCodec[T]{} }

func (GobCodec[T]) Serialize(v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) Deserialize(data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// EstimateSize encodes the value to measure it. Callers on a hot path
// should prefer a cheaper domain-specific estimate where one is available.
func (c GobCodec[T]) EstimateSize(v T) int {
	data, err := c.Serialize(v)
	if err != nil {
		return 0
	}
	return len(data)
}
