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

// Package overlay factors out the "mutable overlay + immutable spine"
// pattern shared by the Adaptive Z-set (zset.AdaptiveZSet) and the
// hybrid storage backend (kv's Hybrid mode), per spec.md §9 "Memory
// overlays": both decide when to spill/flush the overlay into the spine
// using the same size/time threshold shape, optionally tightened while
// subscribers are observing the overlay.
package overlay

import "time"

// Thresholds bounds how large (in item count) or how long (in wall-clock
// time since the last flush) an overlay may grow before it must be
// flushed into its spine.
type Thresholds struct {
	SizeThreshold int
	TimeThreshold time.Duration
}

// Tightened returns thresholds reduced by factor (spec.md §4.3 uses 4,
// "both thresholds are reduced by 4x" while arranged subscribers exist).
func (t Thresholds) Tightened(factor int) Thresholds {
	if factor <= 1 {
		return t
	}
	return Thresholds{
		SizeThreshold: t.SizeThreshold / factor,
		TimeThreshold: t.TimeThreshold / time.Duration(factor),
	}
}

// ShouldFlush reports whether an overlay holding combinedSize items, last
// flushed at lastFlush, must flush now given th and the current time.
func ShouldFlush(combinedSize int, lastFlush, now time.Time, th Thresholds) bool {
	if th.SizeThreshold > 0 && combinedSize >= th.SizeThreshold {
		return true
	}
	if th.TimeThreshold > 0 && now.Sub(lastFlush) >= th.TimeThreshold {
		return true
	}
	return false
}
