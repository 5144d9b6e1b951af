// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linearsolver

import (
	"fmt"
	"math"
)

// Bounds stores the closed interval `[Lb,Ub]` of real values. Either side may be infinite. If
// `Lb` is greater than `Ub`, the interval is considered empty.
type Bounds struct {
	Lb float64
	Ub float64
}

// Unbounded returns the interval `(-inf, +inf)`.
func Unbounded() Bounds {
	return Bounds{math.Inf(-1), math.Inf(1)}
}

// NewBounds creates the interval `[lb, ub]`.
func NewBounds(lb, ub float64) Bounds {
	return Bounds{lb, ub}
}

// Offset adds `delta` to both sides. Infinite sides stay infinite.
func (b Bounds) Offset(delta float64) Bounds {
	return Bounds{b.Lb + delta, b.Ub + delta}
}

// Scale multiplies both sides by `c`, swapping them when `c` is negative.
func (b Bounds) Scale(c float64) Bounds {
	if c < 0 {
		return Bounds{b.Ub * c, b.Lb * c}
	}
	return Bounds{b.Lb * c, b.Ub * c}
}

// Intersect returns the intersection of both intervals.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{math.Max(b.Lb, o.Lb), math.Min(b.Ub, o.Ub)}
}

// Empty reports whether no value lies in the interval, allowing `tol` of slack.
func (b Bounds) Empty(tol float64) bool {
	return b.Lb > b.Ub+tol
}

// Contains reports whether `v` lies in the interval, allowing `tol` of slack on both sides.
func (b Bounds) Contains(v, tol float64) bool {
	return v >= b.Lb-tol && v <= b.Ub+tol
}

// Fixed reports whether the interval holds a single value, up to `tol`.
func (b Bounds) Fixed(tol float64) bool {
	return !math.IsInf(b.Lb, 0) && b.Ub-b.Lb <= tol
}

// Integral shrinks the interval to its integer points.
func (b Bounds) Integral(tol float64) Bounds {
	return Bounds{math.Ceil(b.Lb - tol), math.Floor(b.Ub + tol)}
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%v,%v]", b.Lb, b.Ub)
}
