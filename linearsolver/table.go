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
	"strconv"
	"strings"
)

// VarTable is a group of variables of one model indexed by a fixed number of integer keys. The
// variable with key `(k1, k2)` of the table `y` is named `y[k1,k2]`.
type VarTable struct {
	name string
	dims []int
	vars []Var
}

// NewVarTable creates one variable per key of the grid `dims` with the given type and bounds.
func (m *Model) NewVarTable(name string, typ VarType, lb, ub float64, dims ...int) *VarTable {
	size := 1
	for _, d := range dims {
		if d < 0 {
			d = 0
		}
		size *= d
	}
	t := &VarTable{name: name, dims: append([]int(nil), dims...), vars: make([]Var, 0, size)}
	t.each(func(key []int) {
		t.vars = append(t.vars, m.NewVar(lb, ub, typ, tableVarName(name, key)))
	})
	return t
}

// LookupVarTable returns a table of the variables of `m` that carry the same names as the
// variables of `t`, under the same keys. `t` usually belongs to another model, e.g. the integral
// model `m` is the relaxation of.
func (m *Model) LookupVarTable(t *VarTable) (*VarTable, error) {
	out := &VarTable{name: t.name, dims: append([]int(nil), t.dims...), vars: make([]Var, len(t.vars))}
	for i, v := range t.vars {
		name := v.Name()
		rv, ok := m.LookupVar(name)
		if !ok {
			return nil, fmt.Errorf("model %q has no variable %q", m.name, name)
		}
		out.vars[i] = rv
	}
	return out, nil
}

func tableVarName(name string, key []int) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = strconv.Itoa(k)
	}
	return name + "[" + strings.Join(parts, ",") + "]"
}

// Name returns the name shared by the variables of the table.
func (t *VarTable) Name() string {
	return t.name
}

// Dims returns the size of each key dimension.
func (t *VarTable) Dims() []int {
	return append([]int(nil), t.dims...)
}

// Len returns the number of variables in the table.
func (t *VarTable) Len() int {
	return len(t.vars)
}

// At returns the variable with the given key. It panics if the key is out of range.
func (t *VarTable) At(key ...int) Var {
	if len(key) != len(t.dims) {
		panic(fmt.Sprintf("linearsolver: table %s has %d dimensions, got key %v", t.name, len(t.dims), key))
	}
	off := 0
	for i, k := range key {
		if k < 0 || k >= t.dims[i] {
			panic(fmt.Sprintf("linearsolver: key %v out of range for table %s%v", key, t.name, t.dims))
		}
		off = off*t.dims[i] + k
	}
	return t.vars[off]
}

// Each calls f for every key of the table in row-major order. The key slice is reused between
// calls.
func (t *VarTable) Each(f func(key []int, v Var)) {
	i := 0
	t.each(func(key []int) {
		f(key, t.vars[i])
		i++
	})
}

func (t *VarTable) each(f func(key []int)) {
	for _, d := range t.dims {
		if d <= 0 {
			return
		}
	}
	key := make([]int, len(t.dims))
	for {
		f(key)
		i := len(key) - 1
		for ; i >= 0; i-- {
			key[i]++
			if key[i] < t.dims[i] {
				break
			}
			key[i] = 0
		}
		if i < 0 {
			return
		}
	}
}
