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

// Package formulation encodes single-server scheduling instances as mixed-integer linear
// programs and turns their optimal solutions back into schedules.
//
// Three encodings of the server order are provided:
//
//   - position-indexed (PIV): binary `y[j,i]` places job j at position i of the server order.
//   - linear-order (LOV): binary `delta[i,j]` states that job i precedes job j.
//   - time-indexed (TIV): binary `X[j,t]` starts job j at integer time slot t.
//
// A `Solver` drives one encoding through building, solving the integral model and optionally
// its continuous relaxation, and extracting a `schedule.Solution` from each.
package formulation

import (
	"context"
	"fmt"
	"sort"

	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// Formulation declares the variables and constraints of one encoding and reads schedules back
// from solved models. `V` is the struct holding the encoding's variables; its exported fields
// must be `linearsolver.Var`, `*linearsolver.VarTable` or numbers so that they can be mapped
// onto the relaxed model.
type Formulation[V any] interface {
	// Name is a short identifier, also used as the model name.
	Name() string
	AddVariables(m *linearsolver.Model, inst *schedule.Instance) (*V, error)
	AddConstraints(m *linearsolver.Model, inst *schedule.Instance, vars *V) error
	// ExtractSolution reads the schedule from `res`, a response of the model `vars` belongs to.
	ExtractSolution(inst *schedule.Instance, vars *V, res *linearsolver.Response, relaxed bool) (*schedule.Solution, error)
}

// Runner is the formulation-independent view of a Solver.
type Runner interface {
	Name() string
	Solve(ctx context.Context, inst *schedule.Instance, standard, relaxed bool) (Outcome, error)
	Solution(relaxed bool) (*schedule.Solution, error)
	State() State
	Reset()
}

// Formulation names.
const (
	PIV = "piv"
	LOV = "lov"
	TIV = "tiv"
)

// Names lists the formulations known to New.
func Names() []string {
	return []string{PIV, LOV, TIV}
}

// New returns a solver for the formulation with the given name.
func New(name string, opts ...Option) (Runner, error) {
	switch name {
	case PIV:
		return NewPositionSolver(opts...), nil
	case LOV:
		return NewLinearOrderSolver(opts...), nil
	case TIV:
		return NewTimeIndexedSolver(opts...), nil
	}
	return nil, fmt.Errorf("unknown formulation %q, want one of %v", name, Names())
}

// orderBy returns the ids of the instance's tasks sorted by `key`, then by id.
func orderBy(inst *schedule.Instance, key func(t *schedule.Task) []float64) []int {
	tasks := append([]*schedule.Task(nil), inst.Tasks...)
	keys := make(map[int][]float64, len(tasks))
	for _, t := range tasks {
		keys[t.ID] = key(t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := keys[tasks[i].ID], keys[tasks[j].ID]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return tasks[i].ID < tasks[j].ID
	})
	order := make([]int, len(tasks))
	for i, t := range tasks {
		order[i] = t.ID
	}
	return order
}

// completionTimes builds the task intervals from completion time values.
func completionTimes(inst *schedule.Instance, res *linearsolver.Response, c *linearsolver.VarTable) map[int]schedule.Interval {
	times := make(map[int]schedule.Interval, len(inst.Tasks))
	for _, t := range inst.Tasks {
		end := linearsolver.SolutionValue(res, c.At(t.ID))
		times[t.ID] = schedule.Interval{Start: end - t.S - t.P, End: end}
	}
	return times
}
