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

package formulation

import (
	"fmt"
	"math"

	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// PositionVars are the variables of the position-indexed formulation.
type PositionVars struct {
	Cmax linearsolver.Var
	// C[j] is the completion time of job j.
	C *linearsolver.VarTable
	// Y[j,i] is 1 when job j takes position i of the server order.
	Y *linearsolver.VarTable
	// L is the big-M constant, the sum of all durations.
	L float64
}

// Position is the position-indexed formulation.
type Position struct{}

// NewPositionSolver returns a solver for the position-indexed formulation.
func NewPositionSolver(opts ...Option) *Solver[PositionVars] {
	return NewSolver[PositionVars](Position{}, opts...)
}

// Name returns "piv".
func (Position) Name() string {
	return PIV
}

// AddVariables declares the makespan, the completion times and the assignment of jobs to
// positions.
func (Position) AddVariables(m *linearsolver.Model, inst *schedule.Instance) (*PositionVars, error) {
	n := len(inst.Tasks)
	return &PositionVars{
		Cmax: m.NewContinuousVar(0, math.Inf(1), "C_max"),
		C:    m.NewVarTable("C", linearsolver.Continuous, 0, math.Inf(1), n),
		Y:    m.NewVarTable("y", linearsolver.Binary, 0, 1, n, n),
		L:    inst.Horizon(),
	}, nil
}

// AddConstraints declares the assignment constraints (22, 23), the machine orderings (25a,
// 25b), the big-M server precedence between consecutive positions (26), the makespan bounds
// (27) and the objective.
func (Position) AddConstraints(m *linearsolver.Model, inst *schedule.Instance, v *PositionVars) error {
	n := len(inst.Tasks)
	for i := 0; i < n; i++ {
		e := linearsolver.NewLinearExpr()
		for j := 0; j < n; j++ {
			e.Add(v.Y.At(j, i))
		}
		m.AddEquality(e, linearsolver.NewConstant(1)).WithName(fmt.Sprintf("22[%d]", i))
	}
	for j := 0; j < n; j++ {
		e := linearsolver.NewLinearExpr()
		for i := 0; i < n; i++ {
			e.Add(v.Y.At(j, i))
		}
		m.AddEquality(e, linearsolver.NewConstant(1)).WithName(fmt.Sprintf("23[%d]", j))
	}

	addMachineOrderings(m, inst, v.C)

	for j0, t0 := range inst.Tasks {
		for j1, t1 := range inst.Tasks {
			for i := 1; i < n; i++ {
				// C[j1] + L*(2 - y[j0,i-1] - y[j1,i]) >= C[j0] - p[j0] + p[j1] + s[j1]
				lhs := linearsolver.NewLinearExpr().
					Add(v.C.At(t1.ID)).
					AddConstant(2 * v.L).
					AddTerm(v.Y.At(t0.ID, i-1), -v.L).
					AddTerm(v.Y.At(t1.ID, i), -v.L)
				rhs := linearsolver.NewLinearExpr().
					Add(v.C.At(t0.ID)).
					AddConstant(-t0.P + t1.P + t1.S)
				m.AddGreaterOrEqual(lhs, rhs).WithName(fmt.Sprintf("26[%d,%d,%d]", j0, j1, i))
			}
		}
	}

	addMakespanBounds(m, inst, v.Cmax, v.C)
	m.Minimize(v.Cmax)
	return nil
}

// ExtractSolution reads the server order from the positions and the intervals from the
// completion times. Fractional positions define no order, so relaxed solutions only carry the
// makespan.
func (Position) ExtractSolution(inst *schedule.Instance, v *PositionVars, res *linearsolver.Response, relaxed bool) (*schedule.Solution, error) {
	makespan := linearsolver.SolutionValue(res, v.Cmax)
	if relaxed {
		return schedule.NewSolution([]int{}, map[int]schedule.Interval{}, makespan, inst), nil
	}
	n := len(inst.Tasks)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		order[i] = -1
		for j := 0; j < n; j++ {
			if linearsolver.SolutionValue(res, v.Y.At(j, i)) > 0.5 {
				order[i] = j
			}
		}
		if order[i] < 0 {
			return nil, fmt.Errorf("no job at position %d", i)
		}
	}
	return schedule.NewSolution(order, completionTimes(inst, res, v.C), makespan, inst), nil
}

// addMachineOrderings declares that every job completes no earlier than its duration after
// the completion of its machine predecessor (25a for the first job, 25b for the others).
func addMachineOrderings(m *linearsolver.Model, inst *schedule.Instance, c *linearsolver.VarTable) {
	for _, mach := range inst.Machines {
		for i := 0; i < mach.Len(); i++ {
			t := mach.Task(i)
			if i == 0 {
				m.AddGreaterOrEqual(c.At(t.ID), linearsolver.NewConstant(t.Duration())).
					WithName(fmt.Sprintf("25a[%d]", mach.ID))
				continue
			}
			prev := linearsolver.NewLinearExpr().Add(c.At(mach.Task(i - 1).ID)).AddConstant(t.Duration())
			m.AddGreaterOrEqual(c.At(t.ID), prev).WithName(fmt.Sprintf("25b[%d,%d]", mach.ID, i))
		}
	}
}

// addMakespanBounds declares Cmax >= C[j] for every job (27).
func addMakespanBounds(m *linearsolver.Model, inst *schedule.Instance, cmax linearsolver.Var, c *linearsolver.VarTable) {
	for _, t := range inst.Tasks {
		m.AddGreaterOrEqual(cmax, c.At(t.ID)).WithName(fmt.Sprintf("27[%d]", t.ID))
	}
}
