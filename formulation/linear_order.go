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

// LinearOrderVars are the variables of the linear-order formulation.
type LinearOrderVars struct {
	Cmax linearsolver.Var
	C    *linearsolver.VarTable
	// Delta[i,j] is 1 when job i precedes job j in the server order.
	Delta *linearsolver.VarTable
	L     float64
}

// LinearOrder is the linear-order formulation.
type LinearOrder struct{}

// NewLinearOrderSolver returns a solver for the linear-order formulation.
func NewLinearOrderSolver(opts ...Option) *Solver[LinearOrderVars] {
	return NewSolver[LinearOrderVars](LinearOrder{}, opts...)
}

// Name returns "lov".
func (LinearOrder) Name() string {
	return LOV
}

// AddVariables declares the makespan, the completion times and the precedence indicators.
func (LinearOrder) AddVariables(m *linearsolver.Model, inst *schedule.Instance) (*LinearOrderVars, error) {
	n := len(inst.Tasks)
	return &LinearOrderVars{
		Cmax:  m.NewContinuousVar(0, math.Inf(1), "C_max"),
		C:     m.NewVarTable("C", linearsolver.Continuous, 0, math.Inf(1), n),
		Delta: m.NewVarTable("delta", linearsolver.Binary, 0, 1, n, n),
		L:     inst.Horizon(),
	}, nil
}

// AddConstraints declares irreflexivity (Delta0), antisymmetry (Delta1), transitivity
// (Delta2), the precedences fixed by the machines (Initial), the machine orderings (25a, 25b),
// the big-M server precedence (26), the makespan bounds (27) and the objective.
func (LinearOrder) AddConstraints(m *linearsolver.Model, inst *schedule.Instance, v *LinearOrderVars) error {
	n := len(inst.Tasks)
	one := linearsolver.NewConstant(1)
	for i := 0; i < n; i++ {
		m.AddEquality(v.Delta.At(i, i), linearsolver.NewConstant(0)).WithName(fmt.Sprintf("Delta0[%d]", i))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			sum := linearsolver.NewLinearExpr().AddSum(v.Delta.At(i, j), v.Delta.At(j, i))
			m.AddEquality(sum, one).WithName(fmt.Sprintf("Delta1[%d,%d]", i, j))
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				if i == j || j == k || i == k {
					continue
				}
				rhs := linearsolver.NewLinearExpr().AddSum(v.Delta.At(i, j), v.Delta.At(j, k)).AddConstant(-1)
				m.AddGreaterOrEqual(v.Delta.At(i, k), rhs).WithName(fmt.Sprintf("Delta2[%d,%d,%d]", i, j, k))
			}
		}
	}
	for _, mach := range inst.Machines {
		for j := 0; j < mach.Len(); j++ {
			for i := 0; i < j; i++ {
				m.AddEquality(v.Delta.At(mach.Ordering[i], mach.Ordering[j]), one).
					WithName(fmt.Sprintf("Initial[%d,%d,%d]", mach.ID, j, i))
			}
		}
	}

	addMachineOrderings(m, inst, v.C)

	for _, t0 := range inst.Tasks {
		for _, t1 := range inst.Tasks {
			if t0.ID == t1.ID {
				continue
			}
			// C[j1] + L*(1 - delta[j0,j1]) >= C[j0] - p[j0] + p[j1] + s[j1]
			lhs := linearsolver.NewLinearExpr().
				Add(v.C.At(t1.ID)).
				AddConstant(v.L).
				AddTerm(v.Delta.At(t0.ID, t1.ID), -v.L)
			rhs := linearsolver.NewLinearExpr().
				Add(v.C.At(t0.ID)).
				AddConstant(-t0.P + t1.P + t1.S)
			m.AddGreaterOrEqual(lhs, rhs).WithName(fmt.Sprintf("26[%d,%d]", t0.ID, t1.ID))
		}
	}

	addMakespanBounds(m, inst, v.Cmax, v.C)
	m.Minimize(v.Cmax)
	return nil
}

// ExtractSolution places every job at the position given by the number of jobs preceding it,
// the sum of its Delta column. Relaxed solutions are ordered the same way from fractional
// sums.
func (LinearOrder) ExtractSolution(inst *schedule.Instance, v *LinearOrderVars, res *linearsolver.Response, relaxed bool) (*schedule.Solution, error) {
	n := len(inst.Tasks)
	order := orderBy(inst, func(t *schedule.Task) []float64 {
		before := 0.0
		for j := 0; j < n; j++ {
			before += linearsolver.SolutionValue(res, v.Delta.At(j, t.ID))
		}
		if !relaxed {
			before = math.Round(before)
		}
		return []float64{before}
	})
	return schedule.NewSolution(order, completionTimes(inst, res, v.C), linearsolver.SolutionValue(res, v.Cmax), inst), nil
}
