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
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const testTol = 1e-7

func TestSolver_SolveIntegerVars(t *testing.T) {
	model := NewModel("int")
	x := model.NewVar(1, 10, Integer, "x")
	y := model.NewVar(1, 10, Integer, "y")

	model.AddEquality(NewLinearExpr().AddSum(x, y), NewConstant(15))
	model.Minimize(NewLinearExpr().AddTerm(x, -7).AddTerm(y, -1))

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Errorf("SolveModel() returned status = %v, want %v", res.Status, StatusOptimal)
	}
	if got, want := res.ObjectiveValue, -75.0; got != want {
		t.Errorf("SolveModel() returned objective = %v, want %v", got, want)
	}
	gotX, gotY := SolutionValue(res, x), SolutionValue(res, y)
	if gotX != 10 || gotY != 5 {
		t.Errorf("SolutionValue() returned (x, y) = (%v, %v), want (10, 5)", gotX, gotY)
	}
}

func TestSolver_SolveBinaryKnapsack(t *testing.T) {
	model := NewModel("knapsack")
	a := model.NewBinaryVar("a")
	b := model.NewBinaryVar("b")
	c := model.NewBinaryVar("c")

	model.AddLessOrEqual(NewLinearExpr().AddTerm(a, 2).AddTerm(b, 3).AddTerm(c, 1), NewConstant(5))
	model.Minimize(NewLinearExpr().AddTerm(a, -5).AddTerm(b, -4).AddTerm(c, -3))

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusOptimal {
		t.Fatalf("SolveModel() returned status = %v, want %v", res.Status, StatusOptimal)
	}
	if got, want := res.ObjectiveValue, -9.0; got != want {
		t.Errorf("SolveModel() returned objective = %v, want %v", got, want)
	}
	if got, want := res.BestObjectiveBound, -9.0; got != want {
		t.Errorf("SolveModel() returned bound = %v, want %v", got, want)
	}
	got := []float64{SolutionValue(res, a), SolutionValue(res, b), SolutionValue(res, c)}
	want := []float64{1, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SolutionValue() returned (a, b, c) = %v, want %v", got, want)
			break
		}
	}
}

func TestSolver_SolveContinuous(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(m *Model) (x, y Var)
		// The same problem in equality form for the reference simplex.
		c    []float64
		a    [][]float64
		b    []float64
		want float64
	}{
		{
			name: "LessOrEqual",
			build: func(m *Model) (Var, Var) {
				x := m.NewContinuousVar(0, math.Inf(1), "x")
				y := m.NewContinuousVar(0, math.Inf(1), "y")
				m.AddLessOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(4))
				m.AddLessOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 3), NewConstant(6))
				m.Minimize(NewLinearExpr().AddTerm(x, -1).AddTerm(y, -2))
				return x, y
			},
			c:    []float64{-1, -2, 0, 0},
			a:    [][]float64{{1, 1, 1, 0}, {1, 3, 0, 1}},
			b:    []float64{4, 6},
			want: -5,
		},
		{
			name: "GreaterOrEqual",
			build: func(m *Model) (Var, Var) {
				x := m.NewContinuousVar(0, math.Inf(1), "x")
				y := m.NewContinuousVar(0, math.Inf(1), "y")
				m.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 1).AddTerm(y, 2), NewConstant(4))
				m.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 3).AddTerm(y, 1), NewConstant(6))
				m.Minimize(NewLinearExpr().AddSum(x, y))
				return x, y
			},
			c:    []float64{1, 1, 0, 0},
			a:    [][]float64{{1, 2, -1, 0}, {3, 1, 0, -1}},
			b:    []float64{4, 6},
			want: 2.8,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			model := NewModel(tc.name)
			x, y := tc.build(model)
			res, err := SolveModel(model)
			if err != nil {
				t.Fatalf("SolveModel returned with unexpected err: %v", err)
			}
			if res.Status != StatusOptimal {
				t.Fatalf("SolveModel() returned status = %v, want %v", res.Status, StatusOptimal)
			}
			if math.Abs(res.ObjectiveValue-tc.want) > testTol {
				t.Errorf("SolveModel() returned objective = %v, want %v", res.ObjectiveValue, tc.want)
			}
			if got := SolutionValue(res, NewLinearExpr().AddTerm(x, tc.c[0]).AddTerm(y, tc.c[1])); math.Abs(got-res.ObjectiveValue) > testTol {
				t.Errorf("SolutionValue(objective) = %v, want %v", got, res.ObjectiveValue)
			}

			a := mat.NewDense(len(tc.a), len(tc.c), nil)
			for i, row := range tc.a {
				a.SetRow(i, row)
			}
			ref, _, err := lp.Simplex(tc.c, a, tc.b, 1e-10, nil)
			if err != nil {
				t.Fatalf("lp.Simplex returned with unexpected err: %v", err)
			}
			if math.Abs(res.ObjectiveValue-ref) > testTol {
				t.Errorf("SolveModel() returned objective = %v, reference simplex found %v", res.ObjectiveValue, ref)
			}
		})
	}
}

func TestSolver_Infeasible(t *testing.T) {
	model := NewModel("infeasible")
	x := model.NewBinaryVar("x")
	y := model.NewBinaryVar("y")
	model.AddGreaterOrEqual(NewLinearExpr().AddSum(x, y), NewConstant(3))
	model.Minimize(x)

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Errorf("SolveModel() returned status = %v, want %v", res.Status, StatusInfeasible)
	}
	if res.HasSolution() {
		t.Errorf("HasSolution() = true, want false")
	}
	if got := SolutionValue(res, x); !math.IsNaN(got) {
		t.Errorf("SolutionValue() = %v, want NaN", got)
	}
}

func TestSolver_Unbounded(t *testing.T) {
	model := NewModel("unbounded")
	x := model.NewContinuousVar(0, math.Inf(1), "x")
	y := model.NewContinuousVar(0, math.Inf(1), "y")
	model.AddLessOrEqual(NewLinearExpr().Add(x).AddTerm(y, -1), NewConstant(1))
	model.Minimize(NewLinearExpr().AddTerm(x, -1))

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusUnbounded {
		t.Errorf("SolveModel() returned status = %v, want %v", res.Status, StatusUnbounded)
	}
}

func TestSolver_InvalidModel(t *testing.T) {
	model := NewModel("invalid")
	x := model.NewContinuousVar(0, -1, "x")
	model.Minimize(x)

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusModelInvalid {
		t.Errorf("SolveModel() returned status = %v, want %v", res.Status, StatusModelInvalid)
	}
}

func TestSolver_Interrupt(t *testing.T) {
	model := NewModel("interrupted")
	x := model.NewVar(0, 10, Integer, "x")
	model.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 2), NewConstant(3))
	model.Minimize(x)

	interrupt := make(chan struct{})
	close(interrupt)
	res, err := SolveModelInterruptibleWithParameters(model, nil, interrupt)
	if err != nil {
		t.Fatalf("SolveModelInterruptibleWithParameters returned with unexpected err: %v", err)
	}
	if res.Status != StatusNotSolved {
		t.Errorf("SolveModelInterruptibleWithParameters() returned status = %v, want %v", res.Status, StatusNotSolved)
	}
	if res.HasSolution() {
		t.Errorf("HasSolution() = true, want false")
	}

	res, err = SolveModelInterruptibleWithParameters(model, &Parameters{TimeLimit: time.Minute}, make(chan struct{}))
	if err != nil {
		t.Fatalf("SolveModelInterruptibleWithParameters returned with unexpected err: %v", err)
	}
	if res.Status != StatusOptimal || SolutionValue(res, x) != 2 {
		t.Errorf("SolveModelInterruptibleWithParameters() returned (%v, x=%v), want (%v, x=2)", res.Status, SolutionValue(res, x), StatusOptimal)
	}
}

func TestSolver_NodeLimit(t *testing.T) {
	model := NewModel("limited")
	x := model.NewVar(0, 10, Integer, "x")
	model.AddGreaterOrEqual(NewLinearExpr().AddTerm(x, 2), NewConstant(3))
	model.Minimize(x)

	// The root relaxation is fractional so a single node cannot produce a solution.
	res, err := SolveModelWithParameters(model, &Parameters{NodeLimit: 1})
	if err != nil {
		t.Fatalf("SolveModelWithParameters returned with unexpected err: %v", err)
	}
	if res.Status != StatusNotSolved {
		t.Errorf("SolveModelWithParameters() returned status = %v, want %v", res.Status, StatusNotSolved)
	}
	if got, want := res.BestObjectiveBound, 1.5; math.Abs(got-want) > testTol {
		t.Errorf("SolveModelWithParameters() returned bound = %v, want %v", got, want)
	}
}

func TestSolver_ObjectiveOffset(t *testing.T) {
	model := NewModel("offset")
	x := model.NewVar(2, 5, Integer, "x")
	model.Minimize(NewLinearExpr().Add(x).AddConstant(10))

	res, err := SolveModel(model)
	if err != nil {
		t.Fatalf("SolveModel returned with unexpected err: %v", err)
	}
	if res.Status != StatusOptimal || res.ObjectiveValue != 12 {
		t.Errorf("SolveModel() returned (%v, %v), want (%v, 12)", res.Status, res.ObjectiveValue, StatusOptimal)
	}
}

func TestStatus_String(t *testing.T) {
	for status, want := range map[Status]string{
		StatusOptimal:      "OPTIMAL",
		StatusFeasible:     "FEASIBLE",
		StatusInfeasible:   "INFEASIBLE",
		StatusUnbounded:    "UNBOUNDED",
		StatusAbnormal:     "ABNORMAL",
		StatusNotSolved:    "NOT_SOLVED",
		StatusModelInvalid: "MODEL_INVALID",
	} {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(status), got, want)
		}
	}
}

func ExampleSolveModel() {
	model := NewModel("example")
	x := model.NewVar(1, 10, Integer, "x")
	y := model.NewVar(1, 10, Integer, "y")
	model.AddEquality(NewLinearExpr().AddSum(x, y), NewConstant(15))
	model.Minimize(NewLinearExpr().AddTerm(x, -7).AddTerm(y, -1))

	res, err := SolveModel(model)
	if err != nil {
		return
	}
	fmt.Printf("status: %v\n", res.Status)
	fmt.Printf("x = %v, y = %v\n", SolutionValue(res, x), SolutionValue(res, y))
	// Output:
	// status: OPTIMAL
	// x = 10, y = 5
}
