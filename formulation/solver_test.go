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
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

const makespanTol = 1e-4

var approx = cmpopts.EquateApprox(0, makespanTol)

// twoMachines has machine 0 = [(s=1,p=2), (s=1,p=3)] and machine 1 = [(s=1,p=5)]. Its only
// optimal schedule serves the tasks in order [0 2 1] and ends at 7.
func twoMachines(t *testing.T) *schedule.Instance {
	t.Helper()
	inst, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 1, P: 2}, {ID: 1, S: 1, P: 3}, {ID: 2, S: 1, P: 5}},
		[]*schedule.Machine{{Ordering: []int{0, 1}}, {Ordering: []int{2}}},
	)
	if err != nil {
		t.Fatalf("NewInstance() err = %v, want nil", err)
	}
	return inst
}

// singleTask has one machine with one task (s=2,p=3).
func singleTask(t *testing.T) *schedule.Instance {
	t.Helper()
	inst, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 2, P: 3}},
		[]*schedule.Machine{{Ordering: []int{0}}},
	)
	if err != nil {
		t.Fatalf("NewInstance() err = %v, want nil", err)
	}
	return inst
}

// emptyLastTask has one machine with (s=1,p=1) followed by a task without duration, which
// can only start at the horizon.
func emptyLastTask(t *testing.T) *schedule.Instance {
	t.Helper()
	inst, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 1, P: 1}, {ID: 1, S: 0, P: 0}},
		[]*schedule.Machine{{Ordering: []int{0, 1}}},
	)
	if err != nil {
		t.Fatalf("NewInstance() err = %v, want nil", err)
	}
	return inst
}

// noSetupBesideSetup has machine 0 = [(s=0,p=3)] and machine 1 = [(s=2,p=2)]. Both tasks start
// at 0; starting task 0 at 1 also ends by 4 but lies inside the setup of task 1.
func noSetupBesideSetup(t *testing.T) *schedule.Instance {
	t.Helper()
	inst, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 0, P: 3}, {ID: 1, S: 2, P: 2}},
		[]*schedule.Machine{{Ordering: []int{0}}, {Ordering: []int{1}}},
	)
	if err != nil {
		t.Fatalf("NewInstance() err = %v, want nil", err)
	}
	return inst
}

func newRunner(t *testing.T, name string) Runner {
	t.Helper()
	r, err := New(name)
	if err != nil {
		t.Fatalf("New(%q) returned with unexpected err: %v", name, err)
	}
	return r
}

func TestSolve_Optimal(t *testing.T) {
	testCases := []struct {
		name      string
		inst      func(*testing.T) *schedule.Instance
		wantOrder []int
		wantTimes map[int]schedule.Interval
		want      float64
	}{
		{
			name:      "TwoMachines",
			inst:      twoMachines,
			wantOrder: []int{0, 2, 1},
			wantTimes: map[int]schedule.Interval{0: {Start: 0, End: 3}, 2: {Start: 1, End: 7}, 1: {Start: 3, End: 7}},
			want:      7,
		},
		{
			name:      "SingleTask",
			inst:      singleTask,
			wantOrder: []int{0},
			wantTimes: map[int]schedule.Interval{0: {Start: 0, End: 5}},
			want:      5,
		},
		{
			name:      "EmptyTaskAtHorizon",
			inst:      emptyLastTask,
			wantOrder: []int{0, 1},
			wantTimes: map[int]schedule.Interval{0: {Start: 0, End: 2}, 1: {Start: 2, End: 2}},
			want:      2,
		},
		{
			name:      "NoSetupBesideSetup",
			inst:      noSetupBesideSetup,
			wantOrder: []int{0, 1},
			wantTimes: map[int]schedule.Interval{0: {Start: 0, End: 3}, 1: {Start: 0, End: 4}},
			want:      4,
		},
	}
	for _, tc := range testCases {
		for _, name := range Names() {
			t.Run(tc.name+"/"+name, func(t *testing.T) {
				inst := tc.inst(t)
				r := newRunner(t, name)
				out, err := r.Solve(context.Background(), inst, true, false)
				if err != nil {
					t.Fatalf("Solve() returned with unexpected err: %v", err)
				}
				if err := out.Err(); err != nil {
					t.Fatalf("Solve() returned outcome with unexpected err: %v", err)
				}
				if out.Standard.Status != linearsolver.StatusOptimal {
					t.Errorf("Solve() returned status = %v, want %v", out.Standard.Status, linearsolver.StatusOptimal)
				}
				sol, err := r.Solution(false)
				if err != nil {
					t.Fatalf("Solution(false) returned with unexpected err: %v", err)
				}
				if err := sol.Verify(); err != nil {
					t.Errorf("Verify() returned with unexpected err: %v", err)
				}
				if diff := cmp.Diff(tc.want, sol.Makespan, approx); diff != "" {
					t.Errorf("Solution(false) returned makespan with unexpected diff (-want+got):\n%s", diff)
				}
				if diff := cmp.Diff(tc.wantOrder, sol.ServerOrder); diff != "" {
					t.Errorf("Solution(false) returned server order with unexpected diff (-want+got):\n%s", diff)
				}
				if diff := cmp.Diff(tc.wantTimes, sol.TaskTimes, approx); diff != "" {
					t.Errorf("Solution(false) returned task times with unexpected diff (-want+got):\n%s", diff)
				}
				if sol.Method != "" {
					t.Errorf("Solution(false) returned method = %q, want empty", sol.Method)
				}
				if sol.UUID() != inst.UUID {
					t.Errorf("Solution(false) returned uuid = %v, want %v", sol.UUID(), inst.UUID)
				}
				if got, want := r.State(), StateExtracted; got != want {
					t.Errorf("State() = %v, want %v", got, want)
				}
			})
		}
	}
}

func TestSolve_FormulationsAgree(t *testing.T) {
	testCases := []struct {
		name     string
		tasks    []*schedule.Task
		machines []*schedule.Machine
	}{
		{
			name: "PositiveSetups",
			tasks: []*schedule.Task{
				{ID: 0, S: 2, P: 1}, {ID: 1, S: 1, P: 3}, {ID: 2, S: 1, P: 1},
				{ID: 3, S: 2, P: 2},
			},
			machines: []*schedule.Machine{{Ordering: []int{0, 2}}, {Ordering: []int{3, 1}}},
		},
		{
			name: "ZeroDurations",
			tasks: []*schedule.Task{
				{ID: 0, S: 0, P: 2}, {ID: 1, S: 2, P: 1}, {ID: 2, S: 1, P: 0},
				{ID: 3, S: 0, P: 0}, {ID: 4, S: 1, P: 2},
			},
			machines: []*schedule.Machine{{Ordering: []int{0, 2}}, {Ordering: []int{1, 3}}, {Ordering: []int{4}}},
		},
		{
			name:     "NoSetups",
			tasks:    []*schedule.Task{{ID: 0, S: 0, P: 2}, {ID: 1, S: 0, P: 1}, {ID: 2, S: 0, P: 0}},
			machines: []*schedule.Machine{{Ordering: []int{0, 1}}, {Ordering: []int{2}}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := schedule.NewInstance(tc.tasks, tc.machines)
			if err != nil {
				t.Fatalf("NewInstance() err = %v, want nil", err)
			}
			makespans := map[string]float64{}
			for _, name := range Names() {
				r := newRunner(t, name)
				out, err := r.Solve(context.Background(), inst, true, false)
				if err != nil {
					t.Fatalf("%s: Solve() returned with unexpected err: %v", name, err)
				}
				if err := out.Err(); err != nil {
					t.Fatalf("%s: Solve() returned outcome with unexpected err: %v", name, err)
				}
				sol, err := r.Solution(false)
				if err != nil {
					t.Fatalf("%s: Solution(false) returned with unexpected err: %v", name, err)
				}
				if err := sol.Verify(); err != nil {
					t.Errorf("%s: Verify() returned with unexpected err: %v", name, err)
				}
				makespans[name] = sol.Makespan
			}
			want := map[string]float64{PIV: makespans[PIV], LOV: makespans[PIV], TIV: makespans[PIV]}
			if diff := cmp.Diff(want, makespans, approx); diff != "" {
				t.Errorf("Solve() returned makespans with unexpected diff (-want+got):\n%s", diff)
			}
		})
	}
}

func TestSolve_RelaxedBoundsStandard(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			inst := twoMachines(t)
			r := newRunner(t, name)
			out, err := r.Solve(context.Background(), inst, true, true)
			if err != nil {
				t.Fatalf("Solve() returned with unexpected err: %v", err)
			}
			if err := out.Err(); err != nil {
				t.Fatalf("Solve() returned outcome with unexpected err: %v", err)
			}
			if got, limit := out.Relaxed.Makespan(), out.Standard.Makespan(); got > limit+makespanTol {
				t.Errorf("Solve() returned relaxed makespan = %v, want at most %v", got, limit)
			}
			sol, err := r.Solution(true)
			if err != nil {
				t.Fatalf("Solution(true) returned with unexpected err: %v", err)
			}
			if sol.Method != MethodRelaxed {
				t.Errorf("Solution(true) returned method = %q, want %q", sol.Method, MethodRelaxed)
			}
		})
	}
}

func TestSolve_PositionRelaxedIsUndefined(t *testing.T) {
	s := NewPositionSolver()
	if _, err := s.Solve(context.Background(), twoMachines(t), false, true); err != nil {
		t.Fatalf("Solve() returned with unexpected err: %v", err)
	}
	sol, err := s.Solution(true)
	if err != nil {
		t.Fatalf("Solution(true) returned with unexpected err: %v", err)
	}
	if sol.Defined() {
		t.Errorf("Solution(true) returned server order %v, want none", sol.ServerOrder)
	}
	if len(sol.TaskTimes) != 0 {
		t.Errorf("Solution(true) returned task times %v, want none", sol.TaskTimes)
	}
	if math.IsNaN(sol.Makespan) {
		t.Errorf("Solution(true) returned makespan NaN, want a number")
	}
}

func TestSolver_Lifecycle(t *testing.T) {
	s := NewLinearOrderSolver()
	if got, want := s.State(), StateEmpty; got != want {
		t.Errorf("State() = %v, want %v", got, want)
	}
	if _, err := s.Model(false); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Model(false) err = %v, want %v", err, ErrNotBuilt)
	}
	if _, err := s.Variables(true); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("Variables(true) err = %v, want %v", err, ErrNotBuilt)
	}
	if _, err := s.Solution(false); !errors.Is(err, ErrNotSolved) {
		t.Errorf("Solution(false) err = %v, want %v", err, ErrNotSolved)
	}

	inst := twoMachines(t)
	if _, err := s.Solve(context.Background(), inst, true, false); err != nil {
		t.Fatalf("Solve() returned with unexpected err: %v", err)
	}
	if s.Instance() != inst {
		t.Errorf("Instance() = %v, want %v", s.Instance(), inst)
	}
	if _, err := s.Solution(true); !errors.Is(err, ErrNotSolved) {
		t.Errorf("Solution(true) err = %v, want %v", err, ErrNotSolved)
	}
	m, err := s.Model(true)
	if err != nil {
		t.Fatalf("Model(true) returned with unexpected err: %v", err)
	}
	if again, _ := s.Model(true); again != m {
		t.Errorf("Model(true) built a second relaxation")
	}
	vars, err := s.Variables(true)
	if err != nil {
		t.Fatalf("Variables(true) returned with unexpected err: %v", err)
	}
	if vars.Cmax.Model() != m {
		t.Errorf("Variables(true) returned variables of model %q, want %q", vars.Cmax.Model().Name(), m.Name())
	}

	s.Reset()
	if got, want := s.State(), StateEmpty; got != want {
		t.Errorf("State() after Reset() = %v, want %v", got, want)
	}
	if s.Instance() != nil {
		t.Errorf("Instance() after Reset() = %v, want nil", s.Instance())
	}
	if _, err := s.Solution(false); !errors.Is(err, ErrNotSolved) {
		t.Errorf("Solution(false) after Reset() err = %v, want %v", err, ErrNotSolved)
	}
}

func TestSolve_BuildOnly(t *testing.T) {
	s := NewTimeIndexedSolver()
	out, err := s.Solve(context.Background(), singleTask(t), false, false)
	if err != nil {
		t.Fatalf("Solve() returned with unexpected err: %v", err)
	}
	if err := out.Err(); err != nil {
		t.Errorf("Solve() returned outcome with unexpected err: %v", err)
	}
	if got, want := s.State(), StateBuilt; got != want {
		t.Errorf("State() = %v, want %v", got, want)
	}
	m, err := s.Model(false)
	if err != nil {
		t.Fatalf("Model(false) returned with unexpected err: %v", err)
	}
	// One task over five slots: C_max and X[0,0..4].
	if got, want := m.NumVariables(), 6; got != want {
		t.Errorf("Model(false) has %d variables, want %d", got, want)
	}

	if _, err := s.Solve(context.Background(), emptyLastTask(t), false, false); err != nil {
		t.Fatalf("Solve() returned with unexpected err: %v", err)
	}
	if m, err = s.Model(false); err != nil {
		t.Fatalf("Model(false) returned with unexpected err: %v", err)
	}
	// Two tasks over the horizon 2 and the slot at 2: C_max and X[0..1,0..2].
	if got, want := m.NumVariables(), 7; got != want {
		t.Errorf("Model(false) has %d variables, want %d", got, want)
	}
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPositionSolver()
	out, err := s.Solve(ctx, twoMachines(t), true, false)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Solve() err = %v, want %v", err, context.Canceled)
	}
	if out.Standard.Status != linearsolver.StatusNotSolved {
		t.Errorf("Solve() returned status = %v, want %v", out.Standard.Status, linearsolver.StatusNotSolved)
	}
	var notOptimal *NotOptimalError
	if !errors.As(out.Err(), &notOptimal) || notOptimal.Phase != PhaseStandard {
		t.Errorf("Outcome.Err() = %v, want a *NotOptimalError for %v", out.Err(), PhaseStandard)
	}
	if !math.IsNaN(out.Standard.Makespan()) {
		t.Errorf("Makespan() = %v, want NaN", out.Standard.Makespan())
	}
	if out.Relaxed.Err() != nil {
		t.Errorf("Relaxed.Err() = %v, want nil for a phase that was not requested", out.Relaxed.Err())
	}
	if got, want := s.State(), StateBuilt; got != want {
		t.Errorf("State() = %v, want %v", got, want)
	}
	if _, err := s.Solution(false); !errors.Is(err, ErrNotSolved) {
		t.Errorf("Solution(false) err = %v, want %v", err, ErrNotSolved)
	}
}

func TestSolve_Errors(t *testing.T) {
	fractional, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 0.5, P: 2}},
		[]*schedule.Machine{{Ordering: []int{0}}},
	)
	if err != nil {
		t.Fatalf("NewInstance() err = %v, want nil", err)
	}
	invalid := &schedule.Instance{
		Tasks:    []*schedule.Task{{ID: 0, S: 1, P: 1}, {ID: 0, S: 1, P: 1}},
		Machines: []*schedule.Machine{{Ordering: []int{0}}},
	}
	testCases := []struct {
		name string
		f    string
		inst *schedule.Instance
		want error
	}{
		{name: "NonIntegralDurations", f: TIV, inst: fractional, want: ErrNonIntegralDurations},
		{name: "InvalidInstance", f: PIV, inst: invalid, want: schedule.ErrInvalidInstance},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRunner(t, tc.f)
			if _, err := r.Solve(context.Background(), tc.inst, true, true); !errors.Is(err, tc.want) {
				t.Errorf("Solve() err = %v, want %v", err, tc.want)
			}
			if got, want := r.State(), StateEmpty; got != want {
				t.Errorf("State() = %v, want %v", got, want)
			}
		})
	}
	if _, err := newRunner(t, LOV).Solve(context.Background(), nil, true, false); err == nil {
		t.Errorf("Solve(nil) returned nil err, want an error")
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		r, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) returned with unexpected err: %v", name, err)
		}
		if r.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, r.Name())
		}
	}
	if _, err := New("xyz"); err == nil {
		t.Errorf("New(%q) returned nil err, want an error", "xyz")
	}
}

func TestStateString(t *testing.T) {
	if got, want := StateRelaxedSolved.String(), "RELAXED_SOLVED"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := State(42).String(), "State(42)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
