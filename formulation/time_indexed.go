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
	"errors"
	"fmt"
	"math"

	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// ErrNonIntegralDurations holds the error when the time-indexed formulation is given durations
// that do not fit integer time slots.
var ErrNonIntegralDurations = errors.New("time-indexed formulation needs integral durations")

// TimeIndexedVars are the variables of the time-indexed formulation.
type TimeIndexedVars struct {
	Cmax linearsolver.Var
	// X[j,t] is 1 when job j starts at time slot t. There is one slot per time unit of the
	// horizon, plus one at T when a job has no duration.
	X *linearsolver.VarTable
	// T is the horizon, the sum of all durations.
	T int
}

// TimeIndexed is the time-indexed formulation.
type TimeIndexed struct{}

// NewTimeIndexedSolver returns a solver for the time-indexed formulation.
func NewTimeIndexedSolver(opts ...Option) *Solver[TimeIndexedVars] {
	return NewSolver[TimeIndexedVars](TimeIndexed{}, opts...)
}

// Name returns "tiv".
func (TimeIndexed) Name() string {
	return TIV
}

// AddVariables declares the makespan and one start indicator per job and time slot.
func (TimeIndexed) AddVariables(m *linearsolver.Model, inst *schedule.Instance) (*TimeIndexedVars, error) {
	if !inst.IntegralDurations() {
		return nil, ErrNonIntegralDurations
	}
	horizon := int(inst.Horizon())
	slots := horizon
	for _, t := range inst.Tasks {
		if t.Duration() == 0 {
			// A job without duration may start at the horizon itself.
			slots = horizon + 1
			break
		}
	}
	return &TimeIndexedVars{
		Cmax: m.NewContinuousVar(0, math.Inf(1), "C_max"),
		X:    m.NewVarTable("X", linearsolver.Binary, 0, 1, len(inst.Tasks), max(slots, 1)),
		T:    horizon,
	}, nil
}

// AddConstraints declares the makespan bounds (cmax), a single start per job within the
// horizon (all_scheduled, all_scheduled_2), at most one setup per time unit (single_server),
// no start of a job without setup inside another setup (single_server_0), the machine
// orderings (Ordering) and the objective.
func (TimeIndexed) AddConstraints(m *linearsolver.Model, inst *schedule.Instance, v *TimeIndexedVars) error {
	slots := v.X.Dims()[1]
	for _, t := range inst.Tasks {
		last := min(v.T-int(t.Duration()), slots-1)
		end := linearsolver.NewLinearExpr()
		starts := linearsolver.NewLinearExpr()
		for u := 0; u <= last; u++ {
			end.AddTerm(v.X.At(t.ID, u), float64(u)+t.Duration())
			starts.Add(v.X.At(t.ID, u))
		}
		m.AddLessOrEqual(end, v.Cmax).WithName(fmt.Sprintf("cmax[%d]", t.ID))
		m.AddEquality(starts, linearsolver.NewConstant(1)).WithName(fmt.Sprintf("all_scheduled[%d]", t.ID))
		if last+1 < slots {
			late := linearsolver.NewLinearExpr()
			for u := last + 1; u < slots; u++ {
				late.Add(v.X.At(t.ID, u))
			}
			m.AddEquality(late, linearsolver.NewConstant(0)).WithName(fmt.Sprintf("all_scheduled_2[%d]", t.ID))
		}
	}

	for u := 0; u < v.T; u++ {
		busy := linearsolver.NewLinearExpr()
		terms := 0
		for _, t := range inst.Tasks {
			for w := max(0, u-int(t.S)+1); w <= u; w++ {
				busy.Add(v.X.At(t.ID, w))
				terms++
			}
		}
		if terms == 0 {
			continue
		}
		m.AddLessOrEqual(busy, linearsolver.NewConstant(1)).WithName(fmt.Sprintf("single_server[%d]", u))
	}

	// A job without setup occupies no slot of single_server, so it may only start at u when no
	// other setup started before u is still running at u.
	for _, j := range inst.Tasks {
		if j.S > 0 {
			continue
		}
		for u := 0; u < slots; u++ {
			inside := linearsolver.NewLinearExpr()
			terms := 0
			for _, k := range inst.Tasks {
				if k.S <= 0 {
					continue
				}
				for w := max(0, u-int(k.S)+1); w < u; w++ {
					inside.Add(v.X.At(k.ID, w))
					terms++
				}
			}
			if terms == 0 {
				continue
			}
			inside.Add(v.X.At(j.ID, u))
			m.AddLessOrEqual(inside, linearsolver.NewConstant(1)).WithName(fmt.Sprintf("single_server_0[%d,%d]", j.ID, u))
		}
	}

	for _, mach := range inst.Machines {
		for i := 0; i+1 < mach.Len(); i++ {
			a, b := mach.Task(i), mach.Task(i+1)
			lhs := startTime(v, a.ID).AddConstant(a.Duration())
			m.AddLessOrEqual(lhs, startTime(v, b.ID)).WithName(fmt.Sprintf("Ordering[%d,%d]", mach.ID, i))
		}
	}

	m.Minimize(v.Cmax)
	return nil
}

// startTime returns the expression sum_t t*X[job,t].
func startTime(v *TimeIndexedVars, job int) *linearsolver.LinearExpr {
	e := linearsolver.NewLinearExpr()
	for u := 1; u < v.X.Dims()[1]; u++ {
		e.AddTerm(v.X.At(job, u), float64(u))
	}
	return e
}

// ExtractSolution reads every start time as the slot-weighted sum of its X row and orders the
// jobs by start time. Jobs starting together are ordered by setup, then id, so that a job
// without setup never blocks the server for another.
func (TimeIndexed) ExtractSolution(inst *schedule.Instance, v *TimeIndexedVars, res *linearsolver.Response, relaxed bool) (*schedule.Solution, error) {
	times := make(map[int]schedule.Interval, len(inst.Tasks))
	for _, t := range inst.Tasks {
		start := linearsolver.SolutionValue(res, startTime(v, t.ID))
		if !relaxed {
			start = math.Round(start)
		}
		times[t.ID] = schedule.Interval{Start: start, End: start + t.Duration()}
	}
	order := orderBy(inst, func(t *schedule.Task) []float64 {
		return []float64{times[t.ID].Start, t.S}
	})
	return schedule.NewSolution(order, times, linearsolver.SolutionValue(res, v.Cmax), inst), nil
}
