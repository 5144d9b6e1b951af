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
	"math"
	"sync"
	"time"

	log "github.com/golang/glog"
)

// Status is the termination status of a solve.
type Status int

// Solve statuses.
const (
	// StatusNotSolved means a limit was reached before any solution was found.
	StatusNotSolved Status = iota
	// StatusOptimal means the returned solution is proven optimal.
	StatusOptimal
	// StatusFeasible means a solution was found but its optimality is not proven.
	StatusFeasible
	// StatusInfeasible means the model has no solution.
	StatusInfeasible
	// StatusUnbounded means the objective can decrease without limit.
	StatusUnbounded
	// StatusAbnormal means the simplex failed to converge.
	StatusAbnormal
	// StatusModelInvalid means the model recorded a building error.
	StatusModelInvalid
)

func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "NOT_SOLVED"
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusAbnormal:
		return "ABNORMAL"
	case StatusModelInvalid:
		return "MODEL_INVALID"
	}
	return "UNKNOWN"
}

// Parameters holds the solver limits and tolerances. The zero value of a field selects its
// default.
type Parameters struct {
	// TimeLimit bounds the wall time of the solve. Zero means no limit.
	TimeLimit time.Duration
	// NodeLimit bounds the number of branch-and-bound nodes. Zero means no limit.
	NodeLimit int64
	// RelativeGap stops the search once the incumbent is within this fraction of the best bound.
	RelativeGap float64
	// IntegralityTolerance is the distance to the nearest integer under which a value counts as
	// integral. Defaults to 1e-6.
	IntegralityTolerance float64
}

func (p *Parameters) integralityTolerance() float64 {
	if p == nil || p.IntegralityTolerance <= 0 {
		return 1e-6
	}
	return p.IntegralityTolerance
}

// Response holds the outcome of a solve.
type Response struct {
	Status Status
	// ObjectiveValue is the objective of the returned solution, or NaN when there is none.
	ObjectiveValue float64
	// BestObjectiveBound is a proven lower bound on the optimal objective.
	BestObjectiveBound float64
	WallTime           time.Duration
	Nodes              int64
	Iterations         int64

	values []float64
}

// HasSolution reports whether the response carries variable values.
func (r *Response) HasSolution() bool {
	return r != nil && r.values != nil
}

// SolveModel solves the model with default parameters.
func SolveModel(m *Model) (*Response, error) {
	return SolveModelWithParameters(m, nil)
}

// SolveModelWithParameters solves the model with the given parameters. A nil `params` selects
// the defaults.
func SolveModelWithParameters(m *Model, params *Parameters) (*Response, error) {
	return SolveModelInterruptibleWithParameters(m, params, nil)
}

// SolveModelInterruptibleWithParameters solves the model with the given parameters. The solve
// can be interrupted by closing `interrupt`, in which case the best solution found so far is
// returned with status FEASIBLE, or NOT_SOLVED if there is none.
func SolveModelInterruptibleWithParameters(m *Model, params *Parameters, interrupt <-chan struct{}) (*Response, error) {
	if err := m.Validate(); err != nil {
		log.Warningf("model %q is invalid: %v", m.name, err)
		return &Response{Status: StatusModelInvalid, ObjectiveValue: math.NaN(), BestObjectiveBound: math.NaN()}, nil
	}

	stop := &stopFlag{}
	solveDone := make(chan struct{})
	defer close(solveDone)
	go func() {
		select {
		case <-interrupt:
			stop.trigger()
		case <-solveDone:
		}
	}()
	// Already-closed interrupts must stop the solve before it starts.
	select {
	case <-interrupt:
		stop.trigger()
	default:
	}

	start := time.Now()
	lim := &limits{stop: stop}
	if params != nil && params.TimeLimit > 0 {
		lim.deadline = start.Add(params.TimeLimit)
	}
	res := newSearch(m, params, lim).run()
	res.WallTime = time.Since(start)
	log.V(1).Infof("model %q: status %v, objective %v, bound %v, %d nodes, %d iterations in %v",
		m.name, res.Status, res.ObjectiveValue, res.BestObjectiveBound, res.Nodes, res.Iterations, res.WallTime)
	return res, nil
}

// SolutionValue returns the value of `la` in the response, or NaN when the response has no
// solution.
func SolutionValue(r *Response, la LinearArgument) float64 {
	if !r.HasSolution() {
		return math.NaN()
	}
	return la.evaluateSolutionValue(r)
}

// stopFlag is set once to stop a running solve. It is safe for concurrent use.
type stopFlag struct {
	mutex     sync.Mutex
	triggered bool // Guarded by mutex.
}

func (f *stopFlag) trigger() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.triggered = true
}

func (f *stopFlag) isTriggered() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.triggered
}

// limits gathers the conditions that stop a solve early.
type limits struct {
	deadline time.Time
	stop     *stopFlag
}

func (l *limits) reached() bool {
	if l == nil {
		return false
	}
	if l.stop != nil && l.stop.isTriggered() {
		return true
	}
	return !l.deadline.IsZero() && time.Now().After(l.deadline)
}
