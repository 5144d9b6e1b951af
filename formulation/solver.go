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
	"fmt"
	"math"
	"time"

	log "github.com/golang/glog"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// DefaultTimeLimit bounds each optimization phase unless WithTimeLimit is given.
const DefaultTimeLimit = 600 * time.Second

// MethodRelaxed tags solutions extracted from the continuous relaxation.
const MethodRelaxed = "relaxed"

var (
	// ErrNotBuilt holds the error when a model or its variables are read before Solve built them.
	ErrNotBuilt = errors.New("model has not been built")
	// ErrNotSolved holds the error when a solution is read before it was extracted.
	ErrNotSolved = errors.New("model has not been solved")
)

// State is the lifecycle stage of a Solver.
type State int

// Solver states. Solve moves from Built to StandardSolved after an optimal integral solve, to
// RelaxedSolved after an optimal relaxed solve, and to Extracted once every requested phase
// produced a solution.
const (
	StateEmpty State = iota
	StateBuilt
	StateStandardSolved
	StateRelaxedSolved
	StateExtracted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateBuilt:
		return "BUILT"
	case StateStandardSolved:
		return "STANDARD_SOLVED"
	case StateRelaxedSolved:
		return "RELAXED_SOLVED"
	case StateExtracted:
		return "EXTRACTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Phase names one of the two optimizations of a Solve call.
type Phase string

// Phases.
const (
	PhaseStandard Phase = "standard"
	PhaseRelaxed  Phase = "relaxed"
)

// NotOptimalError is the failure signal of a phase whose optimization did not end optimal.
type NotOptimalError struct {
	Phase  Phase
	Status linearsolver.Status
}

func (e *NotOptimalError) Error() string {
	return fmt.Sprintf("%s model ended with status %v", e.Phase, e.Status)
}

// PhaseOutcome is the result of one optimization phase.
type PhaseOutcome struct {
	Phase     Phase
	Requested bool
	Status    linearsolver.Status
	WallTime  time.Duration
	// Solution is nil unless the phase ended optimal.
	Solution *schedule.Solution
}

// Resolved reports whether the phase produced a solution.
func (p PhaseOutcome) Resolved() bool {
	return p.Solution != nil
}

// Makespan returns the makespan of the phase's solution, or NaN if there is none.
func (p PhaseOutcome) Makespan() float64 {
	if p.Solution == nil {
		return math.NaN()
	}
	return p.Solution.Makespan
}

// Err returns a *NotOptimalError if the phase was requested and produced no solution.
func (p PhaseOutcome) Err() error {
	if !p.Requested || p.Solution != nil {
		return nil
	}
	return &NotOptimalError{Phase: p.Phase, Status: p.Status}
}

// Outcome holds the results of both phases of a Solve call.
type Outcome struct {
	Standard PhaseOutcome
	Relaxed  PhaseOutcome
}

// Err joins the failures of both phases.
func (o Outcome) Err() error {
	return errors.Join(o.Standard.Err(), o.Relaxed.Err())
}

type options struct {
	timeLimit time.Duration
}

// Option configures a Solver.
type Option func(*options)

// WithTimeLimit bounds the wall time of each optimization phase.
func WithTimeLimit(d time.Duration) Option {
	return func(o *options) {
		o.timeLimit = d
	}
}

// Solver builds and solves one formulation for one instance at a time. It is not safe for
// concurrent use; use one Solver per goroutine.
type Solver[V any] struct {
	f    Formulation[V]
	opts options

	state State
	inst  *schedule.Instance

	model        *linearsolver.Model
	relaxedModel *linearsolver.Model
	vars         *V
	relaxedVars  *V

	solution        *schedule.Solution
	relaxedSolution *schedule.Solution
}

// NewSolver returns an empty solver for the formulation.
func NewSolver[V any](f Formulation[V], opts ...Option) *Solver[V] {
	s := &Solver[V]{f: f, opts: options{timeLimit: DefaultTimeLimit}}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Name returns the name of the formulation.
func (s *Solver[V]) Name() string {
	return s.f.Name()
}

// State returns the lifecycle stage of the solver.
func (s *Solver[V]) State() State {
	return s.state
}

// Instance returns the instance of the last Solve call, or nil.
func (s *Solver[V]) Instance() *schedule.Instance {
	return s.inst
}

// Reset discards the instance, both models, their variables and both solutions.
func (s *Solver[V]) Reset() {
	s.state = StateEmpty
	s.inst = nil
	s.model, s.relaxedModel = nil, nil
	s.vars, s.relaxedVars = nil, nil
	s.solution, s.relaxedSolution = nil, nil
}

// Model returns the integral model, or its relaxation when `relaxed` is set. The relaxation is
// built on first use and kept until the next Reset.
func (s *Solver[V]) Model(relaxed bool) (*linearsolver.Model, error) {
	if s.model == nil {
		return nil, ErrNotBuilt
	}
	if !relaxed {
		return s.model, nil
	}
	if s.relaxedModel == nil {
		rm, err := s.model.Relax()
		if err != nil {
			return nil, err
		}
		s.relaxedModel = rm
	}
	return s.relaxedModel, nil
}

// Variables returns the variables of the integral model, or the matching variables of the
// relaxation when `relaxed` is set.
func (s *Solver[V]) Variables(relaxed bool) (*V, error) {
	if s.vars == nil {
		return nil, ErrNotBuilt
	}
	if !relaxed {
		return s.vars, nil
	}
	if s.relaxedVars == nil {
		rm, err := s.Model(true)
		if err != nil {
			return nil, err
		}
		rv, err := relaxVariables(s.vars, rm)
		if err != nil {
			return nil, err
		}
		s.relaxedVars = rv
	}
	return s.relaxedVars, nil
}

// Solution returns the solution of the integral model, or of the relaxation when `relaxed` is
// set. It fails with ErrNotSolved when that phase produced no solution.
func (s *Solver[V]) Solution(relaxed bool) (*schedule.Solution, error) {
	sol := s.solution
	if relaxed {
		sol = s.relaxedSolution
	}
	if sol == nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrNotSolved)
	}
	return sol, nil
}

// Solve resets the solver, builds the model for `inst`, then optimizes the integral model if
// `standard` is set and its relaxation if `relaxed` is set.
//
// A phase that does not end optimal leaves its solution unset and is reported by the returned
// Outcome, not by the error. The error reports invalid instances, invalid models, extraction
// failures and the cancellation of `ctx`.
func (s *Solver[V]) Solve(ctx context.Context, inst *schedule.Instance, standard, relaxed bool) (Outcome, error) {
	s.Reset()
	out := Outcome{
		Standard: PhaseOutcome{Phase: PhaseStandard, Requested: standard, Status: linearsolver.StatusNotSolved},
		Relaxed:  PhaseOutcome{Phase: PhaseRelaxed, Requested: relaxed, Status: linearsolver.StatusNotSolved},
	}
	if inst == nil {
		return out, fmt.Errorf("%s: nil instance", s.Name())
	}
	if err := inst.Validate(); err != nil {
		return out, fmt.Errorf("%s: %w", s.Name(), err)
	}
	s.inst = inst

	if err := s.build(); err != nil {
		return out, err
	}

	if standard {
		sol, err := s.optimize(ctx, &out.Standard)
		if err != nil {
			return out, err
		}
		if sol != nil {
			s.solution = sol
			s.state = StateStandardSolved
		}
	}
	if relaxed {
		sol, err := s.optimize(ctx, &out.Relaxed)
		if err != nil {
			return out, err
		}
		if sol != nil {
			s.relaxedSolution = sol
			s.state = StateRelaxedSolved
		}
	}
	if (standard || relaxed) && out.Err() == nil {
		s.state = StateExtracted
	}
	return out, ctx.Err()
}

func (s *Solver[V]) build() error {
	m := linearsolver.NewModel(s.Name())
	vars, err := s.f.AddVariables(m, s.inst)
	if err != nil {
		return fmt.Errorf("%s: adding variables: %w", s.Name(), err)
	}
	if err := s.f.AddConstraints(m, s.inst, vars); err != nil {
		return fmt.Errorf("%s: adding constraints: %w", s.Name(), err)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	s.model, s.vars = m, vars
	s.state = StateBuilt
	log.V(1).Infof("%s: built model with %d variables and %d constraints for instance %v",
		s.Name(), m.NumVariables(), m.NumConstraints(), s.inst.UUID)
	if log.V(3) {
		if lp, err := linearsolver.ExportModelAsLpFormat(m); err == nil {
			log.Info(lp)
		}
	}
	return nil
}

// optimize runs one phase and extracts its solution. It returns a nil solution when the phase
// did not end optimal.
func (s *Solver[V]) optimize(ctx context.Context, out *PhaseOutcome) (*schedule.Solution, error) {
	relaxed := out.Phase == PhaseRelaxed
	m, err := s.Model(relaxed)
	if err != nil {
		return nil, err
	}
	vars, err := s.Variables(relaxed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}

	params := &linearsolver.Parameters{TimeLimit: s.opts.timeLimit}
	res, err := linearsolver.SolveModelInterruptibleWithParameters(m, params, ctx.Done())
	if err != nil {
		return nil, err
	}
	out.Status, out.WallTime = res.Status, res.WallTime
	if res.Status != linearsolver.StatusOptimal {
		log.Warningf("%s: optimizer exited with status %v on the %s model", s.Name(), res.Status, out.Phase)
		return nil, nil
	}

	sol, err := s.f.ExtractSolution(s.inst, vars, res, relaxed)
	if err != nil {
		return nil, fmt.Errorf("%s: extracting %s solution: %w", s.Name(), out.Phase, err)
	}
	sol.SolveTime = res.WallTime
	sol.Method = ""
	if relaxed {
		sol.Method = MethodRelaxed
	}
	out.Solution = sol
	return sol, nil
}
