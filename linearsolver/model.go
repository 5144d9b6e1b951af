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

// Package linearsolver offers a user-friendly API to build and solve mixed-integer linear
// programs.
//
// The `Model` struct records variables, ranged linear constraints and a linear minimization
// objective. The `Var` struct is a reference to a specific variable in a model, and `VarTable`
// groups variables indexed by one or more integer keys. The `LinearExpr` struct provides helper
// methods for creating constraints and the objective from expressions with many variables and
// coefficients.
//
// Models are solved with `SolveModel` and its variants: a dense two-phase simplex solves the
// continuous relaxations and a best-first branch-and-bound enforces integrality.
package linearsolver

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

var (
	// ErrMixedModels holds the error when elements added to a model are different.
	ErrMixedModels = errors.New("elements are not part of the same model")
	// ErrDuplicateName holds the error when two variables of a model share a name.
	ErrDuplicateName = errors.New("duplicate variable name")
	// ErrInvalidBounds holds the error when a variable or constraint has unusable bounds.
	ErrInvalidBounds = errors.New("invalid bounds")
)

type (
	// VarIndex is the index of a variable in the model.
	VarIndex int32
	// ConstrIndex is the index of a constraint in the model.
	ConstrIndex int32
)

// VarType is the domain type of a decision variable.
type VarType int

// Variable types.
const (
	Continuous VarType = iota
	Integer
	Binary
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "CONTINUOUS"
	case Integer:
		return "INTEGER"
	case Binary:
		return "BINARY"
	}
	return fmt.Sprintf("VarType(%d)", int(t))
}

// integral reports whether variables of this type must take integer values.
func (t VarType) integral() bool {
	return t == Integer || t == Binary
}

// LinearArgument provides an interface for Var and LinearExpr.
type LinearArgument interface {
	addToLinearExpr(e *LinearExpr, c float64)
	evaluateSolutionValue(r *Response) float64
}

// LinearExpr is a container for a linear expression.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
	// model is the first model whose variables were added; mixed is set when a second one
	// shows up.
	model *Model
	mixed bool
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// NewConstant creates and returns a LinearExpr containing the constant `c`.
func NewConstant(c float64) *LinearExpr {
	return &LinearExpr{offset: c}
}

// Add adds the linear argument term to the LinearExpr and returns itself.
func (l *LinearExpr) Add(la LinearArgument) *LinearExpr {
	l.AddTerm(la, 1)
	return l
}

// AddConstant adds the constant to the LinearExpr and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// AddTerm adds the linear argument term with the given coefficient to the LinearExpr and returns itself.
func (l *LinearExpr) AddTerm(la LinearArgument, coeff float64) *LinearExpr {
	la.addToLinearExpr(l, coeff)
	return l
}

// AddSum adds the sum of the linear arguments to the LinearExpr and returns itself.
func (l *LinearExpr) AddSum(las ...LinearArgument) *LinearExpr {
	for _, la := range las {
		l.Add(la)
	}
	return l
}

// AddWeightedSum adds the linear arguments with the corresponding coefficients to the LinearExpr
// and returns itself.
func (l *LinearExpr) AddWeightedSum(las []LinearArgument, coeffs []float64) *LinearExpr {
	if len(coeffs) != len(las) {
		log.Fatalf("las and coeffs must be the same length: %v != %v", len(las), len(coeffs))
	}
	for i, la := range las {
		l.AddTerm(la, coeffs[i])
	}
	return l
}

// Offset returns the constant part of the expression.
func (l *LinearExpr) Offset() float64 {
	return l.offset
}

func (l *LinearExpr) addToLinearExpr(e *LinearExpr, c float64) {
	for _, vc := range l.varCoeffs {
		e.varCoeffs = append(e.varCoeffs, varCoeff{ind: vc.ind, coeff: vc.coeff * c})
	}
	e.offset += l.offset * c
	if l.model != nil {
		e.noteModel(l.model)
	}
	e.mixed = e.mixed || l.mixed
}

func (l *LinearExpr) evaluateSolutionValue(r *Response) float64 {
	result := l.offset
	for _, vc := range l.varCoeffs {
		result += vc.coeff * r.values[vc.ind]
	}
	return result
}

func (l *LinearExpr) noteModel(m *Model) {
	if l.model == nil {
		l.model = m
	} else if l.model != m {
		l.mixed = true
	}
}

// merged returns the terms of the expression with repeated variables summed and zero
// coefficients removed, in order of first appearance.
func (l *LinearExpr) merged() []varCoeff {
	pos := make(map[VarIndex]int, len(l.varCoeffs))
	var out []varCoeff
	for _, vc := range l.varCoeffs {
		if i, ok := pos[vc.ind]; ok {
			out[i].coeff += vc.coeff
			continue
		}
		pos[vc.ind] = len(out)
		out = append(out, vc)
	}
	kept := out[:0]
	for _, vc := range out {
		if vc.coeff != 0 {
			kept = append(kept, vc)
		}
	}
	return kept
}

// Var is a reference to a decision variable in the model.
type Var struct {
	ind VarIndex
	m   *Model
}

// Name returns the name of the variable.
func (v Var) Name() string {
	return v.m.vars[v.ind].name
}

// Index returns the index of the variable.
func (v Var) Index() VarIndex {
	return v.ind
}

// Type returns the domain type of the variable.
func (v Var) Type() VarType {
	return v.m.vars[v.ind].typ
}

// Bounds returns the lower and upper bound of the variable.
func (v Var) Bounds() Bounds {
	return v.m.vars[v.ind].bounds
}

// Model returns the model the variable belongs to.
func (v Var) Model() *Model {
	return v.m
}

func (v Var) addToLinearExpr(e *LinearExpr, c float64) {
	e.varCoeffs = append(e.varCoeffs, varCoeff{ind: v.ind, coeff: c})
	e.noteModel(v.m)
}

func (v Var) evaluateSolutionValue(r *Response) float64 {
	return r.values[v.ind]
}

// Constraint is a reference to a ranged linear constraint in the model.
type Constraint struct {
	ind ConstrIndex
	m   *Model
}

// WithName sets the name of the constraint.
func (c Constraint) WithName(s string) Constraint {
	c.m.constraints[c.ind].name = s
	return c
}

// Name returns the name of the constraint.
func (c Constraint) Name() string {
	return c.m.constraints[c.ind].name
}

// Index returns the index of the constraint.
func (c Constraint) Index() ConstrIndex {
	return c.ind
}

// Bounds returns the range the constraint's linear part must lie in.
func (c Constraint) Bounds() Bounds {
	return c.m.constraints[c.ind].bounds
}

type variable struct {
	name   string
	typ    VarType
	bounds Bounds
}

type constraint struct {
	name   string
	terms  []varCoeff
	bounds Bounds
}

// Model records the variables, constraints and objective of a mixed-integer linear program.
type Model struct {
	name        string
	vars        []variable
	constraints []constraint
	objective   []varCoeff
	objOffset   float64
	names       map[string]VarIndex
	// The first and only the first error is reported in Validate.
	err error
}

// NewModel creates and returns a new empty model with the given name.
func NewModel(name string) *Model {
	return &Model{name: name, names: make(map[string]VarIndex)}
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// NumVariables returns the number of variables in the model.
func (m *Model) NumVariables() int {
	return len(m.vars)
}

// NumConstraints returns the number of constraints in the model.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// setErrorf records the error if it is the first one.
func (m *Model) setErrorf(err error, format string, a ...any) {
	var args = make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = err
	wrapped := fmt.Errorf(format+": %w", args...)
	log.Errorf("model %q: %v", m.name, wrapped)
	if m.err == nil {
		m.err = wrapped
	}
}

// checkSameModelAndSetErrorf returns true if the expression only uses variables of `m`.
// Otherwise an error with the given message is recorded on `m`.
func (m *Model) checkSameModelAndSetErrorf(e *LinearExpr, format string, a ...any) bool {
	if !e.mixed && (e.model == nil || e.model == m) {
		return true
	}
	m.setErrorf(ErrMixedModels, format, a...)
	return false
}

// NewVar creates a new variable with bounds `[lb, ub]`. An empty name is replaced by a generated
// unique one. The lower bound must be finite.
func (m *Model) NewVar(lb, ub float64, typ VarType, name string) Var {
	v := Var{ind: VarIndex(len(m.vars)), m: m}
	if name == "" {
		name = fmt.Sprintf("_x%d", v.ind)
	}
	if _, ok := m.names[name]; ok {
		m.setErrorf(ErrDuplicateName, "variable %q", name)
	}
	if typ == Binary {
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	}
	if math.IsInf(lb, 0) || math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		m.setErrorf(ErrInvalidBounds, "variable %q has bounds [%v, %v]", name, lb, ub)
	}
	m.vars = append(m.vars, variable{name: name, typ: typ, bounds: Bounds{lb, ub}})
	m.names[name] = v.ind
	return v
}

// NewContinuousVar creates a continuous variable with bounds `[lb, ub]`.
func (m *Model) NewContinuousVar(lb, ub float64, name string) Var {
	return m.NewVar(lb, ub, Continuous, name)
}

// NewBinaryVar creates a 0-1 variable.
func (m *Model) NewBinaryVar(name string) Var {
	return m.NewVar(0, 1, Binary, name)
}

// LookupVar returns the variable with the given name.
func (m *Model) LookupVar(name string) (Var, bool) {
	ind, ok := m.names[name]
	if !ok {
		return Var{}, false
	}
	return Var{ind: ind, m: m}, true
}

// AddLinearConstraint adds the linear constraint `lb <= expr <= ub`. The constant offset of
// `expr` is moved to the bounds.
func (m *Model) AddLinearConstraint(expr LinearArgument, lb, ub float64) Constraint {
	le := NewLinearExpr().Add(expr)
	ind := ConstrIndex(len(m.constraints))
	m.checkSameModelAndSetErrorf(le, "constraint %v uses variables of another model", ind)
	if math.IsNaN(lb) || math.IsNaN(ub) || lb > ub {
		m.setErrorf(ErrInvalidBounds, "constraint %v has bounds [%v, %v]", ind, lb, ub)
	}
	m.constraints = append(m.constraints, constraint{
		terms:  le.merged(),
		bounds: Bounds{lb, ub}.Offset(-le.offset),
	})
	return Constraint{ind: ind, m: m}
}

// AddEquality adds the linear constraint `lhs == rhs`.
func (m *Model) AddEquality(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.AddLinearConstraint(diff, 0, 0)
}

// AddLessOrEqual adds the linear constraint `lhs <= rhs`.
func (m *Model) AddLessOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.AddLinearConstraint(diff, math.Inf(-1), 0)
}

// AddGreaterOrEqual adds the linear constraint `lhs >= rhs`.
func (m *Model) AddGreaterOrEqual(lhs, rhs LinearArgument) Constraint {
	diff := NewLinearExpr().Add(lhs).AddTerm(rhs, -1)
	return m.AddLinearConstraint(diff, 0, math.Inf(1))
}

// Minimize sets a linear minimization objective.
func (m *Model) Minimize(obj LinearArgument) {
	o := NewLinearExpr().Add(obj)
	if !m.checkSameModelAndSetErrorf(o, "objective uses variables of another model") {
		return
	}
	m.objective = o.merged()
	m.objOffset = o.offset
}

// Relax returns a copy of the model with the same variables, names, bounds and constraints where
// every variable is continuous.
func (m *Model) Relax() (*Model, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	r := NewModel(m.name + "_relaxed")
	r.vars = make([]variable, len(m.vars))
	for i, v := range m.vars {
		r.vars[i] = variable{name: v.name, typ: Continuous, bounds: v.bounds}
		r.names[v.name] = VarIndex(i)
	}
	r.constraints = make([]constraint, len(m.constraints))
	for i, c := range m.constraints {
		r.constraints[i] = constraint{name: c.name, terms: append([]varCoeff(nil), c.terms...), bounds: c.bounds}
	}
	r.objective = append([]varCoeff(nil), m.objective...)
	r.objOffset = m.objOffset
	return r, nil
}

// Validate returns the first error recorded while building the model, if any.
func (m *Model) Validate() error {
	return m.err
}
