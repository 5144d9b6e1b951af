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

	"github.com/emirpasic/gods/trees/binaryheap"
	log "github.com/golang/glog"
)

// absoluteGap is the objective improvement a node must promise to be explored.
const absoluteGap = 1e-6

// node is an open subproblem of the branch-and-bound tree.
type node struct {
	bounds []Bounds
	// bound is the relaxation objective of the parent, a lower bound for the subproblem.
	bound float64
	depth int
	seq   int64
}

// nodeComparator orders nodes by best bound, then deepest first, then creation order.
func nodeComparator(a, b interface{}) int {
	x, y := a.(*node), b.(*node)
	switch {
	case x.bound < y.bound:
		return -1
	case x.bound > y.bound:
		return 1
	case x.depth > y.depth:
		return -1
	case x.depth < y.depth:
		return 1
	case x.seq < y.seq:
		return -1
	case x.seq > y.seq:
		return 1
	}
	return 0
}

// search is a best-first branch-and-bound over the continuous relaxations of a model.
type search struct {
	m      *Model
	params *Parameters
	lim    *limits
	lp     *lpProblem
	tol    float64
	// integral lists the variables that must take integer values.
	integral []int
	queue    *binaryheap.Heap
	seq      int64

	incumbent    []float64
	incumbentObj float64
	nodes        int64
	iterations   int64
}

func newSearch(m *Model, params *Parameters, lim *limits) *search {
	s := &search{
		m:            m,
		params:       params,
		lim:          lim,
		tol:          params.integralityTolerance(),
		queue:        binaryheap.NewWith(nodeComparator),
		incumbentObj: math.Inf(1),
	}
	cost := make([]float64, len(m.vars))
	for _, vc := range m.objective {
		cost[vc.ind] += vc.coeff
	}
	root := make([]Bounds, len(m.vars))
	for i, v := range m.vars {
		root[i] = v.bounds
		if v.typ.integral() {
			root[i] = v.bounds.Integral(s.tol)
			s.integral = append(s.integral, i)
		}
	}
	s.lp = &lpProblem{cost: cost, rows: m.constraints, bounds: root}
	s.push(root, math.Inf(-1), 0)
	return s
}

func (s *search) push(bounds []Bounds, bound float64, depth int) {
	s.queue.Push(&node{bounds: bounds, bound: bound, depth: depth, seq: s.seq})
	s.seq++
}

// pruned reports whether a subproblem with the given lower bound cannot improve the incumbent.
func (s *search) pruned(bound float64) bool {
	if s.incumbent == nil {
		return false
	}
	gap := absoluteGap
	if s.params != nil && s.params.RelativeGap > 0 {
		gap = math.Max(gap, s.params.RelativeGap*math.Abs(s.incumbentObj))
	}
	return bound >= s.incumbentObj-gap
}

func (s *search) nodeLimitReached() bool {
	return s.params != nil && s.params.NodeLimit > 0 && s.nodes >= s.params.NodeLimit
}

// branchVariable returns the most fractional integral variable of `x`, or -1 if all of them
// are integral.
func (s *search) branchVariable(x []float64) int {
	best, j := s.tol, -1
	for _, i := range s.integral {
		f := x[i] - math.Floor(x[i])
		if d := math.Min(f, 1-f); d > best {
			best, j = d, i
		}
	}
	return j
}

func (s *search) setIncumbent(x []float64) {
	sol := append([]float64(nil), x...)
	for _, i := range s.integral {
		sol[i] = math.Round(sol[i])
	}
	obj := 0.0
	for i, c := range s.lp.cost {
		obj += c * sol[i]
	}
	if obj >= s.incumbentObj {
		return
	}
	s.incumbent, s.incumbentObj = sol, obj
	log.V(1).Infof("model %q: incumbent %v after %d nodes", s.m.name, obj+s.m.objOffset, s.nodes)
}

func (s *search) run() *Response {
	limited, abnormal := false, false
loop:
	for !s.queue.Empty() {
		if s.lim.reached() || s.nodeLimitReached() {
			limited = true
			break
		}
		v, _ := s.queue.Pop()
		n := v.(*node)
		if s.pruned(n.bound) {
			continue
		}
		s.lp.bounds = n.bounds
		res := solveLP(s.lp, s.lim)
		s.nodes++
		s.iterations += res.iterations
		switch res.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			log.V(1).Infof("model %q: relaxation is unbounded at depth %d", s.m.name, n.depth)
			return s.response(StatusUnbounded, math.Inf(-1))
		case lpLimit:
			s.queue.Push(n)
			limited = true
			break loop
		case lpAbnormal:
			log.Warningf("model %q: simplex did not converge at depth %d", s.m.name, n.depth)
			abnormal = true
			continue
		}
		if s.pruned(res.obj) {
			continue
		}
		j := s.branchVariable(res.x)
		if j < 0 {
			s.setIncumbent(res.x)
			continue
		}
		log.V(2).Infof("model %q: node %d depth %d bound %v branches on %s=%v",
			s.m.name, s.nodes, n.depth, res.obj, s.m.vars[j].name, res.x[j])
		down := append([]Bounds(nil), n.bounds...)
		down[j].Ub = math.Floor(res.x[j])
		up := append([]Bounds(nil), n.bounds...)
		up[j].Lb = math.Ceil(res.x[j])
		s.push(down, res.obj, n.depth+1)
		s.push(up, res.obj, n.depth+1)
	}

	bound := s.incumbentObj
	for _, v := range s.queue.Values() {
		bound = math.Min(bound, v.(*node).bound)
	}
	switch {
	case limited && s.incumbent != nil, abnormal && s.incumbent != nil:
		return s.response(StatusFeasible, bound)
	case limited:
		return s.response(StatusNotSolved, bound)
	case abnormal:
		return s.response(StatusAbnormal, bound)
	case s.incumbent != nil:
		return s.response(StatusOptimal, s.incumbentObj)
	}
	return s.response(StatusInfeasible, math.Inf(1))
}

func (s *search) response(status Status, bound float64) *Response {
	r := &Response{
		Status:             status,
		ObjectiveValue:     math.NaN(),
		BestObjectiveBound: bound + s.m.objOffset,
		Nodes:              s.nodes,
		Iterations:         s.iterations,
	}
	if s.incumbent != nil && status != StatusUnbounded {
		r.ObjectiveValue = s.incumbentObj + s.m.objOffset
		r.values = s.incumbent
	}
	return r
}
