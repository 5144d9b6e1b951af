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

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// feasTol is the tolerance on row and bound feasibility.
	feasTol = 1e-7
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
	// costTol is the reduced cost below which a column may enter the basis.
	costTol = 1e-9
	// zeroTol is used to detect degenerate steps and equal ratios.
	zeroTol = 1e-12
	// degenerateLimit is the number of consecutive degenerate pivots after which Bland's rule
	// replaces Dantzig's rule for the rest of the phase.
	degenerateLimit = 50
	// checkEvery is the number of pivots between two checks of the limits.
	checkEvery = 32
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpLimit
	lpAbnormal
)

// lpProblem is a linear program: minimize `cost`·x subject to the ranged rows and the variable
// bounds. Every lower bound must be finite.
type lpProblem struct {
	cost   []float64
	rows   []constraint
	bounds []Bounds
}

type lpResult struct {
	status     lpStatus
	x          []float64
	obj        float64
	iterations int64
}

// stdRow is one equality row of the standard form, before sign normalization.
type stdRow struct {
	cols  []int
	coefs []float64
	// slack is +1 for `<=` rows, -1 for `>=` rows and 0 for equalities.
	slack float64
	rhs   float64
}

// tableau is a dense simplex tableau in canonical form with respect to `basis`.
type tableau struct {
	t     *mat.Dense
	rhs   []float64
	basis []int
	// d holds the reduced costs of the current phase and z its objective value.
	d []float64
	z float64
	// artStart is the first artificial column; artificial columns never re-enter.
	artStart   int
	iterations int64
	bland      bool
}

// solveLP solves the linear program with a two-phase primal simplex. Rows with a single term are
// turned into bounds and fixed variables are substituted before the tableau is built.
func solveLP(p *lpProblem, lim *limits) lpResult {
	n := len(p.cost)
	bounds := append([]Bounds(nil), p.bounds...)

	var multi []constraint
	for _, r := range p.rows {
		switch len(r.terms) {
		case 0:
			if !r.bounds.Contains(0, feasTol) {
				return lpResult{status: lpInfeasible}
			}
		case 1:
			vc := r.terms[0]
			bounds[vc.ind] = bounds[vc.ind].Intersect(r.bounds.Scale(1 / vc.coeff))
		default:
			multi = append(multi, r)
		}
	}

	// Columns of the standard form are the shifted free variables x' = x - lb >= 0.
	col := make([]int, n)
	value := make([]float64, n)
	ns := 0
	for j, b := range bounds {
		if b.Empty(feasTol) {
			return lpResult{status: lpInfeasible}
		}
		if math.IsInf(b.Lb, 0) {
			return lpResult{status: lpAbnormal}
		}
		value[j] = b.Lb
		if b.Ub-b.Lb <= zeroTol {
			col[j] = -1
			continue
		}
		col[j] = ns
		ns++
	}

	var rows []stdRow
	for _, r := range multi {
		shift := 0.0
		var cols []int
		var coefs []float64
		for _, vc := range r.terms {
			shift += vc.coeff * value[vc.ind]
			if c := col[vc.ind]; c >= 0 {
				cols = append(cols, c)
				coefs = append(coefs, vc.coeff)
			}
		}
		if len(cols) == 0 {
			if !r.bounds.Contains(shift, feasTol) {
				return lpResult{status: lpInfeasible}
			}
			continue
		}
		rb := r.bounds.Offset(-shift)
		finiteLo, finiteHi := !math.IsInf(rb.Lb, 0), !math.IsInf(rb.Ub, 0)
		if finiteLo && finiteHi && rb.Ub-rb.Lb <= zeroTol {
			rows = append(rows, stdRow{cols: cols, coefs: coefs, rhs: rb.Lb})
			continue
		}
		if finiteHi {
			rows = append(rows, stdRow{cols: cols, coefs: coefs, slack: 1, rhs: rb.Ub})
		}
		if finiteLo {
			rows = append(rows, stdRow{cols: cols, coefs: coefs, slack: -1, rhs: rb.Lb})
		}
	}
	for j, b := range bounds {
		if c := col[j]; c >= 0 && !math.IsInf(b.Ub, 1) {
			rows = append(rows, stdRow{cols: []int{c}, coefs: []float64{1}, slack: 1, rhs: b.Ub - b.Lb})
		}
	}

	cost := make([]float64, ns)
	for j, c := range p.cost {
		if col[j] >= 0 {
			cost[col[j]] = c
		}
	}

	if len(rows) == 0 {
		return solveUnconstrained(p, bounds, col, value)
	}

	tb := newTableau(rows, ns)
	if tb.artStart < tb.numCols() {
		tb.setArtificialCosts()
		if st := tb.iterate(lim, tb.numCols()); st != lpOptimal {
			if st == lpUnbounded {
				// Phase I is bounded below by zero.
				st = lpAbnormal
			}
			return lpResult{status: st, iterations: tb.iterations}
		}
		if tb.z > feasTol*math.Max(1, floats.Norm(tb.rhs, math.Inf(1))) {
			return lpResult{status: lpInfeasible, iterations: tb.iterations}
		}
		tb.driveOutArtificials()
	}
	tb.setCosts(cost)
	tb.bland = false
	if st := tb.iterate(lim, tb.artStart); st != lpOptimal {
		return lpResult{status: st, iterations: tb.iterations}
	}

	xs := make([]float64, tb.numCols())
	for i, b := range tb.basis {
		xs[b] = tb.rhs[i]
	}
	x := make([]float64, n)
	obj := 0.0
	for j := range x {
		x[j] = value[j]
		if c := col[j]; c >= 0 {
			x[j] = math.Min(math.Max(value[j]+xs[c], bounds[j].Lb), bounds[j].Ub)
		}
		obj += p.cost[j] * x[j]
	}
	return lpResult{status: lpOptimal, x: x, obj: obj, iterations: tb.iterations}
}

// solveUnconstrained handles problems whose only restrictions are variable bounds.
func solveUnconstrained(p *lpProblem, bounds []Bounds, col []int, value []float64) lpResult {
	x := make([]float64, len(value))
	obj := 0.0
	for j := range x {
		x[j] = value[j]
		if col[j] >= 0 && p.cost[j] < -costTol {
			if math.IsInf(bounds[j].Ub, 1) {
				return lpResult{status: lpUnbounded}
			}
			x[j] = bounds[j].Ub
		}
		obj += p.cost[j] * x[j]
	}
	return lpResult{status: lpOptimal, x: x, obj: obj}
}

// newTableau lays out the structural, slack and artificial columns of the rows. Rows are
// normalized to a non-negative right-hand side, and each row starts with either its slack or an
// artificial variable in the basis.
func newTableau(rows []stdRow, ns int) *tableau {
	nSlack, nArt := 0, 0
	for i := range rows {
		r := &rows[i]
		if r.rhs < 0 {
			floats.Scale(-1, r.coefs)
			r.slack, r.rhs = -r.slack, -r.rhs
		}
		if r.slack != 0 {
			nSlack++
		}
		if r.slack != 1 {
			nArt++
		}
	}
	m := len(rows)
	artStart := ns + nSlack
	tb := &tableau{
		t:        mat.NewDense(m, artStart+nArt, nil),
		rhs:      make([]float64, m),
		basis:    make([]int, m),
		artStart: artStart,
	}
	slack, art := ns, artStart
	for i, r := range rows {
		row := tb.t.RawRowView(i)
		for k, c := range r.cols {
			row[c] += r.coefs[k]
		}
		tb.rhs[i] = r.rhs
		if r.slack != 0 {
			row[slack] = r.slack
			if r.slack == 1 {
				tb.basis[i] = slack
			}
			slack++
		}
		if r.slack != 1 {
			row[art] = 1
			tb.basis[i] = art
			art++
		}
	}
	return tb
}

func (tb *tableau) numCols() int {
	_, c := tb.t.Dims()
	return c
}

// setArtificialCosts installs the phase I objective: the sum of the artificial variables.
func (tb *tableau) setArtificialCosts() {
	cost := make([]float64, tb.numCols())
	for j := tb.artStart; j < len(cost); j++ {
		cost[j] = 1
	}
	tb.setCosts(cost)
}

// setCosts computes the reduced costs and objective value of `cost` for the current basis. Costs
// of columns beyond len(cost) are zero.
func (tb *tableau) setCosts(cost []float64) {
	d := make([]float64, tb.numCols())
	copy(d, cost)
	z := 0.0
	for i, b := range tb.basis {
		var cb float64
		if b < len(cost) {
			cb = cost[b]
		}
		if cb == 0 {
			continue
		}
		floats.AddScaled(d, -cb, tb.t.RawRowView(i))
		z += cb * tb.rhs[i]
	}
	for _, b := range tb.basis {
		d[b] = 0
	}
	tb.d, tb.z = d, z
}

// iterate pivots until no column below `limit` has a negative reduced cost.
func (tb *tableau) iterate(lim *limits, limit int) lpStatus {
	m, n := tb.t.Dims()
	maxIterations := int64(50*(m+n) + 1000)
	start := tb.iterations
	degenerate := 0
	for {
		if (tb.iterations-start)%checkEvery == 0 && lim.reached() {
			return lpLimit
		}
		if tb.iterations-start > maxIterations {
			return lpAbnormal
		}
		q := tb.entering(limit)
		if q < 0 {
			return lpOptimal
		}
		r := tb.leaving(q)
		if r < 0 {
			return lpUnbounded
		}
		if tb.rhs[r] <= zeroTol {
			degenerate++
			if degenerate > degenerateLimit {
				tb.bland = true
			}
		} else {
			degenerate = 0
		}
		tb.pivot(r, q)
		tb.iterations++
	}
}

func (tb *tableau) entering(limit int) int {
	best, q := -costTol, -1
	for j := 0; j < limit; j++ {
		if tb.d[j] < best {
			if tb.bland {
				return j
			}
			best, q = tb.d[j], j
		}
	}
	return q
}

func (tb *tableau) leaving(q int) int {
	m, _ := tb.t.Dims()
	r := -1
	var bestRatio, bestPivot float64
	for i := 0; i < m; i++ {
		a := tb.t.At(i, q)
		if a <= pivotTol {
			continue
		}
		ratio := tb.rhs[i] / a
		switch {
		case r < 0, ratio < bestRatio-zeroTol:
		case ratio <= bestRatio+zeroTol && tb.bland && tb.basis[i] < tb.basis[r]:
		case ratio <= bestRatio+zeroTol && !tb.bland && a > bestPivot:
		default:
			continue
		}
		r, bestRatio, bestPivot = i, ratio, a
	}
	return r
}

func (tb *tableau) pivot(r, q int) {
	m, _ := tb.t.Dims()
	rowR := tb.t.RawRowView(r)
	p := rowR[q]
	floats.Scale(1/p, rowR)
	rowR[q] = 1
	tb.rhs[r] /= p
	for i := 0; i < m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		f := row[q]
		if f == 0 {
			continue
		}
		floats.AddScaled(row, -f, rowR)
		row[q] = 0
		tb.rhs[i] -= f * tb.rhs[r]
		if tb.rhs[i] < 0 && tb.rhs[i] > -feasTol {
			tb.rhs[i] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		tb.z += f * tb.rhs[r]
		floats.AddScaled(tb.d, -f, rowR)
		tb.d[q] = 0
	}
	tb.basis[r] = q
}

// driveOutArtificials pivots basic artificial variables, all at zero after a successful phase I,
// out of the basis. Rows where no other column can replace them are redundant and keep them.
func (tb *tableau) driveOutArtificials() {
	for i, b := range tb.basis {
		if b < tb.artStart {
			continue
		}
		tb.rhs[i] = 0
		row := tb.t.RawRowView(i)
		q, best := -1, pivotTol
		for j := 0; j < tb.artStart; j++ {
			if a := math.Abs(row[j]); a > best {
				q, best = j, a
			}
		}
		if q >= 0 {
			tb.pivot(i, q)
		}
	}
}
