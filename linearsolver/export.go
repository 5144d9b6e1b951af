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
	"strconv"
	"strings"
)

// ExportModelAsLpFormat outputs the model as a string in CPLEX LP format. Ranged constraints
// are written as two rows suffixed with `_lb` and `_ub`.
func ExportModelAsLpFormat(m *Model) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("cannot export an invalid model as LP format: %w", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\\ Model %s\n", m.name)
	sb.WriteString("Minimize\n obj:")
	writeTerms(&sb, m, m.objective)
	if m.objOffset != 0 {
		sb.WriteString(" " + signed(m.objOffset))
	}
	sb.WriteString("\nSubject To\n")
	for i, c := range m.constraints {
		name := c.name
		if name == "" {
			name = fmt.Sprintf("c%d", i)
		}
		lo, hi := !math.IsInf(c.bounds.Lb, 0), !math.IsInf(c.bounds.Ub, 0)
		switch {
		case lo && hi && c.bounds.Lb == c.bounds.Ub:
			writeRow(&sb, m, name, c.terms, "=", c.bounds.Lb)
		case lo && hi:
			writeRow(&sb, m, name+"_lb", c.terms, ">=", c.bounds.Lb)
			writeRow(&sb, m, name+"_ub", c.terms, "<=", c.bounds.Ub)
		case lo:
			writeRow(&sb, m, name, c.terms, ">=", c.bounds.Lb)
		case hi:
			writeRow(&sb, m, name, c.terms, "<=", c.bounds.Ub)
		}
	}
	sb.WriteString("Bounds\n")
	var generals, binaries []string
	for _, v := range m.vars {
		switch {
		case v.typ == Binary:
			binaries = append(binaries, v.name)
			if v.bounds == (Bounds{0, 1}) {
				continue
			}
		case v.typ == Integer:
			generals = append(generals, v.name)
		}
		if math.IsInf(v.bounds.Ub, 1) {
			fmt.Fprintf(&sb, " %s >= %s\n", v.name, num(v.bounds.Lb))
		} else {
			fmt.Fprintf(&sb, " %s <= %s <= %s\n", num(v.bounds.Lb), v.name, num(v.bounds.Ub))
		}
	}
	if len(generals) > 0 {
		sb.WriteString("Generals\n " + strings.Join(generals, " ") + "\n")
	}
	if len(binaries) > 0 {
		sb.WriteString("Binaries\n " + strings.Join(binaries, " ") + "\n")
	}
	sb.WriteString("End\n")
	return sb.String(), nil
}

func writeRow(sb *strings.Builder, m *Model, name string, terms []varCoeff, sense string, rhs float64) {
	fmt.Fprintf(sb, " %s:", name)
	writeTerms(sb, m, terms)
	fmt.Fprintf(sb, " %s %s\n", sense, num(rhs))
}

func writeTerms(sb *strings.Builder, m *Model, terms []varCoeff) {
	if len(terms) == 0 {
		sb.WriteString(" 0")
		return
	}
	for _, vc := range terms {
		fmt.Fprintf(sb, " %s %s", signed(vc.coeff), m.vars[vc.ind].name)
	}
}

// signed formats `v` with an explicit sign separated by a space, e.g. "+ 2" or "- 0.5".
func signed(v float64) string {
	if v < 0 {
		return "- " + num(-v)
	}
	return "+ " + num(v)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
