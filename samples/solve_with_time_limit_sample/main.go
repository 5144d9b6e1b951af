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

// [START program]
// The solve_with_time_limit_sample command solves a small integer program with a time limit.
package main

import (
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
)

func solveWithTimeLimitSample() error {
	// [START model]
	model := linearsolver.NewModel("time_limit")
	x := model.NewVar(0, 10, linearsolver.Integer, "x")
	y := model.NewVar(0, 10, linearsolver.Integer, "y")
	z := model.NewVar(0, 10, linearsolver.Integer, "z")

	model.AddLessOrEqual(linearsolver.NewLinearExpr().AddTerm(x, 2).AddTerm(y, 7).AddTerm(z, 3), linearsolver.NewConstant(50))
	model.AddLessOrEqual(linearsolver.NewLinearExpr().AddTerm(x, 3).AddTerm(y, -5).AddTerm(z, 7), linearsolver.NewConstant(45))
	model.AddLessOrEqual(linearsolver.NewLinearExpr().AddTerm(x, 5).AddTerm(y, 2).AddTerm(z, -6), linearsolver.NewConstant(37))
	model.Minimize(linearsolver.NewLinearExpr().AddTerm(x, -2).AddTerm(y, -2).AddTerm(z, -3))
	// [END model]

	// [START solve]
	params := &linearsolver.Parameters{TimeLimit: 10 * time.Second}
	response, err := linearsolver.SolveModelWithParameters(model, params)
	if err != nil {
		return fmt.Errorf("failed to solve the model: %w", err)
	}
	// [END solve]

	switch response.Status {
	case linearsolver.StatusOptimal, linearsolver.StatusFeasible:
		fmt.Printf("status: %v, objective: %v, %d nodes\n", response.Status, response.ObjectiveValue, response.Nodes)
		fmt.Printf("x = %v\n", linearsolver.SolutionValue(response, x))
		fmt.Printf("y = %v\n", linearsolver.SolutionValue(response, y))
		fmt.Printf("z = %v\n", linearsolver.SolutionValue(response, z))
	default:
		fmt.Println("No solution found.")
	}
	return nil
}

func main() {
	if err := solveWithTimeLimitSample(); err != nil {
		log.Exitf("solveWithTimeLimitSample returned with error: %v", err)
	}
}

// [END program]
