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
// The single_server_sample command solves a two-machine instance with the position-indexed,
// linear-order and time-indexed formulations and prints their schedules.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/formulation"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

func singleServerSample() error {
	// [START data]
	inst, err := schedule.NewInstance(
		[]*schedule.Task{{ID: 0, S: 1, P: 2}, {ID: 1, S: 1, P: 3}, {ID: 2, S: 1, P: 5}},
		[]*schedule.Machine{{Ordering: []int{0, 1}}, {Ordering: []int{2}}},
	)
	if err != nil {
		return fmt.Errorf("failed to create the instance: %w", err)
	}
	// [END data]

	for _, name := range formulation.Names() {
		solver, err := formulation.New(name, formulation.WithTimeLimit(30*time.Second))
		if err != nil {
			return err
		}
		out, err := solver.Solve(context.Background(), inst, true, true)
		if err != nil {
			return fmt.Errorf("failed to solve with %s: %w", name, err)
		}
		fmt.Printf("%s: status %v, makespan %v, relaxed makespan %v\n",
			name, out.Standard.Status, out.Standard.Makespan(), out.Relaxed.Makespan())

		sol, err := solver.Solution(false)
		if err != nil {
			fmt.Println("  No solution found.")
			continue
		}
		if err := sol.Verify(); err != nil {
			return fmt.Errorf("%s solution is infeasible: %w", name, err)
		}
		for _, id := range sol.ServerOrder {
			iv := sol.TaskTimes[id]
			fmt.Printf("  task %d: [%g, %g]\n", id, iv.Start, iv.End)
		}
	}
	return nil
}

func main() {
	if err := singleServerSample(); err != nil {
		log.Exitf("singleServerSample returned with error: %v", err)
	}
}

// [END program]
