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

// Package schedule holds the single-server scheduling instances and their solutions.
//
// An `Instance` is a set of tasks spread over machines. Each machine processes its tasks in a
// fixed order, and a single shared server performs the setup of every task, one at a time,
// before the task's processing may start on its machine. A `Solution` records the order in
// which the server visits the tasks together with the start and completion time of each task,
// and `Solution.Verify` checks it against its instance.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
)

// ErrInvalidInstance holds the error when an instance breaks its structural invariants.
var ErrInvalidInstance = errors.New("invalid instance")

// Task is a job with a setup duration `S`, performed by the server, followed by a processing
// duration `P` on its machine.
type Task struct {
	ID int
	S  float64
	P  float64
}

// Duration returns the setup plus processing duration of the task.
func (t *Task) Duration() float64 {
	return t.S + t.P
}

// Machine processes the tasks of `Ordering`, given by id, in that order.
type Machine struct {
	ID       int
	Ordering []int

	inst *Instance
}

// Len returns the number of tasks of the machine.
func (m *Machine) Len() int {
	return len(m.Ordering)
}

// Task returns the i-th task processed by the machine.
func (m *Machine) Task(i int) *Task {
	return m.inst.Task(m.Ordering[i])
}

// Load returns the total setup and processing duration of the tasks of the machine.
func (m *Machine) Load() float64 {
	load := 0.0
	for i := range m.Ordering {
		load += m.Task(i).Duration()
	}
	return load
}

// Instance is a single-server scheduling problem.
type Instance struct {
	Tasks    []*Task
	Machines []*Machine
	UUID     uuid.UUID
}

// NewInstance creates an instance with a fresh identifier. Machines are numbered in the given
// order.
func NewInstance(tasks []*Task, machines []*Machine) (*Instance, error) {
	inst := newInstance(tasks, machines)
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

func newInstance(tasks []*Task, machines []*Machine) *Instance {
	inst := &Instance{Tasks: tasks, Machines: machines, UUID: uuid.New()}
	inst.link()
	for i, m := range machines {
		m.ID = i
	}
	return inst
}

func (inst *Instance) link() {
	for _, m := range inst.Machines {
		m.inst = inst
	}
}

// Validate checks that task ids are exactly 0..n-1, that durations are finite and
// non-negative, and that every task appears exactly once over all machine orderings.
func (inst *Instance) Validate() error {
	n := len(inst.Tasks)
	seen := make([]bool, n)
	for _, t := range inst.Tasks {
		if t == nil {
			return fmt.Errorf("%w: nil task", ErrInvalidInstance)
		}
		if t.ID < 0 || t.ID >= n || seen[t.ID] {
			return fmt.Errorf("%w: task id %d is duplicated or outside [0, %d)", ErrInvalidInstance, t.ID, n)
		}
		seen[t.ID] = true
		if !validDuration(t.S) || !validDuration(t.P) {
			return fmt.Errorf("%w: task %d has durations s=%v p=%v", ErrInvalidInstance, t.ID, t.S, t.P)
		}
	}
	assigned := make([]bool, n)
	for _, m := range inst.Machines {
		if m == nil {
			return fmt.Errorf("%w: nil machine", ErrInvalidInstance)
		}
		for _, id := range m.Ordering {
			if id < 0 || id >= n {
				return fmt.Errorf("%w: machine %d orders unknown task %d", ErrInvalidInstance, m.ID, id)
			}
			if assigned[id] {
				return fmt.Errorf("%w: task %d is ordered twice", ErrInvalidInstance, id)
			}
			assigned[id] = true
		}
	}
	for id, ok := range assigned {
		if !ok {
			return fmt.Errorf("%w: task %d is on no machine", ErrInvalidInstance, id)
		}
	}
	return nil
}

func validDuration(d float64) bool {
	return d >= 0 && !math.IsInf(d, 1)
}

// Task returns the task with the given id, or nil if there is none.
func (inst *Instance) Task(id int) *Task {
	if id >= 0 && id < len(inst.Tasks) && inst.Tasks[id].ID == id {
		return inst.Tasks[id]
	}
	for _, t := range inst.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Horizon returns the sum of all setup and processing durations, the makespan of any schedule
// without idle time.
func (inst *Instance) Horizon() float64 {
	h := 0.0
	for _, t := range inst.Tasks {
		h += t.Duration()
	}
	return h
}

// MaxMachineLoad returns the largest total duration of the tasks of one machine.
func (inst *Instance) MaxMachineLoad() float64 {
	load := 0.0
	for _, m := range inst.Machines {
		load = math.Max(load, m.Load())
	}
	return load
}

// IntegralDurations reports whether every setup and processing duration is an integer.
func (inst *Instance) IntegralDurations() bool {
	for _, t := range inst.Tasks {
		if t.S != math.Trunc(t.S) || t.P != math.Trunc(t.P) {
			return false
		}
	}
	return true
}

// Reorder renumbers the tasks machine by machine in visiting order and sorts tasks and
// machines by id. Reordering a reordered instance leaves it unchanged.
func (inst *Instance) Reorder() error {
	if err := inst.Validate(); err != nil {
		return err
	}
	mapping := make([]int, len(inst.Tasks))
	next := 0
	for i, m := range inst.Machines {
		m.ID = i
		for j, id := range m.Ordering {
			mapping[id] = next
			m.Ordering[j] = next
			next++
		}
	}
	for _, t := range inst.Tasks {
		t.ID = mapping[t.ID]
	}
	sort.Slice(inst.Tasks, func(i, j int) bool { return inst.Tasks[i].ID < inst.Tasks[j].ID })
	sort.Slice(inst.Machines, func(i, j int) bool { return inst.Machines[i].ID < inst.Machines[j].ID })
	return nil
}

// Clone returns a deep copy of the instance with the same identifier.
func (inst *Instance) Clone() *Instance {
	c := &Instance{UUID: inst.UUID}
	for _, t := range inst.Tasks {
		tc := *t
		c.Tasks = append(c.Tasks, &tc)
	}
	for _, m := range inst.Machines {
		c.Machines = append(c.Machines, &Machine{ID: m.ID, Ordering: append([]int(nil), m.Ordering...)})
	}
	c.link()
	return c
}
