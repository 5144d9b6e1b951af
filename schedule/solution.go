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

package schedule

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/google/uuid"
)

// Tolerance is the slack allowed by Verify on every time comparison.
const Tolerance = 1e-4

var (
	// ErrInstanceMismatch holds the error when a solution is bound to another instance than the
	// one it was computed for.
	ErrInstanceMismatch = errors.New("solution belongs to another instance")
	// ErrNotBound holds the error when a solution without instance is verified.
	ErrNotBound = errors.New("solution is not bound to an instance")
	// ErrVerificationFailed is wrapped by every VerificationError.
	ErrVerificationFailed = errors.New("verification failed")
)

// Check names one of the feasibility checks of Verify.
type Check string

// Checks in the order Verify runs them.
const (
	CheckPermutation  Check = "permutation"
	CheckCompletion   Check = "completion"
	CheckServerOrder  Check = "server_order"
	CheckMachineOrder Check = "machine_order"
)

// VerificationError reports the first check a solution fails.
type VerificationError struct {
	Check  Check
	Detail string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrVerificationFailed, e.Check, e.Detail)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationFailed
}

// Interval is the start and completion time of a task. The task's setup begins at `Start`.
type Interval struct {
	Start float64
	End   float64
}

// Solution is a schedule for an instance: the order in which the server performs the setups
// and the time interval of every task.
type Solution struct {
	ServerOrder []int
	TaskTimes   map[int]Interval
	Makespan    float64
	SolveTime   time.Duration
	// Method tags the model variant that produced the solution. Empty for integral models.
	Method string

	uuid     uuid.UUID
	instance *Instance
}

// NewSolution creates a solution bound to `inst`, which may be nil.
func NewSolution(order []int, times map[int]Interval, makespan float64, inst *Instance) *Solution {
	s := &Solution{ServerOrder: order, TaskTimes: times, Makespan: makespan}
	if inst != nil {
		s.instance, s.uuid = inst, inst.UUID
	}
	return s
}

// Bind attaches the solution to `inst`. A solution computed for another instance cannot be
// bound.
func (s *Solution) Bind(inst *Instance) error {
	if s.uuid != uuid.Nil && s.uuid != inst.UUID {
		return fmt.Errorf("%w: solution is for %v, instance is %v", ErrInstanceMismatch, s.uuid, inst.UUID)
	}
	s.instance, s.uuid = inst, inst.UUID
	return nil
}

// Instance returns the instance the solution is bound to, or nil.
func (s *Solution) Instance() *Instance {
	return s.instance
}

// UUID returns the identifier of the instance the solution was computed for.
func (s *Solution) UUID() uuid.UUID {
	return s.uuid
}

// Defined reports whether the solution carries a server order. Solutions extracted from
// fractional assignments may not.
func (s *Solution) Defined() bool {
	return len(s.ServerOrder) > 0
}

// Verify checks, in order, that the server order is a permutation of the task ids, that every
// task completes exactly its setup and processing time after it starts, that the server never
// starts a setup before the previous one ended, and that every machine processes its tasks in
// order. It returns a *VerificationError for the first violation.
func (s *Solution) Verify() error {
	inst := s.instance
	if inst == nil {
		return ErrNotBound
	}

	ids := hashset.New()
	for _, id := range s.ServerOrder {
		ids.Add(id)
	}
	if len(s.ServerOrder) != len(inst.Tasks) || ids.Size() != len(inst.Tasks) {
		return &VerificationError{CheckPermutation, fmt.Sprintf("order %v does not visit the %d tasks once each", s.ServerOrder, len(inst.Tasks))}
	}
	for _, t := range inst.Tasks {
		if !ids.Contains(t.ID) {
			return &VerificationError{CheckPermutation, fmt.Sprintf("task %d is not in order %v", t.ID, s.ServerOrder)}
		}
	}

	for _, t := range inst.Tasks {
		iv, ok := s.TaskTimes[t.ID]
		if !ok {
			return &VerificationError{CheckCompletion, fmt.Sprintf("task %d has no time interval", t.ID)}
		}
		if want := iv.Start + t.S + t.P; math.Abs(iv.End-want) > Tolerance {
			return &VerificationError{CheckCompletion, fmt.Sprintf("task %d ends at %v, want %v", t.ID, iv.End, want)}
		}
	}

	for i := 1; i < len(s.ServerOrder); i++ {
		a, b := inst.Task(s.ServerOrder[i-1]), inst.Task(s.ServerOrder[i])
		if free := s.TaskTimes[a.ID].Start + a.S; free > s.TaskTimes[b.ID].Start+Tolerance {
			return &VerificationError{CheckServerOrder, fmt.Sprintf("task %d starts at %v while the server is busy with task %d until %v",
				b.ID, s.TaskTimes[b.ID].Start, a.ID, free)}
		}
	}

	for _, m := range inst.Machines {
		for i := 1; i < m.Len(); i++ {
			a, b := m.Task(i-1), m.Task(i)
			if end := s.TaskTimes[a.ID].End; end > s.TaskTimes[b.ID].Start+Tolerance {
				return &VerificationError{CheckMachineOrder, fmt.Sprintf("task %d starts at %v on machine %d before task %d ends at %v",
					b.ID, s.TaskTimes[b.ID].Start, m.ID, a.ID, end)}
			}
		}
	}
	return nil
}
