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
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidEncoding holds the error when a structured encoding misses a field or has a field
// of the wrong kind.
var ErrInvalidEncoding = errors.New("invalid encoding")

// Proto encodes the instance as a protobuf Struct with the fields `uuid`, `tasks` (objects with
// `id`, `s`, `p`) and `machines` (objects with `id`, `ordering`).
func (inst *Instance) Proto() (*structpb.Struct, error) {
	tasks := make([]any, len(inst.Tasks))
	for i, t := range inst.Tasks {
		tasks[i] = map[string]any{"id": t.ID, "s": t.S, "p": t.P}
	}
	machines := make([]any, len(inst.Machines))
	for i, m := range inst.Machines {
		machines[i] = map[string]any{"id": m.ID, "ordering": intList(m.Ordering)}
	}
	return structpb.NewStruct(map[string]any{
		"uuid":     inst.UUID.String(),
		"tasks":    tasks,
		"machines": machines,
	})
}

// InstanceFromProto decodes an instance encoded by Instance.Proto and validates it.
func InstanceFromProto(st *structpb.Struct) (*Instance, error) {
	fields := st.GetFields()
	id, err := uuid.Parse(fields["uuid"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: uuid: %v", ErrInvalidEncoding, err)
	}
	inst := &Instance{UUID: id}
	for _, v := range fields["tasks"].GetListValue().GetValues() {
		tf := v.GetStructValue().GetFields()
		if tf == nil {
			return nil, fmt.Errorf("%w: task is not an object", ErrInvalidEncoding)
		}
		inst.Tasks = append(inst.Tasks, &Task{
			ID: int(tf["id"].GetNumberValue()),
			S:  tf["s"].GetNumberValue(),
			P:  tf["p"].GetNumberValue(),
		})
	}
	for _, v := range fields["machines"].GetListValue().GetValues() {
		mf := v.GetStructValue().GetFields()
		if mf == nil {
			return nil, fmt.Errorf("%w: machine is not an object", ErrInvalidEncoding)
		}
		inst.Machines = append(inst.Machines, &Machine{
			ID:       int(mf["id"].GetNumberValue()),
			Ordering: fromIntList(mf["ordering"]),
		})
	}
	inst.link()
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Proto encodes the solution as a protobuf Struct. Task times are keyed by the decimal task id
// and hold `[start, end]` pairs.
func (s *Solution) Proto() (*structpb.Struct, error) {
	times := make(map[string]any, len(s.TaskTimes))
	for id, iv := range s.TaskTimes {
		times[strconv.Itoa(id)] = []any{iv.Start, iv.End}
	}
	return structpb.NewStruct(map[string]any{
		"server_order": intList(s.ServerOrder),
		"task_times":   times,
		"makespan":     s.Makespan,
		"solve_time":   s.SolveTime.Seconds(),
		"method":       s.Method,
		"uuid":         s.uuid.String(),
	})
}

// SolutionFromProto decodes a solution encoded by Solution.Proto and binds it to `inst` when
// `inst` is not nil.
func SolutionFromProto(st *structpb.Struct, inst *Instance) (*Solution, error) {
	fields := st.GetFields()
	id, err := uuid.Parse(fields["uuid"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: uuid: %v", ErrInvalidEncoding, err)
	}
	sol := &Solution{
		ServerOrder: fromIntList(fields["server_order"]),
		TaskTimes:   make(map[int]Interval),
		Makespan:    fields["makespan"].GetNumberValue(),
		SolveTime:   time.Duration(fields["solve_time"].GetNumberValue() * float64(time.Second)),
		Method:      fields["method"].GetStringValue(),
		uuid:        id,
	}
	for k, v := range fields["task_times"].GetStructValue().GetFields() {
		task, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: task id %q", ErrInvalidEncoding, k)
		}
		pair := v.GetListValue().GetValues()
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: task %d has %d times, want 2", ErrInvalidEncoding, task, len(pair))
		}
		sol.TaskTimes[task] = Interval{Start: pair[0].GetNumberValue(), End: pair[1].GetNumberValue()}
	}
	if inst != nil {
		if err := sol.Bind(inst); err != nil {
			return nil, err
		}
	}
	return sol, nil
}

func intList(ids []int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func fromIntList(v *structpb.Value) []int {
	vals := v.GetListValue().GetValues()
	out := make([]int, len(vals))
	for i, e := range vals {
		out[i] = int(e.GetNumberValue())
	}
	return out
}
