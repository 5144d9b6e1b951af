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

// Package results stores the outcome of solving batches of scheduling instances, one row per
// instance with the makespan and runtime of every formulation and of its relaxation.
package results

import (
	"errors"
	"fmt"
	"time"

	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/formulation"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gorm.io/gorm"
)

// ErrUnknownFormulation holds the error when an outcome is recorded for a formulation that has
// no columns.
var ErrUnknownFormulation = errors.New("no columns for formulation")

// Record is one row of the results table. Columns of phases that were not requested or that
// did not end optimal are NULL.
type Record struct {
	Configuration int    `gorm:"column:configuration;primaryKey;autoIncrement:false"`
	Instance      int    `gorm:"column:instance;primaryKey;autoIncrement:false"`
	Dataset       string `gorm:"column:dataset;primaryKey"`

	MakespanPIV  *float64 `gorm:"column:makespan_piv"`
	RuntimePIV   *float64 `gorm:"column:runtime_piv"`
	MakespanPIVR *float64 `gorm:"column:makespan_piv_r"`
	RuntimePIVR  *float64 `gorm:"column:runtime_piv_r"`

	MakespanLOV  *float64 `gorm:"column:makespan_lov"`
	RuntimeLOV   *float64 `gorm:"column:runtime_lov"`
	MakespanLOVR *float64 `gorm:"column:makespan_lov_r"`
	RuntimeLOVR  *float64 `gorm:"column:runtime_lov_r"`

	MakespanTIV  *float64 `gorm:"column:makespan_tiv"`
	RuntimeTIV   *float64 `gorm:"column:runtime_tiv"`
	MethodTIV    *string  `gorm:"column:method_tiv"`
	MakespanTIVR *float64 `gorm:"column:makespan_tiv_r"`
	RuntimeTIVR  *float64 `gorm:"column:runtime_tiv_r"`
	MethodTIVR   *string  `gorm:"column:method_tiv_r"`

	MaxTotMachineTime float64 `gorm:"column:max_tot_machine_time"`

	// Detail is the protojson encoding of the standard solutions, keyed by formulation.
	Detail string `gorm:"column:detail;type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	solutions map[string]*structpb.Value
}

// TableName names the table of Record.
func (Record) TableName() string {
	return "results"
}

// NewRecord returns an empty row for instance `instance` of configuration `configuration` of
// `dataset`.
func NewRecord(dataset string, configuration, instance int, inst *schedule.Instance) *Record {
	return &Record{
		Configuration:     configuration,
		Instance:          instance,
		Dataset:           dataset,
		MaxTotMachineTime: inst.MaxMachineLoad(),
	}
}

type phaseColumns struct {
	makespan **float64
	runtime  **float64
	method   **string
}

func (r *Record) columns(name string, phase formulation.Phase) (phaseColumns, error) {
	relaxed := phase == formulation.PhaseRelaxed
	switch {
	case name == formulation.PIV && !relaxed:
		return phaseColumns{makespan: &r.MakespanPIV, runtime: &r.RuntimePIV}, nil
	case name == formulation.PIV:
		return phaseColumns{makespan: &r.MakespanPIVR, runtime: &r.RuntimePIVR}, nil
	case name == formulation.LOV && !relaxed:
		return phaseColumns{makespan: &r.MakespanLOV, runtime: &r.RuntimeLOV}, nil
	case name == formulation.LOV:
		return phaseColumns{makespan: &r.MakespanLOVR, runtime: &r.RuntimeLOVR}, nil
	case name == formulation.TIV && !relaxed:
		return phaseColumns{makespan: &r.MakespanTIV, runtime: &r.RuntimeTIV, method: &r.MethodTIV}, nil
	case name == formulation.TIV:
		return phaseColumns{makespan: &r.MakespanTIVR, runtime: &r.RuntimeTIVR, method: &r.MethodTIVR}, nil
	}
	return phaseColumns{}, fmt.Errorf("%w %q", ErrUnknownFormulation, name)
}

// SetOutcome fills the columns of formulation `name` from `out`. The runtime of a requested
// phase is recorded even when it did not end optimal; its makespan and method are not.
func (r *Record) SetOutcome(name string, out formulation.Outcome) error {
	phases := []struct {
		phase formulation.Phase
		out   formulation.PhaseOutcome
	}{
		{formulation.PhaseStandard, out.Standard},
		{formulation.PhaseRelaxed, out.Relaxed},
	}
	for _, ph := range phases {
		p := ph.out
		cols, err := r.columns(name, ph.phase)
		if err != nil {
			return err
		}
		*cols.makespan, *cols.runtime = nil, nil
		if cols.method != nil {
			*cols.method = nil
		}
		if !p.Requested {
			continue
		}
		runtime := p.WallTime.Seconds()
		*cols.runtime = &runtime
		if !p.Resolved() {
			continue
		}
		makespan := p.Makespan()
		*cols.makespan = &makespan
		if cols.method != nil {
			method := p.Solution.Method
			*cols.method = &method
		}
		if ph.phase == formulation.PhaseStandard {
			st, err := p.Solution.Proto()
			if err != nil {
				return fmt.Errorf("encoding %s solution: %w", name, err)
			}
			if r.solutions == nil {
				r.solutions = map[string]*structpb.Value{}
			}
			r.solutions[name] = structpb.NewStructValue(st)
		}
	}
	return nil
}

// BeforeSave encodes the solutions set by SetOutcome into Detail.
func (r *Record) BeforeSave(*gorm.DB) error {
	if len(r.solutions) == 0 {
		return nil
	}
	b, err := protojson.Marshal(&structpb.Struct{Fields: r.solutions})
	if err != nil {
		return fmt.Errorf("encoding detail: %w", err)
	}
	r.Detail = string(b)
	return nil
}

// Solutions decodes the standard solutions stored in Detail and binds them to `inst`.
func (r *Record) Solutions(inst *schedule.Instance) (map[string]*schedule.Solution, error) {
	out := map[string]*schedule.Solution{}
	if r.Detail == "" {
		return out, nil
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(r.Detail), st); err != nil {
		return nil, fmt.Errorf("decoding detail: %w", err)
	}
	for name, v := range st.GetFields() {
		sol, err := schedule.SolutionFromProto(v.GetStructValue(), inst)
		if err != nil {
			return nil, fmt.Errorf("decoding %s solution: %w", name, err)
		}
		out[name] = sol
	}
	return out, nil
}
