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

package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	log "github.com/golang/glog"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/formulation"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/results"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// Item identifies one instance of a run. Configurations are counted from 0, instances from 1,
// as in the results table.
type Item struct {
	Dataset       string
	Configuration int
	Instance      int
}

func (it Item) String() string {
	return fmt.Sprintf("%s/%d/%d", it.Dataset, it.Configuration, it.Instance)
}

// Outcome is the result of solving one item with one formulation.
type Outcome struct {
	Item        Item
	Formulation string
	Result      formulation.Outcome
	// Err is the reason the item failed, or nil.
	Err error
}

// Report collects the outcomes of a run in the order they were produced.
type Report struct {
	Outcomes []Outcome
}

// Succeeded returns the number of outcomes without error.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of outcomes with an error.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d runs: %d succeeded, %d failed", len(r.Outcomes), r.Succeeded(), r.Failed())
	for _, o := range r.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(&sb, "\n  %v %s: %v", o.Item, o.Formulation, o.Err)
		}
	}
	return sb.String()
}

// Runner solves the items of a configuration and saves their rows to a repository.
type Runner struct {
	repo results.Repository
}

// NewRunner returns a runner saving to `repo`. The caller keeps ownership of `repo`.
func NewRunner(repo results.Repository) *Runner {
	return &Runner{repo: repo}
}

// Run solves every instance of every dataset of `cfg` with every configured formulation.
//
// A formulation that does not solve an instance optimally produces a failed Outcome and NULL
// columns; the run goes on. Invalid configurations, instances a formulation cannot encode,
// standard solutions that fail verification, repository errors and the cancellation of `ctx`
// stop the run and are returned along with the report so far.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limit, _ := cfg.timeLimit()
	runners := make([]formulation.Runner, len(cfg.Formulations))
	for i, name := range cfg.Formulations {
		fr, err := formulation.New(name, formulation.WithTimeLimit(limit))
		if err != nil {
			return nil, err
		}
		runners[i] = fr
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	report := &Report{}
	for _, d := range cfg.Datasets {
		for ci := range d.Configurations {
			for i := 1; i <= cfg.Instances; i++ {
				item := Item{Dataset: d.Name, Configuration: ci, Instance: i}
				inst, err := loadInstance(rng, d, ci, i)
				if err != nil {
					return report, fmt.Errorf("%v: %w", item, err)
				}
				log.Infof("Starting instance %d of configuration %d of dataset %s.", i, ci, d.Name)
				if err := r.runItem(ctx, cfg, runners, item, inst, report); err != nil {
					return report, err
				}
				log.Infof("Completed instance %d of configuration %d of dataset %s.", i, ci, d.Name)
			}
		}
	}
	return report, nil
}

func (r *Runner) runItem(ctx context.Context, cfg Config, runners []formulation.Runner, item Item, inst *schedule.Instance, report *Report) error {
	rec := results.NewRecord(item.Dataset, item.Configuration, item.Instance, inst)
	for _, fr := range runners {
		out, err := fr.Solve(ctx, inst, cfg.Standard, cfg.Relaxed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("%v %s: %w", item, fr.Name(), err)
		}
		if out.Standard.Resolved() {
			if err := out.Standard.Solution.Verify(); err != nil {
				return fmt.Errorf("%v %s: %w", item, fr.Name(), err)
			}
		}
		if err := rec.SetOutcome(fr.Name(), out); err != nil {
			return fmt.Errorf("%v: %w", item, err)
		}
		o := Outcome{Item: item, Formulation: fr.Name(), Result: out, Err: out.Err()}
		if o.Err != nil {
			log.Warningf("%v %s failed: %v", item, fr.Name(), o.Err)
		} else {
			log.V(1).Infof("%v %s: makespan %v, relaxed %v", item, fr.Name(), out.Standard.Makespan(), out.Relaxed.Makespan())
		}
		report.Outcomes = append(report.Outcomes, o)
	}
	return r.repo.Save(ctx, rec)
}

// InstancePath returns the file of instance `instance` of configuration `configuration`, both
// counted from 1, in `dir`.
func InstancePath(dir string, configuration, instance int) string {
	return filepath.Join(dir, fmt.Sprintf("data_%d_%d.txt", configuration, instance))
}

// loadInstance reads instance `i` of configuration `ci` of `d`, or generates it. Generated
// instances are written to the dataset's directory when it has one.
func loadInstance(rng *rand.Rand, d Dataset, ci, i int) (*schedule.Instance, error) {
	cc := d.Configurations[ci]
	path := ""
	if d.Dir != "" {
		path = InstancePath(d.Dir, ci+1, i)
		inst, err := schedule.ReadFile(path)
		if err == nil {
			return inst, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	setup, processing, err := cc.samplers()
	if err != nil {
		return nil, err
	}
	inst, err := schedule.Generate(rng, setup, processing, cc.Machines)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := os.MkdirAll(d.Dir, 0o755); err != nil {
			return nil, err
		}
		if err := schedule.WriteFile(path, inst, schedule.Describe(setup, processing, cc.Machines, i)); err != nil {
			return nil, err
		}
	}
	return inst, nil
}
