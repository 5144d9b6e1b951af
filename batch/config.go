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

// Package batch solves datasets of generated or stored instances with every configured
// formulation and stores one results row per instance.
package batch

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/formulation"
	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/schedule"
)

// ErrInvalidConfig holds the error when a batch configuration cannot be run.
var ErrInvalidConfig = errors.New("invalid batch configuration")

// Configuration describes how the instances of one configuration are generated.
type Configuration struct {
	Setup      string `yaml:"setup"`      // e.g. "1" or "U(1,3)"
	Processing string `yaml:"processing"` // e.g. "U(0,5)"
	Machines   []int  `yaml:"machines"`   // jobs per machine
}

// Dataset is a named list of configurations. Instance i of configuration c is stored in
// `Dir/data_<c>_<i>.txt`, both counted from 1; it is read when present and generated and
// written otherwise. Without Dir, instances are generated and not stored.
type Dataset struct {
	Name           string          `yaml:"name"`
	Dir            string          `yaml:"dir"`
	Configurations []Configuration `yaml:"configurations"`
}

// Config mirrors the batch YAML file.
type Config struct {
	Datasets     []Dataset `yaml:"datasets"`
	Instances    int       `yaml:"instances"`    // per configuration, 10 by default
	Formulations []string  `yaml:"formulations"` // piv, lov and tiv by default
	Standard     bool      `yaml:"standard"`     // true by default
	Relaxed      bool      `yaml:"relaxed"`      // true by default
	TimeLimit    string    `yaml:"time_limit"`   // per phase, "600s" by default
	Database     string    `yaml:"database"`     // "results.db" by default
	Seed         int64     `yaml:"seed"`
}

// DefaultConfig returns a small dataset solved by every formulation.
func DefaultConfig() Config {
	return Config{
		Datasets: []Dataset{{
			Name: "I",
			Configurations: []Configuration{
				{Setup: "1", Processing: "U(0,3)", Machines: []int{2, 2}},
				{Setup: "U(1,2)", Processing: "U(0,3)", Machines: []int{2, 1, 1}},
			},
		}},
		Instances:    10,
		Formulations: formulation.Names(),
		Standard:     true,
		Relaxed:      true,
		TimeLimit:    formulation.DefaultTimeLimit.String(),
		Database:     "results.db",
		Seed:         1,
	}
}

// ParseConfig decodes a YAML configuration over the defaults and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads the YAML configuration at `path`. An empty path selects the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the formulation names, the samplers, the machine counts and the time limit.
func (c Config) Validate() error {
	if c.Instances <= 0 {
		return fmt.Errorf("%w: instances = %d, want > 0", ErrInvalidConfig, c.Instances)
	}
	if len(c.Formulations) == 0 {
		return fmt.Errorf("%w: no formulations", ErrInvalidConfig)
	}
	for _, name := range c.Formulations {
		if _, err := formulation.New(name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := c.timeLimit(); err != nil {
		return err
	}
	for _, d := range c.Datasets {
		if d.Name == "" {
			return fmt.Errorf("%w: unnamed dataset", ErrInvalidConfig)
		}
		for i, cc := range d.Configurations {
			if _, _, err := cc.samplers(); err != nil {
				return fmt.Errorf("%w: dataset %s configuration %d: %v", ErrInvalidConfig, d.Name, i+1, err)
			}
			if len(cc.Machines) == 0 {
				return fmt.Errorf("%w: dataset %s configuration %d has no machines", ErrInvalidConfig, d.Name, i+1)
			}
			for _, n := range cc.Machines {
				if n < 0 {
					return fmt.Errorf("%w: dataset %s configuration %d has a negative machine size", ErrInvalidConfig, d.Name, i+1)
				}
			}
		}
	}
	return nil
}

func (c Config) timeLimit() (time.Duration, error) {
	d, err := time.ParseDuration(c.TimeLimit)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: time_limit %q is not a positive duration", ErrInvalidConfig, c.TimeLimit)
	}
	return d, nil
}

func (c Configuration) samplers() (setup, processing schedule.Sampler, err error) {
	if setup, err = schedule.ParseSampler(c.Setup); err != nil {
		return nil, nil, err
	}
	if processing, err = schedule.ParseSampler(c.Processing); err != nil {
		return nil, nil, err
	}
	return setup, processing, nil
}
