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
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidSampler holds the error when a sampler description cannot be parsed.
var ErrInvalidSampler = errors.New("invalid sampler")

// Sampler draws task durations.
type Sampler interface {
	Sample(rng *rand.Rand) float64
	String() string
}

// Fixed always returns the same duration.
type Fixed float64

// Sample returns the fixed duration.
func (f Fixed) Sample(*rand.Rand) float64 {
	return float64(f)
}

func (f Fixed) String() string {
	return strconv.FormatFloat(float64(f), 'g', -1, 64)
}

// Uniform draws integer durations uniformly from `[Lo, Hi]`, both ends included.
type Uniform struct {
	Lo int
	Hi int
}

// Sample returns a uniformly drawn integer duration.
func (u Uniform) Sample(rng *rand.Rand) float64 {
	return float64(u.Lo + rng.Intn(u.Hi-u.Lo+1))
}

func (u Uniform) String() string {
	return fmt.Sprintf("U[%d, %d]", u.Lo, u.Hi)
}

var uniformRe = regexp.MustCompile(`^U\s*[\(\[]\s*(\d+)\s*,\s*(\d+)\s*[\)\]]$`)

// ParseSampler parses a fixed duration such as "1" or a uniform range such as "U(0,5)" or
// "U[0, 5]".
func ParseSampler(s string) (Sampler, error) {
	s = strings.TrimSpace(s)
	if m := uniformRe.FindStringSubmatch(s); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			return nil, fmt.Errorf("%w: %q has an empty range", ErrInvalidSampler, s)
		}
		return Uniform{Lo: lo, Hi: hi}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !validDuration(f) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSampler, s)
	}
	return Fixed(f), nil
}

// Generate draws a random instance. Machine i processes the next `machineCounts[i]` task ids
// in increasing order.
func Generate(rng *rand.Rand, setup, processing Sampler, machineCounts []int) (*Instance, error) {
	var tasks []*Task
	var machines []*Machine
	for _, c := range machineCounts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative machine count %d", ErrInvalidInstance, c)
		}
		m := &Machine{}
		for k := 0; k < c; k++ {
			id := len(tasks)
			tasks = append(tasks, &Task{ID: id, S: setup.Sample(rng), P: processing.Sample(rng)})
			m.Ordering = append(m.Ordering, id)
		}
		machines = append(machines, m)
	}
	return NewInstance(tasks, machines)
}

// Describe returns the human-readable header written above generated instances.
func Describe(setup, processing Sampler, machineCounts []int, instance int) string {
	jobs := 0
	perMachine := make([]string, len(machineCounts))
	for i, c := range machineCounts {
		jobs += c
		perMachine[i] = fmt.Sprintf("n_%d=%d", i+1, c)
	}
	return fmt.Sprintf("Jobs: %d, Machines: %d\nSetup time: %v\nProcessing time: %v\nJobs per machine: %s\nInstance: %d",
		jobs, len(machineCounts), setup, processing, strings.Join(perMachine, " "), instance)
}
