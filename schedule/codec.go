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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

// Separator delimits the comment block of an instance file.
const Separator = "---------------"

// ErrInvalidFormat holds the error when an instance file cannot be decoded.
var ErrInvalidFormat = errors.New("invalid instance format")

// Write reorders the instance and writes it in the text format:
//
//	---------------
//	<comments>
//	---------------
//	<tasks> <machines>
//	<tasks of machine 1> ... <tasks of machine m>
//	<setup> <processing>     (one line per task, by id)
func Write(w io.Writer, inst *Instance, comments string) error {
	if err := inst.Reorder(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s\n%s\n", Separator, comments, Separator)
	fmt.Fprintf(bw, "%d %d\n", len(inst.Tasks), len(inst.Machines))
	counts := make([]string, len(inst.Machines))
	for i, m := range inst.Machines {
		counts[i] = strconv.Itoa(m.Len())
	}
	fmt.Fprintln(bw, strings.Join(counts, " "))
	for _, t := range inst.Tasks {
		fmt.Fprintf(bw, "%s %s\n", formatDuration(t.S), formatDuration(t.P))
	}
	return bw.Flush()
}

func formatDuration(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}

// Read decodes an instance written by Write. Task ids follow the line order and machines take
// consecutive ids according to their task counts.
func Read(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() ([]string, error) {
		for sc.Scan() {
			line++
			if f := strings.Fields(sc.Text()); len(f) > 0 {
				return f, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unexpected end of input after line %d", ErrInvalidFormat, line)
	}

	// The first line opens the comment block, which runs to the next separator.
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidFormat)
	}
	line++
	if strings.TrimSpace(sc.Text()) != Separator {
		return nil, fmt.Errorf("%w: line 1: want the opening separator %q", ErrInvalidFormat, Separator)
	}
	for {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: missing closing separator", ErrInvalidFormat)
		}
		line++
		if strings.TrimSpace(sc.Text()) == Separator {
			break
		}
	}

	header, err := next()
	if err != nil {
		return nil, err
	}
	dims, err := parseInts(header, line)
	if err != nil {
		return nil, err
	}
	if len(dims) != 2 || dims[0] < 0 || dims[1] < 0 {
		return nil, fmt.Errorf("%w: line %d: want `<tasks> <machines>`", ErrInvalidFormat, line)
	}
	n, m := dims[0], dims[1]

	var counts []int
	if m > 0 {
		f, err := next()
		if err != nil {
			return nil, err
		}
		if counts, err = parseInts(f, line); err != nil {
			return nil, err
		}
	}
	total := 0
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: line %d: negative task count", ErrInvalidFormat, line)
		}
		total += c
	}
	if len(counts) != m || total != n {
		return nil, fmt.Errorf("%w: line %d: %d machine counts summing to %d, want %d summing to %d",
			ErrInvalidFormat, line, len(counts), total, m, n)
	}

	tasks := make([]*Task, n)
	for i := range tasks {
		f, err := next()
		if err != nil {
			return nil, err
		}
		if len(f) != 2 {
			return nil, fmt.Errorf("%w: line %d: want `<setup> <processing>`", ErrInvalidFormat, line)
		}
		s, errS := strconv.ParseFloat(f[0], 64)
		p, errP := strconv.ParseFloat(f[1], 64)
		if errS != nil || errP != nil {
			return nil, fmt.Errorf("%w: line %d: bad durations %q", ErrInvalidFormat, line, sc.Text())
		}
		tasks[i] = &Task{ID: i, S: s, P: p}
	}
	machines := make([]*Machine, m)
	id := 0
	for i, c := range counts {
		machines[i] = &Machine{Ordering: make([]int, c)}
		for k := range machines[i].Ordering {
			machines[i].Ordering[k] = id
			id++
		}
	}
	return NewInstance(tasks, machines)
}

func parseInts(fields []string, line int) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q is not an integer", ErrInvalidFormat, line, f)
		}
		out[i] = v
	}
	return out, nil
}

// ReadFile reads an instance from the file at `path`.
func ReadFile(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	inst, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return inst, nil
}

// WriteFile writes the instance to the file at `path`, replacing it if it exists.
func WriteFile(path string, inst *Instance, comments string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, inst, comments); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.V(1).Infof("wrote instance %v with %d tasks to %s", inst.UUID, len(inst.Tasks), path)
	return nil
}
