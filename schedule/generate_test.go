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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSampler(t *testing.T) {
	testCases := []struct {
		in   string
		want Sampler
	}{
		{in: "1", want: Fixed(1)},
		{in: " 2.5 ", want: Fixed(2.5)},
		{in: "U(0,5)", want: Uniform{Lo: 0, Hi: 5}},
		{in: "U[1, 3]", want: Uniform{Lo: 1, Hi: 3}},
	}
	for _, test := range testCases {
		got, err := ParseSampler(test.in)
		if err != nil {
			t.Errorf("ParseSampler(%q) err = %v, want nil", test.in, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("ParseSampler(%q) returned with unexpected diff (-want+got);\n%s", test.in, diff)
		}
	}
	for _, in := range []string{"", "-1", "U(3,1)", "V(1,2)", "U(1)"} {
		if _, err := ParseSampler(in); !errors.Is(err, ErrInvalidSampler) {
			t.Errorf("ParseSampler(%q) err = %v, want %v", in, err, ErrInvalidSampler)
		}
	}
}

func TestUniform_Sample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u := Uniform{Lo: 2, Hi: 4}
	seen := map[float64]bool{}
	for i := 0; i < 200; i++ {
		v := u.Sample(rng)
		if v < 2 || v > 4 || v != float64(int(v)) {
			t.Fatalf("Sample() = %v, want an integer in [2, 4]", v)
		}
		seen[v] = true
	}
	if len(seen) != 3 {
		t.Errorf("Sample() drew %v, want all of 2, 3 and 4", seen)
	}
}

func TestGenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	inst, err := Generate(rng, Fixed(1), Uniform{Lo: 0, Hi: 9}, []int{3, 2})
	if err != nil {
		t.Fatalf("Generate() err = %v, want nil", err)
	}
	if got, want := len(inst.Tasks), 5; got != want {
		t.Fatalf("Generate() returned %d tasks, want %d", got, want)
	}
	want := [][]int{{0, 1, 2}, {3, 4}}
	for i, m := range inst.Machines {
		if diff := cmp.Diff(want[i], m.Ordering); diff != "" {
			t.Errorf("Machines[%d].Ordering returned with unexpected diff (-want+got);\n%s", i, diff)
		}
	}
	for _, task := range inst.Tasks {
		if task.S != 1 || task.P < 0 || task.P > 9 {
			t.Errorf("task %d has s=%v p=%v, want s=1 and p in [0, 9]", task.ID, task.S, task.P)
		}
	}

	again, err := Generate(rand.New(rand.NewSource(7)), Fixed(1), Uniform{Lo: 0, Hi: 9}, []int{3, 2})
	if err != nil {
		t.Fatalf("Generate() err = %v, want nil", err)
	}
	if diff := cmp.Diff(inst.Tasks, again.Tasks); diff != "" {
		t.Errorf("Generate() with the same seed returned with unexpected diff (-want+got);\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	got := Describe(Fixed(1), Uniform{Lo: 0, Hi: 5}, []int{10, 10, 10}, 3)
	want := "Jobs: 30, Machines: 3\n" +
		"Setup time: 1\n" +
		"Processing time: U[0, 5]\n" +
		"Jobs per machine: n_1=10 n_2=10 n_3=10\n" +
		"Instance: 3"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Describe() returned with unexpected diff (-want+got);\n%s", diff)
	}
}
