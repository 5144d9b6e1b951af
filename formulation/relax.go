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

package formulation

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/tlsomers/single-server-schelduling-with-machine-job-sequences/linearsolver"
)

// ErrUnsupportedVariable holds the error when a variable struct has a field that cannot be
// mapped onto a relaxed model.
var ErrUnsupportedVariable = errors.New("unsupported variable type")

var (
	varType      = reflect.TypeOf(linearsolver.Var{})
	varTableType = reflect.TypeOf((*linearsolver.VarTable)(nil))
)

// relaxVariables returns a copy of `vars` whose variables are the variables of `rm` with the
// same names. Tables keep their keys and numeric fields are copied unchanged.
func relaxVariables[V any](vars *V, rm *linearsolver.Model) (*V, error) {
	src := reflect.ValueOf(vars).Elem()
	if src.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrUnsupportedVariable, src.Type())
	}
	out := reflect.New(src.Type()).Elem()
	for i := 0; i < src.NumField(); i++ {
		field := src.Type().Field(i)
		if !field.IsExported() {
			return nil, fmt.Errorf("%w: field %s is unexported", ErrUnsupportedVariable, field.Name)
		}
		v := src.Field(i)
		switch {
		case field.Type == varType:
			name := v.Interface().(linearsolver.Var).Name()
			rv, ok := rm.LookupVar(name)
			if !ok {
				return nil, fmt.Errorf("relaxed model %q has no variable %q", rm.Name(), name)
			}
			out.Field(i).Set(reflect.ValueOf(rv))
		case field.Type == varTableType:
			if v.IsNil() {
				continue
			}
			rt, err := rm.LookupVarTable(v.Interface().(*linearsolver.VarTable))
			if err != nil {
				return nil, err
			}
			out.Field(i).Set(reflect.ValueOf(rt))
		case isNumber(field.Type.Kind()):
			out.Field(i).Set(v)
		default:
			return nil, fmt.Errorf("%w: field %s has type %v", ErrUnsupportedVariable, field.Name, field.Type)
		}
	}
	return out.Addr().Interface().(*V), nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
