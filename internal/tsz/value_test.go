// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tsz

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewFloatValueRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewFloatValue(v)
		assert.Assert(t, err != nil, "NewFloatValue(%v) should error", v)
	}
}

func TestNewFloatValueAcceptsFinite(t *testing.T) {
	v, err := NewFloatValue(3.25)
	assert.NilError(t, err)
	assert.Equal(t, v.Float(), 3.25)
}

func TestValueTypedAccessorPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Int() on a bool Value should panic")
		}
	}()
	NewBoolValue(true).Int()
}

func TestValueStringFormatsBoolIntAndStr(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NewBoolValue(true), "true"},
		{NewIntValue(42), "42"},
		{NewStrValue("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
