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

import "fmt"

// AlreadyDefinedError is returned by Exporter.DefineMetric when a metric name is
// redefined with a config that differs from the one already on record.
type AlreadyDefinedError struct {
	Name string
}

func (e *AlreadyDefinedError) Error() string {
	return fmt.Sprintf("metric %q already defined with a different config", e.Name)
}

// IncompatibleBucketersError is returned by Distribution.Add when the receiver and the
// argument were built from different canonical Bucketers.
type IncompatibleBucketersError struct{}

func (e *IncompatibleBucketersError) Error() string {
	return "incompatible bucketers"
}

// MissingFieldError is returned by Bucketer wire decoding when a required field is
// absent from the wire message.
type MissingFieldError struct {
	Name string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q from bucketer", e.Name)
}

// InvalidFloatError is returned when a non-finite float (NaN or +/-Inf) is supplied
// where tsz requires a finite value.
type InvalidFloatError struct {
	Value float64
}

func (e *InvalidFloatError) Error() string {
	return fmt.Sprintf("invalid (non-finite) float value: %v", e.Value)
}
