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
	"sync"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MaxNumFiniteBuckets is the largest permitted value of num_finite_buckets.
const MaxNumFiniteBuckets = 5000

type bucketerParams struct {
	width            float64
	growthFactor     float64
	scaleFactor      float64
	numFiniteBuckets int
}

// Bucketer determines the number and boundaries of the buckets of a Distribution. A
// Bucketer is uniquely identified by four parameters: width, growth_factor,
// scale_factor, and num_finite_buckets. Bucketers are canonical/interned: a process-wide
// cache maps the 4-tuple to a single instance, and that instance is never removed from
// the cache for the lifetime of the process, so a *Bucketer pointer is a stable identity
// suitable for pointer-equality comparison (see BucketerRef).
type Bucketer struct {
	params bucketerParams
}

var (
	bucketerCacheMu sync.Mutex
	bucketerCache   = map[bucketerParams]*Bucketer{}
)

func getBucketer(width, growthFactor, scaleFactor float64, numFiniteBuckets int) *Bucketer {
	if numFiniteBuckets < 0 || numFiniteBuckets > MaxNumFiniteBuckets {
		panic("tsz: num_finite_buckets out of range")
	}
	params := bucketerParams{width, growthFactor, scaleFactor, numFiniteBuckets}
	bucketerCacheMu.Lock()
	defer bucketerCacheMu.Unlock()
	if b, ok := bucketerCache[params]; ok {
		return b
	}
	b := &Bucketer{params: params}
	bucketerCache[params] = b
	return b
}

// FixedWidth returns the canonical Bucketer with numFiniteBuckets buckets of constant
// width, and no exponential growth component.
func FixedWidth(width float64, numFiniteBuckets int) *Bucketer {
	return getBucketer(width, 0.0, 1.0, numFiniteBuckets)
}

// ScaledPowersOf returns the canonical Bucketer whose buckets grow geometrically by
// base, scaled by scaleFactor, sized so the last finite bucket's upper bound is at
// least max.
func ScaledPowersOf(base, scaleFactor, max float64) *Bucketer {
	ceil := int(math.Ceil(math.Log(max/scaleFactor) / math.Log(base)))
	numFiniteBuckets := 1 + ceil
	if numFiniteBuckets < 1 {
		numFiniteBuckets = 1
	}
	return getBucketer(0.0, base, scaleFactor, numFiniteBuckets)
}

// PowersOf returns ScaledPowersOf(base, 1.0, math.MaxUint32).
func PowersOf(base float64) *Bucketer {
	return ScaledPowersOf(base, 1.0, float64(math.MaxUint32))
}

// DefaultBucketer returns PowersOf(4.0), the Bucketer used when a façade needs one and
// none was configured explicitly.
func DefaultBucketer() *Bucketer {
	return PowersOf(4.0)
}

// CustomBucketer returns the canonical Bucketer for the given explicit parameters.
func CustomBucketer(width, growthFactor, scaleFactor float64, numFiniteBuckets int) *Bucketer {
	return getBucketer(width, growthFactor, scaleFactor, numFiniteBuckets)
}

// NoneBucketer returns the canonical empty Bucketer (zero finite buckets): every sample
// falls in the underflow or overflow bucket.
func NoneBucketer() *Bucketer {
	return getBucketer(0.0, 0.0, 0.0, 0)
}

func (b *Bucketer) Width() float64            { return b.params.width }
func (b *Bucketer) GrowthFactor() float64      { return b.params.growthFactor }
func (b *Bucketer) ScaleFactor() float64       { return b.params.scaleFactor }
func (b *Bucketer) NumFiniteBuckets() int      { return b.params.numFiniteBuckets }

// LowerBound returns the inclusive lower bound of the i-th bucket. i is not
// range-checked against [0, NumFiniteBuckets); the caller is responsible for that.
func (b *Bucketer) LowerBound(i int) float64 {
	fi := float64(i)
	result := b.Width() * (fi + 1.0)
	if gf := b.GrowthFactor(); gf != 0.0 {
		result += b.ScaleFactor() * math.Pow(gf, fi)
	}
	return result
}

// UpperBound returns the exclusive upper bound of the i-th bucket.
func (b *Bucketer) UpperBound(i int) float64 {
	return b.LowerBound(i + 1)
}

// GetBucketFor performs a binary search over the buckets and returns the index where
// sample falls. A negative result means the underflow bucket; a result greater than or
// equal to NumFiniteBuckets means the overflow bucket.
func (b *Bucketer) GetBucketFor(sample float64) int {
	i := 0
	j := b.NumFiniteBuckets() + 1
	for j > i {
		k := i + (j-i)>>1
		l := b.LowerBound(k - 1)
		switch {
		case sample < l:
			j = k
		case sample > l:
			i = k + 1
		default:
			return k
		}
	}
	return i - 1
}

// BucketerProto is the wire form of a Bucketer: four optional fields, using the same
// wrapper types (google.golang.org/protobuf/types/known/wrapperspb) generated code
// produces for proto3 message fields marked `optional`. The real protobuf schema is
// owned by the configuration/collection service (out of scope here, see
// SPEC_FULL.md); this struct is the local shape tsz encodes to and decodes from.
type BucketerProto struct {
	Width            *wrapperspb.DoubleValue
	GrowthFactor     *wrapperspb.DoubleValue
	ScaleFactor      *wrapperspb.DoubleValue
	NumFiniteBuckets *wrapperspb.UInt32Value
}

// Encode serializes b into its wire form.
func (b *Bucketer) Encode() BucketerProto {
	return BucketerProto{
		Width:            wrapperspb.Double(b.Width()),
		GrowthFactor:     wrapperspb.Double(b.GrowthFactor()),
		ScaleFactor:      wrapperspb.Double(b.ScaleFactor()),
		NumFiniteBuckets: wrapperspb.UInt32(uint32(b.NumFiniteBuckets())),
	}
}

// DecodeBucketer deserializes a BucketerProto, re-resolving through the canonical
// cache so that the returned *Bucketer is pointer-equal to whatever originally
// produced an equivalent wire message. Returns a *MissingFieldError if any of the four
// fields is absent.
func DecodeBucketer(p BucketerProto) (*Bucketer, error) {
	if p.Width == nil {
		return nil, &MissingFieldError{Name: "width"}
	}
	if p.GrowthFactor == nil {
		return nil, &MissingFieldError{Name: "growth_factor"}
	}
	if p.ScaleFactor == nil {
		return nil, &MissingFieldError{Name: "scale_factor"}
	}
	if p.NumFiniteBuckets == nil {
		return nil, &MissingFieldError{Name: "num_finite_buckets"}
	}
	return getBucketer(p.Width.GetValue(), p.GrowthFactor.GetValue(), p.ScaleFactor.GetValue(), int(p.NumFiniteBuckets.GetValue())), nil
}

// BucketerRef wraps a *Bucketer so that structs embedding it (e.g. MetricConfig) get
// pointer-identity equality "for free" through struct equality, rather than deep value
// equality of the four parameters. It also supplies a zero value (nil bucketer) meaning
// "no bucketer configured".
type BucketerRef struct {
	Bucketer *Bucketer
}

func RefOf(b *Bucketer) BucketerRef { return BucketerRef{Bucketer: b} }

// DefaultBucketerRef returns a BucketerRef to DefaultBucketer().
func DefaultBucketerRef() BucketerRef { return RefOf(DefaultBucketer()) }

func (r BucketerRef) IsZero() bool { return r.Bucketer == nil }

func (r BucketerRef) Equal(other BucketerRef) bool {
	return r.Bucketer == other.Bucketer
}
