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

import "math"

// Distribution manages a histogram of sample frequencies plus running moments (count,
// sum, mean, sum of squared deviations), maintained with the method of provisional
// means for numerical stability. The number and boundaries of the buckets are
// determined by a Bucketer; two extra implicit buckets (underflow, overflow) catch
// samples outside the Bucketer's finite range.
type Distribution struct {
	bucketer   BucketerRef
	buckets    []uint64
	underflow  uint64
	overflow   uint64
	count      uint64
	sum        float64
	mean       float64
	ssd        float64
}

// NewDistribution returns an empty Distribution over bucketer.
func NewDistribution(bucketer BucketerRef) *Distribution {
	return &Distribution{
		bucketer: bucketer,
		buckets:  make([]uint64, bucketer.Bucketer.NumFiniteBuckets()),
	}
}

// DefaultDistribution returns an empty Distribution over DefaultBucketer().
func DefaultDistribution() *Distribution {
	return NewDistribution(DefaultBucketerRef())
}

func (d *Distribution) Bucketer() BucketerRef      { return d.bucketer }
func (d *Distribution) NumFiniteBuckets() int      { return d.bucketer.Bucketer.NumFiniteBuckets() }
func (d *Distribution) Bucket(i int) uint64        { return d.buckets[i] }
func (d *Distribution) Underflow() uint64          { return d.underflow }
func (d *Distribution) Overflow() uint64           { return d.overflow }
func (d *Distribution) Sum() float64               { return d.sum }
func (d *Distribution) SumOfSquaredDeviations() float64 { return d.ssd }
func (d *Distribution) Count() uint64              { return d.count }
func (d *Distribution) IsEmpty() bool              { return d.count == 0 }
func (d *Distribution) Mean() float64              { return d.mean }

func (d *Distribution) Variance() float64 {
	return d.ssd / float64(d.count)
}

func (d *Distribution) StdDev() float64 {
	return math.Sqrt(d.Variance())
}

// Record records sample once, placing it in the bucket its Bucketer selects.
func (d *Distribution) Record(sample float64) {
	d.RecordMany(sample, 1)
}

// RecordMany records sample the given number of times.
func (d *Distribution) RecordMany(sample float64, times uint64) {
	bucket := d.bucketer.Bucketer.GetBucketFor(sample)
	d.RecordToBucket(sample, bucket, times)
}

// RecordToBucket records sample times times, forcing it into the given bucket index.
//
// WARNING: bucket MUST be the value returned by Bucketer().GetBucketFor(sample); the
// caller is responsible for that invariant, otherwise the running stats silently
// become incorrect for a bucket that doesn't match the sample.
func (d *Distribution) RecordToBucket(sample float64, bucket int, times uint64) {
	switch {
	case bucket < 0:
		d.underflow += times
	case bucket >= d.NumFiniteBuckets():
		d.overflow += times
	default:
		d.buckets[bucket] += times
	}
	d.count += times
	n := float64(times)
	d.sum += sample * n
	dev := n * (sample - d.mean)
	newMean := d.mean + dev/float64(d.count)
	d.ssd += dev * (sample - newMean)
	d.mean = newMean
}

// Add merges other into d. The two distributions must share a canonical Bucketer,
// otherwise *IncompatibleBucketersError is returned and d is left unmodified.
//
// The SSD combination below is deliberately the same non-textbook formula the original
// implementation uses rather than the standard Chan et al. parallel-variance update;
// see SPEC_FULL.md's Open Question decisions for why this is pinned rather than
// "corrected".
func (d *Distribution) Add(other *Distribution) error {
	if !d.bucketer.Equal(other.bucketer) {
		return &IncompatibleBucketersError{}
	}
	for i := range d.buckets {
		d.buckets[i] += other.buckets[i]
	}
	d.underflow += other.underflow
	d.overflow += other.overflow
	oldCount := d.count
	d.count += other.count
	d.sum += other.sum
	oldMean := d.mean
	if d.count > 0 {
		d.mean = d.sum / float64(d.count)
	} else {
		d.mean = 0
	}
	square := (d.mean - oldMean) * (d.mean - other.mean)
	d.ssd += other.ssd + float64(oldCount)*square + float64(other.count)*square
	return nil
}

// Clear resets d to the empty state over the same Bucketer.
func (d *Distribution) Clear() {
	for i := range d.buckets {
		d.buckets[i] = 0
	}
	d.underflow = 0
	d.overflow = 0
	d.count = 0
	d.sum = 0
	d.mean = 0
	d.ssd = 0
}

// Clone returns an independent copy of d.
func (d *Distribution) Clone() *Distribution {
	buckets := make([]uint64, len(d.buckets))
	copy(buckets, d.buckets)
	clone := *d
	clone.buckets = buckets
	return &clone
}

// Equal compares bucketer identity and bucket/under/overflow counts. Statistical
// moments (sum, mean, ssd) are intentionally excluded, matching the original
// implementation's equality contract.
func (d *Distribution) Equal(other *Distribution) bool {
	if !d.bucketer.Equal(other.bucketer) {
		return false
	}
	if d.underflow != other.underflow || d.overflow != other.overflow {
		return false
	}
	if len(d.buckets) != len(other.buckets) {
		return false
	}
	for i := range d.buckets {
		if d.buckets[i] != other.buckets[i] {
			return false
		}
	}
	return true
}
