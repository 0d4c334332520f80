// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ga runs the generational genetic search over route populations:
// preservation, selection, crossover, mutation, duplicate replacement, and
// early-exit control, with fitness evaluation parallelized on the worker
// pool.
package ga

import (
	"github.com/cockroachdb/errors"
)

// ErrInvalidConfig marks out-of-range optimizer parameters.
var ErrInvalidConfig = errors.New("ga: invalid configuration")

// Config holds the optimizer rates and sizing.
type Config struct {
	// PreservationRate is the fraction of the sorted population copied
	// unchanged into the next generation.
	PreservationRate float64

	// SelectionRate is the fraction eligible as crossover parents beyond
	// the preservation prefix.
	SelectionRate float64

	// MutationRate scales how many mutation draws run per generation.
	MutationRate float64

	// Threads sizes the fitness worker pool.
	Threads int
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		PreservationRate: 0.05,
		SelectionRate:    0.4,
		MutationRate:     0.8,
		Threads:          10,
	}
}

// Validate rejects rates outside [0, 1] and non-positive thread counts.
func (c Config) Validate() error {
	for name, rate := range map[string]float64{
		"preservation": c.PreservationRate,
		"selection":    c.SelectionRate,
		"mutation":     c.MutationRate,
	} {
		if rate < 0 || rate > 1 {
			return errors.Wrapf(ErrInvalidConfig, "%s rate %f outside [0, 1]", name, rate)
		}
	}
	if c.Threads <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "thread count %d", c.Threads)
	}
	return nil
}

// Sizes are the derived population subset sizes for a population of size p.
type Sizes struct {
	Preservation int
	Selection    int
	Mutation     int
}

// DeriveSizes computes the subset sizes. The preservation prefix is always
// at least one so the best route survives.
func (c Config) DeriveSizes(p int) Sizes {
	pres := int(c.PreservationRate * float64(p))
	if pres < 1 {
		pres = 1
	}
	return Sizes{
		Preservation: pres,
		Selection:    int(c.SelectionRate * float64(p)),
		Mutation:     int(c.MutationRate * float64(p)),
	}
}
