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

package ga

import (
	"math"

	"go.uber.org/zap"
)

// ExitCondition stops the generational loop once the best fitness has been
// flat for maxMatches consecutive iterations. Not safe for concurrent use;
// each optimizer run owns its own instance.
type ExitCondition struct {
	maxMatches int
	eps        float64

	currentFitness float64
	counter        int
}

// NewExitCondition builds the controller. eps is the flatness threshold
// between consecutive best-fitness values.
func NewExitCondition(maxMatches int, eps float64) *ExitCondition {
	return &ExitCondition{
		maxMatches:     maxMatches,
		eps:            eps,
		currentFitness: math.MaxFloat64,
	}
}

// MaxMatches returns the configured repeat threshold.
func (e *ExitCondition) MaxMatches() int {
	return e.maxMatches
}

// Eps returns the configured flatness threshold.
func (e *ExitCondition) Eps() float64 {
	return e.eps
}

// Check folds in the latest best fitness and reports whether the loop
// should stop. A worse fitness than the tracked one is logged but still
// replaces it.
func (e *ExitCondition) Check(fitness float64) bool {
	if math.Abs(fitness-e.currentFitness) < e.eps {
		e.counter++
		zap.L().Debug("no fitness improvement",
			zap.Int("count", e.counter),
			zap.Int("maxMatches", e.maxMatches))
		if e.counter >= e.maxMatches {
			zap.L().Info("reached max fitness match count, exiting",
				zap.Float64("fitness", e.currentFitness))
			return true
		}
		return false
	}

	if fitness > e.currentFitness {
		zap.L().Warn("fitness regressed",
			zap.Float64("current", e.currentFitness),
			zap.Float64("new", fitness))
	}
	e.currentFitness = fitness
	e.counter = 0
	return false
}
