/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package req

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/streamsketch/datasketches-go/common"
)

const (
	// DefaultK is the section size used when none is given.
	DefaultK = 12
	// MinK is the smallest allowed k and the floor below which sections stop shrinking.
	MinK = 4
	// MaxK is the largest allowed k.
	MaxK = 1024

	initNumSections = 3
	maxNumSections  = initNumSections << 6
	maxNumLevels    = 64

	fixedRSEFactor = 0.084
)

var relativeRSEFactor = math.Sqrt(0.0512 / initNumSections)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLevelMismatch   = errors.New("compactor weights differ")
	ErrEmpty           = errors.New("operation is undefined for an empty sketch")
	ErrCorruptData     = errors.New("corrupt serialized sketch")
)

func nearestEven[T constraints.Float](value T) uint32 {
	return uint32(math.Round(float64(value/2))) << 1
}

func checkK(k uint16) error {
	if k < MinK || k > MaxK || k&1 == 1 {
		return fmt.Errorf("%w: k must be even, >= %d and <= %d: %d", ErrInvalidArgument, MinK, MaxK, k)
	}
	return nil
}

func checkNormalizedRankBounds(rank float64) error {
	if !(rank >= 0 && rank <= 1) {
		return fmt.Errorf("%w: rank must be between 0 and 1 inclusive: %v", ErrInvalidArgument, rank)
	}
	return nil
}

func checkNumStdDev(numStdDev int) error {
	if numStdDev < 1 || numStdDev > 3 {
		return fmt.Errorf("%w: numStdDev must be 1, 2 or 3: %d", ErrInvalidArgument, numStdDev)
	}
	return nil
}

func checkSplitPoints[C comparable](items []C, compareFn common.CompareFn[C]) error {
	for i := range items {
		if items[i] != items[i] {
			return fmt.Errorf("%w: NaN in split points", ErrInvalidArgument)
		}
		if i > 0 && !compareFn(items[i-1], items[i]) {
			return fmt.Errorf("%w: split points must be unique and monotonically increasing", ErrInvalidArgument)
		}
	}
	return nil
}

// isExactRank reports whether the compaction policy guarantees no error at rank.
// Sketches with a single level are exact everywhere; otherwise only the protected
// tail, one base capacity wide, is exact.
func isExactRank(k uint16, numLevels int, rank float64, n uint64, hra bool) bool {
	baseCap := uint64(k) * initNumSections
	if numLevels == 1 || n <= baseCap {
		return true
	}
	exactRankThresh := float64(baseCap) / float64(n)
	return (hra && rank >= 1.0-exactRankThresh) || (!hra && rank <= exactRankThresh)
}

func rankErrorWidth(k uint16, numLevels int, rank float64, numStdDev int, n uint64, hra bool) float64 {
	if isExactRank(k, numLevels, rank, n, hra) {
		return 0
	}
	tail := rank
	if hra {
		tail = 1.0 - rank
	}
	relative := relativeRSEFactor / float64(k) * tail
	fixed := fixedRSEFactor / float64(k)
	return float64(numStdDev) * math.Min(relative, fixed)
}

func getRankLB(k uint16, numLevels int, rank float64, numStdDev int, n uint64, hra bool) float64 {
	return math.Max(0, rank-rankErrorWidth(k, numLevels, rank, numStdDev, n, hra))
}

func getRankUB(k uint16, numLevels int, rank float64, numStdDev int, n uint64, hra bool) float64 {
	return math.Min(1, rank+rankErrorWidth(k, numLevels, rank, numStdDev, n, hra))
}

// GetRSE returns an a priori estimate of the relative standard error of the rank
// returned by a sketch with the given configuration after n updates.
func GetRSE(k uint16, rank float64, hra bool, n uint64) float64 {
	return rankErrorWidth(k, 2, rank, 1, n, hra)
}
