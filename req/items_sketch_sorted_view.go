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
	"fmt"
	"math"
	"slices"

	"github.com/streamsketch/datasketches-go/common"
	"github.com/streamsketch/datasketches-go/internal"
)

// ItemsSketchSortedView is a weighted, globally sorted snapshot of the items
// retained by an ItemsSketch. It is built once per query call and read-only
// afterwards; it does not alias the sketch's buffers.
type ItemsSketchSortedView[C comparable] struct {
	quantiles   []C
	weights     []uint64
	cumWeights  []uint64
	totalWeight uint64
	inclusive   bool
	converted   bool
	hasBounds   bool
	minItem     C
	maxItem     C
	compareFn   common.CompareFn[C]
}

func newItemsSketchSortedView[C comparable](capacity int, compareFn common.CompareFn[C]) *ItemsSketchSortedView[C] {
	return &ItemsSketchSortedView[C]{
		quantiles: make([]C, 0, capacity),
		weights:   make([]uint64, 0, capacity),
		compareFn: compareFn,
	}
}

// add merges a sorted run of items, each standing for weight stream items,
// into the entries accumulated so far. Equal items keep their arrival order.
func (v *ItemsSketchSortedView[C]) add(items []C, weight uint64) {
	if v.converted {
		panic("sorted view is already cumulative")
	}
	if len(items) == 0 {
		return
	}
	i := len(v.quantiles) - 1
	j := len(items) - 1
	total := len(v.quantiles) + len(items)
	v.quantiles = slices.Grow(v.quantiles, len(items))[:total]
	v.weights = slices.Grow(v.weights, len(items))[:total]
	for k := total - 1; j >= 0; k-- {
		if i >= 0 && v.compareFn(items[j], v.quantiles[i]) {
			v.quantiles[k] = v.quantiles[i]
			v.weights[k] = v.weights[i]
			i--
		} else {
			v.quantiles[k] = items[j]
			v.weights[k] = weight
			j--
		}
	}
}

func (v *ItemsSketchSortedView[C]) setBounds(minItem C, maxItem C) {
	v.minItem = minItem
	v.maxItem = maxItem
	v.hasBounds = true
}

// convertToCumulative turns the per-entry weights into running totals, counting
// each entry's own weight when inclusive and only the weight before it otherwise.
func (v *ItemsSketchSortedView[C]) convertToCumulative(inclusive bool) {
	v.cumWeights = make([]uint64, len(v.weights))
	subtotal := uint64(0)
	for i, w := range v.weights {
		if inclusive {
			subtotal += w
			v.cumWeights[i] = subtotal
		} else {
			v.cumWeights[i] = subtotal
			subtotal += w
		}
	}
	v.totalWeight = subtotal
	v.inclusive = inclusive
	v.converted = true
}

// GetQuantile returns the item at the given normalized rank. Ranks 0 and 1 map to
// the exact minimum and maximum of the stream.
func (v *ItemsSketchSortedView[C]) GetQuantile(rank float64) (C, error) {
	var zero C
	if !v.converted || v.totalWeight == 0 {
		return zero, ErrEmpty
	}
	if err := checkNormalizedRankBounds(rank); err != nil {
		return zero, err
	}
	if v.hasBounds {
		if rank == 0 {
			return v.minItem, nil
		}
		if rank == 1 {
			return v.maxItem, nil
		}
	}
	return v.quantiles[v.getQuantileIndex(rank)], nil
}

func (v *ItemsSketchSortedView[C]) getQuantileIndex(rank float64) int {
	length := len(v.cumWeights)
	weightTarget := uint64(math.Floor(rank * float64(v.totalWeight)))
	index := internal.FindWithInequality(v.cumWeights, 0, length-1, weightTarget, internal.InequalityGE, func(a, b uint64) bool {
		return a < b
	})
	if index == -1 {
		return length - 1
	}
	return index
}

// GetRank returns the normalized weight of the entries < item, or <= item if inclusive.
func (v *ItemsSketchSortedView[C]) GetRank(item C, inclusive bool) (float64, error) {
	if !v.converted || v.totalWeight == 0 {
		return 0, ErrEmpty
	}
	return float64(v.weightBelow(item, inclusive)) / float64(v.totalWeight), nil
}

func (v *ItemsSketchSortedView[C]) weightBelow(item C, inclusive bool) uint64 {
	crit := internal.InequalityLT
	if inclusive {
		crit = internal.InequalityLE
	}
	index := internal.FindWithInequality(v.quantiles, 0, len(v.quantiles)-1, item, crit, v.compareFn)
	if index == -1 {
		return 0
	}
	if v.inclusive {
		return v.cumWeights[index]
	}
	return v.cumWeights[index] + v.weights[index]
}

// GetCDF returns the normalized cumulative weight at each split point followed by 1.
func (v *ItemsSketchSortedView[C]) GetCDF(splitPoints []C, inclusive bool) ([]float64, error) {
	if !v.converted || v.totalWeight == 0 {
		return nil, ErrEmpty
	}
	if err := checkSplitPoints(splitPoints, v.compareFn); err != nil {
		return nil, err
	}
	buckets := make([]float64, len(splitPoints)+1)
	for i, sp := range splitPoints {
		buckets[i] = float64(v.weightBelow(sp, inclusive)) / float64(v.totalWeight)
	}
	buckets[len(splitPoints)] = 1.0
	return buckets, nil
}

// GetPMF returns the normalized weight falling into each interval delimited by the split points.
func (v *ItemsSketchSortedView[C]) GetPMF(splitPoints []C, inclusive bool) ([]float64, error) {
	buckets, err := v.GetCDF(splitPoints, inclusive)
	if err != nil {
		return nil, err
	}
	for i := len(buckets) - 1; i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}
	return buckets, nil
}

func (v *ItemsSketchSortedView[C]) GetTotalWeight() uint64 {
	return v.totalWeight
}

func (v *ItemsSketchSortedView[C]) GetNumRetained() int {
	return len(v.quantiles)
}

func (v *ItemsSketchSortedView[C]) IsEmpty() bool {
	return v.totalWeight == 0
}

// GetQuantiles returns a copy of the sorted items.
func (v *ItemsSketchSortedView[C]) GetQuantiles() []C {
	return slices.Clone(v.quantiles)
}

// GetCumulativeWeights returns a copy of the running weights, in the mode the view was built with.
func (v *ItemsSketchSortedView[C]) GetCumulativeWeights() []uint64 {
	return slices.Clone(v.cumWeights)
}

func (v *ItemsSketchSortedView[C]) Iterator() *ItemsSketchSortedViewIterator[C] {
	return newItemsSketchSortedViewIterator(v)
}

func (v *ItemsSketchSortedView[C]) String() string {
	return fmt.Sprintf("ItemsSketchSortedView{entries: %d, totalWeight: %d, inclusive: %v}", len(v.quantiles), v.totalWeight, v.inclusive)
}
