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

type ItemsSketchSortedViewIterator[C comparable] struct {
	view  *ItemsSketchSortedView[C]
	index int
}

func newItemsSketchSortedViewIterator[C comparable](view *ItemsSketchSortedView[C]) *ItemsSketchSortedViewIterator[C] {
	return &ItemsSketchSortedViewIterator[C]{
		view:  view,
		index: -1,
	}
}

func (i *ItemsSketchSortedViewIterator[C]) Next() bool {
	i.index++
	return i.index < len(i.view.quantiles)
}

func (i *ItemsSketchSortedViewIterator[C]) GetQuantile() C {
	return i.view.quantiles[i.index]
}

func (i *ItemsSketchSortedViewIterator[C]) GetWeight() uint64 {
	return i.view.weights[i.index]
}

// GetCumulativeWeight returns the weight of all entries before the current one,
// plus the current one when inclusive.
func (i *ItemsSketchSortedViewIterator[C]) GetCumulativeWeight(inclusive bool) uint64 {
	cum := i.view.cumWeights[i.index]
	if !i.view.inclusive {
		cum += i.view.weights[i.index]
	}
	if inclusive {
		return cum
	}
	return cum - i.view.weights[i.index]
}

func (i *ItemsSketchSortedViewIterator[C]) GetNormalizedRank(inclusive bool) float64 {
	return float64(i.GetCumulativeWeight(inclusive)) / float64(i.view.totalWeight)
}
