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

package internal

import (
	"github.com/streamsketch/datasketches-go/common"
)

type Inequality int64

const (
	InequalityLT Inequality = iota
	InequalityLE
	InequalityGE
	InequalityGT
)

// FindWithInequality searches the sorted range arr[low..high] (inclusive bounds) for v and returns
//
//	LT: the largest index whose item is <  v
//	LE: the largest index whose item is <= v
//	GE: the smallest index whose item is >= v
//	GT: the smallest index whose item is >  v
//
// or -1 if there is no such index. Only compareFn is consulted, so items that
// compare equivalent are treated as equal even if == says otherwise.
func FindWithInequality[C comparable](arr []C, low int, high int, v C, crit Inequality, compareFn common.CompareFn[C]) int {
	if len(arr) == 0 || low > high {
		return -1
	}
	var atOrAbove func(C) bool
	switch crit {
	case InequalityLT, InequalityGE:
		atOrAbove = func(x C) bool { return !compareFn(x, v) }
	case InequalityLE, InequalityGT:
		atOrAbove = func(x C) bool { return compareFn(v, x) }
	default:
		panic("invalid inequality")
	}

	// first index in [low, high+1) where atOrAbove holds
	lo, hi := low, high+1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if atOrAbove(arr[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	switch crit {
	case InequalityLT, InequalityLE:
		if lo == low {
			return -1
		}
		return lo - 1
	default:
		if lo > high {
			return -1
		}
		return lo
	}
}

// CountBelow returns how many items of the sorted slice arr are < v, or <= v when inclusive.
func CountBelow[C comparable](arr []C, v C, inclusive bool, compareFn common.CompareFn[C]) int {
	crit := InequalityLT
	if inclusive {
		crit = InequalityLE
	}
	return FindWithInequality(arr, 0, len(arr)-1, v, crit, compareFn) + 1
}
