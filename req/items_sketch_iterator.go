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

// ItemsSketchIterator walks the retained items of a sketch, lowest level first.
// Items within a level come in buffer order, which for level 0 need not be sorted.
type ItemsSketchIterator[C comparable] struct {
	compactors    []*compactor[C]
	level         int
	index         int
	isInitialized bool
}

func newItemsSketchIterator[C comparable](compactors []*compactor[C]) *ItemsSketchIterator[C] {
	return &ItemsSketchIterator[C]{
		compactors: compactors,
	}
}

func (s *ItemsSketchIterator[C]) Next() bool {
	if !s.isInitialized {
		s.level = 0
		s.index = 0
		s.isInitialized = true
	} else {
		s.index++
	}
	// skip exhausted and empty levels
	for s.level < len(s.compactors) && s.index >= len(s.compactors[s.level].items) {
		s.level++
		s.index = 0
	}
	return s.level < len(s.compactors)
}

// GetQuantile returns the item at the current position.
//
// Don't call this before calling Next() for the first time
// or after getting false from Next().
func (s *ItemsSketchIterator[C]) GetQuantile() C {
	return s.compactors[s.level].items[s.index]
}

// GetWeight returns how many stream items the current item stands for.
func (s *ItemsSketchIterator[C]) GetWeight() uint64 {
	return uint64(1) << s.compactors[s.level].lgWeight
}
