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

// Package common holds the item collaborators shared by the generic sketches:
// the ordering function and the item SerDe.
package common

import "golang.org/x/exp/constraints"

// CompareFn reports whether a sorts strictly before b.
// It must describe a strict weak ordering.
type CompareFn[C comparable] func(C, C) bool

// ItemSketchSerde converts items to and from their serialized form.
// Sketches never interpret item bytes themselves.
type ItemSketchSerde[C comparable] interface {
	SizeOf(item C) int
	// SizeOfMany returns the number of bytes taken by numItems items starting at offsetBytes.
	// It fails if the items would extend past the end of mem.
	SizeOfMany(mem []byte, offsetBytes int, numItems int) (int, error)
	SerializeManyToSlice(items []C) []byte
	SerializeOneToSlice(item C) []byte
	DeserializeManyFromSlice(mem []byte, offsetBytes int, numItems int) ([]C, error)
}

// OrderedComparator returns the natural ordering of T, reversed if reverseOrder is set.
func OrderedComparator[T constraints.Ordered](reverseOrder bool) CompareFn[T] {
	if reverseOrder {
		return func(a, b T) bool { return a > b }
	}
	return func(a, b T) bool { return a < b }
}
