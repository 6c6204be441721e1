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

package common

import (
	"encoding/binary"
	"math"
)

var ItemSketchFloatComparator = OrderedComparator[float32]

// ItemSketchFloatSerDe handles serialization and deserialization of float32 sketch items.
type ItemSketchFloatSerDe struct{}

func (s ItemSketchFloatSerDe) SizeOf(item float32) int {
	return 4
}

func (s ItemSketchFloatSerDe) SizeOfMany(mem []byte, offsetBytes int, numItems int) (int, error) {
	return fixedSizeOfMany(mem, offsetBytes, numItems, 4)
}

func (s ItemSketchFloatSerDe) SerializeOneToSlice(item float32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, math.Float32bits(item))
	return bytes
}

func (s ItemSketchFloatSerDe) SerializeManyToSlice(items []float32) []byte {
	bytes := make([]byte, 4*len(items))
	for i, item := range items {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(item))
	}
	return bytes
}

func (s ItemSketchFloatSerDe) DeserializeManyFromSlice(mem []byte, offsetBytes int, numItems int) ([]float32, error) {
	if _, err := s.SizeOfMany(mem, offsetBytes, numItems); err != nil {
		return nil, err
	}
	array := make([]float32, numItems)
	for i := range array {
		array[i] = math.Float32frombits(binary.LittleEndian.Uint32(mem[offsetBytes:]))
		offsetBytes += 4
	}
	return array, nil
}
