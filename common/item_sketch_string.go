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
	"fmt"
)

const stringLengthBytes = 4

// ItemSketchStringSerDe writes each string as a 4-byte little-endian length followed by its UTF-8 bytes.
type ItemSketchStringSerDe struct{}

var ItemSketchStringComparator = OrderedComparator[string]

func (f ItemSketchStringSerDe) SizeOf(item string) int {
	return len(item) + stringLengthBytes
}

func (f ItemSketchStringSerDe) SizeOfMany(mem []byte, offsetBytes int, numItems int) (int, error) {
	if numItems <= 0 {
		return 0, nil
	}
	offset := offsetBytes
	memCap := len(mem)
	for i := 0; i < numItems; i++ {
		if !checkBounds(offset, stringLengthBytes, memCap) {
			return 0, fmt.Errorf("%w: length of item %d", ErrOutOfBounds, i)
		}
		itemLenBytes := int(binary.LittleEndian.Uint32(mem[offset:]))
		offset += stringLengthBytes
		if !checkBounds(offset, itemLenBytes, memCap) {
			return 0, fmt.Errorf("%w: body of item %d (%d bytes)", ErrOutOfBounds, i, itemLenBytes)
		}
		offset += itemLenBytes
	}
	return offset - offsetBytes, nil
}

func (f ItemSketchStringSerDe) SerializeOneToSlice(item string) []byte {
	bytesOut := make([]byte, len(item)+stringLengthBytes)
	binary.LittleEndian.PutUint32(bytesOut, uint32(len(item)))
	copy(bytesOut[stringLengthBytes:], item)
	return bytesOut
}

func (f ItemSketchStringSerDe) SerializeManyToSlice(items []string) []byte {
	totalBytes := 0
	for _, item := range items {
		totalBytes += f.SizeOf(item)
	}
	bytesOut := make([]byte, totalBytes)
	offset := 0
	for _, item := range items {
		binary.LittleEndian.PutUint32(bytesOut[offset:], uint32(len(item)))
		offset += stringLengthBytes
		offset += copy(bytesOut[offset:], item)
	}
	return bytesOut
}

func (f ItemSketchStringSerDe) DeserializeManyFromSlice(mem []byte, offsetBytes int, numItems int) ([]string, error) {
	if numItems <= 0 {
		return []string{}, nil
	}
	// validate the whole run first so a bogus count cannot size the allocation
	if _, err := f.SizeOfMany(mem, offsetBytes, numItems); err != nil {
		return nil, err
	}
	array := make([]string, numItems)
	offset := offsetBytes
	for i := range array {
		strLength := int(binary.LittleEndian.Uint32(mem[offset:]))
		offset += stringLengthBytes
		array[i] = string(mem[offset : offset+strLength])
		offset += strLength
	}
	return array, nil
}
