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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPowerOf2(t *testing.T) {
	assert.False(t, IsPowerOf2(-4))
	assert.False(t, IsPowerOf2(0))
	assert.True(t, IsPowerOf2(1))
	assert.True(t, IsPowerOf2(2))
	assert.False(t, IsPowerOf2(3))
	assert.True(t, IsPowerOf2(64))
	assert.False(t, IsPowerOf2(96))
}

func TestTrailingOnes(t *testing.T) {
	testCases := []struct {
		name     string
		input    uint64
		expected int
	}{
		{name: "zero", input: 0, expected: 0},
		{name: "one", input: 1, expected: 1},
		{name: "two", input: 2, expected: 0},
		{name: "three", input: 3, expected: 2},
		{name: "five", input: 5, expected: 1},
		{name: "seven", input: 7, expected: 3},
		{name: "0b1011", input: 11, expected: 2},
		{name: "all ones", input: ^uint64(0), expected: 64},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, TrailingOnes(tc.input))
		})
	}
}

func TestFamilyName(t *testing.T) {
	assert.Equal(t, "REQ", FamilyName(FamilyEnum.Req.Id))
	assert.Equal(t, "KLL", FamilyName(15))
	assert.Equal(t, "UNKNOWN", FamilyName(99))
}
