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
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamsketch/datasketches-go/common"
)

// fixedBits always returns the same bit and counts how often it was asked.
type fixedBits struct {
	bit   bool
	calls int
}

func (f *fixedBits) RandomBit() bool {
	f.calls++
	return f.bit
}

var lessInt64 = common.ItemSketchLongComparator(false)

func int64Range(from, to int64) []int64 {
	items := make([]int64, 0, to-from)
	for i := from; i < to; i++ {
		items = append(items, i)
	}
	return items
}

func newTestCompactor(hra bool, lgWeight uint8, k uint32, bits *fixedBits, items ...int64) *compactor[int64] {
	c := newCompactor[int64](hra, lgWeight, k, lessInt64, bits)
	for _, item := range items {
		c.append(item)
	}
	return c
}

func TestCompactor_New(t *testing.T) {
	bits := &fixedBits{bit: true}
	c := newTestCompactor(true, 3, 12, bits)
	assert.Equal(t, uint32(72), c.getNomCapacity())
	assert.Equal(t, uint32(initNumSections), c.numSections)
	assert.Equal(t, float32(12), c.sectionSizeRaw)
	assert.Equal(t, uint8(3), c.lgWeight)
	assert.True(t, c.sorted)
	assert.True(t, c.coin)
	assert.Equal(t, 1, bits.calls)
	assert.GreaterOrEqual(t, cap(c.items), 72)
}

func TestCompactor_AppendMarksUnsorted(t *testing.T) {
	c := newTestCompactor(true, 0, 4, &fixedBits{}, 3, 1, 2)
	assert.False(t, c.sorted)
	c.sort()
	assert.True(t, c.sorted)
	assert.Equal(t, []int64{1, 2, 3}, c.items)
	c.sort()
	assert.Equal(t, []int64{1, 2, 3}, c.items)
}

func TestCompactor_ComputeWeight(t *testing.T) {
	c := newTestCompactor(true, 2, 4, &fixedBits{}, 5, 1, 3, 3)
	assert.Equal(t, uint64(4), c.computeWeight(3, false))
	assert.True(t, c.sorted)
	assert.Equal(t, uint64(12), c.computeWeight(3, true))
	assert.Equal(t, uint64(0), c.computeWeight(0, true))
	assert.Equal(t, uint64(0), c.computeWeight(1, false))
	assert.Equal(t, uint64(16), c.computeWeight(9, false))
}

func TestCompactor_CompactHighRankAccuracy(t *testing.T) {
	bits := &fixedBits{bit: false}
	c := newTestCompactor(true, 0, 4, bits, int64Range(0, 25)...)
	next := newTestCompactor(true, 1, 4, bits)
	c.compact(next)

	assert.Equal(t, []int64{0, 2}, next.items)
	assert.Equal(t, int64Range(4, 25), c.items)
	assert.Equal(t, uint64(1), c.state)
	assert.False(t, c.coin)
	// even state draws a fresh coin
	assert.Equal(t, 3, bits.calls)
}

func TestCompactor_CompactLowRankAccuracy(t *testing.T) {
	bits := &fixedBits{bit: false}
	c := newTestCompactor(false, 0, 4, bits, int64Range(0, 25)...)
	next := newTestCompactor(false, 1, 4, bits)
	c.compact(next)

	assert.Equal(t, []int64{21, 23}, next.items)
	assert.Equal(t, int64Range(0, 21), c.items)
	assert.Equal(t, uint64(1), c.state)
}

func TestCompactor_OddStateFlipsCoin(t *testing.T) {
	bits := &fixedBits{bit: false}
	c := newTestCompactor(true, 0, 4, bits, int64Range(0, 25)...)
	next := newTestCompactor(true, 1, 4, bits)
	c.state = 1
	c.coin = false
	c.compact(next)

	// one trailing one: two sections compacted, odd items promoted
	assert.True(t, c.coin)
	assert.Equal(t, []int64{1, 3, 5, 7}, next.items)
	assert.Equal(t, int64Range(8, 25), c.items)
	assert.Equal(t, uint64(2), c.state)
	assert.Equal(t, 2, bits.calls)
}

func TestCompactor_CompactMergesIntoSortedNext(t *testing.T) {
	bits := &fixedBits{bit: true}
	c := newTestCompactor(true, 0, 4, bits, int64Range(0, 25)...)
	next := newTestCompactor(true, 1, 4, bits, 2, 0, 100)
	c.compact(next)
	// coin true promotes 1 and 3
	assert.Equal(t, []int64{0, 1, 2, 3, 100}, next.items)
	assert.True(t, next.sorted)
}

func TestCompactor_CompactConservesWeight(t *testing.T) {
	bits := &fixedBits{bit: true}
	c := newTestCompactor(true, 0, 4, bits)
	next := newTestCompactor(true, 1, 4, bits)
	for i := 0; i < 1000; i++ {
		c.append(int64(i % 37))
		if c.isOverCapacity() {
			c.compact(next)
			assert.LessOrEqual(t, uint32(len(c.items)), c.getNomCapacity())
		}
		assert.Equal(t, uint64(i+1), uint64(len(c.items))+2*uint64(len(next.items)))
	}
}

func TestCompactor_CompactRangeTooSmallPanics(t *testing.T) {
	c := newTestCompactor(true, 0, 4, &fixedBits{}, 1, 2, 3, 4, 5)
	next := newTestCompactor(true, 1, 4, &fixedBits{})
	assert.Panics(t, func() { c.compact(next) })
}

func TestCompactor_EnsureEnoughSections(t *testing.T) {
	c := newTestCompactor(true, 0, 12, &fixedBits{})
	assert.False(t, c.ensureEnoughSections())

	c.state = 4
	assert.True(t, c.ensureEnoughSections())
	assert.Equal(t, uint32(6), c.numSections)
	assert.Equal(t, uint32(8), c.sectionSize)
	assert.InDelta(t, 12/math.Sqrt2, float64(c.sectionSizeRaw), 1e-5)
	assert.Equal(t, uint32(96), c.getNomCapacity())
	assert.GreaterOrEqual(t, cap(c.items), 96)

	// the next doubling needs state >= 2^5
	assert.False(t, c.ensureEnoughSections())
}

func TestCompactor_EnsureEnoughSectionsStopsAtMinK(t *testing.T) {
	c := newTestCompactor(true, 0, 4, &fixedBits{})
	c.state = 1 << 10
	assert.False(t, c.ensureEnoughSections())
	assert.Equal(t, uint32(initNumSections), c.numSections)
	assert.Equal(t, uint32(4), c.sectionSize)
}

func TestCompactor_MergeLevelMismatch(t *testing.T) {
	a := newTestCompactor(true, 0, 4, &fixedBits{})
	b := newTestCompactor(true, 1, 4, &fixedBits{})
	err := a.merge(b)
	assert.True(t, errors.Is(err, ErrLevelMismatch))
}

func TestCompactor_Merge(t *testing.T) {
	a := newTestCompactor(true, 0, 4, &fixedBits{}, 5, 1, 3)
	a.state = 1
	b := newTestCompactor(true, 0, 4, &fixedBits{}, 4, 2)
	b.state = 2

	assert.NoError(t, a.merge(b))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, a.items)
	assert.True(t, a.sorted)
	assert.Equal(t, uint64(3), a.state)

	// argument is left alone
	assert.Equal(t, []int64{4, 2}, b.items)
	assert.False(t, b.sorted)
	assert.Equal(t, uint64(2), b.state)
}

func TestCompactor_MergeLargerOther(t *testing.T) {
	a := newTestCompactor(true, 0, 4, &fixedBits{}, 1)
	b := newTestCompactor(true, 0, 4, &fixedBits{}, 5, 3, 2, 4)
	assert.NoError(t, a.merge(b))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, a.items)
	assert.Equal(t, []int64{5, 3, 2, 4}, b.items)
}

func TestCompactor_MergeGrowsSections(t *testing.T) {
	a := newTestCompactor(true, 0, 12, &fixedBits{})
	b := newTestCompactor(true, 0, 12, &fixedBits{})
	b.state = 4
	assert.NoError(t, a.merge(b))
	assert.Equal(t, uint64(4), a.state)
	assert.Equal(t, uint32(6), a.numSections)
	assert.Equal(t, uint32(8), a.sectionSize)
}

func TestCompactor_Clone(t *testing.T) {
	bits := &fixedBits{}
	c := newTestCompactor(true, 2, 4, bits, 3, 1, 2)
	c.state = 7
	otherBits := &fixedBits{}
	cp := c.clone(lessInt64, otherBits)
	cp.append(10)
	cp.sort()
	assert.Equal(t, []int64{3, 1, 2}, c.items)
	assert.Equal(t, []int64{1, 2, 3, 10}, cp.items)
	assert.Equal(t, uint64(7), cp.state)
	assert.Equal(t, uint8(2), cp.lgWeight)
	assert.Same(t, otherBits, cp.bits.(*fixedBits))
}

func TestCompactor_SerializeRoundTrip(t *testing.T) {
	serde := common.ItemSketchLongSerDe{}
	c := newTestCompactor(true, 2, 12, &fixedBits{}, int64Range(1, 11)...)
	c.state = 4
	assert.True(t, c.ensureEnoughSections())
	c.state = 5

	size := c.serializedSizeBytes(serde)
	assert.Equal(t, compactorHeaderBytes+10*8, size)
	buf := make([]byte, size)
	assert.Equal(t, size, c.writeTo(buf, serde))

	bits := &fixedBits{bit: true}
	restored, offset, err := decodeCompactor(buf, 0, 2, true, lessInt64, serde, bits)
	assert.NoError(t, err)
	assert.Equal(t, size, offset)
	assert.Equal(t, c.state, restored.state)
	assert.Equal(t, c.sectionSizeRaw, restored.sectionSizeRaw)
	assert.Equal(t, c.sectionSize, restored.sectionSize)
	assert.Equal(t, c.numSections, restored.numSections)
	assert.Equal(t, c.lgWeight, restored.lgWeight)
	assert.Equal(t, c.items, restored.items)
	assert.True(t, restored.sorted)
	assert.True(t, restored.coin)
	assert.Equal(t, 1, bits.calls)
}

func TestCompactor_DecodeCorrupt(t *testing.T) {
	serde := common.ItemSketchLongSerDe{}
	encode := func(lgWeight uint8, items ...int64) []byte {
		c := newTestCompactor(true, lgWeight, 8, &fixedBits{}, items...)
		buf := make([]byte, c.serializedSizeBytes(serde))
		c.writeTo(buf, serde)
		return buf
	}
	testCases := []struct {
		name   string
		level  int
		mutate func([]byte) []byte
	}{
		{name: "truncated header", level: 1, mutate: func(b []byte) []byte { return b[:compactorHeaderBytes-1] }},
		{name: "truncated items", level: 1, mutate: func(b []byte) []byte { return b[:len(b)-1] }},
		{name: "wrong level", level: 2, mutate: func(b []byte) []byte { return b }},
		{name: "sections not a doubling of three", level: 1, mutate: func(b []byte) []byte { b[13] = 5; return b }},
		{name: "zero sections", level: 1, mutate: func(b []byte) []byte { b[13] = 0; return b }},
		{name: "NaN section size", level: 1, mutate: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(math.NaN())))
			return b
		}},
		{name: "section size below minimum", level: 1, mutate: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], math.Float32bits(2))
			return b
		}},
		{name: "section size above maximum", level: 1, mutate: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[8:], math.Float32bits(4096))
			return b
		}},
		{name: "item count past the end", level: 1, mutate: func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[16:], 1<<30)
			return b
		}},
		{name: "unsorted upper level", level: 1, mutate: func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[compactorHeaderBytes:], 99)
			return b
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := tc.mutate(encode(1, 1, 2, 3))
			_, _, err := decodeCompactor(buf, 0, tc.level, true, lessInt64, serde, &fixedBits{})
			assert.True(t, errors.Is(err, ErrCorruptData), "err: %v", err)
		})
	}
}

func TestCompactor_DecodeUnsortedLevelZero(t *testing.T) {
	serde := common.ItemSketchLongSerDe{}
	c := newTestCompactor(true, 0, 8, &fixedBits{}, 3, 1, 2)
	buf := make([]byte, c.serializedSizeBytes(serde))
	c.writeTo(buf, serde)
	restored, _, err := decodeCompactor(buf, 0, 0, true, lessInt64, serde, &fixedBits{})
	assert.NoError(t, err)
	assert.False(t, restored.sorted)
	assert.Equal(t, uint64(1), restored.computeWeight(2, false))
	assert.Equal(t, []int64{1, 2, 3}, restored.items)
}

type keyed struct {
	key int
	tag string
}

func TestMergeSortedInto_Stable(t *testing.T) {
	less := func(a, b keyed) bool { return a.key < b.key }
	dst := []keyed{{1, "dst"}, {2, "dst"}, {3, "dst"}}
	src := []keyed{{1, "src"}, {3, "src"}, {4, "src"}}
	merged := mergeSortedInto(dst, src, less)
	assert.Equal(t, []keyed{{1, "dst"}, {1, "src"}, {2, "dst"}, {3, "dst"}, {3, "src"}, {4, "src"}}, merged)

	assert.Equal(t, []keyed{{0, "src"}}, mergeSortedInto(nil, []keyed{{0, "src"}}, less))
	assert.Equal(t, []keyed{{0, "dst"}}, mergeSortedInto([]keyed{{0, "dst"}}, nil, less))
}

func TestNearestEven(t *testing.T) {
	testCases := []struct {
		input    float32
		expected uint32
	}{
		{input: 12, expected: 12},
		{input: 8.485281, expected: 8},
		{input: 5, expected: 6},
		{input: 3, expected: 4},
		{input: 2.828427, expected: 2},
		{input: 0.5, expected: 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, nearestEven(tc.input), "input: %v", tc.input)
	}
	assert.Equal(t, uint32(6), nearestEven(float64(6.2)))
}
