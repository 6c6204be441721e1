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
	"fmt"
	"math"
	"slices"

	"github.com/streamsketch/datasketches-go/common"
	"github.com/streamsketch/datasketches-go/internal"
)

// serialized compactor header: state, section size raw, lg weight, num sections, pad, item count
const compactorHeaderBytes = 8 + 4 + 1 + 1 + 2 + 4

// compactor is one weight level of the sketch. Every retained item stands for
// 2^lgWeight items of the input stream.
type compactor[C comparable] struct {
	hra            bool
	coin           bool
	sorted         bool
	lgWeight       uint8
	sectionSizeRaw float32
	sectionSize    uint32
	numSections    uint32
	state          uint64
	items          []C
	compareFn      common.CompareFn[C]
	bits           internal.RandomBitSource
}

func newCompactor[C comparable](hra bool, lgWeight uint8, sectionSize uint32, compareFn common.CompareFn[C], bits internal.RandomBitSource) *compactor[C] {
	c := &compactor[C]{
		hra:            hra,
		coin:           bits.RandomBit(),
		sorted:         true,
		lgWeight:       lgWeight,
		sectionSizeRaw: float32(sectionSize),
		sectionSize:    sectionSize,
		numSections:    initNumSections,
		compareFn:      compareFn,
		bits:           bits,
	}
	c.items = make([]C, 0, c.getNomCapacity())
	return c
}

func (c *compactor[C]) getNomCapacity() uint32 {
	return 2 * c.numSections * c.sectionSize
}

func (c *compactor[C]) getNumItems() int {
	return len(c.items)
}

func (c *compactor[C]) isOverCapacity() bool {
	return uint32(len(c.items)) > c.getNomCapacity()
}

func (c *compactor[C]) append(item C) {
	c.items = append(c.items, item)
	c.sorted = false
}

func (c *compactor[C]) sort() {
	if c.sorted {
		return
	}
	slices.SortFunc(c.items, cmpFromLess(c.compareFn))
	c.sorted = true
}

// computeWeight returns the weight this level contributes to the rank of item.
func (c *compactor[C]) computeWeight(item C, inclusive bool) uint64 {
	c.sort()
	return uint64(internal.CountBelow(c.items, item, inclusive, c.compareFn)) << c.lgWeight
}

// merge folds other into c. other is left untouched.
func (c *compactor[C]) merge(other *compactor[C]) error {
	if c.lgWeight != other.lgWeight {
		return fmt.Errorf("%w: %d and %d", ErrLevelMismatch, c.lgWeight, other.lgWeight)
	}
	c.state |= other.state
	for c.ensureEnoughSections() {
	}

	c.sort()
	incoming := other.items
	if !other.sorted {
		incoming = slices.Clone(other.items)
		slices.SortFunc(incoming, cmpFromLess(c.compareFn))
	}
	if len(incoming) > len(c.items) {
		dst := make([]C, len(incoming), max(len(incoming)+len(c.items), int(c.getNomCapacity())))
		copy(dst, incoming)
		c.items = mergeSortedInto(dst, c.items, c.compareFn)
	} else {
		c.items = mergeSortedInto(c.items, incoming, c.compareFn)
	}
	return nil
}

// compact promotes half of a range of this level into next and drops the range.
func (c *compactor[C]) compact(next *compactor[C]) {
	c.sort()
	secsToCompact := min(uint32(internal.TrailingOnes(c.state))+1, c.numSections)
	compactFrom, compactTo := c.computeCompactionRange(secsToCompact)
	if compactTo-compactFrom < 2 {
		panic(fmt.Sprintf("compaction range too small: [%d, %d)", compactFrom, compactTo))
	}

	if c.state&1 == 1 {
		c.coin = !c.coin
	} else {
		c.coin = c.bits.RandomBit()
	}

	promoted := make([]C, 0, (compactTo-compactFrom)/2)
	start := compactFrom
	if c.coin {
		start++
	}
	for i := start; i < compactTo; i += 2 {
		promoted = append(promoted, c.items[i])
	}
	next.sort()
	next.items = mergeSortedInto(next.items, promoted, c.compareFn)

	c.items = slices.Delete(c.items, int(compactFrom), int(compactTo))
	c.state++
	c.ensureEnoughSections()
}

// computeCompactionRange returns the half-open index range holding secsToCompact
// sections at the unprotected end of the buffer, adjusted to an even length.
func (c *compactor[C]) computeCompactionRange(secsToCompact uint32) (uint32, uint32) {
	numItems := uint32(len(c.items))
	nonCompact := c.getNomCapacity()/2 + (c.numSections-secsToCompact)*c.sectionSize
	if numItems <= nonCompact {
		return 0, 0
	}
	if (numItems-nonCompact)&1 == 1 {
		nonCompact++
	}
	if c.hra {
		return 0, numItems - nonCompact
	}
	return nonCompact, numItems
}

// ensureEnoughSections doubles the number of sections once the state counter has
// used up the current ones, shrinking each section by 1/sqrt(2). It reports
// whether anything changed.
func (c *compactor[C]) ensureEnoughSections() bool {
	if c.numSections-1 >= 64 || c.state < uint64(1)<<(c.numSections-1) {
		return false
	}
	ssr := c.sectionSizeRaw / float32(math.Sqrt2)
	ne := nearestEven(ssr)
	if ne < MinK {
		return false
	}
	c.sectionSizeRaw = ssr
	c.sectionSize = ne
	c.numSections <<= 1
	if need := int(c.getNomCapacity()) - len(c.items); need > 0 {
		c.items = slices.Grow(c.items, need)
	}
	return true
}

// clone returns a deep copy of c that compares with compareFn and draws from bits.
func (c *compactor[C]) clone(compareFn common.CompareFn[C], bits internal.RandomBitSource) *compactor[C] {
	cp := *c
	cp.items = make([]C, len(c.items), max(len(c.items), int(c.getNomCapacity())))
	copy(cp.items, c.items)
	cp.compareFn = compareFn
	cp.bits = bits
	return &cp
}

func (c *compactor[C]) serializedSizeBytes(serde common.ItemSketchSerde[C]) int {
	size := compactorHeaderBytes
	for _, item := range c.items {
		size += serde.SizeOf(item)
	}
	return size
}

// writeTo encodes c at the start of dst and returns the number of bytes written.
func (c *compactor[C]) writeTo(dst []byte, serde common.ItemSketchSerde[C]) int {
	binary.LittleEndian.PutUint64(dst[0:8], c.state)
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(c.sectionSizeRaw))
	dst[12] = c.lgWeight
	dst[13] = uint8(c.numSections)
	dst[14] = 0
	dst[15] = 0
	binary.LittleEndian.PutUint32(dst[16:20], uint32(len(c.items)))
	n := compactorHeaderBytes
	n += copy(dst[n:], serde.SerializeManyToSlice(c.items))
	return n
}

// checkCompactorGeometry validates fields that come from outside the process
// before they are used to size anything.
func checkCompactorGeometry(level int, lgWeight uint8, sectionSizeRaw float32, numSections uint32) error {
	if int(lgWeight) != level {
		return fmt.Errorf("%w: level %d has weight 2^%d", ErrCorruptData, level, lgWeight)
	}
	if numSections > maxNumSections || numSections%initNumSections != 0 || !internal.IsPowerOf2(int(numSections/initNumSections)) {
		return fmt.Errorf("%w: invalid number of sections %d", ErrCorruptData, numSections)
	}
	if math.IsNaN(float64(sectionSizeRaw)) || math.IsInf(float64(sectionSizeRaw), 0) ||
		sectionSizeRaw < 0 || sectionSizeRaw > MaxK || nearestEven(sectionSizeRaw) < MinK {
		return fmt.Errorf("%w: invalid section size %v", ErrCorruptData, sectionSizeRaw)
	}
	return nil
}

// decodeCompactor reads the compactor for the given level starting at offset.
// It returns the compactor and the offset just past it.
func decodeCompactor[C comparable](
	sl []byte,
	offset int,
	level int,
	hra bool,
	compareFn common.CompareFn[C],
	serde common.ItemSketchSerde[C],
	bits internal.RandomBitSource,
) (*compactor[C], int, error) {
	if offset+compactorHeaderBytes > len(sl) {
		return nil, 0, fmt.Errorf("%w: truncated compactor header at level %d", ErrCorruptData, level)
	}
	state := binary.LittleEndian.Uint64(sl[offset:])
	sectionSizeRaw := math.Float32frombits(binary.LittleEndian.Uint32(sl[offset+8:]))
	lgWeight := sl[offset+12]
	numSections := uint32(sl[offset+13])
	numItems := binary.LittleEndian.Uint32(sl[offset+16:])
	offset += compactorHeaderBytes

	if err := checkCompactorGeometry(level, lgWeight, sectionSizeRaw, numSections); err != nil {
		return nil, 0, err
	}
	items, offset, err := decodeItems(sl, offset, int(numItems), serde)
	if err != nil {
		return nil, 0, fmt.Errorf("level %d: %w", level, err)
	}

	c, err := restoreCompactor(level, hra, state, sectionSizeRaw, numSections, items, compareFn, bits)
	if err != nil {
		return nil, 0, err
	}
	return c, offset, nil
}

// decodeItems reads numItems items at offset, checking the declared count against
// the buffer before anything is allocated. It returns the offset just past them.
func decodeItems[C comparable](sl []byte, offset int, numItems int, serde common.ItemSketchSerde[C]) ([]C, int, error) {
	if numItems < 0 {
		return nil, 0, fmt.Errorf("%w: negative item count %d", ErrCorruptData, numItems)
	}
	size, err := serde.SizeOfMany(sl, offset, numItems)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	items, err := serde.DeserializeManyFromSlice(sl, offset, numItems)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return items, offset + size, nil
}

// restoreCompactor rebuilds a compactor from decoded fields. The coin is not part
// of any serialized form and is drawn afresh. Only level 0 may arrive unsorted.
func restoreCompactor[C comparable](
	level int,
	hra bool,
	state uint64,
	sectionSizeRaw float32,
	numSections uint32,
	items []C,
	compareFn common.CompareFn[C],
	bits internal.RandomBitSource,
) (*compactor[C], error) {
	isSorted := slices.IsSortedFunc(items, cmpFromLess(compareFn))
	if level > 0 && !isSorted {
		return nil, fmt.Errorf("%w: level %d is not sorted", ErrCorruptData, level)
	}
	c := &compactor[C]{
		hra:            hra,
		coin:           bits.RandomBit(),
		sorted:         isSorted,
		lgWeight:       uint8(level),
		sectionSizeRaw: sectionSizeRaw,
		sectionSize:    nearestEven(sectionSizeRaw),
		numSections:    numSections,
		state:          state,
		compareFn:      compareFn,
		bits:           bits,
	}
	c.items = make([]C, len(items), max(len(items), int(c.getNomCapacity())))
	copy(c.items, items)
	return c, nil
}

// mergeSortedInto merges the sorted src into the sorted dst and returns the result.
// dst is extended in place and filled from the back; on ties items of dst stay first.
func mergeSortedInto[C comparable](dst []C, src []C, compareFn common.CompareFn[C]) []C {
	if len(src) == 0 {
		return dst
	}
	i := len(dst) - 1
	j := len(src) - 1
	total := len(dst) + len(src)
	dst = slices.Grow(dst, len(src))[:total]
	for k := total - 1; j >= 0; k-- {
		if i >= 0 && compareFn(src[j], dst[i]) {
			dst[k] = dst[i]
			i--
		} else {
			dst[k] = src[j]
			j--
		}
	}
	return dst
}

func cmpFromLess[C comparable](compareFn common.CompareFn[C]) func(a, b C) int {
	return func(a, b C) int {
		if compareFn(a, b) {
			return -1
		}
		if compareFn(b, a) {
			return 1
		}
		return 0
	}
}
