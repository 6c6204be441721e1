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
	"math/bits"

	"github.com/streamsketch/datasketches-go/common"
	"github.com/streamsketch/datasketches-go/internal"
)

// isRawItemsForm reports whether the sketch is small enough to be serialized as a
// bare list of items.
func (s *ItemsSketch[C]) isRawItemsForm() bool {
	return s.n > 0 && s.n <= MinK && len(s.compactors) == 1
}

// GetSerializedSizeBytes returns the number of bytes ToSlice would produce.
func (s *ItemsSketch[C]) GetSerializedSizeBytes() (int, error) {
	if s.serde == nil {
		return 0, fmt.Errorf("%w: no SerDe provided", ErrInvalidArgument)
	}
	size := _PREAMBLE_BYTES
	if s.IsEmpty() {
		return size, nil
	}
	if s.IsEstimationMode() {
		size += 8 + s.serde.SizeOf(*s.minItem) + s.serde.SizeOf(*s.maxItem)
	}
	if s.isRawItemsForm() {
		for _, item := range s.compactors[0].items {
			size += s.serde.SizeOf(item)
		}
		return size, nil
	}
	for _, c := range s.compactors {
		size += c.serializedSizeBytes(s.serde)
	}
	return size, nil
}

// ToSlice serializes the sketch. The layout is shared with the other DataSketches
// implementations of the REQ sketch.
func (s *ItemsSketch[C]) ToSlice() ([]byte, error) {
	totalBytes, err := s.GetSerializedSizeBytes()
	if err != nil {
		return nil, err
	}
	bytesOut := make([]byte, totalBytes)

	preInts := byte(_PREAMBLE_INTS_SHORT)
	if s.IsEstimationMode() {
		preInts = _PREAMBLE_INTS_ESTIMATION
	}
	flags := byte(0)
	if s.IsEmpty() {
		flags |= _EMPTY_BIT_MASK
	}
	if s.hra {
		flags |= _HRA_BIT_MASK
	}
	rawItems := s.isRawItemsForm()
	if rawItems {
		flags |= _RAW_ITEMS_BIT_MASK
	}
	if s.compactors[0].sorted {
		flags |= _LEVEL_ZERO_SORTED_BIT_MASK
	}
	numLevels := byte(0)
	if !s.IsEmpty() {
		numLevels = byte(len(s.compactors))
	}
	numRawItems := byte(0)
	if rawItems {
		numRawItems = byte(s.n)
	}

	bytesOut[_PREAMBLE_INTS_BYTE_ADR] = preInts
	bytesOut[_SER_VER_BYTE_ADR] = _SERIAL_VERSION
	bytesOut[_FAMILY_BYTE_ADR] = byte(internal.FamilyEnum.Req.Id)
	bytesOut[_FLAGS_BYTE_ADR] = flags
	binary.LittleEndian.PutUint16(bytesOut[_K_SHORT_ADR:_K_SHORT_ADR+2], s.k)
	bytesOut[_NUM_LEVELS_BYTE_ADR] = numLevels
	bytesOut[_NUM_RAW_ITEMS_BYTE_ADR] = numRawItems

	if s.IsEmpty() {
		return bytesOut, nil
	}

	offset := _PREAMBLE_BYTES
	if s.IsEstimationMode() {
		binary.LittleEndian.PutUint64(bytesOut[_N_LONG_ADR:_N_LONG_ADR+8], s.n)
		offset = _DATA_START_ADR_ESTIMATION
		offset += copy(bytesOut[offset:], s.serde.SerializeOneToSlice(*s.minItem))
		offset += copy(bytesOut[offset:], s.serde.SerializeOneToSlice(*s.maxItem))
	}
	if rawItems {
		copy(bytesOut[offset:], s.serde.SerializeManyToSlice(s.compactors[0].items))
		return bytesOut, nil
	}
	for _, c := range s.compactors {
		offset += c.writeTo(bytesOut[offset:], s.serde)
	}
	return bytesOut, nil
}

// NewReqItemsSketchFromSlice restores a sketch serialized by ToSlice. The accuracy
// mode comes from the image; only the random bit source option is honored.
// Every length and count in the image is checked against the buffer before use.
func NewReqItemsSketchFromSlice[C comparable](
	sl []byte,
	compareFn common.CompareFn[C],
	serde common.ItemSketchSerde[C],
	opts ...ItemsSketchOptionFunc,
) (*ItemsSketch[C], error) {
	if serde == nil {
		return nil, fmt.Errorf("%w: no SerDe provided", ErrInvalidArgument)
	}
	if compareFn == nil {
		return nil, fmt.Errorf("%w: no compare function provided", ErrInvalidArgument)
	}
	options, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	if len(sl) < _PREAMBLE_BYTES {
		return nil, fmt.Errorf("%w: %d bytes is too short for a preamble", ErrCorruptData, len(sl))
	}
	if famID := getFamilyID(sl); famID != internal.FamilyEnum.Req.Id {
		return nil, fmt.Errorf("%w: family %s (%d) is not REQ", ErrCorruptData, internal.FamilyName(famID), famID)
	}
	if serVer := getSerVer(sl); serVer != _SERIAL_VERSION {
		return nil, fmt.Errorf("%w: unsupported serial version %d", ErrCorruptData, serVer)
	}
	k := getK(sl)
	if err := checkK(k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	preInts := getPreInts(sl)
	numLevels := getNumLevels(sl)
	numRawItems := getNumRawItems(sl)
	s := newItemsSketch(k, getHRAFlag(sl), compareFn, serde, options.bits)

	if getEmptyFlag(sl) {
		if preInts != _PREAMBLE_INTS_SHORT || numLevels != 0 || numRawItems != 0 || getRawItemsFlag(sl) {
			return nil, fmt.Errorf("%w: inconsistent preamble for an empty sketch", ErrCorruptData)
		}
		if len(sl) != _PREAMBLE_BYTES {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptData, len(sl)-_PREAMBLE_BYTES)
		}
		return s, nil
	}

	if getRawItemsFlag(sl) {
		if preInts != _PREAMBLE_INTS_SHORT || numLevels != 1 || numRawItems < 1 || numRawItems > MinK {
			return nil, fmt.Errorf("%w: inconsistent preamble for raw items", ErrCorruptData)
		}
		items, offset, err := decodeItems(sl, _PREAMBLE_BYTES, numRawItems, serde)
		if err != nil {
			return nil, err
		}
		if offset != len(sl) {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptData, len(sl)-offset)
		}
		for _, item := range items {
			s.Update(item)
		}
		return s, nil
	}

	estimation := preInts == _PREAMBLE_INTS_ESTIMATION
	if !estimation && preInts != _PREAMBLE_INTS_SHORT {
		return nil, fmt.Errorf("%w: invalid preamble ints %d", ErrCorruptData, preInts)
	}
	if numRawItems != 0 || numLevels < 1 || numLevels >= maxNumLevels || estimation != (numLevels > 1) {
		return nil, fmt.Errorf("%w: inconsistent preamble for %d levels", ErrCorruptData, numLevels)
	}

	offset := _PREAMBLE_BYTES
	var n uint64
	var minItem, maxItem C
	if estimation {
		if len(sl) < _DATA_START_ADR_ESTIMATION {
			return nil, fmt.Errorf("%w: truncated item count", ErrCorruptData)
		}
		n = getN(sl)
		var bounds []C
		bounds, offset, err = decodeItems(sl, _DATA_START_ADR_ESTIMATION, 2, serde)
		if err != nil {
			return nil, err
		}
		minItem, maxItem = bounds[0], bounds[1]
	}

	compactors := make([]*compactor[C], 0, numLevels)
	for h := 0; h < numLevels; h++ {
		var c *compactor[C]
		c, offset, err = decodeCompactor(sl, offset, h, s.hra, compareFn, serde, options.bits)
		if err != nil {
			return nil, err
		}
		compactors = append(compactors, c)
	}
	if offset != len(sl) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptData, len(sl)-offset)
	}

	totalWeight, ok := retainedWeight(compactors)
	if !ok {
		return nil, fmt.Errorf("%w: retained weight overflows", ErrCorruptData)
	}
	if estimation {
		if n != totalWeight {
			return nil, fmt.Errorf("%w: n is %d but retained weight is %d", ErrCorruptData, n, totalWeight)
		}
	} else {
		level0 := compactors[0].items
		if len(level0) == 0 {
			return nil, fmt.Errorf("%w: non-empty sketch without items", ErrCorruptData)
		}
		n = totalWeight
		minItem, maxItem = level0[0], level0[0]
		for _, item := range level0[1:] {
			if compareFn(item, minItem) {
				minItem = item
			}
			if compareFn(maxItem, item) {
				maxItem = item
			}
		}
	}
	if compareFn(maxItem, minItem) {
		return nil, fmt.Errorf("%w: max item sorts before min item", ErrCorruptData)
	}

	s.compactors = compactors
	s.n = n
	s.minItem = &minItem
	s.maxItem = &maxItem
	return s, nil
}

// retainedWeight sums the weight of every retained item, reporting false on overflow.
func retainedWeight[C comparable](compactors []*compactor[C]) (uint64, bool) {
	total := uint64(0)
	for _, c := range compactors {
		hi, lo := bits.Mul64(uint64(c.getNumItems()), uint64(1)<<c.lgWeight)
		var carry uint64
		total, carry = bits.Add64(total, lo, 0)
		if hi != 0 || carry != 0 {
			return 0, false
		}
	}
	return total, true
}
