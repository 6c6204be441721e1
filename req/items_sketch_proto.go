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
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/streamsketch/datasketches-go/common"
)

// Field numbers of the protobuf messages
//
//	message ReqSketch {
//	  uint32 k = 1;
//	  bool hra = 2;
//	  uint64 n = 3;
//	  bytes min = 4;
//	  bytes max = 5;
//	  repeated Compactor compactors = 6;
//	}
//
//	message Compactor {
//	  uint64 state = 1;
//	  float section_size_raw = 2;
//	  uint32 lg_weight = 3;
//	  uint32 num_sections = 4;
//	  uint32 num_items = 5;
//	  bytes items = 6;
//	}
//
// Items are encoded with the sketch's SerDe.
const (
	protoSketchK          protowire.Number = 1
	protoSketchHRA        protowire.Number = 2
	protoSketchN          protowire.Number = 3
	protoSketchMin        protowire.Number = 4
	protoSketchMax        protowire.Number = 5
	protoSketchCompactors protowire.Number = 6

	protoCompactorState          protowire.Number = 1
	protoCompactorSectionSizeRaw protowire.Number = 2
	protoCompactorLgWeight       protowire.Number = 3
	protoCompactorNumSections    protowire.Number = 4
	protoCompactorNumItems       protowire.Number = 5
	protoCompactorItems          protowire.Number = 6

	maxProtoItems = math.MaxInt32
)

// ToProto encodes the sketch as a ReqSketch protobuf message.
func (s *ItemsSketch[C]) ToProto() ([]byte, error) {
	if s.serde == nil {
		return nil, fmt.Errorf("%w: no SerDe provided", ErrInvalidArgument)
	}
	var b []byte
	b = protowire.AppendTag(b, protoSketchK, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.k))
	b = protowire.AppendTag(b, protoSketchHRA, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(s.hra))
	b = protowire.AppendTag(b, protoSketchN, protowire.VarintType)
	b = protowire.AppendVarint(b, s.n)
	if s.IsEmpty() {
		return b, nil
	}
	b = protowire.AppendTag(b, protoSketchMin, protowire.BytesType)
	b = protowire.AppendBytes(b, s.serde.SerializeOneToSlice(*s.minItem))
	b = protowire.AppendTag(b, protoSketchMax, protowire.BytesType)
	b = protowire.AppendBytes(b, s.serde.SerializeOneToSlice(*s.maxItem))
	for _, c := range s.compactors {
		b = protowire.AppendTag(b, protoSketchCompactors, protowire.BytesType)
		b = protowire.AppendBytes(b, c.toProto(s.serde))
	}
	return b, nil
}

func (c *compactor[C]) toProto(serde common.ItemSketchSerde[C]) []byte {
	var b []byte
	b = protowire.AppendTag(b, protoCompactorState, protowire.VarintType)
	b = protowire.AppendVarint(b, c.state)
	b = protowire.AppendTag(b, protoCompactorSectionSizeRaw, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(c.sectionSizeRaw))
	b = protowire.AppendTag(b, protoCompactorLgWeight, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.lgWeight))
	b = protowire.AppendTag(b, protoCompactorNumSections, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(c.numSections))
	b = protowire.AppendTag(b, protoCompactorNumItems, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(len(c.items)))
	b = protowire.AppendTag(b, protoCompactorItems, protowire.BytesType)
	b = protowire.AppendBytes(b, serde.SerializeManyToSlice(c.items))
	return b
}

// protoField is one decoded field of a message. Only varint, fixed32 and bytes
// fields are kept; anything else is skipped.
type protoField struct {
	num   protowire.Number
	typ   protowire.Type
	value uint64
	bytes []byte
}

func parseProtoFields(b []byte) ([]protoField, error) {
	var fields []protoField
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, protowire.ParseError(n))
		}
		b = b[n:]
		f := protoField{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.value, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.value = uint64(v)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %d: %v", ErrCorruptData, num, protowire.ParseError(n))
		}
		b = b[n:]
		fields = append(fields, f)
	}
	return fields, nil
}

// NewReqItemsSketchFromProto restores a sketch encoded by ToProto. It applies the
// same validation as NewReqItemsSketchFromSlice.
func NewReqItemsSketchFromProto[C comparable](
	b []byte,
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
	fields, err := parseProtoFields(b)
	if err != nil {
		return nil, err
	}

	var (
		k              uint64
		hra            bool
		n              uint64
		minBytes       []byte
		maxBytes       []byte
		compactorBytes [][]byte
	)
	for _, f := range fields {
		switch {
		case f.num == protoSketchK && f.typ == protowire.VarintType:
			k = f.value
		case f.num == protoSketchHRA && f.typ == protowire.VarintType:
			hra = protowire.DecodeBool(f.value)
		case f.num == protoSketchN && f.typ == protowire.VarintType:
			n = f.value
		case f.num == protoSketchMin && f.typ == protowire.BytesType:
			minBytes = f.bytes
		case f.num == protoSketchMax && f.typ == protowire.BytesType:
			maxBytes = f.bytes
		case f.num == protoSketchCompactors && f.typ == protowire.BytesType:
			compactorBytes = append(compactorBytes, f.bytes)
		}
	}

	if k > MaxK {
		return nil, fmt.Errorf("%w: k %d out of range", ErrCorruptData, k)
	}
	if err := checkK(uint16(k)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	s := newItemsSketch(uint16(k), hra, compareFn, serde, options.bits)
	if n == 0 {
		if len(compactorBytes) != 0 || minBytes != nil || maxBytes != nil {
			return nil, fmt.Errorf("%w: empty sketch with retained data", ErrCorruptData)
		}
		return s, nil
	}

	if len(compactorBytes) < 1 || len(compactorBytes) >= maxNumLevels {
		return nil, fmt.Errorf("%w: invalid number of levels %d", ErrCorruptData, len(compactorBytes))
	}
	minItem, err := decodeProtoItem(minBytes, serde)
	if err != nil {
		return nil, err
	}
	maxItem, err := decodeProtoItem(maxBytes, serde)
	if err != nil {
		return nil, err
	}
	if compareFn(maxItem, minItem) {
		return nil, fmt.Errorf("%w: max item sorts before min item", ErrCorruptData)
	}

	compactors := make([]*compactor[C], 0, len(compactorBytes))
	for h, cb := range compactorBytes {
		c, err := compactorFromProto(cb, h, hra, compareFn, serde, s.bits)
		if err != nil {
			return nil, err
		}
		compactors = append(compactors, c)
	}
	totalWeight, ok := retainedWeight(compactors)
	if !ok || totalWeight != n {
		return nil, fmt.Errorf("%w: n is %d but retained weight is %d", ErrCorruptData, n, totalWeight)
	}

	s.compactors = compactors
	s.n = n
	s.minItem = &minItem
	s.maxItem = &maxItem
	return s, nil
}

func decodeProtoItem[C comparable](b []byte, serde common.ItemSketchSerde[C]) (C, error) {
	var zero C
	items, offset, err := decodeItems(b, 0, 1, serde)
	if err != nil {
		return zero, err
	}
	if offset != len(b) {
		return zero, fmt.Errorf("%w: %d trailing bytes after item", ErrCorruptData, len(b)-offset)
	}
	return items[0], nil
}

func compactorFromProto[C comparable](
	b []byte,
	level int,
	hra bool,
	compareFn common.CompareFn[C],
	serde common.ItemSketchSerde[C],
	bits RandomBitSource,
) (*compactor[C], error) {
	fields, err := parseProtoFields(b)
	if err != nil {
		return nil, err
	}
	var (
		state          uint64
		sectionSizeRaw float32
		lgWeight       uint64
		numSections    uint64
		numItems       uint64
		itemBytes      []byte
	)
	for _, f := range fields {
		switch {
		case f.num == protoCompactorState && f.typ == protowire.VarintType:
			state = f.value
		case f.num == protoCompactorSectionSizeRaw && f.typ == protowire.Fixed32Type:
			sectionSizeRaw = math.Float32frombits(uint32(f.value))
		case f.num == protoCompactorLgWeight && f.typ == protowire.VarintType:
			lgWeight = f.value
		case f.num == protoCompactorNumSections && f.typ == protowire.VarintType:
			numSections = f.value
		case f.num == protoCompactorNumItems && f.typ == protowire.VarintType:
			numItems = f.value
		case f.num == protoCompactorItems && f.typ == protowire.BytesType:
			itemBytes = f.bytes
		}
	}
	if lgWeight != uint64(level) || numSections > maxNumSections {
		return nil, fmt.Errorf("%w: level %d has weight 2^%d and %d sections", ErrCorruptData, level, lgWeight, numSections)
	}
	if err := checkCompactorGeometry(level, uint8(lgWeight), sectionSizeRaw, uint32(numSections)); err != nil {
		return nil, err
	}
	if numItems > maxProtoItems {
		return nil, fmt.Errorf("%w: level %d declares %d items", ErrCorruptData, level, numItems)
	}
	items, offset, err := decodeItems(itemBytes, 0, int(numItems), serde)
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", level, err)
	}
	if offset != len(itemBytes) {
		return nil, fmt.Errorf("%w: level %d has %d trailing bytes", ErrCorruptData, level, len(itemBytes)-offset)
	}
	return restoreCompactor(level, hra, state, sectionSizeRaw, uint32(numSections), items, compareFn, bits)
}
