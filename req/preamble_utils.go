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
)

const (
	_PREAMBLE_INTS_BYTE_ADR = 0
	_SER_VER_BYTE_ADR       = 1
	_FAMILY_BYTE_ADR        = 2
	_FLAGS_BYTE_ADR         = 3
	_K_SHORT_ADR            = 4 // to 5
	_NUM_LEVELS_BYTE_ADR    = 6
	_NUM_RAW_ITEMS_BYTE_ADR = 7
	_N_LONG_ADR             = 8 // to 15, estimation mode only

	_PREAMBLE_BYTES            = 8
	_DATA_START_ADR_ESTIMATION = 16

	_SERIAL_VERSION           = 1
	_PREAMBLE_INTS_SHORT      = 2 // empty, raw items or exact mode
	_PREAMBLE_INTS_ESTIMATION = 4 // n, min and max follow the preamble

	// Flag bit masks
	_EMPTY_BIT_MASK             = 4
	_HRA_BIT_MASK               = 8
	_RAW_ITEMS_BIT_MASK         = 16
	_LEVEL_ZERO_SORTED_BIT_MASK = 32
)

func getPreInts(mem []byte) int {
	return int(mem[_PREAMBLE_INTS_BYTE_ADR])
}

func getSerVer(mem []byte) int {
	return int(mem[_SER_VER_BYTE_ADR])
}

func getFamilyID(mem []byte) int {
	return int(mem[_FAMILY_BYTE_ADR])
}

func getFlags(mem []byte) int {
	return int(mem[_FLAGS_BYTE_ADR])
}

func getEmptyFlag(mem []byte) bool {
	return getFlags(mem)&_EMPTY_BIT_MASK != 0
}

func getHRAFlag(mem []byte) bool {
	return getFlags(mem)&_HRA_BIT_MASK != 0
}

func getRawItemsFlag(mem []byte) bool {
	return getFlags(mem)&_RAW_ITEMS_BIT_MASK != 0
}

func getK(mem []byte) uint16 {
	return binary.LittleEndian.Uint16(mem[_K_SHORT_ADR : _K_SHORT_ADR+2])
}

func getNumLevels(mem []byte) int {
	return int(mem[_NUM_LEVELS_BYTE_ADR])
}

func getNumRawItems(mem []byte) int {
	return int(mem[_NUM_RAW_ITEMS_BYTE_ADR])
}

func getN(mem []byte) uint64 {
	return binary.LittleEndian.Uint64(mem[_N_LONG_ADR : _N_LONG_ADR+8])
}
