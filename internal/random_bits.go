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
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// RandomBitSource supplies independent, uniformly distributed bits.
type RandomBitSource interface {
	RandomBit() bool
}

// RandomBits derives bits from the 128-bit hash of a running counter.
// Sources created with the same seed yield the same sequence.
// It is not safe for concurrent use.
type RandomBits struct {
	seed    uint64
	counter uint64
	lo, hi  uint64
	left    int
	scratch [8]byte
}

// NewRandomBits returns a bit source seeded with seed.
func NewRandomBits(seed uint64) *RandomBits {
	return &RandomBits{seed: seed}
}

// RandomBit returns the next bit of the sequence.
func (r *RandomBits) RandomBit() bool {
	if r.left == 0 {
		binary.LittleEndian.PutUint64(r.scratch[:], r.counter)
		r.counter++
		r.lo, r.hi = Hash128(r.scratch[:], r.seed)
		r.left = 128
	}
	r.left--
	var bit uint64
	if r.left >= 64 {
		bit = (r.hi >> (r.left - 64)) & 1
	} else {
		bit = (r.lo >> r.left) & 1
	}
	return bit == 1
}

// GenerateRandomSeed generates a cryptographically random seed value.
func GenerateRandomSeed() (uint64, error) {
	buf := make([]byte, 8)
	_, err := rand.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("failed to generate random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}
