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

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/twmb/murmur3"
)

func TestHash128MatchesMurmur3(t *testing.T) {
	key := []byte("The quick brown fox jumps over the lazy dog")
	h1, h2 := Hash128(key, DEFAULT_UPDATE_SEED)
	e1, e2 := murmur3.SeedSum128(DEFAULT_UPDATE_SEED, DEFAULT_UPDATE_SEED, key)
	assert.Equal(t, e1, h1)
	assert.Equal(t, e2, h2)

	o1, o2 := Hash128(key, DEFAULT_UPDATE_SEED+1)
	assert.False(t, o1 == h1 && o2 == h2)
}

func TestRandomBitsSameSeedSameSequence(t *testing.T) {
	a := NewRandomBits(42)
	b := NewRandomBits(42)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.RandomBit(), b.RandomBit(), "i: %d", i)
	}
}

func TestRandomBitsDifferentSeeds(t *testing.T) {
	a := NewRandomBits(1)
	b := NewRandomBits(2)
	same := 0
	for i := 0; i < 1024; i++ {
		if a.RandomBit() == b.RandomBit() {
			same++
		}
	}
	assert.Less(t, same, 1024)
}

func TestRandomBitsBalance(t *testing.T) {
	src := NewRandomBits(DEFAULT_UPDATE_SEED)
	n := 100_000
	ones := 0
	for i := 0; i < n; i++ {
		if src.RandomBit() {
			ones++
		}
	}
	// 6+ standard deviations away would indicate a broken extractor
	assert.InDelta(t, n/2, ones, 1000)
}

func TestRandomBitsConsumesWholeHash(t *testing.T) {
	src := NewRandomBits(7)
	lo, hi := Hash128([]byte{0, 0, 0, 0, 0, 0, 0, 0}, 7)
	for i := 63; i >= 0; i-- {
		assert.Equal(t, (hi>>i)&1 == 1, src.RandomBit())
	}
	for i := 63; i >= 0; i-- {
		assert.Equal(t, (lo>>i)&1 == 1, src.RandomBit())
	}
	assert.Equal(t, uint64(1), src.counter)
}

func TestGenerateRandomSeed(t *testing.T) {
	s1, err := GenerateRandomSeed()
	assert.NoError(t, err)
	s2, err := GenerateRandomSeed()
	assert.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte{1, 2, 3})
	assert.Equal(t, a, Fingerprint([]byte{1, 2, 3}))
	assert.NotEqual(t, a, Fingerprint([]byte{1, 2, 4}))
	assert.Equal(t, xxhash.Sum64String(""), Fingerprint(nil))
}
