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
	"github.com/cespare/xxhash/v2"
	"github.com/twmb/murmur3"
)

const (
	DEFAULT_UPDATE_SEED = uint64(9001)
)

// Hash128 returns the 128-bit MurmurHash3 (x64 variant) of data under the given seed.
func Hash128(data []byte, seed uint64) (uint64, uint64) {
	return murmur3.SeedSum128(seed, seed, data)
}

// Fingerprint returns a 64-bit digest of a serialized image.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
