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
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned by the SerDes when a read would run past the end of the buffer.
var ErrOutOfBounds = errors.New("offset out of bounds")

// checkBounds reports whether [offset, offset+length) fits in a buffer of memCap bytes.
func checkBounds(offset, length, memCap int) bool {
	return offset >= 0 && length >= 0 && offset <= memCap && length <= memCap-offset
}

// fixedSizeOfMany validates that numItems items of itemBytes each fit in mem at offsetBytes.
func fixedSizeOfMany(mem []byte, offsetBytes int, numItems int, itemBytes int) (int, error) {
	if numItems < 0 {
		return 0, fmt.Errorf("negative item count: %d", numItems)
	}
	if numItems == 0 {
		return 0, nil
	}
	if !checkBounds(offsetBytes, 0, len(mem)) || numItems > (len(mem)-offsetBytes)/itemBytes {
		return 0, fmt.Errorf("%w: %d items of %d bytes at offset %d, buffer is %d bytes",
			ErrOutOfBounds, numItems, itemBytes, offsetBytes, len(mem))
	}
	return numItems * itemBytes, nil
}
