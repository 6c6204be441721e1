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

type Family struct {
	Id          int
	Name        string
	MaxPreLongs int
}

type families struct {
	HLL       Family
	Frequency Family
	Kll       Family
	CPC       Family
	Req       Family
	TDigest   Family
}

// FamilyEnum lists the family ids shared by every DataSketches binary image.
// Only REQ images are produced here; the other ids let decoders name what they were handed.
var FamilyEnum = &families{
	HLL: Family{
		Id:          7,
		Name:        "HLL",
		MaxPreLongs: 1,
	},
	Frequency: Family{
		Id:          10,
		Name:        "FREQUENCY",
		MaxPreLongs: 4,
	},
	Kll: Family{
		Id:          15,
		Name:        "KLL",
		MaxPreLongs: 2,
	},
	CPC: Family{
		Id:          16,
		Name:        "CPC",
		MaxPreLongs: 5,
	},
	Req: Family{
		Id:          17,
		Name:        "REQ",
		MaxPreLongs: 2,
	},
	TDigest: Family{
		Id:          20,
		Name:        "TDIGEST",
		MaxPreLongs: 2,
	},
}

// FamilyName returns the name registered for id, or "UNKNOWN".
func FamilyName(id int) string {
	for _, f := range []Family{
		FamilyEnum.HLL, FamilyEnum.Frequency, FamilyEnum.Kll,
		FamilyEnum.CPC, FamilyEnum.Req, FamilyEnum.TDigest,
	} {
		if f.Id == id {
			return f.Name
		}
	}
	return "UNKNOWN"
}
