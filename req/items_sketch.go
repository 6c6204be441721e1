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

// Package req implements the Relative Error Quantiles sketch, a mergeable summary
// of a stream of comparable items whose rank error shrinks toward one end of the
// distribution. In high rank accuracy mode ranks near 1 are the most precise;
// otherwise ranks near 0 are.
//
// An ItemsSketch keeps a stack of compactors. Level h retains items of weight 2^h.
// When a level outgrows its nominal capacity half of a sorted range of it is
// promoted to the next level. Which half is chosen is decided by a coin that
// alternates deterministically on odd compactions and is drawn from a RandomBitSource
// on even ones. Seeding the source makes a sketch fully reproducible.
package req

import (
	"fmt"
	"strings"

	"github.com/streamsketch/datasketches-go/common"
	"github.com/streamsketch/datasketches-go/internal"
)

// RandomBitSource supplies the coin flips used by compaction.
type RandomBitSource = internal.RandomBitSource

type itemsSketchOptions struct {
	hra  bool
	bits internal.RandomBitSource
}

type ItemsSketchOptionFunc func(*itemsSketchOptions)

// WithHighRankAccuracy selects which end of the rank domain is kept most accurate.
// It defaults to true.
func WithHighRankAccuracy(hra bool) ItemsSketchOptionFunc {
	return func(o *itemsSketchOptions) {
		o.hra = hra
	}
}

// WithRandomBitSource makes the sketch draw compaction coins from src.
func WithRandomBitSource(src RandomBitSource) ItemsSketchOptionFunc {
	return func(o *itemsSketchOptions) {
		o.bits = src
	}
}

// WithSeed makes the compaction schedule reproducible.
func WithSeed(seed uint64) ItemsSketchOptionFunc {
	return func(o *itemsSketchOptions) {
		o.bits = internal.NewRandomBits(seed)
	}
}

func resolveOptions(opts []ItemsSketchOptionFunc) (itemsSketchOptions, error) {
	options := itemsSketchOptions{hra: true}
	for _, opt := range opts {
		opt(&options)
	}
	if options.bits == nil {
		seed, err := internal.GenerateRandomSeed()
		if err != nil {
			return options, err
		}
		options.bits = internal.NewRandomBits(seed)
	}
	return options, nil
}

// ItemsSketch is a REQ sketch over items of type C.
//
// It is not safe for concurrent use. Queries sort level 0 lazily, so even
// concurrent reads need external synchronization.
type ItemsSketch[C comparable] struct {
	k          uint16
	hra        bool
	n          uint64
	minItem    *C
	maxItem    *C
	compactors []*compactor[C]
	compareFn  common.CompareFn[C]
	serde      common.ItemSketchSerde[C]
	bits       internal.RandomBitSource
}

// NewReqItemsSketch creates an empty sketch. k must be even and within [MinK, MaxK].
// serde is only needed for serialization and may be nil otherwise.
func NewReqItemsSketch[C comparable](
	k uint16,
	compareFn common.CompareFn[C],
	serde common.ItemSketchSerde[C],
	opts ...ItemsSketchOptionFunc,
) (*ItemsSketch[C], error) {
	if err := checkK(k); err != nil {
		return nil, err
	}
	if compareFn == nil {
		return nil, fmt.Errorf("%w: no compare function provided", ErrInvalidArgument)
	}
	options, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return newItemsSketch(k, options.hra, compareFn, serde, options.bits), nil
}

// NewReqItemsSketchWithDefault creates an empty sketch with k = DefaultK in high
// rank accuracy mode.
func NewReqItemsSketchWithDefault[C comparable](compareFn common.CompareFn[C], serde common.ItemSketchSerde[C]) (*ItemsSketch[C], error) {
	return NewReqItemsSketch[C](DefaultK, compareFn, serde)
}

func newItemsSketch[C comparable](
	k uint16,
	hra bool,
	compareFn common.CompareFn[C],
	serde common.ItemSketchSerde[C],
	bits internal.RandomBitSource,
) *ItemsSketch[C] {
	s := &ItemsSketch[C]{
		k:         k,
		hra:       hra,
		compareFn: compareFn,
		serde:     serde,
		bits:      bits,
	}
	s.grow()
	return s
}

func (s *ItemsSketch[C]) grow() {
	lgWeight := uint8(len(s.compactors))
	s.compactors = append(s.compactors, newCompactor(s.hra, lgWeight, uint32(s.k), s.compareFn, s.bits))
}

// Update adds item to the sketch. NaN items are ignored.
func (s *ItemsSketch[C]) Update(item C) {
	if item != item {
		return
	}
	if s.IsEmpty() {
		minItem, maxItem := item, item
		s.minItem = &minItem
		s.maxItem = &maxItem
	} else {
		if s.compareFn(item, *s.minItem) {
			*s.minItem = item
		}
		if s.compareFn(*s.maxItem, item) {
			*s.maxItem = item
		}
	}
	s.n++
	s.compactors[0].append(item)
	if s.compactors[0].isOverCapacity() {
		s.compress()
	}
}

// compress runs the compaction cascade until no level is over capacity.
func (s *ItemsSketch[C]) compress() {
	for h := 0; h < len(s.compactors); h++ {
		if !s.compactors[h].isOverCapacity() {
			continue
		}
		if h+1 == len(s.compactors) {
			s.grow()
		}
		s.compactors[h].compact(s.compactors[h+1])
	}
}

// Merge folds other into s. other is not modified, and s may be merged with itself.
// The result is only as accurate as the coarser of the two inputs.
func (s *ItemsSketch[C]) Merge(other *ItemsSketch[C]) error {
	if other == nil {
		return fmt.Errorf("%w: nil sketch", ErrInvalidArgument)
	}
	if s.hra != other.hra {
		return fmt.Errorf("%w: cannot merge HRA and LRA sketches", ErrInvalidArgument)
	}
	if other.IsEmpty() {
		return nil
	}
	if other == s {
		other = s.copy()
	}

	if s.IsEmpty() {
		minItem, maxItem := *other.minItem, *other.maxItem
		s.minItem = &minItem
		s.maxItem = &maxItem
	} else {
		if s.compareFn(*other.minItem, *s.minItem) {
			*s.minItem = *other.minItem
		}
		if s.compareFn(*s.maxItem, *other.maxItem) {
			*s.maxItem = *other.maxItem
		}
	}
	s.n += other.n

	for h, oc := range other.compactors {
		if h < len(s.compactors) {
			if err := s.compactors[h].merge(oc); err != nil {
				return err
			}
		} else {
			s.compactors = append(s.compactors, oc.clone(s.compareFn, s.bits))
		}
	}
	s.compress()
	return nil
}

// copy returns a deep copy of s sharing its collaborators.
func (s *ItemsSketch[C]) copy() *ItemsSketch[C] {
	cp := *s
	if s.minItem != nil {
		minItem, maxItem := *s.minItem, *s.maxItem
		cp.minItem = &minItem
		cp.maxItem = &maxItem
	}
	cp.compactors = make([]*compactor[C], len(s.compactors))
	for i, c := range s.compactors {
		cp.compactors[i] = c.clone(s.compareFn, s.bits)
	}
	return &cp
}

// Reset returns the sketch to its freshly constructed state, keeping k, the
// accuracy mode and the random bit source.
func (s *ItemsSketch[C]) Reset() {
	s.n = 0
	s.minItem = nil
	s.maxItem = nil
	s.compactors = nil
	s.grow()
}

func (s *ItemsSketch[C]) IsEmpty() bool {
	return s.n == 0
}

// IsEstimationMode reports whether any compaction has happened. Until then every
// rank and quantile is exact.
func (s *ItemsSketch[C]) IsEstimationMode() bool {
	return len(s.compactors) > 1
}

func (s *ItemsSketch[C]) IsHighRankAccuracy() bool {
	return s.hra
}

func (s *ItemsSketch[C]) GetK() uint16 {
	return s.k
}

func (s *ItemsSketch[C]) GetN() uint64 {
	return s.n
}

func (s *ItemsSketch[C]) GetNumLevels() int {
	return len(s.compactors)
}

func (s *ItemsSketch[C]) GetNumRetained() int {
	numRetained := 0
	for _, c := range s.compactors {
		numRetained += c.getNumItems()
	}
	return numRetained
}

func (s *ItemsSketch[C]) GetMinItem() (C, error) {
	if s.IsEmpty() {
		var zero C
		return zero, ErrEmpty
	}
	return *s.minItem, nil
}

func (s *ItemsSketch[C]) GetMaxItem() (C, error) {
	if s.IsEmpty() {
		var zero C
		return zero, ErrEmpty
	}
	return *s.maxItem, nil
}

// GetRank returns the approximate fraction of the stream that is < item, or <= item if inclusive.
func (s *ItemsSketch[C]) GetRank(item C, inclusive bool) (float64, error) {
	if s.IsEmpty() {
		return 0, ErrEmpty
	}
	return float64(s.computeTotalWeight(item, inclusive)) / float64(s.n), nil
}

// GetRanks is GetRank for several items at once.
func (s *ItemsSketch[C]) GetRanks(items []C, inclusive bool) ([]float64, error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	ranks := make([]float64, len(items))
	for i, item := range items {
		ranks[i] = float64(s.computeTotalWeight(item, inclusive)) / float64(s.n)
	}
	return ranks, nil
}

func (s *ItemsSketch[C]) computeTotalWeight(item C, inclusive bool) uint64 {
	weight := uint64(0)
	for _, c := range s.compactors {
		weight += c.computeWeight(item, inclusive)
	}
	return weight
}

// GetQuantile returns an item whose rank approximates rank. Ranks 0 and 1 return
// the exact minimum and maximum.
func (s *ItemsSketch[C]) GetQuantile(rank float64, inclusive bool) (C, error) {
	var zero C
	if s.IsEmpty() {
		return zero, ErrEmpty
	}
	if err := checkNormalizedRankBounds(rank); err != nil {
		return zero, err
	}
	return s.newSortedView(inclusive).GetQuantile(rank)
}

// GetQuantiles is GetQuantile for several ranks, sharing one sorted view.
func (s *ItemsSketch[C]) GetQuantiles(ranks []float64, inclusive bool) ([]C, error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	for _, rank := range ranks {
		if err := checkNormalizedRankBounds(rank); err != nil {
			return nil, err
		}
	}
	view := s.newSortedView(inclusive)
	quantiles := make([]C, len(ranks))
	for i, rank := range ranks {
		q, err := view.GetQuantile(rank)
		if err != nil {
			return nil, err
		}
		quantiles[i] = q
	}
	return quantiles, nil
}

// GetCDF returns the approximate rank of each split point followed by 1.
// Split points must be unique and increasing.
func (s *ItemsSketch[C]) GetCDF(splitPoints []C, inclusive bool) ([]float64, error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	return s.newSortedView(inclusive).GetCDF(splitPoints, inclusive)
}

// GetPMF returns the approximate fraction of the stream falling into each of the
// len(splitPoints)+1 intervals delimited by the split points.
func (s *ItemsSketch[C]) GetPMF(splitPoints []C, inclusive bool) ([]float64, error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	return s.newSortedView(inclusive).GetPMF(splitPoints, inclusive)
}

// GetRankLowerBound returns a lower bound of the true rank for a rank estimated
// by this sketch, at the confidence of numStdDev standard deviations (1 to 3).
func (s *ItemsSketch[C]) GetRankLowerBound(rank float64, numStdDev int) (float64, error) {
	if err := checkNumStdDev(numStdDev); err != nil {
		return 0, err
	}
	if err := checkNormalizedRankBounds(rank); err != nil {
		return 0, err
	}
	return getRankLB(s.k, len(s.compactors), rank, numStdDev, s.n, s.hra), nil
}

// GetRankUpperBound is the counterpart of GetRankLowerBound.
func (s *ItemsSketch[C]) GetRankUpperBound(rank float64, numStdDev int) (float64, error) {
	if err := checkNumStdDev(numStdDev); err != nil {
		return 0, err
	}
	if err := checkNormalizedRankBounds(rank); err != nil {
		return 0, err
	}
	return getRankUB(s.k, len(s.compactors), rank, numStdDev, s.n, s.hra), nil
}

// GetSortedView returns the retained items merged into one weighted, sorted sequence.
func (s *ItemsSketch[C]) GetSortedView(inclusive bool) (*ItemsSketchSortedView[C], error) {
	if s.IsEmpty() {
		return nil, ErrEmpty
	}
	return s.newSortedView(inclusive), nil
}

func (s *ItemsSketch[C]) newSortedView(inclusive bool) *ItemsSketchSortedView[C] {
	view := newItemsSketchSortedView(s.GetNumRetained(), s.compareFn)
	for _, c := range s.compactors {
		c.sort()
		view.add(c.items, uint64(1)<<c.lgWeight)
	}
	view.setBounds(*s.minItem, *s.maxItem)
	view.convertToCumulative(inclusive)
	return view
}

// GetIterator returns an iterator over the retained items and their weights, level by level.
func (s *ItemsSketch[C]) GetIterator() *ItemsSketchIterator[C] {
	return newItemsSketchIterator(s.compactors)
}

// Fingerprint returns a digest of the serialized sketch. Two sketches with the
// same fingerprint serialize to the same bytes with overwhelming probability.
func (s *ItemsSketch[C]) Fingerprint() (uint64, error) {
	sl, err := s.ToSlice()
	if err != nil {
		return 0, err
	}
	return internal.Fingerprint(sl), nil
}

func (s *ItemsSketch[C]) String() string {
	var sb strings.Builder
	sb.WriteString("### REQ sketch summary:\n")
	sb.WriteString(fmt.Sprintf("   K                : %d\n", s.k))
	sb.WriteString(fmt.Sprintf("   High Rank Acc    : %v\n", s.hra))
	sb.WriteString(fmt.Sprintf("   Empty            : %v\n", s.IsEmpty()))
	sb.WriteString(fmt.Sprintf("   Estimation mode  : %v\n", s.IsEstimationMode()))
	sb.WriteString(fmt.Sprintf("   N                : %d\n", s.n))
	sb.WriteString(fmt.Sprintf("   Levels           : %d\n", len(s.compactors)))
	sb.WriteString(fmt.Sprintf("   Retained items   : %d\n", s.GetNumRetained()))
	if !s.IsEmpty() {
		sb.WriteString(fmt.Sprintf("   Min item         : %v\n", *s.minItem))
		sb.WriteString(fmt.Sprintf("   Max item         : %v\n", *s.maxItem))
	}
	sb.WriteString("### End sketch summary\n")
	return sb.String()
}
