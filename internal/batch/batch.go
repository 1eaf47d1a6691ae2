// Package batch builds sparse COO training batches from decoded game
// entries, grounded on the reference engine's batchbit.c batch_worker:
// each sample contributes up to uen.MaxActivePerSample active features
// per perspective (own and opponent), real and virtual feature kinds
// both present, feature indices sorted ascending within the sample.
package batch

import (
	"sort"

	"github.com/oskarp/uen/internal/gamefile"
	"github.com/oskarp/uen/internal/position"
	"github.com/oskarp/uen/internal/uen"
)

// Batch is a sparse COO-encoded set of training samples. Ind1/Ind2 hold
// (sample, feature) coordinate pairs for the side-to-move and other-side
// perspectives respectively -- named to match batchbit.c's ind1/ind2,
// which are POV-relative, not literally white/black.
type Batch struct {
	Size int // number of samples

	// Ind1Sample/Ind1Feature and Ind2Sample/Ind2Feature are parallel
	// arrays of COO coordinates, one pair per active feature.
	Ind1Sample, Ind1Feature []int32
	Ind2Sample, Ind2Feature []int32

	IndActive int // total number of active-feature coordinate pairs across Ind1+Ind2

	Eval   []float32 // per-sample target eval, len Size
	Result []float32 // per-sample target game result in [0,1], len Size
}

// NewBatch preallocates a Batch for up to n samples.
func NewBatch(n int) *Batch {
	nnz := n * uen.MaxActivePerSample
	return &Batch{
		Ind1Sample:  make([]int32, 0, nnz),
		Ind1Feature: make([]int32, 0, nnz),
		Ind2Sample:  make([]int32, 0, nnz),
		Ind2Feature: make([]int32, 0, nnz),
		Eval:        make([]float32, 0, n),
		Result:      make([]float32, 0, n),
	}
}

// resultToFloat maps a gamefile.Result, viewed from the position's side
// to move, onto the [0,1] training target (loss=0, draw=0.5, win=1),
// matching batchbit.c's result-to-float conversion.
func resultToFloat(r gamefile.Result, sideToMove position.Color, recordedFrom position.Color) float32 {
	v := int(r)
	if sideToMove != recordedFrom {
		v = -v
	}
	switch {
	case v > 0:
		return 1.0
	case v < 0:
		return 0.0
	default:
		return 0.5
	}
}

// Add appends one training sample built from entry to b. recordedFrom is
// the color the game's Result is recorded relative to (conventionally
// White; the caller tracks this per archive). Active feature indices are
// gathered via uen.AppendActiveIndices for both the own and opponent
// perspectives, split into real/virtual index lists, and inserted
// sorted, exactly mirroring batch_worker's insertion-sort-by-feature-index
// loop so that downstream sparse-tensor consumers see canonical order.
func (b *Batch) Add(entry *gamefile.Entry, recordedFrom position.Color) {
	sample := int32(b.Size)
	stm := entry.Pos.SideToMove()
	other := stm.Other()

	var ownReal, ownVirtual, oppReal, oppVirtual uen.IndexList
	uen.AppendActiveIndices(entry.Pos, stm, &ownReal, &ownVirtual)
	uen.AppendActiveIndices(entry.Pos, other, &oppReal, &oppVirtual)

	b.Ind1Sample, b.Ind1Feature = appendSortedIndices(b.Ind1Sample, b.Ind1Feature, sample, &ownReal, &ownVirtual)
	b.Ind2Sample, b.Ind2Feature = appendSortedIndices(b.Ind2Sample, b.Ind2Feature, sample, &oppReal, &oppVirtual)
	b.IndActive += ownReal.Size + ownVirtual.Size + oppReal.Size + oppVirtual.Size

	var eval float32
	if entry.Eval == gamefile.ValueNone {
		eval = 0
	} else {
		// FV_SCALE/(127*64), matching batchbit.c's
		// ((float)(FV_SCALE*eval))/(127*64).
		eval = float32(entry.Eval) / 508
	}
	b.Eval = append(b.Eval, eval)
	b.Result = append(b.Result, resultToFloat(entry.Result, stm, recordedFrom))
	b.Size++
}

// appendSortedIndices merges real and virtual index lists (the virtual
// list's values are already offset by uen.FTInDims, see
// uen.MakeIndexVirtual) into ascending order and appends (sample, idx)
// coordinate pairs, matching batch_worker's insertion sort over the
// combined real+virtual feature list for a single sample.
func appendSortedIndices(sampleCol, featureCol []int32, sample int32, real, virtual *uen.IndexList) ([]int32, []int32) {
	merged := make([]int, 0, real.Size+virtual.Size)
	merged = append(merged, real.Values[:real.Size]...)
	merged = append(merged, virtual.Values[:virtual.Size]...)
	sort.Ints(merged)
	for _, idx := range merged {
		sampleCol = append(sampleCol, sample)
		featureCol = append(featureCol, int32(idx))
	}
	return sampleCol, featureCol
}
