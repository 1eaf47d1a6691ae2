package uen

import "github.com/oskarp/uen/internal/position"

// clip saturates x to the clipped-ReLU range [0, 127] used throughout the
// quantized pipeline.
func clip(x int32) int8 {
	if x < 0 {
		return 0
	}
	if x > 127 {
		return 127
	}
	return int8(x)
}

// Transform produces the 512-wide (FTOutDims) int8 input to Hidden1 by concatenating
// own and opponent accumulator halves, each right-shifted by FTShift and
// clipped to [0, 127]. It also returns the PSQT difference term used in
// the final evaluation.
func Transform(acc *Accumulator, own, opp position.Color) (out [FTOutDims]int8, psqtDiff int32) {
	for i := 0; i < KHalf; i++ {
		out[i] = clip(int32(acc.Acc[own][i] >> FTShift))
		out[KHalf+i] = clip(int32(acc.Acc[opp][i] >> FTShift))
	}
	psqtDiff = acc.Psqt[own] - acc.Psqt[opp]
	return out, psqtDiff
}

// Pluggable layer kernels: which implementation backs these is chosen at
// compile time (simd_scalar.go vs simd_amd64.go), mirroring the reference
// engine's AVX2/scalar dual paths. permuteFunc is a no-op on the scalar
// build and applies the one-time weight permutation on the lane build.
var (
	hidden1Impl func(ws *WeightStore, in [FTOutDims]int8) [Hidden1Out]int8
	hidden2Impl func(ws *WeightStore, in [Hidden1Out]int8) [Hidden2Out]int8
	outputImpl  func(ws *WeightStore, in [Hidden2Out]int8) int32
	permuteFunc func(ws *WeightStore)
)

// Evaluate runs the full pipeline: Transform -> Hidden1 -> Hidden2 ->
// Output -> final scaled score. sideToMove selects which accumulator half
// is "own" (perspective 0) versus "opponent" (perspective 1).
func Evaluate(ws *WeightStore, acc *Accumulator, sideToMove position.Color) int32 {
	ftOut, psqtDiff := Transform(acc, sideToMove, sideToMove.Other())
	h1 := hidden1Impl(ws, ftOut)
	h2 := hidden2Impl(ws, h1)
	out := outputImpl(ws, h2)
	// Truncating division, matching evaluate_accumulator's use of C `/`
	// for this step (unlike the intermediate layers, which are genuine
	// arithmetic shifts).
	return out/16 + psqtDiff/2
}
