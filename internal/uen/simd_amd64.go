//go:build amd64

package uen

// Lane-oriented implementation: biases and weight columns are permuted
// once at load time into the order a real SIMD kernel's 128-bit lanes
// would produce them in (groups of 8 neurons with the 2nd/3rd and 6th/7th
// positions swapped, the same shuffle the reference engine's AVX2 kernel
// applies -- see permuteWeights). Propagation then runs over the permuted
// layout and un-shuffles only once, on the way out, rather than after
// every multiply-add. Because lanePerm is an involution (it only swaps
// pairs), un-permuting is applying the same table again.
//
// Go has no portable way to emit real AVX2 without cgo or hand-written
// assembly, so this stands in for the hardware kernel: it reproduces the
// lane-order *data dependency* (permute-once-at-load, consume-permuted,
// unshuffle-on-output) that makes the bit-exactness contract in spec.md
// 4.C meaningful, without claiming to vectorize anything.

func init() {
	hidden1Impl = hidden1Lanes
	hidden2Impl = hidden2Lanes
	outputImpl = outputScalar // 32-wide output layer has only one lane group; no reorder needed
	permuteFunc = permuteHidden
}

func lanePerm(n int) []int {
	perm := make([]int, n)
	for base := 0; base < n; base += 8 {
		perm[base+0] = base + 0
		perm[base+1] = base + 2
		perm[base+2] = base + 1
		perm[base+3] = base + 3
		perm[base+4] = base + 4
		perm[base+5] = base + 6
		perm[base+6] = base + 5
		perm[base+7] = base + 7
	}
	return perm
}

// permuteHidden reorders Hidden1/Hidden2 biases and weight columns into
// lane order exactly once, immediately after the weight store is loaded.
// Applying it twice would silently corrupt the network -- callers must
// only ever invoke this from WeightStore.Load (via permuteFunc).
func permuteHidden(ws *WeightStore) {
	perm1 := lanePerm(Hidden1Out)
	biases1 := make([]int32, Hidden1Out)
	weights1 := make([]int8, len(ws.Hidden1Weights))
	for p, j := range perm1 {
		biases1[p] = ws.Hidden1Biases[j]
	}
	for i := 0; i < FTOutDims; i++ {
		for p, j := range perm1 {
			weights1[i*Hidden1Out+p] = ws.Hidden1Weights[i*Hidden1Out+j]
		}
	}
	copy(ws.Hidden1Biases[:], biases1)
	ws.Hidden1Weights = weights1

	perm2 := lanePerm(Hidden2Out)
	biases2 := make([]int32, Hidden2Out)
	weights2 := make([]int8, len(ws.Hidden2Weights))
	for p, j := range perm2 {
		biases2[p] = ws.Hidden2Biases[j]
	}
	for i := 0; i < Hidden1Out; i++ {
		for p, j := range perm2 {
			weights2[i*Hidden2Out+p] = ws.Hidden2Weights[i*Hidden2Out+j]
		}
	}
	copy(ws.Hidden2Biases[:], biases2)
	ws.Hidden2Weights = weights2

	// hidden2Lanes un-shuffles its output back to canonical neuron order
	// before returning (see below), so the output layer always sees
	// canonical-order activations and needs no permutation of its own.
}

func hidden1Lanes(ws *WeightStore, in [FTOutDims]int8) (out [Hidden1Out]int8) {
	var tmp [Hidden1Out]int32
	copy(tmp[:], ws.Hidden1Biases[:])
	for i := 0; i < FTOutDims; i++ {
		v := in[i]
		if v == 0 {
			continue
		}
		row := ws.Hidden1Weights[i*Hidden1Out : i*Hidden1Out+Hidden1Out]
		for p := 0; p < Hidden1Out; p++ {
			tmp[p] += int32(v) * int32(row[p])
		}
	}
	perm := lanePerm(Hidden1Out)
	for p := 0; p < Hidden1Out; p++ {
		out[perm[p]] = clip(tmp[p] >> Shift)
	}
	return out
}

func hidden2Lanes(ws *WeightStore, in [Hidden1Out]int8) (out [Hidden2Out]int8) {
	// in is already in canonical order (hidden1Lanes un-shuffled it), but
	// this layer's own weight columns are stored in lane order, so the
	// dot product runs in lane order and is unshuffled on the way out,
	// same as hidden1Lanes.
	var tmp [Hidden2Out]int32
	copy(tmp[:], ws.Hidden2Biases[:])
	for i := 0; i < Hidden1Out; i++ {
		v := in[i]
		if v == 0 {
			continue
		}
		row := ws.Hidden2Weights[i*Hidden2Out : i*Hidden2Out+Hidden2Out]
		for p := 0; p < Hidden2Out; p++ {
			tmp[p] += int32(v) * int32(row[p])
		}
	}
	perm := lanePerm(Hidden2Out)
	for p := 0; p < Hidden2Out; p++ {
		out[perm[p]] = clip(tmp[p] >> Shift)
	}
	return out
}
