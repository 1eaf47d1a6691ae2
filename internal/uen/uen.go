// Package uen implements the quantized, incrementally-updatable evaluation
// network (UEN): feature indexing, the accumulator, the fixed-topology
// affine/clipped-ReLU layer stack, and the on-disk weight format. It is
// the Go-native re-architecture of the reference engine's nnue.c: rather
// than module-level mutable weight pointers and a process-wide PRNG seed,
// callers own an explicit Engine handle.
package uen

// Network topology constants. These must match the on-disk weight format
// and the feature indexing scheme exactly; they are part of the wire
// contract, not implementation details.
const (
	KHalf        = 256         // per-perspective accumulator width
	PSEnd        = 11 * 64     // 704: piece-type/colour * square, per king bucket
	KingBuckets  = 32          // files a-d only; caller mirrors the rest
	FTInDims     = KingBuckets * PSEnd // 22528
	FTOutDims    = 2 * KHalf   // 512, after concatenating both perspectives

	FTShift = 0
	Shift   = 6
	FVScale = 16

	Hidden1Out = 16
	Hidden2Out = 32

	ValueNone     = 0x7FFF
	ValueInfinite = 0x7FFE

	MaxActivePerSample = 32

	VersionNNUE = 2
)
