package uen

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/singleflight"
)

// WeightStore holds one fixed-topology network's weights and biases.
// NewZeroWeightStore returns a valid "all-zero" network (spec.md S4) for
// which Evaluate returns 0 for every position; the zero value itself has
// nil weight slices and is not usable until Load fills it. WeightStore is safe to read concurrently once
// loaded; it must not be mutated after Load/LoadFile returns.
type WeightStore struct {
	FTBiases    [KHalf]int16
	FTWeights   []int16 // len FTInDims*KHalf, row-major: index*KHalf+j
	PSQTWeights []int16 // len FTInDims

	Hidden1Weights []int8 // len FTOutDims*Hidden1Out, index i*Hidden1Out+j
	Hidden1Biases  [Hidden1Out]int32

	Hidden2Weights []int8 // len Hidden1Out*Hidden2Out, index i*Hidden2Out+j
	Hidden2Biases  [Hidden2Out]int32

	OutputWeights [Hidden2Out]int8
	OutputBias    int32
}

// NewZeroWeightStore returns a network with every weight and bias set to
// zero, matching the embedded-defaults backend when no file is loaded.
func NewZeroWeightStore() *WeightStore {
	return &WeightStore{
		FTWeights:      make([]int16, FTInDims*KHalf),
		PSQTWeights:    make([]int16, FTInDims),
		Hidden1Weights: make([]int8, FTOutDims*Hidden1Out),
		Hidden2Weights: make([]int8, Hidden1Out*Hidden2Out),
	}
}

func readInt16(r io.Reader) (int16, error) {
	var v int16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// Load reads a version-2 weight file from r, per spec.md 4.D: a u16
// version prelude, biases and feature-transformer weights interleaved
// with the PSQT column at stride KHalf+1, then the two hidden layers and
// the output layer, each column-major on disk and transposed here into
// row-major [input][output]-indexed storage (index input*outDim+output). Extra trailing bytes, or a
// short read anywhere, is a FormatError.
func (ws *WeightStore) Load(r io.Reader) error {
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("uen: read version: %w", err)
	}
	if version != VersionNNUE {
		return fmt.Errorf("uen: unsupported weight file version %d (want %d)", version, VersionNNUE)
	}

	for i := 0; i < KHalf; i++ {
		v, err := readInt16(r)
		if err != nil {
			return fmt.Errorf("uen: read ft bias %d: %w", i, err)
		}
		ws.FTBiases[i] = v
	}
	// One 2-byte historical padding value, discarded.
	if _, err := readInt16(r); err != nil {
		return fmt.Errorf("uen: read ft bias padding: %w", err)
	}

	ws.FTWeights = make([]int16, FTInDims*KHalf)
	ws.PSQTWeights = make([]int16, FTInDims)
	for idx := 0; idx < FTInDims; idx++ {
		for j := 0; j < KHalf; j++ {
			v, err := readInt16(r)
			if err != nil {
				return fmt.Errorf("uen: read ft weight [%d][%d]: %w", idx, j, err)
			}
			ws.FTWeights[idx*KHalf+j] = v
		}
		psqt, err := readInt16(r)
		if err != nil {
			return fmt.Errorf("uen: read psqt weight %d: %w", idx, err)
		}
		ws.PSQTWeights[idx] = psqt
	}

	for j := 0; j < Hidden1Out; j++ {
		v, err := readInt32(r)
		if err != nil {
			return fmt.Errorf("uen: read hidden1 bias %d: %w", j, err)
		}
		ws.Hidden1Biases[j] = v
	}
	ws.Hidden1Weights = make([]int8, FTOutDims*Hidden1Out)
	for j := 0; j < Hidden1Out; j++ {
		for k := 0; k < FTOutDims; k++ {
			var b byte
			if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
				return fmt.Errorf("uen: read hidden1 weight [%d][%d]: %w", j, k, err)
			}
			ws.Hidden1Weights[k*Hidden1Out+j] = int8(b)
		}
	}

	for j := 0; j < Hidden2Out; j++ {
		v, err := readInt32(r)
		if err != nil {
			return fmt.Errorf("uen: read hidden2 bias %d: %w", j, err)
		}
		ws.Hidden2Biases[j] = v
	}
	ws.Hidden2Weights = make([]int8, Hidden1Out*Hidden2Out)
	for j := 0; j < Hidden2Out; j++ {
		for k := 0; k < Hidden1Out; k++ {
			var b byte
			if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
				return fmt.Errorf("uen: read hidden2 weight [%d][%d]: %w", j, k, err)
			}
			ws.Hidden2Weights[k*Hidden2Out+j] = int8(b)
		}
	}

	outBias, err := readInt32(r)
	if err != nil {
		return fmt.Errorf("uen: read output bias: %w", err)
	}
	ws.OutputBias = outBias
	for i := 0; i < Hidden2Out; i++ {
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return fmt.Errorf("uen: read output weight %d: %w", i, err)
		}
		ws.OutputWeights[i] = int8(b)
	}

	var probe [1]byte
	if n, _ := r.Read(probe[:]); n != 0 {
		return fmt.Errorf("uen: trailing bytes after weight file")
	}

	// Apply the one-time SIMD lane permutation (a no-op on the scalar
	// build, see simd_scalar.go / simd_amd64.go). Must happen exactly
	// once, here, never again for the lifetime of ws.
	permuteFunc(ws)
	return nil
}

var loadGroup singleflight.Group

// LoadFile opens path and loads a weight file from it. Concurrent calls
// for the same path are collapsed into a single disk read via
// singleflight, since multiple Engine handles may share a weights
// directory at process start.
func LoadFile(path string) (*WeightStore, error) {
	v, err, _ := loadGroup.Do(path, func() (interface{}, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("uen: open weight file: %w", err)
		}
		defer f.Close()
		ws := &WeightStore{}
		if err := ws.Load(f); err != nil {
			return nil, err
		}
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*WeightStore), nil
}
