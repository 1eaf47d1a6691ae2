package uen

import (
	"fmt"

	"github.com/oskarp/uen/internal/position"
)

// Engine is the explicit handle the Design Notes call for in place of the
// reference engine's module-level weight pointers and process-wide seed:
// it owns the active WeightStore and is passed by reference. A process
// may hold several Engines (e.g. one per search thread) backed by the
// same *WeightStore, since WeightStore is read-only after Load.
type Engine struct {
	Weights *WeightStore
	Strict  bool // when true, Do/Undo re-derive by Refresh and compare (spec.md 7, Fatal internal)
}

// NewEngine returns an Engine using the embedded all-zero weights.
func NewEngine() *Engine {
	return &Engine{Weights: NewZeroWeightStore()}
}

// LoadWeights points e at weights loaded from path.
func (e *Engine) LoadWeights(path string) error {
	ws, err := LoadFile(path)
	if err != nil {
		return err
	}
	e.Weights = ws
	return nil
}

// UseBuiltinWeights resets e to the embedded all-zero network.
func (e *Engine) UseBuiltinWeights() {
	e.Weights = NewZeroWeightStore()
}

// Refresh recomputes acc's half for perspective from scratch.
func (e *Engine) Refresh(acc *Accumulator, pos position.Oracle, perspective position.Color) {
	acc.Refresh(e.Weights, pos, perspective)
}

// DoUpdate applies move m (not yet applied to pos) incrementally, or
// panics with a diagnostic in Strict mode if the result disagrees with a
// fresh refresh -- the "Fatal internal" contract of spec.md 7, which is
// a debug-only check; release code trusts the incremental path.
func (e *Engine) DoUpdate(acc *Accumulator, before, after position.Oracle, m position.Move, moved position.PieceType, mover position.Color) {
	acc.Do(e.Weights, before, after, m, moved, mover)
	if e.Strict {
		e.assertMatchesRefresh(acc, after, m)
	}
}

// UndoUpdate inverts DoUpdate; pos must already have m popped.
func (e *Engine) UndoUpdate(acc *Accumulator, pos position.Oracle, m position.Move, moved position.PieceType, mover position.Color) {
	acc.Undo(e.Weights, pos, m, moved, mover)
	if e.Strict {
		e.assertMatchesRefresh(acc, pos, m)
	}
}

func (e *Engine) assertMatchesRefresh(acc *Accumulator, pos position.Oracle, m position.Move) {
	var fresh Accumulator
	fresh.Refresh(e.Weights, pos, position.Black)
	fresh.Refresh(e.Weights, pos, position.White)
	if fresh.Acc != acc.Acc || fresh.Psqt != acc.Psqt {
		panic(fmt.Sprintf("uen: accumulator mismatch after move %+v: incremental %v != refresh %v", m, acc, fresh))
	}
}

// Evaluate returns the scalar integer evaluation of pos from the
// perspective of pos.SideToMove(), given already-synchronised acc.
func (e *Engine) Evaluate(pos position.Oracle, acc *Accumulator) int32 {
	return Evaluate(e.Weights, acc, pos.SideToMove())
}
