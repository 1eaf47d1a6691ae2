package uen

import (
	"testing"

	"github.com/oskarp/uen/internal/position"
)

// syntheticWeights builds a small deterministic (non-zero) network so
// refresh-vs-incremental comparisons are meaningful; an all-zero network
// would trivially agree regardless of a bug in either path.
func syntheticWeights() *WeightStore {
	ws := NewZeroWeightStore()
	for i := range ws.FTBiases {
		ws.FTBiases[i] = int16((i % 7) - 3)
	}
	for i := range ws.FTWeights {
		ws.FTWeights[i] = int16((i % 11) - 5)
	}
	for i := range ws.PSQTWeights {
		ws.PSQTWeights[i] = int16((i % 13) - 6)
	}
	return ws
}

func refreshBoth(ws *WeightStore, pos position.Oracle) *Accumulator {
	var acc Accumulator
	acc.Refresh(ws, pos, position.Black)
	acc.Refresh(ws, pos, position.White)
	return &acc
}

// TestIncrementalMatchesRefreshOpeningSequence plays the Ruy Lopez
// opening (e4 e5, Nf3 Nc6, Bb5) move by move, updating the accumulator
// incrementally after each ply, and checks it always agrees with a fresh
// refresh -- the accumulator correctness invariant from spec.md 4.B.
func TestIncrementalMatchesRefreshOpeningSequence(t *testing.T) {
	ws := syntheticWeights()
	pos := position.StartPosition()
	acc := refreshBoth(ws, pos)

	moves := []position.Move{
		{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)},  // e2e4
		{From: position.MakeSquare(4, 6), To: position.MakeSquare(4, 4)},  // e7e5
		{From: position.MakeSquare(6, 0), To: position.MakeSquare(5, 2)},  // Ng1f3
		{From: position.MakeSquare(1, 7), To: position.MakeSquare(2, 5)},  // Nb8c6
		{From: position.MakeSquare(5, 0), To: position.MakeSquare(1, 4)},  // Bf1b5
	}

	for i, m := range moves {
		mover := pos.Turn
		moved := pos.PieceOn(m.From).Type()
		before := *pos // Oracle snapshot before the move, for Do
		pos.MakeMove(m)

		acc.Do(ws, &before, pos, m, moved, mover)

		ref := refreshBoth(ws, pos)
		if acc.Acc != ref.Acc || acc.Psqt != ref.Psqt {
			t.Fatalf("ply %d: incremental accumulator diverged from refresh", i)
		}
	}
}

// TestUndoUpdateInvertsDoUpdate checks that applying a move then undoing
// it returns the accumulator to its pre-move state exactly.
func TestUndoUpdateInvertsDoUpdate(t *testing.T) {
	ws := syntheticWeights()
	pos := position.StartPosition()
	acc := refreshBoth(ws, pos)
	original := *acc

	m := position.Move{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)}
	mover := pos.Turn
	moved := pos.PieceOn(m.From).Type()
	before := *pos
	u := pos.MakeMove(m)
	acc.Do(ws, &before, pos, m, moved, mover)

	pos.UnmakeMove(u)
	acc.Undo(ws, pos, m, moved, mover)

	if acc.Acc != original.Acc || acc.Psqt != original.Psqt {
		t.Fatalf("accumulator after do+undo does not match original")
	}
}

// TestKingMoveForcesRefresh checks that moving a king (which invalidates
// that side's whole accumulator half) still agrees with Refresh.
func TestKingMoveForcesRefresh(t *testing.T) {
	ws := syntheticWeights()
	pos := position.StartPosition()
	pos.MakeMove(position.Move{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)})
	pos.MakeMove(position.Move{From: position.MakeSquare(4, 6), To: position.MakeSquare(4, 4)})
	acc := refreshBoth(ws, pos)

	m := position.Move{From: position.MakeSquare(4, 0), To: position.MakeSquare(4, 1)} // Ke1e2
	mover := pos.Turn
	moved := pos.PieceOn(m.From).Type()
	before := *pos
	pos.MakeMove(m)
	acc.Do(ws, &before, pos, m, moved, mover)

	ref := refreshBoth(ws, pos)
	if acc.Acc != ref.Acc || acc.Psqt != ref.Psqt {
		t.Fatalf("king move: incremental accumulator diverged from refresh")
	}
}
