package uen

import "github.com/oskarp/uen/internal/position"

// Accumulator is the per-position hidden state of the feature transformer:
// one int16 vector per perspective plus a parallel int32 PSQT sum, kept in
// sync with the position by Refresh (from scratch) or DoUpdate/UndoUpdate
// (incremental), mirroring struct position's accumulation/psqtaccumulation
// fields in the reference engine.
type Accumulator struct {
	Acc      [2][KHalf]int16
	Psqt     [2]int32
	Computed [2]bool
}

func (a *Accumulator) addIndex(ws *WeightStore, idx int, perspective position.Color) {
	off := idx * KHalf
	row := a.Acc[perspective][:]
	w := ws.FTWeights[off : off+KHalf]
	for j := 0; j < KHalf; j++ {
		row[j] += w[j]
	}
	a.Psqt[perspective] += int32(ws.PSQTWeights[idx])
}

func (a *Accumulator) removeIndex(ws *WeightStore, idx int, perspective position.Color) {
	off := idx * KHalf
	row := a.Acc[perspective][:]
	w := ws.FTWeights[off : off+KHalf]
	for j := 0; j < KHalf; j++ {
		row[j] -= w[j]
	}
	a.Psqt[perspective] -= int32(ws.PSQTWeights[idx])
}

// Refresh recomputes acc[perspective]/psqt[perspective] from scratch: bias
// plus one term per piece on the board (including the opposing king, but
// never the perspective's own king — see AppendActiveIndices). O(pieces).
func (a *Accumulator) Refresh(ws *WeightStore, pos position.Oracle, perspective position.Color) {
	copy(a.Acc[perspective][:], ws.FTBiases[:])
	a.Psqt[perspective] = 0

	var real, virtual IndexList
	AppendActiveIndices(pos, perspective, &real, &virtual)
	for i := 0; i < real.Size; i++ {
		a.addIndex(ws, real.Values[i], perspective)
	}
	a.Computed[perspective] = true
}

var castleRookSquare = map[position.Square]struct{ from, to position.Square }{
	6:  {7, 5},
	2:  {0, 3},
	62: {63, 61},
	58: {56, 59},
}

// DoUpdate applies the incremental effect of move m (not yet applied to
// pos) on perspective's half of the accumulator. The caller must not call
// this for a move that moves perspective's own king — see IsKingMove —
// since that invalidates every existing term and requires Refresh instead.
func (a *Accumulator) DoUpdate(ws *WeightStore, pos position.Oracle, m position.Move, perspective position.Color) {
	mover := pos.SideToMove()
	kingSq := pos.KingSquare(perspective)
	moved := pos.PieceOn(m.From).Type()

	a.removeIndex(ws, MakeIndex(perspective, m.From, position.MakePiece(moved, mover), kingSq), perspective)

	placed := moved
	if m.Flag == position.FlagPromotion {
		placed = m.Promotion
	}
	a.addIndex(ws, MakeIndex(perspective, m.To, position.MakePiece(placed, mover), kingSq), perspective)

	switch {
	case m.Flag == position.FlagEnPassant:
		capSq := m.To - 8
		if mover == position.Black {
			capSq = m.To + 8
		}
		a.removeIndex(ws, MakeIndex(perspective, capSq, position.MakePiece(position.Pawn, mover.Other()), kingSq), perspective)
	case m.Captured != position.NoPieceType:
		a.removeIndex(ws, MakeIndex(perspective, m.To, position.MakePiece(m.Captured, mover.Other()), kingSq), perspective)
	case m.Flag == position.FlagCastle:
		r := castleRookSquare[m.To]
		a.removeIndex(ws, MakeIndex(perspective, r.from, position.MakePiece(position.Rook, mover), kingSq), perspective)
		a.addIndex(ws, MakeIndex(perspective, r.to, position.MakePiece(position.Rook, mover), kingSq), perspective)
	}
}

// UndoUpdate inverts DoUpdate. It must be called after the move has
// already been popped from pos (position.Position.UnmakeMove), so that
// pos reflects the pre-move state DoUpdate originally saw.
func (a *Accumulator) UndoUpdate(ws *WeightStore, pos position.Oracle, m position.Move, perspective position.Color) {
	mover := pos.SideToMove()
	kingSq := pos.KingSquare(perspective)
	moved := pos.PieceOn(m.From).Type()

	placed := moved
	if m.Flag == position.FlagPromotion {
		placed = m.Promotion
	}
	a.removeIndex(ws, MakeIndex(perspective, m.To, position.MakePiece(placed, mover), kingSq), perspective)
	a.addIndex(ws, MakeIndex(perspective, m.From, position.MakePiece(moved, mover), kingSq), perspective)

	switch {
	case m.Flag == position.FlagEnPassant:
		capSq := m.To - 8
		if mover == position.Black {
			capSq = m.To + 8
		}
		a.addIndex(ws, MakeIndex(perspective, capSq, position.MakePiece(position.Pawn, mover.Other()), kingSq), perspective)
	case m.Captured != position.NoPieceType:
		a.addIndex(ws, MakeIndex(perspective, m.To, position.MakePiece(m.Captured, mover.Other()), kingSq), perspective)
	case m.Flag == position.FlagCastle:
		r := castleRookSquare[m.To]
		a.addIndex(ws, MakeIndex(perspective, r.from, position.MakePiece(position.Rook, mover), kingSq), perspective)
		a.removeIndex(ws, MakeIndex(perspective, r.to, position.MakePiece(position.Rook, mover), kingSq), perspective)
	}
}

// Do updates both perspectives' halves after m has been applied to pos
// (pos.SideToMove() already reflects the post-move side). moved is the
// piece that moved, as seen before the move (callers read it from the
// pre-move mailbox, same as position.Position.MakeMove's Undo.Move does
// not carry it, so it is passed explicitly here).
//
// Per spec.md 4.B: if m moves a perspective's own king, that perspective's
// half is refreshed instead of incrementally updated, because the bucket
// and orientation of every other term depend on that king's square.
func (a *Accumulator) Do(ws *WeightStore, before position.Oracle, after position.Oracle, m position.Move, moved position.PieceType, mover position.Color) {
	for _, perspective := range [2]position.Color{position.Black, position.White} {
		if perspective == mover && IsKingMove(moved) {
			a.Refresh(ws, after, perspective)
		} else {
			a.DoUpdate(ws, before, m, perspective)
		}
	}
}

// Undo inverts Do. after must already reflect the position with m popped.
func (a *Accumulator) Undo(ws *WeightStore, after position.Oracle, m position.Move, moved position.PieceType, mover position.Color) {
	for _, perspective := range [2]position.Color{position.Black, position.White} {
		if perspective == mover && IsKingMove(moved) {
			a.Refresh(ws, after, perspective)
		} else {
			a.UndoUpdate(ws, after, m, perspective)
		}
	}
}
