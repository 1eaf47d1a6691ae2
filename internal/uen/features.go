package uen

import (
	"math/bits"

	"github.com/oskarp/uen/internal/position"
)

// kingBucket maps a king square to one of 32 buckets (files a-d); the
// other 32 squares are unreachable because callers must orient (mirror)
// before indexing, exactly as the reference engine's king_bucket table
// assumes. -1 marks a square that must never reach MakeIndex directly.
var kingBucket = [64]int{
	0, 1, 2, 3, -1, -1, -1, -1,
	4, 5, 6, 7, -1, -1, -1, -1,
	8, 9, 10, 11, -1, -1, -1, -1,
	12, 13, 14, 15, -1, -1, -1, -1,
	16, 17, 18, 19, -1, -1, -1, -1,
	20, 21, 22, 23, -1, -1, -1, -1,
	24, 25, 26, 27, -1, -1, -1, -1,
	28, 29, 30, 31, -1, -1, -1, -1,
}

// Piece-square block offsets, one 64-square block per (colour, piece
// type) pair from the perspective of the side the index is being built
// for, plus a shared king block (the perspective's own king never
// contributes a "real" feature, so PSKing is only reached for the
// opposing king).
const (
	psWPawn   = 0 * 64
	psBPawn   = 1 * 64
	psWKnight = 2 * 64
	psBKnight = 3 * 64
	psWBishop = 4 * 64
	psBBishop = 5 * 64
	psWRook   = 6 * 64
	psBRook   = 7 * 64
	psWQueen  = 8 * 64
	psBQueen  = 9 * 64
	psKing    = 10 * 64
)

// pieceToIndex[perspective][piece] relativises a colored piece (1..12,
// position.Piece's white-first encoding) to the perspective:
// own-side pieces and opposing pieces land in different blocks even
// though they're the same piece type.
var pieceToIndex = [2][13]uint32{
	{ // perspective = Black
		0, psBPawn, psBKnight, psBBishop, psBRook, psBQueen, psKing,
		psWPawn, psWKnight, psWBishop, psWRook, psWQueen, psKing,
	},
	{ // perspective = White
		0, psWPawn, psWKnight, psWBishop, psWRook, psWQueen, psKing,
		psBPawn, psBKnight, psBBishop, psBRook, psBQueen, psKing,
	},
}

func orientHorizontal(perspective position.Color, sq position.Square) position.Square {
	if perspective == position.White {
		return sq
	}
	return sq ^ 0x38
}

// orient horizontally flips sq for black's perspective and additionally
// vertically mirrors (xor 0x7) whenever the relevant king sits on files
// e-h, per spec.md's orient() contract.
func orient(perspective position.Color, sq, kingSq position.Square) position.Square {
	o := orientHorizontal(perspective, sq)
	if kingSq.File() >= 4 {
		o ^= 0x7
	}
	return o
}

// MakeIndex computes the "real" feature index for piece standing on sq,
// as seen from perspective, given that perspective's king square kingSq
// (already a legal, un-oriented square).
func MakeIndex(perspective position.Color, sq position.Square, piece position.Piece, kingSq position.Square) int {
	orientedKing := orient(perspective, kingSq, kingSq)
	bucket := kingBucket[orientedKing]
	return int(orient(perspective, sq, kingSq)) + int(pieceToIndex[perspective][piece]) + PSEnd*bucket
}

// MakeIndexVirtual computes the bucket-agnostic "virtual" factorisation of
// the same feature, used for regularisation during training: every king
// bucket collapses to a single shared block, offset by FTInDims so it
// never collides with a real index.
func MakeIndexVirtual(perspective position.Color, sq position.Square, piece position.Piece) int {
	return int(orientHorizontal(perspective, sq)) + int(pieceToIndex[perspective][piece]) + FTInDims
}

// IsKingMove reports whether the moved piece type is a king. A move of
// the perspective's own king invalidates every existing accumulator term
// (the bucket/orientation depend on the king square) and forces a
// refresh rather than an incremental update.
func IsKingMove(moved position.PieceType) bool {
	return moved == position.King
}

// IndexList is a small fixed-capacity slice of active feature indices for
// one sample, sized to MaxActivePerSample: a legal board has at most 30
// non-king pieces plus the opposing king, i.e. 31 active features.
type IndexList struct {
	Values [MaxActivePerSample]int
	Size   int
}

func (l *IndexList) append(idx int) {
	l.Values[l.Size] = idx
	l.Size++
}

// AppendActiveIndices enumerates every piece belonging to either colour
// except the perspective's own king (which never contributes a "real"
// feature — its square is baked into the bucket/orientation of every
// other term instead) and appends both real and virtual indices.
func AppendActiveIndices(pos position.Oracle, perspective position.Color, real, virtual *IndexList) {
	real.Size = 0
	virtual.Size = 0
	kingSq := pos.KingSquare(perspective)

	for c := position.Color(0); c < 2; c++ {
		for pt := position.Pawn; pt <= position.King; pt++ {
			if pt == position.King && c == perspective {
				continue
			}
			bb := pos.PieceBB(c, pt)
			for bb != 0 {
				sq := position.Square(bits.TrailingZeros64(bb))
				bb &= bb - 1
				piece := position.MakePiece(pt, c)
				real.append(MakeIndex(perspective, sq, piece, kingSq))
				virtual.append(MakeIndexVirtual(perspective, sq, piece))
			}
		}
	}
}
