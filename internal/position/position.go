package position

import "math/bits"

// Castle rights bits, KQkq order.
const (
	CastleWhiteOO = 1 << iota
	CastleWhiteOOO
	CastleBlackOO
	CastleBlackOOO
)

// Oracle is the read-only position view the evaluation core consumes:
// piece bitboards per colour and type, side to move, and king squares.
// The core never mutates a position through this interface.
type Oracle interface {
	PieceBB(c Color, pt PieceType) uint64
	SideToMove() Color
	KingSquare(c Color) Square
	PieceOn(sq Square) Piece
}

// Position is a concrete in-memory Oracle, mirroring struct position in
// the reference engine: bitboards indexed [color][piece], a mailbox for
// O(1) piece-on-square lookup, and the usual chess bookkeeping fields.
// It carries no move generator; MakeMove/UnmakeMove trust the caller to
// supply a legal Move.
type Position struct {
	Piece [2][7]uint64 // [Color][PieceType], index 0 (NoPieceType) unused; see allOccupied for the union

	Turn       Color
	EnPassant  Square
	Castle     uint8
	Halfmove   int
	Fullmove   int
	Mailbox    [64]Piece
}

// allOccupied returns the union bitboard for a color, summed from the
// per-piece-type boards (there is no dedicated ALL slot here, unlike the
// reference engine's piece[color][ALL] cache, since the oracle is read far
// more often for single piece types than for full occupancy).
func (p *Position) allOccupied(c Color) uint64 {
	var b uint64
	for pt := Pawn; pt <= King; pt++ {
		b |= p.Piece[c][pt]
	}
	return b
}

func (p *Position) AllPieces() uint64 {
	return p.allOccupied(White) | p.allOccupied(Black)
}

func (p *Position) PieceBB(c Color, pt PieceType) uint64 { return p.Piece[c][pt] }
func (p *Position) SideToMove() Color                    { return p.Turn }
func (p *Position) PieceOn(sq Square) Piece              { return p.Mailbox[sq] }

func (p *Position) KingSquare(c Color) Square {
	bb := p.Piece[c][King]
	if bb == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(bb))
}

func setBit(bb *uint64, sq Square)   { *bb |= 1 << uint(sq) }
func clearBit(bb *uint64, sq Square) { *bb &^= 1 << uint(sq) }

func (p *Position) place(c Color, pt PieceType, sq Square) {
	setBit(&p.Piece[c][pt], sq)
	p.Mailbox[sq] = MakePiece(pt, c)
}

func (p *Position) remove(c Color, pt PieceType, sq Square) {
	clearBit(&p.Piece[c][pt], sq)
	p.Mailbox[sq] = Empty
}

// Undo captures everything MakeMove mutated beyond the piece placement
// itself, so UnmakeMove can restore it exactly.
type Undo struct {
	Move          Move
	Mover         Color
	PrevCastle    uint8
	PrevEnPassant Square
	PrevHalfmove  int
}

var castleRookFrom = map[Square]struct {
	c     Color
	from  Square
	to    Square
}{
	6:  {White, 7, 5},  // g1: h1 -> f1
	2:  {White, 0, 3},  // c1: a1 -> d1
	62: {Black, 63, 61}, // g8: h8 -> f8
	58: {Black, 56, 59}, // c8: a8 -> d8
}

// MakeMove applies m (assumed legal) and returns the information needed to
// undo it. It does not touch any accumulator; callers drive
// uen.Accumulator.DoUpdate/Refresh separately, exactly as the reference
// engine's do_accumulator is a sibling call to do_move, not a part of it.
func (p *Position) MakeMove(m Move) Undo {
	u := Undo{Move: m, Mover: p.Turn, PrevCastle: p.Castle, PrevEnPassant: p.EnPassant, PrevHalfmove: p.Halfmove}

	mover := p.Turn
	moved := p.Mailbox[m.From].Type()

	p.remove(mover, moved, m.From)
	if m.Captured != NoPieceType && m.Flag != FlagEnPassant {
		p.remove(mover.Other(), m.Captured, m.To)
	}

	placed := moved
	if m.Flag == FlagPromotion {
		placed = m.Promotion
	}
	p.place(mover, placed, m.To)

	switch m.Flag {
	case FlagEnPassant:
		capSq := m.To - 8
		if mover == Black {
			capSq = m.To + 8
		}
		p.remove(mover.Other(), Pawn, capSq)
	case FlagCastle:
		info := castleRookFrom[m.To]
		p.remove(info.c, Rook, info.from)
		p.place(info.c, Rook, info.to)
	}

	// En-passant target square: only set after a pawn double push.
	p.EnPassant = NoSquare
	if moved == Pawn {
		diff := int(m.To) - int(m.From)
		if diff == 16 || diff == -16 {
			p.EnPassant = (m.From + m.To) / 2
		}
	}

	// Castle rights: moving the king forfeits both sides; moving or
	// capturing on a rook's home square forfeits that side.
	clearCastleOn := func(sq Square) {
		switch sq {
		case 7:
			p.Castle &^= CastleWhiteOO
		case 0:
			p.Castle &^= CastleWhiteOOO
		case 63:
			p.Castle &^= CastleBlackOO
		case 56:
			p.Castle &^= CastleBlackOOO
		}
	}
	if moved == King {
		if mover == White {
			p.Castle &^= CastleWhiteOO | CastleWhiteOOO
		} else {
			p.Castle &^= CastleBlackOO | CastleBlackOOO
		}
	}
	clearCastleOn(m.From)
	clearCastleOn(m.To)

	if moved == Pawn || m.Captured != NoPieceType {
		p.Halfmove = 0
	} else {
		p.Halfmove++
	}
	if mover == Black {
		p.Fullmove++
	}
	p.Turn = mover.Other()

	return u
}

// UnmakeMove inverts MakeMove given the Undo it returned.
func (p *Position) UnmakeMove(u Undo) {
	m := u.Move
	mover := u.Mover
	p.Turn = mover
	p.Castle = u.PrevCastle
	p.EnPassant = u.PrevEnPassant
	p.Halfmove = u.PrevHalfmove
	if mover == Black {
		p.Fullmove--
	}

	placed := m.Promotion
	moved := placed
	if m.Flag != FlagPromotion {
		moved = p.Mailbox[m.To].Type()
		placed = moved
	}
	p.remove(mover, placed, m.To)

	movedBack := moved
	if m.Flag == FlagPromotion {
		movedBack = Pawn
	}
	p.place(mover, movedBack, m.From)

	switch m.Flag {
	case FlagEnPassant:
		capSq := m.To - 8
		if mover == Black {
			capSq = m.To + 8
		}
		p.place(mover.Other(), Pawn, capSq)
	case FlagCastle:
		info := castleRookFrom[m.To]
		p.remove(info.c, Rook, info.to)
		p.place(info.c, Rook, info.from)
	}

	if m.Captured != NoPieceType && m.Flag != FlagEnPassant {
		p.place(mover.Other(), m.Captured, m.To)
	}
}

// StartPosition returns the standard chess starting position.
func StartPosition() *Position {
	p := &Position{Turn: White, EnPassant: NoSquare, Castle: CastleWhiteOO | CastleWhiteOOO | CastleBlackOO | CastleBlackOOO, Fullmove: 1}
	back := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		p.place(White, back[f], MakeSquare(f, 0))
		p.place(White, Pawn, MakeSquare(f, 1))
		p.place(Black, Pawn, MakeSquare(f, 6))
		p.place(Black, back[f], MakeSquare(f, 7))
	}
	return p
}
