package position

// MoveFlag distinguishes the special-cased move kinds the accumulator
// update needs to branch on.
type MoveFlag uint8

const (
	FlagNormal MoveFlag = iota
	FlagEnPassant
	FlagCastle
	FlagPromotion
)

// Move is a move descriptor: source/target squares, optional promotion
// piece, a flag selecting the special-case handling, and the captured
// piece type (NoPieceType if the move is not a capture).
//
// The reference engine's 16-bit move packs from/to/promotion/flag and
// re-derives the captured piece from the mailbox at accumulator-update
// time. The position oracle carries it explicitly instead, since its
// mailbox is populated lazily by the caller in some embeddings (e.g. when
// replaying records from the binary game codec, where the full piece
// list is already known from the game's running position).
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	Flag      MoveFlag
	Captured  PieceType
}

func (m Move) IsZero() bool { return m == Move{} }
