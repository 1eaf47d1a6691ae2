package position

import "testing"

func TestStartPositionSideToMove(t *testing.T) {
	p := StartPosition()
	if p.SideToMove() != White {
		t.Fatalf("start position side to move = %v, want White", p.SideToMove())
	}
	if p.KingSquare(White) != MakeSquare(4, 0) {
		t.Fatalf("white king square = %v, want e1", p.KingSquare(White))
	}
	if p.KingSquare(Black) != MakeSquare(4, 7) {
		t.Fatalf("black king square = %v, want e8", p.KingSquare(Black))
	}
	if !p.IsOK() {
		t.Fatal("start position should be structurally OK")
	}
}

func TestMakeUnmakeMoveRestoresState(t *testing.T) {
	p := StartPosition()
	before := *p

	m := Move{From: MakeSquare(4, 1), To: MakeSquare(4, 3)} // e2-e4
	u := p.MakeMove(m)

	if p.Turn != Black {
		t.Fatalf("turn after e2e4 = %v, want Black", p.Turn)
	}
	if p.EnPassant != MakeSquare(4, 2) {
		t.Fatalf("en passant square = %v, want e3", p.EnPassant)
	}

	p.UnmakeMove(u)
	if *p != before {
		t.Fatalf("position after make/unmake does not match original")
	}
}

func TestCastleRightsForfeitedByKingMove(t *testing.T) {
	p := StartPosition()
	// Clear the path and move the king manually to isolate castle bookkeeping.
	p.remove(White, Bishop, MakeSquare(5, 0))
	p.remove(White, Knight, MakeSquare(6, 0))
	m := Move{From: MakeSquare(4, 0), To: MakeSquare(6, 0), Flag: FlagCastle}
	p.MakeMove(m)
	if p.Castle&(CastleWhiteOO|CastleWhiteOOO) != 0 {
		t.Fatalf("castling should clear both white rights, got %#x", p.Castle)
	}
	if p.PieceOn(MakeSquare(5, 0)).Type() != Rook {
		t.Fatalf("rook did not land on f1")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	p := StartPosition()
	buf := EncodePosition(p)
	got, err := DecodePosition(buf)
	if err != nil {
		t.Fatalf("DecodePosition: %v", err)
	}
	if got.Turn != p.Turn || got.Castle != p.Castle || got.EnPassant != p.EnPassant {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, p)
	}
	for c := Color(0); c < 2; c++ {
		for pt := Pawn; pt <= King; pt++ {
			if got.PieceBB(c, pt) != p.PieceBB(c, pt) {
				t.Fatalf("piece bb mismatch color=%v pt=%v", c, pt)
			}
		}
	}
	if !got.IsOK() {
		t.Fatal("decoded start position should be structurally OK")
	}
}

func TestIsOKRejectsDoubleKing(t *testing.T) {
	p := StartPosition()
	p.place(White, King, MakeSquare(0, 3))
	if p.IsOK() {
		t.Fatal("position with two white kings should fail IsOK")
	}
}
