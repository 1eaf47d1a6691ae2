// Package gamefile implements the binary training-game archive codec: a
// flat sequence of games, each a starting position + result followed by
// delta-encoded moves, little-endian throughout. See spec.md 4.E.
package gamefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/oskarp/uen/internal/position"
)

// Result mirrors the reference engine's RESULT_* enum: LOSS=-1, DRAW=0,
// WIN=1, UNKNOWN=2, always stored from the perspective recorded at the
// start of the game (not yet adjusted for side to move -- internal/loader
// and internal/batch make that adjustment before sampling and training).
type Result int8

const (
	ResultLoss    Result = -1
	ResultDraw    Result = 0
	ResultWin     Result = 1
	ResultUnknown Result = 2
)

func (r Result) valid() bool {
	return r == ResultLoss || r == ResultDraw || r == ResultWin || r == ResultUnknown
}

const (
	ValueNone     int32 = 0x7FFF
	ValueInfinite int32 = 0x7FFE
	FlagSkip      byte  = 0x1
)

// Sentinel errors distinguish the failure points the validation CLI must
// report with distinct exit codes (spec.md 7).
var (
	ErrTruncatedMove = errors.New("gamefile: truncated move")
	ErrBadPosition   = errors.New("gamefile: malformed position record")
	ErrPosNotOK      = errors.New("gamefile: position fails structural check")
	ErrBadResult     = errors.New("gamefile: result byte out of range")
	ErrBadEval       = errors.New("gamefile: eval out of range")
	ErrBadFlag       = errors.New("gamefile: truncated flag")
)

// EncodeMoveCode packs a move descriptor's from/to/promotion/flag into
// the 16-bit wire move code; the captured piece is never stored on the
// wire (decoders derive it from the running position's mailbox, exactly
// as the reference engine's do_update_accumulator reads
// pos->mailbox[target_square]).
func EncodeMoveCode(m position.Move) uint16 {
	promoBits := uint16(0)
	if m.Flag == position.FlagPromotion {
		promoBits = uint16(m.Promotion - position.Knight) // 0=N,1=B,2=R,3=Q
	}
	return uint16(m.From) | uint16(m.To)<<6 | promoBits<<12 | uint16(m.Flag)<<14
}

// DecodeMoveCode unpacks everything except Captured, which the caller
// must fill in from the current position before applying the move.
func DecodeMoveCode(code uint16) position.Move {
	from := position.Square(code & 0x3F)
	to := position.Square((code >> 6) & 0x3F)
	promoBits := (code >> 12) & 0x3
	flag := position.MoveFlag((code >> 14) & 0x3)
	promo := position.NoPieceType
	if flag == position.FlagPromotion {
		promo = position.Knight + position.PieceType(promoBits)
	}
	return position.Move{From: from, To: to, Promotion: promo, Flag: flag}
}

// Entry is one decoded training sample: the position a move/start record
// resolves to, plus its recorded eval/flag/result, matching struct entry
// in the reference engine's batchbit.c.
type Entry struct {
	Pos    *position.Position
	Result Result
	Eval   int32
	Flag   byte
}

// Reader decodes a single game-archive stream. It holds a running cursor
// position that move records are deltas against, so Reader is NOT safe
// for concurrent use -- callers sharing one underlying file must
// serialise calls to Next (internal/loader does this with a dedicated
// reader mutex, per spec.md 4.H).
type Reader struct {
	r            io.Reader
	cur          *position.Position
	result       Result
	startedFresh bool // set by Next when the just-consumed record was a start marker
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next decodes the next record. At true end of stream it returns io.EOF
// with a nil Entry; any other error is one of the sentinels above,
// possibly wrapped with context.
func (rd *Reader) Next() (*Entry, error) {
	var codeBuf [2]byte
	n, err := io.ReadFull(rd.r, codeBuf[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrTruncatedMove, err)
	}
	code := binary.LittleEndian.Uint16(codeBuf[:])
	rd.startedFresh = code == 0

	if code == 0 {
		var posBuf [position.RecordSize]byte
		if _, err := io.ReadFull(rd.r, posBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPosition, err)
		}
		pos, err := position.DecodePosition(posBuf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPosition, err)
		}
		if !pos.IsOK() {
			return nil, ErrPosNotOK
		}
		var resultByte [1]byte
		if _, err := io.ReadFull(rd.r, resultByte[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResult, err)
		}
		result := Result(int8(resultByte[0]))
		if !result.valid() {
			return nil, ErrBadResult
		}
		rd.cur = pos
		rd.result = result
	} else {
		if rd.cur == nil {
			return nil, fmt.Errorf("%w: move before any start position", ErrBadPosition)
		}
		m := DecodeMoveCode(code)
		if m.Flag == position.FlagEnPassant {
			m.Captured = position.Pawn
		} else if m.Flag != position.FlagCastle {
			m.Captured = rd.cur.PieceOn(m.To).Type()
		}
		rd.cur.MakeMove(m)
	}

	var evalBuf [4]byte
	if _, err := io.ReadFull(rd.r, evalBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEval, err)
	}
	eval := int32(binary.LittleEndian.Uint32(evalBuf[:]))
	if eval != ValueNone && (eval < -ValueInfinite || eval > ValueInfinite) {
		return nil, ErrBadEval
	}

	var flagBuf [1]byte
	if _, err := io.ReadFull(rd.r, flagBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFlag, err)
	}

	return &Entry{Pos: rd.cur, Result: rd.result, Eval: eval, Flag: flagBuf[0]}, nil
}

// LastWasStart reports whether the most recent call to Next consumed a
// start-of-game marker (a move==0 record) rather than an ordinary move.
func (rd *Reader) LastWasStart() bool {
	return rd.startedFresh
}

// nextMarked is like Next but returns only whether the record just
// consumed was a start-of-game marker, for callers (shuffle.go) that
// only care about game boundaries, not decoded content.
func (rd *Reader) nextMarked() (isStart bool, err error) {
	if _, err = rd.Next(); err != nil {
		return false, err
	}
	return rd.startedFresh, nil
}

// Writer encodes records in the same wire format Reader decodes. It is
// used by tests that round-trip a game and by any producer of new
// archives; shuffle mode (shuffle.go) does not use it, since it only
// ever copies already-encoded game byte ranges verbatim.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (wr *Writer) WriteStart(pos *position.Position, result Result, eval int32, flag byte) error {
	var zero [2]byte
	if _, err := wr.w.Write(zero[:]); err != nil {
		return err
	}
	buf := position.EncodePosition(pos)
	if _, err := wr.w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := wr.w.Write([]byte{byte(int8(result))}); err != nil {
		return err
	}
	return wr.writeEvalFlag(eval, flag)
}

func (wr *Writer) WriteMove(m position.Move, eval int32, flag byte) error {
	var codeBuf [2]byte
	binary.LittleEndian.PutUint16(codeBuf[:], EncodeMoveCode(m))
	if _, err := wr.w.Write(codeBuf[:]); err != nil {
		return err
	}
	return wr.writeEvalFlag(eval, flag)
}

func (wr *Writer) writeEvalFlag(eval int32, flag byte) error {
	var evalBuf [4]byte
	binary.LittleEndian.PutUint32(evalBuf[:], uint32(eval))
	if _, err := wr.w.Write(evalBuf[:]); err != nil {
		return err
	}
	_, err := wr.w.Write([]byte{flag})
	return err
}
