package uen

import (
	"testing"

	"github.com/oskarp/uen/internal/position"
)

func TestEvaluateZeroWeightsReturnsZero(t *testing.T) {
	ws := NewZeroWeightStore()
	pos := position.StartPosition()
	var acc Accumulator
	acc.Refresh(ws, pos, position.Black)
	acc.Refresh(ws, pos, position.White)

	if got := Evaluate(ws, &acc, pos.SideToMove()); got != 0 {
		t.Fatalf("Evaluate with all-zero weights = %d, want 0", got)
	}
}

func TestEvaluateConstantBiasOnly(t *testing.T) {
	ws := NewZeroWeightStore()
	ws.OutputBias = 128 // 128/16 == 8, plus psqt diff of 0
	pos := position.StartPosition()
	var acc Accumulator
	acc.Refresh(ws, pos, position.Black)
	acc.Refresh(ws, pos, position.White)

	got := Evaluate(ws, &acc, pos.SideToMove())
	if got != 8 {
		t.Fatalf("Evaluate with constant output bias 128 = %d, want 8", got)
	}
}

func TestClipSaturatesToByteRange(t *testing.T) {
	cases := []struct {
		in   int32
		want int8
	}{
		{-100, 0},
		{0, 0},
		{50, 50},
		{127, 127},
		{200, 127},
	}
	for _, c := range cases {
		if got := clip(c.in); got != c.want {
			t.Fatalf("clip(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
