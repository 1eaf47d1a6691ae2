package batch

import (
	"sort"
	"testing"

	"github.com/oskarp/uen/internal/gamefile"
	"github.com/oskarp/uen/internal/position"
)

func TestAddProducesSortedFeatureIndices(t *testing.T) {
	b := NewBatch(4)
	pos := position.StartPosition()
	entry := &gamefile.Entry{Pos: pos, Result: gamefile.ResultWin, Eval: 30, Flag: 0}

	b.Add(entry, position.White)

	if b.Size != 1 {
		t.Fatalf("Size = %d, want 1", b.Size)
	}

	checkSorted := func(name string, sampleCol, featureCol []int32) {
		t.Helper()
		if len(sampleCol) == 0 {
			t.Fatalf("%s: no active features recorded", name)
		}
		for _, s := range sampleCol {
			if s != 0 {
				t.Fatalf("%s: sample index %d, want 0 (single-sample batch)", name, s)
			}
		}
		if !sort.SliceIsSorted(featureCol, func(i, j int) bool { return featureCol[i] < featureCol[j] }) {
			t.Fatalf("%s: feature indices not sorted: %v", name, featureCol)
		}
	}
	checkSorted("ind1", b.Ind1Sample, b.Ind1Feature)
	checkSorted("ind2", b.Ind2Sample, b.Ind2Feature)

	wantActive := len(b.Ind1Sample) + len(b.Ind2Sample)
	if b.IndActive != wantActive {
		t.Fatalf("IndActive = %d, want %d (len(Ind1)+len(Ind2))", b.IndActive, wantActive)
	}
}

func TestAddRecordsEvalAndResult(t *testing.T) {
	b := NewBatch(2)
	pos := position.StartPosition()
	entry := &gamefile.Entry{Pos: pos, Result: gamefile.ResultWin, Eval: 508, Flag: 0}
	b.Add(entry, position.White)

	if b.Eval[0] != 1.0 {
		t.Fatalf("Eval[0] = %v, want 1.0 (508/508)", b.Eval[0])
	}
	if b.Result[0] != 1.0 {
		t.Fatalf("Result[0] = %v, want 1.0 (white to move, white win recorded from white)", b.Result[0])
	}
}

func TestAddValueNoneEvalBecomesZero(t *testing.T) {
	b := NewBatch(1)
	pos := position.StartPosition()
	entry := &gamefile.Entry{Pos: pos, Result: gamefile.ResultDraw, Eval: gamefile.ValueNone, Flag: 0}
	b.Add(entry, position.White)

	if b.Eval[0] != 0 {
		t.Fatalf("Eval[0] = %v, want 0 for ValueNone", b.Eval[0])
	}
	if b.Result[0] != 0.5 {
		t.Fatalf("Result[0] = %v, want 0.5 for a draw", b.Result[0])
	}
}

func TestResultFlipsForBlackToMove(t *testing.T) {
	b := NewBatch(1)
	pos := position.StartPosition()
	pos.MakeMove(position.Move{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)}) // e2e4, now black to move
	entry := &gamefile.Entry{Pos: pos, Result: gamefile.ResultWin, Eval: 0, Flag: 0}
	b.Add(entry, position.White) // result recorded relative to White; mover is Black

	if b.Result[0] != 0.0 {
		t.Fatalf("Result[0] = %v, want 0.0 (white win is a loss from black's perspective)", b.Result[0])
	}
}
