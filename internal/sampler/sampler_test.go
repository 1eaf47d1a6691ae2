package sampler

import "testing"

func TestWDLProbabilitiesSumToOne(t *testing.T) {
	cases := []struct {
		cp       float64
		fullmove int
	}{
		{0, 1}, {150, 20}, {-300, 40}, {900, 80}, {-50, 150},
	}
	for _, c := range cases {
		win, draw, loss := WDL(c.cp, c.fullmove)
		sum := win + draw + loss
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("WDL(%v,%v) probabilities sum to %v, want ~1", c.cp, c.fullmove, sum)
		}
		if win < 0 || draw < 0 || loss < 0 {
			t.Fatalf("WDL(%v,%v) produced a negative probability: %v %v %v", c.cp, c.fullmove, win, draw, loss)
		}
	}
}

func TestWDLMonotonicInEval(t *testing.T) {
	winLow, _, _ := WDL(-200, 40)
	winHigh, _, _ := WDL(200, 40)
	if winHigh <= winLow {
		t.Fatalf("win probability should increase with eval: low=%v high=%v", winLow, winHigh)
	}
}

func TestFilterDeterministicForSameSeed(t *testing.T) {
	fA := NewFilter(42, 3, 0.1)
	fB := NewFilter(42, 3, 0.1)

	for i := 0; i < 100; i++ {
		a := fA.Skip(float64(i*7-300), i%40, (i%3)-1)
		b := fB.Skip(float64(i*7-300), i%40, (i%3)-1)
		if a != b {
			t.Fatalf("iteration %d: filters with identical seed/worker diverged", i)
		}
	}
}

func TestFilterDifferentWorkersDiverge(t *testing.T) {
	fA := NewFilter(1, 0, 0.5)
	fB := NewFilter(1, 1, 0.5)

	same := 0
	const n = 200
	for i := 0; i < n; i++ {
		a := fA.Skip(float64(i*3), i%60, 1)
		b := fB.Skip(float64(i*3), i%60, 1)
		if a == b {
			same++
		}
	}
	if same == n {
		t.Fatal("different worker IDs produced identical skip sequences")
	}
}
