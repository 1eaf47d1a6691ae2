// Package sampler implements the WDL-model sampling filter used to thin
// training positions before they reach the batch builder, grounded on
// the reference engine's batchbit.c (win_rate_model, wdl_skip, with
// coefficients and inputs taken verbatim) and its xorshift64 PRNG from
// checkbit.c.
package sampler

import "math"

// xorshift64 matches internal/gamefile's generator; it is duplicated
// rather than shared because each package's PRNG stream must be
// independently seedable (one per worker here, one for shuffle there).
type xorshift64 struct{ state uint64 }

func newXorshift64(seed uint64) *xorshift64 {
	if seed == 0 {
		seed = 1
	}
	return &xorshift64{state: seed}
}

func (x *xorshift64) next() uint64 {
	x.state ^= x.state << 13
	x.state ^= x.state >> 7
	x.state ^= x.state << 17
	return x.state
}

// uniform01 returns a pseudo-random float64 in [0,1), matching the
// reference engine's use of the top 53 bits of the generator as a
// uniform deviate for Bernoulli trials.
func (x *xorshift64) uniform01() float64 {
	return float64(x.next()>>11) / float64(1<<53)
}

// Filter runs per-worker Bernoulli position skipping so each worker
// needs its own PRNG stream; construct one per loader worker goroutine,
// seeded base+workerID (see internal/loader), rather than sharing one
// across goroutines.
type Filter struct {
	rng        *xorshift64
	randomSkip float64 // [0,1): unconditionally skip this fraction of positions
}

// NewFilter builds a Filter seeded for one worker. randomFraction is an
// unconditional skip probability in [0,1) applied before the WDL check
// (spec.md's "random thinning" knob); pass 0 to disable it.
func NewFilter(seed uint64, workerID int, randomFraction float64) *Filter {
	return &Filter{
		rng:        newXorshift64(seed + uint64(workerID)),
		randomSkip: randomFraction,
	}
}

// winRateModel reproduces the reference engine's centipawn-to-win-rate
// logistic model: cubic polynomials in the move counter give the
// logistic's midpoint a and scale b, both in pawns. Coefficients are
// taken verbatim from batchbit.c's win_rate_model, listed from the cubic
// term down to the constant; the input is the move counter (fullmove),
// capped at 125, not ply. cp is clamped to [-4000, 4000] and converted
// to pawns.
func winRateModel(cp float64, fullmove int) float64 {
	mv := math.Min(125.0, float64(fullmove)) / 64.0

	const (
		a0, a1, a2, a3 = -0.26358, 1.69976, 0.18960, 0.71337
		b0, b1, b2, b3 = -0.06160, 0.40556, -0.13854, 0.47889
	)
	a := ((a0*mv+a1)*mv+a2)*mv + a3
	b := ((b0*mv+b1)*mv+b2)*mv + b3

	x := clampFloat(cp, -4000, 4000) / 100
	return 1.0 / (1.0 + math.Exp((a-x)/b))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WDL returns the model's predicted (win, draw, loss) probabilities for
// a position with static eval cp at the given fullmove count: the win
// rate is win_rate_model at cp, the loss rate is win_rate_model at -cp,
// and the draw probability is what remains.
func WDL(cp float64, fullmove int) (win, draw, loss float64) {
	winRate := winRateModel(cp, fullmove)
	lossRate := winRateModel(-cp, fullmove)
	draw = 1.0 - winRate - lossRate
	return winRate, draw, lossRate
}

// Skip reports whether the position with static eval cp at the given
// fullmove count, whose game eventually ended with result in {-1,0,1}
// (from the side to move's perspective at this position), should be
// dropped from training.
//
// Two independent gates apply, matching batchbit.c's wdl_skip: first an
// unconditional random thinning (randomSkip), then an adaptive gate that
// accepts a position with probability equal to the model's predicted
// confidence in the game's actual outcome -- i.e. skips with probability
// 1-predicted.
func (f *Filter) Skip(cp float64, fullmove int, result int) bool {
	if f.randomSkip > 0 && f.rng.uniform01() < f.randomSkip {
		return true
	}

	win, draw, loss := WDL(cp, fullmove)
	var predicted float64
	switch {
	case result > 0:
		predicted = win
	case result < 0:
		predicted = loss
	default:
		predicted = draw
	}
	return f.rng.uniform01() < 1-predicted
}
