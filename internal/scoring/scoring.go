// Package scoring implements the interval scoring rules: a submitted range
// is judged against the true value, rewarding both containment ("hit") and
// narrowness ("precision").
package scoring

import "math"

// MaxScore is the score awarded for a zero-width hit, the best possible
// answer for any question.
const MaxScore = 1000.0

// minHitScore floors the decay curve for finite width ratios, keeping every
// hit above the miss score of 0.
const minHitScore = 1e-9

// Result is the scored outcome for one interval. Judge is total over
// lower <= upper: it never fails and a miss always scores 0.
type Result struct {
	Hit       bool
	Width     float64
	Precision float64
	Score     float64
}

// Judge scores the interval [lower, upper] against trueValue. Callers must
// reject lower > upper before calling; bounds may be equal (zero
// uncertainty).
//
// Precision is 100 minus the interval width as a percentage of |trueValue|,
// floored at 0: a wide hit can drive it to exactly 0, never negative. A miss
// has precision 0 regardless of width. The score decays exponentially with
// the same width ratio, so it is maximal at width 0, strictly decreasing in
// width for a fixed true value, and stays positive for any hit.
func Judge(lower, upper, trueValue float64) Result {
	r := Result{
		Hit:   lower <= trueValue && trueValue <= upper,
		Width: upper - lower,
	}
	if !r.Hit {
		return r
	}

	ratio := widthRatio(r.Width, trueValue)
	r.Precision = math.Max(0, 100-ratio*100)
	if math.IsInf(ratio, 1) {
		r.Score = 0
	} else {
		// Exp underflows to 0 around ratio 745; floor the result so a hit
		// always outscores a miss, however wide the interval.
		r.Score = math.Max(MaxScore*math.Exp(-ratio), minHitScore)
	}
	return r
}

// Miss returns the result recorded for an unanswered question: judged as a
// miss with score 0.
func Miss() Result {
	return Result{}
}

// widthRatio is the interval width as a fraction of the true value's
// magnitude. A true value of 0 makes the ratio undefined; it is taken as 0
// for a zero-width interval and +Inf otherwise, which yields precision 100
// or 0 per the division-by-zero rule.
func widthRatio(width, trueValue float64) float64 {
	if trueValue == 0 {
		if width == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return width / math.Abs(trueValue)
}
