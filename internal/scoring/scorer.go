// Package scoring discounts headline report numbers by the confidence of
// the evidence behind them. A savings estimate built on LOW-confidence
// facts should read lower than the raw arithmetic says.
package scoring

import "github.com/clearscope-ai/clearscope/internal/session"

// Fixed multipliers per confidence level. These are calibration constants,
// not configuration: changing them silently reweights every report ever
// compared against another.
const (
	highMultiplier   = 1.0
	mediumMultiplier = 0.85
	lowMultiplier    = 0.70
)

// Multiplier returns the discount factor for a confidence level. Unknown
// labels get the LOW multiplier so a mislabeled input can only understate.
func Multiplier(level session.Level) float64 {
	switch level {
	case session.LevelHigh:
		return highMultiplier
	case session.LevelMedium:
		return mediumMultiplier
	default:
		return lowMultiplier
	}
}

// Adjust applies the confidence discount to a raw value.
func Adjust(value float64, level session.Level) float64 {
	return value * Multiplier(level)
}

// AdjustFigure discounts a figure by the weakest confidence among the facts
// that fed it. A chain is only as strong as its weakest input.
func AdjustFigure(value float64, inputs []session.Fact) float64 {
	if len(inputs) == 0 {
		return Adjust(value, session.LevelLow)
	}
	weakest := session.LevelHigh
	for _, f := range inputs {
		if rank(f.Confidence) < rank(weakest) {
			weakest = f.Confidence
		}
	}
	return Adjust(value, weakest)
}

func rank(level session.Level) int {
	switch level {
	case session.LevelHigh:
		return 2
	case session.LevelMedium:
		return 1
	default:
		return 0
	}
}
