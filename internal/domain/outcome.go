package domain

// Outcome is a result submission: either a direct winner selection or a pair
// of scores from which the winner is derived.
type Outcome struct {
	Pick   Winner
	ScoreA uint32
	ScoreB uint32
	Scored bool
}

// DirectOutcome builds an outcome from an explicit winner selection.
func DirectOutcome(w Winner) Outcome {
	return Outcome{Pick: w}
}

// ScoredOutcome builds an outcome from a pair of final scores.
func ScoredOutcome(scoreA, scoreB uint32) Outcome {
	return Outcome{ScoreA: scoreA, ScoreB: scoreB, Scored: true}
}

// Winner resolves the outcome to a settled winner. A higher score wins and
// equal scores produce a draw. A direct selection must name a side or a
// draw; WinnerNone is not a submittable result.
func (o Outcome) Winner() (Winner, error) {
	if o.Scored {
		switch {
		case o.ScoreA > o.ScoreB:
			return WinnerSideA, nil
		case o.ScoreB > o.ScoreA:
			return WinnerSideB, nil
		default:
			return WinnerDraw, nil
		}
	}
	switch o.Pick {
	case WinnerSideA, WinnerSideB, WinnerDraw:
		return o.Pick, nil
	default:
		return WinnerNone, ErrInvalidOutcome
	}
}
