package progression

import (
	"errors"

	"levelup_backend/internal/model"
)

// ErrNoQuestions means the placement pool is empty and no score can be computed.
var ErrNoQuestions = errors.New("no test questions available")

type PlacementResult struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"score"`
	Level      int     `json:"level"`
}

// ScorePlacement grades answers (question ID -> submitted letter) against the whole pool.
// Questions missing from answers count as wrong.
func ScorePlacement(answers map[uint]string, questions []model.TestQuestion) (PlacementResult, error) {
	if len(questions) == 0 {
		return PlacementResult{}, ErrNoQuestions
	}

	correct := 0
	for _, q := range questions {
		if q.CorrectAnswer.Matches(answers[q.ID]) {
			correct++
		}
	}

	pct := float64(correct) * 100 / float64(len(questions))
	return PlacementResult{
		Correct:    correct,
		Total:      len(questions),
		Percentage: pct,
		Level:      LevelForScore(pct),
	}, nil
}

// LevelForScore maps a percentage to a starting level in 20 point bands, lower bound
// inclusive.
func LevelForScore(p float64) int {
	switch {
	case p < 20:
		return 1
	case p < 40:
		return 2
	case p < 60:
		return 3
	case p < 80:
		return 4
	default:
		return 5
	}
}
