package chat

import "github.com/apostol-ai/agent-backend/internal/entity"

// TokenEstimator approximates how many model tokens a string costs.
type TokenEstimator func(string) int

// DefaultTokenEstimator uses the rough four-characters-per-token rule.
// Overestimating slightly is fine; the budget is a safety margin, not
// an exact accounting.
func DefaultTokenEstimator(s string) int {
	return (len(s) + 3) / 4
}

// buildWindow returns the maximal suffix of history whose estimated
// cost fits the budget. Newer messages always win over older ones: the
// window grows backwards from the end of the history and stops at the
// first message that would overflow.
func buildWindow(history []*entity.Message, budget int, estimate TokenEstimator) []*entity.Message {
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := estimate(history[i].Text)
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}
	return history[start:]
}
