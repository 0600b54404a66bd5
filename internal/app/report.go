package app

import (
	"sort"

	"prime-quiz-bot/internal/domain"
)

// Rank orders a summary's results by percent, highest first. Equal percents
// keep their submission order and still get distinct consecutive ranks.
func Rank(summary domain.HistorySummary) []domain.RankedEntry {
	results := append([]domain.ResultEntry{}, summary.Results...)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Percent > results[j].Percent
	})

	ranked := make([]domain.RankedEntry, len(results))
	for i, r := range results {
		ranked[i] = domain.RankedEntry{
			Rank:     i + 1,
			FullName: r.FullName(),
			Percent:  r.Percent,
			Correct:  r.Correct,
			Total:    summary.QuestionCount,
			Tier:     domain.TierFor(r.Percent),
		}
	}
	return ranked
}
