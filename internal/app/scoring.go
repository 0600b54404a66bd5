package app

import "prime-quiz-bot/internal/domain"

// Score compares answers to key position by position. Key positions without an
// answer count as incorrect and answers beyond the key are ignored.
func Score(key, answers string) (domain.ScoreResult, error) {
	k := []rune(key)
	if len(k) == 0 {
		return domain.ScoreResult{}, domain.ErrEmptyKey
	}
	marks := Marks(key, answers)
	correct := 0
	for _, ok := range marks {
		if ok {
			correct++
		}
	}
	return domain.ScoreResult{
		Correct: correct,
		Percent: correct * 100 / len(k),
		Answers: answers,
	}, nil
}

// Marks reports per question whether the answer at that position matches the key.
func Marks(key, answers string) []bool {
	k, a := []rune(key), []rune(answers)
	marks := make([]bool, len(k))
	for i := range k {
		marks[i] = i < len(a) && a[i] == k[i]
	}
	return marks
}
