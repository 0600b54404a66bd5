package app

import (
	"fmt"
	"strings"
	"unicode"

	"prime-quiz-bot/internal/domain"
)

// Praise is the congratulatory line for a tier.
func Praise(t domain.Tier) string {
	switch t {
	case domain.TierExceptional:
		return "🏆 Outstanding, are you even from this planet?!"
	case domain.TierGood:
		return "👏 Good result!"
	case domain.TierEncouraging:
		return "✍️ Keep working at it!"
	default:
		return "😅 Not this time..."
	}
}

// ResultMessage builds the per-participant breakdown sent at close-out.
func ResultMessage(key, answers string, percent int, footer []string) string {
	a := []rune(answers)
	var b strings.Builder
	b.WriteString("📊 Your result:\n\n")
	for i, ok := range Marks(key, answers) {
		if i >= len(a) {
			fmt.Fprintf(&b, "%d. ❌\n", i+1)
			continue
		}
		mark := "❌"
		if ok {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %c %s\n", i+1, unicode.ToUpper(a[i]), mark)
	}
	fmt.Fprintf(&b, "\n📈 Result: %d%%\n\n", percent)
	b.WriteString(Praise(domain.TierFor(percent)))
	if len(footer) > 0 {
		b.WriteString("\n")
		for _, line := range footer {
			b.WriteString("\n" + line)
		}
	}
	return b.String()
}
