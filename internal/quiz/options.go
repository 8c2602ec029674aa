package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
)

const (
	optionsPerQuestion     = 4
	distractorsPerQuestion = optionsPerQuestion - 1
)

// FallbackPool supplies words from outside the current list. It is only
// invoked when the list itself cannot provide enough distinct distractors.
type FallbackPool func(ctx context.Context) ([]domain.Word, error)

// Generator builds the multiple-choice options for quiz questions.
type Generator struct {
	rnd      *rand.Rand
	fallback FallbackPool
}

// NewGenerator creates a generator drawing randomness from rnd. fallback
// may be nil, in which case missing distractors are synthesized directly.
func NewGenerator(rnd *rand.Rand, fallback FallbackPool) *Generator {
	return &Generator{
		rnd:      rnd,
		fallback: fallback,
	}
}

// Question builds a question for current: three distinct wrong translations
// plus the correct one, in randomized order. Distractors come from pool
// first, then from the fallback, and finally synthesized placeholders, so
// the returned question always carries exactly four distinct options with
// the correct answer present exactly once.
func (g *Generator) Question(ctx context.Context, current domain.Word, pool []domain.Word) (domain.QuizQuestion, error) {
	if current.Translation == "" {
		return domain.QuizQuestion{}, fmt.Errorf("quiz: word %q has no translation", current.Text)
	}

	correct := current.Translation
	wrong := g.collect(current, pool, nil)

	if len(wrong) < distractorsPerQuestion && g.fallback != nil {
		wider, err := g.fallback(ctx)
		if err != nil {
			slog.WarnContext(ctx, "quiz: widen search failed, synthesizing distractors",
				"word", current.Text,
				"error", err,
			)
		} else {
			wrong = g.collect(current, wider, wrong)
		}
	}

	wrong = fillPlaceholders(wrong, correct)

	options := append(wrong, correct)
	g.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.QuizQuestion{
		Prompt:  current,
		Options: options,
		Answer:  correct,
	}, nil
}

// collect walks a shuffled copy of pool and appends translations that are
// non-empty, distinct from the correct answer and from each other, stopping
// as soon as enough distractors are gathered.
func (g *Generator) collect(current domain.Word, pool []domain.Word, acc []string) []string {
	shuffled := make([]domain.Word, len(pool))
	copy(shuffled, pool)
	g.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := make(map[string]bool, len(acc)+1)
	seen[current.Translation] = true
	for _, t := range acc {
		seen[t] = true
	}

	for _, w := range shuffled {
		if len(acc) >= distractorsPerQuestion {
			break
		}
		if w.WordID == current.WordID || w.Translation == "" || seen[w.Translation] {
			continue
		}
		seen[w.Translation] = true
		acc = append(acc, w.Translation)
	}

	return acc
}

// fillPlaceholders tops up wrong with synthetic options until three exist.
// The counter skips any collision with the correct answer or an already
// collected distractor.
func fillPlaceholders(wrong []string, correct string) []string {
	used := make(map[string]bool, len(wrong)+1)
	used[correct] = true
	for _, t := range wrong {
		used[t] = true
	}

	for n := 1; len(wrong) < distractorsPerQuestion; n++ {
		p := fmt.Sprintf("Option %d", n)
		if used[p] {
			continue
		}
		used[p] = true
		wrong = append(wrong, p)
	}

	return wrong
}
