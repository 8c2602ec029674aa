package quiz_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/quiz"
)

func TestGenerator_Question(t *testing.T) {
	type (
		inputs struct {
			current  domain.Word
			pool     []domain.Word
			fallback quiz.FallbackPool
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, q domain.QuizQuestion)
	}{
		"a full list yields three distractors from the list itself": {
			arrange: func() inputs {
				pool := words(map[string]string{
					"dog":  "köpek",
					"cat":  "kedi",
					"bird": "kuş",
					"fish": "balık",
				})
				return inputs{current: pool[0], pool: pool}
			},

			assert: func(t *testing.T, q domain.QuizQuestion) {
				requireWellFormed(t, q)
				for _, o := range q.Options {
					require.Contains(t, []string{"köpek", "kedi", "kuş", "balık"}, o)
				}
			},
		},

		"a short list widens the search to the fallback pool": {
			arrange: func() inputs {
				pool := words(map[string]string{
					"dog": "köpek",
					"cat": "kedi",
				})
				wider := words(map[string]string{
					"bird": "kuş",
					"fish": "balık",
				})
				return inputs{
					current: pool[0],
					pool:    pool,
					fallback: func(ctx context.Context) ([]domain.Word, error) {
						return wider, nil
					},
				}
			},

			assert: func(t *testing.T, q domain.QuizQuestion) {
				requireWellFormed(t, q)
				require.Contains(t, q.Options, "kuş")
				require.Contains(t, q.Options, "balık")
			},
		},

		"placeholders top the options up when even the fallback is short": {
			arrange: func() inputs {
				pool := words(map[string]string{
					"dog": "köpek",
					"cat": "kedi",
				})
				return inputs{
					current: pool[0],
					pool:    pool,
					fallback: func(ctx context.Context) ([]domain.Word, error) {
						return nil, nil
					},
				}
			},

			assert: func(t *testing.T, q domain.QuizQuestion) {
				requireWellFormed(t, q)
				require.Contains(t, q.Options, "kedi")
				require.Contains(t, q.Options, "Option 1")
				require.Contains(t, q.Options, "Option 2")
			},
		},

		"a failing fallback degrades to placeholders instead of failing the question": {
			arrange: func() inputs {
				pool := words(map[string]string{
					"dog": "köpek",
				})
				return inputs{
					current: pool[0],
					pool:    pool,
					fallback: func(ctx context.Context) ([]domain.Word, error) {
						return nil, fmt.Errorf("store is down")
					},
				}
			},

			assert: func(t *testing.T, q domain.QuizQuestion) {
				requireWellFormed(t, q)
			},
		},

		"duplicate translations in the pool never produce duplicate options": {
			arrange: func() inputs {
				pool := []domain.Word{
					{WordID: "w1", Text: "dog", Translation: "köpek"},
					{WordID: "w2", Text: "cat", Translation: "kedi"},
					{WordID: "w3", Text: "kitty", Translation: "kedi"},
					{WordID: "w4", Text: "hound", Translation: "köpek"},
				}
				return inputs{current: pool[0], pool: pool}
			},

			assert: func(t *testing.T, q domain.QuizQuestion) {
				requireWellFormed(t, q)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			g := quiz.NewGenerator(rand.New(rand.NewSource(1)), in.fallback)

			q, err := g.Question(context.Background(), in.current, in.pool)
			require.NoError(t, err)

			tt.assert(t, q)
		})
	}
}

func TestGenerator_Question_FullListSkipsFallback(t *testing.T) {
	pool := words(map[string]string{
		"dog":  "köpek",
		"cat":  "kedi",
		"bird": "kuş",
		"fish": "balık",
	})
	g := quiz.NewGenerator(rand.New(rand.NewSource(1)), func(ctx context.Context) ([]domain.Word, error) {
		t.Fatal("fallback consulted though the list has enough distractors")
		return nil, nil
	})

	q, err := g.Question(context.Background(), pool[0], pool)
	require.NoError(t, err)
	requireWellFormed(t, q)
}

func TestGenerator_Question_NoTranslation(t *testing.T) {
	g := quiz.NewGenerator(rand.New(rand.NewSource(1)), nil)

	_, err := g.Question(context.Background(), domain.Word{WordID: "w1", Text: "dog"}, nil)
	require.Error(t, err)
}

// requireWellFormed checks the invariants every generated question carries:
// four distinct options, with the correct answer among them exactly once.
func requireWellFormed(t *testing.T, q domain.QuizQuestion) {
	t.Helper()

	require.Len(t, q.Options, 4)

	seen := make(map[string]bool, len(q.Options))
	correct := 0
	for _, o := range q.Options {
		require.NotEmpty(t, o)
		require.False(t, seen[o], "duplicate option %q", o)
		seen[o] = true

		if o == q.Answer {
			correct++
		}
	}
	require.Equal(t, 1, correct, "correct answer should appear exactly once")
}

func words(m map[string]string) []domain.Word {
	out := make([]domain.Word, 0, len(m))
	for text, translation := range m {
		out = append(out, domain.Word{
			WordID:      "word-" + text,
			Text:        text,
			Translation: translation,
		})
	}
	return out
}
