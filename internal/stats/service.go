package stats

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/event"
)

type Config struct {
	DB       *pgxpool.Pool
	EventBus *event.Bus
}

// Service maintains per-user learning statistics. Quiz results arrive over
// the event bus, so a failing write never rolls back the in-memory quiz
// score; the bus logs the failure and the user is told their stats lag
// behind via a stats.write_failed notification.
type Service struct {
	db  *pgxpool.Pool
	eb  *event.Bus
	now func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		db:  c.DB,
		eb:  c.EventBus,
		now: func() time.Time { return time.Now().UTC() },
	}

	s.eb.Subscribe(domain.EventNameQuizFinished, func(ctx context.Context, e event.Event) error {
		return s.HandleQuizFinished(ctx, e.(domain.EventQuizFinished))
	})
	s.eb.Subscribe(domain.EventNameListCreated, func(ctx context.Context, e event.Event) error {
		return s.HandleListCreated(ctx, e.(domain.EventListCreated))
	})

	return s
}

// HandleQuizFinished records a finished quiz: the raw result is always
// stored, but the aggregate counters only move when more than half of the
// questions were answered correctly. A failed write emits
// EventStatsWriteFailed for the user before the error goes back to the bus.
func (s *Service) HandleQuizFinished(ctx context.Context, e domain.EventQuizFinished) error {
	if err := s.recordQuizResult(ctx, e.Summary); err != nil {
		s.eb.Publish(ctx, domain.EventStatsWriteFailed{
			UserID:    e.Summary.UserID,
			SessionID: e.Summary.SessionID,
			ListID:    e.Summary.ListID,
			Reason:    "quiz result could not be saved",
		})
		return err
	}

	return nil
}

func (s *Service) recordQuizResult(ctx context.Context, sum domain.QuizSummary) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate result ID: %w", err)
	}

	const stmt = `
INSERT INTO quiz_results (result_id, user_id, list_id, score, total_questions, finish_time)
VALUES ($1, $2, $3, $4, $5, $6);`

	if _, err := s.db.Exec(ctx, stmt, id, sum.UserID, sum.ListID, sum.Score, sum.TotalQuestions, sum.FinishTime); err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}

	passed := sum.TotalQuestions > 0 && sum.Score*2 > sum.TotalQuestions
	if !passed {
		return nil
	}

	return s.apply(ctx, sum.UserID, func(st *domain.UserStats) {
		st.CompletedQuizzes++
	})
}

// HandleListCreated bumps the lists-created counter.
func (s *Service) HandleListCreated(ctx context.Context, e domain.EventListCreated) error {
	return s.apply(ctx, e.List.OwnerID, func(st *domain.UserStats) {
		st.ListsCreated++
	})
}

type CompleteLearningRequest struct {
	UserID       string
	ListID       string
	WordsLearned int
	TimeSpent    int
}

// CompleteLearning records a finished learning-mode run over a list.
func (s *Service) CompleteLearning(ctx context.Context, req CompleteLearningRequest) (domain.UserStats, error) {
	var out domain.UserStats
	err := s.apply(ctx, req.UserID, func(st *domain.UserStats) {
		st.CompletedLearning++
		st.TotalWordsLearned += req.WordsLearned
		st.TotalTimeSpent += req.TimeSpent
		out = *st
	})
	if err != nil {
		return domain.UserStats{}, err
	}

	return out, nil
}

// Summary is the per-user statistics view, combining the counters document
// with aggregates over the stored quiz results.
type Summary struct {
	Stats        domain.UserStats
	QuizzesTaken int
	AverageScore decimal.Decimal
}

func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	st, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	const stmt = `
SELECT COUNT(*) AS quizzes_taken,
       COALESCE(AVG(score::numeric / NULLIF(total_questions, 0)), 0) AS average_score
FROM quiz_results
WHERE user_id = $1;`

	out := &Summary{Stats: st}
	if err := s.db.QueryRow(ctx, stmt, userID).Scan(&out.QuizzesTaken, &out.AverageScore); err != nil {
		return nil, fmt.Errorf("aggregate quiz results: %w", err)
	}

	return out, nil
}

// apply runs a read-modify-write cycle over the user's stats document,
// refreshing the daily streak on every activity.
func (s *Service) apply(ctx context.Context, userID string, mutate func(*domain.UserStats)) error {
	st, err := s.fetch(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	st.UserID = userID
	st.DailyStreak = nextStreak(st.LastActivityDate, now, st.DailyStreak)
	st.LastActivityDate = now
	st.UpdateTime = now
	mutate(&st)

	const stmt = `
INSERT INTO user_stats (
	user_id, completed_quizzes, completed_learning, lists_created, daily_streak,
	total_words_learned, total_time_spent, last_activity_date, update_time
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE SET
	completed_quizzes = EXCLUDED.completed_quizzes,
	completed_learning = EXCLUDED.completed_learning,
	lists_created = EXCLUDED.lists_created,
	daily_streak = EXCLUDED.daily_streak,
	total_words_learned = EXCLUDED.total_words_learned,
	total_time_spent = EXCLUDED.total_time_spent,
	last_activity_date = EXCLUDED.last_activity_date,
	update_time = EXCLUDED.update_time;`

	_, err = s.db.Exec(ctx, stmt,
		st.UserID, st.CompletedQuizzes, st.CompletedLearning, st.ListsCreated, st.DailyStreak,
		st.TotalWordsLearned, st.TotalTimeSpent, st.LastActivityDate, st.UpdateTime)
	if err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}

	s.eb.Publish(ctx, domain.EventStatsUpdated{Stats: st})

	return nil
}

func (s *Service) fetch(ctx context.Context, userID string) (domain.UserStats, error) {
	const stmt = `
SELECT user_id, completed_quizzes, completed_learning, lists_created, daily_streak,
       total_words_learned, total_time_spent, last_activity_date, update_time
FROM user_stats
WHERE user_id = $1;`

	var st domain.UserStats
	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&st.UserID, &st.CompletedQuizzes, &st.CompletedLearning, &st.ListsCreated, &st.DailyStreak,
		&st.TotalWordsLearned, &st.TotalTimeSpent, &st.LastActivityDate, &st.UpdateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("query user stats: %w", err)
	}

	return st, nil
}

// nextStreak rolls the daily streak forward: activity on the same day
// keeps it, activity on the following day extends it, a gap resets it.
func nextStreak(last, now time.Time, current int) int {
	if last.IsZero() {
		return 1
	}

	switch day(now).Sub(day(last)) {
	case 0:
		if current == 0 {
			return 1
		}
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
