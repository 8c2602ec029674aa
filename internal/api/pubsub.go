package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/event"
)

// Redis is the slice of the redis client the notifier needs.
type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Notification is the envelope pushed to a user's channel. The mobile
// client subscribes to its own channel and renders quiz progress and
// statistics from these events.
type Notification struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type (
	QuizViewData struct {
		SessionID      string   `json:"session_id"`
		ListID         string   `json:"list_id"`
		State          string   `json:"state"`
		QuestionIndex  int      `json:"question_index"`
		TotalQuestions int      `json:"total_questions"`
		Prompt         string   `json:"prompt,omitempty"`
		Options        []string `json:"options,omitempty"`
		Selected       string   `json:"selected,omitempty"`
		Correct        bool     `json:"correct"`
		Answer         string   `json:"answer,omitempty"`
		Score          int      `json:"score"`
		TimeLeft       int      `json:"time_left"`
	}

	TimerTickData struct {
		SessionID string `json:"session_id"`
		TimeLeft  int    `json:"time_left"`
	}

	QuizResultData struct {
		SessionID      string `json:"session_id"`
		ListID         string `json:"list_id"`
		Score          int    `json:"score"`
		TotalQuestions int    `json:"total_questions"`
	}

	StatsData struct {
		CompletedQuizzes int `json:"completed_quizzes"`
		DailyStreak      int `json:"daily_streak"`
	}

	StatsWriteFailedData struct {
		SessionID string `json:"session_id"`
		ListID    string `json:"list_id"`
		Reason    string `json:"reason"`
	}
)

func (a *API) registerNotifications(eb *event.Bus) {
	eb.Subscribe(domain.EventNameQuizQuestionStarted, func(ctx context.Context, e event.Event) error {
		v := e.(domain.EventQuizQuestionStarted).View
		return a.publishNotification(ctx, v.UserID, e.Name(), toQuizViewData(v))
	})

	eb.Subscribe(domain.EventNameQuizTimerTick, func(ctx context.Context, e event.Event) error {
		t := e.(domain.EventQuizTimerTick)
		return a.publishNotification(ctx, t.UserID, e.Name(), TimerTickData{
			SessionID: t.SessionID,
			TimeLeft:  t.TimeLeft,
		})
	})

	eb.Subscribe(domain.EventNameQuizAnswerRevealed, func(ctx context.Context, e event.Event) error {
		v := e.(domain.EventQuizAnswerRevealed).View
		return a.publishNotification(ctx, v.UserID, e.Name(), toQuizViewData(v))
	})

	eb.Subscribe(domain.EventNameQuizFinished, func(ctx context.Context, e event.Event) error {
		sum := e.(domain.EventQuizFinished).Summary
		return a.publishNotification(ctx, sum.UserID, e.Name(), QuizResultData{
			SessionID:      sum.SessionID,
			ListID:         sum.ListID,
			Score:          sum.Score,
			TotalQuestions: sum.TotalQuestions,
		})
	})

	eb.Subscribe(domain.EventNameStatsUpdated, func(ctx context.Context, e event.Event) error {
		st := e.(domain.EventStatsUpdated).Stats
		return a.publishNotification(ctx, st.UserID, e.Name(), StatsData{
			CompletedQuizzes: st.CompletedQuizzes,
			DailyStreak:      st.DailyStreak,
		})
	})

	eb.Subscribe(domain.EventNameStatsWriteFailed, func(ctx context.Context, e event.Event) error {
		f := e.(domain.EventStatsWriteFailed)
		return a.publishNotification(ctx, f.UserID, e.Name(), StatsWriteFailedData{
			SessionID: f.SessionID,
			ListID:    f.ListID,
			Reason:    f.Reason,
		})
	})
}

func toQuizViewData(v domain.QuizView) QuizViewData {
	return QuizViewData{
		SessionID:      v.SessionID,
		ListID:         v.ListID,
		State:          v.State,
		QuestionIndex:  v.QuestionIndex,
		TotalQuestions: v.TotalQuestions,
		Prompt:         v.Prompt,
		Options:        v.Options,
		Selected:       v.Selected,
		Correct:        v.Correct,
		Answer:         v.Answer,
		Score:          v.Score,
		TimeLeft:       v.TimeLeft,
	}
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, a.userChannel(user), b).Err()
}

func (a *API) userChannel(user string) string {
	return fmt.Sprintf("%s:user:%s", a.prefix, user)
}
