package api_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Tnhann/GoatDevelopers/internal/api"
	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/event"
)

func TestNotifications(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, eb := makeAPI(t)

	sub := rc.Subscribe(ctx, "test:notify:user:u1")
	t.Cleanup(func() { sub.Close() })

	_, err := sub.Receive(ctx)
	require.NoError(t, err, "subscription should be confirmed")

	eb.Publish(ctx, domain.EventQuizFinished{
		Summary: domain.QuizSummary{
			SessionID:      "s1",
			UserID:         "u1",
			ListID:         "l1",
			Score:          3,
			TotalQuestions: 4,
		},
	})
	eb.Stop()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string             `json:"event"`
		Data  api.QuizResultData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))

	require.Equal(t, domain.EventNameQuizFinished, n.Event)
	require.Equal(t, api.QuizResultData{
		SessionID:      "s1",
		ListID:         "l1",
		Score:          3,
		TotalQuestions: 4,
	}, n.Data)
}

func TestNotifications_TimerTick(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, eb := makeAPI(t)

	sub := rc.Subscribe(ctx, "test:notify:user:u1")
	t.Cleanup(func() { sub.Close() })

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	eb.Publish(ctx, domain.EventQuizTimerTick{
		SessionID: "s1",
		UserID:    "u1",
		TimeLeft:  7,
	})
	eb.Stop()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string            `json:"event"`
		Data  api.TimerTickData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))

	require.Equal(t, domain.EventNameQuizTimerTick, n.Event)
	require.Equal(t, 7, n.Data.TimeLeft)
}

func TestNotifications_StatsWriteFailed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, eb := makeAPI(t)

	sub := rc.Subscribe(ctx, "test:notify:user:u1")
	t.Cleanup(func() { sub.Close() })

	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	eb.Publish(ctx, domain.EventStatsWriteFailed{
		UserID:    "u1",
		SessionID: "s1",
		ListID:    "l1",
		Reason:    "quiz result could not be saved",
	})
	eb.Stop()

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n struct {
		Event string                   `json:"event"`
		Data  api.StatsWriteFailedData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))

	require.Equal(t, domain.EventNameStatsWriteFailed, n.Event)
	require.Equal(t, api.StatsWriteFailedData{
		SessionID: "s1",
		ListID:    "l1",
		Reason:    "quiz result could not be saved",
	}, n.Data)
}

func makeAPI(t *testing.T) (redis.UniversalClient, *event.Bus) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	gin.SetMode(gin.TestMode)

	eb := event.NewBus()
	api.New(api.Config{
		Router:       gin.New(),
		EventBus:     eb,
		Redis:        rc,
		NotifyPrefix: "test:notify",
		JWTSecret:    []byte("test-secret"),
	})

	return rc, eb
}
