package quiz_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
	"github.com/Tnhann/GoatDevelopers/internal/quiz"
)

var sessionWords = []domain.Word{
	{WordID: "w1", ListID: "l1", Text: "dog", Translation: "köpek"},
	{WordID: "w2", ListID: "l1", Text: "cat", Translation: "kedi"},
	{WordID: "w3", ListID: "l1", Text: "bird", Translation: "kuş"},
	{WordID: "w4", ListID: "l1", Text: "fish", Translation: "balık"},
}

var translations = map[string]string{
	"dog":  "köpek",
	"cat":  "kedi",
	"bird": "kuş",
	"fish": "balık",
}

func TestSession_FullRun(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec)

	view, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.Equal(t, "awaiting_answer", view.State)
	require.Equal(t, 4, view.TotalQuestions)

	// Answer the even questions right and the odd ones wrong.
	for i := 0; view.State == "awaiting_answer"; i++ {
		answer := translations[view.Prompt]
		if i%2 == 1 {
			answer = wrongOption(t, view.Options, translations[view.Prompt])
		}

		_, err := s.Select(answer)
		require.NoError(t, err)

		revealed, err := s.Submit()
		require.NoError(t, err)
		require.True(t, revealed.Revealed)
		require.Equal(t, i%2 == 0, revealed.Correct)
		require.Equal(t, translations[view.Prompt], revealed.Answer)

		view, err = s.Next(context.Background())
		require.NoError(t, err)
	}

	require.Equal(t, "finished", view.State)
	require.Equal(t, 2, view.Score)

	sum := recvSummary(t, rec.finished)
	require.Equal(t, 2, sum.Score)
	require.Equal(t, 4, sum.TotalQuestions)
	require.Equal(t, "l1", sum.ListID)
}

func TestSession_MixedRun(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec)

	// Question 1: correct.
	view, err := s.Begin(context.Background())
	require.NoError(t, err)
	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)
	_, err = s.Submit()
	require.NoError(t, err)
	view, err = s.Next(context.Background())
	require.NoError(t, err)

	// Question 2: wrong.
	_, err = s.Select(wrongOption(t, view.Options, translations[view.Prompt]))
	require.NoError(t, err)
	_, err = s.Submit()
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	require.NoError(t, err)

	// Question 3: times out unanswered, then auto-advances.
	recvView(t, rec.revealed)
	recvView(t, rec.revealed)
	clock := f.ticker(f.count() - 1)
	clock.tick()
	clock.tick()
	timedOut := recvView(t, rec.revealed)
	require.False(t, timedOut.Correct)

	f.ticker(f.count() - 1).tick()
	for {
		started := recvView(t, rec.started)
		if started.QuestionIndex == 3 {
			break
		}
	}

	// Question 4: correct.
	view = s.View()
	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)
	_, err = s.Submit()
	require.NoError(t, err)
	view, err = s.Next(context.Background())
	require.NoError(t, err)

	require.Equal(t, "finished", view.State)
	require.Equal(t, 2, view.Score)

	sum := recvSummary(t, rec.finished)
	require.Equal(t, 2, sum.Score)
	require.Equal(t, 4, sum.TotalQuestions)
}

func TestSession_SelectionIsMutableUntilSubmit(t *testing.T) {
	f := newTickerFactory()
	s := makeSession(f, newRecorder())

	view, err := s.Begin(context.Background())
	require.NoError(t, err)

	correct := translations[view.Prompt]
	wrong := wrongOption(t, view.Options, correct)

	_, err = s.Select(wrong)
	require.NoError(t, err)

	_, err = s.Select(correct)
	require.NoError(t, err)

	revealed, err := s.Submit()
	require.NoError(t, err)
	require.True(t, revealed.Correct)
	require.Equal(t, 1, revealed.Score)
}

func TestSession_SubmitGuards(t *testing.T) {
	f := newTickerFactory()
	s := makeSession(f, newRecorder())

	// Submitting before the quiz started is rejected.
	_, err := s.Submit()
	require.True(t, errors.IsCode(err, errors.CodeFailedPrecondition))

	view, err := s.Begin(context.Background())
	require.NoError(t, err)

	// No selection yet.
	_, err = s.Submit()
	require.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	// An option outside the question is rejected.
	_, err = s.Select("not an option")
	require.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	// A valid run is unaffected by the rejected calls.
	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)
	revealed, err := s.Submit()
	require.NoError(t, err)
	require.Equal(t, 1, revealed.Score)
}

func TestSession_TimeoutRevealsWithoutScoringAndAutoAdvances(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec)

	view, err := s.Begin(context.Background())
	require.NoError(t, err)
	recvView(t, rec.started)

	// A selection made before the timeout does not survive it.
	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)

	clock := f.ticker(0)
	clock.tick()
	require.Equal(t, 1, recvInt(t, rec.ticks))
	clock.tick()

	revealed := recvView(t, rec.revealed)
	require.True(t, revealed.Revealed)
	require.False(t, revealed.Correct)
	require.Empty(t, revealed.Selected)
	require.Equal(t, 0, revealed.Score)

	// The reveal delay clock advances the session on its own.
	f.ticker(f.count() - 1).tick()

	next := recvView(t, rec.started)
	require.Equal(t, 1, next.QuestionIndex)
	require.Equal(t, "awaiting_answer", next.State)
}

func TestSession_LateExpiryAfterSubmitIsDiscarded(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec)

	view, err := s.Begin(context.Background())
	require.NoError(t, err)

	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)

	revealed, err := s.Submit()
	require.NoError(t, err)
	require.Equal(t, 1, revealed.Score)
	recvView(t, rec.revealed)

	// The question's clock still has buffered ticks; none of them may
	// reveal or score the question again.
	clock := f.ticker(0)
	clock.tick()
	clock.tick()

	requireNoView(t, rec.revealed)
	require.Equal(t, 1, s.View().Score)
}

func TestSession_SubmitAfterExpiryIsRejected(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec, withQuestionUnits(1))

	view, err := s.Begin(context.Background())
	require.NoError(t, err)

	_, err = s.Select(translations[view.Prompt])
	require.NoError(t, err)

	f.ticker(0).tick()
	recvView(t, rec.revealed)

	// The timeout won the race: the pending submission finds the question
	// already revealed, and the cleared selection stays unscored.
	_, err = s.Submit()
	require.True(t, errors.IsCode(err, errors.CodeFailedPrecondition))
	require.Equal(t, 0, s.View().Score)
}

func TestSession_LeaveIsIdempotent(t *testing.T) {
	f := newTickerFactory()
	rec := newRecorder()
	s := makeSession(f, rec)

	_, err := s.Begin(context.Background())
	require.NoError(t, err)

	view := s.Leave()
	require.Equal(t, "left", view.State)

	view = s.Leave()
	require.Equal(t, "left", view.State)

	_, err = s.Submit()
	require.True(t, errors.IsCode(err, errors.CodeFailedPrecondition))

	// An abandoned quiz never reports a result.
	requireNoSummary(t, rec.finished)
}

type sessionOption func(*quiz.SessionConfig)

func withQuestionUnits(units int) sessionOption {
	return func(c *quiz.SessionConfig) {
		c.QuestionUnits = units
	}
}

func makeSession(f *tickerFactory, rec *recorder, opts ...sessionOption) *quiz.Session {
	c := quiz.SessionConfig{
		SessionID:     "s1",
		UserID:        "u1",
		ListID:        "l1",
		Words:         sessionWords,
		Generator:     quiz.NewGenerator(rand.New(rand.NewSource(1)), nil),
		Observer:      rec,
		NewTicker:     f.newTicker,
		QuestionUnits: 2,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return quiz.NewSession(c)
}

func wrongOption(t *testing.T, options []string, correct string) string {
	t.Helper()

	for _, o := range options {
		if o != correct {
			return o
		}
	}

	t.Fatal("no wrong option available")
	return ""
}

// recorder collects observer callbacks on buffered channels so tests can
// wait for asynchronous transitions.
type recorder struct {
	started  chan domain.QuizView
	ticks    chan int
	revealed chan domain.QuizView
	finished chan domain.QuizSummary
}

func newRecorder() *recorder {
	return &recorder{
		started:  make(chan domain.QuizView, 32),
		ticks:    make(chan int, 32),
		revealed: make(chan domain.QuizView, 32),
		finished: make(chan domain.QuizSummary, 32),
	}
}

func (r *recorder) QuestionStarted(v domain.QuizView) { r.started <- v }
func (r *recorder) TimerTick(sessionID, userID string, remaining int) {
	r.ticks <- remaining
}
func (r *recorder) AnswerRevealed(v domain.QuizView) { r.revealed <- v }
func (r *recorder) Finished(s domain.QuizSummary)    { r.finished <- s }

func recvView(t *testing.T, c <-chan domain.QuizView) domain.QuizView {
	t.Helper()

	select {
	case v := <-c:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for view")
		return domain.QuizView{}
	}
}

func recvSummary(t *testing.T, c <-chan domain.QuizSummary) domain.QuizSummary {
	t.Helper()

	select {
	case s := <-c:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for summary")
		return domain.QuizSummary{}
	}
}

func requireNoView(t *testing.T, c <-chan domain.QuizView) {
	t.Helper()

	select {
	case v := <-c:
		t.Fatalf("unexpected view: %+v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func requireNoSummary(t *testing.T, c <-chan domain.QuizSummary) {
	t.Helper()

	select {
	case s := <-c:
		t.Fatalf("unexpected summary: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}
