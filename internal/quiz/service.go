package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
	"github.com/Tnhann/GoatDevelopers/internal/event"
)

// WordSource is the read side of the word store the quiz engine depends
// on. It is satisfied by the wordlist service and by fakes in tests.
type WordSource interface {
	List(ctx context.Context, listID string) (domain.WordList, error)
	Words(ctx context.Context, listID string) ([]domain.Word, error)
	WordsExcludingList(ctx context.Context, ownerID, listID string) ([]domain.Word, error)
}

type Config struct {
	Words    WordSource
	EventBus *event.Bus

	// Rand overrides the per-session randomness source. Nil means a
	// time-seeded source per session.
	Rand      *rand.Rand
	NewTicker NewTickerFunc

	QuestionUnits int
	TickInterval  time.Duration
	RevealDelay   time.Duration
}

// Service owns the in-memory registry of running quiz sessions and wires
// each session to the word store and the event bus. Sessions are ephemeral:
// nothing here is persisted except the final summary, written by the
// statistics subscriber.
type Service struct {
	words     WordSource
	eb        *event.Bus
	rnd       *rand.Rand
	newTicker NewTickerFunc

	questionUnits int
	tickInterval  time.Duration
	revealDelay   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(c Config) *Service {
	return &Service{
		words:         c.Words,
		eb:            c.EventBus,
		rnd:           c.Rand,
		newTicker:     c.NewTicker,
		questionUnits: c.QuestionUnits,
		tickInterval:  c.TickInterval,
		revealDelay:   c.RevealDelay,
		sessions:      make(map[string]*Session),
	}
}

// Start opens a quiz session over the given list. The word pool is fetched
// once, words without usable text or translation are dropped, and a list
// with fewer than two usable words is rejected before any question is
// generated.
func (s *Service) Start(ctx context.Context, userID, listID string) (domain.QuizView, error) {
	list, err := s.words.List(ctx, listID)
	if err != nil {
		return domain.QuizView{}, err
	}
	if list.OwnerID != userID && !list.IsDefault {
		return domain.QuizView{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("list not found: %s", listID))
	}

	pool, err := s.words.Words(ctx, listID)
	if err != nil {
		return domain.QuizView{}, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("loading words for list %s failed", listID),
			errors.WithCause(err))
	}

	usable := pool[:0:0]
	for _, w := range pool {
		if w.Usable() {
			usable = append(usable, w)
		}
	}
	if len(usable) < 2 {
		return domain.QuizView{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("list %s has too few words for a quiz", listID))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.QuizView{}, fmt.Errorf("generate session ID: %w", err)
	}

	session := NewSession(SessionConfig{
		SessionID:     id.String(),
		UserID:        userID,
		ListID:        listID,
		Words:         usable,
		Generator:     NewGenerator(s.sessionRand(), s.widerPool(userID, listID)),
		Observer:      s,
		NewTicker:     s.newTicker,
		QuestionUnits: s.questionUnits,
		TickInterval:  s.tickInterval,
		RevealDelay:   s.revealDelay,
	})

	view, err := session.Begin(ctx)
	if err != nil {
		return domain.QuizView{}, err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	return view, nil
}

// Select records a (mutable) answer choice for the current question.
func (s *Service) Select(ctx context.Context, userID, sessionID, option string) (domain.QuizView, error) {
	session, err := s.resolve(sessionID, userID)
	if err != nil {
		return domain.QuizView{}, err
	}

	return session.Select(option)
}

// Submit reveals the current question with the selected option.
func (s *Service) Submit(ctx context.Context, userID, sessionID string) (domain.QuizView, error) {
	session, err := s.resolve(sessionID, userID)
	if err != nil {
		return domain.QuizView{}, err
	}

	return session.Submit()
}

// Next advances a revealed question.
func (s *Service) Next(ctx context.Context, userID, sessionID string) (domain.QuizView, error) {
	session, err := s.resolve(sessionID, userID)
	if err != nil {
		return domain.QuizView{}, err
	}

	return session.Next(ctx)
}

// View returns the current session projection.
func (s *Service) View(ctx context.Context, userID, sessionID string) (domain.QuizView, error) {
	session, err := s.resolve(sessionID, userID)
	if err != nil {
		return domain.QuizView{}, err
	}

	return session.View(), nil
}

// Leave abandons a session. Idempotent: an unknown or already finished
// session is not an error, and no statistics are written either way.
func (s *Service) Leave(ctx context.Context, userID, sessionID string) domain.QuizView {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok && session.UserID() == userID {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok || session.UserID() != userID {
		return domain.QuizView{SessionID: sessionID, State: StateLeft.String()}
	}

	return session.Leave()
}

func (s *Service) resolve(sessionID, userID string) (*Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	s.mu.Unlock()

	if !ok || session.UserID() != userID {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz session not found: %s", sessionID))
	}

	return session, nil
}

// widerPool builds the lazy widen-search fallback: the user's other lists
// are queried at most once per session, and only when the current list
// cannot provide three distinct distractors.
func (s *Service) widerPool(userID, listID string) FallbackPool {
	var (
		once  sync.Once
		words []domain.Word
		err   error
	)

	return func(ctx context.Context) ([]domain.Word, error) {
		once.Do(func() {
			words, err = s.words.WordsExcludingList(ctx, userID, listID)
		})
		return words, err
	}
}

func (s *Service) sessionRand() *rand.Rand {
	if s.rnd != nil {
		return s.rnd
	}

	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// The service is its sessions' observer: transitions become bus events that
// the notifier and the statistics service consume.

func (s *Service) QuestionStarted(view domain.QuizView) {
	s.eb.Publish(context.Background(), domain.EventQuizQuestionStarted{View: view})
}

func (s *Service) TimerTick(sessionID, userID string, remaining int) {
	s.eb.Publish(context.Background(), domain.EventQuizTimerTick{
		SessionID: sessionID,
		UserID:    userID,
		TimeLeft:  remaining,
	})
}

func (s *Service) AnswerRevealed(view domain.QuizView) {
	s.eb.Publish(context.Background(), domain.EventQuizAnswerRevealed{View: view})
}

func (s *Service) Finished(sum domain.QuizSummary) {
	s.eb.Publish(context.Background(), domain.EventQuizFinished{Summary: sum})
}
