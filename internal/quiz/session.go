package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tnhann/GoatDevelopers/internal/domain"
	"github.com/Tnhann/GoatDevelopers/internal/errors"
)

const (
	defaultQuestionUnits = 10
	defaultTickInterval  = time.Second
	defaultRevealDelay   = 2 * time.Second
)

type State int

const (
	StateLoading State = iota
	StateAwaitingAnswer
	StateRevealing
	StateFinished
	StateLeft
)

var state2str = map[State]string{
	StateLoading:        "loading",
	StateAwaitingAnswer: "awaiting_answer",
	StateRevealing:      "revealing",
	StateFinished:       "finished",
	StateLeft:           "left",
}

func (s State) String() string {
	if v, ok := state2str[s]; ok {
		return v
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives session transitions for the presentation layer. All
// callbacks are invoked outside the session lock.
type Observer interface {
	QuestionStarted(view domain.QuizView)
	TimerTick(sessionID, userID string, remaining int)
	AnswerRevealed(view domain.QuizView)
	Finished(sum domain.QuizSummary)
}

type noopObserver struct{}

func (noopObserver) QuestionStarted(domain.QuizView) {}
func (noopObserver) TimerTick(string, string, int)   {}
func (noopObserver) AnswerRevealed(domain.QuizView)  {}
func (noopObserver) Finished(domain.QuizSummary)     {}

type SessionConfig struct {
	SessionID string
	UserID    string
	ListID    string
	// Words is the usable word pool, already filtered. Must hold at least
	// two entries.
	Words     []domain.Word
	Generator *Generator
	Observer  Observer
	NewTicker NewTickerFunc

	QuestionUnits int
	TickInterval  time.Duration
	RevealDelay   time.Duration
}

// Session drives one quiz attempt over one list:
// Loading -> AwaitingAnswer -> Revealing -> (AwaitingAnswer | Finished).
// All transitions are serialized on one mutex, so a manual submission and a
// timer expiry can never both reveal the same question.
type Session struct {
	id     string
	userID string
	listID string

	gensrc    *Generator
	observer  Observer
	newTicker NewTickerFunc

	questionUnits int
	revealDelay   time.Duration

	mu          sync.Mutex
	state       State
	words       []domain.Word
	idx         int
	score       int
	question    domain.QuizQuestion
	selected    string
	lastCorrect bool
	gen         int
	timer       *Countdown
	done        chan struct{}
}

func NewSession(c SessionConfig) *Session {
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	if c.NewTicker == nil {
		c.NewTicker = NewTicker
	}
	if c.QuestionUnits <= 0 {
		c.QuestionUnits = defaultQuestionUnits
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.RevealDelay <= 0 {
		c.RevealDelay = defaultRevealDelay
	}

	return &Session{
		id:            c.SessionID,
		userID:        c.UserID,
		listID:        c.ListID,
		gensrc:        c.Generator,
		observer:      c.Observer,
		newTicker:     c.NewTicker,
		questionUnits: c.QuestionUnits,
		revealDelay:   c.RevealDelay,
		state:         StateLoading,
		words:         c.Words,
		timer:         NewCountdown(c.NewTicker, c.TickInterval),
		done:          make(chan struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) ListID() string { return s.listID }

// Begin generates the first question and starts its timer.
func (s *Session) Begin(ctx context.Context) (domain.QuizView, error) {
	s.mu.Lock()
	if s.state != StateLoading {
		s.mu.Unlock()
		return domain.QuizView{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("quiz session already started: state=%s", s.state))
	}

	if err := s.startQuestionLocked(ctx); err != nil {
		s.mu.Unlock()
		return domain.QuizView{}, err
	}

	view := s.viewLocked()
	s.mu.Unlock()

	s.observer.QuestionStarted(view)
	return view, nil
}

// Select records the user's choice. The selection is mutable until
// submission and has no score effect on its own.
func (s *Session) Select(option string) (domain.QuizView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingAnswer {
		return domain.QuizView{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("cannot select an option: state=%s", s.state))
	}

	valid := false
	for _, o := range s.question.Options {
		if o == option {
			valid = true
			break
		}
	}
	if !valid {
		return domain.QuizView{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("option is not part of the current question"))
	}

	s.selected = option
	return s.viewLocked(), nil
}

// Submit reveals the current question using the selected option. The timer
// is cancelled synchronously, so a concurrent expiry cannot reveal the same
// question a second time.
func (s *Session) Submit() (domain.QuizView, error) {
	s.mu.Lock()
	if s.state != StateAwaitingAnswer {
		s.mu.Unlock()
		return domain.QuizView{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("cannot submit an answer: state=%s", s.state))
	}
	if s.selected == "" {
		s.mu.Unlock()
		return domain.QuizView{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("no option selected"))
	}

	s.timer.Stop()
	s.revealLocked(false)
	view := s.viewLocked()
	s.mu.Unlock()

	s.observer.AnswerRevealed(view)
	return view, nil
}

// Next advances to the following question, or finishes the session when
// the current question was the last one.
func (s *Session) Next(ctx context.Context) (domain.QuizView, error) {
	s.mu.Lock()
	if s.state != StateRevealing {
		s.mu.Unlock()
		return domain.QuizView{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("cannot advance: state=%s", s.state))
	}

	return s.advanceLocked(ctx)
}

// advanceLocked must be entered holding s.mu; it releases the lock before
// notifying the observer.
func (s *Session) advanceLocked(ctx context.Context) (domain.QuizView, error) {
	s.idx++
	if s.idx < len(s.words) {
		if err := s.startQuestionLocked(ctx); err != nil {
			s.mu.Unlock()
			return domain.QuizView{}, err
		}
		view := s.viewLocked()
		s.mu.Unlock()

		s.observer.QuestionStarted(view)
		return view, nil
	}

	s.state = StateFinished
	close(s.done)
	sum := domain.QuizSummary{
		SessionID:      s.id,
		UserID:         s.userID,
		ListID:         s.listID,
		Score:          s.score,
		TotalQuestions: len(s.words),
		FinishTime:     time.Now().UTC(),
	}
	view := s.viewLocked()
	s.mu.Unlock()

	s.observer.Finished(sum)
	return view, nil
}

// Leave tears the session down without a statistics write. Idempotent:
// leaving twice, or after Finished, is a no-op.
func (s *Session) Leave() domain.QuizView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFinished || s.state == StateLeft {
		return s.viewLocked()
	}

	s.timer.Stop()
	s.state = StateLeft
	close(s.done)
	return s.viewLocked()
}

// View returns the current session projection.
func (s *Session) View() domain.QuizView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) startQuestionLocked(ctx context.Context) error {
	current := s.words[s.idx]
	q, err := s.gensrc.Question(ctx, current, s.words)
	if err != nil {
		return errors.Internal(fmt.Errorf("generate options for %q: %w", current.Text, err))
	}

	s.question = q
	s.selected = ""
	s.lastCorrect = false
	s.state = StateAwaitingAnswer
	s.gen++

	gen := s.gen
	s.timer.Start(s.questionUnits,
		func(remaining int) { s.tick(gen, remaining) },
		func() { s.expire(gen) },
	)

	return nil
}

func (s *Session) tick(gen int, remaining int) {
	s.mu.Lock()
	stale := s.state != StateAwaitingAnswer || gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	s.observer.TimerTick(s.id, s.userID, remaining)
}

// expire handles timer expiry: reveal with no answer selected, then
// auto-advance after the reveal delay. A stale expiry from a previous
// question, or one racing a manual submission, is discarded here.
func (s *Session) expire(gen int) {
	s.mu.Lock()
	if s.state != StateAwaitingAnswer || gen != s.gen {
		s.mu.Unlock()
		return
	}

	s.revealLocked(true)
	view := s.viewLocked()
	s.mu.Unlock()

	s.observer.AnswerRevealed(view)
}

// revealLocked applies the AwaitingAnswer -> Revealing transition. On
// timeout the selection is discarded and counts as incorrect.
func (s *Session) revealLocked(timeout bool) {
	if timeout {
		s.selected = ""
	}

	s.lastCorrect = s.selected != "" && s.selected == s.question.Answer
	if s.lastCorrect {
		s.score++
	}
	s.state = StateRevealing

	if timeout {
		s.scheduleAutoAdvance(s.gen)
	}
}

// scheduleAutoAdvance moves past a timed-out question after the reveal
// delay, unless the user advanced (or left) first.
func (s *Session) scheduleAutoAdvance(gen int) {
	t := s.newTicker(s.revealDelay)
	done := s.done

	go func() {
		defer t.Stop()

		select {
		case <-done:
		case <-t.C():
			s.autoAdvance(gen)
		}
	}()
}

func (s *Session) autoAdvance(gen int) {
	s.mu.Lock()
	if s.state != StateRevealing || gen != s.gen {
		s.mu.Unlock()
		return
	}

	if _, err := s.advanceLocked(context.Background()); err != nil {
		slog.Error("quiz: auto-advance failed", "session", s.id, "error", err)
	}
}

func (s *Session) viewLocked() domain.QuizView {
	view := domain.QuizView{
		SessionID:      s.id,
		UserID:         s.userID,
		ListID:         s.listID,
		State:          s.state.String(),
		QuestionIndex:  s.idx,
		TotalQuestions: len(s.words),
		Selected:       s.selected,
		Score:          s.score,
		TimeLeft:       s.timer.Remaining(),
	}

	if s.state == StateAwaitingAnswer || s.state == StateRevealing {
		view.Prompt = s.question.Prompt.Text
		view.Example = s.question.Prompt.Example
		view.Options = append([]string(nil), s.question.Options...)
	}

	if s.state == StateRevealing {
		view.Revealed = true
		view.Correct = s.lastCorrect
		view.Answer = s.question.Answer
	}

	return view
}
