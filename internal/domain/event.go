package domain

const (
	EventNameQuizQuestionStarted = "quiz.question.started"
	EventNameQuizTimerTick       = "quiz.timer.tick"
	EventNameQuizAnswerRevealed  = "quiz.answer.revealed"
	EventNameQuizFinished        = "quiz.finished"
	EventNameListCreated         = "list.created"
	EventNameStatsUpdated        = "stats.updated"
	EventNameStatsWriteFailed    = "stats.write_failed"
)

// QuizView is the per-user projection of a running quiz session, pushed to
// the presentation layer on every state change.
type QuizView struct {
	SessionID      string
	UserID         string
	ListID         string
	State          string
	QuestionIndex  int
	TotalQuestions int
	Prompt         string
	Example        string
	Options        []string
	Selected       string
	Revealed       bool
	Correct        bool
	Answer         string
	Score          int
	TimeLeft       int
}

type EventQuizQuestionStarted struct {
	View QuizView
}

func (EventQuizQuestionStarted) Name() string { return EventNameQuizQuestionStarted }

type EventQuizTimerTick struct {
	SessionID string
	UserID    string
	TimeLeft  int
}

func (EventQuizTimerTick) Name() string { return EventNameQuizTimerTick }

type EventQuizAnswerRevealed struct {
	View QuizView
}

func (EventQuizAnswerRevealed) Name() string { return EventNameQuizAnswerRevealed }

type EventQuizFinished struct {
	Summary QuizSummary
}

func (EventQuizFinished) Name() string { return EventNameQuizFinished }

type EventListCreated struct {
	List WordList
}

func (EventListCreated) Name() string { return EventNameListCreated }

type EventStatsUpdated struct {
	Stats UserStats
}

func (EventStatsUpdated) Name() string { return EventNameStatsUpdated }

// EventStatsWriteFailed reports that a finished quiz could not be recorded.
// The quiz outcome the user saw is final; only the stored statistics lag
// behind.
type EventStatsWriteFailed struct {
	UserID    string
	SessionID string
	ListID    string
	Reason    string
}

func (EventStatsWriteFailed) Name() string { return EventNameStatsWriteFailed }
