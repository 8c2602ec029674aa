package domain

import "time"

// User is a registered account. Passwords are stored as bcrypt hashes,
// never in plain text.
type User struct {
	UserID      string
	Email       string
	DisplayName string
	PassHash    []byte
	CreateTime  time.Time
}

// WordList is a named, user-owned collection of words. Default lists are
// seeded for every new user and are read-only: their words cannot be
// added to, edited or deleted.
type WordList struct {
	ListID      string
	OwnerID     string
	Title       string
	Description string
	IsDefault   bool
	WordCount   int
	CreateTime  time.Time
}

// Word is a vocabulary entry within a single list.
type Word struct {
	WordID      string
	ListID      string
	Text        string
	Translation string
	Example     string
}

// Usable reports whether the word can appear in a quiz: a word without
// text or translation can never be a prompt or a correct answer.
func (w Word) Usable() bool {
	return w.Text != "" && w.Translation != ""
}

// QuizQuestion is one multiple-choice question. Options always holds
// exactly four pairwise-distinct strings, one of which equals Answer.
type QuizQuestion struct {
	Prompt  Word
	Options []string
	Answer  string
}

// QuizSummary is the terminal result of a quiz session.
type QuizSummary struct {
	SessionID      string
	UserID         string
	ListID         string
	Score          int
	TotalQuestions int
	FinishTime     time.Time
}

// UserStats is the per-user statistics document.
type UserStats struct {
	UserID            string
	CompletedQuizzes  int
	CompletedLearning int
	ListsCreated      int
	DailyStreak       int
	TotalWordsLearned int
	TotalTimeSpent    int
	LastActivityDate  time.Time
	UpdateTime        time.Time
}
