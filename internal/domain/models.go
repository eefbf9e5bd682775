package domain

import (
	"strings"
	"time"
)

// UserProgress is the per-user slice of the account record the unlock gate owns.
type UserProgress struct {
	UserID                string
	LastQuestionIndex     int
	LastQuestionTimestamp *time.Time // nil until the first issue or answer
}

// Option is one selectable answer of a question.
type Option struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// Question models an MCQ question with exactly one correct option key.
// Questions are read-only once stored and are ordered by insertion; the
// store sets CreatedAt when it is left zero.
type Question struct {
	ID            string    `json:"id" yaml:"id"`
	Prompt        string    `json:"prompt" yaml:"prompt"`
	Options       []Option  `json:"options" yaml:"options"`
	CorrectAnswer string    `json:"correctAnswer" yaml:"correct_answer"`
	CreatedAt     time.Time `json:"createdAt" yaml:"created_at"`
}

// IsCorrect compares an answer to the stored correct option, ignoring case.
func (q Question) IsCorrect(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), q.CorrectAnswer)
}

// HasOption reports whether key names one of the question's options.
func (q Question) HasOption(key string) bool {
	for _, opt := range q.Options {
		if strings.EqualFold(opt.Key, key) {
			return true
		}
	}
	return false
}

// UnlockOutcome tells which branch requestNextQuestion took.
type UnlockOutcome string

const (
	OutcomeIssued    UnlockOutcome = "issued"
	OutcomeWaiting   UnlockOutcome = "waiting"
	OutcomeExhausted UnlockOutcome = "exhausted"
)

// UnlockResult is the answer to a request for the next question.
// Question is set only for OutcomeIssued, NextUnlockAt is zero for OutcomeExhausted.
type UnlockResult struct {
	Outcome      UnlockOutcome
	Question     *Question
	NextUnlockAt time.Time
	SecondsLeft  int64
	Message      string
}

// SubmitResult summarizes the outcome of an answer submission.
type SubmitResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
}

// UnlockStatus is a read-only view of a user's cool-down.
type UnlockStatus struct {
	UserID          string     `json:"userId"`
	Eligible        bool       `json:"eligible"`
	NextUnlockAt    *time.Time `json:"nextUnlockAt,omitempty"`
	SecondsLeft     int64      `json:"secondsLeft"`
	QuestionsIssued int        `json:"questionsIssued"`
}
