package domain

import (
	"errors"
	"testing"
)

func TestQuestionIsCorrectIgnoresCase(t *testing.T) {
	q := Question{
		ID:            "q1",
		Options:       []Option{{Key: "A"}, {Key: "B"}, {Key: "C"}, {Key: "D"}},
		CorrectAnswer: "B",
	}
	if !q.IsCorrect("b") {
		t.Fatalf("expected lower-case answer to match")
	}
	if !q.IsCorrect(" B ") {
		t.Fatalf("expected padded answer to match")
	}
	if q.IsCorrect("c") {
		t.Fatalf("expected wrong option to fail")
	}
	if !q.HasOption("d") || q.HasOption("e") {
		t.Fatalf("unexpected option membership")
	}
}

func TestStoreErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreError("get progress", cause)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}
	if StoreError("noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}
