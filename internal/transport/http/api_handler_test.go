package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/auth"
	"quiz-unlock-service/internal/domain"
	"quiz-unlock-service/internal/infra/memory"
)

func TestNextQuestionFlow(t *testing.T) {
	server, tokens := newTestServer(t, 5*time.Second, 50*time.Millisecond)
	defer server.Close()

	body := getJSON(t, server.URL+"/api/quiz/next-question", bearer(t, tokens, "u1"), http.StatusOK)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	question, ok := body["question"].(map[string]any)
	if !ok || question["id"] != "q1" {
		t.Fatalf("expected q1, got %v", body["question"])
	}
	if _, leaked := question["correctAnswer"]; leaked {
		t.Fatalf("correct answer must not be sent to clients")
	}
	if body["nextUnlockAt"] == nil {
		t.Fatalf("expected nextUnlockAt")
	}

	body = getJSON(t, server.URL+"/api/quiz/next-question", bearer(t, tokens, "u1"), http.StatusOK)
	if body["success"] != false || body["message"] == "" {
		t.Fatalf("expected waiting response, got %v", body)
	}
	if left, _ := body["secondsLeft"].(float64); left < 1 || left > 5 {
		t.Fatalf("expected secondsLeft within cooldown, got %v", body["secondsLeft"])
	}

	status := getJSON(t, server.URL+"/api/quiz/status", bearer(t, tokens, "u1"), http.StatusOK)
	if status["eligible"] != false || status["questionsIssued"] != float64(1) {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestNextQuestionExhausted(t *testing.T) {
	server, tokens := newTestServer(t, time.Millisecond, 50*time.Millisecond)
	defer server.Close()

	for i := 0; i < 2; i++ {
		body := getJSON(t, server.URL+"/api/quiz/next-question", bearer(t, tokens, "u1"), http.StatusOK)
		if body["success"] != true {
			t.Fatalf("expected question %d, got %v", i, body)
		}
		time.Sleep(5 * time.Millisecond)
	}
	body := getJSON(t, server.URL+"/api/quiz/next-question", bearer(t, tokens, "u1"), http.StatusOK)
	if body["success"] != false || body["message"] == "" {
		t.Fatalf("expected exhausted message, got %v", body)
	}
	if _, ok := body["secondsLeft"]; ok {
		t.Fatalf("exhausted response must not carry a countdown: %v", body)
	}
}

func TestSubmitAnswerResponses(t *testing.T) {
	server, tokens := newTestServer(t, time.Hour, 50*time.Millisecond)
	defer server.Close()
	token := bearer(t, tokens, "u1")

	body := postJSON(t, server.URL+"/api/quiz/submit-answer", token, map[string]string{"questionId": "q1", "answer": "b"}, http.StatusOK)
	if body["success"] != true || body["isCorrect"] != true || body["correctAnswer"] != "B" || body["timerStarted"] != true {
		t.Fatalf("unexpected submit response %v", body)
	}

	postJSON(t, server.URL+"/api/quiz/submit-answer", token, map[string]string{"questionId": "q1"}, http.StatusBadRequest)
	postJSON(t, server.URL+"/api/quiz/submit-answer", token, map[string]string{"answer": "A"}, http.StatusBadRequest)
	postJSON(t, server.URL+"/api/quiz/submit-answer", token, map[string]string{"questionId": "nope", "answer": "A"}, http.StatusNotFound)
	postJSON(t, server.URL+"/api/quiz/submit-answer", bearer(t, tokens, "ghost"), map[string]string{"questionId": "q1", "answer": "A"}, http.StatusNotFound)

	// Answering started the cool-down, so the first question request has to wait.
	next := getJSON(t, server.URL+"/api/quiz/next-question", token, http.StatusOK)
	if next["success"] != false || next["secondsLeft"] == nil {
		t.Fatalf("expected waiting after submit, got %v", next)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	server, _ := newTestServer(t, time.Hour, 50*time.Millisecond)
	defer server.Close()

	getJSON(t, server.URL+"/api/quiz/next-question", "", http.StatusUnauthorized)
	getJSON(t, server.URL+"/api/quiz/next-question", "Bearer garbage", http.StatusUnauthorized)
}

type unavailableQuestions struct{}

func (unavailableQuestions) QuestionAt(context.Context, int) (domain.Question, bool, error) {
	return domain.Question{}, false, domain.StoreError("question at", errors.New("dial tcp: connection refused"))
}

func (unavailableQuestions) QuestionByID(context.Context, string) (domain.Question, bool, error) {
	return domain.Question{}, false, domain.StoreError("question by id", errors.New("dial tcp: connection refused"))
}

func TestStoreFailureMapsToInternalError(t *testing.T) {
	gate := app.NewUnlockGate(memory.NewUserStore("u1"), unavailableQuestions{}, time.Hour, nil)
	tokens := auth.NewTokens("test-secret", "quiz-unlock-service", time.Hour)
	server := httptest.NewServer(NewRouter(gate, tokens, 50*time.Millisecond, nil))
	defer server.Close()
	token := bearer(t, tokens, "u1")

	body := getJSON(t, server.URL+"/api/quiz/next-question", token, http.StatusInternalServerError)
	if body["success"] != false || body["message"] != "internal error" {
		t.Fatalf("unexpected error body %v", body)
	}
	body = postJSON(t, server.URL+"/api/quiz/submit-answer", token, map[string]string{"questionId": "q1", "answer": "A"}, http.StatusInternalServerError)
	if body["message"] != "internal error" {
		t.Fatalf("store details must not leak to clients: %v", body)
	}
}

func newTestServer(t *testing.T, cooldown, tick time.Duration) (*httptest.Server, *auth.Tokens) {
	t.Helper()
	users := memory.NewUserStore("u1")
	questions := memory.NewQuestionStore(sampleQuestions()...)
	gate := app.NewUnlockGate(users, questions, cooldown, nil)
	tokens := auth.NewTokens("test-secret", "quiz-unlock-service", time.Hour)
	return httptest.NewServer(NewRouter(gate, tokens, tick, nil)), tokens
}

func bearer(t *testing.T, tokens *auth.Tokens, userID string) string {
	t.Helper()
	signed, err := tokens.Issue(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + signed
}

func getJSON(t *testing.T, url, token string, wantStatus int) map[string]any {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return do(t, req, wantStatus)
}

func postJSON(t *testing.T, url, token string, payload any, wantStatus int) map[string]any {
	t.Helper()
	raw, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	return do(t, req, wantStatus)
}

func do(t *testing.T, req *http.Request, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d", req.Method, req.URL.Path, wantStatus, resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func sampleQuestions() []domain.Question {
	options := []domain.Option{{Key: "A", Text: "3"}, {Key: "B", Text: "4"}, {Key: "C", Text: "5"}, {Key: "D", Text: "6"}}
	return []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", Options: options, CorrectAnswer: "B"},
		{ID: "q2", Prompt: "What is 1 + 2?", Options: options, CorrectAnswer: "A"},
	}
}
