package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/domain"
)

// APIHandler exposes the unlock gate as JSON endpoints.
type APIHandler struct {
	gate *app.UnlockGate
	log  *zap.Logger
}

func NewAPIHandler(gate *app.UnlockGate, log *zap.Logger) *APIHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{gate: gate, log: log.With(zap.String("component", "api"))}
}

// questionView is what clients see of a question; the correct answer stays server-side.
type questionView struct {
	ID      string          `json:"id"`
	Prompt  string          `json:"prompt"`
	Options []domain.Option `json:"options"`
}

type nextQuestionResponse struct {
	Success      bool          `json:"success"`
	Question     *questionView `json:"question,omitempty"`
	Message      string        `json:"message,omitempty"`
	NextUnlockAt *time.Time    `json:"nextUnlockAt,omitempty"`
	SecondsLeft  *int64        `json:"secondsLeft,omitempty"`
}

type submitAnswerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type submitAnswerResponse struct {
	Success       bool   `json:"success"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	TimerStarted  bool   `json:"timerStarted"`
}

type statusResponse struct {
	Success bool `json:"success"`
	domain.UnlockStatus
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NextQuestion serves GET next-question.
func (h *APIHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r.Context())
	res, err := h.gate.RequestNextQuestion(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var body nextQuestionResponse
	switch res.Outcome {
	case domain.OutcomeIssued:
		next := res.NextUnlockAt
		body = nextQuestionResponse{
			Success: true,
			Question: &questionView{
				ID:      res.Question.ID,
				Prompt:  res.Question.Prompt,
				Options: res.Question.Options,
			},
			NextUnlockAt: &next,
		}
	case domain.OutcomeWaiting:
		next, left := res.NextUnlockAt, res.SecondsLeft
		body = nextQuestionResponse{Message: res.Message, NextUnlockAt: &next, SecondsLeft: &left}
	default:
		body = nextQuestionResponse{Message: res.Message}
	}
	writeJSON(w, http.StatusOK, body)
}

// SubmitAnswer serves POST submit-answer.
func (h *APIHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	res, err := h.gate.SubmitAnswer(r.Context(), UserIDFrom(r.Context()), req.QuestionID, req.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitAnswerResponse{
		Success:       true,
		IsCorrect:     res.IsCorrect,
		CorrectAnswer: res.CorrectAnswer,
		TimerStarted:  true,
	})
}

// Status serves GET status without touching progress.
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.gate.Status(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Success: true, UnlockStatus: status})
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: verr.Error()})
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
