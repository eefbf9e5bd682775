package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/auth"
)

// NewRouter wires every route of the service onto one mux.
func NewRouter(gate *app.UnlockGate, tokens *auth.Tokens, tick time.Duration, log *zap.Logger) http.Handler {
	api := NewAPIHandler(gate, log)
	ws := NewWSHandler(gate, tick, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /api/quiz/next-question", RequireAuth(tokens, http.HandlerFunc(api.NextQuestion)))
	mux.Handle("POST /api/quiz/submit-answer", RequireAuth(tokens, http.HandlerFunc(api.SubmitAnswer)))
	mux.Handle("GET /api/quiz/status", RequireAuth(tokens, http.HandlerFunc(api.Status)))
	mux.Handle("GET /ws/unlock", RequireAuth(tokens, http.HandlerFunc(ws.ServeWS)))

	if log == nil {
		return mux
	}
	return LogRequests(log, mux)
}
