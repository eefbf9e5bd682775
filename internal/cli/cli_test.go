package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"quiz-unlock-service/internal/auth"
	"quiz-unlock-service/internal/config"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"start": false, "migrate": false, "import": false, "user": false, "token": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("command %s not registered", name)
		}
	}
}

func TestOpenStoresPicksBackend(t *testing.T) {
	ctx := context.Background()

	st, err := openStores(ctx, config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("memory stores: %v", err)
	}
	if st.backend != "memory" || st.appender != nil {
		t.Fatalf("expected memory backend without appender, got %s", st.backend)
	}
	if _, ok, _ := st.questions.QuestionAt(ctx, 0); !ok {
		t.Fatalf("expected sample questions in memory mode")
	}
	st.Close()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	st, err = openStores(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("redis stores: %v", err)
	}
	defer st.Close()
	if st.backend != "redis" {
		t.Fatalf("expected redis backend, got %s", st.backend)
	}
	if err := st.users.CreateUser(ctx, "u1"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !mr.Exists("user:u1:progress") {
		t.Fatalf("expected user stored in redis")
	}
}

func TestTokenCommandPrintsVerifiableToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  secret: s3cret\n  issuer: quiz\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", path, "token", "u42"})
	if err := root.Execute(); err != nil {
		t.Fatalf("token command: %v", err)
	}

	userID, err := auth.NewTokens("s3cret", "quiz", 0).UserID(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify printed token: %v", err)
	}
	if userID != "u42" {
		t.Fatalf("expected u42, got %q", userID)
	}
}
