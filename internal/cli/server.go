package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-unlock-service/internal/app"
	"quiz-unlock-service/internal/auth"
	"quiz-unlock-service/internal/config"
	transport "quiz-unlock-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var demoUsers []string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, demoUsers)
		},
	}
	cmd.Flags().StringSliceVar(&demoUsers, "seed-user", nil, "user IDs to create at startup")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string, seedUsers []string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	if cfg.Auth.Secret == "" {
		return errors.New("auth secret not configured (auth.secret or JWT_SECRET)")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, id := range seedUsers {
		if err := st.users.CreateUser(ctx, id); err != nil {
			return err
		}
	}

	cooldown := config.TTLDuration(cfg.Quiz.Cooldown, app.DefaultCooldown)
	gate := app.NewUnlockGate(st.users, st.questions, cooldown, log)
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	tick := config.TTLDuration(cfg.Quiz.Tick, time.Second)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(gate, tokens, tick, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr), zap.Duration("cooldown", gate.Cooldown()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
