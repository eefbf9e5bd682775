package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-unlock-service/internal/auth"
	"quiz-unlock-service/internal/config"
	"quiz-unlock-service/internal/importer"
)

// NewImportCmd appends questions from a YAML file to the question store.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <questions.yaml>",
		Short: "Import questions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()
			if st.appender == nil {
				return fmt.Errorf("import needs postgres; %s backend does not persist questions", st.backend)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			added, err := importer.New(st.appender, log).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", added)
			return nil
		},
	}
}

// NewUserCmd groups user maintenance commands.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage quiz users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <userId>...",
		Short: "Create users with empty progress",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()
			if st.backend == "memory" {
				return errors.New("user add needs postgres or redis configured")
			}
			for _, id := range args {
				if err := st.users.CreateUser(cmd.Context(), id); err != nil {
					return err
				}
				log.Info("user created", zap.String("user_id", id))
			}
			return nil
		},
	})
	return cmd
}

// NewTokenCmd prints a signed token for a user, for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <userId>",
		Short: "Mint an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("auth secret not configured (auth.secret or JWT_SECRET)")
			}
			if ttl == 0 {
				ttl = config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
			}
			signed, err := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, ttl).Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
