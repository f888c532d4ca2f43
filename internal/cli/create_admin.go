package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/config"
	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/memory"
	pgstore "exam-practice-service/internal/infra/postgres"
)

// NewCreateAdminCmd seeds an admin account so a fresh deployment has someone
// who can manage the question catalog.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return createAdmin(cmd.Context(), *configPath, username, password)
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password (required)")
	cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(ctx context.Context, configPath, username, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	auth := app.NewAuthService(pgstore.NewStore(db), memory.NewTokenStore(), 0)
	user, err := auth.Register(ctx, username, password, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUsernameTaken) {
		log.Printf("admin %q already exists", username)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("created admin %q (id %d)", user.Username, user.ID)
	return nil
}
