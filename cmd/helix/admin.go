package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carpenike/helix/internal/database"
	"github.com/carpenike/helix/internal/models"
	"github.com/carpenike/helix/internal/notify"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := database.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", version)
			return nil
		},
	}
}

func newCreateCoachCmd(a *app) *cobra.Command {
	var username, password, email string
	cmd := &cobra.Command{
		Use:   "create-coach",
		Short: "Create a coach account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := models.CreateUser(cmd.Context(), db, username, password, email)
			if errors.Is(err, models.ErrDuplicateUsername) {
				return fmt.Errorf("username %q is already taken", username)
			}
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"username": user.Username, "id": user.ID}).Info("coach created")
			fmt.Fprintf(cmd.OutOrStdout(), "created coach %s (id=%d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	return cmd
}

func newAPIKeyCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "api-key",
		Short: "Issue a personal API key for a coach, replacing any previous one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := models.GetUserByUsername(cmd.Context(), db, username)
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("no coach named %q", username)
			}
			if err != nil {
				return err
			}
			key, err := models.IssueAPIKey(cmd.Context(), db, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "coach login name")
	return cmd
}

func newNotifyTestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to the configured URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := notify.NewBroadcaster([]string{a.cfg.Notify.URLs}, a.logger)
			if err := b.Validate(); err != nil {
				return err
			}
			if err := b.Test(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")
			return nil
		},
	}
}
