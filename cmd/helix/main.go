// Command helix runs the coaching API server and its admin tasks.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carpenike/helix/internal/config"
	"github.com/carpenike/helix/internal/database"
	"github.com/carpenike/helix/internal/logging"
	"github.com/carpenike/helix/internal/models"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app is shared by every subcommand once PersistentPreRunE has loaded the
// configuration.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "helix",
		Short:        "AI-assisted training planner for personal coaches",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.Setup(logging.Params{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default: ./helix.yaml or /etc/helix/helix.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newCreateCoachCmd(a),
		newAPIKeyCmd(a),
		newNotifyTestCmd(a),
	)
	return root
}

// openDB opens the database, applies migrations and installs the credential
// encryption key.
func (a *app) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	_, source, err := models.GetOrCreateSecretKey(ctx, db, a.cfg.Security.SecretKey)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load secret key: %w", err)
	}
	log.WithFields(log.Fields{"path": a.cfg.Database.Path, "secret_key": source}).Info("database ready")
	return db, nil
}
