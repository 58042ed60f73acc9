package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/domain"
	"github.com/irgordon/ak/api/internal/core/services"
	"github.com/irgordon/ak/api/internal/db"
	"github.com/irgordon/ak/api/internal/infrastructure/crypto"
)

// app holds what every subcommand needs once PersistentPreRunE has run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	enc    domain.Encryptor
	store  *db.FileProfileStore
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ak-api",
		Short:         "Local credential vault with an HTTP API",
		Long:          `ak-api stores named profiles of secret keys, encrypted at rest with gpg or AES-GCM when available, and serves them to the ak web interface.`,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Name() == "serve")
		},
	}

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newProfilesCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newDoctorCmd(a))
	return root
}

// init loads .env, resolves the config and wires the store. serve logs JSON
// to stdout; the CLI subcommands log text to stderr.
func (a *app) init(jsonLogs bool) error {
	// .env never overrides variables that are already set
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if jsonLogs {
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	slog.SetDefault(a.logger)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		a.logger.Warn("Failed to read .env", slog.Any("error", envErr))
	}

	a.enc, err = crypto.NewEncryptor(cfg, a.logger)
	if err != nil {
		return err
	}
	a.store = db.NewFileProfileStore(cfg, a.enc, a.logger)
	return nil
}

func (a *app) vault(events domain.EventPublisher) *services.VaultService {
	return services.NewVaultService(a.store, events, a.logger)
}
