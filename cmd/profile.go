package cmd

import (
	"os"

	"github.com/muhasabah-app/profilesync/internal/configs"
	"github.com/muhasabah-app/profilesync/internal/keys"
	logger "github.com/muhasabah-app/profilesync/internal/logging"
	"github.com/muhasabah-app/profilesync/internal/store"
	"github.com/muhasabah-app/profilesync/internal/syncer"
	"github.com/muhasabah-app/profilesync/internal/transport"
	"github.com/muhasabah-app/profilesync/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	userID  string
	Logger  logger.Logger

	// ProfileCmd is the root of the profile command group.
	ProfileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Inspect and synchronize the local profile cache",
		Long:  `Provides status, synchronization, reset, and encryption-key backup transfer for the privacy-preserving profile cache.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing profile command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	ProfileCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	ProfileCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	ProfileCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id (defaults to $PROFILESYNC_USER)")

	ProfileCmd.AddCommand(statusCmd)
	ProfileCmd.AddCommand(syncCmd)
	ProfileCmd.AddCommand(showCmd)
	ProfileCmd.AddCommand(exportKeyCmd)
	ProfileCmd.AddCommand(importKeyCmd)
	ProfileCmd.AddCommand(resetCmd)
}

// session bundles the engine components a command needs, plus their cleanup.
type session struct {
	settings configs.Settings
	store    *store.Store
	facade   *workflows.Facade
	userID   string
}

func (s *session) close() {
	s.facade.Close()
	if err := s.store.Close(); err != nil {
		Logger.Warnf("Failed to close local store: %v", err)
	}
}

// openSession wires configs → store → transport → keys → engine → facade.
// The bearer token comes from the environment; this tool only consumes
// credentials, it never issues them.
func openSession() (*session, error) {
	settings, err := configs.LoadSettings()
	if err != nil {
		return nil, err
	}

	uid := userID
	if uid == "" {
		uid = os.Getenv("PROFILESYNC_USER")
	}

	st, err := store.Open(settings.Local.DatabasePath)
	if err != nil {
		return nil, err
	}

	token := func() string { return os.Getenv("PROFILESYNC_TOKEN") }
	client := transport.NewClient(transport.Config{
		BaseURL:          settings.Remote.BaseURL,
		RequestTimeout:   settings.Remote.RequestTimeout.Duration,
		MaxRetries:       settings.Remote.MaxRetries,
		BaseDelay:        settings.Remote.BaseDelay.Duration,
		FailureThreshold: settings.Remote.FailureThreshold,
		CoolDown:         settings.Remote.CoolDown.Duration,
	}, token, Logger)
	api := transport.NewProfileAPI(client)

	km := keys.NewManager(st)
	engine := syncer.New(api, st, km, Logger)
	facade := workflows.New(api, st, km, engine, token, Logger)

	return &session{
		settings: settings,
		store:    st,
		facade:   facade,
		userID:   uid,
	}, nil
}

// Helper functions for testing

// GetProfileCmd returns the ProfileCmd for testing.
func GetProfileCmd() *cobra.Command {
	return ProfileCmd
}

// ResetGlobalState resets all global flag variables to their defaults.
func ResetGlobalState() {
	verbose = false
	debug = false
	userID = ""
	resetSyncCommandState()
	resetResetCommandState()
	resetKeyCommandState()
}
