// Package cli provides the command-line interface for drive-int.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/config"
	"github.com/sekolahdrive/drive-int/internal/events"
	"github.com/sekolahdrive/drive-int/internal/logging"
	"github.com/sekolahdrive/drive-int/internal/session"
	"github.com/sekolahdrive/drive-int/internal/version"
)

var (
	// Global flags
	apiBaseURL string
	maxUploads int
	verbose    bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drive-int",
		Short: "SekolahDrive client - browse, upload, and share school files",
		Long: `SekolahDrive client ` + version.Version + ` - Built: ` + version.BuildTime + `
Command-line client for the SekolahDrive file sharing service.

Sign in once with 'drive-int login'; the session persists under your
user config directory until you log out. Public folders can be browsed
without signing in.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger("cli")
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Drive API base URL (overrides DRIVE_API_URL)")
	rootCmd.PersistentFlags().IntVar(&maxUploads, "max-uploads", 0, "Maximum concurrent uploads (0 = default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newGetCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewLogger("cli")
	}
	return logger
}

// GetContext returns the global CLI context with signal handling. It
// is cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig builds the effective configuration: defaults, then
// environment, then explicit flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	if maxUploads > 0 {
		cfg.MaxConcurrentUploads = maxUploads
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession restores the persisted session, if any, and returns an
// API client whose bearer token tracks the session store.
func newSession(cfg *config.Config, eventBus *events.EventBus) (*session.Store, *api.Client, error) {
	store := session.NewStore(config.Directory(), eventBus)
	store.Restore()

	tokenSource := store.Token
	if cfg.Token != "" {
		// Explicit token from the environment wins over the persisted
		// session for this invocation only.
		tokenSource = func() string { return cfg.Token }
	}

	apiClient, err := api.NewClient(cfg, tokenSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return store, apiClient, nil
}
