// Package cli provides session commands (login, logout, whoami).
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var email string
	var password string
	var register bool
	var name string
	var role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Long: `Authenticate against the Drive service and persist the session
token under your user config directory. Subsequent commands reuse the
session until you log out.

Example:
  drive-int login --email siswa@sekolah.id

  # Create an account first, then sign in
  drive-int login --email siswa@sekolah.id --register --name "Budi"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, apiClient, err := newSession(cfg, nil)
			if err != nil {
				return err
			}

			ctx := GetContext()

			if email == "" {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			if register {
				if name == "" {
					name, err = promptLine("Name: ")
					if err != nil {
						return err
					}
				}
				if err := apiClient.Register(ctx, name, email, password, role); err != nil {
					return fmt.Errorf("registration failed: %w", err)
				}
				fmt.Println("✓ Account created")
			}

			user, err := store.Login(ctx, apiClient, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			logger.Info().Str("email", user.Email).Str("role", user.Role).Msg("Signed in")
			fmt.Printf("✓ Signed in as %s (%s)\n", user.Name, user.Role)

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	cmd.Flags().BoolVar(&register, "register", false, "Create the account before signing in")
	cmd.Flags().StringVar(&name, "name", "", "Display name for --register")
	cmd.Flags().StringVar(&role, "role", "", "Role for --register (default: student)")

	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, _, err := newSession(cfg, nil)
			if err != nil {
				return err
			}

			if !store.IsAuthenticated() {
				fmt.Println("Not signed in")
				return nil
			}

			store.Logout()
			fmt.Println("✓ Signed out")
			return nil
		},
	}
}

// newWhoamiCmd creates the 'whoami' command.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, _, err := newSession(cfg, nil)
			if err != nil {
				return err
			}

			user := store.Identity()
			if user == nil {
				fmt.Println("Not signed in")
				return nil
			}

			fmt.Printf("Name:  %s\n", user.Name)
			fmt.Printf("Email: %s\n", user.Email)
			fmt.Printf("Role:  %s\n", user.Role)
			return nil
		},
	}
}

// promptLine reads one line of input from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echoing when stdin is a
// terminal, falling back to a plain line read otherwise (pipes, CI).
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(prompt)
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
