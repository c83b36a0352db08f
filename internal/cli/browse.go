// Package cli provides folder browsing commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sekolahdrive/drive-int/internal/drive"
	"github.com/sekolahdrive/drive-int/internal/models"
)

// newListCmd creates the 'ls' command.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List folder contents",
		Long: `List files and subfolders. Without an argument the root of the
drive is listed. Browsing works unauthenticated too; you then only see
public content.

Example:
  drive-int ls
  drive-int ls 3f8a2c`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, apiClient, err := newSession(cfg, nil)
			if err != nil {
				return err
			}

			browser := drive.NewBrowser(apiClient, nil, cfg.MaxConcurrentUploads, nil)
			if len(args) == 1 && args[0] != models.RootFolderID {
				browser.OpenFolder(args[0])
			} else {
				browser.Refresh()
			}
			browser.WaitIdle()

			if err := browser.LastError(); err != nil {
				return fmt.Errorf("failed to list folder: %w", err)
			}

			printListing(browser.Listing(), store.IsAuthenticated())
			return nil
		},
	}

	return cmd
}

// printListing renders a listing the way the web UI groups it: folders
// first, then files with size and category.
func printListing(listing models.Listing, authenticated bool) {
	if listing.IsRoot() {
		fmt.Printf("Drive Saya (root)\n\n")
	} else {
		fmt.Printf("Folder %s\n\n", listing.FolderID)
	}

	folders := listing.Folders()
	files := listing.Files()

	if len(folders) > 0 {
		fmt.Println("Folders:")
		for _, f := range folders {
			visibility := ""
			if f.IsPublic {
				visibility = " [public]"
			}
			fmt.Printf("  📁 %s%s (ID: %s)\n", f.Name, visibility, f.ID)
		}
		fmt.Println()
	}

	if len(files) > 0 {
		fmt.Println("Files:")
		for _, f := range files {
			sizeMB := float64(f.Size) / (1024 * 1024)
			fmt.Printf("  📄 %s (%.2f MB, %s, ID: %s)\n", f.Name, sizeMB, f.Category, f.ID)
		}
	}

	if len(folders) == 0 && len(files) == 0 {
		if listing.IsRoot() && !authenticated {
			fmt.Println("  (empty - sign in to see your own files)")
		} else {
			fmt.Println("  (empty)")
		}
	}
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	var parentID string
	var isPublic bool

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a new folder",
		Long: `Create a folder. The folder appears only after the server confirms
it; on failure nothing changes and the server's message is shown.

Example:
  drive-int mkdir "Laporan OSIS"
  drive-int mkdir "Foto Kegiatan" --parent 3f8a2c --public`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, apiClient, err := newSession(cfg, nil)
			if err != nil {
				return err
			}
			if !store.IsAuthenticated() {
				return fmt.Errorf("not signed in; run 'drive-int login' first")
			}

			ctx := GetContext()
			browser := drive.NewBrowser(apiClient, nil, cfg.MaxConcurrentUploads, nil)

			id, err := browser.CreateFolder(ctx, name, parentID, isPublic)
			if err != nil {
				return fmt.Errorf("failed to create folder: %w", err)
			}
			browser.WaitIdle()

			logger.Info().Str("folder_id", id).Str("name", name).Msg("Folder created")
			fmt.Printf("✓ Folder created\n")
			fmt.Printf("  Name: %s\n", name)
			fmt.Printf("  ID: %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "Parent folder ID (default: root)")
	cmd.Flags().BoolVar(&isPublic, "public", false, "Make the folder publicly visible")

	return cmd
}
