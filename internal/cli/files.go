// Package cli provides file transfer commands.
package cli

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"os"
	"path"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sekolahdrive/drive-int/internal/diskspace"
	"github.com/sekolahdrive/drive-int/internal/drive"
	"github.com/sekolahdrive/drive-int/internal/events"
	drivehttp "github.com/sekolahdrive/drive-int/internal/http"
	"github.com/sekolahdrive/drive-int/internal/models"
	"github.com/sekolahdrive/drive-int/internal/progress"
	"github.com/sekolahdrive/drive-int/internal/transfer"
	"github.com/sekolahdrive/drive-int/internal/util/opener"
	"github.com/sekolahdrive/drive-int/internal/validation"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var folderID string

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files to a folder",
		Long: `Upload one or more local files. Each file becomes its own upload
task; a failure in one never aborts the others. Progress is shown per
file.

Example:
  drive-int upload tugas.pdf
  drive-int upload foto1.jpg foto2.jpg --folder 3f8a2c`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			eventBus := events.NewEventBus(0)
			defer eventBus.Close()

			store, apiClient, err := newSession(cfg, eventBus)
			if err != nil {
				return err
			}
			if !store.IsAuthenticated() {
				return fmt.Errorf("not signed in; run 'drive-int login' first")
			}

			if folderID == "" {
				folderID = models.RootFolderID
			}

			ctx := GetContext()
			browser := drive.NewBrowser(apiClient, eventBus, cfg.MaxConcurrentUploads, nil)
			browser.OpenFolder(folderID)

			ui := progress.NewUploadUI(len(args))
			logger.SetOutput(ui.LogWriter())
			uiDone := make(chan struct{})
			go consumeUploadEvents(eventBus.SubscribeAll(), ui, uiDone)

			tasks := browser.Upload(ctx, args)
			browser.WaitIdle()
			ui.Wait()

			eventBus.Close()
			<-uiDone

			failed := 0
			for _, task := range tasks {
				if task.State() == transfer.TaskFailed {
					failed++
				}
			}

			logger.Info().Int("total", len(tasks)).Int("failed", failed).Msg("Upload batch finished")
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(tasks))
			}
			fmt.Printf("✓ Uploaded %d file(s)\n", len(tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Target folder ID (default: root)")

	return cmd
}

// consumeUploadEvents drives the progress bars from the upload events
// on the bus until the bus closes.
func consumeUploadEvents(ch <-chan events.Event, ui *progress.UploadUI, done chan<- struct{}) {
	defer close(done)
	for ev := range ch {
		upload, ok := ev.(*events.UploadEvent)
		if !ok {
			continue
		}

		switch upload.Type() {
		case events.EventUploadQueued:
			ui.AddTaskBar(upload.TaskID, upload.Name, upload.Size)
		case events.EventUploadProgress:
			ui.SetPercent(upload.TaskID, upload.Progress)
		case events.EventUploadCompleted:
			ui.Complete(upload.TaskID)
		case events.EventUploadFailed:
			ui.Fail(upload.TaskID, upload.Error)
		}
	}
}

// newGetCmd creates the 'get' command.
func newGetCmd() *cobra.Command {
	var output string
	var open bool

	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Download a file, or open it with the default viewer",
		Long: `Request a short-lived download URL for a file and fetch it. With
--open the URL is handed to the platform's default viewer instead.

Example:
  drive-int get 9d41b7 --output laporan.pdf
  drive-int get 9d41b7 --open`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			_, apiClient, err := newSession(cfg, nil)
			if err != nil {
				return err
			}

			ctx := GetContext()
			browser := drive.NewBrowser(apiClient, nil, cfg.MaxConcurrentUploads, opener.Open)

			if open {
				if err := browser.OpenFile(ctx, fileID); err != nil {
					return fmt.Errorf("failed to open file: %w", err)
				}
				fmt.Println("✓ Opened in default viewer")
				return nil
			}

			downloadURL, err := browser.DownloadURL(ctx, fileID)
			if err != nil {
				return fmt.Errorf("failed to get download URL: %w", err)
			}

			if output == "" {
				output = downloadFileName(downloadURL, fileID)
			}

			if err := downloadTo(ctx, downloadURL, output); err != nil {
				return err
			}

			fmt.Printf("✓ Downloaded to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: name from the download URL)")
	cmd.Flags().BoolVar(&open, "open", false, "Open with the default viewer instead of saving")

	return cmd
}

// downloadTo streams the URL's body to a local file with a progress
// bar. The URL is presigned; no auth header is attached.
func downloadTo(ctx context.Context, rawURL, outputPath string) error {
	req, err := nethttp.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	client := drivehttp.NewTransferClient()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed: storage returned status %d", resp.StatusCode)
	}

	if err := diskspace.Check(outputPath, resp.ContentLength); err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	var reporter progress.Reporter = progress.NewCLIProgress()
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		reporter = progress.NoOpProgress{}
	}
	reporter.Start(resp.ContentLength, path.Base(outputPath))
	defer reporter.Finish()

	if _, err := io.Copy(out, progress.NewReader(resp.Body, reporter)); err != nil {
		reporter.Error(err)
		return fmt.Errorf("download failed: %w", err)
	}

	return nil
}

// downloadFileName derives a local file name from the presigned URL's
// path, falling back to the file ID when the URL yields nothing safe
// to write to disk.
func downloadFileName(rawURL, fileID string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fileID
	}
	name := path.Base(u.Path)
	if name == "/" || validation.ValidateFilename(name) != nil {
		return fileID
	}
	return name
}
