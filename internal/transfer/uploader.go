package transfer

import (
	"context"
	"fmt"
	"io"
	"mime"
	nethttp "net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/constants"
	drivehttp "github.com/sekolahdrive/drive-int/internal/http"
	"github.com/sekolahdrive/drive-int/internal/logging"
	"github.com/sekolahdrive/drive-int/internal/models"
)

// RefreshFunc is invoked after an upload lands, once the settle delay
// has passed, so the owning browser can refetch the target folder.
type RefreshFunc func(folderID string)

// Uploader executes the two-phase upload protocol for queued tasks:
//
//  1. Init: POST /files/upload for a presigned target.
//  2. Transfer: PUT the raw bytes to that target, reporting progress
//     as they go out.
//
// Tasks run concurrently and independently; a bounded semaphore caps
// how many move bytes at once but failures never propagate between
// tasks. There are no automatic retries at either phase — retry is a
// user action via Retry.
type Uploader struct {
	apiClient  *api.Client
	queue      *Queue
	httpClient *nethttp.Client
	semaphore  chan struct{}
	logger     *logging.Logger

	onRefresh   RefreshFunc
	settleDelay time.Duration

	wg sync.WaitGroup
}

// NewUploader creates an uploader feeding the given queue.
// maxConcurrent bounds simultaneous transfers; onRefresh may be nil.
func NewUploader(apiClient *api.Client, queue *Queue, maxConcurrent int, onRefresh RefreshFunc) *Uploader {
	if maxConcurrent <= 0 {
		maxConcurrent = constants.DefaultMaxConcurrent
	}
	return &Uploader{
		apiClient:   apiClient,
		queue:       queue,
		httpClient:  drivehttp.NewTransferClient(),
		semaphore:   make(chan struct{}, maxConcurrent),
		logger:      logging.NewLogger("uploader"),
		onRefresh:   onRefresh,
		settleDelay: constants.RefreshSettleDelay,
	}
}

// Enqueue accepts a batch of local files for upload into folderID.
// Every file becomes a tracked Pending task before any network call is
// made, then the tasks are executed concurrently. Returns the created
// tasks in batch order; files that cannot be stat'ed still get a task,
// immediately failed, so the batch count always matches the accepted
// count.
func (u *Uploader) Enqueue(ctx context.Context, paths []string, folderID string) []*UploadTask {
	tasks := make([]*UploadTask, 0, len(paths))

	// Register the whole batch first.
	for _, path := range paths {
		name := filepath.Base(path)
		mimeType := detectMimeType(path)

		var size int64
		info, statErr := os.Stat(path)
		if statErr == nil {
			size = info.Size()
		}

		task := NewUploadTask(name, path, folderID, size, mimeType)
		tasks = append(tasks, task)
		u.queue.Track(task)

		if statErr != nil {
			u.queue.Fail(task.ID, fmt.Errorf("failed to stat file: %w", statErr))
		}
	}

	// Then start moving bytes.
	for _, task := range tasks {
		if task.State() == TaskFailed {
			continue
		}
		u.wg.Add(1)
		go func(t *UploadTask) {
			defer u.wg.Done()
			u.execute(ctx, t)
		}(task)
	}

	return tasks
}

// Retry re-runs a failed task. Only Failed tasks are retryable; the
// task keeps its identity and re-enters the queue as Pending.
func (u *Uploader) Retry(ctx context.Context, taskID string) error {
	task, err := u.queue.Reset(taskID)
	if err != nil {
		return err
	}

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		u.execute(ctx, task)
	}()
	return nil
}

// Wait blocks until all currently running uploads settle. Used by the
// CLI, which has no long-lived event loop to return to.
func (u *Uploader) Wait() {
	u.wg.Wait()
}

// execute runs one task through both phases.
func (u *Uploader) execute(ctx context.Context, task *UploadTask) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error().Msgf("panic uploading %s: %v", task.Name, r)
			u.queue.Fail(task.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	select {
	case u.semaphore <- struct{}{}:
	case <-ctx.Done():
		u.queue.Fail(task.ID, ctx.Err())
		return
	}
	defer func() { <-u.semaphore }()

	// Init phase: ask the API for a presigned target.
	target, err := u.apiClient.InitUpload(ctx, task.Name, task.FolderID, task.Size, task.MimeType)
	if err != nil {
		u.logger.Error().Err(err).Str("name", task.Name).Msg("upload init failed")
		u.queue.Fail(task.ID, fmt.Errorf("upload init failed: %w", err))
		return
	}

	// Transfer phase: stream the bytes straight to storage.
	if err := u.transfer(ctx, task, target.PresignedURL); err != nil {
		u.logger.Error().Err(err).Str("name", task.Name).Msg("upload transfer failed")
		u.queue.Fail(task.ID, err)
		return
	}

	u.queue.Complete(task.ID)
	u.logger.Debug().Str("name", task.Name).Str("file_id", target.FileID).Msg("upload complete")

	if u.onRefresh != nil {
		// Let the backend settle (cache invalidation, metadata row)
		// before the listing refetch that makes the file visible.
		folderID := task.FolderID
		time.AfterFunc(u.settleDelay, func() { u.onRefresh(folderID) })
	}
}

// transfer PUTs the file body to the presigned URL, reporting progress
// per chunk sent.
func (u *Uploader) transfer(ctx context.Context, task *UploadTask, presignedURL string) error {
	file, err := os.Open(task.Path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := &progressReader{
		reader: file,
		onRead: func(sent int64) {
			u.queue.SetProgress(task.ID, sent, task.Size)
		},
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPut, presignedURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.ContentLength = task.Size
	req.Header.Set("Content-Type", task.MimeType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("storage rejected upload: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// progressReader counts bytes as they are read out for the PUT body.
type progressReader struct {
	reader io.Reader
	sent   int64
	onRead func(sent int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		if r.onRead != nil {
			r.onRead(r.sent)
		}
	}
	return n, err
}

// detectMimeType resolves a file's MIME type from its extension,
// defaulting to the generic binary type.
func detectMimeType(path string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return models.DefaultMimeType
}
