// Package transfer implements the upload queue: per-file tasks with a
// two-phase upload protocol (request a presigned target, then stream
// the bytes to storage) and progress tracking suitable for any front
// end to render.
package transfer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the current state of an upload task.
//
// Transitions: Pending -> Transferring -> Succeeded -> Evicted, with
// Failed reachable from Pending and Transferring. Failed and Evicted
// are terminal; nothing leaves Failed except an explicit user retry,
// which resets the task to Pending.
type TaskState string

const (
	TaskPending      TaskState = "pending"      // registered, no bytes moving yet
	TaskTransferring TaskState = "transferring" // streaming to the presigned target
	TaskSucceeded    TaskState = "succeeded"    // all bytes delivered, progress pinned at 100
	TaskFailed       TaskState = "failed"       // init or transfer failed, progress pinned at -1
	TaskEvicted      TaskState = "evicted"      // left the active set after the display delay
)

// FailedProgress is the sentinel progress value of a failed task.
const FailedProgress = -1

// UploadTask is a single file upload. Thread-safe; use the accessor
// methods. All state changes go through the owning Queue so events
// stay consistent with state.
type UploadTask struct {
	ID       string // unique task ID
	Name     string // display name (filename)
	Path     string // local file path
	FolderID string // target folder
	Size     int64  // file size in bytes
	MimeType string // content type sent in both phases

	mu          sync.RWMutex
	state       TaskState
	progress    int // 0..100, or FailedProgress
	err         error
	createdAt   time.Time
	completedAt time.Time
}

// NewUploadTask creates a task in the Pending state with progress 0.
func NewUploadTask(name, path, folderID string, size int64, mimeType string) *UploadTask {
	return &UploadTask{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		FolderID:  folderID,
		Size:      size,
		MimeType:  mimeType,
		state:     TaskPending,
		createdAt: time.Now(),
	}
}

// State returns the current state.
func (t *UploadTask) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Progress returns the current progress value (0..100, or -1 after a
// failure).
func (t *UploadTask) Progress() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Err returns the failure cause, or nil.
func (t *UploadTask) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// IsTerminal reports whether the task is failed or evicted.
func (t *UploadTask) IsTerminal() bool {
	state := t.State()
	return state == TaskFailed || state == TaskEvicted
}

// setProgress applies a progress update. Updates are monotone: a value
// lower than the current one is ignored, as is any update after the
// task left the Transferring state.
func (t *UploadTask) setProgress(progress int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TaskTransferring && t.state != TaskPending {
		return false
	}
	if progress < t.progress {
		return false
	}
	if progress > 100 {
		progress = 100
	}
	t.state = TaskTransferring
	t.progress = progress
	return true
}

// complete pins the task at 100 and marks it Succeeded.
func (t *UploadTask) complete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TaskFailed || t.state == TaskEvicted {
		return false
	}
	t.state = TaskSucceeded
	t.progress = 100
	t.completedAt = time.Now()
	return true
}

// fail pins the task at the failure sentinel. A task that already
// succeeded or failed is left untouched.
func (t *UploadTask) fail(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TaskSucceeded || t.state == TaskFailed || t.state == TaskEvicted {
		return false
	}
	t.state = TaskFailed
	t.progress = FailedProgress
	t.err = err
	t.completedAt = time.Now()
	return true
}

// evict moves a succeeded task out of the active set.
func (t *UploadTask) evict() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TaskSucceeded {
		return false
	}
	t.state = TaskEvicted
	return true
}

// reset returns a failed task to Pending for a user-initiated retry.
func (t *UploadTask) reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TaskFailed {
		return false
	}
	t.state = TaskPending
	t.progress = 0
	t.err = nil
	t.completedAt = time.Time{}
	return true
}

// Snapshot is an immutable copy of a task for display.
type Snapshot struct {
	ID          string
	Name        string
	FolderID    string
	Size        int64
	State       TaskState
	Progress    int
	Err         error
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Snapshot returns a copy of the task's current state.
func (t *UploadTask) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		ID:          t.ID,
		Name:        t.Name,
		FolderID:    t.FolderID,
		Size:        t.Size,
		State:       t.state,
		Progress:    t.progress,
		Err:         t.err,
		CreatedAt:   t.createdAt,
		CompletedAt: t.completedAt,
	}
}
