package transfer

import (
	"errors"
	"sync"
	"time"

	"github.com/sekolahdrive/drive-int/internal/constants"
	"github.com/sekolahdrive/drive-int/internal/events"
)

// Queue tracks the active set of upload tasks and publishes their
// state changes. It does not execute transfers; the Uploader drives
// tasks through the queue as bytes move.
//
// A batch of N accepted files produces N tracked tasks before any
// network call happens, so the front end always sees the full batch.
// One task's failure never touches its siblings.
type Queue struct {
	mu        sync.RWMutex
	tasks     []*UploadTask          // in acceptance order
	tasksByID map[string]*UploadTask

	eventBus      *events.EventBus
	evictionDelay time.Duration

	// afterFunc is swapped in tests to make eviction deterministic.
	afterFunc func(time.Duration, func()) *time.Timer
}

// NewQueue creates a queue publishing to eventBus (which may be nil).
func NewQueue(eventBus *events.EventBus) *Queue {
	return &Queue{
		tasksByID:     make(map[string]*UploadTask),
		eventBus:      eventBus,
		evictionDelay: constants.EvictionDelay,
		afterFunc:     time.AfterFunc,
	}
}

// Track registers a task in the Pending state and announces it.
func (q *Queue) Track(task *UploadTask) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.tasksByID[task.ID] = task
	q.mu.Unlock()

	q.publish(events.EventUploadQueued, task)
}

// SetProgress applies a byte-count progress update to a task. The
// percentage is computed here so every producer rounds the same way; a
// zero-byte file is complete the moment its PUT succeeds, so an empty
// total reports 100 rather than dividing by zero.
func (q *Queue) SetProgress(taskID string, sent, total int64) {
	task := q.lookup(taskID)
	if task == nil {
		return
	}

	var percent int
	if total <= 0 {
		percent = 100
	} else {
		percent = int(float64(sent)/float64(total)*100 + 0.5)
	}

	if task.setProgress(percent) {
		q.publish(events.EventUploadProgress, task)
	}
}

// Complete pins a task at 100, announces it, and schedules its
// eviction from the active set after the display delay.
func (q *Queue) Complete(taskID string) {
	task := q.lookup(taskID)
	if task == nil || !task.complete() {
		return
	}

	q.publish(events.EventUploadCompleted, task)

	q.afterFunc(q.evictionDelay, func() {
		if task.evict() {
			q.remove(taskID)
			q.publish(events.EventUploadEvicted, task)
		}
	})
}

// Fail pins a task at the failure sentinel and announces it. Failed
// tasks stay in the active set so the user can see and retry them.
func (q *Queue) Fail(taskID string, err error) {
	task := q.lookup(taskID)
	if task == nil || !task.fail(err) {
		return
	}

	q.publish(events.EventUploadFailed, task)
}

// Reset returns a failed task to Pending for a user-initiated retry
// and announces it as queued again. Only Failed tasks can be reset.
func (q *Queue) Reset(taskID string) (*UploadTask, error) {
	task := q.lookup(taskID)
	if task == nil {
		return nil, errors.New("task not found")
	}
	if !task.reset() {
		return nil, errors.New("task is not in a retryable state")
	}

	q.publish(events.EventUploadQueued, task)
	return task, nil
}

// Task returns a snapshot of one task.
func (q *Queue) Task(taskID string) (Snapshot, bool) {
	task := q.lookup(taskID)
	if task == nil {
		return Snapshot{}, false
	}
	return task.Snapshot(), true
}

// Active returns snapshots of all tasks still in the active set, in
// acceptance order.
func (q *Queue) Active() []Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]Snapshot, 0, len(q.tasks))
	for _, task := range q.tasks {
		out = append(out, task.Snapshot())
	}
	return out
}

// Len returns the number of tasks in the active set.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

func (q *Queue) lookup(taskID string) *UploadTask {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tasksByID[taskID]
}

func (q *Queue) remove(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.tasksByID, taskID)
	for i, task := range q.tasks {
		if task.ID == taskID {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			break
		}
	}
}

func (q *Queue) publish(eventType events.EventType, task *UploadTask) {
	if q.eventBus == nil {
		return
	}

	snap := task.Snapshot()
	q.eventBus.Publish(&events.UploadEvent{
		BaseEvent: events.NewBase(eventType),
		TaskID:    snap.ID,
		Name:      snap.Name,
		FolderID:  snap.FolderID,
		Size:      snap.Size,
		Progress:  snap.Progress,
		Error:     snap.Err,
	})
}
