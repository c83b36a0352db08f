package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// percentScale is the bar total: upload progress arrives as 0..100.
const percentScale = 100

// UploadUI manages one progress bar per queued upload task using mpb.
// Bars are keyed by task ID and advance on the 0..100 percent scale
// the upload queue reports.
type UploadUI struct {
	progress   *mpb.Progress
	bars       sync.Map // taskID -> *TaskBar
	isTerminal bool
	totalFiles int
	started    int32
}

// TaskBar is the progress bar for a single upload task.
type TaskBar struct {
	bar       *mpb.Bar
	ui        *UploadUI
	index     int
	name      string
	size      int64
	startTime time.Time
}

// NewUploadUI creates an upload UI sized for totalFiles tasks. When
// stderr is not a terminal the bars are suppressed and plain text is
// printed instead.
func NewUploadUI(totalFiles int) *UploadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		enableWindowsANSI(os.Stderr)

		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddTaskBar creates a progress bar for one upload task.
func (u *UploadUI) AddTaskBar(taskID, name string, size int64) *TaskBar {
	index := int(atomic.AddInt32(&u.started, 1))
	name = TruncateName(name, 2)

	tb := &TaskBar{
		ui:        u,
		index:     index,
		name:      name,
		size:      size,
		startTime: time.Now(),
	}

	if u.isTerminal {
		tb.bar = u.progress.New(percentScale,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s (%.1f MiB)",
					index, u.totalFiles, name, float64(size)/(1024*1024)),
					decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Printf("Uploading [%d/%d]: %s (%.1f MiB)\n",
			index, u.totalFiles, name, float64(size)/(1024*1024))
	}

	u.bars.Store(taskID, tb)
	return tb
}

// SetPercent advances a task's bar to the given percent. The failure
// sentinel -1 is ignored here; Fail handles it.
func (u *UploadUI) SetPercent(taskID string, percent int) {
	tb, ok := u.lookup(taskID)
	if !ok || tb.bar == nil || percent < 0 {
		return
	}
	tb.bar.SetCurrent(int64(percent))
}

// Complete marks a task's bar as done and prints a summary line.
func (u *UploadUI) Complete(taskID string) {
	tb, ok := u.lookup(taskID)
	if !ok {
		return
	}

	elapsed := time.Since(tb.startTime)
	if tb.bar != nil {
		tb.bar.SetCurrent(percentScale)
		tb.bar.SetTotal(percentScale, true)
	}

	msg := fmt.Sprintf("✓ %s (%.1f MiB, %s)\n",
		tb.name, float64(tb.size)/(1024*1024), elapsed.Round(time.Second))
	u.write(msg)
}

// Fail aborts a task's bar, keeps it visible, and prints the error.
func (u *UploadUI) Fail(taskID string, err error) {
	tb, ok := u.lookup(taskID)
	if !ok {
		return
	}

	if tb.bar != nil {
		tb.bar.Abort(false)
	}
	u.write(fmt.Sprintf("✗ %s: %v\n", tb.name, err))
}

// Wait blocks until all progress bars complete or abort.
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// LogWriter returns a writer that safely prints above the bars.
func (u *UploadUI) LogWriter() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stderr
}

func (u *UploadUI) lookup(taskID string) (*TaskBar, bool) {
	v, ok := u.bars.Load(taskID)
	if !ok {
		return nil, false
	}
	return v.(*TaskBar), true
}

// write routes summary lines through mpb's writer when bars are active
// so they do not corrupt the redraw.
func (u *UploadUI) write(msg string) {
	if u.isTerminal && u.progress != nil {
		u.progress.Write([]byte(msg))
		return
	}
	fmt.Print(msg)
}

// TruncateName shortens a path to its last components for display.
func TruncateName(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
