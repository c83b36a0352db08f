// Package drive implements the folder browser: navigation state, the
// materialized listing for the current position, and the coordination
// between user actions, the API, and the upload queue.
package drive

import (
	"context"
	"sync"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/events"
	"github.com/sekolahdrive/drive-int/internal/logging"
	"github.com/sekolahdrive/drive-int/internal/models"
	"github.com/sekolahdrive/drive-int/internal/transfer"
)

// OpenURLFunc hands a download URL to the platform's document-open
// mechanism. Injected so tests can capture the URL instead of spawning
// a viewer.
type OpenURLFunc func(url string) error

// Browser holds the navigation position and the listing for it.
//
// Listings are replaced wholesale; there is no incremental patching.
// Every fetch is tagged with an epoch at issue time and its result is
// discarded if a newer navigation has superseded it by the time the
// response arrives, so a slow fetch for folder A can never clobber the
// listing of folder B.
type Browser struct {
	apiClient *api.Client
	eventBus  *events.EventBus
	logger    *logging.Logger
	openURL   OpenURLFunc

	queue    *transfer.Queue
	uploader *transfer.Uploader

	mu       sync.RWMutex
	epoch    uint64
	current  string
	parent   string // parent of current; "" when unknown or at root
	listing  models.Listing
	loading  bool
	lastErr  error

	// fetches lets callers wait for in-flight fetches to settle.
	fetches sync.WaitGroup
}

// NewBrowser creates a browser positioned at the root folder. Nothing
// is fetched until Refresh (or a navigation) is called, so the caller
// can restore the session first. maxConcurrentUploads bounds the
// upload semaphore; openURL may be nil (platform default).
func NewBrowser(apiClient *api.Client, eventBus *events.EventBus, maxConcurrentUploads int, openURL OpenURLFunc) *Browser {
	b := &Browser{
		apiClient: apiClient,
		eventBus:  eventBus,
		logger:    logging.NewLogger("drive"),
		openURL:   openURL,
		current:   models.RootFolderID,
		listing:   models.Listing{FolderID: models.RootFolderID},
	}
	b.queue = transfer.NewQueue(eventBus)
	b.uploader = transfer.NewUploader(apiClient, b.queue, maxConcurrentUploads, b.refreshIfCurrent)
	return b
}

// Queue exposes the upload queue for display.
func (b *Browser) Queue() *transfer.Queue {
	return b.queue
}

// Current returns the current folder ID.
func (b *Browser) Current() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Listing returns a copy of the current listing.
func (b *Browser) Listing() models.Listing {
	b.mu.RLock()
	defer b.mu.RUnlock()

	listing := b.listing
	listing.Entries = make([]models.Entry, len(b.listing.Entries))
	copy(listing.Entries, b.listing.Entries)
	return listing
}

// IsLoading reports whether a fetch for the current position is in
// flight.
func (b *Browser) IsLoading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading
}

// LastError returns the most recent fetch error, or nil. It resets on
// every successful fetch.
func (b *Browser) LastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// OpenFolder navigates into the given folder and refetches.
func (b *Browser) OpenFolder(id string) {
	b.mu.Lock()
	b.current = id
	b.parent = "" // unknown until the response tells us
	epoch := b.bumpEpochLocked()
	b.mu.Unlock()

	b.startFetch(epoch, id)
}

// GoBack navigates to the parent of the current folder. At the root it
// is a no-op; when the parent is unknown it falls back to the root.
func (b *Browser) GoBack() {
	b.mu.Lock()
	if b.current == models.RootFolderID {
		b.mu.Unlock()
		return
	}
	target := b.parent
	if target == "" {
		target = models.RootFolderID
	}
	b.current = target
	b.parent = ""
	epoch := b.bumpEpochLocked()
	b.mu.Unlock()

	b.startFetch(epoch, target)
}

// Refresh refetches the listing for the current position. Idempotent:
// calling it while an older fetch is outstanding simply supersedes
// that fetch.
func (b *Browser) Refresh() {
	b.mu.Lock()
	target := b.current
	epoch := b.bumpEpochLocked()
	b.mu.Unlock()

	b.startFetch(epoch, target)
}

// WaitIdle blocks until all in-flight fetches and uploads settle.
func (b *Browser) WaitIdle() {
	b.uploader.Wait()
	b.fetches.Wait()
}

// CreateFolder creates a folder under parentID and refetches. The new
// entry appears only after the server round-trip; on failure the
// listing is left untouched and the server's message is returned.
func (b *Browser) CreateFolder(ctx context.Context, name, parentID string, isPublic bool) (string, error) {
	if parentID == "" {
		parentID = models.RootFolderID
	}

	id, err := b.apiClient.CreateFolder(ctx, name, parentID, isPublic)
	if err != nil {
		return "", err
	}

	b.Refresh()
	return id, nil
}

// OpenFile requests a short-lived download URL for the file and hands
// it to the platform's opener. No retry on failure.
func (b *Browser) OpenFile(ctx context.Context, fileID string) error {
	url, err := b.apiClient.GetDownloadURL(ctx, fileID)
	if err != nil {
		return err
	}
	if b.openURL == nil {
		return nil
	}
	return b.openURL(url)
}

// DownloadURL requests a short-lived download URL without opening it.
func (b *Browser) DownloadURL(ctx context.Context, fileID string) (string, error) {
	return b.apiClient.GetDownloadURL(ctx, fileID)
}

// Upload accepts a batch of local files for upload into the current
// folder. All tasks are registered before any network call; the
// listing is refreshed as each upload lands.
func (b *Browser) Upload(ctx context.Context, paths []string) []*transfer.UploadTask {
	return b.uploader.Enqueue(ctx, paths, b.Current())
}

// RetryUpload re-runs a failed upload task.
func (b *Browser) RetryUpload(ctx context.Context, taskID string) error {
	return b.uploader.Retry(ctx, taskID)
}

// refreshIfCurrent refreshes only when the given folder is still the
// one being viewed; an upload landing in a folder the user has since
// left must not redirect their listing.
func (b *Browser) refreshIfCurrent(folderID string) {
	if b.Current() == folderID {
		b.Refresh()
	}
}

// bumpEpochLocked advances the fetch epoch. Callers must hold b.mu.
func (b *Browser) bumpEpochLocked() uint64 {
	b.epoch++
	b.loading = true
	return b.epoch
}

// startFetch issues the listing fetch for (epoch, folderID) in the
// background.
func (b *Browser) startFetch(epoch uint64, folderID string) {
	if b.eventBus != nil {
		b.eventBus.Publish(&events.ListingEvent{
			BaseEvent: events.NewBase(events.EventListingLoading),
			FolderID:  folderID,
		})
	}

	b.fetches.Add(1)
	go func() {
		defer b.fetches.Done()
		b.fetch(epoch, folderID)
	}()
}

// fetch performs one listing fetch and applies the result if it is
// still wanted at arrival time.
func (b *Browser) fetch(epoch uint64, folderID string) {
	contents, err := b.apiClient.GetFolder(context.Background(), folderID)

	b.mu.Lock()
	if epoch != b.epoch {
		// Superseded by a newer navigation; discard.
		b.mu.Unlock()
		return
	}
	defer b.mu.Unlock()

	b.loading = false

	if err != nil {
		// An unauthorized root just means no accessible content for
		// this (possibly anonymous) viewer, not a failure.
		if folderID == models.RootFolderID && api.IsUnauthorized(err) {
			b.applyLocked(models.Listing{FolderID: models.RootFolderID}, "")
			return
		}

		b.logger.Warn().Err(err).Str("folder", folderID).Msg("listing fetch failed")
		b.lastErr = err
		b.listing = models.Listing{FolderID: folderID}
		b.publishLocked(events.EventListingError, folderID, err)
		return
	}

	listing, parent := mapContents(folderID, contents)
	b.applyLocked(listing, parent)
}

// applyLocked installs a listing wholesale. Callers must hold b.mu.
func (b *Browser) applyLocked(listing models.Listing, parent string) {
	b.listing = listing
	b.parent = parent
	b.lastErr = nil
	b.publishLocked(events.EventListingChanged, listing.FolderID, nil)
}

func (b *Browser) publishLocked(eventType events.EventType, folderID string, err error) {
	if b.eventBus == nil {
		return
	}
	b.eventBus.Publish(&events.ListingEvent{
		BaseEvent: events.NewBase(eventType),
		FolderID:  folderID,
		Entries:   len(b.listing.Entries),
		Error:     err,
	})
}

// mapContents converts a folder response into a listing plus the
// parent pointer used for back-navigation. The parent comes from the
// response's own folder record, defaulting to the root sentinel when
// absent and the folder is not itself the root.
func mapContents(folderID string, contents *api.FolderContents) (models.Listing, string) {
	parent := ""
	if contents.Folder.ParentID != nil && *contents.Folder.ParentID != "" {
		parent = *contents.Folder.ParentID
	} else if folderID != models.RootFolderID {
		parent = models.RootFolderID
	}

	entries := make([]models.Entry, 0, len(contents.Subfolders)+len(contents.Files))

	for _, f := range contents.Subfolders {
		entries = append(entries, models.Entry{
			Kind:      models.EntryFolder,
			ID:        f.ID,
			Name:      f.Name,
			ParentID:  folderID,
			OwnerID:   f.OwnerID,
			IsPublic:  f.IsPublic,
			CreatedAt: f.CreatedAt,
		})
	}

	for _, f := range contents.Files {
		mimeType := f.MimeType
		if mimeType == "" {
			mimeType = models.DefaultMimeType
		}
		entries = append(entries, models.Entry{
			Kind:      models.EntryFile,
			ID:        f.ID,
			Name:      f.Name,
			ParentID:  folderID,
			OwnerID:   f.OwnerID,
			Size:      f.Size,
			MimeType:  mimeType,
			Category:  models.Categorize(mimeType),
			IsPublic:  f.IsPublic,
			CreatedAt: f.CreatedAt,
		})
	}

	return models.Listing{
		FolderID: folderID,
		ParentID: parent,
		Entries:  entries,
	}, parent
}
