package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sekolahdrive/drive-int/internal/api"
	"github.com/sekolahdrive/drive-int/internal/config"
	"github.com/sekolahdrive/drive-int/internal/events"
	"github.com/sekolahdrive/drive-int/internal/models"
)

// driveBackend is a fake folder API with per-folder delays and status
// overrides, for exercising navigation races.
type driveBackend struct {
	mu       sync.Mutex
	folders  map[string]string        // folderID -> JSON body
	delays   map[string]time.Duration // folderID -> response delay
	statuses map[string]int           // folderID -> forced status
	getCount map[string]int
	created  []string

	server *httptest.Server
}

func newDriveBackend(t *testing.T) *driveBackend {
	b := &driveBackend{
		folders:  make(map[string]string),
		delays:   make(map[string]time.Duration),
		statuses: make(map[string]int),
		getCount: make(map[string]int),
	}

	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" && r.URL.Path == "/folders" {
			var req struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			b.mu.Lock()
			b.created = append(b.created, req.Name)
			b.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"new-%s"}`, req.Name)
			return
		}

		if r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/folders/") {
			folderID := strings.TrimPrefix(r.URL.Path, "/folders/")

			b.mu.Lock()
			b.getCount[folderID]++
			delay := b.delays[folderID]
			status := b.statuses[folderID]
			body, ok := b.folders[folderID]
			b.mu.Unlock()

			if delay > 0 {
				time.Sleep(delay)
			}
			if status != 0 {
				w.WriteHeader(status)
				return
			}
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("no such folder"))
				return
			}
			w.Write([]byte(body))
			return
		}

		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(b.server.Close)

	return b
}

func (b *driveBackend) setFolder(id, parent string, subfolders, files string) {
	parentJSON := "null"
	if parent != "" {
		parentJSON = fmt.Sprintf("%q", parent)
	}
	b.mu.Lock()
	b.folders[id] = fmt.Sprintf(
		`{"folder":{"id":%q,"name":"F","parent_id":%s,"owner_id":"u1"},"subfolders":[%s],"files":[%s]}`,
		id, parentJSON, subfolders, files)
	b.mu.Unlock()
}

func (b *driveBackend) gets(folderID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getCount[folderID]
}

func newTestBrowser(t *testing.T, b *driveBackend, eventBus *events.EventBus) *Browser {
	cfg := &config.Config{APIBaseURL: b.server.URL, MaxConcurrentUploads: 2}
	client, err := api.NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewBrowser(client, eventBus, 2, nil)
}

func TestBrowserStartsAtRoot(t *testing.T) {
	b := newDriveBackend(t)
	browser := newTestBrowser(t, b, nil)

	if browser.Current() != models.RootFolderID {
		t.Errorf("Current() = %q, want root", browser.Current())
	}
	if !browser.Listing().IsRoot() {
		t.Error("initial listing should be the (empty) root")
	}
	// Nothing is fetched until asked.
	if b.gets(models.RootFolderID) != 0 {
		t.Error("constructor should not touch the network")
	}
}

func TestRefreshLoadsListing(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "",
		`{"id":"sub1","name":"Tugas","owner_id":"u1"}`,
		`{"id":"f1","name":"foto.png","size":9,"mime_type":"image/png","owner_id":"u1"}`)
	browser := newTestBrowser(t, b, nil)

	browser.Refresh()
	browser.WaitIdle()

	if err := browser.LastError(); err != nil {
		t.Fatalf("LastError() = %v", err)
	}

	listing := browser.Listing()
	if len(listing.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(listing.Entries))
	}

	folder := listing.Entries[0]
	if folder.Kind != models.EntryFolder || folder.Name != "Tugas" {
		t.Errorf("first entry = %+v, want folder Tugas", folder)
	}
	if folder.ParentID != "root" {
		t.Errorf("entry ParentID = %q, want the listing's folder", folder.ParentID)
	}

	file := listing.Entries[1]
	if file.Kind != models.EntryFile || file.Category != models.CategoryImage {
		t.Errorf("second entry = %+v, want image file", file)
	}
}

func TestStaleFetchNeverOverwritesNewerListing(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("slow", "", `{"id":"s1","name":"Old","owner_id":"u1"}`, "")
	b.setFolder("fast", "", `{"id":"s2","name":"New","owner_id":"u1"}`, "")
	b.mu.Lock()
	b.delays["slow"] = 300 * time.Millisecond
	b.mu.Unlock()

	browser := newTestBrowser(t, b, nil)

	browser.OpenFolder("slow")
	browser.OpenFolder("fast")
	browser.WaitIdle()

	listing := browser.Listing()
	if listing.FolderID != "fast" {
		t.Fatalf("listing folder = %q, want fast (stale slow response must be discarded)", listing.FolderID)
	}
	if len(listing.Entries) != 1 || listing.Entries[0].Name != "New" {
		t.Errorf("entries = %+v, want the fast folder's contents", listing.Entries)
	}
	if browser.Current() != "fast" {
		t.Errorf("Current() = %q, want fast", browser.Current())
	}
}

func TestGoBackAtRootIsNoOp(t *testing.T) {
	b := newDriveBackend(t)
	browser := newTestBrowser(t, b, nil)

	browser.GoBack()
	browser.WaitIdle()

	if browser.Current() != models.RootFolderID {
		t.Errorf("Current() = %q, want root", browser.Current())
	}
	if b.gets(models.RootFolderID) != 0 {
		t.Error("GoBack at root should not fetch")
	}
}

func TestGoBackFollowsParentFromResponse(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("child", "parent1", "", "")
	b.setFolder("parent1", "", "", "")
	browser := newTestBrowser(t, b, nil)

	browser.OpenFolder("child")
	browser.WaitIdle()

	browser.GoBack()
	browser.WaitIdle()

	if browser.Current() != "parent1" {
		t.Errorf("Current() = %q, want parent1", browser.Current())
	}
}

func TestGoBackDefaultsToRootWhenParentUnknown(t *testing.T) {
	b := newDriveBackend(t)
	// Top-level folder: parent_id is null, so back leads to the root.
	b.setFolder("toplevel", "", "", "")
	b.setFolder("root", "", "", "")
	browser := newTestBrowser(t, b, nil)

	browser.OpenFolder("toplevel")
	browser.WaitIdle()

	browser.GoBack()
	browser.WaitIdle()

	if browser.Current() != models.RootFolderID {
		t.Errorf("Current() = %q, want root", browser.Current())
	}
}

func TestUnauthorizedRootBecomesEmptyListing(t *testing.T) {
	b := newDriveBackend(t)
	b.mu.Lock()
	b.statuses["root"] = http.StatusUnauthorized
	b.mu.Unlock()
	browser := newTestBrowser(t, b, nil)

	browser.Refresh()
	browser.WaitIdle()

	// An anonymous viewer at the root sees nothing, not an error.
	if err := browser.LastError(); err != nil {
		t.Errorf("LastError() = %v, want nil for unauthorized root", err)
	}
	listing := browser.Listing()
	if !listing.IsRoot() || len(listing.Entries) != 0 {
		t.Errorf("listing = %+v, want empty root", listing)
	}
}

func TestUnauthorizedSubfolderIsAnError(t *testing.T) {
	b := newDriveBackend(t)
	b.mu.Lock()
	b.statuses["private"] = http.StatusForbidden
	b.mu.Unlock()
	browser := newTestBrowser(t, b, nil)

	browser.OpenFolder("private")
	browser.WaitIdle()

	if browser.LastError() == nil {
		t.Error("LastError() should be set for a forbidden subfolder")
	}
}

func TestFetchErrorClearsListing(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "", `{"id":"s1","name":"X","owner_id":"u1"}`, "")
	browser := newTestBrowser(t, b, nil)

	browser.Refresh()
	browser.WaitIdle()
	if len(browser.Listing().Entries) != 1 {
		t.Fatal("precondition: listing should have one entry")
	}

	b.mu.Lock()
	b.statuses["root"] = http.StatusInternalServerError
	b.mu.Unlock()

	browser.Refresh()
	browser.WaitIdle()

	if browser.LastError() == nil {
		t.Error("LastError() should be set after a failed refresh")
	}
	if len(browser.Listing().Entries) != 0 {
		t.Error("a failed refresh should clear the listing, not keep stale rows")
	}
}

func TestSuccessfulRefreshClearsPreviousError(t *testing.T) {
	b := newDriveBackend(t)
	b.mu.Lock()
	b.statuses["root"] = http.StatusInternalServerError
	b.mu.Unlock()
	browser := newTestBrowser(t, b, nil)

	browser.Refresh()
	browser.WaitIdle()
	if browser.LastError() == nil {
		t.Fatal("precondition: first refresh should fail")
	}

	b.mu.Lock()
	delete(b.statuses, "root")
	b.mu.Unlock()
	b.setFolder("root", "", "", "")

	browser.Refresh()
	browser.WaitIdle()
	if err := browser.LastError(); err != nil {
		t.Errorf("LastError() = %v after successful refresh, want nil", err)
	}
}

func TestCreateFolderRefetchesExactlyOnce(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "", "", "")
	browser := newTestBrowser(t, b, nil)

	id, err := browser.CreateFolder(context.Background(), "Reports", "", false)
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	browser.WaitIdle()

	if id != "new-Reports" {
		t.Errorf("id = %q, want new-Reports", id)
	}
	if got := b.gets("root"); got != 1 {
		t.Errorf("root fetched %d times after create, want exactly 1", got)
	}
}

func TestCreateFolderFailureLeavesListingUntouched(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "", "", "")
	browser := newTestBrowser(t, b, nil)

	// Backend rejects folder creation wholesale.
	b.server.Close()

	if _, err := browser.CreateFolder(context.Background(), "Reports", "", false); err == nil {
		t.Fatal("CreateFolder() should surface the transport error")
	}
}

func TestRefreshIfCurrentSkipsOtherFolders(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "", "", "")
	browser := newTestBrowser(t, b, nil)

	browser.refreshIfCurrent("elsewhere")
	browser.WaitIdle()
	if b.gets("root") != 0 {
		t.Error("refresh for a non-current folder should be dropped")
	}

	browser.refreshIfCurrent(models.RootFolderID)
	browser.WaitIdle()
	if b.gets("root") != 1 {
		t.Error("refresh for the current folder should fetch")
	}
}

func TestListingEventsPublished(t *testing.T) {
	b := newDriveBackend(t)
	b.setFolder("root", "", "", "")
	eventBus := events.NewEventBus(16)
	browser := newTestBrowser(t, b, eventBus)

	ch := eventBus.SubscribeAll()
	browser.Refresh()
	browser.WaitIdle()

	var types []events.EventType
	for {
		select {
		case ev := <-ch:
			types = append(types, ev.Type())
			continue
		default:
		}
		break
	}

	if len(types) != 2 || types[0] != events.EventListingLoading || types[1] != events.EventListingChanged {
		t.Errorf("events = %v, want [listing_loading listing_changed]", types)
	}
}

func TestOpenFileHandsURLToOpener(t *testing.T) {
	dl := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/f1/download" {
			json.NewEncoder(w).Encode(map[string]string{"url": "http://storage/view/f1"})
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(dl.Close)

	cfg := &config.Config{APIBaseURL: dl.URL, MaxConcurrentUploads: 1}
	client, err := api.NewClient(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	var opened string
	browser := NewBrowser(client, nil, 1, func(url string) error {
		opened = url
		return nil
	})

	if err := browser.OpenFile(context.Background(), "f1"); err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if opened != "http://storage/view/f1" {
		t.Errorf("opened URL = %q", opened)
	}
}

func TestRetryUploadRejectsUnknownTask(t *testing.T) {
	backend := newDriveBackend(t)
	browser := newTestBrowser(t, backend, nil)

	if err := browser.RetryUpload(context.Background(), "no-such-task"); err == nil {
		t.Error("RetryUpload() with unknown task ID should fail")
	}
}

func TestLoadingClearsOnceFetchSettles(t *testing.T) {
	backend := newDriveBackend(t)
	backend.setFolder("root", "", "", "")
	browser := newTestBrowser(t, backend, nil)

	browser.Refresh()
	browser.WaitIdle()

	if browser.IsLoading() {
		t.Error("IsLoading() should be false after the fetch settles")
	}
	if n := browser.Queue().Len(); n != 0 {
		t.Errorf("Queue().Len() = %d, want 0 with no uploads", n)
	}
}
