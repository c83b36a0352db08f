// Package models defines the shared domain types: identities, folders,
// files, and the materialized listing the browser exposes.
package models

import (
	"strings"
	"time"
)

// RootFolderID is the virtual root of the drive tree. It never appears
// as a real folder record on the server.
const RootFolderID = "root"

// DefaultMimeType is used when a file carries no content type.
const DefaultMimeType = "application/octet-stream"

// Roles the backend assigns to accounts. Editing rights are derived
// from these plus ownership.
const (
	RoleAdmin     = "admin"
	RoleStaff     = "staff"
	RoleStudent   = "student"
	RoleOsis      = "osis"
	RoleMediaGuru = "media_guru"
)

// Identity is the authenticated account as reported by the server.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Folder is a folder record as returned by the API. ParentID is nil
// for top-level folders.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	OwnerID   string    `json:"owner_id"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// File is a file record as returned by the API.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FolderID  string    `json:"folder_id"`
	OwnerID   string    `json:"owner_id"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryKind discriminates listing entries.
type EntryKind string

const (
	EntryFolder EntryKind = "folder"
	EntryFile   EntryKind = "file"
)

// Category buckets a file by content type for display.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryPDF     Category = "pdf"
	CategoryArchive Category = "zip"
	CategoryGeneric Category = "file"
)

// Categorize maps a MIME type to its display category. Images match by
// prefix, PDF by exact type, archives by substring; everything else is
// a generic file.
func Categorize(mimeType string) Category {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case mimeType == "application/pdf":
		return CategoryPDF
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "compressed"):
		return CategoryArchive
	default:
		return CategoryGeneric
	}
}

// Entry is one row of a listing, folder or file.
type Entry struct {
	Kind      EntryKind
	ID        string
	Name      string
	ParentID  string
	OwnerID   string
	Size      int64
	MimeType  string
	Category  Category
	IsPublic  bool
	CreatedAt time.Time
}

// Listing is the materialized contents of one folder. It is replaced
// wholesale on every fetch; ParentID is empty at the root or when the
// parent is not yet known.
type Listing struct {
	FolderID string
	ParentID string
	Entries  []Entry
}

// IsRoot reports whether the listing is for the virtual root.
func (l Listing) IsRoot() bool {
	return l.FolderID == RootFolderID
}

// Folders returns only the folder entries, in listing order.
func (l Listing) Folders() []Entry {
	return l.filter(EntryFolder)
}

// Files returns only the file entries, in listing order.
func (l Listing) Files() []Entry {
	return l.filter(EntryFile)
}

func (l Listing) filter(kind EntryKind) []Entry {
	out := make([]Entry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
