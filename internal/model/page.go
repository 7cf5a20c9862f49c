package model

import (
	"time"
)

// PageRecord describes a wiki page as reported by the remote API.
// ID is stable across renames; Title and ModifiedAt change with remote edits.
type PageRecord struct {
	// ID is the opaque remote identifier of the page.
	ID string `json:"id"`

	// Title is unique within a space at the source.
	Title string `json:"title"`

	// TinyHash is the short redirect key (the last segment of the tiny UI link).
	TinyHash string `json:"tiny_hash"`

	// Space is the key of the owning space.
	Space string `json:"space"`

	// ModifiedAt is the timestamp of the latest page version.
	ModifiedAt time.Time `json:"modified_at"`
}

// CacheEntry is the persisted form of a PageRecord.
// It is keyed by ID and survives across runs.
type CacheEntry struct {
	ID         string
	Title      string
	Hash       string
	Space      string
	ModifiedAt time.Time
}

// NewCacheEntry creates the cache entry mirroring a fetched page record.
func NewCacheEntry(page PageRecord) *CacheEntry {
	return &CacheEntry{
		ID:         page.ID,
		Title:      page.Title,
		Hash:       page.TinyHash,
		Space:      page.Space,
		ModifiedAt: page.ModifiedAt,
	}
}

// IsStale reports whether a page must be rendered again.
// A nil entry is always stale; otherwise the entry is stale when the stored
// modification time is strictly older than the fetched one.
func (e *CacheEntry) IsStale(fetched PageRecord) bool {
	if e == nil {
		return true
	}
	return e.ModifiedAt.Before(fetched.ModifiedAt)
}

// ExportedAttachment is one downloaded binary: attachment, thumbnail or generated preview.
type ExportedAttachment struct {
	// RemoteURL is the download URL the file was (or should have been) fetched from.
	RemoteURL string `json:"remote_url"`

	// FileName is the allocated name inside the download folder.
	FileName string `json:"file_name"`

	// FilePath is the on-disk path of the file.
	FilePath string `json:"file_path"`
}

// ExportedPage is one node of the navigation tree of a space.
// The synthetic root of a space has a nil Source.
type ExportedPage struct {
	// Source is the page this node was exported from. Nil for the space root.
	Source *PageRecord `json:"source,omitempty"`

	// FileName is the allocated HTML file name, unique within the page folder.
	FileName string `json:"file_name"`

	// Skipped is true when the page was unchanged and not rendered again.
	Skipped bool `json:"skipped,omitempty"`

	// Children are the direct child pages in the order the remote reported them.
	Children []*ExportedPage `json:"children,omitempty"`

	// Attachments are the files downloaded while rendering this page.
	Attachments []ExportedAttachment `json:"attachments,omitempty"`
}

// Title returns the page title, or an empty string for the space root.
func (p *ExportedPage) Title() string {
	if p.Source == nil {
		return ""
	}
	return p.Source.Title
}

// AppendChild adds a child node. Nil children are ignored.
func (p *ExportedPage) AppendChild(child *ExportedPage) {
	if child == nil {
		return
	}
	p.Children = append(p.Children, child)
}

// AddAttachments appends downloaded attachments in order.
func (p *ExportedPage) AddAttachments(attachments ...ExportedAttachment) {
	p.Attachments = append(p.Attachments, attachments...)
}

// Count returns the number of pages in the subtree, excluding a synthetic root.
func (p *ExportedPage) Count() int {
	n := 0
	if p.Source != nil {
		n = 1
	}
	for _, c := range p.Children {
		n += c.Count()
	}
	return n
}
