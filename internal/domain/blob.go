package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// BlobDeleter removes objects from storage.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// Archiver keeps uploaded screenshots, their OCR text and record exports in
// object storage.
type Archiver interface {
	// ArchiveUpload stores the image and its OCR text and returns the image
	// path. Identical images map to the same path.
	ArchiveUpload(ctx context.Context, image []byte, filename, text string) (string, error)
	// ExportRecords writes recs as JSONL and returns the object path.
	ExportRecords(ctx context.Context, recs []ArbitrageRecord, at time.Time) (string, error)
	// Exports lists previous exports, newest first.
	Exports(ctx context.Context) ([]BlobInfo, error)
	// Remove deletes an archived object. Missing objects are not an error.
	Remove(ctx context.Context, path string) error
}
