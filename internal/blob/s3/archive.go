package s3blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
)

const (
	contentTypeJSONL = "application/x-ndjson"
	contentTypeText  = "text/plain; charset=utf-8"

	uploadsPrefix = "uploads/"
	ocrPrefix     = "ocr/"
	exportsPrefix = "exports/"
)

// Archiver implements domain.Archiver on top of the blob interfaces, so it
// works with the S3 Writer/Reader pair or any other implementation.
//
// Layout:
//
//	uploads/{sha[:2]}/{sha}{ext}     screenshot, content-addressed
//	ocr/{sha}.txt                    OCR text of that screenshot
//	exports/records-{UTC stamp}.jsonl
type Archiver struct {
	writer  domain.BlobWriter
	reader  domain.BlobReader
	deleter domain.BlobDeleter
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver.
func NewArchiver(w domain.BlobWriter, r domain.BlobReader, d domain.BlobDeleter) *Archiver {
	return &Archiver{writer: w, reader: r, deleter: d}
}

// ArchiveUpload stores image once per content hash and always refreshes the
// OCR text next to it.
func (a *Archiver) ArchiveUpload(ctx context.Context, image []byte, filename, text string) (string, error) {
	sum := sha256.Sum256(image)
	digest := hex.EncodeToString(sum[:])
	imgPath := uploadPath(digest, filename)

	exists, err := a.reader.Exists(ctx, imgPath)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive upload: %w", err)
	}
	if !exists {
		if err := a.writer.Put(ctx, imgPath, bytes.NewReader(image), http.DetectContentType(image)); err != nil {
			return "", fmt.Errorf("s3blob: archive upload: %w", err)
		}
	}

	if text != "" {
		textPath := ocrPrefix + digest + ".txt"
		if err := a.writer.Put(ctx, textPath, strings.NewReader(text), contentTypeText); err != nil {
			return imgPath, fmt.Errorf("s3blob: archive ocr text: %w", err)
		}
	}
	return imgPath, nil
}

// ExportRecords streams recs as JSONL into a multipart upload, so large
// exports never sit in memory as one buffer.
func (a *Archiver) ExportRecords(ctx context.Context, recs []domain.ArbitrageRecord, at time.Time) (string, error) {
	key := exportPath(at)

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeJSONL(pw, recs))
	}()

	err := a.writer.PutMultipart(ctx, key, pr, 0)
	// Unblocks the encoder if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	<-done
	if err != nil {
		return "", fmt.Errorf("s3blob: export records: %w", err)
	}
	return key, nil
}

// Exports lists previous exports, newest first.
func (a *Archiver) Exports(ctx context.Context) ([]domain.BlobInfo, error) {
	infos, err := a.reader.List(ctx, exportsPrefix)
	if err != nil {
		return nil, fmt.Errorf("s3blob: list exports: %w", err)
	}
	for i := range infos {
		infos[i].ContentType = contentTypeJSONL
	}
	slices.SortFunc(infos, func(x, y domain.BlobInfo) int {
		if c := y.LastModified.Compare(x.LastModified); c != 0 {
			return c
		}
		return strings.Compare(y.Path, x.Path)
	})
	return infos, nil
}

// Remove deletes path.
func (a *Archiver) Remove(ctx context.Context, path string) error {
	if err := a.deleter.Delete(ctx, path); err != nil {
		return fmt.Errorf("s3blob: remove: %w", err)
	}
	return nil
}

func uploadPath(digest, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || len(ext) > 5 {
		ext = ".png"
	}
	return uploadsPrefix + digest[:2] + "/" + digest + ext
}

func exportPath(at time.Time) string {
	return exportsPrefix + "records-" + at.UTC().Format("20060102T150405Z") + ".jsonl"
}

// writeJSONL encodes one compact JSON document per line.
func writeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("jsonl encode item %d: %w", i, err)
		}
	}
	return nil
}
