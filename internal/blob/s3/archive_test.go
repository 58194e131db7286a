package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/surebet/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	puts    int
	failPut error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeStore) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.failPut != nil {
		return f.failPut
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = b
	f.types[path] = contentType
	f.puts++
	return nil
}

func (f *fakeStore) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return f.Put(ctx, path, data, contentTypeJSONL)
}

func (f *fakeStore) Get(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BlobInfo
	for p, b := range f.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p, Size: int64(len(b))})
		}
	}
	return out, nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok, nil
}

func (f *fakeStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func TestArchiveUpload(t *testing.T) {
	store := newFakeStore()
	a := NewArchiver(store, store, store)
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\nrest-of-image")

	p1, err := a.ArchiveUpload(ctx, png, "Screenshot.PNG", "Bet365 1.85")
	if err != nil {
		t.Fatalf("ArchiveUpload: %v", err)
	}
	if !strings.HasPrefix(p1, "uploads/") || !strings.HasSuffix(p1, ".png") {
		t.Errorf("path = %q", p1)
	}
	if got := store.types[p1]; got != "image/png" {
		t.Errorf("content type = %q, want image/png", got)
	}

	p2, err := a.ArchiveUpload(ctx, png, "again.png", "Bet365 1.85")
	if err != nil {
		t.Fatalf("ArchiveUpload: %v", err)
	}
	if p1 != p2 {
		t.Errorf("same image archived under %q and %q", p1, p2)
	}
	// image once, text twice
	if store.puts != 3 {
		t.Errorf("puts = %d, want 3", store.puts)
	}

	var texts int
	for p := range store.objects {
		if strings.HasPrefix(p, "ocr/") {
			texts++
		}
	}
	if texts != 1 {
		t.Errorf("ocr objects = %d, want 1", texts)
	}
}

func TestArchiveUploadPutError(t *testing.T) {
	store := newFakeStore()
	store.failPut = errors.New("boom")
	a := NewArchiver(store, store, store)
	if _, err := a.ArchiveUpload(context.Background(), []byte("img"), "x.jpg", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestExportRecords(t *testing.T) {
	store := newFakeStore()
	a := NewArchiver(store, store, store)
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	recs := []domain.ArbitrageRecord{
		{ID: "a", Match: domain.Match{Team1: "Flamengo", Team2: "Palmeiras"}, Status: domain.RecordProcessed},
		{ID: "b", Status: domain.RecordPending},
	}
	key, err := a.ExportRecords(context.Background(), recs, at)
	if err != nil {
		t.Fatalf("ExportRecords: %v", err)
	}
	if key != "exports/records-20250304T050607Z.jsonl" {
		t.Errorf("key = %q", key)
	}

	sc := bufio.NewScanner(bytes.NewReader(store.objects[key]))
	var lines int
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("lines = %d, want 2", lines)
	}

	infos, err := a.Exports(context.Background())
	if err != nil {
		t.Fatalf("Exports: %v", err)
	}
	if len(infos) != 1 || infos[0].Path != key || infos[0].ContentType != contentTypeJSONL {
		t.Errorf("exports = %+v", infos)
	}

	if err := a.Remove(context.Background(), key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := store.Exists(context.Background(), key); ok {
		t.Error("export still present after Remove")
	}
}

func TestExportRecordsUploadError(t *testing.T) {
	store := newFakeStore()
	store.failPut = errors.New("denied")
	a := NewArchiver(store, store, store)
	recs := make([]domain.ArbitrageRecord, 1000)
	if _, err := a.ExportRecords(context.Background(), recs, time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in   string
		ssl  bool
		want string
	}{
		{"https://e2.example.com", false, "https://e2.example.com"},
		{"minio:9000", false, "http://minio:9000"},
		{"e2.example.com", true, "https://e2.example.com"},
	}
	for _, tt := range tests {
		if got := endpointURL(tt.in, tt.ssl); got != tt.want {
			t.Errorf("endpointURL(%q, %v) = %q, want %q", tt.in, tt.ssl, got, tt.want)
		}
	}
}

func TestUploadPath(t *testing.T) {
	d := strings.Repeat("ab", 32)
	if got := uploadPath(d, "shot.JPEG"); got != "uploads/ab/"+d+".jpeg" {
		t.Errorf("got %q", got)
	}
	if got := uploadPath(d, "noext"); got != "uploads/ab/"+d+".png" {
		t.Errorf("got %q", got)
	}
}
