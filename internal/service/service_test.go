package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/surebet/internal/arbitrage"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/extract"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/numeric"
	"github.com/alanyoungcy/surebet/internal/ocr"
	"github.com/alanyoungcy/surebet/internal/store/memory"
)

const screenshot = `Flamengo - Palmeiras 3.04%
Futebol / Brasileirão
Bet365 1,85 1 175848 3.253,19
Pinnacle 3,80 X 84542 3.212,60
Betano 5,40 2 59610 3.218,94
Aposta total R$ 3.200,00`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeArchiver struct {
	mu       sync.Mutex
	uploads  int
	exported []domain.ArbitrageRecord
	removed  []string
	err      error
}

func (f *fakeArchiver) ArchiveUpload(_ context.Context, _ []byte, filename, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return "uploads/ab/" + filename, f.err
}

func (f *fakeArchiver) ExportRecords(_ context.Context, recs []domain.ArbitrageRecord, _ time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.exported = recs
	return "exports/records-test.jsonl", nil
}

func (f *fakeArchiver) Exports(context.Context) ([]domain.BlobInfo, error) {
	return []domain.BlobInfo{{Path: "exports/records-test.jsonl"}}, nil
}

func (f *fakeArchiver) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

func leg(name string, odds, stake float64) arbitrage.BookmakerInput {
	return arbitrage.BookmakerInput{Name: name, Odds: numeric.Number(odds), Stake: numeric.Number(stake)}
}

func newAnalysis(engine ocr.Engine, archiver domain.Archiver) *AnalysisService {
	return NewAnalysisService(
		extract.NewExtractor(nil, discardLogger()),
		engine,
		memory.NewAnalysisCache(),
		archiver,
		metrics.New(),
		AnalysisConfig{MemoTTL: time.Minute},
		discardLogger(),
	)
}

func TestAnalyzeText(t *testing.T) {
	svc := newAnalysis(nil, nil)
	ctx := context.Background()

	a, err := svc.AnalyzeText(ctx, screenshot)
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if a.Source != extract.SourceParser {
		t.Errorf("Source = %q", a.Source)
	}
	if !a.Validation.IsValid {
		t.Errorf("expected valid arbitrage: %s", a.Validation.Message)
	}
	if a.NeedsReview || a.Cached {
		t.Errorf("NeedsReview = %v, Cached = %v", a.NeedsReview, a.Cached)
	}
	if len(a.Extraction.Bookmakers) != 3 {
		t.Fatalf("bookmakers = %d", len(a.Extraction.Bookmakers))
	}

	again, err := svc.AnalyzeText(ctx, screenshot)
	if err != nil {
		t.Fatalf("AnalyzeText: %v", err)
	}
	if !again.Cached {
		t.Error("second analysis of identical text not served from memo")
	}
	if again.Validation.Message != a.Validation.Message {
		t.Errorf("memo changed verdict: %q vs %q", again.Validation.Message, a.Validation.Message)
	}

	if _, err := json.Marshal(a); err != nil {
		t.Errorf("Analysis not encodable: %v", err)
	}
}

func TestAnalyzeTextEmpty(t *testing.T) {
	_, err := newAnalysis(nil, nil).AnalyzeText(context.Background(), "  \n ")
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestAnalyzeImage(t *testing.T) {
	ctx := context.Background()

	t.Run("no engine", func(t *testing.T) {
		_, err := newAnalysis(nil, nil).AnalyzeImage(ctx, []byte("img"), "a.png")
		if !errors.Is(err, domain.ErrOCRUnavailable) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		engine := ocr.StaticEngine{Err: domain.ErrOCRUnavailable}
		_, err := newAnalysis(engine, nil).AnalyzeImage(ctx, []byte("img"), "a.png")
		if !errors.Is(err, domain.ErrOCRUnavailable) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("archived", func(t *testing.T) {
		arch := &fakeArchiver{}
		a, err := newAnalysis(ocr.StaticEngine{Text: screenshot}, arch).AnalyzeImage(ctx, []byte("img"), "a.png")
		if err != nil {
			t.Fatalf("AnalyzeImage: %v", err)
		}
		if a.ImagePath != "uploads/ab/a.png" || arch.uploads != 1 {
			t.Errorf("ImagePath = %q, uploads = %d", a.ImagePath, arch.uploads)
		}
		if a.RawText != screenshot {
			t.Error("RawText not carried")
		}
	})

	t.Run("archive failure is not fatal", func(t *testing.T) {
		arch := &fakeArchiver{err: errors.New("bucket gone")}
		a, err := newAnalysis(ocr.StaticEngine{Text: screenshot}, arch).AnalyzeImage(ctx, []byte("img"), "a.png")
		if err != nil {
			t.Fatalf("AnalyzeImage: %v", err)
		}
		if !a.Validation.IsValid {
			t.Error("analysis lost after archive failure")
		}
	})
}

func TestDeriveStatus(t *testing.T) {
	match := domain.Match{Team1: "A", Team2: "B"}
	valid := []domain.Bookmaker{{Odds: 2.1, Stake: 100}, {Odds: 2.2, Stake: 100}}
	invalid := []domain.Bookmaker{{Odds: 1.85, Stake: 100}, {Odds: 2.1, Stake: 100}}
	broken := []domain.Bookmaker{{Odds: math.NaN(), Stake: 100}, {Odds: 2.1, Stake: 100}}

	tests := []struct {
		name     string
		explicit domain.RecordStatus
		match    domain.Match
		bms      []domain.Bookmaker
		want     domain.RecordStatus
	}{
		{"valid", "", match, valid, domain.RecordProcessed},
		{"invalid arbitrage", "", match, invalid, domain.RecordPending},
		{"missing team", "", domain.Match{Team1: "A"}, valid, domain.RecordPending},
		{"nan metrics", "", match, broken, domain.RecordError},
		{"explicit wins", domain.RecordPending, match, valid, domain.RecordPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := arbitrage.ComputeMetrics(tt.bms)
			if got := DeriveStatus(tt.explicit, tt.match, tt.bms, m); got != tt.want {
				t.Errorf("DeriveStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

type recordFixture struct {
	svc      *RecordService
	store    *memory.RecordStore
	audit    *memory.AuditStore
	bus      *memory.SignalBus
	archiver *fakeArchiver
	notifier *fakeNotifier
}

func newRecordFixture() recordFixture {
	f := recordFixture{
		store:    memory.NewRecordStore(),
		audit:    memory.NewAuditStore(),
		bus:      memory.NewSignalBus(),
		archiver: &fakeArchiver{},
		notifier: &fakeNotifier{},
	}
	f.svc = NewRecordService(f.store, nil, f.audit, f.bus, f.archiver, f.notifier, metrics.New(), discardLogger())
	return f
}

func TestRecordLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newRecordFixture()
	events, _ := f.bus.Subscribe(ctx, domain.ChannelRecords)

	rec, err := f.svc.Create(ctx, RecordInput{
		Match:      domain.Match{Team1: "Flamengo", Team2: "Palmeiras"},
		Bookmakers: []arbitrage.BookmakerInput{leg("Bet365", 2.1, 100), leg("Pinnacle", 2.2, 100)},
		ImagePath:  "uploads/ab/shot.png",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == "" || rec.Status != domain.RecordProcessed {
		t.Errorf("created %+v", rec)
	}
	if rec.Metrics.TotalStake != 200 || math.Abs(rec.Metrics.TotalProfit-10) > 1e-9 {
		t.Errorf("metrics = %+v", rec.Metrics)
	}
	if len(f.notifier.events) != 1 {
		t.Errorf("notifications = %v, want one", f.notifier.events)
	}

	select {
	case payload := <-events:
		var ev domain.RecordEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Type != "record_saved" || ev.ID != rec.ID {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no record_saved event")
	}

	updated, err := f.svc.Update(ctx, rec.ID, RecordInput{
		Match:      rec.Match,
		Bookmakers: []arbitrage.BookmakerInput{leg("Bet365", 1.85, 100), leg("Pinnacle", 2.1, 100)},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.RecordPending || updated.ID != rec.ID || !updated.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("updated %+v", updated)
	}
	if updated.ImagePath != rec.ImagePath {
		t.Errorf("ImagePath dropped on update: %q", updated.ImagePath)
	}
	if len(f.notifier.events) != 1 {
		t.Errorf("update to pending must not notify: %v", f.notifier.events)
	}

	got, err := f.svc.Get(ctx, rec.ID)
	if err != nil || got.Status != domain.RecordPending {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := f.svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if len(f.archiver.removed) != 1 || f.archiver.removed[0] != rec.ImagePath {
		t.Errorf("removed = %v", f.archiver.removed)
	}

	entries, _ := f.audit.List(ctx, domain.ListOpts{})
	if len(entries) != 3 || entries[0].Event != "record.deleted" {
		t.Errorf("audit = %+v", entries)
	}
}

func TestRecordInputErrors(t *testing.T) {
	ctx := context.Background()
	f := newRecordFixture()

	tests := []struct {
		name string
		in   RecordInput
	}{
		{"no bookmakers", RecordInput{}},
		{"unknown status", RecordInput{Status: "done", Bookmakers: []arbitrage.BookmakerInput{leg("A", 2, 1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(ctx, tt.in); !errors.Is(err, domain.ErrInvalidRecord) {
				t.Errorf("err = %v, want ErrInvalidRecord", err)
			}
		})
	}

	if _, err := f.svc.Update(ctx, "missing", RecordInput{Bookmakers: []arbitrage.BookmakerInput{leg("A", 2, 1)}}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update missing: %v", err)
	}
	if _, err := f.svc.List(ctx, domain.ListOpts{Status: "weird"}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("list with bad status: %v", err)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	f := newRecordFixture()
	match := domain.Match{Team1: "A", Team2: "B"}

	inputs := [][]arbitrage.BookmakerInput{
		{leg("X", 2.1, 100), leg("Y", 2.2, 100)},            // profit 10, roi 5
		{leg("X", 1.85, 100), leg("Y", 2.1, 100)},           // profit -15, roi -7.5
		{leg("X", 2.0, 100), {Name: "Y", Odds: numeric.Text("n/a"), Stake: numeric.Number(100)}}, // NaN
	}
	for _, bms := range inputs {
		if _, err := f.svc.Create(ctx, RecordInput{Match: match, Bookmakers: bms}); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := f.svc.Summary(ctx, domain.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count != 3 || sum.ValidCount != 1 {
		t.Errorf("counts = %+v", sum)
	}
	if sum.TotalStake != 400 || math.Abs(sum.TotalProfit-(-5)) > 1e-9 {
		t.Errorf("totals = %+v", sum)
	}
	if math.Abs(sum.AverageROI-(-1.25)) > 1e-9 {
		t.Errorf("AverageROI = %v, want -1.25", sum.AverageROI)
	}
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newRecordFixture()
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(ctx, RecordInput{Bookmakers: []arbitrage.BookmakerInput{leg("X", 2, 10)}}); err != nil {
			t.Fatal(err)
		}
	}

	exp := NewExportService(f.svc, f.archiver, nil, f.audit, f.notifier, nil, discardLogger())
	res, err := exp.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Count != 3 || len(f.archiver.exported) != 3 {
		t.Errorf("result = %+v, exported %d", res, len(f.archiver.exported))
	}
	if last := f.notifier.events[len(f.notifier.events)-1]; last != "export.done" {
		t.Errorf("last notification = %q", last)
	}

	t.Run("not configured", func(t *testing.T) {
		_, err := NewExportService(f.svc, nil, nil, f.audit, nil, nil, discardLogger()).Export(ctx)
		if !errors.Is(err, domain.ErrNotConfigured) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("lock held", func(t *testing.T) {
		_, err := NewExportService(f.svc, f.archiver, heldLock{}, f.audit, nil, nil, discardLogger()).Export(ctx)
		if !errors.Is(err, domain.ErrLockHeld) {
			t.Errorf("err = %v", err)
		}
	})
}
