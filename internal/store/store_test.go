package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.DatabasePath = filepath.Join(base, "data", "anpr.db")
	cfg.Logging.LogDir = filepath.Join(base, "logs")

	st, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAdmitInsertsNewPlate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, isNew, err := st.Admit(ctx, Event{
		PlateNumber:    "AB12CDE",
		Confidence:     0.95,
		ImagePath:      "/data/images/x.jpg",
		PlateCropPath:  "/data/images/x_crop.jpg",
		BoxCoordinates: "[10,20,110,60]",
		FrameCount:     5,
	})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !isNew {
		t.Fatal("expected first sighting to be new")
	}

	stored, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored event")
	}
	if stored.PlateNumber != "AB12CDE" || stored.Confidence != 0.95 || stored.FrameCount != 5 {
		t.Fatalf("unexpected stored event: %+v", stored)
	}
}

func TestAdmitDeduplicatesWithinWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	firstID, isNew, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95})
	if err != nil || !isNew {
		t.Fatalf("first Admit: id=%d isNew=%v err=%v", firstID, isNew, err)
	}

	st.now = func() time.Time { return base.Add(29 * time.Second) }
	secondID, isNew, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.99})
	if err != nil {
		t.Fatalf("second Admit: %v", err)
	}
	if isNew {
		t.Fatal("expected repeat within window to be suppressed")
	}
	if secondID != firstID {
		t.Fatalf("expected existing id %d, got %d", firstID, secondID)
	}
	if total, err := st.Count(ctx); err != nil || total != 1 {
		t.Fatalf("expected 1 row, got %d (err=%v)", total, err)
	}
}

func TestAdmitNewRowAfterWindowExpires(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	firstID, _, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95})
	if err != nil {
		t.Fatalf("first Admit: %v", err)
	}

	st.now = func() time.Time { return base.Add(30 * time.Second) }
	secondID, isNew, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95})
	if err != nil {
		t.Fatalf("second Admit: %v", err)
	}
	if !isNew {
		t.Fatal("expected sighting after window to be new")
	}
	if secondID == firstID {
		t.Fatal("expected a distinct row for the new sighting")
	}
}

func TestAdmitWindowIsPerPlate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	if _, isNew, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95}); err != nil || !isNew {
		t.Fatalf("first plate: isNew=%v err=%v", isNew, err)
	}
	if _, isNew, err := st.Admit(ctx, Event{PlateNumber: "XY99ZZZ", Confidence: 0.92}); err != nil || !isNew {
		t.Fatalf("second plate: isNew=%v err=%v", isNew, err)
	}
	if total, err := st.Count(ctx); err != nil || total != 2 {
		t.Fatalf("expected 2 rows, got %d (err=%v)", total, err)
	}
}

func TestAdmitRejectsEmptyPlate(t *testing.T) {
	st := newTestStore(t)
	if _, _, err := st.Admit(context.Background(), Event{PlateNumber: "   "}); err == nil {
		t.Fatal("expected error for empty plate")
	}
}

func TestTimestampsMonotonicPerInsertionOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		st.now = func() time.Time { return base.Add(offset) }
		plate := []string{"AA11AAA", "BB22BBB", "CC33CCC"}[i]
		if _, _, err := st.Admit(ctx, Event{PlateNumber: plate, Confidence: 0.9}); err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
	}

	events, err := st.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Fatalf("expected newest-first ordering, got %v before %v",
				events[i-1].Timestamp, events[i].Timestamp)
		}
	}
}

func TestListSearchAndPeriod(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base.Add(-48 * time.Hour) }
	if _, _, err := st.Admit(ctx, Event{PlateNumber: "OLD1AAA", Confidence: 0.9}); err != nil {
		t.Fatalf("Admit old: %v", err)
	}
	st.now = func() time.Time { return base }
	if _, _, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95}); err != nil {
		t.Fatalf("Admit new: %v", err)
	}

	events, total, err := st.List(ctx, ListFilter{Search: "b12"})
	if err != nil {
		t.Fatalf("List search: %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].PlateNumber != "AB12CDE" {
		t.Fatalf("unexpected search result: total=%d events=%+v", total, events)
	}

	events, total, err = st.List(ctx, ListFilter{Period: "today"})
	if err != nil {
		t.Fatalf("List today: %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].PlateNumber != "AB12CDE" {
		t.Fatalf("unexpected period result: total=%d events=%+v", total, events)
	}
}

func TestRemoveAndClear(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, _, err := st.Admit(ctx, Event{PlateNumber: "AB12CDE", Confidence: 0.95})
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, _, err := st.Admit(ctx, Event{PlateNumber: "XY99ZZZ", Confidence: 0.92}); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if err := st.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got, err := st.GetByID(ctx, id); err != nil || got != nil {
		t.Fatalf("expected removed event to be gone, got %+v (err=%v)", got, err)
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if total, err := st.Count(ctx); err != nil || total != 0 {
		t.Fatalf("expected empty store, got %d (err=%v)", total, err)
	}
}
