package catalog_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shiori/internal/catalog"
	"shiori/internal/testsupport"
)

func date(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func insertWork(t *testing.T, store *catalog.Store, title string, workType catalog.WorkType) *catalog.Work {
	t.Helper()
	work, err := store.InsertWork(context.Background(), catalog.Work{Title: title, Type: workType})
	if err != nil {
		t.Fatalf("InsertWork failed: %v", err)
	}
	return work
}

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	work := insertWork(t, store, "Attack on Titan", catalog.WorkAnime)
	if work.ID == 0 {
		t.Fatal("expected work ID to be assigned")
	}

	fetched, err := store.GetWork(context.Background(), work.ID)
	if err != nil {
		t.Fatalf("GetWork failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Attack on Titan" {
		t.Fatalf("unexpected fetched work: %#v", fetched)
	}
}

func TestInsertWorkRequiresTitleAndType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.InsertWork(ctx, catalog.Work{Type: catalog.WorkAnime}); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := store.InsertWork(ctx, catalog.Work{Title: "X", Type: "film"}); err == nil {
		t.Fatal("expected error for invalid type")
	}
}

func TestUpsertWorkFillsMissingVariants(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work, err := store.InsertWork(ctx, catalog.Work{Title: "Shingeki no Kyojin", TitleEn: "Attack on Titan", Type: catalog.WorkAnime})
	if err != nil {
		t.Fatalf("InsertWork failed: %v", err)
	}

	updated, err := store.UpsertWork(ctx, catalog.Work{
		ID:          work.ID,
		TitleEn:     "Different English Title",
		TitleKana:   "しんげきのきょじん",
		TitleNative: "進撃の巨人",
	})
	if err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	if updated.TitleEn != "Attack on Titan" {
		t.Fatalf("populated variant should not be overwritten: %q", updated.TitleEn)
	}
	if updated.TitleKana != "しんげきのきょじん" || updated.TitleNative != "進撃の巨人" {
		t.Fatalf("missing variants should fill in: %#v", updated)
	}
}

func TestInsertReleaseIfAbsentIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "Frieren", catalog.WorkAnime)
	release := catalog.Release{
		WorkID:      work.ID,
		Type:        catalog.ReleaseEpisode,
		Number:      "5",
		Platform:    "Crunchyroll",
		ReleaseDate: date("2025-03-01"),
		Source:      "anilist",
	}

	first, inserted, err := store.InsertReleaseIfAbsent(ctx, release)
	if err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to create a row")
	}

	release.Source = "jikan" // different provenance, same business key
	second, inserted, err := store.InsertReleaseIfAbsent(ctx, release)
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted {
		t.Fatal("expected duplicate business key to be a no-op")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got %d and %d", first.ID, second.ID)
	}
	if second.Source != "anilist" {
		t.Fatalf("duplicate insert must not update provenance: %q", second.Source)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Releases != 1 {
		t.Fatalf("expected exactly one stored release, got %d", stats.Releases)
	}
}

func TestInsertReleaseValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "Frieren", catalog.WorkAnime)

	cases := []struct {
		name    string
		release catalog.Release
	}{
		{"missing work", catalog.Release{Type: catalog.ReleaseEpisode, Number: "1", Platform: "X", ReleaseDate: date("2025-01-01")}},
		{"bad type", catalog.Release{WorkID: work.ID, Type: "movie", Number: "1", Platform: "X", ReleaseDate: date("2025-01-01")}},
		{"episode without number", catalog.Release{WorkID: work.ID, Type: catalog.ReleaseEpisode, Platform: "X", ReleaseDate: date("2025-01-01")}},
		{"missing platform", catalog.Release{WorkID: work.ID, Type: catalog.ReleaseEpisode, Number: "1", ReleaseDate: date("2025-01-01")}},
		{"missing date", catalog.Release{WorkID: work.ID, Type: catalog.ReleaseEpisode, Number: "1", Platform: "X"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := store.InsertReleaseIfAbsent(ctx, tc.release); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	// Season releases may omit the number.
	if _, inserted, err := store.InsertReleaseIfAbsent(ctx, catalog.Release{
		WorkID: work.ID, Type: catalog.ReleaseSeason, Platform: "X", ReleaseDate: date("2025-01-01"),
	}); err != nil || !inserted {
		t.Fatalf("season release without number should insert: inserted=%v err=%v", inserted, err)
	}
}

func TestConcurrentInsertSameKeyYieldsOneRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "One Piece", catalog.WorkAnime)
	release := catalog.Release{
		WorkID:      work.ID,
		Type:        catalog.ReleaseEpisode,
		Number:      "1100",
		Platform:    "Crunchyroll",
		ReleaseDate: date("2025-05-04"),
	}

	var wg sync.WaitGroup
	created := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, inserted, err := store.InsertReleaseIfAbsent(ctx, release)
			if err != nil {
				t.Errorf("concurrent insert failed: %v", err)
				return
			}
			created <- inserted
		}()
	}
	wg.Wait()
	close(created)

	inserts := 0
	for ok := range created {
		if ok {
			inserts++
		}
	}
	if inserts != 1 {
		t.Fatalf("expected exactly one successful insert, got %d", inserts)
	}
}

func TestMarkNotifiedIsMonotonicAndIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "Frieren", catalog.WorkAnime)
	stored, _, err := store.InsertReleaseIfAbsent(ctx, catalog.Release{
		WorkID: work.ID, Type: catalog.ReleaseEpisode, Number: "1", Platform: "X", ReleaseDate: date("2025-01-01"),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.MarkNotified(ctx, stored.ID); err != nil {
			t.Fatalf("MarkNotified call %d failed: %v", i+1, err)
		}
	}

	fetched, err := store.GetRelease(ctx, stored.ID)
	if err != nil {
		t.Fatalf("GetRelease failed: %v", err)
	}
	if !fetched.Notified {
		t.Fatal("expected release to be notified")
	}
}

func TestSelectUnnotifiedDueOrderingAndBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	zeta := insertWork(t, store, "Zeta Work", catalog.WorkAnime)
	alpha := insertWork(t, store, "alpha work", catalog.WorkAnime)

	seed := []struct {
		workID int64
		number string
		day    string
	}{
		{zeta.ID, "1", "2025-02-01"},
		{alpha.ID, "1", "2025-02-01"},
		{alpha.ID, "2", "2025-01-15"},
		{alpha.ID, "3", "2025-06-01"}, // future relative to asOf
	}
	for _, row := range seed {
		if _, _, err := store.InsertReleaseIfAbsent(ctx, catalog.Release{
			WorkID: row.workID, Type: catalog.ReleaseEpisode, Number: row.number,
			Platform: "TV", ReleaseDate: date(row.day),
		}); err != nil {
			t.Fatalf("seed insert failed: %v", err)
		}
	}

	due, err := store.SelectUnnotifiedDue(ctx, date("2025-03-01"))
	if err != nil {
		t.Fatalf("SelectUnnotifiedDue failed: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("expected 3 due releases, got %d", len(due))
	}
	if due[0].Work.ID != alpha.ID || due[0].Number != "2" {
		t.Fatalf("expected earliest release first, got %#v", due[0])
	}
	// Same date: case-insensitive title order puts "alpha work" before "Zeta Work".
	if due[1].Work.ID != alpha.ID || due[2].Work.ID != zeta.ID {
		t.Fatalf("expected title ordering within the same date, got %v then %v", due[1].Work.Title, due[2].Work.Title)
	}

	if err := store.MarkNotified(ctx, due[0].ID); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}
	remaining, err := store.SelectUnnotifiedDue(ctx, date("2025-03-01"))
	if err != nil {
		t.Fatalf("second SelectUnnotifiedDue failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected notified release to drop out, got %d", len(remaining))
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cursor, err := store.Cursor(ctx, "anilist")
	if err != nil {
		t.Fatalf("Cursor failed: %v", err)
	}
	if cursor != "" {
		t.Fatalf("expected empty cursor, got %q", cursor)
	}

	for i, value := range []string{"2025-01-01T00:00:00Z", "2025-02-01T00:00:00Z"} {
		if err := store.SetCursor(ctx, "anilist", value); err != nil {
			t.Fatalf("SetCursor %d failed: %v", i, err)
		}
	}
	cursor, err = store.Cursor(ctx, "anilist")
	if err != nil {
		t.Fatalf("Cursor after set failed: %v", err)
	}
	if cursor != "2025-02-01T00:00:00Z" {
		t.Fatalf("expected latest cursor, got %q", cursor)
	}
}

func TestChannelSentTracking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "Frieren", catalog.WorkAnime)
	stored, _, err := store.InsertReleaseIfAbsent(ctx, catalog.Release{
		WorkID: work.ID, Type: catalog.ReleaseEpisode, Number: "1", Platform: "X", ReleaseDate: date("2025-01-01"),
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	sent, err := store.ChannelSent(ctx, stored.ID, "email")
	if err != nil {
		t.Fatalf("ChannelSent failed: %v", err)
	}
	if sent {
		t.Fatal("expected no email acknowledgment yet")
	}

	for i := 0; i < 2; i++ {
		if err := store.RecordChannelSent(ctx, stored.ID, "email"); err != nil {
			t.Fatalf("RecordChannelSent %d failed: %v", i, err)
		}
	}
	sent, err = store.ChannelSent(ctx, stored.ID, "email")
	if err != nil {
		t.Fatalf("ChannelSent after record failed: %v", err)
	}
	if !sent {
		t.Fatal("expected email acknowledgment to persist")
	}

	calendar, err := store.ChannelSent(ctx, stored.ID, "calendar")
	if err != nil {
		t.Fatalf("ChannelSent calendar failed: %v", err)
	}
	if calendar {
		t.Fatal("calendar channel state must be independent of email")
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	work := insertWork(t, store, "Frieren", catalog.WorkAnime)
	for i := 1; i <= 3; i++ {
		if _, _, err := store.InsertReleaseIfAbsent(ctx, catalog.Release{
			WorkID: work.ID, Type: catalog.ReleaseEpisode, Number: fmt.Sprint(i),
			Platform: "X", ReleaseDate: date("2025-01-01"),
		}); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Works != 1 || stats.Releases != 3 || stats.UnnotifiedReleases != 3 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
