package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"shiori/internal/config"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

// Store manages catalog persistence backed by SQLite. All mutating calls are
// serialized through an internal writer mutex; reads run concurrently against
// the WAL snapshot.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	writerMu sync.Mutex
}

// Open initializes or connects to the catalog database, acquires the writer
// lock file, and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "catalog.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, errors.New("catalog database is locked by another process")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection and releases the lock file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const workColumns = `id, title, title_en, title_kana, title_native, type, official_url, created_at, updated_at`

// InsertWork creates a new work row and returns it with assigned ID.
func (s *Store) InsertWork(ctx context.Context, work Work) (*Work, error) {
	if strings.TrimSpace(work.Title) == "" {
		return nil, errors.New("work title required")
	}
	if !ValidWorkType(work.Type) {
		return nil, fmt.Errorf("invalid work type %q", work.Type)
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	timestamp := time.Now().UTC().Format(timestampLayout)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO works (title, title_en, title_kana, title_native, type, official_url, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		work.Title, work.TitleEn, work.TitleKana, work.TitleNative, string(work.Type), work.OfficialURL,
		timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert work: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetWork(ctx, id)
}

// UpsertWork inserts the work when it has no ID, otherwise updates its title
// variants and official URL. Missing variants are filled in; populated ones
// are left alone so the first source to contribute a variant wins.
func (s *Store) UpsertWork(ctx context.Context, work Work) (*Work, error) {
	if work.ID == 0 {
		return s.InsertWork(ctx, work)
	}

	current, err := s.GetWork(ctx, work.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("work %d not found", work.ID)
	}

	merged := *current
	if merged.TitleEn == "" {
		merged.TitleEn = work.TitleEn
	}
	if merged.TitleKana == "" {
		merged.TitleKana = work.TitleKana
	}
	if merged.TitleNative == "" {
		merged.TitleNative = work.TitleNative
	}
	if merged.OfficialURL == "" {
		merged.OfficialURL = work.OfficialURL
	}
	if merged == *current {
		return current, nil
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE works SET title_en = ?, title_kana = ?, title_native = ?, official_url = ?, updated_at = ? WHERE id = ?`,
		merged.TitleEn, merged.TitleKana, merged.TitleNative, merged.OfficialURL,
		time.Now().UTC().Format(timestampLayout), work.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update work: %w", err)
	}
	return s.GetWork(ctx, work.ID)
}

// GetWork fetches a work by identifier. Returns nil when absent.
func (s *Store) GetWork(ctx context.Context, id int64) (*Work, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workColumns+` FROM works WHERE id = ?`, id)
	work, err := scanWork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work: %w", err)
	}
	return work, nil
}

// WorksByType returns all works of the given type together with their release
// counts, ordered by creation time.
func (s *Store) WorksByType(ctx context.Context, workType WorkType) ([]WorkRef, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT w.id, w.title, w.title_en, w.title_kana, w.title_native, w.type, w.official_url,
                w.created_at, w.updated_at, COUNT(r.id)
         FROM works w
         LEFT JOIN releases r ON r.work_id = w.id
         WHERE w.type = ?
         GROUP BY w.id
         ORDER BY w.created_at, w.id`,
		string(workType),
	)
	if err != nil {
		return nil, fmt.Errorf("query works: %w", err)
	}
	defer rows.Close()

	var refs []WorkRef
	for rows.Next() {
		var ref WorkRef
		var workTypeValue, createdAt, updatedAt string
		if err := rows.Scan(
			&ref.ID, &ref.Title, &ref.TitleEn, &ref.TitleKana, &ref.TitleNative,
			&workTypeValue, &ref.OfficialURL, &createdAt, &updatedAt, &ref.ReleaseCount,
		); err != nil {
			return nil, fmt.Errorf("scan work: %w", err)
		}
		ref.Type = WorkType(workTypeValue)
		ref.CreatedAt = parseTimestamp(createdAt)
		ref.UpdatedAt = parseTimestamp(updatedAt)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

const releaseColumns = `id, work_id, release_type, number, platform, release_date, source, source_url, notified, created_at, updated_at`

// InsertReleaseIfAbsent inserts the release unless a row with the same
// business key already exists. The second return value reports whether a new
// row was created; a conflict is success-no-op, never an error.
func (s *Store) InsertReleaseIfAbsent(ctx context.Context, release Release) (*Release, bool, error) {
	if release.WorkID == 0 {
		return nil, false, errors.New("release work id required")
	}
	if !ValidReleaseType(release.Type) {
		return nil, false, fmt.Errorf("invalid release type %q", release.Type)
	}
	if release.Type != ReleaseSeason && strings.TrimSpace(release.Number) == "" {
		return nil, false, fmt.Errorf("release number required for %s", release.Type)
	}
	if strings.TrimSpace(release.Platform) == "" {
		return nil, false, errors.New("release platform required")
	}
	if release.ReleaseDate.IsZero() {
		return nil, false, errors.New("release date required")
	}

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	timestamp := time.Now().UTC().Format(timestampLayout)
	dateValue := release.ReleaseDate.UTC().Format(dateLayout)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO releases (work_id, release_type, number, platform, release_date, source, source_url, notified, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
         ON CONFLICT (work_id, release_type, number, platform, release_date) DO NOTHING`,
		release.WorkID, string(release.Type), release.Number, release.Platform, dateValue,
		release.Source, release.SourceURL, timestamp, timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert release: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+releaseColumns+` FROM releases
         WHERE work_id = ? AND release_type = ? AND number = ? AND platform = ? AND release_date = ?`,
		release.WorkID, string(release.Type), release.Number, release.Platform, dateValue,
	)
	stored, err := scanRelease(row)
	if err != nil {
		return nil, false, fmt.Errorf("fetch release: %w", err)
	}
	return stored, affected > 0, nil
}

// GetRelease fetches a release by identifier. Returns nil when absent.
func (s *Store) GetRelease(ctx context.Context, id int64) (*Release, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+releaseColumns+` FROM releases WHERE id = ?`, id)
	release, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}
	return release, nil
}

// SelectUnnotifiedDue returns unnotified releases due on or before asOf,
// joined with their works, ordered by release date then work title.
func (s *Store) SelectUnnotifiedDue(ctx context.Context, asOf time.Time) ([]DueRelease, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT r.id, r.work_id, r.release_type, r.number, r.platform, r.release_date,
                r.source, r.source_url, r.notified, r.created_at, r.updated_at,
                w.id, w.title, w.title_en, w.title_kana, w.title_native, w.type, w.official_url,
                w.created_at, w.updated_at
         FROM releases r
         JOIN works w ON w.id = r.work_id
         WHERE r.notified = 0 AND r.release_date <= ?
         ORDER BY r.release_date, w.title COLLATE NOCASE, r.id`,
		asOf.UTC().Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due releases: %w", err)
	}
	defer rows.Close()

	var due []DueRelease
	for rows.Next() {
		var entry DueRelease
		var releaseType, releaseDate, rCreated, rUpdated string
		var workType, wCreated, wUpdated string
		var notified int
		if err := rows.Scan(
			&entry.ID, &entry.WorkID, &releaseType, &entry.Number, &entry.Platform, &releaseDate,
			&entry.Source, &entry.SourceURL, &notified, &rCreated, &rUpdated,
			&entry.Work.ID, &entry.Work.Title, &entry.Work.TitleEn, &entry.Work.TitleKana,
			&entry.Work.TitleNative, &workType, &entry.Work.OfficialURL, &wCreated, &wUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan due release: %w", err)
		}
		entry.Release.Type = ReleaseType(releaseType)
		entry.ReleaseDate = parseDate(releaseDate)
		entry.Notified = notified != 0
		entry.Release.CreatedAt = parseTimestamp(rCreated)
		entry.Release.UpdatedAt = parseTimestamp(rUpdated)
		entry.Work.Type = WorkType(workType)
		entry.Work.CreatedAt = parseTimestamp(wCreated)
		entry.Work.UpdatedAt = parseTimestamp(wUpdated)
		due = append(due, entry)
	}
	return due, rows.Err()
}

// MarkNotified flips the release's notified flag. The transition is monotonic
// and idempotent: marking an already-notified release is a no-op.
func (s *Store) MarkNotified(ctx context.Context, releaseID int64) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	res, err := s.db.ExecContext(
		ctx,
		`UPDATE releases SET notified = 1, updated_at = ? WHERE id = ? AND notified = 0`,
		time.Now().UTC().Format(timestampLayout), releaseID,
	)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return nil
}

// Stats returns row counts for operator tooling.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM works`).Scan(&stats.Works); err != nil {
		return Stats{}, fmt.Errorf("count works: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM releases`).Scan(&stats.Releases); err != nil {
		return Stats{}, fmt.Errorf("count releases: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM releases WHERE notified = 0`).Scan(&stats.UnnotifiedReleases); err != nil {
		return Stats{}, fmt.Errorf("count unnotified: %w", err)
	}
	return stats, nil
}

func scanWork(row *sql.Row) (*Work, error) {
	var work Work
	var workType, createdAt, updatedAt string
	if err := row.Scan(
		&work.ID, &work.Title, &work.TitleEn, &work.TitleKana, &work.TitleNative,
		&workType, &work.OfficialURL, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	work.Type = WorkType(workType)
	work.CreatedAt = parseTimestamp(createdAt)
	work.UpdatedAt = parseTimestamp(updatedAt)
	return &work, nil
}

func scanRelease(row *sql.Row) (*Release, error) {
	var release Release
	var releaseType, releaseDate, createdAt, updatedAt string
	var notified int
	if err := row.Scan(
		&release.ID, &release.WorkID, &releaseType, &release.Number, &release.Platform,
		&releaseDate, &release.Source, &release.SourceURL, &notified, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	release.Type = ReleaseType(releaseType)
	release.ReleaseDate = parseDate(releaseDate)
	release.Notified = notified != 0
	release.CreatedAt = parseTimestamp(createdAt)
	release.UpdatedAt = parseTimestamp(updatedAt)
	return &release, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseDate(value string) time.Time {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
