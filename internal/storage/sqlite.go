package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/mentormirror/internal/mentor"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps mentors in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) mentormirror.db in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "mentormirror.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't been run yet.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	names, err := migrationFiles(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	for _, name := range names {
		version, err := parseMigrationVersion(name)
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// migrationFiles lists the .sql files under dir in ascending name order.
func migrationFiles(fsys embed.FS, dir string) ([]string, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (mentor.Mentor, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mentorColumns+" FROM mentors WHERE id = ?", mentor.NormalizeID(id))
	m, err := scanSQLiteMentor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mentor.Mentor{}, mentor.ErrNotFound
	}
	return m, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]mentor.Mentor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+mentorColumns+" FROM mentors ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mentor.Mentor{}
	for rows.Next() {
		m, err := scanSQLiteMentor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert replaces every field of an existing row except created_at.
func (s *SQLiteStore) Upsert(ctx context.Context, m mentor.Mentor) (mentor.Mentor, error) {
	m, err := mentor.Prepare(m, s.now())
	if err != nil {
		return mentor.Mentor{}, err
	}

	args := append(mentorArgs(m),
		m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano))
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mentors (`+mentorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name        = excluded.display_name,
			source_url          = excluded.source_url,
			tone_voice          = excluded.tone_voice,
			sentence_structure  = excluded.sentence_structure,
			vocabulary_diction  = excluded.vocabulary_diction,
			rhetorical_patterns = excluded.rhetorical_patterns,
			unique_elements     = excluded.unique_elements,
			content_themes      = excluded.content_themes,
			audience_engagement = excluded.audience_engagement,
			updated_at          = excluded.updated_at`,
		args...,
	)
	if err != nil {
		return mentor.Mentor{}, fmt.Errorf("upserting mentor %s: %w", m.ID, err)
	}
	return s.Get(ctx, m.ID)
}

func scanSQLiteMentor(row scanner) (mentor.Mentor, error) {
	var m mentor.Mentor
	var createdAt, updatedAt string
	dest := append(profileDest(&m), &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return mentor.Mentor{}, err
	}
	var err error
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return mentor.Mentor{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return mentor.Mentor{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return m, nil
}
