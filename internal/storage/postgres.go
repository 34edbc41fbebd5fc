package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kalambet/mentormirror/internal/mentor"
)

//go:embed postgres_migrations/*.sql
var postgresMigrationsFS embed.FS

// PostgresStore keeps mentors in a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and runs pending migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases every pooled connection.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	names, err := migrationFiles(postgresMigrationsFS, "postgres_migrations")
	if err != nil {
		return err
	}
	for _, name := range names {
		version, err := parseMigrationVersion(name)
		if err != nil {
			return err
		}
		content, err := postgresMigrationsFS.ReadFile("postgres_migrations/" + name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var exists bool
			if err := tx.QueryRow(ctx,
				"SELECT EXISTS (SELECT 1 FROM schema_version WHERE version = $1)", version,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_version (version) VALUES ($1)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (mentor.Mentor, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+mentorColumns+" FROM mentors WHERE id = $1", mentor.NormalizeID(id))
	m, err := scanPostgresMentor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return mentor.Mentor{}, mentor.ErrNotFound
	}
	return m, err
}

func (s *PostgresStore) List(ctx context.Context) ([]mentor.Mentor, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+mentorColumns+" FROM mentors ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mentor.Mentor{}
	for rows.Next() {
		m, err := scanPostgresMentor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert replaces every field of an existing row except created_at.
func (s *PostgresStore) Upsert(ctx context.Context, m mentor.Mentor) (mentor.Mentor, error) {
	m, err := mentor.Prepare(m, timeNow())
	if err != nil {
		return mentor.Mentor{}, err
	}

	args := append(mentorArgs(m), m.CreatedAt, m.UpdatedAt)
	row := s.pool.QueryRow(ctx, `
		INSERT INTO mentors (`+mentorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			display_name        = EXCLUDED.display_name,
			source_url          = EXCLUDED.source_url,
			tone_voice          = EXCLUDED.tone_voice,
			sentence_structure  = EXCLUDED.sentence_structure,
			vocabulary_diction  = EXCLUDED.vocabulary_diction,
			rhetorical_patterns = EXCLUDED.rhetorical_patterns,
			unique_elements     = EXCLUDED.unique_elements,
			content_themes      = EXCLUDED.content_themes,
			audience_engagement = EXCLUDED.audience_engagement,
			updated_at          = EXCLUDED.updated_at
		RETURNING `+mentorColumns,
		args...,
	)
	saved, err := scanPostgresMentor(row)
	if err != nil {
		return mentor.Mentor{}, fmt.Errorf("upserting mentor %s: %w", m.ID, err)
	}
	return saved, nil
}

func scanPostgresMentor(row scanner) (mentor.Mentor, error) {
	var m mentor.Mentor
	dest := append(profileDest(&m), &m.CreatedAt, &m.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return mentor.Mentor{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}
