// Package catalog provides the persistence layer for analyzed CVs: a
// schema-enforced Postgres table addressed as namespace.table, append-only
// except for row deletes by identifier.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/types"
)

const (
	// DefaultNamespace is the Postgres schema holding the catalog table.
	DefaultNamespace = "autodoc"
	// DefaultTable is the catalog table name.
	DefaultTable = "cv_analysis"
)

// Config holds catalog connection settings.
type Config struct {
	DatabaseURL string
	Namespace   string
	Table       string
}

// Store wraps a Postgres connection pool plus the catalog table identity.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
	table     string
	log       *zap.Logger
}

// Connect establishes a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, &StorageError{Op: "connect", Cause: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &StorageError{Op: "ping", Cause: err}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	return &Store{pool: pool, namespace: namespace, table: table, log: log}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies the catalog connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// qualifiedTable returns the quoted namespace.table identifier.
func (s *Store) qualifiedTable() string {
	return pgx.Identifier{s.namespace, s.table}.Sanitize()
}

// EnsureSchema creates the namespace and the catalog table if they do not
// exist. Idempotent; safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{s.namespace}.Sanitize()),
	); err != nil {
		return &StorageError{Op: "create namespace", Cause: err}
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			ingestion_timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			summary TEXT,
			skills JSONB,
			work_experience JSONB,
			education JSONB
		)`, s.qualifiedTable())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return &StorageError{Op: "create table", Cause: err}
	}

	return nil
}

// Append assigns a fresh identifier, serializes the record into one row and
// inserts it. This is the only write path; records are never updated in place.
func (s *Store) Append(ctx context.Context, cv types.CVData, filename string) (uuid.UUID, error) {
	id := uuid.New()

	skillsJSON, experienceJSON, educationJSON, err := marshalListColumns(cv)
	if err != nil {
		return uuid.Nil, &StorageError{Op: "serialize record", Cause: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, filename, first_name, last_name, email, phone, summary, skills, work_experience, education)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.qualifiedTable())

	_, err = s.pool.Exec(ctx, query,
		id, filename, cv.FirstName, cv.LastName,
		nullable(cv.Email), nullable(cv.Phone), cv.Summary,
		skillsJSON, experienceJSON, educationJSON,
	)
	if err != nil {
		return uuid.Nil, &StorageError{Op: "append record", Cause: err}
	}

	s.log.Info("candidate record appended",
		zap.String("id", id.String()),
		zap.String("filename", filename))

	return id, nil
}

// List returns the reduced listing projection, optionally filtered by a
// case-insensitive substring over name, filename, summary and stringified
// skills. Storage errors degrade to an empty result.
func (s *Store) List(ctx context.Context, searchQuery string) []types.CandidateSummary {
	query, args := buildListQuery(s.qualifiedTable(), searchQuery)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("listing candidates failed", zap.Error(err))
		return []types.CandidateSummary{}
	}
	defer rows.Close()

	summaries := []types.CandidateSummary{}
	for rows.Next() {
		var sum types.CandidateSummary
		var summary *string
		if err := rows.Scan(&sum.ID, &sum.FirstName, &sum.LastName, &sum.Filename, &summary); err != nil {
			s.log.Error("scanning candidate row failed", zap.Error(err))
			return []types.CandidateSummary{}
		}
		if summary != nil {
			sum.Summary = *summary
		}
		summaries = append(summaries, sum)
	}
	if rows.Err() != nil {
		s.log.Error("listing candidates failed", zap.Error(rows.Err()))
		return []types.CandidateSummary{}
	}

	return summaries
}

// ListFull returns every stored record with all columns. Used by smart
// search, which needs full experience/education data for ranking context.
// Storage errors degrade to an empty result.
func (s *Store) ListFull(ctx context.Context) []types.CandidateRecord {
	query := fmt.Sprintf(`
		SELECT id, filename, ingestion_timestamp, first_name, last_name, email, phone, summary, skills, work_experience, education
		FROM %s
		ORDER BY ingestion_timestamp`, s.qualifiedTable())

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		s.log.Error("full candidate scan failed", zap.Error(err))
		return []types.CandidateRecord{}
	}
	defer rows.Close()

	records := []types.CandidateRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			s.log.Error("scanning candidate row failed", zap.Error(err))
			return []types.CandidateRecord{}
		}
		records = append(records, *rec)
	}
	if rows.Err() != nil {
		s.log.Error("full candidate scan failed", zap.Error(rows.Err()))
		return []types.CandidateRecord{}
	}

	return records
}

// Get fetches one full record by identifier. Returns nil when the record is
// absent or the storage layer fails; read-path errors are logged, not raised.
func (s *Store) Get(ctx context.Context, id uuid.UUID) *types.CandidateRecord {
	query := fmt.Sprintf(`
		SELECT id, filename, ingestion_timestamp, first_name, last_name, email, phone, summary, skills, work_experience, education
		FROM %s
		WHERE id = $1`, s.qualifiedTable())

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		s.log.Error("fetching candidate failed", zap.Error(err), zap.String("id", id.String()))
		return nil
	}
	defer rows.Close()

	if !rows.Next() {
		return nil
	}

	rec, err := scanRecord(rows)
	if err != nil {
		s.log.Error("scanning candidate failed", zap.Error(err), zap.String("id", id.String()))
		return nil
	}
	return rec
}

// Delete removes the row matching the identifier. Returns false on any
// underlying failure or when no row matched; never raises.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) bool {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.qualifiedTable())

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		s.log.Error("deleting candidate failed", zap.Error(err), zap.String("id", id.String()))
		return false
	}
	if tag.RowsAffected() == 0 {
		s.log.Warn("delete matched no candidate", zap.String("id", id.String()))
		return false
	}

	s.log.Info("candidate record deleted", zap.String("id", id.String()))
	return true
}

// buildListQuery constructs the projection query, adding the OR-ed ILIKE
// filter over first_name, last_name, filename, summary and skills::text
// when a search term is present.
func buildListQuery(table, searchQuery string) (string, []any) {
	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, filename, summary
		FROM %s`, table)

	if searchQuery == "" {
		return query + "\n\t\tORDER BY ingestion_timestamp", nil
	}

	query += `
		WHERE first_name ILIKE $1
		OR last_name ILIKE $1
		OR filename ILIKE $1
		OR summary ILIKE $1
		OR skills::text ILIKE $1
		ORDER BY ingestion_timestamp`

	return query, []any{"%" + searchQuery + "%"}
}

// marshalListColumns serializes the nested list fields into their JSONB
// column values. Nil lists are stored as empty JSON arrays.
func marshalListColumns(cv types.CVData) (skills, experience, education []byte, err error) {
	normalized := cv
	normalized.Normalize()

	if skills, err = json.Marshal(normalized.Skills); err != nil {
		return nil, nil, nil, err
	}
	if experience, err = json.Marshal(normalized.WorkExperience); err != nil {
		return nil, nil, nil, err
	}
	if education, err = json.Marshal(normalized.Education); err != nil {
		return nil, nil, nil, err
	}
	return skills, experience, education, nil
}

// nullable maps empty optional strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// scanRecord reads one full row from the current cursor position.
func scanRecord(rows pgx.Rows) (*types.CandidateRecord, error) {
	var rec types.CandidateRecord
	var email, phone, summary *string
	var skillsJSON, experienceJSON, educationJSON []byte

	if err := rows.Scan(&rec.ID, &rec.Filename, &rec.IngestedAt,
		&rec.FirstName, &rec.LastName, &email, &phone, &summary,
		&skillsJSON, &experienceJSON, &educationJSON); err != nil {
		return nil, err
	}

	if email != nil {
		rec.Email = *email
	}
	if phone != nil {
		rec.Phone = *phone
	}
	if summary != nil {
		rec.Summary = *summary
	}

	if skillsJSON != nil {
		if err := json.Unmarshal(skillsJSON, &rec.Skills); err != nil {
			return nil, err
		}
	}
	if experienceJSON != nil {
		if err := json.Unmarshal(experienceJSON, &rec.WorkExperience); err != nil {
			return nil, err
		}
	}
	if educationJSON != nil {
		if err := json.Unmarshal(educationJSON, &rec.Education); err != nil {
			return nil, err
		}
	}

	rec.Normalize()
	return &rec, nil
}
