package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/verolabz/doctweak/internal/core/domain"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_email TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	instructions TEXT NOT NULL DEFAULT '',
	document_type TEXT NOT NULL,
	output_format TEXT NOT NULL,
	stage TEXT NOT NULL,
	progress INT NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	needs_ocr BOOLEAN NOT NULL DEFAULT FALSE,
	backend TEXT NOT NULL DEFAULT '',
	result_path TEXT NOT NULL DEFAULT '',
	result_name TEXT NOT NULL DEFAULT '',
	result_mime TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_stage ON sessions(stage);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (
	id, user_email, filename, mime_type, storage_path, instructions, document_type, output_format,
	stage, progress, message, error_kind, error_message, needs_ocr,
	backend, result_path, result_name, result_mime, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
`,
		s.ID, s.UserEmail, s.Filename, s.MimeType, s.StoragePath, s.Instructions,
		string(s.DocumentType), string(s.OutputFormat),
		string(s.Stage), s.Progress, s.Message, s.ErrorKind, s.ErrorMessage, s.NeedsOCR,
		string(s.Backend), s.ResultPath, s.ResultName, s.ResultMime, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_email, filename, mime_type, storage_path, instructions, document_type, output_format,
	stage, progress, message, error_kind, error_message, needs_ocr,
	backend, result_path, result_name, result_mime, created_at, updated_at
FROM sessions
WHERE id = $1
`, id)

	var s domain.Session
	var docType, outFormat, stage, backend string

	err := row.Scan(
		&s.ID, &s.UserEmail, &s.Filename, &s.MimeType, &s.StoragePath, &s.Instructions,
		&docType, &outFormat,
		&stage, &s.Progress, &s.Message, &s.ErrorKind, &s.ErrorMessage, &s.NeedsOCR,
		&backend, &s.ResultPath, &s.ResultName, &s.ResultMime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.DocumentType = domain.DocumentType(docType)
	s.OutputFormat = domain.OutputFormat(outFormat)
	s.Stage = domain.Stage(stage)
	s.Backend = domain.BackendID(backend)
	return &s, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *domain.Session) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sessions
SET stage = $2, progress = $3, message = $4, error_kind = $5, error_message = $6, needs_ocr = $7,
	backend = $8, result_path = $9, result_name = $10, result_mime = $11, updated_at = $12
WHERE id = $1
`,
		s.ID, string(s.Stage), s.Progress, s.Message, s.ErrorKind, s.ErrorMessage, s.NeedsOCR,
		string(s.Backend), s.ResultPath, s.ResultName, s.ResultMime, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSessionNotFound, "update session", fmt.Errorf("id %s", s.ID))
	}
	return nil
}
