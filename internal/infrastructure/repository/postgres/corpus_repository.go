package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/knowledge-retriever/internal/core/domain"
)

// CorpusRepository is the corpus of record: the worker writes loaded
// documents here and the api rebuilds the lexical index from it.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
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

func (r *CorpusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_documents (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	title TEXT,
	source TEXT,
	domain TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpus_documents_domain ON corpus_documents(domain);
CREATE INDEX IF NOT EXISTS idx_corpus_documents_created_at ON corpus_documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveDocument upserts by content key, so reloading the same corpus is
// idempotent and re-annotated copies replace their predecessor.
func (r *CorpusRepository) SaveDocument(ctx context.Context, doc domain.Document) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO corpus_documents (id, content, title, source, domain, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content, title = EXCLUDED.title, source = EXCLUDED.source,
    domain = EXCLUDED.domain, updated_at = EXCLUDED.updated_at
`,
		doc.ContentKey(), doc.Content, doc.Metadata.Title, doc.Metadata.Source, doc.Metadata.Domain, now,
	)
	if err != nil {
		return fmt.Errorf("upsert corpus document: %w", err)
	}
	return nil
}

func (r *CorpusRepository) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT content, title, source, domain
FROM corpus_documents
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("list corpus documents: %w", err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var doc domain.Document
		var title, source, domainName sql.NullString
		if err := rows.Scan(&doc.Content, &title, &source, &domainName); err != nil {
			return nil, fmt.Errorf("scan corpus document: %w", err)
		}
		doc.Metadata.Title = title.String
		doc.Metadata.Source = source.String
		doc.Metadata.Domain = domainName.String
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus documents: %w", err)
	}
	return out, nil
}
