package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

var postgresSchema = []postgres.Migration{
	{Version: 1, SQL: `CREATE TABLE IF NOT EXISTS documents (
		id         UUID PRIMARY KEY,
		body       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{Version: 2, SQL: `CREATE INDEX IF NOT EXISTS documents_updated_at_idx ON documents (updated_at)`},
}

const (
	upsertDocumentSQL = `INSERT INTO documents (id, body, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	selectDocumentSQL  = `SELECT body FROM documents WHERE id = $1`
	selectDocumentsSQL = `SELECT id, body FROM documents WHERE id = ANY($1::uuid[])`
)

// Postgres is a Store in a PostgreSQL table, one JSONB row per document.
type Postgres struct {
	client *postgres.Client
}

func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*Postgres, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Migrate(ctx, postgresSchema); err != nil {
		client.Close()
		return nil, fmt.Errorf("migrating documents table: %w", err)
	}
	return &Postgres{client: client}, nil
}

func (p *Postgres) Get(ctx context.Context, id ident.ID) (document.Document, bool, error) {
	var body []byte
	err := p.client.DB.QueryRowContext(ctx, selectDocumentSQL, id.String()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying document %s: %w", id, err)
	}
	doc, err := document.Parse(body)
	if err != nil {
		return nil, false, fmt.Errorf("decoding document %s: %w", id, err)
	}
	return doc, true, nil
}

func (p *Postgres) List(ctx context.Context, ids []ident.ID) ([]document.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := p.client.DB.QueryContext(ctx, selectDocumentsSQL, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	found := make(map[ident.ID]document.Document, len(ids))
	for rows.Next() {
		var (
			rawID string
			body  []byte
		)
		if err := rows.Scan(&rawID, &body); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		id, err := ident.Parse(rawID)
		if err != nil {
			return nil, err
		}
		doc, err := document.Parse(body)
		if err != nil {
			return nil, fmt.Errorf("decoding document %s: %w", id, err)
		}
		found[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return orderByIDs(ids, found), nil
}

// orderByIDs lays documents out in the order of ids, skipping missing ones.
func orderByIDs(ids []ident.ID, found map[ident.ID]document.Document) []document.Document {
	out := make([]document.Document, 0, len(found))
	for _, id := range ids {
		if doc, ok := found[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

func (p *Postgres) Set(ctx context.Context, id *ident.ID, doc document.Document) (ident.ID, error) {
	key := resolveID(id)
	body, err := json.Marshal(doc)
	if err != nil {
		return ident.Nil, fmt.Errorf("encoding document %s: %w", key, err)
	}
	if _, err := p.client.DB.ExecContext(ctx, upsertDocumentSQL, key.String(), body); err != nil {
		return ident.Nil, fmt.Errorf("upserting document %s: %w", key, err)
	}
	return key, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Postgres) Close() error {
	return p.client.Close()
}
