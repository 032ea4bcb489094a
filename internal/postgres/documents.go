package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore keeps every kind in one JSONB table.
type DocumentStore struct {
	db *pgxpool.Pool
}

func NewDocumentStore(db *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, kind store.Kind, id string) (store.Document, error) {
	doc := store.Document{ID: id}
	err := s.db.QueryRow(ctx, qGetDocument, string(kind), id).Scan(&doc.Version, &doc.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}
	return doc, nil
}

// Create serializes inserts that share a unique value with a transaction
// scoped advisory lock, then checks for an existing holder.
func (s *DocumentStore) Create(ctx context.Context, kind store.Kind, id string, body []byte, unique ...string) error {
	filters := store.UniqueFilters(body, unique)
	if len(filters) == 0 {
		if _, err := s.db.Exec(ctx, qInsertDocument, string(kind), id, body); err != nil {
			return mapPgError(err)
		}
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, f := range filters {
		lockKey := fmt.Sprintf("%s:%s:%s", kind, f.Field, f.Value)
		if _, err := tx.Exec(ctx, qLockUnique, lockKey); err != nil {
			return fmt.Errorf("lock %s: %w", f.Field, err)
		}
		var taken bool
		if err := tx.QueryRow(ctx, qUniqueTaken, string(kind), f.Field, f.Value).Scan(&taken); err != nil {
			return err
		}
		if taken {
			return store.ErrExists
		}
	}
	if _, err := tx.Exec(ctx, qInsertDocument, string(kind), id, body); err != nil {
		return mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, kind store.Kind, id string, fn store.MutateFunc) (store.Document, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return store.Document{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	doc := store.Document{ID: id}
	if err := tx.QueryRow(ctx, qLockDocument, string(kind), id).Scan(&doc.Version, &doc.Body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}

	next, err := fn(doc.Body)
	if err != nil {
		return store.Document{}, err
	}
	if err := tx.QueryRow(ctx, qUpdateDocument, string(kind), id, next).Scan(&doc.Version); err != nil {
		return store.Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return store.Document{}, fmt.Errorf("commit: %w", err)
	}
	doc.Body = next
	return doc, nil
}

func (s *DocumentStore) Find(ctx context.Context, kind store.Kind, filters ...store.Filter) ([]store.Document, error) {
	query, args := buildFind(kind, filters)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		var d store.Document
		if err := rows.Scan(&d.ID, &d.Version, &d.Body); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DocumentStore) Close() error {
	s.db.Close()
	return nil
}

func buildFind(kind store.Kind, filters []store.Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(qFindDocuments)
	args := []any{string(kind)}

	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		field, value := len(args)-1, len(args)
		switch f.Op {
		case store.OpContains:
			fmt.Fprintf(&sb, "\n\t\t  AND (body -> $%d::text) @> jsonb_build_array($%d::text)", field, value)
		default:
			fmt.Fprintf(&sb, "\n\t\t  AND (body ->> $%d::text) = $%d", field, value)
		}
	}
	sb.WriteString("\n\t\tORDER BY seq")
	return sb.String(), args
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return store.ErrExists
		}
	}
	return err
}
