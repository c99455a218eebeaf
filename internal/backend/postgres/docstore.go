package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/pkg/events"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// DocStore keeps every collection in one jsonb-backed table and fans out
// change notifications over the event bus so live subscriptions see writes
// from any process. A nil bus disables fan-out; Subscribe then only delivers
// the initial snapshot.
type DocStore struct {
	pool *pgxpool.Pool
	bus  events.EventBus
}

func NewDocStore(pool *pgxpool.Pool, bus events.EventBus) *DocStore {
	return &DocStore{pool: pool, bus: bus}
}

var _ backend.DocumentStore = (*DocStore)(nil)

func (s *DocStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`

	id := uuid.NewString()
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, q, collection, id, data); err != nil {
		return "", err
	}

	s.notify(ctx, collection, id, "create")
	return id, nil
}

func (s *DocStore) Put(ctx context.Context, collection, id string, fields map[string]any) error {
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, q, collection, id, data); err != nil {
		return err
	}

	s.notify(ctx, collection, id, "update")
	return nil
}

func (s *DocStore) List(ctx context.Context, collection, orderBy string, desc bool) ([]backend.Document, error) {
	q := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY ` + orderColumn(orderBy)
	if desc {
		q += " DESC"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, q, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []backend.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DocStore) GetOne(ctx context.Context, collection, id string) (*backend.Document, error) {
	const q = `SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	doc, err := scanDocument(s.pool.QueryRow(ctx, q, collection, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	const q = `UPDATE documents SET data = data || $3, updated_at = now() WHERE collection = $1 AND id = $2`

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := s.pool.Exec(ctx, q, collection, id, data)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return backend.ErrNotFound
	}

	s.notify(ctx, collection, id, "update")
	return nil
}

func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := s.pool.Exec(ctx, q, collection, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return backend.ErrNotFound
	}

	s.notify(ctx, collection, id, "delete")
	return nil
}

// Subscribe re-lists the collection on every change notification and pushes
// the full snapshot, matching the one-writer contract of the stores.
func (s *DocStore) Subscribe(collection, orderBy string, desc bool, onChange func([]backend.Document), onError func(error)) (backend.Unsubscribe, error) {
	deliver := func() {
		docs, err := s.List(context.Background(), collection, orderBy, desc)
		if err != nil {
			onError(err)
			return
		}
		onChange(docs)
	}

	if s.bus == nil {
		deliver()
		return func() {}, nil
	}

	unsub, err := s.bus.Subscribe(events.DocsChanged(collection), func(*events.Message) {
		deliver()
	})
	if err != nil {
		return nil, err
	}

	// Initial snapshot before any change arrives.
	deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unsub(); err != nil {
				logger.Warn("Failed to detach collection subscription", "collection", collection, "error", err)
			}
		})
	}, nil
}

func (s *DocStore) notify(ctx context.Context, collection, id, op string) {
	if s.bus == nil {
		return
	}
	event := events.DocsChangedEvent{
		Collection: collection,
		DocumentID: id,
		Op:         op,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, events.DocsChanged(collection), event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish document change", "collection", collection, "document_id", id, "error", err)
	}
}

// orderColumn maps the exposed order-by field to a safe SQL expression.
func orderColumn(orderBy string) string {
	switch orderBy {
	case "", "createdAt", "created_at":
		return "created_at"
	case "updatedAt", "updated_at":
		return "updated_at"
	default:
		return fmt.Sprintf("data->>'%s'", sanitizeField(orderBy))
	}
}

func sanitizeField(field string) string {
	out := make([]rune, 0, len(field))
	for _, r := range field {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		}
	}
	return string(out)
}

func scanDocument(row pgx.Row) (backend.Document, error) {
	var (
		doc  backend.Document
		data []byte
	)
	if err := row.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return backend.Document{}, err
	}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return backend.Document{}, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return doc, nil
}
