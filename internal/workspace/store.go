package workspace

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-artist-backend/internal/database"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/media"
)

// Kind is the media kind of a saved creation.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindImage, KindVideo:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Creation is a saved artifact. Payload is always a data URI.
type Creation struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"type"`
	MimeType  string    `json:"mime_type"`
	Payload   string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidKind    = errors.New("invalid creation kind")
	ErrInvalidPayload = errors.New("invalid creation payload")
)

// StorageError wraps any failure of the underlying database engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Store persists creations. It never pushes change notifications: after any
// mutation callers re-run List to refresh their view.
type Store struct {
	db  *database.DB
	log *logger.Logger

	// mu orders inserts so created_at never contradicts id order.
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// Open connects to the database, applies migrations and returns a ready store.
func Open(ctx context.Context, dialect database.Dialect, dsn string, log *logger.Logger) (*Store, error) {
	db, err := database.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, storageErr("open", err)
	}
	s, err := New(ctx, db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database and applies migrations.
func New(ctx context.Context, db *database.DB, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if err := database.NewMigrator(db, log).Run(ctx); err != nil {
		return nil, storageErr("migrate", err)
	}

	s := &Store{db: db, log: log, now: time.Now}

	var maxCreated sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM creations").Scan(&maxCreated); err != nil {
		return nil, storageErr("open", err)
	}
	s.last = maxCreated.Int64
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Add saves a creation. Image payloads may be a data URI or bare base64
// (treated as PNG). Video payloads must be data URIs.
func (s *Store) Add(ctx context.Context, kind Kind, payload string) (*Creation, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	if !strings.HasPrefix(payload, "data:") {
		if kind == KindVideo {
			return nil, fmt.Errorf("%w: video payload needs a MIME type", ErrInvalidPayload)
		}
		payload = media.NormalizeImagePayload(payload)
	}
	mimeType, data, err := media.ParseDataURI(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	return s.insert(ctx, kind, mimeType, payload)
}

// AddBlob saves raw bytes as a data URI. An empty mimeType is sniffed.
func (s *Store) AddBlob(ctx context.Context, kind Kind, data []byte, mimeType string) (*Creation, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if mimeType == "" {
		mimeType = media.SniffMimeType(data)
	}
	return s.insert(ctx, kind, mimeType, media.DataURI(mimeType, base64.StdEncoding.EncodeToString(data)))
}

func (s *Store) insert(ctx context.Context, kind Kind, mimeType, payload string) (*Creation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.stamp()

	var id int64
	err := s.db.QueryRowContext(ctx,
		s.db.Dialect.Rebind(`INSERT INTO creations (kind, mime_type, payload, created_at)
			VALUES (?, ?, ?, ?) RETURNING id`),
		string(kind), mimeType, payload, created,
	).Scan(&id)
	if err != nil {
		return nil, storageErr("insert creation", err)
	}

	s.log.Debug("creation saved", "id", id, "kind", kind, "mime_type", mimeType, "size", len(payload))

	return &Creation{
		ID:        id,
		Kind:      kind,
		MimeType:  mimeType,
		Payload:   payload,
		CreatedAt: time.Unix(0, created).UTC(),
	}, nil
}

// stamp returns a strictly increasing unix-nanosecond timestamp. Caller holds mu.
func (s *Store) stamp() int64 {
	now := s.now().UnixNano()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return now
}

// List returns every creation, newest first. An empty store yields an empty slice.
func (s *Store) List(ctx context.Context) ([]Creation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, mime_type, payload, created_at FROM creations
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, storageErr("list creations", err)
	}
	defer rows.Close()

	out := []Creation{}
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, storageErr("list creations", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list creations", err)
	}
	return out, nil
}

// Get returns the creation with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Creation, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Dialect.Rebind(`SELECT id, kind, mime_type, payload, created_at FROM creations WHERE id = ?`),
		id)
	c, err := scanCreation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get creation", err)
	}
	return c, nil
}

// Delete removes a creation. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Dialect.Rebind("DELETE FROM creations WHERE id = ?"), id); err != nil {
		return storageErr("delete creation", err)
	}
	return nil
}

// Clear removes every creation. Ids are not reused afterwards.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM creations"); err != nil {
		return storageErr("clear creations", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCreation(row scanner) (*Creation, error) {
	var (
		c       Creation
		kind    string
		created int64
	)
	if err := row.Scan(&c.ID, &kind, &c.MimeType, &c.Payload, &created); err != nil {
		return nil, err
	}
	c.Kind = Kind(kind)
	c.CreatedAt = time.Unix(0, created).UTC()
	return &c, nil
}
