package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"adprint/internal/infra"
	"adprint/internal/sqlinline"
	"adprint/internal/storage"
)

// MemoryStore keeps the counter for the lifetime of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	count int
}

func NewMemoryStore(initial int) *MemoryStore { return &MemoryStore{count: initial} }

func (m *MemoryStore) Load(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *MemoryStore) Save(_ context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
	return nil
}

// FileStore stores the counter as decimal text in the data directory.
type FileStore struct {
	files *storage.FileStore
	key   string
}

func NewFileStore(files *storage.FileStore, key string) *FileStore {
	return &FileStore{files: files, key: key}
}

func (f *FileStore) Load(ctx context.Context) (int, error) {
	data, err := f.files.Read(ctx, f.key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: read %s: %w", f.key, err)
	}
	return parseCount(string(data)), nil
}

func (f *FileStore) Save(ctx context.Context, count int) error {
	if _, err := f.files.Write(ctx, f.key, []byte(formatCount(count))); err != nil {
		return fmt.Errorf("quota: write %s: %w", f.key, err)
	}
	return nil
}

// PostgresStore keeps the counter as one row of the kv_store table.
type PostgresStore struct {
	db  infra.SQLExecutor
	key string
}

func NewPostgresStore(db infra.SQLExecutor, key string) *PostgresStore {
	return &PostgresStore{db: db, key: key}
}

func (p *PostgresStore) Load(ctx context.Context) (int, error) {
	var raw string
	err := p.db.QueryRow(ctx, sqlinline.QSelectKV, p.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: select %s: %w", p.key, err)
	}
	return parseCount(raw), nil
}

func (p *PostgresStore) Save(ctx context.Context, count int) error {
	if _, err := p.db.Exec(ctx, sqlinline.QUpsertKV, p.key, formatCount(count)); err != nil {
		return fmt.Errorf("quota: upsert %s: %w", p.key, err)
	}
	return nil
}

const sqliteSchema = `create table if not exists kv_store (
	key        text primary key,
	value      text not null,
	updated_at timestamp not null default current_timestamp
)`

// SQLiteStore keeps the counter in a local sqlite database file.
type SQLiteStore struct {
	db  *sqlx.DB
	key string
}

// OpenSQLite opens (or creates) the database at path and ensures the table exists.
func OpenSQLite(ctx context.Context, path, key string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("quota: sqlite path is required")
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("quota: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("quota: create kv_store: %w", err)
	}
	return &SQLiteStore{db: db, key: key}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (int, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `select value from kv_store where key = ?`, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: select %s: %w", s.key, err)
	}
	return parseCount(raw), nil
}

func (s *SQLiteStore) Save(ctx context.Context, count int) error {
	_, err := s.db.ExecContext(ctx,
		`insert into kv_store(key, value, updated_at) values (?, ?, current_timestamp)
		 on conflict(key) do update set value = excluded.value, updated_at = excluded.updated_at`,
		s.key, formatCount(count))
	if err != nil {
		return fmt.Errorf("quota: upsert %s: %w", s.key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
