// Package docstore exposes an embedded SQLite database through a fixed
// document-store interface: documents are mapped onto a flat row schema,
// and storage, vector similarity search and full-text search are
// delegated to the engine.
//
// A Store owns one table. The table's row schema (system columns plus the
// declared metadata columns) is fixed at creation and persisted alongside
// the table; adding metadata fields requires a new table or
// ExistsPolicyRecreate.
//
// The store does not coordinate concurrent writers across processes; it
// relies entirely on the engine's own concurrency control (WAL journal,
// busy timeout).
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docuvec/docuvec/pkg/schema"

	_ "modernc.org/sqlite" // SQLite driver
)

// catalogTable records the declared schema of every document table in the
// database so reopening can detect incompatible declarations.
const catalogTable = "docstore_tables"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExistsPolicy controls what Open does when the table already exists.
type ExistsPolicy int

const (
	// ExistsPolicyOpen opens an existing table if its declared schema is
	// identical, and fails with ErrStoreInit otherwise. Default.
	ExistsPolicyOpen ExistsPolicy = iota
	// ExistsPolicyRecreate drops and recreates an existing table whose
	// declared schema differs. Compatible tables are opened as-is.
	ExistsPolicyRecreate
	// ExistsPolicyFail refuses to open a pre-existing table at all.
	ExistsPolicyFail
)

// Config holds the store construction parameters.
type Config struct {
	// Path is the database file location.
	Path string
	// Table is the document table name.
	Table string
	// Metadata is the declared metadata schema, fixed at creation.
	Metadata schema.Metadata
	// EmbeddingDims is the fixed embedding vector length. Must be positive.
	EmbeddingDims int
	// ExistsPolicy controls handling of a pre-existing table.
	ExistsPolicy ExistsPolicy
	// Logger is optional; zap.NewNop() is used when nil.
	Logger *zap.Logger
}

// Store is a document store over one embedded database table. A single
// Store may be shared by multiple retrievers; operations are synchronous
// and run to completion or fail.
type Store struct {
	db     *sql.DB
	cfg    Config
	row    *schema.RowSchema
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the document table described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, wrapErr("open", fmt.Errorf("database path cannot be empty"))
	}
	if !tableNameRe.MatchString(cfg.Table) {
		return nil, wrapErr("open", fmt.Errorf("invalid table name %q", cfg.Table))
	}
	rowSchema, err := schema.BuildRowSchema(cfg.Metadata, cfg.EmbeddingDims)
	if err != nil {
		return nil, wrapErr("open", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// journal_mode=WAL: better concurrency
	// busy_timeout=5000: wait up to 5s for a lock instead of failing
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-2000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapErr("open", fmt.Errorf("failed to open database: %w", err))
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Hour)

	s := &Store{db: db, cfg: cfg, row: rowSchema, logger: cfg.Logger.Named("docstore")}
	if err := s.initTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initTable(ctx context.Context) error {
	catalogDDL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		table_name TEXT PRIMARY KEY,
		metadata_schema TEXT NOT NULL,
		embedding_dims INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`, catalogTable)
	if _, err := s.db.ExecContext(ctx, catalogDDL); err != nil {
		return wrapErr("open", fmt.Errorf("failed to create catalog table: %w", err))
	}

	exists, err := s.tableExists(ctx, s.cfg.Table)
	if err != nil {
		return wrapErr("open", err)
	}

	if exists {
		if s.cfg.ExistsPolicy == ExistsPolicyFail {
			return wrapErr("open", fmt.Errorf("%w: table %q already exists", ErrStoreInit, s.cfg.Table))
		}
		compatible, err := s.schemaCompatible(ctx)
		if err != nil {
			return wrapErr("open", err)
		}
		if compatible {
			return nil
		}
		if s.cfg.ExistsPolicy != ExistsPolicyRecreate {
			return wrapErr("open", fmt.Errorf("%w: table %q exists with an incompatible schema", ErrStoreInit, s.cfg.Table))
		}
		if err := s.dropTable(ctx); err != nil {
			return wrapErr("open", err)
		}
		s.logger.Info("recreating table with new schema", zap.String("table", s.cfg.Table))
	}

	return s.createTable(ctx)
}

// schemaCompatible compares the catalog record against the declared
// schema. A table without a catalog record is treated as incompatible.
func (s *Store) schemaCompatible(ctx context.Context) (bool, error) {
	var schemaJSON string
	var dims int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT metadata_schema, embedding_dims FROM %s WHERE table_name = ?", catalogTable),
		s.cfg.Table,
	).Scan(&schemaJSON, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read catalog: %w", err)
	}

	var declared schema.Metadata
	if err := json.Unmarshal([]byte(schemaJSON), &declared); err != nil {
		return false, fmt.Errorf("corrupt catalog record for %q: %w", s.cfg.Table, err)
	}
	return dims == s.cfg.EmbeddingDims && declared.Equal(s.cfg.Metadata), nil
}

func (s *Store) createTable(ctx context.Context) error {
	cols := []string{
		quoteIdent(schema.ColID) + " TEXT PRIMARY KEY",
		quoteIdent(schema.ColContent) + " TEXT NOT NULL DEFAULT ''",
		quoteIdent(schema.ColEmbedding) + " BLOB",
	}
	for _, f := range s.row.Metadata() {
		cols = append(cols, quoteIdent(schema.MetaPrefix+f.Name)+" "+columnAffinity(f.Type))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.cfg.Table), strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return wrapErr("open", fmt.Errorf("failed to create table: %w", err))
	}

	schemaJSON, err := json.Marshal(s.cfg.Metadata)
	if err != nil {
		return wrapErr("open", fmt.Errorf("failed to encode schema: %w", err))
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (table_name, metadata_schema, embedding_dims) VALUES (?, ?, ?)", catalogTable),
		s.cfg.Table, string(schemaJSON), s.cfg.EmbeddingDims,
	)
	if err != nil {
		return wrapErr("open", fmt.Errorf("failed to record schema: %w", err))
	}
	s.logger.Debug("created table",
		zap.String("table", s.cfg.Table),
		zap.Int("embedding_dims", s.cfg.EmbeddingDims),
		zap.Int("metadata_fields", len(s.cfg.Metadata)))
	return nil
}

// dropTable removes the table, its full-text indexes and its catalog
// record. Triggers on the table drop with it; FTS virtual tables do not.
func (s *Store) dropTable(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ?",
		ftsTablePrefix(s.cfg.Table)+"%",
	)
	if err != nil {
		return fmt.Errorf("failed to list text indexes: %w", err)
	}
	var ftsTables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		ftsTables = append(ftsTables, name)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, name := range ftsTables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
			return fmt.Errorf("failed to drop text index %q: %w", name, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(s.cfg.Table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE table_name = ?", catalogTable), s.cfg.Table)
	return err
}

func (s *Store) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return n > 0, nil
}

// RowSchema returns the merged row schema of the table.
func (s *Store) RowSchema() *schema.RowSchema { return s.row }

// Close closes the store. Further operations fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// checkOpen must be called with at least a read lock held.
func (s *Store) checkOpen(op string) error {
	if s.closed {
		return wrapErr(op, ErrStoreClosed)
	}
	return nil
}

// Descriptor captures the construction parameters of a store so a
// pipeline can serialize and later reopen it.
type Descriptor struct {
	Path          string          `json:"path"`
	Table         string          `json:"table"`
	Metadata      schema.Metadata `json:"metadata"`
	EmbeddingDims int             `json:"embedding_dims"`
}

// Descriptor returns the store's construction parameters.
func (s *Store) Descriptor() Descriptor {
	return Descriptor{
		Path:          s.cfg.Path,
		Table:         s.cfg.Table,
		Metadata:      s.cfg.Metadata,
		EmbeddingDims: s.cfg.EmbeddingDims,
	}
}

// OpenFromDescriptor reopens a store from a serialized descriptor.
func OpenFromDescriptor(ctx context.Context, d Descriptor, logger *zap.Logger) (*Store, error) {
	return Open(ctx, Config{
		Path:          d.Path,
		Table:         d.Table,
		Metadata:      d.Metadata,
		EmbeddingDims: d.EmbeddingDims,
		Logger:        logger,
	})
}

func columnAffinity(t schema.FieldType) string {
	switch t.Kind {
	case schema.KindInt, schema.KindTimestamp, schema.KindBool:
		return "INTEGER"
	case schema.KindFloat:
		return "REAL"
	default:
		// strings plus JSON-encoded lists and structs
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
