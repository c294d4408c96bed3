package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuvec/docuvec/internal/encoding"
	"github.com/docuvec/docuvec/pkg/schema"
)

// DuplicatePolicy controls how WriteDocuments treats identifier
// collisions with rows already in the table (or earlier in the batch).
type DuplicatePolicy int

const (
	// DuplicateOverwrite replaces the existing row. Default.
	DuplicateOverwrite DuplicatePolicy = iota
	// DuplicateSkip keeps the existing row and ignores the new document.
	DuplicateSkip
	// DuplicateFail aborts the whole batch with ErrDuplicateDocument and
	// writes nothing.
	DuplicateFail
)

// WriteDocuments maps each document to a row and inserts the batch in one
// transaction. Documents without an ID get the deterministic content hash.
// Returns the number of rows actually written: under DuplicateSkip,
// skipped duplicates are not counted.
func (s *Store) WriteDocuments(ctx context.Context, docs []Document, policy DuplicatePolicy) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("write"); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	// Validate and map every document before touching the table so a
	// schema violation aborts the batch cleanly.
	rows := make([]schema.Row, len(docs))
	for i, doc := range docs {
		if doc.Embedding != nil {
			if err := encoding.ValidateVector(doc.Embedding); err != nil {
				return 0, wrapErr("write", fmt.Errorf("%w: document %d carries an invalid embedding", schema.ErrSchemaMismatch, i))
			}
		}
		id := doc.ID
		if id == "" {
			id = DocumentID(doc.Content, doc.Meta)
		}
		row, err := s.row.ToRow(id, doc.Content, doc.Embedding, doc.Meta)
		if err != nil {
			return 0, wrapErr("write", err)
		}
		rows[i] = row
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("write", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	verb := "INSERT OR REPLACE"
	if policy == DuplicateSkip {
		verb = "INSERT OR IGNORE"
	} else if policy == DuplicateFail {
		verb = "INSERT"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 3+len(s.row.Metadata())), ", ")
	insert := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, quoteIdent(s.cfg.Table), s.selectColumns(""), placeholders)

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, wrapErr("write", fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer func() { _ = stmt.Close() }()

	written := 0
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if policy == DuplicateFail {
			if _, dup := seen[row.ID]; dup {
				return 0, wrapErr("write", fmt.Errorf("%w: %s", ErrDuplicateDocument, row.ID))
			}
			var n int
			err := tx.QueryRowContext(ctx,
				fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", quoteIdent(s.cfg.Table), quoteIdent(schema.ColID)),
				row.ID,
			).Scan(&n)
			if err != nil {
				return 0, wrapErr("write", err)
			}
			if n > 0 {
				return 0, wrapErr("write", fmt.Errorf("%w: %s", ErrDuplicateDocument, row.ID))
			}
			seen[row.ID] = struct{}{}
		}

		args, err := s.rowArgs(row)
		if err != nil {
			return 0, wrapErr("write", err)
		}
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, wrapErr("write", fmt.Errorf("failed to insert document %q: %w", row.ID, err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, wrapErr("write", err)
		}
		written += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapErr("write", fmt.Errorf("failed to commit batch: %w", err))
	}

	s.logger.Debug("wrote documents",
		zap.String("batch_id", uuid.NewString()),
		zap.String("table", s.cfg.Table),
		zap.Int("documents", len(docs)),
		zap.Int("written", written))
	return written, nil
}

// DeleteDocuments removes the rows matching the given identifiers.
// Missing identifiers are not an error. Returns the number of rows
// actually removed.
func (s *Store) DeleteDocuments(ctx context.Context, ids []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("delete"); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
			quoteIdent(s.cfg.Table), quoteIdent(schema.ColID), placeholders),
		args...,
	)
	if err != nil {
		return 0, wrapErr("delete", fmt.Errorf("failed to delete documents: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("delete", err)
	}

	s.logger.Debug("deleted documents",
		zap.String("table", s.cfg.Table),
		zap.Int("requested", len(ids)),
		zap.Int("removed", int(affected)))
	return int(affected), nil
}
