package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentIndex = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentIndex port. Text is
// indexed in an FTS5 table and ranked with bm25; every query is confined to
// one namespace.
type DocumentRepo struct {
	db  *DB
	now func() time.Time
}

// NewDocumentRepo creates a new DocumentRepo backed by the given DB.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db, now: time.Now}
}

// Add stores a document and its index entry in one transaction.
func (r *DocumentRepo) Add(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now().UTC()
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, fmt.Errorf("begin add document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertDoc = `INSERT INTO documents (id, namespace, title, content, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertDoc, doc.ID, doc.Namespace, doc.Title, doc.Content, formatTime(doc.CreatedAt)); err != nil {
		return model.Document{}, fmt.Errorf("insert document %q: %w", doc.ID, err)
	}

	const insertFTS = `INSERT INTO documents_fts (document_id, namespace, title, content) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertFTS, doc.ID, doc.Namespace, doc.Title, doc.Content); err != nil {
		return model.Document{}, fmt.Errorf("index document %q: %w", doc.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Document{}, fmt.Errorf("commit add document: %w", err)
	}

	return doc, nil
}

// List returns every document in namespace, newest first.
func (r *DocumentRepo) List(ctx context.Context, namespace string) ([]model.Document, error) {
	const query = `
		SELECT id, namespace, title, content, created_at
		FROM documents WHERE namespace = ?
		ORDER BY created_at DESC, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var doc model.Document
		var createdAt string
		if err := rows.Scan(&doc.ID, &doc.Namespace, &doc.Title, &doc.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if doc.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// Delete removes a document and its index entry. The namespace must match.
func (r *DocumentRepo) Delete(ctx context.Context, namespace, id string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete document: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND namespace = ?`, id, namespace)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %q: %w", id, model.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("unindex document %q: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete document: %w", err)
	}
	return nil
}

// Search returns up to limit passages in namespace matching any term of
// query, ranked by bm25 (best first).
func (r *DocumentRepo) Search(ctx context.Context, namespace, query string, limit int) ([]model.SearchResult, error) {
	match := buildMatchExpression(query)
	if match == "" || limit <= 0 {
		return []model.SearchResult{}, nil
	}

	const search = `
		SELECT document_id, title, content, bm25(documents_fts) AS rank
		FROM documents_fts
		WHERE documents_fts MATCH ? AND namespace = ?
		ORDER BY rank
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, search, match, namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	results := []model.SearchResult{}
	for rows.Next() {
		var res model.SearchResult
		var rank float64
		if err := rows.Scan(&res.DocumentID, &res.Title, &res.Text, &rank); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		// bm25 is negative with lower meaning better; expose a positive score.
		res.Score = -rank
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	return results, nil
}

// buildMatchExpression turns free text into an FTS5 expression of quoted
// terms joined by OR, so user punctuation never reaches the query parser.
func buildMatchExpression(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	quoted := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		term = strings.ToLower(term)
		if seen[term] {
			continue
		}
		seen[term] = true
		quoted = append(quoted, `"`+term+`"`)
	}

	return strings.Join(quoted, " OR ")
}
