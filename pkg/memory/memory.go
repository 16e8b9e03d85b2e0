// Package memory is hive's cross-session learning store: content-
// addressable records with a lexical (FTS5) and a vector index,
// hybrid retrieval, smart-upsert classification, and time-based
// confidence decay. The store owns its records and indexes
// independently of the event log; the FTS index follows the base
// table through triggers, so a record and its index entries commit or
// roll back together.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hive/pkg/protocol"
)

// Clock supplies the current time; injectable for decay tests.
type Clock func() time.Time

// Options configures a Store. Zero values fall back to the protocol
// defaults, so Options{} is a working configuration.
type Options struct {
	Embedder   Embedder
	Classifier Classifier
	Clock      Clock
	TopK       int           // smart-upsert candidate count
	RRFK       float64       // rank-fusion smoothing constant
	Limit      int           // default find limit
	Window     time.Duration // decay grace window
	HalfLife   time.Duration // decay half-life past the window
}

// Store manages the memories table and its indexes.
type Store struct {
	db   *sql.DB
	opts Options
}

// NewStore creates a Store over db. Missing options get defaults: TF
// embedder, heuristic classifier, wall clock, and the protocol
// constants for the tunables.
func NewStore(db *sql.DB, opts Options) *Store {
	if opts.Embedder == nil {
		opts.Embedder = NewTFEmbedder()
	}
	if opts.Classifier == nil {
		opts.Classifier = HeuristicClassifier{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TopK <= 0 {
		opts.TopK = protocol.DefaultUpsertTopK
	}
	if opts.RRFK <= 0 {
		opts.RRFK = protocol.DefaultRRFK
	}
	if opts.Limit <= 0 {
		opts.Limit = protocol.DefaultFindLimit
	}
	if opts.Window <= 0 {
		opts.Window = protocol.DefaultDecayWindow
	}
	if opts.HalfLife <= 0 {
		opts.HalfLife = protocol.DefaultDecayHalfLife
	}
	return &Store{db: db, opts: opts}
}

// InsertParams holds parameters for inserting a new record.
type InsertParams struct {
	Content    string
	Collection string
	Tags       []string
	Metadata   map[string]string
}

// Insert adds a new record with confidence 1.0 and a fresh embedding.
// Returns the assigned id.
func (s *Store) Insert(ctx context.Context, p InsertParams) (string, error) {
	if p.Content == "" {
		return "", &protocol.ValidationError{Field: "content", Reason: "empty"}
	}
	if p.Collection == "" {
		p.Collection = "default"
	}

	id := uuid.NewString()
	now := s.opts.Clock().UnixMilli()
	embedding := MarshalEmbedding(s.opts.Embedder.Embed(p.Content))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, collection, content, metadata, tags, embedding, confidence, created_at, last_validated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1.0, ?, ?)`,
		id, p.Collection, p.Content, mapToJSON(p.Metadata), listToJSON(p.Tags), embedding, now, now)
	if err != nil {
		return "", &protocol.StorageError{Op: "memory insert", Err: err}
	}
	return id, nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (protocol.Memory, error) {
	row := s.db.QueryRowContext(ctx, memorySelect+` WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return protocol.Memory{}, &protocol.NotFoundError{Kind: "memory", Ref: id}
	}
	if err != nil {
		return protocol.Memory{}, &protocol.StorageError{Op: "memory get", Err: err}
	}
	return m, nil
}

// Delete hard-deletes a record. The FTS delete trigger fires in the
// same statement, so record and index entries go together.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return &protocol.StorageError{Op: "memory delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &protocol.StorageError{Op: "memory delete", Err: err}
	}
	if n == 0 {
		return &protocol.NotFoundError{Kind: "memory", Ref: id}
	}
	return nil
}

// Replace overwrites a record's content in place: new content, reset
// confidence, recomputed embedding, refreshed validation anchor. Used
// by the smart-upsert UPDATE path.
func (s *Store) Replace(ctx context.Context, id, content string) error {
	if content == "" {
		return &protocol.ValidationError{Field: "content", Reason: "empty"}
	}
	now := s.opts.Clock().UnixMilli()
	embedding := MarshalEmbedding(s.opts.Embedder.Embed(content))

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories
		SET content = ?, embedding = ?, confidence = 1.0, last_validated_at = ?
		WHERE id = ?`,
		content, embedding, now, id)
	if err != nil {
		return &protocol.StorageError{Op: "memory replace", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &protocol.StorageError{Op: "memory replace", Err: err}
	}
	if n == 0 {
		return &protocol.NotFoundError{Kind: "memory", Ref: id}
	}
	return nil
}

// ListOpts configures a list query.
type ListOpts struct {
	Collection string
	Limit      int
	Offset     int
}

// List returns records newest first, optionally scoped to a
// collection.
func (s *Store) List(ctx context.Context, opts ListOpts) ([]protocol.Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := memorySelect
	args := []any{}
	if opts.Collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, opts.Collection)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &protocol.StorageError{Op: "memory list", Err: err}
	}
	defer rows.Close()

	var out []protocol.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, &protocol.StorageError{Op: "memory list scan", Err: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "memory list rows", Err: err}
	}
	return out, nil
}

// Count returns the number of records, optionally per collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	query := `SELECT COUNT(*) FROM memories`
	args := []any{}
	if collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, collection)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &protocol.StorageError{Op: "memory count", Err: err}
	}
	return n, nil
}

const memorySelect = `
	SELECT id, collection, content, metadata, tags, embedding, confidence, created_at, last_validated_at
	FROM memories`

// rowScanner lets scanMemory serve both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (protocol.Memory, error) {
	var m protocol.Memory
	var metadata, tags string
	var embedding []byte
	var created, validated int64
	err := row.Scan(&m.ID, &m.Collection, &m.Content, &metadata, &tags,
		&embedding, &m.Confidence, &created, &validated)
	if err != nil {
		return protocol.Memory{}, err
	}
	m.Metadata = mapFromJSON(metadata)
	m.Tags = listFromJSON(tags)
	m.Embedding = UnmarshalEmbedding(embedding)
	m.CreatedAt = time.UnixMilli(created)
	m.LastValidatedAt = time.UnixMilli(validated)
	return m, nil
}

// listToJSON marshals a string slice; nil becomes "[]".
func listToJSON(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// listFromJSON parses a stored JSON array; malformed input yields nil.
func listFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}

// mapToJSON marshals a metadata map; nil becomes "{}".
func mapToJSON(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// mapFromJSON parses a stored JSON object; malformed input yields nil.
func mapFromJSON(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}
