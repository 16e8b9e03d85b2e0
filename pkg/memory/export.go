package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"hive/pkg/protocol"
)

// exportRecord is the JSONL wire form of one memory. Embeddings are
// deliberately omitted: they are a function of the content and the
// importing store's vocabulary, so they are recomputed on import.
type exportRecord struct {
	ID              string            `json:"id"`
	Collection      string            `json:"collection"`
	Content         string            `json:"content"`
	Tags            []string          `json:"tags,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Confidence      float64           `json:"confidence"`
	CreatedAt       int64             `json:"created_at"`
	LastValidatedAt int64             `json:"last_validated_at"`
}

// ExportJSONL writes every record as one JSON object per line, newest
// first. Returns the number of records written.
func (s *Store) ExportJSONL(ctx context.Context, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	offset := 0
	const page = 200
	for {
		batch, err := s.List(ctx, ListOpts{Limit: page, Offset: offset})
		if err != nil {
			return count, err
		}
		for _, m := range batch {
			rec := exportRecord{
				ID:              m.ID,
				Collection:      m.Collection,
				Content:         m.Content,
				Tags:            m.Tags,
				Metadata:        m.Metadata,
				Confidence:      m.Confidence,
				CreatedAt:       m.CreatedAt.UnixMilli(),
				LastValidatedAt: m.LastValidatedAt.UnixMilli(),
			}
			if err := enc.Encode(rec); err != nil {
				return count, &protocol.StorageError{Op: "export encode", Err: err}
			}
			count++
		}
		if len(batch) < page {
			return count, nil
		}
		offset += page
	}
}

// ImportStats reports an ImportJSONL run.
type ImportStats struct {
	Imported int // new records written
	Skipped  int // ids already present
	Invalid  int // malformed or empty lines passed over
}

// ImportJSONL reads JSONL records and inserts the ones whose id is not
// already present, keeping their original id, timestamps, and
// confidence. Embeddings are recomputed against this store's
// vocabulary. Malformed lines are counted and skipped rather than
// aborting the run, so a partially corrupt export still restores what
// it can. Re-importing the same stream is a no-op.
func (s *Store) ImportJSONL(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec exportRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" || rec.Content == "" {
			stats.Invalid++
			continue
		}
		if rec.Collection == "" {
			rec.Collection = "default"
		}
		if rec.Confidence <= 0 || rec.Confidence > 1 {
			rec.Confidence = 1.0
		}

		embedding := MarshalEmbedding(s.opts.Embedder.Embed(rec.Content))
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO memories (id, collection, content, metadata, tags, embedding, confidence, created_at, last_validated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			rec.ID, rec.Collection, rec.Content, mapToJSON(rec.Metadata), listToJSON(rec.Tags),
			embedding, rec.Confidence, rec.CreatedAt, rec.LastValidatedAt)
		if err != nil {
			return stats, &protocol.StorageError{Op: "import insert", Err: err}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return stats, &protocol.StorageError{Op: "import insert", Err: err}
		}
		if n == 0 {
			stats.Skipped++
		} else {
			stats.Imported++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, &protocol.StorageError{Op: "import read", Err: err}
	}
	return stats, nil
}
